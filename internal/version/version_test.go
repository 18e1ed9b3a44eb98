// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package version

import (
	"strings"
	"testing"
)

func TestGetVersionString(t *testing.T) {
	origVersion, origCommit := Version, CommitHash
	defer func() {
		Version, CommitHash = origVersion, origCommit
	}()
	testDefs := []struct {
		version    string
		commitHash string
		expected   string
	}{
		{version: "", commitHash: "abc123", expected: "devel (commit abc123)"},
		{version: "v0.1.0", commitHash: "abc123", expected: "v0.1.0 (commit abc123)"},
	}
	for _, td := range testDefs {
		Version, CommitHash = td.version, td.commitHash
		if got := GetVersionString(); got != td.expected {
			t.Fatalf("got %q, want %q", got, td.expected)
		}
		if got := GetBuildString(); !strings.HasPrefix(got, "retarget "+td.expected) {
			t.Fatalf("unexpected build string: %s", got)
		}
	}
}

// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow_test

import (
	"testing"

	"github.com/blinklabs-io/retarget/pow"
)

// asertChain returns a chain rooted at the parent of the ASERT anchor
func asertChain(params *pow.Params) *pow.Chain {
	return pow.NewChain(params.ASERTHeight-1, testRootTime, 0x1d18ffe7)
}

func TestASERTOnSchedule(t *testing.T) {
	params := testParams(45)
	chain := asertChain(&params)
	for i := 1; i <= 50; i++ {
		chain.Append(testRootTime+int64(i)*params.TargetSpacing, 0x1d18ffe7)
		var anchors pow.AnchorCache
		tail := chain.Tip()
		got := pow.NextTargetASERT(tail, tail.Timestamp()+params.TargetSpacing, &params, &anchors)
		if got != params.ASERTAnchorBits {
			t.Fatalf("height %d: got 0x%08x, want 0x%08x", tail.Height(), got, params.ASERTAnchorBits)
		}
	}
}

func TestASERTSchedule(t *testing.T) {
	params := testParams(45)
	params.ASERTHalfLife = 600
	testDefs := []struct {
		name string
		// solvetimes of the blocks from the anchor up to the tail
		solvetimes []int64
		expected   uint32
	}{
		{
			name:       "one half-life late",
			solvetimes: []int64{150 + 600},
			expected:   0x1d31ffce,
		},
		{
			name:       "half a half-life late",
			solvetimes: []int64{150 + 300},
			expected:   0x1d235a0e,
		},
		{
			name:       "a sixth of a half-life late",
			solvetimes: []int64{150 + 100},
			expected:   0x1d1c1043,
		},
		{
			name:       "one half-life early",
			solvetimes: []int64{30, 30, 30, 30, 30},
			expected:   0x1d0c7ff3,
		},
		{
			// Floors to one whole shift down and a positive fraction
			name:       "half a half-life early",
			solvetimes: []int64{90, 90, 90, 90, 90},
			expected:   0x1d11ad07,
		},
	}
	for _, td := range testDefs {
		chain := asertChain(&params)
		for _, solvetime := range td.solvetimes {
			chain.Append(chain.Tip().Timestamp()+solvetime, 0x1d18ffe7)
		}
		var anchors pow.AnchorCache
		tail := chain.Tip()
		got := pow.NextTargetASERT(tail, tail.Timestamp(), &params, &anchors)
		if got != td.expected {
			t.Fatalf("%s: got 0x%08x, want 0x%08x", td.name, got, td.expected)
		}
	}
}

func TestASERTShiftLimits(t *testing.T) {
	params := testParams(45)
	params.ASERTHalfLife = 600

	// Far in the future: more than 256 half-lives late
	chain := asertChain(&params)
	chain.Append(testRootTime+200000, 0x1d18ffe7)
	var anchors pow.AnchorCache
	tail := chain.Tip()
	if got := pow.NextTargetASERT(tail, tail.Timestamp(), &params, &anchors); got != params.PowLimitBits() {
		t.Fatalf("late: got 0x%08x, want 0x%08x", got, params.PowLimitBits())
	}

	// Many blocks with no time passing: more than 256 half-lives early
	chain = asertChain(&params)
	for range 1100 {
		chain.Append(testRootTime, 0x1d18ffe7)
	}
	anchors.Reset()
	tail = chain.Tip()
	minTargetBits := uint32(0x01010000)
	if got := pow.NextTargetASERT(tail, tail.Timestamp(), &params, &anchors); got != minTargetBits {
		t.Fatalf("early: got 0x%08x, want 0x%08x", got, minTargetBits)
	}
}

func TestASERTClampsToPowLimit(t *testing.T) {
	params := testParams(45)
	params.ASERTHalfLife = 600
	// A few half-lives late is enough to pass the limit without
	// reaching the shift short-circuit
	chain := asertChain(&params)
	chain.Append(testRootTime+150+600*20, 0x1d18ffe7)
	var anchors pow.AnchorCache
	tail := chain.Tip()
	if got := pow.NextTargetASERT(tail, tail.Timestamp(), &params, &anchors); got != params.PowLimitBits() {
		t.Fatalf("got 0x%08x, want 0x%08x", got, params.PowLimitBits())
	}
}

func TestASERTNoRetargeting(t *testing.T) {
	params := pow.RegressionNetParams
	chain := pow.NewChain(params.ASERTHeight-1, testRootTime, 0x207fffff)
	chain.Append(testRootTime+1000000, 0x207fffff)
	var anchors pow.AnchorCache
	if got := pow.NextTargetASERT(chain.Tip(), 0, &params, &anchors); got != 0x207fffff {
		t.Fatalf("got 0x%08x, want 0x207fffff", got)
	}
	if anchors.Cached() != nil {
		t.Fatalf("anchor should not be resolved without retargeting")
	}
}

func TestASERTMissingAnchorParent(t *testing.T) {
	params := testParams(45)
	// Chain rooted at the anchor itself
	chain := pow.NewChain(params.ASERTHeight, testRootTime, 0x1d18ffe7)
	chain.Append(testRootTime+params.TargetSpacing, 0x1d18ffe7)
	var anchors pow.AnchorCache
	defer func() {
		if recover() == nil {
			t.Fatalf("expected a panic for an anchor without a parent")
		}
	}()
	pow.NextTargetASERT(chain.Tip(), 0, &params, &anchors)
}

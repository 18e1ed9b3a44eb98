// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"bufio"
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/btcsuite/btcd/wire"
)

// parseHeaderHex decodes a hex-encoded 80-byte block header
func parseHeaderHex(s string) (*wire.BlockHeader, error) {
	data, err := hex.DecodeString(strings.TrimSpace(s))
	if err != nil {
		return nil, fmt.Errorf("invalid header hex: %w", err)
	}
	if len(data) != wire.MaxBlockHeaderPayload {
		return nil, fmt.Errorf(
			"invalid header length %d, expected %d",
			len(data),
			wire.MaxBlockHeaderPayload,
		)
	}
	header := &wire.BlockHeader{}
	if err := header.Deserialize(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("invalid header: %w", err)
	}
	return header, nil
}

// readHeaders reads one hex-encoded header per line, skipping blank
// lines and lines starting with '#', and passes them to fn in batches
func readHeaders(
	r io.Reader,
	batchSize int,
	fn func([]*wire.BlockHeader) error,
) error {
	scanner := bufio.NewScanner(r)
	batch := make([]*wire.BlockHeader, 0, batchSize)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		header, err := parseHeaderHex(line)
		if err != nil {
			return fmt.Errorf("line %d: %w", lineNum, err)
		}
		batch = append(batch, header)
		if len(batch) == batchSize {
			if err := fn(batch); err != nil {
				return err
			}
			batch = make([]*wire.BlockHeader, 0, batchSize)
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	if len(batch) > 0 {
		return fn(batch)
	}
	return nil
}

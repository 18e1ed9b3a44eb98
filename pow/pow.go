// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"golang.org/x/crypto/scrypt"
)

var (
	ErrInvalidTarget = errors.New("invalid proof-of-work target")
	ErrHighHash      = errors.New("block hash exceeds target")
)

// difficultyOneBits is the compact encoding of the difficulty 1 target
const difficultyOneBits = 0x1d00ffff

// CheckProofOfWork reports whether hash satisfies the target encoded
// in bits. Negative, overflowing, zero and too-easy targets never do.
func CheckProofOfWork(hash *chainhash.Hash, bits uint32, params *Params) bool {
	target, negative, overflow := DecodeCompact(bits)
	if negative || overflow || target.IsZero() || target.Gt(params.PowLimit) {
		return false
	}
	return !HashToTarget(hash).Gt(target)
}

// PowHash returns the scrypt proof-of-work hash of a block header
func PowHash(header *wire.BlockHeader) (chainhash.Hash, error) {
	var buf bytes.Buffer
	buf.Grow(wire.MaxBlockHeaderPayload)
	if err := header.Serialize(&buf); err != nil {
		return chainhash.Hash{}, fmt.Errorf("failed to serialize header: %w", err)
	}
	b := buf.Bytes()
	scryptBytes, err := scrypt.Key(b, b, 1024, 1, 1, chainhash.HashSize)
	if err != nil {
		return chainhash.Hash{}, err
	}
	var hash chainhash.Hash
	copy(hash[:], scryptBytes)
	return hash, nil
}

// ValidateHeaderPoW checks that the header's proof-of-work hash
// satisfies the target derived from its Bits field
func ValidateHeaderPoW(header *wire.BlockHeader, params *Params) error {
	hash, err := PowHash(header)
	if err != nil {
		return err
	}
	target, negative, overflow := DecodeCompact(header.Bits)
	if negative || overflow || target.IsZero() || target.Gt(params.PowLimit) {
		return fmt.Errorf("%w: bits %08x", ErrInvalidTarget, header.Bits)
	}
	if !CheckProofOfWork(&hash, header.Bits, params) {
		return fmt.Errorf(
			"%w: block PoW hash %s exceeds target %x",
			ErrHighHash,
			hash,
			target.Bytes32(),
		)
	}
	return nil
}

// CalcWork returns the expected number of hashes needed to find a
// block with the given bits, 2^256 / (target+1). Invalid encodings
// represent no work.
func CalcWork(bits uint32) *uint256.Int {
	target, negative, overflow := DecodeCompact(bits)
	if negative || overflow || target.IsZero() {
		return new(uint256.Int)
	}
	// 2^256 doesn't fit, but (2^256 - target - 1) / (target + 1) + 1
	// gives the same result
	denominator := new(uint256.Int).AddUint64(target, 1)
	work := new(uint256.Int).Not(target)
	work.Div(work, denominator)
	return work.AddUint64(work, 1)
}

// GetDifficulty returns the difficulty of bits relative to the
// difficulty 1 target. It is only suitable for display.
func GetDifficulty(bits uint32) float64 {
	target := CompactToTarget(bits)
	if target.IsZero() {
		return 0
	}
	diff := new(big.Float).Quo(
		new(big.Float).SetInt(CompactToTarget(difficultyOneBits).ToBig()),
		new(big.Float).SetInt(target.ToBig()),
	)
	ret, _ := diff.Float64()
	return ret
}

// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/holiman/uint256"
)

const (
	compactSignBit  = 0x00800000
	compactMantissa = 0x007fffff
)

// DecodeCompact converts a compact (nBits) value to a 256-bit target.
// The first byte is the exponent, the next 3 bytes are the mantissa.
// Target = mantissa * 2^(8*(exp-3)). The sign bit of the mantissa
// and encodings that do not fit in 256 bits are reported rather than
// rejected.
func DecodeCompact(bits uint32) (target *uint256.Int, negative bool, overflow bool) {
	exp := bits >> 24
	mantissa := bits & compactMantissa
	target = new(uint256.Int)
	if exp <= 3 {
		mantissa >>= 8 * (3 - exp)
		target.SetUint64(uint64(mantissa))
	} else {
		target.SetUint64(uint64(mantissa))
		target.Lsh(target, uint(8*(exp-3)))
	}
	negative = mantissa != 0 && bits&compactSignBit != 0
	overflow = mantissa != 0 &&
		(exp > 34 ||
			(mantissa > 0xff && exp > 33) ||
			(mantissa > 0xffff && exp > 32))
	return target, negative, overflow
}

// CompactToTarget converts a compact (nBits) value to a 256-bit
// target, ignoring the sign and overflow flags
func CompactToTarget(bits uint32) *uint256.Int {
	target, _, _ := DecodeCompact(bits)
	return target
}

// EncodeCompact converts a 256-bit target to its compact (nBits)
// representation. The encoding keeps the 3 most significant bytes, so
// the conversion rounds down. When the top mantissa bit would be set
// the mantissa is shifted one more byte so it cannot be read back as
// a sign bit.
func EncodeCompact(target *uint256.Int) uint32 {
	size := uint32((target.BitLen() + 7) / 8)
	var mantissa uint32
	if size <= 3 {
		mantissa = uint32(target.Uint64() << (8 * (3 - size)))
	} else {
		tmp := new(uint256.Int).Rsh(target, uint(8*(size-3)))
		mantissa = uint32(tmp.Uint64())
	}
	if mantissa&compactSignBit != 0 {
		mantissa >>= 8
		size++
	}
	return mantissa | size<<24
}

// HashToTarget interprets a block hash as a 256-bit magnitude. Hashes
// are stored little-endian, so the bytes are reversed first.
func HashToTarget(hash *chainhash.Hash) *uint256.Int {
	var buf [chainhash.HashSize]byte
	for i := range chainhash.HashSize {
		buf[i] = hash[chainhash.HashSize-1-i]
	}
	return new(uint256.Int).SetBytes32(buf[:])
}

// TargetToHash is the inverse of HashToTarget
func TargetToHash(target *uint256.Int) chainhash.Hash {
	var hash chainhash.Hash
	buf := target.Bytes32()
	for i := range chainhash.HashSize {
		hash[i] = buf[chainhash.HashSize-1-i]
	}
	return hash
}

// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"github.com/holiman/uint256"
)

const (
	// asertRadix is the fixed-point scale of the exponent (16 fractional bits)
	asertRadix = 1 << 16

	// Cubic approximation of 2^x on [0, 1), scaled so the intermediate
	// sums stay within 64 bits. These must match bit-for-bit.
	asertPolyA = uint64(195766423245049)
	asertPolyB = uint64(971821376)
	asertPolyC = uint64(5127)
)

// NextTargetASERT returns the required bits for the block after tail
// from an exponential schedule anchored at the ASERT activation block:
//
//	target = anchorTarget * 2^((timeDelta - T*heightDelta) / halfLife)
func NextTargetASERT(tail *ChainNode, candidateTime int64, params *Params, anchors *AnchorCache) uint32 {
	if tail == nil {
		panic("pow: ASERT retarget without a chain tail")
	}
	if params.NoRetargeting {
		return tail.Bits()
	}

	anchor := anchors.Anchor(tail, params)
	anchorParent := anchor.Parent()
	if anchorParent == nil {
		panic("pow: ASERT anchor block has no parent")
	}

	anchorTarget := CompactToTarget(params.ASERTAnchorBits)
	// Measured from the anchor's parent so the anchor block's own
	// timestamp can't bias every later target
	timeDelta := tail.Timestamp() - anchorParent.Timestamp()
	heightDelta := tail.Height() + 1 - params.ASERTHeight

	exponent := ((timeDelta - params.TargetSpacing*heightDelta) * asertRadix) /
		params.ASERTHalfLife
	shifts, frac := splitExponent(exponent)

	nextTarget := new(uint256.Int).Mul(
		anchorTarget,
		uint256.NewInt(asertFactor(frac)),
	)
	nextTarget.Rsh(nextTarget, 16)

	switch {
	case shifts > 0:
		if shifts >= 256 {
			return params.PowLimitBits()
		}
		nextTarget.Lsh(nextTarget, uint(shifts))
	case shifts < 0:
		if -shifts >= 256 {
			return EncodeCompact(uint256.NewInt(1))
		}
		nextTarget.Rsh(nextTarget, uint(-shifts))
	}

	// An infinite difficulty is never required
	if nextTarget.IsZero() {
		nextTarget.SetOne()
	}
	if nextTarget.Gt(params.PowLimit) {
		nextTarget.Set(params.PowLimit)
	}
	return EncodeCompact(nextTarget)
}

// splitExponent decomposes a 16.16 fixed-point exponent into whole
// shifts and a fraction in [0, 65536), rounding toward negative
// infinity so that -2.3 becomes -3 + 0.7
func splitExponent(exponent int64) (shifts int64, frac uint16) {
	return exponent >> 16, uint16(exponent & 0xffff)
}

// asertFactor approximates 65536 * 2^(frac/65536)
func asertFactor(frac uint16) uint64 {
	f := uint64(frac)
	return asertRadix + ((asertPolyA*f +
		asertPolyB*f*f +
		asertPolyC*f*f*f +
		(uint64(1) << 47)) >> 48)
}

// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"github.com/holiman/uint256"
)

// NextTargetPeriodic returns the required bits for the block after
// tail using the classic rule that only retargets once per difficulty
// adjustment interval
func NextTargetPeriodic(tail *ChainNode, candidateTime int64, params *Params) uint32 {
	if tail == nil {
		panic("pow: periodic retarget without a chain tail")
	}
	if params.NoRetargeting {
		return tail.Bits()
	}
	interval := params.DifficultyAdjustmentInterval()
	nextHeight := tail.Height() + 1

	if nextHeight%interval != 0 {
		if !params.AllowMinDifficultyBlocks {
			return tail.Bits()
		}
		powLimitBits := params.PowLimitBits()
		// A block more than twice the target spacing late may be mined
		// at minimum difficulty
		if candidateTime > tail.Timestamp()+params.TargetSpacing*2 {
			return powLimitBits
		}
		// Otherwise use the last block that was not mined under the
		// minimum difficulty exception
		node := tail
		for node.Parent() != nil &&
			node.Height()%interval != 0 &&
			node.Bits() == powLimitBits {
			node = node.Parent()
		}
		return node.Bits()
	}

	// Go back the full period unless it's the first retarget after the
	// root, so an attacker can't include the root block's timestamp
	blocksBack := interval
	if nextHeight == interval {
		blocksBack = interval - 1
	}
	first := tail.RelativeAncestor(blocksBack)
	if first == nil {
		panic("pow: chain is shorter than the difficulty adjustment interval")
	}
	return CalcPeriodicTarget(tail, first.Timestamp(), params)
}

// CalcPeriodicTarget scales the target of tail by the time taken since
// firstBlockTime relative to the target timespan
func CalcPeriodicTarget(tail *ChainNode, firstBlockTime int64, params *Params) uint32 {
	if params.NoRetargeting {
		return tail.Bits()
	}

	// Limit adjustment step
	actualTimespan := tail.Timestamp() - firstBlockTime
	minTimespan := params.TargetTimespan / 4
	maxTimespan := params.TargetTimespan * 4
	if actualTimespan < minTimespan {
		actualTimespan = minTimespan
	}
	if actualTimespan > maxTimespan {
		actualTimespan = maxTimespan
	}

	newTarget := CompactToTarget(tail.Bits())
	// The intermediate product can overflow 256 bits by one bit when
	// the target is at the limit
	shift := newTarget.BitLen() > params.PowLimit.BitLen()-1
	if shift {
		newTarget.Rsh(newTarget, 1)
	}
	newTarget.Mul(newTarget, uint256.NewInt(uint64(actualTimespan)))
	newTarget.Div(newTarget, uint256.NewInt(uint64(params.TargetTimespan)))
	if shift {
		newTarget.Lsh(newTarget, 1)
	}

	if newTarget.Gt(params.PowLimit) {
		newTarget.Set(params.PowLimit)
	}
	return EncodeCompact(newTarget)
}

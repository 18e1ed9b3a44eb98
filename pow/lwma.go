// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"github.com/holiman/uint256"
)

// lwmaMinBlocks is the least number of solvetimes needed for a
// weighted average
const lwmaMinBlocks = 3

type lwmaVariant struct {
	// windowStartReference scales the target of the block at the start
	// of the window instead of the target of the tail
	windowStartReference bool
	// capFactor bounds the weighted solvetime sum to
	// [expected/capFactor, expected*capFactor]
	capFactor int64
}

var (
	lwmaV1 = lwmaVariant{capFactor: 10}
	lwmaV2 = lwmaVariant{windowStartReference: true, capFactor: 3}
)

// NextTargetLWMA returns the required bits for the block after tail
// using a linearly weighted moving average of recent solvetimes
func NextTargetLWMA(tail *ChainNode, candidateTime int64, params *Params) uint32 {
	return nextTargetLWMA(tail, params, lwmaV1)
}

// NextTargetLWMAv2 is NextTargetLWMA scaled from the target at the start
// of the averaging window, with a tighter 3x cap on the adjustment
func NextTargetLWMAv2(tail *ChainNode, candidateTime int64, params *Params) uint32 {
	return nextTargetLWMA(tail, params, lwmaV2)
}

func nextTargetLWMA(tail *ChainNode, params *Params, variant lwmaVariant) uint32 {
	if tail == nil {
		panic("pow: LWMA retarget without a chain tail")
	}
	if params.NoRetargeting {
		return tail.Bits()
	}

	nextHeight := tail.Height() + 1
	blocks := min(params.LWMAWindow, nextHeight-params.LWMAHeight)
	if blocks < lwmaMinBlocks {
		return tail.Bits()
	}

	var reference *uint256.Int
	if variant.windowStartReference {
		windowStart := tail
		for i := int64(0); i < blocks && windowStart.Parent() != nil; i++ {
			windowStart = windowStart.Parent()
		}
		reference = CompactToTarget(windowStart.Bits())
	} else {
		reference = CompactToTarget(tail.Bits())
	}

	spacing := params.TargetSpacing
	sumWeightedSolvetimes, sumWeights := weightedSolvetimes(tail, blocks, spacing)
	// Root reached before a single solvetime could be measured
	if sumWeights == 0 {
		return tail.Bits()
	}

	expected := sumWeights * spacing
	minWeighted := expected / variant.capFactor
	maxWeighted := expected * variant.capFactor
	if sumWeightedSolvetimes < minWeighted {
		sumWeightedSolvetimes = minWeighted
	}
	if sumWeightedSolvetimes > maxWeighted {
		sumWeightedSolvetimes = maxWeighted
	}

	nextTarget := new(uint256.Int).Mul(
		reference,
		uint256.NewInt(uint64(sumWeightedSolvetimes)),
	)
	nextTarget.Div(nextTarget, uint256.NewInt(uint64(expected)))

	if nextTarget.Gt(params.PowLimit) {
		nextTarget.Set(params.PowLimit)
	}
	return EncodeCompact(nextTarget)
}

// weightedSolvetimes walks back from tail over at most blocks
// solvetimes, newest weighted highest. Each solvetime is clamped to
// [1, 6*spacing] so out-of-order or far-future timestamps can't dominate.
func weightedSolvetimes(tail *ChainNode, blocks int64, spacing int64) (sumWeighted int64, sumWeights int64) {
	block := tail
	for i := blocks; i >= 1; i-- {
		prev := block.Parent()
		if prev == nil {
			break
		}
		solvetime := block.Timestamp() - prev.Timestamp()
		solvetime = max(1, min(solvetime, 6*spacing))
		sumWeighted += solvetime * i
		sumWeights += i
		block = prev
	}
	return sumWeighted, sumWeights
}

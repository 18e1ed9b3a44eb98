// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

// Algorithm identifies the retargeting rule in force for a block
type Algorithm int

const (
	AlgorithmPeriodic Algorithm = iota
	AlgorithmLWMA
	AlgorithmLWMAv2
	AlgorithmASERT
)

func (a Algorithm) String() string {
	switch a {
	case AlgorithmPeriodic:
		return "periodic"
	case AlgorithmLWMA:
		return "lwma"
	case AlgorithmLWMAv2:
		return "lwmav2"
	case AlgorithmASERT:
		return "asert"
	default:
		return "unknown"
	}
}

// SelectAlgorithm returns the retargeting rule that governs the block
// at nextHeight
func SelectAlgorithm(nextHeight int64, params *Params) Algorithm {
	switch {
	case nextHeight > params.ASERTHeight:
		return AlgorithmASERT
	case nextHeight >= params.LWMAFixHeight:
		return AlgorithmLWMAv2
	case nextHeight >= params.LWMAHeight:
		return AlgorithmLWMA
	default:
		return AlgorithmPeriodic
	}
}

// NextRequiredTarget returns the bits required for the block following
// tail with the given candidate timestamp. A nil anchors resolves the
// ASERT anchor from tail on every call instead of caching it.
func NextRequiredTarget(tail *ChainNode, candidateTime int64, params *Params, anchors *AnchorCache) uint32 {
	if tail == nil {
		panic("pow: next required target without a chain tail")
	}
	switch SelectAlgorithm(tail.Height()+1, params) {
	case AlgorithmASERT:
		return NextTargetASERT(tail, candidateTime, params, anchors)
	case AlgorithmLWMAv2:
		return NextTargetLWMAv2(tail, candidateTime, params)
	case AlgorithmLWMA:
		return NextTargetLWMA(tail, candidateTime, params)
	default:
		return NextTargetPeriodic(tail, candidateTime, params)
	}
}

// LowestReferencedHeight returns the height of the oldest block the
// rule for nextHeight reads. A chain view rooted above it cannot
// reproduce the target a full chain would require.
func LowestReferencedHeight(nextHeight int64, params *Params) int64 {
	tailHeight := nextHeight - 1
	if params.NoRetargeting {
		return tailHeight
	}
	switch SelectAlgorithm(nextHeight, params) {
	case AlgorithmASERT:
		// Parent of the anchor block
		return params.ASERTHeight - 1
	case AlgorithmLWMA, AlgorithmLWMAv2:
		blocks := min(params.LWMAWindow, nextHeight-params.LWMAHeight)
		if blocks < lwmaMinBlocks {
			return tailHeight
		}
		return max(0, tailHeight-blocks)
	default:
		interval := params.DifficultyAdjustmentInterval()
		if nextHeight%interval == 0 {
			if nextHeight == interval {
				return tailHeight - (interval - 1)
			}
			return tailHeight - interval
		}
		if params.AllowMinDifficultyBlocks {
			// Walk back to the last retarget boundary
			return tailHeight - tailHeight%interval
		}
		return tailHeight
	}
}

// Retargeter computes required targets for a single chain. It owns the
// ASERT anchor cache for that chain.
type Retargeter struct {
	params  *Params
	anchors AnchorCache
}

func NewRetargeter(params *Params) *Retargeter {
	return &Retargeter{
		params: params,
	}
}

func (r *Retargeter) Params() *Params {
	return r.params
}

// Algorithm returns the rule that will compute the target of the block
// after tail
func (r *Retargeter) Algorithm(tail *ChainNode) Algorithm {
	return SelectAlgorithm(tail.Height()+1, r.params)
}

func (r *Retargeter) NextRequiredTarget(tail *ChainNode, candidateTime int64) uint32 {
	return NextRequiredTarget(tail, candidateTime, r.params, &r.anchors)
}

// AnchorCache exposes the ASERT anchor cache of the retargeter
func (r *Retargeter) AnchorCache() *AnchorCache {
	return &r.anchors
}

// ResetAnchorCache forgets the ASERT anchor, e.g. after switching to a
// chain with a different root
func (r *Retargeter) ResetAnchorCache() {
	r.anchors.Reset()
}

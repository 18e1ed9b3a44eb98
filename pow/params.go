// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package pow

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"
)

var ErrInvalidParams = errors.New("invalid consensus parameters")

var (
	// allOnes is 2^256 - 1
	allOnes = new(uint256.Int).Not(new(uint256.Int))

	// mainPowLimit is the highest proof of work value a block can have
	// on the main and test networks: 2^236 - 1
	mainPowLimit = new(uint256.Int).Rsh(allOnes, 20)

	// regressionPowLimit is the highest proof of work value a block can
	// have on the regression test network: 2^255 - 1
	regressionPowLimit = new(uint256.Int).Rsh(allOnes, 1)
)

// Params holds the consensus parameters that drive difficulty
// retargeting and proof-of-work checks. A Params value is treated as
// immutable once it is in use.
type Params struct {
	Name string

	// PowLimit is the highest (easiest) allowed target
	PowLimit *uint256.Int

	// TargetSpacing is the desired number of seconds between blocks
	TargetSpacing int64
	// TargetTimespan is the period covered by one periodic retarget
	TargetTimespan int64

	// AllowMinDifficultyBlocks permits powLimit blocks when the
	// candidate block is more than twice the target spacing late
	AllowMinDifficultyBlocks bool
	// NoRetargeting keeps the difficulty of the tail for every block
	NoRetargeting bool

	LWMAHeight    int64
	LWMAFixHeight int64
	LWMAWindow    int64

	ASERTHeight     int64
	ASERTHalfLife   int64
	ASERTAnchorBits uint32
}

// DifficultyAdjustmentInterval returns the number of blocks between
// periodic retargets
func (p *Params) DifficultyAdjustmentInterval() int64 {
	return p.TargetTimespan / p.TargetSpacing
}

// PowLimitBits returns the compact encoding of the proof-of-work limit
func (p *Params) PowLimitBits() uint32 {
	return EncodeCompact(p.PowLimit)
}

// Validate checks that the parameters are usable by every
// retargeting algorithm
func (p *Params) Validate() error {
	if p.PowLimit == nil || p.PowLimit.IsZero() {
		return fmt.Errorf("%w: proof-of-work limit must be non-zero", ErrInvalidParams)
	}
	if p.TargetSpacing <= 0 {
		return fmt.Errorf("%w: target spacing must be positive", ErrInvalidParams)
	}
	if p.TargetTimespan < p.TargetSpacing || p.TargetTimespan%p.TargetSpacing != 0 {
		return fmt.Errorf(
			"%w: target timespan %d is not a positive multiple of target spacing %d",
			ErrInvalidParams,
			p.TargetTimespan,
			p.TargetSpacing,
		)
	}
	if p.LWMAWindow < 3 {
		return fmt.Errorf("%w: LWMA window must be at least 3 blocks", ErrInvalidParams)
	}
	if p.ASERTHalfLife <= 0 {
		return fmt.Errorf("%w: ASERT half-life must be positive", ErrInvalidParams)
	}
	if p.LWMAHeight < 0 ||
		p.LWMAFixHeight < p.LWMAHeight ||
		p.ASERTHeight < p.LWMAFixHeight {
		return fmt.Errorf(
			"%w: activation heights must be monotonic: lwma=%d lwmaFix=%d asert=%d",
			ErrInvalidParams,
			p.LWMAHeight,
			p.LWMAFixHeight,
			p.ASERTHeight,
		)
	}
	// The anchor block needs a parent for its reference timestamp
	if p.ASERTHeight < 1 {
		return fmt.Errorf("%w: ASERT height must be at least 1", ErrInvalidParams)
	}
	anchorTarget, negative, overflow := DecodeCompact(p.ASERTAnchorBits)
	if negative || overflow || anchorTarget.IsZero() || anchorTarget.Gt(p.PowLimit) {
		return fmt.Errorf(
			"%w: ASERT anchor bits %08x are not a valid target",
			ErrInvalidParams,
			p.ASERTAnchorBits,
		)
	}
	return nil
}

// MainNetParams defines the consensus parameters for the main network
var MainNetParams = Params{
	Name:           "mainnet",
	PowLimit:       mainPowLimit,
	// 2.5 minutes
	TargetSpacing: 150,
	// 3.5 days
	TargetTimespan: 3*86400 + 43200,
	LWMAHeight:     1700000,
	LWMAFixHeight:  1712000,
	LWMAWindow:     45,
	ASERTHeight:    1750000,
	// 12 hours
	ASERTHalfLife: 43200,
	// ~0.04 difficulty
	ASERTAnchorBits: 0x1d18ffe7,
}

// TestNetParams defines the consensus parameters for the test network
var TestNetParams = Params{
	Name:                     "testnet",
	PowLimit:                 mainPowLimit,
	TargetSpacing:            150,
	TargetTimespan:           3*86400 + 43200,
	AllowMinDifficultyBlocks: true,
	LWMAHeight:               100000,
	LWMAFixHeight:            101000,
	LWMAWindow:               45,
	ASERTHeight:              102000,
	ASERTHalfLife:            43200,
	ASERTAnchorBits:          0x1d18ffe7,
}

// RegressionNetParams defines the consensus parameters for the
// regression test network
var RegressionNetParams = Params{
	Name:                     "regtest",
	PowLimit:                 regressionPowLimit,
	TargetSpacing:            150,
	TargetTimespan:           3*86400 + 43200,
	AllowMinDifficultyBlocks: true,
	NoRetargeting:            true,
	LWMAHeight:               500,
	LWMAFixHeight:            600,
	LWMAWindow:               45,
	ASERTHeight:              700,
	ASERTHalfLife:            43200,
	ASERTAnchorBits:          0x207fffff,
}

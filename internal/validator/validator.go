// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package validator

import (
	"context"
	"errors"
	"fmt"

	"github.com/blinklabs-io/retarget/internal/logging"
	"github.com/blinklabs-io/retarget/internal/metrics"
	"github.com/blinklabs-io/retarget/pow"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
)

const progressInterval = 10000

var (
	ErrBadDiffBits    = errors.New("bad-diffbits: incorrect proof of work")
	ErrBadProofOfWork = errors.New("high-hash: proof of work failed")
	ErrNotContiguous  = errors.New("header heights are not contiguous")
)

// HeaderIterator yields headers in ascending height order
type HeaderIterator interface {
	ForEachHeader(fn func(height int64, header *wire.BlockHeader) error) error
}

type Result struct {
	// Headers is the number of headers replayed
	Headers int64
	// Checked is the number of headers whose bits were compared with
	// the required bits
	Checked int64
	// Skipped headers need history from below the first replayed header
	Skipped    int64
	Tip        *pow.ChainNode
	TipHash    chainhash.Hash
	ChainWork  *uint256.Int
	Algorithms map[pow.Algorithm]int64
}

// Validator replays a header chain and checks every header's bits
// against the bits the retargeting rules require
type Validator struct {
	params    *pow.Params
	verifyPoW bool
}

func New(params *pow.Params, verifyPoW bool) *Validator {
	return &Validator{
		params:    params,
		verifyPoW: verifyPoW,
	}
}

func (v *Validator) Replay(ctx context.Context, headers HeaderIterator) (*Result, error) {
	logger := logging.GetLogger()
	retargeter := pow.NewRetargeter(v.params)
	result := &Result{
		ChainWork:  new(uint256.Int),
		Algorithms: make(map[pow.Algorithm]int64),
	}
	var chain *pow.Chain
	err := headers.ForEachHeader(func(height int64, header *wire.BlockHeader) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		timestamp := header.Timestamp.Unix()
		if chain == nil {
			chain = pow.NewChain(height, timestamp, header.Bits)
			logger.Infof("replaying headers from height %d", height)
		} else {
			tail := chain.Tip()
			if height != tail.Height()+1 {
				return fmt.Errorf(
					"%w: got height %d after %d",
					ErrNotContiguous,
					height,
					tail.Height(),
				)
			}
			if err := v.checkBits(retargeter, chain.Root(), tail, height, header, result); err != nil {
				return err
			}
			chain.Append(timestamp, header.Bits)
		}
		if v.verifyPoW {
			err := pow.ValidateHeaderPoW(header, v.params)
			metrics.RecordPoWCheck(err == nil)
			if err != nil {
				return fmt.Errorf(
					"%w: height %d: %w",
					ErrBadProofOfWork,
					height,
					err,
				)
			}
		}
		result.Headers++
		result.ChainWork.Add(result.ChainWork, pow.CalcWork(header.Bits))
		result.TipHash = header.BlockHash()
		metrics.SetTip(height, header.Bits)
		if result.Headers%progressInterval == 0 {
			logger.Infof(
				"replayed %d headers, height %d, difficulty %f",
				result.Headers,
				height,
				pow.GetDifficulty(header.Bits),
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if chain != nil {
		result.Tip = chain.Tip()
	}
	return result, nil
}

func (v *Validator) checkBits(
	retargeter *pow.Retargeter,
	root *pow.ChainNode,
	tail *pow.ChainNode,
	height int64,
	header *wire.BlockHeader,
	result *Result,
) error {
	// The rules would read blocks from before the replay started
	if pow.LowestReferencedHeight(height, v.params) < root.Height() {
		result.Skipped++
		return nil
	}
	algorithm := retargeter.Algorithm(tail)
	required := retargeter.NextRequiredTarget(tail, header.Timestamp.Unix())
	metrics.RecordComputation(algorithm)
	result.Checked++
	result.Algorithms[algorithm]++
	if header.Bits != required {
		metrics.RecordBadBits()
		return fmt.Errorf(
			"%w: height %d (%s): got %08x, want %08x",
			ErrBadDiffBits,
			height,
			algorithm,
			header.Bits,
			required,
		)
	}
	return nil
}

// Copyright 2026 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/blinklabs-io/retarget/internal/config"
	"github.com/blinklabs-io/retarget/internal/logging"
	"github.com/blinklabs-io/retarget/internal/metrics"
	"github.com/blinklabs-io/retarget/internal/state"
	"github.com/blinklabs-io/retarget/internal/validator"
	"github.com/blinklabs-io/retarget/pow"
	"github.com/btcsuite/btcd/wire"
	"github.com/holiman/uint256"
	"github.com/spf13/cobra"
)

// Keeps each badger transaction well below its size limit
const importBatchSize = 1000

var nextFlags struct {
	candidateTime int64
}

var importCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import hex-encoded block headers, one per line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		logger := logging.GetLogger()
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		s, err := openState()
		if err != nil {
			return err
		}
		defer s.Close()
		nextHeight := cfg.Chain.StartHeight
		tipHeight, _, err := s.Tip()
		if err == nil {
			nextHeight = tipHeight + 1
		} else if !errors.Is(err, state.ErrNoHeaders) {
			return err
		}
		startHeight := nextHeight
		err = readHeaders(f, importBatchSize, func(batch []*wire.BlockHeader) error {
			if err := s.PutHeaders(nextHeight, batch); err != nil {
				return err
			}
			nextHeight += int64(len(batch))
			logger.Debugf("imported headers up to height %d", nextHeight-1)
			return nil
		})
		if err != nil {
			return fmt.Errorf("import failed at height %d: %w", nextHeight, err)
		}
		logger.Infof(
			"imported %d headers at heights %d to %d",
			nextHeight-startHeight,
			startHeight,
			nextHeight-1,
		)
		return nil
	},
}

var nextCmd = &cobra.Command{
	Use:   "next",
	Short: "Show the required bits for the block after the stored tip",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := config.GetConfig().ConsensusParams()
		if err != nil {
			return err
		}
		s, err := openState()
		if err != nil {
			return err
		}
		defer s.Close()
		chain, err := s.LoadChain()
		if err != nil {
			return err
		}
		tail := chain.Tip()
		nextHeight := tail.Height() + 1
		if lowest := pow.LowestReferencedHeight(nextHeight, params); lowest < chain.Root().Height() {
			return fmt.Errorf(
				"height %d needs headers from height %d, store starts at %d",
				nextHeight,
				lowest,
				chain.Root().Height(),
			)
		}
		candidateTime := nextFlags.candidateTime
		if candidateTime == 0 {
			candidateTime = time.Now().Unix()
		}
		retargeter := pow.NewRetargeter(params)
		bits := retargeter.NextRequiredTarget(tail, candidateTime)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "height:     %d\n", nextHeight)
		fmt.Fprintf(out, "algorithm:  %s\n", retargeter.Algorithm(tail))
		fmt.Fprintf(out, "bits:       %08x\n", bits)
		fmt.Fprintf(out, "target:     %x\n", pow.CompactToTarget(bits).Bytes32())
		fmt.Fprintf(out, "difficulty: %f\n", pow.GetDifficulty(bits))
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check <header-hex>",
	Short: "Check the proof of work of a block header",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		params, err := config.GetConfig().ConsensusParams()
		if err != nil {
			return err
		}
		header, err := parseHeaderHex(args[0])
		if err != nil {
			return err
		}
		powHash, err := pow.PowHash(header)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "block hash: %s\n", header.BlockHash())
		fmt.Fprintf(out, "pow hash:   %s\n", powHash)
		fmt.Fprintf(out, "bits:       %08x\n", header.Bits)
		if err := pow.ValidateHeaderPoW(header, params); err != nil {
			return err
		}
		fmt.Fprintln(out, "proof of work: ok")
		return nil
	},
}

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Validate the bits and proof of work of every stored header",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.GetConfig()
		logger := logging.GetLogger()
		params, err := cfg.ConsensusParams()
		if err != nil {
			return err
		}
		startDebugListener()
		if err := metrics.Start(); err != nil {
			return err
		}
		s, err := openState()
		if err != nil {
			return err
		}
		defer s.Close()
		ctx, stop := signal.NotifyContext(
			cmd.Context(),
			os.Interrupt,
			syscall.SIGTERM,
		)
		defer stop()
		result, err := validator.New(params, cfg.Chain.VerifyPoW).Replay(ctx, s)
		if err != nil {
			return err
		}
		if result.Tip == nil {
			return state.ErrNoHeaders
		}
		logger.Infof(
			"replayed %d headers, checked %d, skipped %d",
			result.Headers,
			result.Checked,
			result.Skipped,
		)
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "tip height: %d\n", result.Tip.Height())
		fmt.Fprintf(out, "tip hash:   %s\n", result.TipHash)
		fmt.Fprintf(out, "chain work: %s\n", result.ChainWork.Hex())
		for _, algorithm := range []pow.Algorithm{
			pow.AlgorithmPeriodic,
			pow.AlgorithmLWMA,
			pow.AlgorithmLWMAv2,
			pow.AlgorithmASERT,
		} {
			fmt.Fprintf(out, "%-10s  %d\n", algorithm.String()+":", result.Algorithms[algorithm])
		}
		return nil
	},
}

var compactCmd = &cobra.Command{
	Use:   "compact",
	Short: "Convert between compact bits and targets",
}

var compactDecodeCmd = &cobra.Command{
	Use:   "decode <bits>",
	Short: "Decode hex compact bits into a target",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		bits, err := strconv.ParseUint(trimHexPrefix(args[0]), 16, 32)
		if err != nil {
			return fmt.Errorf("invalid bits: %w", err)
		}
		target, negative, overflow := pow.DecodeCompact(uint32(bits))
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "target:     %x\n", target.Bytes32())
		fmt.Fprintf(out, "negative:   %t\n", negative)
		fmt.Fprintf(out, "overflow:   %t\n", overflow)
		fmt.Fprintf(out, "difficulty: %f\n", pow.GetDifficulty(uint32(bits)))
		fmt.Fprintf(out, "work:       %s\n", pow.CalcWork(uint32(bits)).Dec())
		return nil
	},
}

var compactEncodeCmd = &cobra.Command{
	Use:   "encode <target>",
	Short: "Encode a hex target as compact bits",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		s := trimHexPrefix(args[0])
		if len(s)%2 != 0 {
			s = "0" + s
		}
		data, err := hex.DecodeString(s)
		if err != nil || len(data) > 32 {
			return fmt.Errorf("invalid target: %s", args[0])
		}
		target := new(uint256.Int).SetBytes(data)
		fmt.Fprintf(cmd.OutOrStdout(), "%08x\n", pow.EncodeCompact(target))
		return nil
	},
}

func init() {
	nextCmd.Flags().Int64Var(
		&nextFlags.candidateTime,
		"time",
		0,
		"candidate block timestamp in unix seconds (default now)",
	)
	compactCmd.AddCommand(compactDecodeCmd, compactEncodeCmd)
}

func trimHexPrefix(s string) string {
	return strings.TrimPrefix(strings.TrimPrefix(s, "0x"), "0X")
}

func openState() (*state.State, error) {
	s := state.GetState()
	if err := s.Load(); err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}
	return s, nil
}

func startDebugListener() {
	cfg := config.GetConfig()
	logger := logging.GetLogger()
	if cfg.Debug.ListenPort == 0 {
		return
	}
	logger.Infof(
		"starting debug listener on %s:%d",
		cfg.Debug.ListenAddress,
		cfg.Debug.ListenPort,
	)
	go func() {
		err := http.ListenAndServe(
			fmt.Sprintf(
				"%s:%d",
				cfg.Debug.ListenAddress,
				cfg.Debug.ListenPort,
			),
			nil,
		)
		if err != nil {
			logger.Fatalf("failed to start debug listener: %s", err)
		}
	}()
}

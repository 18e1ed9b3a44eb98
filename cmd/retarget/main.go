// Copyright 2024 Blink Labs Software
//
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file or at
// https://opensource.org/licenses/MIT.

package main

import (
	"fmt"
	"os"

	_ "go.uber.org/automaxprocs"

	"github.com/blinklabs-io/retarget/internal/config"
	"github.com/blinklabs-io/retarget/internal/logging"
	"github.com/blinklabs-io/retarget/internal/version"
	"github.com/spf13/cobra"
)

const programName = "retarget"

var cmdlineFlags struct {
	configFile string
}

var rootCmd = &cobra.Command{
	Use:           programName,
	Short:         "Difficulty retargeting and proof-of-work tool",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load config
		if _, err := config.Load(cmdlineFlags.configFile); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		// Configure logging
		if err := logging.Setup(); err != nil {
			return err
		}
		return nil
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version.GetBuildString())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cmdlineFlags.configFile,
		"config",
		"",
		"path to config file to load",
	)
	rootCmd.AddCommand(
		importCmd,
		nextCmd,
		checkCmd,
		replayCmd,
		compactCmd,
		versionCmd,
	)
}

func main() {
	err := rootCmd.Execute()
	// Sync logger on exit
	// We don't actually care about the error here
	_ = logging.GetLogger().Sync()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %s\n", programName, err)
		os.Exit(1)
	}
}

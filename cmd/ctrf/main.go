package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ctrf/internal/cli"
	"ctrf/internal/cli/commands"
	"ctrf/internal/config"
	"ctrf/internal/logging"
)

var version = "dev"

func main() {
	// Quiet until the verbose flag is parsed
	level := zap.NewAtomicLevelAt(logging.Level(false))
	logger, err := logging.NewWithLevel(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create root command
	rootCmd := &cobra.Command{
		Use:   "ctrf",
		Short: "CTRF reports for go test",
		Long: `Runs go test packages on parallel workers and aggregates every test outcome into a
Common Test Report Format (CTRF) JSON report.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level.SetLevel(logging.Level(flags.Verbose))
		},
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg, logger)

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	// Execute root command
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, commands.ErrTestsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		logger.Sync()
		os.Exit(1)
	}
}

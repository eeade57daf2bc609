package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/walteh/distcp/pkg/config"
	"github.com/walteh/distcp/pkg/executor"
	"github.com/walteh/distcp/pkg/log"
	"github.com/walteh/distcp/pkg/plan"
	"github.com/walteh/distcp/pkg/transport"
	"gitlab.com/tozd/go/errors"
)

var (
	// Flags
	configFile string
	debug      bool
	dryRun     bool
	retries    int
	exclude    []string
)

// addRootFlags adds shared flags to the root command
func addRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "distcp.csv", "config file path (csv, yaml or hcl)")
	cmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	cmd.PersistentFlags().BoolVar(&dryRun, "dry-run", false, "print the compiled plan instead of executing it")
	cmd.PersistentFlags().IntVar(&retries, "retries", 0, "retries per failed remote command")
	cmd.PersistentFlags().StringSliceVar(&exclude, "exclude", nil, "glob patterns excluded from folder listings")
}

// setupLogging configures zerolog based on flags
func setupLogging() {
	if debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	zerolog.DefaultContextLogger = &logger
}

// compiler builds a plan for one mode from the loaded request
type compiler func(cmd *cobra.Command, ssh *transport.SSH, cfg *config.Config) (*plan.Plan, error)

// runMode loads the config, compiles the plan and executes it
func runMode(cmd *cobra.Command, compile compiler) error {
	ctx := cmd.Context()

	cfg, err := config.Load(ctx, configFile)
	if err != nil {
		return errors.Errorf("loading config: %w", err)
	}

	ssh := transport.NewSSH(transport.SSHOptions{
		Retries:    retries,
		RetryDelay: time.Second,
		Exclude:    exclude,
	})

	p, err := compile(cmd, ssh, cfg)
	if err != nil {
		return err
	}

	if dryRun {
		fmt.Fprint(cmd.OutOrStdout(), p.String())
		return nil
	}

	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	reporter := log.New(cmd.OutOrStdout(), level, true)

	x, err := executor.New(executor.Options{
		Copier:   ssh,
		Reporter: reporter,
	})
	if err != nil {
		return err
	}
	return x.Run(ctx, p)
}

// newBroadcastCmd replicates whole content from the sources to every destination
func newBroadcastCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "broadcast",
		Short: "Broadcast files from source node to all destination nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, func(cmd *cobra.Command, _ *transport.SSH, cfg *config.Config) (*plan.Plan, error) {
				return plan.CompileBroadcast(cmd.Context(), cfg.Sources(), cfg.Destinations())
			})
		},
	}
}

// newScatterCmd distributes disjoint sub-ranges to the destinations
func newScatterCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "scatter",
		Short: "Distribute sub-ranges from source node(s) to all destination nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, func(cmd *cobra.Command, ssh *transport.SSH, cfg *config.Config) (*plan.Plan, error) {
				return plan.CompileScatter(cmd.Context(), ssh, cfg.Sources(), cfg.Destinations())
			})
		},
	}
}

// newGatherCmd reassembles scattered chunks at the source node
func newGatherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gather",
		Short: "Gather files from all destination nodes back to the source node",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMode(cmd, func(cmd *cobra.Command, ssh *transport.SSH, cfg *config.Config) (*plan.Plan, error) {
				return plan.CompileGather(cmd.Context(), ssh, cfg.Sources(), cfg.Destinations())
			})
		},
	}
}

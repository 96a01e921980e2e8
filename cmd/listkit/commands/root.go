// Package commands implements the listkit CLI commands.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/listkit/pkg/config"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/version"
)

type rootOptions struct {
	configPath string
	verbose    bool
}

// NewRootCommand builds the listkit command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "listkit",
		Short: "listkit - list diffing and tiled loading toolkit",
		Long: `listkit computes minimal edit scripts between ordered lists and
simulates tiled background loading of large lists.

Commands:
  diff      Edit script between two list snapshots
  tiles     Tile loading simulation over a synthetic list
  mcp       MCP server exposing the diff tools
  metrics   Diagnostics endpoint with Prometheus metrics`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: listkit.yaml in ., ./config, /etc/listkit)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newDiffCommand(opts))
	rootCmd.AddCommand(newTilesCommand(opts))
	rootCmd.AddCommand(newMCPCommand(opts))
	rootCmd.AddCommand(newMetricsCommand(opts))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}
}

// session is the configuration and telemetry of one command run.
type session struct {
	cfg       *config.Config
	providers observability.Providers
	red       *observability.REDMetrics
}

func openSession(ctx context.Context, opts *rootOptions, mode observability.AppMode, logOut io.Writer) (*session, error) {
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		return nil, err
	}

	obsCfg := cfg.ObservabilityFor(mode, version.Version)
	if opts.verbose {
		obsCfg.LogLevel = slog.LevelDebug
	}

	providers, err := observability.InitWithWriter(ctx, obsCfg, logOut)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	red, err := observability.NewREDMetrics(providers.Meter)
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}

	return &session{cfg: cfg, providers: providers, red: red}, nil
}

// close flushes telemetry. Failures are logged, not returned.
func (s *session) close() {
	err := s.providers.Shutdown(context.Background())
	if err != nil {
		s.providers.Logger.Warn("observability shutdown failed", "error", err)
	}
}

// track runs fn as the RED-measured request op.
func (s *session) track(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, span := s.providers.Tracer.Start(ctx, op)
	defer span.End()

	done := s.red.TrackInflight(ctx, op)
	defer done()

	start := time.Now()
	err := fn(ctx)

	status := observability.StatusOK
	if err != nil {
		status = observability.StatusError
		span.RecordError(err)
	}

	s.red.RecordRequest(ctx, op, status, time.Since(start))

	return err
}

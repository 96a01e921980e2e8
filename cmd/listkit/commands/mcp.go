package commands

import (
	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/listkit/pkg/mcp"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
)

func newMCPCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Start MCP server for AI agent integration",
		Long: `Start a Model Context Protocol (MCP) server on stdio transport.

Tools:
  - listkit_diff: edit script between two inline item lists
  - listkit_diff_files: edit script between two snapshot files

Logs go to stderr; stdout carries the protocol.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), root, observability.ModeMCP, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			maxBytes, err := sess.cfg.Tiles.SnapshotMaxBytes()
			if err != nil {
				return err
			}

			srv := mcp.NewServer(mcp.ServerDeps{
				Logger:           sess.providers.Logger,
				Metrics:          sess.red,
				Tracer:           sess.providers.Tracer,
				MaxSnapshotBytes: maxBytes,
			})

			sess.providers.Logger.Info("mcp server starting", "tools", srv.ListToolNames())

			return srv.Run(cmd.Context())
		},
	}
}

package commands

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/listkit/pkg/observability"
)

func newMetricsCommand(root *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Serve /metrics, /healthz and /readyz until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd.Context(), root, observability.ModeMetrics, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer sess.close()

			if !cmd.Flags().Changed("addr") {
				addr = sess.cfg.Observability.PrometheusAddr
			}

			return serveDiagnostics(cmd.Context(), sess, addr, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")

	return cmd
}

func serveDiagnostics(ctx context.Context, sess *session, addr string, out io.Writer) error {
	server, err := observability.NewDiagnosticsServer(ctx, addr, sess.providers.MetricsHandler, sess.providers.Logger)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "serving diagnostics on http://%s\n", server.Addr())
	sess.providers.Logger.Info("diagnostics server started", "addr", server.Addr())

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sess.cfg.Observability.ShutdownTimeout)
	defer cancel()

	return server.Close(shutdownCtx)
}

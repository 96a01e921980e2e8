package observability

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"
)

const (
	healthStatusOK          = "ok"
	healthStatusUnavailable = "unavailable"

	readHeaderTimeout = 5 * time.Second
)

// ReadyCheck reports whether a subsystem can serve; nil means ready.
type ReadyCheck func(ctx context.Context) error

// HealthHandler always answers 200 {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		writeStatus(rw, http.StatusOK, healthStatusOK)
	})
}

// ReadyHandler answers 503 when any check fails and 200 otherwise.
func ReadyHandler(checks ...ReadyCheck) http.Handler {
	return http.HandlerFunc(func(rw http.ResponseWriter, req *http.Request) {
		for _, check := range checks {
			if check(req.Context()) != nil {
				writeStatus(rw, http.StatusServiceUnavailable, healthStatusUnavailable)

				return
			}
		}

		writeStatus(rw, http.StatusOK, healthStatusOK)
	})
}

func writeStatus(rw http.ResponseWriter, code int, status string) {
	rw.Header().Set("Content-Type", "application/json")
	rw.WriteHeader(code)

	//nolint:errchkjson // a map of strings always encodes.
	_ = json.NewEncoder(rw).Encode(map[string]string{"status": status})
}

// DiagnosticsServer serves /healthz, /readyz and /metrics.
type DiagnosticsServer struct {
	server   *http.Server
	listener net.Listener
	logger   *slog.Logger
}

// NewDiagnosticsServer listens on addr and starts serving in the background.
// metrics is mounted at /metrics.
func NewDiagnosticsServer(
	ctx context.Context, addr string, metrics http.Handler, logger *slog.Logger, checks ...ReadyCheck,
) (*DiagnosticsServer, error) {
	mux := http.NewServeMux()
	mux.Handle("/healthz", HealthHandler())
	mux.Handle("/readyz", ReadyHandler(checks...))
	mux.Handle("/metrics", metrics)

	var lc net.ListenConfig

	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	ds := &DiagnosticsServer{
		server:   &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout},
		listener: listener,
		logger:   LoggerOrDefault(logger),
	}

	go ds.serve()

	return ds, nil
}

func (d *DiagnosticsServer) serve() {
	err := d.server.Serve(d.listener)
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		d.logger.Warn("diagnostics server stopped", "error", err)
	}
}

// Addr returns the bound address.
func (d *DiagnosticsServer) Addr() string {
	return d.listener.Addr().String()
}

// Close shuts the server down gracefully.
func (d *DiagnosticsServer) Close(ctx context.Context) error {
	err := d.server.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("shutdown diagnostics server: %w", err)
	}

	return nil
}

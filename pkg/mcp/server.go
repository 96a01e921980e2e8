// Package mcp implements a Model Context Protocol server exposing listkit
// diffing as MCP tools over stdio transport.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Sumatoshi-tech/listkit/pkg/cache"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
	"github.com/Sumatoshi-tech/listkit/pkg/version"
)

const (
	serverName = "listkit"

	toolCount = 2

	// DefaultSnapshotCacheBytes bounds the decoded snapshots kept between calls.
	DefaultSnapshotCacheBytes = 256 << 20
)

// ServerDeps holds injectable dependencies for the MCP server.
// Zero-value fields use production defaults.
type ServerDeps struct {
	// Logger is an optional structured logger. Nil uses slog default.
	Logger *slog.Logger

	// Metrics is an optional RED metrics recorder. Nil disables per-tool metrics.
	Metrics *observability.REDMetrics

	// Tracer is an optional OTel tracer for per-tool-call spans. Nil disables tracing.
	Tracer trace.Tracer

	// MaxSnapshotBytes bounds snapshot files read by listkit_diff_files.
	// Zero keeps the snapshot package default.
	MaxSnapshotBytes int64

	// SnapshotCacheBytes bounds the snapshot cache, accounted by file size.
	// Zero uses DefaultSnapshotCacheBytes, negative disables caching.
	SnapshotCacheBytes int64
}

// Server wraps the MCP SDK server with listkit tool registrations.
type Server struct {
	inner    *mcpsdk.Server
	mu       sync.RWMutex
	tools    []string
	metrics  *observability.REDMetrics
	tracer   trace.Tracer
	maxBytes int64
	cache    *cache.LRU[snapshotKey, []snapshot.Item]
}

// NewServer creates a new MCP server with all listkit tools registered.
func NewServer(deps ServerDeps) *Server {
	opts := &mcpsdk.ServerOptions{}
	if deps.Logger != nil {
		opts.Logger = deps.Logger
	}

	inner := mcpsdk.NewServer(
		&mcpsdk.Implementation{
			Name:    serverName,
			Version: version.Version,
		},
		opts,
	)

	srv := &Server{
		inner:    inner,
		tools:    make([]string, 0, toolCount),
		metrics:  deps.Metrics,
		tracer:   deps.Tracer,
		maxBytes: deps.MaxSnapshotBytes,
	}

	switch {
	case deps.SnapshotCacheBytes == 0:
		srv.cache = cache.NewLRU[snapshotKey, []snapshot.Item](DefaultSnapshotCacheBytes)
	case deps.SnapshotCacheBytes > 0:
		srv.cache = cache.NewLRU[snapshotKey, []snapshot.Item](deps.SnapshotCacheBytes)
	}

	srv.registerTools()

	return srv
}

// ListToolNames returns the sorted names of all registered tools.
func (s *Server) ListToolNames() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, len(s.tools))
	copy(names, s.tools)
	sort.Strings(names)

	return names
}

// Run starts the MCP server on stdio transport. It blocks until the context
// is canceled or the connection closes.
func (s *Server) Run(ctx context.Context) error {
	return s.RunWithTransport(ctx, &mcpsdk.StdioTransport{})
}

// RunWithTransport starts the MCP server on the given transport.
func (s *Server) RunWithTransport(ctx context.Context, transport mcpsdk.Transport) error {
	err := s.inner.Run(ctx, transport)
	if err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}

	return nil
}

func (s *Server) registerTools() {
	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameDiff,
		Description: diffToolDescription,
	}, withMetrics(s.metrics, ToolNameDiff, withTracing(s.tracer, ToolNameDiff, handleDiff)))

	s.trackTool(ToolNameDiff)

	mcpsdk.AddTool(s.inner, &mcpsdk.Tool{
		Name:        ToolNameDiffFiles,
		Description: diffFilesToolDescription,
	}, withMetrics(s.metrics, ToolNameDiffFiles, withTracing(s.tracer, ToolNameDiffFiles, s.handleDiffFiles)))

	s.trackTool(ToolNameDiffFiles)
}

const mcpSpanPrefix = "mcp."

// traceIDMetaKey prefixes the trace id appended to sampled tool responses.
const traceIDMetaKey = "trace_id"

// withTracing wraps handler in a server span and appends the trace id to the
// response when the span is sampled.
func withTracing[Input any](
	tracer trace.Tracer,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if tracer == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		ctx, span := tracer.Start(ctx, mcpSpanPrefix+toolName,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(attribute.String("mcp.tool", toolName)),
		)
		defer span.End()

		result, output, err := handler(ctx, req, input)

		sc := span.SpanContext()
		if sc.IsSampled() && result != nil {
			traceContent := &mcpsdk.TextContent{Text: fmt.Sprintf("%s=%s", traceIDMetaKey, sc.TraceID().String())}
			result.Content = append(result.Content, traceContent)
		}

		return result, output, err
	}
}

// withMetrics wraps handler to record RED metrics per invocation.
func withMetrics[Input any](
	metrics *observability.REDMetrics,
	toolName string,
	handler mcpsdk.ToolHandlerFor[Input, ToolOutput],
) mcpsdk.ToolHandlerFor[Input, ToolOutput] {
	if metrics == nil {
		return handler
	}

	return func(ctx context.Context, req *mcpsdk.CallToolRequest, input Input) (*mcpsdk.CallToolResult, ToolOutput, error) {
		start := time.Now()

		decInflight := metrics.TrackInflight(ctx, mcpSpanPrefix+toolName)
		defer decInflight()

		result, output, err := handler(ctx, req, input)

		status := observability.StatusOK
		if err != nil || (result != nil && result.IsError) {
			status = observability.StatusError
		}

		metrics.RecordRequest(ctx, mcpSpanPrefix+toolName, status, time.Since(start))

		return result, output, err
	}
}

func (s *Server) trackTool(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tools = append(s.tools, name)
}

const (
	diffToolDescription = "Compute the minimal edit script between two item lists. " +
		"Items are matched by id and compared by content; moves are reported when detect_moves is set."

	diffFilesToolDescription = "Compute the edit script between two list snapshot files " +
		"(.json, .yaml, .yml, optionally .lz4 framed). Paths must be absolute."
)

// CacheStats reports snapshot cache counters. The zero Stats is returned
// when caching is disabled.
func (s *Server) CacheStats() cache.Stats {
	if s.cache == nil {
		return cache.Stats{}
	}

	return s.cache.Stats()
}

package mcp_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/Sumatoshi-tech/listkit/pkg/mcp"
	"github.com/Sumatoshi-tech/listkit/pkg/observability"
	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
)

const testTimeout = 10 * time.Second

func connect(t *testing.T, srv *mcp.Server) *mcpsdk.ClientSession {
	t.Helper()

	clientTransport, serverTransport := mcpsdk.NewInMemoryTransports()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)

	serverDone := make(chan error, 1)

	go func() {
		serverDone <- srv.RunWithTransport(ctx, serverTransport)
	}()

	client := mcpsdk.NewClient(&mcpsdk.Implementation{Name: "test-client", Version: "1.0.0"}, nil)

	session, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = session.Close()

		cancel()
		<-serverDone
	})

	return session
}

func callTool(t *testing.T, session *mcpsdk.ClientSession, name string, args map[string]any) *mcpsdk.CallToolResult {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	result, err := session.CallTool(ctx, &mcpsdk.CallToolParams{Name: name, Arguments: args})
	require.NoError(t, err)
	require.NotNil(t, result)
	require.NotEmpty(t, result.Content)

	return result
}

func firstText(t *testing.T, result *mcpsdk.CallToolResult) string {
	t.Helper()

	text, ok := result.Content[0].(*mcpsdk.TextContent)
	require.True(t, ok)

	return text.Text
}

func decodeReport(t *testing.T, result *mcpsdk.CallToolResult) snapshot.Report {
	t.Helper()

	require.False(t, result.IsError, firstText(t, result))

	var report snapshot.Report

	require.NoError(t, json.Unmarshal([]byte(firstText(t, result)), &report))

	return report
}

func TestServer_ListToolNames(t *testing.T) {
	t.Parallel()

	srv := mcp.NewServer(mcp.ServerDeps{})

	assert.Equal(t, []string{mcp.ToolNameDiff, mcp.ToolNameDiffFiles}, srv.ListToolNames())
}

func TestServer_ToolsList(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	tools, err := session.ListTools(ctx, nil)
	require.NoError(t, err)
	require.Len(t, tools.Tools, 2)

	for _, tool := range tools.Tools {
		assert.NotNil(t, tool.InputSchema, "tool %s missing input schema", tool.Name)
	}
}

func TestServer_Diff(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
		"old":          []map[string]any{{"id": "a"}, {"id": "b", "content": "1"}, {"id": "c"}},
		"new":          []map[string]any{{"id": "c"}, {"id": "a"}, {"id": "b", "content": "2"}},
		"detect_moves": true,
	})

	report := decodeReport(t, result)
	assert.Equal(t, 3, report.OldSize)
	assert.Equal(t, snapshot.Summary{Moved: 1, Changed: 1}, report.Summary)
}

func TestServer_DiffRejectsEmptyID(t *testing.T) {
	t.Parallel()

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
		"old": []map[string]any{{"id": "a"}},
		"new": []map[string]any{{"id": ""}},
	})

	assert.True(t, result.IsError)
	assert.Contains(t, firstText(t, result), "new[0]")
}

func TestServer_DiffFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.yaml")
	newPath := filepath.Join(dir, "new.json.lz4")

	require.NoError(t, snapshot.Save(oldPath, []snapshot.Item{{ID: "a"}, {ID: "b"}}))
	require.NoError(t, snapshot.Save(newPath, []snapshot.Item{{ID: "b"}, {ID: "c"}}))

	session := connect(t, mcp.NewServer(mcp.ServerDeps{}))

	result := callTool(t, session, mcp.ToolNameDiffFiles, map[string]any{
		"old_path": oldPath,
		"new_path": newPath,
	})

	report := decodeReport(t, result)
	assert.Equal(t, snapshot.Summary{Inserted: 1, Removed: 1}, report.Summary)
}

func TestServer_DiffFilesErrors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	bigPath := filepath.Join(dir, "big.json")
	require.NoError(t, os.WriteFile(bigPath, []byte(`{"items": [{"id": "`+strings.Repeat("x", 200)+`"}]}`), 0o600))

	session := connect(t, mcp.NewServer(mcp.ServerDeps{MaxSnapshotBytes: 64}))

	tests := []struct {
		name    string
		oldPath string
		want    string
	}{
		{"relative", "old.json", "must be absolute"},
		{"missing", filepath.Join(dir, "absent.json"), "no such file"},
		{"too large", bigPath, "size limit"},
	}

	for _, tt := range tests {
		result := callTool(t, session, mcp.ToolNameDiffFiles, map[string]any{
			"old_path": tt.oldPath,
			"new_path": bigPath,
		})

		assert.True(t, result.IsError, tt.name)
		assert.Contains(t, firstText(t, result), tt.want, tt.name)
	}
}

func TestServer_MetricsAndTracing(t *testing.T) {
	t.Parallel()

	reader := sdkmetric.NewManualReader()
	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	tracerProvider := sdktrace.NewTracerProvider(sdktrace.WithSampler(sdktrace.AlwaysSample()))

	t.Cleanup(func() {
		_ = meterProvider.Shutdown(context.Background())
		_ = tracerProvider.Shutdown(context.Background())
	})

	red, err := observability.NewREDMetrics(meterProvider.Meter("test"))
	require.NoError(t, err)

	session := connect(t, mcp.NewServer(mcp.ServerDeps{
		Metrics: red,
		Tracer:  tracerProvider.Tracer("test"),
	}))

	result := callTool(t, session, mcp.ToolNameDiff, map[string]any{
		"old": []map[string]any{{"id": "a"}},
		"new": []map[string]any{{"id": "a"}, {"id": "b"}},
	})

	require.Len(t, result.Content, 2)

	traceText, ok := result.Content[1].(*mcpsdk.TextContent)
	require.True(t, ok)
	assert.True(t, strings.HasPrefix(traceText.Text, "trace_id="))

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	found := false

	for _, scope := range rm.ScopeMetrics {
		for _, m := range scope.Metrics {
			if m.Name != "listkit.requests.total" {
				continue
			}

			sum, isSum := m.Data.(metricdata.Sum[int64])
			require.True(t, isSum)
			require.Len(t, sum.DataPoints, 1)
			assert.Equal(t, int64(1), sum.DataPoints[0].Value)

			op, _ := sum.DataPoints[0].Attributes.Value("op")
			assert.Equal(t, "mcp."+mcp.ToolNameDiff, op.AsString())

			found = true
		}
	}

	assert.True(t, found)
}

func TestServer_DiffFilesCachesSnapshots(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")

	require.NoError(t, snapshot.Save(oldPath, []snapshot.Item{{ID: "a"}}))
	require.NoError(t, snapshot.Save(newPath, []snapshot.Item{{ID: "a"}, {ID: "b"}}))

	srv := mcp.NewServer(mcp.ServerDeps{})
	session := connect(t, srv)

	args := map[string]any{"old_path": oldPath, "new_path": newPath}

	decodeReport(t, callTool(t, session, mcp.ToolNameDiffFiles, args))
	decodeReport(t, callTool(t, session, mcp.ToolNameDiffFiles, args))

	stats := srv.CacheStats()
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, 2, stats.Entries)

	// A rewrite with a different size is a different cache key.
	require.NoError(t, snapshot.Save(newPath, []snapshot.Item{{ID: "a"}, {ID: "b"}, {ID: "c"}}))

	report := decodeReport(t, callTool(t, session, mcp.ToolNameDiffFiles, args))
	assert.Equal(t, 2, report.Summary.Inserted)
	assert.Equal(t, int64(3), srv.CacheStats().Misses)
}

func TestServer_SnapshotCacheDisabled(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "list.yaml")
	require.NoError(t, snapshot.Save(path, []snapshot.Item{{ID: "a"}}))

	srv := mcp.NewServer(mcp.ServerDeps{SnapshotCacheBytes: -1})
	session := connect(t, srv)

	report := decodeReport(t, callTool(t, session, mcp.ToolNameDiffFiles, map[string]any{
		"old_path": path,
		"new_path": path,
	}))

	assert.Equal(t, snapshot.Summary{}, report.Summary)
	assert.Zero(t, srv.CacheStats())
}

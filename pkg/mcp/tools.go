package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Sumatoshi-tech/listkit/pkg/snapshot"
)

// Tool name constants.
const (
	ToolNameDiff      = "listkit_diff"
	ToolNameDiffFiles = "listkit_diff_files"
)

// MaxInlineItems bounds each list passed inline to listkit_diff.
const MaxInlineItems = 100_000

// Sentinel errors for tool input validation.
var (
	// ErrTooManyItems indicates an inline list exceeds MaxInlineItems.
	ErrTooManyItems = errors.New("too many items")
	// ErrEmptyID indicates an inline item without an id.
	ErrEmptyID = errors.New("item id must not be empty")
	// ErrEmptyPath indicates a missing snapshot path.
	ErrEmptyPath = errors.New("snapshot path is required and must not be empty")
	// ErrPathNotAbsolute indicates a relative snapshot path.
	ErrPathNotAbsolute = errors.New("snapshot path must be absolute")
)

// DiffInput is the input schema for the listkit_diff tool.
type DiffInput struct {
	Old         []snapshot.Item `json:"old"                    jsonschema:"items of the old list in order"`
	New         []snapshot.Item `json:"new"                    jsonschema:"items of the new list in order"`
	DetectMoves bool            `json:"detect_moves,omitempty" jsonschema:"report moved items as moves instead of remove plus insert"`
}

// DiffFilesInput is the input schema for the listkit_diff_files tool.
type DiffFilesInput struct {
	OldPath     string `json:"old_path"               jsonschema:"absolute path of the old snapshot"`
	NewPath     string `json:"new_path"               jsonschema:"absolute path of the new snapshot"`
	DetectMoves bool   `json:"detect_moves,omitempty" jsonschema:"report moved items as moves instead of remove plus insert"`
}

// ToolOutput is a generic wrapper for tool results.
type ToolOutput struct {
	Data any `json:"data"`
}

func handleDiff(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input DiffInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	err := validateItems("old", input.Old)
	if err != nil {
		return errorResult(err)
	}

	err = validateItems("new", input.New)
	if err != nil {
		return errorResult(err)
	}

	report, err := snapshot.Compare(input.Old, input.New, input.DetectMoves)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(report)
}

func (s *Server) handleDiffFiles(
	_ context.Context,
	_ *mcpsdk.CallToolRequest,
	input DiffFilesInput,
) (*mcpsdk.CallToolResult, ToolOutput, error) {
	oldItems, err := s.loadSnapshot(input.OldPath)
	if err != nil {
		return errorResult(err)
	}

	newItems, err := s.loadSnapshot(input.NewPath)
	if err != nil {
		return errorResult(err)
	}

	report, err := snapshot.Compare(oldItems, newItems, input.DetectMoves)
	if err != nil {
		return errorResult(err)
	}

	return jsonResult(report)
}

func (s *Server) loadSnapshot(path string) ([]snapshot.Item, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}

	if !filepath.IsAbs(path) {
		return nil, fmt.Errorf("%w: %s", ErrPathNotAbsolute, path)
	}

	if s.cache == nil {
		return snapshot.Load(path, snapshot.WithMaxBytes(s.maxBytes))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat snapshot: %w", err)
	}

	key := snapshotKey{path: path, size: info.Size(), modTime: info.ModTime()}

	if items, ok := s.cache.Get(key); ok {
		return items, nil
	}

	items, err := snapshot.Load(path, snapshot.WithMaxBytes(s.maxBytes))
	if err != nil {
		return nil, err
	}

	s.cache.Put(key, items, info.Size())

	return items, nil
}

// snapshotKey identifies one version of a snapshot file.
type snapshotKey struct {
	path    string
	size    int64
	modTime time.Time
}

func validateItems(name string, items []snapshot.Item) error {
	if len(items) > MaxInlineItems {
		return fmt.Errorf("%w: %s has %d (max %d)", ErrTooManyItems, name, len(items), MaxInlineItems)
	}

	for idx, item := range items {
		if item.ID == "" {
			return fmt.Errorf("%w: %s[%d]", ErrEmptyID, name, idx)
		}
	}

	return nil
}

// errorResult builds a CallToolResult with isError set.
func errorResult(err error) (*mcpsdk.CallToolResult, ToolOutput, error) {
	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: err.Error()},
		},
		IsError: true,
	}, ToolOutput{}, nil
}

// jsonResult builds a CallToolResult with JSON-encoded content.
func jsonResult(value any) (*mcpsdk.CallToolResult, ToolOutput, error) {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return errorResult(fmt.Errorf("encode result: %w", err))
	}

	return &mcpsdk.CallToolResult{
		Content: []mcpsdk.Content{
			&mcpsdk.TextContent{Text: string(data)},
		},
	}, ToolOutput{Data: value}, nil
}

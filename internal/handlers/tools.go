package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"macesnap/pkg/security"
	"macesnap/pkg/snapshot"
)

// maxPatterns bounds the patterns accepted by one snapshot call
const maxPatterns = 100

// ToolHandlers provides MCP tool implementations for timestamp queries
type ToolHandlers struct {
	scope      *security.Scope
	snap       *snapshot.Snapshotter
	timeFormat snapshot.TimeFormat
	logger     *slog.Logger
}

// NewToolHandlers creates a new tool handlers instance
func NewToolHandlers(scope *security.Scope, snap *snapshot.Snapshotter, tf snapshot.TimeFormat, logger *slog.Logger) *ToolHandlers {
	return &ToolHandlers{
		scope:      scope,
		snap:       snap,
		timeFormat: tf,
		logger:     logger,
	}
}

// RegisterTools registers all timestamp tools with the MCP server
func (th *ToolHandlers) RegisterTools(srv *server.MCPServer) error {
	tools := []struct {
		tool    mcp.Tool
		handler server.ToolHandlerFunc
	}{
		{th.createGetFileTimestampsTool(), th.handleGetFileTimestamps},
		{th.createSnapshotPathsTool(), th.handleSnapshotPaths},
		{th.createCompareSnapshotTool(), th.handleCompareSnapshot},
		{th.createListAllowedDirectoriesTool(), th.handleListAllowedDirectories},
	}

	for _, tool := range tools {
		srv.AddTool(tool.tool, tool.handler)
		th.logger.Debug("Tool registered successfully", "tool", tool.tool.Name)
	}

	th.logger.Info("All timestamp tools registered successfully", "count", len(tools))
	return nil
}

// Tool creation methods

func (th *ToolHandlers) createGetFileTimestampsTool() mcp.Tool {
	return mcp.NewTool("get_file_timestamps",
		mcp.WithDescription("Read the four NTFS timestamps of a file or directory: last write (modified), "+
			"last access, creation, and change (entry modified) time, plus the raw attribute bits. "+
			"The handle is opened for attribute reads only so the query does not disturb the times "+
			"it reports. Only works within allowed directories."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Path to the file or directory")))
}

func (th *ToolHandlers) createSnapshotPathsTool() mcp.Tool {
	return mcp.NewTool("snapshot_paths",
		mcp.WithDescription("Record the timestamps of every path matching the given patterns. "+
			"Patterns support ** globs. Paths that cannot be read are listed with their error. "+
			"The returned snapshot can be passed to compare_snapshot later. Only works within allowed directories."),
		mcp.WithArray("patterns", mcp.Required(), mcp.Description("Paths or glob patterns to record"),
			mcp.Items(map[string]interface{}{"type": "string"})),
		mcp.WithString("format", mcp.Description("Snapshot encoding: json or yaml"), mcp.DefaultString("json")))
}

func (th *ToolHandlers) createCompareSnapshotTool() mcp.Tool {
	return mcp.NewTool("compare_snapshot",
		mcp.WithDescription("Re-read the paths of an earlier snapshot and report which timestamps "+
			"or attributes changed, which paths disappeared and which appeared. "+
			"Set unified to get a line diff instead of a structured change list."),
		mcp.WithString("snapshot", mcp.Required(), mcp.Description("Snapshot text returned by snapshot_paths")),
		mcp.WithString("format", mcp.Description("Snapshot encoding: json or yaml (detected when omitted)")),
		mcp.WithBoolean("unified", mcp.Description("Return a line diff"), mcp.DefaultBool(false)))
}

func (th *ToolHandlers) createListAllowedDirectoriesTool() mcp.Tool {
	return mcp.NewTool("list_allowed_directories",
		mcp.WithDescription("Returns the list of directories whose contents may be queried."))
}

// Tool handler methods

func (th *ToolHandlers) handleGetFileTimestamps(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errRes := getArguments(req)
	if errRes != nil {
		return errRes, nil
	}

	path, errRes := getRequiredString(args, "path")
	if errRes != nil {
		return errRes, nil
	}

	rec, err := th.snap.Query(path)
	if err != nil {
		th.logger.Warn("Timestamp query failed", "path", path, "error", err)
		return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	infoJSON, err := json.MarshalIndent(snapshot.FromRecord(rec), "", "  ")
	if err != nil {
		return mcp.NewToolResultError("Failed to format timestamps"), nil
	}

	return mcp.NewToolResultText(string(infoJSON)), nil
}

func (th *ToolHandlers) handleSnapshotPaths(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errRes := getArguments(req)
	if errRes != nil {
		return errRes, nil
	}

	patterns, errRes := getRequiredStringSlice(args, "patterns")
	if errRes != nil {
		return errRes, nil
	}

	format, err := snapshot.ParseFormat(getOptionalString(args, "format", "json"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	doc, err := th.snap.Take(ctx, patterns)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	var buf bytes.Buffer
	if err := snapshot.Encode(&buf, doc, format); err != nil {
		return mcp.NewToolResultError("Failed to encode snapshot"), nil
	}

	return mcp.NewToolResultText(buf.String()), nil
}

func (th *ToolHandlers) handleCompareSnapshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, errRes := getArguments(req)
	if errRes != nil {
		return errRes, nil
	}

	text, errRes := getRequiredString(args, "snapshot")
	if errRes != nil {
		return errRes, nil
	}

	format := detectFormat(text)
	if name := getOptionalString(args, "format", ""); name != "" {
		f, err := snapshot.ParseFormat(name)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
		}
		format = f
	}

	before, err := snapshot.Decode(strings.NewReader(text), format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	after, err := th.snap.Take(ctx, before.Targets())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Error: %s", err.Error())), nil
	}

	if getOptionalBool(args, "unified", false) {
		diff := snapshot.RenderDiff(before, after, th.timeFormat)
		if diff == "" {
			return mcp.NewToolResultText("No changes"), nil
		}
		return mcp.NewToolResultText(diff), nil
	}

	changes := snapshot.Compare(before, after)
	if len(changes) == 0 {
		return mcp.NewToolResultText("No changes"), nil
	}

	changesJSON, err := json.MarshalIndent(changes, "", "  ")
	if err != nil {
		return mcp.NewToolResultError("Failed to format changes"), nil
	}
	return mcp.NewToolResultText(string(changesJSON)), nil
}

func (th *ToolHandlers) handleListAllowedDirectories(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dirs := th.scope.AllowedDirectories()
	result := fmt.Sprintf("Allowed directories:\n%s", strings.Join(dirs, "\n"))
	return mcp.NewToolResultText(result), nil
}

// detectFormat guesses JSON for text starting with an object
func detectFormat(text string) snapshot.Format {
	if strings.HasPrefix(strings.TrimSpace(text), "{") {
		return snapshot.FormatJSON
	}
	return snapshot.FormatYAML
}

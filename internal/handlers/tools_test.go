package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"macesnap/pkg/ntfileinfo"
	"macesnap/pkg/security"
	"macesnap/pkg/snapshot"
)

// statQuery stands in for the NT query so handlers can be tested anywhere.
func statQuery(path string) (*ntfileinfo.Record, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &ntfileinfo.OsHandleError{Path: path, Code: 2}
	}
	tk := ntfileinfo.TimeToTicks(info.ModTime())
	attrs := ntfileinfo.AttributeArchive
	if info.IsDir() {
		attrs = ntfileinfo.AttributeDirectory
	}
	return ntfileinfo.BasicInformation{
		CreationTime:   tk,
		LastAccessTime: tk,
		LastWriteTime:  tk,
		ChangeTime:     tk,
		FileAttributes: uint32(attrs),
	}.Record(path), nil
}

// helper to create handlers with a temporary directory
func newTestHandlers(t *testing.T) (*ToolHandlers, string) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	scope, err := security.NewScope([]string{t.TempDir()}, []string{"**/*.secret"}, logger)
	if err != nil {
		t.Fatalf("scope: %v", err)
	}
	snap := snapshot.New(logger, snapshot.WithScope(scope), snapshot.WithQuerier(statQuery))
	tf := snapshot.TimeFormat{Layout: time.RFC3339Nano, Location: time.UTC}
	return NewToolHandlers(scope, snap, tf, logger), scope.AllowedDirectories()[0]
}

// helper to build a call request
func newRequest(args map[string]interface{}) mcp.CallToolRequest {
	var req mcp.CallToolRequest
	req.Params.Name = "test_tool"
	req.Params.Arguments = args
	return req
}

func resultText(t *testing.T, res *mcp.CallToolResult) string {
	t.Helper()
	if res == nil || len(res.Content) == 0 {
		t.Fatalf("empty result")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("unexpected content type %T", res.Content[0])
	}
	return text.Text
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestHandleGetFileTimestamps(t *testing.T) {
	th, base := newTestHandlers(t)
	ctx := context.Background()
	p := filepath.Join(base, "file.txt")
	writeFile(t, p, "hello")

	res, err := th.handleGetFileTimestamps(ctx, newRequest(map[string]interface{}{"path": p}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if res.IsError {
		t.Fatalf("unexpected tool error: %s", resultText(t, res))
	}

	var entry snapshot.Entry
	if err := json.Unmarshal([]byte(resultText(t, res)), &entry); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if entry.Path != p || entry.Modified.IsZero() {
		t.Fatalf("unexpected entry: %+v", entry)
	}
	if len(entry.AttributeNames) != 1 || entry.AttributeNames[0] != "ARCHIVE" {
		t.Fatalf("unexpected attributes: %v", entry.AttributeNames)
	}
}

func TestHandleGetFileTimestampsErrors(t *testing.T) {
	th, base := newTestHandlers(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(base, "key.secret"), "x")

	cases := map[string]map[string]interface{}{
		"missing param": {},
		"outside scope": {"path": filepath.Join(t.TempDir(), "x.txt")},
		"denied":        {"path": filepath.Join(base, "key.secret")},
		"not found":     {"path": filepath.Join(base, "nope.txt")},
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			res, err := th.handleGetFileTimestamps(ctx, newRequest(args))
			if err != nil {
				t.Fatalf("handler returned protocol error: %v", err)
			}
			if !res.IsError {
				t.Fatalf("expected tool error, got %s", resultText(t, res))
			}
		})
	}
}

func TestHandleInvalidArguments(t *testing.T) {
	th, _ := newTestHandlers(t)
	var req mcp.CallToolRequest
	res, err := th.handleGetFileTimestamps(context.Background(), req)
	if err != nil || !res.IsError {
		t.Fatalf("expected tool error for missing arguments")
	}
}

func TestHandleSnapshotAndCompare(t *testing.T) {
	th, base := newTestHandlers(t)
	ctx := context.Background()
	writeFile(t, filepath.Join(base, "a.log"), "a")
	writeFile(t, filepath.Join(base, "b.log"), "b")

	pattern := filepath.Join(base, "*.log")
	res, err := th.handleSnapshotPaths(ctx, newRequest(map[string]interface{}{
		"patterns": []interface{}{pattern},
		"format":   "yaml",
	}))
	if err != nil || res.IsError {
		t.Fatalf("snapshot failed: %v", err)
	}
	snapText := resultText(t, res)
	if !strings.Contains(snapText, "a.log") || !strings.Contains(snapText, "b.log") {
		t.Fatalf("snapshot missing entries: %s", snapText)
	}

	res, err = th.handleCompareSnapshot(ctx, newRequest(map[string]interface{}{"snapshot": snapText}))
	if err != nil || res.IsError {
		t.Fatalf("compare failed: %v", err)
	}
	if got := resultText(t, res); got != "No changes" {
		t.Fatalf("expected no changes, got %s", got)
	}

	writeFile(t, filepath.Join(base, "c.log"), "c")
	if err := os.Remove(filepath.Join(base, "a.log")); err != nil {
		t.Fatalf("remove: %v", err)
	}

	res, err = th.handleCompareSnapshot(ctx, newRequest(map[string]interface{}{"snapshot": snapText}))
	if err != nil || res.IsError {
		t.Fatalf("compare failed: %v", err)
	}
	var changes []snapshot.Change
	if err := json.Unmarshal([]byte(resultText(t, res)), &changes); err != nil {
		t.Fatalf("unmarshal changes: %v", err)
	}
	kinds := map[string]snapshot.ChangeKind{}
	for _, c := range changes {
		kinds[filepath.Base(c.Path)] = c.Kind
	}
	if kinds["a.log"] != snapshot.Removed || kinds["c.log"] != snapshot.Added {
		t.Fatalf("unexpected changes: %+v", changes)
	}

	res, err = th.handleCompareSnapshot(ctx, newRequest(map[string]interface{}{"snapshot": snapText, "unified": true}))
	if err != nil || res.IsError {
		t.Fatalf("unified compare failed: %v", err)
	}
	if !strings.Contains(resultText(t, res), "+"+filepath.Join(base, "c.log")) {
		t.Fatalf("expected added line in diff: %s", resultText(t, res))
	}
}

func TestHandleSnapshotRejections(t *testing.T) {
	th, _ := newTestHandlers(t)
	ctx := context.Background()

	res, _ := th.handleSnapshotPaths(ctx, newRequest(map[string]interface{}{"patterns": []interface{}{}}))
	if !res.IsError {
		t.Fatalf("expected error for empty patterns")
	}
	res, _ = th.handleSnapshotPaths(ctx, newRequest(map[string]interface{}{
		"patterns": []interface{}{filepath.Join(t.TempDir(), "*")},
	}))
	if !res.IsError {
		t.Fatalf("expected error for glob outside scope")
	}
	res, _ = th.handleCompareSnapshot(ctx, newRequest(map[string]interface{}{"snapshot": "not: [valid"}))
	if !res.IsError {
		t.Fatalf("expected error for invalid snapshot")
	}
}

func TestHandleListAllowedDirectories(t *testing.T) {
	th, base := newTestHandlers(t)
	res, err := th.handleListAllowedDirectories(context.Background(), newRequest(map[string]interface{}{}))
	if err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if !strings.Contains(resultText(t, res), base) {
		t.Fatalf("expected %s in result", base)
	}
}

func TestDetectFormat(t *testing.T) {
	if detectFormat("  {\"id\":\"x\"}") != snapshot.FormatJSON {
		t.Fatalf("expected json")
	}
	if detectFormat("id: x\n") != snapshot.FormatYAML {
		t.Fatalf("expected yaml")
	}
}

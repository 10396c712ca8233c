package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"datagate/internal/source"
)

// ─────────────────────────────────────────────────────────────
// In-package handler tests
// Failures must cross the protocol boundary as isError tool
// results, never as raw handler errors.
// ─────────────────────────────────────────────────────────────

func callRequest(name string, args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args
	return req
}

func TestToolHandler_FailureBecomesIsErrorResult(t *testing.T) {
	s := New(Deps{Dispatcher: NewDispatcher(source.NewRegistry(), nil)})

	res, err := s.toolHandler("query_sql")(context.Background(), callRequest("query_sql", map[string]any{
		"sourceName": "ghost",
		"query":      "SELECT 1",
	}))
	if err != nil {
		t.Fatalf("handler must not surface raw errors: %v", err)
	}
	if res == nil || !res.IsError {
		t.Fatal("expected an isError result for an unknown source")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	if !strings.Contains(tc.Text, "ghost") {
		t.Errorf("error message should name the source: %q", tc.Text)
	}
}

func TestToolHandler_SuccessIsJSONText(t *testing.T) {
	s := New(Deps{Dispatcher: NewDispatcher(source.NewRegistry(), nil)})

	res, err := s.toolHandler("list_data_sources")(context.Background(), callRequest("list_data_sources", nil))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if res.IsError {
		t.Fatal("unexpected isError result")
	}
	tc, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("expected text content, got %T", res.Content[0])
	}
	if !strings.Contains(tc.Text, `"count"`) || !strings.Contains(tc.Text, `"dataSources"`) {
		t.Errorf("envelope not rendered as JSON: %q", tc.Text)
	}
}

package mcpserver_test

import (
	"testing"

	mcpserver "datagate/internal/mcp"
	"datagate/internal/source"
)

// ─────────────────────────────────────────────────────────────
// Server wiring tests
// ─────────────────────────────────────────────────────────────

func TestServer_New(t *testing.T) {
	reg := source.NewRegistry()
	s := mcpserver.New(mcpserver.Deps{Dispatcher: mcpserver.NewDispatcher(reg, nil)})
	if s == nil {
		t.Fatal("expected non-nil server")
	}
	// Compile-time checks: both transports must exist
	_ = s.ServeStdio
	_ = s.ServeSSE
}

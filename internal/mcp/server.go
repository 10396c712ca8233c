package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog/log"
)

// Server exposes the gateway's dispatcher over the MCP protocol: one
// tool per gateway operation, served over stdio or SSE.
type Server struct {
	mcp        *server.MCPServer
	dispatcher *Dispatcher
}

// Deps holds what the entrypoint injects into the MCP layer.
type Deps struct {
	Dispatcher *Dispatcher
}

// New creates the MCP server and registers the tool surface.
func New(deps Deps) *Server {
	s := &Server{dispatcher: deps.Dispatcher}

	s.mcp = server.NewMCPServer(
		"datagate",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	s.registerSourceTools()
	s.registerQueryTools()
	s.registerTransformTools()

	return s
}

// ServeStdio runs the server on stdin/stdout until the client hangs up.
func (s *Server) ServeStdio() error {
	log.Info().Msg("starting stdio transport")
	return server.ServeStdio(s.mcp)
}

// ServeSSE runs the HTTP/SSE transport on addr and shuts down when ctx
// is cancelled.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	log.Info().Str("addr", addr).Msg("starting sse transport")
	sse := server.NewSSEServer(s.mcp, server.WithBaseURL(baseURL))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("sse shutdown")
		}
	}()

	if err := sse.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("sse transport: %w", err)
	}
	return nil
}

// ── Tool registration ───────────────────────────────────────

func (s *Server) registerSourceTools() {
	s.mcp.AddTool(mcp.NewTool("register_data_source",
		mcp.WithDescription("Register a named data source behind the gateway. Kinds: sqlite (file database), api (remote HTTP endpoint), csv (delimited text file), json (structured document file)."),
		mcp.WithString("name", mcp.Description("Unique name for the data source"), mcp.Required()),
		mcp.WithString("kind", mcp.Description("Data source kind"), mcp.Required(), mcp.Enum("sqlite", "api", "csv", "json")),
		mcp.WithObject("config", mcp.Description(`Kind-specific configuration: {"path": "/abs/file"} for sqlite/csv/json, {"url": "https://host/base", "headers": {...}} for api. Also accepted as a JSON-encoded string.`), mcp.Required()),
	), s.toolHandler("register_data_source"))

	s.mcp.AddTool(mcp.NewTool("list_data_sources",
		mcp.WithDescription("List every registered data source with its kind and configuration"),
	), s.toolHandler("list_data_sources"))
}

func (s *Server) registerQueryTools() {
	s.mcp.AddTool(mcp.NewTool("query_sql",
		mcp.WithDescription("Execute ad-hoc SQL against a registered sqlite data source. The query text runs verbatim; each call opens and closes its own connection."),
		mcp.WithString("sourceName", mcp.Description("Name of a sqlite data source"), mcp.Required()),
		mcp.WithString("query", mcp.Description("SQL text to execute"), mcp.Required()),
	), s.toolHandler("query_sql"))

	s.mcp.AddTool(mcp.NewTool("fetch_api_data",
		mcp.WithDescription("Call a registered api data source. The target is the configured base url plus endpoint, joined as-is; the configured headers are applied to every call."),
		mcp.WithString("sourceName", mcp.Description("Name of an api data source"), mcp.Required()),
		mcp.WithString("endpoint", mcp.Description("Endpoint appended to the base url"), mcp.Required()),
		mcp.WithString("method", mcp.Description("HTTP method (default GET)"), mcp.Enum("GET", "POST", "PUT", "DELETE")),
		mcp.WithObject("params", mcp.Description("Query parameters appended to the target url")),
		mcp.WithObject("body", mcp.Description("Request body, sent for POST and PUT only")),
	), s.toolHandler("fetch_api_data"))

	s.mcp.AddTool(mcp.NewTool("read_csv",
		mcp.WithDescription("Stream rows from a registered csv data source with an optional equality filter and row limit. The file is read row by row and reading stops as soon as the limit is satisfied."),
		mcp.WithString("sourceName", mcp.Description("Name of a csv data source"), mcp.Required()),
		mcp.WithObject("filter", mcp.Description("Column → required value; a row is kept only if it matches every entry")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of rows to return")),
	), s.toolHandler("read_csv"))

	s.mcp.AddTool(mcp.NewTool("read_json",
		mcp.WithDescription("Load a registered json document and optionally extract a subtree. Path grammar: dot-separated fields, field[index], and * for all values of an object; a miss yields null, never an error."),
		mcp.WithString("sourceName", mcp.Description("Name of a json data source"), mcp.Required()),
		mcp.WithString("jsonPath", mcp.Description(`Path expression, e.g. "$.store.items[0].sku"`)),
	), s.toolHandler("read_json"))
}

func (s *Server) registerTransformTools() {
	s.mcp.AddTool(mcp.NewTool("transform_data",
		mcp.WithDescription("Declare an aggregation over a registered data source. The operation is validated and acknowledged with a description of what it would compute; it is not executed."),
		mcp.WithString("sourceName", mcp.Description("Name of any registered data source"), mcp.Required()),
		mcp.WithString("operation", mcp.Description("Aggregation to declare"), mcp.Required(), mcp.Enum("count", "sum", "average", "group_by")),
		mcp.WithString("field", mcp.Description("Field the aggregation applies to")),
	), s.toolHandler("transform_data"))
}

// toolHandler adapts a dispatched tool to the MCP handler signature.
// Failures become isError envelopes; nothing is thrown across the
// protocol boundary.
func (s *Server) toolHandler(name string) func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		out, err := s.dispatcher.Invoke(ctx, name, req.GetArguments())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(out)
	}
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}

package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"datagate/internal/connector"
	"datagate/internal/metrics"
	"datagate/internal/source"
	"datagate/internal/transform"
)

// ── Dispatcher ──────────────────────────────────────────────
// Single entry point for every tool invocation: resolves the tool
// name, runs the matching handler, and shapes the outcome into that
// tool's envelope. No lower-level fault escapes unformatted; callers
// get either an envelope map or an error whose text becomes the
// isError envelope message.

// UnknownToolError rejects a dispatch to a name no tool is registered
// under.
type UnknownToolError struct {
	Tool string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("unknown tool %q", e.Tool)
}

type handlerFunc func(ctx context.Context, args map[string]any) (map[string]any, error)

type Dispatcher struct {
	registry *source.Registry
	metrics  *metrics.Recorder
	handlers map[string]handlerFunc
}

// NewDispatcher wires the tool handlers over a registry. rec may be
// nil when no metrics are collected.
func NewDispatcher(reg *source.Registry, rec *metrics.Recorder) *Dispatcher {
	d := &Dispatcher{registry: reg, metrics: rec}
	d.handlers = map[string]handlerFunc{
		"register_data_source": d.handleRegister,
		"list_data_sources":    d.handleList,
		"query_sql":            d.handleQuerySQL,
		"fetch_api_data":       d.handleFetchAPI,
		"read_csv":             d.handleReadCSV,
		"read_json":            d.handleReadJSON,
		"transform_data":       d.handleTransform,
	}
	return d
}

// Invoke runs the named tool against args. Every invocation carries an
// ID through the log and metrics trail.
func (d *Dispatcher) Invoke(ctx context.Context, tool string, args map[string]any) (map[string]any, error) {
	h, ok := d.handlers[tool]
	if !ok {
		return nil, &UnknownToolError{Tool: tool}
	}

	id := uuid.NewString()
	start := time.Now()
	out, err := h(ctx, args)
	elapsed := time.Since(start)
	d.metrics.Observe(tool, err, elapsed)

	if err != nil {
		log.Warn().Str("invocation", id).Str("tool", tool).Dur("elapsed", elapsed).Err(err).Msg("tool failed")
		return nil, err
	}
	log.Info().Str("invocation", id).Str("tool", tool).Dur("elapsed", elapsed).Msg("tool completed")
	return out, nil
}

// ── Tool handlers ───────────────────────────────────────────

func (d *Dispatcher) handleRegister(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "name")
	if name == "" {
		return nil, errMissing("name")
	}
	kind := stringArg(args, "kind")
	if kind == "" {
		return nil, errMissing("kind")
	}
	cfg, err := objectArg(args, "config")
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, errMissing("config")
	}

	desc, err := d.registry.Register(name, source.Kind(kind), source.Config(cfg))
	if err != nil {
		return nil, err
	}
	log.Info().Str("name", desc.Name).Str("kind", string(desc.Kind)).Msg("data source registered")

	return map[string]any{
		"success":    true,
		"message":    fmt.Sprintf("data source %q registered", desc.Name),
		"dataSource": desc,
	}, nil
}

func (d *Dispatcher) handleList(ctx context.Context, args map[string]any) (map[string]any, error) {
	list := d.registry.List()
	return map[string]any{
		"count":       len(list),
		"dataSources": list,
	}, nil
}

func (d *Dispatcher) handleQuerySQL(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "sourceName")
	if name == "" {
		return nil, errMissing("sourceName")
	}
	query := stringArg(args, "query")
	if query == "" {
		return nil, errMissing("query")
	}

	desc, err := d.registry.ResolveKind(name, source.KindSQLite)
	if err != nil {
		return nil, err
	}
	rows, err := connector.Query(ctx, desc, query)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":  true,
		"rowCount": len(rows),
		"data":     rows,
	}, nil
}

func (d *Dispatcher) handleFetchAPI(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "sourceName")
	if name == "" {
		return nil, errMissing("sourceName")
	}
	endpoint := stringArg(args, "endpoint")
	if endpoint == "" {
		return nil, errMissing("endpoint")
	}
	params, err := objectArg(args, "params")
	if err != nil {
		return nil, err
	}

	desc, err := d.registry.ResolveKind(name, source.KindAPI)
	if err != nil {
		return nil, err
	}
	resp, err := connector.Call(ctx, desc, endpoint, stringArg(args, "method"), params, args["body"])
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"status":  resp.Status,
		"headers": resp.Headers,
		"data":    resp.Data,
	}, nil
}

func (d *Dispatcher) handleReadCSV(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "sourceName")
	if name == "" {
		return nil, errMissing("sourceName")
	}
	filter, err := objectArg(args, "filter")
	if err != nil {
		return nil, err
	}

	desc, err := d.registry.ResolveKind(name, source.KindCSV)
	if err != nil {
		return nil, err
	}
	rows, err := connector.ReadCSV(ctx, desc, filter, intArg(args, "limit"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":  true,
		"rowCount": len(rows),
		"data":     rows,
	}, nil
}

func (d *Dispatcher) handleReadJSON(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "sourceName")
	if name == "" {
		return nil, errMissing("sourceName")
	}

	desc, err := d.registry.ResolveKind(name, source.KindJSON)
	if err != nil {
		return nil, err
	}
	data, err := connector.ReadDocument(desc, stringArg(args, "jsonPath"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success": true,
		"data":    data,
	}, nil
}

func (d *Dispatcher) handleTransform(ctx context.Context, args map[string]any) (map[string]any, error) {
	name := stringArg(args, "sourceName")
	if name == "" {
		return nil, errMissing("sourceName")
	}
	op := stringArg(args, "operation")
	if op == "" {
		return nil, errMissing("operation")
	}

	res, err := transform.Describe(d.registry, name, transform.Operation(op), stringArg(args, "field"))
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"success":   true,
		"message":   fmt.Sprintf("transform %s acknowledged for data source %q", res.Operation, res.Source),
		"operation": res.Operation,
		"field":     res.Field,
		"note":      res.Note,
	}, nil
}

// ── Argument helpers ────────────────────────────────────────

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return 0
}

// objectArg returns a map argument, accepting both a JSON object and
// its string encoding, since some MCP clients can only send strings.
func objectArg(args map[string]any, key string) (map[string]any, error) {
	switch v := args[key].(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return v, nil
	case string:
		if v == "" {
			return nil, nil
		}
		var m map[string]any
		if err := json.Unmarshal([]byte(v), &m); err != nil {
			return nil, fmt.Errorf("argument %q is not a valid JSON object: %w", key, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("argument %q must be an object", key)
	}
}

func errMissing(key string) error {
	return fmt.Errorf("missing required argument %q", key)
}

package connector

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"datagate/internal/source"
)

// ── Structured-document connector ───────────────────────────
// Loads a JSON document whole (documents are assumed to fit in memory,
// there is no streaming mode here) and optionally extracts a subtree
// with a restricted path expression.
//
// Grammar: dot-separated segments, each one of
//   field        plain object field
//   field[3]     object field, then array element
//   *            all values of an object, or an array passed through
// An optional leading "$." or "$" is accepted and stripped. A missing
// field, an out-of-range index, or a segment applied to the wrong
// shape is a silent miss: the result degrades to null, never an error.

// ReadDocument parses the descriptor's file and evaluates pathExpr
// against it. An empty pathExpr returns the whole document.
func ReadDocument(d source.Descriptor, pathExpr string) (any, error) {
	raw, err := os.ReadFile(d.Path())
	if err != nil {
		return nil, wrap("read json", fmt.Errorf("read file: %w", err))
	}

	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, wrap("read json", fmt.Errorf("parse json: %w", err))
	}

	if pathExpr == "" {
		return doc, nil
	}
	return EvalPath(doc, pathExpr), nil
}

// EvalPath walks expr left to right against doc. Every failure mode is
// a silent miss by contract, so the only possible outcomes are a
// subtree or nil.
func EvalPath(doc any, expr string) any {
	expr = strings.TrimPrefix(expr, "$")
	expr = strings.TrimPrefix(expr, ".")
	if expr == "" {
		return doc
	}

	current := doc
	for _, seg := range strings.Split(expr, ".") {
		if current == nil {
			return nil
		}
		if seg == "*" {
			current = expandWildcard(current)
			continue
		}

		name, idx, hasIdx, ok := parseSegment(seg)
		if !ok {
			return nil
		}
		m, isMap := current.(map[string]any)
		if !isMap {
			return nil
		}
		v, exists := m[name]
		if !exists {
			return nil
		}
		if hasIdx {
			arr, isArr := v.([]any)
			if !isArr || idx >= len(arr) {
				return nil
			}
			v = arr[idx]
		}
		current = v
	}
	return current
}

// parseSegment splits "name" or "name[idx]" forms; anything else is
// malformed and treated as a miss by the caller.
func parseSegment(seg string) (name string, idx int, hasIdx bool, ok bool) {
	open := strings.IndexByte(seg, '[')
	if open == -1 {
		if seg == "" {
			return "", 0, false, false
		}
		return seg, 0, false, true
	}
	if open == 0 || !strings.HasSuffix(seg, "]") {
		return "", 0, false, false
	}
	n, err := strconv.Atoi(seg[open+1 : len(seg)-1])
	if err != nil || n < 0 {
		return "", 0, false, false
	}
	return seg[:open], n, true, true
}

// expandWildcard turns an object into the sequence of its values (in
// sorted key order, so the expansion is deterministic) and passes an
// array through unchanged. Scalars have nothing to expand.
func expandWildcard(v any) any {
	switch t := v.(type) {
	case []any:
		return t
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]any, 0, len(t))
		for _, k := range keys {
			vals = append(vals, t[k])
		}
		return vals
	}
	return nil
}

package connector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"datagate/internal/source"
)

// ── Remote API connector ────────────────────────────────────
// Issues one HTTP call against a descriptor's base endpoint. The
// target address is config url + endpoint concatenated as-is: fixing
// duplicate or missing separators is the caller's responsibility.

const callTimeout = 30 * time.Second

// APIResponse carries the remote status, the response headers, and the
// decoded body. Bodies that parse as JSON come back structured; any
// other payload comes back as raw text.
type APIResponse struct {
	Status  int
	Headers map[string]string
	Data    any
}

// Call performs method against url+endpoint. params are appended as
// query parameters; body is attached only for POST and PUT, any body
// supplied for other methods is ignored. The descriptor's configured
// headers are the base header set; there is no per-call header merge.
func Call(ctx context.Context, d source.Descriptor, endpoint, method string, params map[string]any, body any) (*APIResponse, error) {
	target := d.URL() + endpoint
	method = strings.ToUpper(strings.TrimSpace(method))
	if method == "" {
		method = http.MethodGet
	}

	var bodyReader io.Reader
	if body != nil && (method == http.MethodPost || method == http.MethodPut) {
		switch b := body.(type) {
		case string:
			bodyReader = strings.NewReader(b)
		default:
			buf, err := json.Marshal(b)
			if err != nil {
				return nil, wrap("call", fmt.Errorf("encode body: %w", err))
			}
			bodyReader = bytes.NewReader(buf)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, wrap("call", fmt.Errorf("build request: %w", err))
	}
	for k, v := range d.Headers() {
		req.Header.Set(k, v)
	}
	if bodyReader != nil && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if len(params) > 0 {
		q := req.URL.Query()
		for k, v := range params {
			q.Set(k, fmt.Sprint(v))
		}
		req.URL.RawQuery = q.Encode()
	}

	client := &http.Client{Timeout: callTimeout}
	resp, err := client.Do(req)
	if err != nil {
		return nil, wrap("call", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, wrap("call", fmt.Errorf("read body: %w", err))
	}

	// Non-2xx is a failure; the remote-reported status text leads the
	// message, ahead of whatever the body says.
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(resp.Status)
		if snippet := strings.TrimSpace(string(raw)); snippet != "" {
			if len(snippet) > 512 {
				snippet = snippet[:512]
			}
			msg += ": " + snippet
		}
		return nil, wrap("call", errors.New(msg))
	}

	var data any
	if err := json.Unmarshal(raw, &data); err != nil {
		data = string(raw)
	}

	headers := make(map[string]string, len(resp.Header))
	for k := range resp.Header {
		headers[k] = resp.Header.Get(k)
	}

	return &APIResponse{Status: resp.StatusCode, Headers: headers, Data: data}, nil
}

package connector_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"datagate/internal/connector"
	"datagate/internal/source"
)

// ─────────────────────────────────────────────────────────────
// Remote API connector tests
// All calls run against httptest backends.
// ─────────────────────────────────────────────────────────────

func apiDescriptor(t *testing.T, url string, headers map[string]any) source.Descriptor {
	t.Helper()
	reg := source.NewRegistry()
	cfg := source.Config{"url": url}
	if headers != nil {
		cfg["headers"] = headers
	}
	d, err := reg.Register("remote", source.KindAPI, cfg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return d
}

func TestCall_GetDecodesJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"items":[1,2,3],"ok":true}`)
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, nil)

	resp, err := connector.Call(context.Background(), d, "/list", "", nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.Status)
	}
	data, ok := resp.Data.(map[string]any)
	if !ok || data["ok"] != true {
		t.Errorf("unexpected data: %v", resp.Data)
	}
	if resp.Headers["Content-Type"] != "application/json" {
		t.Errorf("response headers not captured: %v", resp.Headers)
	}
}

func TestCall_BaseHeadersAndParams(t *testing.T) {
	var gotAuth, gotPage string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPage = r.URL.Query().Get("page")
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, map[string]any{"Authorization": "Bearer tok"})

	_, err := connector.Call(context.Background(), d, "/things", "GET",
		map[string]any{"page": 2}, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("base header not applied, got %q", gotAuth)
	}
	if gotPage != "2" {
		t.Errorf("param not applied, got %q", gotPage)
	}
}

func TestCall_ConcatenatesWithoutNormalizing(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	// Trailing slash in the base plus leading slash in the endpoint
	// reaches the server as a double slash; nothing fixes it up.
	d := apiDescriptor(t, srv.URL+"/", nil)
	if _, err := connector.Call(context.Background(), d, "/things", "GET", nil, nil); err != nil {
		t.Fatalf("call: %v", err)
	}
	if gotPath != "//things" {
		t.Errorf("expected unnormalized path //things, got %q", gotPath)
	}
}

func TestCall_BodyOnlyForPostAndPut(t *testing.T) {
	var method, body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		method, body = r.Method, string(raw)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, nil)

	payload := map[string]any{"name": "ada"}

	if _, err := connector.Call(context.Background(), d, "/x", "POST", nil, payload); err != nil {
		t.Fatalf("post: %v", err)
	}
	if method != "POST" || !strings.Contains(body, `"name":"ada"`) {
		t.Errorf("post body not attached: %q", body)
	}

	if _, err := connector.Call(context.Background(), d, "/x", "GET", nil, payload); err != nil {
		t.Fatalf("get: %v", err)
	}
	if body != "" {
		t.Errorf("get must ignore body, got %q", body)
	}

	if _, err := connector.Call(context.Background(), d, "/x", "DELETE", nil, payload); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if body != "" {
		t.Errorf("delete must ignore body, got %q", body)
	}
}

func TestCall_StringBodySentVerbatim(t *testing.T) {
	var body string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		body = string(raw)
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, nil)

	if _, err := connector.Call(context.Background(), d, "/x", "PUT", nil, `{"raw":1}`); err != nil {
		t.Fatalf("put: %v", err)
	}
	if body != `{"raw":1}` {
		t.Errorf("string body not passed through, got %q", body)
	}
}

func TestCall_NonJSONBodyReturnsText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "plain text here")
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, nil)

	resp, err := connector.Call(context.Background(), d, "/", "GET", nil, nil)
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if resp.Data != "plain text here" {
		t.Errorf("expected raw text, got %v", resp.Data)
	}
}

func TestCall_Non2xxPrefersStatusText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "gone fishing")
	}))
	defer srv.Close()
	d := apiDescriptor(t, srv.URL, nil)

	_, err := connector.Call(context.Background(), d, "/nope", "GET", nil, nil)
	var cerr *connector.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected connector error, got %v", err)
	}
	msg := cerr.Error()
	statusAt := strings.Index(msg, "404 Not Found")
	bodyAt := strings.Index(msg, "gone fishing")
	if statusAt == -1 {
		t.Fatalf("status text missing from message: %q", msg)
	}
	if bodyAt != -1 && bodyAt < statusAt {
		t.Errorf("status text must lead the message: %q", msg)
	}
}

func TestCall_UnreachableHost(t *testing.T) {
	// Port 1 is essentially never listening.
	d := apiDescriptor(t, "http://127.0.0.1:1", nil)

	_, err := connector.Call(context.Background(), d, "/api", "GET", nil, nil)
	var cerr *connector.Error
	if !errors.As(err, &cerr) {
		t.Fatalf("expected connector error, got %v", err)
	}
}

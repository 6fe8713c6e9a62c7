package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type recordedRequest struct {
	Method string
	Path   string
	Body   string
	Auth   string
}

type testServer struct {
	server   *httptest.Server
	requests []recordedRequest
}

func newTestServer(t *testing.T, responses map[string]string) *testServer {
	t.Helper()
	ts := &testServer{}

	ts.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body bytes.Buffer
		body.ReadFrom(r.Body)

		ts.requests = append(ts.requests, recordedRequest{
			Method: r.Method,
			Path:   r.URL.RequestURI(),
			Body:   body.String(),
			Auth:   r.Header.Get("Authorization"),
		})

		key := r.Method + " " + r.URL.Path
		if resp, ok := responses[key]; ok {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(resp))
			return
		}

		w.WriteHeader(404)
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found_error"}}`))
	}))

	t.Cleanup(ts.server.Close)
	return ts
}

func (ts *testServer) client() *apiClient {
	return &apiClient{
		baseURL:    ts.server.URL,
		token:      "test-token",
		httpClient: ts.server.Client(),
	}
}

func TestUpload_SendsMultipart(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /files": `{"id":"doc-123","filename":"notes.txt","analysis_status":"pending"}`,
	})

	path := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(path, []byte("obsah dokumentu"), 0o600); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}

	resp, err := ts.client().upload("/files", path, "7")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc struct {
		ID string `json:"id"`
	}
	if err := decodeJSON(resp, &doc); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if doc.ID != "doc-123" {
		t.Errorf("id = %q", doc.ID)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q", r.Auth)
	}
	if !strings.Contains(r.Body, "obsah dokumentu") {
		t.Error("body missing file content")
	}
	if !strings.Contains(r.Body, `name="school_id"`) || !strings.Contains(r.Body, "7") {
		t.Error("body missing school_id field")
	}
}

func TestAsk_PostsQuestion(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /chat": `{"answer":"Dvanáct žáků.","sources":[]}`,
	})

	resp, err := ts.client().post("/chat", map[string]string{"question": "Kolik žáků?"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var body struct {
		Answer string `json:"answer"`
	}
	if err := decodeJSON(resp, &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Answer != "Dvanáct žáků." {
		t.Errorf("answer = %q", body.Answer)
	}

	r := ts.requests[0]
	if !strings.Contains(r.Body, "Kolik žáků?") {
		t.Errorf("body = %q", r.Body)
	}
}

func TestRetry_ServerErrorSurfaces(t *testing.T) {
	ts := newTestServer(t, map[string]string{})

	resp, err := ts.client().post("/files/nope/retry", nil)
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var out any
	err = decodeJSON(resp, &out)
	if err == nil {
		t.Fatal("expected error for 404 response")
	}
	if !strings.Contains(err.Error(), "404") {
		t.Errorf("error = %v, want status in message", err)
	}
}

func TestColorize_NoColor(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	if got := colorize(colorGreen, "hello"); strings.Contains(got, "\033") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", got)
	}

	noColor = false
	if got := colorize(colorGreen, "hello"); !strings.Contains(got, "\033") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", got)
	}
}

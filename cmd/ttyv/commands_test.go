package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
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
		w.Write([]byte(`{"error":{"message":"not found","type":"not_found"}}`))
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

var ctx = context.Background()

func TestAnalyzeSubmission(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/v1/analyze": `{"video_id":"a1b2c3d4e5f6","status":"processing","message":"Video analysis started."}`,
	})

	client := ts.client()

	req := map[string]any{
		"url":          "https://youtu.be/dQw4w9WgXcQ",
		"summary_type": "executive",
		"force":        true,
	}
	resp, err := client.post(ctx, "/api/v1/analyze", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		VideoID string `json:"video_id"`
		Status  string `json:"status"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if result.VideoID != "a1b2c3d4e5f6" {
		t.Errorf("video_id = %q, want a1b2c3d4e5f6", result.VideoID)
	}
	if result.Status != "processing" {
		t.Errorf("status = %q, want processing", result.Status)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "POST" {
		t.Errorf("method = %q, want POST", r.Method)
	}
	if r.Auth != "Bearer test-token" {
		t.Errorf("auth = %q, want Bearer test-token", r.Auth)
	}

	var body map[string]any
	if err := json.Unmarshal([]byte(r.Body), &body); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if body["url"] != "https://youtu.be/dQw4w9WgXcQ" {
		t.Errorf("body.url = %v, want the submitted URL", body["url"])
	}
	if body["summary_type"] != "executive" {
		t.Errorf("body.summary_type = %v, want executive", body["summary_type"])
	}
	if body["force"] != true {
		t.Errorf("body.force = %v, want true", body["force"])
	}
}

func TestAnalyzeCommand_MissingURL(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"analyze"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for missing URL argument")
	}
	if !strings.Contains(err.Error(), "accepts 1 arg") {
		t.Errorf("error = %q, want it to mention the argument count", err.Error())
	}
}

func TestAskFlow(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"POST /api/v1/chat": `{"session_id":"a1b2c3d4e5f6_0f8c","video_id":"a1b2c3d4e5f6","response":"The video covers goroutines.","sources":["Source 1","Source 2"]}`,
	})

	client := ts.client()
	req := map[string]any{
		"video_id": "a1b2c3d4e5f6",
		"message":  "What does it cover?",
	}
	resp, err := client.post(ctx, "/api/v1/chat", req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result struct {
		SessionID string   `json:"session_id"`
		Response  string   `json:"response"`
		Sources   []string `json:"sources"`
	}
	if err := decodeJSON(resp, &result); err != nil {
		t.Fatalf("decode error: %v", err)
	}

	if !strings.HasPrefix(result.SessionID, "a1b2c3d4e5f6_") {
		t.Errorf("session_id = %q, want video-scoped prefix", result.SessionID)
	}
	if result.Response == "" {
		t.Error("expected non-empty response")
	}
	if len(result.Sources) != 2 {
		t.Errorf("sources = %d, want 2", len(result.Sources))
	}

	var sent map[string]any
	if err := json.Unmarshal([]byte(ts.requests[0].Body), &sent); err != nil {
		t.Fatalf("body parse error: %v", err)
	}
	if sent["message"] != "What does it cover?" {
		t.Errorf("body.message = %v, want the question", sent["message"])
	}
}

func TestNotReady(t *testing.T) {
	resp := &http.Response{
		StatusCode: http.StatusAccepted,
		Body:       io.NopCloser(strings.NewReader(`{"error":{"message":"analysis not ready; video status is processing","type":"not_ready"}}`)),
	}
	msg, pending := notReady(resp)
	if !pending {
		t.Fatal("expected 202 to read as pending")
	}
	if !strings.Contains(msg, "not ready") {
		t.Errorf("message = %q, want the server's wording", msg)
	}

	ok := &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}
	if _, pending := notReady(ok); pending {
		t.Error("200 should not read as pending")
	}
}

func TestDecodeJSON_ErrorEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(401)
		w.Write([]byte(`{"error":{"message":"unauthorized","type":"authentication_error"}}`))
	}))
	defer ts.Close()

	client := &apiClient{
		baseURL:    ts.URL,
		token:      "bad-token",
		httpClient: ts.Client(),
	}

	resp, err := client.get(ctx, "/api/v1/videos")
	if err != nil {
		t.Fatalf("unexpected transport error: %v", err)
	}

	var result any
	err = decodeJSON(resp, &result)
	if err == nil {
		t.Fatal("expected error for 401 response")
	}
	if !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %q, want it to contain '401'", err.Error())
	}
	if !strings.Contains(err.Error(), "unauthorized") {
		t.Errorf("error = %q, want the envelope message surfaced", err.Error())
	}
}

func TestWaitForVideo_PollsUntilTerminal(t *testing.T) {
	old := pollInterval
	pollInterval = time.Millisecond
	defer func() { pollInterval = old }()

	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		if calls < 3 {
			fmt.Fprint(w, `{"video_id":"a1b2c3d4e5f6","status":"processing","chunk_count":0}`)
			return
		}
		fmt.Fprint(w, `{"video_id":"a1b2c3d4e5f6","status":"completed","chunk_count":7,"metadata":{"title":"Concurrency Patterns"}}`)
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}

	st, err := waitForVideo(context.Background(), client, "a1b2c3d4e5f6")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != "completed" {
		t.Errorf("status = %q, want completed", st.Status)
	}
	if st.ChunkCount != 7 {
		t.Errorf("chunk_count = %d, want 7", st.ChunkCount)
	}
	if st.Metadata.Title != "Concurrency Patterns" {
		t.Errorf("title = %q, want Concurrency Patterns", st.Metadata.Title)
	}
	if calls != 3 {
		t.Errorf("polled %d times, want 3", calls)
	}
}

func TestWaitForVideo_CancelledContext(t *testing.T) {
	ts := newTestServer(t, nil)
	client := ts.client()

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := waitForVideo(cancelled, client, "a1b2c3d4e5f6")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}

func TestWaitForComposite_CollectsResult(t *testing.T) {
	old := pollInterval
	pollInterval = time.Millisecond
	defer func() { pollInterval = old }()

	var calls int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		switch calls {
		case 1:
			fmt.Fprint(w, `{"status":"processing","progress":{"completed":0,"total":2}}`)
		case 2:
			fmt.Fprint(w, `{"status":"processing","progress":{"completed":1,"total":2}}`)
		default:
			fmt.Fprint(w, `{"status":"completed","progress":{"completed":2,"total":2},"comparison_results":{"comparison_analysis":"Both videos cover concurrency.","videos_count":2}}`)
		}
	}))
	defer ts.Close()

	client := &apiClient{baseURL: ts.URL, token: "t", httpClient: ts.Client()}

	st, err := waitForComposite(context.Background(), client, "/api/v1/compare/ffffffffffff")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.Status != "completed" {
		t.Errorf("status = %q, want completed", st.Status)
	}
	if st.Comparison == nil {
		t.Fatal("expected comparison_results to be captured")
	}
	if calls != 3 {
		t.Errorf("polled %d times, want 3", calls)
	}
}

func TestCompareCommand_Bounds(t *testing.T) {
	defer rootCmd.SetArgs(nil)

	rootCmd.SetArgs([]string{"compare", "https://youtu.be/only-one"})
	err := rootCmd.Execute()
	if err == nil {
		t.Fatal("expected error for a single URL")
	}
	if !strings.Contains(err.Error(), "between 2 and 10") {
		t.Errorf("error = %q, want the URL bounds mentioned", err.Error())
	}
}

func TestCacheClearCommand_SingleVideo(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"DELETE /api/v1/cache/a1b2c3d4e5f6": `{"status":"deleted","video_id":"a1b2c3d4e5f6"}`,
	})

	old := newAPIClient
	defer func() { newAPIClient = old }()
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }

	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs([]string{"cache", "clear", "a1b2c3d4e5f6"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	r := ts.requests[0]
	if r.Method != "DELETE" {
		t.Errorf("method = %q, want DELETE", r.Method)
	}
	if r.Path != "/api/v1/cache/a1b2c3d4e5f6" {
		t.Errorf("path = %q, want the single-video cache route", r.Path)
	}
}

func TestCacheClearCommand_AllNeedsConfirm(t *testing.T) {
	ts := newTestServer(t, nil)

	old := newAPIClient
	defer func() { newAPIClient = old }()
	newAPIClient = func() (*apiClient, error) { return ts.client(), nil }

	defer rootCmd.SetArgs(nil)
	rootCmd.SetArgs([]string{"cache", "clear"})
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ts.requests) != 0 {
		t.Errorf("expected no requests without --confirm, got %d", len(ts.requests))
	}
}

func TestPrintComparison_BadJSON(t *testing.T) {
	if err := printComparison(json.RawMessage(`{`)); err == nil {
		t.Fatal("expected error for malformed comparison payload")
	}
}

func TestPrintTrends_BadJSON(t *testing.T) {
	if err := printTrends(json.RawMessage(`[`)); err == nil {
		t.Fatal("expected error for malformed trend payload")
	}
}

func TestStatusCommand_Stopped(t *testing.T) {
	ts := newTestServer(t, map[string]string{})
	ts.server.Close()

	client := ts.client()
	_, err := client.get(ctx, "/health")
	if err == nil {
		t.Fatal("expected error for stopped server")
	}
	if !strings.Contains(err.Error(), "not reachable") {
		t.Errorf("error = %q, want it to mention 'not reachable'", err.Error())
	}
}

func TestAPIClientAuth(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"healthy"}`,
	})

	client := ts.client()
	client.token = "my-secret-token"

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if len(ts.requests) != 1 {
		t.Fatalf("expected 1 request, got %d", len(ts.requests))
	}
	if ts.requests[0].Auth != "Bearer my-secret-token" {
		t.Errorf("auth = %q, want 'Bearer my-secret-token'", ts.requests[0].Auth)
	}
}

func TestAPIClient_NoTokenOmitsHeader(t *testing.T) {
	ts := newTestServer(t, map[string]string{
		"GET /health": `{"status":"healthy"}`,
	})

	client := ts.client()
	client.token = ""

	resp, err := client.get(ctx, "/health")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	resp.Body.Close()

	if ts.requests[0].Auth != "" {
		t.Errorf("auth = %q, want no Authorization header", ts.requests[0].Auth)
	}
}

func TestNoColorFlag(t *testing.T) {
	old := noColor
	defer func() { noColor = old }()

	noColor = true
	result := colorize(colorGreen, "test message")
	if strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=true should not contain ANSI codes, got %q", result)
	}
	if result != "test message" {
		t.Errorf("result = %q, want %q", result, "test message")
	}

	noColor = false
	result = colorize(colorGreen, "test message")
	if !strings.Contains(result, "\033[") {
		t.Errorf("colorize with noColor=false should contain ANSI codes, got %q", result)
	}
}

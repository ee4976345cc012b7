package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/commentpulse/commentpulse/pkg/comments"
	"github.com/commentpulse/commentpulse/pkg/ingest"
	"github.com/commentpulse/commentpulse/pkg/logging"
	"github.com/commentpulse/commentpulse/pkg/store"
)

type fakeRunner struct {
	result  *ingest.RunResult
	err     error
	gotHint string
	gotURL  string
}

func (f *fakeRunner) Run(ctx context.Context, hint, contextURL string) (*ingest.RunResult, error) {
	f.gotHint = hint
	f.gotURL = contextURL
	return f.result, f.err
}

type fakeLoader struct {
	stored *ingest.StoredResult
	err    error
}

func (f *fakeLoader) GetResult(ctx context.Context, target string, v any) error {
	if f.err != nil {
		return f.err
	}
	data, _ := json.Marshal(f.stored)
	return json.Unmarshal(data, v)
}

func TestConfigRedisAddr(t *testing.T) {
	cfg := Config{RedisHost: "redis.internal", RedisPort: 6380}

	if addr := cfg.RedisAddr(); addr != "redis.internal:6380" {
		t.Errorf("RedisAddr() = %q, want redis.internal:6380", addr)
	}
}

func TestStartupLoggerIsUsable(t *testing.T) {
	buf := &bytes.Buffer{}
	bootLogger := logging.Setup(logging.Config{Level: logging.LevelInfo, Output: buf})

	// The startup path logs through a local variable so the pointer-receiver
	// event methods resolve.
	bootLogger.Error().Str("component", "main").Msg("Invalid configuration")

	if !strings.Contains(buf.String(), "Invalid configuration") {
		t.Errorf("startup logger output = %q, want the configuration error", buf.String())
	}
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("body = %q, want OK", string(body))
	}
}

func TestIngestEndpointSuccess(t *testing.T) {
	runs := &fakeRunner{result: &ingest.RunResult{Target: "vid-1", Processed: 42}}
	handler := ingestHandler(runs)

	req := httptest.NewRequest("POST", "/ingest?target=vid-1", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response struct {
		Success    bool `json:"success"`
		TotalCount int  `json:"totalCount"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !response.Success || response.TotalCount != 42 {
		t.Errorf("response = %+v, want success with totalCount 42", response)
	}
	if runs.gotHint != "vid-1" {
		t.Errorf("hint = %q, want vid-1", runs.gotHint)
	}
}

func TestIngestEndpointBodyFallback(t *testing.T) {
	runs := &fakeRunner{result: &ingest.RunResult{Processed: 1}}
	handler := ingestHandler(runs)

	body := strings.NewReader(`{"target":"vid-2","contextUrl":"https://watch.example/watch?v=vid-2"}`)
	req := httptest.NewRequest("POST", "/ingest", body)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if runs.gotHint != "vid-2" || runs.gotURL != "https://watch.example/watch?v=vid-2" {
		t.Errorf("hint/url = %q/%q, want values from body", runs.gotHint, runs.gotURL)
	}
}

func TestIngestEndpointErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"missing identifier", ingest.ErrMissingIdentifier, http.StatusBadRequest},
		{"missing credential", ingest.ErrMissingCredential, http.StatusBadRequest},
		{"run in flight", ingest.ErrRunInFlight, http.StatusConflict},
		{"walk failure", &ingest.IngestionError{Target: "x", Cause: errors.New("boom")}, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := ingestHandler(&fakeRunner{err: tt.err})

			req := httptest.NewRequest("POST", "/ingest?target=x", nil)
			w := httptest.NewRecorder()
			handler(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var response struct {
				Error string `json:"error"`
			}
			if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if response.Error == "" {
				t.Error("error response carries no error string")
			}
		})
	}
}

func TestIngestEndpointRequiresPost(t *testing.T) {
	handler := ingestHandler(&fakeRunner{})

	req := httptest.NewRequest("GET", "/ingest?target=x", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestResultsEndpoint(t *testing.T) {
	stored := &ingest.StoredResult{
		Run: ingest.RunResult{
			RunID:  "run-1",
			Target: "vid-1",
			Records: []comments.Record{
				{ID: "c1", Text: "amazing sound", Timestamp: 100, Sentiment: comments.SentimentPositive, Strength: comments.StrengthStrong, Topic: "Audio"},
				{ID: "c2", Text: "awful echo", Timestamp: 140, Sentiment: comments.SentimentNegative, Strength: comments.StrengthWeak, Topic: "Audio"},
			},
			Processed: 2,
		},
		Classification: json.RawMessage(`{"labels":{}}`),
	}
	handler := resultsHandler(&fakeLoader{stored: stored})

	req := httptest.NewRequest("GET", "/results?target=vid-1&sentiment=positive", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	var response struct {
		Run         ingest.RunResult `json:"run"`
		Projections struct {
			Sentiment map[comments.Sentiment]int `json:"sentiment"`
		} `json:"projections"`
		Selection struct {
			StrongPct float64 `json:"strongPct"`
		} `json:"selection"`
	}
	if err := json.NewDecoder(w.Body).Decode(&response); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if response.Run.RunID != "run-1" {
		t.Errorf("run id = %q, want run-1", response.Run.RunID)
	}
	if response.Projections.Sentiment[comments.SentimentPositive] != 1 {
		t.Errorf("positive count = %d, want 1", response.Projections.Sentiment[comments.SentimentPositive])
	}
	if response.Selection.StrongPct != 100.0 {
		t.Errorf("selection strongPct = %v, want 100.0", response.Selection.StrongPct)
	}
}

func TestResultsEndpointNotFound(t *testing.T) {
	handler := resultsHandler(&fakeLoader{err: store.ErrNotFound})

	req := httptest.NewRequest("GET", "/results?target=missing", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestResultsEndpointRequiresTarget(t *testing.T) {
	handler := resultsHandler(&fakeLoader{})

	req := httptest.NewRequest("GET", "/results", nil)
	w := httptest.NewRecorder()
	handler(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()

	promhttp.Handler().ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "# HELP") || !strings.Contains(string(body), "# TYPE") {
		t.Error("expected Prometheus format metrics output")
	}
}

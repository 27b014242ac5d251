package server

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"calibra-hq/saturn/pkg/config"
	"calibra-hq/saturn/pkg/gate"
	"calibra-hq/saturn/pkg/quota"
)

func newTestServer(t *testing.T, quotas map[string]quota.QuotaConfig) *Server {
	t.Helper()

	if quotas == nil {
		quotas = map[string]quota.QuotaConfig{
			"per_second": {Tokens: 10, Interval: time.Second},
		}
	}

	g, err := gate.New(gate.Config{
		Quotas: quotas,
		Costs:  map[string]int64{"list": 1, "search": 100},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("failed to create gate: %v", err)
	}
	t.Cleanup(func() { _ = g.Close() })

	cfg := &config.ServerConfig{
		Enabled:         true,
		ListenAddress:   "127.0.0.1:0",
		ReadTimeout:     10 * time.Second,
		WriteTimeout:    10 * time.Second,
		IdleTimeout:     60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
	}

	return New(cfg, g, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// ============================================================================
// Health
// ============================================================================

func TestServer_Health(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

// ============================================================================
// Quota status
// ============================================================================

func TestServer_QuotaStatus(t *testing.T) {
	srv := newTestServer(t, map[string]quota.QuotaConfig{
		"per_second": {Tokens: 10, Interval: time.Second},
		"per_day":    {Tokens: 10000, Interval: 24 * time.Hour},
	})

	req := httptest.NewRequest(http.MethodGet, "/v1/quotas", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var resp quotaStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}

	if len(resp.Quotas) != 2 {
		t.Fatalf("expected 2 quotas, got %d", len(resp.Quotas))
	}

	perDay, ok := resp.Quotas["per_day"]
	if !ok {
		t.Fatal("expected per_day quota in response")
	}
	if perDay.MaxTokens != 10000 {
		t.Errorf("expected max tokens 10000, got %d", perDay.MaxTokens)
	}
	if perDay.AvailableTokens < 9999 {
		t.Errorf("expected a full bucket, got %f available", perDay.AvailableTokens)
	}
	if perDay.RefillInterval != "24h0m0s" {
		t.Errorf("unexpected refill interval %q", perDay.RefillInterval)
	}
}

// ============================================================================
// Admission
// ============================================================================

func TestServer_AdmitAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	body := bytes.NewBufferString(`{"operation": "list"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp admitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if !resp.Allowed {
		t.Error("expected request to be allowed")
	}
	if resp.Operation != "list" {
		t.Errorf("expected operation list, got %q", resp.Operation)
	}
	if resp.Cost != 1 {
		t.Errorf("expected cost 1, got %d", resp.Cost)
	}
}

func TestServer_AdmitDenied(t *testing.T) {
	srv := newTestServer(t, map[string]quota.QuotaConfig{
		"per_second": {Tokens: 10, Interval: time.Second},
	})

	// A search costs 100 tokens, far over the 10-token quota.
	body := bytes.NewBufferString(`{"operation": "search"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status 429, got %d", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header on denial")
	}

	var resp admitResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Allowed {
		t.Error("expected request to be denied")
	}
	if resp.Cost != 100 {
		t.Errorf("expected cost 100, got %d", resp.Cost)
	}
	if resp.RetryAfter == "" {
		t.Error("expected retry_after in denial response")
	}
}

func TestServer_AdmitDrainsQuota(t *testing.T) {
	srv := newTestServer(t, map[string]quota.QuotaConfig{
		"per_second": {Tokens: 3, Interval: time.Hour},
	})

	for i := 0; i < 3; i++ {
		body := bytes.NewBufferString(`{"operation": "list"}`)
		req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
		rec := httptest.NewRecorder()
		srv.routes().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected status 200, got %d", i, rec.Code)
		}
	}

	body := bytes.NewBufferString(`{"operation": "list"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("expected status 429 after quota drained, got %d", rec.Code)
	}
}

func TestServer_AdmitValidation(t *testing.T) {
	srv := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{not json`},
		{"missing operation", `{"timeout_ms": 100}`},
		{"negative timeout", `{"operation": "list", "timeout_ms": -1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/v1/admit", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			srv.routes().ServeHTTP(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", rec.Code)
			}
		})
	}
}

func TestServer_AdmitWithTimeout(t *testing.T) {
	srv := newTestServer(t, map[string]quota.QuotaConfig{
		"per_second": {Tokens: 1, Interval: 50 * time.Millisecond},
	})

	// Drain the single token.
	body := bytes.NewBufferString(`{"operation": "list"}`)
	req := httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	// With a generous timeout the refill should admit the second request.
	body = bytes.NewBufferString(`{"operation": "list", "timeout_ms": 2000}`)
	req = httptest.NewRequest(http.MethodPost, "/v1/admit", body)
	rec = httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200 after waiting for refill, got %d", rec.Code)
	}
}

// ============================================================================
// Method routing
// ============================================================================

func TestServer_MethodNotAllowed(t *testing.T) {
	srv := newTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/admit", nil)
	rec := httptest.NewRecorder()
	srv.routes().ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", rec.Code)
	}
}

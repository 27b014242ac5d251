package server

import (
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"
)

// admitRequest is the body for POST /v1/admit.
type admitRequest struct {
	Operation string `json:"operation"`
	TimeoutMs int64  `json:"timeout_ms"`
}

// admitResponse is the body for POST /v1/admit.
type admitResponse struct {
	Allowed    bool   `json:"allowed"`
	Operation  string `json:"operation"`
	Cost       int64  `json:"cost"`
	RetryAfter string `json:"retry_after,omitempty"`
}

// quotaStatusResponse is the body for GET /v1/quotas.
type quotaStatusResponse struct {
	Quotas map[string]quotaEntry `json:"quotas"`
}

type quotaEntry struct {
	AvailableTokens float64 `json:"available_tokens"`
	MaxTokens       int64   `json:"max_tokens"`
	RefillInterval  string  `json:"refill_interval"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleQuotaStatus(w http.ResponseWriter, r *http.Request) {
	status := s.gate.Status()

	resp := quotaStatusResponse{Quotas: make(map[string]quotaEntry, len(status))}
	for name, st := range status {
		resp.Quotas[name] = quotaEntry{
			AvailableTokens: st.AvailableTokens,
			MaxTokens:       st.MaxTokens,
			RefillInterval:  st.RefillInterval.String(),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAdmit(w http.ResponseWriter, r *http.Request) {
	var req admitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Operation == "" {
		writeError(w, http.StatusBadRequest, "operation is required")
		return
	}
	if req.TimeoutMs < 0 {
		writeError(w, http.StatusBadRequest, "timeout_ms must be non-negative")
		return
	}

	cost := s.gate.Cost(req.Operation)
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond

	allowed := s.gate.AdmitWait(req.Operation, timeout)

	resp := admitResponse{
		Allowed:   allowed,
		Operation: req.Operation,
		Cost:      cost,
	}

	if !allowed {
		retryAfter := s.retryAfter(cost)
		resp.RetryAfter = retryAfter.String()
		w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(retryAfter.Seconds()))))
		writeJSON(w, http.StatusTooManyRequests, resp)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// retryAfter estimates how long until cost tokens are available across
// all quotas, based on the current snapshot.
func (s *Server) retryAfter(cost int64) time.Duration {
	wait := s.gate.TimeUntilAvailable(cost)
	if wait < time.Second {
		return time.Second
	}
	return wait
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/nerrad567/lanlight/internal/coordinator"
)

// maxReadyTimeout caps the wait a client may request from /ready.
const maxReadyTimeout = 30 * time.Second

// ReadyResponse is the body of /ready.
type ReadyResponse struct {
	Ready          bool   `json:"ready"`
	RouterAttached bool   `json:"router_attached"`
	PANSighted     bool   `json:"pan_sighted"`
	LightsLoaded   bool   `json:"lights_loaded"`
	Lights         int    `json:"lights"`
	Error          string `json:"error,omitempty"`
}

// readyResult is what one coalesced wait produces.
type readyResult struct {
	ready bool
	err   error
}

// handleReady waits for the coordinator's initial load.
//
// GET /api/v1/ready?timeout=5s
// Response: 200 when loaded, 503 otherwise. timeout defaults to 0 (no wait).
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	timeout, err := s.readyTimeout(r.URL.Query().Get("timeout"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	// Concurrent probes with the same timeout share one wait. The shared
	// wait outlives any single caller's cancellation; timeout bounds it.
	ctx := context.WithoutCancel(r.Context())
	v, _, _ := s.ready.Do(timeout.String(), func() (any, error) {
		ok, err := s.coordinator.WaitForLoaded(ctx, timeout)
		return readyResult{ready: ok, err: err}, nil
	})
	res := v.(readyResult)

	resp := ReadyResponse{
		Ready:          res.ready,
		RouterAttached: s.coordinator.RouterAttached(),
		LightsLoaded:   s.coordinator.Lights().InitLoaded(),
		Lights:         s.coordinator.Lights().Len(),
	}
	if s.router != nil {
		resp.PANSighted = s.router.PANSighted()
	}

	switch {
	case errors.Is(res.err, coordinator.ErrRouterNotAttached):
		resp.Error = "router not attached"
	case res.err != nil:
		s.logger.Warn("readiness wait failed", "error", res.err)
		resp.Error = res.err.Error()
	}

	code := http.StatusOK
	if !resp.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, resp)
}

// readyTimeout parses the timeout query parameter.
func (s *Server) readyTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 0, nil
	}

	timeout, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.New("timeout must be a duration such as 5s")
	}
	if timeout < 0 {
		return 0, errors.New("timeout must not be negative")
	}

	limit := maxReadyTimeout
	if write := time.Duration(s.cfg.Timeouts.Write) * time.Second; write > time.Second && write-time.Second < limit {
		limit = write - time.Second
	}
	return min(timeout, limit), nil
}

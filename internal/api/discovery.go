package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lanlight/internal/discovery"
	"github.com/nerrad567/lanlight/internal/protocol"
)

// SightingResponse is a journal entry with a human-readable age.
type SightingResponse struct {
	discovery.Sighting
	LastSeenAgo string `json:"last_seen_ago"`
	Present     bool   `json:"present"`
}

// SightingSummary provides aggregate statistics over the journal.
type SightingSummary struct {
	Total          int    `json:"total"`
	Present        int    `json:"present"`
	Lost           int    `json:"lost"`
	ActiveLast5Min int    `json:"active_last_5min"`
	Dropped        uint64 `json:"dropped_events"`
}

// handleListSightings returns every light the journal has recorded,
// most recently seen first.
//
// GET /api/v1/sightings
// Response: {"sightings": [...], "summary": {...}}
func (s *Server) handleListSightings(w http.ResponseWriter, r *http.Request) {
	sightings, err := s.journal.List(r.Context())
	if err != nil {
		s.logger.Error("failed to list sightings", "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to list sightings")
		return
	}

	now := time.Now()
	fiveMinAgo := now.Add(-5 * time.Minute)

	summary := SightingSummary{Total: len(sightings), Dropped: s.journal.Dropped()}
	out := make([]SightingResponse, 0, len(sightings))
	for _, sg := range sightings {
		resp := sightingResponse(sg, now)
		if resp.Present {
			summary.Present++
		} else {
			summary.Lost++
		}
		if sg.LastSeen.After(fiveMinAgo) {
			summary.ActiveLast5Min++
		}
		out = append(out, resp)
	}

	writeJSON(w, http.StatusOK, map[string]any{"sightings": out, "summary": summary})
}

// handleGetSighting returns the journal entry for one light.
//
// GET /api/v1/sightings/{id}
func (s *Server) handleGetSighting(w http.ResponseWriter, r *http.Request) {
	id, err := protocol.ParseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	sg, err := s.journal.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, discovery.ErrSightingNotFound) {
			writeError(w, r, http.StatusNotFound, "sighting not found")
			return
		}
		s.logger.Error("failed to get sighting", "id", id, "error", err)
		writeError(w, r, http.StatusInternalServerError, "failed to get sighting")
		return
	}

	writeJSON(w, http.StatusOK, sightingResponse(sg, time.Now()))
}

func sightingResponse(sg discovery.Sighting, now time.Time) SightingResponse {
	return SightingResponse{
		Sighting:    sg,
		LastSeenAgo: formatDuration(now.Sub(sg.LastSeen)),
		Present:     sg.LostAt == nil,
	}
}

// formatDuration formats a duration in a human-readable way.
func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 min ago"
		}
		return strconv.Itoa(mins) + " mins ago"
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return strconv.Itoa(hours) + " hours ago"
	}
	days := int(d.Hours() / 24) //nolint:mnd // 24 hours per day
	if days == 1 {
		return "1 day ago"
	}
	return strconv.Itoa(days) + " days ago"
}

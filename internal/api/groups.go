package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lanlight/internal/device"
)

// handleListGroups returns all tag groups, ascending by tag.
//
// GET /api/v1/groups
// Response: {"groups": [...], "count": N}
func (s *Server) handleListGroups(w http.ResponseWriter, _ *http.Request) {
	groups := s.coordinator.Groups().List()
	if groups == nil {
		groups = []device.Group{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"groups": groups, "count": len(groups)})
}

// handleGetGroup returns a single group by tag.
//
// GET /api/v1/groups/{tag}
func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	tag, ok := parseTag(chi.URLParam(r, "tag"))
	if !ok {
		writeError(w, r, http.StatusBadRequest, "tag must be an integer between 0 and 63")
		return
	}

	group, found := s.coordinator.Groups().Get(tag)
	if !found {
		writeError(w, r, http.StatusNotFound, "group not found")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

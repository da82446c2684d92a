package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/lanlight/internal/device"
	"github.com/nerrad567/lanlight/internal/protocol"
)

// LightResponse is a light plus the groups it belongs to.
type LightResponse struct {
	device.Light
	On     bool  `json:"on"`
	Groups []int `json:"groups"`
}

// handleListLights returns all lights.
//
// GET /api/v1/lights[?tag=N]
// Response: {"lights": [...], "count": N, "loaded": bool}
func (s *Server) handleListLights(w http.ResponseWriter, r *http.Request) {
	lights := s.coordinator.Lights().List()

	if raw := r.URL.Query().Get("tag"); raw != "" {
		tag, ok := parseTag(raw)
		if !ok {
			writeError(w, r, http.StatusBadRequest, "tag must be an integer between 0 and 63")
			return
		}
		filtered := lights[:0]
		for _, l := range lights {
			if l.HasTag(tag) {
				filtered = append(filtered, l)
			}
		}
		lights = filtered
	}

	out := make([]LightResponse, 0, len(lights))
	for _, l := range lights {
		out = append(out, s.lightResponse(l))
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lights": out,
		"count":  len(out),
		"loaded": s.coordinator.Lights().InitLoaded(),
	})
}

// handleGetLight returns a single light by device ID.
//
// GET /api/v1/lights/{id}
func (s *Server) handleGetLight(w http.ResponseWriter, r *http.Request) {
	id, err := protocol.ParseDeviceID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid device id")
		return
	}

	light, ok := s.coordinator.Lights().Get(id)
	if !ok {
		writeError(w, r, http.StatusNotFound, "light not found")
		return
	}

	writeJSON(w, http.StatusOK, s.lightResponse(light))
}

// lightResponse decorates a light with its group memberships.
func (s *Server) lightResponse(l device.Light) LightResponse {
	groups := s.coordinator.Groups().GroupsOf(l.ID)
	ids := make([]int, 0, len(groups))
	for _, tag := range groups {
		ids = append(ids, int(tag))
	}
	return LightResponse{Light: l, On: l.IsOn(), Groups: ids}
}

// parseTag parses a tag ID from a URL.
func parseTag(raw string) (protocol.TagID, bool) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n >= protocol.TagCount {
		return 0, false
	}
	return protocol.TagID(n), true
}

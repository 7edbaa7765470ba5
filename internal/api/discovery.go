package api

import (
	"net/http"
)

// handleDiscovery runs one discovery pass over the gateway and returns the
// devices found. When the pass ends early (client gone, broker error) but
// some devices were collected, they are returned with the error message.
func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	if s.discoverer == nil {
		writeServiceUnavailable(w, "discovery unavailable")
		return
	}

	devices, err := s.discoverer.Discover(r.Context())
	if err != nil && len(devices) == 0 {
		s.logger.Warn("discovery failed", "error", err)
		writeError(w, http.StatusBadGateway, ErrCodeServiceUnavailable, "discovery failed")
		return
	}

	resp := map[string]any{
		"devices": devices,
		"count":   len(devices),
	}
	if err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

package api

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/nerrad567/gray-logic-inels/internal/device"
)

// History page bounds; the repository applies the same ones.
const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// historyQuery holds the query parameters of GET /devices/{id}/history.
type historyQuery struct {
	limit int
	since time.Time // zero: no lower bound
}

// parseHistoryQuery reads limit (1..200, default 50) and since (RFC3339).
func parseHistoryQuery(values url.Values) (historyQuery, error) {
	q := historyQuery{limit: defaultHistoryLimit}

	if raw := values.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		switch {
		case err != nil || n <= 0:
			return q, errors.New("invalid limit")
		case n > maxHistoryLimit:
			return q, errors.New("limit exceeds maximum")
		}
		q.limit = n
	}

	if raw := values.Get("since"); raw != "" {
		if len(raw) > maxQueryParamLen {
			return q, errors.New("invalid since timestamp")
		}
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return q, errors.New("invalid since timestamp")
		}
		q.since = t.UTC()
	}
	return q, nil
}

// keep drops entries recorded at or before q.since. entries is filtered
// in place.
func (q historyQuery) keep(entries []device.StateHistoryEntry) []device.StateHistoryEntry {
	if q.since.IsZero() {
		return entries
	}
	kept := entries[:0]
	for _, e := range entries {
		if e.CreatedAt.After(q.since) {
			kept = append(kept, e)
		}
	}
	return kept
}

// handleGetDeviceHistory returns a device's recorded states, newest first.
func (s *Server) handleGetDeviceHistory(w http.ResponseWriter, r *http.Request) {
	q, err := parseHistoryQuery(r.URL.Query())
	if err != nil {
		writeBadRequest(w, err.Error())
		return
	}

	dev, ok := s.lookupDevice(w, r)
	if !ok {
		return
	}
	if s.stateHistory == nil {
		writeServiceUnavailable(w, "state history unavailable")
		return
	}

	entries, err := s.stateHistory.GetHistory(r.Context(), dev.ID, q.limit)
	if err != nil {
		s.logger.Error("loading device history failed", "device_id", dev.ID, "error", err)
		writeInternalError(w, "failed to load device history")
		return
	}
	entries = q.keep(entries)

	writeJSON(w, http.StatusOK, map[string]any{
		"device_id": dev.ID,
		"history":   entries,
		"count":     len(entries),
	})
}

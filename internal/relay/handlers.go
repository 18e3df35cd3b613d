package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/beaconloc/presence/internal/presence"
)

// handleSubmit accepts one report:
//
//	{"uniqueID":"...","userName":"...","room":"Room 1","floor":1,"status":"Available"}
func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var p presence.IngestPayload
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		s.rejected.Add(1)
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if _, err := s.Ingest(r.Context(), p); err != nil {
		if errors.Is(err, presence.ErrInvalidReport) {
			writeValidationError(w, err.Error())
			return
		}
		s.logger.Error("ingest failed", "error", err)
		writeInternalError(w, "failed to record report")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("Report for %s recorded successfully", p.UniqueID),
	})
}

// handleLabourData returns the occupancy ledger in the dashboard's shape.
// Optional query: ?limit=N.
func (s *Server) handleLabourData(w http.ResponseWriter, r *http.Request) {
	if s.ledger == nil {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No data available"})
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeBadRequest(w, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	records, err := s.ledger.Records(r.Context(), limit)
	if err != nil {
		s.logger.Error("reading ledger failed", "error", err)
		writeInternalError(w, "failed to read occupancy records")
		return
	}
	if len(records) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{"message": "No data available"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"labour_records": records})
}

// handleListPresence returns the hub's current presence state.
func (s *Server) handleListPresence(w http.ResponseWriter, _ *http.Request) {
	entries := s.state.Entries()
	writeJSON(w, http.StatusOK, map[string]any{
		"subjects": entries,
		"count":    len(entries),
	})
}

// handleGetPresence returns one subject's latest location.
func (s *Server) handleGetPresence(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "subjectID")
	entry, ok := s.state.Get(id)
	if !ok {
		writeNotFound(w, "subject not found")
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

// handleListRooms serves the room registry so viewers can draw the plan.
func (s *Server) handleListRooms(w http.ResponseWriter, _ *http.Request) {
	if s.rooms == nil {
		writeNotFound(w, "no room registry configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"canvas": s.rooms.Canvas(),
		"rooms":  s.rooms.Rooms(),
	})
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
		"viewers": s.hub.ClientCount(),
	})
}

package api

import (
	"net/http"
	"strconv"

	"github.com/maintex/partwatch/internal/store"
)

func (s *Server) listParts(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	q := r.URL.Query()
	f := store.PartFilter{
		AIStatus: q.Get("ai_status"),
		Search:   q.Get("search"),
	}
	if v := q.Get("machine_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid machine_id")
			return
		}
		f.MachineID = id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		f.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		f.Offset = n
	}

	parts, total, err := s.store.ListParts(r.Context(), f)
	if err != nil {
		s.logger.Error("failed to list parts", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list parts")
		return
	}
	if parts == nil {
		parts = []store.Part{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"parts":   parts,
		"total":   total,
	})
}

func (s *Server) listMachines(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, http.StatusServiceUnavailable, "database not configured")
		return
	}

	machines, err := s.store.ListMachines(r.Context())
	if err != nil {
		s.logger.Error("failed to list machines", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list machines")
		return
	}
	if machines == nil {
		machines = []store.Machine{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"machines": machines,
		"total":    len(machines),
	})
}

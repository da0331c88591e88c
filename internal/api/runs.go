package api

import (
	"net/http"

	"github.com/seantiz/magma/internal/model"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// listRunsResponse is the JSON response for GET /v1/runs.
type listRunsResponse struct {
	Runs  []*model.Run `json:"runs"`
	Total int          `json:"total"`
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := parseIntQuery(r, "limit", defaultListLimit)
	if limit < 1 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := parseIntQuery(r, "offset", 0)
	if offset < 0 {
		offset = 0
	}

	runs, total, err := s.store.ListRuns(r.Context(), limit, offset)
	if err != nil {
		s.logger.Error("list runs", "error", err)
		s.writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []*model.Run{}
	}

	s.writeJSON(w, http.StatusOK, listRunsResponse{Runs: runs, Total: total})
}

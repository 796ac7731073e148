// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
	"github.com/industrial-optimization-group/desdeo2/internal/solver"
)

// problemSummary is the list representation of a stored problem.
type problemSummary struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Description   string   `json:"description,omitempty"`
	NumVariables  int      `json:"num_variables"`
	NumObjectives int      `json:"num_objectives"`
	Objectives    []string `json:"objectives"`
	Solver        string   `json:"solver,omitempty"`
}

func summarize(rec archive.ProblemRecord) problemSummary {
	return problemSummary{
		ID:            rec.ID,
		Name:          rec.Name,
		Description:   rec.Definition.Description,
		NumVariables:  len(rec.Definition.VariableSymbols()),
		NumObjectives: len(rec.Definition.Objectives),
		Objectives:    rec.Definition.ObjectiveSymbols(),
		Solver:        rec.Solver,
	}
}

func (s *Server) handleListProblems(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListProblems(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	out := make([]problemSummary, 0, len(recs))
	for _, rec := range recs {
		out = append(out, summarize(rec))
	}
	writeJSON(w, http.StatusOK, out)
}

type createProblemRequest struct {
	Problem *problem.Problem `json:"problem"`
	Solver  string           `json:"solver,omitempty"`
	Owner   string           `json:"owner,omitempty"`
}

// handleCreateProblem stores a problem in the archive and mirrors it into the
// filesystem library.
func (s *Server) handleCreateProblem(w http.ResponseWriter, r *http.Request) {
	var req createProblemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	if req.Problem == nil {
		respondBadRequest(w, "missing problem definition")
		return
	}
	if req.Solver != "" {
		if _, err := solver.New(solver.Kind(req.Solver), solver.Options{}); err != nil {
			respondBadRequest(w, "unknown solver "+req.Solver)
			return
		}
	}

	rec := archive.ProblemRecord{
		Name:       req.Problem.Name,
		Definition: req.Problem,
		Solver:     req.Solver,
		Owner:      req.Owner,
	}
	if err := s.store.CreateProblem(r.Context(), &rec); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.registry.Store(req.Problem); err != nil {
		// The archive row is authoritative; a library write failure is loud
		// but not fatal.
		log.WithComponentFromContext(r.Context(), "api").Warn().Err(err).
			Str(log.FieldProblemID, rec.ID).
			Msg("problem not mirrored to library directory")
	}
	writeJSON(w, http.StatusCreated, summarize(rec))
}

func (s *Server) handleGetProblem(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetProblem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleDeleteProblem(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := s.store.GetProblem(r.Context(), id)
	if err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.store.DeleteProblem(r.Context(), id); err != nil {
		respondError(w, r, err)
		return
	}
	if err := s.registry.Delete(rec.Name); err != nil {
		log.WithComponentFromContext(r.Context(), "api").Debug().Err(err).
			Str(log.FieldProblemID, id).
			Msg("problem had no library file")
	}
	w.WriteHeader(http.StatusNoContent)
}

// SPDX-License-Identifier: MIT

package api

import (
	"encoding/json"
	"net/http"

	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/log"
	"github.com/industrial-optimization-group/desdeo2/internal/metrics"
	"github.com/industrial-optimization-group/desdeo2/internal/nimbus"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
)

// objectiveInfo describes one objective to the client. Bounds are oriented by
// the objective's sense: for minimized objectives the lower bound is the
// ideal value, for maximized ones the nadir.
type objectiveInfo struct {
	Symbol     string   `json:"symbol"`
	Name       string   `json:"name"`
	Unit       string   `json:"unit,omitempty"`
	Maximize   bool     `json:"maximize"`
	LowerBound *float64 `json:"lower_bound,omitempty"`
	UpperBound *float64 `json:"upper_bound,omitempty"`
}

// nimbusState is the full session view returned by every NIMBUS endpoint.
type nimbusState struct {
	SessionID          string                   `json:"session_id"`
	ProblemID          string                   `json:"problem_id"`
	Objectives         []objectiveInfo          `json:"objectives"`
	PreviousPreference json.RawMessage          `json:"previous_preference,omitempty"`
	CurrentSolutions   []archive.SolutionRecord `json:"current_solutions"`
	SavedSolutions     []archive.SolutionRecord `json:"saved_solutions"`
	AllSolutions       []archive.SolutionRecord `json:"all_solutions"`
}

func objectiveInfos(p *problem.Problem) []objectiveInfo {
	out := make([]objectiveInfo, 0, len(p.Objectives))
	for _, obj := range p.Objectives {
		info := objectiveInfo{
			Symbol:   obj.Symbol,
			Name:     obj.Name,
			Unit:     obj.Unit,
			Maximize: obj.Maximize,
		}
		if obj.Maximize {
			info.LowerBound, info.UpperBound = obj.Nadir, obj.Ideal
		} else {
			info.LowerBound, info.UpperBound = obj.Ideal, obj.Nadir
		}
		out = append(out, info)
	}
	return out
}

func (s *Server) buildState(r *http.Request, sess *archive.SessionRecord, p *problem.Problem) (nimbusState, error) {
	ctx := r.Context()
	state := nimbusState{
		SessionID:  sess.ID,
		ProblemID:  sess.ProblemID,
		Objectives: objectiveInfos(p),
	}
	if pref, err := s.store.LatestPreference(ctx, sess.ID); err == nil {
		state.PreviousPreference = pref.Value
	}
	var err error
	if state.CurrentSolutions, err = s.store.CurrentSolutions(ctx, sess.ID); err != nil {
		return nimbusState{}, err
	}
	if state.SavedSolutions, err = s.store.SavedSolutions(ctx, sess.ID); err != nil {
		return nimbusState{}, err
	}
	if state.AllSolutions, err = s.store.ListSolutions(ctx, sess.ID); err != nil {
		return nimbusState{}, err
	}
	return state, nil
}

func (s *Server) nimbusOptions() nimbus.Options {
	return nimbus.Options{Solver: s.solverOptions()}
}

func toArchive(sols []nimbus.Solution) []archive.Solution {
	out := make([]archive.Solution, len(sols))
	for i, sol := range sols {
		out[i] = archive.Solution{Variables: sol.Variables, Objectives: sol.Objectives}
	}
	return out
}

func (s *Server) updateSessionsGauge(r *http.Request) {
	if n, err := s.store.CountSessions(r.Context()); err == nil {
		metrics.SessionsActive.Set(float64(n))
	}
}

type initializeRequest struct {
	ProblemID      string             `json:"problem_id"`
	DecisionMaker  string             `json:"dm,omitempty"`
	ReferencePoint map[string]float64 `json:"reference_point,omitempty"`
}

// handleNimbusInitialize creates a session and produces the starting point
// shown to the decision maker.
func (s *Server) handleNimbusInitialize(w http.ResponseWriter, r *http.Request) {
	var req initializeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	if req.ProblemID == "" {
		respondBadRequest(w, "missing problem_id")
		return
	}
	ctx := r.Context()

	rec, err := s.store.GetProblem(ctx, req.ProblemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	sess := archive.SessionRecord{ProblemID: rec.ID, DecisionMaker: req.DecisionMaker, Method: "nimbus"}
	if err := s.store.CreateSession(ctx, &sess); err != nil {
		respondError(w, r, err)
		return
	}
	ctx = log.ContextWithSessionID(ctx, sess.ID)
	r = r.WithContext(ctx)

	var prefID *int64
	if req.ReferencePoint != nil {
		id, err := s.store.AddPreference(ctx, sess.ID, "reference_point", req.ReferencePoint)
		if err != nil {
			respondError(w, r, err)
			return
		}
		prefID = &id
	}

	start, err := nimbus.GenerateStartingPoint(ctx, rec.Definition, req.ReferencePoint, s.nimbusOptions())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.store.SaveResults(ctx, sess.ID, prefID, toArchive([]nimbus.Solution{start})); err != nil {
		respondError(w, r, err)
		return
	}
	s.updateSessionsGauge(r)

	state, err := s.buildState(r, &sess, rec.Definition)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, state)
}

type iterateRequest struct {
	SessionID         string             `json:"session_id"`
	ReferencePoint    map[string]float64 `json:"reference_point"`
	ReferenceSolution map[string]float64 `json:"reference_solution"` // current objective values
	NumSolutions      int                `json:"num_solutions"`
}

// handleNimbusIterate runs one classification round and archives the new
// solutions.
func (s *Server) handleNimbusIterate(w http.ResponseWriter, r *http.Request) {
	var req iterateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	ctx := log.ContextWithSessionID(r.Context(), req.SessionID)
	r = r.WithContext(ctx)

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.store.GetProblem(ctx, sess.ProblemID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	id, err := s.store.AddPreference(ctx, sess.ID, "reference_point", req.ReferencePoint)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sols, err := nimbus.SolveSubProblems(ctx, rec.Definition, req.ReferenceSolution,
		req.ReferencePoint, req.NumSolutions, s.nimbusOptions())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.store.SaveResults(ctx, sess.ID, &id, toArchive(sols)); err != nil {
		respondError(w, r, err)
		return
	}

	state, err := s.buildState(r, sess, rec.Definition)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type intermediateRequest struct {
	SessionID    string             `json:"session_id"`
	SolutionA    map[string]float64 `json:"solution_a"` // decision vector
	SolutionB    map[string]float64 `json:"solution_b"`
	NumSolutions int                `json:"num_solutions"`
}

// handleNimbusIntermediate generates solutions between two archived ones.
func (s *Server) handleNimbusIntermediate(w http.ResponseWriter, r *http.Request) {
	var req intermediateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	ctx := log.ContextWithSessionID(r.Context(), req.SessionID)
	r = r.WithContext(ctx)

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.store.GetProblem(ctx, sess.ProblemID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	sols, err := nimbus.SolveIntermediate(ctx, rec.Definition, req.SolutionA, req.SolutionB,
		req.NumSolutions, s.nimbusOptions())
	if err != nil {
		respondError(w, r, err)
		return
	}
	if _, err := s.store.SaveResults(ctx, sess.ID, nil, toArchive(sols)); err != nil {
		respondError(w, r, err)
		return
	}

	state, err := s.buildState(r, sess, rec.Definition)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type saveRequest struct {
	SessionID  string               `json:"session_id"`
	Objectives []map[string]float64 `json:"objectives"`
}

// handleNimbusSave marks archived solutions as saved by objective vector.
func (s *Server) handleNimbusSave(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	if len(req.Objectives) == 0 {
		respondBadRequest(w, "no objective vectors given")
		return
	}
	ctx := r.Context()

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	rec, err := s.store.GetProblem(ctx, sess.ProblemID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	for _, objectives := range req.Objectives {
		if err := s.store.MarkSaved(ctx, sess.ID, objectives); err != nil {
			respondError(w, r, err)
			return
		}
	}

	state, err := s.buildState(r, sess, rec.Definition)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type chooseRequest struct {
	SessionID string             `json:"session_id"`
	Variables map[string]float64 `json:"variables"`
}

// handleNimbusChoose marks the final solution of a session.
func (s *Server) handleNimbusChoose(w http.ResponseWriter, r *http.Request) {
	var req chooseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondBadRequest(w, "request body is not valid JSON: "+err.Error())
		return
	}
	ctx := r.Context()

	sess, err := s.store.GetSession(ctx, req.SessionID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	chosen, err := s.store.Choose(ctx, sess.ID, req.Variables)
	if err != nil {
		respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, chosen)
}

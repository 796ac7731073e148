// SPDX-License-Identifier: MIT

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/industrial-optimization-group/desdeo2/internal/archive"
	"github.com/industrial-optimization-group/desdeo2/internal/config"
	"github.com/industrial-optimization-group/desdeo2/internal/problem"
	"github.com/industrial-optimization-group/desdeo2/internal/registry"
)

const testToken = "test-token"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	dir := t.TempDir()

	store, err := archive.Open(filepath.Join(dir, "archive.db"), archive.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg, err := registry.Open(filepath.Join(dir, "problems"))
	require.NoError(t, err)

	cfg := config.AppConfig{
		Listen:    "127.0.0.1:0",
		DataDir:   dir,
		APIToken:  testToken,
		RateLimit: 10000,
		LogLevel:  "error",
		Solver:    config.SolverDefaults{MaxIterations: 150, Seed: 5},
	}
	return NewServer(cfg, store, reg).Routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out), rr.Body.String())
	return out
}

func createProblem(t *testing.T, h http.Handler, p *problem.Problem) string {
	t.Helper()
	rr := doRequest(t, h, http.MethodPost, "/api/v1/problems", testToken,
		createProblemRequest{Problem: p})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeBody[problemSummary](t, rr).ID
}

func TestHealthEndpoints(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/readyz", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthFailsClosed(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodGet, "/api/v1/problems", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/problems", "wrong", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/problems", testToken, nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAuthSessionCookie(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/auth/session", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/api/v1/auth/session", testToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.True(t, cookies[0].HttpOnly)

	// The cookie alone authorizes subsequent requests.
	req := httptest.NewRequest(http.MethodGet, "/api/v1/problems", nil)
	req.AddCookie(cookies[0])
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProblemLifecycle(t *testing.T) {
	h := newTestHandler(t)

	id := createProblem(t, h, problem.SimpleLinear())

	rr := doRequest(t, h, http.MethodGet, "/api/v1/problems", testToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	list := decodeBody[[]problemSummary](t, rr)
	require.Len(t, list, 1)
	assert.Equal(t, id, list[0].ID)
	assert.Equal(t, 2, list[0].NumVariables)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/problems/"+id, testToken, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rec := decodeBody[archive.ProblemRecord](t, rr)
	assert.NoError(t, rec.Definition.Validate())

	// Same name again conflicts.
	rr = doRequest(t, h, http.MethodPost, "/api/v1/problems", testToken,
		createProblemRequest{Problem: problem.SimpleLinear()})
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = doRequest(t, h, http.MethodDelete, "/api/v1/problems/"+id, testToken, nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = doRequest(t, h, http.MethodGet, "/api/v1/problems/"+id, testToken, nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestCreateProblemValidation(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/problems", testToken, map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/api/v1/problems", testToken,
		createProblemRequest{Problem: problem.SimpleLinear(), Solver: "gradient-descent"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/problems", bytes.NewBufferString("{"))
	req.Header.Set("Authorization", "Bearer "+testToken)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNimbusFlow(t *testing.T) {
	if testing.Short() {
		t.Skip("runs real solver iterations")
	}
	h := newTestHandler(t)
	id := createProblem(t, h, problem.NimbusTest())

	// Initialize: a session with one starting solution.
	rr := doRequest(t, h, http.MethodPost, "/api/v1/nimbus/initialize", testToken,
		initializeRequest{ProblemID: id})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	state := decodeBody[nimbusState](t, rr)
	require.NotEmpty(t, state.SessionID)
	require.Len(t, state.CurrentSolutions, 1)
	assert.Len(t, state.Objectives, 6)

	// Iterate: improve f_1 to its ideal, let f_5 worsen, keep the rest.
	current := state.CurrentSolutions[0].Objectives
	ref := make(map[string]float64, len(current))
	for k, v := range current {
		ref[k] = v
	}
	ref["f_1"] = 9
	ref["f_5"] = current["f_5"] + 100

	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/iterate", testToken, iterateRequest{
		SessionID:         state.SessionID,
		ReferencePoint:    ref,
		ReferenceSolution: current,
		NumSolutions:      2,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	state = decodeBody[nimbusState](t, rr)
	// Sub-problems landing on the same point fold into one archive row.
	require.NotEmpty(t, state.CurrentSolutions)
	assert.LessOrEqual(t, len(state.CurrentSolutions), 2)
	assert.NotNil(t, state.PreviousPreference)

	// Save one of them by objective vector.
	pick := state.CurrentSolutions[0]
	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/save", testToken, saveRequest{
		SessionID:  state.SessionID,
		Objectives: []map[string]float64{pick.Objectives},
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	state = decodeBody[nimbusState](t, rr)
	require.NotEmpty(t, state.SavedSolutions)

	// Intermediate solutions between the first and last current ones.
	a := state.CurrentSolutions[0].Variables
	b := state.CurrentSolutions[len(state.CurrentSolutions)-1].Variables
	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/intermediate", testToken, intermediateRequest{
		SessionID: state.SessionID, SolutionA: a, SolutionB: b, NumSolutions: 1,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	state = decodeBody[nimbusState](t, rr)
	require.NotEmpty(t, state.CurrentSolutions)

	// Choose the saved one as the final solution.
	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/choose", testToken, chooseRequest{
		SessionID: state.SessionID, Variables: pick.Variables,
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	chosen := decodeBody[archive.SolutionRecord](t, rr)
	assert.True(t, chosen.Chosen)
	assert.True(t, chosen.Saved)
}

func TestNimbusUnknownSession(t *testing.T) {
	h := newTestHandler(t)
	rr := doRequest(t, h, http.MethodPost, "/api/v1/nimbus/iterate", testToken,
		iterateRequest{SessionID: "nope", NumSolutions: 1})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestNimbusInitializeValidation(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/v1/nimbus/initialize", testToken,
		initializeRequest{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/initialize", testToken,
		initializeRequest{ProblemID: "missing"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	// A problem without ideal and nadir points cannot start a NIMBUS session.
	id := createProblem(t, h, problem.SimpleLinear())
	rr = doRequest(t, h, http.MethodPost, "/api/v1/nimbus/initialize", testToken,
		initializeRequest{ProblemID: id})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRateLimit(t *testing.T) {
	dir := t.TempDir()
	store, err := archive.Open(filepath.Join(dir, "archive.db"), archive.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	reg, err := registry.Open(filepath.Join(dir, "problems"))
	require.NoError(t, err)

	cfg := config.AppConfig{
		Listen: "127.0.0.1:0", DataDir: dir, APIToken: testToken,
		RateLimit: 2, LogLevel: "error",
	}
	h := NewServer(cfg, store, reg).Routes()

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = doRequest(t, h, http.MethodGet, "/healthz", "", nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.NotEmpty(t, last.Header().Get("Retry-After"))
}

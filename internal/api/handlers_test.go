package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/config"
	"fleetopt/internal/model"
	"fleetopt/internal/store"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Default()
	cfg.Solve.Threads = 1
	cfg.Solve.TimeLimit = 300 * time.Millisecond
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

// smallProblem is two jobs, one vehicle, symmetric durations.
func smallProblem() model.ProblemDoc {
	start := 0
	return model.ProblemDoc{
		Jobs: []model.JobDoc{
			{ID: 1, LocationIndex: 1},
			{ID: 2, LocationIndex: 2},
		},
		Vehicles: []model.VehicleDoc{
			{ID: 1, StartIndex: &start, EndIndex: &start},
		},
		Matrices: map[string]model.MatrixDoc{
			"car": {Durations: [][]int64{
				{0, 10, 20},
				{10, 0, 15},
				{20, 15, 0},
			}},
		},
	}
}

func solveBody(t *testing.T, doc model.ProblemDoc, opts *SolveParams) *bytes.Reader {
	t.Helper()
	problem, err := json.Marshal(doc)
	require.NoError(t, err)
	body, err := json.Marshal(SolveRequest{Problem: problem, Options: opts})
	require.NoError(t, err)
	return bytes.NewReader(body)
}

func TestHealthReady(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.HealthHandler(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, 200, rr.Code)
	rr = httptest.NewRecorder()
	s.ReadyHandler(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, 200, rr.Code)
}

func TestSolveSync(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", solveBody(t, smallProblem(), &SolveParams{Seed: 1}))
	req.Header.Set("Content-Type", "application/json")
	s.SolveHandler(rr, req)
	require.Equal(t, 200, rr.Code, rr.Body.String())

	var sol model.SolutionDoc
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &sol))
	assert.Empty(t, sol.Unassigned)
	require.Len(t, sol.Routes, 1)
	// 0 -> 1 -> 2 -> 0 is the cheapest tour: 10 + 15 + 20.
	assert.Equal(t, int64(45), sol.Routes[0].Cost)
}

func TestSolveRejectsViewer(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", solveBody(t, smallProblem(), nil))
	req.Header.Set("X-Role", "viewer")
	s.SolveHandler(rr, req)
	assert.Equal(t, 403, rr.Code)
}

func TestSolveRejectsBadOptions(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", solveBody(t, smallProblem(), &SolveParams{Threads: 100}))
	s.SolveHandler(rr, req)
	assert.Equal(t, 400, rr.Code)
}

func TestSolveInvalidProblemIs422(t *testing.T) {
	s := newTestServer(t)
	doc := smallProblem()
	doc.Jobs[1].ID = 1 // duplicate id
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/solve", solveBody(t, doc, nil))
	s.SolveHandler(rr, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
}

func TestRunLifecycle(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/runs", solveBody(t, smallProblem(), &SolveParams{Seed: 1}))
	s.RunsHandler(rr, req)
	require.Equal(t, http.StatusAccepted, rr.Code, rr.Body.String())

	var created struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))
	assert.Equal(t, store.RunQueued, created.Status)

	// Poll until the background solve finishes.
	var run store.Run
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rr = httptest.NewRecorder()
		s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+created.ID, nil))
		require.Equal(t, 200, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
		if run.Status == store.RunDone || run.Status == store.RunFailed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	require.Equal(t, store.RunDone, run.Status, "error: %s", run.Error)
	require.NotEmpty(t, run.Solution)

	var sol model.SolutionDoc
	require.NoError(t, json.Unmarshal(run.Solution, &sol))
	assert.Empty(t, sol.Unassigned)

	// Engine metrics are kept per run.
	rr = httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+created.ID+"/metrics", nil))
	assert.Equal(t, 200, rr.Code)
}

func TestRunsList(t *testing.T) {
	s := newTestServer(t)
	for i := 0; i < 3; i++ {
		rr := httptest.NewRecorder()
		s.RunsHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/runs", solveBody(t, smallProblem(), nil)))
		require.Equal(t, http.StatusAccepted, rr.Code)
	}
	rr := httptest.NewRecorder()
	s.RunsHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs?limit=2", nil))
	require.Equal(t, 200, rr.Code)
	var res struct {
		Items      []store.Run `json:"items"`
		NextCursor string      `json:"nextCursor"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &res))
	assert.Len(t, res.Items, 2)
	assert.NotEmpty(t, res.NextCursor)
}

func TestRunNotFound(t *testing.T) {
	s := newTestServer(t)
	rr := httptest.NewRecorder()
	s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/nope", nil))
	assert.Equal(t, 404, rr.Code)
}

func TestRunFailureIsRecorded(t *testing.T) {
	s := newTestServer(t)
	doc := smallProblem()
	// Seeded pinned work that exceeds capacity fails during input checks.
	doc.Jobs[0].Delivery = []int64{5}
	doc.Jobs[0].Pinned = true
	doc.Vehicles[0].Capacity = []int64{1}
	doc.Vehicles[0].Steps = []model.VehicleStepDoc{{Type: "job", ID: 1}}

	rr := httptest.NewRecorder()
	s.RunsHandler(rr, httptest.NewRequest(http.MethodPost, "/v1/runs", solveBody(t, doc, nil)))
	require.Equal(t, http.StatusAccepted, rr.Code)
	var created struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &created))

	var run store.Run
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		rr = httptest.NewRecorder()
		s.RunByIDHandler(rr, httptest.NewRequest(http.MethodGet, "/v1/runs/"+created.ID, nil))
		require.Equal(t, 200, rr.Code)
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &run))
		if run.Status == store.RunDone || run.Status == store.RunFailed {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	assert.Equal(t, store.RunFailed, run.Status)
	assert.NotEmpty(t, run.Error)
}

func TestValidateSolveRequest(t *testing.T) {
	lvl := 9
	cases := []struct {
		name string
		req  SolveRequest
		ok   bool
	}{
		{"missing problem", SolveRequest{}, false},
		{"plain problem", SolveRequest{Problem: []byte(`{}`)}, true},
		{"bad notify scheme", SolveRequest{Problem: []byte(`{}`), NotifyURL: "ftp://x"}, false},
		{"secret without url", SolveRequest{Problem: []byte(`{}`), NotifySecret: "s"}, false},
		{"exploration out of range", SolveRequest{Problem: []byte(`{}`), Options: &SolveParams{ExplorationLevel: &lvl}}, false},
		{"negative time limit", SolveRequest{Problem: []byte(`{}`), Options: &SolveParams{TimeLimitMs: -1}}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := validateSolveRequest(&tc.req)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

package serve

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/qcserestipy/gohpc/pkg/config"
	"github.com/qcserestipy/gohpc/pkg/numeric"
)

func newTestServer(t *testing.T) (*ComputeServer, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Workers = 4

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	s := New(cfg, prometheus.NewRegistry(), logger)
	ts := httptest.NewServer(s.Router)
	t.Cleanup(ts.Close)
	return s, ts
}

func post(t *testing.T, ts *httptest.Server, path, body string) (int, []byte) {
	t.Helper()
	resp, err := http.Post(ts.URL+path, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestMonteCarloRoute(t *testing.T) {
	s, ts := newTestServer(t)

	code, body := post(t, ts, "/montecarlo", `{"samples": 200000, "seed": 3, "chunk_size": 5000}`)
	require.Equal(t, http.StatusOK, code, string(body))

	var res MonteCarloResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.InDelta(t, math.Pi, res.Estimate.Pi, 0.05)
	require.Equal(t, 200000, res.Estimate.Samples)

	job, ok := s.Jobs.Get(res.Job)
	require.True(t, ok)
	require.Equal(t, StatusCompleted, job.Status)
	require.Equal(t, "montecarlo", job.Kind)
}

func TestMonteCarloDegenerateRegion(t *testing.T) {
	_, ts := newTestServer(t)
	code, body := post(t, ts, "/montecarlo",
		`{"samples": 10, "region": {"p1": {"x": 1, "y": 1}, "p2": {"x": 1, "y": 1}, "radius": 1}}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, string(body), "non-empty region")
}

func TestMatrixRoute(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := post(t, ts, "/matrix", `{"a": [[1,2],[3,4]], "b": [[5,6],[7,8]], "workers": 2, "chunk_size": 1}`)
	require.Equal(t, http.StatusOK, code, string(body))

	var res MatrixResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.Equal(t, numeric.Matrix{{19, 22}, {43, 50}}, res.Result)
}

func TestMatrixDimensionMismatch(t *testing.T) {
	s, ts := newTestServer(t)

	code, body := post(t, ts, "/matrix", `{"a": [[1,2],[3,4]], "b": [[1,2],[3,4],[5,6]]}`)
	require.Equal(t, http.StatusBadRequest, code)
	require.Contains(t, string(body), "invalid matrix dimensions")

	jobs := s.Jobs.List()
	require.Len(t, jobs, 1)
	require.Equal(t, StatusFailed, jobs[0].Status)
}

func TestIntegrateRoute(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := post(t, ts, "/integrate", `{"expr": "x*(x-1)", "a": 0, "b": 1, "h": 0.0001}`)
	require.Equal(t, http.StatusOK, code, string(body))

	var res IntegrateResponse
	require.NoError(t, json.Unmarshal(body, &res))
	require.InDelta(t, -1.0/6.0, res.Value, 1e-6)
}

func TestIntegrateRejects(t *testing.T) {
	_, ts := newTestServer(t)

	tests := []struct {
		name, body, want string
	}{
		{"zero step", `{"expr": "x", "a": 0, "b": 1, "h": 0}`, "resolution"},
		{"equal bounds", `{"expr": "x", "a": 1, "b": 1, "h": 0.1}`, "lower bound"},
		{"bad expression", `{"expr": "x +* 1", "a": 0, "b": 1, "h": 0.1}`, "expr"},
		{"missing expression", `{"a": 0, "b": 1, "h": 0.1}`, "Expr"},
		{"unknown field", `{"expr": "x", "a": 0, "b": 1, "h": 0.1, "step": 2}`, "invalid JSON"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, ts, "/integrate", tt.body)
			require.Equal(t, http.StatusBadRequest, code)
			require.Contains(t, string(body), tt.want)
		})
	}
}

func TestIntegrateNonFiniteResult(t *testing.T) {
	s, ts := newTestServer(t)

	tests := []struct {
		name, body, want string
	}{
		{"pole at lower bound", `{"expr": "1/x", "a": 0, "b": 1, "h": 0.25}`, `integrand "1/x"`},
		{"outside domain", `{"expr": "sqrt(x)", "a": -1, "b": 1, "h": 0.25}`, `integrand "sqrt(x)"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, body := post(t, ts, "/integrate", tt.body)
			require.Equal(t, http.StatusBadRequest, code, string(body))
			require.Contains(t, string(body), tt.want)
			require.Contains(t, string(body), "not finite")
		})
	}

	jobs := s.Jobs.List()
	require.Len(t, jobs, 2)
	for _, job := range jobs {
		require.Equal(t, StatusFailed, job.Status)
	}
}

func TestWorkerLimit(t *testing.T) {
	s, ts := newTestServer(t)

	for path, body := range map[string]string{
		"/montecarlo": `{"samples": 10, "workers": 100000000}`,
		"/matrix":     `{"a": [[1]], "b": [[1]], "workers": 100000000}`,
		"/integrate":  `{"expr": "x", "a": 0, "b": 1, "h": 0.5, "workers": 100000000}`,
	} {
		code, data := post(t, ts, path, body)
		require.Equalf(t, http.StatusBadRequest, code, "%s: %s", path, data)
		require.Contains(t, string(data), "limit is")
	}
	require.Empty(t, s.Jobs.List())

	limit := fmt.Sprintf(`{"samples": 10, "workers": %d}`, s.MaxWorkers)
	code, data := post(t, ts, "/montecarlo", limit)
	require.Equal(t, http.StatusOK, code, string(data))
}

func TestWriteJSONEncodeFailure(t *testing.T) {
	rec := httptest.NewRecorder()
	writeJSON(rec, http.StatusOK, math.Inf(1))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "encode error")
	require.NotEqual(t, "application/json", rec.Header().Get("Content-Type"))
}

func TestJobRoutes(t *testing.T) {
	_, ts := newTestServer(t)

	code, body := post(t, ts, "/matrix", `{"a": [[2]], "b": [[3]]}`)
	require.Equal(t, http.StatusOK, code)
	var res MatrixResponse
	require.NoError(t, json.Unmarshal(body, &res))

	resp, err := http.Get(ts.URL + "/jobs/" + res.Job)
	require.NoError(t, err)
	var job Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
	resp.Body.Close()
	require.Equal(t, res.Job, job.ID)
	require.Equal(t, StatusCompleted, job.Status)

	resp, err = http.Get(ts.URL + "/jobs")
	require.NoError(t, err)
	var jobs []Job
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&jobs))
	resp.Body.Close()
	require.Len(t, jobs, 1)

	resp, err = http.Get(ts.URL + "/jobs/not-a-uuid")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/jobs/00000000-0000-0000-0000-000000000000")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := newTestServer(t)

	code, _ := post(t, ts, "/matrix", `{"a": [[1]], "b": [[1]]}`)
	require.Equal(t, http.StatusOK, code)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	text := string(data)
	require.True(t, strings.Contains(text, `gohpc_computations_total{kind="matrix",status="completed"} 1`), text)
	require.Contains(t, text, `gohpc_units_executed_total{engine="matrix"}`)
}

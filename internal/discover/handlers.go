package discover

import (
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/croftlabs/agripulse/internal/discover/matrixprofile"
	"github.com/croftlabs/agripulse/internal/discover/rank"
	"github.com/croftlabs/agripulse/pkg/plugin"
	"github.com/croftlabs/agripulse/pkg/series"
)

// Routes implements plugin.HTTPProvider.
func (m *Module) Routes() []plugin.Route {
	return []plugin.Route{
		{Method: "POST", Path: "/runs", Handler: m.handleSubmitRun},
		{Method: "GET", Path: "/runs", Handler: m.handleListRuns},
		{Method: "GET", Path: "/runs/{run_id}", Handler: m.handleGetRun},
		{Method: "GET", Path: "/runs/{run_id}/candidates", Handler: m.handleRunCandidates},
		{Method: "POST", Path: "/matrix-profile", Handler: m.handleMatrixProfile},
	}
}

type submitRunRequest struct {
	Focus           *series.TimeSeries         `json:"focus"`
	Candidates      []*series.TimeSeries       `json:"candidates"`
	Strategies      []string                   `json:"strategies,omitempty"`
	IntervalSeconds int                        `json:"interval_seconds"`
	Embedding       []rank.EmbeddingCandidate  `json:"embedding,omitempty"`
}

type submitRunResponse struct {
	Run        *Run                         `json:"run"`
	Candidates []series.NormalizedCandidate `json:"candidates"`
}

// handleSubmitRun executes a discovery run synchronously against series
// supplied inline in the request body. Long pools should be submitted with
// a client timeout; cancellation aborts the run and records it as failed.
func (m *Module) handleSubmitRun(w http.ResponseWriter, r *http.Request) {
	var req submitRunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Focus == nil || req.Focus.SeriesID == "" {
		writeError(w, http.StatusBadRequest, "focus series is required")
		return
	}

	run, result, err := m.ExecuteRun(r.Context(), RunRequest{
		Focus:      req.Focus,
		Candidates: req.Candidates,
		Strategies: req.Strategies,
		Interval:   time.Duration(req.IntervalSeconds) * time.Second,
		Embedding:  req.Embedding,
	})
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "discovery run aborted: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, submitRunResponse{Run: run, Candidates: result.Candidates})
}

// handleListRuns returns recent runs, optionally filtered by focus sensor.
func (m *Module) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	runs, err := m.store.ListRuns(r.Context(), r.URL.Query().Get("focus_sensor_id"), parseLimit(r, 50))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	if runs == nil {
		runs = []Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one run record by ID.
func (m *Module) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	run, err := m.store.GetRun(r.Context(), r.PathValue("run_id"))
	if errors.Is(err, sql.ErrNoRows) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// handleRunCandidates returns a run's ranked candidate list.
func (m *Module) handleRunCandidates(w http.ResponseWriter, r *http.Request) {
	if m.store == nil {
		writeError(w, http.StatusServiceUnavailable, "persistence is not configured")
		return
	}
	cands, err := m.store.ListCandidates(r.Context(), r.PathValue("run_id"), parseLimit(r, 200))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list candidates")
		return
	}
	if cands == nil {
		cands = []series.NormalizedCandidate{}
	}
	writeJSON(w, http.StatusOK, cands)
}

type matrixProfileRequest struct {
	Series        *series.TimeSeries `json:"series,omitempty"`
	Values        []float64          `json:"values,omitempty"`
	Window        int                `json:"window"`
	ExclusionZone *int               `json:"exclusion_zone,omitempty"`
}

type matrixProfileResponse struct {
	Window        int        `json:"window"`
	ExclusionZone int        `json:"exclusion_zone"`
	Profile       []*float64 `json:"profile"`
	ProfileIndex  []int      `json:"profile_index"`
}

// handleMatrixProfile computes a single-series matrix profile
// synchronously. Subsequences with no admissible neighbor serialize as
// null rather than +Inf so the payload stays valid JSON.
func (m *Module) handleMatrixProfile(w http.ResponseWriter, r *http.Request) {
	var req matrixProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var (
		res series.MatrixProfileResult
		err error
	)
	ez := -1
	if req.ExclusionZone != nil {
		ez = *req.ExclusionZone
	}
	switch {
	case req.Series != nil:
		res, err = matrixprofile.FromSeries(r.Context(), req.Series, req.Window, ez)
	case len(req.Values) > 0:
		res, err = matrixprofile.Compute(r.Context(), req.Values, req.Window, ez)
	default:
		writeError(w, http.StatusBadRequest, "series or values is required")
		return
	}
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "matrix profile aborted: "+err.Error())
		return
	}

	resp := matrixProfileResponse{
		Window:        res.Window,
		ExclusionZone: res.ExclusionZone,
		Profile:       make([]*float64, len(res.Profile)),
		ProfileIndex:  res.ProfileIndex,
	}
	for i, d := range res.Profile {
		if !math.IsInf(d, 1) {
			v := d
			resp.Profile[i] = &v
		}
	}
	if resp.ProfileIndex == nil {
		resp.ProfileIndex = []int{}
	}
	writeJSON(w, http.StatusOK, resp)
}

// -- helpers --

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"type":   "https://agripulse.dev/problems/" + http.StatusText(status),
		"title":  http.StatusText(status),
		"status": status,
		"detail": detail,
	})
}

func parseLimit(r *http.Request, defaultLimit int) int {
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 1000 {
			return n
		}
	}
	return defaultLimit
}

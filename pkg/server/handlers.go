package server

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/Siddhant-K-code/minelab/pkg/errors"
	"github.com/Siddhant-K-code/minelab/pkg/service"
	"github.com/Siddhant-K-code/minelab/pkg/source"
	"github.com/Siddhant-K-code/minelab/pkg/sse"
	"github.com/Siddhant-K-code/minelab/pkg/types"
)

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Error string `json:"error"`
	Param string `json:"param,omitempty"`
}

// SweepStats accompanies the complete event of a streamed sweep.
type SweepStats struct {
	Runs      int   `json:"runs"`
	LatencyMs int64 `json:"latencyMs"`
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"name":      "minelab API",
		"version":   "1.0.0",
		"endpoints": Endpoints(),
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleKMeans(w http.ResponseWriter, r *http.Request) {
	var req service.KMeansRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.RunKMeans(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleSweep(w http.ResponseWriter, r *http.Request) {
	var req service.SweepRequest
	if !s.decode(w, r, &req) {
		return
	}

	if !strings.Contains(r.Header.Get("Accept"), "text/event-stream") {
		resp, err := s.svc.Sweep(r.Context(), req, nil)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, resp)
		return
	}

	sw := sse.NewWriter(w)
	if sw == nil {
		writeError(w, http.StatusInternalServerError, "streaming not supported", "")
		return
	}

	timer := sse.NewStageTimer(sse.StageSweep)
	_ = sw.SendProgress(sse.StageLoad, 0)

	resp, err := s.svc.Sweep(r.Context(), req, func(p types.SweepPoint, done, total int) {
		_ = sw.SendProgressWithStats(sse.StageSweep, float64(done)/float64(total), p)
	})
	if err != nil {
		s.log.Warnw("sweep stream failed", "error", err)
		_ = sw.SendError(sse.StageSweep, err.Error())
		return
	}

	_ = sw.SendProgress(sse.StageSelect, 1)
	_ = sw.SendComplete(resp, SweepStats{
		Runs:      len(resp.Result.Points),
		LatencyMs: timer.ElapsedMs(),
	})
}

func (s *Server) handleApriori(w http.ResponseWriter, r *http.Request) {
	var req service.MineRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Mine(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	var req service.TransactionsRequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.MineTransactions(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePCA(w http.ResponseWriter, r *http.Request) {
	var req service.PCARequest
	if !s.decode(w, r, &req) {
		return
	}
	resp, err := s.svc.Project(r.Context(), req)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Datasets())
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.fail(w, r, errors.InvalidParameter("limit", "must be a non-negative integer, got %q", v))
			return
		}
		limit = n
	}

	runs, err := s.svc.ListRuns(r.Context(), r.URL.Query().Get("kind"), limit)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.svc.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// decode reads a JSON body into v. An empty body leaves v at its zero value.
// It writes the error response itself and reports whether to continue.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	body := r.Body
	if s.cfg.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.cfg.MaxBodyBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body exceeds "+strconv.FormatInt(tooLarge.Limit, 10)+" bytes", "")
			return false
		}
		writeError(w, http.StatusBadRequest, "failed to read body: "+err.Error(), "")
		return false
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return true
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON: "+err.Error(), "")
		return false
	}
	return true
}

// fail maps err onto a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.log.Errorw("request failed", "path", r.URL.Path, "error", err)
	} else {
		s.log.Debugw("request rejected", "path", r.URL.Path, "status", status, "error", err)
	}
	writeError(w, status, err.Error(), errors.ParamOf(err))
}

// StatusOf maps service errors onto HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.IsInvalidParameter(err):
		return http.StatusBadRequest
	case errors.IsComputation(err):
		return http.StatusUnprocessableEntity
	case errors.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, service.ErrHistoryDisabled), errors.Is(err, source.ErrUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode response", "")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg, param string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: msg, Param: param})
}

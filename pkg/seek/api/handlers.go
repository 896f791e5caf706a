package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/jamesainslie/seek/pkg/seek/catalog"
	"github.com/jamesainslie/seek/pkg/seek/output"
	"github.com/jamesainslie/seek/pkg/seek/session"
	"github.com/jamesainslie/seek/pkg/seek/types"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("encoding response failed", "error", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed on %s", r.Method, r.URL.Path))
}

// errorStatus maps the error taxonomy onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, types.ErrInvalidRequest):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrNoCatalog), errors.Is(err, session.ErrNoSession):
		return http.StatusNotFound
	case errors.Is(err, types.ErrSessionActive):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	keyword := r.URL.Query().Get("q")
	start := time.Now()
	rows, err := s.opts.Engine.Search(r.Context(), keyword)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	res := output.NewResult(keyword, s.opts.Engine.Current(), rows, s.opts.Engine.Limit(), time.Since(start))
	s.writeJSON(w, http.StatusOK, res)
}

func (s *Server) listCatalogs(w http.ResponseWriter, _ *http.Request) {
	entries, err := catalog.List(s.opts.CatalogDir, s.opts.Engine.Current())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

type useRequest struct {
	Name string `json:"name"`
}

func (s *Server) useCatalog(w http.ResponseWriter, r *http.Request) {
	var req useRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("body must be {\"name\": \"<snapshot>\"}"))
		return
	}
	path, err := catalog.Resolve(s.opts.CatalogDir, req.Name)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	if err := s.opts.Engine.Open(r.Context(), path); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]interface{}{"current": path, "records": s.opts.Engine.Records()})
}

func (s *Server) startIndex(w http.ResponseWriter, r *http.Request) {
	var req types.ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(req.Targets) == 0 && req.Scope == types.ScopeVolumes && s.opts.ListVolumes != nil {
		vols, err := s.opts.ListVolumes()
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, err)
			return
		}
		req.Targets = vols
	}

	// The session outlives this request.
	h, err := s.opts.Manager.Start(context.WithoutCancel(r.Context()), req)
	if err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, h)
}

func (s *Server) cancelIndex(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("id")
	if err := s.opts.Manager.Cancel(id); err != nil {
		s.writeError(w, errorStatus(err), err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

type lastOutcome struct {
	types.Outcome
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Error          string  `json:"error,omitempty"`
}

type statusResponse struct {
	session.Status
	Last    *lastOutcome `json:"last,omitempty"`
	Catalog string       `json:"catalog,omitempty"`
	Records int64        `json:"records"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	st := s.opts.Manager.Status()
	resp := statusResponse{
		Status:  st,
		Catalog: s.opts.Engine.Current(),
		Records: s.opts.Engine.Records(),
	}
	if st.Last != nil {
		resp.Last = &lastOutcome{Outcome: *st.Last, ElapsedSeconds: st.Last.ElapsedSeconds()}
		if st.Last.Err != nil {
			resp.Last.Error = st.Last.Err.Error()
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) listHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		s.writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	limit := 20
	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 {
		limit = l
	}
	entries, err := s.opts.History.List(limit)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, entries)
}

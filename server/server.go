// Package server exposes a facetnav engine over HTTP.
//
//	GET  /healthz     reader generation
//	POST /v1/view     count, cardinality or search
//	POST /v1/reopen   reload the snapshot and publish it
//	GET  /metrics     prometheus collectors
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jsoniter "github.com/json-iterator/go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/echoface/facetnav"
	"github.com/echoface/facetnav/config"
	"github.com/echoface/facetnav/facet"
	"github.com/echoface/facetnav/index"
	"github.com/echoface/facetnav/util"
)

// UserHeader carries the caller id into the navigation context
const UserHeader = "X-Facetnav-User"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type (
	Options struct {
		Engine *facetnav.Engine
		Index  *index.Index
		// Reload produce the snapshot published by /v1/reopen, nil disables it
		Reload func() (*index.Snapshot, error)
		// Gatherer source of /metrics, nil disables it
		Gatherer     prometheus.Gatherer
		MaxBodyBytes int64
	}

	Server struct {
		opts   Options
		router chi.Router
	}

	// ViewRequest wire form of facetnav.ViewRequest; Facet selects counting
	ViewRequest struct {
		Initial          string                  `json:"initial,omitempty"`
		Open             string                  `json:"open,omitempty"`
		Facets           []facetnav.FacetValue   `json:"facets,omitempty"`
		Ranges           []*facet.Range          `json:"ranges,omitempty"`
		InheritedFilters map[string][]string     `json:"inheritedFilters,omitempty"`
		Hits             *facetnav.HitsRequested `json:"hits,omitempty"`
		Facet            string                  `json:"facet,omitempty"`
	}

	ViewResponse struct {
		Length int          `json:"length"`
		IDs    []string     `json:"ids,omitempty"`
		Counts []FacetCount `json:"counts,omitempty"`
	}

	FacetCount struct {
		Value string `json:"value"`
		Count int    `json:"count"`
	}

	errorResponse struct {
		Error string `json:"error"`
	}
)

func New(opts Options) *Server {
	s := &Server{opts: opts}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recoverer, middleware.StripSlashes)

	r.Get("/healthz", s.health)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/view", s.view)
		r.Post("/reopen", s.reopen)
	})
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe serve until ctx is done, then shut down gracefully
func (s *Server) ListenAndServe(ctx context.Context, cfg config.ServerConfig) error {
	srv := &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	errCh := make(chan error, 1)
	go func() {
		util.LogInfo("facetnav listening on %s", cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"generation": s.opts.Index.Generation(),
	})
}

func (s *Server) view(w http.ResponseWriter, r *http.Request) {
	if s.opts.MaxBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}
	wire := &ViewRequest{}
	if err := json.NewDecoder(r.Body).Decode(wire); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	req, err := s.toViewRequest(wire)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	nc := &facetnav.Context{UserID: r.Header.Get(UserHeader)}
	res, err := s.opts.Engine.View(r.Context(), nc, req)
	switch {
	case errors.Is(err, facetnav.ErrIllegalArgument):
		writeError(w, http.StatusBadRequest, err)
		return
	case err != nil:
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}

	resp := &ViewResponse{Length: res.Length(), IDs: res.IDs()}
	if len(wire.Facet) > 0 {
		counts := req.FacetCounts[wire.Facet]
		for _, value := range facetnav.SortedCounts(counts) {
			resp.Counts = append(resp.Counts, FacetCount{Value: value, Count: counts[value].Value()})
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) toViewRequest(wire *ViewRequest) (*facetnav.ViewRequest, error) {
	req := &facetnav.ViewRequest{
		Facets:           wire.Facets,
		Ranges:           wire.Ranges,
		InheritedFilters: wire.InheritedFilters,
		Hits:             wire.Hits,
	}
	var err error
	if len(wire.Initial) > 0 {
		if req.Initial, err = s.opts.Engine.Parse(wire.Initial); err != nil {
			return nil, err
		}
	}
	if len(wire.Open) > 0 {
		if req.Open, err = s.opts.Engine.Parse(wire.Open); err != nil {
			return nil, err
		}
	}
	if len(wire.Facet) > 0 {
		req.FacetCounts = facetnav.NewCountRequest(wire.Facet)
	}
	return req, nil
}

func (s *Server) reopen(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Reload == nil {
		writeError(w, http.StatusNotImplemented, errors.New("reload not configured"))
		return
	}
	snap, err := s.opts.Reload()
	if err != nil {
		util.LogErr("reload snapshot fail:%s", err.Error())
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	generation, err := s.opts.Index.Reopen(snap)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err)
		return
	}
	util.LogInfo("published snapshot generation:%d docs:%d", generation, snap.NumDocs())
	writeJSON(w, http.StatusOK, map[string]interface{}{"generation": generation, "docs": snap.NumDocs()})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.LogErr("write response fail:%s", err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, &errorResponse{Error: err.Error()})
}

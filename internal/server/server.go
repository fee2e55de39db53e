// Package server exposes the coordinator over HTTP: JSON endpoints for
// source listings, views and metrics, control endpoints for starting and
// stopping tails, and a websocket stream carrying coalesced update signals.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/igralabs/nodedeck/internal/logfmt"
	"github.com/igralabs/nodedeck/internal/source"
	"github.com/igralabs/nodedeck/internal/tail"
)

// Server routes HTTP and websocket traffic to a coordinator.
type Server struct {
	coord  *tail.Coordinator
	log    *zap.Logger
	router chi.Router
	http   *http.Server
}

// New builds the router over the coordinator.
func New(coord *tail.Coordinator, bind string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{coord: coord, log: log, router: chi.NewRouter()}

	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.Recoverer)

	s.router.Get("/health", s.handleHealth)
	s.router.Get("/api/sources", s.handleSources)
	s.router.Get("/api/view", s.handleView)
	s.router.Get("/api/metrics", s.handleMetrics)
	s.router.Post("/api/tail/{source}/start", s.handleStart)
	s.router.Post("/api/tail/{source}/stop", s.handleStop)
	s.router.Get("/ws", s.handleWS)

	s.http = &http.Server{
		Addr:              bind,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe blocks serving requests until Shutdown.
func (s *Server) ListenAndServe() error {
	s.log.Info("http api listening", zap.String("bind", s.http.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type sourceJSON struct {
	ID          string `json:"id"`
	ServiceType string `json:"service_type"`
	State       string `json:"state"`
	Stale       bool   `json:"stale"`
	Lines       int    `json:"lines"`
	Total       uint64 `json:"total"`
}

type lineJSON struct {
	Source  string `json:"source"`
	Time    string `json:"time,omitempty"`
	Level   string `json:"level"`
	Module  string `json:"module,omitempty"`
	Message string `json:"message"`
}

type groupJSON struct {
	Level  string     `json:"level"`
	Module string     `json:"module,omitempty"`
	Lines  []lineJSON `json:"lines"`
}

type viewJSON struct {
	Source     string      `json:"source"`
	Mode       string      `json:"mode"`
	Lines      []lineJSON  `json:"lines,omitempty"`
	Groups     []groupJSON `json:"groups,omitempty"`
	Total      uint64      `json:"total"`
	FirstSeq   uint64      `json:"first_seq"`
	LastUpdate time.Time   `json:"last_update"`
	Stale      bool        `json:"stale"`
	State      string      `json:"state"`
}

type metricsJSON struct {
	Fields    map[string]string `json:"fields,omitempty"`
	Primary   string            `json:"primary,omitempty"`
	Secondary string            `json:"secondary,omitempty"`
	Stale     bool              `json:"stale"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func toLineJSON(l logfmt.Line) lineJSON {
	return lineJSON{
		Source:  l.Source,
		Time:    l.TimeShort,
		Level:   l.Level.String(),
		Module:  l.ModuleShort,
		Message: l.Message,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	statuses := s.coord.Sources()
	out := make([]sourceJSON, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, sourceJSON{
			ID:          st.ID,
			ServiceType: st.ServiceType,
			State:       st.State.String(),
			Stale:       st.Stale,
			Lines:       st.Lines,
			Total:       st.Total,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("source")
	mode := tail.ModeChronological
	if r.URL.Query().Get("mode") == "grouped" {
		mode = tail.ModeGrouped
	}

	filters := logfmt.Filters{
		Substring: r.URL.Query().Get("q"),
		Module:    r.URL.Query().Get("module"),
	}
	if levels := r.URL.Query().Get("levels"); levels != "" {
		for _, name := range strings.Split(levels, ",") {
			if lvl := logfmt.ParseLevel(name); lvl != logfmt.LevelUnknown {
				filters.Levels = append(filters.Levels, lvl)
			}
		}
	}

	v, err := s.coord.View(id, mode, filters)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := viewJSON{
		Source:     v.Source,
		Mode:       "chronological",
		Total:      v.Total,
		FirstSeq:   v.FirstSeq,
		LastUpdate: v.LastUpdate,
		Stale:      v.Stale,
		State:      v.State.String(),
	}
	if mode == tail.ModeGrouped {
		out.Mode = "grouped"
		for _, g := range v.Groups {
			gj := groupJSON{Level: g.Level.String(), Module: g.Module}
			for _, l := range g.Lines {
				gj.Lines = append(gj.Lines, toLineJSON(l))
			}
			out.Groups = append(out.Groups, gj)
		}
	} else {
		for _, l := range v.Lines {
			out.Lines = append(out.Lines, toLineJSON(l))
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if id := r.URL.Query().Get("source"); id != "" {
		snap, err := s.coord.Metrics(id)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, metricsJSON{
			Fields:    snap.Fields,
			Primary:   snap.Primary,
			Secondary: snap.Secondary,
			Stale:     snap.Stale,
			UpdatedAt: snap.UpdatedAt,
		})
		return
	}

	all := s.coord.MetricsAll()
	out := make(map[string]metricsJSON, len(all))
	for id, snap := range all {
		out[id] = metricsJSON{
			Fields:    snap.Fields,
			Primary:   snap.Primary,
			Secondary: snap.Secondary,
			Stale:     snap.Stale,
			UpdatedAt: snap.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "source")
	if err := s.coord.StartTail(id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source": id, "status": "started"})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "source")
	if err := s.coord.StopTail(id); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source": id, "status": "stopped"})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, source.ErrUnknownSource) {
		status = http.StatusNotFound
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

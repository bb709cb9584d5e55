// Package server exposes a built dashboard over a read-only JSON API.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"go.uber.org/zap"

	"healthdash/internal/analysis"
	"healthdash/internal/config"
	"healthdash/internal/dashboard"
	"healthdash/internal/loader"
	"healthdash/internal/record"
)

const (
	defaultTopN = 10
	maxTopN     = 1000
)

// Server serves one immutable dashboard.
type Server struct {
	dash   *dashboard.Dashboard
	cfg    config.ServerConfig
	logger *zap.Logger
	router chi.Router
}

// New wires the routes for d.
func New(d *dashboard.Dashboard, cfg config.ServerConfig, logger *zap.Logger) *Server {
	s := &Server{
		dash:   d,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "server")),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/healthz", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", s.handleDashboard)
		r.Get("/panels", s.handlePanels)
		r.Get("/panels/{id}", s.handlePanel)
		r.Get("/records/top", s.handleTopRecords)
	})
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.Render(w, r, errNotFound("no route for "+r.URL.Path))
	})
	s.router = r
	return s
}

// Handler returns the routed handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run listens on the configured address until ctx is cancelled, then shuts
// down gracefully within the configured timeout.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Duration("elapsed", time.Since(start)))
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// PanelRef is a panel without its data.
type PanelRef struct {
	ID    string         `json:"id"`
	Title string         `json:"title"`
	Kind  dashboard.Kind `json:"kind"`
}

// Summary is the /api/dashboard response.
type Summary struct {
	Source          string               `json:"source"`
	Format          string               `json:"format"`
	GeneratedAt     time.Time            `json:"generated_at"`
	LoadedRecords   int                  `json:"loaded_records"`
	AnalysisRecords int                  `json:"analysis_records"`
	ParseFailures   map[record.Field]int `json:"parse_failures,omitempty"`
	Panels          []PanelRef           `json:"panels"`
	Skipped         []dashboard.Skip     `json:"skipped"`
}

func (s *Server) panelRefs() []PanelRef {
	refs := make([]PanelRef, len(s.dash.Panels))
	for i, p := range s.dash.Panels {
		refs[i] = PanelRef{ID: p.ID, Title: p.Title, Kind: p.Kind}
	}
	return refs
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d := s.dash
	render.JSON(w, r, Summary{
		Source:          d.Source,
		Format:          d.Format,
		GeneratedAt:     d.GeneratedAt,
		LoadedRecords:   d.LoadedRecords,
		AnalysisRecords: d.AnalysisRecords,
		ParseFailures:   d.ParseFailures,
		Panels:          s.panelRefs(),
		Skipped:         d.Skipped,
	})
}

func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, s.panelRefs())
}

func (s *Server) handlePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, ok := s.dash.Panel(id)
	if !ok {
		for _, sk := range s.dash.Skipped {
			if sk.ID == id {
				render.Render(w, r, errNotFound("panel "+id+" was skipped: "+sk.Reason))
				return
			}
		}
		render.Render(w, r, errNotFound("unknown panel "+id))
		return
	}
	render.JSON(w, r, p)
}

// selectableFields are the keys /api/records/top accepts.
var selectableFields = append(append([]record.Field(nil), record.SourceFields...), record.LengthOfStay)

func (s *Server) handleTopRecords(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	n := defaultTopN
	if v := q.Get("n"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 || parsed > maxTopN {
			render.Render(w, r, errInvalidParameter(
				fmt.Sprintf("n must be an integer between 0 and %d", maxTopN),
				map[string]string{"n": v}))
			return
		}
		n = parsed
	}

	key := record.BillingAmount
	if v := q.Get("key"); v != "" {
		key = loader.NormalizeHeader(v)
		if !isSelectable(key) {
			render.Render(w, r, errInvalidParameter("unknown key "+v, map[string]any{"allowed": selectableFields}))
			return
		}
	}

	order := strings.ToLower(q.Get("order"))
	switch order {
	case "":
		order = "desc"
	case "desc", "asc":
	default:
		render.Render(w, r, errInvalidParameter("order must be asc or desc", map[string]string{"order": q.Get("order")}))
		return
	}

	top := analysis.TopN(s.dash.Records, key, order == "desc", n)
	rows := make([]map[record.Field]any, len(top))
	for i := range top {
		row := make(map[record.Field]any, len(selectableFields))
		for _, f := range selectableFields {
			row[f] = top[i].Value(f)
		}
		rows[i] = row
	}
	render.JSON(w, r, map[string]any{
		"key":     key,
		"order":   order,
		"records": rows,
	})
}

func isSelectable(f record.Field) bool {
	for _, g := range selectableFields {
		if g == f {
			return true
		}
	}
	return false
}

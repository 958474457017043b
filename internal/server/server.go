// Package server exposes a log store over HTTP with the same contract the
// remote client speaks, plus read-only endpoints for computed views and
// statistics.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/walak/walak/internal/engine"
	"github.com/walak/walak/internal/logging"
	"github.com/walak/walak/internal/store"
)

// revisioned stores report a counter that changes with every write, which
// lets views be cached between writes.
type revisioned interface {
	Revision() uint64
}

type Server struct {
	repo          store.Repository
	engine        *engine.Engine
	memo          *engine.Memo
	defaultMonths int
	now           func() time.Time
}

// New serves repo. months is the default histogram width for the stats
// endpoints.
func New(repo store.Repository, eng *engine.Engine, months int) *Server {
	if months <= 0 {
		months = engine.DefaultMonths
	}
	return &Server{
		repo:          repo,
		engine:        eng,
		memo:          engine.NewMemo(eng),
		defaultMonths: months,
		now:           time.Now,
	}
}

// Handler builds the chi router with all routes and middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(recoverer)
	r.Use(requestLogger)

	r.Get("/health", s.health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/logs", func(r chi.Router) {
			r.Get("/", s.listLogs)
			r.Post("/", s.createLog)
			r.Put("/{id}", s.updateLog)
			r.Delete("/{id}", s.deleteLog)
		})
		r.Get("/frame", s.frame)
		r.Get("/stats/blocks/{key}", s.blockStats)
		r.Get("/stats/categories/{name}", s.categoryStats)
		r.Get("/taxonomy", s.taxonomy)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})
	return r
}

// Run serves on addr until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Log.WithField("addr", addr).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		logging.Log.Info("server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// dataset loads and prepares the whole collection. cacheable reports
// whether ds.Revision tracks writes.
func (s *Server) dataset(ctx context.Context) (ds engine.Dataset, cacheable bool, err error) {
	var rev uint64
	if r, ok := s.repo.(revisioned); ok {
		// Read before listing so a concurrent write can only make the
		// cache miss, never serve stale data under a newer revision.
		rev = r.Revision()
		cacheable = true
	}
	logs, err := s.repo.ListLogs(ctx)
	if err != nil {
		return engine.Dataset{}, false, err
	}
	ds = s.engine.Prepare(logs)
	ds.Revision = rev
	return ds, cacheable, nil
}

func (s *Server) view(ctx context.Context, v engine.ViewState) (engine.Result, error) {
	ds, cacheable, err := s.dataset(ctx)
	if err != nil {
		return engine.Result{}, err
	}
	if cacheable {
		return s.memo.View(ds, v, s.now()), nil
	}
	return s.engine.View(ds, v, s.now()), nil
}

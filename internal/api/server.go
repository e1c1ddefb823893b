// internal/api/server.go
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/memelaunch/launchpad/internal/curve"
	"github.com/memelaunch/launchpad/internal/governance"
	"github.com/memelaunch/launchpad/internal/leaderboard"
	"github.com/memelaunch/launchpad/internal/points"
	"github.com/memelaunch/launchpad/internal/tokens"
	"go.uber.org/zap"
)

// Services are the domain services behind the routes.
type Services struct {
	Pricer      *curve.Pricer
	Tokens      *tokens.Service
	Governance  *governance.Service
	Points      *points.Service
	Leaderboard *leaderboard.Service
}

// Server maps HTTP routes onto Services.
type Server struct {
	svc     Services
	metrics *Metrics
	logger  *zap.Logger
}

func NewServer(svc Services, metrics *Metrics, logger *zap.Logger) *Server {
	if metrics == nil {
		metrics = NewMetrics()
	}
	return &Server{
		svc:     svc,
		metrics: metrics,
		logger:  logger.Named("api"),
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/curve/quote", s.curveQuote)

		r.Route("/tokens", func(r chi.Router) {
			r.Get("/", s.listTokens)
			r.Post("/", s.createToken)
			r.Get("/link-exists", s.linkExists)
			r.Route("/{address}", func(r chi.Router) {
				r.Get("/", s.getToken)
				r.Get("/quote", s.tokenQuote)
				r.Post("/star", s.toggleStar)
				r.Get("/comments", s.listComments)
				r.Post("/comments", s.addComment)
			})
		})
		r.Get("/users/{wallet}/stars", s.starredTokens)

		r.Route("/proposals", func(r chi.Router) {
			r.Get("/", s.listProposals)
			r.Post("/", s.createProposal)
			r.Post("/validity", s.proposalValidity)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.getProposal)
				r.Get("/votes", s.listVotes)
				r.Post("/votes", s.castVote)
				r.Get("/verdict", s.verdict)
				r.Post("/close", s.closeProposal)
				r.Get("/whitelist", s.listWhitelist)
				r.Post("/whitelist", s.addWhitelist)
				r.Delete("/whitelist/{wallet}", s.removeWhitelist)
			})
		})

		r.Route("/leaderboard", func(r chi.Router) {
			r.Get("/refresh", s.refreshLeaderboard)
			r.Post("/refresh", s.refreshLeaderboard)
			r.Get("/chain", s.chainLeaderboard)
			r.Get("/{kind}", s.getLeaderboard)
		})

		r.Get("/points/{wallet}", s.getPoints)
		r.Post("/points/{wallet}/refresh", s.refreshPoints)
	})
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("Request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// Serve runs the HTTP server until ctx is done, then drains connections.
func (s *Server) Serve(ctx context.Context, addr string, readTimeout, writeTimeout time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadTimeout:       readTimeout,
		ReadHeaderTimeout: readTimeout,
		WriteTimeout:      writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return &badRequest{msg: "invalid request body: " + err.Error()}
	}
	return nil
}

package primaryserver

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/review"
	"github.com/osutaiko/Pawnpulse/src/worker"
)

// Analyzer is the engine session controller as seen by the server.
type Analyzer interface {
	Start(ctx context.Context, req models.AnalysisRequest) (uint64, error)
	Stop()
	Snapshot() models.Snapshot
	State() worker.State
	SessionID() uint64
}

// Server exposes the analysis session and game reviews over HTTP. All
// session changes go through one dispatcher goroutine.
type Server struct {
	analyzer Analyzer
	log      zerolog.Logger

	commands chan command

	mu      sync.RWMutex
	reviews map[string]*review.Review
	lastErr string
	nextID  int
}

// NewServer creates a server driving analyzer.
func NewServer(analyzer Analyzer, logger zerolog.Logger) *Server {
	return &Server{
		analyzer: analyzer,
		log:      logger,
		commands: make(chan command, 16),
		reviews:  make(map[string]*review.Review),
	}
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/analyze", s.handleAnalyze)
	mux.HandleFunc("/stop", s.handleStop)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/review", s.handleReview)
	mux.HandleFunc("/review/navigate", s.handleNavigate)
	return mux
}

// StartServer serves on addr until ctx is done.
func (s *Server) StartServer(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", addr).Msg("starting server")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

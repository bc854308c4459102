package primaryserver

import (
	"context"
	"errors"

	"github.com/osutaiko/Pawnpulse/src/models"
)

type command struct {
	req  models.AnalysisRequest
	stop bool
}

// Enqueue schedules req for the dispatcher. When the queue is full the oldest
// pending command is dropped, it would be superseded anyway.
func (s *Server) Enqueue(req models.AnalysisRequest) {
	s.push(command{req: req})
}

// EnqueueStop schedules disposal of the running session.
func (s *Server) EnqueueStop() {
	s.push(command{stop: true})
}

func (s *Server) push(cmd command) {
	for {
		select {
		case s.commands <- cmd:
			return
		default:
		}
		select {
		case dropped := <-s.commands:
			s.log.Warn().Str("fen", dropped.req.FEN).Bool("stop", dropped.stop).Msg("command queue full, dropping oldest")
		default:
		}
	}
}

// Pending reports the number of queued commands.
func (s *Server) Pending() int {
	return len(s.commands)
}

// Dispatch applies queued commands in order until ctx is done. It is the only
// caller of Start and Stop on the analyzer. A start still bringing its engine
// up is cancelled as soon as the next command arrives.
func (s *Server) Dispatch(ctx context.Context) error {
	var inflight *pendingStart
	abort := func() {
		if inflight != nil {
			inflight.cancel()
			<-inflight.done
			inflight = nil
		}
	}

	for {
		select {
		case <-ctx.Done():
			abort()
			s.analyzer.Stop()
			return nil
		case cmd := <-s.commands:
			abort()
			if cmd.stop {
				s.analyzer.Stop()
				continue
			}
			inflight = s.start(ctx, cmd.req)
		}
	}
}

type pendingStart struct {
	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Server) start(ctx context.Context, req models.AnalysisRequest) *pendingStart {
	startCtx, cancel := context.WithCancel(ctx)
	p := &pendingStart{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		defer cancel()

		id, err := s.analyzer.Start(startCtx, req)
		if errors.Is(err, context.Canceled) {
			s.log.Debug().Str("fen", req.FEN).Msg("analysis request superseded")
			return
		}

		s.mu.Lock()
		if err != nil {
			s.lastErr = err.Error()
		} else {
			s.lastErr = ""
		}
		s.mu.Unlock()
		if err != nil {
			s.log.Error().Err(err).Str("fen", req.FEN).Msg("analysis request failed")
			return
		}
		s.log.Info().Uint64("session", id).Str("fen", req.FEN).Msg("analysis session running")
	}()
	return p
}

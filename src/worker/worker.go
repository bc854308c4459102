package worker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/notnil/chess/uci"
	"github.com/rs/zerolog"

	"github.com/osutaiko/Pawnpulse/src/analysis"
	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/rules"
)

// State is the session lifecycle state.
type State int

const (
	Idle State = iota
	Starting
	Configuring
	Searching
	Stopping
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Configuring:
		return "configuring"
	case Searching:
		return "searching"
	case Stopping:
		return "stopping"
	}
	return "idle"
}

type UpdateKind int

const (
	SessionStarted UpdateKind = iota
	SnapshotUpdated
	SessionEnded
)

func (k UpdateKind) String() string {
	switch k {
	case SessionStarted:
		return "session_started"
	case SnapshotUpdated:
		return "snapshot_updated"
	}
	return "session_ended"
}

// Update is a lifecycle or snapshot notification. Err is set on a
// SessionEnded caused by a start failure or an engine exit, and is nil when
// the session was superseded or stopped.
type Update struct {
	Kind      UpdateKind
	SessionID uint64
	Request   models.AnalysisRequest
	Snapshot  models.Snapshot
	Err       error
}

type session struct {
	id   uint64
	req  models.AnalysisRequest
	proc Process
	agg  *analysis.Aggregator
	log  zerolog.Logger

	complete bool
	bestMove string
}

// Controller runs at most one engine session at a time. Start and Stop are
// meant to be driven by a single consumer; engine output is applied from a
// per-session goroutine and lines from any session other than the active one
// are dropped.
type Controller struct {
	cfg   validatedConfig
	spawn Spawner
	log   zerolog.Logger

	lifecycle sync.Mutex

	mu          sync.Mutex
	state       State
	nextID      uint64
	active      *session
	cancelStart context.CancelFunc
	snapshot    models.Snapshot
	subs        map[int]chan Update
	nextSub     int
	closed      bool

	teardown sync.WaitGroup
}

// NewController creates an idle controller. A nil spawn starts cfg.EnginePath.
func NewController(cfg Config, spawn Spawner) (*Controller, error) {
	normalized, err := validateConfig(cfg)
	if err != nil {
		return nil, err
	}
	if spawn == nil {
		spawn = ExecSpawner(normalized.enginePath)
	}
	return &Controller{
		cfg:   normalized,
		spawn: spawn,
		log:   cfg.Logger,
		subs:  make(map[int]chan Update),
	}, nil
}

// Start supersedes any running session with a new one for req. It blocks
// until the engine acknowledges the handshake and the search is issued.
// Failures to bring the engine up wrap ErrAnalysisUnavailable; the
// controller is Idle afterwards and nothing is retried.
func (c *Controller) Start(ctx context.Context, req models.AnalysisRequest) (uint64, error) {
	req, err := req.Validate()
	if err != nil {
		return 0, err
	}
	base, err := rules.NewPosition(req.FEN)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}
	agg, err := analysis.NewAggregator(base, req.MinDepth, req.MultiPV)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrInvalidRequest, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.supersede(cancel)

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()

	c.stopActive()
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return 0, ErrClosed
	}
	c.nextID++
	s := &session{
		id:  c.nextID,
		req: req,
		agg: agg,
		log: c.log.With().Uint64("session", c.nextID).Logger(),
	}
	c.state = Starting
	c.mu.Unlock()

	s.log.Info().Str("fen", base.FEN()).Int("min_depth", req.MinDepth).Int("max_depth", req.MaxDepth).
		Int("multipv", req.MultiPV).Msg("starting analysis session")

	proc, err := c.spawn(ctx)
	if err != nil {
		return 0, c.failStart(s, &OpError{Op: "spawn", Err: err})
	}
	s.proc = proc

	if err := c.handshake(ctx, proc); err != nil {
		c.closeProcess(s)
		return 0, c.failStart(s, err)
	}

	c.setState(Configuring)
	if err := c.configure(s, base); err != nil {
		c.closeProcess(s)
		return 0, c.failStart(s, err)
	}

	c.mu.Lock()
	c.state = Searching
	c.active = s
	c.snapshot = models.Snapshot{SessionID: s.id, Request: req}
	c.publishLocked(Update{Kind: SessionStarted, SessionID: s.id, Request: req, Snapshot: c.snapshot})
	c.mu.Unlock()

	go c.pump(s)

	if err := proc.Send(uci.CmdGo{Depth: req.MaxDepth}.String()); err != nil {
		s.log.Error().Err(err).Msg("search command not delivered")
		c.stopActive()
		return 0, fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
	}
	s.log.Debug().Msg("search started")
	return s.id, nil
}

// Stop disposes of the running session, if any. The engine is told to stop
// and then torn down without waiting for it to acknowledge.
func (c *Controller) Stop() {
	c.supersede(nil)
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.stopActive()
}

// Close stops the running session, closes all subscriptions and waits for
// engine processes to exit.
func (c *Controller) Close() {
	c.supersede(nil)
	c.lifecycle.Lock()
	c.stopActive()
	c.mu.Lock()
	c.closed = true
	for id, ch := range c.subs {
		close(ch)
		delete(c.subs, id)
	}
	c.mu.Unlock()
	c.lifecycle.Unlock()

	c.teardown.Wait()
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SessionID returns the active session id, 0 when idle.
func (c *Controller) SessionID() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active == nil {
		return 0
	}
	return c.active.id
}

// Snapshot returns the latest view of the active session.
func (c *Controller) Snapshot() models.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot
}

// Subscribe registers for updates. Updates that do not fit in the buffer are
// dropped for that subscriber; Snapshot always has the latest state.
func (c *Controller) Subscribe(buffer int) (<-chan Update, func()) {
	ch := make(chan Update, buffer)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		close(ch)
		return ch, func() {}
	}
	id := c.nextSub
	c.nextSub++
	c.subs[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if sub, ok := c.subs[id]; ok {
			close(sub)
			delete(c.subs, id)
		}
	}
}

// supersede aborts a Start that is still waiting on its engine.
func (c *Controller) supersede(next context.CancelFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelStart != nil {
		c.cancelStart()
	}
	c.cancelStart = next
}

func (c *Controller) handshake(ctx context.Context, proc Process) error {
	if err := proc.Send(uci.CmdUCI.String()); err != nil {
		return err
	}

	waitCtx, cancel := context.WithTimeout(ctx, c.cfg.startTimeout)
	defer cancel()
	for {
		select {
		case <-waitCtx.Done():
			return &OpError{Op: "wait uciok", Err: waitCtx.Err()}
		case line, ok := <-proc.Lines():
			if !ok {
				return &OpError{Op: "wait uciok", Err: ErrEngineStopped}
			}
			if line == "uciok" {
				return nil
			}
		}
	}
}

func (c *Controller) configure(s *session, base *rules.Position) error {
	commands := make([]string, 0, 4)
	if c.cfg.threads > 0 {
		commands = append(commands, uci.CmdSetOption{Name: "Threads", Value: strconv.Itoa(c.cfg.threads)}.String())
	}
	if c.cfg.hashMB > 0 {
		commands = append(commands, uci.CmdSetOption{Name: "Hash", Value: strconv.Itoa(c.cfg.hashMB)}.String())
	}
	commands = append(commands,
		uci.CmdSetOption{Name: "MultiPV", Value: strconv.Itoa(s.req.MultiPV)}.String(),
		uci.CmdPosition{Position: base.Chess()}.String(),
	)
	for _, cmd := range commands {
		if err := s.proc.Send(cmd); err != nil {
			return err
		}
	}
	return nil
}

// failStart returns the controller to Idle. A start cancelled by a newer
// request ends without Err, like any other superseded session.
func (c *Controller) failStart(s *session, err error) error {
	ended := Update{Kind: SessionEnded, SessionID: s.id, Request: s.req, Err: err}
	if errors.Is(err, context.Canceled) {
		s.log.Info().Msg("analysis session superseded before search")
		ended.Err = nil
	} else {
		s.log.Error().Err(err).Msg("analysis session failed to start")
	}

	c.mu.Lock()
	c.state = Idle
	c.snapshot = models.Snapshot{}
	c.publishLocked(ended)
	c.mu.Unlock()

	return fmt.Errorf("%w: %w", ErrAnalysisUnavailable, err)
}

// stopActive moves Searching -> Stopping -> Idle. Caller holds lifecycle.
func (c *Controller) stopActive() {
	c.mu.Lock()
	s := c.active
	if s == nil {
		c.mu.Unlock()
		return
	}
	c.state = Stopping
	c.active = nil
	c.mu.Unlock()

	if err := s.proc.Send(uci.CmdStop.String()); err != nil {
		s.log.Debug().Err(err).Msg("stop not delivered")
	}
	c.closeProcess(s)

	c.mu.Lock()
	c.state = Idle
	c.snapshot = models.Snapshot{}
	c.publishLocked(Update{Kind: SessionEnded, SessionID: s.id, Request: s.req})
	c.mu.Unlock()

	s.log.Info().Msg("analysis session stopped")
}

func (c *Controller) closeProcess(s *session) {
	c.teardown.Add(1)
	go func() {
		defer c.teardown.Done()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.stopTimeout)
		defer cancel()
		if err := s.proc.Close(ctx); err != nil {
			s.log.Warn().Err(err).Msg("engine teardown")
		}
	}()
}

func (c *Controller) setState(state State) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()
}

func (c *Controller) pump(s *session) {
	for line := range s.proc.Lines() {
		c.handleLine(s, line)
	}

	c.mu.Lock()
	if c.active != s {
		c.mu.Unlock()
		return
	}
	s.log.Error().Msg("engine exited during analysis")
	c.active = nil
	c.state = Idle
	c.snapshot = models.Snapshot{}
	c.publishLocked(Update{Kind: SessionEnded, SessionID: s.id, Request: s.req, Err: ErrEngineStopped})
	// Added under mu so a concurrent Close cannot start waiting before it.
	c.teardown.Add(1)
	c.mu.Unlock()

	defer c.teardown.Done()
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.stopTimeout)
	defer cancel()
	_ = s.proc.Close(ctx)
}

func (c *Controller) handleLine(s *session, line string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != s {
		s.log.Debug().Str("line", line).Msg("dropped line from stale session")
		return
	}

	if ev, ok := analysis.ParseInfoLine(line); ok {
		if _, err := s.agg.Accept(ev); err != nil {
			var terr *analysis.TranslationError
			if errors.As(err, &terr) {
				s.log.Warn().Err(err).Int("depth", ev.Depth).Int("multipv", ev.MultiPV).
					Strs("pv", ev.PV).Msg("rejected line with unplayable move")
			}
			return
		}
	} else if best, _, ok := analysis.ParseBestMoveLine(line); ok {
		s.complete = true
		s.bestMove = best
		s.log.Info().Str("bestmove", best).Int("depth", s.agg.Depth()).Msg("search complete")
	} else {
		return
	}

	c.snapshot = models.Snapshot{
		SessionID:  s.id,
		Request:    s.req,
		Depth:      s.agg.Depth(),
		Candidates: s.agg.Candidates(),
		Complete:   s.complete,
		BestMove:   s.bestMove,
	}
	c.publishLocked(Update{Kind: SnapshotUpdated, SessionID: s.id, Request: s.req, Snapshot: c.snapshot})
}

func (c *Controller) publishLocked(u Update) {
	for id, ch := range c.subs {
		select {
		case ch <- u:
		default:
			c.log.Debug().Int("subscriber", id).Str("kind", u.Kind.String()).Msg("subscriber full, update dropped")
		}
	}
}

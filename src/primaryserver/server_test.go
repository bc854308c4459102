package primaryserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/worker"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

type fakeAnalyzer struct {
	mu       sync.Mutex
	started  []models.AnalysisRequest
	stops    int
	snapshot models.Snapshot
}

func (f *fakeAnalyzer) Start(ctx context.Context, req models.AnalysisRequest) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started = append(f.started, req)
	return uint64(len(f.started)), nil
}

func (f *fakeAnalyzer) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
}

func (f *fakeAnalyzer) Snapshot() models.Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot
}

func (f *fakeAnalyzer) State() worker.State { return worker.Searching }

func (f *fakeAnalyzer) SessionID() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return uint64(len(f.started))
}

func (f *fakeAnalyzer) requests() []models.AnalysisRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.AnalysisRequest(nil), f.started...)
}

func startDispatch(t *testing.T, s *Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Dispatch(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
}

func waitRequests(t *testing.T, f *fakeAnalyzer, n int) []models.AnalysisRequest {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		reqs := f.requests()
		if len(reqs) >= n {
			return reqs
		}
		if time.Now().After(deadline) {
			t.Fatalf("got %d requests, want %d", len(reqs), n)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAnalyzeDispatchesRequest(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := NewServer(fa, zerolog.Nop())
	startDispatch(t, s)

	body := `{"fen":"` + startFEN + `","multipv":2}`
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body)))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	reqs := waitRequests(t, fa, 1)
	if reqs[0].MultiPV != 2 || reqs[0].MinDepth != 8 || reqs[0].MaxDepth != 20 {
		t.Fatalf("request = %+v, want defaults with multipv 2", reqs[0])
	}
}

func TestAnalyzeRejectsBadRequests(t *testing.T) {
	s := NewServer(&fakeAnalyzer{}, zerolog.Nop())
	bodies := []string{
		`not json`,
		`{"fen":""}`,
		`{"fen":"garbage"}`,
		`{"fen":"` + startFEN + `","min_depth":10,"max_depth":5}`,
	}
	for _, body := range bodies {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/analyze", strings.NewReader(body)))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("body %s: status = %d, want 400", body, rec.Code)
		}
	}
	if s.Pending() != 0 {
		t.Fatalf("Pending() = %d, want 0", s.Pending())
	}
}

func TestSnapshotRendersPlaceholders(t *testing.T) {
	cp := 42
	fa := &fakeAnalyzer{snapshot: models.Snapshot{
		SessionID: 1,
		Request:   models.DefaultRequest(startFEN),
		Depth:     9,
		Candidates: []models.Candidate{
			{Rank: 1, Depth: 9, ScoreCP: &cp, Continuation: []string{"e4", "e5"}},
		},
	}}
	s := NewServer(fa, zerolog.Nop())

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/snapshot", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp snapshotResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Depth != 9 || len(resp.Rows) != 3 {
		t.Fatalf("response = %+v", resp)
	}
	if resp.Rows[0].Eval != "+0.42" || resp.Rows[0].Best != "e4" || resp.Rows[0].Rest != "e5" {
		t.Fatalf("rows[0] = %+v", resp.Rows[0])
	}
	if resp.Rows[2].Best != models.Placeholder {
		t.Fatalf("rows[2] = %+v, want placeholder", resp.Rows[2])
	}
}

func TestReviewNavigationRequestsAnalysis(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := NewServer(fa, zerolog.Nop())
	startDispatch(t, s)

	sub, _ := json.Marshal(models.ReviewSubmission{PGN: "[Event \"x\"]\n\n1. e4 e5 2. Nf3 *"})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/review", strings.NewReader(string(sub))))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var view models.ReviewView
	if err := json.NewDecoder(rec.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Plies != 3 || view.Ply != 0 {
		t.Fatalf("view = %+v", view)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/review/navigate?id="+view.ID+"&to=right", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("navigate status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var nav navigateResponse
	if err := json.NewDecoder(rec.Body).Decode(&nav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if nav.Review.Ply != 1 || nav.Request.FEN != nav.Review.FEN {
		t.Fatalf("navigate = %+v", nav)
	}

	reqs := waitRequests(t, fa, 2)
	if reqs[0].FEN != startFEN || reqs[1].FEN != nav.Review.FEN {
		t.Fatalf("requests = %+v", reqs)
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/review/navigate?id=missing&to=right", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing review status = %d, want 404", rec.Code)
	}
}

func TestQueueDropsOldestWhenFull(t *testing.T) {
	s := NewServer(&fakeAnalyzer{}, zerolog.Nop())
	for i := 1; i <= cap(s.commands)+3; i++ {
		req := models.DefaultRequest(startFEN)
		req.MaxDepth = 20 + i
		s.Enqueue(req)
	}
	if s.Pending() != cap(s.commands) {
		t.Fatalf("Pending() = %d, want %d", s.Pending(), cap(s.commands))
	}
	first := <-s.commands
	if first.req.MaxDepth != 24 {
		t.Fatalf("oldest kept max depth = %d, want 24", first.req.MaxDepth)
	}
}

func TestStopDispatches(t *testing.T) {
	fa := &fakeAnalyzer{}
	s := NewServer(fa, zerolog.Nop())
	startDispatch(t, s)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/stop", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d", rec.Code)
	}
	deadline := time.Now().Add(2 * time.Second)
	for {
		fa.mu.Lock()
		stops := fa.stops
		fa.mu.Unlock()
		if stops >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("stop was not dispatched")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// silentEngine answers the handshake only when ack is set.
type silentEngine struct {
	mu     sync.Mutex
	lines  chan string
	ack    bool
	closed bool
}

func (e *silentEngine) Send(command string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return worker.ErrEngineStopped
	}
	if command == "uci" && e.ack {
		e.lines <- "uciok"
	}
	return nil
}

func (e *silentEngine) Lines() <-chan string { return e.lines }

func (e *silentEngine) Close(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.lines)
	}
	return nil
}

func TestNewRequestCancelsStalledStart(t *testing.T) {
	var mu sync.Mutex
	spawned := 0
	spawn := func(ctx context.Context) (worker.Process, error) {
		mu.Lock()
		defer mu.Unlock()
		spawned++
		return &silentEngine{lines: make(chan string, 16), ack: spawned > 1}, nil
	}
	c, err := worker.NewController(worker.Config{StartTimeout: 5 * time.Second, StopTimeout: 50 * time.Millisecond}, spawn)
	if err != nil {
		t.Fatalf("NewController() error = %v", err)
	}
	t.Cleanup(c.Close)

	s := NewServer(c, zerolog.Nop())
	startDispatch(t, s)

	s.Enqueue(models.DefaultRequest(startFEN))
	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := spawned
		mu.Unlock()
		if n >= 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("first engine was not spawned")
		}
		time.Sleep(5 * time.Millisecond)
	}

	begin := time.Now()
	next := models.DefaultRequest(startFEN)
	next.MaxDepth = 30
	s.Enqueue(next)

	for c.State() != worker.Searching || c.Snapshot().Request.MaxDepth != 30 {
		if time.Since(begin) > time.Second {
			t.Fatalf("newer request not active after %v, state = %v", time.Since(begin), c.State())
		}
		time.Sleep(5 * time.Millisecond)
	}

	s.mu.RLock()
	lastErr := s.lastErr
	s.mu.RUnlock()
	if lastErr != "" {
		t.Fatalf("lastErr = %q, want empty", lastErr)
	}
}

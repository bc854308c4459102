package worker

import (
	"bufio"
	"context"
	"io"
	"os/exec"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/notnil/chess/uci"
)

// Process is the message boundary to one running engine: commands go in,
// an ordered stream of output lines comes out. Lines is closed when the
// engine exits or the process is closed.
type Process interface {
	Send(command string) error
	Lines() <-chan string
	Close(ctx context.Context) error
}

// Spawner starts a fresh engine process.
type Spawner func(ctx context.Context) (Process, error)

// ExecSpawner starts the engine binary at path, or stockfish from PATH.
func ExecSpawner(path string) Spawner {
	return func(ctx context.Context) (Process, error) {
		binary, err := resolveBinaryPath(path)
		if err != nil {
			return nil, &OpError{Op: "resolve binary", Err: err}
		}
		engine, err := StartEngine(ctx, binary)
		if err != nil {
			return nil, err
		}
		return engine, nil
	}
}

// ChessEngine wraps a UCI chess engine subprocess.
type ChessEngine struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser

	lines    chan string
	waitDone chan struct{}
	stopCh   chan struct{}

	mu        sync.Mutex
	closeOnce sync.Once
	alive     atomic.Bool
}

// StartEngine launches binary. The context only bounds process creation.
func StartEngine(ctx context.Context, binary string) (*ChessEngine, error) {
	if err := ctx.Err(); err != nil {
		return nil, &OpError{Op: "start process", Err: err}
	}
	cmd := exec.Command(binary)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &OpError{Op: "stdin pipe", Err: err}
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, &OpError{Op: "stdout pipe", Err: err}
	}
	cmd.Stderr = io.Discard

	if err := cmd.Start(); err != nil {
		return nil, &OpError{Op: "start process", Err: err}
	}

	engine := &ChessEngine{
		cmd:      cmd,
		stdin:    stdin,
		stdout:   stdout,
		lines:    make(chan string, 1024),
		waitDone: make(chan struct{}),
		stopCh:   make(chan struct{}),
	}
	engine.alive.Store(true)

	go engine.readLoop()
	go func() {
		_ = cmd.Wait()
		engine.alive.Store(false)
		close(engine.waitDone)
	}()

	return engine, nil
}

func (e *ChessEngine) Lines() <-chan string {
	return e.lines
}

func (e *ChessEngine) Send(command string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.alive.Load() {
		return ErrEngineStopped
	}
	if _, err := io.WriteString(e.stdin, command+"\n"); err != nil {
		e.alive.Store(false)
		return &OpError{Op: "write command", Err: err}
	}
	return nil
}

// Close asks the engine to quit and kills it once ctx is done.
func (e *ChessEngine) Close(ctx context.Context) error {
	var closeErr error
	e.closeOnce.Do(func() {
		_ = e.Send(uci.CmdQuit.String())
		close(e.stopCh)

		select {
		case <-ctx.Done():
			if e.cmd.Process != nil {
				if killErr := e.cmd.Process.Kill(); killErr != nil {
					closeErr = &OpError{Op: "kill process", Err: killErr}
				}
			}
			<-e.waitDone
		case <-e.waitDone:
		}

		e.alive.Store(false)
		_ = e.stdin.Close()
	})
	return closeErr
}

func (e *ChessEngine) readLoop() {
	defer close(e.lines)

	scanner := bufio.NewScanner(e.stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		select {
		case <-e.stopCh:
			return
		case e.lines <- line:
		}
	}
}

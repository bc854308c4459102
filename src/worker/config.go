package worker

import (
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultEngine       = "stockfish"
	defaultStartTimeout = 5 * time.Second
	defaultStopTimeout  = 2 * time.Second
)

// Config configures the engine session controller.
type Config struct {
	EnginePath   string        // binary name or path, defaults to stockfish on PATH
	Threads      int           // engine Threads option, unset when 0
	HashMB       int           // engine Hash option, unset when 0
	StartTimeout time.Duration // bound on the wait for uciok
	StopTimeout  time.Duration // bound on process exit after quit before it is killed
	Logger       zerolog.Logger
}

type validatedConfig struct {
	enginePath   string
	threads      int
	hashMB       int
	startTimeout time.Duration
	stopTimeout  time.Duration
}

func validateConfig(cfg Config) (validatedConfig, error) {
	if cfg.Threads < 0 {
		return validatedConfig{}, fmt.Errorf("threads must be >= 0")
	}
	if cfg.HashMB < 0 {
		return validatedConfig{}, fmt.Errorf("hash must be >= 0 MB")
	}

	startTimeout := cfg.StartTimeout
	if startTimeout <= 0 {
		startTimeout = defaultStartTimeout
	}
	stopTimeout := cfg.StopTimeout
	if stopTimeout <= 0 {
		stopTimeout = defaultStopTimeout
	}

	return validatedConfig{
		enginePath:   strings.TrimSpace(cfg.EnginePath),
		threads:      cfg.Threads,
		hashMB:       cfg.HashMB,
		startTimeout: startTimeout,
		stopTimeout:  stopTimeout,
	}, nil
}

func resolveBinaryPath(configuredPath string) (string, error) {
	if configuredPath != "" {
		if found, err := exec.LookPath(configuredPath); err == nil {
			return found, nil
		}
	}

	if found, err := exec.LookPath(defaultEngine); err == nil {
		return found, nil
	}

	if configuredPath == "" {
		return "", fmt.Errorf("%s binary not found in PATH", defaultEngine)
	}
	return "", fmt.Errorf("engine binary not found at %q and default lookup failed", configuredPath)
}

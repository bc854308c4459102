package worker

import (
	"errors"
	"fmt"
)

var (
	// ErrAnalysisUnavailable wraps every failure to bring up an engine session.
	ErrAnalysisUnavailable = errors.New("analysis unavailable")
	ErrEngineStopped       = errors.New("engine is not running")
	ErrClosed              = errors.New("controller is closed")
)

// OpError records which engine operation failed.
type OpError struct {
	Op  string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("engine %s: %v", e.Op, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

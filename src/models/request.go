package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidRequest is returned for analysis requests that fail validation.
var ErrInvalidRequest = errors.New("invalid analysis request")

// MaxMultiPV is the largest line count an engine is asked for.
const MaxMultiPV = 256

// AnalysisRequest represents one analysis of one position.
// A session is bound to exactly one request; changing any field means a new session.
type AnalysisRequest struct {
	FEN      string `json:"fen"`
	MinDepth int    `json:"min_depth"`
	MaxDepth int    `json:"max_depth"`
	MultiPV  int    `json:"multipv"`
}

// DefaultRequest returns the review page defaults for the given position.
func DefaultRequest(fen string) AnalysisRequest {
	return AnalysisRequest{
		FEN:      fen,
		MinDepth: 8,
		MaxDepth: 20,
		MultiPV:  3,
	}
}

// Validate normalizes the FEN and checks the depth and line bounds.
func (r AnalysisRequest) Validate() (AnalysisRequest, error) {
	fen := strings.TrimSpace(r.FEN)
	if fen == "" {
		return r, fmt.Errorf("%w: fen must not be empty", ErrInvalidRequest)
	}
	if strings.ContainsAny(fen, "\r\n") {
		return r, fmt.Errorf("%w: fen must be single-line", ErrInvalidRequest)
	}
	if r.MinDepth < 1 {
		return r, fmt.Errorf("%w: min depth %d must be >= 1", ErrInvalidRequest, r.MinDepth)
	}
	if r.MaxDepth < r.MinDepth {
		return r, fmt.Errorf("%w: max depth %d must be >= min depth %d", ErrInvalidRequest, r.MaxDepth, r.MinDepth)
	}
	if r.MultiPV < 1 {
		return r, fmt.Errorf("%w: multipv %d must be >= 1", ErrInvalidRequest, r.MultiPV)
	}
	if r.MultiPV > MaxMultiPV {
		return r, fmt.Errorf("%w: multipv %d exceeds %d", ErrInvalidRequest, r.MultiPV, MaxMultiPV)
	}
	r.FEN = fen
	return r, nil
}

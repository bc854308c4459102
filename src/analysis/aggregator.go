// Package analysis turns raw engine output into ranked, White-relative,
// SAN-annotated candidate lines.
package analysis

import (
	"errors"
	"fmt"
	"sort"

	"github.com/osutaiko/Pawnpulse/src/models"
	"github.com/osutaiko/Pawnpulse/src/rules"
)

var (
	ErrBelowMinDepth   = errors.New("event depth below minimum")
	ErrRankOutOfRange  = errors.New("event rank out of range")
	ErrInvalidMultiPV  = errors.New("multipv must be >= 1")
	ErrInvalidMinDepth = errors.New("min depth must be >= 1")
)

// Aggregator keeps the latest candidate per rank for one analysed position.
// It is not safe for concurrent use; the session that owns it serializes access.
type Aggregator struct {
	base     *rules.Position
	minDepth int
	multiPV  int

	candidates map[int]models.Candidate
	depth      int
}

// NewAggregator creates an empty aggregator for the given position and bounds.
func NewAggregator(base *rules.Position, minDepth, multiPV int) (*Aggregator, error) {
	if minDepth < 1 {
		return nil, ErrInvalidMinDepth
	}
	if multiPV < 1 {
		return nil, ErrInvalidMultiPV
	}
	return &Aggregator{
		base:       base,
		minDepth:   minDepth,
		multiPV:    multiPV,
		candidates: make(map[int]models.Candidate, multiPV),
	}, nil
}

// Reset drops all candidates and sets a new depth floor.
func (a *Aggregator) Reset(minDepth int) {
	if minDepth >= 1 {
		a.minDepth = minDepth
	}
	a.candidates = make(map[int]models.Candidate, a.multiPV)
	a.depth = 0
}

// Accept applies one event. The stored candidate for the event's rank is
// replaced unconditionally, even by a shallower depth. On error the state is
// unchanged: ErrBelowMinDepth and ErrRankOutOfRange for bound violations, a
// *TranslationError when the line contains an illegal move.
func (a *Aggregator) Accept(ev models.SearchInfoEvent) (models.Candidate, error) {
	if ev.Depth < a.minDepth {
		return models.Candidate{}, fmt.Errorf("%w: %d < %d", ErrBelowMinDepth, ev.Depth, a.minDepth)
	}
	if ev.MultiPV < 1 || ev.MultiPV > a.multiPV {
		return models.Candidate{}, fmt.Errorf("%w: %d not in [1, %d]", ErrRankOutOfRange, ev.MultiPV, a.multiPV)
	}

	sans, err := TranslateFrom(a.base, ev.PV)
	if err != nil {
		return models.Candidate{}, err
	}

	c := models.Candidate{
		Rank:         ev.MultiPV,
		Depth:        ev.Depth,
		ScoreCP:      whiteRelative(ev.ScoreCP, a.base.SideToMove()),
		Mate:         whiteRelative(ev.Mate, a.base.SideToMove()),
		Continuation: sans,
		PV:           append([]string(nil), ev.PV...),
	}
	a.candidates[c.Rank] = c
	if ev.Depth > a.depth {
		a.depth = ev.Depth
	}
	return c, nil
}

// Depth is the deepest accepted depth since the last reset, 0 if none.
func (a *Aggregator) Depth() int {
	return a.depth
}

// Candidate returns the stored candidate for rank.
func (a *Aggregator) Candidate(rank int) (models.Candidate, bool) {
	c, ok := a.candidates[rank]
	return c, ok
}

// Candidates returns the stored candidates ordered by rank.
func (a *Aggregator) Candidates() []models.Candidate {
	out := make([]models.Candidate, 0, len(a.candidates))
	for _, c := range a.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Rank < out[j].Rank
	})
	return out
}

func whiteRelative(score *int, side rules.Side) *int {
	if score == nil {
		return nil
	}
	v := *score
	if side == rules.Black {
		v = -v
	}
	return &v
}

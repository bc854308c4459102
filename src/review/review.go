// Package review holds a finished game being reviewed: its move list, the
// position at every ply and the precomputed move quality metadata.
package review

import (
	"errors"
	"fmt"
	"strings"

	"github.com/corentings/chess"

	"github.com/osutaiko/Pawnpulse/src/models"
)

// Navigation targets accepted by Navigate.
const (
	NavStart = "start"
	NavLeft  = "left"
	NavRight = "right"
	NavEnd   = "end"
)

var ErrUnknownNavigation = errors.New("unknown navigation")

// Review is a loaded game with a cursor at the current ply.
// Ply 0 is the initial position; ply n is the position after n moves.
type Review struct {
	id       string
	sans     []string
	fens     []string
	analyses []models.MoveAnalysis
	ply      int
}

// New parses sub.PGN. When analyses are supplied there must be exactly one per move.
func New(id string, sub models.ReviewSubmission) (*Review, error) {
	opt, err := chess.PGN(strings.NewReader(sub.PGN))
	if err != nil {
		return nil, fmt.Errorf("invalid PGN: %w", err)
	}
	game := chess.NewGame(opt)

	moves := game.Moves()
	positions := game.Positions()
	if len(positions) != len(moves)+1 {
		return nil, fmt.Errorf("invalid PGN: %d positions for %d moves", len(positions), len(moves))
	}
	if len(sub.Analyses) > 0 && len(sub.Analyses) != len(moves) {
		return nil, fmt.Errorf("%d move analyses for %d moves", len(sub.Analyses), len(moves))
	}

	r := &Review{
		id:       id,
		sans:     make([]string, len(moves)),
		fens:     make([]string, len(positions)),
		analyses: append([]models.MoveAnalysis(nil), sub.Analyses...),
	}
	for i, m := range moves {
		r.sans[i] = chess.AlgebraicNotation{}.Encode(positions[i], m)
	}
	for i, p := range positions {
		r.fens[i] = p.String()
	}
	return r, nil
}

func (r *Review) ID() string { return r.id }

// Plies is the number of moves in the game.
func (r *Review) Plies() int { return len(r.sans) }

func (r *Review) Ply() int { return r.ply }

// Moves returns the game's moves in SAN.
func (r *Review) Moves() []string {
	return append([]string(nil), r.sans...)
}

// FEN returns the position at the current ply.
func (r *Review) FEN() string { return r.fens[r.ply] }

// Status is complete once move analyses are attached.
func (r *Review) Status() models.ReviewStatus {
	if len(r.analyses) == 0 {
		return models.ReviewPending
	}
	return models.ReviewComplete
}

// Seek moves to ply, clamped to the game.
func (r *Review) Seek(ply int) int {
	switch {
	case ply < 0:
		ply = 0
	case ply > len(r.sans):
		ply = len(r.sans)
	}
	r.ply = ply
	return r.ply
}

// Navigate steps the cursor: start, left, right or end.
func (r *Review) Navigate(to string) (int, error) {
	switch to {
	case NavStart:
		return r.Seek(0), nil
	case NavLeft:
		return r.Seek(r.ply - 1), nil
	case NavRight:
		return r.Seek(r.ply + 1), nil
	case NavEnd:
		return r.Seek(len(r.sans)), nil
	}
	return r.ply, fmt.Errorf("%w: %q", ErrUnknownNavigation, to)
}

// Current returns the analysis of the move that led to the current ply.
func (r *Review) Current() *models.MoveAnalysis {
	if r.ply == 0 || len(r.analyses) == 0 {
		return nil
	}
	a := r.analyses[r.ply-1]
	return &a
}

// Rows groups the moves into numbered White/Black pairs, with quality
// suffixes appended when analyses are attached.
func (r *Review) Rows() []models.MoveRow {
	rows := make([]models.MoveRow, 0, (len(r.sans)+1)/2)
	for i := 0; i < len(r.sans); i += 2 {
		row := models.MoveRow{Number: i/2 + 1, White: r.annotated(i)}
		if i+1 < len(r.sans) {
			row.Black = r.annotated(i + 1)
		}
		rows = append(rows, row)
	}
	return rows
}

func (r *Review) annotated(i int) string {
	if len(r.analyses) == 0 {
		return r.sans[i]
	}
	return r.sans[i] + r.analyses[i].Category.Suffix()
}

// Request is the default analysis request for the current position.
func (r *Review) Request() models.AnalysisRequest {
	return models.DefaultRequest(r.FEN())
}

// View snapshots the review for presentation.
func (r *Review) View() models.ReviewView {
	return models.ReviewView{
		ID:      r.ID(),
		Status:  r.Status(),
		Ply:     r.ply,
		Plies:   len(r.sans),
		FEN:     r.FEN(),
		Rows:    r.Rows(),
		Current: r.Current(),
	}
}

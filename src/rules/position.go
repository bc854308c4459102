// Package rules adapts github.com/notnil/chess to the small surface the
// analysis code needs: load a FEN, apply an engine move token, and report
// whose turn it is.
package rules

import (
	"errors"
	"fmt"

	"github.com/notnil/chess"
)

// ErrIllegalMove is returned when a move token is malformed or not legal in the position.
var ErrIllegalMove = errors.New("illegal move")

// Side is the colour to move.
type Side int

const (
	White Side = iota
	Black
)

func (s Side) String() string {
	if s == Black {
		return "black"
	}
	return "white"
}

// Position is an immutable chess position. Apply returns a new Position.
type Position struct {
	pos *chess.Position
}

// NewPosition decodes a FEN string.
func NewPosition(fen string) (*Position, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("decode fen %q: %w", fen, err)
	}
	return &Position{pos: chess.NewGame(opt).Position()}, nil
}

// SideToMove returns whose turn it is.
func (p *Position) SideToMove() Side {
	if p.pos.Turn() == chess.Black {
		return Black
	}
	return White
}

// FEN encodes the position.
func (p *Position) FEN() string {
	return p.pos.String()
}

// Chess exposes the underlying position for command rendering.
func (p *Position) Chess() *chess.Position {
	return p.pos
}

// Apply plays a long algebraic move token (e2e4, e7e8q, e1g1) and returns the
// resulting position with the move's SAN, including check and mate suffixes.
func (p *Position) Apply(token string) (*Position, string, error) {
	decoded, err := chess.UCINotation{}.Decode(p.pos, token)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %q: %v", ErrIllegalMove, token, err)
	}

	var legal *chess.Move
	for _, m := range p.pos.ValidMoves() {
		if m.S1() == decoded.S1() && m.S2() == decoded.S2() && m.Promo() == decoded.Promo() {
			legal = m
			break
		}
	}
	if legal == nil {
		return nil, "", fmt.Errorf("%w: %q in %s", ErrIllegalMove, token, p.pos)
	}

	san := chess.AlgebraicNotation{}.Encode(p.pos, legal)
	return &Position{pos: p.pos.Update(legal)}, san, nil
}

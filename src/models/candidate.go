package models

import (
	"fmt"
	"strings"
)

// Placeholder is shown for a rank or move that has no result yet.
const Placeholder = "-"

// Candidate is the latest accepted line for one rank.
// Scores are normalized so that positive favours White.
type Candidate struct {
	Rank         int      `json:"rank"`
	Depth        int      `json:"depth"`
	ScoreCP      *int     `json:"cp,omitempty"`
	Mate         *int     `json:"mate,omitempty"`
	Continuation []string `json:"continuation"` // SAN
	PV           []string `json:"pv"`           // engine tokens
}

// Best returns the recommended move, or the placeholder.
func (c Candidate) Best() string {
	if len(c.Continuation) == 0 {
		return Placeholder
	}
	return c.Continuation[0]
}

// Rest returns the line after the recommended move joined by spaces, or the placeholder.
func (c Candidate) Rest() string {
	if len(c.Continuation) < 2 {
		return Placeholder
	}
	return strings.Join(c.Continuation[1:], " ")
}

// Eval formats the candidate's score.
func (c Candidate) Eval() string {
	return FormatEval(c.ScoreCP, c.Mate)
}

// FavorsWhite reports whether the score is zero or better for White.
func (c Candidate) FavorsWhite() bool {
	switch {
	case c.Mate != nil:
		return *c.Mate > 0
	case c.ScoreCP != nil:
		return *c.ScoreCP >= 0
	}
	return true
}

// FormatEval renders a score as "+0.35", "-1.20", "#3" or "#-2".
func FormatEval(cp, mate *int) string {
	switch {
	case mate != nil:
		return fmt.Sprintf("#%d", *mate)
	case cp != nil:
		v := *cp
		sign := "+"
		if v < 0 {
			sign = "-"
			v = -v
		}
		return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
	}
	return Placeholder
}

// Snapshot is the read-only view handed to presentation layers.
// Depth 0 means no results yet.
type Snapshot struct {
	SessionID  uint64          `json:"session_id"`
	Request    AnalysisRequest `json:"request"`
	Depth      int             `json:"depth"`
	Candidates []Candidate     `json:"candidates"` // ordered by rank
	Complete   bool            `json:"complete"`
	BestMove   string          `json:"best_move,omitempty"`
}

// Row is one rendered line of the evaluation panel.
type Row struct {
	Rank  int    `json:"rank"`
	Eval  string `json:"eval"`
	Best  string `json:"best"`
	Rest  string `json:"rest"`
	White bool   `json:"white"`
}

// Rows renders one row per rank in [1, multiPV], filling missing ranks with placeholders.
func (s Snapshot) Rows(multiPV int) []Row {
	byRank := make(map[int]Candidate, len(s.Candidates))
	for _, c := range s.Candidates {
		byRank[c.Rank] = c
	}

	rows := make([]Row, 0, multiPV)
	for rank := 1; rank <= multiPV; rank++ {
		c, ok := byRank[rank]
		if !ok {
			rows = append(rows, Row{Rank: rank, Eval: Placeholder, Best: Placeholder, Rest: Placeholder, White: true})
			continue
		}
		rows = append(rows, Row{
			Rank:  rank,
			Eval:  c.Eval(),
			Best:  c.Best(),
			Rest:  c.Rest(),
			White: c.FavorsWhite(),
		})
	}
	return rows
}

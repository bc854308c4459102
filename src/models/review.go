package models

// MoveCategory is a precomputed move quality label.
type MoveCategory string

const (
	CategoryBrilliant  MoveCategory = "brilliant"
	CategoryGreat      MoveCategory = "great"
	CategoryBest       MoveCategory = "best"
	CategoryExcellent  MoveCategory = "excellent"
	CategoryGood       MoveCategory = "good"
	CategoryBook       MoveCategory = "book"
	CategoryInaccuracy MoveCategory = "inaccuracy"
	CategoryMistake    MoveCategory = "mistake"
	CategoryMiss       MoveCategory = "miss"
	CategoryBlunder    MoveCategory = "blunder"
)

// Suffix returns the annotation glyph printed after a move in the move list.
func (c MoveCategory) Suffix() string {
	switch c {
	case CategoryBrilliant:
		return "!!"
	case CategoryGreat:
		return "!"
	case CategoryInaccuracy:
		return "?!"
	case CategoryMistake, CategoryMiss:
		return "?"
	case CategoryBlunder:
		return "??"
	}
	return ""
}

// MoveAnalysis is the read-only quality metadata for one ply.
type MoveAnalysis struct {
	Move     string       `json:"move"`
	Category MoveCategory `json:"move_category"`
}

// ReviewStatus mirrors whether move analyses are available yet.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewComplete ReviewStatus = "complete"
)

// ReviewSubmission is a finished game handed in for review.
type ReviewSubmission struct {
	PGN      string         `json:"pgn"`
	Analyses []MoveAnalysis `json:"move_analyses,omitempty"`
}

// MoveRow is one numbered row of the move list.
type MoveRow struct {
	Number int    `json:"number"`
	White  string `json:"white"`
	Black  string `json:"black,omitempty"`
}

// ReviewView is the state of a review at its current ply.
type ReviewView struct {
	ID      string        `json:"id"`
	Status  ReviewStatus  `json:"status"`
	Ply     int           `json:"ply"`
	Plies   int           `json:"plies"`
	FEN     string        `json:"fen"`
	Rows    []MoveRow     `json:"rows"`
	Current *MoveAnalysis `json:"current,omitempty"`
}

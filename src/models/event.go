package models

// SearchInfoEvent is one scored search progress line reported by the engine.
// Exactly one of ScoreCP and Mate is set. Scores are from the engine's side to move.
type SearchInfoEvent struct {
	Depth    int      `json:"depth"`
	SelDepth int      `json:"seldepth,omitempty"`
	MultiPV  int      `json:"multipv"`
	ScoreCP  *int     `json:"cp,omitempty"`
	Mate     *int     `json:"mate,omitempty"`
	Nodes    int64    `json:"nodes,omitempty"`
	NPS      int64    `json:"nps,omitempty"`
	Hashfull int      `json:"hashfull,omitempty"`
	TimeMS   int64    `json:"time_ms,omitempty"`
	PV       []string `json:"pv"`
}

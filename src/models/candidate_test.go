package models

import "testing"

func intPtr(v int) *int { return &v }

func TestFormatEval(t *testing.T) {
	cases := []struct {
		cp, mate *int
		want     string
	}{
		{cp: intPtr(35), want: "+0.35"},
		{cp: intPtr(-120), want: "-1.20"},
		{cp: intPtr(0), want: "+0.00"},
		{cp: intPtr(-5), want: "-0.05"},
		{mate: intPtr(3), want: "#3"},
		{mate: intPtr(-2), want: "#-2"},
		{want: "-"},
	}
	for _, tc := range cases {
		if got := FormatEval(tc.cp, tc.mate); got != tc.want {
			t.Fatalf("FormatEval() = %q, want %q", got, tc.want)
		}
	}
}

func TestSnapshotRowsFillsMissingRanks(t *testing.T) {
	snap := Snapshot{
		Depth: 12,
		Candidates: []Candidate{
			{Rank: 2, Depth: 12, ScoreCP: intPtr(-40), Continuation: []string{"e5", "Nf3", "Nc6"}},
		},
	}

	rows := snap.Rows(3)
	if len(rows) != 3 {
		t.Fatalf("len(rows) = %d, want 3", len(rows))
	}
	if rows[0].Best != Placeholder || rows[0].Rest != Placeholder || rows[0].Eval != Placeholder {
		t.Fatalf("rows[0] = %+v, want placeholders", rows[0])
	}
	if rows[1].Best != "e5" || rows[1].Rest != "Nf3 Nc6" || rows[1].Eval != "-0.40" {
		t.Fatalf("rows[1] = %+v", rows[1])
	}
	if rows[1].White {
		t.Fatalf("rows[1].White = true, want false for a negative score")
	}
}

func TestCandidateSingleMoveRest(t *testing.T) {
	c := Candidate{Continuation: []string{"Qh5#"}}
	if c.Best() != "Qh5#" {
		t.Fatalf("Best() = %q", c.Best())
	}
	if c.Rest() != Placeholder {
		t.Fatalf("Rest() = %q, want placeholder", c.Rest())
	}
}

func TestValidateRequest(t *testing.T) {
	req, err := DefaultRequest("  8/8/8/8/8/8/8/K6k w - - 0 1 ").Validate()
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if req.FEN != "8/8/8/8/8/8/8/K6k w - - 0 1" {
		t.Fatalf("FEN = %q", req.FEN)
	}

	bad := []AnalysisRequest{
		{FEN: "", MinDepth: 1, MaxDepth: 1, MultiPV: 1},
		{FEN: "x\nisready", MinDepth: 1, MaxDepth: 1, MultiPV: 1},
		{FEN: "x", MinDepth: 0, MaxDepth: 1, MultiPV: 1},
		{FEN: "x", MinDepth: 5, MaxDepth: 4, MultiPV: 1},
		{FEN: "x", MinDepth: 1, MaxDepth: 1, MultiPV: 0},
		{FEN: "x", MinDepth: 1, MaxDepth: 1, MultiPV: MaxMultiPV + 1},
	}
	for _, r := range bad {
		if _, err := r.Validate(); err == nil {
			t.Fatalf("Validate(%+v) error = nil, want error", r)
		}
	}
}

func TestCategorySuffix(t *testing.T) {
	if CategoryBlunder.Suffix() != "??" {
		t.Fatalf("blunder suffix = %q", CategoryBlunder.Suffix())
	}
	if CategoryBest.Suffix() != "" {
		t.Fatalf("best suffix = %q, want empty", CategoryBest.Suffix())
	}
}

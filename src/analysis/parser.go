package analysis

import (
	"strconv"
	"strings"

	"github.com/osutaiko/Pawnpulse/src/models"
)

// ParseInfoLine classifies one line of engine output. It returns ok=false for
// anything that is not a scored multipv search line: handshake replies,
// bestmove, "info string", currmove progress, bound scores and malformed input.
func ParseInfoLine(line string) (models.SearchInfoEvent, bool) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != "info" {
		return models.SearchInfoEvent{}, false
	}

	ev := models.SearchInfoEvent{}
	var haveDepth, haveRank bool
	for i := 1; i < len(fields); i++ {
		switch fields[i] {
		case "string":
			return models.SearchInfoEvent{}, false
		case "depth":
			v, ok := intAt(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.Depth, haveDepth = v, true
			i++
		case "seldepth":
			v, ok := intAt(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.SelDepth = v
			i++
		case "multipv":
			v, ok := intAt(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.MultiPV, haveRank = v, true
			i++
		case "score":
			if i+2 >= len(fields) {
				return models.SearchInfoEvent{}, false
			}
			v, err := strconv.Atoi(fields[i+2])
			if err != nil {
				return models.SearchInfoEvent{}, false
			}
			switch fields[i+1] {
			case "cp":
				ev.ScoreCP = &v
			case "mate":
				ev.Mate = &v
			default:
				return models.SearchInfoEvent{}, false
			}
			i += 2
			// A bound is not an exact score for the line.
			if i+1 < len(fields) && (fields[i+1] == "lowerbound" || fields[i+1] == "upperbound") {
				return models.SearchInfoEvent{}, false
			}
		case "nodes":
			v, ok := int64At(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.Nodes = v
			i++
		case "nps":
			v, ok := int64At(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.NPS = v
			i++
		case "hashfull":
			v, ok := intAt(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.Hashfull = v
			i++
		case "time":
			v, ok := int64At(fields, i+1)
			if !ok {
				return models.SearchInfoEvent{}, false
			}
			ev.TimeMS = v
			i++
		case "pv":
			ev.PV = append([]string(nil), fields[i+1:]...)
			i = len(fields)
		}
	}

	if !haveDepth || !haveRank || ev.Depth < 1 || ev.MultiPV < 1 {
		return models.SearchInfoEvent{}, false
	}
	if (ev.ScoreCP == nil) == (ev.Mate == nil) {
		return models.SearchInfoEvent{}, false
	}
	if len(ev.PV) == 0 {
		return models.SearchInfoEvent{}, false
	}
	return ev, true
}

// ParseBestMoveLine extracts the move from a "bestmove <move> [ponder <move>]" line.
func ParseBestMoveLine(line string) (bestMove string, ponder string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != "bestmove" {
		return "", "", false
	}
	bestMove = fields[1]
	for i := 2; i+1 < len(fields); i++ {
		if fields[i] == "ponder" {
			ponder = fields[i+1]
			break
		}
	}
	return bestMove, ponder, true
}

func intAt(fields []string, i int) (int, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.Atoi(fields[i])
	return v, err == nil
}

func int64At(fields []string, i int) (int64, bool) {
	if i >= len(fields) {
		return 0, false
	}
	v, err := strconv.ParseInt(fields[i], 10, 64)
	return v, err == nil
}

package search

import (
	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
)

// WDL is a tablebase win/draw/loss classification from the perspective of the side to
// move in the probed position.
type WDL int8

const (
	Loss WDL = iota - 2
	BlessedLoss
	Draw
	CursedWin
	Win
)

// Tablebase probes an endgame tablebase (e.g. Syzygy) for positions at or below its
// piece-count limit. A probe only applies when castling rights are gone and the
// position's piece count is within the backing tablebase's coverage.
type Tablebase interface {
	// MaxPieces is the largest total piece count (both sides, including kings) this
	// tablebase covers.
	MaxPieces() int
	// ProbeWDL returns the win/draw/loss classification for b, if covered.
	ProbeWDL(b *board.Board) (WDL, bool)
	// ProbeDTZ additionally returns distance-to-zero, for root move selection.
	ProbeDTZ(b *board.Board) (WDL, int, bool)
}

// NoTablebase is a Nop implementation used when no tablebase path is configured.
type NoTablebase struct{}

func (NoTablebase) MaxPieces() int                             { return 0 }
func (NoTablebase) ProbeWDL(*board.Board) (WDL, bool)           { return Draw, false }
func (NoTablebase) ProbeDTZ(*board.Board) (WDL, int, bool)      { return Draw, 0, false }

// tablebaseScore converts a WDL classification at the given ply into a search score:
// wins/losses are reported as mates pushed just beyond the deepest search mate score, so
// they sort correctly against real mate scores without being confused for one by the
// TT's mate-score rebasing.
func tablebaseScore(w WDL, ply int) eval.Score {
	switch w {
	case Win:
		return eval.MinMateScore - eval.Score(ply) - 1
	case Loss:
		return -eval.MinMateScore + eval.Score(ply) + 1
	default:
		return eval.ZeroScore
	}
}

package search

import (
	"sort"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
)

// Stage identifies where in its state machine a MovePicker currently is; search uses it
// to condition pruning tests on "we are past the good captures".
type Stage int

const (
	StageTTMove Stage = iota
	StageGenerateTactics
	StageGoodTactics
	StageKillers
	StageGenerateQuiets
	StageQuiets
	StageBadTactics
	StageDone
)

type scored struct {
	move  board.Move
	score int32
}

// MovePicker yields moves from a position in staged priority order: TT move, then
// SEE-nonnegative tactics (captures/promotions), then killers, then history-ordered
// quiets, then SEE-negative tactics — matching the stage list search.go conditions its
// pruning on.
type MovePicker struct {
	b       *board.Board
	hist    *History
	ttMove  board.Move
	ply     int
	skipped bool // skip_quiets(): pass over the history-ordered quiets

	stage Stage

	tactics    []scored
	goodCut    int // index where SEE < 0 tactics begin within tactics
	quiets     []scored
	killerIdx  int
	quietIdx   int
	tacticIdx  int
	badTacIdx  int
	ttMoveDone bool

	prevPiece     board.Piece
	prevTo        board.Square
	havePrev      bool
}

// NewMovePicker sets up a picker for b at the given search ply. ttMove may be the zero
// Move if there is no TT hit.
func NewMovePicker(b *board.Board, hist *History, ttMove board.Move, ply int, prevPiece board.Piece, prevTo board.Square, havePrev bool) *MovePicker {
	return &MovePicker{
		b:         b,
		hist:      hist,
		ttMove:    ttMove,
		ply:       ply,
		prevPiece: prevPiece,
		prevTo:    prevTo,
		havePrev:  havePrev,
	}
}

// SkipQuiets makes the picker pass over the history-ordered quiets and go on to bad
// tactics once it reaches them, implementing stage 6's skip_quiets() host hook (used once
// a beta cutoff is unlikely via quiets, e.g. after late-move pruning kicks in). Good
// tactics and killers not yet yielded are still returned first.
func (mp *MovePicker) SkipQuiets() {
	mp.skipped = true
}

// Stage reports the picker's current stage.
func (mp *MovePicker) Stage() Stage {
	return mp.stage
}

// Next returns the next move to try, its originating piece, and whether a tactical
// (capture/promotion) move, or false once exhausted.
func (mp *MovePicker) Next() (board.Move, board.Piece, bool, bool) {
	for {
		switch mp.stage {
		case StageTTMove:
			mp.stage = StageGenerateTactics
			if mp.ttMove != 0 && mp.b.IsLegal(mp.ttMove) {
				_, piece, _ := mp.b.Square(mp.ttMove.From())
				return mp.ttMove, piece, mp.ttMove.IsCapture() || mp.ttMove.IsPromotion(), true
			}

		case StageGenerateTactics:
			mp.generateTactics()
			mp.stage = StageGoodTactics

		case StageGoodTactics:
			for mp.tacticIdx < mp.goodCut {
				m := mp.tactics[mp.tacticIdx]
				mp.tacticIdx++
				if m.move == mp.ttMove {
					continue
				}
				_, piece, _ := mp.b.Square(m.move.From())
				return m.move, piece, true, true
			}
			mp.stage = StageKillers

		case StageKillers:
			k := mp.hist.Killer(mp.ply)
			for mp.killerIdx < len(k) {
				m := k[mp.killerIdx]
				mp.killerIdx++
				if m == 0 || m == mp.ttMove || !mp.b.IsLegal(m) || m.IsCapture() {
					continue
				}
				_, piece, _ := mp.b.Square(m.From())
				return m, piece, false, true
			}
			mp.stage = StageGenerateQuiets

		case StageGenerateQuiets:
			if mp.skipped {
				mp.stage = StageBadTactics
				continue
			}
			mp.generateQuiets()
			mp.stage = StageQuiets

		case StageQuiets:
			if mp.skipped {
				mp.stage = StageBadTactics
				continue
			}
			for mp.quietIdx < len(mp.quiets) {
				m := mp.quiets[mp.quietIdx]
				mp.quietIdx++
				k := mp.hist.Killer(mp.ply)
				if m.move == mp.ttMove || m.move == k[0] || m.move == k[1] {
					continue
				}
				_, piece, _ := mp.b.Square(m.move.From())
				return m.move, piece, false, true
			}
			mp.stage = StageBadTactics

		case StageBadTactics:
			for mp.badTacIdx < len(mp.tactics)-mp.goodCut {
				m := mp.tactics[mp.goodCut+mp.badTacIdx]
				mp.badTacIdx++
				if m.move == mp.ttMove {
					continue
				}
				_, piece, _ := mp.b.Square(m.move.From())
				return m.move, piece, true, true
			}
			mp.stage = StageDone
			return 0, board.NoPiece, false, false

		case StageDone:
			return 0, board.NoPiece, false, false
		}
	}
}

// generateTactics produces every capture/promotion, scores each by SEE plus capture
// history, and partitions into SEE>=0 ("good") ahead of SEE<0 ("bad").
func (mp *MovePicker) generateTactics() {
	side := mp.b.Turn()
	var good, bad []scored
	for _, m := range mp.b.GenerateMoves() {
		if !m.IsCapture() && !m.IsPromotion() {
			continue
		}
		_, piece, _ := mp.b.Square(m.From())
		captured := board.Pawn
		if m.Flag() != board.EnPassant {
			if _, c, ok := mp.b.Square(m.To()); ok {
				captured = c
			}
		}
		see := mp.b.SEE(m)
		score := int32(see)*64 + mp.hist.Capture(side, piece, m.To(), captured)
		if see >= 0 {
			good = append(good, scored{move: m, score: score})
		} else {
			bad = append(bad, scored{move: m, score: score})
		}
	}
	sort.SliceStable(good, func(i, j int) bool { return good[i].score > good[j].score })
	sort.SliceStable(bad, func(i, j int) bool { return bad[i].score > bad[j].score })

	mp.goodCut = len(good)
	mp.tactics = append(good, bad...)
}

// generateQuiets produces every non-capture, non-promotion move and sorts it by combined
// quiet/continuation history, descending.
func (mp *MovePicker) generateQuiets() {
	side := mp.b.Turn()
	for _, m := range mp.b.GenerateMoves() {
		if m.IsCapture() || m.IsPromotion() {
			continue
		}
		_, piece, _ := mp.b.Square(m.From())
		score := mp.hist.Quiet(side, piece, m.To(), mp.prevPiece, mp.prevTo, mp.havePrev)
		mp.quiets = append(mp.quiets, scored{move: m, score: score})
	}
	sort.SliceStable(mp.quiets, func(i, j int) bool { return mp.quiets[i].score > mp.quiets[j].score })
}

// nominalGain is re-exported for search.go's fast pre-SEE filters.
func nominalGain(b *board.Board, m board.Move) eval.Score {
	return eval.NominalGain(b, m)
}

package eval

import (
	"sort"

	"github.com/kestrelchess/kestrel/pkg/board"
)

// FindCapture returns the pieces of the given color that directly attack sq, for use in
// move ordering and exchange analysis outside of the SEE swap-off itself.
func FindCapture(b *board.Board, side board.Color, sq board.Square) []board.Placement {
	var ret []board.Placement

	occ := b.Occupied()
	for p := board.Bishop; p <= board.King; p++ {
		bb := board.Attackboard(occ, sq, p) & b.Pieces(side, p)
		for _, from := range bb.Squares() {
			ret = append(ret, board.Placement{Square: from, Color: side, Piece: p})
		}
	}
	bb := board.PawnCaptureboard(side.Opponent() /* reverse direction */, board.BitMask(sq)) & b.Pieces(side, board.Pawn)
	for _, from := range bb.Squares() {
		ret = append(ret, board.Placement{Square: from, Color: side, Piece: board.Pawn})
	}

	return ret
}

// SortByNominalValue orders the placement list by nominal material value, low to high —
// the cheapest attacker first, matching MVV-LVA move-ordering convention.
func SortByNominalValue(pieces []board.Placement) []board.Placement {
	sort.SliceStable(pieces, func(i, j int) bool {
		return NominalValue(pieces[i].Piece) < NominalValue(pieces[j].Piece)
	})
	return pieces
}

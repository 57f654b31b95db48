package eval

import "github.com/kestrelchess/kestrel/pkg/board"

// Pin represents a pinned piece: Pinned cannot move off the Attacker-Target line without
// exposing Target to Attacker.
type Pin struct {
	Attacker, Pinned, Target board.Square
}

// FindPins returns all pins targeting the given piece type of side (typically the king,
// for check-safety reasoning, but also useful for weighing "is this piece pinned to its
// queen/rook" positional penalties).
func FindPins(b *board.Board, side board.Color, piece board.Piece) []Pin {
	var ret []Pin

	occ := b.Occupied()
	bb := b.Pieces(side, piece)
	for _, target := range bb.Squares() {
		// (1) Rook/Queen pins

		rooks := board.RookAttackboard(occ, target)
		pins := rooks & b.Colors(side)
		for _, pinned := range pins.Squares() {
			attackers := b.Pieces(side.Opponent(), board.Queen) | b.Pieces(side.Opponent(), board.Rook)

			candidate := (board.RookAttackboard(occ&^board.BitMask(pinned), target) &^ rooks) & attackers
			if candidate != 0 {
				attacker := candidate.FirstSquare()
				ret = append(ret, Pin{Attacker: attacker, Pinned: pinned, Target: target})
			}
		}

		// (2) Bishop/Queen pins

		bishops := board.BishopAttackboard(occ, target)
		pins = bishops & b.Colors(side)
		for _, pinned := range pins.Squares() {
			attackers := b.Pieces(side.Opponent(), board.Queen) | b.Pieces(side.Opponent(), board.Bishop)

			candidate := (board.BishopAttackboard(occ&^board.BitMask(pinned), target) &^ bishops) & attackers
			if candidate != 0 {
				attacker := candidate.FirstSquare()
				ret = append(ret, Pin{Attacker: attacker, Pinned: pinned, Target: target})
			}
		}
	}

	return ret
}

// PinPenalty is a small positional score penalty for having pieces pinned to the king,
// scaled by the pinning attacker's value (a pin by a queen or rook against a piece that
// can't afford to move is worth more than one by a minor).
func PinPenalty(b *board.Board, side board.Color) Score {
	var penalty Score
	for _, p := range FindPins(b, side, board.King) {
		_, attacker, ok := b.Square(p.Attacker)
		if !ok {
			continue
		}
		penalty += NominalValue(attacker) / 20
	}
	return penalty
}

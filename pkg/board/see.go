package board

// seeValue gives the material weight SEE uses to compare trades. These are SEE-local
// constants, independent of whatever values pkg/eval assigns for positional scoring.
var seeValue = [NumPieces]int{
	NoPiece: 0,
	Pawn:    100,
	Knight:  320,
	Bishop:  330,
	Rook:    500,
	Queen:   900,
	King:    20000,
}

// SEE returns the static exchange evaluation of a capture (or promotion) move: the net
// material gain for the side to move after all profitable recaptures on the target
// square are played out, without searching. En passant is treated as a plain pawn
// capture of fixed value — the pawn that would be captured in passing is never the most
// valuable piece worth modeling exactly here.
func (b *Board) SEE(m Move) int {
	to := m.To()
	from := m.From()

	if m.Flag() == EnPassant {
		return seeValue[Pawn]
	}

	_, movedPiece, _ := b.Square(from)
	occ := b.Occupied()

	var gain [32]int
	ply := 0

	if _, captured, ok := b.Square(to); ok {
		gain[0] = seeValue[captured]
	}
	if promo, ok := m.Flag().Promotion(); ok {
		gain[0] += seeValue[promo] - seeValue[Pawn]
		movedPiece = promo
	}

	attackers := b.attackersTo(to, occ)
	side := b.turn.Opponent()

	occ &^= BitMask(from)
	attackers &^= BitMask(from)
	attackers |= b.revealedAttackers(to, occ, from)

	for {
		ply++
		gain[ply] = seeValue[movedPiece] - gain[ply-1]
		if max(-gain[ply-1], gain[ply]) < 0 {
			break
		}

		next, piece, ok := b.leastValuableAttacker(side, attackers, occ)
		if !ok {
			break
		}

		occ &^= BitMask(next)
		attackers &^= BitMask(next)
		attackers |= b.revealedAttackers(to, occ, next)

		movedPiece = piece
		side = side.Opponent()
	}

	ply--
	for ply > 0 {
		gain[ply-1] = -max(-gain[ply-1], gain[ply])
		ply--
	}
	return gain[0]
}

// SEEAtLeast reports whether a move's static exchange evaluation is >= threshold. It runs
// the full swap-off via SEE and compares the result; there is no early cutoff.
func (b *Board) SEEAtLeast(m Move, threshold int) bool {
	return b.SEE(m) >= threshold
}

// attackersTo returns the bitboard of every piece (either color) attacking sq, given an
// explicit occupancy (used to recompute x-ray attacks as pieces are removed from the
// board during the swap-off).
func (b *Board) attackersTo(sq Square, occ Bitboard) Bitboard {
	var ret Bitboard
	for _, c := range [...]Color{White, Black} {
		ret |= PawnCaptureboard(c.Opponent(), BitMask(sq)) & b.pieces[c][Pawn]
		ret |= KnightAttackboard(sq) & b.pieces[c][Knight]
		ret |= KingAttackboard(sq) & b.pieces[c][King]
		ret |= RookAttackboard(occ, sq) & (b.pieces[c][Rook] | b.pieces[c][Queen])
		ret |= BishopAttackboard(occ, sq) & (b.pieces[c][Bishop] | b.pieces[c][Queen])
	}
	return ret & occ
}

// revealedAttackers returns any new slider attacks on sq uncovered by removing the piece
// on "vacated" from the occupancy (an x-ray attack behind the piece that just moved or
// was captured).
func (b *Board) revealedAttackers(sq Square, occ Bitboard, vacated Square) Bitboard {
	if RookRays(sq)&BitMask(vacated) == 0 && BishopRays(sq)&BitMask(vacated) == 0 {
		return EmptyBitboard
	}
	return b.attackersTo(sq, occ) & occ
}

// leastValuableAttacker picks the cheapest piece of color c among attackers, per the
// standard SEE swap-off rule (always recapture with your least valuable piece first).
func (b *Board) leastValuableAttacker(c Color, attackers, occ Bitboard) (Square, Piece, bool) {
	candidates := attackers & b.colors[c] & occ
	if candidates == 0 {
		return 0, NoPiece, false
	}

	best := Square(NumSquares)
	bestPiece := NoPiece
	bestValue := -1
	for _, sq := range candidates.Squares() {
		_, p, _ := b.Square(sq)
		if bestValue == -1 || seeValue[p] < bestValue {
			best, bestPiece, bestValue = sq, p, seeValue[p]
		}
	}
	return best, bestPiece, true
}

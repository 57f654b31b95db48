package board

// GenerateMoves returns every fully legal move in the position: check evasions when the
// side to move is in check, pin-restricted moves otherwise, with castling and en-passant
// legality fully resolved (including the horizontal en-passant pin and the king walking
// through/into check).
func (b *Board) GenerateMoves() []Move {
	us, them := b.turn, b.turn.Opponent()
	kingSq := b.KingSquare(us)
	occ := b.Occupied()
	checkers := b.Checkers(us)
	numCheckers := checkers.PopCount()

	moves := make([]Move, 0, 48)

	occWithoutKing := occ &^ BitMask(kingSq)
	kingTargets := KingAttackboard(kingSq) &^ b.colors[us]
	for _, to := range kingTargets.Squares() {
		if b.isAttackedIgnoring(them, to, occWithoutKing) {
			continue
		}
		flag := Normal
		if b.colors[them].IsSet(to) {
			flag = Capture
		}
		moves = append(moves, NewMove(kingSq, to, flag))
	}

	if numCheckers >= 2 {
		// Double check: only the king can move.
		return moves
	}

	captureMask, pushMask := FullBitboard, FullBitboard
	if numCheckers == 1 {
		checkerSq := checkers.FirstSquare()
		captureMask = BitMask(checkerSq)
		if _, checkerPiece, _ := b.Square(checkerSq); checkerPiece.IsSlider() {
			pushMask = Between(kingSq, checkerSq)
		} else {
			pushMask = EmptyBitboard
		}
	} else {
		moves = append(moves, b.castleMoves(us)...)
	}

	pinnedBB, pinRay := b.computePins(us)

	for i := 1; i < NumPieceIndices; i++ {
		from := b.indexSquare[us][i]
		if from == NumSquares {
			continue
		}

		allowed := captureMask | pushMask
		if pinnedBB.IsSet(from) {
			allowed &= pinRay[from]
		}

		piece := b.indexPiece[us][i]
		if piece == Pawn {
			moves = append(moves, b.pawnMoves(us, from, allowed, captureMask, pushMask, occ)...)
			continue
		}

		targets := Attackboard(occ, from, piece) &^ b.colors[us] & allowed
		for _, to := range targets.Squares() {
			flag := Normal
			if b.colors[them].IsSet(to) {
				flag = Capture
			}
			moves = append(moves, NewMove(from, to, flag))
		}
	}

	return moves
}

// FindMove resolves a (from, to, promo) triple — as parsed from long algebraic notation by
// ParseMove — against the position's legal moves. Castling is normalized first: a king
// moving two files (e1g1/e1c1, the standard notation a GUI sends, per UCI) is translated to
// the king-captures-rook encoding GenerateMoves produces before matching, so both the
// standard and Chess960 castling notations resolve to the same legal move.
func (b *Board) FindMove(from, to Square, promo Piece) (Move, bool) {
	if _, piece, ok := b.Square(from); ok && piece == King {
		if side, ok := castleSideFor(b.turn, from, to); ok {
			if rookFile, has := b.castling.Has(b.turn, side); has {
				to = NewSquare(rookFile, from.Rank())
			}
		}
	}

	for _, m := range b.GenerateMoves() {
		if m.From() != from || m.To() != to {
			continue
		}
		if p, ok := m.Flag().Promotion(); ok && p != promo {
			continue
		}
		return m, true
	}
	return NoMove, false
}

// castleSideFor reports whether (from, to) is a king move in the standard two-square
// castling notation (e1g1/e1c1) for color c, and if so which side it targets.
func castleSideFor(c Color, from, to Square) (Side, bool) {
	if from != NewSquare(FileE, backRank(c)) {
		return 0, false
	}
	switch to {
	case NewSquare(FileG, backRank(c)):
		return Short, true
	case NewSquare(FileC, backRank(c)):
		return Long, true
	default:
		return 0, false
	}
}

// pawnMoves generates push, double push, capture, en-passant, and promotion moves for
// the pawn on from, restricted to squares the check/pin state allows.
func (b *Board) pawnMoves(us Color, from Square, allowed, captureMask, pushMask Bitboard, occ Bitboard) []Move {
	them := us.Opponent()
	fromBB := BitMask(from)
	var moves []Move

	if push := PawnPushboard(occ, us, fromBB); push&pushMask&allowed != 0 {
		moves = append(moves, b.pawnLanding(us, from, push.FirstSquare(), false)...)
	}
	if dbl := PawnDoublePushboard(occ, us, fromBB); dbl&pushMask&allowed != 0 {
		moves = append(moves, NewMove(from, dbl.FirstSquare(), DoublePush))
	}

	caps := PawnCaptureboard(us, fromBB) & b.colors[them] & captureMask & allowed
	for _, to := range caps.Squares() {
		moves = append(moves, b.pawnLanding(us, from, to, true)...)
	}

	if ep := b.ep; ep.Present && PawnCaptureboard(us, fromBB).IsSet(ep.Target) {
		victimSq := NewSquare(ep.File, from.Rank())
		resolvesCheck := captureMask.IsSet(victimSq) || pushMask.IsSet(ep.Target)
		if resolvesCheck && b.enPassantLegal(us, from, victimSq, ep.Target) {
			moves = append(moves, NewMove(from, ep.Target, EnPassant))
		}
	}

	return moves
}

// pawnLanding expands a pawn's arrival on "to" into one move, or four if it promotes.
func (b *Board) pawnLanding(us Color, from, to Square, capture bool) []Move {
	if BitMask(to)&PawnPromotionRank(us) != 0 {
		promos := [...]Piece{Queen, Rook, Bishop, Knight}
		out := make([]Move, 0, len(promos))
		for _, p := range promos {
			out = append(out, NewMove(from, to, promoFlag(p, capture)))
		}
		return out
	}
	flag := Normal
	if capture {
		flag = Capture
	}
	return []Move{NewMove(from, to, flag)}
}

// enPassantLegal checks the discovered-check case unique to en passant: both the
// capturing and captured pawn leave the rank in the same move, which can expose the king
// to a rook/queen that the ordinary pin scan (one piece removed at a time) never sees.
// The whole king-safety test is done on the post-capture occupancy, so it also covers
// pins and the captured pawn being the checker (it no longer counts as an attacker).
func (b *Board) enPassantLegal(us Color, from, victimSq, target Square) bool {
	them := us.Opponent()
	occ := b.Occupied()
	occ &^= BitMask(from)
	occ &^= BitMask(victimSq)
	occ |= BitMask(target)
	after := *b
	after.pieces[them][Pawn] &^= BitMask(victimSq)
	return !after.isAttackedIgnoring(them, b.KingSquare(us), occ)
}

// castleMoves returns the castling moves legal in the current position (never called
// while in check: castling out of check is illegal and the caller skips it).
func (b *Board) castleMoves(us Color) []Move {
	them := us.Opponent()
	occ := b.Occupied()
	kingSq := b.KingSquare(us)

	var moves []Move
	for _, side := range [...]Side{Short, Long} {
		rookFile, ok := b.castling.Has(us, side)
		if !ok {
			continue
		}
		rookSq := NewSquare(rookFile, backRank(us))
		kingTo, rookTo := castleDestinations(us, side)

		path := Between(kingSq, kingTo) | BitMask(kingTo) | Between(rookSq, rookTo) | BitMask(rookTo)
		path &^= BitMask(kingSq) | BitMask(rookSq)
		if path&occ != 0 {
			continue
		}

		kingPath := Between(kingSq, kingTo) | BitMask(kingSq) | BitMask(kingTo)
		attacked := false
		for _, sq := range kingPath.Squares() {
			if b.isAttackedIgnoring(them, sq, occ) {
				attacked = true
				break
			}
		}
		if attacked {
			continue
		}

		flag := ShortCastle
		if side == Long {
			flag = LongCastle
		}
		moves = append(moves, NewMove(kingSq, rookSq, flag))
	}
	return moves
}

// isAttackedIgnoring reports whether sq is attacked by a piece of color c, given an
// explicit occupancy bitboard (rather than the board's own, as maintained in b.attacks).
// Used where the natural occupancy must be hypothetically altered: a king stepping away
// from its square, or both pawns of an en-passant capture vacating a rank.
func (b *Board) isAttackedIgnoring(c Color, sq Square, occ Bitboard) bool {
	if PawnCaptureboard(c.Opponent(), BitMask(sq))&b.pieces[c][Pawn] != 0 {
		return true
	}
	if KnightAttackboard(sq)&b.pieces[c][Knight] != 0 {
		return true
	}
	if KingAttackboard(sq)&b.pieces[c][King] != 0 {
		return true
	}
	if RookAttackboard(occ, sq)&(b.pieces[c][Rook]|b.pieces[c][Queen]) != 0 {
		return true
	}
	if BishopAttackboard(occ, sq)&(b.pieces[c][Bishop]|b.pieces[c][Queen]) != 0 {
		return true
	}
	return false
}

// computePins returns the bitboard of color us's pieces that are pinned to their king,
// and, for each pinned square, the line (through the king and the pinning slider) that
// the piece is still allowed to move along.
func (b *Board) computePins(us Color) (Bitboard, [NumSquares]Bitboard) {
	them := us.Opponent()
	kingSq := b.KingSquare(us)
	occ := b.Occupied()

	var pinnedBB Bitboard
	var pinRay [NumSquares]Bitboard

	scan := func(dirs [4]direction, sliders Bitboard) {
		for _, d := range dirs {
			candidate := NumSquares
			f, r := int(kingSq.File())+d.df, int(kingSq.Rank())+d.dr
			for f >= 0 && f < 8 && r >= 0 && r < 8 {
				sq := NewSquare(File(f), Rank(r))
				if occ.IsSet(sq) {
					if candidate == NumSquares {
						if b.colors[us].IsSet(sq) {
							candidate = sq
						} else {
							break // first blocker is enemy: a checker, not a pin.
						}
					} else {
						if sliders.IsSet(sq) {
							pinnedBB |= BitMask(candidate)
							pinRay[candidate] = Line(kingSq, sq)
						}
						break
					}
				}
				f += d.df
				r += d.dr
			}
		}
	}

	scan(rookDirs, b.pieces[them][Rook]|b.pieces[them][Queen])
	scan(bishopDirs, b.pieces[them][Bishop]|b.pieces[them][Queen])
	return pinnedBB, pinRay
}

package board

import "fmt"

// Flag distinguishes the kind of a Move. 4 bits.
type Flag uint8

const (
	Normal Flag = iota
	DoublePush
	Capture
	EnPassant
	ShortCastle // king-captures-own-rook; To() is the rook's square.
	LongCastle  // king-captures-own-rook; To() is the rook's square.

	PromoQueen
	PromoRook
	PromoBishop
	PromoKnight

	CapturePromoQueen
	CapturePromoRook
	CapturePromoBishop
	CapturePromoKnight
)

// IsCastle returns true iff the flag is a castling move.
func (f Flag) IsCastle() bool {
	return f == ShortCastle || f == LongCastle
}

// IsPromotion returns true iff the flag denotes a promotion, with or without capture.
func (f Flag) IsPromotion() bool {
	return f >= PromoQueen
}

// IsCapture returns true iff the flag denotes a move that removes an enemy piece (en
// passant and capture-promotions included; castling is not a capture of the rook).
func (f Flag) IsCapture() bool {
	return f == Capture || f == EnPassant || (f >= CapturePromoQueen && f <= CapturePromoKnight)
}

// Promotion returns the piece a pawn promotes to for a promotion flag.
func (f Flag) Promotion() (Piece, bool) {
	switch f {
	case PromoQueen, CapturePromoQueen:
		return Queen, true
	case PromoRook, CapturePromoRook:
		return Rook, true
	case PromoBishop, CapturePromoBishop:
		return Bishop, true
	case PromoKnight, CapturePromoKnight:
		return Knight, true
	default:
		return NoPiece, false
	}
}

// promoFlag returns the (plain, capturing) flag pair for a promoted piece.
func promoFlag(p Piece, capture bool) Flag {
	switch p {
	case Queen:
		if capture {
			return CapturePromoQueen
		}
		return PromoQueen
	case Rook:
		if capture {
			return CapturePromoRook
		}
		return PromoRook
	case Bishop:
		if capture {
			return CapturePromoBishop
		}
		return PromoBishop
	case Knight:
		if capture {
			return CapturePromoKnight
		}
		return PromoKnight
	default:
		panic("invalid promotion piece")
	}
}

// Move is a 16-bit encoding of a move: source square (6 bits), destination square
// (6 bits), and flag (4 bits). Castling is encoded as king-captures-own-rook, which is
// Chess960-compatible: To() names the castling rook's square, not the king's landing
// square.
type Move uint16

// NoMove is a sentinel for "no move" with every bit set, an encoding no legal move uses;
// FindMove returns it when nothing matches. It is not the zero Move.
const NoMove Move = 0xFFFF

func NewMove(from, to Square, flag Flag) Move {
	return Move(from) | Move(to)<<6 | Move(flag)<<12
}

func (m Move) From() Square {
	return Square(m & 0x3f)
}

func (m Move) To() Square {
	return Square((m >> 6) & 0x3f)
}

func (m Move) Flag() Flag {
	return Flag((m >> 12) & 0xf)
}

func (m Move) IsCapture() bool {
	return m.Flag().IsCapture()
}

func (m Move) IsPromotion() bool {
	return m.Flag().IsPromotion()
}

func (m Move) IsCastle() bool {
	return m.Flag().IsCastle()
}

func (m Move) Equals(o Move) bool {
	return m == o
}

// ParseMove parses a move in pure algebraic coordinate notation, such as "a2a4" or "a7a8q".
// The from/to/flag distinctions that require board context (capture, en passant, castling,
// double push) are resolved by matching against the legal moves of a position; a move
// parsed in isolation only carries From/To/Promotion.
func ParseMove(str string) (from, to Square, promo Piece, err error) {
	runes := []rune(str)
	if len(runes) < 4 || len(runes) > 5 {
		return 0, 0, 0, fmt.Errorf("invalid move: %q", str)
	}

	from, err = ParseSquare(runes[0], runes[1])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid from in move %q: %w", str, err)
	}
	to, err = ParseSquare(runes[2], runes[3])
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid to in move %q: %w", str, err)
	}
	if len(runes) == 5 {
		p, ok := ParsePiece(runes[4])
		if !ok || p == Pawn || p == King {
			return 0, 0, 0, fmt.Errorf("invalid promotion in move %q", str)
		}
		promo = p
	}
	return from, to, promo, nil
}

// String formats the move in standard long-algebraic notation: castling is printed as
// the king moving two files. Use StringChess960 to print king-captures-rook notation.
func (m Move) String() string {
	return m.format(false)
}

// StringChess960 formats the move as required in Chess960/FRC mode: castling is printed
// as the king capturing its own rook.
func (m Move) StringChess960() string {
	return m.format(true)
}

func (m Move) format(chess960 bool) string {
	from, to := m.From(), m.To()
	if m.IsCastle() && !chess960 {
		file := FileG
		if m.Flag() == LongCastle {
			file = FileC
		}
		to = NewSquare(file, from.Rank())
	}

	if p, ok := m.Flag().Promotion(); ok {
		return fmt.Sprintf("%v%v%v", from, to, p)
	}
	return fmt.Sprintf("%v%v", from, to)
}

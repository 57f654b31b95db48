// Package fen contains utilities for reading and writing positions in FEN notation,
// including the Shredder-FEN castling extension used for Chess960/DFRC games.
package fen

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/seekerror/stdlib/pkg/lang"

	"github.com/kestrelchess/kestrel/pkg/board"
)

// Initial is the FEN of the standard starting position.
const Initial = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Decode parses a FEN (or Shredder-FEN) record into a Board. Shredder notation is
// detected automatically: a castling letter outside {K,Q,k,q} is taken as the rook's
// file, disambiguated by comparing it against that color's king file.
func Decode(zt *board.ZobristTable, s string) (*board.Board, error) {
	parts := strings.Fields(strings.TrimSpace(s))
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid number of sections in FEN: %q", s)
	}

	pieces, err := decodePlacement(parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", s, err)
	}

	turn, ok := parseColor(parts[1])
	if !ok {
		return nil, fmt.Errorf("invalid active color in FEN: %q", s)
	}

	castling, err := decodeCastling(parts[2], pieces)
	if err != nil {
		return nil, fmt.Errorf("invalid castling in FEN %q: %w", s, err)
	}

	ep, err := decodeEnPassant(parts[3], turn)
	if err != nil {
		return nil, fmt.Errorf("invalid en passant in FEN %q: %w", s, err)
	}

	halfmove, err := strconv.Atoi(parts[4])
	if err != nil || halfmove < 0 {
		return nil, fmt.Errorf("invalid halfmove clock in FEN: %q", s)
	}
	fullmove, err := strconv.Atoi(parts[5])
	if err != nil || fullmove < 1 {
		return nil, fmt.Errorf("invalid fullmove number in FEN: %q", s)
	}

	return board.NewBoard(zt, pieces, castling, ep, turn, halfmove, fullmove)
}

func decodePlacement(s string) ([]board.Placement, error) {
	var pieces []board.Placement

	ranks := strings.Split(s, "/")
	if len(ranks) != int(board.NumRanks) {
		return nil, fmt.Errorf("invalid number of ranks: %q", s)
	}

	for i, row := range ranks {
		r := board.Rank(int(board.NumRanks) - 1 - i)
		f := board.ZeroFile
		for _, ch := range row {
			switch {
			case unicode.IsDigit(ch):
				f += board.File(ch - '0')
			case unicode.IsLetter(ch):
				if !f.IsValid() {
					return nil, fmt.Errorf("rank overflow: %q", s)
				}
				p, ok := board.ParsePiece(ch)
				if !ok {
					return nil, fmt.Errorf("invalid piece %q", ch)
				}
				color := board.Black
				if unicode.IsUpper(ch) {
					color = board.White
				}
				pieces = append(pieces, board.Placement{Square: board.NewSquare(f, r), Color: color, Piece: p})
				f++
			default:
				return nil, fmt.Errorf("invalid character %q", ch)
			}
		}
		if f != board.NumFiles {
			return nil, fmt.Errorf("invalid rank length: %q", row)
		}
	}
	return pieces, nil
}

func decodeCastling(s string, pieces []board.Placement) (board.Castling, error) {
	var ret board.Castling
	if s == "-" {
		return ret, nil
	}

	kingFile := map[board.Color]board.File{}
	for _, p := range pieces {
		if p.Piece == board.King {
			kingFile[p.Color] = p.Square.File()
		}
	}

	for _, r := range s {
		var color board.Color
		if unicode.IsUpper(r) {
			color = board.White
		} else {
			color = board.Black
		}

		var side board.Side
		var file board.File

		switch unicode.ToUpper(r) {
		case 'K':
			side, file = board.Short, board.FileH
		case 'Q':
			side, file = board.Long, board.FileA
		default:
			f, ok := board.ParseFile(r)
			if !ok {
				return ret, fmt.Errorf("invalid castling letter %q", r)
			}
			kf, ok := kingFile[color]
			if !ok {
				return ret, fmt.Errorf("no king placed for castling letter %q", r)
			}
			file = f
			if f > kf {
				side = board.Short
			} else {
				side = board.Long
			}
		}

		if side == board.Short {
			ret[color].Short = lang.Some(file)
		} else {
			ret[color].Long = lang.Some(file)
		}
	}
	return ret, nil
}

func decodeEnPassant(s string, turn board.Color) (board.EnPassant, error) {
	if s == "-" {
		return board.EnPassant{}, nil
	}
	sq, err := board.ParseSquareStr(s)
	if err != nil {
		return board.EnPassant{}, err
	}
	return board.EnPassant{Present: true, File: sq.File(), Target: sq}, nil
}

// Encode writes b in standard FEN. Use EncodeShredder to emit Shredder castling letters
// (required to round-trip Chess960 rook files that aren't A or H).
func Encode(b *board.Board) string {
	return encode(b, false)
}

// EncodeShredder writes b in Shredder-FEN, with castling rights given as rook files.
func EncodeShredder(b *board.Board) string {
	return encode(b, true)
}

func encode(b *board.Board, shredder bool) string {
	var sb strings.Builder
	for i := 0; i < int(board.NumRanks); i++ {
		r := board.Rank(int(board.NumRanks) - 1 - i)
		blanks := 0
		for f := board.ZeroFile; f < board.NumFiles; f++ {
			color, piece, ok := b.Square(board.NewSquare(f, r))
			if !ok {
				blanks++
				continue
			}
			if blanks > 0 {
				sb.WriteString(strconv.Itoa(blanks))
				blanks = 0
			}
			sb.WriteString(printPiece(color, piece))
		}
		if blanks > 0 {
			sb.WriteString(strconv.Itoa(blanks))
		}
		if i < int(board.NumRanks)-1 {
			sb.WriteRune('/')
		}
	}

	castling := b.Castling().String()
	if shredder {
		castling = b.Castling().StringShredder()
	}

	ep := "-"
	if e := b.EnPassant(); e.Present {
		ep = e.Target.String()
	}

	return fmt.Sprintf("%v %v %v %v %v %v", sb.String(), printColor(b.Turn()), castling, ep, b.HalfmoveClock(), b.FullMoves())
}

func parseColor(s string) (board.Color, bool) {
	switch s {
	case "w", "W":
		return board.White, true
	case "b", "B":
		return board.Black, true
	default:
		return 0, false
	}
}

func printColor(c board.Color) string {
	if c == board.White {
		return "w"
	}
	return "b"
}

func printPiece(c board.Color, p board.Piece) string {
	if c == board.White {
		return strings.ToUpper(p.String())
	}
	return p.String()
}

package board

import (
	"strings"

	"github.com/seekerror/stdlib/pkg/lang"
)

// Side distinguishes the short (kingside, h-file in the standard setup) and long
// (queenside, a-file) castle.
type Side uint8

const (
	Short Side = iota
	Long
)

// Rights is a color's castling rights: the file of the rook that may still castle on
// each side, if any. A file rather than a boolean is required to support Chess960/DFRC,
// where the rook does not necessarily start on file A or H.
type Rights struct {
	Short, Long lang.Optional[File]
}

// Castling is the full castling-rights state of a position: one Rights value per color.
// 2 files worth of state per color; fits comfortably in a handful of bits but kept as a
// small value type rather than a packed bitmask so Chess960 rook files are representable.
type Castling [NumColors]Rights

// Has returns the rook file for the given color/side if the right is still held.
func (c Castling) Has(color Color, side Side) (File, bool) {
	r := c[color]
	if side == Short {
		return r.Short.V()
	}
	return r.Long.V()
}

// Revoke returns the rights with the given color/side right cleared.
func (c Castling) Revoke(color Color, side Side) Castling {
	ret := c
	if side == Short {
		ret[color].Short = lang.None[File]()
	} else {
		ret[color].Long = lang.None[File]()
	}
	return ret
}

// RevokeColor returns the rights with all of a color's rights cleared (the king moved).
func (c Castling) RevokeColor(color Color) Castling {
	ret := c
	ret[color] = Rights{}
	return ret
}

// RevokeFile returns the rights with any right tied to the given color's rook file
// cleared (that rook moved or was captured on its original square).
func (c Castling) RevokeFile(color Color, file File) Castling {
	ret := c
	if f, ok := ret[color].Short.V(); ok && f == file {
		ret[color].Short = lang.None[File]()
	}
	if f, ok := ret[color].Long.V(); ok && f == file {
		ret[color].Long = lang.None[File]()
	}
	return ret
}

// IsEmpty returns true iff no castling rights remain for either color.
func (c Castling) IsEmpty() bool {
	return c == Castling{}
}

func (c Castling) String() string {
	return c.print(false)
}

// StringShredder prints the Shredder-FEN form (rook files as letters, e.g. "HAha").
func (c Castling) StringShredder() string {
	return c.print(true)
}

func (c Castling) print(shredder bool) string {
	var sb strings.Builder
	for _, color := range []Color{White, Black} {
		for _, side := range []Side{Short, Long} {
			f, ok := c.Has(color, side)
			if !ok {
				continue
			}

			var r rune
			switch {
			case shredder:
				r = rune('A' + f)
			case side == Short:
				r = 'K'
			default:
				r = 'Q'
			}
			if color == Black {
				r = rune(strings.ToLower(string(r))[0])
			}
			sb.WriteRune(r)
		}
	}
	if sb.Len() == 0 {
		return "-"
	}
	return sb.String()
}

package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/dgraph-io/badger/v4"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
)

// Book represents an opening book: given a position, it returns the candidate moves a
// human or prior-game repertoire would play from it, or an empty list once the position
// falls outside the book's coverage.
type Book interface {
	// Find returns the candidate moves for the position given in FEN, or an empty slice
	// if the position is not covered.
	Find(ctx context.Context, position string) ([]board.Move, error)
}

// Line is a single opening line in pure algebraic coordinate notation: "e2e4 e7e5 g1f3".
type Line []string

func (l Line) String() string {
	return strings.Join(l, " ")
}

// NoBook is an opening book with no lines, used when no book is configured.
var NoBook Book = &book{moves: map[string][]board.Move{}}

// NewBook builds an in-memory opening book from a set of lines, replaying each one from
// the starting position to key every reachable position by its (board, turn, castling,
// en-passant) prefix.
func NewBook(lines []Line) (Book, error) {
	zt := board.DefaultZobristTable
	m := map[string]map[board.Move]bool{}

	for _, line := range lines {
		b, err := fen.Decode(zt, fen.Initial)
		if err != nil {
			return nil, err
		}

		for _, uci := range line {
			from, to, promo, err := board.ParseMove(uci)
			if err != nil {
				return nil, fmt.Errorf("invalid line %v: %w", line, err)
			}

			next, found := b.FindMove(from, to, promo)
			if !found {
				return nil, fmt.Errorf("invalid line %v: move %v not legal", line, uci)
			}

			key := bookKey(b)
			if m[key] == nil {
				m[key] = map[board.Move]bool{}
			}
			m[key][next] = true

			child := b.MakeMove(next)
			b = &child
		}
	}

	dedup := make(map[string][]board.Move, len(m))
	for k, v := range m {
		list := make([]board.Move, 0, len(v))
		for move := range v {
			list = append(list, move)
		}
		sort.Slice(list, func(i, j int) bool { return list[i] < list[j] })
		dedup[k] = list
	}
	return &book{moves: dedup}, nil
}

type book struct {
	moves map[string][]board.Move // "placement turn castling enpassant" -> legal continuations
}

func (b *book) Find(_ context.Context, position string) ([]board.Move, error) {
	return b.moves[bookKey4(position)], nil
}

// bookKey builds a book lookup key from a live board: the position/turn/castling/
// en-passant fields, without the halfmove clock or move number, so the same
// position reached via different move orders or at different points in the game
// shares one book entry.
func bookKey(b *board.Board) string {
	return bookKey4(fen.Encode(b))
}

func bookKey4(pos string) string {
	parts := strings.Fields(pos)
	if len(parts) < 4 {
		return pos
	}
	return strings.Join(parts[:4], " ")
}

// PersistentBook is a Badger-backed opening book: unlike the in-memory Book built by
// NewBook, entries survive process restarts and can be grown incrementally, e.g. by a
// separate tool that harvests lines from played games.
type PersistentBook struct {
	db *badger.DB
}

// OpenPersistentBook opens (creating if necessary) a Badger database at dir to use as an
// opening book.
func OpenPersistentBook(dir string) (*PersistentBook, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open book %v: %w", dir, err)
	}
	return &PersistentBook{db: db}, nil
}

// Close releases the underlying database handle.
func (b *PersistentBook) Close() error {
	return b.db.Close()
}

// Find looks up the position's key (see bookKey4) and decodes its stored move list, if any.
func (b *PersistentBook) Find(_ context.Context, position string) ([]board.Move, error) {
	var moves []board.Move
	err := b.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(bookKey4(position)))
		if err == badger.ErrKeyNotFound {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &moves)
		})
	})
	return moves, err
}

// Learn records a line into the book, merging it with whatever moves the position's key
// already has on file (deduplicated and sorted for deterministic Find results).
func (b *PersistentBook) Learn(line Line) error {
	zt := board.DefaultZobristTable
	pos, err := fen.Decode(zt, fen.Initial)
	if err != nil {
		return err
	}

	for _, uci := range line {
		from, to, promo, err := board.ParseMove(uci)
		if err != nil {
			return fmt.Errorf("invalid line %v: %w", line, err)
		}

		next, found := pos.FindMove(from, to, promo)
		if !found {
			return fmt.Errorf("invalid line %v: move %v not legal", line, uci)
		}

		if err := b.addMove(bookKey(pos), next); err != nil {
			return err
		}

		child := pos.MakeMove(next)
		pos = &child
	}
	return nil
}

func (b *PersistentBook) addMove(key string, move board.Move) error {
	return b.db.Update(func(txn *badger.Txn) error {
		var moves []board.Move
		item, err := txn.Get([]byte(key))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &moves) }); err != nil {
				return err
			}
		case err != badger.ErrKeyNotFound:
			return err
		}

		for _, m := range moves {
			if m == move {
				return nil // already recorded
			}
		}
		moves = append(moves, move)
		sort.Slice(moves, func(i, j int) bool { return moves[i] < moves[j] })

		data, err := json.Marshal(moves)
		if err != nil {
			return err
		}
		return txn.Set([]byte(key), data)
	})
}

var _ Book = (*PersistentBook)(nil)

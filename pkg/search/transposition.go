package search

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/bits"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/atomic"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/eval"
	"github.com/seekerror/logw"
)

// TagHash picks how a TranspositionTable derives a slot's collision-detection tag from a
// position's Zobrist hash.
type TagHash int

const (
	// ZobristTag uses the Zobrist hash's own high bits directly: cheap, and sufficiently
	// well-mixed since the Zobrist table is built from independent random keys.
	ZobristTag TagHash = iota
	// XXHashTag rehashes the Zobrist hash through xxhash before truncating to a tag, for
	// comparing collision behavior against an independently engineered hash function.
	XXHashTag
)

func (h TagHash) String() string {
	if h == XXHashTag {
		return "xxhash"
	}
	return "zobrist"
}

func (h TagHash) tagOf(hash board.ZobristHash) uint32 {
	if h == XXHashTag {
		var buf [8]byte
		binary.LittleEndian.PutUint64(buf[:], uint64(hash))
		return uint32(xxhash.Sum64(buf[:]))
	}
	return uint32(uint64(hash) >> 32)
}

// Bound represents how a stored score relates to the true minimax value of its node.
type Bound uint8

const (
	ExactBound Bound = iota
	LowerBound
	UpperBound
)

func (b Bound) String() string {
	switch b {
	case ExactBound:
		return "Exact"
	case LowerBound:
		return "Lower"
	case UpperBound:
		return "Upper"
	default:
		return "?"
	}
}

// entriesPerBucket is the fixed bucket width; a probe linearly scans this many slots
// looking for a matching 32-bit hash tag before giving up.
const entriesPerBucket = 4

// Entry is a copy of a transposition table slot, returned by Probe.
type Entry struct {
	Bound Bound
	Depth int
	Score eval.Score
	Eval  eval.Score
	Move  board.Move
	PV    bool
}

// TranspositionTable is a shared, lock-free, bucketed hash table keyed by the low bits
// of the position's Zobrist hash. Every method must be safe for concurrent use by the
// worker pool's search goroutines.
type TranspositionTable interface {
	// Probe returns the entry for hash, if a tag match is found in its bucket. ply is
	// the node's distance from the search root, used to rebase any mate score stored in
	// the entry back to "distance from here".
	Probe(hash board.ZobristHash, ply int) (Entry, bool)
	// Store writes (or evicts into) the matching bucket. ply rebases a mate score to be
	// path-independent before writing.
	Store(hash board.ZobristHash, ply, depth int, bound Bound, score, raw eval.Score, move board.Move, pv bool)
	// Prefetch hints that hash's bucket will be probed soon.
	Prefetch(hash board.ZobristHash)
	// NewSearch bumps the table's age counter; entries from prior searches become
	// preferred eviction targets without being cleared outright.
	NewSearch()
	// Clear zeroes every bucket, for ucinewgame.
	Clear()

	// Size returns the table size in bytes.
	Size() uint64
	// Used returns utilization as a fraction in [0;1], sampled from a slice of buckets.
	Used() float64
}

// slot is one packed entry. tag is the high bits of the hash not implied by the bucket
// index, so a near-miss collision inside the bucket is still detected.
type slot struct {
	tag   uint32
	depth int16
	bound Bound
	pv    bool
	age   uint8
	score int32
	raw   int32
	move  board.Move
}

type bucket struct {
	slots [entriesPerBucket]atomic.Pointer[slot]
}

type table struct {
	buckets []bucket
	mask    uint64
	age     atomic.Uint32
	tagHash TagHash
}

// NewTranspositionTable allocates a table sized to approximately size bytes, rounded
// down to the nearest power-of-two bucket count, tagging slots with the Zobrist hash's
// own high bits.
func NewTranspositionTable(ctx context.Context, size uint64) TranspositionTable {
	return NewTranspositionTableWithTagHash(ctx, size, ZobristTag)
}

// NewTranspositionTableWithTagHash is NewTranspositionTable with an explicit TagHash,
// e.g. for selecting XXHashTag via the engine's -tt-hash flag.
func NewTranspositionTableWithTagHash(ctx context.Context, size uint64, tagHash TagHash) TranspositionTable {
	bucketBytes := uint64(entriesPerBucket) * 16
	n := uint64(1)
	if size > bucketBytes {
		n = uint64(1) << (63 - bits.LeadingZeros64(size/bucketBytes))
	}

	logw.Infof(ctx, "Allocating %vMB TT with %v buckets (%v entries)", size>>20, n, n*entriesPerBucket)

	return &table{
		buckets: make([]bucket, n),
		mask:    n - 1,
		tagHash: tagHash,
	}
}

func (t *table) index(hash board.ZobristHash) uint64 {
	return uint64(hash) & t.mask
}

func (t *table) Probe(hash board.ZobristHash, ply int) (Entry, bool) {
	b := &t.buckets[t.index(hash)]
	tag := t.tagHash.tagOf(hash)

	for i := range b.slots {
		s := b.slots[i].Load()
		if s == nil || s.tag != tag {
			continue
		}
		return Entry{
			Bound: s.bound,
			Depth: int(s.depth),
			Score: eval.Score(s.score).FromTT(ply),
			Eval:  eval.Score(s.raw),
			Move:  s.move,
			PV:    s.pv,
		}, true
	}
	return Entry{}, false
}

func (t *table) Store(hash board.ZobristHash, ply, depth int, bound Bound, score, raw eval.Score, move board.Move, pv bool) {
	b := &t.buckets[t.index(hash)]
	tag := t.tagHash.tagOf(hash)
	age := uint8(t.age.Load())

	fresh := &slot{
		tag:   tag,
		depth: int16(depth),
		bound: bound,
		pv:    pv,
		age:   age,
		score: int32(score.ToTT(ply)),
		raw:   int32(raw),
		move:  move,
	}

	var worst *atomic.Pointer[slot]
	worstVal := 1 << 30
	for i := range b.slots {
		s := b.slots[i].Load()
		if s == nil {
			b.slots[i].Store(fresh)
			return
		}
		if s.tag == tag {
			// Same position: only overwrite with an equal-or-better depth, or a fresher
			// search generation (so a shallow re-probe doesn't clobber a deep entry).
			if age != s.age || int(s.depth) <= depth {
				b.slots[i].Store(fresh)
			}
			return
		}
		if v := replacementValue(s, age); v < worstVal {
			worst = &b.slots[i]
			worstVal = v
		}
	}
	worst.Store(fresh)
}

// replacementValue scores an occupied slot for eviction priority: older entries and
// shallower searches are preferred eviction targets.
func replacementValue(s *slot, currentAge uint8) int {
	ageDelta := int(currentAge - s.age)
	return int(s.depth) - 8*ageDelta
}

func (t *table) Prefetch(hash board.ZobristHash) {
	// Go has no portable cache-prefetch intrinsic; touching the bucket's first slot
	// pointer at least pulls its cache line into L1 ahead of the real Probe/Store.
	_ = t.buckets[t.index(hash)].slots[0].Load()
}

func (t *table) NewSearch() {
	t.age.Add(1)
}

func (t *table) Clear() {
	for i := range t.buckets {
		for j := range t.buckets[i].slots {
			t.buckets[i].slots[j].Store(nil)
		}
	}
	t.age.Store(0)
}

func (t *table) Size() uint64 {
	return uint64(len(t.buckets)) * entriesPerBucket * 16
}

func (t *table) Used() float64 {
	const sample = 1000
	n := len(t.buckets)
	if n == 0 {
		return 0
	}
	if n > sample {
		n = sample
	}

	used, total := 0, 0
	for i := 0; i < n; i++ {
		for j := range t.buckets[i].slots {
			total++
			if t.buckets[i].slots[j].Load() != nil {
				used++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(used) / float64(total)
}

func (t *table) String() string {
	return fmt.Sprintf("TT[%vMB @ %v%%]", t.Size()>>20, int(100*t.Used()))
}

// NoTranspositionTable is a Nop implementation, useful for perft-style searches and
// tests that want to exercise search logic without TT interference.
type NoTranspositionTable struct{}

func (NoTranspositionTable) Probe(board.ZobristHash, int) (Entry, bool) { return Entry{}, false }
func (NoTranspositionTable) Store(board.ZobristHash, int, int, Bound, eval.Score, eval.Score, board.Move, bool) {
}
func (NoTranspositionTable) Prefetch(board.ZobristHash) {}
func (NoTranspositionTable) NewSearch()                 {}
func (NoTranspositionTable) Clear()                     {}
func (NoTranspositionTable) Size() uint64                { return 0 }
func (NoTranspositionTable) Used() float64               { return 0 }

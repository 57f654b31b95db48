package search

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kestrelchess/kestrel/pkg/board"
	"github.com/kestrelchess/kestrel/pkg/board/fen"
)

func TestInsufficientMaterialKingsOnly(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/8/4K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, insufficientMaterial(b))
}

func TestInsufficientMaterialSingleMinorVsBareKing(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/3N4/4K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, insufficientMaterial(b))
}

func TestInsufficientMaterialKBvKBSameComplex(t *testing.T) {
	zt := board.NewZobristTable(1)
	// White bishop on c1 (dark) and black bishop on f8 (dark): same color complex.
	b, err := fen.Decode(zt, "5b1k/8/8/8/8/8/8/2B1K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, insufficientMaterial(b))
}

func TestInsufficientMaterialKBvKBOppositeComplex(t *testing.T) {
	zt := board.NewZobristTable(1)
	// White bishop on d1 (light) and black bishop on f8 (dark): opposite complexes,
	// which (unlike same-complex KBvKB) is not an automatic draw.
	b, err := fen.Decode(zt, "5b1k/8/8/8/8/8/8/3BK3 w - - 0 1")
	require.NoError(t, err)
	require.False(t, insufficientMaterial(b))
}

func TestInsufficientMaterialKBBvKSameComplexStillDraws(t *testing.T) {
	zt := board.NewZobristTable(1)
	// Two same-colored bishops (c1 and f4, both dark-squared) for White against a lone
	// king: no more mating power than a single bishop.
	b, err := fen.Decode(zt, "4k3/8/8/8/5B2/8/8/2B1K3 w - - 0 1")
	require.NoError(t, err)
	require.True(t, insufficientMaterial(b))
}

func TestInsufficientMaterialRookIsSufficient(t *testing.T) {
	zt := board.NewZobristTable(1)
	b, err := fen.Decode(zt, "4k3/8/8/8/8/8/8/R3K3 w - - 0 1")
	require.NoError(t, err)
	require.False(t, insufficientMaterial(b))
}

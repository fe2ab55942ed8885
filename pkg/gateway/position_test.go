package gateway

import (
	"testing"

	"github.com/chessinsight/chessinsight/pkg/uci"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePosition(t *testing.T) {
	t.Parallel()

	valid := []struct {
		name        string
		fen         string
		whiteToMove bool
	}{
		{"start position", StartFEN, true},
		{"black to move", mateInOneBlack, false},
		{"surrounding whitespace", "  " + mateInOneWhite + "\n", true},
		{"side to move in check", "4k3/8/8/8/8/8/8/4K2q w - - 0 1", true},
		{"attack blocked", "4k3/4p3/8/8/8/8/8/4R1K1 w - - 0 1", true},
	}
	for _, tt := range valid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			pos, err := ParsePosition(tt.fen)
			require.NoError(t, err)
			assert.False(t, pos.IsZero())
			assert.Equal(t, tt.whiteToMove, pos.WhiteToMove())
		})
	}

	invalid := []struct {
		name string
		fen  string
	}{
		{"empty", ""},
		{"garbage", "hello world"},
		{"too few ranks", "rnbqkbnr/pppppppp/8/8 w KQkq - 0 1"},
		{"bad side to move", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1"},
		{"no kings", "8/8/8/8/8/8/8/8 w - - 0 1"},
		{"two white kings", "4k3/8/8/8/8/8/8/K3K3 w - - 0 1"},
		{"missing black king", "8/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"black king capturable by queen", "4k2Q/8/8/8/8/8/8/4K3 w - - 0 1"},
		{"white king capturable by knight", "4k3/8/8/8/8/8/5n2/7K b - - 0 1"},
		{"black king capturable by pawn", "8/8/8/3k4/4P3/8/8/4K3 w - - 0 1"},
		{"white king capturable by pawn", "4k3/8/8/8/8/8/3p4/4K3 b - - 0 1"},
		{"kings touching", "8/8/8/3kK3/8/8/8/8 w - - 0 1"},
		{"white king capturable by bishop", "4k3/8/8/b7/8/8/8/4K3 b - - 0 1"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParsePosition(tt.fen)
			assert.ErrorIs(t, err, ErrInvalidPosition)
		})
	}
}

func TestPosition(t *testing.T) {
	t.Parallel()

	assert.Equal(t, StartFEN, StartPosition().FEN())
	assert.False(t, StartPosition().Checkmated())
	assert.True(t, MustParsePosition(blackMated).Checkmated())

	var zero Position
	assert.True(t, zero.IsZero())
	assert.Empty(t, zero.FEN())
	assert.False(t, zero.WhiteToMove())

	assert.Panics(t, func() { MustParsePosition("nope") })
}

func TestSearchLimitValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, SearchLimit{Depth: 1}.Validate())
	require.NoError(t, SearchLimit{Depth: 40}.Validate())
	assert.ErrorIs(t, SearchLimit{Depth: 0}.Validate(), ErrInvalidLimit)
	assert.ErrorIs(t, SearchLimit{Depth: -3}.Validate(), ErrInvalidLimit)
}

func TestEvaluationConsistent(t *testing.T) {
	t.Parallel()

	eval := &Evaluation{}
	eval.White = uci.CP(31)
	eval.Black = eval.White.Negate()
	assert.True(t, eval.Consistent())

	eval.Black = eval.White
	assert.False(t, eval.Consistent())
}

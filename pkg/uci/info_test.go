package uci

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInfo(t *testing.T) {
	t.Parallel()

	t.Run("full stockfish line", func(t *testing.T) {
		t.Parallel()
		line := "info depth 10 seldepth 14 multipv 1 score cp 31 nodes 20431 nps 1021550 hashfull 7 tbhits 0 time 20 pv e2e4 e7e5 g1f3 b8c6"

		info, err := ParseInfo(line)
		require.NoError(t, err)

		assert.Equal(t, 10, info.Depth)
		assert.Equal(t, 14, info.SelDepth)
		assert.Equal(t, 1, info.MultiPV)
		assert.True(t, info.HasScore)
		assert.Equal(t, CP(31), info.Score)
		assert.Equal(t, BoundExact, info.Bound)
		assert.Equal(t, int64(20431), info.Nodes)
		assert.Equal(t, int64(1021550), info.NPS)
		assert.Equal(t, 20*time.Millisecond, info.Time)
		assert.Equal(t, []string{"e2e4", "e7e5", "g1f3", "b8c6"}, info.PV)
	})

	t.Run("mate score", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info depth 1 seldepth 1 score mate 1 nodes 30 pv d8h4")
		require.NoError(t, err)
		assert.Equal(t, Mate(1), info.Score)
		assert.True(t, info.Score.IsMate())
	})

	t.Run("mated side to move", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info depth 0 score mate 0")
		require.NoError(t, err)
		assert.Equal(t, Mate(0), info.Score)
		assert.False(t, info.Score.Winning())
	})

	t.Run("bounds", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info depth 18 score cp 40 lowerbound nodes 100")
		require.NoError(t, err)
		assert.Equal(t, BoundLower, info.Bound)
		assert.Equal(t, int64(100), info.Nodes)

		info, err = ParseInfo("info depth 18 score cp -12 upperbound")
		require.NoError(t, err)
		assert.Equal(t, BoundUpper, info.Bound)
		assert.Equal(t, CP(-12), info.Score)
	})

	t.Run("info string", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info string NNUE evaluation using nn-1111.nnue enabled")
		require.NoError(t, err)
		assert.False(t, info.HasScore)
		assert.Equal(t, "NNUE evaluation using nn-1111.nnue enabled", info.String)
	})

	t.Run("currmove line has no score", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info depth 20 currmove e2e4 currmovenumber 1")
		require.NoError(t, err)
		assert.False(t, info.HasScore)
		assert.Equal(t, 20, info.Depth)
	})

	t.Run("pv followed by another keyword", func(t *testing.T) {
		t.Parallel()
		info, err := ParseInfo("info pv e2e4 e7e5 depth 3")
		require.NoError(t, err)
		assert.Equal(t, []string{"e2e4", "e7e5"}, info.PV)
		assert.Equal(t, 3, info.Depth)
	})
}

func TestParseInfoMalformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		line string
	}{
		{"not an info line", "bestmove e2e4"},
		{"empty", ""},
		{"truncated depth", "info depth"},
		{"non numeric depth", "info depth ten"},
		{"truncated score", "info score cp"},
		{"unknown score kind", "info score wdl 10"},
		{"non numeric score", "info score cp +x"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseInfo(tt.line)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestParseBestMove(t *testing.T) {
	t.Parallel()

	tests := []struct {
		line   string
		best   string
		ponder string
	}{
		{"bestmove e2e4", "e2e4", ""},
		{"bestmove e2e4 ponder e7e5", "e2e4", "e7e5"},
		{"bestmove e7e8q", "e7e8q", ""},
		{"bestmove (none)", "", ""},
		{"bestmove 0000", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			t.Parallel()
			best, ponder, err := ParseBestMove(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.best, best)
			assert.Equal(t, tt.ponder, ponder)
		})
	}

	_, _, err := ParseBestMove("bestmove")
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseID(t *testing.T) {
	t.Parallel()

	key, value, ok := ParseID("id name Stockfish 16.1")
	require.True(t, ok)
	assert.Equal(t, "name", key)
	assert.Equal(t, "Stockfish 16.1", value)

	_, _, ok = ParseID("id")
	assert.False(t, ok)
	_, _, ok = ParseID("uciok")
	assert.False(t, ok)
}

func TestCommands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "setoption name Threads value 2", SetOption("Threads", "2"))
	assert.Equal(t, "setoption name Clear Hash", SetOption("Clear Hash", ""))
	assert.Equal(t, "position fen 8/8/8/8/8/8/8/K6k w - - 0 1", PositionFEN("  8/8/8/8/8/8/8/K6k w - - 0 1 "))
	assert.Equal(t, "go depth 12", GoDepth(12))
	assert.True(t, IsResponse("uciok  ", RespUCIOK))
	assert.False(t, IsResponse("uciokay", RespUCIOK))
}

package gateway

import (
	"time"

	"github.com/chessinsight/chessinsight/pkg/uci"
)

// Evaluation is the outcome of one analysis. White and Black hold the same
// evaluation seen from each side; Black is always White.Negate().
type Evaluation struct {
	FEN   string
	Depth int

	White uci.Score
	Black uci.Score

	BestMove     string
	Ponder       string
	PV           []string
	ReachedDepth int
	SelDepth     int
	Nodes        int64
	NPS          int64
	Time         time.Duration
}

// Consistent reports whether the two perspective scores agree.
func (e *Evaluation) Consistent() bool {
	return e.Black == e.White.Negate()
}

func newEvaluation(pos Position, limit SearchLimit, best uci.Info, bestMove, ponder string) *Evaluation {
	white := best.Score
	if !pos.WhiteToMove() {
		white = best.Score.Negate()
	}
	return &Evaluation{
		FEN:          pos.FEN(),
		Depth:        limit.Depth,
		White:        white,
		Black:        white.Negate(),
		BestMove:     bestMove,
		Ponder:       ponder,
		PV:           best.PV,
		ReachedDepth: best.Depth,
		SelDepth:     best.SelDepth,
		Nodes:        best.Nodes,
		NPS:          best.NPS,
		Time:         best.Time,
	}
}

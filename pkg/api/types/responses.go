// Package types holds the JSON bodies of the chessinsight HTTP API. The CLI
// reuses them for --json output so both surfaces stay in step.
package types

import (
	"time"

	"github.com/chessinsight/chessinsight/pkg/gateway"
	"github.com/chessinsight/chessinsight/pkg/uci"
)

// MessageResponse is returned by the root route.
type MessageResponse struct {
	Message string `json:"message"`
}

// HealthResponse reports process liveness. It says nothing about the
// engine; see ReadyResponse.
type HealthResponse struct {
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Uptime    int       `json:"uptime"`
}

// ReadyResponse reports whether analysis requests can be served.
type ReadyResponse struct {
	Status string       `json:"status"`
	Engine EngineStatus `json:"engine"`
}

// EngineStatus describes the engine process.
type EngineStatus struct {
	Name    string `json:"name,omitempty"`
	State   string `json:"state"`
	Running bool   `json:"running"`
}

// StockfishResponse is the start position evaluation in centipawns,
// formatted "<white> <black>".
type StockfishResponse struct {
	Result string `json:"result"`
}

// AnalyseRequest is the body of POST /api/v1/analyse. A nil Depth selects
// the configured default.
type AnalyseRequest struct {
	FEN   string `json:"fen"`
	Depth *int   `json:"depth,omitempty"`
}

// Score is a uci.Score in JSON form.
type Score struct {
	Kind    string `json:"kind"`
	Value   int    `json:"value"`
	Display string `json:"display"`
	// Winning is set for mate scores where this side delivers mate.
	Winning bool `json:"winning,omitempty"`
}

// NewScore converts s.
func NewScore(s uci.Score) Score {
	return Score{
		Kind:    s.Kind().String(),
		Value:   s.Value(),
		Display: s.String(),
		Winning: s.Winning(),
	}
}

// AnalysisResponse is the body returned for a finished analysis.
type AnalysisResponse struct {
	FEN          string   `json:"fen"`
	Depth        int      `json:"depth"`
	ReachedDepth int      `json:"reachedDepth"`
	White        Score    `json:"white"`
	Black        Score    `json:"black"`
	BestMove     string   `json:"bestMove,omitempty"`
	Ponder       string   `json:"ponder,omitempty"`
	PV           []string `json:"pv"`
	Nodes        int64    `json:"nodes"`
	NPS          int64    `json:"nps"`
	TimeMS       int64    `json:"timeMs"`
}

// NewAnalysisResponse converts eval.
func NewAnalysisResponse(eval *gateway.Evaluation) AnalysisResponse {
	pv := eval.PV
	if pv == nil {
		pv = []string{}
	}
	return AnalysisResponse{
		FEN:          eval.FEN,
		Depth:        eval.Depth,
		ReachedDepth: eval.ReachedDepth,
		White:        NewScore(eval.White),
		Black:        NewScore(eval.Black),
		BestMove:     eval.BestMove,
		Ponder:       eval.Ponder,
		PV:           pv,
		Nodes:        eval.Nodes,
		NPS:          eval.NPS,
		TimeMS:       eval.Time.Milliseconds(),
	}
}

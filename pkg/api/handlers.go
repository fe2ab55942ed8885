package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/chessinsight/chessinsight/pkg/api/types"
	"github.com/chessinsight/chessinsight/pkg/gateway"
	"github.com/chessinsight/chessinsight/pkg/httputil"
	"github.com/chessinsight/chessinsight/pkg/uci"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, types.MessageResponse{
		Message: s.settings.AppName + " backend running",
	})
}

// handleHealth answers as long as the process serves HTTP. Engine problems
// show up on the ready route instead.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	now := s.now()
	httputil.WriteOK(w, types.HealthResponse{
		Status:    "healthy",
		Message:   s.settings.AppName + " backend is running",
		Timestamp: now.UTC(),
		Uptime:    int(now.Sub(s.started).Seconds()),
	})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.engine.State()
	running := s.engine.Running()
	resp := types.ReadyResponse{
		Status: "ready",
		Engine: types.EngineStatus{
			Name:    s.engine.Name(),
			State:   state.String(),
			Running: running,
		},
	}
	status := http.StatusOK
	ready := running && (state == gateway.StateReady || state == gateway.StateAnalysing)
	if !ready {
		resp.Status = "unavailable"
		status = http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, status, resp)
}

// handleStockfish evaluates the start position at the default depth and
// reports both sides in centipawns. Mate scores have no centipawn value and
// are refused.
func (s *Server) handleStockfish(w http.ResponseWriter, r *http.Request) {
	limit := gateway.SearchLimit{Depth: s.settings.Engine.DefaultDepth}
	eval, err := s.analyse(r.Context(), gateway.StartPosition(), limit)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	white, err := eval.White.Centipawns()
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	black, err := eval.Black.Centipawns()
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	httputil.WriteOK(w, types.StockfishResponse{Result: fmt.Sprintf("%d %d", white, black)})
}

func (s *Server) handleAnalyse(w http.ResponseWriter, r *http.Request) {
	var req types.AnalyseRequest
	if err := httputil.ReadJSON(w, r, &req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	pos, err := gateway.ParsePosition(req.FEN)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}

	limit := gateway.SearchLimit{Depth: s.settings.Engine.DefaultDepth}
	if req.Depth != nil {
		limit.Depth = *req.Depth
	}
	if limit.Depth > s.settings.Engine.MaxDepth {
		s.writeAnalysisError(w, r, fmt.Errorf("%w: depth must be at most %d, got %d",
			gateway.ErrInvalidLimit, s.settings.Engine.MaxDepth, limit.Depth))
		return
	}

	eval, err := s.analyse(r.Context(), pos, limit)
	if err != nil {
		s.writeAnalysisError(w, r, err)
		return
	}
	httputil.WriteOK(w, types.NewAnalysisResponse(eval))
}

// analyse runs one engine analysis and records its outcome.
func (s *Server) analyse(ctx context.Context, pos gateway.Position, limit gateway.SearchLimit) (*gateway.Evaluation, error) {
	start := time.Now()
	eval, err := s.engine.Analyse(ctx, pos, limit)
	outcome := "ok"
	if err != nil {
		_, outcome = classify(err)
	}
	s.metrics.ObserveAnalysis(outcome, time.Since(start))
	return eval, err
}

func (s *Server) handleOpenAPI(w http.ResponseWriter, r *http.Request) {
	httputil.WriteOK(w, s.doc)
}

// writeAnalysisError maps engine errors to HTTP responses. Client errors
// carry the error text; engine failures are logged and answered with a
// generic message.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := classify(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		s.log.Error("analysis failed", "error", err, "status", status, "request_id", RequestIDFrom(r.Context()))
		msg = publicMessage(code)
	}
	httputil.WriteError(w, status, code, msg)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, gateway.ErrInvalidPosition):
		return http.StatusUnprocessableEntity, "invalid_position"
	case errors.Is(err, gateway.ErrInvalidLimit):
		return http.StatusUnprocessableEntity, "invalid_depth"
	case errors.Is(err, uci.ErrMateScore):
		return http.StatusConflict, "mate_score"
	case errors.Is(err, gateway.ErrTimeout):
		return http.StatusGatewayTimeout, "engine_timeout"
	case errors.Is(err, gateway.ErrNotReady):
		return http.StatusServiceUnavailable, "engine_not_ready"
	case errors.Is(err, gateway.ErrEngineExited):
		return http.StatusServiceUnavailable, "engine_exited"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "request_cancelled"
	default:
		return http.StatusBadGateway, "engine_error"
	}
}

func publicMessage(code string) string {
	switch code {
	case "engine_timeout":
		return "the engine did not finish in time"
	case "engine_not_ready":
		return "the engine is not ready"
	case "engine_exited":
		return "the engine process has exited"
	case "request_cancelled":
		return "the request was cancelled"
	default:
		return "the engine failed to analyse the position"
	}
}

package gateway

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/chessinsight/chessinsight/pkg/uci"
)

// Analyse evaluates pos to the depth in limit and returns the score from
// both sides' points of view.
//
// Calls on one Engine are serialized; a call waits for the previous one to
// finish or for ctx to be done. Each call is also bounded by the analysis
// timeout. If the search has to be abandoned the engine is told to stop and
// given the stop grace period to report its best move. A call abandoned
// before the search starts instead waits the stop grace period for the
// pending readyok. An engine that does not answer is shut down and the
// handle becomes Stopped.
func (e *Engine) Analyse(ctx context.Context, pos Position, limit SearchLimit) (*Evaluation, error) {
	fail := func(err error) (*Evaluation, error) {
		return nil, &AnalysisError{FEN: pos.FEN(), Err: err}
	}

	if pos.IsZero() {
		return fail(fmt.Errorf("%w: empty position", ErrInvalidPosition))
	}
	if err := limit.Validate(); err != nil {
		return fail(err)
	}

	if err := e.inflight.Acquire(ctx, 1); err != nil {
		return fail(err)
	}
	defer e.inflight.Release(1)

	if err := e.beginAnalysis(); err != nil {
		if errors.Is(err, ErrEngineExited) {
			e.exitedUnexpectedly()
		}
		return fail(err)
	}
	defer e.endAnalysis()

	ctx, cancel := context.WithTimeoutCause(ctx, e.analysisTimeout, ErrTimeout)
	defer cancel()

	eval, err := e.search(ctx, pos, limit)
	if err != nil {
		return fail(err)
	}
	e.log.Debug("analysis complete", "fen", eval.FEN, "depth", limit.Depth,
		"white", eval.White.String(), "best", eval.BestMove)
	return eval, nil
}

// beginAnalysis moves a Ready engine to Analysing. An engine whose process
// exited while idle is found here.
func (e *Engine) beginAnalysis() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.state == StateReady && e.hasExited() {
		return ErrEngineExited
	}
	if e.state != StateReady {
		return fmt.Errorf("%w: engine is %s", ErrNotReady, e.state)
	}
	e.state = StateAnalysing
	return nil
}

func (e *Engine) endAnalysis() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateAnalysing {
		e.state = StateReady
	}
}

func (e *Engine) search(ctx context.Context, pos Position, limit SearchLimit) (*Evaluation, error) {
	e.drainPending()

	if err := e.send(uci.CmdNewGame); err != nil {
		return nil, e.lost(err)
	}
	if err := e.sync(ctx); err != nil {
		return nil, e.resync(err)
	}
	if err := e.send(uci.PositionFEN(pos.FEN())); err != nil {
		return nil, e.lost(err)
	}
	if err := e.send(uci.GoDepth(limit.Depth)); err != nil {
		return nil, e.lost(err)
	}

	var (
		exact, bounded uci.Info
		hasExact       bool
		hasBounded     bool
		parseErr       error
	)
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return nil, e.interrupt(err)
		}

		switch {
		case strings.HasPrefix(line, uci.RespInfo+" "):
			info, err := uci.ParseInfo(line)
			if err != nil {
				if parseErr == nil {
					parseErr = err
				}
				continue
			}
			if !info.HasScore || info.MultiPV > 1 {
				continue
			}
			if info.Bound == uci.BoundExact {
				exact, hasExact = info, true
			} else {
				bounded, hasBounded = info, true
			}

		case strings.HasPrefix(line, uci.RespBestMove):
			best, ponder, err := uci.ParseBestMove(line)
			if err != nil {
				return nil, err
			}
			switch {
			case parseErr != nil:
				return nil, parseErr
			case hasExact:
				return newEvaluation(pos, limit, exact, best, ponder), nil
			case hasBounded:
				return newEvaluation(pos, limit, bounded, best, ponder), nil
			default:
				return nil, ErrNoEvaluation
			}
		}
	}
}

// lost handles a failure before the search was started. A broken pipe or
// closed stream means the process is gone.
func (e *Engine) lost(err error) error {
	if errors.Is(err, ErrEngineExited) {
		e.exitedUnexpectedly()
		return err
	}
	return e.interrupt(err)
}

// resync handles a call abandoned while waiting for readyok. No search is
// running, so the engine gets the stop grace period to answer the pending
// isready. Only an engine that stays silent is shut down.
func (e *Engine) resync(cause error) error {
	if errors.Is(cause, ErrEngineExited) {
		e.exitedUnexpectedly()
		return cause
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.stopGrace)
	defer cancel()
	for {
		line, err := e.readLine(ctx)
		if errors.Is(err, ErrEngineExited) {
			e.exitedUnexpectedly()
			return cause
		}
		if err != nil {
			break
		}
		if uci.IsResponse(line, uci.RespReadyOK) {
			e.log.Debug("engine back in sync after abandoned call", "cause", cause)
			return cause
		}
	}

	e.log.Error("engine did not answer isready, shutting it down", "cause", cause)
	if err := e.Stop(); err != nil {
		e.log.Error("engine shutdown failed", "error", err)
	}
	return cause
}

// interrupt abandons a running search. The engine gets the stop grace
// period to answer with bestmove, which puts the protocol back in sync. If
// it does not, the process is shut down.
func (e *Engine) interrupt(cause error) error {
	if errors.Is(cause, ErrEngineExited) {
		e.exitedUnexpectedly()
		return cause
	}

	e.log.Warn("interrupting search", "cause", cause)
	if err := e.send(uci.CmdStop); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), e.stopGrace)
		defer cancel()
		for {
			line, err := e.readLine(ctx)
			if err != nil {
				break
			}
			if strings.HasPrefix(line, uci.RespBestMove) {
				return cause
			}
		}
	}

	e.log.Error("engine did not answer stop, shutting it down", "cause", cause)
	if err := e.Stop(); err != nil {
		e.log.Error("engine shutdown failed", "error", err)
	}
	return cause
}

// exitedUnexpectedly marks an engine whose process went away on its own as
// Stopped and releases what is left of it. It does nothing if Stop got there
// first.
func (e *Engine) exitedUnexpectedly() {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	state := e.state
	if state == StateReady || state == StateAnalysing {
		e.state = StateStopped
	}
	e.mu.Unlock()
	if state != StateReady && state != StateAnalysing {
		return
	}

	_ = e.shutdown()
	e.mu.Lock()
	waitErr := e.waitErr
	e.mu.Unlock()
	e.log.Warn("engine process exited unexpectedly", "state", state, "exit", waitErr)
}

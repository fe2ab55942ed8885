// Package gateway owns the lifecycle of one external UCI analysis engine
// (Stockfish or any engine speaking the same protocol) and exposes a single
// blocking request/response analysis call.
//
// # Lifecycle
//
// An Engine moves through these states:
//
//	Uninitialized -> Starting -> Ready -> (Analysing -> Ready)* -> Stopping -> Stopped
//
// A failure while starting goes straight to Stopped; a caller never sees a
// half started engine. Stopped is terminal. Stop is idempotent and must be
// called on every exit path:
//
//	eng, err := gateway.Start(ctx, "/usr/bin/stockfish", gateway.WithLogger(log))
//	if err != nil {
//	    return err
//	}
//	defer eng.Stop()
//
//	eval, err := eng.Analyse(ctx, gateway.StartPosition(), gateway.SearchLimit{Depth: 10})
//
// # Errors
//
// Start fails with *StartError and Analyse with *AnalysisError. Both wrap a
// sentinel (ErrEngineExited, ErrInvalidPosition, ErrTimeout, ...) so callers
// can branch with errors.Is.
package gateway

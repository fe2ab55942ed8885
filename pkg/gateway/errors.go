package gateway

import (
	"errors"
	"fmt"
)

// Sentinel errors wrapped by StartError and AnalysisError.
var (
	ErrNotReady        = errors.New("engine is not ready")
	ErrEngineExited    = errors.New("engine process exited")
	ErrInvalidPosition = errors.New("invalid position")
	ErrInvalidLimit    = errors.New("invalid search limit")
	ErrNoEvaluation    = errors.New("engine reported no evaluation")
	ErrTimeout         = errors.New("engine did not respond in time")
	ErrHandshake       = errors.New("engine handshake failed")
)

// StartError reports a failure to spawn an engine or to complete the UCI
// handshake with it.
type StartError struct {
	Path string
	Err  error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("start engine %s: %v", e.Path, e.Err)
}

func (e *StartError) Unwrap() error {
	return e.Err
}

// AnalysisError reports a failed analysis request.
type AnalysisError struct {
	FEN string
	Err error
}

func (e *AnalysisError) Error() string {
	if e.FEN == "" {
		return fmt.Sprintf("analyse: %v", e.Err)
	}
	return fmt.Sprintf("analyse %q: %v", e.FEN, e.Err)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

package gateway

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chessinsight/chessinsight/pkg/logging"
	"github.com/chessinsight/chessinsight/pkg/uci"
	"golang.org/x/sync/semaphore"
)

// State is a step of the engine lifecycle.
type State int

// Engine lifecycle states.
const (
	StateUninitialized State = iota
	StateStarting
	StateReady
	StateAnalysing
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateStarting:
		return "starting"
	case StateReady:
		return "ready"
	case StateAnalysing:
		return "analysing"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// maxLineSize caps a single line of engine output.
const maxLineSize = 1 << 20

// Engine is a handle to one UCI engine process.
type Engine struct {
	path            string
	args            []string
	env             []string
	options         []engineOption
	startupTimeout  time.Duration
	analysisTimeout time.Duration
	stopGrace       time.Duration
	log             *slog.Logger

	// lifecycle serializes Start and Stop.
	lifecycle sync.Mutex
	// inflight admits one Analyse at a time.
	inflight *semaphore.Weighted
	// wmu serializes writes to stdin.
	wmu sync.Mutex

	mu      sync.Mutex
	state   State
	name    string
	cmd     *exec.Cmd
	stdin   io.WriteCloser
	lines   chan string
	exited  chan struct{}
	discard chan struct{}
	waitErr error
}

// New returns an engine in the Uninitialized state. Nothing is spawned
// until Start.
func New(path string, opts ...Option) *Engine {
	e := &Engine{
		path:            path,
		startupTimeout:  DefaultStartupTimeout,
		analysisTimeout: DefaultAnalysisTimeout,
		stopGrace:       DefaultStopGrace,
		log:             logging.Nop(),
		inflight:        semaphore.NewWeighted(1),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.With("engine", path)
	return e
}

// Start creates an engine for executablePath and starts it.
func Start(ctx context.Context, executablePath string, opts ...Option) (*Engine, error) {
	e := New(executablePath, opts...)
	if err := e.Start(ctx); err != nil {
		return nil, err
	}
	return e, nil
}

// Path returns the executable path the engine was created with.
func (e *Engine) Path() string { return e.path }

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Name returns the engine name reported during the handshake.
func (e *Engine) Name() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.name
}

// PID returns the process id, or 0 if no process was spawned.
func (e *Engine) PID() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cmd == nil || e.cmd.Process == nil {
		return 0
	}
	return e.cmd.Process.Pid
}

// Running reports whether the engine process is present in the process
// table and has not been reaped.
func (e *Engine) Running() bool {
	e.mu.Lock()
	exited := e.exited
	e.mu.Unlock()
	if exited == nil || e.hasExited() {
		return false
	}
	return processAlive(e.PID())
}

// Start spawns the engine process and completes the UCI handshake. It
// blocks until the engine answers readyok, the startup timeout elapses, or
// ctx is done. On failure the process is reaped and the engine is Stopped.
func (e *Engine) Start(ctx context.Context) error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	if e.state != StateUninitialized {
		state := e.state
		e.mu.Unlock()
		return &StartError{Path: e.path, Err: fmt.Errorf("engine is %s", state)}
	}
	e.state = StateStarting
	e.mu.Unlock()

	if err := e.spawn(); err != nil {
		e.setState(StateStopped)
		return &StartError{Path: e.path, Err: err}
	}
	e.log.Info("engine spawned", "pid", e.PID())

	ctx, cancel := context.WithTimeoutCause(ctx, e.startupTimeout, ErrTimeout)
	defer cancel()

	if err := e.handshake(ctx); err != nil {
		e.shutdown()
		e.setState(StateStopped)
		return &StartError{Path: e.path, Err: fmt.Errorf("%w: %w", ErrHandshake, err)}
	}

	e.setState(StateReady)
	e.log.Info("engine ready", "name", e.Name())
	return nil
}

// Stop ends the engine process: it sends quit, then escalates to SIGTERM
// and finally to a kill, waiting the stop grace period at each step. The
// process is always reaped. Stop is a no-op on an engine that is already
// stopped or was never started.
func (e *Engine) Stop() error {
	e.lifecycle.Lock()
	defer e.lifecycle.Unlock()

	e.mu.Lock()
	switch e.state {
	case StateStopped:
		e.mu.Unlock()
		return nil
	case StateUninitialized:
		e.state = StateStopped
		e.mu.Unlock()
		return nil
	}
	e.state = StateStopping
	e.mu.Unlock()

	err := e.shutdown()
	e.setState(StateStopped)
	e.log.Info("engine stopped")
	return err
}

func (e *Engine) spawn() error {
	cmd := exec.Command(e.path, e.args...) //nolint:gosec // engine path comes from operator configuration
	if len(e.env) > 0 {
		cmd.Env = append(os.Environ(), e.env...)
	}
	cmd.Stderr = &logWriter{log: e.log}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("stdout pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	e.mu.Lock()
	e.cmd = cmd
	e.stdin = stdin
	e.lines = make(chan string, 256)
	e.exited = make(chan struct{})
	e.discard = make(chan struct{})
	e.mu.Unlock()

	go e.readLoop(cmd, stdout)
	return nil
}

// readLoop forwards stdout lines until EOF, then reaps the process. Once
// discard is closed, lines are dropped so a full channel can never keep the
// process from being reaped.
func (e *Engine) readLoop(cmd *exec.Cmd, stdout io.Reader) {
	defer close(e.exited)

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)
	for scanner.Scan() {
		line := scanner.Text()
		select {
		case e.lines <- line:
		case <-e.discard:
		}
	}
	close(e.lines)

	err := cmd.Wait()
	e.mu.Lock()
	e.waitErr = err
	e.mu.Unlock()
	e.log.Debug("engine process exited", "error", err)
}

func (e *Engine) handshake(ctx context.Context) error {
	if err := e.send(uci.CmdUCI); err != nil {
		return err
	}
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if key, value, ok := uci.ParseID(line); ok && key == "name" {
			e.mu.Lock()
			e.name = value
			e.mu.Unlock()
		}
		if uci.IsResponse(line, uci.RespUCIOK) {
			break
		}
	}

	for _, opt := range e.options {
		if err := e.send(uci.SetOption(opt.name, opt.value)); err != nil {
			return err
		}
	}
	return e.sync(ctx)
}

// sync sends isready and waits for readyok, dropping anything else.
func (e *Engine) sync(ctx context.Context) error {
	if err := e.send(uci.CmdIsReady); err != nil {
		return err
	}
	for {
		line, err := e.readLine(ctx)
		if err != nil {
			return err
		}
		if uci.IsResponse(line, uci.RespReadyOK) {
			return nil
		}
	}
}

func (e *Engine) send(cmd string) error {
	e.wmu.Lock()
	defer e.wmu.Unlock()

	e.log.Debug("uci send", "line", cmd)
	if _, err := io.WriteString(e.stdin, cmd+"\n"); err != nil {
		if e.hasExited() {
			return ErrEngineExited
		}
		return fmt.Errorf("write %q: %w", cmd, err)
	}
	return nil
}

// readLine returns the next line of engine output. A closed stream is
// reported as ErrEngineExited and an expired context as its cause.
func (e *Engine) readLine(ctx context.Context) (string, error) {
	select {
	case line, ok := <-e.lines:
		if !ok {
			return "", ErrEngineExited
		}
		e.log.Debug("uci recv", "line", line)
		return line, nil
	case <-ctx.Done():
		return "", context.Cause(ctx)
	}
}

// drainPending drops output left over from earlier exchanges.
func (e *Engine) drainPending() {
	for {
		select {
		case _, ok := <-e.lines:
			if !ok {
				return
			}
		default:
			return
		}
	}
}

func (e *Engine) hasExited() bool {
	select {
	case <-e.exited:
		return true
	default:
		return false
	}
}

func (e *Engine) waitExit(d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-e.exited:
		return true
	case <-timer.C:
		return false
	}
}

// shutdown takes the process down and reaps it. It is used by Stop and by
// failed starts.
func (e *Engine) shutdown() error {
	e.mu.Lock()
	cmd := e.cmd
	discard := e.discard
	e.mu.Unlock()
	if cmd == nil {
		return nil
	}

	select {
	case <-discard:
	default:
		close(discard)
	}

	_ = e.send(uci.CmdQuit)
	_ = e.stdin.Close()
	if e.waitExit(e.stopGrace) {
		return nil
	}

	e.log.Warn("engine ignored quit, sending terminate signal", "pid", cmd.Process.Pid)
	if err := terminate(cmd.Process); err == nil && e.waitExit(e.stopGrace) {
		return nil
	}

	e.log.Warn("engine ignored terminate signal, killing", "pid", cmd.Process.Pid)
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill engine: %w", err)
	}
	<-e.exited
	return nil
}

func (e *Engine) setState(s State) {
	e.mu.Lock()
	e.state = s
	e.mu.Unlock()
}

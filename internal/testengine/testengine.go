// Package testengine is a small deterministic UCI engine used by tests in
// place of Stockfish. It speaks enough of the protocol for the gateway and
// can be told to misbehave through its -mode flag.
//
// Evaluation is material balance from the side to move, except that a mate
// in one is always found and reported as "score mate 1".
package testengine

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/notnil/chess"
)

// Modes accepted by -mode.
const (
	ModeNormal   = "normal"
	ModeSilent   = "silent"    // never answers uci
	ModeCrash    = "crash"     // exits when asked to search
	ModeNoScore  = "noscore"   // answers bestmove without any scored info line
	ModeGarbage  = "garbage"   // reports an unparsable score
	ModeSlow     = "slow"      // searches until told to stop
	ModeDeaf     = "deaf"      // ignores go and stop
	ModeIdleExit = "idle-exit" // exits right after the handshake
	ModeStubborn = "stubborn"  // ignores quit, stdin EOF and SIGTERM
	ModeLagging  = "lagging"   // answers isready late after the handshake
)

// LagDelay is how long a lagging engine takes to answer isready once the
// handshake is done.
const LagDelay = 500 * time.Millisecond

// Name is the engine name reported by "id name" unless NameEnv is set.
const Name = "TestEngine 1.0"

// NameEnv overrides the reported engine name.
const NameEnv = "TESTENGINE_NAME"

// Main runs the engine on the process stdio. It is registered as a command
// with testscript so tests can spawn it by name.
func Main() {
	os.Exit(Run(os.Args[1:], os.Stdin, os.Stdout))
}

// Run runs the engine until quit or end of input and returns an exit code.
func Run(args []string, in io.Reader, out io.Writer) int {
	fs := flag.NewFlagSet("testengine", flag.ContinueOnError)
	mode := fs.String("mode", ModeNormal, "behaviour")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	e := &engine{mode: *mode, w: bufio.NewWriter(out)}
	if e.mode == ModeStubborn {
		signal.Ignore(syscall.SIGTERM)
	}

	if code, done := e.loop(in); done {
		return code
	}
	if e.mode == ModeStubborn {
		for {
			time.Sleep(time.Hour)
		}
	}
	return 0
}

type engine struct {
	mode      string
	w         *bufio.Writer
	pos       *chess.Position
	searching bool
	synced    bool
}

func (e *engine) println(format string, args ...any) {
	fmt.Fprintf(e.w, format+"\n", args...)
	_ = e.w.Flush()
}

// loop handles commands until quit (done) or end of input (not done).
func (e *engine) loop(in io.Reader) (code int, done bool) {
	e.pos = chess.StartingPosition()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "uci":
			if e.mode == ModeSilent {
				continue
			}
			name := Name
			if v := os.Getenv(NameEnv); v != "" {
				name = v
			}
			e.println("id name %s", name)
			e.println("id author chessinsight")
			e.println("option name Threads type spin default 1 min 1 max 1024")
			e.println("uciok")
		case "isready":
			if e.mode == ModeLagging && e.synced {
				time.Sleep(LagDelay)
			}
			e.synced = true
			e.println("readyok")
			if e.mode == ModeIdleExit {
				return 3, true
			}
		case "ucinewgame", "setoption":
		case "position":
			e.position(fields[1:])
		case "go":
			if code, exit := e.goCommand(fields[1:]); exit {
				return code, true
			}
		case "stop":
			if e.mode == ModeDeaf {
				continue
			}
			if e.searching {
				e.searching = false
				e.report(1)
			}
		case "quit":
			if e.mode == ModeStubborn {
				continue
			}
			return 0, true
		}
	}
	return 0, false
}

func (e *engine) position(args []string) {
	if len(args) == 0 {
		return
	}
	switch args[0] {
	case "startpos":
		e.pos = chess.StartingPosition()
	case "fen":
		opt, err := chess.FEN(strings.Join(args[1:], " "))
		if err != nil {
			e.println("info string invalid fen")
			return
		}
		e.pos = chess.NewGame(opt).Position()
	}
}

func (e *engine) goCommand(args []string) (code int, exit bool) {
	depth := 1
	for i := 0; i+1 < len(args); i++ {
		if args[i] == "depth" {
			fmt.Sscanf(args[i+1], "%d", &depth)
		}
	}

	switch e.mode {
	case ModeCrash:
		return 4, true
	case ModeDeaf:
		return 0, false
	case ModeSlow:
		e.searching = true
		e.println("info depth 1 score cp 0 nodes 1 pv")
		return 0, false
	case ModeNoScore:
		e.println("info depth %d nodes 10", depth)
		e.println("bestmove %s", e.firstMove())
		return 0, false
	case ModeGarbage:
		e.println("info depth %d score cp lots nodes 10", depth)
		e.println("bestmove %s", e.firstMove())
		return 0, false
	}
	e.report(depth)
	return 0, false
}

// report prints the info lines for a finished search followed by bestmove.
func (e *engine) report(depth int) {
	switch e.pos.Status() {
	case chess.Checkmate:
		e.println("info depth 0 score mate 0")
		e.println("bestmove (none)")
		return
	case chess.Stalemate:
		e.println("info depth 0 score cp 0")
		e.println("bestmove (none)")
		return
	}

	if mate := e.mateInOne(); mate != "" {
		e.println("info depth 1 seldepth 1 multipv 1 score mate 1 nodes 20 nps 2000 time 10 pv %s", mate)
		e.println("bestmove %s", mate)
		return
	}

	cp := e.material()
	best := e.firstMove()
	for d := 1; d <= depth; d++ {
		nodes := d * 100
		e.println("info depth %d seldepth %d multipv 1 score cp %d nodes %d nps %d time %d pv %s",
			d, d+2, cp, nodes, nodes*100, d, best)
	}
	e.println("bestmove %s", best)
}

func (e *engine) firstMove() string {
	moves := e.pos.ValidMoves()
	if len(moves) == 0 {
		return "(none)"
	}
	return moves[0].String()
}

func (e *engine) mateInOne() string {
	for _, m := range e.pos.ValidMoves() {
		if e.pos.Update(m).Status() == chess.Checkmate {
			return m.String()
		}
	}
	return ""
}

var pieceValues = map[chess.PieceType]int{
	chess.Pawn:   100,
	chess.Knight: 300,
	chess.Bishop: 300,
	chess.Rook:   500,
	chess.Queen:  900,
}

// material returns the material balance from the side to move.
func (e *engine) material() int {
	score := 0
	for _, piece := range e.pos.Board().SquareMap() {
		v := pieceValues[piece.Type()]
		if piece.Color() == e.pos.Turn() {
			score += v
		} else {
			score -= v
		}
	}
	return score
}

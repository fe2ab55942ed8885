package uci

import (
	"strconv"
	"strings"
)

// Commands sent from the GUI side to the engine.
const (
	CmdUCI     = "uci"
	CmdIsReady = "isready"
	CmdNewGame = "ucinewgame"
	CmdStop    = "stop"
	CmdQuit    = "quit"
)

// Engine responses that terminate an exchange.
const (
	RespUCIOK    = "uciok"
	RespReadyOK  = "readyok"
	RespBestMove = "bestmove"
	RespInfo     = "info"
	RespID       = "id"
)

// NoMove is what engines print as the best move when the side to move has
// no legal moves.
const NoMove = "(none)"

// SetOption formats a setoption command. Button options take no value; pass
// an empty value for them.
func SetOption(name, value string) string {
	if value == "" {
		return "setoption name " + name
	}
	return "setoption name " + name + " value " + value
}

// PositionFEN formats a position command for a FEN string.
func PositionFEN(fen string) string {
	return "position fen " + strings.TrimSpace(fen)
}

// GoDepth formats a go command bounded by search depth.
func GoDepth(depth int) string {
	return "go depth " + strconv.Itoa(depth)
}

// IsResponse reports whether line is the response keyword want, allowing
// surrounding whitespace. Engines are not consistent about trailing spaces.
func IsResponse(line, want string) bool {
	return strings.TrimSpace(line) == want
}

// ParseBestMove parses a "bestmove <move> [ponder <move>]" line.
// When the engine had no legal move to play, best is empty.
func ParseBestMove(line string) (best, ponder string, err error) {
	fields := strings.Fields(line)
	if len(fields) < 2 || fields[0] != RespBestMove {
		return "", "", malformed("bestmove", line)
	}
	best = fields[1]
	if best == NoMove || best == "0000" {
		best = ""
	}
	if len(fields) >= 4 && fields[2] == "ponder" {
		ponder = fields[3]
	}
	return best, ponder, nil
}

// ParseID parses an "id name ..." or "id author ..." line.
func ParseID(line string) (key, value string, ok bool) {
	fields := strings.Fields(line)
	if len(fields) < 3 || fields[0] != RespID {
		return "", "", false
	}
	return fields[1], strings.Join(fields[2:], " "), true
}

package gateway

import (
	"fmt"
	"strings"

	"github.com/notnil/chess"
)

// StartFEN is the standard initial position.
const StartFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// Position is an immutable, validated board state.
type Position struct {
	pos *chess.Position
}

// ParsePosition parses and validates a FEN string. Besides the FEN grammar
// it requires exactly one king per side and that the side not to move is not
// in check. Engines assume both and may crash without.
func ParsePosition(fen string) (Position, error) {
	opt, err := chess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return Position{}, fmt.Errorf("%w: %v", ErrInvalidPosition, err)
	}
	pos := chess.NewGame(opt).Position()

	var (
		board                  grid
		whiteKings, blackKings int
		opponentKing           square
	)
	for sq, piece := range pos.Board().SquareMap() {
		at := square{file: int(sq.File()), rank: int(sq.Rank())}
		board[at.file][at.rank] = piece
		if piece.Type() != chess.King {
			continue
		}
		if piece.Color() == chess.White {
			whiteKings++
		} else {
			blackKings++
		}
		if piece.Color() != pos.Turn() {
			opponentKing = at
		}
	}
	if whiteKings != 1 || blackKings != 1 {
		return Position{}, fmt.Errorf("%w: want one king per side, found %d white and %d black",
			ErrInvalidPosition, whiteKings, blackKings)
	}
	if board.attacked(opponentKing, pos.Turn()) {
		return Position{}, fmt.Errorf("%w: %s to move can capture the king", ErrInvalidPosition, colorName(pos.Turn()))
	}

	return Position{pos: pos}, nil
}

type square struct{ file, rank int }

// grid is a board indexed by file then rank, both from 0.
type grid [8][8]chess.Piece

func (g *grid) at(file, rank int) chess.Piece {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return chess.NoPiece
	}
	return g[file][rank]
}

var (
	knightSteps   = [][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingSteps     = [][2]int{{1, 0}, {1, 1}, {0, 1}, {-1, 1}, {-1, 0}, {-1, -1}, {0, -1}, {1, -1}}
	straightRays  = [][2]int{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	diagonalRays  = [][2]int{{1, 1}, {1, -1}, {-1, 1}, {-1, -1}}
	pawnDirection = map[chess.Color]int{chess.White: 1, chess.Black: -1}
)

// attacked reports whether a piece of color by attacks target.
func (g *grid) attacked(target square, by chess.Color) bool {
	is := func(p chess.Piece, types ...chess.PieceType) bool {
		if p == chess.NoPiece || p.Color() != by {
			return false
		}
		for _, t := range types {
			if p.Type() == t {
				return true
			}
		}
		return false
	}

	behind := target.rank - pawnDirection[by]
	if is(g.at(target.file-1, behind), chess.Pawn) || is(g.at(target.file+1, behind), chess.Pawn) {
		return true
	}
	for _, step := range knightSteps {
		if is(g.at(target.file+step[0], target.rank+step[1]), chess.Knight) {
			return true
		}
	}
	for _, step := range kingSteps {
		if is(g.at(target.file+step[0], target.rank+step[1]), chess.King) {
			return true
		}
	}
	slide := func(rays [][2]int, types ...chess.PieceType) bool {
		for _, ray := range rays {
			f, r := target.file+ray[0], target.rank+ray[1]
			for f >= 0 && f <= 7 && r >= 0 && r <= 7 {
				if p := g[f][r]; p != chess.NoPiece {
					if is(p, types...) {
						return true
					}
					break
				}
				f, r = f+ray[0], r+ray[1]
			}
		}
		return false
	}
	return slide(straightRays, chess.Rook, chess.Queen) || slide(diagonalRays, chess.Bishop, chess.Queen)
}

func colorName(c chess.Color) string {
	if c == chess.White {
		return "white"
	}
	return "black"
}

// MustParsePosition is like ParsePosition but panics on error. It is meant
// for constants and tests.
func MustParsePosition(fen string) Position {
	p, err := ParsePosition(fen)
	if err != nil {
		panic(err)
	}
	return p
}

// StartPosition returns the standard initial position.
func StartPosition() Position {
	return MustParsePosition(StartFEN)
}

// IsZero reports whether p was never initialized.
func (p Position) IsZero() bool { return p.pos == nil }

// FEN returns the position in Forsyth-Edwards Notation.
func (p Position) FEN() string {
	if p.pos == nil {
		return ""
	}
	return p.pos.String()
}

// WhiteToMove reports whether White is the side to move.
func (p Position) WhiteToMove() bool {
	return p.pos != nil && p.pos.Turn() == chess.White
}

// Checkmated reports whether the side to move is checkmated.
func (p Position) Checkmated() bool {
	return p.pos != nil && p.pos.Status() == chess.Checkmate
}

// SearchLimit bounds the engine effort for one analysis.
type SearchLimit struct {
	Depth int
}

// Validate checks that the limit can be sent to an engine.
func (l SearchLimit) Validate() error {
	if l.Depth < 1 {
		return fmt.Errorf("%w: depth must be at least 1, got %d", ErrInvalidLimit, l.Depth)
	}
	return nil
}

package uci

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMateScore is returned when a centipawn value is requested from a mate
// score.
var ErrMateScore = errors.New("score is a forced mate, not a centipawn value")

// ScoreKind tells the two score representations apart.
type ScoreKind int

// Score kinds.
const (
	KindCentipawns ScoreKind = iota
	KindMate
)

// String returns the UCI keyword for the kind.
func (k ScoreKind) String() string {
	if k == KindMate {
		return "mate"
	}
	return "cp"
}

// Score is an evaluation from one side's point of view.
//
// For mate scores, a positive distance means this side mates in that many
// moves and a negative distance means this side gets mated. Distance zero is
// a position that is already checkmate; given records which side that is,
// so Negate is always reversible.
type Score struct {
	kind  ScoreKind
	value int
	given bool
}

// CP returns a centipawn score.
func CP(centipawns int) Score {
	return Score{kind: KindCentipawns, value: centipawns}
}

// Mate returns a mate score. Mate(0) means this side is checkmated.
func Mate(moves int) Score {
	return Score{kind: KindMate, value: moves}
}

// MateGiven returns the score of a side whose opponent is already
// checkmated.
func MateGiven() Score {
	return Score{kind: KindMate, given: true}
}

// Kind returns the score representation.
func (s Score) Kind() ScoreKind { return s.kind }

// IsMate reports whether the score is a forced mate.
func (s Score) IsMate() bool { return s.kind == KindMate }

// Centipawns returns the centipawn value, or ErrMateScore for mate scores.
func (s Score) Centipawns() (int, error) {
	if s.kind == KindMate {
		return 0, ErrMateScore
	}
	return s.value, nil
}

// MateIn returns the signed mate distance. ok is false for centipawn
// scores.
func (s Score) MateIn() (moves int, ok bool) {
	if s.kind != KindMate {
		return 0, false
	}
	return s.value, true
}

// Winning reports whether this side is the one delivering mate. It is
// false for centipawn scores.
func (s Score) Winning() bool {
	if s.kind != KindMate {
		return false
	}
	if s.value == 0 {
		return s.given
	}
	return s.value > 0
}

// Negate returns the same evaluation from the opponent's point of view.
func (s Score) Negate() Score {
	if s.kind == KindMate && s.value == 0 {
		return Score{kind: KindMate, given: !s.given}
	}
	return Score{kind: s.kind, value: -s.value}
}

// Value returns the raw number carried by the score: centipawns, or the
// signed mate distance.
func (s Score) Value() int { return s.value }

// String renders the score the way analysis boards do: "+0.31", "-1.05",
// "#3", "#-2". A finished mate renders as "#+0" for the winner and "#-0"
// for the side that is mated.
func (s Score) String() string {
	if s.kind == KindMate {
		switch {
		case s.value == 0 && s.given:
			return "#+0"
		case s.value == 0:
			return "#-0"
		default:
			return "#" + strconv.Itoa(s.value)
		}
	}
	cp := s.value
	sign := "+"
	if cp < 0 {
		sign = "-"
		cp = -cp
	}
	return fmt.Sprintf("%s%d.%02d", sign, cp/100, cp%100)
}

// parseScore parses the two tokens following "score".
func parseScore(kind, value string) (Score, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return Score{}, fmt.Errorf("%w: score value %q", ErrMalformed, value)
	}
	switch kind {
	case "cp":
		return CP(n), nil
	case "mate":
		return Mate(n), nil
	default:
		return Score{}, fmt.Errorf("%w: score kind %q", ErrMalformed, kind)
	}
}

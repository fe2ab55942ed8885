// Package uci implements the client side of the Universal Chess Interface
// text protocol: command formatting for the lines sent to an engine and
// parsing of the lines an engine writes back.
//
// The package is transport agnostic. It knows nothing about processes or
// pipes; see package gateway for the engine lifecycle built on top of it.
//
// # Scores
//
// Engines report scores from the point of view of the side to move, either
// in centipawns or as a distance to a forced mate:
//
//	info depth 12 score cp 31 nodes 20431 pv e2e4 e7e5
//	info depth 3 score mate 2 pv d8h4 g2g3 h4g3
//
// Score keeps both forms apart. A mate score never collapses into a
// centipawn number; asking it for centipawns returns ErrMateScore.
package uci

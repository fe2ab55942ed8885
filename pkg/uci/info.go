package uci

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrMalformed is returned for engine output that does not follow the
// protocol grammar.
var ErrMalformed = errors.New("malformed engine output")

func malformed(what, line string) error {
	return fmt.Errorf("%w: %s line %q", ErrMalformed, what, line)
}

// Bound qualifies a score reported during search.
type Bound int

// Score bounds. Engines mark a score as a lower or upper bound when the
// search failed high or low at that depth.
const (
	BoundExact Bound = iota
	BoundLower
	BoundUpper
)

// Info is one parsed "info" line.
type Info struct {
	Depth    int
	SelDepth int
	MultiPV  int
	Score    Score
	HasScore bool
	Bound    Bound
	Nodes    int64
	NPS      int64
	Time     time.Duration
	PV       []string
	// String holds the free text of an "info string" line.
	String string
}

// infoKeywords start a new field inside an info line. Lists such as pv end
// at the next keyword.
var infoKeywords = map[string]bool{
	"depth": true, "seldepth": true, "time": true, "nodes": true, "pv": true,
	"multipv": true, "score": true, "currmove": true, "currmovenumber": true,
	"hashfull": true, "nps": true, "tbhits": true, "sbhits": true,
	"cpuload": true, "string": true, "refutation": true, "currline": true,
}

// ParseInfo parses an engine "info" line. Unknown tokens are skipped.
func ParseInfo(line string) (Info, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || fields[0] != RespInfo {
		return Info{}, malformed("info", line)
	}

	var info Info
	for i := 1; i < len(fields); i++ {
		switch key := fields[i]; key {
		case "string":
			info.String = strings.Join(fields[i+1:], " ")
			return info, nil
		case "depth", "seldepth", "multipv", "nodes", "nps", "time":
			if i+1 >= len(fields) {
				return Info{}, malformed("info", line)
			}
			n, err := strconv.ParseInt(fields[i+1], 10, 64)
			if err != nil {
				return Info{}, fmt.Errorf("%w: %s %q", ErrMalformed, key, fields[i+1])
			}
			i++
			switch key {
			case "depth":
				info.Depth = int(n)
			case "seldepth":
				info.SelDepth = int(n)
			case "multipv":
				info.MultiPV = int(n)
			case "nodes":
				info.Nodes = n
			case "nps":
				info.NPS = n
			case "time":
				info.Time = time.Duration(n) * time.Millisecond
			}
		case "score":
			if i+2 >= len(fields) {
				return Info{}, malformed("info", line)
			}
			score, err := parseScore(fields[i+1], fields[i+2])
			if err != nil {
				return Info{}, err
			}
			info.Score = score
			info.HasScore = true
			i += 2
			if i+1 < len(fields) {
				switch fields[i+1] {
				case "lowerbound":
					info.Bound = BoundLower
					i++
				case "upperbound":
					info.Bound = BoundUpper
					i++
				}
			}
		case "pv", "refutation", "currline":
			j := i + 1
			for j < len(fields) && !infoKeywords[fields[j]] {
				j++
			}
			if key == "pv" {
				info.PV = append([]string(nil), fields[i+1:j]...)
			}
			i = j - 1
		case "currmove", "currmovenumber", "hashfull", "tbhits", "sbhits", "cpuload":
			i++
		}
	}
	return info, nil
}

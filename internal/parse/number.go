// Package parse extracts structure from equipment numbers like
// "STAMP-L2-07": an area code, an optional line, and a sequence. The parsed
// form gives the reconciler a stable, human-meaningful processing order and
// lets the API group equipment by area.
package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var (
	seqRe  = regexp.MustCompile(`-(\d+)\s*$`)
	lineRe = regexp.MustCompile(`(?i)^L?(\d+)$`)
)

// ParsedNumber holds the structured data parsed from an equipment number.
type ParsedNumber struct {
	Area string
	Line int
	Seq  int
}

// ParseNumber splits an equipment number into area, line, and sequence.
// Accepted shapes: "AREA-L<line>-<seq>", "AREA-<line>-<seq>", "AREA-<seq>",
// and a bare "AREA". The area code is required; line and sequence default
// to zero when absent.
func ParseNumber(raw string) (ParsedNumber, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ParsedNumber{}, fmt.Errorf("empty equipment number")
	}

	// Take the trailing "-<seq>" first, then look for a line segment.
	seq := 0
	if loc := seqRe.FindStringSubmatchIndex(s); loc != nil {
		if n, err := strconv.Atoi(s[loc[2]:loc[3]]); err == nil {
			seq = n
			s = strings.TrimSpace(s[:loc[0]])
		}
	}

	line := 0
	if idx := strings.LastIndex(s, "-"); idx > 0 {
		if m := lineRe.FindStringSubmatch(strings.TrimSpace(s[idx+1:])); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil {
				line = n
				s = strings.TrimSpace(s[:idx])
			}
		}
	}

	area := strings.ToUpper(s)
	if area == "" || strings.Contains(area, " ") {
		return ParsedNumber{}, fmt.Errorf("unable to parse equipment number: %q", raw)
	}

	return ParsedNumber{Area: area, Line: line, Seq: seq}, nil
}

// Less orders parsed numbers by area, then line, then sequence.
func (p ParsedNumber) Less(other ParsedNumber) bool {
	if p.Area != other.Area {
		return p.Area < other.Area
	}
	if p.Line != other.Line {
		return p.Line < other.Line
	}
	return p.Seq < other.Seq
}

// NumberLess compares two raw equipment numbers in parsed order, falling back
// to a plain string comparison when either side does not parse. Used to keep
// reconciliation output deterministic.
func NumberLess(a, b string) bool {
	pa, errA := ParseNumber(a)
	pb, errB := ParseNumber(b)
	if errA != nil || errB != nil {
		return a < b
	}
	if pa.Area == pb.Area && pa.Line == pb.Line && pa.Seq == pb.Seq {
		return a < b
	}
	return pa.Less(pb)
}

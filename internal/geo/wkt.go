package geo

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// ErrMalformedPoint is returned when a coordinate literal does not follow the
// `Point(<lon> <lat>)` grammar.
var ErrMalformedPoint = errors.New("malformed point literal")

// ParsePoint parses a WKT point literal of the form `Point(<lon> <lat>)`.
//
// Grammar: "Point" ws* "(" ws* float ws+ float ws* ")". The keyword is case-sensitive, floats may
// use exponent notation, and nothing may trail the closing parenthesis.
func ParsePoint(s string) (orb.Point, error) {
	p := pointParser{src: s}
	if !p.keyword("Point") {
		return orb.Point{}, p.fail("expected Point keyword")
	}
	p.skipSpace()
	if !p.char('(') {
		return orb.Point{}, p.fail("expected '('")
	}
	p.skipSpace()
	lon, ok := p.float()
	if !ok {
		return orb.Point{}, p.fail("expected longitude")
	}
	if p.skipSpace() == 0 {
		return orb.Point{}, p.fail("expected whitespace between coordinates")
	}
	lat, ok := p.float()
	if !ok {
		return orb.Point{}, p.fail("expected latitude")
	}
	p.skipSpace()
	if !p.char(')') {
		return orb.Point{}, p.fail("expected ')'")
	}
	if p.pos != len(p.src) {
		return orb.Point{}, p.fail("trailing data")
	}
	return orb.Point{lon, lat}, nil
}

// FormatPoint renders p as a `Point(<lon> <lat>)` literal.
func FormatPoint(p orb.Point) string {
	return "Point(" + formatFloat(p.Lon()) + " " + formatFloat(p.Lat()) + ")"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

type pointParser struct {
	src string
	pos int
}

func (p *pointParser) fail(msg string) error {
	return fmt.Errorf("%w: %s at offset %d in %q", ErrMalformedPoint, msg, p.pos, p.src)
}

func (p *pointParser) keyword(kw string) bool {
	if !strings.HasPrefix(p.src[p.pos:], kw) {
		return false
	}
	p.pos += len(kw)
	return true
}

func (p *pointParser) char(c byte) bool {
	if p.pos < len(p.src) && p.src[p.pos] == c {
		p.pos++
		return true
	}
	return false
}

func (p *pointParser) skipSpace() int {
	start := p.pos
	for p.pos < len(p.src) {
		switch p.src[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
		default:
			return p.pos - start
		}
	}
	return p.pos - start
}

// float consumes the longest run of [-+0-9.eE] and parses it as a float64.
func (p *pointParser) float() (float64, bool) {
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		if (c >= '0' && c <= '9') || c == '-' || c == '+' || c == '.' || c == 'e' || c == 'E' {
			p.pos++
			continue
		}
		break
	}
	if p.pos == start {
		return 0, false
	}
	v, err := strconv.ParseFloat(p.src[start:p.pos], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

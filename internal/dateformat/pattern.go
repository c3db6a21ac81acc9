// Package dateformat compiles and applies letter based date patterns such as
// "yyyy-MM-dd HH.mm" or "EEEE d MMMM", the notation profiles use for
// placemark names and date folders.
//
// Pattern letters:
//
//	G era            y year          Y week year     M/L month
//	w week of year   W week of month D day of year   d day of month
//	F weekday index  E day name      u day number    a am/pm marker
//	H hour 0-23      k hour 1-24     K hour 0-11     h hour 1-12
//	m minute         s second        S millisecond
//	z zone name      Z zone offset   X ISO 8601 zone
//
// Week fields (Y, w, W) follow the week conventions of the locale's region:
// en_US weeks start on Sunday and week 1 holds January 1st, de_DE uses
// ISO 8601 weeks.
//
// Text between single quotes is copied verbatim; two single quotes produce
// one quote. Any other unquoted ASCII letter is an error.
package dateformat

import (
	"fmt"
	"strings"
	"time"

	"github.com/goodsign/monday"
)

const patternLetters = "GyYMLwWDdFEuaHkKhmsSzZX"

type token struct {
	letter  rune
	count   int
	literal string
}

// Pattern is a compiled date pattern bound to a locale. It is immutable and
// safe for concurrent use.
type Pattern struct {
	src    string
	locale monday.Locale
	week   weekRule
	tokens []token
}

type PatternError struct {
	Pattern string
	Pos     int
	Reason  string
}

func (e *PatternError) Error() string {
	if e.Pos < 0 {
		return fmt.Sprintf("date pattern %q: %s", e.Pattern, e.Reason)
	}
	return fmt.Sprintf("date pattern %q: %s at position %d", e.Pattern, e.Reason, e.Pos)
}

func Compile(pattern string, locale monday.Locale) (*Pattern, error) {
	if strings.TrimSpace(pattern) == "" {
		return nil, &PatternError{Pattern: pattern, Pos: -1, Reason: "empty pattern"}
	}

	runes := []rune(pattern)
	var tokens []token
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			tokens = append(tokens, token{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(runes); {
		r := runes[i]
		switch {
		case r == '\'':
			if i+1 < len(runes) && runes[i+1] == '\'' {
				lit.WriteRune('\'')
				i += 2
				continue
			}
			start := i
			i++
			closed := false
			for i < len(runes) {
				if runes[i] == '\'' {
					if i+1 < len(runes) && runes[i+1] == '\'' {
						lit.WriteRune('\'')
						i += 2
						continue
					}
					closed = true
					i++
					break
				}
				lit.WriteRune(runes[i])
				i++
			}
			if !closed {
				return nil, &PatternError{Pattern: pattern, Pos: start, Reason: "unterminated quote"}
			}
		case isASCIILetter(r):
			if !strings.ContainsRune(patternLetters, r) {
				return nil, &PatternError{Pattern: pattern, Pos: i, Reason: fmt.Sprintf("illegal pattern character '%c'", r)}
			}
			count := 1
			for i+count < len(runes) && runes[i+count] == r {
				count++
			}
			if r == 'X' && count > 3 {
				return nil, &PatternError{Pattern: pattern, Pos: i, Reason: "ISO 8601 zone takes at most three letters"}
			}
			flush()
			tokens = append(tokens, token{letter: r, count: count})
			i += count
		default:
			lit.WriteRune(r)
			i++
		}
	}
	flush()

	return &Pattern{src: pattern, locale: locale, week: weekRuleFor(locale), tokens: tokens}, nil
}

func (p *Pattern) String() string { return p.src }

func (p *Pattern) Locale() monday.Locale { return p.locale }

func (p *Pattern) Format(t time.Time) string {
	var sb strings.Builder
	for _, tok := range p.tokens {
		if tok.letter == 0 {
			sb.WriteString(tok.literal)
			continue
		}
		sb.WriteString(p.field(t, tok))
	}
	return sb.String()
}

func (p *Pattern) field(t time.Time, tok token) string {
	n := tok.count
	switch tok.letter {
	case 'G':
		if t.Year() > 0 {
			return "AD"
		}
		return "BC"
	case 'y':
		return year(t.Year(), n)
	case 'Y':
		y, _ := p.week.yearWeek(t)
		return year(y, n)
	case 'M', 'L':
		switch {
		case n >= 4:
			return p.text(t, "January")
		case n == 3:
			return p.text(t, "Jan")
		}
		return pad(int(t.Month()), n)
	case 'w':
		_, w := p.week.yearWeek(t)
		return pad(w, n)
	case 'W':
		return pad(p.week.weekOfMonth(t), n)
	case 'D':
		return pad(t.YearDay(), n)
	case 'd':
		return pad(t.Day(), n)
	case 'F':
		return pad((t.Day()-1)/7+1, n)
	case 'E':
		if n >= 4 {
			return p.text(t, "Monday")
		}
		return p.text(t, "Mon")
	case 'u':
		return pad(isoWeekday(t), n)
	case 'a':
		return p.text(t, "PM")
	case 'H':
		return pad(t.Hour(), n)
	case 'k':
		h := t.Hour()
		if h == 0 {
			h = 24
		}
		return pad(h, n)
	case 'K':
		return pad(t.Hour()%12, n)
	case 'h':
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad(h, n)
	case 'm':
		return pad(t.Minute(), n)
	case 's':
		return pad(t.Second(), n)
	case 'S':
		return pad(t.Nanosecond()/int(time.Millisecond), n)
	case 'z':
		return t.Format("MST")
	case 'Z':
		return t.Format("-0700")
	case 'X':
		switch n {
		case 1:
			return t.Format("Z07")
		case 2:
			return t.Format("Z0700")
		}
		return t.Format("Z07:00")
	}
	return ""
}

func (p *Pattern) text(t time.Time, layout string) string {
	return monday.Format(t, layout, p.locale)
}

func year(y, n int) string {
	if n == 2 {
		return pad(((y%100)+100)%100, 2)
	}
	return pad(y, n)
}

func pad(v, width int) string {
	return fmt.Sprintf("%0*d", width, v)
}

func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

func isASCIILetter(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z')
}

package datemath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Sentinel parse errors. Callers match with errors.Is.
var (
	ErrEmptyExpression   = errors.New("empty expression")
	ErrInvalidExpression = errors.New("invalid expression")
	// ErrISOWithoutOffset rejects ISO-8601 datetimes lacking a UTC offset.
	// They are ambiguous against the active timezone and must be entered
	// as wall-clock expressions instead.
	ErrISOWithoutOffset = errors.New("iso instant without utc offset")
	ErrInvalidWallTime  = errors.New("invalid wall-clock time")
)

// Patterns for expression parsing
var (
	relativePattern    = regexp.MustCompile(`^now((?:[+-]\d+[smhdwMy])*)(?:/([smhdwMy]))?$`)
	offsetPattern      = regexp.MustCompile(`([+-])(\d+)([smhdwMy])`)
	isoNoOffsetPattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}T\d{2}:\d{2}(?::\d{2}(?:\.\d+)?)?$`)
	wallPattern        = regexp.MustCompile(`^(\d{4})-(\d{1,2})-(\d{1,2})(?: (\d{1,2}):(\d{1,2})(?::(\d{1,2}))?)?$`)
)

// Parse lexes an endpoint expression into one of the three kinds.
// It fails with a typed error when the text matches none of the grammars.
func Parse(text string) (Expression, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyExpression
	}

	if strings.HasPrefix(text, "now") {
		return parseRelative(text)
	}

	if t, err := time.Parse(time.RFC3339, text); err == nil {
		return &InstantExpr{Time: t}, nil
	}
	if isoNoOffsetPattern.MatchString(text) {
		return nil, fmt.Errorf("%w: %s", ErrISOWithoutOffset, text)
	}

	if m := wallPattern.FindStringSubmatch(text); m != nil {
		return parseWall(m)
	}

	return nil, fmt.Errorf("%w: %s", ErrInvalidExpression, text)
}

// parseRelative parses the relative grammar: now[±Nunit...][/unit].
func parseRelative(text string) (Expression, error) {
	m := relativePattern.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidExpression, text)
	}

	expr := &RelativeExpr{}
	for _, om := range offsetPattern.FindAllStringSubmatch(m[1], -1) {
		amount, err := strconv.Atoi(om[2])
		if err != nil {
			return nil, fmt.Errorf("%w: offset amount in %s", ErrInvalidExpression, text)
		}
		if om[1] == "-" {
			amount = -amount
		}
		expr.Offsets = append(expr.Offsets, Offset{Amount: amount, Unit: Unit(om[3])})
	}
	if m[2] != "" {
		expr.RoundUnit = Unit(m[2])
	}
	return expr, nil
}

// parseWall parses the wall-clock grammar from a wallPattern match.
func parseWall(m []string) (Expression, error) {
	atoi := func(s string) int {
		if s == "" {
			return 0
		}
		n, _ := strconv.Atoi(s)
		return n
	}
	parts := WallParts{
		Year:   atoi(m[1]),
		Month:  atoi(m[2]),
		Day:    atoi(m[3]),
		Hour:   atoi(m[4]),
		Minute: atoi(m[5]),
		Second: atoi(m[6]),
	}
	if err := parts.Validate(); err != nil {
		return nil, err
	}
	return &WallExpr{Parts: parts}, nil
}

// Normalized is the outcome of tolerant input normalization.
type Normalized struct {
	// Expr is the canonical expression text.
	Expr string
	// KindHint tags which grammar matched.
	KindHint Kind
	// Wall carries decomposed parts when KindHint is KindWall.
	Wall *WallParts
}

// wallInputFormats accepts the partially-typed wall forms users produce
// while still typing. Parsed in UTC; the zone is irrelevant to the parts.
var wallInputFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02 15",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"2006/01/02 15:04:05",
	"2006/01/02 15:04",
	"2006/01/02",
}

// NormalizeInput tolerantly converts raw user text into a canonical
// expression plus kind hint. It never panics; unrecoverable text yields an
// error value for the caller to render, not an exception.
func NormalizeInput(raw string) (Normalized, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Normalized{}, ErrEmptyExpression
	}

	if expr, err := Parse(text); err == nil {
		n := Normalized{Expr: expr.String(), KindHint: expr.Kind()}
		if wall, ok := expr.(*WallExpr); ok {
			parts := wall.Parts
			n.Wall = &parts
		}
		return n, nil
	} else if errors.Is(err, ErrISOWithoutOffset) || errors.Is(err, ErrInvalidWallTime) {
		return Normalized{}, err
	}

	// Tolerant wall-clock ladder for partially-typed input.
	for _, format := range wallInputFormats {
		t, err := time.Parse(format, text)
		if err != nil {
			continue
		}
		parts := WallParts{
			Year:   t.Year(),
			Month:  int(t.Month()),
			Day:    t.Day(),
			Hour:   t.Hour(),
			Minute: t.Minute(),
			Second: t.Second(),
		}
		return Normalized{Expr: FormatWall(parts), KindHint: KindWall, Wall: &parts}, nil
	}

	return Normalized{}, fmt.Errorf("%w: %s", ErrInvalidExpression, text)
}

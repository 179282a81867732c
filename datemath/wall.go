package datemath

import (
	"fmt"
	"time"
)

// WallParts is a decomposed local calendar date + time-of-day.
type WallParts struct {
	Year   int `json:"year"`
	Month  int `json:"month"`
	Day    int `json:"day"`
	Hour   int `json:"hour"`
	Minute int `json:"minute"`
	Second int `json:"second"`
}

// Validate checks field ranges and that the date exists on the calendar.
func (p WallParts) Validate() error {
	if p.Year < 1 || p.Year > 9999 {
		return fmt.Errorf("%w: year %d out of range", ErrInvalidWallTime, p.Year)
	}
	if p.Month < 1 || p.Month > 12 {
		return fmt.Errorf("%w: month %d out of range", ErrInvalidWallTime, p.Month)
	}
	if p.Hour < 0 || p.Hour > 23 || p.Minute < 0 || p.Minute > 59 || p.Second < 0 || p.Second > 59 {
		return fmt.Errorf("%w: time %02d:%02d:%02d out of range", ErrInvalidWallTime, p.Hour, p.Minute, p.Second)
	}
	// time.Date normalizes overflow, so a round-trip detects days like Feb 30.
	t := time.Date(p.Year, time.Month(p.Month), p.Day, 0, 0, 0, 0, time.UTC)
	if t.Year() != p.Year || int(t.Month()) != p.Month || t.Day() != p.Day {
		return fmt.Errorf("%w: no such date %04d-%02d-%02d", ErrInvalidWallTime, p.Year, p.Month, p.Day)
	}
	return nil
}

// FormatWall renders parts in the canonical wall-clock form
// "2006-01-02 15:04:05". FormatWall and ParseWallDisplay round-trip.
func FormatWall(p WallParts) string {
	return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", p.Year, p.Month, p.Day, p.Hour, p.Minute, p.Second)
}

// WallDisplayText returns the human display form of a wall expression.
// It is the canonical form, so re-parsing it yields equal parts.
func WallDisplayText(e *WallExpr) string {
	return FormatWall(e.Parts)
}

// ParseWallDisplay parses a wall-clock display string back into parts.
func ParseWallDisplay(text string) (WallParts, error) {
	expr, err := Parse(text)
	if err != nil {
		return WallParts{}, err
	}
	wall, ok := expr.(*WallExpr)
	if !ok {
		return WallParts{}, fmt.Errorf("%w: not a wall-clock expression: %s", ErrInvalidExpression, text)
	}
	return wall.Parts, nil
}

// DisplayText returns the form an editor input should show for an
// expression: formatted for wall-clock kinds, canonical text otherwise.
func DisplayText(e Expression) string {
	if wall, ok := e.(*WallExpr); ok {
		return WallDisplayText(wall)
	}
	return e.String()
}

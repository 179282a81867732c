// Package datemath parses the textual time-endpoint expressions used by the
// range picker: relative ("now-15m/h"), absolute ISO-8601 instants, and
// local wall-clock datetimes. Parsing is timezone-agnostic; only evaluation
// binds a zone.
package datemath

import (
	"fmt"
	"time"
)

// Kind tags the three expression grammars.
type Kind string

const (
	// KindRelative is an expression anchored at "now" with unit offsets.
	KindRelative Kind = "relative"
	// KindInstant is a full ISO-8601 instant carrying a UTC offset.
	KindInstant Kind = "instant"
	// KindWall is a local calendar date + time-of-day without an offset.
	KindWall Kind = "wall"
)

// Unit is a datemath offset/rounding unit.
type Unit string

const (
	UnitSecond Unit = "s"
	UnitMinute Unit = "m"
	UnitHour   Unit = "h"
	UnitDay    Unit = "d"
	UnitWeek   Unit = "w"
	UnitMonth  Unit = "M"
	UnitYear   Unit = "y"
)

// Offset is one signed step of a relative expression.
type Offset struct {
	Amount int // signed
	Unit   Unit
}

// Expression is the parsed form of an endpoint expression.
type Expression interface {
	Kind() Kind
	// String returns the canonical textual form of the expression.
	String() string
}

// RelativeExpr is an anchor at "now" plus signed unit offsets and an
// optional trailing rounding unit.
type RelativeExpr struct {
	Offsets   []Offset
	RoundUnit Unit // "" when no /unit suffix
}

func (e *RelativeExpr) Kind() Kind { return KindRelative }

func (e *RelativeExpr) String() string {
	s := "now"
	for _, off := range e.Offsets {
		if off.Amount >= 0 {
			s += fmt.Sprintf("+%d%s", off.Amount, off.Unit)
		} else {
			s += fmt.Sprintf("-%d%s", -off.Amount, off.Unit)
		}
	}
	if e.RoundUnit != "" {
		s += "/" + string(e.RoundUnit)
	}
	return s
}

// ImplicitUnit returns the unit the expression itself supplies for
// rounding: the /unit suffix when present, else the unit of the last
// offset. Bare "now" supplies none.
func (e *RelativeExpr) ImplicitUnit() Unit {
	if e.RoundUnit != "" {
		return e.RoundUnit
	}
	if n := len(e.Offsets); n > 0 {
		return e.Offsets[n-1].Unit
	}
	return ""
}

// InstantExpr is an absolute ISO-8601 instant.
type InstantExpr struct {
	Time time.Time
}

func (e *InstantExpr) Kind() Kind { return KindInstant }

func (e *InstantExpr) String() string {
	return e.Time.Format(time.RFC3339)
}

// WallExpr is a local wall-clock datetime. It resolves to an instant only
// when combined with a timezone.
type WallExpr struct {
	Parts WallParts
}

func (e *WallExpr) Kind() Kind { return KindWall }

func (e *WallExpr) String() string {
	return FormatWall(e.Parts)
}

package datemath

import (
	"fmt"
	"time"
)

// EvalRelative evaluates a relative expression against now, in now's
// location. Calendar units step via AddDate so a "-1d" across a DST
// transition lands on the same local clock time. The /unit suffix floors
// to the local start of that unit; weeks floor to weekStartsOn.
func EvalRelative(e *RelativeExpr, now time.Time, weekStartsOn time.Weekday) time.Time {
	t := now
	for _, off := range e.Offsets {
		switch off.Unit {
		case UnitSecond:
			t = t.Add(time.Duration(off.Amount) * time.Second)
		case UnitMinute:
			t = t.Add(time.Duration(off.Amount) * time.Minute)
		case UnitHour:
			t = t.Add(time.Duration(off.Amount) * time.Hour)
		case UnitDay:
			t = t.AddDate(0, 0, off.Amount)
		case UnitWeek:
			t = t.AddDate(0, 0, 7*off.Amount)
		case UnitMonth:
			t = t.AddDate(0, off.Amount, 0)
		case UnitYear:
			t = t.AddDate(off.Amount, 0, 0)
		}
	}
	if e.RoundUnit != "" {
		t = FloorTo(t, e.RoundUnit, weekStartsOn)
	}
	return t
}

// FloorTo floors t to the start of unit in t's location.
func FloorTo(t time.Time, unit Unit, weekStartsOn time.Weekday) time.Time {
	loc := t.Location()
	switch unit {
	case UnitSecond:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, loc)
	case UnitMinute:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), 0, 0, loc)
	case UnitHour:
		return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, loc)
	case UnitDay:
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	case UnitWeek:
		back := (int(t.Weekday()) - int(weekStartsOn) + 7) % 7
		return time.Date(t.Year(), t.Month(), t.Day()-back, 0, 0, 0, 0, loc)
	case UnitMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, loc)
	case UnitYear:
		return time.Date(t.Year(), time.January, 1, 0, 0, 0, 0, loc)
	}
	return t
}

// ParseUnitName maps a long unit name ("minute", "day", ...) to its
// datemath unit.
func ParseUnitName(name string) (Unit, error) {
	switch name {
	case "second":
		return UnitSecond, nil
	case "minute":
		return UnitMinute, nil
	case "hour":
		return UnitHour, nil
	case "day":
		return UnitDay, nil
	case "week":
		return UnitWeek, nil
	case "month":
		return UnitMonth, nil
	case "year":
		return UnitYear, nil
	}
	return "", fmt.Errorf("unknown rounding unit: %s", name)
}

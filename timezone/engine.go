package timezone

import (
	"time"

	"github.com/hrygo/timescope/datemath"
)

// WallStatus classifies a wall-clock time within its zone.
type WallStatus string

const (
	// WallUnique maps to exactly one instant.
	WallUnique WallStatus = "unique"
	// WallGap does not exist locally (DST spring-forward).
	WallGap WallStatus = "gap"
	// WallOverlap occurs twice (DST fall-back).
	WallOverlap WallStatus = "overlap"
)

// WallResolution is the outcome of resolving a wall-clock time.
// For WallUnique, Earlier holds the instant. For WallOverlap, Earlier and
// Later hold the two occurrences. For WallGap, Earlier holds the first
// valid instant at or after the requested local time.
type WallResolution struct {
	Status  WallStatus
	Earlier time.Time
	Later   time.Time
}

// Engine is the narrow capability surface the resolver needs from a
// timezone implementation.
type Engine interface {
	// Resolve maps an abstract selector to a concrete zone identifier.
	Resolve(mode Mode) (string, error)
	// Location loads the *time.Location for a resolved zone id.
	Location(zoneID string) (*time.Location, error)
	// ResolveWall classifies a wall-clock time within loc.
	ResolveWall(loc *time.Location, parts datemath.WallParts) WallResolution
	// SupportsDisambiguation reports whether overlap resolutions carry a
	// trustworthy Later instant. When false, callers must take the
	// earlier path and should not offer an earlier/later control.
	SupportsDisambiguation() bool
}

// StdEngine implements Engine on the system IANA database.
type StdEngine struct{}

// NewStdEngine returns the default timezone engine.
func NewStdEngine() *StdEngine { return &StdEngine{} }

// Resolve maps a selector to a concrete zone id.
func (e *StdEngine) Resolve(mode Mode) (string, error) {
	switch mode.Kind {
	case ModeUTC, "":
		return "UTC", nil
	case ModeLocal:
		return time.Local.String(), nil
	case ModeIANA:
		if _, err := ParseTimezone(mode.ZoneID); err != nil {
			return "", err
		}
		return mode.ZoneID, nil
	}
	return "UTC", nil
}

// Location loads a zone id.
func (e *StdEngine) Location(zoneID string) (*time.Location, error) {
	if zoneID == time.Local.String() {
		return time.Local, nil
	}
	return ParseTimezone(zoneID)
}

// SupportsDisambiguation is true: the candidate-offset algorithm yields
// both occurrences of an overlapped wall time.
func (e *StdEngine) SupportsDisambiguation() bool { return true }

// ResolveWall classifies parts within loc using candidate UTC offsets.
// The instants that can display the requested wall clock are
// wallAsUTC-offset for each offset in effect around that moment; zero
// surviving candidates means a gap, two means an overlap.
func (e *StdEngine) ResolveWall(loc *time.Location, parts datemath.WallParts) WallResolution {
	wallAsUTC := time.Date(parts.Year, time.Month(parts.Month), parts.Day,
		parts.Hour, parts.Minute, parts.Second, 0, time.UTC)

	_, offBefore := wallAsUTC.AddDate(0, 0, -1).In(loc).Zone()
	_, offAfter := wallAsUTC.AddDate(0, 0, 1).In(loc).Zone()

	var candidates []time.Time
	for _, off := range distinctOffsets(offBefore, offAfter) {
		cand := wallAsUTC.Add(-time.Duration(off) * time.Second)
		if matchesWall(cand.In(loc), parts) {
			candidates = append(candidates, cand)
		}
	}

	switch len(candidates) {
	case 2:
		earlier, later := candidates[0], candidates[1]
		if later.Before(earlier) {
			earlier, later = later, earlier
		}
		return WallResolution{Status: WallOverlap, Earlier: earlier, Later: later}
	case 1:
		return WallResolution{Status: WallUnique, Earlier: candidates[0]}
	}

	// Gap: the requested local time was skipped. The first valid instant
	// at or after it is the transition itself; binary-search for the
	// moment the post-transition offset takes effect.
	lo := wallAsUTC.Add(-time.Duration(offAfter) * time.Second)
	hi := wallAsUTC.Add(-time.Duration(offBefore) * time.Second)
	if hi.Before(lo) {
		lo, hi = hi, lo
	}
	for hi.Sub(lo) > time.Second {
		mid := lo.Add(hi.Sub(lo) / 2)
		if _, off := mid.In(loc).Zone(); off == offAfter {
			hi = mid
		} else {
			lo = mid
		}
	}
	// Transitions land on whole seconds; drop the sub-second search residue.
	return WallResolution{Status: WallGap, Earlier: hi.Truncate(time.Second)}
}

func distinctOffsets(offs ...int) []int {
	var out []int
	for _, off := range offs {
		seen := false
		for _, o := range out {
			if o == off {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, off)
		}
	}
	return out
}

func matchesWall(t time.Time, p datemath.WallParts) bool {
	return t.Year() == p.Year && int(t.Month()) == p.Month && t.Day() == p.Day &&
		t.Hour() == p.Hour && t.Minute() == p.Minute && t.Second() == p.Second
}

// Ensure StdEngine implements Engine
var _ Engine = (*StdEngine)(nil)

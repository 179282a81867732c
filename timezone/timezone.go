// Package timezone resolves the picker's abstract timezone selector to
// concrete IANA zones and classifies wall-clock times around DST
// transitions.
package timezone

import (
	"fmt"
	"time"
)

// ModeKind tags the timezone selector variants.
type ModeKind string

const (
	// ModeUTC selects coordinated universal time.
	ModeUTC ModeKind = "utc"
	// ModeLocal selects the viewer's local zone.
	ModeLocal ModeKind = "local"
	// ModeIANA selects a named IANA zone.
	ModeIANA ModeKind = "iana"
)

// Mode is an immutable timezone selector, compared structurally.
type Mode struct {
	Kind   ModeKind `json:"kind"`
	ZoneID string   `json:"zoneId,omitempty"` // set iff Kind is ModeIANA
}

// UTC returns the UTC selector.
func UTC() Mode { return Mode{Kind: ModeUTC} }

// Local returns the viewer-local selector.
func Local() Mode { return Mode{Kind: ModeLocal} }

// IANA returns a named-zone selector.
func IANA(zoneID string) Mode { return Mode{Kind: ModeIANA, ZoneID: zoneID} }

// Equal reports structural equality.
func (m Mode) Equal(o Mode) bool { return m == o }

// IsZero reports whether the mode is unset.
func (m Mode) IsZero() bool { return m.Kind == "" }

func (m Mode) String() string {
	switch m.Kind {
	case ModeUTC:
		return "UTC"
	case ModeLocal:
		return "local"
	case ModeIANA:
		return m.ZoneID
	}
	return ""
}

// ParseTimezone parses an IANA timezone identifier (e.g. "Asia/Shanghai").
// If the timezone is invalid, returns UTC and an error.
func ParseTimezone(tz string) (*time.Location, error) {
	if tz == "" || tz == "UTC" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// MustParseTimezone parses a timezone or panics if invalid.
// Use this for constants that are known to be valid at compile time.
func MustParseTimezone(tz string) *time.Location {
	loc, err := ParseTimezone(tz)
	if err != nil {
		panic(err)
	}
	return loc
}

// IsValidTimezone checks if a timezone identifier is valid.
func IsValidTimezone(tz string) bool {
	if tz == "" || tz == "UTC" {
		return true
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}

// ParseMode parses a selector string ("UTC", "local", or an IANA id).
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "UTC", "utc":
		return UTC(), nil
	case "local", "Local", "browser", "browser-local":
		return Local(), nil
	}
	if !IsValidTimezone(s) {
		return Mode{}, fmt.Errorf("invalid timezone selector %q", s)
	}
	return IANA(s), nil
}

// Common timezone constants
const (
	TimezoneUTC             = "UTC"
	TimezoneAsiaShanghai    = "Asia/Shanghai"
	TimezoneAmericaNewYork  = "America/New_York"
	TimezoneEuropeLondon    = "Europe/London"
	TimezoneAustraliaSydney = "Australia/Sydney"
)

package timezone

import (
	"time"

	"github.com/hrygo/timescope/datemath"
)

// MockEngine wraps StdEngine for testing. With Disambiguation set to
// false it mimics an engine that detects DST overlaps but cannot
// represent the two occurrences distinctly: overlap resolutions collapse
// to the earlier instant.
type MockEngine struct {
	Std            StdEngine
	Disambiguation bool
}

// NewMockEngine creates a MockEngine with full disambiguation support.
func NewMockEngine() *MockEngine {
	return &MockEngine{Disambiguation: true}
}

func (m *MockEngine) Resolve(mode Mode) (string, error) {
	return m.Std.Resolve(mode)
}

func (m *MockEngine) Location(zoneID string) (*time.Location, error) {
	return m.Std.Location(zoneID)
}

func (m *MockEngine) ResolveWall(loc *time.Location, parts datemath.WallParts) WallResolution {
	res := m.Std.ResolveWall(loc, parts)
	if res.Status == WallOverlap && !m.Disambiguation {
		res.Later = res.Earlier
	}
	return res
}

func (m *MockEngine) SupportsDisambiguation() bool {
	return m.Disambiguation
}

// Ensure MockEngine implements Engine
var _ Engine = (*MockEngine)(nil)

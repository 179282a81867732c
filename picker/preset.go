package picker

import (
	"strings"

	"github.com/hrygo/timescope/resolver"
)

// Preset is one entry of the quick-select list.
type Preset struct {
	ID         string                       `json:"id"`
	Label      string                       `json:"label"`
	Group      string                       `json:"group"`
	Keywords   []string                     `json:"keywords,omitempty"`
	Definition resolver.TimeRangeDefinition `json:"definition"`
}

// QuickSelectMode governs what choosing a preset does.
type QuickSelectMode string

const (
	// QuickSelectCommit resolves and applies immediately, closing the picker.
	QuickSelectCommit QuickSelectMode = "commit"
	// QuickSelectDraft merges the preset into the open draft for further
	// refinement.
	QuickSelectDraft QuickSelectMode = "draft"
)

func relPreset(id, label, group, from, to string, keywords ...string) Preset {
	return Preset{
		ID:       id,
		Label:    label,
		Group:    group,
		Keywords: keywords,
		Definition: resolver.TimeRangeDefinition{
			From:  resolver.EndpointDef{Expr: from},
			To:    resolver.EndpointDef{Expr: to},
			Label: label,
		},
	}
}

// DefaultPresets returns the built-in quick-select list.
func DefaultPresets() []Preset {
	return []Preset{
		relPreset("last-5m", "最近 5 分钟", "相对", "now-5m", "now", "5m", "minutes"),
		relPreset("last-15m", "最近 15 分钟", "相对", "now-15m", "now", "15m", "minutes"),
		relPreset("last-30m", "最近 30 分钟", "相对", "now-30m", "now", "30m", "minutes"),
		relPreset("last-1h", "最近 1 小时", "相对", "now-1h", "now", "1h", "hour"),
		relPreset("last-3h", "最近 3 小时", "相对", "now-3h", "now", "3h", "hours"),
		relPreset("last-12h", "最近 12 小时", "相对", "now-12h", "now", "12h", "hours"),
		relPreset("last-24h", "最近 24 小时", "相对", "now-24h", "now", "24h", "day"),
		relPreset("last-7d", "最近 7 天", "相对", "now-7d", "now", "7d", "week"),
		relPreset("last-30d", "最近 30 天", "相对", "now-30d", "now", "30d", "month"),
		relPreset("today", "今天", "日历", "now/d", "now", "today"),
		relPreset("yesterday", "昨天", "日历", "now-1d/d", "now/d", "yesterday"),
		relPreset("this-week", "本周", "日历", "now/w", "now", "week"),
		relPreset("this-month", "本月", "日历", "now/M", "now", "month"),
	}
}

// DefaultDefinition is the seed used when no committed value exists.
func DefaultDefinition() resolver.TimeRangeDefinition {
	return resolver.TimeRangeDefinition{
		From:  resolver.EndpointDef{Expr: "now-15m"},
		To:    resolver.EndpointDef{Expr: "now"},
		Label: "最近 15 分钟",
	}
}

// MatchPresets filters presets by a query against label and keywords,
// case-insensitively. An empty query returns everything.
func MatchPresets(presets []Preset, query string) []Preset {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return presets
	}

	var out []Preset
	for _, p := range presets {
		if strings.Contains(strings.ToLower(p.Label), query) {
			out = append(out, p)
			continue
		}
		for _, kw := range p.Keywords {
			if strings.Contains(strings.ToLower(kw), query) {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

// FindPreset looks a preset up by id.
func FindPreset(presets []Preset, id string) (Preset, bool) {
	for _, p := range presets {
		if p.ID == id {
			return p, true
		}
	}
	return Preset{}, false
}

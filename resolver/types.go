// Package resolver turns symbolic time-range definitions into concrete
// start/end instants under DST-safe timezone rules.
package resolver

// RoundUnit is an optional rounding applied to a resolved endpoint
// instant, floor semantics. RoundAuto floors to the unit the expression
// itself supplies and fails when it supplies none.
type RoundUnit string

const (
	RoundNone   RoundUnit = ""
	RoundSecond RoundUnit = "second"
	RoundMinute RoundUnit = "minute"
	RoundHour   RoundUnit = "hour"
	RoundDay    RoundUnit = "day"
	RoundWeek   RoundUnit = "week"
	RoundMonth  RoundUnit = "month"
	RoundYear   RoundUnit = "year"
	RoundAuto   RoundUnit = "auto"
)

// Disambiguation breaks ties when a wall-clock time falls twice during a
// DST fall-back overlap.
type Disambiguation string

const (
	DisambiguationUnset   Disambiguation = ""
	DisambiguationEarlier Disambiguation = "earlier"
	DisambiguationLater   Disambiguation = "later"
)

// GapPolicy governs wall-clock times inside a DST spring-forward gap.
type GapPolicy string

const (
	// GapShift (the default) shifts forward to the next valid instant and
	// emits a warning.
	GapShift GapPolicy = "shift"
	// GapError fails resolution with DST_GAP_ERROR.
	GapError GapPolicy = "error"
)

// EndpointDef is the symbolic, serializable description of one range
// boundary.
type EndpointDef struct {
	Expr           string         `json:"expr"`
	Round          RoundUnit      `json:"round,omitempty"`
	Disambiguation Disambiguation `json:"disambiguation,omitempty"`
	GapPolicy      GapPolicy      `json:"gapPolicy,omitempty"`
}

// Equal reports structural equality.
func (d EndpointDef) Equal(o EndpointDef) bool { return d == o }

// UIHints carries editor-surface preferences persisted with a definition.
type UIHints struct {
	EditorMode       string `json:"editorMode,omitempty"`
	ManualEditorMode string `json:"manualEditorMode,omitempty"` // "datetime" or "date"
}

// TimeRangeDefinition is the serializable, externally visible value of
// the whole picker.
type TimeRangeDefinition struct {
	From  EndpointDef `json:"from"`
	To    EndpointDef `json:"to"`
	Label string      `json:"label,omitempty"`
	UI    *UIHints    `json:"ui,omitempty"`
}

// Equal reports structural equality, including UI hints.
func (d TimeRangeDefinition) Equal(o TimeRangeDefinition) bool {
	if !d.From.Equal(o.From) || !d.To.Equal(o.To) || d.Label != o.Label {
		return false
	}
	if (d.UI == nil) != (o.UI == nil) {
		return false
	}
	return d.UI == nil || *d.UI == *o.UI
}

// WarningCode identifies a non-fatal resolution condition.
type WarningCode string

const (
	// WarnGapShifted: a gapped wall time was shifted forward.
	WarnGapShifted WarningCode = "DST_GAP_SHIFTED"
	// WarnOverlapDefaultEarlier: an overlapped wall time defaulted to the
	// earlier occurrence because no disambiguation was supplied.
	WarnOverlapDefaultEarlier WarningCode = "DST_OVERLAP_DEFAULT_EARLIER"
	// WarnOverlapForcedEarlier: the engine cannot represent the later
	// occurrence, so the earlier one was forced.
	WarnOverlapForcedEarlier WarningCode = "DST_OVERLAP_FORCED_EARLIER"
)

// Warning is attached to a successful resolution; it never blocks Apply.
type Warning struct {
	Code     WarningCode `json:"code"`
	Endpoint string      `json:"endpoint"` // "from" or "to"
	Message  string      `json:"message"`
}

// ResolvedRange is the concrete output of resolution.
// StartMs < EndMs is enforced by ResolveRange.
type ResolvedRange struct {
	StartMs    int64     `json:"startMs"`
	EndMs      int64     `json:"endMs"`
	ResolvedTz string    `json:"resolvedTz"`
	Warnings   []Warning `json:"warnings,omitempty"`
}

// DurationMs returns the resolved span in milliseconds.
func (r ResolvedRange) DurationMs() int64 { return r.EndMs - r.StartMs }

// ResolvedPayload pairs a symbolic definition with its resolution. It is
// the unit broadcast through the live store and passed to change
// callbacks.
type ResolvedPayload struct {
	Definition TimeRangeDefinition `json:"definition"`
	Resolved   ResolvedRange       `json:"resolved"`
}

// Package picker implements the draft-editing state machine, the live
// resolved store, quick presets, and the reconciliation controller that
// ties the time-range engine together for rendering surfaces.
package picker

import (
	"errors"

	"github.com/hrygo/timescope/datemath"
	"github.com/hrygo/timescope/resolver"
)

// Endpoint names one boundary of the draft.
type Endpoint string

const (
	EndpointFrom Endpoint = "from"
	EndpointTo   Endpoint = "to"
)

// EditSource records the provenance of the last edit of an endpoint.
type EditSource string

const (
	SourceTyping   EditSource = "typing"
	SourceCalendar EditSource = "calendar"
	SourceScroller EditSource = "scroller"
	SourcePreset   EditSource = "preset"
	SourceExternal EditSource = "external"
)

// ParseStatus is the per-keystroke parse outcome of one endpoint.
type ParseStatus string

const (
	ParseEmpty ParseStatus = "empty"
	ParseError ParseStatus = "error"
	ParseOK    ParseStatus = "ok"
)

// EndpointParse describes the parse state of an endpoint's raw text.
// Parse failures are values, never panics: typing must always work.
type EndpointParse struct {
	Status   ParseStatus
	Message  string        // set when Status is ParseError
	Expr     string        // canonical expression, set when Status is ParseOK
	KindHint datemath.Kind // set when Status is ParseOK
}

// EndpointDraft is the edit state of one boundary.
// Parts is present iff the parse is ok with a wall-clock kind; relative
// and ISO expressions carry no decomposed parts.
type EndpointDraft struct {
	RawText        string
	Parse          EndpointParse
	Parts          *datemath.WallParts
	Disambiguation resolver.Disambiguation
	GapPolicy      resolver.GapPolicy
	Round          resolver.RoundUnit
	Dirty          bool
	Source         EditSource
}

// Draft is the in-progress, uncommitted edit of a time range. All
// transitions are pure functions returning structural copies; a draft is
// never mutated in place.
type Draft struct {
	From        EndpointDraft
	To          EndpointDraft
	LastFocused Endpoint
}

// IsDirty is the logical OR of both endpoints' dirtiness.
func (d Draft) IsDirty() bool { return d.From.Dirty || d.To.Dirty }

func (d Draft) endpoint(ep Endpoint) EndpointDraft {
	if ep == EndpointTo {
		return d.To
	}
	return d.From
}

func (d Draft) withEndpoint(ep Endpoint, e EndpointDraft) Draft {
	if ep == EndpointTo {
		d.To = e
	} else {
		d.From = e
	}
	return d
}

// parseInput normalizes raw text into a parse value.
func parseInput(raw string) (EndpointParse, *datemath.WallParts) {
	n, err := datemath.NormalizeInput(raw)
	if err != nil {
		if errors.Is(err, datemath.ErrEmptyExpression) {
			return EndpointParse{Status: ParseEmpty}, nil
		}
		return EndpointParse{Status: ParseError, Message: parseMessage(err)}, nil
	}
	return EndpointParse{Status: ParseOK, Expr: n.Expr, KindHint: n.KindHint}, n.Wall
}

// parseMessage maps datemath sentinels to the user-facing text shown
// under the input.
func parseMessage(err error) string {
	switch {
	case errors.Is(err, datemath.ErrISOWithoutOffset):
		return "ISO 时间缺少 UTC 偏移，请改用本地时间格式输入"
	case errors.Is(err, datemath.ErrInvalidWallTime):
		return "无效的本地时间"
	default:
		return "无法识别的时间表达式"
	}
}

// endpointFromDef seeds one endpoint from its symbolic definition:
// display text for the editor plus an initial parse.
func endpointFromDef(def resolver.EndpointDef, source EditSource) EndpointDraft {
	raw := def.Expr
	if expr, err := datemath.Parse(def.Expr); err == nil {
		raw = datemath.DisplayText(expr)
	}
	parse, parts := parseInput(raw)
	return EndpointDraft{
		RawText:        raw,
		Parse:          parse,
		Parts:          parts,
		Disambiguation: def.Disambiguation,
		GapPolicy:      def.GapPolicy,
		Round:          def.Round,
		Source:         source,
	}
}

// NewDraftFromDefinition creates a fresh draft seeded from a committed
// definition, a quick preset, or a default definition.
func NewDraftFromDefinition(def resolver.TimeRangeDefinition, source EditSource, lastFocused Endpoint) Draft {
	if lastFocused == "" {
		lastFocused = EndpointFrom
	}
	return Draft{
		From:        endpointFromDef(def.From, source),
		To:          endpointFromDef(def.To, source),
		LastFocused: lastFocused,
	}
}

// UpdateByTyping re-parses on every keystroke. A wall-clock parse
// recomputes decomposed parts; any other kind drops them. Never fails:
// parse failures surface as values.
func UpdateByTyping(d Draft, ep Endpoint, rawText string) Draft {
	e := d.endpoint(ep)
	e.RawText = rawText
	e.Parse, e.Parts = parseInput(rawText)
	e.Dirty = true
	e.Source = SourceTyping
	return d.withEndpoint(ep, e)
}

// UpdateByBlur normalizes raw text to the canonical display form of the
// current successful parse. This is where "2024-05-06 10:00" becomes
// "2024-05-06 10:00:00". No-op when the parse is not ok or the text is
// already canonical.
func UpdateByBlur(d Draft, ep Endpoint) Draft {
	e := d.endpoint(ep)
	if e.Parse.Status != ParseOK {
		return d
	}
	canonical := e.Parse.Expr
	if e.Parse.KindHint == datemath.KindWall && e.Parts != nil {
		canonical = datemath.FormatWall(*e.Parts)
	}
	if e.RawText == canonical {
		return d
	}
	e.RawText = canonical
	return d.withEndpoint(ep, e)
}

// UpdateByParts applies a calendar pick or scroll-wheel entry: always a
// wall-clock expression with fully populated parts.
func UpdateByParts(d Draft, ep Endpoint, parts datemath.WallParts, source EditSource) Draft {
	e := d.endpoint(ep)
	text := datemath.FormatWall(parts)
	p := parts
	e.RawText = text
	e.Parse = EndpointParse{Status: ParseOK, Expr: text, KindHint: datemath.KindWall}
	e.Parts = &p
	e.Dirty = true
	e.Source = source
	return d.withEndpoint(ep, e)
}

// SetFocus records the focused endpoint. Returns the draft unchanged when
// focus is already there, so memoizing consumers keep a stable value.
func SetFocus(d Draft, ep Endpoint) Draft {
	if d.LastFocused == ep {
		return d
	}
	d.LastFocused = ep
	return d
}

// SetEndpointDisambiguation updates the earlier/later tie-break of one
// endpoint.
func SetEndpointDisambiguation(d Draft, ep Endpoint, dis resolver.Disambiguation) Draft {
	e := d.endpoint(ep)
	e.Disambiguation = dis
	e.Dirty = true
	return d.withEndpoint(ep, e)
}

// ApplyDisabled reports whether Apply must be gated: true whenever either
// endpoint's parse is not ok.
func ApplyDisabled(d Draft) bool {
	return d.From.Parse.Status != ParseOK || d.To.Parse.Status != ParseOK
}

// BuildFailure is the typed, non-fatal failure of BuildDefinition.
type BuildFailure struct {
	Endpoint Endpoint
	Message  string
}

// BuildDefinition converts a fully-valid draft back into a definition,
// preserving per-endpoint rounding, disambiguation and gap policy. UI
// hints carry over from fallback; the label does not, since a hand-edited
// range no longer matches its preset name.
func BuildDefinition(d Draft, fallback resolver.TimeRangeDefinition) (resolver.TimeRangeDefinition, *BuildFailure) {
	build := func(e EndpointDraft, ep Endpoint) (resolver.EndpointDef, *BuildFailure) {
		if e.Parse.Status != ParseOK {
			msg := e.Parse.Message
			if msg == "" {
				msg = "时间不能为空"
			}
			return resolver.EndpointDef{}, &BuildFailure{Endpoint: ep, Message: msg}
		}
		return resolver.EndpointDef{
			Expr:           e.Parse.Expr,
			Round:          e.Round,
			Disambiguation: e.Disambiguation,
			GapPolicy:      e.GapPolicy,
		}, nil
	}

	from, fail := build(d.From, EndpointFrom)
	if fail != nil {
		return resolver.TimeRangeDefinition{}, fail
	}
	to, fail := build(d.To, EndpointTo)
	if fail != nil {
		return resolver.TimeRangeDefinition{}, fail
	}
	return resolver.TimeRangeDefinition{From: from, To: to, UI: fallback.UI}, nil
}

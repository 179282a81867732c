package picker

import (
	"log/slog"
	"sync"
	"time"

	"github.com/hrygo/timescope/datemath"
	"github.com/hrygo/timescope/resolver"
	"github.com/hrygo/timescope/timezone"
)

// ChangeReason tags the logical transition behind an emitted change.
type ChangeReason string

const (
	ReasonExternalSync   ChangeReason = "external_sync"
	ReasonApply          ChangeReason = "apply"
	ReasonQuickSelect    ChangeReason = "quick_select"
	ReasonClear          ChangeReason = "clear"
	ReasonTimezoneChange ChangeReason = "timezone_change"
)

// ChangeMeta accompanies every change emission.
type ChangeMeta struct {
	Reason   ChangeReason
	Timezone timezone.Mode
}

// Config configures a Controller.
type Config struct {
	// Value, when non-nil, puts the controller in controlled mode: Apply
	// emits the change and waits for the owner to feed the value back
	// through SyncExternalValue. Computed once, never inferred per call.
	Value *resolver.TimeRangeDefinition
	// DefaultValue seeds the uncontrolled case. Nil falls back to
	// DefaultDefinition unless AllowEmpty is set.
	DefaultValue *resolver.TimeRangeDefinition
	// Timezone, when non-nil, is the controlled timezone.
	Timezone        *timezone.Mode
	DefaultTimezone timezone.Mode
	WeekStartsOn    time.Weekday
	Engine          timezone.Engine

	Presets         []Preset
	QuickSelectMode QuickSelectMode
	AllowEmpty      bool
	Clearable       bool

	// ManualEditorMode, when set to "datetime" or "date", locks the manual
	// editor surface regardless of per-definition UI hints.
	ManualEditorMode string
	// TimezoneOptions is the selector list the picker surface offers.
	// Empty offers UTC and viewer-local.
	TimezoneOptions []timezone.Mode
	// Placeholder is the trigger text shown while the selection is empty.
	Placeholder string

	// OnResolvedChange receives exactly one call per logical transition.
	OnResolvedChange func(payload *resolver.ResolvedPayload, meta ChangeMeta)

	Now    func() time.Time
	Logger *slog.Logger
}

// pendingIntent records a self-initiated change so the owner echoing the
// same value back through the external channel can be suppressed. The
// match is structural: the echoed definition is compared against def.
type pendingIntent struct {
	def resolver.TimeRangeDefinition
}

// Controller owns the committed definition and open/draft lifecycle and
// reconciles user edits with an externally driven current value. The
// committed definition and timezone mutate only through Apply, Clear,
// SetTimezone and SyncExternalValue.
type Controller struct {
	mu  sync.Mutex
	cfg Config

	valueControlled bool
	tzControlled    bool

	committed *resolver.TimeRangeDefinition
	tz        timezone.Mode

	isOpen            bool
	draft             *Draft
	hasExternalUpdate bool
	applyError        string
	preview           *resolver.ResolvedPayload
	previewError      string
	frozen            *resolver.ResolvedPayload

	live      *LiveStore
	pending   *pendingIntent
	pendingTz *timezone.Mode

	pendingBlur *Endpoint
}

// NewController creates a controller and publishes the initial resolution
// of the committed definition (no change emission).
func NewController(cfg Config) *Controller {
	if cfg.Engine == nil {
		cfg.Engine = timezone.NewStdEngine()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if len(cfg.Presets) == 0 {
		cfg.Presets = DefaultPresets()
	}
	if cfg.QuickSelectMode == "" {
		cfg.QuickSelectMode = QuickSelectCommit
	}

	c := &Controller{
		cfg:             cfg,
		valueControlled: cfg.Value != nil,
		tzControlled:    cfg.Timezone != nil,
		live:            NewLiveStore(),
	}

	switch {
	case cfg.Timezone != nil:
		c.tz = *cfg.Timezone
	case !cfg.DefaultTimezone.IsZero():
		c.tz = cfg.DefaultTimezone
	default:
		c.tz = timezone.UTC()
	}

	switch {
	case cfg.Value != nil:
		def := *cfg.Value
		c.committed = &def
	case cfg.DefaultValue != nil:
		def := *cfg.DefaultValue
		c.committed = &def
	case !cfg.AllowEmpty:
		def := DefaultDefinition()
		c.committed = &def
	}

	if c.committed != nil {
		if payload, err := c.resolveLocked(*c.committed); err == nil {
			c.live.SetSnapshot(payload)
		} else {
			c.cfg.Logger.Warn("initial resolve failed", slog.String("error", err.Error()))
		}
	}
	return c
}

// Live exposes the live resolved store for presentation subscribers.
func (c *Controller) Live() *LiveStore { return c.live }

// Committed returns a copy of the committed definition, nil when empty.
func (c *Controller) Committed() *resolver.TimeRangeDefinition {
	c.mu.Lock()
	defer c.mu.Unlock()
	return cloneDef(c.committed)
}

// Timezone returns the active timezone selector.
func (c *Controller) Timezone() timezone.Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tz
}

// IsOpen reports the picker lifecycle state.
func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isOpen
}

// Draft returns a copy of the current draft, nil when closed.
func (c *Controller) Draft() *Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return nil
	}
	d := *c.draft
	return &d
}

// Clearable reports whether the rendering surface should offer a clear
// action. Requires AllowEmpty; a clear that cannot produce an empty value
// is meaningless.
func (c *Controller) Clearable() bool {
	return c.cfg.Clearable && c.cfg.AllowEmpty
}

// ManualEditorMode returns the effective manual editor mode: the owner's
// lock when configured, else the committed definition's UI hint, else
// "datetime".
func (c *Controller) ManualEditorMode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cfg.ManualEditorMode != "" {
		return c.cfg.ManualEditorMode
	}
	if c.committed != nil && c.committed.UI != nil && c.committed.UI.ManualEditorMode != "" {
		return c.committed.UI.ManualEditorMode
	}
	return "datetime"
}

// TimezoneOptions returns a copy of the selector list the surface should
// offer.
func (c *Controller) TimezoneOptions() []timezone.Mode {
	if len(c.cfg.TimezoneOptions) == 0 {
		return []timezone.Mode{timezone.UTC(), timezone.Local()}
	}
	out := make([]timezone.Mode, len(c.cfg.TimezoneOptions))
	copy(out, c.cfg.TimezoneOptions)
	return out
}

// Placeholder returns the empty-selection trigger text.
func (c *Controller) Placeholder() string {
	if c.cfg.Placeholder != "" {
		return c.cfg.Placeholder
	}
	return "选择时间范围"
}

// HasExternalUpdate reports whether an external value arrived while the
// user had unsaved edits.
func (c *Controller) HasExternalUpdate() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hasExternalUpdate
}

// ApplyError returns the user-facing message of the last failed Apply.
func (c *Controller) ApplyError() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.applyError
}

// Preview returns the live draft preview payload and the non-fatal
// preview error message. Both can be empty early in typing even while
// Apply is disabled.
func (c *Controller) Preview() (*resolver.ResolvedPayload, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.preview, c.previewError
}

// FrozenSnapshot returns the resolution captured at open time, for UIs
// that freeze their trigger label while editing is in progress.
func (c *Controller) FrozenSnapshot() *resolver.ResolvedPayload {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.frozen
}

// Open re-seeds the draft from the committed definition and clears stale
// flags.
func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()

	seed := DefaultDefinition()
	if c.committed != nil {
		seed = *c.committed
	}
	d := NewDraftFromDefinition(seed, SourceExternal, EndpointFrom)
	c.draft = &d
	c.isOpen = true
	c.hasExternalUpdate = false
	c.applyError = ""
	c.frozen = c.live.Snapshot()
	c.pendingBlur = nil
	c.refreshPreviewLocked()
}

// Cancel closes the picker and discards the draft, never merging it.
func (c *Controller) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Controller) closeLocked() {
	c.isOpen = false
	c.draft = nil
	c.preview = nil
	c.previewError = ""
	c.frozen = nil
	c.pendingBlur = nil
}

// Typing forwards a keystroke to the draft and refreshes the preview.
func (c *Controller) Typing(ep Endpoint, rawText string) {
	c.updateDraft(func(d Draft) Draft { return UpdateByTyping(d, ep, rawText) })
}

// PickParts applies a calendar pick or scroll-wheel entry.
func (c *Controller) PickParts(ep Endpoint, parts datemath.WallParts, source EditSource) {
	c.updateDraft(func(d Draft) Draft { return UpdateByParts(d, ep, parts, source) })
}

// Focus records the focused endpoint and cancels any pending blur for it.
func (c *Controller) Focus(ep Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return
	}
	if c.pendingBlur != nil && *c.pendingBlur == ep {
		c.pendingBlur = nil
	}
	d := SetFocus(*c.draft, ep)
	c.draft = &d
}

// SetDisambiguation updates one endpoint's earlier/later tie-break.
func (c *Controller) SetDisambiguation(ep Endpoint, dis resolver.Disambiguation) {
	c.updateDraft(func(d Draft) Draft { return SetEndpointDisambiguation(d, ep, dis) })
}

// DeferBlur records that ep lost focus. The decision is deferred so the
// caller can first observe where focus lands (it may be moving into the
// calendar overlay); commit it on the next tick with CommitPendingBlur or
// discard it with CancelPendingBlur.
func (c *Controller) DeferBlur(ep Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return
	}
	e := ep
	c.pendingBlur = &e
}

// CancelPendingBlur discards a deferred blur (focus stayed inside the
// picker surface).
func (c *Controller) CancelPendingBlur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pendingBlur = nil
}

// CommitPendingBlur finalizes a deferred blur, normalizing the endpoint
// text. No-op when nothing is pending.
func (c *Controller) CommitPendingBlur() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil || c.pendingBlur == nil {
		return
	}
	ep := *c.pendingBlur
	c.pendingBlur = nil
	d := UpdateByBlur(*c.draft, ep)
	c.draft = &d
	c.refreshPreviewLocked()
}

func (c *Controller) updateDraft(fn func(Draft) Draft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.draft == nil {
		return
	}
	d := fn(*c.draft)
	c.draft = &d
	c.refreshPreviewLocked()
}

// refreshPreviewLocked recomputes the draft preview: a resolution attempt
// of the current draft without committing. Preview errors are non-fatal
// and independent from the Apply-disabled determination.
func (c *Controller) refreshPreviewLocked() {
	c.preview = nil
	c.previewError = ""
	if c.draft == nil || ApplyDisabled(*c.draft) {
		return
	}

	fallback := DefaultDefinition()
	if c.committed != nil {
		fallback = *c.committed
	}
	def, fail := BuildDefinition(*c.draft, fallback)
	if fail != nil {
		c.previewError = fail.Message
		return
	}
	payload, err := c.resolveLocked(def)
	if err != nil {
		c.previewError = userMessage(err)
		return
	}
	c.preview = payload
}

// Apply commits a valid draft: builds the definition, resolves it,
// updates the committed value (owner permitting), publishes, closes, and
// emits one apply-tagged change. Fatal resolution errors surface as a
// dismissible message without closing the picker or discarding the draft.
func (c *Controller) Apply() bool {
	c.mu.Lock()

	if c.draft == nil || ApplyDisabled(*c.draft) {
		c.applyError = "时间范围不完整，无法应用"
		c.mu.Unlock()
		return false
	}

	fallback := DefaultDefinition()
	if c.committed != nil {
		fallback = *c.committed
	}
	def, fail := BuildDefinition(*c.draft, fallback)
	if fail != nil {
		c.applyError = fail.Message
		c.mu.Unlock()
		return false
	}
	payload, err := c.resolveLocked(def)
	if err != nil {
		c.applyError = userMessage(err)
		c.mu.Unlock()
		return false
	}

	c.applyError = ""
	c.commitLocked(def, payload)
	c.closeLocked()
	meta := ChangeMeta{Reason: ReasonApply, Timezone: c.tz}
	c.mu.Unlock()

	c.emit(payload, meta)
	return true
}

// QuickSelect applies a preset: commit mode resolves and applies
// immediately, closing the picker; draft mode replaces the open draft
// wholesale for further refinement.
func (c *Controller) QuickSelect(preset Preset, mode QuickSelectMode) error {
	if mode == "" {
		mode = c.cfg.QuickSelectMode
	}

	if mode == QuickSelectDraft {
		c.mu.Lock()
		defer c.mu.Unlock()
		last := EndpointFrom
		if c.draft != nil {
			last = c.draft.LastFocused
		}
		d := NewDraftFromDefinition(preset.Definition, SourcePreset, last)
		c.draft = &d
		c.isOpen = true
		c.applyError = ""
		c.refreshPreviewLocked()
		return nil
	}

	c.mu.Lock()
	payload, err := c.resolveLocked(preset.Definition)
	if err != nil {
		c.applyError = userMessage(err)
		c.mu.Unlock()
		return err
	}
	c.applyError = ""
	c.commitLocked(preset.Definition, payload)
	c.closeLocked()
	meta := ChangeMeta{Reason: ReasonQuickSelect, Timezone: c.tz}
	c.mu.Unlock()

	c.emit(payload, meta)
	return nil
}

// SetTimezone re-resolves the already-committed definition under the new
// zone and re-publishes. The draft is untouched. When the timezone is
// externally controlled the change is emitted but not committed; the
// owner feeds the accepted zone back through SyncExternalTimezone.
func (c *Controller) SetTimezone(mode timezone.Mode) error {
	c.mu.Lock()
	if c.tz.Equal(mode) {
		c.mu.Unlock()
		return nil
	}

	var payload *resolver.ResolvedPayload
	if c.committed != nil {
		p, err := c.resolveInLocked(*c.committed, mode)
		if err != nil {
			c.cfg.Logger.Warn("timezone change resolve failed",
				slog.String("timezone", mode.String()), slog.String("error", err.Error()))
			c.mu.Unlock()
			return err
		}
		payload = p
	}

	if c.tzControlled {
		m := mode
		c.pendingTz = &m
	} else {
		c.tz = mode
		if payload != nil {
			c.live.SetSnapshot(payload)
		}
	}
	meta := ChangeMeta{Reason: ReasonTimezoneChange, Timezone: mode}
	c.mu.Unlock()

	c.emit(payload, meta)
	return nil
}

// SyncExternalTimezone reconciles an externally supplied timezone. The
// echo of a zone the controller just requested through SetTimezone is
// committed silently; a genuinely external change re-resolves and emits.
func (c *Controller) SyncExternalTimezone(mode timezone.Mode) {
	c.mu.Lock()
	echoed := c.pendingTz != nil && c.pendingTz.Equal(mode)
	c.pendingTz = nil
	if c.tz.Equal(mode) {
		c.mu.Unlock()
		return
	}
	c.tz = mode

	var payload *resolver.ResolvedPayload
	if c.committed != nil {
		p, err := c.resolveLocked(*c.committed)
		if err != nil {
			c.cfg.Logger.Warn("external timezone resolve failed",
				slog.String("timezone", mode.String()), slog.String("error", err.Error()))
		} else {
			payload = p
			c.live.SetSnapshot(p)
		}
	}
	if echoed {
		c.mu.Unlock()
		return
	}
	meta := ChangeMeta{Reason: ReasonTimezoneChange, Timezone: mode}
	c.mu.Unlock()

	c.emit(payload, meta)
}

// SyncExternalValue reconciles an externally supplied definition (or nil
// for an empty selection). A dirty open draft is never clobbered; the
// external update is flagged instead so the UI can offer a manual reset.
// An echo of a just-applied internal change is suppressed.
func (c *Controller) SyncExternalValue(def *resolver.TimeRangeDefinition) {
	c.mu.Lock()

	// Echo suppression: the owner fed back the value we just emitted
	// (including the nil echo of a Clear).
	if c.pending != nil {
		var matches bool
		if def == nil {
			matches = c.pending.def.Equal(resolver.TimeRangeDefinition{})
		} else {
			matches = def.Equal(c.pending.def)
		}
		if matches {
			c.pending = nil
			c.committed = cloneDef(def)
			if def != nil {
				if payload, err := c.resolveLocked(*def); err == nil {
					c.live.SetSnapshot(payload)
				}
			}
			c.mu.Unlock()
			return
		}
	}
	c.pending = nil

	c.committed = cloneDef(def)

	var payload *resolver.ResolvedPayload
	if def != nil {
		p, err := c.resolveLocked(*def)
		if err != nil {
			c.cfg.Logger.Warn("external value resolve failed", slog.String("error", err.Error()))
		} else {
			payload = p
		}
	}
	c.live.SetSnapshot(payload)

	if c.isOpen && c.draft != nil && c.draft.IsDirty() {
		c.hasExternalUpdate = true
	} else if c.isOpen {
		seed := DefaultDefinition()
		if c.committed != nil {
			seed = *c.committed
		}
		last := EndpointFrom
		if c.draft != nil {
			last = c.draft.LastFocused
		}
		d := NewDraftFromDefinition(seed, SourceExternal, last)
		c.draft = &d
		c.refreshPreviewLocked()
	}
	meta := ChangeMeta{Reason: ReasonExternalSync, Timezone: c.tz}
	c.mu.Unlock()

	c.emit(payload, meta)
}

// ResetDraftToLatest is the manual "reset to latest" action offered when
// an external update arrived mid-edit.
func (c *Controller) ResetDraftToLatest() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.isOpen {
		return
	}
	seed := DefaultDefinition()
	if c.committed != nil {
		seed = *c.committed
	}
	last := EndpointFrom
	if c.draft != nil {
		last = c.draft.LastFocused
	}
	d := NewDraftFromDefinition(seed, SourceExternal, last)
	c.draft = &d
	c.hasExternalUpdate = false
	c.refreshPreviewLocked()
}

// Clear resets to the empty selection. Only permitted when empty
// selections are allowed; emits one clear-tagged change with a nil
// payload.
func (c *Controller) Clear() bool {
	c.mu.Lock()
	if !c.cfg.AllowEmpty {
		c.mu.Unlock()
		return false
	}
	if !c.valueControlled {
		c.committed = nil
	}
	c.hasExternalUpdate = false
	c.applyError = ""
	c.pending = &pendingIntent{}
	c.closeLocked()
	c.live.SetSnapshot(nil)
	meta := ChangeMeta{Reason: ReasonClear, Timezone: c.tz}
	c.mu.Unlock()

	c.emit(nil, meta)
	return true
}

// commitLocked records a self-initiated change: committed definition
// (unless externally controlled), live publish, pending-intent tag.
func (c *Controller) commitLocked(def resolver.TimeRangeDefinition, payload *resolver.ResolvedPayload) {
	c.pending = &pendingIntent{def: def}
	if !c.valueControlled {
		d := def
		c.committed = &d
		c.live.SetSnapshot(payload)
	}
}

func (c *Controller) resolveLocked(def resolver.TimeRangeDefinition) (*resolver.ResolvedPayload, error) {
	return c.resolveInLocked(def, c.tz)
}

func (c *Controller) resolveInLocked(def resolver.TimeRangeDefinition, tz timezone.Mode) (*resolver.ResolvedPayload, error) {
	resolved, err := resolver.ResolveRange(def, resolver.Options{
		Now:          c.cfg.Now(),
		Timezone:     tz,
		WeekStartsOn: c.cfg.WeekStartsOn,
		Engine:       c.cfg.Engine,
	})
	if err != nil {
		return nil, err
	}
	return &resolver.ResolvedPayload{Definition: def, Resolved: resolved}, nil
}

func (c *Controller) emit(payload *resolver.ResolvedPayload, meta ChangeMeta) {
	c.cfg.Logger.Debug("resolved change",
		slog.String("reason", string(meta.Reason)),
		slog.String("timezone", meta.Timezone.String()))
	if c.cfg.OnResolvedChange != nil {
		c.cfg.OnResolvedChange(payload, meta)
	}
}

func cloneDef(def *resolver.TimeRangeDefinition) *resolver.TimeRangeDefinition {
	if def == nil {
		return nil
	}
	d := *def
	if def.UI != nil {
		ui := *def.UI
		d.UI = &ui
	}
	return &d
}

// userMessage converts a fatal resolution error into a localized,
// user-facing string. Resolver errors never propagate uncaught.
func userMessage(err error) string {
	if rerr, ok := err.(*resolver.ResolveError); ok {
		return rerr.Message
	}
	return "时间范围解析失败"
}

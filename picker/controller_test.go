package picker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/timescope/datemath"
	"github.com/hrygo/timescope/resolver"
	"github.com/hrygo/timescope/timezone"
)

var ctrlNow = time.Date(2026, 5, 6, 10, 30, 45, 0, time.UTC)

type changeRecorder struct {
	payloads []*resolver.ResolvedPayload
	metas    []ChangeMeta
}

func (r *changeRecorder) record(p *resolver.ResolvedPayload, meta ChangeMeta) {
	r.payloads = append(r.payloads, p)
	r.metas = append(r.metas, meta)
}

func newTestController(t *testing.T, cfg Config) (*Controller, *changeRecorder) {
	t.Helper()
	rec := &changeRecorder{}
	cfg.Now = func() time.Time { return ctrlNow }
	cfg.OnResolvedChange = rec.record
	return NewController(cfg), rec
}

func TestNewControllerPublishesInitialResolution(t *testing.T) {
	c, rec := newTestController(t, Config{})

	snap := c.Live().Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, int64(15*60*1000), snap.Resolved.DurationMs())
	assert.Equal(t, "UTC", snap.Resolved.ResolvedTz)
	// Initialization is not a change.
	assert.Empty(t, rec.metas)
	assert.False(t, c.IsOpen())
}

func TestOpenSeedsDraftAndFreezesSnapshot(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	require.True(t, c.IsOpen())
	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-15m", d.From.RawText)
	assert.False(t, d.IsDirty())

	frozen := c.FrozenSnapshot()
	require.NotNil(t, frozen)
	assert.Equal(t, c.Live().Snapshot(), frozen)

	preview, previewErr := c.Preview()
	require.NotNil(t, preview)
	assert.Empty(t, previewErr)
}

func TestApplyCommitsAndEmitsOnce(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now-1h")
	require.True(t, c.Apply())

	assert.False(t, c.IsOpen())
	assert.Nil(t, c.Draft())
	committed := c.Committed()
	require.NotNil(t, committed)
	assert.Equal(t, "now-1h", committed.From.Expr)

	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonApply, rec.metas[0].Reason)
	assert.Equal(t, int64(60*60*1000), rec.payloads[0].Resolved.DurationMs())

	snap := c.Live().Snapshot()
	require.NotNil(t, snap)
	assert.Equal(t, "now-1h", snap.Definition.From.Expr)
}

func TestApplyGatedOnInvalidDraft(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "broken")
	assert.False(t, c.Apply())
	assert.NotEmpty(t, c.ApplyError())
	assert.True(t, c.IsOpen())
	assert.Empty(t, rec.metas)
}

func TestApplyFatalErrorKeepsDraft(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	// Both endpoints parse, but start is not before end.
	c.Typing(EndpointFrom, "now")
	c.Typing(EndpointTo, "now-1h")
	assert.False(t, c.Apply())
	assert.NotEmpty(t, c.ApplyError())
	assert.True(t, c.IsOpen())
	require.NotNil(t, c.Draft())
	assert.Empty(t, rec.metas)
}

func TestCancelDiscardsDraft(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now-3h")
	c.Cancel()

	assert.False(t, c.IsOpen())
	assert.Nil(t, c.Draft())
	assert.Nil(t, c.FrozenSnapshot())
	assert.Equal(t, "now-15m", c.Committed().From.Expr)
	assert.Empty(t, rec.metas)
}

func TestQuickSelectCommitMode(t *testing.T) {
	c, rec := newTestController(t, Config{})

	preset, ok := FindPreset(DefaultPresets(), "last-15m")
	require.True(t, ok)
	require.NoError(t, c.QuickSelect(preset, QuickSelectCommit))

	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonQuickSelect, rec.metas[0].Reason)
	assert.Equal(t, int64(900_000), rec.payloads[0].Resolved.DurationMs())
	assert.Equal(t, "最近 15 分钟", c.Committed().Label)
	assert.False(t, c.IsOpen())
}

func TestQuickSelectDraftMode(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now-3h")

	preset, ok := FindPreset(DefaultPresets(), "last-7d")
	require.True(t, ok)
	require.NoError(t, c.QuickSelect(preset, QuickSelectDraft))

	// The draft is replaced wholesale, nothing committed or emitted.
	assert.True(t, c.IsOpen())
	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-7d", d.From.RawText)
	assert.Equal(t, SourcePreset, d.From.Source)
	assert.Empty(t, rec.metas)
	assert.Equal(t, "now-15m", c.Committed().From.Expr)
}

func TestSyncExternalValueCleanOpenReseeds(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	next := &resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "now-24h"},
		To:   resolver.EndpointDef{Expr: "now"},
	}
	c.SyncExternalValue(next)

	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-24h", d.From.RawText)
	assert.False(t, c.HasExternalUpdate())

	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonExternalSync, rec.metas[0].Reason)
}

func TestSyncExternalValueNeverClobbersDirtyDraft(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now-3h")

	next := &resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "now-24h"},
		To:   resolver.EndpointDef{Expr: "now"},
	}
	c.SyncExternalValue(next)

	// The dirty draft survives; the update is only flagged.
	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-3h", d.From.RawText)
	assert.True(t, c.HasExternalUpdate())

	// Committed and live still track the external value.
	assert.Equal(t, "now-24h", c.Committed().From.Expr)
	assert.Equal(t, "now-24h", c.Live().Snapshot().Definition.From.Expr)

	c.ResetDraftToLatest()
	d = c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-24h", d.From.RawText)
	assert.False(t, c.HasExternalUpdate())
}

func TestSyncExternalValueSuppressesApplyEcho(t *testing.T) {
	c, rec := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now-1h")
	require.True(t, c.Apply())
	require.Len(t, rec.metas, 1)

	// The owner echoes the exact applied definition back.
	echo := c.Committed()
	c.SyncExternalValue(echo)
	assert.Len(t, rec.metas, 1)

	// A genuinely different value still emits.
	c.SyncExternalValue(&resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "now-30m"},
		To:   resolver.EndpointDef{Expr: "now"},
	})
	require.Len(t, rec.metas, 2)
	assert.Equal(t, ReasonExternalSync, rec.metas[1].Reason)
}

func TestClear(t *testing.T) {
	c, rec := newTestController(t, Config{})
	// Clearing is refused unless empty selections are allowed.
	assert.False(t, c.Clear())
	assert.Empty(t, rec.metas)

	c, rec = newTestController(t, Config{AllowEmpty: true, Clearable: true})
	assert.True(t, c.Clearable())
	require.True(t, c.Clear())
	assert.Nil(t, c.Committed())
	assert.Nil(t, c.Live().Snapshot())
	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonClear, rec.metas[0].Reason)
	assert.Nil(t, rec.payloads[0])

	// The nil echo of the clear is suppressed.
	c.SyncExternalValue(nil)
	assert.Len(t, rec.metas, 1)
}

func TestSetTimezoneReResolvesCommitted(t *testing.T) {
	committed := resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "2026-05-06 00:00:00"},
		To:   resolver.EndpointDef{Expr: "2026-05-06 12:00:00"},
	}
	c, rec := newTestController(t, Config{DefaultValue: &committed})

	utcStart := c.Live().Snapshot().Resolved.StartMs
	require.NoError(t, c.SetTimezone(timezone.IANA("Asia/Shanghai")))

	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonTimezoneChange, rec.metas[0].Reason)
	// Midnight in Shanghai is eight hours before midnight UTC.
	assert.Equal(t, utcStart-8*60*60*1000, rec.payloads[0].Resolved.StartMs)
	assert.Equal(t, "Asia/Shanghai", c.Live().Snapshot().Resolved.ResolvedTz)

	// Setting the same zone again is a no-op.
	require.NoError(t, c.SetTimezone(timezone.IANA("Asia/Shanghai")))
	assert.Len(t, rec.metas, 1)
}

func TestControlledTimezoneWaitsForOwner(t *testing.T) {
	utc := timezone.UTC()
	committed := resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "2026-05-06 00:00:00"},
		To:   resolver.EndpointDef{Expr: "2026-05-06 12:00:00"},
	}
	c, rec := newTestController(t, Config{Timezone: &utc, DefaultValue: &committed})

	require.NoError(t, c.SetTimezone(timezone.IANA("Asia/Shanghai")))

	// The change was emitted, resolved under the requested zone, but the
	// active timezone and live snapshot still belong to the owner.
	require.Len(t, rec.metas, 1)
	assert.Equal(t, ReasonTimezoneChange, rec.metas[0].Reason)
	assert.Equal(t, "Asia/Shanghai", rec.payloads[0].Resolved.ResolvedTz)
	assert.True(t, c.Timezone().Equal(utc))
	assert.Equal(t, "UTC", c.Live().Snapshot().Resolved.ResolvedTz)

	// The owner accepts and feeds the zone back; the echo commits silently.
	c.SyncExternalTimezone(timezone.IANA("Asia/Shanghai"))
	assert.Len(t, rec.metas, 1)
	assert.True(t, c.Timezone().Equal(timezone.IANA("Asia/Shanghai")))
	assert.Equal(t, "Asia/Shanghai", c.Live().Snapshot().Resolved.ResolvedTz)

	// A genuinely external zone change re-resolves and emits.
	c.SyncExternalTimezone(timezone.IANA("America/New_York"))
	require.Len(t, rec.metas, 2)
	assert.Equal(t, ReasonTimezoneChange, rec.metas[1].Reason)
	assert.Equal(t, "America/New_York", c.Live().Snapshot().Resolved.ResolvedTz)
}

func TestManualEditorModeLockOverridesHints(t *testing.T) {
	committed := resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "now-1h"},
		To:   resolver.EndpointDef{Expr: "now"},
		UI:   &resolver.UIHints{ManualEditorMode: "datetime"},
	}

	// The owner's lock wins over the per-definition hint.
	c, _ := newTestController(t, Config{DefaultValue: &committed, ManualEditorMode: "date"})
	assert.Equal(t, "date", c.ManualEditorMode())

	// Without a lock the definition's hint applies.
	c, _ = newTestController(t, Config{DefaultValue: &committed})
	assert.Equal(t, "datetime", c.ManualEditorMode())

	// No lock and no hint falls back to datetime.
	c, _ = newTestController(t, Config{})
	assert.Equal(t, "datetime", c.ManualEditorMode())
}

func TestTimezoneOptionsAndPlaceholder(t *testing.T) {
	c, _ := newTestController(t, Config{})
	opts := c.TimezoneOptions()
	require.Len(t, opts, 2)
	assert.True(t, opts[0].Equal(timezone.UTC()))
	assert.True(t, opts[1].Equal(timezone.Local()))
	assert.Equal(t, "选择时间范围", c.Placeholder())

	custom := []timezone.Mode{timezone.UTC(), timezone.IANA("Asia/Shanghai")}
	c, _ = newTestController(t, Config{TimezoneOptions: custom, Placeholder: "请选择"})
	opts = c.TimezoneOptions()
	require.Len(t, opts, 2)
	assert.True(t, opts[1].Equal(timezone.IANA("Asia/Shanghai")))
	assert.Equal(t, "请选择", c.Placeholder())

	// Mutating the returned slice does not leak into the controller.
	opts[0] = timezone.Local()
	assert.True(t, c.TimezoneOptions()[0].Equal(timezone.UTC()))
}

func TestDeferredBlurLifecycle(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "2026-05-06 10:00")

	// Focus moving into the calendar overlay cancels the pending blur.
	c.DeferBlur(EndpointFrom)
	c.CancelPendingBlur()
	c.CommitPendingBlur()
	assert.Equal(t, "2026-05-06 10:00", c.Draft().From.RawText)

	// A committed blur normalizes the text.
	c.DeferBlur(EndpointFrom)
	c.CommitPendingBlur()
	assert.Equal(t, "2026-05-06 10:00:00", c.Draft().From.RawText)
}

func TestFocusCancelsPendingBlur(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "2026-05-06 10:00")
	c.DeferBlur(EndpointFrom)
	c.Focus(EndpointFrom)
	c.CommitPendingBlur()
	// Refocusing discarded the blur, so no normalization happened.
	assert.Equal(t, "2026-05-06 10:00", c.Draft().From.RawText)
}

func TestPickPartsUpdatesPreview(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	c.PickParts(EndpointFrom, datemath.WallParts{Year: 2026, Month: 5, Day: 6, Hour: 8}, SourceCalendar)
	c.PickParts(EndpointTo, datemath.WallParts{Year: 2026, Month: 5, Day: 6, Hour: 9}, SourceScroller)

	preview, previewErr := c.Preview()
	require.NotNil(t, preview)
	assert.Empty(t, previewErr)
	assert.Equal(t, int64(60*60*1000), preview.Resolved.DurationMs())
}

func TestPreviewErrorIsNonFatal(t *testing.T) {
	c, _ := newTestController(t, Config{})

	c.Open()
	c.Typing(EndpointFrom, "now")
	c.Typing(EndpointTo, "now-1h")

	preview, previewErr := c.Preview()
	assert.Nil(t, preview)
	assert.NotEmpty(t, previewErr)
	// The picker stays open and the draft remains editable.
	assert.True(t, c.IsOpen())
}

func TestControlledValueWaitsForOwner(t *testing.T) {
	owned := resolver.TimeRangeDefinition{
		From: resolver.EndpointDef{Expr: "now-15m"},
		To:   resolver.EndpointDef{Expr: "now"},
	}
	c, rec := newTestController(t, Config{Value: &owned})

	c.Open()
	c.Typing(EndpointFrom, "now-1h")
	require.True(t, c.Apply())

	// The change was emitted but the committed value is still the owner's.
	require.Len(t, rec.metas, 1)
	assert.Equal(t, "now-15m", c.Committed().From.Expr)

	// The owner feeds the new value back; the echo is silent.
	applied := rec.payloads[0].Definition
	c.SyncExternalValue(&applied)
	assert.Len(t, rec.metas, 1)
	assert.Equal(t, "now-1h", c.Committed().From.Expr)
}

func TestAllowEmptyStartsWithNoValue(t *testing.T) {
	c, _ := newTestController(t, Config{AllowEmpty: true})
	assert.Nil(t, c.Committed())
	assert.Nil(t, c.Live().Snapshot())

	// Opening with no committed value falls back to the default seed.
	c.Open()
	d := c.Draft()
	require.NotNil(t, d)
	assert.Equal(t, "now-15m", d.From.RawText)
}

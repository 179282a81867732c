package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/hrygo/timescope/internal/observability"
	"github.com/hrygo/timescope/internal/profile"
	"github.com/hrygo/timescope/picker"
	"github.com/hrygo/timescope/resolver"
	"github.com/hrygo/timescope/store"
	"github.com/hrygo/timescope/timezone"
)

// RangeService serves resolution, presets, and applied-range history.
type RangeService struct {
	Profile *profile.Profile
	Store   *store.Store

	engine timezone.Engine
	logger *slog.Logger
}

func NewRangeService(profile *profile.Profile, st *store.Store, logger *slog.Logger) *RangeService {
	return &RangeService{
		Profile: profile,
		Store:   st,
		engine:  timezone.NewStdEngine(),
		logger:  logger,
	}
}

// Register mounts the range routes on a group.
func (s *RangeService) Register(g *echo.Group) {
	g.POST("/range/resolve", s.ResolveRange)
	g.GET("/range/presets", s.ListPresets)
	g.GET("/range/history", s.ListHistory)
}

// ResolveRangeRequest is the resolve endpoint input.
type ResolveRangeRequest struct {
	Definition resolver.TimeRangeDefinition `json:"definition"`
	// Timezone is "UTC", "local", or an IANA id. Empty falls back to the
	// server default.
	Timezone string `json:"timezone,omitempty"`
	// Now pins the reference instant (RFC3339). Empty means wall-clock now.
	Now string `json:"now,omitempty"`
	// Record persists the resolved range into history.
	Record bool `json:"record,omitempty"`
}

type resolveErrorBody struct {
	Code     resolver.ErrorCode `json:"code"`
	Endpoint string             `json:"endpoint,omitempty"`
	Message  string             `json:"message"`
}

func (s *RangeService) ResolveRange(c echo.Context) error {
	reqCtx := observability.NewRequestContext(s.logger)

	request := &ResolveRangeRequest{}
	if err := c.Bind(request); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed resolve request").SetInternal(err)
	}

	tzText := request.Timezone
	if tzText == "" {
		tzText = s.Profile.DefaultTimezone
	}
	mode, err := timezone.ParseMode(tzText)
	if err != nil {
		return c.JSON(http.StatusBadRequest, resolveErrorBody{
			Code:    resolver.CodeInvalidTimezone,
			Message: "无法识别的时区 " + tzText,
		})
	}

	opts := resolver.Options{
		Timezone:     mode,
		WeekStartsOn: s.Profile.WeekStart(),
		Engine:       s.engine,
	}
	if request.Now != "" {
		now, err := time.Parse(time.RFC3339, request.Now)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "now must be RFC3339").SetInternal(err)
		}
		opts.Now = now
	}

	resolved, err := resolver.ResolveRange(request.Definition, opts)
	if err != nil {
		body := resolveErrorBody{Code: resolver.CodeInvalidExpression, Message: err.Error()}
		if rerr, ok := err.(*resolver.ResolveError); ok {
			body = resolveErrorBody{Code: rerr.Code, Endpoint: rerr.Endpoint, Message: rerr.Message}
		}
		reqCtx.Logger.Debug("range resolution failed",
			slog.String(observability.LogFieldErrorCode, string(body.Code)),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
		return c.JSON(http.StatusUnprocessableEntity, body)
	}

	payload := &resolver.ResolvedPayload{
		Definition: request.Definition,
		Resolved:   resolved,
	}
	if request.Record && s.Store != nil {
		if _, err := s.Store.RecordApplied(c.Request().Context(), payload); err != nil {
			reqCtx.Logger.Error("failed to record applied range", slog.Any("error", err))
		}
	}

	reqCtx.Logger.Debug("range resolved",
		slog.String(observability.LogFieldTimezone, resolved.ResolvedTz),
		slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()))
	return c.JSON(http.StatusOK, payload)
}

func (s *RangeService) ListPresets(c echo.Context) error {
	presets := picker.MatchPresets(picker.DefaultPresets(), c.QueryParam("q"))
	if presets == nil {
		presets = []picker.Preset{}
	}
	return c.JSON(http.StatusOK, presets)
}

// HistoryEntry is the externally visible history record, with the stored
// definition decoded.
type HistoryEntry struct {
	UID        string                       `json:"uid"`
	Label      string                       `json:"label,omitempty"`
	Definition resolver.TimeRangeDefinition `json:"definition"`
	StartMs    int64                        `json:"startMs"`
	EndMs      int64                        `json:"endMs"`
	Timezone   string                       `json:"timezone"`
	CreatedTs  int64                        `json:"createdTs"`
}

func (s *RangeService) ListHistory(c echo.Context) error {
	entries := []HistoryEntry{}
	if s.Store == nil {
		return c.JSON(http.StatusOK, entries)
	}

	limit := 0
	if v := c.QueryParam("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "limit must be an integer").SetInternal(err)
		}
		limit = n
	}

	list, err := s.Store.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to list history").SetInternal(err)
	}
	for _, e := range list {
		def, err := e.DecodeDefinition()
		if err != nil {
			s.logger.Warn("skipping undecodable history entry", slog.String("uid", e.UID), slog.Any("error", err))
			continue
		}
		entries = append(entries, HistoryEntry{
			UID:        e.UID,
			Label:      e.Label,
			Definition: def,
			StartMs:    e.StartMs,
			EndMs:      e.EndMs,
			Timezone:   e.Timezone,
			CreatedTs:  e.CreatedTs,
		})
	}
	return c.JSON(http.StatusOK, entries)
}

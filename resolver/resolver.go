package resolver

import (
	"errors"
	"fmt"
	"time"

	"github.com/hrygo/timescope/datemath"
	"github.com/hrygo/timescope/timezone"
)

// Options supplies the resolution context.
type Options struct {
	// Now is the current instant; relative expressions evaluate against it.
	Now time.Time
	// Timezone selects the zone wall-clock endpoints resolve in.
	Timezone timezone.Mode
	// WeekStartsOn anchors /w rounding. Zero value is Sunday; most
	// deployments set time.Monday.
	WeekStartsOn time.Weekday
	// Engine is the timezone capability surface. Defaults to StdEngine.
	Engine timezone.Engine
}

// ResolveRange computes concrete start/end instants for a definition,
// validates ordering, and collects non-fatal warnings. Failures are
// *ResolveError values coded per endpoint.
func ResolveRange(def TimeRangeDefinition, opts Options) (ResolvedRange, error) {
	engine := opts.Engine
	if engine == nil {
		engine = timezone.NewStdEngine()
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	zoneID, err := engine.Resolve(opts.Timezone)
	if err != nil {
		return ResolvedRange{}, newError(CodeInvalidTimezone, "", "无法解析时区", err)
	}
	loc, err := engine.Location(zoneID)
	if err != nil {
		return ResolvedRange{}, newError(CodeInvalidTimezone, "", "无法加载时区 "+zoneID, err)
	}

	var warnings []Warning
	start, w, err := resolveEndpoint(def.From, "from", opts, engine, loc)
	if err != nil {
		return ResolvedRange{}, err
	}
	warnings = append(warnings, w...)

	end, w, err := resolveEndpoint(def.To, "to", opts, engine, loc)
	if err != nil {
		return ResolvedRange{}, err
	}
	warnings = append(warnings, w...)

	if !start.Before(end) {
		return ResolvedRange{}, newError(CodeStartNotBeforeEnd, "",
			fmt.Sprintf("开始时间 %s 不早于结束时间 %s", start.Format(time.RFC3339), end.Format(time.RFC3339)), nil)
	}

	return ResolvedRange{
		StartMs:    start.UnixMilli(),
		EndMs:      end.UnixMilli(),
		ResolvedTz: zoneID,
		Warnings:   warnings,
	}, nil
}

// resolveEndpoint resolves one boundary: parse, evaluate per kind, then
// apply the endpoint rounding.
func resolveEndpoint(ep EndpointDef, name string, opts Options, engine timezone.Engine, loc *time.Location) (time.Time, []Warning, error) {
	expr, err := datemath.Parse(ep.Expr)
	if err != nil {
		return time.Time{}, nil, parseError(name, ep.Expr, err)
	}

	var (
		t        time.Time
		warnings []Warning
	)
	switch e := expr.(type) {
	case *datemath.RelativeExpr:
		t = datemath.EvalRelative(e, opts.Now.In(loc), opts.WeekStartsOn)
	case *datemath.InstantExpr:
		t = e.Time.In(loc)
	case *datemath.WallExpr:
		t, warnings, err = resolveWallEndpoint(e, ep, name, engine, loc)
		if err != nil {
			return time.Time{}, nil, err
		}
	}

	t, err = applyEndpointRound(t.In(loc), expr, ep.Round, name, opts.WeekStartsOn)
	if err != nil {
		return time.Time{}, nil, err
	}
	return t, warnings, nil
}

// resolveWallEndpoint binds a wall-clock expression to an instant,
// applying the endpoint's gap policy and overlap disambiguation.
func resolveWallEndpoint(e *datemath.WallExpr, ep EndpointDef, name string, engine timezone.Engine, loc *time.Location) (time.Time, []Warning, error) {
	res := engine.ResolveWall(loc, e.Parts)

	switch res.Status {
	case timezone.WallGap:
		if ep.GapPolicy == GapError {
			return time.Time{}, nil, newError(CodeDSTGapError, name,
				fmt.Sprintf("本地时间 %s 不存在（夏令时跳变）", datemath.FormatWall(e.Parts)), nil)
		}
		return res.Earlier, []Warning{{
			Code:     WarnGapShifted,
			Endpoint: name,
			Message:  fmt.Sprintf("本地时间 %s 不存在，已顺延到 %s", datemath.FormatWall(e.Parts), res.Earlier.In(loc).Format("15:04:05")),
		}}, nil

	case timezone.WallOverlap:
		if !engine.SupportsDisambiguation() {
			return res.Earlier, []Warning{{
				Code:     WarnOverlapForcedEarlier,
				Endpoint: name,
				Message:  fmt.Sprintf("本地时间 %s 出现两次，当前时区引擎无法区分，已取较早的一次", datemath.FormatWall(e.Parts)),
			}}, nil
		}
		switch ep.Disambiguation {
		case DisambiguationLater:
			return res.Later, nil, nil
		case DisambiguationEarlier:
			return res.Earlier, nil, nil
		default:
			return res.Earlier, []Warning{{
				Code:     WarnOverlapDefaultEarlier,
				Endpoint: name,
				Message:  fmt.Sprintf("本地时间 %s 出现两次，默认取较早的一次", datemath.FormatWall(e.Parts)),
			}}, nil
		}
	}

	return res.Earlier, nil, nil
}

// applyEndpointRound floors t per the endpoint rounding setting.
func applyEndpointRound(t time.Time, expr datemath.Expression, round RoundUnit, name string, weekStartsOn time.Weekday) (time.Time, error) {
	if round == RoundNone {
		return t, nil
	}

	var unit datemath.Unit
	if round == RoundAuto {
		rel, ok := expr.(*datemath.RelativeExpr)
		if !ok || rel.ImplicitUnit() == "" {
			return time.Time{}, newError(CodeRoundUnitRequired, name,
				"表达式未提供可用于取整的单位", nil)
		}
		unit = rel.ImplicitUnit()
	} else {
		var err error
		unit, err = datemath.ParseUnitName(string(round))
		if err != nil {
			return time.Time{}, newError(CodeRoundUnitRequired, name, "未知的取整单位 "+string(round), err)
		}
	}
	return datemath.FloorTo(t, unit, weekStartsOn), nil
}

// parseError maps datemath sentinels to coded resolve errors.
func parseError(name, text string, err error) *ResolveError {
	switch {
	case errors.Is(err, datemath.ErrISOWithoutOffset):
		return newError(CodeInvalidISOWithoutOffset, name,
			"ISO 时间缺少 UTC 偏移，请改用本地时间格式输入", err)
	case errors.Is(err, datemath.ErrInvalidWallTime):
		return newError(CodeInvalidWallTime, name, "无效的本地时间 "+text, err)
	default:
		return newError(CodeInvalidExpression, name, "无法识别的时间表达式 "+text, err)
	}
}

package datemath

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRelative(t *testing.T) {
	tests := []struct {
		input     string
		offsets   []Offset
		roundUnit Unit
	}{
		{input: "now", offsets: nil, roundUnit: ""},
		{input: "now-15m", offsets: []Offset{{Amount: -15, Unit: UnitMinute}}, roundUnit: ""},
		{input: "now+1h", offsets: []Offset{{Amount: 1, Unit: UnitHour}}, roundUnit: ""},
		{input: "now/d", offsets: nil, roundUnit: UnitDay},
		{input: "now-1d/d", offsets: []Offset{{Amount: -1, Unit: UnitDay}}, roundUnit: UnitDay},
		{input: "now-1w+2h/w", offsets: []Offset{{Amount: -1, Unit: UnitWeek}, {Amount: 2, Unit: UnitHour}}, roundUnit: UnitWeek},
		{input: "now-1M/M", offsets: []Offset{{Amount: -1, Unit: UnitMonth}}, roundUnit: UnitMonth},
		{input: "now-1y", offsets: []Offset{{Amount: -1, Unit: UnitYear}}, roundUnit: ""},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.NoError(t, err)
			rel, ok := expr.(*RelativeExpr)
			require.True(t, ok)
			assert.Equal(t, tt.offsets, rel.Offsets)
			assert.Equal(t, tt.roundUnit, rel.RoundUnit)
			assert.Equal(t, KindRelative, expr.Kind())
			assert.Equal(t, tt.input, expr.String())
		})
	}
}

func TestParseInstant(t *testing.T) {
	expr, err := Parse("2026-03-08T07:30:00Z")
	require.NoError(t, err)
	inst, ok := expr.(*InstantExpr)
	require.True(t, ok)
	assert.Equal(t, KindInstant, expr.Kind())
	assert.Equal(t, time.Date(2026, 3, 8, 7, 30, 0, 0, time.UTC), inst.Time)

	expr, err = Parse("2026-03-08T02:30:00+08:00")
	require.NoError(t, err)
	inst = expr.(*InstantExpr)
	assert.True(t, inst.Time.Equal(time.Date(2026, 3, 7, 18, 30, 0, 0, time.UTC)))
}

func TestParseISOWithoutOffsetRejected(t *testing.T) {
	for _, input := range []string{
		"2026-03-08T02:30",
		"2026-03-08T02:30:00",
		"2026-03-08T02:30:00.123",
	} {
		_, err := Parse(input)
		assert.ErrorIs(t, err, ErrISOWithoutOffset, "input %q", input)
	}
}

func TestParseWall(t *testing.T) {
	tests := []struct {
		input string
		parts WallParts
	}{
		{"2026-03-08 02:30:00", WallParts{2026, 3, 8, 2, 30, 0}},
		{"2026-03-08 02:30", WallParts{2026, 3, 8, 2, 30, 0}},
		{"2026-03-08", WallParts{2026, 3, 8, 0, 0, 0}},
		{"2026-1-2 03:04", WallParts{2026, 1, 2, 3, 4, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expr, err := Parse(tt.input)
			require.NoError(t, err)
			wall, ok := expr.(*WallExpr)
			require.True(t, ok)
			assert.Equal(t, tt.parts, wall.Parts)
		})
	}
}

func TestParseInvalid(t *testing.T) {
	for _, input := range []string{
		"nowhere",
		"now-15x",
		"now/q",
		"yesterday",
		"2026-13-01",
		"2026-02-30",
		"2026-03-08 25:00",
	} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}

	_, err := Parse("")
	assert.ErrorIs(t, err, ErrEmptyExpression)
	_, err = Parse("   ")
	assert.ErrorIs(t, err, ErrEmptyExpression)

	_, err = Parse("2026-02-30")
	assert.ErrorIs(t, err, ErrInvalidWallTime)
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		input string
		expr  string
		kind  Kind
	}{
		{"now-15m", "now-15m", KindRelative},
		{"  now-1h  ", "now-1h", KindRelative},
		{"2026-05-06 10:00", "2026-05-06 10:00:00", KindWall},
		{"2026/05/06 10:00", "2026-05-06 10:00:00", KindWall},
		{"2026-05-06", "2026-05-06 00:00:00", KindWall},
		{"2026-03-08T07:30:00Z", "2026-03-08T07:30:00Z", KindInstant},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			n, err := NormalizeInput(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expr, n.Expr)
			assert.Equal(t, tt.kind, n.KindHint)
			if tt.kind == KindWall {
				require.NotNil(t, n.Wall)
				assert.Equal(t, tt.expr, FormatWall(*n.Wall))
			} else {
				assert.Nil(t, n.Wall)
			}
		})
	}

	_, err := NormalizeInput("")
	assert.ErrorIs(t, err, ErrEmptyExpression)
	_, err = NormalizeInput("2026-03-08T02:30")
	assert.ErrorIs(t, err, ErrISOWithoutOffset)
	_, err = NormalizeInput("garbage")
	assert.ErrorIs(t, err, ErrInvalidExpression)
}

func TestWallDisplayRoundTrip(t *testing.T) {
	parts := WallParts{Year: 2026, Month: 11, Day: 1, Hour: 1, Minute: 30, Second: 0}
	text := FormatWall(parts)
	assert.Equal(t, "2026-11-01 01:30:00", text)

	got, err := ParseWallDisplay(text)
	require.NoError(t, err)
	assert.Equal(t, parts, got)
}

func TestDisplayText(t *testing.T) {
	expr, err := Parse("now-7d")
	require.NoError(t, err)
	assert.Equal(t, "now-7d", DisplayText(expr))

	expr, err = Parse("2026-05-06 10:00:00")
	require.NoError(t, err)
	assert.Equal(t, "2026-05-06 10:00:00", DisplayText(expr))
}

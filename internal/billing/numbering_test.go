package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var (
	devisFormat = NumberFormat{Prefix: "DEV", Format: "DEV-{YYYY}-{NNN}", AnnualReset: true}
	in2026      = time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	in2027      = time.Date(2027, 1, 2, 8, 0, 0, 0, time.UTC)
)

func TestNumberFormatRender(t *testing.T) {
	assert.Equal(t, "DEV-2026-001", devisFormat.Render(1, in2026))
	assert.Equal(t, "DEV-2026-042", devisFormat.Render(42, in2026))
	assert.Equal(t, "DEV-2027-001", devisFormat.Render(1, in2027))

	short := NumberFormat{Prefix: "F", Format: "F{YY}/{N}", AnnualReset: true}
	assert.Equal(t, "F26/7", short.Render(7, in2026))
}

func TestNumberFormatRenderBeyondPaddingWidth(t *testing.T) {
	// The thousandth document of a year widens the number instead of
	// wrapping.
	assert.Equal(t, "DEV-2026-1000", devisFormat.Render(1000, in2026))
}

func TestNumberFormatValidate(t *testing.T) {
	assert.NoError(t, devisFormat.Validate())
	assert.NoError(t, NumberFormat{Prefix: "F", Format: "F{YY}/{N}"}.Validate())

	cases := []struct {
		name   string
		format NumberFormat
	}{
		{"prefix not in format", NumberFormat{Prefix: "DEV", Format: "D-{YYYY}-{NNN}"}},
		{"empty prefix", NumberFormat{Prefix: "", Format: "DEV-{YYYY}-{NNN}"}},
		{"no sequence token", NumberFormat{Prefix: "DEV", Format: "DEV-{YYYY}"}},
		{"two sequence tokens", NumberFormat{Prefix: "DEV", Format: "DEV-{NN}-{NNN}"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, tc.format.Validate(), ErrValidation)
		})
	}
}

func TestSearchPrefix(t *testing.T) {
	assert.Equal(t, "DEV-2026-", devisFormat.SearchPrefix(in2026))
	assert.Equal(t, "DEV-2027-", devisFormat.SearchPrefix(in2027))

	// Without annual reset the sequence spans years, so the prefix stops
	// before the year token.
	continuous := NumberFormat{Prefix: "F", Format: "F-{YYYY}-{NNN}", AnnualReset: false}
	assert.Equal(t, "F-", continuous.SearchPrefix(in2026))
}

func TestNextSequence(t *testing.T) {
	assert.Equal(t, 1, NextSequence(nil))
	assert.Equal(t, 1, NextSequence([]string{}))
	assert.Equal(t, 4, NextSequence([]string{"DEV-2026-001", "DEV-2026-003", "DEV-2026-002"}))

	// Holes do not get refilled.
	assert.Equal(t, 8, NextSequence([]string{"DEV-2026-001", "DEV-2026-007"}))

	// Numeric comparison, not lexicographic: 1000 > 999.
	assert.Equal(t, 1001, NextSequence([]string{"DEV-2026-999", "DEV-2026-1000"}))

	// Garbage entries without a numeric suffix are ignored.
	assert.Equal(t, 3, NextSequence([]string{"DEV-2026-002", "DEV-2026-draft"}))
}

func TestAnnualResetRestartsSequence(t *testing.T) {
	existing2026 := []string{"DEV-2026-041", "DEV-2026-042"}

	// Same year continues, new year starts over because its prefix
	// matches nothing.
	assert.Equal(t, "DEV-2026-043", devisFormat.Render(NextSequence(existing2026), in2026))
	assert.Equal(t, "DEV-2027-001", devisFormat.Render(NextSequence(nil), in2027))
}

package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

var (
	tenPercent = decimal.NewFromInt(10)
	indemnity  = decimal.NewFromInt(40)
)

func TestPenaltiesProRata(t *testing.T) {
	echeance := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	asOf := echeance.AddDate(0, 0, 73) // 73/365 = exactly a fifth of a year

	got := Penalties(decimal.NewFromInt(1000), echeance, asOf, tenPercent, indemnity)

	assert.Equal(t, 73, got.DaysLate)
	// 1000 * 10% * 73/365 = 20.00
	assert.Equal(t, "20.00", got.PenaltyAmount.StringFixed(2))
	assert.Equal(t, "40.00", got.FixedIndemnity.StringFixed(2))
	assert.Equal(t, "60.00", got.Total.StringFixed(2))
}

func TestPenaltiesZeroOnOrBeforeDueDate(t *testing.T) {
	echeance := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)

	for _, asOf := range []time.Time{
		echeance.AddDate(0, 0, -3),
		echeance,
		echeance.Add(23 * time.Hour), // same civil day
	} {
		got := Penalties(decimal.NewFromInt(500), echeance, asOf, tenPercent, indemnity)
		assert.Equal(t, 0, got.DaysLate)
		assert.True(t, got.PenaltyAmount.IsZero())
		// The indemnity only applies once the facture is actually late.
		assert.True(t, got.FixedIndemnity.IsZero())
		assert.True(t, got.Total.IsZero())
	}
}

func TestPenaltiesSingleDayLate(t *testing.T) {
	echeance := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	got := Penalties(decimal.NewFromInt(1000), echeance, echeance.AddDate(0, 0, 1), tenPercent, indemnity)

	assert.Equal(t, 1, got.DaysLate)
	// 1000 * 10% / 365 = 0.27397... -> 0.27
	assert.Equal(t, "0.27", got.PenaltyAmount.StringFixed(2))
	assert.Equal(t, "40.27", got.Total.StringFixed(2))
}

func TestPenaltiesZeroRemaining(t *testing.T) {
	echeance := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	got := Penalties(decimal.Zero, echeance, echeance.AddDate(0, 0, 30), tenPercent, indemnity)

	assert.True(t, got.PenaltyAmount.IsZero())
	// Still late, so the indemnity applies even with nothing remaining.
	assert.Equal(t, "40.00", got.FixedIndemnity.StringFixed(2))
}

func TestReminderLevelBands(t *testing.T) {
	thresholds := ReminderThresholds{Aimable: 15, Ferme: 30, MiseEnDemeure: 60}

	tests := []struct {
		daysLate int
		want     string
	}{
		{0, ReminderNone},
		{14, ReminderNone},
		{15, ReminderAimable},
		{29, ReminderAimable},
		{30, ReminderFerme},
		{59, ReminderFerme},
		{60, ReminderMiseEnDemeure},
		{500, ReminderMiseEnDemeure},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ReminderLevel(tt.daysLate, thresholds), "daysLate=%d", tt.daysLate)
	}
}

package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Reminder escalation levels, in ascending severity.
const (
	ReminderNone          = "aucune"
	ReminderAimable       = "rappel_aimable"
	ReminderFerme         = "relance_ferme"
	ReminderMiseEnDemeure = "mise_en_demeure"
)

// ReminderThresholds holds the day counts past due at which each
// escalation level starts. Bands are inclusive-lower / exclusive-upper:
// daysLate in [Aimable, Ferme) maps to rappel_aimable, and so on.
type ReminderThresholds struct {
	Aimable       int
	Ferme         int
	MiseEnDemeure int
}

// ReminderLevel classifies days past due into an escalation level. Pure
// classification: the caller decides whether a reminder is actually sent
// and maintains nb_relances / derniere_relance itself.
func ReminderLevel(daysLate int, t ReminderThresholds) string {
	switch {
	case daysLate >= t.MiseEnDemeure:
		return ReminderMiseEnDemeure
	case daysLate >= t.Ferme:
		return ReminderFerme
	case daysLate >= t.Aimable:
		return ReminderAimable
	default:
		return ReminderNone
	}
}

// PenaltyBreakdown details the late-payment amounts owed on an invoice at
// a given date.
type PenaltyBreakdown struct {
	DaysLate       int
	AnnualRate     decimal.Decimal
	PenaltyAmount  decimal.Decimal
	FixedIndemnity decimal.Decimal
	Total          decimal.Decimal
}

var daysPerYear = decimal.NewFromInt(365)

// Penalties computes the statutory late-payment penalty on the remaining
// amount: remaining * rate/100 * daysLate/365, rounded to 2 decimals, plus
// the fixed recovery indemnity. On or before the due date everything is
// zero, including the indemnity.
func Penalties(restant decimal.Decimal, dateEcheance, asOf time.Time, annualRate, fixedIndemnity decimal.Decimal) PenaltyBreakdown {
	days := DaysLate(dateEcheance, asOf)
	if days <= 0 {
		return PenaltyBreakdown{
			AnnualRate:     annualRate,
			PenaltyAmount:  decimal.Zero,
			FixedIndemnity: decimal.Zero,
			Total:          decimal.Zero,
		}
	}

	penalty := Round2(restant.
		Mul(annualRate).Div(hundred).
		Mul(decimal.NewFromInt(int64(days))).Div(daysPerYear))

	return PenaltyBreakdown{
		DaysLate:       days,
		AnnualRate:     annualRate,
		PenaltyAmount:  penalty,
		FixedIndemnity: fixedIndemnity,
		Total:          penalty.Add(fixedIndemnity),
	}
}

// DaysLate counts whole calendar days between the due date and asOf,
// negative when asOf is before the due date. Callers bucketing overdue
// invoices use this rather than raw durations so the count does not depend
// on the time of day.
func DaysLate(dateEcheance, asOf time.Time) int {
	return int(truncateDay(asOf).Sub(truncateDay(dateEcheance)).Hours() / 24)
}

package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote statuses. A quote that reaches accepte, refuse or expire is
// terminal; conversion of an accepted quote is tracked by facture_id, not
// by a further status.
const (
	QuoteStatusBrouillon = "brouillon"
	QuoteStatusEnvoye    = "envoye"
	QuoteStatusAccepte   = "accepte"
	QuoteStatusRefuse    = "refuse"
	QuoteStatusExpire    = "expire"
)

// Invoice statuses. en_retard is a projection over dates and the payment
// ledger, re-derived on every evaluation rather than trusted as stored.
const (
	InvoiceStatusBrouillon    = "brouillon"
	InvoiceStatusEnvoyee      = "envoyee"
	InvoiceStatusPayeePartiel = "payee_partiel"
	InvoiceStatusPayee        = "payee"
	InvoiceStatusEnRetard     = "en_retard"
	InvoiceStatusAnnulee      = "annulee"
)

// Payment statuses. Only valide payments count toward the invoice's paid
// amount; a valide payment never transitions again.
const (
	PaymentStatusEnAttente = "en_attente"
	PaymentStatusValide    = "valide"
	PaymentStatusRejete    = "rejete"
)

// Accepted payment modes, mirroring the paiements schema.
var PaymentModes = []string{"virement", "cheque", "especes", "cb", "prelevement", "autre"}

// ValidPaymentMode reports whether mode is one of the accepted payment modes.
func ValidPaymentMode(mode string) bool {
	for _, m := range PaymentModes {
		if m == mode {
			return true
		}
	}
	return false
}

// QuoteResponseOpen reports whether a sent quote can still be accepted or
// refused: the validity date (inclusive) has not passed.
func QuoteResponseOpen(dateValidite, now time.Time) bool {
	return !truncateDay(now).After(truncateDay(dateValidite))
}

// QuoteExpired reports whether a sent quote has outlived its validity
// window and should be swept to expire.
func QuoteExpired(dateValidite, now time.Time) bool {
	return truncateDay(now).After(truncateDay(dateValidite))
}

// DeriveInvoiceStatus projects the invoice status from its ledger and due
// date. Terminal annulee and pre-send brouillon are preserved; everything
// else follows from (paid, ttc, due date, now):
//
//	paid >= ttc        -> payee
//	past due, not paid -> en_retard
//	0 < paid < ttc     -> payee_partiel
//	otherwise          -> envoyee
//
// Because the result depends only on its inputs, the projection is the one
// place "is this invoice overdue" is answered; advancing the due date or
// recording a payment reverses en_retard naturally.
func DeriveInvoiceStatus(current string, paye, ttc decimal.Decimal, dateEcheance, now time.Time) string {
	if current == InvoiceStatusAnnulee {
		return InvoiceStatusAnnulee
	}
	if ttc.IsPositive() && paye.GreaterThanOrEqual(ttc) {
		return InvoiceStatusPayee
	}
	if current == InvoiceStatusBrouillon {
		return InvoiceStatusBrouillon
	}
	if truncateDay(now).After(truncateDay(dateEcheance)) {
		return InvoiceStatusEnRetard
	}
	if paye.IsPositive() {
		return InvoiceStatusPayeePartiel
	}
	return InvoiceStatusEnvoyee
}

// StartOfDay truncates t to midnight. Every date comparison in the billing
// core is civil-day granular; sweeps compare stored dates against this
// cutoff so the validity or due day itself stays open, the same rule
// QuoteResponseOpen and DeriveInvoiceStatus apply.
func StartOfDay(t time.Time) time.Time {
	return truncateDay(t)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

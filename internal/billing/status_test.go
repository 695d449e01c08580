package billing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestDeriveInvoiceStatus(t *testing.T) {
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	before := due.AddDate(0, 0, -10)
	after := due.AddDate(0, 0, 10)
	ttc := decimal.NewFromInt(1200)

	tests := []struct {
		name    string
		current string
		paye    string
		now     time.Time
		want    string
	}{
		{"annulee is terminal", InvoiceStatusAnnulee, "1200", after, InvoiceStatusAnnulee},
		{"fully paid", InvoiceStatusEnvoyee, "1200", before, InvoiceStatusPayee},
		{"overpaid still payee", InvoiceStatusPayeePartiel, "1300", before, InvoiceStatusPayee},
		{"paid late is still payee", InvoiceStatusEnRetard, "1200", after, InvoiceStatusPayee},
		{"brouillon never goes overdue", InvoiceStatusBrouillon, "0", after, InvoiceStatusBrouillon},
		{"past due unpaid", InvoiceStatusEnvoyee, "0", after, InvoiceStatusEnRetard},
		{"past due partially paid", InvoiceStatusPayeePartiel, "600", after, InvoiceStatusEnRetard},
		{"partial before due", InvoiceStatusEnvoyee, "600", before, InvoiceStatusPayeePartiel},
		{"unpaid before due", InvoiceStatusEnvoyee, "0", before, InvoiceStatusEnvoyee},
		{"en_retard reverses when due date moves out", InvoiceStatusEnRetard, "0", before, InvoiceStatusEnvoyee},
		{"due day itself is not overdue", InvoiceStatusEnvoyee, "0", due.Add(20 * time.Hour), InvoiceStatusEnvoyee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DeriveInvoiceStatus(tt.current, dec(tt.paye), ttc, due, tt.now)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQuoteResponseWindow(t *testing.T) {
	validite := time.Date(2026, 4, 30, 0, 0, 0, 0, time.UTC)

	// The validity day itself stays open, whatever the hour.
	assert.True(t, QuoteResponseOpen(validite, validite.Add(23*time.Hour)))
	assert.True(t, QuoteResponseOpen(validite, validite.AddDate(0, 0, -5)))
	assert.False(t, QuoteResponseOpen(validite, validite.AddDate(0, 0, 1)))

	assert.False(t, QuoteExpired(validite, validite))
	assert.True(t, QuoteExpired(validite, validite.AddDate(0, 0, 1)))
}

func TestValidPaymentMode(t *testing.T) {
	for _, mode := range PaymentModes {
		assert.True(t, ValidPaymentMode(mode))
	}
	assert.False(t, ValidPaymentMode("bitcoin"))
	assert.False(t, ValidPaymentMode(""))
}

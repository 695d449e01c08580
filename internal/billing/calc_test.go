package billing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeLine(t *testing.T) {
	tests := []struct {
		name     string
		quantite string
		prix     string
		taux     string
		remise   Discount
		wantHT   string
		wantTVA  string
		wantTTC  string
	}{
		{
			name:     "basic line at 20 percent",
			quantite: "2", prix: "100.00", taux: "20.00",
			wantHT: "200.00", wantTVA: "40.00", wantTTC: "240.00",
		},
		{
			name:     "fractional quantity rounds half away from zero",
			quantite: "3", prix: "33.335", taux: "20.00",
			wantHT: "100.01", wantTVA: "20.00", wantTTC: "120.01",
		},
		{
			name:     "percentage discount before flat",
			quantite: "1", prix: "100.00", taux: "20.00",
			remise: Discount{Percentage: dec("10"), Flat: dec("5.00")},
			wantHT: "85.00", wantTVA: "17.00", wantTTC: "102.00",
		},
		{
			name:     "discount floors at zero",
			quantite: "1", prix: "10.00", taux: "20.00",
			remise: Discount{Flat: dec("50.00")},
			wantHT: "0.00", wantTVA: "0.00", wantTTC: "0.00",
		},
		{
			name:     "zero rate",
			quantite: "4", prix: "25.00", taux: "0",
			wantHT: "100.00", wantTVA: "0.00", wantTTC: "100.00",
		},
		{
			name:     "full percentage discount",
			quantite: "1", prix: "99.99", taux: "20.00",
			remise: Discount{Percentage: dec("100")},
			wantHT: "0.00", wantTVA: "0.00", wantTTC: "0.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeLine(dec(tt.quantite), dec(tt.prix), dec(tt.taux), tt.remise)
			require.NoError(t, err)
			assert.Equal(t, tt.wantHT, got.HT.StringFixed(2))
			assert.Equal(t, tt.wantTVA, got.TVA.StringFixed(2))
			assert.Equal(t, tt.wantTTC, got.TTC.StringFixed(2))
		})
	}
}

func TestComputeLineRejectsInvalidInputs(t *testing.T) {
	tests := []struct {
		name     string
		quantite string
		prix     string
		taux     string
		remise   Discount
	}{
		{name: "negative quantity", quantite: "-1", prix: "10", taux: "20"},
		{name: "negative price", quantite: "1", prix: "-10", taux: "20"},
		{name: "rate above 100", quantite: "1", prix: "10", taux: "120"},
		{name: "negative rate", quantite: "1", prix: "10", taux: "-5"},
		{name: "percentage above 100", quantite: "1", prix: "10", taux: "20", remise: Discount{Percentage: dec("101")}},
		{name: "negative flat discount", quantite: "1", prix: "10", taux: "20", remise: Discount{Flat: dec("-1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComputeLine(dec(tt.quantite), dec(tt.prix), dec(tt.taux), tt.remise)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

// Totals are sums of already-rounded lines, so a document of many
// awkwardly-priced lines still adds up to exactly what the lines display.
func TestSumLinesMatchesDisplayedAmounts(t *testing.T) {
	var lines []LineAmounts
	for i := 0; i < 100; i++ {
		l, err := ComputeLine(dec("1"), dec("0.015"), dec("20.00"), NoDiscount)
		require.NoError(t, err)
		lines = append(lines, l)
	}

	totals := SumLines(lines)
	// Each line rounds 0.015 to 0.02; the total is 100 * 0.02, not
	// round(100 * 0.015).
	assert.Equal(t, "2.00", totals.MontantHT.StringFixed(2))
	assert.Equal(t, totals.MontantTTC.StringFixed(2),
		totals.MontantHT.Add(totals.MontantTVA).StringFixed(2))
}

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "0.02", Round2(dec("0.015")).StringFixed(2))
	assert.Equal(t, "-0.02", Round2(dec("-0.015")).StringFixed(2))
	assert.Equal(t, "1.00", Round2(dec("1.004")).StringFixed(2))
}

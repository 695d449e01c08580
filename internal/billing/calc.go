package billing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Round2 rounds a monetary value to 2 decimals, half away from zero.
// This is the single rounding point of the whole billing core: every line
// amount is rounded here before storage, and document totals are sums of
// already-rounded line amounts.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Discount describes the rebate applied to one line. Percentage is applied
// on the gross amount first, then the flat amount is subtracted on top.
// The zero value means no discount.
type Discount struct {
	Percentage decimal.Decimal // 0..100
	Flat       decimal.Decimal // absolute amount, same currency as the line
}

// NoDiscount is the neutral Discount.
var NoDiscount = Discount{}

// LineAmounts holds the derived monetary amounts of a single line,
// each rounded to 2 decimals.
type LineAmounts struct {
	HT  decimal.Decimal // pre-tax, after discount
	TVA decimal.Decimal // tax on HT
	TTC decimal.Decimal // HT + TVA
}

// ComputeLine derives the HT/TVA/TTC amounts of a line from its quantity,
// unit price, tax rate (percentage, 0..100) and discount.
//
//	gross  = quantite * prixUnitaire
//	ht     = max(0, gross - gross*remise%/100 - remiseFlat)
//	tva    = ht * tauxTVA/100
//	ttc    = ht + tva
//
// A discount may bring the line to zero but never invert its sign.
func ComputeLine(quantite, prixUnitaire, tauxTVA decimal.Decimal, remise Discount) (LineAmounts, error) {
	switch {
	case quantite.IsNegative():
		return LineAmounts{}, fmt.Errorf("%w: quantite must not be negative, got %s", ErrValidation, quantite)
	case prixUnitaire.IsNegative():
		return LineAmounts{}, fmt.Errorf("%w: prix unitaire must not be negative, got %s", ErrValidation, prixUnitaire)
	case tauxTVA.IsNegative() || tauxTVA.GreaterThan(hundred):
		return LineAmounts{}, fmt.Errorf("%w: taux TVA must be within [0,100], got %s", ErrValidation, tauxTVA)
	case remise.Percentage.IsNegative() || remise.Percentage.GreaterThan(hundred):
		return LineAmounts{}, fmt.Errorf("%w: remise percentage must be within [0,100], got %s", ErrValidation, remise.Percentage)
	case remise.Flat.IsNegative():
		return LineAmounts{}, fmt.Errorf("%w: remise montant must not be negative, got %s", ErrValidation, remise.Flat)
	}

	gross := quantite.Mul(prixUnitaire)
	ht := gross.Sub(gross.Mul(remise.Percentage).Div(hundred)).Sub(remise.Flat)
	if ht.IsNegative() {
		ht = decimal.Zero
	}

	ht = Round2(ht)
	tva := Round2(ht.Mul(tauxTVA).Div(hundred))
	return LineAmounts{HT: ht, TVA: tva, TTC: ht.Add(tva)}, nil
}

// DocumentTotals aggregates line amounts at the document level.
type DocumentTotals struct {
	MontantHT  decimal.Decimal
	MontantTVA decimal.Decimal
	MontantTTC decimal.Decimal
}

// SumLines adds up already-rounded line amounts. Summing rounded amounts,
// instead of re-deriving totals from unit figures, keeps the document total
// equal to what the lines display no matter how many lines there are.
func SumLines(lines []LineAmounts) DocumentTotals {
	t := DocumentTotals{
		MontantHT:  decimal.Zero,
		MontantTVA: decimal.Zero,
		MontantTTC: decimal.Zero,
	}
	for _, l := range lines {
		t.MontantHT = t.MontantHT.Add(l.HT)
		t.MontantTVA = t.MontantTVA.Add(l.TVA)
		t.MontantTTC = t.MontantTTC.Add(l.TTC)
	}
	return t
}

package service

import (
	"fmt"
	"time"

	"billing-backend/internal/billing"
	"billing-backend/internal/model"

	"github.com/shopspring/decimal"
)

// LigneRequest carries one priced row. Decimal fields travel as strings,
// parsed with shopspring/decimal; empty optional fields fall back to their
// defaults.
type LigneRequest struct {
	Designation       string `json:"designation" binding:"required"`
	Description       string `json:"description"`
	Unite             string `json:"unite"`
	Categorie         string `json:"categorie"`
	Quantite          string `json:"quantite" binding:"required"`
	PrixUnitaireHT    string `json:"prix_unitaire_ht" binding:"required"`
	TauxTVA           string `json:"taux_tva"`
	RemisePourcentage string `json:"remise_pourcentage"`
	RemiseMontant     string `json:"remise_montant"`
}

type LigneResponse struct {
	ID                string `json:"id"`
	Ordre             int    `json:"ordre"`
	Designation       string `json:"designation"`
	Description       string `json:"description,omitempty"`
	Unite             string `json:"unite"`
	Categorie         string `json:"categorie,omitempty"`
	Quantite          string `json:"quantite"`
	PrixUnitaireHT    string `json:"prix_unitaire_ht"`
	TauxTVA           string `json:"taux_tva"`
	RemisePourcentage string `json:"remise_pourcentage"`
	RemiseMontant     string `json:"remise_montant"`
	MontantHT         string `json:"montant_ht"`
	MontantTVA        string `json:"montant_tva"`
	MontantTTC        string `json:"montant_ttc"`
}

// buildLigne parses a request into a Ligne with derived amounts. The
// document's default TVA rate applies when the line does not carry its own.
func buildLigne(req LigneRequest, ordre int, defaultTVA decimal.Decimal) (model.Ligne, error) {
	quantite, err := decimal.NewFromString(req.Quantite)
	if err != nil {
		return model.Ligne{}, fmt.Errorf("%w: invalid quantite %q", billing.ErrValidation, req.Quantite)
	}
	prix, err := decimal.NewFromString(req.PrixUnitaireHT)
	if err != nil {
		return model.Ligne{}, fmt.Errorf("%w: invalid prix_unitaire_ht %q", billing.ErrValidation, req.PrixUnitaireHT)
	}

	taux := defaultTVA
	if req.TauxTVA != "" {
		if taux, err = decimal.NewFromString(req.TauxTVA); err != nil {
			return model.Ligne{}, fmt.Errorf("%w: invalid taux_tva %q", billing.ErrValidation, req.TauxTVA)
		}
	}

	remise := billing.NoDiscount
	if req.RemisePourcentage != "" {
		if remise.Percentage, err = decimal.NewFromString(req.RemisePourcentage); err != nil {
			return model.Ligne{}, fmt.Errorf("%w: invalid remise_pourcentage %q", billing.ErrValidation, req.RemisePourcentage)
		}
	}
	if req.RemiseMontant != "" {
		if remise.Flat, err = decimal.NewFromString(req.RemiseMontant); err != nil {
			return model.Ligne{}, fmt.Errorf("%w: invalid remise_montant %q", billing.ErrValidation, req.RemiseMontant)
		}
	}

	amounts, err := billing.ComputeLine(quantite, prix, taux, remise)
	if err != nil {
		return model.Ligne{}, err
	}

	unite := req.Unite
	if unite == "" {
		unite = "unité"
	}

	return model.Ligne{
		Ordre:             ordre,
		Designation:       req.Designation,
		Description:       req.Description,
		Unite:             unite,
		Categorie:         req.Categorie,
		Quantite:          quantite,
		PrixUnitaireHT:    prix,
		TauxTVA:           taux,
		RemisePourcentage: remise.Percentage,
		RemiseMontant:     remise.Flat,
		MontantHT:         amounts.HT,
		MontantTVA:        amounts.TVA,
		MontantTTC:        amounts.TTC,
	}, nil
}

// totalsOf sums the stored, already-rounded line amounts.
func totalsOf(lignes []model.Ligne) billing.DocumentTotals {
	amounts := make([]billing.LineAmounts, 0, len(lignes))
	for _, l := range lignes {
		amounts = append(amounts, billing.LineAmounts{HT: l.MontantHT, TVA: l.MontantTVA, TTC: l.MontantTTC})
	}
	return billing.SumLines(amounts)
}

func toLigneResponse(l model.Ligne) LigneResponse {
	return LigneResponse{
		ID:                l.ID.String(),
		Ordre:             l.Ordre,
		Designation:       l.Designation,
		Description:       l.Description,
		Unite:             l.Unite,
		Categorie:         l.Categorie,
		Quantite:          l.Quantite.StringFixed(2),
		PrixUnitaireHT:    l.PrixUnitaireHT.StringFixed(2),
		TauxTVA:           l.TauxTVA.StringFixed(2),
		RemisePourcentage: l.RemisePourcentage.StringFixed(2),
		RemiseMontant:     l.RemiseMontant.StringFixed(2),
		MontantHT:         l.MontantHT.StringFixed(2),
		MontantTVA:        l.MontantTVA.StringFixed(2),
		MontantTTC:        l.MontantTTC.StringFixed(2),
	}
}

func formatDate(t time.Time) string { return t.Format("2006-01-02") }

func formatDatePtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(time.RFC3339)
	return &s
}

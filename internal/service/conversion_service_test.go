package service

import (
	"context"
	"testing"

	"billing-backend/internal/billing"
	"billing-backend/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func acceptedDevis(t *testing.T, env *testEnv) DevisDetail {
	t.Helper()
	devis := newSentDevis(t, env)
	accepted, err := env.devis.Accept(context.Background(), devis.ID, AcceptDevisRequest{}, env.userID)
	require.NoError(t, err)
	devis.DevisResponse = accepted
	return devis
}

func TestConvertAcceptedDevis(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := acceptedDevis(t, env)

	facture, err := env.conversion.Convert(ctx, devis.ID, env.userID)
	require.NoError(t, err)

	assert.Equal(t, "F-2026-001", facture.Numero)
	assert.Equal(t, "brouillon", facture.Status)
	require.NotNil(t, facture.DevisID)
	assert.Equal(t, devis.ID, *facture.DevisID)
	assert.Equal(t, devis.MontantHT, facture.MontantHT)
	assert.Equal(t, devis.MontantTVA, facture.MontantTVA)
	assert.Equal(t, devis.MontantTTC, facture.MontantTTC)
	assert.Equal(t, facture.MontantTTC, facture.MontantRestant)
	assert.Equal(t, "2026-04-13", facture.DateEcheance)
	assert.Equal(t, string(devis.ClientInfo), string(facture.ClientInfo))

	require.Len(t, facture.Lignes, 1)
	assert.Equal(t, "Dépose tuiles", facture.Lignes[0].Designation)
	assert.NotEqual(t, devis.Lignes[0].ID, facture.Lignes[0].ID)

	converted, err := env.devis.Get(ctx, devis.ID)
	require.NoError(t, err)
	require.NotNil(t, converted.FactureID)
	assert.Equal(t, facture.ID, *converted.FactureID)
	assert.NotNil(t, converted.ConvertedAt)
}

func TestConvertIsOnceOnly(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := acceptedDevis(t, env)

	first, err := env.conversion.Convert(ctx, devis.ID, env.userID)
	require.NoError(t, err)

	_, err = env.conversion.Convert(ctx, devis.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	// The latch keeps pointing at the first facture.
	got, err := env.devis.Get(ctx, devis.ID)
	require.NoError(t, err)
	require.NotNil(t, got.FactureID)
	assert.Equal(t, first.ID, *got.FactureID)
}

func TestConvertRequiresAcceptedDevis(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, build := range []func() string{
		func() string {
			draft, err := env.devis.Create(ctx, CreateDevisRequest{
				ChantierID: env.chantierID,
				Titre:      "Brouillon",
				Lignes:     []LigneRequest{testLigne("Essai", "1", "10.00")},
			}, env.userID)
			require.NoError(t, err)
			return draft.ID
		},
		func() string { return newSentDevis(t, env).ID },
	} {
		_, err := env.conversion.Convert(ctx, build(), env.userID)
		assert.ErrorIs(t, err, billing.ErrInvalidTransition)
	}
}

func TestConvertDetectsTamperedTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := acceptedDevis(t, env)

	// Stored totals that disagree with the lignes must block conversion.
	err := env.db.Model(&model.Devis{}).
		Where("id = ?", devis.ID).
		Update("montant_ttc", decimal.RequireFromString("999.99")).Error
	require.NoError(t, err)

	_, err = env.conversion.Convert(ctx, devis.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrIntegrity)

	var factures int64
	require.NoError(t, env.db.Model(&model.Facture{}).Count(&factures).Error)
	assert.EqualValues(t, 0, factures)

	got, err := env.devis.Get(ctx, devis.ID)
	require.NoError(t, err)
	assert.Nil(t, got.FactureID)
}

func TestConvertedFactureGetsOwnNumberSequence(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		devis := acceptedDevis(t, env)
		facture, err := env.conversion.Convert(ctx, devis.ID, env.userID)
		require.NoError(t, err)
		if i == 1 {
			assert.Equal(t, "DEV-2026-002", devis.Numero)
			assert.Equal(t, "F-2026-002", facture.Numero)
		}
	}
}

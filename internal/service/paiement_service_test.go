package service

import (
	"context"
	"testing"

	"billing-backend/internal/billing"
	"billing-backend/internal/config"
	"billing-backend/internal/repository"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paiementOf(montant string) RecordPaiementRequest {
	return RecordPaiementRequest{
		Montant:      montant,
		DatePaiement: "2026-03-20",
		ModePaiement: "virement",
	}
}

func TestRecordPaiementSettlesFacture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)
	require.Equal(t, "1200.00", facture.MontantTTC)

	paiement, err := env.paiements.Record(ctx, facture.ID, paiementOf("1200.00"), env.userID)
	require.NoError(t, err)
	assert.Equal(t, "valide", paiement.Status)
	require.NotNil(t, paiement.ValideAt)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "payee", got.Status)
	assert.Equal(t, "1200.00", got.MontantPaye)
	assert.Equal(t, "0.00", got.MontantRestant)
	require.NotNil(t, got.DatePaiementComplet)
}

func TestPartialPaiementThenOverpaymentRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	_, err := env.paiements.Record(ctx, facture.ID, paiementOf("500.00"), env.userID)
	require.NoError(t, err)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "payee_partiel", got.Status)
	assert.Equal(t, "700.00", got.MontantRestant)

	_, err = env.paiements.Record(ctx, facture.ID, paiementOf("800.00"), env.userID)
	assert.ErrorIs(t, err, billing.ErrOverpayment)

	// The rejected attempt must not leak into the ledger.
	got, err = env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", got.MontantPaye)
	assert.Equal(t, "payee_partiel", got.Status)

	paiements, err := env.paiements.List(ctx, facture.ID)
	require.NoError(t, err)
	assert.Len(t, paiements, 1)
}

func TestCorrectiveNegativePaiement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	_, err := env.paiements.Record(ctx, facture.ID, paiementOf("1200.00"), env.userID)
	require.NoError(t, err)

	corrective := paiementOf("-200.00")
	corrective.Commentaire = "Trop-perçu remboursé au client"
	_, err = env.paiements.Record(ctx, facture.ID, corrective, env.userID)
	require.NoError(t, err)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "1000.00", got.MontantPaye)
	assert.Equal(t, "200.00", got.MontantRestant)
	assert.Equal(t, "payee_partiel", got.Status)
	assert.Nil(t, got.DatePaiementComplet)
}

func TestZeroPaiementRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	_, err := env.paiements.Record(ctx, facture.ID, paiementOf("0.00"), env.userID)
	assert.ErrorIs(t, err, billing.ErrValidation)
}

func TestPaiementValidationWorkflow(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Billing) { cfg.AutoValidatePayments = false })
	ctx := context.Background()
	facture := newSentFacture(t, env)

	pending, err := env.paiements.Record(ctx, facture.ID, paiementOf("1200.00"), env.userID)
	require.NoError(t, err)
	assert.Equal(t, "en_attente", pending.Status)
	assert.Nil(t, pending.ValideAt)

	// Pending entries do not touch the ledger.
	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.MontantPaye)
	assert.Equal(t, "envoyee", got.Status)

	validated, err := env.paiements.Validate(ctx, pending.ID, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "valide", validated.Status)

	got, err = env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "payee", got.Status)

	// Only pending entries validate.
	_, err = env.paiements.Validate(ctx, pending.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestValidatePaiementChecksOverpayment(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Billing) { cfg.AutoValidatePayments = false })
	ctx := context.Background()
	facture := newSentFacture(t, env)

	first, err := env.paiements.Record(ctx, facture.ID, paiementOf("1000.00"), env.userID)
	require.NoError(t, err)
	second, err := env.paiements.Record(ctx, facture.ID, paiementOf("500.00"), env.userID)
	require.NoError(t, err)

	_, err = env.paiements.Validate(ctx, first.ID, env.userID)
	require.NoError(t, err)

	// 1000 already settled, 500 more would exceed the 1200.00 TTC.
	_, err = env.paiements.Validate(ctx, second.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrOverpayment)

	rejected, err := env.paiements.Reject(ctx, second.ID, env.userID, "Montant erroné")
	require.NoError(t, err)
	assert.Equal(t, "rejete", rejected.Status)
	assert.Equal(t, "Montant erroné", rejected.Commentaire)
}

// racingPaiementRepo applies the transition once itself before delegating,
// like a second operator validating the same entry first.
type racingPaiementRepo struct {
	repository.PaiementRepository
	raced bool
}

func (r *racingPaiementRepo) TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error) {
	if !r.raced {
		r.raced = true
		if _, err := r.PaiementRepository.TransitionStatus(ctx, id, expected, fields); err != nil {
			return 0, err
		}
	}
	return r.PaiementRepository.TransitionStatus(ctx, id, expected, fields)
}

func TestValidatePaiementDetectsConcurrentValidation(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Billing) { cfg.AutoValidatePayments = false })
	ctx := context.Background()
	facture := newSentFacture(t, env)

	pending, err := env.paiements.Record(ctx, facture.ID, paiementOf("100.00"), env.userID)
	require.NoError(t, err)

	svc := env.paiements.(*paiementService)
	svc.paiementRepo = &racingPaiementRepo{PaiementRepository: svc.paiementRepo}

	_, err = env.paiements.Validate(ctx, pending.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrConcurrentModification)

	// The whole transaction rolls back, including the raced update.
	paiements, err := env.paiements.List(ctx, facture.ID)
	require.NoError(t, err)
	require.Len(t, paiements, 1)
	assert.Equal(t, "en_attente", paiements[0].Status)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", got.MontantPaye)
}

func TestDeletePaiement(t *testing.T) {
	env := newTestEnvWith(t, func(cfg *config.Billing) { cfg.AutoValidatePayments = false })
	ctx := context.Background()
	facture := newSentFacture(t, env)

	pending, err := env.paiements.Record(ctx, facture.ID, paiementOf("100.00"), env.userID)
	require.NoError(t, err)
	require.NoError(t, env.paiements.Delete(ctx, pending.ID, env.userID))

	validated, err := env.paiements.Record(ctx, facture.ID, paiementOf("100.00"), env.userID)
	require.NoError(t, err)
	_, err = env.paiements.Validate(ctx, validated.ID, env.userID)
	require.NoError(t, err)

	err = env.paiements.Delete(ctx, validated.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

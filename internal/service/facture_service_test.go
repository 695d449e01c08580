package service

import (
	"context"
	"testing"
	"time"

	"billing-backend/internal/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateFactureSetsEcheanceAndRestant(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	facture, err := env.factures.Create(ctx, CreateFactureRequest{
		ChantierID: env.chantierID,
		Titre:      "Facture acompte",
		Lignes:     []LigneRequest{testLigne("Acompte 30%", "1", "450.00")},
	}, env.userID)
	require.NoError(t, err)

	assert.Equal(t, "F-2026-001", facture.Numero)
	assert.Equal(t, "brouillon", facture.Status)
	assert.Equal(t, 30, facture.DelaiPaiement)
	assert.Equal(t, "2026-03-14", facture.DateEmission)
	assert.Equal(t, "2026-04-13", facture.DateEcheance)
	assert.Equal(t, "540.00", facture.MontantTTC)
	assert.Equal(t, "0.00", facture.MontantPaye)
	assert.Equal(t, "540.00", facture.MontantRestant)
	assert.Nil(t, facture.DevisID)
}

func TestRefreshOverdueKeepsDueDayOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	// Partway through the due day the facture is not yet late.
	env.advanceDays(30)
	env.advance(4 * time.Hour)

	n, err := env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "envoyee", got.Status)

	env.advanceDays(1)
	n, err = env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestRefreshOverdueSweepIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	env.advanceDays(31)

	n, err := env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := env.factures.Get(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, "en_retard", got.Status)

	n, err = env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestUpdateDueDateReprojectsStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	env.advanceDays(31)
	_, err := env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)

	// Granting a delay pulls the facture back out of en_retard.
	updated, err := env.factures.UpdateDueDate(ctx, facture.ID, "2026-06-30")
	require.NoError(t, err)
	assert.Equal(t, "envoyee", updated.Status)
	assert.Equal(t, "2026-06-30", updated.DateEcheance)
}

func TestPenaltiesOnOverdueFacture(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	env.advanceDays(30 + 73)

	p, err := env.factures.Penalties(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, 73, p.DaysLate)
	assert.Equal(t, "1200.00", p.MontantRestant)
	// 1200 x 10% x 73/365
	assert.Equal(t, "24.00", p.PenaltyAmount)
	assert.Equal(t, "40.00", p.FixedIndemnity)
	assert.Equal(t, "64.00", p.Total)
	assert.Equal(t, "mise_en_demeure", p.ReminderLevel)
}

func TestPenaltiesZeroBeforeDue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	p, err := env.factures.Penalties(ctx, facture.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, p.DaysLate)
	assert.Equal(t, "0.00", p.PenaltyAmount)
	assert.Equal(t, "0.00", p.FixedIndemnity)
	assert.Equal(t, "aucune", p.ReminderLevel)
}

func TestRecordRelanceOnlyWhenOverdue(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	_, err := env.factures.RecordRelance(ctx, facture.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	env.advanceDays(31)
	_, err = env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)

	updated, err := env.factures.RecordRelance(ctx, facture.ID, env.userID)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.NbRelances)
	require.NotNil(t, updated.DerniereRelance)
}

func TestCancelFactureBlockedByValidePaiement(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	cancelled, err := env.factures.Cancel(ctx, facture.ID, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "annulee", cancelled.Status)

	paid := newSentFacture(t, env)
	_, err = env.paiements.Record(ctx, paid.ID, paiementOf("100.00"), env.userID)
	require.NoError(t, err)

	_, err = env.factures.Cancel(ctx, paid.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestPaiementOnAnnuleeFactureRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	_, err := env.factures.Cancel(ctx, facture.ID, env.userID)
	require.NoError(t, err)

	_, err = env.paiements.Record(ctx, facture.ID, paiementOf("100.00"), env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestStatisticsBucketsByStatusAndAge(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	settled := newSentFacture(t, env)
	_, err := env.paiements.Record(ctx, settled.ID, paiementOf("1200.00"), env.userID)
	require.NoError(t, err)

	newSentFacture(t, env)
	env.advanceDays(50)
	_, err = env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)

	stats, err := env.factures.Statistics(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, stats.ByStatus["payee"].Count)
	assert.Equal(t, "0.00", stats.ByStatus["payee"].MontantRestant)
	assert.Equal(t, 1, stats.ByStatus["en_retard"].Count)
	assert.Equal(t, "1200.00", stats.ByStatus["en_retard"].MontantRestant)

	// Due 30 days after emission, swept 20 days past that.
	assert.Equal(t, 1, stats.Overdue.Under30.Count)
	assert.Equal(t, "1200.00", stats.Overdue.Under30.MontantRestant)
	assert.Equal(t, 0, stats.Overdue.Under15.Count)
	assert.Equal(t, "1200.00", stats.Overdue.TotalDue)
}

func TestStatisticsAgingCountsCivilDays(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	newSentFacture(t, env)

	// 15 civil days past due, at an earlier hour than the due timestamp.
	// The bucket boundary must not shift with the time of day.
	env.advanceDays(30 + 15)
	env.advance(-2 * time.Hour)

	_, err := env.factures.RefreshOverdue(ctx)
	require.NoError(t, err)

	stats, err := env.factures.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Overdue.Under15.Count)
	assert.Equal(t, 1, stats.Overdue.Under30.Count)
}

func TestSentFactureEditsLimited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	facture := newSentFacture(t, env)

	conditions := "Paiement à 45 jours fin de mois"
	updated, err := env.factures.Update(ctx, facture.ID, UpdateFactureRequest{ConditionsReglement: &conditions})
	require.NoError(t, err)
	assert.Equal(t, conditions, updated.ConditionsReglement)

	titre := "Titre modifié"
	_, err = env.factures.Update(ctx, facture.ID, UpdateFactureRequest{Titre: &titre})
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	_, err = env.factures.AddLigne(ctx, facture.ID, testLigne("Supplément", "1", "10.00"))
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

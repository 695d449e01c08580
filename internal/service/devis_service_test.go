package service

import (
	"context"
	"testing"
	"time"

	"billing-backend/internal/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateDevisAssignsNumeroAndTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	devis, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Réfection couverture",
		Lignes: []LigneRequest{
			testLigne("Dépose tuiles", "10", "100.00"),
			testLigne("Pose écran sous-toiture", "3", "33.335"),
		},
	}, env.userID)
	require.NoError(t, err)

	assert.Equal(t, "DEV-2026-001", devis.Numero)
	assert.Equal(t, "brouillon", devis.Status)
	assert.Equal(t, "20.00", devis.TauxTVA)
	assert.Equal(t, "2026-03-14", devis.DateEmission)
	assert.Equal(t, "2026-04-13", devis.DateValidite)

	// 1000.00 + 100.01 per-line rounding, then 20% TVA on the rounded sums.
	assert.Equal(t, "1100.01", devis.MontantHT)
	assert.Equal(t, "220.00", devis.MontantTVA)
	assert.Equal(t, "1320.01", devis.MontantTTC)
	require.Len(t, devis.Lignes, 2)
	assert.Equal(t, 1, devis.Lignes[0].Ordre)
	assert.Equal(t, 2, devis.Lignes[1].Ordre)

	assert.Contains(t, string(devis.ClientInfo), "SCI Les Tilleuls")

	second, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Devis complémentaire",
	}, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "DEV-2026-002", second.Numero)
}

func TestSendDevisRequiresLignes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	devis, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Devis vide",
	}, env.userID)
	require.NoError(t, err)

	_, err = env.devis.Send(ctx, devis.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	got, err := env.devis.Get(ctx, devis.ID)
	require.NoError(t, err)
	assert.Equal(t, "brouillon", got.Status)
}

func TestAcceptDevisRecordsSignature(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	accepted, err := env.devis.Accept(ctx, devis.ID, AcceptDevisRequest{
		SignatureClient: "ZGF0YQ==",
		SignatureIP:     "203.0.113.7",
	}, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "accepte", accepted.Status)
	require.NotNil(t, accepted.DateReponse)
	require.NotNil(t, accepted.SignedAt)

	// A decided devis stays decided.
	_, err = env.devis.Refuse(ctx, devis.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestAcceptExpiredDevisFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	env.advanceDays(31)

	_, err := env.devis.Accept(ctx, devis.ID, AcceptDevisRequest{}, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestAcceptOnValidityDaySucceeds(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	env.advanceDays(30)

	accepted, err := env.devis.Accept(ctx, devis.ID, AcceptDevisRequest{}, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "accepte", accepted.Status)
}

func TestExpireStaleKeepsValidityDayOpen(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	// Partway through the validity day: the sweep must not touch it and
	// the client can still accept.
	env.advanceDays(30)
	env.advance(4 * time.Hour)

	n, err := env.devis.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	accepted, err := env.devis.Accept(ctx, devis.ID, AcceptDevisRequest{}, env.userID)
	require.NoError(t, err)
	assert.Equal(t, "accepte", accepted.Status)
}

func TestExpireStaleSweepIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	env.advanceDays(31)

	n, err := env.devis.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := env.devis.Get(ctx, devis.ID)
	require.NoError(t, err)
	assert.Equal(t, "expire", got.Status)

	n, err = env.devis.ExpireStale(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)
}

func TestUpdateLigneRecomputesTotals(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	devis, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Devis maçonnerie",
		Lignes:     []LigneRequest{testLigne("Mur parpaing", "10", "100.00")},
	}, env.userID)
	require.NoError(t, err)
	require.Equal(t, "1200.00", devis.MontantTTC)

	ligne := testLigne("Mur parpaing", "10", "100.00")
	ligne.RemisePourcentage = "10"
	updated, err := env.devis.UpdateLigne(ctx, devis.ID, devis.Lignes[0].ID, ligne)
	require.NoError(t, err)
	assert.Equal(t, "900.00", updated.MontantHT)
	assert.Equal(t, "1080.00", updated.MontantTTC)

	removed, err := env.devis.RemoveLigne(ctx, devis.ID, devis.Lignes[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "0.00", removed.MontantTTC)
	assert.Empty(t, removed.Lignes)
}

func TestEditSentDevisLimitedToNotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	notes := "Relancer le client la semaine prochaine"
	updated, err := env.devis.Update(ctx, devis.ID, UpdateDevisRequest{NotesInternes: &notes})
	require.NoError(t, err)
	assert.Equal(t, notes, updated.NotesInternes)

	titre := "Nouveau titre"
	_, err = env.devis.Update(ctx, devis.ID, UpdateDevisRequest{Titre: &titre})
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)

	_, err = env.devis.AddLigne(ctx, devis.ID, testLigne("Ligne tardive", "1", "50.00"))
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

func TestDuplicateDevisResetsLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	devis := newSentDevis(t, env)

	dup, err := env.devis.Duplicate(ctx, devis.ID, env.userID)
	require.NoError(t, err)
	assert.NotEqual(t, devis.ID, dup.ID)
	assert.Equal(t, "DEV-2026-002", dup.Numero)
	assert.Equal(t, "brouillon", dup.Status)
	assert.Nil(t, dup.DateEnvoi)
	assert.Equal(t, devis.MontantTTC, dup.MontantTTC)
	require.Len(t, dup.Lignes, 1)
	assert.Equal(t, "Dépose tuiles", dup.Lignes[0].Designation)
}

func TestTransitionDetectsConcurrentStatusChange(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	sent := newSentDevis(t, env)

	svc := env.devis.(*devisService)
	stale, err := svc.load(ctx, sent.ID)
	require.NoError(t, err)

	// Another actor refuses the devis after this one read it.
	_, err = env.devis.Refuse(ctx, sent.ID, env.userID)
	require.NoError(t, err)

	err = svc.transition(ctx, stale, billing.QuoteStatusEnvoye, map[string]interface{}{
		"status": billing.QuoteStatusAccepte,
	})
	assert.ErrorIs(t, err, billing.ErrConcurrentModification)

	got, err := env.devis.Get(ctx, sent.ID)
	require.NoError(t, err)
	assert.Equal(t, "refuse", got.Status)
}

func TestDeleteDevisOnlyInBrouillon(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	draft, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Brouillon jetable",
		Lignes:     []LigneRequest{testLigne("Essai", "1", "10.00")},
	}, env.userID)
	require.NoError(t, err)
	require.NoError(t, env.devis.Delete(ctx, draft.ID, env.userID))

	_, err = env.devis.Get(ctx, draft.ID)
	assert.Error(t, err)

	sent := newSentDevis(t, env)
	err = env.devis.Delete(ctx, sent.ID, env.userID)
	assert.ErrorIs(t, err, billing.ErrInvalidTransition)
}

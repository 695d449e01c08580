package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"billing-backend/internal/billing"
	"billing-backend/internal/config"
	"billing-backend/internal/model"
	"billing-backend/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var testDBSeq int64

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := fmt.Sprintf("file:billing_test_%d?mode=memory&cache=shared", atomic.AddInt64(&testDBSeq, 1))
	db, err := gorm.Open(sqlite.Open(name), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.User{},
		&model.Chantier{},
		&model.Devis{},
		&model.Facture{},
		&model.Ligne{},
		&model.Paiement{},
		&model.AuditLog{},
	))
	return db
}

func testConfig() config.Billing {
	return config.Billing{
		DevisNumbering:       billing.NumberFormat{Prefix: "DEV", Format: "DEV-{YYYY}-{NNN}", AnnualReset: true},
		FactureNumbering:     billing.NumberFormat{Prefix: "F", Format: "F-{YYYY}-{NNN}", AnnualReset: true},
		DefaultTauxTVA:       decimal.RequireFromString("20.00"),
		ValiditeJours:        30,
		DelaiPaiementJours:   30,
		PenaltyAnnualRate:    decimal.RequireFromString("10.0"),
		FixedIndemnity:       decimal.RequireFromString("40.0"),
		Reminders:            billing.ReminderThresholds{Aimable: 15, Ferme: 30, MiseEnDemeure: 60},
		AutoValidatePayments: true,
	}
}

// testEnv wires the full service stack onto an in-memory database with a
// controllable clock.
type testEnv struct {
	db    *gorm.DB
	clock time.Time

	chantiers  ChantierService
	devis      DevisService
	factures   FactureService
	paiements  PaiementService
	conversion ConversionService

	userID     string
	chantierID string
}

func newTestEnv(t *testing.T) *testEnv {
	return newTestEnvWith(t, nil)
}

func newTestEnvWith(t *testing.T, tweak func(*config.Billing)) *testEnv {
	t.Helper()
	db := testDB(t)

	cfg := testConfig()
	if tweak != nil {
		tweak(&cfg)
	}

	env := &testEnv{
		db:    db,
		clock: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
	}
	now := func() time.Time { return env.clock }

	txManager := repository.NewTransactionManager(db)
	chantierRepo := repository.NewChantierRepository(db)
	devisRepo := repository.NewDevisRepository(db)
	factureRepo := repository.NewFactureRepository(db)
	ligneRepo := repository.NewLigneRepository(db)
	paiementRepo := repository.NewPaiementRepository(db)
	auditRepo := repository.NewAuditRepository(db)

	allocator := NewNumeroAllocator(cfg.DevisNumbering, cfg.FactureNumbering, devisRepo, factureRepo)

	env.chantiers = NewChantierService(chantierRepo)

	devisSvc := NewDevisService(devisRepo, ligneRepo, chantierRepo, txManager, allocator, cfg, nil, auditRepo).(*devisService)
	devisSvc.now = now
	env.devis = devisSvc

	factureSvc := NewFactureService(factureRepo, ligneRepo, paiementRepo, chantierRepo, txManager, allocator, cfg, nil, auditRepo).(*factureService)
	factureSvc.now = now
	env.factures = factureSvc

	paiementSvc := NewPaiementService(paiementRepo, factureRepo, txManager, cfg, nil, auditRepo).(*paiementService)
	paiementSvc.now = now
	env.paiements = paiementSvc

	conversionSvc := NewConversionService(devisRepo, factureRepo, ligneRepo, txManager, allocator, cfg, nil, auditRepo).(*conversionService)
	conversionSvc.now = now
	env.conversion = conversionSvc

	user := model.User{Username: "jdupont", Email: "j.dupont@example.fr", Password: "x", Role: model.RoleCommercial}
	require.NoError(t, db.Create(&user).Error)
	env.userID = user.ID.String()

	chantier, err := env.chantiers.Create(context.Background(), CreateChantierRequest{
		Nom:             "Rénovation toiture Lyon 3e",
		Adresse:         "12 rue Paul Bert, 69003 Lyon",
		ClientNom:       "SCI Les Tilleuls",
		ClientEmail:     "contact@tilleuls.fr",
		ClientTelephone: "0472000000",
	}, env.userID)
	require.NoError(t, err)
	env.chantierID = chantier.ID

	return env
}

func (e *testEnv) advance(d time.Duration) { e.clock = e.clock.Add(d) }

func (e *testEnv) advanceDays(n int) { e.clock = e.clock.AddDate(0, 0, n) }

func testLigne(designation, quantite, prix string) LigneRequest {
	return LigneRequest{
		Designation:    designation,
		Quantite:       quantite,
		PrixUnitaireHT: prix,
	}
}

// newSentDevis creates a devis with one 1000.00 HT ligne and sends it.
func newSentDevis(t *testing.T, env *testEnv) DevisDetail {
	t.Helper()
	ctx := context.Background()

	devis, err := env.devis.Create(ctx, CreateDevisRequest{
		ChantierID: env.chantierID,
		Titre:      "Réfection couverture",
		Lignes:     []LigneRequest{testLigne("Dépose tuiles", "10", "100.00")},
	}, env.userID)
	require.NoError(t, err)

	sent, err := env.devis.Send(ctx, devis.ID, env.userID)
	require.NoError(t, err)
	require.Equal(t, "envoye", sent.Status)

	devis.DevisResponse = sent
	return devis
}

// newSentFacture creates a facture with one 1000.00 HT ligne and sends it.
func newSentFacture(t *testing.T, env *testEnv) FactureDetail {
	t.Helper()
	ctx := context.Background()

	facture, err := env.factures.Create(ctx, CreateFactureRequest{
		ChantierID: env.chantierID,
		Titre:      "Facture travaux",
		Lignes:     []LigneRequest{testLigne("Travaux couverture", "10", "100.00")},
	}, env.userID)
	require.NoError(t, err)

	sent, err := env.factures.Send(ctx, facture.ID, env.userID)
	require.NoError(t, err)
	require.Equal(t, "envoyee", sent.Status)

	facture.FactureResponse = sent
	return facture
}

package config

import (
	"log"
	"os"
	"strconv"

	"billing-backend/internal/billing"

	"github.com/shopspring/decimal"
)

// Billing holds every tunable the billing core needs, resolved once at
// startup. Services receive this value; nothing below the handlers reads
// the environment directly.
type Billing struct {
	DevisNumbering   billing.NumberFormat
	FactureNumbering billing.NumberFormat

	DefaultTauxTVA     decimal.Decimal // percentage, e.g. 20.00
	ValiditeJours      int             // quote validity window
	DelaiPaiementJours int             // invoice payment term

	PenaltyAnnualRate decimal.Decimal // % per year on the remaining amount
	FixedIndemnity    decimal.Decimal // statutory recovery indemnity
	Reminders         billing.ReminderThresholds

	// AutoValidatePayments records payments directly as valide instead of
	// en_attente, matching the original single-operator workflow.
	AutoValidatePayments bool
}

// Server holds process-level settings.
type Server struct {
	Port        string
	DatabaseDSN string
	CORSOrigins []string
}

// Load resolves the billing configuration from the environment, falling
// back to the legal/commercial defaults of the original application:
// DEV-{YYYY}-{NNN} and F-{YYYY}-{NNN} numbering with annual reset, 30-day
// validity and payment terms, 20% TVA, 10%/yr penalties with a 40.00
// indemnity, reminders at 15/30/60 days past due.
func Load() Billing {
	cfg := Billing{
		DevisNumbering: billing.NumberFormat{
			Prefix:      envOr("DEVIS_PREFIX", "DEV"),
			Format:      envOr("DEVIS_NUMBER_FORMAT", "DEV-{YYYY}-{NNN}"),
			AnnualReset: envBool("DEVIS_NUMBER_ANNUAL_RESET", true),
		},
		FactureNumbering: billing.NumberFormat{
			Prefix:      envOr("FACTURE_PREFIX", "F"),
			Format:      envOr("FACTURE_NUMBER_FORMAT", "F-{YYYY}-{NNN}"),
			AnnualReset: envBool("FACTURE_NUMBER_ANNUAL_RESET", true),
		},
		DefaultTauxTVA:     envDecimal("DEFAULT_TAUX_TVA", "20.00"),
		ValiditeJours:      envInt("DEVIS_VALIDITE_JOURS", 30),
		DelaiPaiementJours: envInt("FACTURE_DELAI_PAIEMENT_JOURS", 30),
		PenaltyAnnualRate:  envDecimal("PENALTY_ANNUAL_RATE", "10.0"),
		FixedIndemnity:     envDecimal("PENALTY_FIXED_INDEMNITY", "40.0"),
		Reminders: billing.ReminderThresholds{
			Aimable:       envInt("RELANCE_AIMABLE_JOURS", 15),
			Ferme:         envInt("RELANCE_FERME_JOURS", 30),
			MiseEnDemeure: envInt("RELANCE_MISE_EN_DEMEURE_JOURS", 60),
		},
		AutoValidatePayments: envBool("PAYMENTS_AUTO_VALIDATE", true),
	}

	if err := cfg.DevisNumbering.Validate(); err != nil {
		log.Fatalf("Invalid devis numbering configuration: %v", err)
	}
	if err := cfg.FactureNumbering.Validate(); err != nil {
		log.Fatalf("Invalid facture numbering configuration: %v", err)
	}
	return cfg
}

// LoadServer resolves process settings, building the Postgres DSN the same
// way the deployment scripts export it.
func LoadServer() Server {
	dsn := "postgres://" + envOr("DB_USER", "postgres") +
		":" + envOr("DB_PASSWORD", "postgres") +
		"@" + envOr("DB_HOST", "localhost") +
		":" + envOr("DB_PORT", "5432") +
		"/" + envOr("DB_NAME", "postgres") +
		"?sslmode=" + envOr("DB_SSLMODE", "disable")

	return Server{
		Port:        envOr("PORT", "8080"),
		DatabaseDSN: dsn,
		CORSOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDecimal(key, fallback string) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		if d, err := decimal.NewFromString(v); err == nil {
			return d
		}
	}
	d, _ := decimal.NewFromString(fallback)
	return d
}

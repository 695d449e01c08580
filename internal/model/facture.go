package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Facture is a billable document tracked against its payment ledger until
// fully paid. montant_paye always equals the sum of valide paiements;
// montant_restant = montant_ttc - montant_paye and never goes negative.
type Facture struct {
	ID           uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	Numero       string     `gorm:"type:varchar(30);uniqueIndex;not null" json:"numero"`
	ChantierID   uuid.UUID  `gorm:"type:uuid;not null;index" json:"chantier_id"`
	Chantier     *Chantier  `gorm:"foreignKey:ChantierID" json:"chantier,omitempty"`
	CommercialID uuid.UUID  `gorm:"type:uuid;not null;index" json:"commercial_id"`
	DevisID      *uuid.UUID `gorm:"type:uuid;index" json:"devis_id"`

	Titre       string `gorm:"type:varchar(255);not null" json:"titre"`
	Description string `gorm:"type:text" json:"description"`

	Status string `gorm:"type:varchar(20);not null;default:'brouillon';index" json:"statut"`

	ClientInfo string `gorm:"type:jsonb" json:"client_info"`

	DateEmission time.Time  `gorm:"type:date;not null" json:"date_emission"`
	DateEcheance time.Time  `gorm:"type:date;not null;index" json:"date_echeance"`
	DateEnvoi    *time.Time `json:"date_envoi"`

	MontantHT  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_ht"`
	MontantTVA decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_tva"`
	MontantTTC decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_ttc"`
	TauxTVA    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"taux_tva"`

	MontantPaye         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_paye"`
	MontantRestant      decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_restant"`
	DatePaiementComplet *time.Time      `json:"date_paiement_complet"`

	ConditionsReglement string `gorm:"type:text" json:"conditions_reglement,omitempty"`
	DelaiPaiement       int    `gorm:"not null;default:30" json:"delai_paiement"`

	NbRelances      int        `gorm:"not null;default:0" json:"nb_relances"`
	DerniereRelance *time.Time `json:"derniere_relance"`

	NotesInternes string `gorm:"type:text" json:"notes_internes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Facture) TableName() string { return "factures" }

func (f *Facture) BeforeCreate(tx *gorm.DB) error {
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	return nil
}

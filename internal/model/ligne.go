package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Owner kinds for the polymorphic ligne attachment.
const (
	OwnerDevis   = "devis"
	OwnerFacture = "facture"
)

// Ligne is one priced row belonging to either a devis or a facture
// (polymorphic owner, never both). Amounts are derived by the calculator
// and stored rounded; they are only rewritten while the owning document is
// a draft.
type Ligne struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerType string    `gorm:"type:varchar(10);not null;index:idx_lignes_owner" json:"owner_type"`
	OwnerID   uuid.UUID `gorm:"type:uuid;not null;index:idx_lignes_owner" json:"owner_id"`

	Ordre       int    `gorm:"not null;default:0" json:"ordre"`
	Designation string `gorm:"type:varchar(255);not null" json:"designation"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Unite       string `gorm:"type:varchar(20);not null;default:'unité'" json:"unite"`
	Categorie   string `gorm:"type:varchar(50)" json:"categorie,omitempty"`

	Quantite       decimal.Decimal `gorm:"type:decimal(10,2);not null;default:1" json:"quantite"`
	PrixUnitaireHT decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"prix_unitaire_ht"`
	TauxTVA        decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"taux_tva"`

	RemisePourcentage decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0" json:"remise_pourcentage"`
	RemiseMontant     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"remise_montant"`

	MontantHT  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"montant_ht"`
	MontantTVA decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"montant_tva"`
	MontantTTC decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"montant_ttc"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Ligne) TableName() string { return "lignes" }

func (l *Ligne) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

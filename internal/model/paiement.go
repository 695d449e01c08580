package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Paiement is one ledger entry against a facture. Only valide entries
// contribute to montant_paye. A valide entry is immutable: a mistake is
// reconciled with a corrective entry, never by editing the original.
type Paiement struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	FactureID uuid.UUID `gorm:"type:uuid;not null;index" json:"facture_id"`
	Facture   *Facture  `gorm:"foreignKey:FactureID" json:"-"`

	Montant      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"montant"`
	DatePaiement time.Time       `gorm:"type:date;not null;index" json:"date_paiement"`
	ModePaiement string          `gorm:"type:varchar(20);not null;index" json:"mode_paiement"`

	ReferencePaiement string `gorm:"type:varchar(100)" json:"reference_paiement,omitempty"`
	Banque            string `gorm:"type:varchar(100)" json:"banque,omitempty"`

	Status      string `gorm:"type:varchar(20);not null;default:'en_attente';index" json:"statut"`
	Commentaire string `gorm:"type:text" json:"commentaire,omitempty"`

	SaisiPar uuid.UUID  `gorm:"type:uuid;not null" json:"saisi_par"`
	ValideAt *time.Time `json:"valide_at"`

	JustificatifPath string `gorm:"type:varchar(255)" json:"justificatif_path,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Paiement) TableName() string { return "paiements" }

func (p *Paiement) BeforeCreate(tx *gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Devis is a priced proposal attached to a chantier, awaiting a client
// response. client_info freezes the client identity at the time of sending;
// once a facture is linked the devis can no longer be edited or deleted.
type Devis struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Numero       string    `gorm:"type:varchar(30);uniqueIndex;not null" json:"numero"`
	ChantierID   uuid.UUID `gorm:"type:uuid;not null;index" json:"chantier_id"`
	Chantier     *Chantier `gorm:"foreignKey:ChantierID" json:"chantier,omitempty"`
	CommercialID uuid.UUID `gorm:"type:uuid;not null;index" json:"commercial_id"`

	Titre       string `gorm:"type:varchar(255);not null" json:"titre"`
	Description string `gorm:"type:text" json:"description"`

	Status string `gorm:"type:varchar(20);not null;default:'brouillon';index" json:"statut"`

	// Snapshot of the client identity, serialized ClientInfo JSON.
	ClientInfo string `gorm:"type:jsonb" json:"client_info"`

	DateEmission time.Time  `gorm:"type:date;not null" json:"date_emission"`
	DateValidite time.Time  `gorm:"type:date;not null" json:"date_validite"`
	DateEnvoi    *time.Time `json:"date_envoi"`
	DateReponse  *time.Time `json:"date_reponse"`

	MontantHT  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_ht"`
	MontantTVA decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_tva"`
	MontantTTC decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0" json:"montant_ttc"`
	TauxTVA    decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"taux_tva"`

	// Electronic signature captured on acceptance.
	SignatureClient string     `gorm:"type:text" json:"signature_client,omitempty"`
	SignedAt        *time.Time `json:"signed_at"`
	SignatureIP     string     `gorm:"type:varchar(45)" json:"signature_ip,omitempty"`

	// Conversion link; set exactly once.
	FactureID   *uuid.UUID `gorm:"type:uuid;index" json:"facture_id"`
	ConvertedAt *time.Time `json:"converted_at"`

	NotesInternes string `gorm:"type:text" json:"notes_internes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Devis) TableName() string { return "devis" }

func (d *Devis) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ClientInfo is the snapshot stored on devis and factures. Taken from the
// chantier when the document is created or sent, never refreshed afterwards.
type ClientInfo struct {
	Nom       string `json:"nom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`
}

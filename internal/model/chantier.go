package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chantier is the project a devis or facture is billed against, carrying
// the client identity that gets snapshotted onto documents.
type Chantier struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Nom          string    `gorm:"type:varchar(255);not null" json:"nom"`
	Adresse      string    `gorm:"type:text" json:"adresse"`
	CommercialID uuid.UUID `gorm:"type:uuid;not null;index" json:"commercial_id"`

	ClientNom       string `gorm:"type:varchar(255);not null" json:"client_nom"`
	ClientEmail     string `gorm:"type:varchar(255)" json:"client_email"`
	ClientTelephone string `gorm:"type:varchar(20)" json:"client_telephone"`
	ClientAdresse   string `gorm:"type:text" json:"client_adresse"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (c *Chantier) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Client returns the snapshot taken when a document is created or sent.
func (c *Chantier) Client() ClientInfo {
	return ClientInfo{
		Nom:       c.ClientNom,
		Email:     c.ClientEmail,
		Telephone: c.ClientTelephone,
		Adresse:   c.ClientAdresse,
	}
}

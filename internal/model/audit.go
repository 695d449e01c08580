package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Audited billing actions.
const (
	ActionCreateDevis    = "CREATE_DEVIS"
	ActionSendDevis      = "SEND_DEVIS"
	ActionAcceptDevis    = "ACCEPT_DEVIS"
	ActionRefuseDevis    = "REFUSE_DEVIS"
	ActionDeleteDevis    = "DELETE_DEVIS"
	ActionConvertDevis   = "CONVERT_DEVIS"
	ActionCreateFacture  = "CREATE_FACTURE"
	ActionSendFacture    = "SEND_FACTURE"
	ActionCancelFacture  = "CANCEL_FACTURE"
	ActionRelanceFacture = "RELANCE_FACTURE"
	ActionRecordPaiement = "RECORD_PAIEMENT"
	ActionValidePaiement = "VALIDE_PAIEMENT"
	ActionRejetePaiement = "REJETE_PAIEMENT"
	ActionDeletePaiement = "DELETE_PAIEMENT"
)

// AuditLog tracks who did what and when on billing documents. Written
// best-effort: a failed audit insert never fails the business operation.
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"`
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

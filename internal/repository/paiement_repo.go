package repository

import (
	"context"

	"billing-backend/internal/billing"
	"billing-backend/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type PaiementRepository interface {
	Create(ctx context.Context, paiement *model.Paiement) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Paiement, error)
	ListByFacture(ctx context.Context, factureID uuid.UUID) ([]model.Paiement, error)
	// TransitionStatus moves a paiement out of en_attente with an
	// optimistic check on the current status.
	TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// SumValide totals the valide entries of a facture's ledger; this sum
	// is the only source of montant_paye.
	SumValide(ctx context.Context, factureID uuid.UUID) (decimal.Decimal, error)
	CountValide(ctx context.Context, factureID uuid.UUID) (int64, error)
}

type paiementRepository struct {
	db *gorm.DB
}

func NewPaiementRepository(db *gorm.DB) PaiementRepository {
	return &paiementRepository{db: db}
}

func (r *paiementRepository) Create(ctx context.Context, paiement *model.Paiement) error {
	return GetDB(ctx, r.db).Create(paiement).Error
}

func (r *paiementRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Paiement, error) {
	var paiement model.Paiement
	if err := GetDB(ctx, r.db).First(&paiement, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &paiement, nil
}

func (r *paiementRepository) ListByFacture(ctx context.Context, factureID uuid.UUID) ([]model.Paiement, error) {
	var paiements []model.Paiement
	err := GetDB(ctx, r.db).
		Where("facture_id = ?", factureID).
		Order("date_paiement asc, created_at asc").
		Find(&paiements).Error
	return paiements, err
}

func (r *paiementRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Paiement{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *paiementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Paiement{}).Error
}

func (r *paiementRepository) SumValide(ctx context.Context, factureID uuid.UUID) (decimal.Decimal, error) {
	// Summed in decimal space rather than SQL to keep cents exact on every
	// backend; a facture's ledger stays small.
	var paiements []model.Paiement
	err := GetDB(ctx, r.db).
		Select("montant").
		Where("facture_id = ? AND status = ?", factureID, billing.PaymentStatusValide).
		Find(&paiements).Error
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, p := range paiements {
		total = total.Add(p.Montant)
	}
	return total, nil
}

func (r *paiementRepository) CountValide(ctx context.Context, factureID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Paiement{}).
		Where("facture_id = ? AND status = ?", factureID, billing.PaymentStatusValide).
		Count(&count).Error
	return count, err
}

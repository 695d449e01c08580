package repository

import (
	"context"
	"time"

	"billing-backend/internal/billing"
	"billing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FactureListFilter narrows facture listings.
type FactureListFilter struct {
	Status     string
	ChantierID *uuid.UUID
	Page       int
	Limit      int
}

type FactureRepository interface {
	Create(ctx context.Context, facture *model.Facture) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Facture, error)
	List(ctx context.Context, filter FactureListFilter) ([]model.Facture, int64, error)
	Update(ctx context.Context, facture *model.Facture) error
	TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error)
	Numeros(ctx context.Context, prefix string) ([]string, error)
	// MarkOverdue sweeps unpaid sent and partially-paid factures past their
	// due date to en_retard. Idempotent.
	MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error)
	// ListByStatus returns every facture in one of the given statuses,
	// unpaginated, for sweeps and statistics.
	ListByStatus(ctx context.Context, statuses ...string) ([]model.Facture, error)
}

type factureRepository struct {
	db *gorm.DB
}

func NewFactureRepository(db *gorm.DB) FactureRepository {
	return &factureRepository{db: db}
}

func (r *factureRepository) Create(ctx context.Context, facture *model.Facture) error {
	return GetDB(ctx, r.db).Create(facture).Error
}

func (r *factureRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Facture, error) {
	var facture model.Facture
	if err := GetDB(ctx, r.db).First(&facture, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &facture, nil
}

func (r *factureRepository) List(ctx context.Context, filter FactureListFilter) ([]model.Facture, int64, error) {
	var factures []model.Facture
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Facture{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ChantierID != nil {
		query = query.Where("chantier_id = ?", *filter.ChantierID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (filter.Page - 1) * filter.Limit
	if err := query.Order("date_emission desc, numero desc").Offset(offset).Limit(filter.Limit).Find(&factures).Error; err != nil {
		return nil, 0, err
	}

	return factures, total, nil
}

func (r *factureRepository) Update(ctx context.Context, facture *model.Facture) error {
	return GetDB(ctx, r.db).Save(facture).Error
}

func (r *factureRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Facture{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *factureRepository) Numeros(ctx context.Context, prefix string) ([]string, error) {
	var numeros []string
	err := GetDB(ctx, r.db).Model(&model.Facture{}).
		Where("numero LIKE ?", prefix+"%").
		Pluck("numero", &numeros).Error
	return numeros, err
}

func (r *factureRepository) MarkOverdue(ctx context.Context, cutoff time.Time) (int64, error) {
	// Day-granular: an invoice is not overdue on its due day.
	res := GetDB(ctx, r.db).Model(&model.Facture{}).
		Where("status IN ? AND date_echeance < ? AND montant_paye < montant_ttc",
			[]string{billing.InvoiceStatusEnvoyee, billing.InvoiceStatusPayeePartiel}, billing.StartOfDay(cutoff)).
		Update("status", billing.InvoiceStatusEnRetard)
	return res.RowsAffected, res.Error
}

func (r *factureRepository) ListByStatus(ctx context.Context, statuses ...string) ([]model.Facture, error) {
	var factures []model.Facture
	err := GetDB(ctx, r.db).Where("status IN ?", statuses).Find(&factures).Error
	return factures, err
}

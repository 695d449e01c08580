package repository

import (
	"context"
	"time"

	"billing-backend/internal/billing"
	"billing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DevisListFilter narrows devis listings.
type DevisListFilter struct {
	Status     string
	ChantierID *uuid.UUID
	Page       int
	Limit      int
}

type DevisRepository interface {
	Create(ctx context.Context, devis *model.Devis) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Devis, error)
	List(ctx context.Context, filter DevisListFilter) ([]model.Devis, int64, error)
	Update(ctx context.Context, devis *model.Devis) error
	// TransitionStatus applies fields to the devis only if its status still
	// equals expected, returning the number of rows touched. Zero rows
	// means the record moved under the caller's feet.
	TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// LinkFacture latches a facture onto an accepted, not-yet-converted
	// devis. Zero rows means another conversion won.
	LinkFacture(ctx context.Context, id, factureID uuid.UUID, at time.Time) (int64, error)
	// Numeros returns every devis number sharing the given prefix, for
	// sequence derivation.
	Numeros(ctx context.Context, prefix string) ([]string, error)
	// ExpireStale sweeps every sent devis whose validity date precedes
	// cutoff to expire. Idempotent: already-expired rows are not matched.
	ExpireStale(ctx context.Context, cutoff time.Time) (int64, error)
}

type devisRepository struct {
	db *gorm.DB
}

func NewDevisRepository(db *gorm.DB) DevisRepository {
	return &devisRepository{db: db}
}

func (r *devisRepository) Create(ctx context.Context, devis *model.Devis) error {
	return GetDB(ctx, r.db).Create(devis).Error
}

func (r *devisRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Devis, error) {
	var devis model.Devis
	if err := GetDB(ctx, r.db).First(&devis, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &devis, nil
}

func (r *devisRepository) List(ctx context.Context, filter DevisListFilter) ([]model.Devis, int64, error) {
	var devis []model.Devis
	var total int64

	db := GetDB(ctx, r.db)
	query := db.Model(&model.Devis{})
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
	if err := query.Order("date_emission desc, numero desc").Offset(offset).Limit(filter.Limit).Find(&devis).Error; err != nil {
		return nil, 0, err
	}

	return devis, total, nil
}

func (r *devisRepository) Update(ctx context.Context, devis *model.Devis) error {
	return GetDB(ctx, r.db).Save(devis).Error
}

func (r *devisRepository) TransitionStatus(ctx context.Context, id uuid.UUID, expected string, fields map[string]interface{}) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Devis{}).
		Where("id = ? AND status = ?", id, expected).
		Updates(fields)
	return res.RowsAffected, res.Error
}

func (r *devisRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Devis{}).Error
}

func (r *devisRepository) LinkFacture(ctx context.Context, id, factureID uuid.UUID, at time.Time) (int64, error) {
	res := GetDB(ctx, r.db).Model(&model.Devis{}).
		Where("id = ? AND status = ? AND facture_id IS NULL", id, billing.QuoteStatusAccepte).
		Updates(map[string]interface{}{
			"facture_id":   factureID,
			"converted_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *devisRepository) Numeros(ctx context.Context, prefix string) ([]string, error) {
	var numeros []string
	err := GetDB(ctx, r.db).Model(&model.Devis{}).
		Where("numero LIKE ?", prefix+"%").
		Pluck("numero", &numeros).Error
	return numeros, err
}

func (r *devisRepository) ExpireStale(ctx context.Context, cutoff time.Time) (int64, error) {
	// Day-granular: the validity day itself stays open for acceptance.
	res := GetDB(ctx, r.db).Model(&model.Devis{}).
		Where("status = ? AND date_validite < ?", billing.QuoteStatusEnvoye, billing.StartOfDay(cutoff)).
		Update("status", billing.QuoteStatusExpire)
	return res.RowsAffected, res.Error
}

package repository

import (
	"context"

	"billing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type LigneRepository interface {
	Create(ctx context.Context, ligne *model.Ligne) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Ligne, error)
	ListByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]model.Ligne, error)
	CountByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) (int64, error)
	Update(ctx context.Context, ligne *model.Ligne) error
	Delete(ctx context.Context, id uuid.UUID) error
	// DeleteByOwner cascades line removal when a draft document is deleted.
	DeleteByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) error
}

type ligneRepository struct {
	db *gorm.DB
}

func NewLigneRepository(db *gorm.DB) LigneRepository {
	return &ligneRepository{db: db}
}

func (r *ligneRepository) Create(ctx context.Context, ligne *model.Ligne) error {
	return GetDB(ctx, r.db).Create(ligne).Error
}

func (r *ligneRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Ligne, error) {
	var ligne model.Ligne
	if err := GetDB(ctx, r.db).First(&ligne, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &ligne, nil
}

func (r *ligneRepository) ListByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) ([]model.Ligne, error) {
	var lignes []model.Ligne
	err := GetDB(ctx, r.db).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("ordre asc, created_at asc").
		Find(&lignes).Error
	return lignes, err
}

func (r *ligneRepository) CountByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) (int64, error) {
	var count int64
	err := GetDB(ctx, r.db).Model(&model.Ligne{}).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Count(&count).Error
	return count, err
}

func (r *ligneRepository) Update(ctx context.Context, ligne *model.Ligne) error {
	return GetDB(ctx, r.db).Save(ligne).Error
}

func (r *ligneRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Ligne{}).Error
}

func (r *ligneRepository) DeleteByOwner(ctx context.Context, ownerType string, ownerID uuid.UUID) error {
	return GetDB(ctx, r.db).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Delete(&model.Ligne{}).Error
}

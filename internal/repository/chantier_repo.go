package repository

import (
	"context"

	"billing-backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChantierRepository interface {
	Create(ctx context.Context, chantier *model.Chantier) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Chantier, error)
	List(ctx context.Context, page, limit int) ([]model.Chantier, int64, error)
	Update(ctx context.Context, chantier *model.Chantier) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type chantierRepository struct {
	db *gorm.DB
}

func NewChantierRepository(db *gorm.DB) ChantierRepository {
	return &chantierRepository{db: db}
}

func (r *chantierRepository) Create(ctx context.Context, chantier *model.Chantier) error {
	return GetDB(ctx, r.db).Create(chantier).Error
}

func (r *chantierRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Chantier, error) {
	var chantier model.Chantier
	if err := GetDB(ctx, r.db).First(&chantier, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &chantier, nil
}

func (r *chantierRepository) List(ctx context.Context, page, limit int) ([]model.Chantier, int64, error) {
	var chantiers []model.Chantier
	var total int64

	db := GetDB(ctx, r.db)
	if err := db.Model(&model.Chantier{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.Order("created_at desc").Offset(offset).Limit(limit).Find(&chantiers).Error; err != nil {
		return nil, 0, err
	}

	return chantiers, total, nil
}

func (r *chantierRepository) Update(ctx context.Context, chantier *model.Chantier) error {
	return GetDB(ctx, r.db).Save(chantier).Error
}

func (r *chantierRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return GetDB(ctx, r.db).Where("id = ?", id).Delete(&model.Chantier{}).Error
}

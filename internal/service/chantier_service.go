package service

import (
	"context"
	"fmt"

	"billing-backend/internal/model"
	"billing-backend/internal/repository"

	"github.com/google/uuid"
)

type CreateChantierRequest struct {
	Nom             string `json:"nom" binding:"required"`
	Adresse         string `json:"adresse"`
	ClientNom       string `json:"client_nom" binding:"required"`
	ClientEmail     string `json:"client_email" binding:"omitempty,email"`
	ClientTelephone string `json:"client_telephone"`
	ClientAdresse   string `json:"client_adresse"`
}

type UpdateChantierRequest struct {
	Nom             *string `json:"nom"`
	Adresse         *string `json:"adresse"`
	ClientNom       *string `json:"client_nom"`
	ClientEmail     *string `json:"client_email" binding:"omitempty,email"`
	ClientTelephone *string `json:"client_telephone"`
	ClientAdresse   *string `json:"client_adresse"`
}

type ChantierResponse struct {
	ID              string `json:"id"`
	Nom             string `json:"nom"`
	Adresse         string `json:"adresse,omitempty"`
	CommercialID    string `json:"commercial_id"`
	ClientNom       string `json:"client_nom"`
	ClientEmail     string `json:"client_email,omitempty"`
	ClientTelephone string `json:"client_telephone,omitempty"`
	ClientAdresse   string `json:"client_adresse,omitempty"`
	CreatedAt       string `json:"created_at"`
}

type ChantierService interface {
	Create(ctx context.Context, req CreateChantierRequest, commercialID string) (ChantierResponse, error)
	Get(ctx context.Context, id string) (ChantierResponse, error)
	List(ctx context.Context, page, limit int) ([]ChantierResponse, int64, error)
	Update(ctx context.Context, id string, req UpdateChantierRequest) (ChantierResponse, error)
	Delete(ctx context.Context, id string) error
}

type chantierService struct {
	repo repository.ChantierRepository
}

func NewChantierService(repo repository.ChantierRepository) ChantierService {
	return &chantierService{repo: repo}
}

func (s *chantierService) Create(ctx context.Context, req CreateChantierRequest, commercialID string) (ChantierResponse, error) {
	commercial, err := uuid.Parse(commercialID)
	if err != nil {
		return ChantierResponse{}, fmt.Errorf("invalid commercial id: %w", err)
	}

	chantier := model.Chantier{
		Nom:             req.Nom,
		Adresse:         req.Adresse,
		CommercialID:    commercial,
		ClientNom:       req.ClientNom,
		ClientEmail:     req.ClientEmail,
		ClientTelephone: req.ClientTelephone,
		ClientAdresse:   req.ClientAdresse,
	}
	if err := s.repo.Create(ctx, &chantier); err != nil {
		return ChantierResponse{}, fmt.Errorf("failed to create chantier: %w", err)
	}
	return toChantierResponse(chantier), nil
}

func (s *chantierService) Get(ctx context.Context, id string) (ChantierResponse, error) {
	chantier, err := s.load(ctx, id)
	if err != nil {
		return ChantierResponse{}, err
	}
	return toChantierResponse(*chantier), nil
}

func (s *chantierService) List(ctx context.Context, page, limit int) ([]ChantierResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	chantiers, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch chantiers: %w", err)
	}
	res := make([]ChantierResponse, 0, len(chantiers))
	for _, c := range chantiers {
		res = append(res, toChantierResponse(c))
	}
	return res, total, nil
}

// Update edits the chantier record only. Documents keep the client
// snapshot taken when they were created.
func (s *chantierService) Update(ctx context.Context, id string, req UpdateChantierRequest) (ChantierResponse, error) {
	chantier, err := s.load(ctx, id)
	if err != nil {
		return ChantierResponse{}, err
	}

	if req.Nom != nil {
		chantier.Nom = *req.Nom
	}
	if req.Adresse != nil {
		chantier.Adresse = *req.Adresse
	}
	if req.ClientNom != nil {
		chantier.ClientNom = *req.ClientNom
	}
	if req.ClientEmail != nil {
		chantier.ClientEmail = *req.ClientEmail
	}
	if req.ClientTelephone != nil {
		chantier.ClientTelephone = *req.ClientTelephone
	}
	if req.ClientAdresse != nil {
		chantier.ClientAdresse = *req.ClientAdresse
	}

	if err := s.repo.Update(ctx, chantier); err != nil {
		return ChantierResponse{}, fmt.Errorf("failed to update chantier: %w", err)
	}
	return toChantierResponse(*chantier), nil
}

func (s *chantierService) Delete(ctx context.Context, id string) error {
	chantier, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	return s.repo.Delete(ctx, chantier.ID)
}

func (s *chantierService) load(ctx context.Context, id string) (*model.Chantier, error) {
	chantierID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid chantier id: %w", err)
	}
	chantier, err := s.repo.FindByID(ctx, chantierID)
	if err != nil {
		return nil, fmt.Errorf("chantier not found: %w", err)
	}
	return chantier, nil
}

func toChantierResponse(c model.Chantier) ChantierResponse {
	return ChantierResponse{
		ID:              c.ID.String(),
		Nom:             c.Nom,
		Adresse:         c.Adresse,
		CommercialID:    c.CommercialID.String(),
		ClientNom:       c.ClientNom,
		ClientEmail:     c.ClientEmail,
		ClientTelephone: c.ClientTelephone,
		ClientAdresse:   c.ClientAdresse,
		CreatedAt:       c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

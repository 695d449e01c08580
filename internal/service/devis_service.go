package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"billing-backend/internal/billing"
	"billing-backend/internal/config"
	"billing-backend/internal/model"
	"billing-backend/internal/repository"
	"billing-backend/internal/websocket"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// --- DTOs ---

type CreateDevisRequest struct {
	ChantierID    string         `json:"chantier_id" binding:"required"`
	Titre         string         `json:"titre" binding:"required"`
	Description   string         `json:"description"`
	TauxTVA       string         `json:"taux_tva"`        // default from configuration
	ValiditeJours int            `json:"validite_jours"`  // default from configuration
	NotesInternes string         `json:"notes_internes"`
	Lignes        []LigneRequest `json:"lignes"`
}

type UpdateDevisRequest struct {
	Titre         *string `json:"titre"`
	Description   *string `json:"description"`
	DateValidite  *string `json:"date_validite"` // YYYY-MM-DD
	NotesInternes *string `json:"notes_internes"`
}

type AcceptDevisRequest struct {
	SignatureClient string `json:"signature_client"` // base64 payload, optional
	SignatureIP     string `json:"signature_ip"`
}

type DevisFilter struct {
	Status     string
	ChantierID string
	Page       int
	Limit      int
}

type DevisResponse struct {
	ID            string          `json:"id"`
	Numero        string          `json:"numero"`
	ChantierID    string          `json:"chantier_id"`
	CommercialID  string          `json:"commercial_id"`
	Titre         string          `json:"titre"`
	Description   string          `json:"description,omitempty"`
	Status        string          `json:"statut"`
	ClientInfo    json.RawMessage `json:"client_info,omitempty"`
	DateEmission  string          `json:"date_emission"`
	DateValidite  string          `json:"date_validite"`
	DateEnvoi     *string         `json:"date_envoi"`
	DateReponse   *string         `json:"date_reponse"`
	MontantHT     string          `json:"montant_ht"`
	MontantTVA    string          `json:"montant_tva"`
	MontantTTC    string          `json:"montant_ttc"`
	TauxTVA       string          `json:"taux_tva"`
	SignedAt      *string         `json:"signed_at"`
	FactureID     *string         `json:"facture_id"`
	ConvertedAt   *string         `json:"converted_at"`
	NotesInternes string          `json:"notes_internes,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type DevisDetail struct {
	DevisResponse
	Lignes []LigneResponse `json:"lignes"`
}

// --- Interface ---

type DevisService interface {
	Create(ctx context.Context, req CreateDevisRequest, commercialID string) (DevisDetail, error)
	Get(ctx context.Context, id string) (DevisDetail, error)
	List(ctx context.Context, filter DevisFilter) ([]DevisResponse, int64, error)
	Update(ctx context.Context, id string, req UpdateDevisRequest) (DevisResponse, error)
	AddLigne(ctx context.Context, devisID string, req LigneRequest) (DevisDetail, error)
	UpdateLigne(ctx context.Context, devisID, ligneID string, req LigneRequest) (DevisDetail, error)
	RemoveLigne(ctx context.Context, devisID, ligneID string) (DevisDetail, error)
	Send(ctx context.Context, id, userID string) (DevisResponse, error)
	Accept(ctx context.Context, id string, req AcceptDevisRequest, userID string) (DevisResponse, error)
	Refuse(ctx context.Context, id, userID string) (DevisResponse, error)
	Duplicate(ctx context.Context, id, userID string) (DevisDetail, error)
	Delete(ctx context.Context, id, userID string) error
	// ExpireStale sweeps sent devis past their validity date to expire.
	// Idempotent: a second run over the same records touches nothing.
	ExpireStale(ctx context.Context) (int64, error)
}

type devisService struct {
	devisRepo    repository.DevisRepository
	ligneRepo    repository.LigneRepository
	chantierRepo repository.ChantierRepository
	txManager    repository.TransactionManager
	allocator    *NumeroAllocator
	cfg          config.Billing
	hub          *websocket.Hub
	audit        *auditor
	now          func() time.Time
}

func NewDevisService(
	devisRepo repository.DevisRepository,
	ligneRepo repository.LigneRepository,
	chantierRepo repository.ChantierRepository,
	txManager repository.TransactionManager,
	allocator *NumeroAllocator,
	cfg config.Billing,
	hub *websocket.Hub,
	auditRepo repository.AuditRepository,
) DevisService {
	return &devisService{
		devisRepo:    devisRepo,
		ligneRepo:    ligneRepo,
		chantierRepo: chantierRepo,
		txManager:    txManager,
		allocator:    allocator,
		cfg:          cfg,
		hub:          hub,
		audit:        &auditor{repo: auditRepo},
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *devisService) Create(ctx context.Context, req CreateDevisRequest, commercialID string) (DevisDetail, error) {
	chantierID, err := uuid.Parse(req.ChantierID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("invalid chantier id: %w", err)
	}
	commercial, err := uuid.Parse(commercialID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("invalid commercial id: %w", err)
	}

	chantier, err := s.chantierRepo.FindByID(ctx, chantierID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("chantier not found: %w", err)
	}

	tauxTVA := s.cfg.DefaultTauxTVA
	if req.TauxTVA != "" {
		if tauxTVA, err = decimal.NewFromString(req.TauxTVA); err != nil {
			return DevisDetail{}, fmt.Errorf("%w: invalid taux_tva %q", billing.ErrValidation, req.TauxTVA)
		}
	}

	validiteJours := req.ValiditeJours
	if validiteJours <= 0 {
		validiteJours = s.cfg.ValiditeJours
	}

	lignes := make([]model.Ligne, 0, len(req.Lignes))
	for i, lr := range req.Lignes {
		ligne, err := buildLigne(lr, i+1, tauxTVA)
		if err != nil {
			return DevisDetail{}, err
		}
		lignes = append(lignes, ligne)
	}
	totals := totalsOf(lignes)

	snapshot, _ := json.Marshal(chantier.Client())
	today := s.now()

	devis := model.Devis{
		ChantierID:    chantierID,
		CommercialID:  commercial,
		Titre:         req.Titre,
		Description:   req.Description,
		Status:        billing.QuoteStatusBrouillon,
		ClientInfo:    string(snapshot),
		DateEmission:  today,
		DateValidite:  today.AddDate(0, 0, validiteJours),
		MontantHT:     totals.MontantHT,
		MontantTVA:    totals.MontantTVA,
		MontantTTC:    totals.MontantTTC,
		TauxTVA:       tauxTVA,
		NotesInternes: req.NotesInternes,
	}

	err = s.allocator.Assign(ctx, billing.DocTypeDevis, today, func(numero string) error {
		devis.Numero = numero
		devis.ID = uuid.Nil
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.devisRepo.Create(txCtx, &devis); err != nil {
				return err
			}
			for i := range lignes {
				lignes[i].ID = uuid.Nil
				lignes[i].OwnerType = model.OwnerDevis
				lignes[i].OwnerID = devis.ID
				if err := s.ligneRepo.Create(txCtx, &lignes[i]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return DevisDetail{}, fmt.Errorf("failed to create devis: %w", err)
	}

	s.audit.record(ctx, commercialID, model.ActionCreateDevis, devis.ID.String(), devis.Numero, req)
	return s.detail(ctx, &devis, lignes), nil
}

func (s *devisService) Get(ctx context.Context, id string) (DevisDetail, error) {
	devis, err := s.load(ctx, id)
	if err != nil {
		return DevisDetail{}, err
	}
	lignes, err := s.ligneRepo.ListByOwner(ctx, model.OwnerDevis, devis.ID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("failed to fetch lignes: %w", err)
	}
	return s.detail(ctx, devis, lignes), nil
}

func (s *devisService) List(ctx context.Context, filter DevisFilter) ([]DevisResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.DevisListFilter{
		Status: filter.Status,
		Page:   filter.Page,
		Limit:  filter.Limit,
	}
	if filter.ChantierID != "" {
		id, err := uuid.Parse(filter.ChantierID)
		if err != nil {
			return nil, 0, fmt.Errorf("invalid chantier id: %w", err)
		}
		repoFilter.ChantierID = &id
	}

	devis, total, err := s.devisRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch devis: %w", err)
	}

	res := make([]DevisResponse, 0, len(devis))
	for _, d := range devis {
		res = append(res, toDevisResponse(d))
	}
	return res, total, nil
}

func (s *devisService) Update(ctx context.Context, id string, req UpdateDevisRequest) (DevisResponse, error) {
	devis, err := s.load(ctx, id)
	if err != nil {
		return DevisResponse{}, err
	}

	switch devis.Status {
	case billing.QuoteStatusBrouillon:
		if req.Titre != nil {
			devis.Titre = *req.Titre
		}
		if req.Description != nil {
			devis.Description = *req.Description
		}
		if req.DateValidite != nil {
			d, err := time.Parse("2006-01-02", *req.DateValidite)
			if err != nil {
				return DevisResponse{}, fmt.Errorf("%w: invalid date_validite %q", billing.ErrValidation, *req.DateValidite)
			}
			devis.DateValidite = d
		}
		if req.NotesInternes != nil {
			devis.NotesInternes = *req.NotesInternes
		}
	case billing.QuoteStatusEnvoye:
		// A sent devis is frozen except for internal notes.
		if req.Titre != nil || req.Description != nil || req.DateValidite != nil {
			return DevisResponse{}, fmt.Errorf("%w: devis %s is already sent", billing.ErrInvalidTransition, devis.Numero)
		}
		if req.NotesInternes != nil {
			devis.NotesInternes = *req.NotesInternes
		}
	default:
		return DevisResponse{}, fmt.Errorf("%w: devis %s is %s", billing.ErrInvalidTransition, devis.Numero, devis.Status)
	}

	if err := s.devisRepo.Update(ctx, devis); err != nil {
		return DevisResponse{}, fmt.Errorf("failed to update devis: %w", err)
	}
	return toDevisResponse(*devis), nil
}

func (s *devisService) AddLigne(ctx context.Context, devisID string, req LigneRequest) (DevisDetail, error) {
	devis, err := s.editable(ctx, devisID)
	if err != nil {
		return DevisDetail{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.ligneRepo.ListByOwner(txCtx, model.OwnerDevis, devis.ID)
		if err != nil {
			return err
		}
		ligne, err := buildLigne(req, len(existing)+1, devis.TauxTVA)
		if err != nil {
			return err
		}
		ligne.OwnerType = model.OwnerDevis
		ligne.OwnerID = devis.ID
		if err := s.ligneRepo.Create(txCtx, &ligne); err != nil {
			return err
		}
		return s.refreshTotals(txCtx, devis)
	})
	if err != nil {
		return DevisDetail{}, err
	}
	return s.Get(ctx, devisID)
}

func (s *devisService) UpdateLigne(ctx context.Context, devisID, ligneID string, req LigneRequest) (DevisDetail, error) {
	devis, err := s.editable(ctx, devisID)
	if err != nil {
		return DevisDetail{}, err
	}
	lID, err := uuid.Parse(ligneID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("invalid ligne id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.ligneRepo.FindByID(txCtx, lID)
		if err != nil {
			return fmt.Errorf("ligne not found: %w", err)
		}
		if current.OwnerType != model.OwnerDevis || current.OwnerID != devis.ID {
			return fmt.Errorf("%w: ligne %s does not belong to devis %s", billing.ErrValidation, ligneID, devis.Numero)
		}

		updated, err := buildLigne(req, current.Ordre, devis.TauxTVA)
		if err != nil {
			return err
		}
		updated.ID = current.ID
		updated.OwnerType = current.OwnerType
		updated.OwnerID = current.OwnerID
		updated.CreatedAt = current.CreatedAt
		if err := s.ligneRepo.Update(txCtx, &updated); err != nil {
			return err
		}
		return s.refreshTotals(txCtx, devis)
	})
	if err != nil {
		return DevisDetail{}, err
	}
	return s.Get(ctx, devisID)
}

func (s *devisService) RemoveLigne(ctx context.Context, devisID, ligneID string) (DevisDetail, error) {
	devis, err := s.editable(ctx, devisID)
	if err != nil {
		return DevisDetail{}, err
	}
	lID, err := uuid.Parse(ligneID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("invalid ligne id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.ligneRepo.FindByID(txCtx, lID)
		if err != nil {
			return fmt.Errorf("ligne not found: %w", err)
		}
		if current.OwnerType != model.OwnerDevis || current.OwnerID != devis.ID {
			return fmt.Errorf("%w: ligne %s does not belong to devis %s", billing.ErrValidation, ligneID, devis.Numero)
		}
		if err := s.ligneRepo.Delete(txCtx, lID); err != nil {
			return err
		}
		return s.refreshTotals(txCtx, devis)
	})
	if err != nil {
		return DevisDetail{}, err
	}
	return s.Get(ctx, devisID)
}

func (s *devisService) Send(ctx context.Context, id, userID string) (DevisResponse, error) {
	devis, err := s.load(ctx, id)
	if err != nil {
		return DevisResponse{}, err
	}
	if devis.Status != billing.QuoteStatusBrouillon {
		return DevisResponse{}, fmt.Errorf("%w: devis %s is %s, only a brouillon can be sent", billing.ErrInvalidTransition, devis.Numero, devis.Status)
	}

	count, err := s.ligneRepo.CountByOwner(ctx, model.OwnerDevis, devis.ID)
	if err != nil {
		return DevisResponse{}, fmt.Errorf("failed to count lignes: %w", err)
	}
	if count == 0 {
		return DevisResponse{}, fmt.Errorf("%w: devis %s has no lignes", billing.ErrInvalidTransition, devis.Numero)
	}
	if !devis.MontantTTC.IsPositive() {
		return DevisResponse{}, fmt.Errorf("%w: devis %s has a zero montant TTC", billing.ErrInvalidTransition, devis.Numero)
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":     billing.QuoteStatusEnvoye,
		"date_envoi": now,
	}
	if devis.ClientInfo == "" {
		if chantier, err := s.chantierRepo.FindByID(ctx, devis.ChantierID); err == nil {
			snapshot, _ := json.Marshal(chantier.Client())
			fields["client_info"] = string(snapshot)
		}
	}

	if err := s.transition(ctx, devis, billing.QuoteStatusBrouillon, fields); err != nil {
		return DevisResponse{}, err
	}

	s.audit.record(ctx, userID, model.ActionSendDevis, devis.ID.String(), devis.Numero, nil)
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventDevisEnvoye,
		DocumentType: billing.DocTypeDevis,
		DocumentID:   devis.ID.String(),
		Numero:       devis.Numero,
		Status:       billing.QuoteStatusEnvoye,
	})
	return s.reload(ctx, devis.ID)
}

func (s *devisService) Accept(ctx context.Context, id string, req AcceptDevisRequest, userID string) (DevisResponse, error) {
	return s.respond(ctx, id, userID, billing.QuoteStatusAccepte, req)
}

func (s *devisService) Refuse(ctx context.Context, id, userID string) (DevisResponse, error) {
	return s.respond(ctx, id, userID, billing.QuoteStatusRefuse, AcceptDevisRequest{})
}

// respond applies the client's answer to a sent devis, within the validity
// window.
func (s *devisService) respond(ctx context.Context, id, userID, verdict string, req AcceptDevisRequest) (DevisResponse, error) {
	devis, err := s.load(ctx, id)
	if err != nil {
		return DevisResponse{}, err
	}
	if devis.Status != billing.QuoteStatusEnvoye {
		return DevisResponse{}, fmt.Errorf("%w: devis %s is %s, only a sent devis can be %s", billing.ErrInvalidTransition, devis.Numero, devis.Status, verdict)
	}

	now := s.now()
	if !billing.QuoteResponseOpen(devis.DateValidite, now) {
		return DevisResponse{}, fmt.Errorf("%w: devis %s expired on %s", billing.ErrInvalidTransition, devis.Numero, formatDate(devis.DateValidite))
	}

	fields := map[string]interface{}{
		"status":       verdict,
		"date_reponse": now,
	}
	action := model.ActionRefuseDevis
	event := websocket.EventDevisRefuse
	if verdict == billing.QuoteStatusAccepte {
		action = model.ActionAcceptDevis
		event = websocket.EventDevisAccepte
		if req.SignatureClient != "" {
			fields["signature_client"] = req.SignatureClient
			fields["signature_ip"] = req.SignatureIP
			fields["signed_at"] = now
		}
	}

	if err := s.transition(ctx, devis, billing.QuoteStatusEnvoye, fields); err != nil {
		return DevisResponse{}, err
	}

	s.audit.record(ctx, userID, action, devis.ID.String(), devis.Numero, nil)
	s.hub.BroadcastEvent(websocket.Event{
		Type:         event,
		DocumentType: billing.DocTypeDevis,
		DocumentID:   devis.ID.String(),
		Numero:       devis.Numero,
		Status:       verdict,
	})
	return s.reload(ctx, devis.ID)
}

func (s *devisService) Duplicate(ctx context.Context, id, userID string) (DevisDetail, error) {
	source, err := s.load(ctx, id)
	if err != nil {
		return DevisDetail{}, err
	}
	lignes, err := s.ligneRepo.ListByOwner(ctx, model.OwnerDevis, source.ID)
	if err != nil {
		return DevisDetail{}, fmt.Errorf("failed to fetch lignes: %w", err)
	}

	req := CreateDevisRequest{
		ChantierID:    source.ChantierID.String(),
		Titre:         source.Titre,
		Description:   source.Description,
		TauxTVA:       source.TauxTVA.StringFixed(2),
		NotesInternes: source.NotesInternes,
	}
	for _, l := range lignes {
		req.Lignes = append(req.Lignes, LigneRequest{
			Designation:       l.Designation,
			Description:       l.Description,
			Unite:             l.Unite,
			Categorie:         l.Categorie,
			Quantite:          l.Quantite.StringFixed(2),
			PrixUnitaireHT:    l.PrixUnitaireHT.StringFixed(2),
			TauxTVA:           l.TauxTVA.StringFixed(2),
			RemisePourcentage: l.RemisePourcentage.StringFixed(2),
			RemiseMontant:     l.RemiseMontant.StringFixed(2),
		})
	}

	// A duplicate is an unrelated new brouillon: fresh numero, fresh
	// dates, no signature, no facture link.
	return s.Create(ctx, req, source.CommercialID.String())
}

func (s *devisService) Delete(ctx context.Context, id, userID string) error {
	devis, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if devis.Status != billing.QuoteStatusBrouillon {
		return fmt.Errorf("%w: only a brouillon devis can be deleted, %s is %s", billing.ErrInvalidTransition, devis.Numero, devis.Status)
	}
	if devis.FactureID != nil {
		return fmt.Errorf("%w: devis %s is linked to a facture", billing.ErrInvalidTransition, devis.Numero)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.ligneRepo.DeleteByOwner(txCtx, model.OwnerDevis, devis.ID); err != nil {
			return err
		}
		return s.devisRepo.Delete(txCtx, devis.ID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete devis: %w", err)
	}

	s.audit.record(ctx, userID, model.ActionDeleteDevis, devis.ID.String(), devis.Numero, nil)
	return nil
}

func (s *devisService) ExpireStale(ctx context.Context) (int64, error) {
	return s.devisRepo.ExpireStale(ctx, s.now())
}

// --- Helpers ---

func (s *devisService) load(ctx context.Context, id string) (*model.Devis, error) {
	devisID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid devis id: %w", err)
	}
	devis, err := s.devisRepo.FindByID(ctx, devisID)
	if err != nil {
		return nil, fmt.Errorf("devis not found: %w", err)
	}
	return devis, nil
}

// editable loads a devis and enforces the draft-only edit rule for lignes.
func (s *devisService) editable(ctx context.Context, id string) (*model.Devis, error) {
	devis, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if devis.Status != billing.QuoteStatusBrouillon {
		return nil, fmt.Errorf("%w: lignes of devis %s cannot change, it is %s", billing.ErrInvalidTransition, devis.Numero, devis.Status)
	}
	if devis.FactureID != nil {
		return nil, fmt.Errorf("%w: devis %s is linked to a facture", billing.ErrInvalidTransition, devis.Numero)
	}
	return devis, nil
}

// transition applies a CAS status update; zero rows means the devis moved
// since it was read.
func (s *devisService) transition(ctx context.Context, devis *model.Devis, expected string, fields map[string]interface{}) error {
	rows, err := s.devisRepo.TransitionStatus(ctx, devis.ID, expected, fields)
	if err != nil {
		return fmt.Errorf("failed to update devis: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: devis %s changed status concurrently", billing.ErrConcurrentModification, devis.Numero)
	}
	return nil
}

// refreshTotals recomputes the aggregate amounts from the stored lignes.
func (s *devisService) refreshTotals(txCtx context.Context, devis *model.Devis) error {
	lignes, err := s.ligneRepo.ListByOwner(txCtx, model.OwnerDevis, devis.ID)
	if err != nil {
		return err
	}
	totals := totalsOf(lignes)
	devis.MontantHT = totals.MontantHT
	devis.MontantTVA = totals.MontantTVA
	devis.MontantTTC = totals.MontantTTC
	return s.devisRepo.Update(txCtx, devis)
}

func (s *devisService) reload(ctx context.Context, id uuid.UUID) (DevisResponse, error) {
	devis, err := s.devisRepo.FindByID(ctx, id)
	if err != nil {
		return DevisResponse{}, fmt.Errorf("failed to reload devis: %w", err)
	}
	return toDevisResponse(*devis), nil
}

func (s *devisService) detail(ctx context.Context, devis *model.Devis, lignes []model.Ligne) DevisDetail {
	detail := DevisDetail{DevisResponse: toDevisResponse(*devis)}
	for _, l := range lignes {
		detail.Lignes = append(detail.Lignes, toLigneResponse(l))
	}
	return detail
}

func toDevisResponse(d model.Devis) DevisResponse {
	resp := DevisResponse{
		ID:            d.ID.String(),
		Numero:        d.Numero,
		ChantierID:    d.ChantierID.String(),
		CommercialID:  d.CommercialID.String(),
		Titre:         d.Titre,
		Description:   d.Description,
		Status:        d.Status,
		DateEmission:  formatDate(d.DateEmission),
		DateValidite:  formatDate(d.DateValidite),
		DateEnvoi:     formatDatePtr(d.DateEnvoi),
		DateReponse:   formatDatePtr(d.DateReponse),
		MontantHT:     d.MontantHT.StringFixed(2),
		MontantTVA:    d.MontantTVA.StringFixed(2),
		MontantTTC:    d.MontantTTC.StringFixed(2),
		TauxTVA:       d.TauxTVA.StringFixed(2),
		SignedAt:      formatDatePtr(d.SignedAt),
		ConvertedAt:   formatDatePtr(d.ConvertedAt),
		NotesInternes: d.NotesInternes,
		CreatedAt:     d.CreatedAt.Format(time.RFC3339),
	}
	if d.ClientInfo != "" {
		resp.ClientInfo = json.RawMessage(d.ClientInfo)
	}
	if d.FactureID != nil {
		id := d.FactureID.String()
		resp.FactureID = &id
	}
	return resp
}

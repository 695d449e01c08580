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

type CreateFactureRequest struct {
	ChantierID          string         `json:"chantier_id" binding:"required"`
	Titre               string         `json:"titre" binding:"required"`
	Description         string         `json:"description"`
	TauxTVA             string         `json:"taux_tva"`
	DelaiPaiement       int            `json:"delai_paiement"` // days, default from configuration
	ConditionsReglement string         `json:"conditions_reglement"`
	NotesInternes       string         `json:"notes_internes"`
	Lignes              []LigneRequest `json:"lignes"`
}

type UpdateFactureRequest struct {
	Titre               *string `json:"titre"`
	Description         *string `json:"description"`
	ConditionsReglement *string `json:"conditions_reglement"`
	DelaiPaiement       *int    `json:"delai_paiement"`
	NotesInternes       *string `json:"notes_internes"`
}

type FactureFilter struct {
	Status     string
	ChantierID string
	Page       int
	Limit      int
}

type FactureResponse struct {
	ID                  string          `json:"id"`
	Numero              string          `json:"numero"`
	ChantierID          string          `json:"chantier_id"`
	CommercialID        string          `json:"commercial_id"`
	DevisID             *string         `json:"devis_id"`
	Titre               string          `json:"titre"`
	Description         string          `json:"description,omitempty"`
	Status              string          `json:"statut"`
	ClientInfo          json.RawMessage `json:"client_info,omitempty"`
	DateEmission        string          `json:"date_emission"`
	DateEcheance        string          `json:"date_echeance"`
	DateEnvoi           *string         `json:"date_envoi"`
	MontantHT           string          `json:"montant_ht"`
	MontantTVA          string          `json:"montant_tva"`
	MontantTTC          string          `json:"montant_ttc"`
	TauxTVA             string          `json:"taux_tva"`
	MontantPaye         string          `json:"montant_paye"`
	MontantRestant      string          `json:"montant_restant"`
	DatePaiementComplet *string         `json:"date_paiement_complet"`
	ConditionsReglement string          `json:"conditions_reglement,omitempty"`
	DelaiPaiement       int             `json:"delai_paiement"`
	NbRelances          int             `json:"nb_relances"`
	DerniereRelance     *string         `json:"derniere_relance"`
	NotesInternes       string          `json:"notes_internes,omitempty"`
	CreatedAt           string          `json:"created_at"`
}

type FactureDetail struct {
	FactureResponse
	Lignes []LigneResponse `json:"lignes"`
}

// PenaltyResponse details the late-payment situation of one facture as of
// the evaluation date.
type PenaltyResponse struct {
	FactureID      string `json:"facture_id"`
	Numero         string `json:"numero"`
	DateEcheance   string `json:"date_echeance"`
	MontantRestant string `json:"montant_restant"`
	DaysLate       int    `json:"jours_retard"`
	AnnualRate     string `json:"taux_annuel"`
	PenaltyAmount  string `json:"penalites"`
	FixedIndemnity string `json:"indemnite_forfaitaire"`
	Total          string `json:"total_du"`
	ReminderLevel  string `json:"niveau_relance"`
	NbRelances     int    `json:"nb_relances"`
}

// FactureStatistics aggregates counts and amounts by status, plus the
// overdue book split into aging buckets.
type FactureStatistics struct {
	ByStatus map[string]StatusBucket `json:"par_statut"`
	Overdue  OverdueAging            `json:"retards"`
}

type StatusBucket struct {
	Count          int    `json:"nombre"`
	MontantTTC     string `json:"montant_ttc"`
	MontantRestant string `json:"montant_restant"`
}

type OverdueAging struct {
	Under15  AgingBucket `json:"moins_15j"`
	Under30  AgingBucket `json:"15_30j"`
	Under60  AgingBucket `json:"30_60j"`
	Over60   AgingBucket `json:"plus_60j"`
	TotalDue string      `json:"total_restant"`
}

type AgingBucket struct {
	Count          int    `json:"nombre"`
	MontantRestant string `json:"montant_restant"`
}

// --- Interface ---

type FactureService interface {
	Create(ctx context.Context, req CreateFactureRequest, commercialID string) (FactureDetail, error)
	Get(ctx context.Context, id string) (FactureDetail, error)
	List(ctx context.Context, filter FactureFilter) ([]FactureResponse, int64, error)
	Update(ctx context.Context, id string, req UpdateFactureRequest) (FactureResponse, error)
	AddLigne(ctx context.Context, factureID string, req LigneRequest) (FactureDetail, error)
	UpdateLigne(ctx context.Context, factureID, ligneID string, req LigneRequest) (FactureDetail, error)
	RemoveLigne(ctx context.Context, factureID, ligneID string) (FactureDetail, error)
	Send(ctx context.Context, id, userID string) (FactureResponse, error)
	Cancel(ctx context.Context, id, userID string) (FactureResponse, error)
	UpdateDueDate(ctx context.Context, id, dateEcheance string) (FactureResponse, error)
	Penalties(ctx context.Context, id string) (PenaltyResponse, error)
	RecordRelance(ctx context.Context, id, userID string) (FactureResponse, error)
	Statistics(ctx context.Context) (FactureStatistics, error)
	// RefreshOverdue sweeps unpaid factures past due to en_retard.
	// Idempotent.
	RefreshOverdue(ctx context.Context) (int64, error)
}

type factureService struct {
	factureRepo  repository.FactureRepository
	ligneRepo    repository.LigneRepository
	paiementRepo repository.PaiementRepository
	chantierRepo repository.ChantierRepository
	txManager    repository.TransactionManager
	allocator    *NumeroAllocator
	cfg          config.Billing
	hub          *websocket.Hub
	audit        *auditor
	now          func() time.Time
}

func NewFactureService(
	factureRepo repository.FactureRepository,
	ligneRepo repository.LigneRepository,
	paiementRepo repository.PaiementRepository,
	chantierRepo repository.ChantierRepository,
	txManager repository.TransactionManager,
	allocator *NumeroAllocator,
	cfg config.Billing,
	hub *websocket.Hub,
	auditRepo repository.AuditRepository,
) FactureService {
	return &factureService{
		factureRepo:  factureRepo,
		ligneRepo:    ligneRepo,
		paiementRepo: paiementRepo,
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

func (s *factureService) Create(ctx context.Context, req CreateFactureRequest, commercialID string) (FactureDetail, error) {
	chantierID, err := uuid.Parse(req.ChantierID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("invalid chantier id: %w", err)
	}
	commercial, err := uuid.Parse(commercialID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("invalid commercial id: %w", err)
	}

	chantier, err := s.chantierRepo.FindByID(ctx, chantierID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("chantier not found: %w", err)
	}

	tauxTVA := s.cfg.DefaultTauxTVA
	if req.TauxTVA != "" {
		if tauxTVA, err = decimal.NewFromString(req.TauxTVA); err != nil {
			return FactureDetail{}, fmt.Errorf("%w: invalid taux_tva %q", billing.ErrValidation, req.TauxTVA)
		}
	}

	delai := req.DelaiPaiement
	if delai <= 0 {
		delai = s.cfg.DelaiPaiementJours
	}

	lignes := make([]model.Ligne, 0, len(req.Lignes))
	for i, lr := range req.Lignes {
		ligne, err := buildLigne(lr, i+1, tauxTVA)
		if err != nil {
			return FactureDetail{}, err
		}
		lignes = append(lignes, ligne)
	}
	totals := totalsOf(lignes)

	snapshot, _ := json.Marshal(chantier.Client())
	today := s.now()

	facture := model.Facture{
		ChantierID:          chantierID,
		CommercialID:        commercial,
		Titre:               req.Titre,
		Description:         req.Description,
		Status:              billing.InvoiceStatusBrouillon,
		ClientInfo:          string(snapshot),
		DateEmission:        today,
		DateEcheance:        today.AddDate(0, 0, delai),
		MontantHT:           totals.MontantHT,
		MontantTVA:          totals.MontantTVA,
		MontantTTC:          totals.MontantTTC,
		TauxTVA:             tauxTVA,
		MontantRestant:      totals.MontantTTC,
		ConditionsReglement: req.ConditionsReglement,
		DelaiPaiement:       delai,
		NotesInternes:       req.NotesInternes,
	}

	err = s.allocator.Assign(ctx, billing.DocTypeFacture, today, func(numero string) error {
		facture.Numero = numero
		facture.ID = uuid.Nil
		return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
			if err := s.factureRepo.Create(txCtx, &facture); err != nil {
				return err
			}
			for i := range lignes {
				lignes[i].ID = uuid.Nil
				lignes[i].OwnerType = model.OwnerFacture
				lignes[i].OwnerID = facture.ID
				if err := s.ligneRepo.Create(txCtx, &lignes[i]); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return FactureDetail{}, fmt.Errorf("failed to create facture: %w", err)
	}

	s.audit.record(ctx, commercialID, model.ActionCreateFacture, facture.ID.String(), facture.Numero, req)
	return s.detail(&facture, lignes), nil
}

func (s *factureService) Get(ctx context.Context, id string) (FactureDetail, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureDetail{}, err
	}
	lignes, err := s.ligneRepo.ListByOwner(ctx, model.OwnerFacture, facture.ID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("failed to fetch lignes: %w", err)
	}
	return s.detail(facture, lignes), nil
}

func (s *factureService) List(ctx context.Context, filter FactureFilter) ([]FactureResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	repoFilter := repository.FactureListFilter{
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

	factures, total, err := s.factureRepo.List(ctx, repoFilter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch factures: %w", err)
	}

	res := make([]FactureResponse, 0, len(factures))
	for _, f := range factures {
		res = append(res, toFactureResponse(f))
	}
	return res, total, nil
}

func (s *factureService) Update(ctx context.Context, id string, req UpdateFactureRequest) (FactureResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureResponse{}, err
	}

	switch facture.Status {
	case billing.InvoiceStatusBrouillon:
		if req.Titre != nil {
			facture.Titre = *req.Titre
		}
		if req.Description != nil {
			facture.Description = *req.Description
		}
		if req.ConditionsReglement != nil {
			facture.ConditionsReglement = *req.ConditionsReglement
		}
		if req.DelaiPaiement != nil {
			if *req.DelaiPaiement <= 0 {
				return FactureResponse{}, fmt.Errorf("%w: delai_paiement must be positive", billing.ErrValidation)
			}
			facture.DelaiPaiement = *req.DelaiPaiement
			facture.DateEcheance = facture.DateEmission.AddDate(0, 0, *req.DelaiPaiement)
		}
		if req.NotesInternes != nil {
			facture.NotesInternes = *req.NotesInternes
		}
	case billing.InvoiceStatusEnvoyee, billing.InvoiceStatusPayeePartiel, billing.InvoiceStatusEnRetard:
		// Once sent, only internal bookkeeping fields remain editable.
		if req.Titre != nil || req.Description != nil || req.DelaiPaiement != nil {
			return FactureResponse{}, fmt.Errorf("%w: facture %s is already sent", billing.ErrInvalidTransition, facture.Numero)
		}
		if req.ConditionsReglement != nil {
			facture.ConditionsReglement = *req.ConditionsReglement
		}
		if req.NotesInternes != nil {
			facture.NotesInternes = *req.NotesInternes
		}
	default:
		return FactureResponse{}, fmt.Errorf("%w: facture %s is %s", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	if err := s.factureRepo.Update(ctx, facture); err != nil {
		return FactureResponse{}, fmt.Errorf("failed to update facture: %w", err)
	}
	return toFactureResponse(*facture), nil
}

func (s *factureService) AddLigne(ctx context.Context, factureID string, req LigneRequest) (FactureDetail, error) {
	facture, err := s.editable(ctx, factureID)
	if err != nil {
		return FactureDetail{}, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		existing, err := s.ligneRepo.ListByOwner(txCtx, model.OwnerFacture, facture.ID)
		if err != nil {
			return err
		}
		ligne, err := buildLigne(req, len(existing)+1, facture.TauxTVA)
		if err != nil {
			return err
		}
		ligne.OwnerType = model.OwnerFacture
		ligne.OwnerID = facture.ID
		if err := s.ligneRepo.Create(txCtx, &ligne); err != nil {
			return err
		}
		return s.refreshTotals(txCtx, facture)
	})
	if err != nil {
		return FactureDetail{}, err
	}
	return s.Get(ctx, factureID)
}

func (s *factureService) UpdateLigne(ctx context.Context, factureID, ligneID string, req LigneRequest) (FactureDetail, error) {
	facture, err := s.editable(ctx, factureID)
	if err != nil {
		return FactureDetail{}, err
	}
	lID, err := uuid.Parse(ligneID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("invalid ligne id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.ligneRepo.FindByID(txCtx, lID)
		if err != nil {
			return fmt.Errorf("ligne not found: %w", err)
		}
		if current.OwnerType != model.OwnerFacture || current.OwnerID != facture.ID {
			return fmt.Errorf("%w: ligne %s does not belong to facture %s", billing.ErrValidation, ligneID, facture.Numero)
		}

		updated, err := buildLigne(req, current.Ordre, facture.TauxTVA)
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
		return s.refreshTotals(txCtx, facture)
	})
	if err != nil {
		return FactureDetail{}, err
	}
	return s.Get(ctx, factureID)
}

func (s *factureService) RemoveLigne(ctx context.Context, factureID, ligneID string) (FactureDetail, error) {
	facture, err := s.editable(ctx, factureID)
	if err != nil {
		return FactureDetail{}, err
	}
	lID, err := uuid.Parse(ligneID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("invalid ligne id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.ligneRepo.FindByID(txCtx, lID)
		if err != nil {
			return fmt.Errorf("ligne not found: %w", err)
		}
		if current.OwnerType != model.OwnerFacture || current.OwnerID != facture.ID {
			return fmt.Errorf("%w: ligne %s does not belong to facture %s", billing.ErrValidation, ligneID, facture.Numero)
		}
		if err := s.ligneRepo.Delete(txCtx, lID); err != nil {
			return err
		}
		return s.refreshTotals(txCtx, facture)
	})
	if err != nil {
		return FactureDetail{}, err
	}
	return s.Get(ctx, factureID)
}

func (s *factureService) Send(ctx context.Context, id, userID string) (FactureResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureResponse{}, err
	}
	if facture.Status != billing.InvoiceStatusBrouillon {
		return FactureResponse{}, fmt.Errorf("%w: facture %s is %s, only a brouillon can be sent", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	count, err := s.ligneRepo.CountByOwner(ctx, model.OwnerFacture, facture.ID)
	if err != nil {
		return FactureResponse{}, fmt.Errorf("failed to count lignes: %w", err)
	}
	if count == 0 {
		return FactureResponse{}, fmt.Errorf("%w: facture %s has no lignes", billing.ErrInvalidTransition, facture.Numero)
	}
	if !facture.MontantTTC.IsPositive() {
		return FactureResponse{}, fmt.Errorf("%w: facture %s has a zero montant TTC", billing.ErrInvalidTransition, facture.Numero)
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":     billing.InvoiceStatusEnvoyee,
		"date_envoi": now,
	}
	if err := s.transition(ctx, facture, billing.InvoiceStatusBrouillon, fields); err != nil {
		return FactureResponse{}, err
	}

	s.audit.record(ctx, userID, model.ActionSendFacture, facture.ID.String(), facture.Numero, nil)
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventFactureEnvoyee,
		DocumentType: billing.DocTypeFacture,
		DocumentID:   facture.ID.String(),
		Numero:       facture.Numero,
		Status:       billing.InvoiceStatusEnvoyee,
	})
	return s.reload(ctx, facture.ID)
}

func (s *factureService) Cancel(ctx context.Context, id, userID string) (FactureResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureResponse{}, err
	}

	switch facture.Status {
	case billing.InvoiceStatusBrouillon, billing.InvoiceStatusEnvoyee, billing.InvoiceStatusEnRetard:
	default:
		return FactureResponse{}, fmt.Errorf("%w: facture %s is %s and cannot be cancelled", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	// A facture with validated money against it is settled by credit
	// note, not cancellation.
	validated, err := s.paiementRepo.CountValide(ctx, facture.ID)
	if err != nil {
		return FactureResponse{}, fmt.Errorf("failed to check paiements: %w", err)
	}
	if validated > 0 {
		return FactureResponse{}, fmt.Errorf("%w: facture %s has validated paiements", billing.ErrInvalidTransition, facture.Numero)
	}

	fields := map[string]interface{}{"status": billing.InvoiceStatusAnnulee}
	if err := s.transition(ctx, facture, facture.Status, fields); err != nil {
		return FactureResponse{}, err
	}

	s.audit.record(ctx, userID, model.ActionCancelFacture, facture.ID.String(), facture.Numero, nil)
	return s.reload(ctx, facture.ID)
}

func (s *factureService) UpdateDueDate(ctx context.Context, id, dateEcheance string) (FactureResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureResponse{}, err
	}

	echeance, err := time.Parse("2006-01-02", dateEcheance)
	if err != nil {
		return FactureResponse{}, fmt.Errorf("%w: invalid date_echeance %q", billing.ErrValidation, dateEcheance)
	}

	switch facture.Status {
	case billing.InvoiceStatusPayee, billing.InvoiceStatusAnnulee:
		return FactureResponse{}, fmt.Errorf("%w: facture %s is %s", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	// Moving the due date re-derives the status: an en_retard facture
	// whose new echeance is in the future drops back to its ledger
	// status.
	facture.DateEcheance = echeance
	facture.Status = billing.DeriveInvoiceStatus(facture.Status, facture.MontantPaye, facture.MontantTTC, echeance, s.now())
	if err := s.factureRepo.Update(ctx, facture); err != nil {
		return FactureResponse{}, fmt.Errorf("failed to update facture: %w", err)
	}
	return toFactureResponse(*facture), nil
}

func (s *factureService) Penalties(ctx context.Context, id string) (PenaltyResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return PenaltyResponse{}, err
	}

	switch facture.Status {
	case billing.InvoiceStatusBrouillon, billing.InvoiceStatusAnnulee:
		return PenaltyResponse{}, fmt.Errorf("%w: facture %s is %s, no penalties apply", billing.ErrValidation, facture.Numero, facture.Status)
	}

	now := s.now()
	breakdown := billing.Penalties(facture.MontantRestant, facture.DateEcheance, now, s.cfg.PenaltyAnnualRate, s.cfg.FixedIndemnity)
	return PenaltyResponse{
		FactureID:      facture.ID.String(),
		Numero:         facture.Numero,
		DateEcheance:   formatDate(facture.DateEcheance),
		MontantRestant: facture.MontantRestant.StringFixed(2),
		DaysLate:       breakdown.DaysLate,
		AnnualRate:     breakdown.AnnualRate.StringFixed(2),
		PenaltyAmount:  breakdown.PenaltyAmount.StringFixed(2),
		FixedIndemnity: breakdown.FixedIndemnity.StringFixed(2),
		Total:          breakdown.Total.StringFixed(2),
		ReminderLevel:  billing.ReminderLevel(breakdown.DaysLate, s.cfg.Reminders),
		NbRelances:     facture.NbRelances,
	}, nil
}

func (s *factureService) RecordRelance(ctx context.Context, id, userID string) (FactureResponse, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return FactureResponse{}, err
	}
	if facture.Status != billing.InvoiceStatusEnRetard {
		return FactureResponse{}, fmt.Errorf("%w: facture %s is %s, only an en_retard facture can be relanced", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	now := s.now()
	facture.NbRelances++
	facture.DerniereRelance = &now
	if err := s.factureRepo.Update(ctx, facture); err != nil {
		return FactureResponse{}, fmt.Errorf("failed to update facture: %w", err)
	}

	s.audit.record(ctx, userID, model.ActionRelanceFacture, facture.ID.String(), facture.Numero, map[string]int{"nb_relances": facture.NbRelances})
	return toFactureResponse(*facture), nil
}

func (s *factureService) Statistics(ctx context.Context) (FactureStatistics, error) {
	factures, err := s.factureRepo.ListByStatus(ctx,
		billing.InvoiceStatusBrouillon,
		billing.InvoiceStatusEnvoyee,
		billing.InvoiceStatusPayeePartiel,
		billing.InvoiceStatusPayee,
		billing.InvoiceStatusEnRetard,
		billing.InvoiceStatusAnnulee,
	)
	if err != nil {
		return FactureStatistics{}, fmt.Errorf("failed to fetch factures: %w", err)
	}

	type bucket struct {
		count   int
		ttc     decimal.Decimal
		restant decimal.Decimal
	}
	byStatus := map[string]*bucket{}
	var aging [4]bucket
	totalDue := decimal.Zero
	now := s.now()

	for _, f := range factures {
		b := byStatus[f.Status]
		if b == nil {
			b = &bucket{}
			byStatus[f.Status] = b
		}
		b.count++
		b.ttc = b.ttc.Add(f.MontantTTC)
		b.restant = b.restant.Add(f.MontantRestant)

		if f.Status != billing.InvoiceStatusEnRetard {
			continue
		}
		totalDue = totalDue.Add(f.MontantRestant)
		days := billing.DaysLate(f.DateEcheance, now)
		idx := 0
		switch {
		case days >= 60:
			idx = 3
		case days >= 30:
			idx = 2
		case days >= 15:
			idx = 1
		}
		aging[idx].count++
		aging[idx].restant = aging[idx].restant.Add(f.MontantRestant)
	}

	stats := FactureStatistics{ByStatus: map[string]StatusBucket{}}
	for status, b := range byStatus {
		stats.ByStatus[status] = StatusBucket{
			Count:          b.count,
			MontantTTC:     b.ttc.StringFixed(2),
			MontantRestant: b.restant.StringFixed(2),
		}
	}
	stats.Overdue = OverdueAging{
		Under15:  AgingBucket{Count: aging[0].count, MontantRestant: aging[0].restant.StringFixed(2)},
		Under30:  AgingBucket{Count: aging[1].count, MontantRestant: aging[1].restant.StringFixed(2)},
		Under60:  AgingBucket{Count: aging[2].count, MontantRestant: aging[2].restant.StringFixed(2)},
		Over60:   AgingBucket{Count: aging[3].count, MontantRestant: aging[3].restant.StringFixed(2)},
		TotalDue: totalDue.StringFixed(2),
	}
	return stats, nil
}

func (s *factureService) RefreshOverdue(ctx context.Context) (int64, error) {
	return s.factureRepo.MarkOverdue(ctx, s.now())
}

// --- Helpers ---

func (s *factureService) load(ctx context.Context, id string) (*model.Facture, error) {
	factureID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid facture id: %w", err)
	}
	facture, err := s.factureRepo.FindByID(ctx, factureID)
	if err != nil {
		return nil, fmt.Errorf("facture not found: %w", err)
	}
	return facture, nil
}

func (s *factureService) editable(ctx context.Context, id string) (*model.Facture, error) {
	facture, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if facture.Status != billing.InvoiceStatusBrouillon {
		return nil, fmt.Errorf("%w: lignes of facture %s cannot change, it is %s", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}
	return facture, nil
}

func (s *factureService) transition(ctx context.Context, facture *model.Facture, expected string, fields map[string]interface{}) error {
	rows, err := s.factureRepo.TransitionStatus(ctx, facture.ID, expected, fields)
	if err != nil {
		return fmt.Errorf("failed to update facture: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: facture %s changed status concurrently", billing.ErrConcurrentModification, facture.Numero)
	}
	return nil
}

// refreshTotals recomputes the aggregates from the stored lignes. Only a
// brouillon reaches here, so montant_restant tracks montant_ttc directly.
func (s *factureService) refreshTotals(txCtx context.Context, facture *model.Facture) error {
	lignes, err := s.ligneRepo.ListByOwner(txCtx, model.OwnerFacture, facture.ID)
	if err != nil {
		return err
	}
	totals := totalsOf(lignes)
	facture.MontantHT = totals.MontantHT
	facture.MontantTVA = totals.MontantTVA
	facture.MontantTTC = totals.MontantTTC
	facture.MontantRestant = totals.MontantTTC.Sub(facture.MontantPaye)
	if facture.MontantRestant.IsNegative() {
		facture.MontantRestant = decimal.Zero
	}
	return s.factureRepo.Update(txCtx, facture)
}

func (s *factureService) reload(ctx context.Context, id uuid.UUID) (FactureResponse, error) {
	facture, err := s.factureRepo.FindByID(ctx, id)
	if err != nil {
		return FactureResponse{}, fmt.Errorf("failed to reload facture: %w", err)
	}
	return toFactureResponse(*facture), nil
}

func (s *factureService) detail(facture *model.Facture, lignes []model.Ligne) FactureDetail {
	detail := FactureDetail{FactureResponse: toFactureResponse(*facture)}
	for _, l := range lignes {
		detail.Lignes = append(detail.Lignes, toLigneResponse(l))
	}
	return detail
}

func toFactureResponse(f model.Facture) FactureResponse {
	resp := FactureResponse{
		ID:                  f.ID.String(),
		Numero:              f.Numero,
		ChantierID:          f.ChantierID.String(),
		CommercialID:        f.CommercialID.String(),
		Titre:               f.Titre,
		Description:         f.Description,
		Status:              f.Status,
		DateEmission:        formatDate(f.DateEmission),
		DateEcheance:        formatDate(f.DateEcheance),
		DateEnvoi:           formatDatePtr(f.DateEnvoi),
		MontantHT:           f.MontantHT.StringFixed(2),
		MontantTVA:          f.MontantTVA.StringFixed(2),
		MontantTTC:          f.MontantTTC.StringFixed(2),
		TauxTVA:             f.TauxTVA.StringFixed(2),
		MontantPaye:         f.MontantPaye.StringFixed(2),
		MontantRestant:      f.MontantRestant.StringFixed(2),
		DatePaiementComplet: formatDatePtr(f.DatePaiementComplet),
		ConditionsReglement: f.ConditionsReglement,
		DelaiPaiement:       f.DelaiPaiement,
		NbRelances:          f.NbRelances,
		DerniereRelance:     formatDatePtr(f.DerniereRelance),
		NotesInternes:       f.NotesInternes,
		CreatedAt:           f.CreatedAt.Format(time.RFC3339),
	}
	if f.ClientInfo != "" {
		resp.ClientInfo = json.RawMessage(f.ClientInfo)
	}
	if f.DevisID != nil {
		id := f.DevisID.String()
		resp.DevisID = &id
	}
	return resp
}

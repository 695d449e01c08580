package service

import (
	"context"
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

type RecordPaiementRequest struct {
	Montant           string `json:"montant" binding:"required"`
	DatePaiement      string `json:"date_paiement" binding:"required"` // YYYY-MM-DD
	ModePaiement      string `json:"mode_paiement" binding:"required"`
	ReferencePaiement string `json:"reference_paiement"`
	Banque            string `json:"banque"`
	Commentaire       string `json:"commentaire"`
	JustificatifPath  string `json:"justificatif_path"`
}

type PaiementResponse struct {
	ID                string  `json:"id"`
	FactureID         string  `json:"facture_id"`
	Montant           string  `json:"montant"`
	DatePaiement      string  `json:"date_paiement"`
	ModePaiement      string  `json:"mode_paiement"`
	ReferencePaiement string  `json:"reference_paiement,omitempty"`
	Banque            string  `json:"banque,omitempty"`
	Status            string  `json:"statut"`
	Commentaire       string  `json:"commentaire,omitempty"`
	SaisiPar          string  `json:"saisi_par"`
	ValideAt          *string `json:"valide_at"`
	JustificatifPath  string  `json:"justificatif_path,omitempty"`
	CreatedAt         string  `json:"created_at"`
}

// --- Interface ---

type PaiementService interface {
	Record(ctx context.Context, factureID string, req RecordPaiementRequest, userID string) (PaiementResponse, error)
	List(ctx context.Context, factureID string) ([]PaiementResponse, error)
	Validate(ctx context.Context, id, userID string) (PaiementResponse, error)
	Reject(ctx context.Context, id, userID, commentaire string) (PaiementResponse, error)
	Delete(ctx context.Context, id, userID string) error
}

type paiementService struct {
	paiementRepo repository.PaiementRepository
	factureRepo  repository.FactureRepository
	txManager    repository.TransactionManager
	cfg          config.Billing
	hub          *websocket.Hub
	audit        *auditor
	now          func() time.Time
}

func NewPaiementService(
	paiementRepo repository.PaiementRepository,
	factureRepo repository.FactureRepository,
	txManager repository.TransactionManager,
	cfg config.Billing,
	hub *websocket.Hub,
	auditRepo repository.AuditRepository,
) PaiementService {
	return &paiementService{
		paiementRepo: paiementRepo,
		factureRepo:  factureRepo,
		txManager:    txManager,
		cfg:          cfg,
		hub:          hub,
		audit:        &auditor{repo: auditRepo},
		now:          time.Now,
	}
}

// --- Implementation ---

func (s *paiementService) Record(ctx context.Context, factureID string, req RecordPaiementRequest, userID string) (PaiementResponse, error) {
	fID, err := uuid.Parse(factureID)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("invalid facture id: %w", err)
	}
	saisiPar, err := uuid.Parse(userID)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("invalid user id: %w", err)
	}

	facture, err := s.factureRepo.FindByID(ctx, fID)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("facture not found: %w", err)
	}
	switch facture.Status {
	case billing.InvoiceStatusBrouillon, billing.InvoiceStatusAnnulee:
		return PaiementResponse{}, fmt.Errorf("%w: facture %s is %s and cannot receive paiements", billing.ErrInvalidTransition, facture.Numero, facture.Status)
	}

	montant, err := decimal.NewFromString(req.Montant)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("%w: invalid montant %q", billing.ErrValidation, req.Montant)
	}
	// Negative entries are corrective; zero is meaningless either way.
	if montant.IsZero() {
		return PaiementResponse{}, fmt.Errorf("%w: montant must be non-zero", billing.ErrValidation)
	}
	if !billing.ValidPaymentMode(req.ModePaiement) {
		return PaiementResponse{}, fmt.Errorf("%w: unknown mode_paiement %q", billing.ErrValidation, req.ModePaiement)
	}
	datePaiement, err := time.Parse("2006-01-02", req.DatePaiement)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("%w: invalid date_paiement %q", billing.ErrValidation, req.DatePaiement)
	}

	status := billing.PaymentStatusEnAttente
	if s.cfg.AutoValidatePayments {
		status = billing.PaymentStatusValide
	}

	paiement := model.Paiement{
		FactureID:         fID,
		Montant:           billing.Round2(montant),
		DatePaiement:      datePaiement,
		ModePaiement:      req.ModePaiement,
		ReferencePaiement: req.ReferencePaiement,
		Banque:            req.Banque,
		Status:            status,
		Commentaire:       req.Commentaire,
		SaisiPar:          saisiPar,
		JustificatifPath:  req.JustificatifPath,
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if status == billing.PaymentStatusValide {
			// Overpayment is checked against the prospective ledger
			// before anything is written.
			current, err := s.paiementRepo.SumValide(txCtx, fID)
			if err != nil {
				return err
			}
			if current.Add(paiement.Montant).GreaterThan(facture.MontantTTC) {
				return fmt.Errorf("%w: %s validated plus %s exceeds %s TTC on facture %s",
					billing.ErrOverpayment, current.StringFixed(2), paiement.Montant.StringFixed(2),
					facture.MontantTTC.StringFixed(2), facture.Numero)
			}
			now := s.now()
			paiement.ValideAt = &now
		}
		if err := s.paiementRepo.Create(txCtx, &paiement); err != nil {
			return err
		}
		if status == billing.PaymentStatusValide {
			return s.recomputeLedger(txCtx, fID)
		}
		return nil
	})
	if err != nil {
		return PaiementResponse{}, err
	}

	s.audit.record(ctx, userID, model.ActionRecordPaiement, paiement.ID.String(), facture.Numero, req)
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventPaiementRecu,
		DocumentType: billing.DocTypeFacture,
		DocumentID:   fID.String(),
		Numero:       facture.Numero,
		Status:       status,
	})
	s.notifyIfPaid(ctx, fID)
	return toPaiementResponse(paiement), nil
}

func (s *paiementService) List(ctx context.Context, factureID string) ([]PaiementResponse, error) {
	fID, err := uuid.Parse(factureID)
	if err != nil {
		return nil, fmt.Errorf("invalid facture id: %w", err)
	}
	paiements, err := s.paiementRepo.ListByFacture(ctx, fID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch paiements: %w", err)
	}
	res := make([]PaiementResponse, 0, len(paiements))
	for _, p := range paiements {
		res = append(res, toPaiementResponse(p))
	}
	return res, nil
}

func (s *paiementService) Validate(ctx context.Context, id, userID string) (PaiementResponse, error) {
	paiement, err := s.load(ctx, id)
	if err != nil {
		return PaiementResponse{}, err
	}
	if paiement.Status != billing.PaymentStatusEnAttente {
		return PaiementResponse{}, fmt.Errorf("%w: paiement is %s, only en_attente can be validated", billing.ErrInvalidTransition, paiement.Status)
	}

	facture, err := s.factureRepo.FindByID(ctx, paiement.FactureID)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("facture not found: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		current, err := s.paiementRepo.SumValide(txCtx, paiement.FactureID)
		if err != nil {
			return err
		}
		if current.Add(paiement.Montant).GreaterThan(facture.MontantTTC) {
			return fmt.Errorf("%w: %s validated plus %s exceeds %s TTC on facture %s",
				billing.ErrOverpayment, current.StringFixed(2), paiement.Montant.StringFixed(2),
				facture.MontantTTC.StringFixed(2), facture.Numero)
		}

		now := s.now()
		rows, err := s.paiementRepo.TransitionStatus(txCtx, paiement.ID, billing.PaymentStatusEnAttente, map[string]interface{}{
			"status":    billing.PaymentStatusValide,
			"valide_at": now,
		})
		if err != nil {
			return err
		}
		if rows == 0 {
			return fmt.Errorf("%w: paiement changed status concurrently", billing.ErrConcurrentModification)
		}
		paiement.Status = billing.PaymentStatusValide
		paiement.ValideAt = &now
		return s.recomputeLedger(txCtx, paiement.FactureID)
	})
	if err != nil {
		return PaiementResponse{}, err
	}

	s.audit.record(ctx, userID, model.ActionValidePaiement, paiement.ID.String(), facture.Numero, nil)
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventPaiementValide,
		DocumentType: billing.DocTypeFacture,
		DocumentID:   paiement.FactureID.String(),
		Numero:       facture.Numero,
		Status:       billing.PaymentStatusValide,
	})
	s.notifyIfPaid(ctx, paiement.FactureID)
	return toPaiementResponse(*paiement), nil
}

func (s *paiementService) Reject(ctx context.Context, id, userID, commentaire string) (PaiementResponse, error) {
	paiement, err := s.load(ctx, id)
	if err != nil {
		return PaiementResponse{}, err
	}
	if paiement.Status != billing.PaymentStatusEnAttente {
		return PaiementResponse{}, fmt.Errorf("%w: paiement is %s, only en_attente can be rejected", billing.ErrInvalidTransition, paiement.Status)
	}

	fields := map[string]interface{}{"status": billing.PaymentStatusRejete}
	if commentaire != "" {
		fields["commentaire"] = commentaire
	}
	rows, err := s.paiementRepo.TransitionStatus(ctx, paiement.ID, billing.PaymentStatusEnAttente, fields)
	if err != nil {
		return PaiementResponse{}, fmt.Errorf("failed to update paiement: %w", err)
	}
	if rows == 0 {
		return PaiementResponse{}, fmt.Errorf("%w: paiement changed status concurrently", billing.ErrConcurrentModification)
	}

	paiement.Status = billing.PaymentStatusRejete
	if commentaire != "" {
		paiement.Commentaire = commentaire
	}
	s.audit.record(ctx, userID, model.ActionRejetePaiement, paiement.ID.String(), "", nil)
	return toPaiementResponse(*paiement), nil
}

func (s *paiementService) Delete(ctx context.Context, id, userID string) error {
	paiement, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	// A valide entry is part of the accounted ledger; mistakes are
	// reconciled with a corrective entry.
	if paiement.Status == billing.PaymentStatusValide {
		return fmt.Errorf("%w: a valide paiement cannot be deleted, record a corrective entry", billing.ErrInvalidTransition)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if err := s.paiementRepo.Delete(txCtx, paiement.ID); err != nil {
			return err
		}
		return s.recomputeLedger(txCtx, paiement.FactureID)
	})
	if err != nil {
		return fmt.Errorf("failed to delete paiement: %w", err)
	}

	s.audit.record(ctx, userID, model.ActionDeletePaiement, paiement.ID.String(), "", nil)
	return nil
}

// --- Helpers ---

func (s *paiementService) load(ctx context.Context, id string) (*model.Paiement, error) {
	pID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid paiement id: %w", err)
	}
	paiement, err := s.paiementRepo.FindByID(ctx, pID)
	if err != nil {
		return nil, fmt.Errorf("paiement not found: %w", err)
	}
	return paiement, nil
}

// recomputeLedger re-derives montant_paye, montant_restant, the status and
// date_paiement_complet from the valide entries. Called inside the same
// transaction as every ledger mutation.
func (s *paiementService) recomputeLedger(txCtx context.Context, factureID uuid.UUID) error {
	facture, err := s.factureRepo.FindByID(txCtx, factureID)
	if err != nil {
		return err
	}
	paye, err := s.paiementRepo.SumValide(txCtx, factureID)
	if err != nil {
		return err
	}

	facture.MontantPaye = paye
	facture.MontantRestant = facture.MontantTTC.Sub(paye)
	if facture.MontantRestant.IsNegative() {
		facture.MontantRestant = decimal.Zero
	}

	now := s.now()
	facture.Status = billing.DeriveInvoiceStatus(facture.Status, paye, facture.MontantTTC, facture.DateEcheance, now)
	if facture.Status == billing.InvoiceStatusPayee {
		if facture.DatePaiementComplet == nil {
			facture.DatePaiementComplet = &now
		}
	} else {
		facture.DatePaiementComplet = nil
	}
	return s.factureRepo.Update(txCtx, facture)
}

// notifyIfPaid broadcasts the settled event after the transaction commits.
func (s *paiementService) notifyIfPaid(ctx context.Context, factureID uuid.UUID) {
	facture, err := s.factureRepo.FindByID(ctx, factureID)
	if err != nil || facture.Status != billing.InvoiceStatusPayee {
		return
	}
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventFacturePayee,
		DocumentType: billing.DocTypeFacture,
		DocumentID:   facture.ID.String(),
		Numero:       facture.Numero,
		Status:       billing.InvoiceStatusPayee,
	})
}

func toPaiementResponse(p model.Paiement) PaiementResponse {
	return PaiementResponse{
		ID:                p.ID.String(),
		FactureID:         p.FactureID.String(),
		Montant:           p.Montant.StringFixed(2),
		DatePaiement:      formatDate(p.DatePaiement),
		ModePaiement:      p.ModePaiement,
		ReferencePaiement: p.ReferencePaiement,
		Banque:            p.Banque,
		Status:            p.Status,
		Commentaire:       p.Commentaire,
		SaisiPar:          p.SaisiPar.String(),
		ValideAt:          formatDatePtr(p.ValideAt),
		JustificatifPath:  p.JustificatifPath,
		CreatedAt:         p.CreatedAt.Format(time.RFC3339),
	}
}

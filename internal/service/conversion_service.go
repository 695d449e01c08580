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
)

// ConversionService turns an accepted devis into a facture, exactly once.
type ConversionService interface {
	Convert(ctx context.Context, devisID, userID string) (FactureDetail, error)
}

type conversionService struct {
	devisRepo    repository.DevisRepository
	factureRepo  repository.FactureRepository
	ligneRepo    repository.LigneRepository
	txManager    repository.TransactionManager
	allocator    *NumeroAllocator
	cfg          config.Billing
	hub          *websocket.Hub
	audit        *auditor
	now          func() time.Time
}

func NewConversionService(
	devisRepo repository.DevisRepository,
	factureRepo repository.FactureRepository,
	ligneRepo repository.LigneRepository,
	txManager repository.TransactionManager,
	allocator *NumeroAllocator,
	cfg config.Billing,
	hub *websocket.Hub,
	auditRepo repository.AuditRepository,
) ConversionService {
	return &conversionService{
		devisRepo:   devisRepo,
		factureRepo: factureRepo,
		ligneRepo:   ligneRepo,
		txManager:   txManager,
		allocator:   allocator,
		cfg:         cfg,
		hub:         hub,
		audit:       &auditor{repo: auditRepo},
		now:         time.Now,
	}
}

func (s *conversionService) Convert(ctx context.Context, devisID, userID string) (FactureDetail, error) {
	id, err := uuid.Parse(devisID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("invalid devis id: %w", err)
	}
	devis, err := s.devisRepo.FindByID(ctx, id)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("devis not found: %w", err)
	}

	if devis.Status != billing.QuoteStatusAccepte {
		return FactureDetail{}, fmt.Errorf("%w: devis %s is %s, only an accepted devis converts", billing.ErrInvalidTransition, devis.Numero, devis.Status)
	}
	if devis.FactureID != nil {
		return FactureDetail{}, fmt.Errorf("%w: devis %s is already converted", billing.ErrInvalidTransition, devis.Numero)
	}

	sourceLignes, err := s.ligneRepo.ListByOwner(ctx, model.OwnerDevis, devis.ID)
	if err != nil {
		return FactureDetail{}, fmt.Errorf("failed to fetch lignes: %w", err)
	}
	if len(sourceLignes) == 0 {
		return FactureDetail{}, fmt.Errorf("%w: devis %s has no lignes", billing.ErrIntegrity, devis.Numero)
	}

	// Rebuild each line from its stored inputs and cross-check the sums
	// against the devis totals before committing anything.
	lignes := make([]model.Ligne, 0, len(sourceLignes))
	for _, src := range sourceLignes {
		amounts, err := billing.ComputeLine(src.Quantite, src.PrixUnitaireHT, src.TauxTVA, billing.Discount{
			Percentage: src.RemisePourcentage,
			Flat:       src.RemiseMontant,
		})
		if err != nil {
			return FactureDetail{}, fmt.Errorf("%w: ligne %d of devis %s: %v", billing.ErrIntegrity, src.Ordre, devis.Numero, err)
		}
		dup := src
		dup.ID = uuid.Nil
		dup.OwnerType = model.OwnerFacture
		dup.MontantHT = amounts.HT
		dup.MontantTVA = amounts.TVA
		dup.MontantTTC = amounts.TTC
		lignes = append(lignes, dup)
	}
	totals := totalsOf(lignes)
	if !totals.MontantTTC.Equal(devis.MontantTTC) || !totals.MontantHT.Equal(devis.MontantHT) {
		return FactureDetail{}, fmt.Errorf("%w: devis %s totals do not match its lignes (%s TTC vs %s)",
			billing.ErrIntegrity, devis.Numero, devis.MontantTTC.StringFixed(2), totals.MontantTTC.StringFixed(2))
	}

	today := s.now()
	facture := model.Facture{
		ChantierID:     devis.ChantierID,
		CommercialID:   devis.CommercialID,
		DevisID:        &devis.ID,
		Titre:          devis.Titre,
		Description:    devis.Description,
		Status:         billing.InvoiceStatusBrouillon,
		ClientInfo:     devis.ClientInfo,
		DateEmission:   today,
		DateEcheance:   today.AddDate(0, 0, s.cfg.DelaiPaiementJours),
		MontantHT:      totals.MontantHT,
		MontantTVA:     totals.MontantTVA,
		MontantTTC:     totals.MontantTTC,
		TauxTVA:        devis.TauxTVA,
		MontantRestant: totals.MontantTTC,
		DelaiPaiement:  s.cfg.DelaiPaiementJours,
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
				lignes[i].OwnerID = facture.ID
				if err := s.ligneRepo.Create(txCtx, &lignes[i]); err != nil {
					return err
				}
			}

			// Linking the devis is the once-only latch: a concurrent
			// convert loses the race and the whole transaction rolls
			// back, facture and numero included.
			rows, err := s.devisRepo.LinkFacture(txCtx, devis.ID, facture.ID, today)
			if err != nil {
				return err
			}
			if rows == 0 {
				return fmt.Errorf("%w: devis %s was converted concurrently", billing.ErrConcurrentModification, devis.Numero)
			}
			return nil
		})
	})
	if err != nil {
		return FactureDetail{}, fmt.Errorf("failed to convert devis %s: %w", devis.Numero, err)
	}

	s.audit.record(ctx, userID, model.ActionConvertDevis, devis.ID.String(), devis.Numero, map[string]string{
		"facture_id": facture.ID.String(),
		"numero":     facture.Numero,
	})
	s.hub.BroadcastEvent(websocket.Event{
		Type:         websocket.EventDevisConverti,
		DocumentType: billing.DocTypeDevis,
		DocumentID:   devis.ID.String(),
		Numero:       devis.Numero,
		Status:       billing.QuoteStatusAccepte,
	})

	detail := FactureDetail{FactureResponse: toFactureResponse(facture)}
	for _, l := range lignes {
		detail.Lignes = append(detail.Lignes, toLigneResponse(l))
	}
	return detail, nil
}

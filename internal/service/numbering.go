package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"billing-backend/internal/billing"

	"gorm.io/gorm"
)

// NumeroSource reads the existing numbers of one document type.
type NumeroSource interface {
	Numeros(ctx context.Context, prefix string) ([]string, error)
}

// NumeroAllocator hands out sequential document numbers. Assignment is
// linearized per (document type, year) bucket with an in-process mutex held
// across the read-increment-persist cycle; the unique index on numero is
// the cross-process backstop, retried once with a fresh number.
type NumeroAllocator struct {
	mu      sync.Mutex
	buckets map[string]*sync.Mutex

	formats map[string]billing.NumberFormat
	sources map[string]NumeroSource
}

func NewNumeroAllocator(devisFormat, factureFormat billing.NumberFormat, devisSource, factureSource NumeroSource) *NumeroAllocator {
	return &NumeroAllocator{
		buckets: make(map[string]*sync.Mutex),
		formats: map[string]billing.NumberFormat{
			billing.DocTypeDevis:   devisFormat,
			billing.DocTypeFacture: factureFormat,
		},
		sources: map[string]NumeroSource{
			billing.DocTypeDevis:   devisSource,
			billing.DocTypeFacture: factureSource,
		},
	}
}

// Assign derives the next numero for docType as of the given date and runs
// persist with it while the bucket lock is held. persist must create the
// record carrying the numero before returning. A duplicate-key error from
// persist means another process won the number; the sequence is re-read
// and persist retried once.
func (a *NumeroAllocator) Assign(ctx context.Context, docType string, asOf time.Time, persist func(numero string) error) error {
	format, ok := a.formats[docType]
	if !ok {
		return fmt.Errorf("%w: unknown document type %q", billing.ErrValidation, docType)
	}

	lock := a.bucket(docType, format.SearchPrefix(asOf))
	lock.Lock()
	defer lock.Unlock()

	numero, err := a.next(ctx, docType, format, asOf)
	if err != nil {
		return err
	}

	if err := persist(numero); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}
		// Lost the race against another process; one fresh attempt.
		numero, err = a.next(ctx, docType, format, asOf)
		if err != nil {
			return err
		}
		if err := persist(numero); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: numero collision on %s", billing.ErrIntegrity, numero)
			}
			return err
		}
	}
	return nil
}

func (a *NumeroAllocator) next(ctx context.Context, docType string, format billing.NumberFormat, asOf time.Time) (string, error) {
	prefix := format.SearchPrefix(asOf)
	existing, err := a.sources[docType].Numeros(ctx, prefix)
	if err != nil {
		return "", fmt.Errorf("failed to read existing numeros: %w", err)
	}
	return format.Render(billing.NextSequence(existing), asOf), nil
}

func (a *NumeroAllocator) bucket(docType, prefix string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := docType + "|" + prefix
	if _, ok := a.buckets[key]; !ok {
		a.buckets[key] = &sync.Mutex{}
	}
	return a.buckets[key]
}

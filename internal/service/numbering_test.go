package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"billing-backend/internal/billing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// memNumeroSource keeps issued numbers in memory and mimics the unique
// index on numero.
type memNumeroSource struct {
	mu      sync.Mutex
	numeros []string
}

func (m *memNumeroSource) Numeros(_ context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []string
	for _, n := range m.numeros {
		if strings.HasPrefix(n, prefix) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *memNumeroSource) store(numero string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, n := range m.numeros {
		if n == numero {
			return gorm.ErrDuplicatedKey
		}
	}
	m.numeros = append(m.numeros, numero)
	return nil
}

func testAllocator(devis, facture *memNumeroSource) *NumeroAllocator {
	cfg := testConfig()
	return NewNumeroAllocator(cfg.DevisNumbering, cfg.FactureNumbering, devis, facture)
}

func TestAssignSequentialNumeros(t *testing.T) {
	source := &memNumeroSource{}
	allocator := testAllocator(source, &memNumeroSource{})
	asOf := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	for _, want := range []string{"DEV-2026-001", "DEV-2026-002", "DEV-2026-003"} {
		err := allocator.Assign(context.Background(), billing.DocTypeDevis, asOf, source.store)
		require.NoError(t, err)
		assert.Contains(t, source.numeros, want)
	}
}

func TestAssignConcurrentNumerosAreDistinct(t *testing.T) {
	source := &memNumeroSource{}
	allocator := testAllocator(source, &memNumeroSource{})
	asOf := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	const workers = 20
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- allocator.Assign(context.Background(), billing.DocTypeDevis, asOf, source.store)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.Len(t, source.numeros, workers)
	seen := make(map[string]bool, workers)
	for _, n := range source.numeros {
		assert.False(t, seen[n], "numero %s issued twice", n)
		seen[n] = true
	}
	assert.True(t, seen["DEV-2026-001"])
	assert.True(t, seen["DEV-2026-020"])
}

func TestAssignIndependentSequencesPerDocType(t *testing.T) {
	devisSource := &memNumeroSource{}
	factureSource := &memNumeroSource{}
	allocator := testAllocator(devisSource, factureSource)
	asOf := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	require.NoError(t, allocator.Assign(context.Background(), billing.DocTypeDevis, asOf, devisSource.store))
	require.NoError(t, allocator.Assign(context.Background(), billing.DocTypeFacture, asOf, factureSource.store))

	assert.Equal(t, []string{"DEV-2026-001"}, devisSource.numeros)
	assert.Equal(t, []string{"F-2026-001"}, factureSource.numeros)
}

func TestAssignRetriesOnceOnDuplicate(t *testing.T) {
	source := &memNumeroSource{}
	allocator := testAllocator(source, &memNumeroSource{})
	asOf := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)

	calls := 0
	err := allocator.Assign(context.Background(), billing.DocTypeDevis, asOf, func(numero string) error {
		calls++
		if calls == 1 {
			// Simulate another process grabbing the number first.
			require.NoError(t, source.store(numero))
			return gorm.ErrDuplicatedKey
		}
		return source.store(numero)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, []string{"DEV-2026-001", "DEV-2026-002"}, source.numeros)
}

func TestAssignAnnualReset(t *testing.T) {
	source := &memNumeroSource{}
	allocator := testAllocator(source, &memNumeroSource{})

	require.NoError(t, allocator.Assign(context.Background(), billing.DocTypeDevis,
		time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC), source.store))
	require.NoError(t, allocator.Assign(context.Background(), billing.DocTypeDevis,
		time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC), source.store))

	assert.Equal(t, []string{"DEV-2026-001", "DEV-2027-001"}, source.numeros)
}

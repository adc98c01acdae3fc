package identity

import (
	"context"
	"fmt"
	"math/rand"
)

// Fabricator mints throwaway principals for audit-event targets. Each
// identifier is first.last@domain drawn from two fixed name pools and
// guaranteed unique through the reservation store. The retry loop is
// bounded: a small pool against a long run fails with
// ErrNamespaceExhausted instead of spinning forever.
type Fabricator struct {
	firstNames  []string
	lastNames   []string
	domain      string
	maxAttempts int
	store       ReservationStore
	rng         *rand.Rand
}

// NewFabricator creates a Fabricator. Both name pools must be non-empty.
func NewFabricator(first, last []string, domain string, maxAttempts int, store ReservationStore, rng *rand.Rand) (*Fabricator, error) {
	if len(first) == 0 || len(last) == 0 {
		return nil, ErrEmptyNamePool
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("identity: maxAttempts must be positive, got %d", maxAttempts)
	}
	if store == nil {
		store = NewMemoryStore()
	}

	return &Fabricator{
		firstNames:  first,
		lastNames:   last,
		domain:      domain,
		maxAttempts: maxAttempts,
		store:       store,
		rng:         rng,
	}, nil
}

// Fabricate returns a fresh, never-before-used principal identifier.
func (f *Fabricator) Fabricate(ctx context.Context) (string, error) {
	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		upn := fmt.Sprintf("%s.%s@%s",
			f.firstNames[f.rng.Intn(len(f.firstNames))],
			f.lastNames[f.rng.Intn(len(f.lastNames))],
			f.domain,
		)

		reserved, err := f.store.Reserve(ctx, upn)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrReservationFailed, err)
		}
		if reserved {
			return upn, nil
		}
	}

	return "", fmt.Errorf("%w after %d attempts (pool %dx%d)",
		ErrNamespaceExhausted, f.maxAttempts, len(f.firstNames), len(f.lastNames))
}

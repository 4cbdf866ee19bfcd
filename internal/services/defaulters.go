package services

import (
	"context"
	"fmt"

	"townledger/internal/core"
)

// Defaulters answers "who owes what" for a month or a whole year.
type Defaulters struct {
	store DefaulterStore
}

func NewDefaulters(store DefaulterStore) *Defaulters {
	return &Defaulters{store: store}
}

// Find validates q, reads residents and summed payments as one snapshot and
// returns residents with a positive pending on any selected service.
func (s *Defaulters) Find(ctx context.Context, q core.DefaulterQuery) (core.DefaulterResult, error) {
	if err := q.Validate(); err != nil {
		return core.DefaulterResult{}, err
	}
	residents, paid, err := s.store.DefaulterSnapshot(ctx, q.Months())
	if err != nil {
		return core.DefaulterResult{}, fmt.Errorf("find defaulters %s: %w", q.Label(), err)
	}
	return core.FindDefaulters(q, residents, paid), nil
}

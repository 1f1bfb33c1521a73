package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) CreateRound(_ context.Context, r *models.Round) error {
	if r == nil || r.ContractAddress == "" {
		return store.ErrInvalidInput
	}
	if err := r.Params.Validate(r.Kind); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidInput, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.rounds {
		if existing.ContractAddress == r.ContractAddress {
			return store.ErrDuplicateKey
		}
	}
	if r.ID == 0 {
		r.ID = s.nextID()
	} else if _, exists := s.rounds[r.ID]; exists {
		return store.ErrDuplicateKey
	}
	if r.Result == "" {
		r.Result = models.RoundResultNone
	}
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	cp := *r
	s.rounds[r.ID] = &cp
	return nil
}

func (s *Store) GetRound(_ context.Context, id uint64) (*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rounds[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) ListRoundsByStatus(_ context.Context, statuses ...models.RoundStatus) ([]*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[models.RoundStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []*models.Round
	for _, r := range s.rounds {
		if len(want) == 0 || want[r.Status] {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) TransitionRoundStatus(_ context.Context, id uint64, from, to models.RoundStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if r.Status != from {
		return false, nil
	}
	r.Status = to
	r.UpdatedAt = time.Now()
	return true, nil
}

func (s *Store) AdvanceCheckpoint(_ context.Context, id uint64, block uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return store.ErrNotFound
	}
	if block > r.LastIndexedBlock {
		r.LastIndexedBlock = block
		r.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) ListRoundsPendingSetup(_ context.Context) ([]*models.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Round
	for _, r := range s.rounds {
		if r.Result == models.RoundResultSuccess && r.SettledAt == nil {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) MarkRoundSettled(_ context.Context, id uint64, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rounds[id]
	if !ok {
		return false, store.ErrNotFound
	}
	if r.Result != models.RoundResultSuccess || r.SettledAt != nil {
		return false, nil
	}
	t := at
	r.SettledAt = &t
	r.UpdatedAt = time.Now()
	return true, nil
}

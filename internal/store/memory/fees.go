package memory

import (
	"context"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) RecordFeeSplit(_ context.Context, split *models.FeeSplit, entries []*models.ReferralLedgerEntry) error {
	if split == nil || split.SourceID == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.feeSplits[feeKey(split.SourceType, split.SourceID)]; exists {
		return store.ErrDuplicateKey
	}
	s.insertFeeSplitLocked(split, entries, time.Now())
	return nil
}

func (s *Store) insertFeeSplitLocked(split *models.FeeSplit, entries []*models.ReferralLedgerEntry, now time.Time) {
	key := feeKey(split.SourceType, split.SourceID)
	split.ID = s.nextID()
	split.CreatedAt = now
	cp := *split
	s.feeSplits[key] = &cp

	for _, e := range entries {
		e.ID = s.nextID()
		e.CreatedAt = now
		ecp := *e
		s.referrals[key] = append(s.referrals[key], &ecp)
	}
}

func (s *Store) GetFeeSplit(_ context.Context, sourceType models.FeeSourceType, sourceID string) (*models.FeeSplit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.feeSplits[feeKey(sourceType, sourceID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *f
	return &cp, nil
}

func (s *Store) ListReferralEntries(_ context.Context, sourceType models.FeeSourceType, sourceID string) ([]*models.ReferralLedgerEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.ReferralLedgerEntry
	for _, e := range s.referrals[feeKey(sourceType, sourceID)] {
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

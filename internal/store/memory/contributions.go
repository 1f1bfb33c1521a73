package memory

import (
	"context"
	"sort"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) InsertContribution(_ context.Context, c *models.Contribution) error {
	if c == nil || c.TxHash == "" || c.RoundID == 0 {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributions[c.TxHash]; exists {
		return store.ErrDuplicateKey
	}
	c.ID = s.nextID()
	c.CreatedAt = time.Now()
	cp := *c
	s.contributions[c.TxHash] = &cp
	return nil
}

func (s *Store) ContributionExists(_ context.Context, txHash string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.contributions[txHash]
	return ok, nil
}

func (s *Store) ListConfirmedContributions(_ context.Context, roundID uint64) ([]*models.Contribution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.Contribution
	for _, c := range s.contributions {
		if c.RoundID == roundID && c.Status == models.ContributionStatusConfirmed {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].BlockNumber != out[j].BlockNumber {
			return out[i].BlockNumber < out[j].BlockNumber
		}
		return out[i].LogIndex < out[j].LogIndex
	})
	return out, nil
}

func (s *Store) ResolveWallet(_ context.Context, address string) (*uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.wallets[address]
	if !ok {
		return nil, nil
	}
	return &id, nil
}

func (s *Store) RegisterWallet(_ context.Context, address string, userID uint64) error {
	if address == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.wallets[address]; exists {
		return store.ErrDuplicateKey
	}
	s.wallets[address] = userID
	return nil
}

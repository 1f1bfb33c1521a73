package memory

import (
	"context"
	"sort"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) ListChainConfigs(_ context.Context) ([]*models.ChainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.ChainConfig, 0, len(s.chains))
	for _, c := range s.chains {
		cp := *c
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) GetChainConfig(_ context.Context, id uint) (*models.ChainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chains[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetChainConfigByChainID(_ context.Context, chainID uint64) (*models.ChainConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.chains {
		if c.ChainID == chainID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) SaveChainConfig(_ context.Context, c *models.ChainConfig) error {
	if c == nil || c.ChainID == 0 {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, existing := range s.chains {
		if existing.ChainID == c.ChainID && id != c.ID {
			return store.ErrDuplicateKey
		}
	}
	now := time.Now()
	if c.ID == 0 {
		c.ID = uint(s.nextID())
		c.CreatedAt = now
	} else if _, ok := s.chains[c.ID]; !ok {
		return store.ErrNotFound
	}
	c.UpdatedAt = now
	cp := *c
	s.chains[c.ID] = &cp
	return nil
}

func (s *Store) AppendSystemLog(_ context.Context, l *models.SystemLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	l.ID = uint(s.nextID())
	l.CreatedAt = time.Now()
	cp := *l
	s.logs = append(s.logs, &cp)
	return nil
}

func (s *Store) ListSystemLogs(_ context.Context, f store.SystemLogFilter) ([]*models.SystemLog, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []*models.SystemLog
	for i := len(s.logs) - 1; i >= 0; i-- {
		l := s.logs[i]
		if f.RoundID != 0 && l.RoundID != f.RoundID {
			continue
		}
		if f.Level != "" && l.Level != f.Level {
			continue
		}
		if f.Module != "" && l.Module != f.Module {
			continue
		}
		matched = append(matched, l)
	}

	page, size := f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 || size > 100 {
		size = 10
	}
	start := (page - 1) * size
	if start >= len(matched) {
		return []*models.SystemLog{}, int64(len(matched)), nil
	}
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*models.SystemLog, 0, end-start)
	for _, l := range matched[start:end] {
		cp := *l
		out = append(out, &cp)
	}
	return out, int64(len(matched)), nil
}

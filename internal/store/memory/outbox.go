package memory

import (
	"context"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) insertOutboxLocked(m *models.OutboxMessage, now time.Time) {
	m.ID = s.nextID()
	if m.Status == "" {
		m.Status = models.OutboxStatusPending
	}
	m.CreatedAt = now
	cp := *m
	s.outbox = append(s.outbox, &cp)
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]*models.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.OutboxMessage
	for _, m := range s.outbox {
		if m.Status != models.OutboxStatusPending {
			continue
		}
		cp := *m
		out = append(out, &cp)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) findOutboxLocked(id uint64) (*models.OutboxMessage, error) {
	for _, m := range s.outbox {
		if m.ID == id {
			return m, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) MarkOutboxPublished(_ context.Context, id uint64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findOutboxLocked(id)
	if err != nil {
		return err
	}
	t := at
	m.Status = models.OutboxStatusPublished
	m.PublishedAt = &t
	m.Attempts++
	return nil
}

func (s *Store) MarkOutboxFailed(_ context.Context, id uint64, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.findOutboxLocked(id)
	if err != nil {
		return err
	}
	m.Attempts++
	m.LastError = reason
	return nil
}

package memory

import (
	"context"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) GetOrCreateProgress(_ context.Context, roundID uint64) (*models.PostFinalizeProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p, ok := s.progress[roundID]; ok {
		cp := *p
		return &cp, nil
	}
	p := models.NewPostFinalizeProgress(roundID)
	p.ID = s.nextID()
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	cp := *p
	s.progress[roundID] = &cp
	return p, nil
}

func (s *Store) GetProgress(_ context.Context, roundID uint64) (*models.PostFinalizeProgress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.progress[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *Store) RecordSetupPass(_ context.Context, roundID uint64, pass store.SetupPass) (*models.PostFinalizeProgress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.progress[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	at := pass.At
	applyAttempt(pass.Vesting, &p.VestingStatus, &p.VestingRetries, &p.VestingLastError, &p.VestingCompletedAt, at)
	applyAttempt(pass.Lock, &p.LockStatus, &p.LockRetries, &p.LockLastError, &p.LockCompletedAt, at)
	if pass.LastError != "" {
		p.RetryCount++
		p.LastError = pass.LastError
	}
	if !p.Completed && p.VestingStatus == models.SetupStatusCompleted && p.LockStatus == models.SetupStatusCompleted {
		p.Completed = true
		p.CompletedAt = &at
	}
	p.UpdatedAt = time.Now()
	cp := *p
	return &cp, nil
}

func applyAttempt(a *store.SetupAttempt, status *models.SetupStatus, retries *int, lastErr *string, completedAt **time.Time, at time.Time) {
	if a == nil || *status != models.SetupStatusPending {
		return
	}
	if a.Err == "" {
		*status = models.SetupStatusCompleted
		*completedAt = &at
		return
	}
	*retries++
	*lastErr = a.Err
}

func (s *Store) GetVestingSchedule(_ context.Context, roundID uint64) (*models.VestingSchedule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.vesting[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *v
	return &cp, nil
}

func (s *Store) CreateVestingSchedule(_ context.Context, v *models.VestingSchedule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.vesting[v.RoundID]; exists {
		return store.ErrDuplicateKey
	}
	v.ID = s.nextID()
	v.CreatedAt = time.Now()
	cp := *v
	s.vesting[v.RoundID] = &cp
	return nil
}

func (s *Store) GetLiquidityLock(_ context.Context, roundID uint64) (*models.LiquidityLock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	l, ok := s.locks[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (s *Store) CreateLiquidityLock(_ context.Context, l *models.LiquidityLock) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.locks[l.RoundID]; exists {
		return store.ErrDuplicateKey
	}
	l.ID = s.nextID()
	l.CreatedAt = time.Now()
	cp := *l
	s.locks[l.RoundID] = &cp
	return nil
}

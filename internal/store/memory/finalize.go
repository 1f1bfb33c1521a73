package memory

import (
	"context"
	"sort"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

func (s *Store) GetFinalizeRequest(_ context.Context, key string) (*models.FinalizeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.requests[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (s *Store) CreateFinalizeRequest(_ context.Context, req *models.FinalizeRequest) error {
	if req == nil || req.IdempotencyKey == "" {
		return store.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.IdempotencyKey]; exists {
		return store.ErrDuplicateKey
	}
	req.ID = s.nextID()
	now := time.Now()
	req.CreatedAt, req.UpdatedAt = now, now
	cp := *req
	s.requests[req.IdempotencyKey] = &cp
	return nil
}

func (s *Store) UpdateFinalizeRequest(_ context.Context, req *models.FinalizeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.IdempotencyKey]; !exists {
		return store.ErrNotFound
	}
	req.UpdatedAt = time.Now()
	cp := *req
	s.requests[req.IdempotencyKey] = &cp
	return nil
}

func (s *Store) ListStaleFinalizeRequests(_ context.Context, cutoff time.Time) ([]*models.FinalizeRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*models.FinalizeRequest
	for _, r := range s.requests {
		if r.Status == models.FinalizeRequestBroadcast && r.UpdatedAt.Before(cutoff) {
			cp := *r
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) ReplaceMerkleProofs(_ context.Context, roundID uint64, proofs []*models.MerkleProof) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	set, err := s.proofSetLocked(roundID, proofs, time.Now())
	if err != nil {
		return err
	}
	s.proofs[roundID] = set
	return nil
}

// proofSetLocked builds the replacement proof rows for a round without installing them.
func (s *Store) proofSetLocked(roundID uint64, proofs []*models.MerkleProof, now time.Time) (map[string]*models.MerkleProof, error) {
	set := make(map[string]*models.MerkleProof, len(proofs))
	for _, p := range proofs {
		if _, dup := set[p.Beneficiary]; dup {
			return nil, store.ErrDuplicateKey
		}
		p.ID = s.nextID()
		p.RoundID = roundID
		p.CreatedAt = now
		cp := *p
		set[p.Beneficiary] = &cp
	}
	return set, nil
}

func (s *Store) GetMerkleProof(_ context.Context, roundID uint64, beneficiary string) (*models.MerkleProof, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.proofs[roundID][beneficiary]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// finalizable must be called with mu held.
func (s *Store) finalizable(roundID uint64) (*models.Round, error) {
	r, ok := s.rounds[roundID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if r.Status != models.RoundStatusEnded || r.Result != models.RoundResultNone {
		return nil, store.ErrConflict
	}
	return r, nil
}

func (s *Store) CommitFinalizeSuccess(_ context.Context, c store.SuccessCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.finalizable(c.RoundID)
	if err != nil {
		return err
	}
	if c.FeeSplit != nil {
		if _, exists := s.feeSplits[feeKey(c.FeeSplit.SourceType, c.FeeSplit.SourceID)]; exists {
			return store.ErrDuplicateKey
		}
	}
	if len(s.allocations[c.RoundID]) > 0 {
		return store.ErrDuplicateKey
	}
	now := time.Now()
	proofs, err := s.proofSetLocked(c.RoundID, c.Proofs, now)
	if err != nil {
		return err
	}

	finalizedAt := c.FinalizedAt
	raised := c.TotalRaised
	total := c.TotalAllocation
	r.Status = models.RoundStatusFinalized
	r.Result = models.RoundResultSuccess
	r.MerkleRoot = c.MerkleRoot
	r.FinalizeTxHash = c.TxHash
	r.TotalRaised = &raised
	r.TotalAllocation = &total
	r.FinalizedAt = &finalizedAt
	r.UpdatedAt = now
	s.proofs[c.RoundID] = proofs

	allocs := make([]*models.Allocation, 0, len(c.Allocations))
	for _, a := range c.Allocations {
		a.ID = s.nextID()
		a.RoundID = c.RoundID
		a.CreatedAt = now
		cp := *a
		allocs = append(allocs, &cp)
	}
	s.allocations[c.RoundID] = allocs

	if c.FeeSplit != nil {
		s.insertFeeSplitLocked(c.FeeSplit, c.ReferralEntries, now)
	}
	if c.Outbox != nil {
		s.insertOutboxLocked(c.Outbox, now)
	}
	s.completeRequestLocked(c.RequestKey, models.RoundResultSuccess, c.TxHash)
	return nil
}

func (s *Store) CommitFinalizeFailed(_ context.Context, c store.FailureCommit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, err := s.finalizable(c.RoundID)
	if err != nil {
		return err
	}
	if len(s.refunds[c.RoundID]) > 0 {
		return store.ErrDuplicateKey
	}

	now := time.Now()
	finalizedAt := c.FinalizedAt
	raised := c.TotalRaised
	r.Status = models.RoundStatusFinalized
	r.Result = models.RoundResultFailed
	r.FailReason = c.Reason
	r.FinalizeTxHash = c.TxHash
	r.TotalRaised = &raised
	r.FinalizedAt = &finalizedAt
	r.UpdatedAt = now

	refunds := make([]*models.RefundRecord, 0, len(c.Refunds))
	for _, rf := range c.Refunds {
		rf.ID = s.nextID()
		rf.RoundID = c.RoundID
		rf.CreatedAt = now
		cp := *rf
		refunds = append(refunds, &cp)
	}
	s.refunds[c.RoundID] = refunds
	s.completeRequestLocked(c.RequestKey, models.RoundResultFailed, c.TxHash)
	return nil
}

func (s *Store) completeRequestLocked(key string, result models.RoundResult, txHash string) {
	req, ok := s.requests[key]
	if !ok {
		return
	}
	req.Status = models.FinalizeRequestCompleted
	req.Result = result
	req.TxHash = txHash
	req.Error = ""
	req.UpdatedAt = time.Now()
}

func (s *Store) ListAllocations(_ context.Context, roundID uint64) ([]*models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Allocation, 0, len(s.allocations[roundID]))
	for _, a := range s.allocations[roundID] {
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

func (s *Store) ListRefunds(_ context.Context, roundID uint64) ([]*models.RefundRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.RefundRecord, 0, len(s.refunds[roundID]))
	for _, r := range s.refunds[roundID] {
		cp := *r
		out = append(out, &cp)
	}
	return out, nil
}

// Package memory is an in-memory implementation of store.Ledger. It enforces the same
// unique keys and guarded transitions as the PostgreSQL store and is used by tests and
// dry runs.
package memory

import (
	"sync"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
)

var _ store.Ledger = (*Store)(nil)

// Store holds every table in maps guarded by one mutex.
type Store struct {
	mu  sync.RWMutex
	seq uint64

	rounds        map[uint64]*models.Round
	contributions map[string]*models.Contribution // keyed by tx_hash
	wallets       map[string]uint64
	requests      map[string]*models.FinalizeRequest
	proofs        map[uint64]map[string]*models.MerkleProof
	allocations   map[uint64][]*models.Allocation
	refunds       map[uint64][]*models.RefundRecord
	feeSplits     map[string]*models.FeeSplit
	referrals     map[string][]*models.ReferralLedgerEntry
	progress      map[uint64]*models.PostFinalizeProgress
	vesting       map[uint64]*models.VestingSchedule
	locks         map[uint64]*models.LiquidityLock
	outbox        []*models.OutboxMessage
	chains        map[uint]*models.ChainConfig
	logs          []*models.SystemLog
}

// New creates an empty store.
func New() *Store {
	return &Store{
		rounds:        make(map[uint64]*models.Round),
		contributions: make(map[string]*models.Contribution),
		wallets:       make(map[string]uint64),
		requests:      make(map[string]*models.FinalizeRequest),
		proofs:        make(map[uint64]map[string]*models.MerkleProof),
		allocations:   make(map[uint64][]*models.Allocation),
		refunds:       make(map[uint64][]*models.RefundRecord),
		feeSplits:     make(map[string]*models.FeeSplit),
		referrals:     make(map[string][]*models.ReferralLedgerEntry),
		progress:      make(map[uint64]*models.PostFinalizeProgress),
		vesting:       make(map[uint64]*models.VestingSchedule),
		locks:         make(map[uint64]*models.LiquidityLock),
		chains:        make(map[uint]*models.ChainConfig),
	}
}

// nextID must be called with mu held.
func (s *Store) nextID() uint64 {
	s.seq++
	return s.seq
}

func feeKey(sourceType models.FeeSourceType, sourceID string) string {
	return string(sourceType) + "/" + sourceID
}

// SystemLogs returns a copy of the audit trail.
func (s *Store) SystemLogs() []models.SystemLog {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.SystemLog, len(s.logs))
	for i, l := range s.logs {
		out[i] = *l
	}
	return out
}

// OutboxMessages returns a copy of every outbox row.
func (s *Store) OutboxMessages() []models.OutboxMessage {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.OutboxMessage, len(s.outbox))
	for i, m := range s.outbox {
		out[i] = *m
	}
	return out
}

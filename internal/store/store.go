package store

import (
	"context"
	"time"

	"roundsettle/internal/models"

	"github.com/shopspring/decimal"
)

// RoundStore provides access to rounds. Rounds are never deleted, only transitioned.
type RoundStore interface {
	CreateRound(ctx context.Context, r *models.Round) error

	// GetRound returns ErrNotFound if the round does not exist.
	GetRound(ctx context.Context, id uint64) (*models.Round, error)

	ListRoundsByStatus(ctx context.Context, statuses ...models.RoundStatus) ([]*models.Round, error)

	// TransitionRoundStatus moves a round from one status to another. It reports false when
	// the round was not in the expected status.
	TransitionRoundStatus(ctx context.Context, id uint64, from, to models.RoundStatus) (bool, error)

	// AdvanceCheckpoint raises last_indexed_block to block; lower values are ignored.
	AdvanceCheckpoint(ctx context.Context, id uint64, block uint64) error

	// ListRoundsPendingSetup returns SUCCESS rounds without a settled timestamp.
	ListRoundsPendingSetup(ctx context.Context) ([]*models.Round, error)

	// MarkRoundSettled sets settled_at once. It reports false when already settled or not SUCCESS.
	MarkRoundSettled(ctx context.Context, id uint64, at time.Time) (bool, error)
}

// ContributionStore provides access to the append-only contribution ledger.
type ContributionStore interface {
	// InsertContribution returns ErrDuplicateKey if tx_hash exists.
	InsertContribution(ctx context.Context, c *models.Contribution) error

	ContributionExists(ctx context.Context, txHash string) (bool, error)

	// ListConfirmedContributions returns CONFIRMED rows ordered by block and log index.
	ListConfirmedContributions(ctx context.Context, roundID uint64) ([]*models.Contribution, error)
}

// WalletStore is the address registry.
type WalletStore interface {
	// ResolveWallet returns nil when the address is not linked to a user.
	ResolveWallet(ctx context.Context, address string) (*uint64, error)

	RegisterWallet(ctx context.Context, address string, userID uint64) error
}

// SuccessCommit is everything written when a SUCCESS finalize is confirmed on-chain.
type SuccessCommit struct {
	RoundID         uint64
	RequestKey      string
	MerkleRoot      string
	TxHash          string
	TotalRaised     decimal.Decimal
	TotalAllocation decimal.Decimal
	FinalizedAt     time.Time
	// Proofs replace whatever proof rows the round holds, so they always match MerkleRoot.
	Proofs          []*models.MerkleProof
	Allocations     []*models.Allocation
	FeeSplit        *models.FeeSplit
	ReferralEntries []*models.ReferralLedgerEntry
	Outbox          *models.OutboxMessage
}

// SetupAttempt is one run of a post-finalize sub-task. An empty Err means it completed.
type SetupAttempt struct {
	Err string
}

// SetupPass is what one orchestration pass did. A nil attempt means the task was not run.
type SetupPass struct {
	Vesting   *SetupAttempt
	Lock      *SetupAttempt
	LastError string
	At        time.Time
}

// FailureCommit is everything written when a FAILED finalize is confirmed on-chain.
type FailureCommit struct {
	RoundID     uint64
	RequestKey  string
	Reason      string
	TxHash      string
	TotalRaised decimal.Decimal
	FinalizedAt time.Time
	Refunds     []*models.RefundRecord
}

// FinalizeStore covers the idempotency records, proofs and the finalize commits.
type FinalizeStore interface {
	// GetFinalizeRequest returns ErrNotFound for an unknown key.
	GetFinalizeRequest(ctx context.Context, key string) (*models.FinalizeRequest, error)

	// CreateFinalizeRequest returns ErrDuplicateKey if the key exists.
	CreateFinalizeRequest(ctx context.Context, req *models.FinalizeRequest) error

	UpdateFinalizeRequest(ctx context.Context, req *models.FinalizeRequest) error

	// ListStaleFinalizeRequests returns BROADCAST requests last touched before cutoff.
	ListStaleFinalizeRequests(ctx context.Context, cutoff time.Time) ([]*models.FinalizeRequest, error)

	// ReplaceMerkleProofs swaps the round's proof set atomically.
	ReplaceMerkleProofs(ctx context.Context, roundID uint64, proofs []*models.MerkleProof) error

	GetMerkleProof(ctx context.Context, roundID uint64, beneficiary string) (*models.MerkleProof, error)

	// CommitFinalizeSuccess applies a SUCCESS outcome in one transaction. It returns ErrConflict
	// when the round is no longer ENDED with result NONE.
	CommitFinalizeSuccess(ctx context.Context, c SuccessCommit) error

	// CommitFinalizeFailed applies a FAILED outcome in one transaction, with the same guard.
	CommitFinalizeFailed(ctx context.Context, c FailureCommit) error

	ListAllocations(ctx context.Context, roundID uint64) ([]*models.Allocation, error)
	ListRefunds(ctx context.Context, roundID uint64) ([]*models.RefundRecord, error)
}

// FeeStore records fee splits and referral rewards.
type FeeStore interface {
	// RecordFeeSplit stores a split and its referral entries. Returns ErrDuplicateKey if the
	// source already has a split.
	RecordFeeSplit(ctx context.Context, split *models.FeeSplit, entries []*models.ReferralLedgerEntry) error

	GetFeeSplit(ctx context.Context, sourceType models.FeeSourceType, sourceID string) (*models.FeeSplit, error)
	ListReferralEntries(ctx context.Context, sourceType models.FeeSourceType, sourceID string) ([]*models.ReferralLedgerEntry, error)
}

// SetupStore backs the post-finalize orchestrator.
type SetupStore interface {
	// GetOrCreateProgress looks the row up by round id first and creates it only when missing.
	GetOrCreateProgress(ctx context.Context, roundID uint64) (*models.PostFinalizeProgress, error)

	GetProgress(ctx context.Context, roundID uint64) (*models.PostFinalizeProgress, error)

	// RecordSetupPass applies one pass as column-level updates, so concurrent passes over the
	// same round never lose a retry count. It returns the row as stored afterwards.
	RecordSetupPass(ctx context.Context, roundID uint64, pass SetupPass) (*models.PostFinalizeProgress, error)

	GetVestingSchedule(ctx context.Context, roundID uint64) (*models.VestingSchedule, error)
	// CreateVestingSchedule returns ErrDuplicateKey if the round already has one.
	CreateVestingSchedule(ctx context.Context, v *models.VestingSchedule) error

	GetLiquidityLock(ctx context.Context, roundID uint64) (*models.LiquidityLock, error)
	// CreateLiquidityLock returns ErrDuplicateKey if the round already has one.
	CreateLiquidityLock(ctx context.Context, l *models.LiquidityLock) error
}

// OutboxStore is the relay side of the outbox.
type OutboxStore interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]*models.OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, id uint64, at time.Time) error
	MarkOutboxFailed(ctx context.Context, id uint64, reason string) error
}

// ChainConfigStore holds per-chain RPC settings.
type ChainConfigStore interface {
	ListChainConfigs(ctx context.Context) ([]*models.ChainConfig, error)
	GetChainConfig(ctx context.Context, id uint) (*models.ChainConfig, error)
	GetChainConfigByChainID(ctx context.Context, chainID uint64) (*models.ChainConfig, error)
	// SaveChainConfig creates or updates by primary key. Returns ErrDuplicateKey on chain id clash.
	SaveChainConfig(ctx context.Context, c *models.ChainConfig) error
}

// SystemLogFilter selects one page of audit records, newest first. Zero fields match all.
type SystemLogFilter struct {
	RoundID  uint64
	Level    string
	Module   string
	Page     int
	PageSize int
}

// AuditStore appends and pages operator-facing audit records.
type AuditStore interface {
	AppendSystemLog(ctx context.Context, l *models.SystemLog) error
	// ListSystemLogs returns the requested page and the total number of matching rows.
	ListSystemLogs(ctx context.Context, f SystemLogFilter) ([]*models.SystemLog, int64, error)
}

// Ledger is the full persistence surface of the settlement engine.
type Ledger interface {
	RoundStore
	ContributionStore
	WalletStore
	FinalizeStore
	FeeStore
	SetupStore
	OutboxStore
	ChainConfigStore
	AuditStore
}

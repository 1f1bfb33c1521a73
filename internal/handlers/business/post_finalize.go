package business

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/observability"
	"roundsettle/internal/store"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

const (
	TaskVesting = "vesting"
	TaskLock    = "liquidity_lock"
)

// SetupStep is one post-finalize sub-task. Run must be safe to repeat: it checks for an
// existing artifact before creating one.
type SetupStep interface {
	Name() string
	Run(ctx context.Context, round *models.Round) error
}

// VestingSetup creates the round's vesting schedule from its Merkle commitment.
type VestingSetup struct {
	ledger store.SetupStore
	Now    func() time.Time
}

func NewVestingSetup(ledger store.SetupStore) *VestingSetup {
	return &VestingSetup{ledger: ledger, Now: time.Now}
}

func (v *VestingSetup) Name() string { return TaskVesting }

func (v *VestingSetup) Run(ctx context.Context, round *models.Round) error {
	if _, err := v.ledger.GetVestingSchedule(ctx, round.ID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if round.MerkleRoot == "" || round.TotalAllocation == nil {
		return fmt.Errorf("round %d has no merkle commitment", round.ID)
	}
	if round.VestingVault == "" {
		return fmt.Errorf("round %d has no vesting vault", round.ID)
	}

	tge := v.Now().UTC()
	if round.FinalizedAt != nil {
		tge = *round.FinalizedAt
	}
	cliffDays, durationDays := round.Params.VestingTerms()
	err := v.ledger.CreateVestingSchedule(ctx, &models.VestingSchedule{
		RoundID:         round.ID,
		VaultAddress:    round.VestingVault,
		MerkleRoot:      round.MerkleRoot,
		TotalAllocation: *round.TotalAllocation,
		TGEAt:           tge,
		CliffSeconds:    int64(cliffDays) * 86400,
		DurationSeconds: int64(durationDays) * 86400,
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil
	}
	return err
}

// LockSetup records the liquidity lock for the round's LP share of the raise.
type LockSetup struct {
	ledger store.SetupStore
	Now    func() time.Time
}

func NewLockSetup(ledger store.SetupStore) *LockSetup {
	return &LockSetup{ledger: ledger, Now: time.Now}
}

func (l *LockSetup) Name() string { return TaskLock }

func (l *LockSetup) Run(ctx context.Context, round *models.Round) error {
	if _, err := l.ledger.GetLiquidityLock(ctx, round.ID); err == nil {
		return nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return err
	}
	if round.TotalRaised == nil {
		return fmt.Errorf("round %d has no recorded total raised", round.ID)
	}
	bps, lockDays := round.Params.LockTerms()
	if bps == 0 {
		return fmt.Errorf("round %d has no liquidity share configured", round.ID)
	}

	amount := round.TotalRaised.Mul(decimal.NewFromInt(int64(bps))).Div(decimal.NewFromInt(10000)).Floor()
	now := l.Now().UTC()
	err := l.ledger.CreateLiquidityLock(ctx, &models.LiquidityLock{
		RoundID:         round.ID,
		LiquidityAmount: amount,
		LiquidityBps:    bps,
		LockedAt:        now,
		UnlockAt:        now.AddDate(0, 0, int(lockDays)),
	})
	if errors.Is(err, store.ErrDuplicateKey) {
		return nil
	}
	return err
}

// PostFinalizeSummary reports one pass over pending rounds.
type PostFinalizeSummary struct {
	Checked int `json:"checked"`
	Settled int `json:"settled"`
	Failed  int `json:"failed"`
}

// PostFinalizeOrchestrator drives SUCCESS rounds through vesting and lock setup. The
// progress rows are the durable retry state; every pass re-attempts what is not complete.
type PostFinalizeOrchestrator struct {
	ledger  store.Ledger
	vesting SetupStep
	lock    SetupStep
	logger  logrus.FieldLogger
	metrics *observability.Metrics
	Now     func() time.Time
}

func NewPostFinalizeOrchestrator(ledger store.Ledger, vesting, lock SetupStep, logger logrus.FieldLogger, metrics *observability.Metrics) *PostFinalizeOrchestrator {
	return &PostFinalizeOrchestrator{
		ledger:  ledger,
		vesting: vesting,
		lock:    lock,
		logger:  logger,
		metrics: metrics,
		Now:     time.Now,
	}
}

// RunOnce processes every SUCCESS round that is not yet settled. A failing round does not
// stop the pass.
func (o *PostFinalizeOrchestrator) RunOnce(ctx context.Context) (*PostFinalizeSummary, error) {
	rounds, err := o.ledger.ListRoundsPendingSetup(ctx)
	if err != nil {
		return nil, fmt.Errorf("list rounds pending setup: %w", err)
	}
	summary := &PostFinalizeSummary{}
	for _, r := range rounds {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}
		summary.Checked++
		p, err := o.RunRound(ctx, r.ID)
		if err != nil {
			summary.Failed++
			o.logger.WithError(err).WithField("round_id", r.ID).Warn("> post-finalize setup incomplete")
			continue
		}
		if p.Completed {
			summary.Settled++
		}
	}
	return summary, nil
}

// RunRound attempts the incomplete sub-tasks of one round and applies the success gate.
// It returns a *SetupRetryableError when a sub-task failed; the progress row records it.
func (o *PostFinalizeOrchestrator) RunRound(ctx context.Context, roundID uint64) (*models.PostFinalizeProgress, error) {
	round, err := o.ledger.GetRound(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, preconditionf("round %d not found", roundID)
	}
	if err != nil {
		return nil, err
	}
	if round.Result != models.RoundResultSuccess {
		return nil, preconditionf("round %d result is %s", roundID, round.Result)
	}

	p, err := o.ledger.GetOrCreateProgress(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load progress: %w", err)
	}
	if p.Completed && round.SettledAt != nil {
		return p, nil
	}

	log := o.logger.WithField("round_id", roundID)
	now := o.Now().UTC()
	pass := store.SetupPass{At: now}
	var failures []string

	if p.VestingStatus != models.SetupStatusCompleted {
		pass.Vesting = o.attempt(ctx, o.vesting, round, &failures)
		if pass.Vesting.Err == "" {
			log.Info("> vesting schedule ready")
		}
	}
	if p.LockStatus != models.SetupStatusCompleted {
		pass.Lock = o.attempt(ctx, o.lock, round, &failures)
		if pass.Lock.Err == "" {
			log.Info("> liquidity lock ready")
		}
	}
	pass.LastError = strings.Join(failures, "; ")

	p, err = o.ledger.RecordSetupPass(ctx, roundID, pass)
	if err != nil {
		return nil, fmt.Errorf("record setup pass: %w", err)
	}
	if len(failures) > 0 {
		log.WithField("retry_count", p.RetryCount).Warn("> 后置任务失败，等待下次重试")
		return p, &SetupRetryableError{RoundID: roundID, Task: "post-finalize", Err: errors.New(pass.LastError)}
	}

	settled, err := o.applyGate(ctx, roundID, now)
	if err != nil {
		return p, err
	}
	if settled {
		o.metrics.RoundSettled()
		log.Info("> round settled")
	}
	return p, nil
}

func (o *PostFinalizeOrchestrator) attempt(ctx context.Context, task SetupStep, round *models.Round, failures *[]string) *store.SetupAttempt {
	err := task.Run(ctx, round)
	o.metrics.SetupAttempt(task.Name(), err != nil)
	if err != nil {
		*failures = append(*failures, task.Name()+": "+err.Error())
		return &store.SetupAttempt{Err: err.Error()}
	}
	return &store.SetupAttempt{}
}

// applyGate stamps settled_at only when the result is SUCCESS and both artifacts exist.
func (o *PostFinalizeOrchestrator) applyGate(ctx context.Context, roundID uint64, at time.Time) (bool, error) {
	round, err := o.ledger.GetRound(ctx, roundID)
	if err != nil {
		return false, err
	}
	if round.Result != models.RoundResultSuccess {
		return false, nil
	}
	if _, err := o.ledger.GetVestingSchedule(ctx, roundID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := o.ledger.GetLiquidityLock(ctx, roundID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return o.ledger.MarkRoundSettled(ctx, roundID, at)
}

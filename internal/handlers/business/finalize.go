package business

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/observability"
	"roundsettle/internal/store"
	"roundsettle/pkg/evm"
	"roundsettle/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
)

const defaultFailReason = "soft cap not reached"

// FinalizeInput is one administrative finalize call.
type FinalizeInput struct {
	RoundID        uint64
	IdempotencyKey string
	// Expect, when set, rejects the call if the chain state implies the other outcome.
	Expect models.RoundResult
	// Reason is sent with finalizeFailed. Defaults to defaultFailReason.
	Reason string
}

// FinalizeOutcome is returned for fresh and replayed calls alike.
type FinalizeOutcome struct {
	RoundID         uint64             `json:"round_id"`
	Result          models.RoundResult `json:"result"`
	MerkleRoot      string             `json:"merkle_root,omitempty"`
	TotalRaised     string             `json:"total_raised,omitempty"`
	TotalAllocation string             `json:"total_allocation,omitempty"`
	TxHash          string             `json:"tx_hash"`
	Replayed        bool               `json:"replayed"`
}

// FinalizeOrchestrator drives ENDED rounds to FINALIZED. The on-chain call is always
// confirmed before the ledger is written.
type FinalizeOrchestrator struct {
	ledger         store.Ledger
	chains         Chains
	lock           SignerLock
	fees           utils.FeeConfig
	receiptTimeout time.Duration
	logger         logrus.FieldLogger
	metrics        *observability.Metrics
	Now            func() time.Time
}

func NewFinalizeOrchestrator(ledger store.Ledger, chains Chains, lock SignerLock, fees utils.FeeConfig, receiptTimeout time.Duration, logger logrus.FieldLogger, metrics *observability.Metrics) *FinalizeOrchestrator {
	if receiptTimeout <= 0 {
		receiptTimeout = 5 * time.Minute
	}
	return &FinalizeOrchestrator{
		ledger:         ledger,
		chains:         chains,
		lock:           lock,
		fees:           fees,
		receiptTimeout: receiptTimeout,
		logger:         logger,
		metrics:        metrics,
		Now:            time.Now,
	}
}

// Finalize runs or resumes the finalize flow for in.IdempotencyKey.
func (f *FinalizeOrchestrator) Finalize(ctx context.Context, in FinalizeInput) (*FinalizeOutcome, error) {
	out, err := f.finalize(ctx, in)
	if err != nil {
		f.metrics.FinalizeError(ErrorKind(err))
		return nil, err
	}
	f.metrics.FinalizeOutcome(string(out.Result), out.Replayed)
	return out, nil
}

func (f *FinalizeOrchestrator) finalize(ctx context.Context, in FinalizeInput) (*FinalizeOutcome, error) {
	if in.IdempotencyKey == "" {
		return nil, preconditionf("idempotency key is required")
	}
	if in.Expect != "" && in.Expect != models.RoundResultSuccess && in.Expect != models.RoundResultFailed {
		return nil, preconditionf("unknown expected result %q", in.Expect)
	}

	req, err := f.ledger.GetFinalizeRequest(ctx, in.IdempotencyKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
		req = nil
	case err != nil:
		return nil, fmt.Errorf("load finalize request: %w", err)
	}
	if req != nil {
		if out, done, err := f.replay(req, in); done {
			return out, err
		}
	} else if _, err := f.checkRound(ctx, in.RoundID); err != nil {
		return nil, err
	}

	release, err := f.lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	// Re-read under the lock; another caller may have moved the request or the round.
	if req != nil {
		req, err = f.ledger.GetFinalizeRequest(ctx, in.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("reload finalize request: %w", err)
		}
		if out, done, err := f.replay(req, in); done {
			return out, err
		}
	}
	round, err := f.checkRound(ctx, in.RoundID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		if req, err = f.createRequest(ctx, in); err != nil {
			return nil, err
		}
	}
	reader, err := f.chains.Reader(ctx, round.ChainID)
	if err != nil {
		return nil, err
	}

	log := f.logger.WithFields(logrus.Fields{"round_id": round.ID, "idempotency_key": req.IdempotencyKey})
	if req.Status == models.FinalizeRequestBroadcast && req.TxHash != "" {
		log.WithField("tx_hash", req.TxHash).Info("> resuming broadcast finalize")
		return f.confirmAndCommit(ctx, log, reader, round, req)
	}
	return f.execute(ctx, log, reader, round, req, in)
}

// replay handles keys that already reached a terminal state, or belong to another round.
func (f *FinalizeOrchestrator) replay(req *models.FinalizeRequest, in FinalizeInput) (*FinalizeOutcome, bool, error) {
	if req.RoundID != in.RoundID {
		return nil, true, preconditionf("idempotency key %q belongs to round %d", req.IdempotencyKey, req.RoundID)
	}
	switch req.Status {
	case models.FinalizeRequestCompleted:
		out := outcomeFromRequest(req)
		out.Replayed = true
		return out, true, nil
	case models.FinalizeRequestReverted:
		return nil, true, &OnChainRevertError{TxHash: req.TxHash, Reason: req.Error}
	}
	return nil, false, nil
}

func (f *FinalizeOrchestrator) checkRound(ctx context.Context, roundID uint64) (*models.Round, error) {
	round, err := f.ledger.GetRound(ctx, roundID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, preconditionf("round %d not found", roundID)
	}
	if err != nil {
		return nil, fmt.Errorf("load round %d: %w", roundID, err)
	}
	if round.Result != models.RoundResultNone {
		return nil, preconditionf("round %d already finalized with result %s", roundID, round.Result)
	}
	if round.Status != models.RoundStatusEnded {
		return nil, preconditionf("round %d is %s, not ENDED", roundID, round.Status)
	}
	return round, nil
}

func (f *FinalizeOrchestrator) createRequest(ctx context.Context, in FinalizeInput) (*models.FinalizeRequest, error) {
	req := &models.FinalizeRequest{
		IdempotencyKey: in.IdempotencyKey,
		RoundID:        in.RoundID,
		Status:         models.FinalizeRequestPending,
		Result:         models.RoundResultNone,
	}
	err := f.ledger.CreateFinalizeRequest(ctx, req)
	if errors.Is(err, store.ErrDuplicateKey) {
		// Lost a race with a caller holding a different lock instance.
		existing, gerr := f.ledger.GetFinalizeRequest(ctx, in.IdempotencyKey)
		if gerr != nil {
			return nil, gerr
		}
		if existing.Status != models.FinalizeRequestPending {
			return nil, preconditionf("idempotency key %q is already %s", in.IdempotencyKey, existing.Status)
		}
		return existing, nil
	}
	if err != nil {
		return nil, fmt.Errorf("create finalize request: %w", err)
	}
	return req, nil
}

// execute reads chain state, decides the outcome, signs, records the hash, broadcasts,
// then confirms and commits.
func (f *FinalizeOrchestrator) execute(ctx context.Context, log logrus.FieldLogger, reader ChainReader, round *models.Round, req *models.FinalizeRequest, in FinalizeInput) (*FinalizeOutcome, error) {
	contract := addressOf(round.ContractAddress)
	state, err := reader.RoundState(ctx, contract)
	if err != nil {
		return nil, &TransientChainError{Op: "round state", Err: err}
	}
	if state.Status.Finalized() {
		return nil, preconditionf("contract %s is already %s but no finalize transaction is recorded for round %d", round.ContractAddress, state.Status, round.ID)
	}
	if state.Status != evm.OnChainEnded {
		return nil, preconditionf("contract %s reports %s, not ENDED", round.ContractAddress, state.Status)
	}

	contributions, err := f.ledger.ListConfirmedContributions(ctx, round.ID)
	if err != nil {
		return nil, fmt.Errorf("list contributions: %w", err)
	}
	if sum := ledgerSum(contributions); sum.Cmp(state.TotalRaised) != 0 {
		return nil, preconditionf("ledger total %s differs from on-chain totalRaised %s; index the round first", sum, state.TotalRaised)
	}

	success := state.TotalRaised.Cmp(state.SoftCap) >= 0
	result := models.RoundResultFailed
	if success {
		result = models.RoundResultSuccess
	}
	if in.Expect != "" && in.Expect != result {
		return nil, preconditionf("expected %s but raised %s against soft cap %s gives %s", in.Expect, state.TotalRaised, state.SoftCap, result)
	}

	signer, err := f.chains.Signer(ctx, round.ChainID)
	if err != nil {
		return nil, err
	}

	raised := decimal.NewFromBigInt(state.TotalRaised, 0)
	req.Result = result
	req.TotalRaised = &raised

	var tx *types.Transaction
	if success {
		salt, err := utils.NewSalt()
		if err != nil {
			return nil, err
		}
		plan, err := buildAllocationPlan(round, contributions, salt)
		if err != nil {
			return nil, err
		}
		proofs, err := plan.proofRecords(salt)
		if err != nil {
			return nil, err
		}
		if err := f.ledger.ReplaceMerkleProofs(ctx, round.ID, proofs); err != nil {
			return nil, fmt.Errorf("store merkle proofs: %w", err)
		}
		total := decimal.NewFromBigInt(plan.Total, 0)
		req.Salt = salt.Hex()
		req.MerkleRoot = plan.Tree.Root.Hex()
		req.TotalAllocation = &total

		tx, err = signer.SignFinalizeSuccess(ctx, contract, plan.Tree.Root, plan.Total)
		if err != nil {
			return nil, &OnChainRevertError{Reason: err.Error()}
		}
	} else {
		req.Reason = in.Reason
		if req.Reason == "" {
			req.Reason = defaultFailReason
		}
		tx, err = signer.SignFinalizeFailed(ctx, contract, req.Reason)
		if err != nil {
			return nil, &OnChainRevertError{Reason: err.Error()}
		}
	}

	// The hash is durable before the transaction leaves the process.
	req.TxHash = tx.Hash().Hex()
	req.Status = models.FinalizeRequestBroadcast
	if err := f.ledger.UpdateFinalizeRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("record finalize tx: %w", err)
	}
	f.audit(ctx, round.ID, "INFO", fmt.Sprintf("finalize %s broadcast", result), map[string]interface{}{
		"tx_hash": req.TxHash, "merkle_root": req.MerkleRoot, "total_raised": raised.String(), "soft_cap": state.SoftCap.String(),
	})

	log = log.WithFields(logrus.Fields{"tx_hash": req.TxHash, "result": result})
	log.Info("> 广播 finalize 交易")
	if err := signer.SendTransaction(ctx, tx); err != nil {
		log.WithError(err).Error("finalize broadcast failed")
		return nil, &OnChainRevertError{TxHash: req.TxHash, Reason: "broadcast failed: " + err.Error()}
	}
	return f.confirmAndCommit(ctx, log, reader, round, req)
}

// confirmAndCommit waits for the recorded transaction and applies the outcome to the ledger.
// It is also the resume path for a request left in BROADCAST.
func (f *FinalizeOrchestrator) confirmAndCommit(ctx context.Context, log logrus.FieldLogger, reader ChainReader, round *models.Round, req *models.FinalizeRequest) (*FinalizeOutcome, error) {
	waitCtx, cancel := context.WithTimeout(ctx, f.receiptTimeout)
	receipt, err := reader.WaitReceipt(waitCtx, common.HexToHash(req.TxHash))
	cancel()
	if err != nil {
		return nil, &OnChainRevertError{TxHash: req.TxHash, Reason: "not confirmed: " + err.Error()}
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		req.Status = models.FinalizeRequestReverted
		req.Error = fmt.Sprintf("transaction reverted in block %s", receipt.BlockNumber)
		if err := f.ledger.UpdateFinalizeRequest(ctx, req); err != nil {
			log.WithError(err).Error("failed to record reverted finalize")
		}
		f.audit(ctx, round.ID, "ERROR", "finalize reverted", map[string]interface{}{"tx_hash": req.TxHash})
		return nil, &OnChainRevertError{TxHash: req.TxHash, Reason: req.Error}
	}

	finalizedAt := f.Now().UTC()
	var commitErr error
	switch req.Result {
	case models.RoundResultSuccess:
		commitErr = f.commitSuccess(ctx, round, req, finalizedAt)
	case models.RoundResultFailed:
		commitErr = f.commitFailed(ctx, round, req, finalizedAt)
	default:
		commitErr = fmt.Errorf("request %s has no intended result", req.IdempotencyKey)
	}
	if commitErr != nil {
		if errors.Is(commitErr, store.ErrConflict) {
			return nil, preconditionf("round %d changed state before commit", round.ID)
		}
		var pre *PreconditionError
		if errors.As(commitErr, &pre) {
			return nil, commitErr
		}
		log.WithError(commitErr).Error("finalize confirmed on-chain but ledger commit failed")
		return nil, &ReconciliationGapError{RoundID: round.ID, TxHash: req.TxHash, Err: commitErr}
	}

	log.Info("> finalize 完成")
	f.audit(ctx, round.ID, "INFO", fmt.Sprintf("round finalized %s", req.Result), map[string]interface{}{"tx_hash": req.TxHash})
	req.Status = models.FinalizeRequestCompleted
	return outcomeFromRequest(req), nil
}

func (f *FinalizeOrchestrator) commitSuccess(ctx context.Context, round *models.Round, req *models.FinalizeRequest, finalizedAt time.Time) error {
	contributions, err := f.ledger.ListConfirmedContributions(ctx, round.ID)
	if err != nil {
		return err
	}
	// Rebuild from the stored salt. Another key may have replaced the proof rows since this
	// request signed, so the commit writes this plan's proofs again.
	salt := common.HexToHash(req.Salt)
	plan, err := buildAllocationPlan(round, contributions, salt)
	if err != nil {
		return err
	}
	if plan.Tree.Root.Hex() != req.MerkleRoot {
		return preconditionf("recomputed root %s does not match signed root %s for round %d", plan.Tree.Root.Hex(), req.MerkleRoot, round.ID)
	}
	proofs, err := plan.proofRecords(salt)
	if err != nil {
		return err
	}

	if req.TotalRaised == nil {
		return fmt.Errorf("request %s has no recorded total raised", req.IdempotencyKey)
	}
	fee, err := utils.FeeFromRaised(req.TotalRaised.BigInt(), f.fees)
	if err != nil {
		return err
	}
	split, entries, err := feePlan(models.FeeSourceRound, roundSourceID(round.ID), fee, f.fees, contributions)
	if err != nil {
		return err
	}
	msg, err := postFinalizeMessage(round.ID)
	if err != nil {
		return err
	}

	return f.ledger.CommitFinalizeSuccess(ctx, store.SuccessCommit{
		RoundID:         round.ID,
		RequestKey:      req.IdempotencyKey,
		MerkleRoot:      req.MerkleRoot,
		TxHash:          req.TxHash,
		TotalRaised:     *req.TotalRaised,
		TotalAllocation: decimal.NewFromBigInt(plan.Total, 0),
		FinalizedAt:     finalizedAt,
		Proofs:          proofs,
		Allocations:     plan.allocationRows(),
		FeeSplit:        split,
		ReferralEntries: entries,
		Outbox:          msg,
	})
}

func (f *FinalizeOrchestrator) commitFailed(ctx context.Context, round *models.Round, req *models.FinalizeRequest, finalizedAt time.Time) error {
	contributions, err := f.ledger.ListConfirmedContributions(ctx, round.ID)
	if err != nil {
		return err
	}
	raised := decimal.Zero
	if req.TotalRaised != nil {
		raised = *req.TotalRaised
	}
	return f.ledger.CommitFinalizeFailed(ctx, store.FailureCommit{
		RoundID:     round.ID,
		RequestKey:  req.IdempotencyKey,
		Reason:      req.Reason,
		TxHash:      req.TxHash,
		TotalRaised: raised,
		FinalizedAt: finalizedAt,
		Refunds:     refundRows(contributions),
	})
}

func (f *FinalizeOrchestrator) audit(ctx context.Context, roundID uint64, level, message string, meta map[string]interface{}) {
	raw, _ := json.Marshal(meta)
	err := f.ledger.AppendSystemLog(ctx, &models.SystemLog{
		RoundID: roundID,
		Level:   level,
		Message: message,
		Module:  "finalize",
		Meta:    datatypes.JSON(raw),
	})
	if err != nil {
		f.logger.WithError(err).Warn("failed to append audit log")
	}
}

func outcomeFromRequest(req *models.FinalizeRequest) *FinalizeOutcome {
	out := &FinalizeOutcome{
		RoundID:    req.RoundID,
		Result:     req.Result,
		MerkleRoot: req.MerkleRoot,
		TxHash:     req.TxHash,
	}
	if req.TotalRaised != nil {
		out.TotalRaised = req.TotalRaised.String()
	}
	if req.TotalAllocation != nil {
		out.TotalAllocation = req.TotalAllocation.String()
	}
	return out
}

package business

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/observability"
	"roundsettle/internal/store"
	"roundsettle/pkg/evm"

	"github.com/alitto/pond/v2"
	"github.com/puzpuzpuz/xsync/v4"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// DefaultChunkSize bounds each eth_getLogs range.
const DefaultChunkSize uint64 = 5000

// IndexerConfig 索引器配置
type IndexerConfig struct {
	ChunkSize     uint64
	Confirmations uint64
	Workers       int
}

// IndexResult reports one round's scan.
type IndexResult struct {
	RoundID      uint64   `json:"round_id"`
	FromBlock    uint64   `json:"from_block"`
	ToBlock      uint64   `json:"to_block"`
	Found        int      `json:"found"`
	Inserted     int      `json:"inserted"`
	Duplicates   int      `json:"duplicates"`
	ChunksFailed int      `json:"chunks_failed"`
	Errors       []string `json:"errors,omitempty"`
	Checkpoint   uint64   `json:"checkpoint"`
}

// ContributionIndexer copies Contributed events into the ledger.
type ContributionIndexer struct {
	ledger  store.Ledger
	chains  Chains
	cfg     IndexerConfig
	logger  logrus.FieldLogger
	metrics *observability.Metrics
}

func NewContributionIndexer(ledger store.Ledger, chains Chains, cfg IndexerConfig, logger logrus.FieldLogger, metrics *observability.Metrics) *ContributionIndexer {
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	return &ContributionIndexer{
		ledger:  ledger,
		chains:  chains,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
	}
}

func indexable(status models.RoundStatus) bool {
	switch status {
	case models.RoundStatusActive, models.RoundStatusEnded, models.RoundStatusFinalized:
		return true
	}
	return false
}

// IndexRound scans one round from sinceBlock (or its checkpoint when nil) up to the
// confirmed head. Chunk and insert failures are collected in the result, not returned.
func (x *ContributionIndexer) IndexRound(ctx context.Context, roundID uint64, sinceBlock *uint64) (*IndexResult, error) {
	round, err := x.ledger.GetRound(ctx, roundID)
	if err != nil {
		return nil, fmt.Errorf("load round %d: %w", roundID, err)
	}
	if !indexable(round.Status) {
		return nil, preconditionf("round %d is %s", roundID, round.Status)
	}

	reader, err := x.chains.Reader(ctx, round.ChainID)
	if err != nil {
		return nil, err
	}
	head, err := reader.BlockNumber(ctx)
	if err != nil {
		x.metrics.IndexError("head")
		return nil, &TransientChainError{Op: "eth_blockNumber", Err: err}
	}

	confirmations := x.confirmations(ctx, round.ChainID)
	result := &IndexResult{RoundID: roundID, Checkpoint: round.LastIndexedBlock}
	if head < confirmations {
		return result, nil
	}
	to := head - confirmations

	next := round.DeployBlock
	if round.LastIndexedBlock >= next && round.LastIndexedBlock > 0 {
		next = round.LastIndexedBlock + 1
	}
	from := next
	if sinceBlock != nil {
		from = *sinceBlock
	}
	// A start past the resume point leaves a gap behind it; such a scan never moves the checkpoint.
	contiguous := from <= next
	result.FromBlock, result.ToBlock = from, to
	if from > to {
		return result, nil
	}

	log := x.logger.WithFields(logrus.Fields{"round_id": roundID, "chain_id": round.ChainID})
	log.Infof("> 扫描区块 %d - %d", from, to)

	contract := addressOf(round.ContractAddress)
	blockTimes := make(map[uint64]time.Time)

	for start := from; start <= to; start += x.cfg.ChunkSize {
		end := start + x.cfg.ChunkSize - 1
		if end > to || end < start {
			end = to
		}

		events, err := reader.FilterContributions(ctx, contract, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.WithError(err).WithFields(logrus.Fields{"from_block": start, "to_block": end}).Warn("chunk scan failed, skipping")
			x.metrics.IndexError("chunk")
			result.ChunksFailed++
			result.Errors = append(result.Errors, (&TransientChainError{Op: fmt.Sprintf("eth_getLogs %d-%d", start, end), Err: err}).Error())
			contiguous = false
			continue
		}

		chunkClean := true
		for _, ev := range events {
			result.Found++
			err := x.record(ctx, round, reader, ev, blockTimes)
			switch {
			case err == nil:
				result.Inserted++
			case errors.Is(err, ErrDuplicateEvent):
				result.Duplicates++
			default:
				chunkClean = false
				x.metrics.IndexError("insert")
				result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", ev.TxHash.Hex(), err))
				log.WithError(err).WithField("tx_hash", ev.TxHash.Hex()).Error("failed to record contribution")
			}
		}

		// The checkpoint only covers the fully processed prefix so skipped chunks are rescanned.
		if contiguous && chunkClean {
			if err := x.ledger.AdvanceCheckpoint(ctx, roundID, end); err != nil {
				return result, fmt.Errorf("advance checkpoint: %w", err)
			}
			if end > result.Checkpoint {
				result.Checkpoint = end
			}
		} else {
			contiguous = false
		}
	}

	x.metrics.IndexedEvents(result.Found, result.Inserted, result.Duplicates)
	x.metrics.Checkpoint(strconv.FormatUint(roundID, 10), result.Checkpoint)
	log.Infof("> 完成: found=%d inserted=%d duplicates=%d errors=%d", result.Found, result.Inserted, result.Duplicates, len(result.Errors))
	return result, nil
}

func (x *ContributionIndexer) confirmations(ctx context.Context, chainID uint64) uint64 {
	cfg, err := x.ledger.GetChainConfigByChainID(ctx, chainID)
	if err == nil && cfg.Confirmations > 0 {
		return cfg.Confirmations
	}
	return x.cfg.Confirmations
}

// record writes one event. It returns ErrDuplicateEvent when the tx hash is already stored.
func (x *ContributionIndexer) record(ctx context.Context, round *models.Round, reader ChainReader, ev evm.ContributionEvent, blockTimes map[uint64]time.Time) error {
	txHash := ev.TxHash.Hex()
	exists, err := x.ledger.ContributionExists(ctx, txHash)
	if err != nil {
		return err
	}
	if exists {
		return ErrDuplicateEvent
	}
	if ev.Amount == nil || ev.Amount.Sign() <= 0 {
		return fmt.Errorf("non-positive amount")
	}

	confirmedAt, ok := blockTimes[ev.BlockNumber]
	if !ok {
		confirmedAt, err = reader.BlockTime(ctx, ev.BlockNumber)
		if err != nil {
			return &TransientChainError{Op: "block time", Err: err}
		}
		blockTimes[ev.BlockNumber] = confirmedAt
	}

	wallet := ev.Wallet.Hex()
	userID, err := x.ledger.ResolveWallet(ctx, wallet)
	if err != nil {
		return fmt.Errorf("resolve wallet: %w", err)
	}

	c := &models.Contribution{
		RoundID:     round.ID,
		Wallet:      wallet,
		UserID:      userID,
		Amount:      decimal.NewFromBigInt(ev.Amount, 0),
		TxHash:      txHash,
		BlockNumber: ev.BlockNumber,
		LogIndex:    ev.LogIndex,
		ConfirmedAt: confirmedAt,
		Status:      models.ContributionStatusConfirmed,
	}
	if ev.HasReferrer() {
		c.ReferrerWallet = ev.Referrer.Hex()
		if c.ReferrerUserID, err = x.ledger.ResolveWallet(ctx, c.ReferrerWallet); err != nil {
			return fmt.Errorf("resolve referrer: %w", err)
		}
	}

	if err := x.ledger.InsertContribution(ctx, c); err != nil {
		if errors.Is(err, store.ErrDuplicateKey) {
			return ErrDuplicateEvent
		}
		return err
	}
	return nil
}

// IndexAll indexes every ACTIVE and ENDED round. Rounds run concurrently on a bounded
// pool; each round's chunks stay sequential.
func (x *ContributionIndexer) IndexAll(ctx context.Context) ([]*IndexResult, error) {
	started := time.Now()
	rounds, err := x.ledger.ListRoundsByStatus(ctx, models.RoundStatusActive, models.RoundStatusEnded)
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	if len(rounds) == 0 {
		return nil, nil
	}

	pool := pond.NewPool(x.cfg.Workers, pond.WithQueueSize(len(rounds)))
	defer pool.StopAndWait()
	group := pool.NewGroupContext(ctx)
	groupCtx := group.Context()

	results := xsync.NewMap[uint64, *IndexResult]()
	for _, r := range rounds {
		roundID := r.ID
		group.Submit(func() {
			if groupCtx.Err() != nil {
				return
			}
			res, err := x.IndexRound(groupCtx, roundID, nil)
			if err != nil {
				x.logger.WithError(err).WithField("round_id", roundID).Warn("round index failed")
				res = &IndexResult{RoundID: roundID, Errors: []string{err.Error()}}
			}
			results.Store(roundID, res)
		})
	}
	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, pond.ErrGroupStopped) {
		x.logger.WithError(err).Warn("index group finished with error")
	}

	out := make([]*IndexResult, 0, results.Size())
	results.Range(func(_ uint64, res *IndexResult) bool {
		out = append(out, res)
		return true
	})
	sort.Slice(out, func(i, j int) bool { return out[i].RoundID < out[j].RoundID })
	x.metrics.IndexRun(time.Since(started).Seconds())
	return out, ctx.Err()
}

// RoundStatusSweeper moves rounds through UPCOMING -> ACTIVE -> ENDED by wall clock.
type RoundStatusSweeper struct {
	ledger store.RoundStore
	logger logrus.FieldLogger
	Now    func() time.Time
}

func NewRoundStatusSweeper(ledger store.RoundStore, logger logrus.FieldLogger) *RoundStatusSweeper {
	return &RoundStatusSweeper{ledger: ledger, logger: logger, Now: time.Now}
}

// Sweep applies every due transition and returns how many rounds were activated and ended.
func (s *RoundStatusSweeper) Sweep(ctx context.Context) (activated, ended int, err error) {
	now := s.Now()
	rounds, err := s.ledger.ListRoundsByStatus(ctx, models.RoundStatusUpcoming, models.RoundStatusActive)
	if err != nil {
		return 0, 0, err
	}
	for _, r := range rounds {
		status := r.Status
		if status == models.RoundStatusUpcoming && !now.Before(r.StartAt) {
			ok, err := s.ledger.TransitionRoundStatus(ctx, r.ID, models.RoundStatusUpcoming, models.RoundStatusActive)
			if err != nil {
				return activated, ended, err
			}
			if ok {
				activated++
				status = models.RoundStatusActive
				s.logger.WithField("round_id", r.ID).Info("> round activated")
			}
		}
		if status == models.RoundStatusActive && !now.Before(r.EndAt) {
			ok, err := s.ledger.TransitionRoundStatus(ctx, r.ID, models.RoundStatusActive, models.RoundStatusEnded)
			if err != nil {
				return activated, ended, err
			}
			if ok {
				ended++
				s.logger.WithField("round_id", r.ID).Info("> round ended")
			}
		}
	}
	return activated, ended, nil
}

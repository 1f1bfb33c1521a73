// Package bootstrap wires settings, persistence, brokers and chain access into the
// settlement services shared by every binary.
package bootstrap

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"

	"roundsettle/internal/handlers/business"
	"roundsettle/internal/observability"
	"roundsettle/internal/store"
	"roundsettle/internal/store/gormstore"
	"roundsettle/internal/store/memory"
	"roundsettle/pkg/config"
	"roundsettle/pkg/evm"
	"roundsettle/pkg/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Options selects which optional collaborators a process needs.
type Options struct {
	// UseMemory runs on the in-memory ledger instead of PostgreSQL.
	UseMemory bool
	// RequireSigner fails startup without SIGNER_KEYSTORE. Otherwise the key is loaded
	// only when configured and finalize calls fail with evm.ErrNoSigner.
	RequireSigner bool
	// Broker connects to RabbitMQ when it is configured.
	Broker bool
}

// App holds the constructed services. Fields for collaborators that were not requested
// or not configured are nil.
type App struct {
	Settings config.Settings
	Logger   *logrus.Logger
	Metrics  *observability.Metrics
	Registry *prometheus.Registry

	DB     *gorm.DB
	Ledger store.Ledger
	Redis  *redis.Client
	AMQP   *amqp.Connection

	Chains business.Chains
	Fees   utils.FeeConfig

	Indexer      *business.ContributionIndexer
	Sweeper      *business.RoundStatusSweeper
	Finalizer    *business.FinalizeOrchestrator
	PostFinalize *business.PostFinalizeOrchestrator
	SwapFees     *business.SwapFeeSettler
	Stale        *business.StaleFinalizeSweep
	Outbox       *business.OutboxRelay

	closers []func() error
}

// New builds the App for the named process.
func New(ctx context.Context, name string, opts Options) (*App, error) {
	settings := config.LoadSettings()
	logger := config.InitLogger(name)
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	a := &App{
		Settings: settings,
		Logger:   logger,
		Registry: reg,
		Metrics:  observability.NewMetrics(reg),
		Fees: utils.FeeConfig{
			TreasuryBps: settings.FeeTreasuryBps,
			ReferralBps: settings.FeeReferralBps,
			StakingBps:  settings.FeeStakingBps,
		},
	}
	if err := a.Fees.Validate(); err != nil {
		return nil, fmt.Errorf("fee config: %w", err)
	}

	if opts.UseMemory {
		a.Ledger = memory.New()
		logger.Warn("> using in-memory ledger, nothing will be persisted")
	} else {
		db, err := config.NewDB(settings)
		if err != nil {
			return nil, err
		}
		a.DB = db
		a.Ledger = gormstore.New(db)
		if sqlDB, err := db.DB(); err == nil {
			a.closers = append(a.closers, sqlDB.Close)
		}
	}

	var key *ecdsa.PrivateKey
	if opts.RequireSigner && settings.SignerKeystore == "" {
		a.Close()
		return nil, errors.New("SIGNER_KEYSTORE is required for this process")
	}
	if settings.SignerKeystore != "" {
		k, err := evm.NewKeyManager("").LoadKeyStoreFile(settings.SignerKeystore, settings.SignerPassword)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("load signer: %w", err)
		}
		key = k
	}
	a.Chains = business.RegistryChains{Registry: evm.NewRegistry(a.endpointLookup, key, logger)}

	rdb, err := config.NewRedis(ctx, settings)
	if err != nil {
		a.Close()
		return nil, err
	}
	var lock business.SignerLock = business.NewLocalSignerLock()
	if rdb != nil {
		a.Redis = rdb
		a.closers = append(a.closers, rdb.Close)
		lock = business.NewRedisSignerLock(rdb, "finalize", settings.SignerLockTTL)
	}

	if opts.Broker && settings.RabbitMQURL() != "" {
		conn, err := config.DialRabbitMQ(settings.RabbitMQURL(), logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.AMQP = conn
		a.closers = append(a.closers, conn.Close)

		pub, err := config.NewPublisher(conn)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("create publisher: %w", err)
		}
		a.closers = append(a.closers, pub.Close)
		a.Outbox = business.NewOutboxRelay(a.Ledger, pub, settings.OutboxBatch, logger, a.Metrics)
	}

	a.Indexer = business.NewContributionIndexer(a.Ledger, a.Chains, business.IndexerConfig{
		ChunkSize:     settings.IndexChunkSize,
		Confirmations: settings.IndexConfirmations,
		Workers:       settings.IndexWorkers,
	}, logger, a.Metrics)
	a.Sweeper = business.NewRoundStatusSweeper(a.Ledger, logger)
	a.Finalizer = business.NewFinalizeOrchestrator(a.Ledger, a.Chains, lock, a.Fees, settings.TxReceiptTimeout, logger, a.Metrics)
	a.PostFinalize = business.NewPostFinalizeOrchestrator(a.Ledger, business.NewVestingSetup(a.Ledger), business.NewLockSetup(a.Ledger), logger, a.Metrics)
	a.SwapFees = business.NewSwapFeeSettler(a.Ledger, a.Fees, logger)
	a.Stale = business.NewStaleFinalizeSweep(a.Ledger, settings.StaleFinalizeAfter, logger, a.Metrics)
	return a, nil
}

// endpointLookup resolves RPC endpoints from the chain_configs table.
func (a *App) endpointLookup(ctx context.Context, chainID uint64) (string, error) {
	cfg, err := a.Ledger.GetChainConfigByChainID(ctx, chainID)
	if err != nil {
		return "", err
	}
	if !cfg.IsActive {
		return "", fmt.Errorf("chain %d is disabled", chainID)
	}
	return cfg.RpcEndpoint, nil
}

// Close releases connections in reverse order of acquisition.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

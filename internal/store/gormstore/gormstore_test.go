package gormstore

import (
	"context"
	"testing"
	"time"

	"roundsettle/internal/models"
	"roundsettle/internal/store"
	"roundsettle/internal/store/storetest"
	"roundsettle/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	gormpg "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB starts PostgreSQL in a container and applies the embedded migrations.
func setupTestDB(t *testing.T) *Store {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("roundsettle"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := gorm.Open(gormpg.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, config.ExecuteMigrations(db))
	return New(db)
}

func TestLedger(t *testing.T) {
	s := setupTestDB(t)
	storetest.Run(t, s)

	t.Run("migrations roll back and reapply", func(t *testing.T) {
		require.NoError(t, config.RollbackMigration(s.DB()))
		assert.False(t, s.DB().Migrator().HasTable(&models.Round{}))
		require.NoError(t, config.ExecuteMigrations(s.DB()))
		assert.True(t, s.DB().Migrator().HasTable(&models.Round{}))
		require.NoError(t, config.ExecuteMigrations(s.DB()), "no change is not an error")
	})
}

func TestFeeSplitConservationConstraint(t *testing.T) {
	s := setupTestDB(t)
	err := s.RecordFeeSplit(context.Background(), &models.FeeSplit{
		SourceType: models.FeeSourceSwap, SourceID: "unbalanced",
		TotalAmount: decimal.NewFromInt(100), Treasury: decimal.NewFromInt(50), ReferralPool: decimal.NewFromInt(40), Staking: decimal.NewFromInt(5),
	}, nil)
	require.Error(t, err, "the schema rejects splits that do not sum to the total")

	_, err = s.GetFeeSplit(context.Background(), models.FeeSourceSwap, "unbalanced")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

package config

import (
	"fmt"
	"time"

	"roundsettle/pkg/utils"
)

// Settings is read once from the environment at process start.
type Settings struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPassword string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	Port           string
	AllowedOrigins []string
	AdminToken     string
	AdminJWTSecret string
	RateLimitRPS   int
	RateLimitBurst int

	IndexChunkSize     uint64
	IndexConfirmations uint64
	IndexWorkers       int
	IndexCron          string

	PostFinalizeCron   string
	OutboxBatch        int
	StaleFinalizeAfter time.Duration

	FeeTreasuryBps uint32
	FeeReferralBps uint32
	FeeStakingBps  uint32

	SignerKeystore   string
	SignerPassword   string
	TxReceiptTimeout time.Duration
	SignerLockTTL    time.Duration
}

// LoadSettings reads every setting with its default.
func LoadSettings() Settings {
	return Settings{
		DBHost:     utils.Env("DB_HOST", "localhost"),
		DBPort:     utils.Env("DB_PORT", "5432"),
		DBUser:     utils.Env("DB_USER", "postgres"),
		DBPassword: utils.Env("DB_PASSWORD", ""),
		DBName:     utils.Env("DB_NAME", "roundsettle"),
		DBSSLMode:  utils.Env("DB_SSLMODE", "disable"),

		RabbitMQHost:     utils.Env("RABBITMQ_HOST", ""),
		RabbitMQPort:     utils.Env("RABBITMQ_PORT", "5672"),
		RabbitMQUser:     utils.Env("RABBITMQ_USER", "guest"),
		RabbitMQPassword: utils.Env("RABBITMQ_PASSWORD", "guest"),

		RedisHost:     utils.Env("REDIS_HOST", ""),
		RedisPort:     utils.Env("REDIS_PORT", "6379"),
		RedisPassword: utils.Env("REDIS_PASSWORD", ""),
		RedisDB:       utils.EnvInt("REDIS_DB", 0),

		Port:           utils.Env("PORT", "8080"),
		AllowedOrigins: utils.EnvList("ALLOWED_ORIGINS"),
		AdminToken:     utils.Env("ADMIN_TOKEN", ""),
		AdminJWTSecret: utils.Env("ADMIN_JWT_SECRET", ""),
		RateLimitRPS:   utils.EnvInt("RATE_LIMIT_RPS", 5),
		RateLimitBurst: utils.EnvInt("RATE_LIMIT_BURST", 10),

		IndexChunkSize:     utils.EnvUint64("INDEX_CHUNK_SIZE", 5000),
		IndexConfirmations: utils.EnvUint64("INDEX_CONFIRMATIONS", 3),
		IndexWorkers:       utils.EnvInt("INDEX_WORKERS", 4),
		IndexCron:          utils.Env("INDEX_CRON", "0 */2 * * * *"),

		PostFinalizeCron:   utils.Env("POST_FINALIZE_CRON", "30 * * * * *"),
		OutboxBatch:        utils.EnvInt("OUTBOX_BATCH", 100),
		StaleFinalizeAfter: utils.EnvDuration("STALE_FINALIZE_AFTER", 30*time.Minute),

		FeeTreasuryBps: uint32(utils.EnvUint64("FEE_TREASURY_BPS", 250)),
		FeeReferralBps: uint32(utils.EnvUint64("FEE_REFERRAL_BPS", 200)),
		FeeStakingBps:  uint32(utils.EnvUint64("FEE_STAKING_BPS", 50)),

		SignerKeystore:   utils.Env("SIGNER_KEYSTORE", ""),
		SignerPassword:   utils.Env("SIGNER_PASSWORD", ""),
		TxReceiptTimeout: utils.EnvDuration("TX_RECEIPT_TIMEOUT", 5*time.Minute),
		SignerLockTTL:    utils.EnvDuration("SIGNER_LOCK_TTL", 10*time.Minute),
	}
}

// PostgresDSN builds the DSN for gorm and golang-migrate.
func (s Settings) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		s.DBHost, s.DBUser, s.DBPassword, s.DBName, s.DBPort, s.DBSSLMode)
}

// RabbitMQURL is empty when RabbitMQ is not configured.
func (s Settings) RabbitMQURL() string {
	if s.RabbitMQHost == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/", s.RabbitMQUser, s.RabbitMQPassword, s.RabbitMQHost, s.RabbitMQPort)
}

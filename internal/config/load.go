package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
)

// Load reads .env (if present) and the process environment over the
// defaults. Unparseable values fall back to the default for that key.
func Load() *Config {
	_ = godotenv.Load(".env")

	cfg := NewDefaultConfig()

	cfg.ServiceName = cast.ToString(getOrReturnDefault("SERVICE_NAME", cfg.ServiceName))
	cfg.LogLevel = cast.ToString(getOrReturnDefault("LOG_LEVEL", cfg.LogLevel))

	cfg.Server.Port = fmt.Sprintf(":%d", cast.ToInt(getOrReturnDefault("HTTP_PORT", 8080)))
	cfg.Server.ReadTimeout = durationOr("HTTP_READ_TIMEOUT", cfg.Server.ReadTimeout)
	cfg.Server.WriteTimeout = durationOr("HTTP_WRITE_TIMEOUT", cfg.Server.WriteTimeout)
	cfg.Server.ShutdownTimeout = durationOr("HTTP_SHUTDOWN_TIMEOUT", cfg.Server.ShutdownTimeout)
	cfg.Server.MaxUploadBytes = cast.ToInt64(getOrReturnDefault("MAX_UPLOAD_BYTES", cfg.Server.MaxUploadBytes))

	cfg.Auth.Bypass = cast.ToBool(getOrReturnDefault("AUTH_BYPASS", cfg.Auth.Bypass))
	cfg.Auth.JWTSecret = cast.ToString(getOrReturnDefault("JWT_SECRET", cfg.Auth.JWTSecret))

	cfg.Storage.Backend = cast.ToString(getOrReturnDefault("STORAGE_BACKEND", cfg.Storage.Backend))
	cfg.Storage.MigrationsPath = cast.ToString(getOrReturnDefault("MIGRATIONS_PATH", cfg.Storage.MigrationsPath))
	cfg.Storage.Postgres.Host = cast.ToString(getOrReturnDefault("POSTGRES_HOST", cfg.Storage.Postgres.Host))
	cfg.Storage.Postgres.Port = cast.ToString(getOrReturnDefault("POSTGRES_PORT", cfg.Storage.Postgres.Port))
	cfg.Storage.Postgres.User = cast.ToString(getOrReturnDefault("POSTGRES_USER", cfg.Storage.Postgres.User))
	cfg.Storage.Postgres.Password = cast.ToString(getOrReturnDefault("POSTGRES_PASSWORD", cfg.Storage.Postgres.Password))
	cfg.Storage.Postgres.Database = cast.ToString(getOrReturnDefault("POSTGRES_DB", cfg.Storage.Postgres.Database))
	cfg.Storage.Postgres.SSLMode = cast.ToString(getOrReturnDefault("POSTGRES_SSLMODE", cfg.Storage.Postgres.SSLMode))
	cfg.Storage.Postgres.MaxConns = cast.ToInt32(getOrReturnDefault("POSTGRES_MAX_CONNS", cfg.Storage.Postgres.MaxConns))

	cfg.Files.Backend = cast.ToString(getOrReturnDefault("FILES_BACKEND", cfg.Files.Backend))
	cfg.Files.Bucket = cast.ToString(getOrReturnDefault("S3_BUCKET", cfg.Files.Bucket))
	cfg.Files.Region = cast.ToString(getOrReturnDefault("S3_REGION", cfg.Files.Region))
	cfg.Files.PublicBaseURL = cast.ToString(getOrReturnDefault("FILES_PUBLIC_BASE_URL", cfg.Files.PublicBaseURL))

	cfg.Messaging.AMQPURL = cast.ToString(getOrReturnDefault("AMQP_URL", cfg.Messaging.AMQPURL))
	cfg.Messaging.AMQPExchange = cast.ToString(getOrReturnDefault("AMQP_EXCHANGE", cfg.Messaging.AMQPExchange))
	cfg.Messaging.TelegramToken = cast.ToString(getOrReturnDefault("TG_BOT_TOKEN", cfg.Messaging.TelegramToken))
	cfg.Messaging.TelegramOpsChat = cast.ToInt64(getOrReturnDefault("TG_OPS_CHAT_ID", cfg.Messaging.TelegramOpsChat))
	cfg.Messaging.PublishTimeout = durationOr("PUBLISH_TIMEOUT", cfg.Messaging.PublishTimeout)

	cfg.Scheduling.DefaultJobDuration = durationOr("DEFAULT_JOB_DURATION", cfg.Scheduling.DefaultJobDuration)
	cfg.Scheduling.AcceptLockTTL = durationOr("ACCEPT_LOCK_TTL", cfg.Scheduling.AcceptLockTTL)

	cfg.Geo.PickupCellPrecision = cast.ToInt(getOrReturnDefault("PICKUP_CELL_PRECISION", cfg.Geo.PickupCellPrecision))

	return cfg
}

// ErrMissingJWTSecret is returned by Validate when token auth is on without a
// signing secret.
var ErrMissingJWTSecret = errors.New("JWT_SECRET is required when AUTH_BYPASS is false")

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	if !c.Auth.Bypass && c.Auth.JWTSecret == "" {
		return ErrMissingJWTSecret
	}
	return nil
}

// URL renders the connection string shared by pgx and migrate.
func (c PostgresConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

func getOrReturnDefault(key string, defaultValue interface{}) interface{} {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func durationOr(key string, def time.Duration) time.Duration {
	v, err := cast.ToDurationE(getOrReturnDefault(key, def))
	if err != nil {
		return def
	}
	return v
}

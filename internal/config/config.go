// Package config centralizes all application configuration into typed structs.
//
// Defaults live in NewDefaultConfig; Load layers environment variables (and an
// optional .env file) on top of them. Every other package receives the values
// it needs through its constructor, so nothing reads the environment after
// startup.
package config

import (
	"time"
)

// Storage and file backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendS3       = "s3"
)

// Config is the top-level configuration container.
type Config struct {
	ServiceName string
	LogLevel    string

	Server     ServerConfig
	Auth       AuthConfig
	Storage    StorageConfig
	Files      FilesConfig
	Messaging  MessagingConfig
	Scheduling SchedulingConfig
	Geo        GeoConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
}

// AuthConfig controls the request authentication stub. With Bypass on, the
// bearer token is taken as the caller id ("vendor-1", "driver-7", "admin-1").
// With Bypass off, it must be an HS256 JWT signed with JWTSecret.
type AuthConfig struct {
	Bypass    bool
	JWTSecret string
}

// StorageConfig selects the job/driver repository backend.
type StorageConfig struct {
	Backend        string
	Postgres       PostgresConfig
	MigrationsPath string
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int32
}

// FilesConfig selects where proof photos and verification videos go.
type FilesConfig struct {
	Backend       string
	Bucket        string
	Region        string
	PublicBaseURL string
}

// MessagingConfig configures the notification channels. Empty values disable
// the corresponding channel; the log channel is always on.
type MessagingConfig struct {
	AMQPURL         string
	AMQPExchange    string
	TelegramToken   string
	TelegramOpsChat int64
	PublishTimeout  time.Duration
}

// SchedulingConfig holds the availability rules.
type SchedulingConfig struct {
	DefaultJobDuration time.Duration // window length when a job has no return time
	AcceptLockTTL      time.Duration // per-driver lock held while an accept is in flight
}

// GeoConfig controls the geohash precision of job pickup cells. Precision 5
// cells are about 5 km across, so the 3x3 neighbourhood covers ~15 km.
type GeoConfig struct {
	PickupCellPrecision int
}

// NewDefaultConfig returns a Config populated with development defaults:
// in-memory storage, auth bypass, log-only notifications.
func NewDefaultConfig() *Config {
	return &Config{
		ServiceName: "uturn",
		LogLevel:    "info",
		Server: ServerConfig{
			Port:            ":8080",
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MaxUploadBytes:  50 << 20,
		},
		Auth: AuthConfig{
			Bypass: true,
		},
		Storage: StorageConfig{
			Backend: BackendMemory,
			Postgres: PostgresConfig{
				Host:     "localhost",
				Port:     "5432",
				User:     "postgres",
				Password: "postgres",
				Database: "uturn",
				SSLMode:  "disable",
				MaxConns: 10,
			},
			MigrationsPath: "migrations",
		},
		Files: FilesConfig{
			Backend:       BackendMemory,
			Region:        "ap-south-1",
			PublicBaseURL: "http://localhost:8080/files",
		},
		Messaging: MessagingConfig{
			AMQPExchange:   "uturn.notifications",
			PublishTimeout: 5 * time.Second,
		},
		Scheduling: SchedulingConfig{
			DefaultJobDuration: 4 * time.Hour,
			AcceptLockTTL:      10 * time.Second,
		},
		Geo: GeoConfig{
			PickupCellPrecision: 5,
		},
	}
}

package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Port          string `env:"PORT,           default=8080"`
	Env           string `env:"ENV,            default=development"`
	LogLevel      string `env:"LOG_LEVEL,      default=info"`
	SessionSecret string `env:"SESSION_SECRET"`

	Auth     AuthConfig
	Sessions SessionConfig
	Mongo    MongoConfig
	Redis    RedisConfig
}

type AuthConfig struct {
	BcryptCost       int           `env:"BCRYPT_COST,       default=12"`
	HashWorkers      int           `env:"HASH_WORKERS,      default=4"`
	LockoutThreshold int           `env:"LOCKOUT_THRESHOLD, default=5"`
	LockoutWindow    time.Duration `env:"LOCKOUT_WINDOW,    default=15m"`
	LockoutDuration  time.Duration `env:"LOCKOUT_DURATION,  default=15m"`
	ThrottleLimit    int           `env:"THROTTLE_LIMIT,    default=10"`
	ThrottleWindow   time.Duration `env:"THROTTLE_WINDOW,   default=1m"`
}

type SessionConfig struct {
	TrustedTTL   time.Duration `env:"SESSION_TTL_TRUSTED,   default=720h"`
	UntrustedTTL time.Duration `env:"SESSION_TTL_UNTRUSTED, default=30m"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=inbox_system"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

// IsProduction reports whether the service runs with production hardening
// (secure cookies, JSON logs).
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Load reads configuration from environment variables using go-envconfig.
func Load() *Config {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		panic(fmt.Sprintf("config: failed to load configuration: %v", err))
	}
	return &cfg
}

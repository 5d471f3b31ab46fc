package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	APIBaseURL     string        `envconfig:"POS_API_BASE_URL" default:"http://localhost:3001"`
	RequestTimeout time.Duration `envconfig:"POS_REQUEST_TIMEOUT" default:"10s"`

	LogLevel  string `envconfig:"POS_LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"POS_LOG_FORMAT" default:"console"`

	RedisAddr     string `envconfig:"POS_REDIS_ADDR"`
	RedisPassword string `envconfig:"POS_REDIS_PASSWORD"`
	RedisDB       int    `envconfig:"POS_REDIS_DB" default:"0"`

	// Injected session context: populated at login by the entry screen,
	// consumed read-only by the panel.
	SessionToken  string `envconfig:"POS_SESSION_TOKEN"`
	SessionUserID int64  `envconfig:"POS_SESSION_USER_ID"`
	SessionRole   int    `envconfig:"POS_SESSION_ROLE" default:"3"`
}

// Load reads the optional .env file and the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sirupsen/logrus"
)

type Config struct {
	ServerAddr     string        `env:"SERVER_ADDR" envDefault:":8080"`
	DBDriver       string        `env:"DB_DRIVER" envDefault:"mysql"`
	DBDSN          string        `env:"DB_DSN" envDefault:"root:root@tcp(localhost:3306)/xfriends?charset=utf8mb4"`
	JWTSecret      string        `env:"JWT_SECRET" envDefault:"xfriends-secret-key-change-in-production"`
	TokenTTL       time.Duration `env:"TOKEN_TTL" envDefault:"168h"`
	UploadDir      string        `env:"UPLOAD_DIR" envDefault:"./uploads"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	SearchInterval time.Duration `env:"SEARCH_INTERVAL" envDefault:"1s"`
	SearchMaxLimit int           `env:"SEARCH_MAX_LIMIT" envDefault:"100"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
}

// ClientConfig drives cmd/friends-console.
type ClientConfig struct {
	BaseURL        string        `env:"XFRIENDS_URL" envDefault:"http://localhost:8080"`
	Username       string        `env:"XFRIENDS_USERNAME"`
	Password       string        `env:"XFRIENDS_PASSWORD"`
	RequestTimeout time.Duration `env:"XFRIENDS_REQUEST_TIMEOUT" envDefault:"10s"`
	SearchDelay    time.Duration `env:"XFRIENDS_SEARCH_DELAY" envDefault:"1s"`
	SearchMinLen   int           `env:"XFRIENDS_SEARCH_MIN_LENGTH" envDefault:"3"`
	ReloadSettle   time.Duration `env:"XFRIENDS_RELOAD_SETTLE" envDefault:"0s"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"warn"`
}

var Cfg *Config

func Load() error {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))
	switch cfg.DBDriver {
	case "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
	if cfg.SearchMaxLimit <= 0 {
		return fmt.Errorf("SEARCH_MAX_LIMIT must be positive")
	}
	Cfg = cfg
	return nil
}

func LoadClient() (*ClientConfig, error) {
	cfg := &ClientConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.SearchMinLen < 1 {
		cfg.SearchMinLen = 1
	}
	return cfg, nil
}

// SetupLogging applies a textual level to the global logrus logger.
func SetupLogging(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		logrus.WithField("level", level).Warn("unknown log level, using info")
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
}

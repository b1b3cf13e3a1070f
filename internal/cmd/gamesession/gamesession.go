// Package gamesession parses game session command flags and launches the
// coordinator runtime.
package gamesession

import (
	"context"
	"flag"
	"time"

	entrypoint "github.com/louisbranch/gamesession/internal/platform/cmd"
	"github.com/louisbranch/gamesession/internal/platform/discovery"
	gamesessionapp "github.com/louisbranch/gamesession/internal/services/gamesession/app"
)

// Config holds game session command configuration.
type Config struct {
	Port             int           `env:"GAMESESSION_PORT" envDefault:"8092"`
	OracleAddr       string        `env:"GAMESESSION_ORACLE_ADDR"`
	DBPath           string        `env:"GAMESESSION_DB_PATH" envDefault:"data/gamesession.db"`
	BlockInterval    time.Duration `env:"GAMESESSION_BLOCK_INTERVAL" envDefault:"1s"`
	MaxQueueDepth    int           `env:"GAMESESSION_MAX_QUEUE_DEPTH" envDefault:"4096"`
	OracleTimeout    time.Duration `env:"GAMESESSION_ORACLE_TIMEOUT" envDefault:"2s"`
	OracleMaxRetries uint          `env:"GAMESESSION_ORACLE_MAX_RETRIES" envDefault:"3"`
	AuthHMACKey      string        `env:"GAMESESSION_AUTH_HMAC_KEY"`
	GRPCDialTimeout  time.Duration `env:"GAMESESSION_DIAL_TIMEOUT" envDefault:"2s"`
}

// ParseConfig parses environment and flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}
	cfg.OracleAddr = discovery.OrDefaultGRPCAddr(cfg.OracleAddr, discovery.ServiceWordle)
	fs.IntVar(&cfg.Port, "port", cfg.Port, "The game session gRPC server port")
	fs.StringVar(&cfg.OracleAddr, "oracle-addr", cfg.OracleAddr, "The word oracle gRPC server address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The game results SQLite database path")
	fs.DurationVar(&cfg.BlockInterval, "block-interval", cfg.BlockInterval, "Duration of one logical block")
	fs.IntVar(&cfg.MaxQueueDepth, "max-queue-depth", cfg.MaxQueueDepth, "Maximum pending messages before sends are refused")
	fs.DurationVar(&cfg.OracleTimeout, "oracle-timeout", cfg.OracleTimeout, "Per-attempt oracle request timeout")
	fs.UintVar(&cfg.OracleMaxRetries, "oracle-max-retries", cfg.OracleMaxRetries, "Oracle retries after the first attempt")
	fs.DurationVar(&cfg.GRPCDialTimeout, "dial-timeout", cfg.GRPCDialTimeout, "gRPC dependency dial timeout")
	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the game session runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceGameSession, func(context.Context) error {
		return gamesessionapp.Run(ctx, gamesessionapp.RuntimeConfig{
			Port:             cfg.Port,
			OracleAddr:       cfg.OracleAddr,
			DBPath:           cfg.DBPath,
			BlockInterval:    cfg.BlockInterval,
			MaxQueueDepth:    cfg.MaxQueueDepth,
			OracleTimeout:    cfg.OracleTimeout,
			OracleMaxRetries: cfg.OracleMaxRetries,
			AuthHMACKey:      cfg.AuthHMACKey,
			GRPCDialTimeout:  cfg.GRPCDialTimeout,
		})
	})
}

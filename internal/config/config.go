// Package config loads the block producer's runtime configuration from
// flags, environment variables, and an optional config file, generalizing
// cmd/ccoind's flat Config struct (cmd/ccoind/main.go) onto
// viper/pflag so every setting also binds to a BLOCKPRODUCER_-prefixed
// environment variable: the flag name upper-cased with dashes as
// underscores (BLOCKPRODUCER_SERVER_BATCH_SIZE, BLOCKPRODUCER_STORE_ENDPOINT).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the block producer daemon's runtime settings.
type Config struct {
	// BatchSize is the number of transactions the tx queue accumulates
	// before building a batch (SERVER_BATCH_SIZE).
	BatchSize int
	// BuildBatchFrequency bounds how long a non-empty tx queue waits
	// before building a batch on its own (SERVER_BUILD_BATCH_FREQUENCY).
	BuildBatchFrequency time.Duration
	// BlockFrequency bounds how long pending batches wait before a block
	// is assembled (SERVER_BLOCK_FREQUENCY).
	BlockFrequency time.Duration
	// MaxBatchesPerBlock is the batch-count trigger for immediate block
	// assembly (SERVER_MAX_BATCHES_PER_BLOCK).
	MaxBatchesPerBlock int
	// StoreEndpoint is the gRPC address of the store service.
	StoreEndpoint string
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string
}

const envPrefix = "BLOCKPRODUCER"

// Load parses args (typically os.Args[1:]) and the process environment into
// a Config, applying documented defaults where neither is set.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("block-producer", pflag.ContinueOnError)

	fs.Int("server-batch-size", 2, "transactions per batch before an early build")
	fs.Duration("server-build-batch-frequency", 2*time.Second, "max wait before building a non-empty batch")
	fs.Duration("server-block-frequency", 10*time.Second, "max wait before assembling a non-empty block")
	fs.Int("server-max-batches-per-block", 4, "batch count that triggers immediate block assembly")
	fs.String("store-endpoint", "127.0.0.1:50051", "store service gRPC address")
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("config", "", "optional config file path")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("config: parsing flags: %w", err)
	}

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(fs); err != nil {
		return nil, fmt.Errorf("config: binding flags: %w", err)
	}

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
	}

	cfg := &Config{
		BatchSize:           v.GetInt("server-batch-size"),
		BuildBatchFrequency: v.GetDuration("server-build-batch-frequency"),
		BlockFrequency:      v.GetDuration("server-block-frequency"),
		MaxBatchesPerBlock:  v.GetInt("server-max-batches-per-block"),
		StoreEndpoint:       v.GetString("store-endpoint"),
		LogLevel:            v.GetString("log-level"),
	}
	return cfg, cfg.validate()
}

func (c *Config) validate() error {
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: server-batch-size must be positive, got %d", c.BatchSize)
	}
	if c.MaxBatchesPerBlock <= 0 {
		return fmt.Errorf("config: server-max-batches-per-block must be positive, got %d", c.MaxBatchesPerBlock)
	}
	if c.StoreEndpoint == "" {
		return fmt.Errorf("config: store-endpoint must not be empty")
	}
	return nil
}

package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(nil)
	require.NoError(t, err)
	require.Equal(t, 2, cfg.BatchSize)
	require.Equal(t, 2*time.Second, cfg.BuildBatchFrequency)
	require.Equal(t, 10*time.Second, cfg.BlockFrequency)
	require.Equal(t, 4, cfg.MaxBatchesPerBlock)
	require.Equal(t, "127.0.0.1:50051", cfg.StoreEndpoint)
}

func TestLoad_FlagsOverrideDefaults(t *testing.T) {
	cfg, err := Load([]string{"--server-batch-size=8", "--store-endpoint=store:9000"})
	require.NoError(t, err)
	require.Equal(t, 8, cfg.BatchSize)
	require.Equal(t, "store:9000", cfg.StoreEndpoint)
}

func TestLoad_RejectsNonPositiveBatchSize(t *testing.T) {
	_, err := Load([]string{"--server-batch-size=0"})
	require.Error(t, err)
}

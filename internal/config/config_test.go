package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
rpc: https://rpc.example.org
pg-dsn: postgres://localhost/stamps
contracts:
  - name: postage
    type: postageStamp
    address: "0x1111111111111111111111111111111111111111"
    deployment_block: 25527075
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	assert.Equal(t, uint64(10000), cfg.ChunkSize)
	assert.Equal(t, 5.0, cfg.BlockTimeSeconds)
	assert.Equal(t, uint64(100), cfg.FreshnessWindow)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.InitialDelay)
	assert.Equal(t, 2.0, cfg.BackoffMultiplier)
	assert.Equal(t, time.Minute, cfg.ExtendedRetryWait)
	assert.Equal(t, 10*time.Millisecond, cfg.BalanceRequestDelay)

	require.Len(t, cfg.Contracts, 1)
	assert.Equal(t, "postage", cfg.Contracts[0].Name)
	assert.Equal(t, "postageStamp", cfg.Contracts[0].Type)
	assert.Equal(t, uint64(25527075), cfg.Contracts[0].DeploymentBlock)

	assert.NoError(t, cfg.Validate())
}

func TestLoadMultipleContracts(t *testing.T) {
	path := writeConfig(t, `
rpc: https://rpc.example.org
pg-dsn: postgres://localhost/stamps
contracts:
  - name: postage
    type: postageStamp
    address: "0x1111111111111111111111111111111111111111"
    deployment_block: 25527075
  - name: registry
    type: stampsRegistry
    address: "0x4444444444444444444444444444444444444444"
    deployment_block: 31000000
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	require.Len(t, cfg.Contracts, 2)
	assert.Equal(t, "stampsRegistry", cfg.Contracts[1].Type)
}

func TestValidateRejectsIncomplete(t *testing.T) {
	cfg := Config{}
	assert.Error(t, cfg.Validate())

	cfg = Config{RPCURL: "https://rpc", PostgresDSN: "postgres://x", ChunkSize: 100, BlockTimeSeconds: 5}
	assert.Error(t, cfg.Validate(), "missing contracts")

	cfg.Contracts = []Contract{{Name: "postage"}}
	assert.NoError(t, cfg.Validate())
}

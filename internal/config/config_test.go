package config

import (
	"testing"
	"time"

	"github.com/gagliardetto/solana-go/rpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/address"
	"luckysol/internal/guard"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, rpc.DevNet_RPC, cfg.Endpoint())
	assert.Equal(t, address.DefaultProgramID, cfg.ProgramKey())
	assert.True(t, cfg.PlatformFeeKey().IsZero())
	assert.Equal(t, 30*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 15*time.Second, cfg.GuardTTLs[guard.ActionBuyTicket])
	assert.Zero(t, cfg.GuardBucket, "bucketing is off unless configured")
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("RPC_URL", "http://127.0.0.1:8899")
	t.Setenv("PLATFORM_FEE_ADDRESS", "SysvarRent111111111111111111111111111111111")
	t.Setenv("FEE_BUFFER_LAMPORTS", "5000")
	t.Setenv("CONFIRM_TIMEOUT_SEC", "10")
	t.Setenv("CONFIRM_POLL_MS", "250")
	t.Setenv("GUARD_TTL_PAYOUT_SEC", "90")
	t.Setenv("GUARD_BUCKET_SEC", "20")
	t.Setenv("RPC_RATE_BURST", "oops")

	cfg := Load()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "http://127.0.0.1:8899", cfg.Endpoint())
	assert.Equal(t, "SysvarRent111111111111111111111111111111111", cfg.PlatformFeeKey().String())
	assert.Equal(t, uint64(5000), cfg.FeeBufferLamports)
	assert.Equal(t, 10*time.Second, cfg.ConfirmTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.ConfirmPoll)
	assert.Equal(t, 90*time.Second, cfg.GuardTTLs[guard.ActionPayout])
	assert.Equal(t, 20*time.Second, cfg.GuardBucket)
	assert.Equal(t, 5, cfg.RPCRateBurst, "unparsable values fall back to the default")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		want   string
	}{
		{"bad program id", func(c *Config) { c.ProgramID = "not-base58!" }, "PROGRAM_ID"},
		{"bad platform fee", func(c *Config) { c.PlatformFeeAddress = "xyz" }, "PLATFORM_FEE_ADDRESS"},
		{"bad commitment", func(c *Config) { c.Commitment = "eventually" }, "COMMITMENT"},
		{"poll above timeout", func(c *Config) { c.ConfirmPoll = time.Minute }, "CONFIRM_POLL_MS"},
		{"zero ttl", func(c *Config) { c.GuardTTLs[guard.ActionBuyTicket] = 0 }, "guard TTL"},
		{"negative bucket", func(c *Config) { c.GuardBucket = -time.Second }, "GUARD_BUCKET_SEC"},
		{"empty rpc", func(c *Config) { c.RPCURL = "" }, "RPC_URL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Load()
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}
}

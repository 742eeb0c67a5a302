package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/address"
	"luckysol/internal/balance"
	"luckysol/internal/guard"
	"luckysol/internal/ledger"
)

type Config struct {
	// RPC endpoint URL or cluster name (devnet, testnet, mainnet, localnet)
	RPCURL string

	// Lottery program and the platform wallet receiving payout fees
	ProgramID          string
	PlatformFeeAddress string

	// solana-keygen JSON file used to sign writes
	KeypairPath string

	// Commitment level for reads and confirmation (processed, confirmed, finalized)
	Commitment string

	// Lamports kept aside for fees when checking balances
	FeeBufferLamports uint64

	// Confirmation polling
	ConfirmTimeout time.Duration
	ConfirmPoll    time.Duration

	// RPC pacing ( 0 disables the limiter )
	RPCRateLimit float64
	RPCRateBurst int

	// Duplicate submission suppression window per action
	GuardTTLs map[guard.Action]time.Duration

	// Fingerprint time bucket, 0 disables bucketing
	GuardBucket time.Duration

	// Snapshot store, optional
	DatabaseURL  string
	SyncInterval time.Duration

	// Read API
	APIPort string

	LogLevel string

	programID   solana.PublicKey
	platformFee solana.PublicKey
}

// Load returns the configuration from environment variables
func Load() *Config {
	ttls := guard.DefaultTTLs()
	for action, def := range ttls {
		key := "GUARD_TTL_" + strings.ToUpper(string(action)) + "_SEC"
		ttls[action] = getEnvAsDuration(key, def, time.Second)
	}

	return &Config{
		RPCURL:             getEnv("RPC_URL", "devnet"),
		ProgramID:          getEnv("PROGRAM_ID", address.DefaultProgramID.String()),
		PlatformFeeAddress: getEnv("PLATFORM_FEE_ADDRESS", ""),
		KeypairPath:        getEnv("KEYPAIR_PATH", ""),
		Commitment:         getEnv("COMMITMENT", "confirmed"),
		FeeBufferLamports:  getEnvAsUint64("FEE_BUFFER_LAMPORTS", balance.DefaultFeeBuffer),
		ConfirmTimeout:     getEnvAsDuration("CONFIRM_TIMEOUT_SEC", 30*time.Second, time.Second),
		ConfirmPoll:        getEnvAsDuration("CONFIRM_POLL_MS", 500*time.Millisecond, time.Millisecond),
		RPCRateLimit:       getEnvAsFloat("RPC_RATE_LIMIT", 10),
		RPCRateBurst:       getEnvAsInt("RPC_RATE_BURST", 5),
		GuardTTLs:          ttls,
		GuardBucket:        getEnvAsDuration("GUARD_BUCKET_SEC", 0, time.Second),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SyncInterval:       getEnvAsDuration("SYNC_INTERVAL_SEC", time.Minute, time.Second),
		APIPort:            getEnv("API_PORT", "2112"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("RPC_URL is required")
	}

	programID, err := solana.PublicKeyFromBase58(c.ProgramID)
	if err != nil {
		return fmt.Errorf("PROGRAM_ID is invalid: %w", err)
	}
	c.programID = programID

	if c.PlatformFeeAddress != "" {
		platformFee, err := solana.PublicKeyFromBase58(c.PlatformFeeAddress)
		if err != nil {
			return fmt.Errorf("PLATFORM_FEE_ADDRESS is invalid: %w", err)
		}
		c.platformFee = platformFee
	}

	if _, err := ledger.ParseCommitment(c.Commitment); err != nil {
		return fmt.Errorf("COMMITMENT is invalid: %w", err)
	}
	if c.ConfirmTimeout <= 0 {
		return fmt.Errorf("CONFIRM_TIMEOUT_SEC must be positive")
	}
	if c.ConfirmPoll <= 0 || c.ConfirmPoll >= c.ConfirmTimeout {
		return fmt.Errorf("CONFIRM_POLL_MS must be positive and below the confirmation timeout")
	}
	if c.RPCRateLimit < 0 {
		return fmt.Errorf("RPC_RATE_LIMIT must not be negative")
	}
	if c.GuardBucket < 0 {
		return fmt.Errorf("GUARD_BUCKET_SEC must not be negative")
	}
	for action, ttl := range c.GuardTTLs {
		if ttl <= 0 {
			return fmt.Errorf("guard TTL for %s must be positive", action)
		}
	}
	return nil
}

// ProgramKey returns the parsed program ID. Valid after Validate.
func (c *Config) ProgramKey() solana.PublicKey {
	return c.programID
}

// PlatformFeeKey returns the parsed platform wallet, zero when unset. Valid after Validate.
func (c *Config) PlatformFeeKey() solana.PublicKey {
	return c.platformFee
}

// Endpoint returns the RPC URL with cluster names resolved
func (c *Config) Endpoint() string {
	return ledger.ResolveEndpoint(c.RPCURL)
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsUint64(key string, defaultVal uint64) uint64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseUint(valStr, 10, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

func getEnvAsFloat(key string, defaultVal float64) float64 {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseFloat(valStr, 64)
	if err != nil {
		return defaultVal
	}
	return val
}

// getEnvAsDuration reads an integer count of unit
func getEnvAsDuration(key string, defaultVal, unit time.Duration) time.Duration {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultVal
	}
	val, err := strconv.ParseInt(valStr, 10, 64)
	if err != nil {
		return defaultVal
	}
	return time.Duration(val) * unit
}

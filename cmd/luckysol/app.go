package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/address"
	"luckysol/internal/config"
	"luckysol/internal/guard"
	"luckysol/internal/ledger"
	"luckysol/internal/ledger/retry"
	"luckysol/internal/lottery"
	"luckysol/internal/storage"
	"luckysol/internal/submit"
)

// app holds the components shared by every command
type app struct {
	cfg     *config.Config
	rpc     *ledger.RPC
	repo    *storage.PostgresRepository // Nil without DATABASE_URL
	reader  *ledger.Reader
	deriver *address.Deriver
}

// newApp connects to the RPC endpoint and, when configured, the snapshot store
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	commitment, err := ledger.ParseCommitment(cfg.Commitment)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg: cfg,
		rpc: ledger.NewRPC(cfg.Endpoint(), cfg.ProgramKey(), ledger.RPCOptions{
			Commitment: commitment,
			RateLimit:  cfg.RPCRateLimit,
			RateBurst:  cfg.RPCRateBurst,
		}),
		deriver: address.NewDeriver(cfg.ProgramKey()),
	}

	var fallback ledger.Source
	if cfg.DatabaseURL != "" {
		repo, err := storage.NewPostgresRepository(ctx, cfg.DatabaseURL)
		if err != nil {
			a.rpc.Close()
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		if err := repo.EnsureSchema(ctx); err != nil {
			repo.Close()
			a.rpc.Close()
			return nil, err
		}
		slog.Debug("Database connected successfully")
		a.repo = repo
		fallback = repo
	}

	a.reader = ledger.NewReader(a.rpc, fallback)
	return a, nil
}

// repository returns the snapshot store as an interface, nil when not configured
func (a *app) repository() storage.Repository {
	if a.repo == nil {
		return nil
	}
	return a.repo
}

// client builds the write client signed by the configured keypair
func (a *app) client() (*lottery.Client, solana.PublicKey, error) {
	if a.cfg.KeypairPath == "" {
		return nil, solana.PublicKey{}, fmt.Errorf("KEYPAIR_PATH or --keypair is required for writes")
	}
	signer, err := submit.LoadKeypairSigner(a.cfg.KeypairPath)
	if err != nil {
		return nil, solana.PublicKey{}, err
	}

	submitter := submit.New(a.rpc, signer, guard.New(guard.Options{TTLs: a.cfg.GuardTTLs, BucketWindow: a.cfg.GuardBucket}), submit.Options{
		ConfirmTimeout: a.cfg.ConfirmTimeout,
		PollInterval:   a.cfg.ConfirmPoll,
		Strategy:       retry.NewStrategy(retry.LoadConfig()),
		Observer: func(attempt int, state submit.State) {
			slog.Debug("Submission state", "attempt", attempt, "state", state)
		},
	})

	client := lottery.NewClient(a.deriver, a.reader, a.rpc, submitter, lottery.Options{
		FeeBuffer:   a.cfg.FeeBufferLamports,
		PlatformFee: a.cfg.PlatformFeeKey(),
	})
	return client, signer.PublicKey(), nil
}

func (a *app) Close() {
	if a.repo != nil {
		a.repo.Close()
	}
	if err := a.rpc.Close(); err != nil {
		slog.Warn("Error closing RPC client", "error", err)
	}
}

// printJSON writes v to stdout as indented JSON
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func parseKey(what, s string) (solana.PublicKey, error) {
	key, err := solana.PublicKeyFromBase58(s)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("invalid %s %q: %w", what, s, err)
	}
	return key, nil
}

// parseOptionalKey returns the zero key for an empty string
func parseOptionalKey(what, s string) (solana.PublicKey, error) {
	if s == "" {
		return solana.PublicKey{}, nil
	}
	return parseKey(what, s)
}

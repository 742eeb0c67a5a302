package storage

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/ledger"
	"luckysol/internal/models"
)

// Repository defines the interface for all storage operations
type Repository interface {
	// Account snapshots
	SaveSnapshots(ctx context.Context, snapshots []models.Snapshot) error
	LastSyncedAt(ctx context.Context) (time.Time, error)

	// Read path, usable as a ledger.Source
	Account(ctx context.Context, addr solana.PublicKey) ([]byte, error)
	ProgramAccounts(ctx context.Context, filter ledger.Filter) ([]ledger.KeyedData, error)

	// Health & Maintenance
	EnsureSchema(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

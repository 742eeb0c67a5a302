package ledger

import (
	"bytes"
	"context"
	"errors"

	"github.com/gagliardetto/solana-go"
)

// ErrNotFound is returned by a Source when no account exists at the address
var ErrNotFound = errors.New("account not found")

// Memcmp matches Bytes at Offset of the raw account data
type Memcmp struct {
	Offset uint64
	Bytes  []byte
}

// Filter selects program accounts by exact data length and optional byte ranges
type Filter struct {
	DataSize uint64 // 0 disables the length predicate
	Memcmp   []Memcmp
}

// Match reports whether data satisfies every predicate of the filter
func (f Filter) Match(data []byte) bool {
	if f.DataSize != 0 && uint64(len(data)) != f.DataSize {
		return false
	}
	for _, m := range f.Memcmp {
		end := m.Offset + uint64(len(m.Bytes))
		if end > uint64(len(data)) || !bytes.Equal(data[m.Offset:end], m.Bytes) {
			return false
		}
	}
	return true
}

// KeyedData is raw account data paired with its address
type KeyedData struct {
	Address solana.PublicKey
	Data    []byte
}

// Source is a read path to raw program account bytes
type Source interface {
	// Account returns the data stored at addr, or ErrNotFound
	Account(ctx context.Context, addr solana.PublicKey) ([]byte, error)

	// ProgramAccounts returns every program account matching filter
	ProgramAccounts(ctx context.Context, filter Filter) ([]KeyedData, error)
}

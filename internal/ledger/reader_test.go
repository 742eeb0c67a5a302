package ledger

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/codec"
	"luckysol/internal/codec/codectest"
	"luckysol/internal/models"
)

// memSource is an in-memory Source
type memSource struct {
	accounts map[solana.PublicKey][]byte
	err      error // returned by every call when set
	calls    int
}

func newMemSource() *memSource {
	return &memSource{accounts: make(map[solana.PublicKey][]byte)}
}

func (m *memSource) Account(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	data, ok := m.accounts[addr]
	if !ok {
		return nil, ErrNotFound
	}
	return data, nil
}

func (m *memSource) ProgramAccounts(ctx context.Context, filter Filter) ([]KeyedData, error) {
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	var out []KeyedData
	for addr, data := range m.accounts {
		if filter.Match(data) {
			out = append(out, KeyedData{Address: addr, Data: data})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address.String() < out[j].Address.String() })
	return out, nil
}

var (
	authorityA = codectest.Key(0xa1)
	authorityB = codectest.Key(0xb2)
	roundA     = codectest.Key(0x10)
	roundB     = codectest.Key(0x20)
	ownerX     = codectest.Key(0x33)
)

func lotteryBytes(authority solana.PublicKey, roundID uint64, sold uint32) []byte {
	return codectest.Lottery(&models.Lottery{
		Authority:      authority,
		RoundID:        roundID,
		TicketPrice:    1_000,
		MaxTickets:     10,
		TicketsSold:    sold,
		TotalPrizePool: 1_000 * uint64(sold),
		CreatedAt:      1_700_000_000,
	})
}

func TestReader_Lottery(t *testing.T) {
	primary := newMemSource()
	primary.accounts[roundA] = lotteryBytes(authorityA, 7, 3)

	l, err := NewReader(primary, nil).Lottery(context.Background(), roundA)

	require.NoError(t, err)
	assert.Equal(t, roundA, l.Address)
	assert.Equal(t, uint64(7), l.RoundID)
	assert.Equal(t, uint32(3), l.TicketsSold)
}

func TestReader_NotFoundSkipsFallback(t *testing.T) {
	primary := newMemSource()
	fallback := newMemSource()
	fallback.accounts[roundA] = lotteryBytes(authorityA, 7, 3)

	_, err := NewReader(primary, fallback).Lottery(context.Background(), roundA)

	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, fallback.calls)
}

func TestReader_DecodeFailureUsesFallback(t *testing.T) {
	primary := newMemSource()
	primary.accounts[roundA] = []byte{1, 2, 3}
	fallback := newMemSource()
	fallback.accounts[roundA] = lotteryBytes(authorityA, 9, 1)

	l, err := NewReader(primary, fallback).Lottery(context.Background(), roundA)

	require.NoError(t, err)
	assert.Equal(t, uint64(9), l.RoundID)
	assert.Equal(t, roundA, l.Address)
}

func TestReader_FallbackFailureReturnsOriginalError(t *testing.T) {
	primary := newMemSource()
	primary.accounts[roundA] = []byte{1, 2, 3}
	fallback := newMemSource()
	fallback.err = errors.New("database unavailable")

	_, err := NewReader(primary, fallback).Lottery(context.Background(), roundA)

	require.Error(t, err)
	assert.ErrorIs(t, err, codec.ErrTooShort)
	assert.NotContains(t, err.Error(), "database unavailable")
}

func TestReader_PrimaryUnavailableUsesFallback(t *testing.T) {
	primary := newMemSource()
	primary.err = errors.New("dial tcp: connection refused")
	fallback := newMemSource()
	fallback.accounts[roundA] = lotteryBytes(authorityA, 4, 0)

	l, err := NewReader(primary, fallback).Lottery(context.Background(), roundA)

	require.NoError(t, err)
	assert.Equal(t, uint64(4), l.RoundID)
}

func TestReader_Scans(t *testing.T) {
	primary := newMemSource()
	primary.accounts[roundA] = lotteryBytes(authorityA, 1, 2)
	primary.accounts[roundB] = lotteryBytes(authorityB, 2, 1)

	t0 := codectest.Key(0x41)
	t1 := codectest.Key(0x42)
	t2 := codectest.Key(0x43)
	primary.accounts[t0] = codectest.Ticket(&models.Ticket{Round: roundA, Owner: ownerX, TicketNumber: 0})
	primary.accounts[t1] = codectest.Ticket(&models.Ticket{Round: roundA, Owner: authorityB, TicketNumber: 1})
	primary.accounts[t2] = codectest.Ticket(&models.Ticket{Round: roundB, Owner: ownerX, TicketNumber: 0})

	r := NewReader(primary, nil)
	ctx := context.Background()

	all, err := r.AllLotteries(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byA, err := r.LotteriesByAuthority(ctx, authorityA)
	require.NoError(t, err)
	require.Len(t, byA, 1)
	assert.Equal(t, roundA, byA[0].Address)

	owned, err := r.TicketsByOwner(ctx, ownerX)
	require.NoError(t, err)
	require.Len(t, owned, 2)
	for _, tk := range owned {
		assert.Equal(t, ownerX, tk.Owner)
	}

	inA, err := r.TicketsByRound(ctx, roundA)
	require.NoError(t, err)
	assert.Len(t, inA, 2)
}

func TestReader_ScanSkipsUndecodable(t *testing.T) {
	primary := newMemSource()
	primary.accounts[roundA] = lotteryBytes(authorityA, 1, 0)

	// a scan result the codec rejects
	broken := &brokenScan{memSource: primary, extra: KeyedData{Address: roundB, Data: []byte{0xff}}}

	all, err := NewReader(broken, nil).AllLotteries(context.Background())

	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, roundA, all[0].Address)
}

type brokenScan struct {
	*memSource
	extra KeyedData
}

func (b *brokenScan) ProgramAccounts(ctx context.Context, filter Filter) ([]KeyedData, error) {
	out, err := b.memSource.ProgramAccounts(ctx, filter)
	return append(out, b.extra), err
}

func TestFilter_Match(t *testing.T) {
	data := lotteryBytes(authorityA, 1, 0)

	assert.True(t, Filter{DataSize: codec.LotterySize}.Match(data))
	assert.False(t, Filter{DataSize: codec.TicketSize}.Match(data))
	assert.True(t, Filter{Memcmp: []Memcmp{{Offset: codec.LotteryAuthorityOffset, Bytes: authorityA.Bytes()}}}.Match(data))
	assert.False(t, Filter{Memcmp: []Memcmp{{Offset: codec.LotteryAuthorityOffset, Bytes: authorityB.Bytes()}}}.Match(data))
	assert.False(t, Filter{Memcmp: []Memcmp{{Offset: uint64(len(data)), Bytes: []byte{1}}}}.Match(data), "past the end")
}

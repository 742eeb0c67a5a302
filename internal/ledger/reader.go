package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/codec"
	"luckysol/internal/metrics"
	"luckysol/internal/models"
)

// Reader fetches and decodes program accounts. When the primary source
// returns bytes that fail to decode, or is unreachable, the fallback source
// is consulted. A missing account is never retried against the fallback.
type Reader struct {
	primary  Source
	fallback Source
}

// NewReader creates a Reader. fallback may be nil.
func NewReader(primary, fallback Source) *Reader {
	return &Reader{
		primary:  primary,
		fallback: fallback,
	}
}

// Lottery fetches the round stored at addr
func (r *Reader) Lottery(ctx context.Context, addr solana.PublicKey) (*models.Lottery, error) {
	l, err := fetch(ctx, r, addr, codec.RecordLottery, codec.DecodeLottery)
	if err != nil {
		return nil, err
	}
	l.Address = addr
	return l, nil
}

// Ticket fetches the ticket stored at addr
func (r *Reader) Ticket(ctx context.Context, addr solana.PublicKey) (*models.Ticket, error) {
	t, err := fetch(ctx, r, addr, codec.RecordTicket, codec.DecodeTicket)
	if err != nil {
		return nil, err
	}
	t.Address = addr
	return t, nil
}

// AllLotteries scans every round of the program
func (r *Reader) AllLotteries(ctx context.Context) ([]*models.Lottery, error) {
	return r.scanLotteries(ctx, Filter{DataSize: codec.LotterySize})
}

// LotteriesByAuthority scans the rounds created by authority
func (r *Reader) LotteriesByAuthority(ctx context.Context, authority solana.PublicKey) ([]*models.Lottery, error) {
	return r.scanLotteries(ctx, Filter{
		DataSize: codec.LotterySize,
		Memcmp:   []Memcmp{{Offset: codec.LotteryAuthorityOffset, Bytes: authority.Bytes()}},
	})
}

// TicketsByOwner scans the tickets held by owner across all rounds
func (r *Reader) TicketsByOwner(ctx context.Context, owner solana.PublicKey) ([]*models.Ticket, error) {
	return r.scanTickets(ctx, Filter{
		DataSize: codec.TicketSize,
		Memcmp:   []Memcmp{{Offset: codec.TicketOwnerOffset, Bytes: owner.Bytes()}},
	})
}

// TicketsByRound scans the tickets sold in round
func (r *Reader) TicketsByRound(ctx context.Context, round solana.PublicKey) ([]*models.Ticket, error) {
	return r.scanTickets(ctx, Filter{
		DataSize: codec.TicketSize,
		Memcmp:   []Memcmp{{Offset: codec.TicketRoundOffset, Bytes: round.Bytes()}},
	})
}

func (r *Reader) scanLotteries(ctx context.Context, filter Filter) ([]*models.Lottery, error) {
	items, err := scan(ctx, r, filter, codec.RecordLottery, codec.DecodeLottery)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Lottery, 0, len(items))
	for _, it := range items {
		it.value.Address = it.address
		out = append(out, it.value)
	}
	return out, nil
}

func (r *Reader) scanTickets(ctx context.Context, filter Filter) ([]*models.Ticket, error) {
	items, err := scan(ctx, r, filter, codec.RecordTicket, codec.DecodeTicket)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Ticket, 0, len(items))
	for _, it := range items {
		it.value.Address = it.address
		out = append(out, it.value)
	}
	return out, nil
}

func fetch[T any](ctx context.Context, r *Reader, addr solana.PublicKey, record string, decode func([]byte) (*T, error)) (*T, error) {
	data, err := r.primary.Account(ctx, addr)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%s %s: %w", record, addr, err)
		}
		return fallbackFetch(ctx, r, addr, record, decode, fmt.Errorf("fetch %s %s: %w", record, addr, err))
	}

	v, err := decode(data)
	if err != nil {
		return fallbackFetch(ctx, r, addr, record, decode, fmt.Errorf("decode %s %s: %w", record, addr, err))
	}
	return v, nil
}

// fallbackFetch returns the fallback's record, or cause when the fallback cannot supply one
func fallbackFetch[T any](ctx context.Context, r *Reader, addr solana.PublicKey, record string, decode func([]byte) (*T, error), cause error) (*T, error) {
	if r.fallback == nil {
		return nil, cause
	}

	data, err := r.fallback.Account(ctx, addr)
	if err == nil {
		var v *T
		if v, err = decode(data); err == nil {
			metrics.FallbackReads.WithLabelValues("hit").Inc()
			slog.Debug("Served from fallback source", "record", record, "address", addr, "cause", cause)
			return v, nil
		}
	}

	metrics.FallbackReads.WithLabelValues("miss").Inc()
	slog.Debug("Fallback source could not serve record", "record", record, "address", addr, "error", err)
	return nil, cause
}

type keyed[T any] struct {
	address solana.PublicKey
	value   *T
}

func scan[T any](ctx context.Context, r *Reader, filter Filter, record string, decode func([]byte) (*T, error)) ([]keyed[T], error) {
	accounts, err := r.primary.ProgramAccounts(ctx, filter)
	if err != nil {
		if r.fallback == nil {
			return nil, fmt.Errorf("scan %s: %w", record, err)
		}
		slog.Warn("Primary scan failed, using fallback source", "record", record, "error", err)
		accounts, err = r.fallback.ProgramAccounts(ctx, filter)
		if err != nil {
			metrics.FallbackReads.WithLabelValues("miss").Inc()
			return nil, fmt.Errorf("scan %s: %w", record, err)
		}
		metrics.FallbackReads.WithLabelValues("hit").Inc()
	}

	out := make([]keyed[T], 0, len(accounts))
	for _, acc := range accounts {
		v, err := decode(acc.Data)
		if err != nil {
			v, err = fallbackFetch(ctx, r, acc.Address, record, decode, err)
		}
		if err != nil {
			slog.Warn("Skipping undecodable account", "record", record, "address", acc.Address, "error", err)
			continue
		}
		out = append(out, keyed[T]{address: acc.Address, value: v})
	}
	return out, nil
}

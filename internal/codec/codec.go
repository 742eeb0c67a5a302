// Package codec decodes the fixed-layout account records written by the lottery program.
//
// Every record starts with an 8-byte discriminator followed by fields packed without
// padding, little-endian, with Option<T> stored as a presence byte plus the full width of T.
package codec

import (
	"encoding/binary"
	"log/slog"

	"luckysol/internal/metrics"
	"luckysol/internal/models"
)

// Record names used in errors and metrics
const (
	RecordLottery = "lottery"
	RecordTicket  = "ticket"
)

// Canonical account sizes (discriminator + sum of field widths, no padding)
const (
	LotterySize = DiscriminatorSize +
		32 + // authority
		8 + // round_id
		8 + // ticket_price
		4 + // max_tickets
		4 + // tickets_sold
		8 + // total_prize_pool
		1 + 4 + // winner (Option<u32>)
		8 + // created_at
		8 + // duration
		1 + // randomness_fulfilled
		1 // bump

	TicketSize = DiscriminatorSize +
		32 + // round
		32 + // owner
		4 + // ticket_number
		8 + // purchased_at
		1 // bump
)

// Byte offsets used by scan filters
const (
	LotteryAuthorityOffset = DiscriminatorSize
	TicketRoundOffset      = DiscriminatorSize
	TicketOwnerOffset      = DiscriminatorSize + 32
)

// DecodeLottery parses a Lottery account. Invariant violations are logged, not returned.
func DecodeLottery(data []byte) (*models.Lottery, error) {
	l, err := decodeLottery(data)
	if err != nil {
		metrics.DecodeFailures.WithLabelValues(RecordLottery, kindOf(err)).Inc()
		return nil, err
	}

	if err := ValidateLottery(l); err != nil {
		metrics.InvariantViolations.WithLabelValues(RecordLottery).Inc()
		slog.Warn("Lottery record violates invariants",
			"round_id", l.RoundID,
			"error", err,
		)
	}

	return l, nil
}

func decodeLottery(data []byte) (*models.Lottery, error) {
	v, err := newView(RecordLottery, data, LotterySize)
	if err != nil {
		return nil, err
	}

	var l models.Lottery

	if err := v.skip("discriminator", DiscriminatorSize); err != nil {
		return nil, err
	}
	if l.Authority, err = v.pubkey("authority"); err != nil {
		return nil, err
	}
	if l.RoundID, err = v.u64("round_id"); err != nil {
		return nil, err
	}
	if l.TicketPrice, err = v.u64("ticket_price"); err != nil {
		return nil, err
	}
	if l.MaxTickets, err = v.u32("max_tickets"); err != nil {
		return nil, err
	}
	if l.TicketsSold, err = v.u32("tickets_sold"); err != nil {
		return nil, err
	}
	if l.TotalPrizePool, err = v.u64("total_prize_pool"); err != nil {
		return nil, err
	}
	if l.WinnerTicket, err = option(v, "winner", 4, binary.LittleEndian.Uint32); err != nil {
		return nil, err
	}
	if l.CreatedAt, err = v.i64("created_at"); err != nil {
		return nil, err
	}
	// duration is unsigned in the program's layout
	if l.Duration, err = v.u64("duration"); err != nil {
		return nil, err
	}
	if l.RandomnessFulfilled, err = v.boolean("randomness_fulfilled"); err != nil {
		return nil, err
	}
	if l.Bump, err = v.u8("bump"); err != nil {
		return nil, err
	}

	return &l, nil
}

// DecodeTicket parses a Ticket account
func DecodeTicket(data []byte) (*models.Ticket, error) {
	t, err := decodeTicket(data)
	if err != nil {
		metrics.DecodeFailures.WithLabelValues(RecordTicket, kindOf(err)).Inc()
		return nil, err
	}
	return t, nil
}

func decodeTicket(data []byte) (*models.Ticket, error) {
	v, err := newView(RecordTicket, data, TicketSize)
	if err != nil {
		return nil, err
	}

	var t models.Ticket

	if err := v.skip("discriminator", DiscriminatorSize); err != nil {
		return nil, err
	}
	if t.Round, err = v.pubkey("round"); err != nil {
		return nil, err
	}
	if t.Owner, err = v.pubkey("owner"); err != nil {
		return nil, err
	}
	if t.TicketNumber, err = v.u32("ticket_number"); err != nil {
		return nil, err
	}
	if t.PurchasedAt, err = v.i64("purchased_at"); err != nil {
		return nil, err
	}
	if t.Bump, err = v.u8("bump"); err != nil {
		return nil, err
	}

	return &t, nil
}

func kindOf(err error) string {
	if pe, ok := err.(*ParseError); ok {
		return pe.Kind.String()
	}
	return "unknown"
}

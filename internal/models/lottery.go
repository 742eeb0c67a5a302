package models

import (
	"math"
	"time"

	"github.com/gagliardetto/solana-go"
)

// Lottery represents one lottery round as stored by the on-chain program
type Lottery struct {
	// Identification
	Address   solana.PublicKey `json:"id"` // Account the record was read from (not part of the layout)
	Authority solana.PublicKey `json:"authority"`
	RoundID   uint64           `json:"round_id"`

	// Economics (smallest currency unit)
	TicketPrice    uint64 `json:"ticket_price"`
	MaxTickets     uint32 `json:"max_tickets"`
	TicketsSold    uint32 `json:"tickets_sold"`
	TotalPrizePool uint64 `json:"total_prize_pool"`

	// Draw
	WinnerTicket        *uint32 `json:"winner_ticket,omitempty"`
	RandomnessFulfilled bool    `json:"randomness_fulfilled"`

	// Timing
	CreatedAt int64  `json:"created_at"` // Unix seconds
	Duration  uint64 `json:"duration"`   // Seconds, 0 means open-ended

	Bump uint8 `json:"bump"`
}

// IsSoldOut reports whether every ticket has been sold
func (l *Lottery) IsSoldOut() bool {
	return l.TicketsSold >= l.MaxTickets
}

// Latest closing time EndsAt reports, the last second of year 9999
const maxEndUnix = 253402300799

// EndsAt returns the closing time of the round, or the zero time when the round
// has no duration or closes beyond maxEndUnix
func (l *Lottery) EndsAt() time.Time {
	end, ok := l.endUnix()
	if !ok || end > maxEndUnix {
		return time.Time{}
	}
	return time.Unix(end, 0)
}

// IsOpen reports whether the round still accepts tickets at the given time
func (l *Lottery) IsOpen(now time.Time) bool {
	if l.RandomnessFulfilled || l.WinnerTicket != nil {
		return false
	}
	end, ok := l.endUnix()
	return !ok || now.Unix() < end
}

// endUnix returns CreatedAt+Duration in Unix seconds. ok is false for
// open-ended rounds and for sums that do not fit in an int64.
func (l *Lottery) endUnix() (int64, bool) {
	if l.Duration == 0 || l.Duration > math.MaxInt64 {
		return 0, false
	}
	d := int64(l.Duration)
	if l.CreatedAt > 0 && d > math.MaxInt64-l.CreatedAt {
		return 0, false
	}
	return l.CreatedAt + d, true
}

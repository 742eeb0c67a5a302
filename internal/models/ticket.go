package models

import (
	"time"

	"github.com/gagliardetto/solana-go"
)

// Ticket represents one purchased entry in a round
type Ticket struct {
	Address      solana.PublicKey `json:"id"`
	Round        solana.PublicKey `json:"round"` // Address of the owning Lottery account
	Owner        solana.PublicKey `json:"owner"`
	TicketNumber uint32           `json:"ticket_number"` // Dense 0-based index within the round
	PurchasedAt  int64            `json:"purchased_at"`
	Bump         uint8            `json:"bump"`
}

// Snapshot is a raw account image persisted by the syncer
type Snapshot struct {
	Address   solana.PublicKey `json:"address"`
	Kind      string           `json:"kind"` // "lottery" or "ticket"
	Data      []byte           `json:"-"`
	FetchedAt time.Time        `json:"fetched_at"`
}

package models

import (
	"time"
)

// RoundResponse represents a lottery round with derived state for API responses
type RoundResponse struct {
	Address   string `json:"address"`
	RoundID   uint64 `json:"round_id"`
	Authority string `json:"authority"`

	// Financials (formatted for UI)
	TicketPriceLamports uint64 `json:"ticket_price_lamports"`
	TicketPriceSOL      string `json:"ticket_price_sol"`
	PrizePoolLamports   uint64 `json:"prize_pool_lamports"`
	PrizePoolSOL        string `json:"prize_pool_sol"`

	// Tickets
	MaxTickets  uint32 `json:"max_tickets"`
	TicketsSold uint32 `json:"tickets_sold"`

	// Status
	Status       string  `json:"status"` // open, sold_out, closed, drawn
	WinnerTicket *uint32 `json:"winner_ticket,omitempty"`

	// Timing
	CreatedAt time.Time  `json:"created_at"`
	EndsAt    *time.Time `json:"ends_at,omitempty"` // Absent for open-ended rounds
}

// TicketResponse represents a purchased ticket
type TicketResponse struct {
	Address      string    `json:"address"`
	Round        string    `json:"round"`
	Owner        string    `json:"owner"`
	TicketNumber uint32    `json:"ticket_number"`
	PurchasedAt  time.Time `json:"purchased_at"`
}

// RoundListResponse represents a paginated list of rounds
type RoundListResponse struct {
	Rounds   []RoundResponse `json:"rounds"`
	Total    int             `json:"total"`
	Page     int             `json:"page"`
	PageSize int             `json:"page_size"`
}

// TicketListResponse represents a list of tickets for a round or an owner
type TicketListResponse struct {
	Round   string           `json:"round,omitempty"`
	Owner   string           `json:"owner,omitempty"`
	Tickets []TicketResponse `json:"tickets"`
	Total   int              `json:"total"`
}

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

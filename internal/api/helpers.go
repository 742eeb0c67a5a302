package api

import (
	"sort"
	"time"

	"luckysol/internal/balance"
	"luckysol/internal/models"
)

// Round statuses reported by the API
const (
	StatusOpen    = "open"
	StatusSoldOut = "sold_out"
	StatusClosed  = "closed"
	StatusDrawn   = "drawn"
)

// RoundStatus determines the current status of a round at now
func RoundStatus(l *models.Lottery, now time.Time) string {
	if l.RandomnessFulfilled || l.WinnerTicket != nil {
		return StatusDrawn
	}
	if l.IsSoldOut() {
		return StatusSoldOut
	}
	if !l.IsOpen(now) {
		return StatusClosed
	}
	return StatusOpen
}

// BuildRoundResponse creates a round response
func BuildRoundResponse(l *models.Lottery, now time.Time) models.RoundResponse {
	response := models.RoundResponse{
		Address:             l.Address.String(),
		RoundID:             l.RoundID,
		Authority:           l.Authority.String(),
		TicketPriceLamports: l.TicketPrice,
		TicketPriceSOL:      balance.FormatSOL(l.TicketPrice),
		PrizePoolLamports:   l.TotalPrizePool,
		PrizePoolSOL:        balance.FormatSOL(l.TotalPrizePool),
		MaxTickets:          l.MaxTickets,
		TicketsSold:         l.TicketsSold,
		Status:              RoundStatus(l, now),
		WinnerTicket:        l.WinnerTicket,
		CreatedAt:           time.Unix(l.CreatedAt, 0).UTC(),
	}
	if end := l.EndsAt(); !end.IsZero() {
		end = end.UTC()
		response.EndsAt = &end
	}
	return response
}

// BuildTicketResponses creates ticket responses ordered by round then ticket number
func BuildTicketResponses(tickets []*models.Ticket) []models.TicketResponse {
	sorted := make([]*models.Ticket, len(tickets))
	copy(sorted, tickets)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Round != sorted[j].Round {
			return sorted[i].Round.String() < sorted[j].Round.String()
		}
		return sorted[i].TicketNumber < sorted[j].TicketNumber
	})

	result := make([]models.TicketResponse, 0, len(sorted))
	for _, t := range sorted {
		result = append(result, models.TicketResponse{
			Address:      t.Address.String(),
			Round:        t.Round.String(),
			Owner:        t.Owner.String(),
			TicketNumber: t.TicketNumber,
			PurchasedAt:  time.Unix(t.PurchasedAt, 0).UTC(),
		})
	}
	return result
}

// sortRounds orders rounds by round id
func sortRounds(rounds []*models.Lottery) {
	sort.Slice(rounds, func(i, j int) bool {
		return rounds[i].RoundID < rounds[j].RoundID
	})
}

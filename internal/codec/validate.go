package codec

import (
	"errors"
	"fmt"
	"math/bits"

	"luckysol/internal/models"
)

// ValidateLottery checks the data-model invariants of a decoded round.
// All violations are reported, joined into one error.
func ValidateLottery(l *models.Lottery) error {
	var errs []error

	violation := func(field, format string, args ...any) {
		errs = append(errs, &ParseError{
			Kind:   InvariantViolation,
			Record: RecordLottery,
			Field:  field,
			Detail: fmt.Sprintf(format, args...),
		})
	}

	if l.TicketsSold > l.MaxTickets {
		violation("tickets_sold", "%d tickets sold exceeds max %d", l.TicketsSold, l.MaxTickets)
	}

	hi, pool := bits.Mul64(l.TicketPrice, uint64(l.TicketsSold))
	if hi != 0 {
		violation("total_prize_pool", "ticket_price %d x tickets_sold %d overflows", l.TicketPrice, l.TicketsSold)
	} else if pool != l.TotalPrizePool {
		violation("total_prize_pool", "pool %d != ticket_price %d x tickets_sold %d",
			l.TotalPrizePool, l.TicketPrice, l.TicketsSold)
	}

	if l.WinnerTicket != nil {
		if !l.RandomnessFulfilled {
			violation("winner", "winner %d set before randomness fulfilled", *l.WinnerTicket)
		}
		if *l.WinnerTicket >= l.TicketsSold {
			violation("winner", "winner %d out of range for %d tickets sold", *l.WinnerTicket, l.TicketsSold)
		}
	}

	return errors.Join(errs...)
}

// ValidateTicket checks a ticket against the round it claims to belong to
func ValidateTicket(t *models.Ticket, round *models.Lottery) error {
	var errs []error

	if !t.Round.Equals(round.Address) {
		errs = append(errs, &ParseError{
			Kind:   InvariantViolation,
			Record: RecordTicket,
			Field:  "round",
			Detail: fmt.Sprintf("ticket belongs to %s, not %s", t.Round, round.Address),
		})
	}
	if t.TicketNumber >= round.TicketsSold {
		errs = append(errs, &ParseError{
			Kind:   InvariantViolation,
			Record: RecordTicket,
			Field:  "ticket_number",
			Detail: fmt.Sprintf("ticket %d not below tickets sold %d", t.TicketNumber, round.TicketsSold),
		})
	}

	return errors.Join(errs...)
}

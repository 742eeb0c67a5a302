// Package lottery is the write surface of the lottery program: it validates a
// request against the current ledger state and hands it to the submitter.
package lottery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/address"
	"luckysol/internal/balance"
	"luckysol/internal/codec"
	"luckysol/internal/guard"
	"luckysol/internal/ledger"
	"luckysol/internal/models"
	"luckysol/internal/submit"
	"luckysol/internal/txerr"
)

// Reader fetches decoded program accounts
type Reader interface {
	Lottery(ctx context.Context, addr solana.PublicKey) (*models.Lottery, error)
	Ticket(ctx context.Context, addr solana.PublicKey) (*models.Ticket, error)
}

// Balances looks up lamport balances
type Balances interface {
	Balance(ctx context.Context, addr solana.PublicKey) (uint64, error)
}

// Submitter sends a request to a terminal outcome
type Submitter interface {
	Submit(ctx context.Context, req submit.Request) (*submit.Outcome, error)
}

// Options configures a Client
type Options struct {
	FeeBuffer   uint64           // Lamports reserved for fees, defaults to balance.DefaultFeeBuffer
	PlatformFee solana.PublicKey // Designated platform fee wallet
	Now         func() time.Time
}

// Client validates and submits lottery writes
type Client struct {
	deriver     *address.Deriver
	reader      Reader
	balances    Balances
	submitter   Submitter
	feeBuffer   uint64
	platformFee solana.PublicKey
	now         func() time.Time
}

// Result is the outcome of a write plus the addresses it touched
type Result struct {
	*submit.Outcome
	Round        solana.PublicKey
	Ticket       solana.PublicKey // Set by BuyTicket and Payout
	TicketNumber uint32
}

// NewClient creates a Client
func NewClient(deriver *address.Deriver, reader Reader, balances Balances, submitter Submitter, opts Options) *Client {
	if opts.FeeBuffer == 0 {
		opts.FeeBuffer = balance.DefaultFeeBuffer
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Client{
		deriver:     deriver,
		reader:      reader,
		balances:    balances,
		submitter:   submitter,
		feeBuffer:   opts.FeeBuffer,
		platformFee: opts.PlatformFee,
		now:         opts.Now,
	}
}

// CreateRound opens round roundID owned by actor
func (c *Client) CreateRound(ctx context.Context, roundID, ticketPrice uint64, maxTickets uint32, durationSeconds uint64, actor solana.PublicKey) (*Result, error) {
	if maxTickets == 0 {
		return nil, invalid("max tickets must be positive")
	}
	if ticketPrice == 0 {
		return nil, invalid("ticket price must be positive")
	}

	round, _, err := c.deriver.RoundAddress(roundID)
	if err != nil {
		return nil, err
	}

	_, err = c.reader.Lottery(ctx, round)
	var parseErr *codec.ParseError
	switch {
	case err == nil, errors.As(err, &parseErr):
		return nil, fmt.Errorf("round %d at %s: %w", roundID, round, txerr.Rejection(txerr.ReasonRoundExists))
	case !errors.Is(err, ledger.ErrNotFound):
		return nil, fmt.Errorf("check round %d: %w", roundID, err)
	}

	if err := c.ensureAffordable(ctx, actor, 0); err != nil {
		return nil, err
	}

	ix, err := NewInitializeLottery(c.deriver.ProgramID(), round, actor, roundID, ticketPrice, maxTickets, durationSeconds)
	if err != nil {
		return nil, err
	}

	slog.Info("Creating round",
		"round_id", roundID,
		"address", round,
		"ticket_price", balance.FormatSOL(ticketPrice),
		"max_tickets", maxTickets,
	)
	return c.submit(ctx, guard.ActionCreateRound, round, actor, ix, &Result{Round: round})
}

// BuyTicket buys the next ticket of round for actor
func (c *Client) BuyTicket(ctx context.Context, round, actor solana.PublicKey) (*Result, error) {
	l, err := c.loadRound(ctx, round)
	if err != nil {
		return nil, err
	}

	if l.IsSoldOut() {
		return nil, fmt.Errorf("round %d: %d of %d sold: %w", l.RoundID, l.TicketsSold, l.MaxTickets, txerr.Rejection(txerr.ReasonSoldOut))
	}
	if !l.IsOpen(c.now()) {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonRoundClosed))
	}

	ticket, _, err := c.deriver.TicketAddress(round, l.TicketsSold)
	if err != nil {
		return nil, err
	}

	if err := c.ensureAffordable(ctx, actor, l.TicketPrice); err != nil {
		return nil, err
	}

	ix, err := NewBuyTicket(c.deriver.ProgramID(), actor, round, ticket, l.RoundID)
	if err != nil {
		return nil, err
	}

	slog.Info("Buying ticket",
		"round_id", l.RoundID,
		"ticket_number", l.TicketsSold,
		"ticket", ticket,
		"price", balance.FormatSOL(l.TicketPrice),
	)
	return c.submit(ctx, guard.ActionBuyTicket, round, actor, ix, &Result{Round: round, Ticket: ticket, TicketNumber: l.TicketsSold})
}

// RevealWinner fulfils the round's randomness with seed
func (c *Client) RevealWinner(ctx context.Context, round, actor solana.PublicKey, seed [32]byte) (*Result, error) {
	l, err := c.loadRound(ctx, round)
	if err != nil {
		return nil, err
	}

	if !l.Authority.Equals(actor) {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonWrongAuthority))
	}
	if l.TicketsSold == 0 {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonNoTickets))
	}
	if l.RandomnessFulfilled {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonAlreadyRevealed))
	}

	if err := c.ensureAffordable(ctx, actor, 0); err != nil {
		return nil, err
	}

	ix, err := NewFulfillRandomness(c.deriver.ProgramID(), actor, round, seed)
	if err != nil {
		return nil, err
	}

	slog.Info("Revealing winner", "round_id", l.RoundID, "tickets_sold", l.TicketsSold)
	return c.submit(ctx, guard.ActionRevealWinner, round, actor, ix, &Result{Round: round})
}

// Payout distributes the prize pool of round. Zero addresses default to the
// values implied by the round: the derived winner ticket, its owner, the
// round authority and the configured platform wallet.
func (c *Client) Payout(ctx context.Context, round, actor, winnerTicket, winner, creator, platformFee solana.PublicKey) (*Result, error) {
	l, err := c.loadRound(ctx, round)
	if err != nil {
		return nil, err
	}

	if !l.Authority.Equals(actor) {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonWrongAuthority))
	}
	if !l.RandomnessFulfilled || l.WinnerTicket == nil {
		return nil, fmt.Errorf("round %d: %w", l.RoundID, txerr.Rejection(txerr.ReasonNoWinner))
	}
	number := *l.WinnerTicket

	expected, _, err := c.deriver.TicketAddress(round, number)
	if err != nil {
		return nil, err
	}
	if winnerTicket.IsZero() {
		winnerTicket = expected
	}
	if err := address.Verify("winner ticket", expected, winnerTicket); err != nil {
		return nil, err
	}

	t, err := c.reader.Ticket(ctx, winnerTicket)
	if err != nil {
		return nil, fmt.Errorf("load winner ticket %d: %w", number, err)
	}
	if err := codec.ValidateTicket(t, l); err != nil {
		return nil, &txerr.RejectionError{Reason: txerr.ReasonInvalidWinner, Err: err}
	}
	if t.TicketNumber != number {
		return nil, &txerr.RejectionError{
			Reason: txerr.ReasonInvalidWinner,
			Err:    fmt.Errorf("ticket number %d, round winner %d", t.TicketNumber, number),
		}
	}

	if winner.IsZero() {
		winner = t.Owner
	}
	if err := address.Verify("winner", t.Owner, winner); err != nil {
		return nil, &txerr.RejectionError{Reason: txerr.ReasonInvalidWinner, Err: err}
	}
	if creator.IsZero() {
		creator = l.Authority
	}
	if err := address.Verify("creator", l.Authority, creator); err != nil {
		return nil, &txerr.RejectionError{Reason: txerr.ReasonInvalidRequest, Err: err}
	}
	if platformFee.IsZero() {
		platformFee = c.platformFee
	}
	if c.platformFee.IsZero() {
		return nil, invalid("platform fee account not configured")
	}
	if err := address.Verify("platform fee account", c.platformFee, platformFee); err != nil {
		return nil, &txerr.RejectionError{Reason: txerr.ReasonInvalidRequest, Err: err}
	}

	if err := c.ensureAffordable(ctx, actor, 0); err != nil {
		return nil, err
	}

	ix, err := NewPayout(c.deriver.ProgramID(), PayoutAccounts{
		Authority:    actor,
		Lottery:      round,
		WinnerTicket: winnerTicket,
		Winner:       winner,
		Creator:      creator,
		PlatformFee:  platformFee,
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Paying out round",
		"round_id", l.RoundID,
		"winner_ticket", number,
		"winner", winner,
		"prize_pool", balance.FormatSOL(l.TotalPrizePool),
	)
	return c.submit(ctx, guard.ActionPayout, round, actor, ix, &Result{Round: round, Ticket: winnerTicket, TicketNumber: number})
}

// loadRound reads the round and checks it lives at its derived address
func (c *Client) loadRound(ctx context.Context, round solana.PublicKey) (*models.Lottery, error) {
	l, err := c.reader.Lottery(ctx, round)
	if err != nil {
		return nil, fmt.Errorf("load round: %w", err)
	}
	expected, _, err := c.deriver.RoundAddress(l.RoundID)
	if err != nil {
		return nil, err
	}
	if err := address.Verify("round", expected, round); err != nil {
		return nil, err
	}
	return l, nil
}

func (c *Client) ensureAffordable(ctx context.Context, actor solana.PublicKey, unitPrice uint64) error {
	bal, err := c.balances.Balance(ctx, actor)
	if err != nil {
		return fmt.Errorf("balance of %s: %w", actor, err)
	}
	return balance.EnsureAffordable(bal, unitPrice, c.feeBuffer)
}

func (c *Client) submit(ctx context.Context, action guard.Action, target, actor solana.PublicKey, ix solana.Instruction, res *Result) (*Result, error) {
	out, err := c.submitter.Submit(ctx, submit.Request{
		Action:       action,
		Target:       target,
		Actor:        actor,
		Instructions: []solana.Instruction{ix},
	})
	res.Outcome = out
	return res, err
}

func invalid(detail string) error {
	return &txerr.RejectionError{Reason: txerr.ReasonInvalidRequest, Err: errors.New(detail)}
}

package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/gagliardetto/solana-go"
	"github.com/spf13/cobra"

	"luckysol/internal/config"
	"luckysol/internal/lottery"
	"luckysol/internal/txerr"
)

// resultView is the printed form of a write
type resultView struct {
	Status       string  `json:"status"`
	Signature    string  `json:"signature,omitempty"`
	Attempts     int     `json:"attempts"`
	Reason       string  `json:"reason,omitempty"`
	Round        string  `json:"round"`
	Ticket       string  `json:"ticket,omitempty"`
	TicketNumber *uint32 `json:"ticket_number,omitempty"`
}

// writeCmd wraps a write with app setup and result printing
func writeCmd(conf func() *config.Config, run func(cmd *cobra.Command, c *lottery.Client, actor solana.PublicKey, args []string) (*lottery.Result, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), conf())
		if err != nil {
			return err
		}
		defer a.Close()

		client, actor, err := a.client()
		if err != nil {
			return err
		}

		res, err := run(cmd, client, actor, args)
		if res != nil && res.Outcome != nil {
			if perr := printJSON(view(res)); perr != nil {
				return perr
			}
		}
		if err != nil {
			slog.Debug("Write failed", "reason", txerr.Describe(err), "class", txerr.Classify(err))
		}
		return err
	}
}

func view(res *lottery.Result) resultView {
	v := resultView{
		Status:   string(res.Status),
		Attempts: res.Attempts,
		Reason:   res.Reason,
		Round:    res.Round.String(),
	}
	if res.Signature != (solana.Signature{}) {
		v.Signature = res.Signature.String()
	}
	if !res.Ticket.IsZero() {
		v.Ticket = res.Ticket.String()
		n := res.TicketNumber
		v.TicketNumber = &n
	}
	return v
}

func CreateCmd(conf func() *config.Config) *cobra.Command {
	var (
		id       uint64
		price    uint64
		tickets  uint32
		duration uint64
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a lottery round",
		Args:  cobra.NoArgs,
		RunE: writeCmd(conf, func(cmd *cobra.Command, c *lottery.Client, actor solana.PublicKey, _ []string) (*lottery.Result, error) {
			return c.CreateRound(cmd.Context(), id, price, tickets, duration, actor)
		}),
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "round id")
	cmd.Flags().Uint64Var(&price, "price", 0, "ticket price in lamports")
	cmd.Flags().Uint32Var(&tickets, "max-tickets", 0, "maximum number of tickets")
	cmd.Flags().Uint64Var(&duration, "duration", 0, "round duration in seconds, 0 for open-ended")
	cmd.MarkFlagRequired("id")
	cmd.MarkFlagRequired("price")
	cmd.MarkFlagRequired("max-tickets")
	return cmd
}

func BuyCmd(conf func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "buy <round>",
		Short: "Buy the next ticket of a round",
		Args:  cobra.ExactArgs(1),
		RunE: writeCmd(conf, func(cmd *cobra.Command, c *lottery.Client, actor solana.PublicKey, args []string) (*lottery.Result, error) {
			round, err := parseKey("round", args[0])
			if err != nil {
				return nil, err
			}
			return c.BuyTicket(cmd.Context(), round, actor)
		}),
	}
}

func RevealCmd(conf func() *config.Config) *cobra.Command {
	var seedHex string

	cmd := &cobra.Command{
		Use:   "reveal <round>",
		Short: "Fulfil the round's randomness and draw the winner",
		Args:  cobra.ExactArgs(1),
		RunE: writeCmd(conf, func(cmd *cobra.Command, c *lottery.Client, actor solana.PublicKey, args []string) (*lottery.Result, error) {
			round, err := parseKey("round", args[0])
			if err != nil {
				return nil, err
			}
			seed, err := parseSeed(seedHex)
			if err != nil {
				return nil, err
			}
			return c.RevealWinner(cmd.Context(), round, actor, seed)
		}),
	}
	cmd.Flags().StringVar(&seedHex, "seed", "", "32-byte hex seed, random when omitted")
	return cmd
}

func PayoutCmd(conf func() *config.Config) *cobra.Command {
	var winnerTicket, winner, creator, platformFee string

	cmd := &cobra.Command{
		Use:   "payout <round>",
		Short: "Distribute the prize pool of a drawn round",
		Args:  cobra.ExactArgs(1),
		RunE: writeCmd(conf, func(cmd *cobra.Command, c *lottery.Client, actor solana.PublicKey, args []string) (*lottery.Result, error) {
			round, err := parseKey("round", args[0])
			if err != nil {
				return nil, err
			}
			keys := make([]solana.PublicKey, 4)
			for i, f := range []struct{ what, val string }{
				{"winner ticket", winnerTicket},
				{"winner", winner},
				{"creator", creator},
				{"platform fee account", platformFee},
			} {
				if keys[i], err = parseOptionalKey(f.what, f.val); err != nil {
					return nil, err
				}
			}
			return c.Payout(cmd.Context(), round, actor, keys[0], keys[1], keys[2], keys[3])
		}),
	}
	cmd.Flags().StringVar(&winnerTicket, "winner-ticket", "", "winner ticket account, derived when omitted")
	cmd.Flags().StringVar(&winner, "winner", "", "winner wallet, read from the ticket when omitted")
	cmd.Flags().StringVar(&creator, "creator", "", "round creator, the round authority when omitted")
	cmd.Flags().StringVar(&platformFee, "platform-fee", "", "platform fee account, PLATFORM_FEE_ADDRESS when omitted")
	return cmd
}

// parseSeed decodes a 32-byte hex seed, or draws one from crypto/rand when empty
func parseSeed(s string) ([32]byte, error) {
	var seed [32]byte
	if s == "" {
		if _, err := rand.Read(seed[:]); err != nil {
			return seed, fmt.Errorf("generate seed: %w", err)
		}
		return seed, nil
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return seed, fmt.Errorf("invalid seed: %w", err)
	}
	if len(b) != len(seed) {
		return seed, fmt.Errorf("invalid seed: need %d bytes, got %d", len(seed), len(b))
	}
	copy(seed[:], b)
	return seed, nil
}

package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"luckysol/internal/api"
	"luckysol/internal/config"
	"luckysol/internal/models"
)

func RoundsCmd(conf func() *config.Config) *cobra.Command {
	var authority string

	cmd := &cobra.Command{
		Use:   "rounds",
		Short: "List lottery rounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), conf())
			if err != nil {
				return err
			}
			defer a.Close()

			var rounds []*models.Lottery
			if authority != "" {
				key, err := parseKey("authority", authority)
				if err != nil {
					return err
				}
				rounds, err = a.reader.LotteriesByAuthority(cmd.Context(), key)
				if err != nil {
					return err
				}
			} else {
				rounds, err = a.reader.AllLotteries(cmd.Context())
				if err != nil {
					return err
				}
			}

			now := time.Now()
			out := make([]models.RoundResponse, 0, len(rounds))
			for _, l := range rounds {
				out = append(out, api.BuildRoundResponse(l, now))
			}
			return printJSON(out)
		},
	}
	cmd.Flags().StringVar(&authority, "authority", "", "only rounds created by this authority")
	return cmd
}

func RoundCmd(conf func() *config.Config) *cobra.Command {
	var id uint64

	cmd := &cobra.Command{
		Use:   "round [address]",
		Short: "Show one round by address or by --id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), conf())
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) == 0 && !cmd.Flags().Changed("id") {
				return fmt.Errorf("round address or --id is required")
			}

			var addrStr string
			if len(args) == 1 {
				addrStr = args[0]
			} else {
				derived, _, err := a.deriver.RoundAddress(id)
				if err != nil {
					return err
				}
				addrStr = derived.String()
			}

			addr, err := parseKey("round", addrStr)
			if err != nil {
				return err
			}
			l, err := a.reader.Lottery(cmd.Context(), addr)
			if err != nil {
				return err
			}
			return printJSON(api.BuildRoundResponse(l, time.Now()))
		},
	}
	cmd.Flags().Uint64Var(&id, "id", 0, "derive the round address from its id")
	return cmd
}

func TicketsCmd(conf func() *config.Config) *cobra.Command {
	var round, owner string

	cmd := &cobra.Command{
		Use:   "tickets",
		Short: "List tickets of a round (--round) or held by an owner (--owner)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (round == "") == (owner == "") {
				return fmt.Errorf("exactly one of --round or --owner is required")
			}

			a, err := newApp(cmd.Context(), conf())
			if err != nil {
				return err
			}
			defer a.Close()

			var tickets []*models.Ticket
			if round != "" {
				key, err := parseKey("round", round)
				if err != nil {
					return err
				}
				tickets, err = a.reader.TicketsByRound(cmd.Context(), key)
				if err != nil {
					return err
				}
			} else {
				key, err := parseKey("owner", owner)
				if err != nil {
					return err
				}
				tickets, err = a.reader.TicketsByOwner(cmd.Context(), key)
				if err != nil {
					return err
				}
			}
			return printJSON(api.BuildTicketResponses(tickets))
		},
	}
	cmd.Flags().StringVar(&round, "round", "", "round address")
	cmd.Flags().StringVar(&owner, "owner", "", "owner wallet address")
	return cmd
}

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"luckysol/internal/config"
)

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		cfg      *config.Config
		rpcURL   string
		keypair  string
		logLevel string
	)

	cmd := &cobra.Command{
		Use:          "luckysol",
		Short:        "Client for the on-chain lottery program",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg = config.Load()
			if rpcURL != "" {
				cfg.RPCURL = rpcURL
			}
			if keypair != "" {
				cfg.KeypairPath = keypair
			}
			if logLevel != "" {
				cfg.LogLevel = logLevel
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			setupLogger(cfg.LogLevel)
			slog.Debug("Configuration loaded",
				"rpc", cfg.Endpoint(),
				"program_id", cfg.ProgramKey(),
				"commitment", cfg.Commitment,
				"log_level", cfg.LogLevel,
			)
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&rpcURL, "rpc", "", "RPC endpoint URL or cluster name (overrides RPC_URL)")
	cmd.PersistentFlags().StringVar(&keypair, "keypair", "", "solana-keygen keypair file (overrides KEYPAIR_PATH)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	conf := func() *config.Config { return cfg }
	cmd.AddCommand(
		RoundsCmd(conf),
		RoundCmd(conf),
		TicketsCmd(conf),
		CreateCmd(conf),
		BuyCmd(conf),
		RevealCmd(conf),
		PayoutCmd(conf),
		SyncCmd(conf),
		ServeCmd(conf),
	)

	return cmd
}

// setupLogger installs the default slog logger. Logs go to stderr so command output stays parseable.
func setupLogger(level string) {
	var logLevel slog.Level
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

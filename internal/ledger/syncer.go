package ledger

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"luckysol/internal/codec"
	"luckysol/internal/metrics"
	"luckysol/internal/models"
)

// SnapshotStore persists raw account images
type SnapshotStore interface {
	SaveSnapshots(ctx context.Context, snapshots []models.Snapshot) error
}

// SyncStats summarises one sync pass
type SyncStats struct {
	Rounds   int
	Tickets  int
	Skipped  int // Accounts whose bytes failed to decode
	Duration time.Duration
}

// Syncer periodically copies program accounts from a source into a snapshot store
type Syncer struct {
	source   Source
	store    SnapshotStore
	interval time.Duration
	now      func() time.Time
}

// NewSyncer creates a new Syncer instance
func NewSyncer(source Source, store SnapshotStore, interval time.Duration) *Syncer {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Syncer{
		source:   source,
		store:    store,
		interval: interval,
		now:      time.Now,
	}
}

// Start runs sync passes until ctx is cancelled. A failed pass is logged and
// retried on the next tick.
func (s *Syncer) Start(ctx context.Context) error {
	slog.Info("Starting snapshot syncer", "interval", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for pass := 1; ; pass++ {
		stats, err := s.SyncOnce(ctx)
		if err != nil {
			metrics.ErrorsTotal.WithLabelValues("sync").Inc()
			slog.Error("Sync pass failed", "pass", pass, "error", err)
		} else {
			slog.Info("Sync pass complete",
				"pass", pass,
				"rounds", stats.Rounds,
				"tickets", stats.Tickets,
				"skipped", stats.Skipped,
				"total_ms", stats.Duration.Milliseconds(),
			)
		}

		select {
		case <-ctx.Done():
			slog.Warn("Context cancelled, stopping syncer")
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// SyncOnce scans every round and ticket and saves the decodable ones
func (s *Syncer) SyncOnce(ctx context.Context) (SyncStats, error) {
	start := time.Now()
	var stats SyncStats

	rounds, err := s.source.ProgramAccounts(ctx, Filter{DataSize: codec.LotterySize})
	if err != nil {
		return stats, fmt.Errorf("scan rounds: %w", err)
	}
	tickets, err := s.source.ProgramAccounts(ctx, Filter{DataSize: codec.TicketSize})
	if err != nil {
		return stats, fmt.Errorf("scan tickets: %w", err)
	}

	fetchedAt := s.now().UTC()
	snapshots := make([]models.Snapshot, 0, len(rounds)+len(tickets))

	for _, acc := range rounds {
		if _, err := codec.DecodeLottery(acc.Data); err != nil {
			stats.Skipped++
			slog.Debug("Not saving undecodable round", "address", acc.Address, "error", err)
			continue
		}
		snapshots = append(snapshots, models.Snapshot{Address: acc.Address, Kind: codec.RecordLottery, Data: acc.Data, FetchedAt: fetchedAt})
		stats.Rounds++
	}
	for _, acc := range tickets {
		if _, err := codec.DecodeTicket(acc.Data); err != nil {
			stats.Skipped++
			slog.Debug("Not saving undecodable ticket", "address", acc.Address, "error", err)
			continue
		}
		snapshots = append(snapshots, models.Snapshot{Address: acc.Address, Kind: codec.RecordTicket, Data: acc.Data, FetchedAt: fetchedAt})
		stats.Tickets++
	}

	if err := s.store.SaveSnapshots(ctx, snapshots); err != nil {
		return stats, fmt.Errorf("save snapshots: %w", err)
	}

	metrics.SnapshotsSaved.WithLabelValues(codec.RecordLottery).Add(float64(stats.Rounds))
	metrics.SnapshotsSaved.WithLabelValues(codec.RecordTicket).Add(float64(stats.Tickets))
	metrics.RoundsTracked.Set(float64(stats.Rounds))

	stats.Duration = time.Since(start)
	metrics.SyncDuration.Observe(stats.Duration.Seconds())
	return stats, nil
}

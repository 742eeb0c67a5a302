// Package guard suppresses duplicate in-flight submissions of the same logical action.
package guard

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/google/uuid"

	"luckysol/internal/metrics"
	"luckysol/internal/txerr"
)

// Action names a kind of write request
type Action string

const (
	ActionCreateRound  Action = "create_round"
	ActionBuyTicket    Action = "buy_ticket"
	ActionRevealWinner Action = "reveal_winner"
	ActionPayout       Action = "payout"
)

// DefaultTTL applies to actions without an explicit TTL
const DefaultTTL = 30 * time.Second

// DefaultTTLs returns lease lifetimes per action: short for frequent actions, long for rare ones
func DefaultTTLs() map[Action]time.Duration {
	return map[Action]time.Duration{
		ActionBuyTicket:    15 * time.Second,
		ActionRevealWinner: 30 * time.Second,
		ActionPayout:       30 * time.Second,
		ActionCreateRound:  60 * time.Second,
	}
}

// Fingerprint identifies one logical write: this action, by this actor, against this target
type Fingerprint struct {
	Action Action
	Target solana.PublicKey
	Actor  solana.PublicKey
	Bucket int64 // Time bucket index, 0 when bucketing is disabled
}

// Key returns the map key for the fingerprint
func (f Fingerprint) Key() string {
	return fmt.Sprintf("%s:%s:%s:%d", f.Action, f.Target, f.Actor, f.Bucket)
}

// Lease is held by a submission for the lifetime of its fingerprint
type Lease struct {
	ID          string
	Fingerprint Fingerprint
	ExpiresAt   time.Time
}

// Options configures a Guard
type Options struct {
	TTLs         map[Action]time.Duration
	DefaultTTL   time.Duration
	BucketWindow time.Duration    // When > 0, fingerprints are bucketed by this window
	Now          func() time.Time // Defaults to time.Now
}

// Guard is a time-bounded idempotency cache keyed by fingerprint.
// Expired entries are swept on Begin; there is no background timer.
type Guard struct {
	mu      sync.Mutex
	entries map[string]*Lease
	ttls    map[Action]time.Duration
	def     time.Duration
	bucket  time.Duration
	now     func() time.Time
}

// New creates a Guard
func New(opts Options) *Guard {
	if opts.TTLs == nil {
		opts.TTLs = DefaultTTLs()
	}
	if opts.DefaultTTL <= 0 {
		opts.DefaultTTL = DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Guard{
		entries: make(map[string]*Lease),
		ttls:    opts.TTLs,
		def:     opts.DefaultTTL,
		bucket:  opts.BucketWindow,
		now:     opts.Now,
	}
}

// Fingerprint builds the fingerprint for an action, applying the configured time bucket
func (g *Guard) Fingerprint(action Action, target, actor solana.PublicKey) Fingerprint {
	fp := Fingerprint{Action: action, Target: target, Actor: actor}
	if g.bucket > 0 {
		fp.Bucket = g.now().UnixNano() / int64(g.bucket)
	}
	return fp
}

// TTL returns the lease lifetime for action
func (g *Guard) TTL(action Action) time.Duration {
	if ttl, ok := g.ttls[action]; ok && ttl > 0 {
		return ttl
	}
	return g.def
}

// Begin registers fp. It fails with txerr.ErrDuplicateInFlight when an unexpired
// lease for the same fingerprint exists. Check and insert happen under one lock.
func (g *Guard) Begin(fp Fingerprint) (*Lease, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	g.sweep(now)

	key := fp.Key()
	if held, ok := g.entries[key]; ok {
		metrics.GuardRejections.WithLabelValues(string(fp.Action)).Inc()
		slog.Debug("Duplicate submission suppressed",
			"action", fp.Action,
			"target", fp.Target,
			"lease_id", held.ID,
			"expires_in_ms", held.ExpiresAt.Sub(now).Milliseconds(),
		)
		return nil, fmt.Errorf("%s on %s by %s: %w", fp.Action, fp.Target, fp.Actor, txerr.ErrDuplicateInFlight)
	}

	lease := &Lease{
		ID:          uuid.NewString(),
		Fingerprint: fp,
		ExpiresAt:   now.Add(g.TTL(fp.Action)),
	}
	g.entries[key] = lease
	metrics.GuardActiveLeases.Set(float64(len(g.entries)))

	return lease, nil
}

// End releases the lease. A lease that expired and was since re-acquired by
// another submission is left alone.
func (g *Guard) End(lease *Lease) {
	if lease == nil {
		return
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	key := lease.Fingerprint.Key()
	if held, ok := g.entries[key]; ok && held.ID == lease.ID {
		delete(g.entries, key)
	}
	metrics.GuardActiveLeases.Set(float64(len(g.entries)))
}

// Len returns the number of entries currently held, expired or not
func (g *Guard) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entries)
}

func (g *Guard) sweep(now time.Time) {
	for key, lease := range g.entries {
		if !now.Before(lease.ExpiresAt) {
			delete(g.entries, key)
		}
	}
}

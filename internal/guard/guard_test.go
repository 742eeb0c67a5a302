package guard

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/txerr"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGuard() (*Guard, *fakeClock) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	return New(Options{Now: clock.Now}), clock
}

var (
	round  = solana.MustPublicKeyFromBase58("EN3hAGsNiDrR8rnNriVaMc2sYPzZQjiRugeXESy4CKMz")
	player = solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
)

func TestGuard_DuplicateSuppressed(t *testing.T) {
	g, _ := newTestGuard()
	fp := g.Fingerprint(ActionBuyTicket, round, player)

	lease, err := g.Begin(fp)
	require.NoError(t, err)
	require.NotNil(t, lease)

	_, err = g.Begin(fp)
	assert.ErrorIs(t, err, txerr.ErrDuplicateInFlight)
	assert.Equal(t, txerr.ClassDuplicate, txerr.Classify(err))
}

func TestGuard_DistinctFingerprintsIndependent(t *testing.T) {
	g, _ := newTestGuard()

	_, err := g.Begin(g.Fingerprint(ActionBuyTicket, round, player))
	require.NoError(t, err)

	_, err = g.Begin(g.Fingerprint(ActionPayout, round, player))
	assert.NoError(t, err, "different action")

	_, err = g.Begin(g.Fingerprint(ActionBuyTicket, player, round))
	assert.NoError(t, err, "different target and actor")

	assert.Equal(t, 3, g.Len())
}

func TestGuard_ExpiryAllowsResubmission(t *testing.T) {
	g, clock := newTestGuard()
	fp := g.Fingerprint(ActionBuyTicket, round, player)

	_, err := g.Begin(fp)
	require.NoError(t, err)

	clock.Advance(g.TTL(ActionBuyTicket) - time.Millisecond)
	_, err = g.Begin(fp)
	assert.ErrorIs(t, err, txerr.ErrDuplicateInFlight, "still inside TTL")

	clock.Advance(time.Millisecond)
	_, err = g.Begin(fp)
	assert.NoError(t, err, "expired exactly at TTL")
}

func TestGuard_EndReleases(t *testing.T) {
	g, _ := newTestGuard()
	fp := g.Fingerprint(ActionRevealWinner, round, player)

	lease, err := g.Begin(fp)
	require.NoError(t, err)

	g.End(lease)
	assert.Equal(t, 0, g.Len())

	_, err = g.Begin(fp)
	assert.NoError(t, err)
}

func TestGuard_StaleEndKeepsNewLease(t *testing.T) {
	g, clock := newTestGuard()
	fp := g.Fingerprint(ActionPayout, round, player)

	old, err := g.Begin(fp)
	require.NoError(t, err)

	clock.Advance(g.TTL(ActionPayout))
	fresh, err := g.Begin(fp)
	require.NoError(t, err)
	require.NotEqual(t, old.ID, fresh.ID)

	g.End(old)
	_, err = g.Begin(fp)
	assert.ErrorIs(t, err, txerr.ErrDuplicateInFlight, "stale End must not release the new lease")

	g.End(nil)
}

func TestGuard_ConcurrentBeginSingleWinner(t *testing.T) {
	g := New(Options{})
	fp := g.Fingerprint(ActionBuyTicket, round, player)

	const workers = 32
	var wins, dups atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			if _, err := g.Begin(fp); err == nil {
				wins.Add(1)
			} else {
				dups.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), dups.Load())
}

func TestGuard_TTLs(t *testing.T) {
	g := New(Options{TTLs: map[Action]time.Duration{ActionBuyTicket: time.Second}, DefaultTTL: 5 * time.Second})

	assert.Equal(t, time.Second, g.TTL(ActionBuyTicket))
	assert.Equal(t, 5*time.Second, g.TTL(ActionPayout))

	defaults := DefaultTTLs()
	assert.Less(t, defaults[ActionBuyTicket], defaults[ActionCreateRound])
}

func TestGuard_BucketWindow(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	g := New(Options{BucketWindow: time.Minute, Now: clock.Now})

	first := g.Fingerprint(ActionCreateRound, round, player)
	clock.Advance(time.Minute)
	second := g.Fingerprint(ActionCreateRound, round, player)

	assert.NotEqual(t, first.Key(), second.Key())
	assert.Equal(t, first.Bucket+1, second.Bucket)
}

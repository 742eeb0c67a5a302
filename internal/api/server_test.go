package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"luckysol/internal/codec"
	"luckysol/internal/codec/codectest"
	"luckysol/internal/ledger"
	"luckysol/internal/models"
)

var now = time.Unix(1_700_000_000, 0)

type fakeReader struct {
	rounds  map[solana.PublicKey]*models.Lottery
	tickets []*models.Ticket
	broken  map[solana.PublicKey]error
	scanErr error
}

func (f *fakeReader) Lottery(_ context.Context, addr solana.PublicKey) (*models.Lottery, error) {
	if err, ok := f.broken[addr]; ok {
		return nil, err
	}
	l, ok := f.rounds[addr]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return l, nil
}

func (f *fakeReader) AllLotteries(context.Context) ([]*models.Lottery, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	var out []*models.Lottery
	for _, l := range f.rounds {
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeReader) LotteriesByAuthority(_ context.Context, authority solana.PublicKey) ([]*models.Lottery, error) {
	var out []*models.Lottery
	for _, l := range f.rounds {
		if l.Authority == authority {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeReader) TicketsByRound(_ context.Context, round solana.PublicKey) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.Round == round {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeReader) TicketsByOwner(_ context.Context, owner solana.PublicKey) ([]*models.Ticket, error) {
	var out []*models.Ticket
	for _, t := range f.tickets {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestServer(t *testing.T) (*Server, *fakeReader) {
	t.Helper()

	winner := uint32(1)
	reader := &fakeReader{
		rounds: map[solana.PublicKey]*models.Lottery{
			codectest.Key(1): {
				Address: codectest.Key(1), Authority: codectest.Key(9), RoundID: 2,
				TicketPrice: 1_500_000_000, MaxTickets: 10, TicketsSold: 3, TotalPrizePool: 4_500_000_000,
				CreatedAt: now.Add(-time.Hour).Unix(), Duration: 7200,
			},
			codectest.Key(2): {
				Address: codectest.Key(2), Authority: codectest.Key(8), RoundID: 1,
				TicketPrice: 10, MaxTickets: 2, TicketsSold: 2, TotalPrizePool: 20,
				WinnerTicket: &winner, RandomnessFulfilled: true,
			},
		},
		tickets: []*models.Ticket{
			{Address: codectest.Key(21), Round: codectest.Key(1), Owner: codectest.Key(5), TicketNumber: 1},
			{Address: codectest.Key(20), Round: codectest.Key(1), Owner: codectest.Key(5), TicketNumber: 0},
			{Address: codectest.Key(22), Round: codectest.Key(1), Owner: codectest.Key(6), TicketNumber: 2},
		},
		broken: map[solana.PublicKey]error{},
	}

	s := NewServer("0", reader, nil)
	s.now = func() time.Time { return now }
	return s, reader
}

func get(t *testing.T, s *Server, target string, out any) int {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	if out != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out), rec.Body.String())
	}
	return rec.Code
}

func TestListRounds(t *testing.T) {
	s, _ := newTestServer(t)

	var resp models.RoundListResponse
	require.Equal(t, http.StatusOK, get(t, s, "/rounds", &resp))

	require.Len(t, resp.Rounds, 2)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, uint64(1), resp.Rounds[0].RoundID, "ordered by round id")
	assert.Equal(t, StatusDrawn, resp.Rounds[0].Status)
	assert.Equal(t, StatusOpen, resp.Rounds[1].Status)
	assert.Equal(t, "1.5", resp.Rounds[1].TicketPriceSOL)
}

func TestListRounds_ByAuthorityAndPaging(t *testing.T) {
	s, _ := newTestServer(t)

	var resp models.RoundListResponse
	require.Equal(t, http.StatusOK, get(t, s, "/rounds?authority="+codectest.Key(9).String(), &resp))
	require.Len(t, resp.Rounds, 1)
	assert.Equal(t, codectest.Key(1).String(), resp.Rounds[0].Address)

	require.Equal(t, http.StatusOK, get(t, s, "/rounds?limit=1&offset=1", &resp))
	require.Len(t, resp.Rounds, 1)
	assert.Equal(t, uint64(2), resp.Rounds[0].RoundID)
	assert.Equal(t, 2, resp.Page)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/rounds?authority=nope!", nil))
}

func TestGetRound(t *testing.T) {
	s, reader := newTestServer(t)

	var resp models.RoundResponse
	require.Equal(t, http.StatusOK, get(t, s, "/rounds/"+codectest.Key(1).String(), &resp))
	assert.Equal(t, uint32(3), resp.TicketsSold)
	require.NotNil(t, resp.EndsAt)
	assert.True(t, resp.EndsAt.Equal(now.Add(time.Hour)))

	var errResp models.ErrorResponse
	assert.Equal(t, http.StatusNotFound, get(t, s, "/rounds/"+codectest.Key(3).String(), &errResp))
	assert.Equal(t, http.StatusNotFound, errResp.Code)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/rounds/not-an-address!", nil))

	reader.broken[codectest.Key(4)] = &codec.ParseError{Kind: codec.TooShort, Record: "lottery"}
	assert.Equal(t, http.StatusUnprocessableEntity, get(t, s, "/rounds/"+codectest.Key(4).String(), nil))

	reader.broken[codectest.Key(5)] = errors.New("connection refused")
	assert.Equal(t, http.StatusBadGateway, get(t, s, "/rounds/"+codectest.Key(5).String(), nil))
}

func TestRoundTickets(t *testing.T) {
	s, _ := newTestServer(t)

	var resp models.TicketListResponse
	require.Equal(t, http.StatusOK, get(t, s, "/rounds/"+codectest.Key(1).String()+"/tickets", &resp))
	require.Len(t, resp.Tickets, 3)
	for i, tk := range resp.Tickets {
		assert.Equal(t, uint32(i), tk.TicketNumber)
	}
}

func TestOwnerTickets(t *testing.T) {
	s, _ := newTestServer(t)

	var resp models.TicketListResponse
	require.Equal(t, http.StatusOK, get(t, s, "/tickets?owner="+codectest.Key(5).String(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, codectest.Key(5).String(), resp.Owner)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/tickets", nil))
}

func TestHealthAndUnknownRoute(t *testing.T) {
	s, _ := newTestServer(t)

	var health map[string]any
	require.Equal(t, http.StatusOK, get(t, s, "/health", &health))
	assert.Equal(t, "healthy", health["status"])

	assert.Equal(t, http.StatusNotFound, get(t, s, "/nope", nil))
}

func TestBuildRoundResponse_UnrepresentableEnd(t *testing.T) {
	l := &models.Lottery{MaxTickets: 2, CreatedAt: now.Add(-time.Minute).Unix(), Duration: 1 << 63}

	resp := BuildRoundResponse(l, now)

	assert.Equal(t, StatusOpen, resp.Status)
	assert.Nil(t, resp.EndsAt)
}

func TestRoundStatus(t *testing.T) {
	tests := []struct {
		name  string
		round models.Lottery
		want  string
	}{
		{"open", models.Lottery{MaxTickets: 2}, StatusOpen},
		{"sold out", models.Lottery{MaxTickets: 2, TicketsSold: 2}, StatusSoldOut},
		{"past end", models.Lottery{MaxTickets: 2, CreatedAt: now.Add(-time.Hour).Unix(), Duration: 60}, StatusClosed},
		{"drawn", models.Lottery{MaxTickets: 2, TicketsSold: 2, RandomnessFulfilled: true}, StatusDrawn},
		{"high bit duration", models.Lottery{MaxTickets: 2, CreatedAt: now.Add(-time.Minute).Unix(), Duration: 1 << 63}, StatusOpen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundStatus(&tt.round, now))
		})
	}
}

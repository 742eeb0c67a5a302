package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"golang.org/x/time/rate"

	"luckysol/internal/metrics"
	"luckysol/internal/submit"
)

// RPCOptions configures an RPC adapter
type RPCOptions struct {
	Commitment rpc.CommitmentType
	RateLimit  float64 // Requests per second, 0 disables pacing
	RateBurst  int
}

// RPC adapts a JSON-RPC endpoint to Source, submit.Chain and balance lookups
type RPC struct {
	client     *rpc.Client
	programID  solana.PublicKey
	commitment rpc.CommitmentType
	limiter    *rate.Limiter
}

// NewRPC creates an adapter for endpoint, scoped to programID
func NewRPC(endpoint string, programID solana.PublicKey, opts RPCOptions) *RPC {
	if opts.Commitment == "" {
		opts.Commitment = rpc.CommitmentConfirmed
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		if opts.RateBurst < 1 {
			opts.RateBurst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.RateBurst)
	}
	return &RPC{
		client:     rpc.New(endpoint),
		programID:  programID,
		commitment: opts.Commitment,
		limiter:    limiter,
	}
}

// ResolveEndpoint maps a cluster name to its public endpoint; anything else is returned as is
func ResolveEndpoint(nameOrURL string) string {
	switch strings.ToLower(nameOrURL) {
	case "devnet":
		return rpc.DevNet_RPC
	case "testnet":
		return rpc.TestNet_RPC
	case "mainnet", "mainnet-beta":
		return rpc.MainNetBeta_RPC
	case "localnet", "localhost":
		return rpc.LocalNet_RPC
	default:
		return nameOrURL
	}
}

// ParseCommitment validates a commitment level name
func ParseCommitment(s string) (rpc.CommitmentType, error) {
	switch c := rpc.CommitmentType(strings.ToLower(s)); c {
	case rpc.CommitmentProcessed, rpc.CommitmentConfirmed, rpc.CommitmentFinalized:
		return c, nil
	case "":
		return rpc.CommitmentConfirmed, nil
	default:
		return "", fmt.Errorf("unknown commitment %q", s)
	}
}

// begin paces the call and returns a func that records its latency
func (r *RPC) begin(ctx context.Context, method string) (func(), error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	start := time.Now()
	return func() {
		metrics.RPCRequestDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	}, nil
}

// Account implements Source
func (r *RPC) Account(ctx context.Context, addr solana.PublicKey) ([]byte, error) {
	done, err := r.begin(ctx, "getAccountInfo")
	if err != nil {
		return nil, err
	}
	defer done()

	res, err := r.client.GetAccountInfoWithOpts(ctx, addr, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: r.commitment,
	})
	if errors.Is(err, rpc.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getAccountInfo %s: %w", addr, err)
	}
	if res == nil || res.Value == nil || res.Value.Data == nil {
		return nil, ErrNotFound
	}
	return res.Value.Data.GetBinary(), nil
}

// ProgramAccounts implements Source
func (r *RPC) ProgramAccounts(ctx context.Context, filter Filter) ([]KeyedData, error) {
	done, err := r.begin(ctx, "getProgramAccounts")
	if err != nil {
		return nil, err
	}
	defer done()

	var filters []rpc.RPCFilter
	if filter.DataSize != 0 {
		filters = append(filters, rpc.RPCFilter{DataSize: filter.DataSize})
	}
	for _, m := range filter.Memcmp {
		filters = append(filters, rpc.RPCFilter{
			Memcmp: &rpc.RPCFilterMemcmp{Offset: m.Offset, Bytes: solana.Base58(m.Bytes)},
		})
	}

	res, err := r.client.GetProgramAccountsWithOpts(ctx, r.programID, &rpc.GetProgramAccountsOpts{
		Commitment: r.commitment,
		Encoding:   solana.EncodingBase64,
		Filters:    filters,
	})
	if err != nil {
		return nil, fmt.Errorf("getProgramAccounts: %w", err)
	}

	out := make([]KeyedData, 0, len(res))
	for _, acc := range res {
		if acc == nil || acc.Account == nil || acc.Account.Data == nil {
			continue
		}
		out = append(out, KeyedData{Address: acc.Pubkey, Data: acc.Account.Data.GetBinary()})
	}
	return out, nil
}

// Balance returns the lamport balance of addr
func (r *RPC) Balance(ctx context.Context, addr solana.PublicKey) (uint64, error) {
	done, err := r.begin(ctx, "getBalance")
	if err != nil {
		return 0, err
	}
	defer done()

	res, err := r.client.GetBalance(ctx, addr, r.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBalance %s: %w", addr, err)
	}
	return res.Value, nil
}

// LatestBlockhash implements submit.Chain
func (r *RPC) LatestBlockhash(ctx context.Context) (submit.Token, error) {
	done, err := r.begin(ctx, "getLatestBlockhash")
	if err != nil {
		return submit.Token{}, err
	}
	defer done()

	res, err := r.client.GetLatestBlockhash(ctx, r.commitment)
	if err != nil {
		return submit.Token{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return submit.Token{}, errors.New("getLatestBlockhash: empty response")
	}
	return submit.Token{
		Blockhash:            res.Value.Blockhash,
		LastValidBlockHeight: res.Value.LastValidBlockHeight,
	}, nil
}

// Send implements submit.Chain. Preflight runs at the adapter's commitment.
func (r *RPC) Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	done, err := r.begin(ctx, "sendTransaction")
	if err != nil {
		return solana.Signature{}, err
	}
	defer done()

	// retries are driven by the submitter with fresh blockhashes
	var maxRetries uint
	return r.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: r.commitment,
		MaxRetries:          &maxRetries,
	})
}

// SignatureStatus implements submit.Chain
func (r *RPC) SignatureStatus(ctx context.Context, sig solana.Signature) (*submit.SignatureStatus, error) {
	done, err := r.begin(ctx, "getSignatureStatuses")
	if err != nil {
		return nil, err
	}
	defer done()

	res, err := r.client.GetSignatureStatuses(ctx, false, sig)
	if err != nil {
		return nil, fmt.Errorf("getSignatureStatuses: %w", err)
	}
	if res == nil || len(res.Value) == 0 || res.Value[0] == nil {
		return nil, nil
	}

	st := res.Value[0]
	if st.Err != nil {
		return &submit.SignatureStatus{Err: fmt.Errorf("%v", st.Err)}, nil
	}
	return &submit.SignatureStatus{Confirmed: r.reached(st.ConfirmationStatus)}, nil
}

// BlockHeight implements submit.Chain
func (r *RPC) BlockHeight(ctx context.Context) (uint64, error) {
	done, err := r.begin(ctx, "getBlockHeight")
	if err != nil {
		return 0, err
	}
	defer done()

	height, err := r.client.GetBlockHeight(ctx, r.commitment)
	if err != nil {
		return 0, fmt.Errorf("getBlockHeight: %w", err)
	}
	return height, nil
}

// Close releases the underlying HTTP client
func (r *RPC) Close() error {
	return r.client.Close()
}

func (r *RPC) reached(status rpc.ConfirmationStatusType) bool {
	switch status {
	case rpc.ConfirmationStatusFinalized:
		return true
	case rpc.ConfirmationStatusConfirmed:
		return r.commitment != rpc.CommitmentFinalized
	case rpc.ConfirmationStatusProcessed:
		return r.commitment == rpc.CommitmentProcessed
	default:
		return false
	}
}

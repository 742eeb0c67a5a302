// Package submit drives one logical write through signing, sending and
// confirmation, retrying recoverable failures with a fresh liveness token.
package submit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gagliardetto/solana-go"

	"luckysol/internal/guard"
	"luckysol/internal/ledger/retry"
	"luckysol/internal/metrics"
	"luckysol/internal/txerr"
)

// Defaults for confirmation polling
const (
	DefaultConfirmTimeout = 30 * time.Second
	DefaultPollInterval   = 500 * time.Millisecond
)

// Status is the final disposition of a submission
type Status string

const (
	StatusConfirmed         Status = "confirmed"
	StatusAlreadyProcessed  Status = "already_processed"
	StatusDuplicateInFlight Status = "duplicate_in_flight"
	StatusFailed            Status = "failed"
)

// Request describes one logical write
type Request struct {
	Action       guard.Action
	Target       solana.PublicKey // Account the write is about, part of the fingerprint
	Actor        solana.PublicKey // Fee payer, defaults to the signer
	Instructions []solana.Instruction
}

// Outcome is the result of Submit
type Outcome struct {
	Status    Status
	Signature solana.Signature // Last signature sent, zero if nothing was signed
	Attempts  int
	Reason    string // Human-readable, empty on success
	Err       error
}

// Options configures a Submitter
type Options struct {
	ConfirmTimeout time.Duration
	PollInterval   time.Duration
	Strategy       retry.Strategy // Defaults to exponential backoff with retry.DefaultPolicy
	Observer       Observer
}

// Submitter sends transactions and awaits their confirmation
type Submitter struct {
	chain          Chain
	signer         Signer
	guard          *guard.Guard
	strategy       retry.Strategy
	confirmTimeout time.Duration
	pollInterval   time.Duration
	observe        Observer
}

// New creates a Submitter
func New(chain Chain, signer Signer, g *guard.Guard, opts Options) *Submitter {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = DefaultConfirmTimeout
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = DefaultPollInterval
	}
	if opts.Strategy == nil {
		opts.Strategy = retry.NewExponentialBackoffStrategy(retry.DefaultPolicy())
	}
	if opts.Observer == nil {
		opts.Observer = func(int, State) {}
	}
	return &Submitter{
		chain:          chain,
		signer:         signer,
		guard:          g,
		strategy:       opts.Strategy,
		confirmTimeout: opts.ConfirmTimeout,
		pollInterval:   opts.PollInterval,
		observe:        opts.Observer,
	}
}

// Signer returns the signer used for every submission
func (s *Submitter) Signer() Signer {
	return s.signer
}

// Submit runs req to a terminal outcome. The returned error equals Outcome.Err;
// an already-processed transaction counts as success.
func (s *Submitter) Submit(ctx context.Context, req Request) (*Outcome, error) {
	if len(req.Instructions) == 0 {
		return nil, fmt.Errorf("%s: no instructions: %w", req.Action, txerr.Rejection(txerr.ReasonInvalidRequest))
	}
	actor := req.Actor
	if actor.IsZero() {
		actor = s.signer.PublicKey()
	}

	s.observe(0, StateIdle)

	lease, err := s.guard.Begin(s.guard.Fingerprint(req.Action, req.Target, actor))
	if err != nil {
		out := &Outcome{Status: StatusDuplicateInFlight, Reason: txerr.Describe(err), Err: err}
		s.record(req, out)
		return out, err
	}
	defer s.guard.End(lease)

	s.observe(0, StateFingerprinted)

	var (
		lastSig  solana.Signature
		attempts int
	)
	err = s.strategy.Execute(ctx, func(ctx context.Context, attempt int) error {
		attempts = attempt
		sig, err := s.attempt(ctx, attempt, actor, req.Instructions)
		if sig != (solana.Signature{}) {
			lastSig = sig
		}
		if err != nil {
			s.observe(attempt, StateFailed)
			slog.Debug("Submission attempt failed",
				"action", req.Action,
				"attempt", attempt,
				"class", txerr.Classify(err).String(),
				"error", err,
			)
			return err
		}
		return nil
	})

	out := &Outcome{Signature: lastSig, Attempts: attempts}
	switch {
	case err == nil:
		out.Status = StatusConfirmed
	case txerr.Classify(err) == txerr.ClassAlreadyProcessed:
		out.Status = StatusAlreadyProcessed
	default:
		out.Status = StatusFailed
		out.Reason = txerr.Describe(err)
		out.Err = fmt.Errorf("%s: %w", req.Action, err)
	}
	s.record(req, out)

	return out, out.Err
}

// attempt performs one pass of sign, send and confirm against a fresh token
func (s *Submitter) attempt(ctx context.Context, attempt int, actor solana.PublicKey, instructions []solana.Instruction) (solana.Signature, error) {
	token, err := s.chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, txerr.Normalize(fmt.Errorf("latest blockhash: %w", err))
	}

	tx, err := solana.NewTransaction(instructions, token.Blockhash, solana.TransactionPayer(actor))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("build transaction: %w", err)
	}
	if err := s.signer.Sign(ctx, tx); err != nil {
		return solana.Signature{}, txerr.Normalize(fmt.Errorf("sign: %w", err))
	}
	if len(tx.Signatures) == 0 {
		return solana.Signature{}, errors.New("sign: transaction carries no signature")
	}
	sig := tx.Signatures[0]
	s.observe(attempt, StateSigned)

	sent, err := s.chain.Send(ctx, tx)
	if err != nil {
		return sig, txerr.Normalize(fmt.Errorf("send: %w", err))
	}
	if sent != (solana.Signature{}) {
		sig = sent
	}
	s.observe(attempt, StateSent)

	s.observe(attempt, StateConfirming)
	if err := s.confirm(ctx, sig, token); err != nil {
		return sig, err
	}
	s.observe(attempt, StateConfirmed)

	slog.Info("Transaction confirmed", "signature", sig, "attempt", attempt)
	return sig, nil
}

// confirm polls until sig reaches the commitment, fails on chain, outlives its
// token or the confirmation timeout elapses
func (s *Submitter) confirm(ctx context.Context, sig solana.Signature, token Token) error {
	cctx, cancel := context.WithTimeout(ctx, s.confirmTimeout)
	defer cancel()

	start := time.Now()
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	for {
		status, err := s.chain.SignatureStatus(cctx, sig)
		switch {
		case err != nil:
			slog.Debug("Signature status poll failed", "signature", sig, "error", err)
		case status != nil && status.Err != nil:
			return txerr.Normalize(fmt.Errorf("transaction failed: %w", status.Err))
		case status != nil && status.Confirmed:
			metrics.ConfirmationDuration.Observe(time.Since(start).Seconds())
			return nil
		}

		if height, err := s.chain.BlockHeight(cctx); err == nil && height > token.LastValidBlockHeight {
			return txerr.Recoverable(txerr.ReasonExpired,
				fmt.Errorf("transaction %s: block height %d past %d", sig, height, token.LastValidBlockHeight))
		}

		select {
		case <-cctx.Done():
			return txerr.Recoverable(txerr.ReasonTimeout, fmt.Errorf("confirm %s: %w", sig, cctx.Err()))
		case <-ticker.C:
		}
	}
}

func (s *Submitter) record(req Request, out *Outcome) {
	metrics.SubmissionsTotal.WithLabelValues(string(req.Action), string(out.Status)).Inc()
	if out.Attempts > 0 {
		metrics.SubmissionAttempts.WithLabelValues(string(req.Action)).Observe(float64(out.Attempts))
	}
	if out.Err != nil {
		metrics.ErrorsTotal.WithLabelValues("submit").Inc()
		slog.Warn("Submission failed",
			"action", req.Action,
			"target", req.Target,
			"status", out.Status,
			"attempts", out.Attempts,
			"reason", out.Reason,
		)
	}
}

package submit

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Token is the liveness token a transaction is built against
type Token struct {
	Blockhash            solana.Hash
	LastValidBlockHeight uint64
}

// SignatureStatus is the ledger's view of a sent transaction
type SignatureStatus struct {
	Confirmed bool  // Reached the configured commitment
	Err       error // Non-nil when the transaction executed and failed
}

// Chain is the write side of the ledger
type Chain interface {
	LatestBlockhash(ctx context.Context) (Token, error)
	Send(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)

	// SignatureStatus returns nil when the ledger has no record of sig yet
	SignatureStatus(ctx context.Context, sig solana.Signature) (*SignatureStatus, error)
	BlockHeight(ctx context.Context) (uint64, error)
}

// Signer authorizes transactions on behalf of one actor
type Signer interface {
	PublicKey() solana.PublicKey
	Sign(ctx context.Context, tx *solana.Transaction) error
}

// KeypairSigner signs with a local private key
type KeypairSigner struct {
	key solana.PrivateKey
}

// NewKeypairSigner creates a signer for key
func NewKeypairSigner(key solana.PrivateKey) *KeypairSigner {
	return &KeypairSigner{key: key}
}

// LoadKeypairSigner reads a solana-keygen JSON keypair file
func LoadKeypairSigner(path string) (*KeypairSigner, error) {
	key, err := solana.PrivateKeyFromSolanaKeygenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load keypair %s: %w", path, err)
	}
	return NewKeypairSigner(key), nil
}

// PublicKey returns the signer's address
func (s *KeypairSigner) PublicKey() solana.PublicKey {
	return s.key.PublicKey()
}

// Sign adds the signer's signature to tx
func (s *KeypairSigner) Sign(_ context.Context, tx *solana.Transaction) error {
	pub := s.key.PublicKey()
	_, err := tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(pub) {
			return &s.key
		}
		return nil
	})
	return err
}

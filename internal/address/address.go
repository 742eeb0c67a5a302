// Package address derives the program-owned addresses of lottery records.
package address

import (
	"encoding/binary"
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// Seed prefixes used by the lottery program
const (
	LotterySeed = "lottery"
	TicketSeed  = "ticket"
)

// DefaultProgramID is the deployed lottery program
var DefaultProgramID = solana.MustPublicKeyFromBase58("EN3hAGsNiDrR8rnNriVaMc2sYPzZQjiRugeXESy4CKMz")

// Deriver computes deterministic addresses for a single program
type Deriver struct {
	programID solana.PublicKey
}

// NewDeriver creates a Deriver bound to programID
func NewDeriver(programID solana.PublicKey) *Deriver {
	return &Deriver{programID: programID}
}

// ProgramID returns the program the deriver is bound to
func (d *Deriver) ProgramID() solana.PublicKey {
	return d.programID
}

// Derive returns the canonical program address and bump for the ordered seeds.
// Numeric seeds must already be width-encoded, see U64Seed and U32Seed.
func (d *Deriver) Derive(seeds ...[]byte) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress(seeds, d.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive program address: %w", err)
	}
	return addr, bump, nil
}

// RoundAddress derives the Lottery account for roundID
func (d *Deriver) RoundAddress(roundID uint64) (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(LotterySeed), U64Seed(roundID))
}

// TicketAddress derives the Ticket account with number ticketNumber in round
func (d *Deriver) TicketAddress(round solana.PublicKey, ticketNumber uint32) (solana.PublicKey, uint8, error) {
	return d.Derive([]byte(TicketSeed), round.Bytes(), U32Seed(ticketNumber))
}

// U64Seed encodes v as an 8-byte little-endian seed
func U64Seed(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// U32Seed encodes v as a 4-byte little-endian seed
func U32Seed(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// AddressMismatchError reports a derived address that disagrees with the one the ledger returned
type AddressMismatchError struct {
	What     string
	Expected solana.PublicKey
	Got      solana.PublicKey
}

func (e *AddressMismatchError) Error() string {
	return fmt.Sprintf("address mismatch for %s: derived %s, ledger has %s", e.What, e.Expected, e.Got)
}

// Verify returns an AddressMismatchError when got differs from expected
func Verify(what string, expected, got solana.PublicKey) error {
	if expected.Equals(got) {
		return nil
	}
	return &AddressMismatchError{What: what, Expected: expected, Got: got}
}

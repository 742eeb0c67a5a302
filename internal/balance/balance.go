// Package balance checks that a wallet can afford an action before it is signed.
package balance

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of base units in one SOL
const LamportsPerSOL uint64 = 1_000_000_000

// DefaultFeeBuffer covers fees and rent on top of the action's price (0.01 SOL)
const DefaultFeeBuffer uint64 = 10_000_000

// InsufficientFundsError reports a balance below the required amount
type InsufficientFundsError struct {
	Required  uint64
	Available uint64
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: required %s SOL, available %s SOL",
		FormatSOL(e.Required), FormatSOL(e.Available))
}

// EnsureAffordable fails when balance < unitPrice + feeBuffer.
// The sum saturates at MaxUint64 rather than wrapping.
func EnsureAffordable(balance, unitPrice, feeBuffer uint64) error {
	required, carry := bits.Add64(unitPrice, feeBuffer, 0)
	if carry != 0 {
		required = math.MaxUint64
	}
	if balance < required {
		return &InsufficientFundsError{Required: required, Available: balance}
	}
	return nil
}

// FormatSOL renders lamports as a SOL amount for display only
func FormatSOL(lamports uint64) string {
	d := decimal.NewFromBigInt(new(big.Int).SetUint64(lamports), 0)
	return d.Shift(-9).String()
}

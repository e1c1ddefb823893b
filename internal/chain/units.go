// internal/chain/units.go
package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
)

// Decimals is the precision of the native coin and of launchpad tokens.
const Decimals = 18

// FromWei converts a base-unit amount into whole units.
func FromWei(v *big.Int) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -Decimals)
}

// ToWei converts whole units into base units, truncating below one wei.
func ToWei(d decimal.Decimal) *big.Int {
	return d.Shift(Decimals).BigInt()
}

// CommentFee is what the contract charges per comment. Votes are paid
// through the same entry point.
var CommentFee = decimal.New(25, -3)

// IsAddress reports whether s is a 20-byte hex address.
func IsAddress(s string) bool {
	return common.IsHexAddress(s)
}

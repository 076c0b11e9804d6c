package chain

import (
	"math/big"

	"github.com/shopspring/decimal"
)

var weiPerEther = decimal.New(1, 18)

// ToWei converts a whole-token amount to its smallest unit, truncating below one wei.
func ToWei(amount decimal.Decimal) *big.Int {
	return amount.Mul(weiPerEther).Truncate(0).BigInt()
}

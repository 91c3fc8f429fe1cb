package tracker

import "github.com/shopspring/decimal"

// sharePrecision is the number of fractional digits kept when dividing
// token counts into shares.
const sharePrecision = 28

// rshFrac is the fixed revenue share fraction withheld from every
// settlement.
var rshFrac = decimal.New(5, -2)

// ShareCalc prices a relay's share of a settled servicekey.
type ShareCalc interface {
	// Reward returns the balance credit for the given share, a ratio
	// in [0, 1].
	Reward(share decimal.Decimal) decimal.Decimal
}

// SKCalc is the default calculator: a share of the servicekey value
// less the contract fee and the fixed revenue share.
type SKCalc struct {
	value   decimal.Decimal
	feeFrac decimal.Decimal
}

// NewSKCalc builds a calculator from the configured servicekey value
// and settlement fee percentage.
func NewSKCalc(value, feePercent decimal.Decimal) *SKCalc {
	return &SKCalc{
		value:   value,
		feeFrac: feePercent.Div(decimal.NewFromInt(100)),
	}
}

// Reward computes share * (value - fee_frac*value - rsh_frac*value).
func (c *SKCalc) Reward(share decimal.Decimal) decimal.Decimal {
	net := c.value.Sub(c.feeFrac.Mul(c.value)).Sub(rshFrac.Mul(c.value))
	return share.Mul(net)
}

/**
 * @description
 * Monetary amounts are stored as int64 values in the smallest currency unit
 * (cents). Integer arithmetic avoids the rounding drift that repeated
 * floating-point additions and subtractions would accumulate on balances.
 *
 * @dependencies
 * - github.com/shopspring/decimal: Exact parsing and formatting of
 *   decimal-string amounts at the presentation boundary.
 */

package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in minor units (cents).
type Money int64

// minorUnitScale is the number of decimal places carried by Money.
const minorUnitScale = 2

// ParseMoney converts a decimal string such as "30.00" into minor units.
// Amounts with more precision than the minor unit are rejected rather than
// silently rounded.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	if d.Exponent() < -minorUnitScale {
		return 0, fmt.Errorf("invalid amount %q: more than %d decimal places", s, minorUnitScale)
	}
	shifted := d.Shift(minorUnitScale)
	// IntPart truncates through big.Int, so an amount past the int64 range
	// would otherwise wrap instead of failing.
	if !shifted.BigInt().IsInt64() {
		return 0, fmt.Errorf("invalid amount %q: out of range", s)
	}
	return Money(shifted.IntPart()), nil
}

// String renders the amount as a decimal string with two fractional digits,
// e.g. Money(7000) -> "70.00".
func (m Money) String() string {
	return decimal.New(int64(m), -minorUnitScale).StringFixed(minorUnitScale)
}

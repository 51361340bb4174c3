package models

import (
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// MinorUnitScale returns the number of decimal places of the currency's minor unit (2 for USD).
func MinorUnitScale(unit currency.Unit) int32 {
	scale, _ := currency.Standard.Rounding(unit)
	return int32(scale)
}

// HasMinorUnitPrecision reports whether amount can be expressed exactly in minor units.
func HasMinorUnitPrecision(amount decimal.Decimal, unit currency.Unit) bool {
	scale := MinorUnitScale(unit)
	return amount.Equal(amount.Truncate(scale))
}

// ToMinorUnits converts an amount to an integer count of minor units (cents).
// It refuses amounts with sub-minor-unit precision instead of rounding them away.
func ToMinorUnits(amount decimal.Decimal, unit currency.Unit) (int64, error) {
	if !HasMinorUnitPrecision(amount, unit) {
		return 0, fmt.Errorf("amount %s exceeds %s precision", amount, unit)
	}
	return amount.Shift(MinorUnitScale(unit)).IntPart(), nil
}

// FromMinorUnits converts an integer count of minor units back to a decimal amount.
func FromMinorUnits(units int64, unit currency.Unit) decimal.Decimal {
	return decimal.New(units, -MinorUnitScale(unit))
}

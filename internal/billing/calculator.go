// Package billing prices a meter reading against a tariff.
package billing

import (
	"math"

	"github.com/mariyam933/fyp/internal/apperr"
	"github.com/mariyam933/fyp/internal/models"
	"github.com/shopspring/decimal"
)

// Breakdown is the full-precision result of pricing one reading.
type Breakdown struct {
	UnitsConsumed float64
	Charges       models.Charges
	Subtotal      float64
	Total         float64
}

// Calculate prices the consumption between two readings.
//
// Per-unit components (energy, fuel charge, quarterly tax, FPA) scale with units,
// flat fees are added once, and GST applies to energy + fuel charge + quarterly
// tax only.
func Calculate(previous, current float64, rates models.TariffRates) (Breakdown, error) {
	if !validReading(current) {
		return Breakdown{}, apperr.Validation("currentReading", "invalid currentReading")
	}
	if !validReading(previous) {
		return Breakdown{}, apperr.Validation("previousReading", "invalid previousReading")
	}

	units := decimal.NewFromFloat(current).Sub(decimal.NewFromFloat(previous)).InexactFloat64()
	if units < 0 {
		return Breakdown{}, apperr.Validation("currentReading", "current reading is less than previous reading")
	}

	return CalculateUnits(units, rates), nil
}

// CalculateUnits prices an already known consumption. units must be >= 0.
func CalculateUnits(units float64, rates models.TariffRates) Breakdown {
	ch := models.Charges{
		ElectricCost: units * rates.UnitPrice,
		FuelCharge:   units * rates.FCRate,
		QtrTax:       units * rates.QtrRate,
		FPACharge:    units * rates.FPARate,
		FixedCharges: rates.FixedCharges,
		PTVFee:       rates.PTVFee,
		MeterRent:    rates.MeterRent,
		WaterBill:    rates.WaterBill,
	}
	ch.GST = (ch.ElectricCost + ch.FuelCharge + ch.QtrTax) * rates.GSTRate

	subtotal := ch.ElectricCost + ch.FuelCharge + ch.QtrTax + ch.FPACharge +
		ch.FixedCharges + ch.PTVFee + ch.MeterRent + ch.WaterBill

	return Breakdown{
		UnitsConsumed: units,
		Charges:       ch,
		Subtotal:      subtotal,
		Total:         subtotal + ch.GST,
	}
}

// Rounded returns the breakdown with every amount rounded to 2 decimal places,
// half away from zero. Totals are rounded from full precision, not summed from
// rounded parts. Units are not money and stay exact.
func (b Breakdown) Rounded() Breakdown {
	return Breakdown{
		UnitsConsumed: b.UnitsConsumed,
		Charges: models.Charges{
			ElectricCost: Round2(b.Charges.ElectricCost),
			FuelCharge:   Round2(b.Charges.FuelCharge),
			QtrTax:       Round2(b.Charges.QtrTax),
			FPACharge:    Round2(b.Charges.FPACharge),
			FixedCharges: Round2(b.Charges.FixedCharges),
			PTVFee:       Round2(b.Charges.PTVFee),
			MeterRent:    Round2(b.Charges.MeterRent),
			WaterBill:    Round2(b.Charges.WaterBill),
			GST:          Round2(b.Charges.GST),
		},
		Subtotal: Round2(b.Subtotal),
		Total:    Round2(b.Total),
	}
}

// Round2 rounds v to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// FormatAmount renders v with exactly two decimals, e.g. "3600.07".
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func validReading(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

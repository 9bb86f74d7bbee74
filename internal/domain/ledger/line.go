// Package ledger holds the pure monetary rules shared by stock and sales:
// line totals, document-level discount and weighted-average cost.
// Nothing here rounds; callers round when they persist.
package ledger

import (
	"github.com/shopspring/decimal"

	"magasin/internal/core/apperror"
	"magasin/internal/core/types"
)

var hundred = decimal.NewFromInt(100)

// LineInput is the priced part of a document line.
type LineInput struct {
	Quantity    types.Quantity
	UnitPrice   types.Money
	TaxRate     types.Money // percent
	DiscountPct types.Money // percent
}

// LineAmounts is the monetary breakdown of one line.
type LineAmounts struct {
	Untaxed types.Money
	Tax     types.Money
	Total   types.Money
}

// ComputeLineTotal applies the per-line discount then the tax rate:
// untaxed = price*qty*(1-discount/100), tax = untaxed*rate/100.
func ComputeLineTotal(unitPrice types.Money, qty types.Quantity, discountPct, taxRate types.Money) LineAmounts {
	untaxed := unitPrice.Mul(qty.Decimal()).Mul(decimal.NewFromInt(1).Sub(types.Percent(discountPct)))
	tax := untaxed.Mul(types.Percent(taxRate))
	return LineAmounts{
		Untaxed: untaxed,
		Tax:     tax,
		Total:   untaxed.Add(tax),
	}
}

// Amounts computes the breakdown of a validated line.
func (in LineInput) Amounts() LineAmounts {
	return ComputeLineTotal(in.UnitPrice, in.Quantity, in.DiscountPct, in.TaxRate)
}

// ValidateLine rejects non-positive quantities, negative prices, out-of-range percentages
// and prices or rates with more than types.PricePlaces fractional digits.
// index is zero-based and reported one-based.
func ValidateLine(index int, in LineInput) error {
	switch {
	case !in.Quantity.IsPositive():
		return apperror.NewInvalidLine(index, "quantity must be greater than zero").
			WithDetail("quantity", in.Quantity.String())
	case in.UnitPrice.IsNegative():
		return apperror.NewInvalidLine(index, "unit price must not be negative").
			WithDetail("unit_price", in.UnitPrice.String())
	case in.TaxRate.IsNegative():
		return apperror.NewInvalidLine(index, "tax rate must not be negative").
			WithDetail("tax_rate", in.TaxRate.String())
	case in.DiscountPct.IsNegative() || in.DiscountPct.GreaterThan(hundred):
		return apperror.NewInvalidLine(index, "line discount must be between 0 and 100").
			WithDetail("discount_pct", in.DiscountPct.String())
	case !types.HasAtMostPlaces(in.UnitPrice, types.PricePlaces):
		return apperror.NewInvalidLine(index, "unit price has too many decimal places").
			WithDetail("unit_price", in.UnitPrice.String())
	case !types.HasAtMostPlaces(in.TaxRate, types.PricePlaces):
		return apperror.NewInvalidLine(index, "tax rate has too many decimal places").
			WithDetail("tax_rate", in.TaxRate.String())
	case !types.HasAtMostPlaces(in.DiscountPct, types.PricePlaces):
		return apperror.NewInvalidLine(index, "line discount has too many decimal places").
			WithDetail("discount_pct", in.DiscountPct.String())
	}
	return nil
}

// EffectiveTaxRate is the nominal rate of a document, in percent.
func EffectiveTaxRate(sumUntaxed, sumTax types.Money) types.Money {
	if sumUntaxed.IsZero() {
		return decimal.Zero
	}
	return sumTax.Div(sumUntaxed).Mul(hundred)
}

// ApplyGlobalDiscount rescales the untaxed base by (1-discount/100) and
// recomputes tax from the new base at the effective rate.
func ApplyGlobalDiscount(sumUntaxed, sumTax, discountPct, effectiveTaxRate types.Money) (untaxed, tax types.Money) {
	if discountPct.IsZero() {
		return sumUntaxed, sumTax
	}
	untaxed = sumUntaxed.Mul(decimal.NewFromInt(1).Sub(types.Percent(discountPct)))
	tax = untaxed.Mul(types.Percent(effectiveTaxRate))
	return untaxed, tax
}

// DocumentAmounts are the aggregate amounts of a document.
type DocumentAmounts struct {
	Untaxed types.Money
	Tax     types.Money
	Total   types.Money
}

// Totals sums the lines and applies the document discount when there is one.
func Totals(lines []LineAmounts, discountPct types.Money) DocumentAmounts {
	untaxed, tax := decimal.Zero, decimal.Zero
	for _, l := range lines {
		untaxed = untaxed.Add(l.Untaxed)
		tax = tax.Add(l.Tax)
	}
	if discountPct.IsPositive() {
		untaxed, tax = ApplyGlobalDiscount(untaxed, tax, discountPct, EffectiveTaxRate(untaxed, tax))
	}
	return DocumentAmounts{Untaxed: untaxed, Tax: tax, Total: untaxed.Add(tax)}
}

// ValidateDiscount checks a document-level discount percentage.
func ValidateDiscount(discountPct types.Money) error {
	if discountPct.IsNegative() || discountPct.GreaterThan(hundred) ||
		!types.HasAtMostPlaces(discountPct, types.PricePlaces) {
		return apperror.NewValidation("discount must be between 0 and 100").
			WithDetail("discount_pct", discountPct.String())
	}
	return nil
}

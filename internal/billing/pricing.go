package billing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNegativeTotal is returned when a discount exceeds subtotal plus
// tax; an invoice total is never allowed below zero.
var ErrNegativeTotal = errors.New("discount exceeds subtotal plus tax")

type ProductNotFoundError struct {
	ProductID int64
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %d not found", e.ProductID)
}

type OutOfStockError struct {
	ProductID int64
	Requested int32
	Available int32
}

func (e *OutOfStockError) Error() string {
	return fmt.Sprintf("product %d: requested %d, only %d in stock", e.ProductID, e.Requested, e.Available)
}

type Item struct {
	ProductID int64
	Quantity  int32
}

type Totals struct {
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// PriceLookup resolves a product id to its current unit price.
type PriceLookup func(productID int64) (decimal.Decimal, bool)

// ComputeTotals prices a candidate invoice from a product snapshot.
// All arithmetic is fixed-point decimal; the tax amount is rounded to
// two places before it enters the total.
func ComputeTotals(items []Item, taxPercent, discount decimal.Decimal, lookup PriceLookup) (Totals, error) {
	subtotal := decimal.Zero
	for _, item := range items {
		price, ok := lookup(item.ProductID)
		if !ok {
			return Totals{}, &ProductNotFoundError{ProductID: item.ProductID}
		}
		subtotal = subtotal.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
	}

	taxAmount := subtotal.Mul(taxPercent).Div(decimal.NewFromInt(100)).Round(2)
	total := subtotal.Add(taxAmount).Sub(discount)
	if total.IsNegative() {
		return Totals{}, ErrNegativeTotal
	}

	return Totals{
		Subtotal:  subtotal,
		TaxAmount: taxAmount,
		Total:     total,
	}, nil
}

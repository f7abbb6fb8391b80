package service

import (
	"toko-beras-pos/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CartLine holds the price seen when the line was added. Checkout re-reads
// the price; the cart value is only a preview.
type CartLine struct {
	ProductID uuid.UUID       `json:"product_id"`
	Code      string          `json:"code"`
	Name      string          `json:"name"`
	Unit      string          `json:"unit"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Cart (keranjang) lives in memory only; nothing is persisted until checkout.
type Cart struct {
	Channel model.SaleChannel `json:"channel"`
	Lines   []CartLine        `json:"lines"`
}

type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Discount decimal.Decimal `json:"discount"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

func NewCart(channel model.SaleChannel) *Cart {
	return &Cart{Channel: channel}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

// QuantityOf returns how many units of the product the cart already holds.
func (c *Cart) QuantityOf(productID uuid.UUID) int {
	qty := 0
	for _, l := range c.Lines {
		if l.ProductID == productID {
			qty += l.Quantity
		}
	}
	return qty
}

// RemoveLineItem drops every line for the product and reports whether one
// existed.
func (c *Cart) RemoveLineItem(productID uuid.UUID) bool {
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if l.ProductID != productID {
			kept = append(kept, l)
		}
	}
	removed := len(kept) != len(c.Lines)
	c.Lines = kept
	return removed
}

func (c *Cart) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range c.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

// Totals applies a flat discount and then a tax rate on the discounted
// amount: total = subtotal - discount + tax.
func (c *Cart) Totals(discount, taxRate decimal.Decimal) (Totals, error) {
	return computeTotals(c.Subtotal(), discount, taxRate)
}

func computeTotals(subtotal, discount, taxRate decimal.Decimal) (Totals, error) {
	if discount.IsNegative() || discount.GreaterThan(subtotal) {
		return Totals{}, invalid("discount must be between 0 and %s", subtotal.StringFixed(2))
	}
	if taxRate.IsNegative() || taxRate.GreaterThan(decimal.NewFromInt(1)) {
		return Totals{}, invalid("tax rate must be between 0 and 1")
	}
	tax := subtotal.Sub(discount).Mul(taxRate).Round(2)
	return Totals{
		Subtotal: subtotal,
		Discount: discount,
		Tax:      tax,
		Total:    subtotal.Sub(discount).Add(tax),
	}, nil
}

// merged collapses duplicate lines so each product is locked and debited once.
func (c *Cart) merged() []CartLine {
	var out []CartLine
	index := make(map[uuid.UUID]int)
	for _, l := range c.Lines {
		if i, ok := index[l.ProductID]; ok {
			out[i].Quantity += l.Quantity
			continue
		}
		index[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// Package cart is the per-session shopping cart. It is ephemeral
// state, the locked commit-time stock check is the only authority on
// availability.
package cart

import (
	"github.com/shopspring/decimal"

	"meridian-pos/internal/money"
)

type Line struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  decimal.Decimal `json:"quantity"`
	TaxRate   decimal.Decimal `json:"tax_rate"`
	Total     decimal.Decimal `json:"total"`
}

// Cart keeps lines in insertion order. A session is used by one
// operator at a time so there is no locking here.
type Cart struct {
	Lines []Line `json:"lines"`
}

func New() *Cart {
	return &Cart{}
}

func (c *Cart) find(productID int64) int {
	for i := range c.Lines {
		if c.Lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Add accumulates qty onto the product's line, creating the line with
// a zero quantity first when the product was never added.
func (c *Cart) Add(productID int64, name string, unitPrice, qty, taxRate decimal.Decimal) {
	i := c.find(productID)
	if i < 0 {
		c.Lines = append(c.Lines, Line{
			ProductID: productID,
			Name:      name,
			UnitPrice: unitPrice,
			TaxRate:   taxRate,
			Quantity:  decimal.Zero,
		})
		i = len(c.Lines) - 1
	}
	c.Lines[i].Quantity = c.Lines[i].Quantity.Add(qty)
	c.recalc(i)
}

// Update sets an absolute quantity. Zero or below removes the line.
func (c *Cart) Update(productID int64, qty decimal.Decimal) {
	i := c.find(productID)
	if i < 0 {
		return
	}
	if qty.Sign() <= 0 {
		c.Remove(productID)
		return
	}
	c.Lines[i].Quantity = qty
	c.recalc(i)
}

func (c *Cart) Increment(productID int64, qty decimal.Decimal) {
	i := c.find(productID)
	if i < 0 {
		return
	}
	c.Add(productID, c.Lines[i].Name, c.Lines[i].UnitPrice, qty, c.Lines[i].TaxRate)
}

func (c *Cart) Decrement(productID int64, qty decimal.Decimal) {
	i := c.find(productID)
	if i < 0 {
		return
	}
	next := c.Lines[i].Quantity.Sub(qty)
	if next.Sign() <= 0 {
		c.Remove(productID)
		return
	}
	c.Lines[i].Quantity = next
	c.recalc(i)
}

func (c *Cart) Remove(productID int64) {
	i := c.find(productID)
	if i < 0 {
		return
	}
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}

func (c *Cart) Get(productID int64) (Line, bool) {
	i := c.find(productID)
	if i < 0 {
		return Line{}, false
	}
	return c.Lines[i], true
}

// Total sums the already-rounded line totals, quantized to 2dp.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for i := range c.Lines {
		total = total.Add(c.Lines[i].Total)
	}
	return total.Round(2)
}

// TotalQty is decimal so fractional units (weight) count correctly.
func (c *Cart) TotalQty() decimal.Decimal {
	qty := decimal.Zero
	for i := range c.Lines {
		qty = qty.Add(c.Lines[i].Quantity)
	}
	return qty
}

func (c *Cart) Clear() {
	c.Lines = nil
}

func (c *Cart) IsEmpty() bool {
	return len(c.Lines) == 0
}

func (c *Cart) recalc(i int) {
	l := &c.Lines[i]
	l.Total = money.LineTotal(l.UnitPrice, l.Quantity, l.TaxRate)
}

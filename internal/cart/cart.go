package cart

import (
	"errors"

	"github.com/shopspring/decimal"

	"puntoventa/terminal/internal/domain"
)

var (
	// ErrUnknownProduct means the product id is not in the loaded catalog.
	ErrUnknownProduct = errors.New("cart: producto desconocido")
	// ErrOutOfStock blocks adding a product whose stock is zero.
	ErrOutOfStock = errors.New("cart: producto fuera de stock")
	// ErrInsufficientStock blocks any mutation that would push a line's
	// quantity past the product's current stock.
	ErrInsufficientStock = errors.New("cart: no hay suficiente stock")
)

// ProductSource looks up current product data; the catalog store implements
// it. Stock is always read at mutation time, never cached in the cart.
type ProductSource interface {
	Get(id int64) (domain.Product, bool)
}

// Cart is the in-progress sale. It holds at most one line per product in
// insertion order; subtotal and total are derived after every mutation.
type Cart struct {
	products ProductSource
	lines    []domain.CartLine
	discount decimal.Decimal
	subtotal decimal.Decimal
	total    decimal.Decimal
}

func New(products ProductSource) *Cart {
	return &Cart{products: products}
}

// AddLine puts one unit of the product in the cart: a new line at quantity 1,
// or +1 on the existing line while stock allows.
func (c *Cart) AddLine(productID int64) error {
	product, ok := c.products.Get(productID)
	if !ok {
		return ErrUnknownProduct
	}
	if product.Stock <= 0 {
		return ErrOutOfStock
	}

	for i, line := range c.lines {
		if line.ProductID != productID {
			continue
		}
		if line.Quantity >= product.Stock {
			return ErrInsufficientStock
		}
		c.lines[i].Quantity++
		c.lines[i].Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(c.lines[i].Quantity)))
		c.recompute()
		return nil
	}

	c.lines = append(c.lines, domain.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		Quantity:  1,
		UnitPrice: product.Price,
		Total:     product.Price,
	})
	c.recompute()
	return nil
}

// SetQuantity replaces a line's quantity. Quantities below 1 are ignored;
// quantities above the product's current stock are rejected and leave the
// cart unchanged. A quantity for a product without a line is a no-op.
func (c *Cart) SetQuantity(productID int64, quantity int) error {
	if quantity < 1 {
		return nil
	}

	product, ok := c.products.Get(productID)
	if !ok || quantity > product.Stock {
		return ErrInsufficientStock
	}

	for i, line := range c.lines {
		if line.ProductID != productID {
			continue
		}
		c.lines[i].Quantity = quantity
		c.lines[i].Total = line.UnitPrice.Mul(decimal.NewFromInt(int64(quantity)))
		c.recompute()
		return nil
	}
	return nil
}

// RemoveLine deletes the product's line. Removing an absent line is not an
// error.
func (c *Cart) RemoveLine(productID int64) {
	for i, line := range c.lines {
		if line.ProductID == productID {
			c.lines = append(c.lines[:i], c.lines[i+1:]...)
			c.recompute()
			return
		}
	}
}

// SetDiscount applies a flat discount from raw input. Non-numeric and
// negative input coerces to zero, like the source client's Number(...) || 0.
// The effective discount is clamped to the subtotal on recompute so the
// total never goes negative.
func (c *Cart) SetDiscount(raw string) {
	value, err := decimal.NewFromString(raw)
	if err != nil || value.IsNegative() {
		value = decimal.Zero
	}
	c.discount = value
	c.recompute()
}

func (c *Cart) Clear() {
	c.lines = nil
	c.discount = decimal.Zero
	c.recompute()
}

func (c *Cart) IsEmpty() bool {
	return len(c.lines) == 0
}

func (c *Cart) Lines() []domain.CartLine {
	out := make([]domain.CartLine, len(c.lines))
	copy(out, c.lines)
	return out
}

func (c *Cart) Subtotal() decimal.Decimal { return c.subtotal }
func (c *Cart) Discount() decimal.Decimal { return c.discount }
func (c *Cart) Total() decimal.Decimal { return c.total }

// Items snapshots the lines as sale items for submission.
func (c *Cart) Items() []domain.SaleItem {
	items := make([]domain.SaleItem, 0, len(c.lines))
	for _, line := range c.lines {
		items = append(items, domain.SaleItem{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
			Total:     line.Total,
		})
	}
	return items
}

// recompute derives subtotal and total from the current lines and discount.
// It runs after every mutation and is never cached independently.
func (c *Cart) recompute() {
	subtotal := decimal.Zero
	for _, line := range c.lines {
		subtotal = subtotal.Add(line.Total)
	}
	if c.discount.GreaterThan(subtotal) {
		c.discount = subtotal
	}
	c.subtotal = subtotal
	c.total = subtotal.Sub(c.discount)
}

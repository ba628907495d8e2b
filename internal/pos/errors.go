package pos

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyCart   = errors.New("cart is empty")
	ErrNoPayment   = errors.New("valid payment information is required")
	ErrLockTimeout = errors.New("timed out waiting for a stock lock, retry the sale")
)

// InsufficientPaymentError reports how short the tendered amount was.
type InsufficientPaymentError struct {
	Required decimal.Decimal
	Tendered decimal.Decimal
}

func (e *InsufficientPaymentError) Error() string {
	return fmt.Sprintf("insufficient payment: required %s, paid %s", e.Required, e.Tendered)
}

// NotFoundError names the entity that could not be resolved.
type NotFoundError struct {
	Entity string
	ID     string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InsufficientStockError carries the product and branch so the
// operator knows which line to fix.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	BranchID    int32
	BranchName  string
}

func (e *InsufficientStockError) Error() string {
	product := e.ProductName
	if product == "" {
		product = fmt.Sprintf("#%d", e.ProductID)
	}
	branch := e.BranchName
	if branch == "" {
		branch = fmt.Sprintf("#%d", e.BranchID)
	}
	return fmt.Sprintf("insufficient stock for product %s at branch %s", product, branch)
}

// ImmutableRecordError rejects edits to records that are terminal.
type ImmutableRecordError struct {
	Record string
}

func (e *ImmutableRecordError) Error() string {
	return fmt.Sprintf("completed %s cannot be modified", e.Record)
}

// ValidationError attaches to a form field; an empty Field means the
// error is form-level.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

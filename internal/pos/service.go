// Package pos carries the sale-completion workflow: checkout,
// stock ledger and refund reconciliation against a transactional
// Store.
package pos

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/money"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// CartLine is a snapshot of one cart entry. Price and tax rate are
// what the operator quoted, they are not re-read from the catalog at
// commit time.
type CartLine struct {
	ProductID int64
	Name      string
	UnitPrice decimal.Decimal
	Quantity  decimal.Decimal
	TaxRate   decimal.Decimal
}

// TenderLine is one raw (amount, method, note) triple as submitted.
// Amounts arrive as strings; malformed or non-positive entries are
// skipped, not fatal.
type TenderLine struct {
	Amount   string
	MethodID int32
	Note     string
}

type SaleRequest struct {
	Lines          []CartLine
	Tenders        []TenderLine
	DiscountAmount decimal.Decimal
	BranchID       int32

	CustomerPhone   string
	CustomerName    string
	CustomerEmail   string
	CustomerAddress string

	Notes     string
	CashierID int64
}

type acceptedTender struct {
	method *models.PaymentMethod
	amount decimal.Decimal
	note   string
}

// CreateSale validates the request and commits the whole sale (header,
// items, stock deductions, movements, payments) as one transaction.
// Nothing is persisted on failure; the caller keeps its cart and may
// retry.
func (s *Service) CreateSale(ctx context.Context, req SaleRequest) (*models.Sale, error) {
	if len(req.Lines) == 0 {
		return nil, ErrEmptyCart
	}

	if req.DiscountAmount.Sign() < 0 {
		return nil, &ValidationError{Field: "discount_amount", Message: "discount cannot be negative"}
	}

	cartTotal := decimal.Zero
	for _, ln := range req.Lines {
		cartTotal = cartTotal.Add(money.LineTotal(ln.UnitPrice, ln.Quantity, ln.TaxRate))
	}
	cartTotal = cartTotal.Round(2)

	if req.DiscountAmount.GreaterThan(cartTotal) {
		return nil, &ValidationError{Field: "discount_amount", Message: "discount exceeds cart total"}
	}
	payable := cartTotal.Sub(req.DiscountAmount)

	accepted, totalTendered, err := s.parseTenders(ctx, req.Tenders)
	if err != nil {
		return nil, err
	}
	if len(accepted) == 0 {
		return nil, ErrNoPayment
	}
	if totalTendered.LessThan(payable) {
		return nil, &InsufficientPaymentError{Required: payable, Tendered: totalTendered}
	}

	branch, err := s.store.GetBranch(ctx, req.BranchID)
	if err != nil {
		return nil, err
	}

	var customerID *int64
	if req.CustomerPhone != "" {
		customer, err := s.store.GetOrCreateCustomer(ctx, req.CustomerPhone, req.CustomerName, req.CustomerEmail)
		if err != nil {
			return nil, err
		}
		customerID = &customer.ID
		if req.CustomerAddress != "" {
			if err := s.store.EnsureCustomerAddress(ctx, customer.ID, req.CustomerAddress); err != nil {
				return nil, err
			}
		}
	}

	var sale *models.Sale
	err = s.store.InTransaction(ctx, func(tx TxStore) error {
		sale = &models.Sale{
			BranchID:       branch.ID,
			CashierID:      req.CashierID,
			CustomerID:     customerID,
			Subtotal:       cartTotal.StringFixed(2),
			TaxAmount:      "0.00",
			DiscountAmount: req.DiscountAmount.StringFixed(2),
			TotalAmount:    cartTotal.StringFixed(2),
			Status:         models.SaleDraft,
			Notes:          req.Notes,
			CreatedAt:      s.now(),
		}
		if err := tx.CreateSale(ctx, sale); err != nil {
			return err
		}

		// Row locks are always taken in ascending product ID order so
		// two concurrent sales touching the same products cannot
		// deadlock on each other.
		lines := make([]CartLine, len(req.Lines))
		copy(lines, req.Lines)
		sort.SliceStable(lines, func(i, j int) bool { return lines[i].ProductID < lines[j].ProductID })

		subtotal := decimal.Zero
		totalTax := decimal.Zero
		for _, ln := range lines {
			product, err := tx.LockProduct(ctx, ln.ProductID)
			if err != nil {
				return err
			}

			if product.IsStockable {
				stock, err := tx.LockStock(ctx, ln.ProductID, branch.ID)
				if err != nil {
					return err
				}
				onHand, _ := decimal.NewFromString(stock.Quantity)
				if onHand.LessThan(ln.Quantity) {
					return &InsufficientStockError{
						ProductID:   product.ID,
						ProductName: product.Name,
						BranchID:    branch.ID,
						BranchName:  branch.Name,
					}
				}
			}

			itemSubtotal := ln.UnitPrice.Mul(ln.Quantity)
			taxAmount := money.Tax(itemSubtotal, ln.TaxRate)
			totalPrice := itemSubtotal.Add(taxAmount)

			item := &models.SaleItem{
				SaleID:     sale.ID,
				ProductID:  ln.ProductID,
				Quantity:   ln.Quantity.StringFixed(2),
				UnitPrice:  ln.UnitPrice.StringFixed(2),
				TaxRate:    ln.TaxRate.StringFixed(2),
				TaxAmount:  taxAmount.StringFixed(2),
				TotalPrice: totalPrice.StringFixed(2),
				CreatedAt:  s.now(),
			}
			if err := tx.CreateSaleItem(ctx, item); err != nil {
				return err
			}
			sale.Items = append(sale.Items, *item)

			if product.IsStockable {
				mv := &models.StockMovement{
					ProductID:    ln.ProductID,
					BranchID:     branch.ID,
					MovementType: models.MovementOut,
					Quantity:     ln.Quantity.StringFixed(2),
					Reference:    fmt.Sprintf("SALE:%d", sale.ID),
					CreatedAt:    s.now(),
				}
				if err := applyMovement(ctx, tx, mv, req.CashierID); err != nil {
					return err
				}
			}

			subtotal = subtotal.Add(itemSubtotal)
			totalTax = totalTax.Add(taxAmount)
		}

		// The committed line items are the authority on totals, not
		// the provisional cart estimate.
		receipt := fmt.Sprintf("RCP-%08d", sale.ID)
		completedAt := s.now()
		sale.ReceiptNumber = &receipt
		sale.Subtotal = subtotal.StringFixed(2)
		sale.TaxAmount = totalTax.StringFixed(2)
		sale.DiscountAmount = req.DiscountAmount.StringFixed(2)
		sale.TotalAmount = subtotal.Add(totalTax).Sub(req.DiscountAmount).StringFixed(2)
		sale.Status = models.SaleCompleted
		sale.CompletedAt = &completedAt
		if err := tx.UpdateSale(ctx, sale); err != nil {
			return err
		}

		for _, t := range accepted {
			p := &models.Payment{
				SaleID:        sale.ID,
				MethodID:      t.method.ID,
				Amount:        t.amount.StringFixed(2),
				Status:        models.PaymentPending,
				Notes:         t.note,
				ProcessedByID: &req.CashierID,
				PaymentDate:   s.now(),
				CreatedAt:     s.now(),
			}
			if err := tx.CreatePayment(ctx, p); err != nil {
				return err
			}
			number := fmt.Sprintf("PAY-%08d", p.ID)
			p.Number = &number
			p.Status = models.PaymentCompleted
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return err
			}
			sale.Payments = append(sale.Payments, *p)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return sale, nil
}

func (s *Service) parseTenders(ctx context.Context, tenders []TenderLine) ([]acceptedTender, decimal.Decimal, error) {
	accepted := make([]acceptedTender, 0, len(tenders))
	total := decimal.Zero
	for _, t := range tenders {
		if t.Amount == "" || t.MethodID == 0 {
			continue
		}
		amount, err := decimal.NewFromString(t.Amount)
		if err != nil || amount.Sign() <= 0 {
			continue
		}
		method, err := s.store.GetPaymentMethod(ctx, t.MethodID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		accepted = append(accepted, acceptedTender{method: method, amount: amount, note: t.Note})
		total = total.Add(amount)
	}
	return accepted, total, nil
}

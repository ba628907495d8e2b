package pos

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
)

type RefundRequest struct {
	PaymentID int64
	Amount    decimal.Decimal
	Reason    string
	// Status defaults to completed. Only completed refunds count
	// against the payment's refundable balance.
	Status  string
	ActorID int64
}

// CreateRefund validates the refund against the payment's remaining
// refundable balance and commits it. When the balance reaches exactly
// zero the payment flips to refunded.
func (s *Service) CreateRefund(ctx context.Context, req RefundRequest) (*models.Refund, error) {
	status := req.Status
	if status == "" {
		status = models.RefundCompleted
	}
	if !validRefundStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "unknown refund status"}
	}
	if req.Amount.Sign() <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "refund amount must be positive"}
	}

	var out *models.Refund
	err := s.store.InTransaction(ctx, func(tx TxStore) error {
		p, err := tx.LockPayment(ctx, req.PaymentID)
		if err != nil {
			return err
		}
		if p.Status != models.PaymentCompleted {
			return &ValidationError{Message: "only completed payments can be refunded"}
		}

		refundable, err := refundableAmount(ctx, tx, p)
		if err != nil {
			return err
		}
		if req.Amount.GreaterThan(refundable) {
			return &ValidationError{Field: "amount", Message: "refund exceeds available balance"}
		}

		r := &models.Refund{
			PaymentID:     &p.ID,
			SaleID:        p.SaleID,
			Amount:        req.Amount.StringFixed(2),
			Reason:        req.Reason,
			Status:        status,
			ProcessedByID: req.ActorID,
			CreatedAt:     s.now(),
		}
		if err := tx.CreateRefund(ctx, r); err != nil {
			return err
		}
		number := fmt.Sprintf("RF-%08d", r.ID)
		r.Number = &number
		if err := tx.UpdateRefund(ctx, r); err != nil {
			return err
		}

		if status == models.RefundCompleted && refundable.Sub(req.Amount).IsZero() {
			p.Status = models.PaymentRefunded
			if err := tx.UpdatePayment(ctx, p); err != nil {
				return err
			}
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateRefund edits a not-yet-completed refund. Moving it to
// completed re-validates the amount and may flip the payment to
// refunded. Completed refunds are immutable.
func (s *Service) UpdateRefund(ctx context.Context, refundID int64, amount decimal.Decimal, reason, status string) (*models.Refund, error) {
	if !validRefundStatus(status) {
		return nil, &ValidationError{Field: "status", Message: "unknown refund status"}
	}
	if amount.Sign() <= 0 {
		return nil, &ValidationError{Field: "amount", Message: "refund amount must be positive"}
	}

	var out *models.Refund
	err := s.store.InTransaction(ctx, func(tx TxStore) error {
		r, err := tx.LockRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if r.Status == models.RefundCompleted {
			return &ImmutableRecordError{Record: "refund"}
		}

		if r.PaymentID != nil {
			p, err := tx.LockPayment(ctx, *r.PaymentID)
			if err != nil {
				return err
			}
			refundable, err := refundableAmount(ctx, tx, p)
			if err != nil {
				return err
			}
			if amount.GreaterThan(refundable) {
				return &ValidationError{Field: "amount", Message: "refund exceeds available balance"}
			}
			if status == models.RefundCompleted && refundable.Sub(amount).IsZero() {
				p.Status = models.PaymentRefunded
				if err := tx.UpdatePayment(ctx, p); err != nil {
					return err
				}
			}
		}

		r.Amount = amount.StringFixed(2)
		r.Reason = reason
		r.Status = status
		if err := tx.UpdateRefund(ctx, r); err != nil {
			return err
		}
		out = r
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteRefund removes a refund that never completed.
func (s *Service) DeleteRefund(ctx context.Context, refundID int64) error {
	return s.store.InTransaction(ctx, func(tx TxStore) error {
		r, err := tx.LockRefund(ctx, refundID)
		if err != nil {
			return err
		}
		if r.Status == models.RefundCompleted {
			return &ImmutableRecordError{Record: "refund"}
		}
		return tx.DeleteRefund(ctx, refundID)
	})
}

// Refundable reports a payment's remaining refundable balance outside
// a transaction, for display.
func (s *Service) Refundable(ctx context.Context, paymentID int64) (decimal.Decimal, error) {
	p, err := s.store.GetPayment(ctx, paymentID)
	if err != nil {
		return decimal.Zero, err
	}
	refunded, err := s.store.SumCompletedRefunds(ctx, p.ID)
	if err != nil {
		return decimal.Zero, err
	}
	amount, _ := decimal.NewFromString(p.Amount)
	refundable := amount.Sub(refunded)
	if refundable.Sign() < 0 {
		refundable = decimal.Zero
	}
	return refundable, nil
}

func refundableAmount(ctx context.Context, tx TxStore, p *models.Payment) (decimal.Decimal, error) {
	refunded, err := tx.SumCompletedRefunds(ctx, p.ID)
	if err != nil {
		return decimal.Zero, err
	}
	amount, _ := decimal.NewFromString(p.Amount)
	refundable := amount.Sub(refunded)
	if refundable.Sign() < 0 {
		refundable = decimal.Zero
	}
	return refundable, nil
}

func validRefundStatus(status string) bool {
	switch status {
	case models.RefundPending, models.RefundApproved, models.RefundRejected, models.RefundCompleted:
		return true
	}
	return false
}

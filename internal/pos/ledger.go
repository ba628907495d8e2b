package pos

import (
	"context"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
)

// ApplyMovement records a single IN, OUT or ADJ movement against a
// branch's stock, creating the stock row on first touch. Transfers go
// through TransferStock so both sides commit together.
func (s *Service) ApplyMovement(ctx context.Context, mv *models.StockMovement, actorID int64) error {
	if mv.MovementType == models.MovementTransfer {
		return &ValidationError{Field: "movement_type", Message: "transfers must name a source and destination branch"}
	}
	return s.store.InTransaction(ctx, func(tx TxStore) error {
		if _, err := tx.LockProduct(ctx, mv.ProductID); err != nil {
			return err
		}
		return applyMovement(ctx, tx, mv, actorID)
	})
}

// TransferStock moves qty of a product between two branches as one
// transaction: a TRF decrease at the source and a TRF increase at the
// destination. Stock rows are locked in ascending branch order.
func (s *Service) TransferStock(ctx context.Context, productID int64, fromBranch, toBranch int32, qty decimal.Decimal, reference string, actorID int64) error {
	if fromBranch == toBranch {
		return &ValidationError{Field: "to_branch_id", Message: "source and destination branches must differ"}
	}
	if qty.Sign() <= 0 {
		return &ValidationError{Field: "quantity", Message: "transfer quantity must be positive"}
	}
	return s.store.InTransaction(ctx, func(tx TxStore) error {
		if _, err := tx.LockProduct(ctx, productID); err != nil {
			return err
		}
		first, second := fromBranch, toBranch
		if second < first {
			first, second = second, first
		}
		if _, err := tx.LockStock(ctx, productID, first); err != nil {
			return err
		}
		if _, err := tx.LockStock(ctx, productID, second); err != nil {
			return err
		}

		decrease := models.AdjustDecrease
		out := &models.StockMovement{
			ProductID:           productID,
			BranchID:            fromBranch,
			MovementType:        models.MovementTransfer,
			AdjustmentDirection: &decrease,
			Quantity:            qty.StringFixed(2),
			Reference:           reference,
		}
		if err := applyMovement(ctx, tx, out, actorID); err != nil {
			return err
		}

		increase := models.AdjustIncrease
		in := &models.StockMovement{
			ProductID:           productID,
			BranchID:            toBranch,
			MovementType:        models.MovementTransfer,
			AdjustmentDirection: &increase,
			Quantity:            qty.StringFixed(2),
			Reference:           reference,
		}
		return applyMovement(ctx, tx, in, actorID)
	})
}

// applyMovement runs inside an open transaction and assumes the caller
// holds, or is about to take, the product lock. The stock row itself
// is locked here.
func applyMovement(ctx context.Context, tx TxStore, mv *models.StockMovement, actorID int64) error {
	qty, err := decimal.NewFromString(mv.Quantity)
	if err != nil || qty.Sign() < 0 {
		return &ValidationError{Field: "quantity", Message: "quantity must be a non-negative decimal"}
	}

	stock, err := tx.LockStock(ctx, mv.ProductID, mv.BranchID)
	if err != nil {
		return err
	}
	onHand, _ := decimal.NewFromString(stock.Quantity)

	switch mv.MovementType {
	case models.MovementIn:
		onHand = onHand.Add(qty)
	case models.MovementOut:
		if onHand.LessThan(qty) {
			return &InsufficientStockError{ProductID: mv.ProductID, BranchID: mv.BranchID}
		}
		onHand = onHand.Sub(qty)
	case models.MovementAdjustment, models.MovementTransfer:
		dir := ""
		if mv.AdjustmentDirection != nil {
			dir = *mv.AdjustmentDirection
		}
		switch dir {
		case models.AdjustIncrease:
			onHand = onHand.Add(qty)
		case models.AdjustDecrease:
			if onHand.LessThan(qty) {
				return &InsufficientStockError{ProductID: mv.ProductID, BranchID: mv.BranchID}
			}
			onHand = onHand.Sub(qty)
		default:
			return &ValidationError{Field: "adjustment_direction", Message: "must be increase or decrease"}
		}
	default:
		return &ValidationError{Field: "movement_type", Message: "unknown movement type"}
	}

	stock.Quantity = onHand.StringFixed(2)
	if err := tx.UpdateStock(ctx, stock); err != nil {
		return err
	}
	mv.CreatedByID = actorID
	return tx.CreateMovement(ctx, mv)
}

package pos_test

import (
	"context"
	"errors"
	"testing"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

func TestApplyMovementIn(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "3.00")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementIn,
		Quantity:     "7.00",
		Reference:    "GRN-2201",
	}
	if err := f.svc.ApplyMovement(context.Background(), mv, 4); err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "10.00" {
		t.Errorf("stock = %s, want 10.00", got)
	}
	if mv.CreatedByID != 4 {
		t.Errorf("created_by = %d, want 4", mv.CreatedByID)
	}
}

func TestApplyMovementInCreatesStockRow(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementIn,
		Quantity:     "2.50",
	}
	if err := f.svc.ApplyMovement(context.Background(), mv, 1); err != nil {
		t.Fatalf("ApplyMovement: %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "2.50" {
		t.Errorf("stock = %s, want 2.50", got)
	}
}

func TestApplyMovementOutInsufficient(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "1.00")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementOut,
		Quantity:     "2.00",
	}
	err := f.svc.ApplyMovement(context.Background(), mv, 1)
	var ise *pos.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "1.00" {
		t.Errorf("stock = %s, want untouched 1.00", got)
	}
	if n := f.store.CountMovements(); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
}

func TestApplyMovementAdjustment(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	inc := models.AdjustIncrease
	up := &models.StockMovement{
		ProductID:           p.ID,
		BranchID:            f.branch.ID,
		MovementType:        models.MovementAdjustment,
		AdjustmentDirection: &inc,
		Quantity:            "1.50",
		Reference:           "stocktake",
	}
	if err := f.svc.ApplyMovement(context.Background(), up, 1); err != nil {
		t.Fatalf("increase: %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "11.50" {
		t.Errorf("after increase stock = %s, want 11.50", got)
	}

	decr := models.AdjustDecrease
	down := &models.StockMovement{
		ProductID:           p.ID,
		BranchID:            f.branch.ID,
		MovementType:        models.MovementAdjustment,
		AdjustmentDirection: &decr,
		Quantity:            "0.50",
		Reference:           "damage",
	}
	if err := f.svc.ApplyMovement(context.Background(), down, 1); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "11.00" {
		t.Errorf("after decrease stock = %s, want 11.00", got)
	}
}

func TestApplyMovementAdjustmentRequiresDirection(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementAdjustment,
		Quantity:     "1.00",
	}
	err := f.svc.ApplyMovement(context.Background(), mv, 1)
	var ve *pos.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
	if ve.Field != "adjustment_direction" {
		t.Errorf("field = %q, want adjustment_direction", ve.Field)
	}
}

func TestApplyMovementRejectsTransfer(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementTransfer,
		Quantity:     "1.00",
	}
	var ve *pos.ValidationError
	if err := f.svc.ApplyMovement(context.Background(), mv, 1); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestApplyMovementNegativeQuantity(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	mv := &models.StockMovement{
		ProductID:    p.ID,
		BranchID:     f.branch.ID,
		MovementType: models.MovementIn,
		Quantity:     "-1.00",
	}
	var ve *pos.ValidationError
	if err := f.svc.ApplyMovement(context.Background(), mv, 1); !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

func TestTransferStock(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddBranch(models.Branch{Name: "Harbor", Code: "HB01", IsActive: true})
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	err := f.svc.TransferStock(context.Background(), p.ID, f.branch.ID, other.ID, dec(t, "4.00"), "TRF-77", 2)
	if err != nil {
		t.Fatalf("TransferStock: %v", err)
	}

	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "6.00" {
		t.Errorf("source stock = %s, want 6.00", got)
	}
	if got := f.store.StockQuantity(p.ID, other.ID); got != "4.00" {
		t.Errorf("destination stock = %s, want 4.00", got)
	}

	movements := f.store.Movements()
	if len(movements) != 2 {
		t.Fatalf("movements = %d, want 2", len(movements))
	}
	var sawDecrease, sawIncrease bool
	for _, mv := range movements {
		if mv.MovementType != models.MovementTransfer {
			t.Errorf("movement type = %q, want TRF", mv.MovementType)
		}
		if mv.Reference != "TRF-77" {
			t.Errorf("reference = %q, want TRF-77", mv.Reference)
		}
		if mv.AdjustmentDirection == nil {
			t.Fatal("transfer movement missing direction")
		}
		switch *mv.AdjustmentDirection {
		case models.AdjustDecrease:
			sawDecrease = mv.BranchID == f.branch.ID
		case models.AdjustIncrease:
			sawIncrease = mv.BranchID == other.ID
		}
	}
	if !sawDecrease || !sawIncrease {
		t.Error("expected a decrease at the source and an increase at the destination")
	}
}

func TestTransferStockInsufficient(t *testing.T) {
	f := newFixture(t)
	other := f.store.AddBranch(models.Branch{Name: "Harbor", Code: "HB01", IsActive: true})
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "3.00")

	err := f.svc.TransferStock(context.Background(), p.ID, f.branch.ID, other.ID, dec(t, "5.00"), "", 2)
	var ise *pos.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "3.00" {
		t.Errorf("source stock = %s, want untouched 3.00", got)
	}
	if got := f.store.StockQuantity(p.ID, other.ID); got != "0.00" {
		t.Errorf("destination stock = %s, want 0.00", got)
	}
	if n := f.store.CountMovements(); n != 0 {
		t.Errorf("movements = %d, want 0", n)
	}
}

func TestTransferStockSameBranch(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "3.00")

	var ve *pos.ValidationError
	err := f.svc.TransferStock(context.Background(), p.ID, f.branch.ID, f.branch.ID, dec(t, "1.00"), "", 2)
	if !errors.As(err, &ve) {
		t.Fatalf("want ValidationError, got %v", err)
	}
}

package models

import "time"

// Movement types mirror the stock ledger wire values.
const (
	MovementIn         = "IN"
	MovementOut        = "OUT"
	MovementAdjustment = "ADJ"
	MovementTransfer   = "TRF"
)

// Adjustment direction. ADJ movements always carry a non-negative
// quantity plus one of these, there is no signed-quantity convention.
const (
	AdjustIncrease = "increase"
	AdjustDecrease = "decrease"
)

// Stock is the on-hand quantity of one product at one branch. Rows are
// created lazily with a zero quantity on the first movement that
// touches the (product, branch) pair.
type Stock struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	ProductID    int64  `gorm:"not null;uniqueIndex:idx_stock_product_branch"`
	BranchID     int32  `gorm:"not null;uniqueIndex:idx_stock_product_branch"`
	Quantity     string `gorm:"type:decimal(18,2);not null"`
	ReorderLevel string `gorm:"type:decimal(18,2);not null"`
	UpdatedAt    time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
	Branch  *Branch  `gorm:"foreignKey:BranchID"`
}

// StockMovement is an append-only ledger entry. Rows are never updated
// or deleted once written.
type StockMovement struct {
	ID                  int64   `gorm:"primaryKey;autoIncrement"`
	ProductID           int64   `gorm:"index;not null"`
	BranchID            int32   `gorm:"index;not null"`
	MovementType        string  `gorm:"type:varchar(3);not null"`
	AdjustmentDirection *string `gorm:"type:varchar(10)"`
	Quantity            string  `gorm:"type:decimal(18,2);not null"`
	Reference           string  `gorm:"type:varchar(100)"`
	CreatedByID         int64   `gorm:"not null"`
	CreatedAt           time.Time

	Product   *Product `gorm:"foreignKey:ProductID"`
	Branch    *Branch  `gorm:"foreignKey:BranchID"`
	CreatedBy *User    `gorm:"foreignKey:CreatedByID"`
}

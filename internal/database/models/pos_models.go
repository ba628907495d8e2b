package models

import "time"

// Sale lifecycle.
const (
	SaleDraft     = "DRAFT"
	SaleCompleted = "COMPLETED"
	SaleVoided    = "VOIDED"
	SaleRefunded  = "REFUNDED"
)

type Sale struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	ReceiptNumber *string `gorm:"type:varchar(30);uniqueIndex"`
	BranchID      int32   `gorm:"index;not null"`
	CashierID     int64   `gorm:"not null"`
	CustomerID    *int64

	Subtotal       string `gorm:"type:decimal(18,2);not null"`
	TaxAmount      string `gorm:"type:decimal(18,2);not null"`
	DiscountAmount string `gorm:"type:decimal(18,2);not null"`
	TotalAmount    string `gorm:"type:decimal(18,2);not null"`

	Status string `gorm:"type:varchar(20);not null;default:'DRAFT'"`
	Notes  string `gorm:"type:text"`

	CreatedAt   time.Time
	CompletedAt *time.Time

	Branch   *Branch    `gorm:"foreignKey:BranchID"`
	Cashier  *User      `gorm:"foreignKey:CashierID"`
	Customer *Customer  `gorm:"foreignKey:CustomerID"`
	Items    []SaleItem `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
	Payments []Payment  `gorm:"foreignKey:SaleID;constraint:OnDelete:RESTRICT"`
}

// SaleItem snapshots price and tax at time of sale. Immutable once
// created, later product edits do not touch it.
type SaleItem struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	SaleID    int64 `gorm:"index;not null"`
	ProductID int64 `gorm:"not null"`

	Quantity   string `gorm:"type:decimal(18,2);not null"`
	UnitPrice  string `gorm:"type:decimal(18,2);not null"`
	TaxRate    string `gorm:"type:decimal(5,2);not null"`
	TaxAmount  string `gorm:"type:decimal(18,2);not null"`
	TotalPrice string `gorm:"type:decimal(18,2);not null"`

	CreatedAt time.Time

	Product *Product `gorm:"foreignKey:ProductID"`
}

package models

import "time"

// Payment lifecycle.
const (
	PaymentPending   = "pending"
	PaymentCompleted = "completed"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Refund lifecycle.
const (
	RefundPending   = "pending"
	RefundApproved  = "approved"
	RefundRejected  = "rejected"
	RefundCompleted = "completed"
)

type PaymentMethod struct {
	ID        int32   `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"type:varchar(100);not null"`
	Code      string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	Icon      *string `gorm:"type:varchar(50)"`
	IsActive  bool    `gorm:"not null;default:true"`
	CreatedAt time.Time
}

type Payment struct {
	ID       int64   `gorm:"primaryKey;autoIncrement"`
	Number   *string `gorm:"type:varchar(50);uniqueIndex"`
	SaleID   int64   `gorm:"index;not null"`
	MethodID int32   `gorm:"not null"`

	Amount string `gorm:"type:decimal(18,2);not null"`
	Status string `gorm:"type:varchar(20);not null;default:'pending'"`
	Notes  string `gorm:"type:text"`

	ProcessedByID *int64
	PaymentDate   time.Time
	CreatedAt     time.Time

	Sale        *Sale          `gorm:"foreignKey:SaleID"`
	Method      *PaymentMethod `gorm:"foreignKey:MethodID"`
	ProcessedBy *User          `gorm:"foreignKey:ProcessedByID"`
	Refunds     []Refund       `gorm:"foreignKey:PaymentID;constraint:OnDelete:RESTRICT"`
}

type Refund struct {
	ID        int64   `gorm:"primaryKey;autoIncrement"`
	Number    *string `gorm:"type:varchar(50);uniqueIndex"`
	PaymentID *int64  `gorm:"index"`
	SaleID    int64   `gorm:"index;not null"`

	Amount string `gorm:"type:decimal(18,2);not null"`
	Reason string `gorm:"type:text"`
	Status string `gorm:"type:varchar(20);not null;default:'pending'"`

	ProcessedByID int64 `gorm:"not null"`
	CreatedAt     time.Time

	Payment     *Payment `gorm:"foreignKey:PaymentID"`
	Sale        *Sale    `gorm:"foreignKey:SaleID"`
	ProcessedBy *User    `gorm:"foreignKey:ProcessedByID"`
}

package models

import "time"

// User roles.
const (
	RoleAdmin   = "admin"
	RoleManager = "manager"
	RoleCashier = "cashier"
	RoleStaff   = "staff"
)

type User struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	Username  string `gorm:"uniqueIndex;not null"`
	Email     string `gorm:"uniqueIndex;not null"`
	Password  string `gorm:"not null"`
	Firstname string
	Lastname  string
	Role      string `gorm:"type:varchar(20);not null;default:'cashier'"`
	BranchID  *int32
	IsActive  bool `gorm:"default:true"`
	LastLogin *time.Time
	CreatedAt *time.Time `gorm:"autoCreateTime"`
	UpdatedAt *time.Time `gorm:"autoUpdateTime"`

	Branch *Branch `gorm:"foreignKey:BranchID"`
}

type Customer struct {
	ID            int64   `gorm:"primaryKey;autoIncrement"`
	Name          string  `gorm:"type:varchar(150);not null"`
	Phone         *string `gorm:"type:varchar(20);uniqueIndex"`
	Email         *string `gorm:"type:varchar(100)"`
	LoyaltyPoints string  `gorm:"type:decimal(18,2);not null;default:'0.00'"`
	IsActive      bool    `gorm:"not null;default:true"`
	CreatedAt     time.Time
	UpdatedAt     time.Time

	Addresses []CustomerAddress `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE"`
}

type CustomerAddress struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	CustomerID int64   `gorm:"index;not null"`
	Address    string  `gorm:"type:text;not null"`
	City       *string `gorm:"type:varchar(100)"`
	IsDefault  bool    `gorm:"not null;default:false"`
}

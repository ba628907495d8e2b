package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Category struct {
	ID        int32  `gorm:"primaryKey;autoIncrement"`
	Name      string `gorm:"type:varchar(100);not null"`
	ParentID  *int32
	IsActive  bool `gorm:"not null;default:true"`
	CreatedAt time.Time

	Parent   *Category  `gorm:"foreignKey:ParentID"`
	Children []Category `gorm:"foreignKey:ParentID"`
}

type Brand struct {
	ID          int32   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(100);uniqueIndex;not null"`
	Description *string `gorm:"type:text"`
	IsActive    bool    `gorm:"not null;default:true"`
	CreatedAt   time.Time
}

type Product struct {
	ID          int64   `gorm:"primaryKey;autoIncrement"`
	Name        string  `gorm:"type:varchar(200);not null"`
	SKU         string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	Barcode     string  `gorm:"type:varchar(50);uniqueIndex;not null"`
	Description *string `gorm:"type:text"`
	CategoryID  int32   `gorm:"not null"`
	BrandID     *int32

	CostPrice     string  `gorm:"type:decimal(18,2);not null"`
	SellingPrice  string  `gorm:"type:decimal(18,2);not null"`
	DiscountPrice *string `gorm:"type:decimal(18,2)"`
	TaxRate       string  `gorm:"type:decimal(5,2);not null"`

	Unit        string `gorm:"type:varchar(10);not null;default:'pcs'"`
	IsActive    bool   `gorm:"not null;default:true"`
	IsStockable bool   `gorm:"not null;default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Category *Category `gorm:"foreignKey:CategoryID"`
	Brand    *Brand    `gorm:"foreignKey:BrandID"`
}

// BasePrice is the discount price when one is set and positive,
// otherwise the selling price.
func (p Product) BasePrice() decimal.Decimal {
	if p.DiscountPrice != nil {
		if d, err := decimal.NewFromString(*p.DiscountPrice); err == nil && d.IsPositive() {
			return d
		}
	}
	d, _ := decimal.NewFromString(p.SellingPrice)
	return d
}

func (p Product) TaxRateDecimal() decimal.Decimal {
	d, _ := decimal.NewFromString(p.TaxRate)
	return d
}

type Branch struct {
	ID        int32   `gorm:"primaryKey;autoIncrement"`
	Name      string  `gorm:"type:varchar(200);not null"`
	Code      string  `gorm:"type:varchar(20);uniqueIndex;not null"`
	Address   *string `gorm:"type:text"`
	Phone     *string `gorm:"type:varchar(20)"`
	Email     *string `gorm:"type:varchar(100)"`
	IsActive  bool    `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

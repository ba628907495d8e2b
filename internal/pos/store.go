package pos

import (
	"context"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
)

// Store is the durable backend the POS core runs against. The gorm
// implementation lives in internal/store/gormstore; tests use the
// in-memory one in internal/store/memstore.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
	GetBranch(ctx context.Context, id int32) (*models.Branch, error)
	GetPaymentMethod(ctx context.Context, id int32) (*models.PaymentMethod, error)

	// GetOrCreateCustomer upserts by phone; name/email only apply on
	// first creation.
	GetOrCreateCustomer(ctx context.Context, phone, name, email string) (*models.Customer, error)
	// EnsureCustomerAddress records the address once as the default.
	EnsureCustomerAddress(ctx context.Context, customerID int64, address string) error

	GetSale(ctx context.Context, id int64) (*models.Sale, error)
	GetPayment(ctx context.Context, id int64) (*models.Payment, error)
	SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error)

	// InTransaction runs fn atomically: every write made through tx is
	// committed together or not at all.
	InTransaction(ctx context.Context, fn func(tx TxStore) error) error
}

// TxStore is the transactional view. Lock* methods take an exclusive
// row lock held until the enclosing transaction ends.
type TxStore interface {
	LockProduct(ctx context.Context, id int64) (*models.Product, error)
	// LockStock locks the (product, branch) stock row, creating it
	// with a zero quantity when absent.
	LockStock(ctx context.Context, productID int64, branchID int32) (*models.Stock, error)
	UpdateStock(ctx context.Context, stock *models.Stock) error

	CreateSale(ctx context.Context, sale *models.Sale) error
	UpdateSale(ctx context.Context, sale *models.Sale) error
	CreateSaleItem(ctx context.Context, item *models.SaleItem) error
	CreateMovement(ctx context.Context, mv *models.StockMovement) error

	CreatePayment(ctx context.Context, p *models.Payment) error
	UpdatePayment(ctx context.Context, p *models.Payment) error

	LockPayment(ctx context.Context, id int64) (*models.Payment, error)
	LockRefund(ctx context.Context, id int64) (*models.Refund, error)
	SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error)
	CreateRefund(ctx context.Context, r *models.Refund) error
	UpdateRefund(ctx context.Context, r *models.Refund) error
	DeleteRefund(ctx context.Context, id int64) error
}

// Package gormstore backs pos.Store with Postgres through gorm.
// Row locks are taken with SELECT ... FOR UPDATE and a per-transaction
// lock_timeout so a commit stuck behind another one fails fast instead
// of queueing forever.
package gormstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

const (
	pgLockNotAvailable = "55P03"
	pgUniqueViolation  = "23505"
)

type Gormstore struct {
	db            *gorm.DB
	lockTimeoutMS int
}

func New(db *gorm.DB, lockTimeoutMS int) *Gormstore {
	if lockTimeoutMS <= 0 {
		lockTimeoutMS = 5000
	}
	return &Gormstore{db: db, lockTimeoutMS: lockTimeoutMS}
}

func mapErr(err error, entity string, id any) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &pos.NotFoundError{Entity: entity, ID: fmt.Sprint(id)}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
		return pos.ErrLockTimeout
	}
	return err
}

func (s *Gormstore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapErr(err, "product", id)
	}
	return &p, nil
}

func (s *Gormstore) GetBranch(ctx context.Context, id int32) (*models.Branch, error) {
	var b models.Branch
	if err := s.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, mapErr(err, "branch", id)
	}
	return &b, nil
}

func (s *Gormstore) GetPaymentMethod(ctx context.Context, id int32) (*models.PaymentMethod, error) {
	var pm models.PaymentMethod
	if err := s.db.WithContext(ctx).First(&pm, id).Error; err != nil {
		return nil, mapErr(err, "payment method", id)
	}
	return &pm, nil
}

func (s *Gormstore) GetOrCreateCustomer(ctx context.Context, phone, name, email string) (*models.Customer, error) {
	var c models.Customer
	err := s.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error
	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	c = models.Customer{
		Name:          name,
		Phone:         &phone,
		LoyaltyPoints: "0.00",
		IsActive:      true,
	}
	if email != "" {
		c.Email = &email
	}
	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		// Lost a race with another checkout upserting the same phone.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			if err2 := s.db.WithContext(ctx).Where("phone = ?", phone).First(&c).Error; err2 == nil {
				return &c, nil
			}
		}
		return nil, err
	}
	return &c, nil
}

func (s *Gormstore) EnsureCustomerAddress(ctx context.Context, customerID int64, address string) error {
	var existing models.CustomerAddress
	err := s.db.WithContext(ctx).
		Where("customer_id = ? AND address = ?", customerID, address).
		First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return s.db.WithContext(ctx).Create(&models.CustomerAddress{
		CustomerID: customerID,
		Address:    address,
		IsDefault:  true,
	}).Error
}

func (s *Gormstore) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.WithContext(ctx).
		Preload("Items").
		Preload("Payments").
		Preload("Customer").
		First(&sale, id).Error
	if err != nil {
		return nil, mapErr(err, "sale", id)
	}
	return &sale, nil
}

func (s *Gormstore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, mapErr(err, "payment", id)
	}
	return &p, nil
}

func (s *Gormstore) SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error) {
	return sumCompletedRefunds(s.db.WithContext(ctx), paymentID)
}

func sumCompletedRefunds(db *gorm.DB, paymentID int64) (decimal.Decimal, error) {
	var total string
	err := db.Model(&models.Refund{}).
		Select("COALESCE(SUM(amount), 0)").
		Where("payment_id = ? AND status = ?", paymentID, models.RefundCompleted).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(total)
}

func (s *Gormstore) InTransaction(ctx context.Context, fn func(tx pos.TxStore) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// SET LOCAL reverts at transaction end.
		if err := tx.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", s.lockTimeoutMS)).Error; err != nil {
			return err
		}
		if err := fn(&txStore{tx: tx}); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable {
				return pos.ErrLockTimeout
			}
			return err
		}
		return nil
	})
}

type txStore struct {
	tx *gorm.DB
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *txStore) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := forUpdate(t.tx).First(&p, id).Error; err != nil {
		return nil, mapErr(err, "product", id)
	}
	return &p, nil
}

func (t *txStore) LockStock(ctx context.Context, productID int64, branchID int32) (*models.Stock, error) {
	var st models.Stock
	err := forUpdate(t.tx).
		Where("product_id = ? AND branch_id = ?", productID, branchID).
		First(&st).Error
	if err == nil {
		return &st, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, mapErr(err, "stock", productID)
	}
	st = models.Stock{
		ProductID:    productID,
		BranchID:     branchID,
		Quantity:     "0.00",
		ReorderLevel: "5.00",
	}
	if err := t.tx.Create(&st).Error; err != nil {
		// Another transaction created the row first; lock theirs.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			err = forUpdate(t.tx).
				Where("product_id = ? AND branch_id = ?", productID, branchID).
				First(&st).Error
			if err != nil {
				return nil, mapErr(err, "stock", productID)
			}
			return &st, nil
		}
		return nil, err
	}
	return &st, nil
}

func (t *txStore) UpdateStock(ctx context.Context, stock *models.Stock) error {
	return t.tx.Model(&models.Stock{}).
		Where("id = ?", stock.ID).
		Update("quantity", stock.Quantity).Error
}

func (t *txStore) CreateSale(ctx context.Context, sale *models.Sale) error {
	return t.tx.Omit("Items", "Payments").Create(sale).Error
}

func (t *txStore) UpdateSale(ctx context.Context, sale *models.Sale) error {
	return t.tx.Omit("Items", "Payments").Save(sale).Error
}

func (t *txStore) CreateSaleItem(ctx context.Context, item *models.SaleItem) error {
	return t.tx.Create(item).Error
}

func (t *txStore) CreateMovement(ctx context.Context, mv *models.StockMovement) error {
	return t.tx.Create(mv).Error
}

func (t *txStore) CreatePayment(ctx context.Context, p *models.Payment) error {
	return t.tx.Omit("Refunds").Create(p).Error
}

func (t *txStore) UpdatePayment(ctx context.Context, p *models.Payment) error {
	return t.tx.Omit("Refunds").Save(p).Error
}

func (t *txStore) LockPayment(ctx context.Context, id int64) (*models.Payment, error) {
	var p models.Payment
	if err := forUpdate(t.tx).First(&p, id).Error; err != nil {
		return nil, mapErr(err, "payment", id)
	}
	return &p, nil
}

func (t *txStore) LockRefund(ctx context.Context, id int64) (*models.Refund, error) {
	var r models.Refund
	if err := forUpdate(t.tx).First(&r, id).Error; err != nil {
		return nil, mapErr(err, "refund", id)
	}
	return &r, nil
}

func (t *txStore) SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error) {
	return sumCompletedRefunds(t.tx, paymentID)
}

func (t *txStore) CreateRefund(ctx context.Context, r *models.Refund) error {
	return t.tx.Create(r).Error
}

func (t *txStore) UpdateRefund(ctx context.Context, r *models.Refund) error {
	return t.tx.Save(r).Error
}

func (t *txStore) DeleteRefund(ctx context.Context, id int64) error {
	return t.tx.Delete(&models.Refund{}, id).Error
}

var _ pos.Store = (*Gormstore)(nil)
var _ pos.TxStore = (*txStore)(nil)

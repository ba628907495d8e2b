// Package memstore is an in-memory pos.Store used by tests and local
// development. Transactions take a coarse store-wide lock and roll
// back by restoring a snapshot, so commits against it serialize the
// same way row-locked commits do against Postgres.
package memstore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

type state struct {
	products  map[int64]models.Product
	branches  map[int32]models.Branch
	methods   map[int32]models.PaymentMethod
	customers map[int64]models.Customer
	addresses map[int64]models.CustomerAddress
	stocks    map[string]models.Stock
	movements map[int64]models.StockMovement
	sales     map[int64]models.Sale
	items     map[int64]models.SaleItem
	payments  map[int64]models.Payment
	refunds   map[int64]models.Refund
	seq       map[string]int64
}

func newState() state {
	return state{
		products:  make(map[int64]models.Product),
		branches:  make(map[int32]models.Branch),
		methods:   make(map[int32]models.PaymentMethod),
		customers: make(map[int64]models.Customer),
		addresses: make(map[int64]models.CustomerAddress),
		stocks:    make(map[string]models.Stock),
		movements: make(map[int64]models.StockMovement),
		sales:     make(map[int64]models.Sale),
		items:     make(map[int64]models.SaleItem),
		payments:  make(map[int64]models.Payment),
		refunds:   make(map[int64]models.Refund),
		seq:       make(map[string]int64),
	}
}

func (st state) clone() state {
	c := newState()
	for k, v := range st.products {
		c.products[k] = v
	}
	for k, v := range st.branches {
		c.branches[k] = v
	}
	for k, v := range st.methods {
		c.methods[k] = v
	}
	for k, v := range st.customers {
		c.customers[k] = v
	}
	for k, v := range st.addresses {
		c.addresses[k] = v
	}
	for k, v := range st.stocks {
		c.stocks[k] = v
	}
	for k, v := range st.movements {
		c.movements[k] = v
	}
	for k, v := range st.sales {
		c.sales[k] = v
	}
	for k, v := range st.items {
		c.items[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = v
	}
	for k, v := range st.refunds {
		c.refunds[k] = v
	}
	for k, v := range st.seq {
		c.seq[k] = v
	}
	return c
}

func stockKey(productID int64, branchID int32) string {
	return fmt.Sprintf("%d:%d", productID, branchID)
}

type Memstore struct {
	mu sync.Mutex
	st state
}

func New() *Memstore {
	return &Memstore{st: newState()}
}

func (m *Memstore) nextID(entity string) int64 {
	m.st.seq[entity]++
	return m.st.seq[entity]
}

// --- seeding helpers ---

func (m *Memstore) AddBranch(b models.Branch) models.Branch {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = int32(m.nextID("branch"))
	}
	m.st.branches[b.ID] = b
	return b
}

func (m *Memstore) AddProduct(p models.Product) models.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == 0 {
		p.ID = m.nextID("product")
	}
	m.st.products[p.ID] = p
	return p
}

func (m *Memstore) AddPaymentMethod(pm models.PaymentMethod) models.PaymentMethod {
	m.mu.Lock()
	defer m.mu.Unlock()
	if pm.ID == 0 {
		pm.ID = int32(m.nextID("method"))
	}
	m.st.methods[pm.ID] = pm
	return pm
}

func (m *Memstore) SetStock(productID int64, branchID int32, qty string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := stockKey(productID, branchID)
	st, ok := m.st.stocks[key]
	if !ok {
		st = models.Stock{
			ID:           m.nextID("stock"),
			ProductID:    productID,
			BranchID:     branchID,
			ReorderLevel: "5.00",
		}
	}
	st.Quantity = qty
	m.st.stocks[key] = st
}

// --- inspection helpers for tests ---

func (m *Memstore) StockQuantity(productID int64, branchID int32) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	st, ok := m.st.stocks[stockKey(productID, branchID)]
	if !ok {
		return "0.00"
	}
	return st.Quantity
}

func (m *Memstore) CountSales() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.sales)
}

func (m *Memstore) CountSaleItems() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.items)
}

func (m *Memstore) CountMovements() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.movements)
}

func (m *Memstore) CountPayments() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.payments)
}

func (m *Memstore) CountCustomers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.st.customers)
}

func (m *Memstore) Movements() []models.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.StockMovement, 0, len(m.st.movements))
	for _, mv := range m.st.movements {
		out = append(out, mv)
	}
	return out
}

// --- pos.Store ---

func (m *Memstore) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getProduct(id)
}

func (m *Memstore) getProduct(id int64) (*models.Product, error) {
	p, ok := m.st.products[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "product", ID: fmt.Sprint(id)}
	}
	return &p, nil
}

func (m *Memstore) GetBranch(ctx context.Context, id int32) (*models.Branch, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.st.branches[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "branch", ID: fmt.Sprint(id)}
	}
	return &b, nil
}

func (m *Memstore) GetPaymentMethod(ctx context.Context, id int32) (*models.PaymentMethod, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	pm, ok := m.st.methods[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "payment method", ID: fmt.Sprint(id)}
	}
	return &pm, nil
}

func (m *Memstore) GetOrCreateCustomer(ctx context.Context, phone, name, email string) (*models.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.st.customers {
		if c.Phone != nil && *c.Phone == phone {
			return &c, nil
		}
	}
	c := models.Customer{
		ID:            m.nextID("customer"),
		Name:          name,
		Phone:         &phone,
		LoyaltyPoints: "0.00",
		IsActive:      true,
		CreatedAt:     time.Now(),
	}
	if email != "" {
		c.Email = &email
	}
	m.st.customers[c.ID] = c
	return &c, nil
}

func (m *Memstore) EnsureCustomerAddress(ctx context.Context, customerID int64, address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.st.addresses {
		if a.CustomerID == customerID && a.Address == address {
			return nil
		}
	}
	a := models.CustomerAddress{
		ID:         m.nextID("address"),
		CustomerID: customerID,
		Address:    address,
		IsDefault:  true,
	}
	m.st.addresses[a.ID] = a
	return nil
}

func (m *Memstore) GetSale(ctx context.Context, id int64) (*models.Sale, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.st.sales[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "sale", ID: fmt.Sprint(id)}
	}
	for _, it := range m.st.items {
		if it.SaleID == id {
			s.Items = append(s.Items, it)
		}
	}
	for _, p := range m.st.payments {
		if p.SaleID == id {
			s.Payments = append(s.Payments, p)
		}
	}
	return &s, nil
}

func (m *Memstore) GetPayment(ctx context.Context, id int64) (*models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.getPayment(id)
}

func (m *Memstore) getPayment(id int64) (*models.Payment, error) {
	p, ok := m.st.payments[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "payment", ID: fmt.Sprint(id)}
	}
	return &p, nil
}

func (m *Memstore) SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sumCompletedRefunds(paymentID)
}

func (m *Memstore) sumCompletedRefunds(paymentID int64) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, r := range m.st.refunds {
		if r.PaymentID != nil && *r.PaymentID == paymentID && r.Status == models.RefundCompleted {
			amount, err := decimal.NewFromString(r.Amount)
			if err != nil {
				return decimal.Zero, err
			}
			total = total.Add(amount)
		}
	}
	return total, nil
}

// InTransaction serializes on the store lock and restores a snapshot
// when fn fails, so a failed commit leaves no trace.
func (m *Memstore) InTransaction(ctx context.Context, fn func(tx pos.TxStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snapshot := m.st.clone()
	if err := fn(&txView{m: m}); err != nil {
		m.st = snapshot
		return err
	}
	return nil
}

// txView is the in-transaction view. The store lock is already held,
// so the Lock* methods are plain reads.
type txView struct {
	m *Memstore
}

func (t *txView) LockProduct(ctx context.Context, id int64) (*models.Product, error) {
	return t.m.getProduct(id)
}

func (t *txView) LockStock(ctx context.Context, productID int64, branchID int32) (*models.Stock, error) {
	key := stockKey(productID, branchID)
	st, ok := t.m.st.stocks[key]
	if !ok {
		st = models.Stock{
			ID:           t.m.nextID("stock"),
			ProductID:    productID,
			BranchID:     branchID,
			Quantity:     "0.00",
			ReorderLevel: "5.00",
		}
		t.m.st.stocks[key] = st
	}
	return &st, nil
}

func (t *txView) UpdateStock(ctx context.Context, stock *models.Stock) error {
	stock.UpdatedAt = time.Now()
	t.m.st.stocks[stockKey(stock.ProductID, stock.BranchID)] = *stock
	return nil
}

func (t *txView) CreateSale(ctx context.Context, sale *models.Sale) error {
	sale.ID = t.m.nextID("sale")
	t.m.st.sales[sale.ID] = *sale
	return nil
}

func (t *txView) UpdateSale(ctx context.Context, sale *models.Sale) error {
	if _, ok := t.m.st.sales[sale.ID]; !ok {
		return &pos.NotFoundError{Entity: "sale", ID: fmt.Sprint(sale.ID)}
	}
	stored := *sale
	stored.Items = nil
	stored.Payments = nil
	t.m.st.sales[sale.ID] = stored
	return nil
}

func (t *txView) CreateSaleItem(ctx context.Context, item *models.SaleItem) error {
	item.ID = t.m.nextID("item")
	t.m.st.items[item.ID] = *item
	return nil
}

func (t *txView) CreateMovement(ctx context.Context, mv *models.StockMovement) error {
	mv.ID = t.m.nextID("movement")
	if mv.CreatedAt.IsZero() {
		mv.CreatedAt = time.Now()
	}
	t.m.st.movements[mv.ID] = *mv
	return nil
}

func (t *txView) CreatePayment(ctx context.Context, p *models.Payment) error {
	p.ID = t.m.nextID("payment")
	t.m.st.payments[p.ID] = *p
	return nil
}

func (t *txView) UpdatePayment(ctx context.Context, p *models.Payment) error {
	if _, ok := t.m.st.payments[p.ID]; !ok {
		return &pos.NotFoundError{Entity: "payment", ID: fmt.Sprint(p.ID)}
	}
	t.m.st.payments[p.ID] = *p
	return nil
}

func (t *txView) LockPayment(ctx context.Context, id int64) (*models.Payment, error) {
	return t.m.getPayment(id)
}

func (t *txView) LockRefund(ctx context.Context, id int64) (*models.Refund, error) {
	r, ok := t.m.st.refunds[id]
	if !ok {
		return nil, &pos.NotFoundError{Entity: "refund", ID: fmt.Sprint(id)}
	}
	return &r, nil
}

func (t *txView) SumCompletedRefunds(ctx context.Context, paymentID int64) (decimal.Decimal, error) {
	return t.m.sumCompletedRefunds(paymentID)
}

func (t *txView) CreateRefund(ctx context.Context, r *models.Refund) error {
	r.ID = t.m.nextID("refund")
	t.m.st.refunds[r.ID] = *r
	return nil
}

func (t *txView) UpdateRefund(ctx context.Context, r *models.Refund) error {
	if _, ok := t.m.st.refunds[r.ID]; !ok {
		return &pos.NotFoundError{Entity: "refund", ID: fmt.Sprint(r.ID)}
	}
	t.m.st.refunds[r.ID] = *r
	return nil
}

func (t *txView) DeleteRefund(ctx context.Context, id int64) error {
	if _, ok := t.m.st.refunds[id]; !ok {
		return &pos.NotFoundError{Entity: "refund", ID: fmt.Sprint(id)}
	}
	delete(t.m.st.refunds, id)
	return nil
}

var _ pos.Store = (*Memstore)(nil)
var _ pos.TxStore = (*txView)(nil)

package pos_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
	"meridian-pos/internal/store/memstore"
)

type fixture struct {
	svc    *pos.Service
	store  *memstore.Memstore
	branch models.Branch
	cash   models.PaymentMethod
	card   models.PaymentMethod
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	branch := st.AddBranch(models.Branch{Name: "Downtown", Code: "DT01", IsActive: true})
	cash := st.AddPaymentMethod(models.PaymentMethod{Name: "Cash", Code: "CASH", IsActive: true})
	card := st.AddPaymentMethod(models.PaymentMethod{Name: "Debit Card", Code: "DEBIT", IsActive: true})
	return &fixture{
		svc:    pos.NewService(st),
		store:  st,
		branch: branch,
		cash:   cash,
		card:   card,
	}
}

func (f *fixture) addProduct(t *testing.T, name, price, taxRate string, stockable bool, qty string) models.Product {
	t.Helper()
	p := f.store.AddProduct(models.Product{
		Name:         name,
		SKU:          "SKU-" + name,
		Barcode:      "BC-" + name,
		CategoryID:   1,
		CostPrice:    price,
		SellingPrice: price,
		TaxRate:      taxRate,
		Unit:         "pcs",
		IsActive:     true,
		IsStockable:  stockable,
	})
	if stockable && qty != "" {
		f.store.SetStock(p.ID, f.branch.ID, qty)
	}
	return p
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal %q: %v", s, err)
	}
	return d
}

func line(t *testing.T, p models.Product, qty string) pos.CartLine {
	t.Helper()
	return pos.CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		UnitPrice: p.BasePrice(),
		Quantity:  dec(t, qty),
		TaxRate:   p.TaxRateDecimal(),
	}
}

func TestCreateSaleEmptyCart(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.CreateSale(context.Background(), pos.SaleRequest{
		BranchID:  f.branch.ID,
		CashierID: 1,
	})
	if !errors.Is(err, pos.ErrEmptyCart) {
		t.Fatalf("want ErrEmptyCart, got %v", err)
	}
}

func TestCreateSaleNoValidTenders(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	req := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, p, "1.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders: []pos.TenderLine{
			{Amount: "", MethodID: f.cash.ID},
			{Amount: "abc", MethodID: f.cash.ID},
			{Amount: "-5.00", MethodID: f.cash.ID},
			{Amount: "0", MethodID: f.cash.ID},
			{Amount: "10.00", MethodID: 0},
		},
	}
	_, err := f.svc.CreateSale(context.Background(), req)
	if !errors.Is(err, pos.ErrNoPayment) {
		t.Fatalf("want ErrNoPayment, got %v", err)
	}
	if f.store.CountSales() != 0 {
		t.Fatalf("no sale should persist, got %d", f.store.CountSales())
	}
}

func TestCreateSaleInsufficientPayment(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "2.50", true, "10.00")

	// 2 x 10.00 with 2.5% tax: line total 20.50.
	req := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, p, "2.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "20.00", MethodID: f.cash.ID}},
	}
	_, err := f.svc.CreateSale(context.Background(), req)
	var ipe *pos.InsufficientPaymentError
	if !errors.As(err, &ipe) {
		t.Fatalf("want InsufficientPaymentError, got %v", err)
	}
	if ipe.Required.StringFixed(2) != "20.50" || ipe.Tendered.StringFixed(2) != "20.00" {
		t.Fatalf("want required 20.50 tendered 20.00, got %s / %s", ipe.Required, ipe.Tendered)
	}
}

func TestCreateSaleDiscountValidation(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	base := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, p, "1.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "100.00", MethodID: f.cash.ID}},
	}

	neg := base
	neg.DiscountAmount = dec(t, "-1.00")
	var ve *pos.ValidationError
	if _, err := f.svc.CreateSale(context.Background(), neg); !errors.As(err, &ve) {
		t.Fatalf("negative discount: want ValidationError, got %v", err)
	}

	over := base
	over.DiscountAmount = dec(t, "10.01")
	if _, err := f.svc.CreateSale(context.Background(), over); !errors.As(err, &ve) {
		t.Fatalf("excess discount: want ValidationError, got %v", err)
	}
}

func TestCreateSaleHappyPath(t *testing.T) {
	f := newFixture(t)
	soap := f.addProduct(t, "Soap", "10.00", "2.50", true, "10.00")
	gum := f.addProduct(t, "Gum", "3.33", "7.00", true, "5.00")

	req := pos.SaleRequest{
		Lines: []pos.CartLine{
			line(t, soap, "2.00"), // 20.00 + 0.50 tax
			line(t, gum, "2.00"),  // 6.66 + 0.47 tax
		},
		DiscountAmount: dec(t, "1.00"),
		BranchID:       f.branch.ID,
		CashierID:      7,
		Tenders: []pos.TenderLine{
			{Amount: "20.00", MethodID: f.cash.ID},
			{Amount: "10.00", MethodID: f.card.ID, Note: "split"},
		},
	}
	sale, err := f.svc.CreateSale(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}

	if sale.Status != models.SaleCompleted {
		t.Errorf("status = %q, want COMPLETED", sale.Status)
	}
	if sale.ReceiptNumber == nil || *sale.ReceiptNumber == "" {
		t.Error("receipt number not assigned")
	}
	if sale.CompletedAt == nil {
		t.Error("completed_at not set")
	}

	if sale.Subtotal != "26.66" {
		t.Errorf("subtotal = %s, want 26.66", sale.Subtotal)
	}
	if sale.TaxAmount != "0.97" {
		t.Errorf("tax = %s, want 0.97", sale.TaxAmount)
	}
	if sale.TotalAmount != "26.63" {
		t.Errorf("total = %s, want 26.63", sale.TotalAmount)
	}

	// total == subtotal + tax - discount
	want := dec(t, sale.Subtotal).Add(dec(t, sale.TaxAmount)).Sub(dec(t, sale.DiscountAmount))
	if !dec(t, sale.TotalAmount).Equal(want) {
		t.Errorf("totals identity broken: %s != %s", sale.TotalAmount, want)
	}

	// subtotal + tax == sum of item totals
	itemSum := decimal.Zero
	for _, it := range sale.Items {
		itemSum = itemSum.Add(dec(t, it.TotalPrice))
	}
	if !itemSum.Equal(dec(t, sale.Subtotal).Add(dec(t, sale.TaxAmount))) {
		t.Errorf("item totals %s do not reconcile with subtotal+tax", itemSum)
	}

	if got := f.store.StockQuantity(soap.ID, f.branch.ID); got != "8.00" {
		t.Errorf("soap stock = %s, want 8.00", got)
	}
	if got := f.store.StockQuantity(gum.ID, f.branch.ID); got != "3.00" {
		t.Errorf("gum stock = %s, want 3.00", got)
	}
	if f.store.CountMovements() != 2 {
		t.Errorf("movements = %d, want 2", f.store.CountMovements())
	}

	if len(sale.Payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(sale.Payments))
	}
	for _, p := range sale.Payments {
		if p.Status != models.PaymentCompleted {
			t.Errorf("payment %d status = %q, want completed", p.ID, p.Status)
		}
		if p.Number == nil || *p.Number == "" {
			t.Errorf("payment %d has no number", p.ID)
		}
	}
}

func TestCreateSaleAtomicOnStockFailure(t *testing.T) {
	f := newFixture(t)
	soap := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")
	// Scarce product sorts after soap, so its failure happens once
	// soap's item and movement are already written inside the tx.
	scarce := f.addProduct(t, "Scarce", "5.00", "0.00", true, "1.00")

	req := pos.SaleRequest{
		Lines: []pos.CartLine{
			line(t, soap, "2.00"),
			line(t, scarce, "3.00"),
		},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "100.00", MethodID: f.cash.ID}},
	}
	_, err := f.svc.CreateSale(context.Background(), req)
	var ise *pos.InsufficientStockError
	if !errors.As(err, &ise) {
		t.Fatalf("want InsufficientStockError, got %v", err)
	}
	if ise.ProductName != "Scarce" || ise.BranchName != "Downtown" {
		t.Errorf("error names = %q at %q", ise.ProductName, ise.BranchName)
	}

	if n := f.store.CountSales(); n != 0 {
		t.Errorf("sales persisted = %d, want 0", n)
	}
	if n := f.store.CountSaleItems(); n != 0 {
		t.Errorf("sale items persisted = %d, want 0", n)
	}
	if n := f.store.CountMovements(); n != 0 {
		t.Errorf("movements persisted = %d, want 0", n)
	}
	if n := f.store.CountPayments(); n != 0 {
		t.Errorf("payments persisted = %d, want 0", n)
	}
	if got := f.store.StockQuantity(soap.ID, f.branch.ID); got != "10.00" {
		t.Errorf("soap stock = %s, want untouched 10.00", got)
	}
}

func TestCreateSaleConcurrentLastUnits(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Limited", "10.00", "0.00", true, "5.00")

	req := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, p, "5.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "50.00", MethodID: f.cash.ID}},
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CreateSale(context.Background(), req)
		}(i)
	}
	wg.Wait()

	var sold, failed int
	for _, err := range errs {
		if err == nil {
			sold++
			continue
		}
		var ise *pos.InsufficientStockError
		if !errors.As(err, &ise) {
			t.Fatalf("unexpected error: %v", err)
		}
		failed++
	}
	if sold != 1 || failed != 1 {
		t.Fatalf("want exactly one success and one stock failure, got %d/%d", sold, failed)
	}
	if got := f.store.StockQuantity(p.ID, f.branch.ID); got != "0.00" {
		t.Errorf("final stock = %s, want 0.00", got)
	}
	if n := f.store.CountSales(); n != 1 {
		t.Errorf("sales = %d, want 1", n)
	}
}

func TestCreateSaleNonStockableSkipsLedger(t *testing.T) {
	f := newFixture(t)
	svc := f.addProduct(t, "Gift Wrapping", "2.00", "0.00", false, "")

	req := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, svc, "1.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "2.00", MethodID: f.cash.ID}},
	}
	sale, err := f.svc.CreateSale(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateSale: %v", err)
	}
	if sale.Status != models.SaleCompleted {
		t.Errorf("status = %q", sale.Status)
	}
	if n := f.store.CountMovements(); n != 0 {
		t.Errorf("movements = %d, want 0 for non-stockable line", n)
	}
}

func TestCreateSaleCustomerUpsertIdempotent(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	req := pos.SaleRequest{
		Lines:           []pos.CartLine{line(t, p, "1.00")},
		BranchID:        f.branch.ID,
		CashierID:       1,
		Tenders:         []pos.TenderLine{{Amount: "10.00", MethodID: f.cash.ID}},
		CustomerPhone:   "0812000111",
		CustomerName:    "Rina",
		CustomerAddress: "Jl. Melati 5",
	}
	first, err := f.svc.CreateSale(context.Background(), req)
	if err != nil {
		t.Fatalf("first sale: %v", err)
	}
	second, err := f.svc.CreateSale(context.Background(), req)
	if err != nil {
		t.Fatalf("second sale: %v", err)
	}

	if first.CustomerID == nil || second.CustomerID == nil {
		t.Fatal("sales should carry a customer")
	}
	if *first.CustomerID != *second.CustomerID {
		t.Errorf("customer ids differ: %d vs %d", *first.CustomerID, *second.CustomerID)
	}
	if n := f.store.CountCustomers(); n != 1 {
		t.Errorf("customers = %d, want 1", n)
	}
}

func TestCreateSaleUnknownMethodFatal(t *testing.T) {
	f := newFixture(t)
	p := f.addProduct(t, "Soap", "10.00", "0.00", true, "10.00")

	req := pos.SaleRequest{
		Lines:     []pos.CartLine{line(t, p, "1.00")},
		BranchID:  f.branch.ID,
		CashierID: 1,
		Tenders:   []pos.TenderLine{{Amount: "10.00", MethodID: 999}},
	}
	_, err := f.svc.CreateSale(context.Background(), req)
	var nfe *pos.NotFoundError
	if !errors.As(err, &nfe) {
		t.Fatalf("want NotFoundError for unknown method, got %v", err)
	}
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"meridian-pos/internal/cart"
	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

type SalesHTTPHandler struct {
	db    *gorm.DB
	carts cart.Store
	pos   *pos.Service
}

func NewSalesHTTPHandler(db *gorm.DB, carts cart.Store, posService *pos.Service) *SalesHTTPHandler {
	return &SalesHTTPHandler{
		db:    db,
		carts: carts,
		pos:   posService,
	}
}

func cartView(c *cart.Cart) gin.H {
	return gin.H{
		"lines": c.Lines,
		"total": c.Total(),
		"items": c.TotalQty(),
	}
}

// --- Cart ---

func (h *SalesHTTPHandler) GetCart(c *gin.Context) {
	crt, err := h.carts.Load(c.Request.Context(), sessionID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	success(c, cartView(crt))
}

type cartItemRequest struct {
	ProductID int64  `json:"product_id" binding:"required"`
	Quantity  string `json:"quantity" binding:"required"`
}

func (h *SalesHTTPHandler) AddCartItem(c *gin.Context) {
	var req cartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil || qty.Sign() <= 0 {
		fail(c, http.StatusBadRequest, "Quantity must be a positive decimal")
		return
	}

	ctx := c.Request.Context()
	var product models.Product
	if err := h.db.WithContext(ctx).First(&product, req.ProductID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	if !product.IsActive {
		fail(c, http.StatusConflict, "Product is not for sale")
		return
	}

	sid := sessionID(c)
	crt, err := h.carts.Load(ctx, sid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	crt.Add(product.ID, product.Name, product.BasePrice(), qty, product.TaxRateDecimal())
	if err := h.carts.Save(ctx, sid, crt); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart")
		return
	}
	success(c, cartView(crt))
}

func (h *SalesHTTPHandler) UpdateCartItem(c *gin.Context) {
	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	var req struct {
		Quantity string `json:"quantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		fail(c, http.StatusBadRequest, "Quantity must be a decimal")
		return
	}

	ctx := c.Request.Context()
	sid := sessionID(c)
	crt, err := h.carts.Load(ctx, sid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	crt.Update(productID, qty)
	if err := h.carts.Save(ctx, sid, crt); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart")
		return
	}
	success(c, cartView(crt))
}

func (h *SalesHTTPHandler) RemoveCartItem(c *gin.Context) {
	productID, err := parseIDParam(c, "product_id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	ctx := c.Request.Context()
	sid := sessionID(c)
	crt, err := h.carts.Load(ctx, sid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load cart")
		return
	}
	crt.Remove(productID)
	if err := h.carts.Save(ctx, sid, crt); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to save cart")
		return
	}
	success(c, cartView(crt))
}

func (h *SalesHTTPHandler) ClearCart(c *gin.Context) {
	if err := h.carts.Clear(c.Request.Context(), sessionID(c)); err != nil {
		fail(c, http.StatusInternalServerError, "Failed to clear cart")
		return
	}
	success(c, gin.H{"cleared": true})
}

// --- Checkout ---

type checkoutPayment struct {
	Amount   string `json:"amount"`
	MethodID int32  `json:"method_id"`
	Note     string `json:"note"`
}

type checkoutRequest struct {
	BranchID       int32             `json:"branch_id"`
	DiscountAmount string            `json:"discount_amount"`
	Payments       []checkoutPayment `json:"payments"`
	Notes          string            `json:"notes"`

	CustomerPhone   string `json:"customer_phone"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerAddress string `json:"customer_address"`
}

// Checkout turns the session cart into a completed sale. The cart is
// only cleared after the sale commits; any failure leaves it intact
// for the operator to fix and retry.
func (h *SalesHTTPHandler) Checkout(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	branchID := req.BranchID
	if branchID == 0 {
		if v, ok := c.Get("branch_id"); ok {
			branchID, _ = v.(int32)
		}
	}
	if branchID == 0 {
		fail(c, http.StatusBadRequest, "Branch is required")
		return
	}

	discount := decimal.Zero
	if req.DiscountAmount != "" {
		d, err := decimal.NewFromString(req.DiscountAmount)
		if err != nil {
			fail(c, http.StatusBadRequest, "Discount must be a decimal")
			return
		}
		discount = d
	}

	ctx := c.Request.Context()
	sid := sessionID(c)
	crt, err := h.carts.Load(ctx, sid)
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to load cart")
		return
	}

	saleReq := pos.SaleRequest{
		DiscountAmount:  discount,
		BranchID:        branchID,
		CustomerPhone:   req.CustomerPhone,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
		CashierID:       actorID(c),
	}
	for _, ln := range crt.Lines {
		saleReq.Lines = append(saleReq.Lines, pos.CartLine{
			ProductID: ln.ProductID,
			Name:      ln.Name,
			UnitPrice: ln.UnitPrice,
			Quantity:  ln.Quantity,
			TaxRate:   ln.TaxRate,
		})
	}
	for _, p := range req.Payments {
		saleReq.Tenders = append(saleReq.Tenders, pos.TenderLine{
			Amount:   p.Amount,
			MethodID: p.MethodID,
			Note:     p.Note,
		})
	}

	sale, err := h.pos.CreateSale(ctx, saleReq)
	if err != nil {
		failFrom(c, err)
		return
	}

	// The sale committed; a stale cart is an inconvenience, not a
	// reason to report failure.
	_ = h.carts.Clear(ctx, sid)
	created(c, sale)
}

// --- Sales ---

func (h *SalesHTTPHandler) ListSales(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Sale{})
	if v := c.Query("branch_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("branch_id = ?", int32(id))
	}
	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", v)
	}
	if v := c.Query("cashier_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("cashier_id = ?", id)
	}
	if v := c.Query("date"); v != "" {
		day, err := time.Parse("2006-01-02", v)
		if err != nil {
			fail(c, http.StatusBadRequest, "Date must be YYYY-MM-DD")
			return
		}
		q = q.Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	}

	var sales []models.Sale
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&sales).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list sales")
		return
	}
	success(c, sales)
}

func (h *SalesHTTPHandler) GetSale(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid sale id")
		return
	}

	var sale models.Sale
	err = h.db.WithContext(c.Request.Context()).
		Preload("Items").
		Preload("Items.Product").
		Preload("Payments").
		Preload("Payments.Method").
		Preload("Customer").
		First(&sale, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Sale not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	success(c, sale)
}

// --- Customers ---

func (h *SalesHTTPHandler) ListCustomers(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Customer{}).Where("is_active = ?", true)
	if v := c.Query("search"); v != "" {
		pattern := "%" + v + "%"
		q = q.Where("name ILIKE ? OR phone LIKE ?", pattern, pattern)
	}

	var customers []models.Customer
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&customers).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list customers")
		return
	}
	success(c, customers)
}

func (h *SalesHTTPHandler) GetCustomer(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid customer id")
		return
	}

	var customer models.Customer
	err = h.db.WithContext(c.Request.Context()).
		Preload("Addresses").
		First(&customer, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Customer not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	success(c, customer)
}

// SalesSummary aggregates one day of completed sales for a branch.
func (h *SalesHTTPHandler) SalesSummary(c *gin.Context) {
	day := time.Now().Truncate(24 * time.Hour)
	if v := c.Query("date"); v != "" {
		parsed, err := time.Parse("2006-01-02", v)
		if err != nil {
			fail(c, http.StatusBadRequest, "Date must be YYYY-MM-DD")
			return
		}
		day = parsed
	}

	q := h.db.WithContext(c.Request.Context()).Model(&models.Sale{}).
		Where("status = ?", models.SaleCompleted).
		Where("created_at >= ? AND created_at < ?", day, day.AddDate(0, 0, 1))
	if v := c.Query("branch_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("branch_id = ?", int32(id))
	}

	var summary struct {
		Count    int64  `json:"count"`
		Total    string `json:"total"`
		Tax      string `json:"tax"`
		Discount string `json:"discount"`
	}
	err := q.Select(
		"COUNT(*) AS count",
		"COALESCE(SUM(total_amount), 0) AS total",
		"COALESCE(SUM(tax_amount), 0) AS tax",
		"COALESCE(SUM(discount_amount), 0) AS discount",
	).Scan(&summary).Error
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to build summary")
		return
	}

	success(c, gin.H{
		"date":     day.Format("2006-01-02"),
		"count":    summary.Count,
		"total":    summary.Total,
		"tax":      summary.Tax,
		"discount": summary.Discount,
	})
}

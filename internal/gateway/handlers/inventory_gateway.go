package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

const (
	PRODUCT_CACHE_PREFIX = "catalog:product:"
	PRODUCTS_CACHE_KEY   = "catalog:products"
	BRANCHES_CACHE_KEY   = "catalog:branches"
	CATEGORIES_CACHE_KEY = "catalog:categories"
	BRANDS_CACHE_KEY     = "catalog:brands"
	CACHE_TTL_SHORT      = 5 * time.Minute
	CACHE_TTL_MEDIUM     = 30 * time.Minute
)

type InventoryHTTPHandler struct {
	db    *gorm.DB
	redis *redis.Client
	pos   *pos.Service
}

func NewInventoryHTTPHandler(db *gorm.DB, redisClient *redis.Client, posService *pos.Service) *InventoryHTTPHandler {
	return &InventoryHTTPHandler{
		db:    db,
		redis: redisClient,
		pos:   posService,
	}
}

func (h *InventoryHTTPHandler) invalidateCatalogCaches(ctx context.Context, productID ...int64) {
	if h.redis == nil {
		return
	}
	_ = h.redis.Del(ctx, PRODUCTS_CACHE_KEY, BRANCHES_CACHE_KEY, CATEGORIES_CACHE_KEY, BRANDS_CACHE_KEY)
	for _, id := range productID {
		_ = h.redis.Del(ctx, fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, id))
	}
}

func (h *InventoryHTTPHandler) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if h.redis == nil {
		return false
	}
	raw, err := h.redis.Get(ctx, key).Result()
	if err != nil {
		return false
	}
	return json.Unmarshal([]byte(raw), dest) == nil
}

func (h *InventoryHTTPHandler) cacheSet(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	if h.redis == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	_ = h.redis.Set(ctx, key, raw, ttl).Err()
}

// --- Products ---

type productRequest struct {
	Name          string  `json:"name" binding:"required"`
	SKU           string  `json:"sku" binding:"required"`
	Barcode       string  `json:"barcode" binding:"required"`
	Description   *string `json:"description"`
	CategoryID    int32   `json:"category_id" binding:"required"`
	BrandID       *int32  `json:"brand_id"`
	CostPrice     string  `json:"cost_price" binding:"required"`
	SellingPrice  string  `json:"selling_price" binding:"required"`
	DiscountPrice *string `json:"discount_price"`
	TaxRate       string  `json:"tax_rate"`
	Unit          string  `json:"unit"`
	IsStockable   *bool   `json:"is_stockable"`
}

func validDecimal(s string) bool {
	d, err := decimal.NewFromString(s)
	return err == nil && d.Sign() >= 0
}

func (h *InventoryHTTPHandler) CreateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if !validDecimal(req.CostPrice) || !validDecimal(req.SellingPrice) {
		fail(c, http.StatusBadRequest, "Prices must be non-negative decimals")
		return
	}
	if req.TaxRate == "" {
		req.TaxRate = "0.00"
	}
	if !validDecimal(req.TaxRate) {
		fail(c, http.StatusBadRequest, "Tax rate must be a non-negative decimal")
		return
	}
	if req.Unit == "" {
		req.Unit = "pcs"
	}
	stockable := true
	if req.IsStockable != nil {
		stockable = *req.IsStockable
	}

	product := models.Product{
		Name:          req.Name,
		SKU:           req.SKU,
		Barcode:       req.Barcode,
		Description:   req.Description,
		CategoryID:    req.CategoryID,
		BrandID:       req.BrandID,
		CostPrice:     req.CostPrice,
		SellingPrice:  req.SellingPrice,
		DiscountPrice: req.DiscountPrice,
		TaxRate:       req.TaxRate,
		Unit:          req.Unit,
		IsActive:      true,
		IsStockable:   stockable,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&product).Error; err != nil {
		fail(c, http.StatusConflict, "SKU or barcode already exists")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	created(c, product)
}

func (h *InventoryHTTPHandler) ListProducts(c *gin.Context) {
	ctx := c.Request.Context()

	// The unfiltered first page is the hot path, cache only that.
	unfiltered := c.Query("category_id") == "" && c.Query("brand_id") == "" &&
		c.Query("search") == "" && c.DefaultQuery("page", "1") == "1"
	if unfiltered {
		var cached []models.Product
		if h.cacheGet(ctx, PRODUCTS_CACHE_KEY, &cached) {
			success(c, cached)
			return
		}
	}

	limit, offset := parsePagination(c)
	q := h.db.WithContext(ctx).Model(&models.Product{}).Where("is_active = ?", true)
	if v := c.Query("category_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("category_id = ?", int32(id))
	}
	if v := c.Query("brand_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("brand_id = ?", int32(id))
	}
	if v := c.Query("search"); v != "" {
		pattern := "%" + v + "%"
		q = q.Where("name ILIKE ? OR sku ILIKE ? OR barcode ILIKE ?", pattern, pattern, pattern)
	}

	var products []models.Product
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&products).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list products")
		return
	}

	if unfiltered {
		h.cacheSet(ctx, PRODUCTS_CACHE_KEY, products, CACHE_TTL_SHORT)
	}
	success(c, products)
}

func (h *InventoryHTTPHandler) GetProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id")
		return
	}
	ctx := c.Request.Context()

	cacheKey := fmt.Sprintf("%s%d", PRODUCT_CACHE_PREFIX, id)
	var cached models.Product
	if h.cacheGet(ctx, cacheKey, &cached) {
		success(c, cached)
		return
	}

	var product models.Product
	if err := h.db.WithContext(ctx).Preload("Category").Preload("Brand").First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}

	h.cacheSet(ctx, cacheKey, product, CACHE_TTL_MEDIUM)
	success(c, product)
}

func (h *InventoryHTTPHandler) UpdateProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	var product models.Product
	if err := h.db.WithContext(c.Request.Context()).First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Product not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}

	var req struct {
		Name          *string `json:"name"`
		Description   *string `json:"description"`
		CategoryID    *int32  `json:"category_id"`
		BrandID       *int32  `json:"brand_id"`
		CostPrice     *string `json:"cost_price"`
		SellingPrice  *string `json:"selling_price"`
		DiscountPrice *string `json:"discount_price"`
		TaxRate       *string `json:"tax_rate"`
		Unit          *string `json:"unit"`
		IsActive      *bool   `json:"is_active"`
		IsStockable   *bool   `json:"is_stockable"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if req.Name != nil {
		product.Name = *req.Name
	}
	if req.Description != nil {
		product.Description = req.Description
	}
	if req.CategoryID != nil {
		product.CategoryID = *req.CategoryID
	}
	if req.BrandID != nil {
		product.BrandID = req.BrandID
	}
	if req.CostPrice != nil {
		if !validDecimal(*req.CostPrice) {
			fail(c, http.StatusBadRequest, "Cost price must be a non-negative decimal")
			return
		}
		product.CostPrice = *req.CostPrice
	}
	if req.SellingPrice != nil {
		if !validDecimal(*req.SellingPrice) {
			fail(c, http.StatusBadRequest, "Selling price must be a non-negative decimal")
			return
		}
		product.SellingPrice = *req.SellingPrice
	}
	if req.DiscountPrice != nil {
		product.DiscountPrice = req.DiscountPrice
	}
	if req.TaxRate != nil {
		if !validDecimal(*req.TaxRate) {
			fail(c, http.StatusBadRequest, "Tax rate must be a non-negative decimal")
			return
		}
		product.TaxRate = *req.TaxRate
	}
	if req.Unit != nil {
		product.Unit = *req.Unit
	}
	if req.IsActive != nil {
		product.IsActive = *req.IsActive
	}
	if req.IsStockable != nil {
		product.IsStockable = *req.IsStockable
	}

	if err := h.db.WithContext(c.Request.Context()).Save(&product).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to update product")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context(), product.ID)
	success(c, product)
}

// DeleteProduct deactivates; sold items keep referencing the row.
func (h *InventoryHTTPHandler) DeleteProduct(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid product id")
		return
	}

	res := h.db.WithContext(c.Request.Context()).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		fail(c, http.StatusInternalServerError, "Failed to delete product")
		return
	}
	if res.RowsAffected == 0 {
		fail(c, http.StatusNotFound, "Product not found")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context(), id)
	success(c, gin.H{"deleted": true})
}

// --- Categories ---

func (h *InventoryHTTPHandler) CreateCategory(c *gin.Context) {
	var req struct {
		Name     string `json:"name" binding:"required"`
		ParentID *int32 `json:"parent_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	category := models.Category{Name: req.Name, ParentID: req.ParentID, IsActive: true}
	if err := h.db.WithContext(c.Request.Context()).Create(&category).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to create category")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	created(c, category)
}

func (h *InventoryHTTPHandler) ListCategories(c *gin.Context) {
	ctx := c.Request.Context()

	var cached []models.Category
	if h.cacheGet(ctx, CATEGORIES_CACHE_KEY, &cached) {
		success(c, cached)
		return
	}

	var categories []models.Category
	if err := h.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&categories).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list categories")
		return
	}

	h.cacheSet(ctx, CATEGORIES_CACHE_KEY, categories, CACHE_TTL_MEDIUM)
	success(c, categories)
}

// --- Brands ---

func (h *InventoryHTTPHandler) CreateBrand(c *gin.Context) {
	var req struct {
		Name        string  `json:"name" binding:"required"`
		Description *string `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	brand := models.Brand{Name: req.Name, Description: req.Description, IsActive: true}
	if err := h.db.WithContext(c.Request.Context()).Create(&brand).Error; err != nil {
		fail(c, http.StatusConflict, "Brand already exists")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	created(c, brand)
}

func (h *InventoryHTTPHandler) ListBrands(c *gin.Context) {
	ctx := c.Request.Context()

	var cached []models.Brand
	if h.cacheGet(ctx, BRANDS_CACHE_KEY, &cached) {
		success(c, cached)
		return
	}

	var brands []models.Brand
	if err := h.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&brands).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list brands")
		return
	}

	h.cacheSet(ctx, BRANDS_CACHE_KEY, brands, CACHE_TTL_MEDIUM)
	success(c, brands)
}

// --- Branches ---

func (h *InventoryHTTPHandler) CreateBranch(c *gin.Context) {
	var req struct {
		Name    string  `json:"name" binding:"required"`
		Code    string  `json:"code" binding:"required"`
		Address *string `json:"address"`
		Phone   *string `json:"phone"`
		Email   *string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	branch := models.Branch{
		Name:     req.Name,
		Code:     req.Code,
		Address:  req.Address,
		Phone:    req.Phone,
		Email:    req.Email,
		IsActive: true,
	}
	if err := h.db.WithContext(c.Request.Context()).Create(&branch).Error; err != nil {
		fail(c, http.StatusConflict, "Branch code already exists")
		return
	}

	h.invalidateCatalogCaches(c.Request.Context())
	created(c, branch)
}

func (h *InventoryHTTPHandler) ListBranches(c *gin.Context) {
	ctx := c.Request.Context()

	var cached []models.Branch
	if h.cacheGet(ctx, BRANCHES_CACHE_KEY, &cached) {
		success(c, cached)
		return
	}

	var branches []models.Branch
	if err := h.db.WithContext(ctx).Where("is_active = ?", true).Order("id").Find(&branches).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list branches")
		return
	}

	h.cacheSet(ctx, BRANCHES_CACHE_KEY, branches, CACHE_TTL_MEDIUM)
	success(c, branches)
}

func (h *InventoryHTTPHandler) GetBranch(c *gin.Context) {
	id, err := parseInt32Param(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid branch id")
		return
	}

	var branch models.Branch
	if err := h.db.WithContext(c.Request.Context()).First(&branch, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Branch not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}
	success(c, branch)
}

// --- Stock ---

func (h *InventoryHTTPHandler) ListStocks(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Stock{}).Preload("Product")
	if v := c.Query("branch_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("branch_id = ?", int32(id))
	}
	if v := c.Query("product_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("product_id = ?", id)
	}
	if c.Query("low") == "true" {
		q = q.Where("quantity::numeric <= reorder_level::numeric")
	}

	var stocks []models.Stock
	if err := q.Order("id").Limit(limit).Offset(offset).Find(&stocks).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list stocks")
		return
	}
	success(c, stocks)
}

// --- Movements ---

type movementRequest struct {
	ProductID           int64   `json:"product_id" binding:"required"`
	BranchID            int32   `json:"branch_id" binding:"required"`
	MovementType        string  `json:"movement_type" binding:"required"`
	AdjustmentDirection *string `json:"adjustment_direction"`
	Quantity            string  `json:"quantity" binding:"required"`
	Reference           string  `json:"reference"`
}

func (h *InventoryHTTPHandler) CreateMovement(c *gin.Context) {
	var req movementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	mv := models.StockMovement{
		ProductID:           req.ProductID,
		BranchID:            req.BranchID,
		MovementType:        req.MovementType,
		AdjustmentDirection: req.AdjustmentDirection,
		Quantity:            req.Quantity,
		Reference:           req.Reference,
	}
	if err := h.pos.ApplyMovement(c.Request.Context(), &mv, actorID(c)); err != nil {
		failFrom(c, err)
		return
	}
	created(c, mv)
}

func (h *InventoryHTTPHandler) ListMovements(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.StockMovement{})
	if v := c.Query("product_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("product_id = ?", id)
	}
	if v := c.Query("branch_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 32)
		q = q.Where("branch_id = ?", int32(id))
	}
	if v := c.Query("movement_type"); v != "" {
		q = q.Where("movement_type = ?", v)
	}

	var movements []models.StockMovement
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&movements).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list movements")
		return
	}
	success(c, movements)
}

type transferRequest struct {
	ProductID    int64  `json:"product_id" binding:"required"`
	FromBranchID int32  `json:"from_branch_id" binding:"required"`
	ToBranchID   int32  `json:"to_branch_id" binding:"required"`
	Quantity     string `json:"quantity" binding:"required"`
	Reference    string `json:"reference"`
}

func (h *InventoryHTTPHandler) TransferStock(c *gin.Context) {
	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	qty, err := decimal.NewFromString(req.Quantity)
	if err != nil {
		fail(c, http.StatusBadRequest, "Quantity must be a decimal")
		return
	}

	err = h.pos.TransferStock(c.Request.Context(), req.ProductID, req.FromBranchID, req.ToBranchID, qty, req.Reference, actorID(c))
	if err != nil {
		failFrom(c, err)
		return
	}
	success(c, gin.H{"transferred": true})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"meridian-pos/internal/database/models"
	"meridian-pos/internal/pos"
)

type PaymentsHTTPHandler struct {
	db  *gorm.DB
	pos *pos.Service
}

func NewPaymentsHTTPHandler(db *gorm.DB, posService *pos.Service) *PaymentsHTTPHandler {
	return &PaymentsHTTPHandler{db: db, pos: posService}
}

// --- Payment methods ---

func (h *PaymentsHTTPHandler) CreatePaymentMethod(c *gin.Context) {
	var req struct {
		Name string  `json:"name" binding:"required"`
		Code string  `json:"code" binding:"required"`
		Icon *string `json:"icon"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	method := models.PaymentMethod{Name: req.Name, Code: req.Code, Icon: req.Icon, IsActive: true}
	if err := h.db.WithContext(c.Request.Context()).Create(&method).Error; err != nil {
		fail(c, http.StatusConflict, "Payment method code already exists")
		return
	}
	created(c, method)
}

func (h *PaymentsHTTPHandler) ListPaymentMethods(c *gin.Context) {
	var methods []models.PaymentMethod
	err := h.db.WithContext(c.Request.Context()).
		Where("is_active = ?", true).
		Order("id").
		Find(&methods).Error
	if err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list payment methods")
		return
	}
	success(c, methods)
}

// --- Payments ---

func (h *PaymentsHTTPHandler) ListPayments(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Payment{}).Preload("Method")
	if v := c.Query("sale_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("sale_id = ?", id)
	}
	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", v)
	}

	var payments []models.Payment
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&payments).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list payments")
		return
	}
	success(c, payments)
}

func (h *PaymentsHTTPHandler) GetPayment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid payment id")
		return
	}
	ctx := c.Request.Context()

	var payment models.Payment
	err = h.db.WithContext(ctx).
		Preload("Method").
		Preload("Refunds").
		First(&payment, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fail(c, http.StatusNotFound, "Payment not found")
			return
		}
		fail(c, http.StatusInternalServerError, "Database error")
		return
	}

	refundable, err := h.pos.Refundable(ctx, payment.ID)
	if err != nil {
		failFrom(c, err)
		return
	}
	success(c, gin.H{
		"payment":    payment,
		"refundable": refundable.StringFixed(2),
	})
}

// --- Refunds ---

type refundRequest struct {
	PaymentID int64  `json:"payment_id" binding:"required"`
	Amount    string `json:"amount" binding:"required"`
	Reason    string `json:"reason"`
	Status    string `json:"status"`
}

func (h *PaymentsHTTPHandler) CreateRefund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, "Amount must be a decimal")
		return
	}

	refund, err := h.pos.CreateRefund(c.Request.Context(), pos.RefundRequest{
		PaymentID: req.PaymentID,
		Amount:    amount,
		Reason:    req.Reason,
		Status:    req.Status,
		ActorID:   actorID(c),
	})
	if err != nil {
		failFrom(c, err)
		return
	}
	created(c, refund)
}

func (h *PaymentsHTTPHandler) ListRefunds(c *gin.Context) {
	limit, offset := parsePagination(c)
	q := h.db.WithContext(c.Request.Context()).Model(&models.Refund{})
	if v := c.Query("payment_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("payment_id = ?", id)
	}
	if v := c.Query("sale_id"); v != "" {
		id, _ := strconv.ParseInt(v, 10, 64)
		q = q.Where("sale_id = ?", id)
	}
	if v := c.Query("status"); v != "" {
		q = q.Where("status = ?", v)
	}

	var refunds []models.Refund
	if err := q.Order("id DESC").Limit(limit).Offset(offset).Find(&refunds).Error; err != nil {
		fail(c, http.StatusInternalServerError, "Failed to list refunds")
		return
	}
	success(c, refunds)
}

func (h *PaymentsHTTPHandler) UpdateRefund(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid refund id")
		return
	}
	var req struct {
		Amount string `json:"amount" binding:"required"`
		Reason string `json:"reason"`
		Status string `json:"status" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		fail(c, http.StatusBadRequest, "Amount must be a decimal")
		return
	}

	refund, err := h.pos.UpdateRefund(c.Request.Context(), id, amount, req.Reason, req.Status)
	if err != nil {
		failFrom(c, err)
		return
	}
	success(c, refund)
}

func (h *PaymentsHTTPHandler) DeleteRefund(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		fail(c, http.StatusBadRequest, "Invalid refund id")
		return
	}

	if err := h.pos.DeleteRefund(c.Request.Context(), id); err != nil {
		failFrom(c, err)
		return
	}
	success(c, gin.H{"deleted": true})
}

package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"meridian-pos/internal/pos"
)

// Helper functions shared by the HTTP handlers.
func success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    data,
	})
}

func fail(c *gin.Context, code int, message string) {
	c.JSON(code, gin.H{
		"success": false,
		"error":   message,
	})
}

// failFrom maps a domain error onto the HTTP status it deserves and
// keeps its message; unknown errors stay opaque 500s.
func failFrom(c *gin.Context, err error) {
	var (
		nfe *pos.NotFoundError
		ve  *pos.ValidationError
		ipe *pos.InsufficientPaymentError
		ise *pos.InsufficientStockError
		ire *pos.ImmutableRecordError
	)
	switch {
	case errors.Is(err, pos.ErrEmptyCart),
		errors.Is(err, pos.ErrNoPayment),
		errors.As(err, &ve),
		errors.As(err, &ipe):
		fail(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &nfe):
		fail(c, http.StatusNotFound, err.Error())
	case errors.As(err, &ise), errors.As(err, &ire):
		fail(c, http.StatusConflict, err.Error())
	case errors.Is(err, pos.ErrLockTimeout):
		fail(c, http.StatusServiceUnavailable, err.Error())
	default:
		fail(c, http.StatusInternalServerError, "Internal server error")
	}
}

func parseIDParam(c *gin.Context, param string) (int64, error) {
	return strconv.ParseInt(c.Param(param), 10, 64)
}

func parseInt32Param(c *gin.Context, param string) (int32, error) {
	val, err := strconv.ParseInt(c.Param(param), 10, 32)
	return int32(val), err
}

func parsePagination(c *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	return limit, (page - 1) * limit
}

// sessionID scopes the cart: the X-Session-ID header when the client
// sends one, otherwise the authenticated username.
func sessionID(c *gin.Context) string {
	if sid := c.GetHeader("X-Session-ID"); sid != "" {
		return sid
	}
	return c.GetString("username")
}

func actorID(c *gin.Context) int64 {
	return c.GetInt64("user_id")
}

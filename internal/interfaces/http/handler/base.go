package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/robotshop/cart/internal/domain/shared"
	"github.com/robotshop/cart/internal/infrastructure/logger"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities.
//
// Error responses carry a plain-text body: the legacy storefront matches
// on texts like "cart not found" and "out of stock", so there is no JSON
// error envelope here.
type BaseHandler struct{}

// OK sends a 200 response with the given payload as JSON.
func (h *BaseHandler) OK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Text sends a plain-text response.
func (h *BaseHandler) Text(c *gin.Context, status int, body string) {
	c.String(status, body)
}

// HandleDomainError maps a domain error to its HTTP status and plain-text
// body. Unknown errors are reported as internal; their details stay in the
// log, not the response.
func (h *BaseHandler) HandleDomainError(c *gin.Context, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		c.String(statusForCode(domainErr.Code), domainErr.Message)
		return
	}

	logger.GetGinLogger(c).Error("unhandled error",
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.String(http.StatusInternalServerError, "internal server error")
}

func statusForCode(code string) int {
	switch code {
	case shared.CodeNotFound, shared.CodeOutOfStock:
		return http.StatusNotFound
	case shared.CodeInvalidInput:
		return http.StatusBadRequest
	case shared.CodeDependencyUnavailable, shared.CodeStoreError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

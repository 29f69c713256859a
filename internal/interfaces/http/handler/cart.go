package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	appcart "github.com/robotshop/cart/internal/application/cart"
	"github.com/robotshop/cart/internal/domain/shared"
)

// CartHandler exposes the cart operations over HTTP. Route shapes, verbs
// and response bodies follow the wire contract the storefront already
// speaks, quantity-in-path GETs included.
type CartHandler struct {
	BaseHandler
	service *appcart.Service
}

// NewCartHandler creates a cart handler.
func NewCartHandler(service *appcart.Service) *CartHandler {
	return &CartHandler{service: service}
}

// RegisterRoutes registers the cart routes.
func (h *CartHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/cart/:id", h.GetCart)
	rg.DELETE("/cart/:id", h.DeleteCart)
	rg.GET("/rename/:from/:to", h.RenameCart)
	rg.GET("/add/:id/:sku/:qty", h.AddItem)
	rg.GET("/update/:id/:sku/:qty", h.UpdateItem)
	rg.POST("/shipping/:id", h.AddShipping)
}

// GetCart handles GET /cart/:id
func (h *CartHandler) GetCart(c *gin.Context) {
	result, err := h.service.GetCart(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.OK(c, result)
}

// DeleteCart handles DELETE /cart/:id
func (h *CartHandler) DeleteCart(c *gin.Context) {
	if err := h.service.DeleteCart(c.Request.Context(), c.Param("id")); err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.Text(c, http.StatusOK, "OK")
}

// RenameCart handles GET /rename/:from/:to
func (h *CartHandler) RenameCart(c *gin.Context) {
	result, err := h.service.RenameCart(c.Request.Context(), c.Param("from"), c.Param("to"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.OK(c, result)
}

// AddItem handles GET /add/:id/:sku/:qty
func (h *CartHandler) AddItem(c *gin.Context) {
	qty, err := parseQuantity(c.Param("qty"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.service.AddItem(c.Request.Context(), c.Param("id"), c.Param("sku"), qty)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.OK(c, result)
}

// UpdateItem handles GET /update/:id/:sku/:qty
func (h *CartHandler) UpdateItem(c *gin.Context) {
	qty, err := parseQuantity(c.Param("qty"))
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}

	result, err := h.service.UpdateItem(c.Request.Context(), c.Param("id"), c.Param("sku"), qty)
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.OK(c, result)
}

// shippingRequest is the POST /shipping/:id payload. Pointer fields so a
// missing key is distinguishable from a zero value.
type shippingRequest struct {
	Distance *float64         `json:"distance" binding:"required"`
	Cost     *decimal.Decimal `json:"cost" binding:"required"`
	Location *string          `json:"location" binding:"required"`
}

// AddShipping handles POST /shipping/:id
func (h *CartHandler) AddShipping(c *gin.Context) {
	var req shippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.HandleDomainError(c, shared.ErrShippingDataMissing)
		return
	}

	result, err := h.service.AddShipping(c.Request.Context(), c.Param("id"), appcart.Shipping{
		Distance: *req.Distance,
		Cost:     *req.Cost,
		Location: *req.Location,
	})
	if err != nil {
		h.HandleDomainError(c, err)
		return
	}
	h.OK(c, result)
}

// parseQuantity parses the :qty path segment. Quantity arrives as a path
// string, so a non-numeric value is a client error, not a panic.
func parseQuantity(raw string) (int, error) {
	qty, err := strconv.Atoi(raw)
	if err != nil {
		return 0, shared.ErrQuantityNotANumber
	}
	return qty, nil
}

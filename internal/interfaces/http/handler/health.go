package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appcart "github.com/robotshop/cart/internal/application/cart"
	"github.com/robotshop/cart/internal/infrastructure/resilience"
)

// StoreHealth reports whether the cart store is reachable.
type StoreHealth interface {
	Ready() bool
}

// BreakerHealth exposes the catalogue breaker snapshot.
type BreakerHealth interface {
	Stats() resilience.Stats
}

// HealthHandler handles the liveness endpoint. It always answers 200;
// degraded dependencies show up in the body, not the status code, so a
// broken redis does not get the pod restarted into a crash loop.
type HealthHandler struct {
	BaseHandler
	service *appcart.Service
	store   StoreHealth
	breaker BreakerHealth
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(service *appcart.Service, store StoreHealth, breaker BreakerHealth) *HealthHandler {
	return &HealthHandler{service: service, store: store, breaker: breaker}
}

// RegisterRoutes registers the health route.
func (h *HealthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/health", h.Health)
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := gin.H{
		"app":   "OK",
		"redis": h.store.Ready(),
	}

	if h.breaker != nil {
		status["catalogue"] = h.breaker.Stats()
	}

	// The count is best-effort; a store hiccup must not fail the probe.
	if h.store.Ready() {
		if count, err := h.service.ActiveCarts(c.Request.Context()); err == nil {
			status["carts"] = count
		}
	}

	c.JSON(http.StatusOK, status)
}

package cart

import (
	"context"
	"errors"

	"github.com/robotshop/cart/internal/domain/cart"
	"github.com/robotshop/cart/internal/domain/catalog"
	"github.com/robotshop/cart/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service orchestrates cart operations: load from the store, mutate the
// in-memory cart, persist with a refreshed TTL, return the result.
//
// Every mutation is a read-modify-write with no optimistic concurrency
// check; the last writer wins. The intended usage pattern is a single
// client per cart id, so no locking is introduced here.
type Service struct {
	carts     cart.Repository
	catalogue catalog.Service
	logger    *zap.Logger
}

// NewService creates a cart service.
func NewService(carts cart.Repository, catalogue catalog.Service, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		carts:     carts,
		catalogue: catalogue,
		logger:    logger,
	}
}

// GetCart returns the cart stored under id.
func (s *Service) GetCart(ctx context.Context, id string) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrCartNotFound) {
			s.logger.Error("failed to load cart",
				zap.String("operation", "get_cart"),
				zap.String("cart_id", id),
				zap.Error(err))
		}
		return nil, err
	}
	return c, nil
}

// DeleteCart removes the cart stored under id, e.g. after checkout.
// Returns shared.ErrCartNotFound if no record was removed.
func (s *Service) DeleteCart(ctx context.Context, id string) error {
	removed, err := s.carts.Delete(ctx, id)
	if err != nil {
		s.logger.Error("failed to delete cart",
			zap.String("operation", "delete_cart"),
			zap.String("cart_id", id),
			zap.Error(err))
		return err
	}
	if !removed {
		return shared.ErrCartNotFound
	}
	return nil
}

// RenameCart copies the cart at fromID under toID with a fresh TTL, e.g.
// when an anonymous session logs in. The source record is left untouched
// and expires on its own.
func (s *Service) RenameCart(ctx context.Context, fromID, toID string) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, fromID)
	if err != nil {
		if !errors.Is(err, shared.ErrCartNotFound) {
			s.logger.Error("failed to load cart",
				zap.String("operation", "rename_cart"),
				zap.String("cart_id", fromID),
				zap.Error(err))
		}
		return nil, err
	}
	if err := s.carts.Save(ctx, toID, c); err != nil {
		s.logger.Error("failed to save cart",
			zap.String("operation", "rename_cart"),
			zap.String("cart_id", toID),
			zap.Error(err))
		return nil, err
	}
	return c, nil
}

// AddItem validates the quantity, fetches the product from the catalogue,
// merges it into the cart (creating the cart on first add) and persists
// the result. The store is never touched before the product lookup
// succeeds, so a failed add leaves no partial cart behind.
func (s *Service) AddItem(ctx context.Context, id, sku string, qty int) (*cart.Cart, error) {
	if qty < 1 {
		return nil, shared.ErrQuantityTooSmall
	}

	product, err := s.catalogue.GetProduct(ctx, sku)
	if err != nil {
		if !errors.Is(err, shared.ErrProductNotFound) {
			s.logger.Error("catalogue lookup failed",
				zap.String("operation", "add_item"),
				zap.String("cart_id", id),
				zap.String("sku", sku),
				zap.Error(err))
		}
		return nil, err
	}
	if product.InStock == 0 {
		return nil, shared.ErrOutOfStock
	}

	c, err := s.loadOrDefault(ctx, id)
	if err != nil {
		s.logger.Error("failed to load cart",
			zap.String("operation", "add_item"),
			zap.String("cart_id", id),
			zap.Error(err))
		return nil, err
	}

	c.Merge(cart.NewItem(product.SKU, product.Name, product.Price, qty))

	if err := s.save(ctx, "add_item", id, c); err != nil {
		return nil, err
	}
	return c, nil
}

// UpdateItem sets the quantity of an existing line, removing it when qty
// is zero. Returns shared.ErrItemNotFound when the cart has no such sku.
func (s *Service) UpdateItem(ctx context.Context, id, sku string, qty int) (*cart.Cart, error) {
	if qty < 0 {
		return nil, shared.ErrNegativeQuantity
	}

	c, err := s.carts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrCartNotFound) {
			s.logger.Error("failed to load cart",
				zap.String("operation", "update_item"),
				zap.String("cart_id", id),
				zap.Error(err))
		}
		return nil, err
	}

	if err := c.UpdateQuantity(sku, qty); err != nil {
		return nil, err
	}

	if err := s.save(ctx, "update_item", id, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Shipping carries the fields of an add-shipping request. All three are
// required; presence is validated at the HTTP boundary.
type Shipping struct {
	Distance float64
	Cost     decimal.Decimal
	Location string
}

// AddShipping applies a shipping line to an existing cart. The shipping
// line replaces any previous one rather than accumulating.
func (s *Service) AddShipping(ctx context.Context, id string, shipping Shipping) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, id)
	if err != nil {
		if !errors.Is(err, shared.ErrCartNotFound) {
			s.logger.Error("failed to load cart",
				zap.String("operation", "add_shipping"),
				zap.String("cart_id", id),
				zap.Error(err))
		}
		return nil, err
	}

	c.SetShipping(shipping.Cost, shipping.Location)

	if err := s.save(ctx, "add_shipping", id, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ActiveCarts returns a snapshot count of non-expired carts in the store.
func (s *Service) ActiveCarts(ctx context.Context) (int64, error) {
	return s.carts.Count(ctx)
}

// loadOrDefault returns the stored cart, or the canonical empty cart when
// the key is absent or expired. Carts are created implicitly on first add.
func (s *Service) loadOrDefault(ctx context.Context, id string) (*cart.Cart, error) {
	c, err := s.carts.Get(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrCartNotFound) {
			return cart.New(), nil
		}
		return nil, err
	}
	return c, nil
}

func (s *Service) save(ctx context.Context, operation, id string, c *cart.Cart) error {
	if err := s.carts.Save(ctx, id, c); err != nil {
		s.logger.Error("failed to save cart",
			zap.String("operation", operation),
			zap.String("cart_id", id),
			zap.Error(err))
		return err
	}
	return nil
}

package cart

import "context"

// Repository persists carts by an externally supplied, opaque id. A cart
// exists exactly as long as a non-expired record is present under its key;
// implementations report absence and expiry identically via
// shared.ErrCartNotFound.
type Repository interface {
	// Get returns the cart stored under id.
	Get(ctx context.Context, id string) (*Cart, error)

	// Save overwrites the cart under id and resets its expiry.
	Save(ctx context.Context, id string, c *Cart) error

	// Delete removes the cart under id, reporting whether a record was
	// actually removed.
	Delete(ctx context.Context, id string) (bool, error)

	// Count returns a snapshot count of active carts. It is used for
	// coarse reporting only and is not correctness-critical.
	Count(ctx context.Context) (int64, error)
}

package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes understood by the HTTP layer
const (
	CodeNotFound              = "NOT_FOUND"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeOutOfStock            = "OUT_OF_STOCK"
	CodeDependencyUnavailable = "DEPENDENCY_UNAVAILABLE"
	CodeStoreError            = "STORE_ERROR"
)

// Common domain errors. The messages are part of the wire contract: legacy
// clients match on the response body text, so they must not be reworded.
var (
	ErrCartNotFound         = NewDomainError(CodeNotFound, "cart not found")
	ErrProductNotFound      = NewDomainError(CodeNotFound, "product not found")
	ErrItemNotFound         = NewDomainError(CodeNotFound, "not in cart")
	ErrOutOfStock           = NewDomainError(CodeOutOfStock, "out of stock")
	ErrQuantityNotANumber   = NewDomainError(CodeInvalidInput, "quantity must be a number")
	ErrQuantityTooSmall     = NewDomainError(CodeInvalidInput, "quantity has to be greater than zero")
	ErrNegativeQuantity     = NewDomainError(CodeInvalidInput, "negative quantity not allowed")
	ErrShippingDataMissing  = NewDomainError(CodeInvalidInput, "shipping data missing")
	ErrCatalogueUnavailable = NewDomainError(CodeDependencyUnavailable, "catalogue temporarily unavailable")
)

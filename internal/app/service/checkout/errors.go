package checkout

import "errors"

var (
	// ErrDuplicateOrder means an order with the same idempotency key exists.
	ErrDuplicateOrder = errors.New("duplicate order")
	// ErrProductNotFound means a requested product id is not in the catalog.
	ErrProductNotFound = errors.New("product not found")
	// ErrInsufficientStock means a requested quantity exceeds available stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrGatewayUnavailable means the session call exhausted its retries; the
	// order stays Pending and is recoverable by a reconciliation sweep.
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
)

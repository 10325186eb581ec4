package broker

import "context"

// Gateway abstracts the broker's trading surface. A non-success envelope is a
// recoverable per-call failure; callers must not treat it as fatal.
type Gateway interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResult, error)
	Positions(ctx context.Context) (PositionsResult, error)
	Orders(ctx context.Context) (OrdersResult, error)
}

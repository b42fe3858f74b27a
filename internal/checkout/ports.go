package checkout

import (
	"context"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
	"github.com/noah-isme/backend-kasir/internal/reconcile"
)

// ProductLookup resolves products added to the cart.
type ProductLookup interface {
	Get(ctx context.Context, id int64) (catalog.Product, error)
}

// CustomerLookup fetches a customer's loyalty standing.
type CustomerLookup interface {
	LoyaltySummary(ctx context.Context, customerID int64) (loyalty.Summary, error)
}

// Redeemer commits a loyalty redemption on the backend.
type Redeemer interface {
	Redeem(ctx context.Context, r Redemption) (RedemptionResult, error)
}

// SaleRecorder records a completed sale on the backend.
type SaleRecorder interface {
	CreateSale(ctx context.Context, req SaleRequest) (SaleResult, error)
}

// Reconciler hands off redemptions whose sale could not be recorded, and
// their resolution once a retried sale succeeds.
type Reconciler interface {
	Enqueue(ctx context.Context, gap reconcile.Gap) error
	Resolve(ctx context.Context, res reconcile.Resolution) error
}

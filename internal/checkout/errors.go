package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("checkout session not found")
	// ErrEmptyCart is returned when tendering or completing without items.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrTenderNotOpen is returned when cash is added before the tender is opened.
	ErrTenderNotOpen = errors.New("tender is not open")
	// ErrNoCustomer is returned when points are selected without a customer.
	ErrNoCustomer = errors.New("no customer attached")
	// ErrItemNotInCart is returned when a line operation names an absent product.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrCustomerNotFound is returned by CustomerLookup for unknown customers.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrRedemptionCommitted is returned when a change would alter points that
	// were already redeemed for a sale still waiting to be recorded.
	ErrRedemptionCommitted = errors.New("points already redeemed for this session")
)

// RedemptionFailedError reports that the loyalty redemption call failed. No
// sale was created and the session is unchanged.
type RedemptionFailedError struct {
	CustomerID int64
	Points     int64
	Err        error
}

func (e *RedemptionFailedError) Error() string {
	return fmt.Sprintf("loyalty redemption of %d points for customer %d failed: %v", e.Points, e.CustomerID, e.Err)
}

func (e *RedemptionFailedError) Unwrap() error { return e.Err }

// SaleCreationFailedError reports that the sale could not be recorded. When
// ReconciliationRequired is set the points were already redeemed.
type SaleCreationFailedError struct {
	ReconciliationRequired  bool
	RedemptionTransactionID string
	Err                     error
}

func (e *SaleCreationFailedError) Error() string {
	if e.ReconciliationRequired {
		return fmt.Sprintf("sale creation failed after loyalty redemption: %v", e.Err)
	}
	return fmt.Sprintf("sale creation failed: %v", e.Err)
}

func (e *SaleCreationFailedError) Unwrap() error { return e.Err }

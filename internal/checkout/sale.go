package checkout

import (
	"time"

	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/tender"
)

const (
	PaymentMethodCash      = "cash"
	PaymentStatusCompleted = "completed"
)

// SaleItem is a flattened cart line in the sale payload.
type SaleItem struct {
	ProductID      int64       `json:"product_id"`
	ProductName    string      `json:"product_name"`
	Quantity       int         `json:"quantity"`
	UnitPrice      money.Money `json:"unit_price"`
	DiscountAmount money.Money `json:"discount_amount"`
	Subtotal       money.Money `json:"subtotal"`
}

// SaleRequest is the payload sent to the backend to record a sale.
type SaleRequest struct {
	CustomerID            *int64      `json:"customer_id,omitempty"`
	Subtotal              money.Money `json:"subtotal"`
	TaxAmount             money.Money `json:"tax_amount"`
	DiscountAmount        money.Money `json:"discount_amount"`
	LoyaltyPointsUsed     int64       `json:"loyalty_points_used"`
	LoyaltyDiscountAmount money.Money `json:"loyalty_discount_amount"`
	TotalAmount           money.Money `json:"total_amount"`
	PaymentMethod         string      `json:"payment_method"`
	PaymentStatus         string      `json:"payment_status"`
	Notes                 string      `json:"notes,omitempty"`
	Items                 []SaleItem  `json:"items"`
}

// BuildSaleRequest flattens the session's cart into a sale payload.
func BuildSaleRequest(s *Session, notes string) SaleRequest {
	totals := s.Cart.Totals
	req := SaleRequest{
		Subtotal:              totals.Subtotal,
		TaxAmount:             totals.Tax,
		DiscountAmount:        totals.Discount,
		LoyaltyDiscountAmount: totals.LoyaltyDiscount,
		TotalAmount:           totals.Total,
		PaymentMethod:         PaymentMethodCash,
		PaymentStatus:         PaymentStatusCompleted,
		Notes:                 notes,
		Items:                 make([]SaleItem, 0, len(s.Cart.Items)),
	}
	if s.Customer != nil {
		id := s.Customer.CustomerID
		req.CustomerID = &id
		req.LoyaltyPointsUsed = s.Loyalty.PointsToUse
	}
	for _, li := range s.Cart.Items {
		req.Items = append(req.Items, SaleItem{
			ProductID:      li.Product.ID,
			ProductName:    li.Product.Name,
			Quantity:       li.Quantity,
			UnitPrice:      li.Product.UnitPrice,
			DiscountAmount: li.LineDiscount,
			Subtotal:       li.Subtotal(),
		})
	}
	return req
}

// Redemption is a loyalty redemption request.
type Redemption struct {
	CustomerID int64
	Points     int64
	Amount     money.Money
}

// RedemptionResult is the backend's acknowledgement of a redemption.
type RedemptionResult struct {
	TransactionID string
}

// SaleResult identifies the recorded sale.
type SaleResult struct {
	SaleID        int64
	ReceiptNumber string
}

// Receipt is the outcome of a completed checkout.
type Receipt struct {
	SaleID                  int64           `json:"saleId"`
	ReceiptNumber           string          `json:"receiptNumber"`
	Subtotal                money.Money     `json:"subtotal"`
	TaxAmount               money.Money     `json:"taxAmount"`
	DiscountAmount          money.Money     `json:"discountAmount"`
	Total                   money.Money     `json:"total"`
	AmountTendered          money.Money     `json:"amountTendered"`
	Change                  money.Money     `json:"change"`
	Breakdown               []tender.Change `json:"breakdown"`
	PointsRedeemed          int64           `json:"pointsRedeemed"`
	LoyaltyDiscount         money.Money     `json:"loyaltyDiscount"`
	PointsEarned            int64           `json:"pointsEarned"`
	RedemptionTransactionID string          `json:"redemptionTransactionId,omitempty"`
	CompletedAt             time.Time       `json:"completedAt"`
}

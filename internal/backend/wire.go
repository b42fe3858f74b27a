package backend

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
	"github.com/noah-isme/backend-kasir/internal/money"
)

// Amounts are decoded through decimal.Decimal so float encodings with more
// than two decimals round instead of failing.

type productDTO struct {
	ID            int64           `json:"id"`
	SKU           string          `json:"sku"`
	Name          string          `json:"name"`
	CategoryName  string          `json:"category_name"`
	Price         decimal.Decimal `json:"price"`
	StockQuantity int             `json:"stock_quantity"`
	Barcode       string          `json:"barcode"`
	IsActive      bool            `json:"is_active"`
}

func (p productDTO) toProduct(price func(decimal.Decimal) money.Money) catalog.Product {
	return catalog.Product{
		ID:            p.ID,
		SKU:           p.SKU,
		Name:          p.Name,
		CategoryName:  p.CategoryName,
		UnitPrice:     price(p.Price),
		StockQuantity: p.StockQuantity,
		Barcode:       p.Barcode,
		IsActive:      p.IsActive,
	}
}

type summaryDTO struct {
	ID                 int64           `json:"id"`
	Name               string          `json:"name"`
	TotalPoints        int64           `json:"total_points"`
	AvailablePoints    int64           `json:"available_points"`
	AvailableBahtValue decimal.Decimal `json:"available_baht_value"`
	TotalTransactions  int64           `json:"total_transactions"`
	TotalSpent         decimal.Decimal `json:"total_spent"`
	MemberSince        string          `json:"member_since"`
}

func (s summaryDTO) toSummary(requested int64) loyalty.Summary {
	id := s.ID
	if id == 0 {
		id = requested
	}
	return loyalty.Summary{
		CustomerID:         id,
		Name:               s.Name,
		AvailablePoints:    s.AvailablePoints,
		AvailableBahtValue: money.FromDecimal(s.AvailableBahtValue),
		TotalPoints:        s.TotalPoints,
		TotalTransactions:  s.TotalTransactions,
		TotalSpent:         money.FromDecimal(s.TotalSpent),
		MemberSince:        s.MemberSince,
	}
}

type redeemRequest struct {
	CustomerID     int64       `json:"customer_id"`
	PointsToRedeem int64       `json:"points_to_redeem"`
	BahtAmount     money.Money `json:"baht_amount"`
}

type redeemResponse struct {
	Message        string          `json:"message"`
	PointsRedeemed int64           `json:"points_redeemed"`
	BahtValue      decimal.Decimal `json:"baht_value"`
	TransactionID  flexibleID      `json:"transaction_id"`
}

func (r redeemResponse) transactionID() string {
	return string(r.TransactionID)
}

type saleResponse struct {
	ID            int64  `json:"id"`
	SaleID        int64  `json:"sale_id"`
	ReceiptNumber string `json:"receipt_number"`
}

func (r saleResponse) saleID() int64 {
	if r.SaleID != 0 {
		return r.SaleID
	}
	return r.ID
}

// flexibleID accepts either a JSON string or number.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		s, err := strconv.Unquote(string(data))
		if err != nil {
			return err
		}
		*f = flexibleID(s)
		return nil
	}
	*f = flexibleID(data)
	return nil
}

package loyalty

import "github.com/noah-isme/backend-kasir/internal/money"

// Summary is a customer's loyalty standing as reported by the backend.
type Summary struct {
	CustomerID         int64       `json:"customerId"`
	Name               string      `json:"name"`
	AvailablePoints    int64       `json:"availablePoints"`
	AvailableBahtValue money.Money `json:"availableBahtValue"`
	TotalPoints        int64       `json:"totalPoints"`
	TotalTransactions  int64       `json:"totalTransactions"`
	TotalSpent         money.Money `json:"totalSpent"`
	MemberSince        string      `json:"memberSince,omitempty"`
}

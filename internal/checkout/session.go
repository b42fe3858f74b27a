package checkout

import (
	"time"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/denomination"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/pricing"
	"github.com/noah-isme/backend-kasir/internal/tender"
)

// Session is one register transaction: the cart being rung up, the optional
// loyalty customer, and the cash tender once it is opened.
type Session struct {
	ID         string            `json:"id"`
	TerminalID string            `json:"terminalId,omitempty"`
	Cart       *cart.Cart        `json:"cart"`
	Customer   *loyalty.Summary  `json:"customer,omitempty"`
	Loyalty    loyalty.Selection `json:"loyalty"`
	Tender     *tender.State     `json:"tender,omitempty"`
	// Redeemed is set when points were redeemed but the sale was not recorded,
	// so a retried completion does not redeem them twice.
	Redeemed    *RedeemedPoints `json:"redeemed,omitempty"`
	LastReceipt *Receipt        `json:"lastReceipt,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// RedeemedPoints records a committed redemption awaiting its sale.
type RedeemedPoints struct {
	CustomerID    int64       `json:"customerId"`
	Points        int64       `json:"points"`
	Amount        money.Money `json:"amount"`
	TransactionID string      `json:"transactionId,omitempty"`
}

func (r *RedeemedPoints) matches(red Redemption) bool {
	return r != nil && r.CustomerID == red.CustomerID && r.Points == red.Points && r.Amount == red.Amount
}

// refresh recomputes the cart total first, then re-clamps the selected points
// against it, then applies the resulting loyalty discount. Once points were
// redeemed the clamp always starts from the committed amount.
func (s *Session) refresh(rules loyalty.Rules) {
	before := s.Cart.TotalBeforeLoyalty()
	var available int64
	if s.Customer != nil {
		available = s.Customer.AvailablePoints
	}
	requested := s.Loyalty.PointsToUse
	if s.Redeemed != nil {
		requested = s.Redeemed.Points
	}
	s.Loyalty = rules.Reclamp(requested, available, before)
	s.Cart.RecomputeTotals(s.Cart.TaxRate, s.Loyalty.Discount)
}

// reset returns the session to an empty transaction after a completed sale.
func (s *Session) reset() {
	s.Cart.Clear()
	s.Customer = nil
	s.Loyalty = loyalty.Selection{}
	s.Tender = nil
	s.Redeemed = nil
}

// TenderView is the tender as shown on the cash dialog.
type TenderView struct {
	Entries        []tender.Entry  `json:"entries"`
	AmountTendered money.Money     `json:"amountTendered"`
	ChangeDue      money.Money     `json:"changeDue"`
	Status         tender.Status   `json:"status"`
	Breakdown      []tender.Change `json:"breakdown"`
}

// View is the session representation returned by the API.
type View struct {
	ID           string            `json:"id"`
	TerminalID   string            `json:"terminalId,omitempty"`
	Items        []cart.LineItem   `json:"items"`
	ItemCount    int               `json:"itemCount"`
	Totals       pricing.Summary   `json:"totals"`
	DisplayTotal money.Money       `json:"displayTotal"`
	Customer     *loyalty.Summary  `json:"customer,omitempty"`
	Loyalty      loyalty.Selection `json:"loyalty"`
	Tender       *TenderView       `json:"tender,omitempty"`
	LastReceipt  *Receipt          `json:"lastReceipt,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
}

func newView(s *Session, table denomination.Table) View {
	v := View{
		ID:           s.ID,
		TerminalID:   s.TerminalID,
		Items:        s.Cart.Items,
		ItemCount:    s.Cart.ItemCount(),
		Totals:       s.Cart.Totals,
		DisplayTotal: s.Cart.DisplayTotal(),
		Customer:     s.Customer,
		Loyalty:      s.Loyalty,
		LastReceipt:  s.LastReceipt,
		CreatedAt:    s.CreatedAt,
		UpdatedAt:    s.UpdatedAt,
	}
	if s.Tender != nil {
		total := s.Cart.Total()
		change := s.Tender.ChangeDue(total)
		v.Tender = &TenderView{
			Entries:        s.Tender.Entries(),
			AmountTendered: s.Tender.AmountTendered(),
			ChangeDue:      change,
			Status:         s.Tender.Status(total),
			Breakdown:      tender.ComputeChangeBreakdown(change, table),
		}
	}
	return v
}

package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-kasir/internal/cart"
	"github.com/noah-isme/backend-kasir/internal/catalog"
	"github.com/noah-isme/backend-kasir/internal/denomination"
	"github.com/noah-isme/backend-kasir/internal/lock"
	"github.com/noah-isme/backend-kasir/internal/loyalty"
	"github.com/noah-isme/backend-kasir/internal/money"
	"github.com/noah-isme/backend-kasir/internal/obs"
	"github.com/noah-isme/backend-kasir/internal/reconcile"
	"github.com/noah-isme/backend-kasir/internal/session"
	"github.com/noah-isme/backend-kasir/internal/tender"
)

// Config groups Service dependencies and register settings.
type Config struct {
	Store         session.Store
	Locker        lock.Locker
	Products      ProductLookup
	Customers     CustomerLookup
	Redeemer      Redeemer
	Sales         SaleRecorder
	Reconciler    Reconciler
	TaxRate       decimal.Decimal
	Rules         loyalty.Rules
	Denominations denomination.Table
	LockTTL       time.Duration
	Logger        *zerolog.Logger
	Now           func() time.Time
}

// Service runs checkout sessions. Every operation on a session holds the
// session lock, including both backend calls made by Complete.
type Service struct {
	repo       repository
	locker     lock.Locker
	products   ProductLookup
	customers  CustomerLookup
	redeemer   Redeemer
	sales      SaleRecorder
	reconciler Reconciler
	taxRate    decimal.Decimal
	rules      loyalty.Rules
	table      denomination.Table
	lockTTL    time.Duration
	logger     zerolog.Logger
	now        func() time.Time
}

// NewService validates cfg and returns a Service.
func NewService(cfg Config) (*Service, error) {
	var errs []error
	if cfg.Store == nil {
		errs = append(errs, errors.New("session store is required"))
	}
	if cfg.Products == nil {
		errs = append(errs, errors.New("product lookup is required"))
	}
	if cfg.Customers == nil {
		errs = append(errs, errors.New("customer lookup is required"))
	}
	if cfg.Redeemer == nil {
		errs = append(errs, errors.New("redeemer is required"))
	}
	if cfg.Sales == nil {
		errs = append(errs, errors.New("sale recorder is required"))
	}
	rules := cfg.Rules
	if rules.PointValue.IsZero() && rules.AccrualDivisor.IsZero() {
		rules = loyalty.DefaultRules()
	}
	if err := rules.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	locker := cfg.Locker
	if locker == nil {
		locker = &lock.Local{}
	}
	taxRate := cfg.TaxRate
	if taxRate.IsNegative() {
		taxRate = decimal.Zero
	}
	lockTTL := cfg.LockTTL
	if lockTTL <= 0 {
		lockTTL = 30 * time.Second
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:       repository{store: cfg.Store},
		locker:     locker,
		products:   cfg.Products,
		customers:  cfg.Customers,
		redeemer:   cfg.Redeemer,
		sales:      cfg.Sales,
		reconciler: cfg.Reconciler,
		taxRate:    taxRate,
		rules:      rules,
		table:      cfg.Denominations,
		lockTTL:    lockTTL,
		logger:     logger,
		now:        now,
	}, nil
}

// Denominations returns the configured face values, largest first.
func (s *Service) Denominations() []int64 {
	return s.table.Faces()
}

// Open starts an empty session for terminalID.
func (s *Service) Open(ctx context.Context, terminalID string) (View, error) {
	now := s.now().UTC()
	sess := &Session{
		ID:         uuid.NewString(),
		TerminalID: terminalID,
		Cart:       cart.New(s.taxRate),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.repo.save(ctx, sess); err != nil {
		return View{}, err
	}
	return newView(sess, s.table), nil
}

// Get returns the current view of a session.
func (s *Service) Get(ctx context.Context, id string) (View, error) {
	sess, err := s.repo.load(ctx, id)
	if err != nil {
		return View{}, err
	}
	return newView(sess, s.table), nil
}

// Cancel discards a session. Nothing is sent to the backend.
func (s *Service) Cancel(ctx context.Context, id string) error {
	return s.withSession(ctx, id, func(ctx context.Context, sess *Session) error {
		return s.repo.delete(ctx, sess.ID)
	})
}

// AddItem resolves productID and adds quantity units of it to the cart,
// merging with an existing line.
func (s *Service) AddItem(ctx context.Context, id string, productID int64, quantity int) (View, error) {
	product, err := s.products.Get(ctx, productID)
	if err != nil {
		return View{}, err
	}
	if !product.IsActive {
		return View{}, catalog.ErrProductNotFound
	}
	return s.mutate(ctx, id, func(sess *Session) error {
		return sess.Cart.AddQuantity(product, quantity)
	})
}

// SetQuantity overwrites a line quantity. Non-positive quantities remove the
// line and absent products are ignored.
func (s *Service) SetQuantity(ctx context.Context, id string, productID int64, quantity int) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		return sess.Cart.SetQuantity(productID, quantity)
	})
}

// RemoveItem deletes a line if present.
func (s *Service) RemoveItem(ctx context.Context, id string, productID int64) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Cart.RemoveItem(productID)
		return nil
	})
}

// ClearCart empties the cart and resets discounts and the points selection.
func (s *Service) ClearCart(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Redeemed != nil {
			return ErrRedemptionCommitted
		}
		sess.Cart.Clear()
		sess.Loyalty = loyalty.Selection{}
		return nil
	})
}

// SetLineDiscount sets a per-line discount.
func (s *Service) SetLineDiscount(ctx context.Context, id string, productID int64, amount money.Money) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if !sess.Cart.SetLineDiscount(productID, amount) {
			return ErrItemNotInCart
		}
		return nil
	})
}

// SetDiscount sets the cart-level manual discount.
func (s *Service) SetDiscount(ctx context.Context, id string, amount money.Money) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Cart.SetDiscount(amount)
		return nil
	})
}

// AttachCustomer loads the customer's loyalty summary onto the session. Any
// previous points selection is dropped.
func (s *Service) AttachCustomer(ctx context.Context, id string, customerID int64) (View, error) {
	summary, err := s.customers.LoyaltySummary(ctx, customerID)
	if err != nil {
		return View{}, err
	}
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Redeemed != nil {
			return ErrRedemptionCommitted
		}
		sess.Customer = &summary
		sess.Loyalty = loyalty.Selection{}
		return nil
	})
}

// DetachCustomer removes the customer and the points selection.
func (s *Service) DetachCustomer(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Redeemed != nil {
			return ErrRedemptionCommitted
		}
		sess.Customer = nil
		sess.Loyalty = loyalty.Selection{}
		return nil
	})
}

// SetPoints selects how many points to redeem. The value is clamped to what
// the customer holds and what the current total can absorb.
func (s *Service) SetPoints(ctx context.Context, id string, points int64) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Customer == nil {
			return ErrNoCustomer
		}
		if sess.Redeemed != nil && points != sess.Redeemed.Points {
			return ErrRedemptionCommitted
		}
		sess.Loyalty.PointsToUse = points
		return nil
	})
}

// OpenTender starts cash entry. Reopening keeps the entries already counted.
func (s *Service) OpenTender(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		if sess.Tender == nil {
			sess.Tender = tender.NewState()
		}
		return nil
	})
}

// CloseTender discards the counted cash.
func (s *Service) CloseTender(ctx context.Context, id string) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		sess.Tender = nil
		return nil
	})
}

// AddDenomination counts one note or coin of face value.
func (s *Service) AddDenomination(ctx context.Context, id string, face int64) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Tender == nil {
			return ErrTenderNotOpen
		}
		return sess.Tender.AddDenomination(s.table, face)
	})
}

// RemoveDenomination takes back one note or coin of face value.
func (s *Service) RemoveDenomination(ctx context.Context, id string, face int64) (View, error) {
	return s.mutate(ctx, id, func(sess *Session) error {
		if sess.Tender == nil {
			return ErrTenderNotOpen
		}
		sess.Tender.RemoveDenomination(face)
		return nil
	})
}

// Complete settles the tender and records the sale. Points are redeemed
// before the sale is created. A failed redemption leaves the session as it
// was; a failed sale after a redemption is handed to the reconciler.
func (s *Service) Complete(ctx context.Context, id, notes string) (Receipt, error) {
	var receipt Receipt
	err := s.withSession(ctx, id, func(ctx context.Context, sess *Session) error {
		if sess.Cart.IsEmpty() {
			return ErrEmptyCart
		}
		if sess.Tender == nil {
			return ErrTenderNotOpen
		}
		sess.refresh(s.rules)
		total := sess.Cart.Total()

		settlement, err := sess.Tender.Complete(s.table, total)
		obs.CountResult(obs.TenderAttemptsTotal, string(sess.Tender.Status(total)))
		if err != nil {
			return err
		}

		if sess.Redeemed != nil && (sess.Customer == nil || sess.Loyalty.PointsToUse == 0) {
			return ErrRedemptionCommitted
		}
		var redemption *RedemptionResult
		if sess.Customer != nil && sess.Loyalty.PointsToUse > 0 {
			res, err := s.redeem(ctx, sess)
			if err != nil {
				return err
			}
			redemption = &res
		}

		req := BuildSaleRequest(sess, notes)
		sale, err := s.sales.CreateSale(ctx, req)
		if err != nil {
			obs.CountResult(obs.SaleCreationTotal, "error")
			return s.saleFailed(ctx, sess, req, redemption, err)
		}
		obs.CountResult(obs.SaleCreationTotal, "ok")
		if sess.Redeemed != nil {
			s.resolveGap(ctx, sess, sale)
		}

		receipt = s.buildReceipt(sess, sale, settlement, redemption)
		obs.CountSale(receipt.Total.Decimal().InexactFloat64())
		s.logger.Info().
			Str("session_id", sess.ID).
			Str("terminal_id", sess.TerminalID).
			Int64("sale_id", sale.SaleID).
			Str("receipt_number", sale.ReceiptNumber).
			Str("total", receipt.Total.Amount()).
			Int64("points_redeemed", receipt.PointsRedeemed).
			Msg("sale_completed")

		sess.reset()
		sess.LastReceipt = &receipt
		sess.UpdatedAt = s.now().UTC()
		if err := s.repo.save(ctx, sess); err != nil {
			// The sale exists on the backend; report success so the operator
			// does not ring it up again.
			s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("save session after sale")
		}
		return nil
	})
	if err != nil {
		return Receipt{}, err
	}
	return receipt, nil
}

// redeem commits the selected points unless an earlier attempt already did.
func (s *Service) redeem(ctx context.Context, sess *Session) (RedemptionResult, error) {
	red := Redemption{
		CustomerID: sess.Customer.CustomerID,
		Points:     sess.Loyalty.PointsToUse,
		Amount:     sess.Loyalty.Discount,
	}
	if sess.Redeemed.matches(red) {
		return RedemptionResult{TransactionID: sess.Redeemed.TransactionID}, nil
	}
	if sess.Redeemed != nil {
		// The cart changed enough to re-clamp the committed points. Redeeming
		// the new amount would debit the customer twice.
		s.logger.Warn().
			Str("session_id", sess.ID).
			Int64("committed_points", sess.Redeemed.Points).
			Str("committed_amount", sess.Redeemed.Amount.Amount()).
			Int64("points", red.Points).
			Str("amount", red.Amount.Amount()).
			Msg("points selection no longer matches the committed redemption")
		return RedemptionResult{}, ErrRedemptionCommitted
	}
	res, err := s.redeemer.Redeem(ctx, red)
	if err != nil {
		obs.CountResult(obs.RedemptionTotal, "error")
		s.logger.Warn().Err(err).
			Str("session_id", sess.ID).
			Int64("customer_id", red.CustomerID).
			Int64("points", red.Points).
			Msg("loyalty redemption failed")
		return RedemptionResult{}, &RedemptionFailedError{CustomerID: red.CustomerID, Points: red.Points, Err: err}
	}
	obs.CountResult(obs.RedemptionTotal, "ok")
	return res, nil
}

func (s *Service) saleFailed(ctx context.Context, sess *Session, req SaleRequest, redemption *RedemptionResult, cause error) error {
	if redemption == nil {
		s.logger.Warn().Err(cause).Str("session_id", sess.ID).Msg("sale creation failed")
		return &SaleCreationFailedError{Err: cause}
	}

	sess.Redeemed = &RedeemedPoints{
		CustomerID:    sess.Customer.CustomerID,
		Points:        sess.Loyalty.PointsToUse,
		Amount:        sess.Loyalty.Discount,
		TransactionID: redemption.TransactionID,
	}
	sess.UpdatedAt = s.now().UTC()
	if err := s.repo.save(ctx, sess); err != nil {
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("save redemption marker")
	}

	obs.CountReconciliationGap()
	s.logger.Error().Err(cause).
		Str("session_id", sess.ID).
		Str("terminal_id", sess.TerminalID).
		Int64("customer_id", sess.Redeemed.CustomerID).
		Int64("points", sess.Redeemed.Points).
		Str("amount", sess.Redeemed.Amount.Amount()).
		Str("redemption_transaction_id", redemption.TransactionID).
		Msg("sale creation failed after loyalty redemption")

	if s.reconciler != nil {
		payload, _ := json.Marshal(req)
		gap := reconcile.Gap{
			SessionID:               sess.ID,
			TerminalID:              sess.TerminalID,
			CustomerID:              sess.Redeemed.CustomerID,
			Points:                  sess.Redeemed.Points,
			Amount:                  sess.Redeemed.Amount,
			RedemptionTransactionID: redemption.TransactionID,
			SaleError:               cause.Error(),
			Sale:                    payload,
			OccurredAt:              s.now().UTC(),
		}
		if err := s.reconciler.Enqueue(ctx, gap); err != nil {
			s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("enqueue reconciliation")
		}
	}
	return &SaleCreationFailedError{
		ReconciliationRequired:  true,
		RedemptionTransactionID: redemption.TransactionID,
		Err:                     cause,
	}
}

// resolveGap closes the reconciliation entry opened by an earlier failed
// attempt now that the sale exists.
func (s *Service) resolveGap(ctx context.Context, sess *Session, sale SaleResult) {
	obs.CountResult(obs.ReconciliationResolvedTotal, "resolved")
	s.logger.Info().
		Str("session_id", sess.ID).
		Str("redemption_transaction_id", sess.Redeemed.TransactionID).
		Int64("sale_id", sale.SaleID).
		Msg("reconciliation_resolved")
	if s.reconciler == nil {
		return
	}
	res := reconcile.Resolution{
		SessionID:               sess.ID,
		CustomerID:              sess.Redeemed.CustomerID,
		Points:                  sess.Redeemed.Points,
		RedemptionTransactionID: sess.Redeemed.TransactionID,
		SaleID:                  sale.SaleID,
		ReceiptNumber:           sale.ReceiptNumber,
		ResolvedAt:              s.now().UTC(),
	}
	if err := s.reconciler.Resolve(ctx, res); err != nil {
		obs.CountResult(obs.ReconciliationResolvedTotal, "error")
		s.logger.Error().Err(err).Str("session_id", sess.ID).Msg("enqueue reconciliation resolution")
	}
}

func (s *Service) buildReceipt(sess *Session, sale SaleResult, settlement tender.Settlement, redemption *RedemptionResult) Receipt {
	totals := sess.Cart.Totals
	r := Receipt{
		SaleID:          sale.SaleID,
		ReceiptNumber:   sale.ReceiptNumber,
		Subtotal:        totals.Subtotal,
		TaxAmount:       totals.Tax,
		DiscountAmount:  totals.Discount,
		Total:           totals.Total,
		AmountTendered:  settlement.Tendered,
		Change:          settlement.Change,
		Breakdown:       settlement.Breakdown,
		LoyaltyDiscount: totals.LoyaltyDiscount,
		CompletedAt:     s.now().UTC(),
	}
	if sess.Customer != nil {
		r.PointsRedeemed = sess.Loyalty.PointsToUse
		r.PointsEarned = s.rules.PointsEarned(totals.Total)
	}
	if redemption != nil {
		r.RedemptionTransactionID = redemption.TransactionID
	}
	return r
}

// mutate applies fn to the session under its lock, refreshes derived totals
// and saves the result.
func (s *Service) mutate(ctx context.Context, id string, fn func(*Session) error) (View, error) {
	var view View
	err := s.withSession(ctx, id, func(ctx context.Context, sess *Session) error {
		if err := fn(sess); err != nil {
			return err
		}
		sess.refresh(s.rules)
		sess.UpdatedAt = s.now().UTC()
		if err := s.repo.save(ctx, sess); err != nil {
			return err
		}
		view = newView(sess, s.table)
		return nil
	})
	return view, err
}

func (s *Service) withSession(ctx context.Context, id string, fn func(context.Context, *Session) error) error {
	return s.locker.WithLock(ctx, lockKey(id), s.lockTTL, func(ctx context.Context) error {
		sess, err := s.repo.load(ctx, id)
		if err != nil {
			return err
		}
		return fn(ctx, sess)
	})
}

func lockKey(id string) string {
	return "session:" + id
}

package payments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

// Gateway payment ids with this prefix skip the gateway round-trips; used by
// the demo checkout page.
const demoPaymentPrefix = "pay_demo_"

type Service struct {
	db        *gorm.DB
	gateway   Gateway
	logger    *slog.Logger
	keyID     string
	keySecret string
	currency  string
}

func NewService(db *gorm.DB, gw Gateway, keyID, keySecret, currency string) *Service {
	return &Service{
		db:        db,
		gateway:   gw,
		logger:    slog.Default(),
		keyID:     keyID,
		keySecret: keySecret,
		currency:  currency,
	}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

type CreateIntentInput struct {
	OrderID *string
	UserID  *string
	Amount  money.Amount
	Receipt string
	Notes   string
}

type CreateIntentResult struct {
	PaymentID      string
	GatewayOrderID string
	GatewayKeyID   string
	Amount         money.Amount
	Currency       string
	Status         Status
	Receipt        string
	OrderID        *string
}

// CreateIntent allocates a gateway payment intent and persists a CREATED
// payment row. With an order id the order and its owner are resolved; with
// only a user id this is a standalone wallet top-up intent. The gateway call
// happens before the local insert, so a failed call leaves no local row.
func (s *Service) CreateIntent(ctx context.Context, in CreateIntentInput) (CreateIntentResult, error) {
	if !in.Amount.IsPositive() {
		return CreateIntentResult{}, ErrInvalidAmount
	}

	var orderID, userID *string
	receipt := in.Receipt

	switch {
	case in.OrderID != nil:
		var ord orders.Order
		if err := s.db.WithContext(ctx).First(&ord, "id = ?", *in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return CreateIntentResult{}, orders.ErrNotFound
			}
			return CreateIntentResult{}, err
		}
		var cnt int64
		if err := s.db.WithContext(ctx).Model(&Payment{}).
			Where("order_id = ? AND status = ?", ord.ID, StatusSuccess).
			Count(&cnt).Error; err != nil {
			return CreateIntentResult{}, err
		}
		if cnt > 0 {
			return CreateIntentResult{}, ErrDuplicatePayment
		}
		orderID = &ord.ID
		uid := ord.UserID
		userID = &uid
		if receipt == "" {
			receipt = "receipt_" + ord.ID
		}
	case in.UserID != nil:
		userID = in.UserID
		if receipt == "" {
			receipt = "wallet_topup"
		}
	default:
		return CreateIntentResult{}, ErrOrderOrUserRequired
	}

	gatewayOrderID, err := s.gateway.CreateIntent(ctx, in.Amount, s.currency, receipt)
	if err != nil {
		return CreateIntentResult{}, err
	}

	now := time.Now()
	p := Payment{
		ID:             uuid.NewString(),
		OrderID:        orderID,
		UserID:         userID,
		AmountPaise:    in.Amount,
		Currency:       s.currency,
		Status:         StatusCreated,
		GatewayOrderID: gatewayOrderID,
		Receipt:        &receipt,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if in.Notes != "" {
		notes := in.Notes
		p.Notes = &notes
	}
	if err := s.db.WithContext(ctx).Create(&p).Error; err != nil {
		return CreateIntentResult{}, err
	}

	s.logger.InfoContext(ctx, "payment intent created",
		"payment_id", p.ID, "gateway_order_id", gatewayOrderID, "amount", in.Amount.Paise())

	return CreateIntentResult{
		PaymentID:      p.ID,
		GatewayOrderID: gatewayOrderID,
		GatewayKeyID:   s.keyID,
		Amount:         p.AmountPaise,
		Currency:       p.Currency,
		Status:         p.Status,
		Receipt:        receipt,
		OrderID:        orderID,
	}, nil
}

type VerifyInput struct {
	GatewayOrderID   string
	GatewayPaymentID string
	Signature        string
}

// Verify recomputes the checkout signature over "<intent>|<payment>" and, on
// match, marks the payment SUCCESS and promotes a linked PENDING order to
// CONFIRMED. A mismatch is recorded as FAILED before the error surfaces.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "gateway_order_id = ?", in.GatewayOrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}

	if !VerifyPaymentSignature(in.GatewayOrderID, in.GatewayPaymentID, in.Signature, s.keySecret) {
		// The failure must be durable even though the call errors out, so it
		// commits in its own transaction.
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return tx.WithContext(ctx).Model(&Payment{}).
				Where("id = ?", p.ID).
				Updates(map[string]any{
					"status":         StatusFailed,
					"failure_reason": "Invalid signature",
					"updated_at":     time.Now(),
				}).Error
		})
		if err != nil {
			return Payment{}, err
		}
		s.logger.WarnContext(ctx, "payment signature mismatch",
			"payment_id", p.ID, "gateway_payment_id", in.GatewayPaymentID)
		return Payment{}, ErrSignatureMismatch
	}

	// Best-effort method detail fetch, outside the row lock. A fetch failure
	// never fails verification.
	detail := s.fetchDetail(ctx, in.GatewayPaymentID)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&p, "id = ?", p.ID).Error; err != nil {
			return err
		}

		updates := map[string]any{
			"gateway_payment_id": in.GatewayPaymentID,
			"gateway_signature":  in.Signature,
			"status":             StatusSuccess,
			"failure_reason":     nil,
			"updated_at":         time.Now(),
		}
		applyDetail(updates, detail)

		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		if p.OrderID != nil {
			if err := orders.PromoteIfPending(ctx, tx, *p.OrderID); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).First(&p, "id = ?", p.ID).Error
	})
	if err != nil {
		return Payment{}, err
	}

	s.logger.InfoContext(ctx, "payment verified",
		"payment_id", p.ID, "gateway_payment_id", in.GatewayPaymentID)
	return p, nil
}

type RefundInput struct {
	PaymentID string
	Amount    money.Amount
	Reason    string
}

// ProcessRefund refunds part or all of a successful payment. Bound checks run
// before the gateway call; the cumulative refunded amount and the REFUNDED /
// PARTIAL_REFUND status rule are settled under the payment row lock. A fully
// refunded order-linked payment cancels its order in the same transaction.
func (s *Service) ProcessRefund(ctx context.Context, in RefundInput) (Payment, error) {
	if !in.Amount.IsPositive() {
		return Payment{}, ErrInvalidAmount
	}

	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", in.PaymentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}

	// Cheap local checks before paying gateway latency.
	if !p.CanBeRefunded() || p.GatewayPaymentID == nil {
		return Payment{}, ErrNotRefundable
	}
	if in.Amount > p.RefundablePaise() {
		return Payment{}, ErrRefundExceedsRemaining
	}

	notes := map[string]string{}
	if in.Reason != "" {
		notes["reason"] = in.Reason
	}
	refundID, err := s.gateway.CreateRefund(ctx, *p.GatewayPaymentID, in.Amount, notes)
	if err != nil {
		return Payment{}, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&p, "id = ?", p.ID).Error; err != nil {
			return err
		}
		// Re-validate under the lock; a concurrent refund may have won.
		if in.Amount > p.RefundablePaise() {
			return ErrRefundExceedsRemaining
		}

		now := time.Now()
		newRefunded := p.RefundedPaise + in.Amount
		newStatus := StatusPartialRefund
		if newRefunded == p.AmountPaise {
			newStatus = StatusRefunded
		}

		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{
				"refunded_paise": newRefunded,
				"status":         newStatus,
				"refund_id":      refundID,
				"refunded_at":    now,
				"updated_at":     now,
			}).Error; err != nil {
			return err
		}

		if newStatus == StatusRefunded && p.OrderID != nil {
			if err := orders.Cancel(ctx, tx, *p.OrderID); err != nil {
				return err
			}
		}
		return tx.WithContext(ctx).First(&p, "id = ?", p.ID).Error
	})
	if err != nil {
		return Payment{}, err
	}

	s.logger.InfoContext(ctx, "refund processed",
		"payment_id", p.ID, "refund_id", refundID, "amount", in.Amount.Paise(), "status", p.Status)
	return p, nil
}

// UpdatePaymentDetails reconciles a payment from its gateway identifiers:
// by gateway payment id, then by intent id (linking the payment id), then via
// a gateway fetch for non-demo payments. Idempotent beyond refreshing status
// and method detail.
func (s *Service) UpdatePaymentDetails(ctx context.Context, gatewayPaymentID, gatewayOrderID string) (Payment, error) {
	var p Payment
	found := false

	err := s.db.WithContext(ctx).First(&p, "gateway_payment_id = ?", gatewayPaymentID).Error
	switch {
	case err == nil:
		found = true
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return Payment{}, err
	}

	if !found && gatewayOrderID != "" {
		err := s.db.WithContext(ctx).First(&p, "gateway_order_id = ?", gatewayOrderID).Error
		switch {
		case err == nil:
			found = true
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return Payment{}, err
		}
	}

	if !found && !strings.HasPrefix(gatewayPaymentID, demoPaymentPrefix) {
		gp, err := s.gateway.FetchPayment(ctx, gatewayPaymentID)
		if err != nil {
			return Payment{}, err
		}
		if err := s.db.WithContext(ctx).First(&p, "gateway_order_id = ?", gp.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return Payment{}, fmt.Errorf("%w: no payment for gateway order %s", ErrPaymentNotFound, gp.OrderID)
			}
			return Payment{}, err
		}
		found = true
	}

	if !found {
		return Payment{}, ErrPaymentNotFound
	}

	updates := map[string]any{
		"gateway_payment_id": gatewayPaymentID,
		"updated_at":         time.Now(),
	}

	if strings.HasPrefix(gatewayPaymentID, demoPaymentPrefix) {
		updates["status"] = StatusSuccess
		updates["method"] = MethodWallet
	} else if gp, err := s.gateway.FetchPayment(ctx, gatewayPaymentID); err != nil {
		// Refresh is best-effort; the row keeps its prior status.
		s.logger.WarnContext(ctx, "gateway payment fetch failed",
			"gateway_payment_id", gatewayPaymentID, "err", err)
	} else {
		switch gp.Status {
		case "captured", "authorized":
			updates["status"] = StatusSuccess
		case "failed":
			updates["status"] = StatusFailed
		}
		applyDetail(updates, &gp)
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&p, "id = ?", p.ID).Error; err != nil {
			return err
		}
		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).First(&p, "id = ?", p.ID).Error
	})
	if err != nil {
		return Payment{}, err
	}
	return p, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	var p Payment
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Payment{}, ErrPaymentNotFound
		}
		return Payment{}, err
	}
	return p, nil
}

func (s *Service) ListByOrder(ctx context.Context, orderID string) ([]Payment, error) {
	var out []Payment
	err := s.db.WithContext(ctx).Find(&out, "order_id = ?", orderID).Error
	return out, err
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	var out []Payment
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out, "user_id = ?", userID).Error
	return out, err
}

func (s *Service) HasSuccessfulPayment(ctx context.Context, orderID string) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&Payment{}).
		Where("order_id = ? AND status = ?", orderID, StatusSuccess).
		Count(&cnt).Error
	return cnt > 0, err
}

// TotalPaidByUser sums amount minus refunded over the user's SUCCESS payments.
func (s *Service) TotalPaidByUser(ctx context.Context, userID string) (money.Amount, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(amount_paise - refunded_paise), 0)").
		Where("user_id = ? AND status = ?", userID, StatusSuccess).
		Scan(&total).Error
	return money.FromPaise(total), err
}

func (s *Service) fetchDetail(ctx context.Context, gatewayPaymentID string) *GatewayPayment {
	if strings.HasPrefix(gatewayPaymentID, demoPaymentPrefix) {
		return nil
	}
	gp, err := s.gateway.FetchPayment(ctx, gatewayPaymentID)
	if err != nil {
		s.logger.WarnContext(ctx, "gateway payment fetch failed",
			"gateway_payment_id", gatewayPaymentID, "err", err)
		return nil
	}
	return &gp
}

func applyDetail(updates map[string]any, gp *GatewayPayment) {
	if gp == nil {
		return
	}
	switch strings.ToLower(gp.Method) {
	case "card":
		updates["method"] = MethodCard
		if gp.CardLast4 != "" {
			updates["card_last4"] = gp.CardLast4
		}
		if gp.CardNetwork != "" {
			updates["card_network"] = gp.CardNetwork
		}
	case "upi":
		updates["method"] = MethodUpi
		if gp.UpiID != "" {
			updates["upi_id"] = gp.UpiID
		}
	case "netbanking":
		updates["method"] = MethodNetBanking
		if gp.Bank != "" {
			updates["bank"] = gp.Bank
		}
	case "wallet":
		updates["method"] = MethodWallet
		if gp.WalletName != "" {
			updates["wallet_name"] = gp.WalletName
		}
	case "emi":
		updates["method"] = MethodEmi
	}
}

// sqlite (the test dialect) has no FOR UPDATE; its writes serialize anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

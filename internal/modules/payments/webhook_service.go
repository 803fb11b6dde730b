package payments

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
)

// GatewayEvent stores every verified webhook delivery; the unique event id
// makes duplicate deliveries a no-op.
type GatewayEvent struct {
	ID          string         `gorm:"type:char(36);primaryKey"`
	EventID     string         `gorm:"type:varchar(128);not null;uniqueIndex:ux_gateway_events_event_id"`
	EventType   string         `gorm:"type:varchar(64);not null"`
	PayloadJSON datatypes.JSON `gorm:"type:json;not null"`

	ReceivedAt   time.Time  `gorm:"not null"`
	ProcessedAt  *time.Time
	ProcessError *string    `gorm:"type:varchar(255)"`
}

func (GatewayEvent) TableName() string { return "gateway_events" }

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID               string `json:"id"`
				OrderID          string `json:"order_id"`
				ErrorDescription string `json:"error_description"`
			} `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

// WebhookService reconciles gateway-pushed events. It trusts nothing: the
// signature is verified against the raw body, the shape is checked, and apply
// is idempotent under the per-payment row lock shared with Verify.
type WebhookService struct {
	db      *gorm.DB
	gateway Gateway
	secret  string
	logger  *slog.Logger
}

func NewWebhookService(db *gorm.DB, gw Gateway, secret string) *WebhookService {
	return &WebhookService{db: db, gateway: gw, secret: secret, logger: slog.Default()}
}

func (s *WebhookService) SetLogger(logger *slog.Logger) { s.logger = logger }

// Handle verifies and applies one webhook delivery. eventID may be empty; the
// body hash then stands in as the dedupe key.
func (s *WebhookService) Handle(ctx context.Context, rawBody []byte, signature, eventID string) error {
	// Security boundary: a bad signature mutates nothing and must alert.
	if !VerifyWebhookSignature(rawBody, signature, s.secret) {
		s.logger.ErrorContext(ctx, "webhook signature rejected", "event_id", eventID)
		return ErrInvalidWebhookSignature
	}

	var wp webhookPayload
	if err := json.Unmarshal(rawBody, &wp); err != nil {
		return ErrMalformedWebhook
	}
	if wp.Event == "" || wp.Payload.Payment.Entity.ID == "" || wp.Payload.Payment.Entity.OrderID == "" {
		return ErrMalformedWebhook
	}

	if eventID == "" {
		sum := sha256.Sum256(rawBody)
		eventID = hex.EncodeToString(sum[:])
	}

	// Detail fetch is slow and best-effort, so it stays outside the lock.
	var detail *GatewayPayment
	if wp.Event == "payment.captured" && !strings.HasPrefix(wp.Payload.Payment.Entity.ID, demoPaymentPrefix) && s.gateway != nil {
		if gp, err := s.gateway.FetchPayment(ctx, wp.Payload.Payment.Entity.ID); err == nil {
			detail = &gp
		} else {
			s.logger.WarnContext(ctx, "gateway payment fetch failed",
				"gateway_payment_id", wp.Payload.Payment.Entity.ID, "err", err)
		}
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		ge := GatewayEvent{
			ID:          uuid.NewString(),
			EventID:     eventID,
			EventType:   wp.Event,
			PayloadJSON: datatypes.JSON(rawBody),
			ReceivedAt:  now,
		}
		if err := tx.WithContext(ctx).Create(&ge).Error; err != nil {
			if isDup(err) {
				s.logger.InfoContext(ctx, "webhook event deduplicated", "event_id", eventID, "type", wp.Event)
				return nil
			}
			return err
		}

		applyErr := s.apply(ctx, tx, wp, detail)
		if applyErr != nil {
			msg := truncate(applyErr.Error(), 250)
			if err := tx.WithContext(ctx).Model(&GatewayEvent{}).
				Where("id = ?", ge.ID).
				Updates(map[string]any{"process_error": msg}).Error; err != nil {
				return err
			}
			s.logger.ErrorContext(ctx, "webhook event apply failed", "event_id", eventID, "type", wp.Event, "error", msg)
			return applyErr
		}

		processed := now
		if err := tx.WithContext(ctx).Model(&GatewayEvent{}).
			Where("id = ?", ge.ID).
			Updates(map[string]any{"processed_at": &processed}).Error; err != nil {
			return err
		}

		s.logger.InfoContext(ctx, "webhook event processed", "event_id", eventID, "type", wp.Event)
		return nil
	})
}

func (s *WebhookService) apply(ctx context.Context, tx *gorm.DB, wp webhookPayload, detail *GatewayPayment) error {
	entity := wp.Payload.Payment.Entity

	var p Payment
	if err := lockForUpdate(tx).First(&p, "gateway_order_id = ?", entity.OrderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Not a payment this system originated.
			return nil
		}
		return err
	}

	now := time.Now()
	switch wp.Event {
	case "payment.captured":
		if p.Status == StatusSuccess {
			return nil
		}
		updates := map[string]any{
			"status":             StatusSuccess,
			"gateway_payment_id": entity.ID,
			"failure_reason":     nil,
			"updated_at":         now,
		}
		applyDetail(updates, detail)
		if err := tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		if p.OrderID != nil {
			return orders.PromoteIfPending(ctx, tx, *p.OrderID)
		}
		return nil

	case "payment.failed":
		// A stale failed event never overwrites a SUCCESS set by the other path.
		if p.Status == StatusSuccess || p.Status == StatusFailed {
			return nil
		}
		return tx.WithContext(ctx).Model(&Payment{}).
			Where("id = ?", p.ID).
			Updates(map[string]any{
				"status":         StatusFailed,
				"failure_reason": entity.ErrorDescription,
				"updated_at":     now,
			}).Error

	default:
		// Unknown event types are acknowledged, not errors.
		return nil
	}
}

func isDup(err error) bool {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return true
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	// sqlite test dialect
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	return s[:n]
}

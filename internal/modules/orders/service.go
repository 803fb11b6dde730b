package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

func (s *Service) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	if err := s.db.WithContext(ctx).First(&o, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Order{}, ErrNotFound
		}
		return Order{}, err
	}
	return o, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]Order, error) {
	var out []Order
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out, "user_id = ?", userID).Error
	return out, err
}

type UpdateStatusInput struct {
	OrderID string
	Status  Status
	Otp     string // required when the order carries a delivery OTP and Status is DELIVERED
}

// UpdateStatus applies a status transition. OUT_FOR_DELIVERY generates and
// stores a 4-digit delivery OTP; DELIVERED requires the matching code when one
// was set and clears it once consumed. All other transitions are unconditional.
func (s *Service) UpdateStatus(ctx context.Context, in UpdateStatusInput) (Order, error) {
	if !in.Status.Valid() {
		return Order{}, ErrInvalidStatus
	}

	var o Order
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&o, "id = ?", in.OrderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		now := time.Now()
		updates := map[string]any{"status": in.Status, "updated_at": now}

		switch in.Status {
		case StatusOutForDelivery:
			otp, err := generateOtp()
			if err != nil {
				return err
			}
			updates["delivery_otp"] = otp
		case StatusDelivered:
			if o.DeliveryOtp != nil {
				if in.Otp != *o.DeliveryOtp {
					return ErrInvalidOtp
				}
				updates["delivery_otp"] = nil
			}
		}

		if err := tx.WithContext(ctx).Model(&Order{}).
			Where("id = ?", o.ID).
			Updates(updates).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).First(&o, "id = ?", o.ID).Error
	})
	if err != nil {
		return Order{}, err
	}
	return o, nil
}

// PromoteIfPending flips a PENDING order to CONFIRMED inside the caller's
// transaction. A no-op for any other status.
func PromoteIfPending(ctx context.Context, tx *gorm.DB, orderID string) error {
	return tx.WithContext(ctx).Model(&Order{}).
		Where("id = ? AND status = ?", orderID, StatusPending).
		Updates(map[string]any{"status": StatusConfirmed, "updated_at": time.Now()}).Error
}

// Cancel sets an order CANCELLED inside the caller's transaction.
func Cancel(ctx context.Context, tx *gorm.DB, orderID string) error {
	return tx.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID).
		Updates(map[string]any{"status": StatusCancelled, "updated_at": time.Now()}).Error
}

func generateOtp() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%04d", n.Int64()+1000), nil
}

// sqlite (the test dialect) has no FOR UPDATE; its writes serialize anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

package orders

import (
	"time"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type Status string

const (
	StatusPending        Status = "PENDING"
	StatusConfirmed      Status = "CONFIRMED"
	StatusPreparing      Status = "PREPARING"
	StatusReady          Status = "READY"
	StatusOutForDelivery Status = "OUT_FOR_DELIVERY"
	StatusDelivered      Status = "DELIVERED"
	StatusCancelled      Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusPreparing, StatusReady,
		StatusOutForDelivery, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID     string `gorm:"type:char(36);primaryKey"`
	UserID string `gorm:"type:char(36);not null;index:ix_orders_user_id"`

	TotalPaise money.Amount `gorm:"column:total_paise;not null"`
	Currency   string       `gorm:"type:char(3);not null"`
	Status     Status       `gorm:"type:varchar(32);not null"`

	// Train delivery context, informational only.
	TrainNumber     *string `gorm:"type:varchar(16)"`
	CoachSeat       *string `gorm:"type:varchar(16)"`
	DeliveryStation *string `gorm:"type:varchar(64)"`

	// Set when the order goes OUT_FOR_DELIVERY, consumed on DELIVERED.
	DeliveryOtp *string `gorm:"type:char(4)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

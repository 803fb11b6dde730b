package payments

import (
	"time"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type Status string

const (
	StatusCreated       Status = "CREATED"
	StatusPending       Status = "PENDING"
	StatusSuccess       Status = "SUCCESS"
	StatusFailed        Status = "FAILED"
	StatusRefunded      Status = "REFUNDED"
	StatusPartialRefund Status = "PARTIAL_REFUND"
)

type Method string

const (
	MethodCard       Method = "CARD"
	MethodUpi        Method = "UPI"
	MethodNetBanking Method = "NET_BANKING"
	MethodWallet     Method = "WALLET"
	MethodEmi        Method = "EMI"
)

// Payment is one row per gateway payment intent. OrderID and UserID are both
// nullable: a wallet top-up has no order, and its user may be attached only
// when the payment is reconciled.
type Payment struct {
	ID      string  `gorm:"type:char(36);primaryKey"`
	OrderID *string `gorm:"type:char(36);index:ix_payments_order_id"`
	UserID  *string `gorm:"type:char(36);index:ix_payments_user_id"`

	AmountPaise money.Amount `gorm:"column:amount_paise;not null"`
	Currency    string       `gorm:"type:char(3);not null"`
	Status      Status       `gorm:"type:varchar(32);not null"`
	Method      *Method      `gorm:"type:varchar(32)"`

	// Gateway identifiers. The intent id is allocated at creation; the payment
	// id arrives with verification or a webhook.
	GatewayOrderID   string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_payments_gateway_order_id"`
	GatewayPaymentID *string `gorm:"type:varchar(64);index:ix_payments_gateway_payment_id"`
	GatewaySignature *string `gorm:"type:varchar(128)"`

	// Method detail, captured opportunistically from gateway fetch.
	CardLast4   *string `gorm:"type:varchar(4)"`
	CardNetwork *string `gorm:"type:varchar(32)"`
	UpiID       *string `gorm:"type:varchar(64)"`
	Bank        *string `gorm:"type:varchar(64)"`
	WalletName  *string `gorm:"type:varchar(64)"`

	// Cumulative refund tracking; never decreases, never exceeds AmountPaise.
	RefundedPaise money.Amount `gorm:"column:refunded_paise;not null"`
	RefundID      *string      `gorm:"type:varchar(64)"`
	RefundedAt    *time.Time

	Receipt       *string `gorm:"type:varchar(128)"`
	Notes         *string `gorm:"type:text"`
	FailureReason *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Payment) TableName() string { return "payments" }

func (p Payment) IsSuccessful() bool { return p.Status == StatusSuccess }

func (p Payment) CanBeRefunded() bool {
	return (p.Status == StatusSuccess || p.Status == StatusPartialRefund) &&
		p.RefundedPaise < p.AmountPaise
}

func (p Payment) RefundablePaise() money.Amount {
	return p.AmountPaise - p.RefundedPaise
}

package wallet

import (
	"time"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type TransactionType string

const (
	TxnCredit TransactionType = "CREDIT"
	TxnDebit  TransactionType = "DEBIT"
	TxnRefund TransactionType = "REFUND"
)

type Wallet struct {
	ID           string       `gorm:"type:char(36);primaryKey"`
	UserID       string       `gorm:"type:char(36);not null;uniqueIndex:ux_wallets_user_id"`
	BalancePaise money.Amount `gorm:"column:balance_paise;not null"`
	Active       bool         `gorm:"not null"`

	// Optimistic fallback; the primary discipline is the per-row lock.
	Version int64 `gorm:"not null"`

	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Wallet) TableName() string { return "wallets" }

// WalletTransaction is append-only; rows are never updated or deleted.
type WalletTransaction struct {
	ID       string          `gorm:"type:char(36);primaryKey"`
	WalletID string          `gorm:"type:char(36);not null;index:ix_wallet_txns_wallet_id"`
	Type     TransactionType `gorm:"type:varchar(16);not null"`

	AmountPaise       money.Amount `gorm:"column:amount_paise;not null"`
	BalanceAfterPaise money.Amount `gorm:"column:balance_after_paise;not null"`

	Description    string  `gorm:"type:varchar(255);not null"`
	OrderID        *string `gorm:"type:char(36);index:ix_wallet_txns_order_id"`
	PaymentID      *string `gorm:"type:char(36)"`
	TransactionRef *string `gorm:"type:varchar(128);index:ix_wallet_txns_ref"`

	CreatedAt time.Time `gorm:"not null"`
}

func (WalletTransaction) TableName() string { return "wallet_transactions" }

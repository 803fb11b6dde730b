package wallet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

// Service owns the wallet ledger. Every balance mutation happens under the
// wallet row lock and writes its WalletTransaction in the same transaction,
// so the balance is always reconstructable from the transaction history.
type Service struct {
	db         *gorm.DB
	payments   *payments.Service
	logger     *slog.Logger
	maxBalance money.Amount
}

func NewService(db *gorm.DB, pay *payments.Service, maxBalance money.Amount) *Service {
	return &Service{db: db, payments: pay, logger: slog.Default(), maxBalance: maxBalance}
}

func (s *Service) SetLogger(logger *slog.Logger) { s.logger = logger }

// TxnRefs carries the optional references recorded on a ledger row.
type TxnRefs struct {
	OrderID        *string
	PaymentID      *string
	TransactionRef *string
}

// EnsureWallet returns the user's wallet, creating it on first access. Two
// concurrent creators converge on one row: the loser of the unique-constraint
// race re-reads the winner's row.
func (s *Service) EnsureWallet(ctx context.Context, userID string) (Wallet, error) {
	var w Wallet
	err := s.db.WithContext(ctx).First(&w, "user_id = ?", userID).Error
	if err == nil {
		return w, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Wallet{}, err
	}

	now := time.Now()
	w = Wallet{
		ID:        uuid.NewString(),
		UserID:    userID,
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.db.WithContext(ctx).Create(&w).Error; err != nil {
		if isDup(err) {
			var existing Wallet
			if rerr := s.db.WithContext(ctx).First(&existing, "user_id = ?", userID).Error; rerr != nil {
				return Wallet{}, rerr
			}
			return existing, nil
		}
		return Wallet{}, err
	}
	return w, nil
}

func (s *Service) Balance(ctx context.Context, userID string) (money.Amount, error) {
	w, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return 0, err
	}
	return w.BalancePaise, nil
}

func (s *Service) Exists(ctx context.Context, userID string) (bool, error) {
	var cnt int64
	err := s.db.WithContext(ctx).Model(&Wallet{}).Where("user_id = ?", userID).Count(&cnt).Error
	return cnt > 0, err
}

func (s *Service) TransactionHistory(ctx context.Context, userID string) ([]WalletTransaction, error) {
	w, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return nil, err
	}
	var out []WalletTransaction
	err = s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&out, "wallet_id = ?", w.ID).Error
	return out, err
}

// AddMoney opens a gateway payment intent for a wallet top-up. The cap is
// pre-checked here; ConfirmAddMoney re-checks it under the lock.
func (s *Service) AddMoney(ctx context.Context, userID string, amount money.Amount) (payments.CreateIntentResult, error) {
	if !amount.IsPositive() {
		return payments.CreateIntentResult{}, ErrInvalidAmount
	}
	w, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return payments.CreateIntentResult{}, err
	}
	if w.BalancePaise+amount > s.maxBalance {
		return payments.CreateIntentResult{}, ErrBalanceCapExceeded
	}

	return s.payments.CreateIntent(ctx, payments.CreateIntentInput{
		UserID:  &userID,
		Amount:  amount,
		Receipt: fmt.Sprintf("wallet_topup_%s_%d", w.ID, time.Now().UnixMilli()),
		Notes:   "Wallet top-up for user: " + userID,
	})
}

// ConfirmAddMoney credits a wallet once its top-up payment is reconciled as
// SUCCESS. The gateway round-trip happens before the wallet lock is taken;
// the gateway payment id doubles as the idempotency key, so retrying a
// confirmation never credits twice.
func (s *Service) ConfirmAddMoney(ctx context.Context, userID, gatewayPaymentID, gatewayOrderID string) (Wallet, error) {
	w, err := s.EnsureWallet(ctx, userID)
	if err != nil {
		return Wallet{}, err
	}

	p, err := s.payments.UpdatePaymentDetails(ctx, gatewayPaymentID, gatewayOrderID)
	if err != nil {
		return Wallet{}, err
	}
	if !p.IsSuccessful() {
		return Wallet{}, ErrPaymentNotSuccessful
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&w, "id = ?", w.ID).Error; err != nil {
			return err
		}

		var existing int64
		if err := tx.WithContext(ctx).Model(&WalletTransaction{}).
			Where("wallet_id = ? AND transaction_ref = ?", w.ID, gatewayPaymentID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return nil
		}

		ref := gatewayPaymentID
		if _, err := s.applyCredit(ctx, tx, &w, p.AmountPaise, TxnCredit, "Money added via payment gateway", TxnRefs{
			PaymentID:      &p.ID,
			TransactionRef: &ref,
		}); err != nil {
			return err
		}

		// Top-up payments may have been created before the user was known.
		if p.UserID == nil {
			return tx.WithContext(ctx).Model(&payments.Payment{}).
				Where("id = ?", p.ID).
				Updates(map[string]any{"user_id": userID, "updated_at": time.Now()}).Error
		}
		return nil
	})
	if err != nil {
		return Wallet{}, err
	}

	s.logger.InfoContext(ctx, "wallet top-up confirmed",
		"wallet_id", w.ID, "payment_id", p.ID, "amount", p.AmountPaise.Paise(), "balance", w.BalancePaise.Paise())
	return w, nil
}

// Credit appends a CREDIT or REFUND transaction (caller chooses the type) and
// raises the balance, enforcing the cap.
func (s *Service) Credit(ctx context.Context, walletID string, amount money.Amount, txnType TransactionType, description string, refs TxnRefs) (WalletTransaction, error) {
	if txnType != TxnCredit && txnType != TxnRefund {
		txnType = TxnCredit
	}
	var txn WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.lockWallet(ctx, tx, "id = ?", walletID)
		if err != nil {
			return err
		}
		txn, err = s.applyCredit(ctx, tx, &w, amount, txnType, description, refs)
		return err
	})
	if err != nil {
		return WalletTransaction{}, err
	}
	return txn, nil
}

// Debit appends a DEBIT transaction and lowers the balance; it never succeeds
// when the amount exceeds the balance.
func (s *Service) Debit(ctx context.Context, walletID string, amount money.Amount, description string, refs TxnRefs) (WalletTransaction, error) {
	var txn WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.lockWallet(ctx, tx, "id = ?", walletID)
		if err != nil {
			return err
		}
		txn, err = s.applyDebit(ctx, tx, &w, amount, description, refs)
		return err
	})
	if err != nil {
		return WalletTransaction{}, err
	}
	return txn, nil
}

// PayFromWallet debits the order amount and, only when the debit lands,
// promotes a PENDING order to CONFIRMED — both inside one transaction.
func (s *Service) PayFromWallet(ctx context.Context, userID, orderID string, amount money.Amount) (WalletTransaction, error) {
	var txn WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.lockWallet(ctx, tx, "user_id = ?", userID)
		if err != nil {
			return err
		}

		var ord orders.Order
		if err := tx.WithContext(ctx).First(&ord, "id = ?", orderID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return orders.ErrNotFound
			}
			return err
		}
		if ord.UserID != userID {
			return ErrOrderNotOwned
		}

		ref := "ORDER_" + orderID
		txn, err = s.applyDebit(ctx, tx, &w, amount, "Payment for order #"+orderID, TxnRefs{
			OrderID:        &ord.ID,
			TransactionRef: &ref,
		})
		if err != nil {
			return err
		}

		return orders.PromoteIfPending(ctx, tx, ord.ID)
	})
	if err != nil {
		return WalletTransaction{}, err
	}

	s.logger.InfoContext(ctx, "order paid from wallet",
		"order_id", orderID, "amount", amount.Paise(), "balance_after", txn.BalanceAfterPaise.Paise())
	return txn, nil
}

// RefundToWallet credits a refund under the same lock discipline as Credit.
func (s *Service) RefundToWallet(ctx context.Context, userID string, amount money.Amount, description string, orderID *string) (WalletTransaction, error) {
	if description == "" {
		description = "Refund to wallet"
	}
	var txn WalletTransaction
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		w, err := s.lockWallet(ctx, tx, "user_id = ?", userID)
		if err != nil {
			return err
		}
		if orderID != nil {
			var cnt int64
			if err := tx.WithContext(ctx).Model(&orders.Order{}).Where("id = ?", *orderID).Count(&cnt).Error; err != nil {
				return err
			}
			if cnt == 0 {
				return orders.ErrNotFound
			}
		}
		ref := fmt.Sprintf("REFUND_%d", time.Now().UnixMilli())
		txn, err = s.applyCredit(ctx, tx, &w, amount, TxnRefund, description, TxnRefs{
			OrderID:        orderID,
			TransactionRef: &ref,
		})
		return err
	})
	if err != nil {
		return WalletTransaction{}, err
	}
	return txn, nil
}

func (s *Service) lockWallet(ctx context.Context, tx *gorm.DB, query string, arg any) (Wallet, error) {
	var w Wallet
	if err := lockForUpdate(tx).First(&w, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Wallet{}, ErrWalletNotFound
		}
		return Wallet{}, err
	}
	return w, nil
}

func (s *Service) applyCredit(ctx context.Context, tx *gorm.DB, w *Wallet, amount money.Amount, txnType TransactionType, description string, refs TxnRefs) (WalletTransaction, error) {
	if !amount.IsPositive() {
		return WalletTransaction{}, ErrInvalidAmount
	}
	if w.BalancePaise+amount > s.maxBalance {
		return WalletTransaction{}, ErrBalanceCapExceeded
	}
	return s.writeMutation(ctx, tx, w, w.BalancePaise+amount, txnType, amount, description, refs)
}

func (s *Service) applyDebit(ctx context.Context, tx *gorm.DB, w *Wallet, amount money.Amount, description string, refs TxnRefs) (WalletTransaction, error) {
	if !amount.IsPositive() {
		return WalletTransaction{}, ErrInvalidAmount
	}
	if amount > w.BalancePaise {
		return WalletTransaction{}, ErrInsufficientBalance
	}
	return s.writeMutation(ctx, tx, w, w.BalancePaise-amount, TxnDebit, amount, description, refs)
}

func (s *Service) writeMutation(ctx context.Context, tx *gorm.DB, w *Wallet, newBalance money.Amount, txnType TransactionType, amount money.Amount, description string, refs TxnRefs) (WalletTransaction, error) {
	now := time.Now()
	if err := tx.WithContext(ctx).Model(&Wallet{}).
		Where("id = ?", w.ID).
		Updates(map[string]any{
			"balance_paise": newBalance,
			"version":       w.Version + 1,
			"updated_at":    now,
		}).Error; err != nil {
		return WalletTransaction{}, err
	}
	w.BalancePaise = newBalance
	w.Version++

	txn := WalletTransaction{
		ID:                uuid.NewString(),
		WalletID:          w.ID,
		Type:              txnType,
		AmountPaise:       amount,
		BalanceAfterPaise: newBalance,
		Description:       description,
		OrderID:           refs.OrderID,
		PaymentID:         refs.PaymentID,
		TransactionRef:    refs.TransactionRef,
		CreatedAt:         now,
	}
	if err := tx.WithContext(ctx).Create(&txn).Error; err != nil {
		return WalletTransaction{}, err
	}
	return txn, nil
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

// sqlite (the test dialect) has no FOR UPDATE; its writes serialize anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

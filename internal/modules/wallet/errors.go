package wallet

import "errors"

var (
	ErrInvalidAmount        = errors.New("amount must be positive")
	ErrInsufficientBalance  = errors.New("insufficient wallet balance")
	ErrBalanceCapExceeded   = errors.New("wallet balance cap exceeded")
	ErrWalletNotFound       = errors.New("wallet not found")
	ErrOrderNotOwned        = errors.New("order does not belong to this user")
	ErrPaymentNotSuccessful = errors.New("payment not successful")
)

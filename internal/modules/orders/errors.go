package orders

import "errors"

var (
	ErrNotFound      = errors.New("order not found")
	ErrInvalidStatus = errors.New("invalid order status")
	ErrInvalidOtp    = errors.New("invalid delivery otp")
)

package payments

import "errors"

var (
	ErrInvalidAmount           = errors.New("amount must be positive")
	ErrOrderOrUserRequired     = errors.New("either an order id or a user id is required")
	ErrDuplicatePayment        = errors.New("order already has a successful payment")
	ErrPaymentNotFound         = errors.New("payment not found")
	ErrSignatureMismatch       = errors.New("payment signature verification failed")
	ErrNotRefundable           = errors.New("payment cannot be refunded")
	ErrRefundExceedsRemaining  = errors.New("refund amount exceeds refundable amount")
	ErrInvalidWebhookSignature = errors.New("invalid webhook signature")
	ErrMalformedWebhook        = errors.New("malformed webhook payload")
	ErrGatewayUnavailable      = errors.New("payment gateway unavailable")
)

package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/middleware"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/users"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/wallet"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/apperr"
)

// fail maps module sentinel errors onto stable apperr kinds so callers can
// branch on "kind" without string matching.
func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, wallet.ErrInvalidAmount),
		errors.Is(err, payments.ErrInvalidAmount),
		errors.Is(err, payments.ErrOrderOrUserRequired),
		errors.Is(err, orders.ErrInvalidStatus),
		errors.Is(err, payments.ErrMalformedWebhook):
		middleware.Fail(c, apperr.InvalidErr(err.Error(), nil))

	case errors.Is(err, wallet.ErrInsufficientBalance),
		errors.Is(err, wallet.ErrBalanceCapExceeded),
		errors.Is(err, payments.ErrDuplicatePayment),
		errors.Is(err, payments.ErrNotRefundable),
		errors.Is(err, payments.ErrRefundExceedsRemaining),
		errors.Is(err, wallet.ErrPaymentNotSuccessful):
		middleware.Fail(c, apperr.ConflictErr(err.Error()))

	case errors.Is(err, payments.ErrSignatureMismatch),
		errors.Is(err, payments.ErrInvalidWebhookSignature),
		errors.Is(err, orders.ErrInvalidOtp):
		middleware.Fail(c, apperr.UnauthorizedErr(err.Error()))

	case errors.Is(err, wallet.ErrOrderNotOwned):
		middleware.Fail(c, apperr.ForbiddenErr(err.Error()))

	case errors.Is(err, payments.ErrPaymentNotFound),
		errors.Is(err, orders.ErrNotFound),
		errors.Is(err, users.ErrNotFound),
		errors.Is(err, wallet.ErrWalletNotFound):
		middleware.Fail(c, apperr.NotFoundErr(err.Error()))

	case errors.Is(err, payments.ErrGatewayUnavailable):
		middleware.Fail(c, apperr.UnavailableErr("Payment gateway unavailable.", err))

	default:
		middleware.Fail(c, apperr.Wrap(err))
	}
}

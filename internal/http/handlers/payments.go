package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/middleware"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/apperr"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type PaymentsHandler struct {
	Svc *payments.Service
}

func NewPaymentsHandler(svc *payments.Service) *PaymentsHandler {
	return &PaymentsHandler{Svc: svc}
}

type createIntentRequest struct {
	OrderID *string `json:"order_id"`
	UserID  *string `json:"user_id"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
	Receipt string  `json:"receipt"`
	Notes   string  `json:"notes"`
}

// POST /api/payments/create-order
func (h *PaymentsHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	res, err := h.Svc.CreateIntent(c.Request.Context(), payments.CreateIntentInput{
		OrderID: req.OrderID,
		UserID:  req.UserID,
		Amount:  money.FromRupees(req.Amount),
		Receipt: req.Receipt,
		Notes:   req.Notes,
	})
	if err != nil {
		fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_id":        res.PaymentID,
		"razorpay_order_id": res.GatewayOrderID,
		"razorpay_key_id":   res.GatewayKeyID,
		"amount":            res.Amount.Rupees(),
		"currency":          res.Currency,
		"status":            res.Status,
		"receipt":           res.Receipt,
		"order_id":          res.OrderID,
	})
}

type verifyRequest struct {
	RazorpayOrderID   string `json:"razorpay_order_id" binding:"required"`
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpaySignature string `json:"razorpay_signature" binding:"required"`
}

// POST /api/payments/verify
func (h *PaymentsHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	p, err := h.Svc.Verify(c.Request.Context(), payments.VerifyInput{
		GatewayOrderID:   req.RazorpayOrderID,
		GatewayPaymentID: req.RazorpayPaymentID,
		Signature:        req.RazorpaySignature,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentView(p))
}

type refundRequest struct {
	PaymentID string  `json:"payment_id" binding:"required"`
	Amount    float64 `json:"amount" binding:"required,gt=0"`
	Reason    string  `json:"reason"`
}

// POST /api/payments/refund
func (h *PaymentsHandler) Refund(c *gin.Context) {
	var req refundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	p, err := h.Svc.ProcessRefund(c.Request.Context(), payments.RefundInput{
		PaymentID: req.PaymentID,
		Amount:    money.FromRupees(req.Amount),
		Reason:    req.Reason,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentView(p))
}

// GET /api/payments/:id
func (h *PaymentsHandler) Get(c *gin.Context) {
	p, err := h.Svc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentView(p))
}

// GET /api/payments/order/:orderId
func (h *PaymentsHandler) ListByOrder(c *gin.Context) {
	list, err := h.Svc.ListByOrder(c.Request.Context(), c.Param("orderId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentViews(list))
}

// GET /api/payments/user/:userId
func (h *PaymentsHandler) ListByUser(c *gin.Context) {
	list, err := h.Svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentViews(list))
}

// GET /api/payments/user/:userId/total-paid
func (h *PaymentsHandler) TotalPaid(c *gin.Context) {
	total, err := h.Svc.TotalPaidByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("userId"), "total_paid": total.Rupees()})
}

type updateDetailsRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
}

// POST /api/payments/update-details
func (h *PaymentsHandler) UpdateDetails(c *gin.Context) {
	var req updateDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	p, err := h.Svc.UpdatePaymentDetails(c.Request.Context(), req.RazorpayPaymentID, req.RazorpayOrderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, paymentView(p))
}

func paymentView(p payments.Payment) gin.H {
	return gin.H{
		"id":                  p.ID,
		"order_id":            p.OrderID,
		"user_id":             p.UserID,
		"amount":              p.AmountPaise.Rupees(),
		"currency":            p.Currency,
		"status":              p.Status,
		"method":              p.Method,
		"razorpay_order_id":   p.GatewayOrderID,
		"razorpay_payment_id": p.GatewayPaymentID,
		"refunded_amount":     p.RefundedPaise.Rupees(),
		"refund_id":           p.RefundID,
		"refunded_at":         p.RefundedAt,
		"receipt":             p.Receipt,
		"failure_reason":      p.FailureReason,
		"created_at":          p.CreatedAt,
	}
}

func paymentViews(list []payments.Payment) []gin.H {
	out := make([]gin.H, len(list))
	for i, p := range list {
		out[i] = paymentView(p)
	}
	return out
}

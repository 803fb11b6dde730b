package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/middleware"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/users"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/wallet"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/apperr"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

type WalletHandler struct {
	Svc   *wallet.Service
	Users *users.Repo
}

func NewWalletHandler(svc *wallet.Service, usersRepo *users.Repo) *WalletHandler {
	return &WalletHandler{Svc: svc, Users: usersRepo}
}

// POST /api/wallet/:userId/create
func (h *WalletHandler) Create(c *gin.Context) {
	// Wallets belong to registered users only; the other endpoints create
	// lazily because their user ids already passed through here or an order.
	if _, err := h.Users.FindByID(c.Request.Context(), c.Param("userId")); err != nil {
		fail(c, err)
		return
	}
	w, err := h.Svc.EnsureWallet(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, walletView(w))
}

// GET /api/wallet/:userId/balance
func (h *WalletHandler) Balance(c *gin.Context) {
	bal, err := h.Svc.Balance(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": c.Param("userId"), "balance": bal.Rupees()})
}

type addMoneyRequest struct {
	Amount float64 `json:"amount" binding:"required,gt=0"`
}

// POST /api/wallet/:userId/add-money
func (h *WalletHandler) AddMoney(c *gin.Context) {
	var req addMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	res, err := h.Svc.AddMoney(c.Request.Context(), c.Param("userId"), money.FromRupees(req.Amount))
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
		"receipt":           res.Receipt,
	})
}

type confirmAddMoneyRequest struct {
	RazorpayPaymentID string `json:"razorpay_payment_id" binding:"required"`
	RazorpayOrderID   string `json:"razorpay_order_id"`
}

// POST /api/wallet/:userId/confirm
func (h *WalletHandler) ConfirmAddMoney(c *gin.Context) {
	var req confirmAddMoneyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	w, err := h.Svc.ConfirmAddMoney(c.Request.Context(), c.Param("userId"), req.RazorpayPaymentID, req.RazorpayOrderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, walletView(w))
}

type walletPayRequest struct {
	OrderID string  `json:"order_id" binding:"required"`
	Amount  float64 `json:"amount" binding:"required,gt=0"`
}

// POST /api/wallet/:userId/pay
func (h *WalletHandler) Pay(c *gin.Context) {
	var req walletPayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	txn, err := h.Svc.PayFromWallet(c.Request.Context(), c.Param("userId"), req.OrderID, money.FromRupees(req.Amount))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txnView(txn))
}

type walletRefundRequest struct {
	Amount      float64 `json:"amount" binding:"required,gt=0"`
	Description string  `json:"description"`
	OrderID     *string `json:"order_id"`
}

// POST /api/wallet/:userId/refund
func (h *WalletHandler) Refund(c *gin.Context) {
	var req walletRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	txn, err := h.Svc.RefundToWallet(c.Request.Context(), c.Param("userId"), money.FromRupees(req.Amount), req.Description, req.OrderID)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, txnView(txn))
}

// GET /api/wallet/:userId/transactions
func (h *WalletHandler) History(c *gin.Context) {
	txns, err := h.Svc.TransactionHistory(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, len(txns))
	for i, t := range txns {
		out[i] = txnView(t)
	}
	c.JSON(http.StatusOK, out)
}

func walletView(w wallet.Wallet) gin.H {
	return gin.H{
		"id":      w.ID,
		"user_id": w.UserID,
		"balance": w.BalancePaise.Rupees(),
		"active":  w.Active,
	}
}

func txnView(t wallet.WalletTransaction) gin.H {
	return gin.H{
		"id":              t.ID,
		"wallet_id":       t.WalletID,
		"type":            t.Type,
		"amount":          t.AmountPaise.Rupees(),
		"balance_after":   t.BalanceAfterPaise.Rupees(),
		"description":     t.Description,
		"order_id":        t.OrderID,
		"payment_id":      t.PaymentID,
		"transaction_ref": t.TransactionRef,
		"created_at":      t.CreatedAt,
	}
}

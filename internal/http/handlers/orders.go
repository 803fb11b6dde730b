package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/middleware"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/apperr"
)

type OrdersHandler struct {
	Svc *orders.Service
}

func NewOrdersHandler(svc *orders.Service) *OrdersHandler {
	return &OrdersHandler{Svc: svc}
}

// GET /api/orders/:id
func (h *OrdersHandler) Get(c *gin.Context) {
	o, err := h.Svc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(o))
}

// GET /api/orders/user/:userId
func (h *OrdersHandler) ListByUser(c *gin.Context) {
	list, err := h.Svc.ListByUser(c.Request.Context(), c.Param("userId"))
	if err != nil {
		fail(c, err)
		return
	}
	out := make([]gin.H, len(list))
	for i, o := range list {
		out[i] = orderView(o)
	}
	c.JSON(http.StatusOK, out)
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Otp    string `json:"otp"`
}

// PATCH /api/orders/:id/status
func (h *OrdersHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid request body.", nil))
		return
	}

	o, err := h.Svc.UpdateStatus(c.Request.Context(), orders.UpdateStatusInput{
		OrderID: c.Param("id"),
		Status:  orders.Status(req.Status),
		Otp:     req.Otp,
	})
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, orderView(o))
}

func orderView(o orders.Order) gin.H {
	v := gin.H{
		"id":               o.ID,
		"user_id":          o.UserID,
		"total":            o.TotalPaise.Rupees(),
		"currency":         o.Currency,
		"status":           o.Status,
		"train_number":     o.TrainNumber,
		"coach_seat":       o.CoachSeat,
		"delivery_station": o.DeliveryStation,
		"created_at":       o.CreatedAt,
	}
	// The OTP itself is only ever disclosed on the OUT_FOR_DELIVERY response.
	if o.Status == orders.StatusOutForDelivery && o.DeliveryOtp != nil {
		v["delivery_otp"] = *o.DeliveryOtp
	}
	return v
}

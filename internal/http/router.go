package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/config"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/handlers"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/http/middleware"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/orders"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/payments"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/users"
	"github.com/ujjwal0117/CDAC-PROJECT/internal/modules/wallet"
)

// NewRouter wires the settlement core behind its HTTP surface. Auth and the
// catalog endpoints live outside this service.
func NewRouter(logger *slog.Logger, db *gorm.DB, cfg config.Config) *gin.Engine {
	gateway := payments.NewRazorpayGateway(cfg.GatewayBaseURL, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.GatewayTimeout)

	paySvc := payments.NewService(db, gateway, cfg.GatewayKeyID, cfg.GatewayKeySecret, cfg.Currency)
	paySvc.SetLogger(logger)

	webhookSvc := payments.NewWebhookService(db, gateway, cfg.WebhookSecret)
	webhookSvc.SetLogger(logger)

	walletSvc := wallet.NewService(db, paySvc, cfg.MaxWalletBalance)
	walletSvc.SetLogger(logger)

	orderSvc := orders.NewService(db)
	userRepo := users.NewRepo(db)

	r := gin.New()
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.ErrorHandler(logger))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})

	ph := handlers.NewPaymentsHandler(paySvc)
	wh := handlers.NewWalletHandler(walletSvc, userRepo)
	oh := handlers.NewOrdersHandler(orderSvc)
	wb := handlers.NewWebhookHandler(logger, webhookSvc)

	api := r.Group("/api")
	{
		pay := api.Group("/payments")
		{
			pay.POST("/create-order", ph.CreateIntent)
			pay.POST("/verify", ph.Verify)
			pay.POST("/refund", ph.Refund)
			pay.POST("/update-details", ph.UpdateDetails)
			pay.GET("/:id", ph.Get)
			pay.GET("/order/:orderId", ph.ListByOrder)
			pay.GET("/user/:userId", ph.ListByUser)
			pay.GET("/user/:userId/total-paid", ph.TotalPaid)
		}

		wal := api.Group("/wallet/:userId")
		{
			wal.POST("/create", wh.Create)
			wal.GET("/balance", wh.Balance)
			wal.POST("/add-money", wh.AddMoney)
			wal.POST("/confirm", wh.ConfirmAddMoney)
			wal.POST("/pay", wh.Pay)
			wal.POST("/refund", wh.Refund)
			wal.GET("/transactions", wh.History)
		}

		ord := api.Group("/orders")
		{
			ord.GET("/:id", oh.Get)
			ord.GET("/user/:userId", oh.ListByUser)
			ord.PATCH("/:id/status", oh.UpdateStatus)
		}
	}

	r.POST("/webhooks/razorpay", wb.Handle)

	return r
}

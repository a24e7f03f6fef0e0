package http

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"

	"astrovani.com/app/internal/http/handlers"
	"astrovani.com/app/internal/http/middleware"
)

// NewRouter assembles the middleware chain and the /api/payment routes.
// Order matters: request id first so every log line carries it, error
// handler innermost so it sees handler errors before the access log
// fires.
func NewRouter(logger *slog.Logger, ph *handlers.PaymentHandler, wh *handlers.WebhookHandler, corsOrigins []string) *gin.Engine {
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logger(logger),
		middleware.Recovery(logger),
		middleware.CORS(corsOrigins),
		middleware.ErrorHandler(logger),
	)

	pay := r.Group("/api/payment")
	{
		pay.POST("/create-order", middleware.RateLimit(5, time.Minute), ph.CreateOrder)
		pay.POST("/webhook", wh.Receive)

		statusLimited := pay.Group("", middleware.RateLimit(3, 5*time.Minute))
		statusLimited.GET("/status/:orderId", ph.Status)
		statusLimited.GET("/email-status/:orderId", ph.EmailStatus)

		pay.GET("/health", ph.Health)
	}

	return r
}

package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/gin-gonic/gin"

	"astrovani.com/app/internal/http/middleware"
	"astrovani.com/app/internal/http/validation"
	"astrovani.com/app/internal/modules/gateway"
	"astrovani.com/app/internal/modules/notify"
	"astrovani.com/app/internal/modules/orders"
	"astrovani.com/app/internal/modules/payments"
	"astrovani.com/app/internal/shared/apperr"
)

// Obvious injection probes are rejected before the order service runs.
// Everything else is handled by parameterized queries and JSON encoding;
// this is only an early cutoff for scanner noise.
var suspiciousRes = []*regexp.Regexp{
	regexp.MustCompile(`(?i)<script`),
	regexp.MustCompile(`(?i)javascript:`),
	regexp.MustCompile(`(?i)on\w+\s*=`),
	regexp.MustCompile(`(?i)\b(union|select|insert|drop|delete|update)\b.*\b(from|into|table|where)\b`),
}

type PaymentHandler struct {
	orders      *orders.Service
	gateway     gateway.API
	dispatcher  *notify.Dispatcher
	poller      *payments.Poller
	logger      *slog.Logger
	environment string
}

func NewPaymentHandler(svc *orders.Service, gw gateway.API, d *notify.Dispatcher, p *payments.Poller, logger *slog.Logger, environment string) *PaymentHandler {
	return &PaymentHandler{
		orders:      svc,
		gateway:     gw,
		dispatcher:  d,
		poller:      p,
		logger:      logger,
		environment: environment,
	}
}

type createOrderRequest struct {
	Amount          float64 `json:"amount"`
	CustomerName    string  `json:"customerName"`
	CustomerEmail   string  `json:"customerEmail"`
	CustomerPhone   string  `json:"customerPhone"`
	DateOfBirth     string  `json:"dateOfBirth"`
	WhatsappNumber  string  `json:"whatsappNumber"`
	ReasonForReport string  `json:"reasonForReport"`
	ServiceType     string  `json:"serviceType"`
}

func (h *PaymentHandler) CreateOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Request body is invalid.", validation.FromBindError(err, &req)))
		return
	}

	for _, s := range []string{req.CustomerName, req.CustomerEmail, req.ReasonForReport, req.ServiceType} {
		for _, re := range suspiciousRes {
			if re.MatchString(s) {
				h.logger.WarnContext(c.Request.Context(), "suspicious input rejected",
					"client_ip", c.ClientIP(), "request_id", middleware.GetRequestID(c))
				middleware.Fail(c, apperr.InvalidErr("Invalid characters in input.", nil))
				return
			}
		}
	}

	res, err := h.orders.CreateOrder(c.Request.Context(), orders.CreateOrderInput{
		Amount:          req.Amount,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		DateOfBirth:     req.DateOfBirth,
		WhatsappNumber:  req.WhatsappNumber,
		ReasonForReport: req.ReasonForReport,
		ServiceType:     req.ServiceType,
	})
	if err != nil {
		h.failCreate(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"orderId":          res.OrderID,
			"paymentSessionId": res.PaymentSessionID,
			"orderAmount":      res.OrderAmount,
			"orderCurrency":    res.OrderCurrency,
			"orderStatus":      res.OrderStatus,
		},
	})
}

func (h *PaymentHandler) failCreate(c *gin.Context, err error) {
	var ve *orders.ValidationError
	if errors.As(err, &ve) {
		middleware.Fail(c, apperr.InvalidErr(ve.Message, map[string]string{ve.Field: ve.Message}))
		return
	}

	var pe *orders.PriceMismatchError
	if errors.As(err, &pe) {
		// Possible tampering; keep the client IP with the record.
		h.logger.WarnContext(c.Request.Context(), "order amount does not match catalog price",
			"service_type", pe.ServiceType, "amount", pe.Amount,
			"client_ip", c.ClientIP(), "request_id", middleware.GetRequestID(c))
		middleware.Fail(c, apperr.InvalidErr("Amount does not match the price for the selected service.", nil))
		return
	}

	var ge *gateway.APIError
	if errors.As(err, &ge) {
		middleware.Fail(c, apperr.WrapMsg("Payment gateway error: "+ge.Message, err))
		return
	}

	middleware.Fail(c, apperr.Wrap(err))
}

// Status reports the payment attempts for an order. An empty list is a
// normal answer while the customer is still on the gateway's checkout
// page. ?wait=1 runs the bounded server-side poll instead of a single
// fetch.
func (h *PaymentHandler) Status(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		middleware.Fail(c, apperr.InvalidErr("Order ID is required.", nil))
		return
	}

	if c.Query("wait") == "1" {
		res, err := h.poller.Run(c.Request.Context(), orderID)
		if err != nil {
			middleware.Fail(c, apperr.WrapMsg("Unable to verify payment status. Please try again or contact support.", err))
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"state":   string(res.State),
			"data":    paymentList(res.Payments),
		})
		return
	}

	pays, err := h.gateway.FetchPayments(c.Request.Context(), orderID)
	if err != nil {
		middleware.Fail(c, apperr.WrapMsg("Unable to verify payment status. Please try again or contact support.", err))
		return
	}

	state := payments.StatePending
	if len(pays) > 0 {
		state = payments.Classify(pays[0].PaymentStatus)
	}
	if state == payments.StateSuccess && h.dispatcher != nil {
		if _, err := h.dispatcher.SendConfirmationOnce(c.Request.Context(), orderID, pays[0]); err != nil {
			h.logger.ErrorContext(c.Request.Context(), "confirmation email failed",
				"order_id", orderID, "err", err)
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"state":   string(state),
		"data":    paymentList(pays),
	})
}

func (h *PaymentHandler) EmailStatus(c *gin.Context) {
	orderID := c.Param("orderId")
	if orderID == "" {
		middleware.Fail(c, apperr.InvalidErr("Order ID is required.", nil))
		return
	}

	rec, sent, err := h.dispatcher.EmailStatus(c.Request.Context(), orderID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	resp := gin.H{
		"success":   true,
		"orderId":   orderID,
		"emailSent": sent,
	}
	if sent {
		resp["sentAt"] = rec.SentAt.UTC().Format(time.RFC3339)
		resp["customerEmail"] = rec.Recipient
	}
	c.JSON(http.StatusOK, resp)
}

func (h *PaymentHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "OK",
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"environment": h.environment,
	})
}

// paymentList keeps the JSON field names the frontend already consumes.
func paymentList(pays []gateway.Payment) []gin.H {
	out := make([]gin.H, 0, len(pays))
	for _, p := range pays {
		out = append(out, gin.H{
			"cf_payment_id":    p.CFPaymentID,
			"order_id":         p.OrderID,
			"payment_status":   p.PaymentStatus,
			"payment_amount":   p.PaymentAmount,
			"payment_currency": p.PaymentCurrency,
			"payment_message":  p.PaymentMessage,
			"payment_time":     p.PaymentTime,
		})
	}
	return out
}

package orders

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"astrovani.com/app/internal/modules/catalog"
	"astrovani.com/app/internal/modules/gateway"
)

const (
	Currency           = "INR"
	DefaultServiceType = "Astrology Consultation"

	minAmount = 1
	maxAmount = 100000
)

// vld checks email shape and date format; there is no tag for an Indian
// mobile number, so that one stays a regex.
var (
	vld = validator.New()
	// 10-digit Indian mobile: first digit 6-9
	phoneRe = regexp.MustCompile(`^[6-9][0-9]{9}$`)
)

type Service struct {
	gateway     gateway.API
	meta        MetaStore
	logger      *slog.Logger
	frontendURL string
	backendURL  string
	testMode    bool
}

func NewService(gw gateway.API, meta MetaStore, logger *slog.Logger, frontendURL, backendURL string, testMode bool) *Service {
	return &Service{
		gateway:     gw,
		meta:        meta,
		logger:      logger,
		frontendURL: strings.TrimRight(frontendURL, "/"),
		backendURL:  strings.TrimRight(backendURL, "/"),
		testMode:    testMode,
	}
}

type CreateOrderInput struct {
	Amount          float64
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	DateOfBirth     string
	WhatsappNumber  string
	ReasonForReport string
	ServiceType     string
}

type CreateOrderResult struct {
	OrderID          string
	PaymentSessionID string
	OrderAmount      float64
	OrderCurrency    string
	OrderStatus      string
}

// CreateOrder validates the input, creates the order at the gateway and
// returns its checkout session handle verbatim. The gateway is the
// system of record; locally only the order_meta side row is written.
func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (CreateOrderResult, error) {
	in = trimInput(in)
	if in.ServiceType == "" {
		in.ServiceType = DefaultServiceType
	}

	if err := validate(in); err != nil {
		return CreateOrderResult{}, err
	}

	orderID := NewOrderID()
	if s.testMode {
		orderID = NewTestOrderID()
	}

	now := time.Now()
	customerID := CustomerIDFromEmail(in.CustomerEmail, now)
	note := BuildOrderNote(in.ServiceType, in.DateOfBirth, in.WhatsappNumber, in.ReasonForReport)

	req := gateway.CreateOrderRequest{
		OrderID:       orderID,
		OrderAmount:   in.Amount,
		OrderCurrency: Currency,
		OrderNote:     note,
		CustomerDetails: gateway.CustomerDetails{
			CustomerID:    customerID,
			CustomerName:  in.CustomerName,
			CustomerEmail: in.CustomerEmail,
			CustomerPhone: "+91" + in.CustomerPhone,
		},
		OrderMeta: gateway.OrderMeta{
			ReturnURL:      s.frontendURL + "/payment/success?order_id={order_id}",
			NotifyURL:      s.backendURL + "/api/payment/webhook",
			PaymentMethods: "cc,dc,nb,upi,paylater,emi",
		},
	}

	ord, err := s.gateway.CreateOrder(ctx, req)
	if err != nil {
		return CreateOrderResult{}, fmt.Errorf("gateway create order: %w", err)
	}

	// The meta row only improves email content; losing it falls back to
	// note parsing, so a write failure must not undo a created order.
	meta := Meta{
		OrderID:        ord.OrderID,
		ServiceType:    in.ServiceType,
		CustomerName:   in.CustomerName,
		CustomerEmail:  in.CustomerEmail,
		CustomerPhone:  "+91" + in.CustomerPhone,
		WhatsappNumber: "+91" + in.WhatsappNumber,
		DateOfBirth:    in.DateOfBirth,
		Reason:         in.ReasonForReport,
		Amount:         decimal.NewFromFloat(in.Amount).Round(2),
		Currency:       Currency,
		OrderNote:      note,
		CreatedAt:      now,
	}
	if err := s.meta.Create(ctx, meta); err != nil {
		s.logger.ErrorContext(ctx, "order meta write failed", "order_id", ord.OrderID, "err", err)
	}

	s.logger.InfoContext(ctx, "order created",
		"order_id", ord.OrderID, "service_type", in.ServiceType, "amount", in.Amount)

	return CreateOrderResult{
		OrderID:          ord.OrderID,
		PaymentSessionID: ord.PaymentSessionID,
		OrderAmount:      ord.OrderAmount,
		OrderCurrency:    ord.OrderCurrency,
		OrderStatus:      ord.OrderStatus,
	}, nil
}

// Fail-fast, first violation wins: presence, amount, email, phones, DOB.
func validate(in CreateOrderInput) error {
	required := []struct {
		field, value string
	}{
		{"customerName", in.CustomerName},
		{"customerEmail", in.CustomerEmail},
		{"customerPhone", in.CustomerPhone},
		{"dateOfBirth", in.DateOfBirth},
		{"whatsappNumber", in.WhatsappNumber},
		{"reasonForReport", in.ReasonForReport},
	}
	if in.Amount == 0 {
		return &ValidationError{Field: "amount", Message: "Missing required field: amount"}
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: "Missing required field: " + r.field}
		}
	}

	if in.Amount < minAmount || in.Amount > maxAmount {
		return &ValidationError{Field: "amount", Message: "Invalid amount. Amount should be between 1 and 100000"}
	}
	if !catalog.ValidateFloat(in.ServiceType, in.Amount) {
		return &PriceMismatchError{ServiceType: in.ServiceType, Amount: in.Amount}
	}

	if err := vld.Var(in.CustomerEmail, "required,email"); err != nil {
		return &ValidationError{Field: "customerEmail", Message: "Invalid email format"}
	}
	if !phoneRe.MatchString(in.CustomerPhone) {
		return &ValidationError{Field: "customerPhone", Message: "Invalid phone number. Please provide a valid 10-digit Indian mobile number"}
	}
	if !phoneRe.MatchString(in.WhatsappNumber) {
		return &ValidationError{Field: "whatsappNumber", Message: "Invalid WhatsApp number. Please provide a valid 10-digit Indian mobile number"}
	}

	if err := vld.Var(in.DateOfBirth, "datetime=2006-01-02"); err != nil {
		return &ValidationError{Field: "dateOfBirth", Message: "Invalid date of birth"}
	}
	dob, _ := time.Parse("2006-01-02", in.DateOfBirth)
	if dob.After(time.Now()) {
		return &ValidationError{Field: "dateOfBirth", Message: "Invalid date of birth"}
	}
	return nil
}

func trimInput(in CreateOrderInput) CreateOrderInput {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.DateOfBirth = strings.TrimSpace(in.DateOfBirth)
	in.WhatsappNumber = strings.TrimSpace(in.WhatsappNumber)
	in.ReasonForReport = strings.TrimSpace(in.ReasonForReport)
	in.ServiceType = strings.TrimSpace(in.ServiceType)
	return in
}

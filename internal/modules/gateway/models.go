package gateway

import "encoding/json"

type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

type OrderMeta struct {
	ReturnURL      string `json:"return_url,omitempty"`
	NotifyURL      string `json:"notify_url,omitempty"`
	PaymentMethods string `json:"payment_methods,omitempty"`
}

type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	OrderNote       string          `json:"order_note,omitempty"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
}

// Order is the gateway's order entity. Only the fields this service
// consumes are mapped; the rest of the payload is ignored.
type Order struct {
	CFOrderID        json.Number `json:"cf_order_id"`
	OrderID          string      `json:"order_id"`
	PaymentSessionID string      `json:"payment_session_id"`
	OrderStatus      string      `json:"order_status"`
	OrderAmount      float64     `json:"order_amount"`
	OrderCurrency    string      `json:"order_currency"`
	OrderNote        string      `json:"order_note"`

	CustomerDetails CustomerDetails `json:"customer_details"`
}

// Payment is one payment attempt against an order. An order can carry
// several; callers consume the latest.
type Payment struct {
	CFPaymentID     json.Number     `json:"cf_payment_id"`
	OrderID         string          `json:"order_id"`
	PaymentStatus   string          `json:"payment_status"`
	PaymentAmount   float64         `json:"payment_amount"`
	PaymentCurrency string          `json:"payment_currency"`
	PaymentMessage  string          `json:"payment_message"`
	PaymentTime     string          `json:"payment_time"`
	PaymentMethod   json.RawMessage `json:"payment_method,omitempty"`
}

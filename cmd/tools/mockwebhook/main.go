package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"astrovani.com/app/internal/modules/payments"
)

type webhookPayload struct {
	Type      string `json:"type"`
	EventTime string `json:"event_time"`
	Data      struct {
		Order struct {
			OrderID string `json:"order_id"`
		} `json:"order"`
		Payment struct {
			PaymentStatus string  `json:"payment_status"`
			PaymentAmount float64 `json:"payment_amount"`
		} `json:"payment"`
	} `json:"data"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/api/payment/webhook", "Webhook URL")
	secret := flag.String("secret", os.Getenv("CASHFREE_WEBHOOK_SECRET"), "Webhook secret")
	eventType := flag.String("type", payments.EventPaymentSuccess, "Event type (PAYMENT_SUCCESS_WEBHOOK, PAYMENT_FAILED_WEBHOOK, PAYMENT_USER_DROPPED_WEBHOOK)")
	orderID := flag.String("order-id", fmt.Sprintf("astro_%d_000", time.Now().UnixMilli()), "Order ID")
	amount := flag.Float64("amount", 499, "Payment amount")
	dryRun := flag.Bool("dry-run", false, "Only print signature headers, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and CASHFREE_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	payload := webhookPayload{
		Type:      *eventType,
		EventTime: time.Now().Format(time.RFC3339),
	}
	payload.Data.Order.OrderID = *orderID
	payload.Data.Payment.PaymentStatus = statusFor(*eventType)
	payload.Data.Payment.PaymentAmount = *amount

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	// Cashfree signs base64(HMAC-SHA256(timestamp + body))
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	sig := payments.Sign(*secret, body, ts)

	fmt.Printf("x-webhook-timestamp: %s\n", ts)
	fmt.Printf("x-webhook-signature: %s\n", sig)
	fmt.Printf("Body: %s\n", string(body))

	if *dryRun {
		fmt.Println("\n[DRY RUN] Not sending request")
		return
	}

	fmt.Printf("\nSending to %s...\n", *url)
	req, err := http.NewRequest("POST", *url, bytes.NewReader(body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating request: %v\n", err)
		os.Exit(1)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-webhook-timestamp", ts)
	req.Header.Set("x-webhook-signature", sig)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error sending request: %v\n", err)
		os.Exit(1)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	fmt.Printf("Status: %d\n", resp.StatusCode)
	fmt.Printf("Response: %s\n", string(respBody))

	if resp.StatusCode != http.StatusOK {
		os.Exit(1)
	}
}

func statusFor(eventType string) string {
	switch eventType {
	case payments.EventPaymentFailed:
		return "FAILED"
	case payments.EventPaymentUserDropped:
		return "USER_DROPPED"
	default:
		return "SUCCESS"
	}
}

package main

import (
	"bytes"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
)

type entity struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	ErrorDescription string `json:"error_description,omitempty"`
}

type webhookPayload struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity entity `json:"entity"`
		} `json:"payment"`
	} `json:"payload"`
}

func main() {
	url := flag.String("url", "http://localhost:8080/webhooks/razorpay", "Webhook URL")
	secret := flag.String("secret", os.Getenv("RAZORPAY_WEBHOOK_SECRET"), "Webhook secret")
	eventID := flag.String("event-id", "evt_"+randomHex(8), "Event ID")
	eventType := flag.String("type", "payment.captured", "Event type (payment.captured, payment.failed)")
	paymentID := flag.String("payment-id", "pay_"+randomHex(8), "Gateway payment id")
	orderID := flag.String("order-id", "order_"+randomHex(8), "Gateway order (intent) id")
	errDesc := flag.String("error", "", "Error description (for payment.failed)")
	dryRun := flag.Bool("dry-run", false, "Only print signature header, don't send")

	flag.Parse()

	if *secret == "" {
		fmt.Fprintf(os.Stderr, "Error: secret not provided and RAZORPAY_WEBHOOK_SECRET not set\n")
		os.Exit(1)
	}

	var payload webhookPayload
	payload.Event = *eventType
	payload.Payload.Payment.Entity = entity{
		ID:               *paymentID,
		OrderID:          *orderID,
		ErrorDescription: *errDesc,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling payload: %v\n", err)
		os.Exit(1)
	}

	sig := computeSig([]byte(*secret), body)

	fmt.Printf("X-Razorpay-Signature: %s\n", sig)
	fmt.Printf("X-Razorpay-Event-Id: %s\n", *eventID)
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
	req.Header.Set("X-Razorpay-Signature", sig)
	req.Header.Set("X-Razorpay-Event-Id", *eventID)

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

func computeSig(secret, body []byte) string {
	m := hmac.New(sha256.New, secret)
	m.Write(body)
	return hex.EncodeToString(m.Sum(nil))
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "0000000000000000"[:n*2]
	}
	return hex.EncodeToString(b)
}

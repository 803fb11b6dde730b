package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ujjwal0117/CDAC-PROJECT/internal/shared/money"
)

// GatewayPayment is the subset of the gateway's payment object this system
// reads back: capture status, method and method detail.
type GatewayPayment struct {
	ID               string
	OrderID          string
	Status           string // created|authorized|captured|failed
	Method           string // card|upi|netbanking|wallet|emi
	ErrorDescription string

	CardLast4   string
	CardNetwork string
	UpiID       string
	Bank        string
	WalletName  string
}

// Gateway is the narrow client contract on the external payment gateway.
// Calls are slow and fallible; callers must not hold row locks across them.
type Gateway interface {
	CreateIntent(ctx context.Context, amount money.Amount, currency, receipt string) (string, error)
	FetchPayment(ctx context.Context, gatewayPaymentID string) (GatewayPayment, error)
	CreateRefund(ctx context.Context, gatewayPaymentID string, amount money.Amount, notes map[string]string) (string, error)
}

// RazorpayGateway talks to a Razorpay-compatible REST API with basic auth and
// a bounded client timeout.
type RazorpayGateway struct {
	baseURL   string
	keyID     string
	keySecret string
	client    *http.Client
}

func NewRazorpayGateway(baseURL, keyID, keySecret string, timeout time.Duration) *RazorpayGateway {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RazorpayGateway{
		baseURL:   baseURL,
		keyID:     keyID,
		keySecret: keySecret,
		client:    &http.Client{Timeout: timeout},
	}
}

func (g *RazorpayGateway) CreateIntent(ctx context.Context, amount money.Amount, currency, receipt string) (string, error) {
	payload := map[string]any{
		"amount":   amount.Paise(),
		"currency": currency,
		"receipt":  receipt,
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := g.do(ctx, http.MethodPost, "/orders", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

type gatewayPaymentJSON struct {
	ID               string `json:"id"`
	OrderID          string `json:"order_id"`
	Status           string `json:"status"`
	Method           string `json:"method"`
	ErrorDescription string `json:"error_description"`
	VPA              string `json:"vpa"`
	Bank             string `json:"bank"`
	Wallet           string `json:"wallet"`
	Card             *struct {
		Last4   string `json:"last4"`
		Network string `json:"network"`
	} `json:"card"`
}

func (g *RazorpayGateway) FetchPayment(ctx context.Context, gatewayPaymentID string) (GatewayPayment, error) {
	var raw gatewayPaymentJSON
	if err := g.do(ctx, http.MethodGet, "/payments/"+gatewayPaymentID, nil, &raw); err != nil {
		return GatewayPayment{}, err
	}
	gp := GatewayPayment{
		ID:               raw.ID,
		OrderID:          raw.OrderID,
		Status:           raw.Status,
		Method:           raw.Method,
		ErrorDescription: raw.ErrorDescription,
		UpiID:            raw.VPA,
		Bank:             raw.Bank,
		WalletName:       raw.Wallet,
	}
	if raw.Card != nil {
		gp.CardLast4 = raw.Card.Last4
		gp.CardNetwork = raw.Card.Network
	}
	return gp, nil
}

func (g *RazorpayGateway) CreateRefund(ctx context.Context, gatewayPaymentID string, amount money.Amount, notes map[string]string) (string, error) {
	payload := map[string]any{
		"amount": amount.Paise(),
	}
	if len(notes) > 0 {
		payload["notes"] = notes
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := g.do(ctx, http.MethodPost, "/payments/"+gatewayPaymentID+"/refund", payload, &out); err != nil {
		return "", err
	}
	return out.ID, nil
}

func (g *RazorpayGateway) do(ctx context.Context, method, path string, payload, out any) error {
	var body *bytes.Buffer
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewBuffer(b)
	} else {
		body = &bytes.Buffer{}
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.keyID, g.keySecret)
	req.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode >= 400 {
		var apiErr struct {
			Error struct {
				Description string `json:"description"`
			} `json:"error"`
		}
		_ = json.NewDecoder(res.Body).Decode(&apiErr)
		return fmt.Errorf("%w: gateway returned %d: %s", ErrGatewayUnavailable, res.StatusCode, apiErr.Error.Description)
	}

	if out != nil {
		return json.NewDecoder(res.Body).Decode(out)
	}
	return nil
}

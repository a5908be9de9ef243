package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"tessera/internal/models"
)

// PaymentClient talks to the payment gateway. The lifecycle controller
// only depends on the hold/confirm/release contract: create a checkout
// session for a draft reservation, then wait for the gateway to call
// back on the success or fail endpoints.
type PaymentClient struct {
	baseURL    string
	successURL string
	failURL    string
	currency   string
	httpClient *http.Client
}

type PaymentConfig struct {
	BaseURL    string
	SuccessURL string
	FailURL    string
	Currency   string
	Timeout    time.Duration
}

type checkoutRequest struct {
	OrderID     string `json:"orderId"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
	SuccessURL  string `json:"successURL"`
	FailURL     string `json:"failURL"`
	ExpiresAt   int64  `json:"expiresAt"`
}

type checkoutResponse struct {
	SessionID  string `json:"sessionId"`
	PaymentURL string `json:"paymentURL"`
}

func NewPaymentClient(cfg PaymentConfig) *PaymentClient {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &PaymentClient{
		baseURL:    cfg.BaseURL,
		successURL: cfg.SuccessURL,
		failURL:    cfg.FailURL,
		currency:   cfg.Currency,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}
}

// CreateSession opens a checkout session for the draft reservation and
// returns the payment URL the caller is redirected to. The session
// expires together with the hold, 30 minutes at most.
func (pc *PaymentClient) CreateSession(ctx context.Context, res *models.Reservation, eventName string) (string, error) {
	reqBody := checkoutRequest{
		OrderID:     res.ID,
		Amount:      res.Price,
		Currency:    pc.currency,
		Description: eventName,
		Quantity:    len(res.Seats),
		SuccessURL:  fmt.Sprintf("%s?reservationId=%s", pc.successURL, res.ID),
		FailURL:     fmt.Sprintf("%s?reservationId=%s", pc.failURL, res.ID),
		ExpiresAt:   time.Now().Add(30 * time.Minute).Unix(),
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		pc.baseURL+"/checkout/sessions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := pc.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("checkout request failed with status %d", resp.StatusCode)
	}

	var session checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode checkout response: %w", err)
	}
	if session.PaymentURL == "" {
		return "", fmt.Errorf("checkout response contained no payment URL")
	}

	return session.PaymentURL, nil
}

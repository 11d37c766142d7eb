package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/metrics"
)

// AzamPayClient talks to the AzamPay mobile network operator checkout API.
type AzamPayClient struct {
	AppName          string
	ClientID         string
	ClientSecret     string
	Provider         string
	AuthenticatorURL string
	CheckoutURL      string
	HTTPClient       *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
}

type azamTokenRequest struct {
	AppName      string `json:"appName"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

type azamTokenResponse struct {
	Data struct {
		AccessToken string `json:"accessToken"`
		Expire      string `json:"expire"`
	} `json:"data"`
	Message string `json:"message"`
	Success bool   `json:"success"`
}

type azamCheckoutRequest struct {
	AccountNumber string `json:"accountNumber"`
	Amount        string `json:"amount"`
	Currency      string `json:"currency"`
	ExternalID    string `json:"externalId"`
	Provider      string `json:"provider"`
}

// NewAzamPayClient creates a client for the sandbox or production environment.
func NewAzamPayClient(appName, clientID, clientSecret, provider, environment string) *AzamPayClient {
	authURL, checkoutURL := "https://authenticator-sandbox.azampay.co.tz", "https://sandbox.azampay.co.tz"
	if environment == "production" {
		authURL, checkoutURL = "https://authenticator.azampay.co.tz", "https://checkout.azampay.co.tz"
	}
	return &AzamPayClient{
		AppName:          appName,
		ClientID:         clientID,
		ClientSecret:     clientSecret,
		Provider:         provider,
		AuthenticatorURL: authURL,
		CheckoutURL:      checkoutURL,
		HTTPClient:       &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *AzamPayClient) Name() string { return "azampay" }

func (c *AzamPayClient) accessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	body, err := json.Marshal(azamTokenRequest{AppName: c.AppName, ClientID: c.ClientID, ClientSecret: c.ClientSecret})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthenticatorURL+"/AppRegistration/GenerateToken", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	var tr azamTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK || tr.Data.AccessToken == "" {
		return "", fmt.Errorf("token request rejected: %d %s", resp.StatusCode, tr.Message)
	}

	c.token = tr.Data.AccessToken
	c.tokenExpiry = time.Now().Add(50 * time.Minute)
	if exp, err := time.Parse(time.RFC3339, tr.Data.Expire); err == nil {
		c.tokenExpiry = exp.Add(-time.Minute)
	}
	return c.token, nil
}

// MobileCheckout pushes a USSD payment prompt to the phone. Any decodable
// response body is returned as is, including rejections, so the caller can
// interpret it. Bodies that are not JSON come back as strings.
func (c *AzamPayClient) MobileCheckout(ctx context.Context, r CheckoutRequest) (any, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayDuration.WithLabelValues(c.Name()).Observe(time.Since(start).Seconds())
	}()

	token, err := c.accessToken(ctx)
	if err != nil {
		logger.ErrorLogger.Errorf("AzamPay authentication failed: %v", err)
		return nil, err
	}

	currency := r.Currency
	if currency == "" {
		currency = "TZS"
	}
	body, err := json.Marshal(azamCheckoutRequest{
		AccountNumber: r.PhoneNumber,
		Amount:        fmt.Sprintf("%.2f", r.Amount),
		Currency:      currency,
		ExternalID:    r.ExternalID,
		Provider:      c.Provider,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.CheckoutURL+"/azampay/mno/checkout", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("checkout request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkout response: %w", err)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return string(raw), nil
	}
	return decoded, nil
}

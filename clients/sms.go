package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/joy095/parking/config"
	"github.com/joy095/parking/metrics"
)

const DefaultSMSURL = "https://api.notify.africa/v2/send-sms"

var ErrSMSNotConfigured = errors.New("SMS credentials not found in environment variables")

// SMSSender delivers a text message to a normalized phone number.
type SMSSender interface {
	Send(ctx context.Context, phoneNumber, message string) error
}

// NotifyAfricaClient sends SMS through the notify.africa API.
type NotifyAfricaClient struct {
	URL        string
	APIKey     string
	SenderID   string
	HTTPClient *http.Client
}

type smsRecipient struct {
	Number string `json:"number"`
}

type smsRequest struct {
	SenderID   string         `json:"sender_id"`
	Schedule   string         `json:"schedule"`
	Recipients []smsRecipient `json:"recipients"`
	SMS        string         `json:"sms"`
}

func NewNotifyAfricaClientFromEnv() *NotifyAfricaClient {
	return &NotifyAfricaClient{
		URL:        config.GetEnv("SMS_URL", DefaultSMSURL),
		APIKey:     config.GetEnv("SMS_APIKEY", ""),
		SenderID:   config.GetEnv("SMS_SENDER_ID", "55"),
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *NotifyAfricaClient) Send(ctx context.Context, phoneNumber, message string) error {
	if c.APIKey == "" {
		return ErrSMSNotConfigured
	}

	start := time.Now()
	defer func() {
		metrics.GatewayDuration.WithLabelValues("sms").Observe(time.Since(start).Seconds())
	}()

	body, err := json.Marshal(smsRequest{
		SenderID:   c.SenderID,
		Schedule:   "none",
		Recipients: []smsRecipient{{Number: phoneNumber}},
		SMS:        message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create SMS request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("SMS request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("SMS API error: %d - %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}

// OTPMessage is the text sent with a one-time password.
func OTPMessage(otp string) string {
	return fmt.Sprintf("Your egesha OTP is %s. It is valid for 15 minutes.", otp)
}

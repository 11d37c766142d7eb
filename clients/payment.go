package clients

import (
	"context"
	"fmt"
	"strings"

	"github.com/joy095/parking/config"
)

// CheckoutRequest asks a gateway to push a mobile money charge to a phone.
type CheckoutRequest struct {
	PhoneNumber string
	Amount      float64
	Currency    string
	ExternalID  string
}

// MobileMoneyGateway starts a mobile money checkout. The result is the
// gateway's decoded response body, whose shape is not guaranteed.
type MobileMoneyGateway interface {
	Name() string
	MobileCheckout(ctx context.Context, req CheckoutRequest) (any, error)
}

// NewMobileMoneyGatewayFromEnv builds the gateway named by PAYMENT_GATEWAY.
func NewMobileMoneyGatewayFromEnv() (MobileMoneyGateway, error) {
	switch name := strings.ToLower(config.GetEnv("PAYMENT_GATEWAY", "azampay")); name {
	case "azampay":
		return NewAzamPayClient(
			config.GetEnv("AZAMPAY_APP_NAME", ""),
			config.GetEnv("AZAMPAY_CLIENT_ID", ""),
			config.GetEnv("AZAMPAY_CLIENT_SECRET", ""),
			config.GetEnv("AZAMPAY_PROVIDER", "Airtel"),
			config.GetEnv("AZAMPAY_ENVIRONMENT", "sandbox"),
		), nil
	case "razorpay":
		return NewRazorpayClient(
			config.GetEnv("RAZORPAY_KEY_ID", ""),
			config.GetEnv("RAZORPAY_KEY_SECRET", ""),
		), nil
	default:
		return nil, fmt.Errorf("unknown payment gateway %q", name)
	}
}

package clients

import (
	"context"
	"math"
	"time"

	"github.com/joy095/parking/metrics"
	"github.com/razorpay/razorpay-go"
)

// RazorpayOrders is the part of the Razorpay SDK the gateway needs.
type RazorpayOrders interface {
	Create(data map[string]interface{}, extraHeaders map[string]string) (map[string]interface{}, error)
}

// RazorpayClient settles checkouts by creating Razorpay orders.
type RazorpayClient struct {
	Orders RazorpayOrders
}

// NewRazorpayClient initializes the SDK client with the provided key ID and secret.
func NewRazorpayClient(keyID, keySecret string) *RazorpayClient {
	return &RazorpayClient{Orders: razorpay.NewClient(keyID, keySecret).Order}
}

func (r *RazorpayClient) Name() string { return "razorpay" }

// MobileCheckout creates an order for the amount. The order id becomes the
// transaction id.
func (r *RazorpayClient) MobileCheckout(_ context.Context, req CheckoutRequest) (any, error) {
	start := time.Now()
	defer func() {
		metrics.GatewayDuration.WithLabelValues(r.Name()).Observe(time.Since(start).Seconds())
	}()

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}
	order, err := r.Orders.Create(map[string]interface{}{
		"amount":   int64(math.Round(req.Amount * 100)),
		"currency": currency,
		"receipt":  req.ExternalID,
		"notes":    map[string]interface{}{"phone_number": req.PhoneNumber},
	}, nil)
	if err != nil {
		return nil, err
	}

	id, _ := order["id"].(string)
	if id == "" {
		return order, nil
	}
	return map[string]interface{}{
		"success":        true,
		"transaction_id": id,
		"message":        "Payment initiated successfully",
	}, nil
}

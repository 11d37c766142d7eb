package payment_controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/config"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/metrics"
	"github.com/joy095/parking/models/booking_models"
	"github.com/joy095/parking/models/payment_models"
	"github.com/joy095/parking/utils"
	"github.com/joy095/parking/utils/phone"
)

const (
	defaultFailureMessage    = "Payment initiation failed"
	noResponseFailureMessage = "Payment initiation failed with no response"
	defaultSuccessMessage    = "Payment initiated successfully"
)

var (
	ErrInvalidAmount = errors.New("amount must be greater than zero")
	ErrNotOwner      = errors.New("you can only pay for your own bookings")
)

// PaymentResult is the outcome of a checkout attempt.
type PaymentResult struct {
	Success       bool                    `json:"success"`
	TransactionID string                  `json:"transaction_id,omitempty"`
	Message       string                  `json:"message"`
	Payment       *payment_models.Payment `json:"payment,omitempty"`
}

// PaymentController starts mobile money payments for bookings.
type PaymentController struct {
	DB       db.Querier
	Gateway  clients.MobileMoneyGateway
	Currency string
}

// NewPaymentController creates a new payment controller
func NewPaymentController(pool db.Querier, gateway clients.MobileMoneyGateway) *PaymentController {
	return &PaymentController{
		DB:       pool,
		Gateway:  gateway,
		Currency: config.GetEnv("PAYMENT_CURRENCY", "TZS"),
	}
}

// InitiatePayment validates the request, asks the gateway to charge the phone
// and records a completed payment when the gateway accepts. A rejected
// checkout is returned as a result with Success false and writes nothing.
func (pc *PaymentController) InitiatePayment(ctx context.Context, personID, bookingID uuid.UUID, rawPhone string, amount float64) (*PaymentResult, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	phoneNumber, err := phone.Normalize(rawPhone)
	if err != nil {
		return nil, err
	}

	booking, err := booking_models.GetBookingByID(ctx, pc.DB, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.PersonID != personID {
		return nil, ErrNotOwner
	}
	paid, err := payment_models.HasCompletedPayment(ctx, pc.DB, bookingID)
	if err != nil {
		return nil, err
	}
	if paid {
		return nil, payment_models.ErrAlreadyPaid
	}

	gateway := pc.Gateway.Name()
	logger.InfoLogger.Infof("Initiating %s checkout of %.2f for booking %s", gateway, amount, bookingID)

	raw, err := pc.Gateway.MobileCheckout(ctx, clients.CheckoutRequest{
		PhoneNumber: phoneNumber,
		Amount:      amount,
		Currency:    pc.Currency,
		ExternalID:  bookingID.String(),
	})
	if err != nil {
		logger.ErrorLogger.Errorf("%s checkout failed for booking %s: %v", gateway, bookingID, err)
		metrics.PaymentsInitiated.WithLabelValues(gateway, "error").Inc()
		return &PaymentResult{Success: false, Message: err.Error()}, nil
	}

	result := InterpretGatewayResponse(raw)
	if !result.Success {
		logger.WarnLogger.Warnf("%s rejected checkout for booking %s: %s", gateway, bookingID, result.Message)
		metrics.PaymentsInitiated.WithLabelValues(gateway, "rejected").Inc()
		return result, nil
	}

	payment, err := payment_models.NewPayment(&bookingID, personID, result.TransactionID, amount, phoneNumber, payment_models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if err := payment_models.CreatePayment(ctx, pc.DB, payment); err != nil {
		if errors.Is(err, payment_models.ErrDuplicateTransaction) {
			metrics.PaymentsInitiated.WithLabelValues(gateway, "unrecorded").Inc()
		}
		return nil, err
	}

	metrics.PaymentsInitiated.WithLabelValues(gateway, "accepted").Inc()
	result.Payment = payment
	return result, nil
}

// InterpretGatewayResponse turns a decoded gateway body into a result. Only a
// JSON object carrying success == true counts as accepted.
func InterpretGatewayResponse(raw any) *PaymentResult {
	switch body := raw.(type) {
	case nil:
		return &PaymentResult{Message: noResponseFailureMessage}
	case map[string]any:
		if ok, _ := body["success"].(bool); !ok {
			return &PaymentResult{Message: stringField(body, defaultFailureMessage, "message")}
		}
		txID := stringField(body, "", "transaction_id", "transactionId")
		if txID == "" {
			txID = "PAY-" + uuid.NewString()
		}
		return &PaymentResult{
			Success:       true,
			TransactionID: txID,
			Message:       stringField(body, defaultSuccessMessage, "message"),
		}
	case string:
		return &PaymentResult{Message: body}
	default:
		return &PaymentResult{Message: fmt.Sprint(body)}
	}
}

func stringField(m map[string]any, def string, keys ...string) string {
	for _, k := range keys {
		v, ok := m[k]
		if !ok || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			if s != "" {
				return s
			}
			continue
		}
		return fmt.Sprint(v)
	}
	return def
}

type paymentRequest struct {
	BookingID   uuid.UUID `json:"booking" binding:"required"`
	PhoneNumber string    `json:"phone_number" binding:"required"`
	Amount      float64   `json:"amount"`
}

// CreatePayment handles POST /payments.
func (pc *PaymentController) CreatePayment(c *gin.Context) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req paymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := pc.InitiatePayment(c.Request.Context(), personID, req.BookingID, req.PhoneNumber, req.Amount)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidAmount), errors.Is(err, phone.ErrInvalidPhoneNumber):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, booking_models.ErrBookingNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, ErrNotOwner):
			c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, payment_models.ErrAlreadyPaid), errors.Is(err, payment_models.ErrDuplicateTransaction):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.ErrorLogger.Errorf("Payment for booking %s failed: %v", req.BookingID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process payment"})
		}
		return
	}

	if !result.Success {
		c.JSON(http.StatusPaymentRequired, result)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// GetPayment handles GET /payments/:payment_id for the paying user.
func (pc *PaymentController) GetPayment(c *gin.Context) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	paymentID, err := uuid.Parse(c.Param("payment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid payment ID format"})
		return
	}

	payment, err := payment_models.GetPaymentByID(c.Request.Context(), pc.DB, paymentID)
	if err != nil {
		if errors.Is(err, payment_models.ErrPaymentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to fetch payment %s: %v", paymentID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch payment"})
		return
	}
	if payment.PersonID != personID {
		c.JSON(http.StatusForbidden, gin.H{"error": utils.ErrForbidden.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment": payment})
}

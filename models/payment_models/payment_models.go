package payment_models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

const (
	bookingUniqueConstraint     = "payments_booking_id_key"
	transactionUniqueConstraint = "payments_transaction_id_key"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrAlreadyPaid          = errors.New("booking has already been paid")
	ErrDuplicateTransaction = errors.New("gateway transaction has already been recorded")
)

// Payment records a mobile money charge accepted by the gateway.
type Payment struct {
	ID            uuid.UUID  `json:"id"`
	BookingID     *uuid.UUID `json:"booking,omitempty"`
	PersonID      uuid.UUID  `json:"user"`
	TransactionID string     `json:"transaction_id"`
	Amount        float64    `json:"amount"`
	PhoneNumber   string     `json:"phone_number"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func NewPayment(bookingID *uuid.UUID, personID uuid.UUID, transactionID string, amount float64, phone, status string) (*Payment, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for payment: %w", err)
	}
	now := time.Now()
	return &Payment{
		ID:            id,
		BookingID:     bookingID,
		PersonID:      personID,
		TransactionID: transactionID,
		Amount:        amount,
		PhoneNumber:   phone,
		Status:        status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// CreatePayment inserts a payment. A second payment for the same booking
// yields ErrAlreadyPaid; a gateway transaction id seen before yields
// ErrDuplicateTransaction.
func CreatePayment(ctx context.Context, q db.Querier, p *Payment) error {
	_, err := q.Exec(ctx, `
		INSERT INTO payments (id, booking_id, person_id, transaction_id, amount, phone_number, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.BookingID, p.PersonID, p.TransactionID, p.Amount, p.PhoneNumber, p.Status, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		switch {
		case db.UniqueViolationOn(err, bookingUniqueConstraint):
			logger.WarnLogger.Warnf("Booking %s already has a payment, transaction %s not recorded", bookingRef(p.BookingID), p.TransactionID)
			return ErrAlreadyPaid
		case db.UniqueViolationOn(err, transactionUniqueConstraint):
			logger.ErrorLogger.Errorf("Gateway transaction %s for booking %s was already recorded; the customer has been charged", p.TransactionID, bookingRef(p.BookingID))
			return ErrDuplicateTransaction
		}
		logger.ErrorLogger.Errorf("Failed to insert payment %s: %v", p.TransactionID, err)
		return fmt.Errorf("failed to record payment: %w", err)
	}
	logger.InfoLogger.Infof("Payment %s recorded with transaction %s", p.ID, p.TransactionID)
	return nil
}

func bookingRef(id *uuid.UUID) string {
	if id == nil {
		return "-"
	}
	return id.String()
}

// HasCompletedPayment reports whether the booking already has a completed payment.
func HasCompletedPayment(ctx context.Context, q db.Querier, bookingID uuid.UUID) (bool, error) {
	var exists bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM payments WHERE booking_id = $1 AND status = $2)`,
		bookingID, StatusCompleted).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("database error checking payment: %w", err)
	}
	return exists, nil
}

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.PersonID, &p.TransactionID, &p.Amount,
		&p.PhoneNumber, &p.Status, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("database error fetching payment: %w", err)
	}
	return &p, nil
}

func GetPaymentByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Payment, error) {
	return scanPayment(q.QueryRow(ctx, `
		SELECT id, booking_id, person_id, transaction_id, amount, phone_number, status, created_at, updated_at
		FROM payments WHERE id = $1`, id))
}

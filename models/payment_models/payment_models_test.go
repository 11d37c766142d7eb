package payment_models

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentUniqueViolations(t *testing.T) {
	tests := []struct {
		constraint string
		want       error
	}{
		{"payments_booking_id_key", ErrAlreadyPaid},
		{"payments_transaction_id_key", ErrDuplicateTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.constraint, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()

			bookingID := uuid.New()
			p, err := NewPayment(&bookingID, uuid.New(), "AZ-1", 1000, "255712345678", StatusCompleted)
			require.NoError(t, err)

			mock.ExpectExec("INSERT INTO payments").
				WithArgs(p.ID, p.BookingID, p.PersonID, "AZ-1", 1000.0, "255712345678", "completed", p.CreatedAt, p.UpdatedAt).
				WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: tt.constraint})

			err = CreatePayment(context.Background(), mock, p)
			assert.ErrorIs(t, err, tt.want)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreatePaymentOtherUniqueViolationIsNotDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	p, err := NewPayment(nil, uuid.New(), "AZ-2", 500, "255712345678", StatusCompleted)
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO payments").
		WithArgs(p.ID, p.BookingID, p.PersonID, "AZ-2", 500.0, "255712345678", "completed", p.CreatedAt, p.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_pkey"})

	err = CreatePayment(context.Background(), mock, p)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyPaid)
	assert.NotErrorIs(t, err, ErrDuplicateTransaction)
}

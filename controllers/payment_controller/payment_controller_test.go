package payment_controller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/metrics"
	"github.com/joy095/parking/models/booking_models"
	"github.com/joy095/parking/models/payment_models"
	"github.com/joy095/parking/utils/phone"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeGateway struct {
	resp  any
	err   error
	calls []clients.CheckoutRequest
}

func (f *fakeGateway) Name() string { return "fake" }

func (f *fakeGateway) MobileCheckout(_ context.Context, req clients.CheckoutRequest) (any, error) {
	f.calls = append(f.calls, req)
	return f.resp, f.err
}

var bookingCols = []string{
	"id", "person_id", "spot_id", "lot_id", "vehicle_id", "operator_id", "contact_phone",
	"start_time", "end_time", "cost", "status", "created_at", "updated_at",
}

func bookingRow(bookingID, personID uuid.UUID) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(bookingCols).AddRow(
		bookingID, personID, uuid.New(), uuid.New(), uuid.New(), uuid.New(), "",
		now, now.Add(time.Hour), 1000.0, "confirmed", now, now,
	)
}

func newController(t *testing.T, gw *fakeGateway) (pgxmock.PgxPoolIface, *PaymentController) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, &PaymentController{DB: mock, Gateway: gw, Currency: "TZS"}
}

func TestInitiatePaymentRejectsNonPositiveAmount(t *testing.T) {
	for _, amount := range []float64{0, -5} {
		gw := &fakeGateway{}
		mock, pc := newController(t, gw)

		_, err := pc.InitiatePayment(context.Background(), uuid.New(), uuid.New(), "0712345678", amount)
		assert.ErrorIs(t, err, ErrInvalidAmount)
		assert.Empty(t, gw.calls, "gateway must not be called")
		assert.NoError(t, mock.ExpectationsWereMet())
	}
}

func TestInitiatePaymentRejectsBadPhone(t *testing.T) {
	gw := &fakeGateway{}
	_, pc := newController(t, gw)

	_, err := pc.InitiatePayment(context.Background(), uuid.New(), uuid.New(), "12345", 1000)
	assert.ErrorIs(t, err, phone.ErrInvalidPhoneNumber)
	assert.Empty(t, gw.calls)
}

func TestInitiatePaymentSuccess(t *testing.T) {
	personID, bookingID := uuid.New(), uuid.New()
	gw := &fakeGateway{resp: map[string]any{"success": true, "transactionId": "AZ-42", "message": "Request in progress"}}
	mock, pc := newController(t, gw)

	mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, personID))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(bookingID, "completed").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(pgxmock.AnyArg(), &bookingID, personID, "AZ-42", 1500.0, "255712345678", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	res, err := pc.InitiatePayment(context.Background(), personID, bookingID, "+255 712 345 678", 1500)
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "AZ-42", res.TransactionID)
	assert.Equal(t, "Request in progress", res.Message)
	require.Len(t, gw.calls, 1)
	assert.Equal(t, "255712345678", gw.calls[0].PhoneNumber)
	assert.Equal(t, bookingID.String(), gw.calls[0].ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInitiatePaymentGatewayFailureWritesNothing(t *testing.T) {
	tests := []struct {
		name    string
		resp    any
		err     error
		message string
	}{
		{"explicit failure", map[string]any{"success": false, "message": "Insufficient balance"}, nil, "Insufficient balance"},
		{"failure without message", map[string]any{"success": false}, nil, "Payment initiation failed"},
		{"plain text body", "Service Unavailable", nil, "Service Unavailable"},
		{"empty body", nil, nil, "Payment initiation failed with no response"},
		{"transport error", nil, errors.New("dial tcp: i/o timeout"), "dial tcp: i/o timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			personID, bookingID := uuid.New(), uuid.New()
			gw := &fakeGateway{resp: tt.resp, err: tt.err}
			mock, pc := newController(t, gw)

			mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, personID))
			mock.ExpectQuery("SELECT EXISTS").WithArgs(bookingID, "completed").
				WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

			res, err := pc.InitiatePayment(context.Background(), personID, bookingID, "0712345678", 1000)
			require.NoError(t, err)
			assert.False(t, res.Success)
			assert.Equal(t, tt.message, res.Message)
			assert.Nil(t, res.Payment)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestInitiatePaymentOwnershipAndDuplicates(t *testing.T) {
	t.Run("missing booking", func(t *testing.T) {
		gw := &fakeGateway{}
		mock, pc := newController(t, gw)
		bookingID := uuid.New()
		mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnError(pgx.ErrNoRows)

		_, err := pc.InitiatePayment(context.Background(), uuid.New(), bookingID, "0712345678", 1000)
		assert.ErrorIs(t, err, booking_models.ErrBookingNotFound)
		assert.Empty(t, gw.calls)
	})

	t.Run("someone else's booking", func(t *testing.T) {
		gw := &fakeGateway{}
		mock, pc := newController(t, gw)
		bookingID := uuid.New()
		mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, uuid.New()))

		_, err := pc.InitiatePayment(context.Background(), uuid.New(), bookingID, "0712345678", 1000)
		assert.ErrorIs(t, err, ErrNotOwner)
		assert.Empty(t, gw.calls)
	})

	t.Run("already paid", func(t *testing.T) {
		gw := &fakeGateway{}
		mock, pc := newController(t, gw)
		personID, bookingID := uuid.New(), uuid.New()
		mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, personID))
		mock.ExpectQuery("SELECT EXISTS").WithArgs(bookingID, "completed").
			WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := pc.InitiatePayment(context.Background(), personID, bookingID, "0712345678", 1000)
		assert.ErrorIs(t, err, payment_models.ErrAlreadyPaid)
		assert.Empty(t, gw.calls)
	})
}

func TestInitiatePaymentDuplicateGatewayTransaction(t *testing.T) {
	personID, bookingID := uuid.New(), uuid.New()
	gw := &fakeGateway{resp: map[string]any{"success": true, "transaction_id": "AZ-7"}}
	mock, pc := newController(t, gw)
	before := testutil.ToFloat64(metrics.PaymentsInitiated.WithLabelValues("fake", "unrecorded"))

	mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, personID))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(bookingID, "completed").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec("INSERT INTO payments").
		WithArgs(pgxmock.AnyArg(), &bookingID, personID, "AZ-7", 1000.0, "255712345678", "completed", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "payments_transaction_id_key"})

	_, err := pc.InitiatePayment(context.Background(), personID, bookingID, "0712345678", 1000)
	assert.ErrorIs(t, err, payment_models.ErrDuplicateTransaction)
	assert.NotErrorIs(t, err, payment_models.ErrAlreadyPaid)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.PaymentsInitiated.WithLabelValues("fake", "unrecorded")))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInterpretGatewayResponseSynthesizesTransactionID(t *testing.T) {
	res := InterpretGatewayResponse(map[string]any{"success": true})
	assert.True(t, res.Success)
	assert.True(t, strings.HasPrefix(res.TransactionID, "PAY-"))
	_, err := uuid.Parse(strings.TrimPrefix(res.TransactionID, "PAY-"))
	assert.NoError(t, err)
	assert.Equal(t, "Payment initiated successfully", res.Message)

	res = InterpretGatewayResponse(map[string]any{"success": "true"})
	assert.False(t, res.Success)
}

func TestCreatePaymentHandler(t *testing.T) {
	gin.SetMode(gin.TestMode)
	personID, bookingID := uuid.New(), uuid.New()
	gw := &fakeGateway{resp: map[string]any{"success": false, "message": "Declined"}}
	mock, pc := newController(t, gw)

	mock.ExpectQuery(`WHERE b.id = \$1`).WithArgs(bookingID).WillReturnRows(bookingRow(bookingID, personID))
	mock.ExpectQuery("SELECT EXISTS").WithArgs(bookingID, "completed").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))

	r := gin.New()
	r.POST("/payments", func(c *gin.Context) { c.Set("sub", personID.String()) }, pc.CreatePayment)

	body, _ := json.Marshal(gin.H{"booking": bookingID, "phone_number": "0712345678", "amount": 1000})
	req := httptest.NewRequest(http.MethodPost, "/payments", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.JSONEq(t, `{"success":false,"message":"Declined"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

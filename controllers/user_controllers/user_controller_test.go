package user_controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	redisclient "github.com/joy095/parking/config/redis"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/utils/shared_utils"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSMS struct {
	sent []string
	err  error
}

func (f *fakeSMS) Send(_ context.Context, phoneNumber, message string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, phoneNumber+"|"+message)
	return nil
}

func setup(t *testing.T) (pgxmock.PgxPoolIface, *fakeSMS, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	mr := miniredis.RunT(t)
	redisclient.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	sms := &fakeSMS{}
	uc := NewUserController(mock, sms)

	r := gin.New()
	r.POST("/register", uc.Register)
	r.POST("/operator-register", uc.OperatorRegister)
	r.POST("/verify-otp", uc.VerifyOTP)
	r.POST("/resend-otp", uc.ResendOTP)
	r.POST("/login", uc.Login)
	r.POST("/operator-login", uc.OperatorLogin)
	return mock, sms, r
}

func post(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

var personCols = []string{
	"id", "phone_number", "first_name", "last_name", "password_hash", "role",
	"is_phone_verified", "token_version", "created_at", "updated_at",
	"id_type", "id_number",
	"company_name", "business_telephone", "business_email", "address", "city",
}

func motoristRow(id uuid.UUID, phoneNumber, hash string, verified bool) *pgxmock.Rows {
	now := time.Now()
	return pgxmock.NewRows(personCols).AddRow(
		id, phoneNumber, "Juma", "Ali", hash, "motorist",
		verified, 0, now, now,
		nil, nil,
		nil, nil, nil, nil, nil,
	)
}

func TestRegisterSendsOTP(t *testing.T) {
	mock, sms, r := setup(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("255712345678").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO persons").
		WithArgs(pgxmock.AnyArg(), "255712345678", "Juma", "Ali", pgxmock.AnyArg(), "motorist", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO motorist_profiles").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	w := post(r, "/register", gin.H{
		"phone_number": "0712 345 678",
		"first_name":   "Juma",
		"last_name":    "Ali",
		"password":     "supersecret",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	require.Len(t, sms.sent, 1)
	assert.Regexp(t, regexp.MustCompile(`^255712345678\|Your egesha OTP is \d{6}\. It is valid for 15 minutes\.$`), sms.sent[0])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterSMSFailureReturnsGenericError(t *testing.T) {
	mock, sms, r := setup(t)
	sms.err = errors.New("notify.africa: 503")

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("255712345678").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO persons").
		WithArgs(pgxmock.AnyArg(), "255712345678", "Juma", "", pgxmock.AnyArg(), "motorist", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO motorist_profiles").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	w := post(r, "/register", gin.H{
		"phone_number": "255712345678",
		"first_name":   "Juma",
		"password":     "supersecret",
	})

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Failed to send OTP"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterDuplicatePhone(t *testing.T) {
	mock, sms, r := setup(t)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("255712345678").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	w := post(r, "/register", gin.H{
		"phone_number": "+255712345678",
		"first_name":   "Juma",
		"password":     "supersecret",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, sms.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsBadPhone(t *testing.T) {
	mock, _, r := setup(t)

	w := post(r, "/register", gin.H{
		"phone_number": "712345678",
		"first_name":   "Juma",
		"password":     "supersecret",
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOperatorRegisterRequiresCompany(t *testing.T) {
	_, _, r := setup(t)

	w := post(r, "/operator-register", gin.H{
		"phone_number": "0712345678",
		"first_name":   "Asha",
		"password":     "supersecret",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestVerifyOTPIssuesTokens(t *testing.T) {
	mock, _, r := setup(t)
	id := uuid.New()
	phoneNumber := "255712345678"

	require.NoError(t, shared_utils.StoreOTP(context.Background(), shared_utils.REGISTRATION_OTP_PREFIX+phoneNumber, "482913"))

	mock.ExpectQuery("FROM persons p").
		WithArgs(phoneNumber).
		WillReturnRows(motoristRow(id, phoneNumber, "x$y", false))
	mock.ExpectExec("UPDATE persons SET is_phone_verified").
		WithArgs(id).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	w := post(r, "/verify-otp", gin.H{"phone_number": "0712345678", "otp": "482913"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.NotEmpty(t, body["access_token"])
	assert.NotEmpty(t, body["refresh_token"])
	assert.Equal(t, true, body["user"].(map[string]any)["is_phone_verified"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestVerifyOTPWrongCode(t *testing.T) {
	mock, _, r := setup(t)
	phoneNumber := "255712345678"

	require.NoError(t, shared_utils.StoreOTP(context.Background(), shared_utils.REGISTRATION_OTP_PREFIX+phoneNumber, "482913"))
	mock.ExpectQuery("FROM persons p").
		WithArgs(phoneNumber).
		WillReturnRows(motoristRow(uuid.New(), phoneNumber, "x$y", false))

	w := post(r, "/verify-otp", gin.H{"phone_number": phoneNumber, "otp": "000000"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid OTP"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResendOTPAlreadyVerified(t *testing.T) {
	mock, sms, r := setup(t)
	mock.ExpectQuery("FROM persons p").
		WithArgs("255712345678").
		WillReturnRows(motoristRow(uuid.New(), "255712345678", "x$y", true))

	w := post(r, "/resend-otp", gin.H{"phone_number": "0712345678"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, sms.sent)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	hash, err := person_models.HashPassword("supersecret")
	require.NoError(t, err)

	t.Run("unknown phone", func(t *testing.T) {
		mock, _, r := setup(t)
		mock.ExpectQuery("FROM persons p").WithArgs("255712345678").WillReturnError(pgx.ErrNoRows)

		w := post(r, "/login", gin.H{"phone_number": "0712345678", "password": "supersecret"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("wrong password", func(t *testing.T) {
		mock, _, r := setup(t)
		mock.ExpectQuery("FROM persons p").
			WithArgs("255712345678").
			WillReturnRows(motoristRow(uuid.New(), "255712345678", hash, true))

		w := post(r, "/login", gin.H{"phone_number": "0712345678", "password": "not-it"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("motorist on operator login", func(t *testing.T) {
		mock, _, r := setup(t)
		mock.ExpectQuery("FROM persons p").
			WithArgs("255712345678").
			WillReturnRows(motoristRow(uuid.New(), "255712345678", hash, true))

		w := post(r, "/operator-login", gin.H{"phone_number": "0712345678", "password": "supersecret"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unverified", func(t *testing.T) {
		mock, _, r := setup(t)
		mock.ExpectQuery("FROM persons p").
			WithArgs("255712345678").
			WillReturnRows(motoristRow(uuid.New(), "255712345678", hash, false))

		w := post(r, "/login", gin.H{"phone_number": "0712345678", "password": "supersecret"})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.JSONEq(t, `{"error":"Phone number not verified"}`, w.Body.String())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("success", func(t *testing.T) {
		mock, _, r := setup(t)
		mock.ExpectQuery("FROM persons p").
			WithArgs("255712345678").
			WillReturnRows(motoristRow(uuid.New(), "255712345678", hash, true))

		w := post(r, "/login", gin.H{"phone_number": "0712345678", "password": "supersecret"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Contains(t, w.Header().Get("Set-Cookie"), "refresh_token=")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

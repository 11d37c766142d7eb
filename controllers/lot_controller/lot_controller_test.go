package lot_controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joy095/parking/models/lot_models"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var lotCols = []string{
	"id", "operator_id", "company_name", "name", "address", "latitude", "longitude", "total_spots",
	"description", "opening_hours", "closing_hours", "is_active", "created_at", "available",
}

func mustTime(t *testing.T, s string) any {
	t.Helper()
	v, err := lot_models.ParseTimeOfDay(s)
	require.NoError(t, err)
	return v
}

func addLot(t *testing.T, rows *pgxmock.Rows, id, operatorID uuid.UUID, name string, lat, lon float64) *pgxmock.Rows {
	return rows.AddRow(id, operatorID, "Egesha Ltd", name, "Samora Ave", lat, lon, 20,
		"", mustTime(t, "06:00"), mustTime(t, "22:00"), true, time.Now(), 7)
}

func newTestRouter(t *testing.T, actor uuid.UUID) (pgxmock.PgxPoolIface, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	lc := NewLotController(mock)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("sub", actor.String()) })
	r.GET("/lots", lc.ListLots)
	r.PUT("/lots/:lot_id", lc.UpdateLot)
	r.GET("/lots/:lot_id/spots", lc.ListSpots)
	r.POST("/lots/:lot_id/spots", lc.CreateSpot)
	return mock, r
}

func request(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestSearchFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)
	tests := []struct {
		name      string
		query     string
		wantNear  bool
		wantAt    bool
		wantQuery string
	}{
		{"empty", "", false, false, ""},
		{"text", "q=+posta+", false, false, "posta"},
		{"full radius", "lat=-6.8&lon=39.28&radius=2", true, false, ""},
		{"radius missing", "lat=-6.8&lon=39.28", false, false, ""},
		{"radius malformed", "lat=-6.8&lon=abc&radius=2", false, false, ""},
		{"available at", "available_at=08:30", false, true, ""},
		{"available at malformed", "available_at=8.30am", false, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/lots?"+tt.query, nil)

			s := SearchFromQuery(c)
			assert.Equal(t, tt.wantQuery, s.Query)
			assert.Equal(t, tt.wantNear, s.Near != nil)
			assert.Equal(t, tt.wantAt, s.AvailableAt != nil)
		})
	}
}

func TestListLotsFiltersByRadius(t *testing.T) {
	mock, r := newTestRouter(t, uuid.New())
	near, far := uuid.New(), uuid.New()

	rows := pgxmock.NewRows(lotCols)
	addLot(t, rows, near, uuid.New(), "Posta Parking", -6.8200, 39.2850)
	addLot(t, rows, far, uuid.New(), "Arusha Clock Tower", -3.3869, 36.6830)
	mock.ExpectQuery("FROM parking_lots l").WithArgs().WillReturnRows(rows)

	w := request(r, http.MethodGet, "/lots?lat=-6.8161&lon=39.2804&radius=5", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Lots []map[string]any `json:"lots"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Lots, 1)
	assert.Equal(t, near.String(), resp.Lots[0]["id"])
	assert.Equal(t, "06:00:00", resp.Lots[0]["opening_hours"])
	assert.Equal(t, "Egesha Ltd", resp.Lots[0]["operator_name"])
	assert.Equal(t, 7.0, resp.Lots[0]["available_spots_count"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLotRequiresOwner(t *testing.T) {
	mock, r := newTestRouter(t, uuid.New())
	lotID := uuid.New()

	mock.ExpectQuery(`WHERE l.id = \$1`).WithArgs(lotID).
		WillReturnRows(addLot(t, pgxmock.NewRows(lotCols), lotID, uuid.New(), "Posta Parking", -6.82, 39.28))

	w := request(r, http.MethodPut, "/lots/"+lotID.String(), gin.H{
		"name": "Mine now", "address": "x", "total_spots": 5,
		"opening_hours": "06:00", "closing_hours": "22:00",
	})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateLotRejectsInvertedHours(t *testing.T) {
	operatorID := uuid.New()
	mock, r := newTestRouter(t, operatorID)
	lotID := uuid.New()

	mock.ExpectQuery(`WHERE l.id = \$1`).WithArgs(lotID).
		WillReturnRows(addLot(t, pgxmock.NewRows(lotCols), lotID, operatorID, "Posta Parking", -6.82, 39.28))

	w := request(r, http.MethodPut, "/lots/"+lotID.String(), gin.H{
		"name": "Posta Parking", "address": "Samora Ave", "total_spots": 20,
		"opening_hours": "22:00", "closing_hours": "06:00",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"opening hours must be before closing hours"}`, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateSpotDuplicateNumber(t *testing.T) {
	operatorID := uuid.New()
	mock, r := newTestRouter(t, operatorID)
	lotID := uuid.New()

	mock.ExpectQuery(`WHERE l.id = \$1`).WithArgs(lotID).
		WillReturnRows(addLot(t, pgxmock.NewRows(lotCols), lotID, operatorID, "Posta Parking", -6.82, 39.28))
	mock.ExpectExec("INSERT INTO parking_spots").
		WithArgs(pgxmock.AnyArg(), lotID, "A1", "standard", 1000.0, true).
		WillReturnError(&pgconn.PgError{Code: "23505"})

	w := request(r, http.MethodPost, "/lots/"+lotID.String()+"/spots", gin.H{
		"spot_number": "A1", "spot_type": "standard", "hourly_rate": 1000,
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSpotsDefaultsToAvailable(t *testing.T) {
	mock, r := newTestRouter(t, uuid.New())
	lotID := uuid.New()

	mock.ExpectQuery(`WHERE lot_id = \$1 AND is_available AND spot_type = \$2`).
		WithArgs(lotID, "electric").
		WillReturnRows(pgxmock.NewRows([]string{"id", "lot_id", "spot_number", "spot_type", "hourly_rate", "is_available"}).
			AddRow(uuid.New(), lotID, "E1", "electric", 1500.0, true))

	w := request(r, http.MethodGet, "/lots/"+lotID.String()+"/spots?type=electric", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"spot_number":"E1"`)
	assert.NoError(t, mock.ExpectationsWereMet())

	w = request(r, http.MethodGet, "/lots/"+lotID.String()+"/spots?type=helipad", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

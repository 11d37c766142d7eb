package vehicle_controller

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vehicleCols = []string{"id", "owner_id", "license_plate", "vehicle_type", "make", "model", "color"}

func setup(t *testing.T, owner uuid.UUID) (pgxmock.PgxPoolIface, *gin.Engine) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	vc := NewVehicleController(mock)
	r := gin.New()
	r.Use(func(c *gin.Context) { c.Set("sub", owner.String()) })
	r.POST("/vehicles", vc.CreateVehicle)
	r.GET("/vehicles/:vehicle_id", vc.GetVehicle)
	r.PATCH("/vehicles/:vehicle_id", vc.UpdateVehicle)
	return mock, r
}

func send(r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
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

func TestCreateVehicleAppliesDefaults(t *testing.T) {
	owner := uuid.New()
	mock, r := setup(t, owner)

	mock.ExpectExec("INSERT INTO vehicles").
		WithArgs(pgxmock.AnyArg(), owner, "T555XYZ", "sedan", "Unknown", "Unknown", "Unknown").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	w := send(r, http.MethodPost, "/vehicles", gin.H{"license_plate": " t555xyz"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"license_plate":"T555XYZ"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVehicleDuplicatePlate(t *testing.T) {
	owner := uuid.New()
	mock, r := setup(t, owner)
	mock.ExpectExec("INSERT INTO vehicles").
		WithArgs(pgxmock.AnyArg(), owner, "T555XYZ", "suv", "Unknown", "Unknown", "Unknown").
		WillReturnError(&pgconn.PgError{Code: "23505"})

	w := send(r, http.MethodPost, "/vehicles", gin.H{"license_plate": "T555XYZ", "vehicle_type": "suv"})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateVehicleRejectsUnknownType(t *testing.T) {
	mock, r := setup(t, uuid.New())

	w := send(r, http.MethodPost, "/vehicles", gin.H{"license_plate": "T555XYZ", "vehicle_type": "tank"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOtherOwnersVehicleIsHidden(t *testing.T) {
	mock, r := setup(t, uuid.New())
	id := uuid.New()

	mock.ExpectQuery(`FROM vehicles WHERE id = \$1`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows(vehicleCols).AddRow(id, uuid.New(), "T555XYZ", "sedan", "Toyota", "IST", "Blue"))

	w := send(r, http.MethodGet, "/vehicles/"+id.String(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateVehicleKeepsUnsetFields(t *testing.T) {
	owner := uuid.New()
	mock, r := setup(t, owner)
	id := uuid.New()

	mock.ExpectQuery(`FROM vehicles WHERE id = \$1`).WithArgs(id).
		WillReturnRows(pgxmock.NewRows(vehicleCols).AddRow(id, owner, "T555XYZ", "sedan", "Toyota", "IST", "Blue"))
	mock.ExpectExec("UPDATE vehicles").
		WithArgs(id, "T555XYZ", "sedan", "Toyota", "IST", "Red").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	w := send(r, http.MethodPatch, "/vehicles/"+id.String(), gin.H{"color": "Red"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

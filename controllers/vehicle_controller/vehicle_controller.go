package vehicle_controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/models/vehicle_models"
	"github.com/joy095/parking/utils"
)

// VehicleController manages the caller's own vehicles.
type VehicleController struct {
	DB db.Querier
}

func NewVehicleController(pool db.Querier) *VehicleController {
	return &VehicleController{DB: pool}
}

func (vc *VehicleController) ListVehicles(c *gin.Context) {
	ownerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}
	vehicles, err := vehicle_models.ListVehiclesByOwner(c.Request.Context(), vc.DB, ownerID)
	if err != nil {
		respondError(c, err, "Failed to list vehicles")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicles": vehicles})
}

func (vc *VehicleController) CreateVehicle(c *gin.Context) {
	ownerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var in vehicle_models.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	v, err := vehicle_models.NewVehicle(ownerID, in)
	if err != nil {
		respondError(c, err, "Failed to create vehicle")
		return
	}
	if err := vehicle_models.CreateVehicle(c.Request.Context(), vc.DB, v); err != nil {
		respondError(c, err, "Failed to create vehicle")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"vehicle": v})
}

func (vc *VehicleController) GetVehicle(c *gin.Context) {
	v, ok := vc.ownedVehicle(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

func (vc *VehicleController) UpdateVehicle(c *gin.Context) {
	v, ok := vc.ownedVehicle(c)
	if !ok {
		return
	}

	var in vehicle_models.VehicleInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := in.Apply(v); err != nil {
		respondError(c, err, "Failed to update vehicle")
		return
	}
	if err := vehicle_models.UpdateVehicle(c.Request.Context(), vc.DB, v); err != nil {
		respondError(c, err, "Failed to update vehicle")
		return
	}
	c.JSON(http.StatusOK, gin.H{"vehicle": v})
}

func (vc *VehicleController) DeleteVehicle(c *gin.Context) {
	v, ok := vc.ownedVehicle(c)
	if !ok {
		return
	}
	if err := vehicle_models.DeleteVehicle(c.Request.Context(), vc.DB, v.ID); err != nil {
		respondError(c, err, "Failed to delete vehicle")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Vehicle deleted"})
}

// ownedVehicle loads :vehicle_id. Vehicles of other users are reported as
// not found.
func (vc *VehicleController) ownedVehicle(c *gin.Context) (*vehicle_models.Vehicle, bool) {
	ownerID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return nil, false
	}
	id, err := uuid.Parse(c.Param("vehicle_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid vehicle ID format"})
		return nil, false
	}

	v, err := vehicle_models.GetVehicleByID(c.Request.Context(), vc.DB, id)
	if err != nil {
		respondError(c, err, "Failed to fetch vehicle")
		return nil, false
	}
	if v.OwnerID != ownerID {
		c.JSON(http.StatusNotFound, gin.H{"error": vehicle_models.ErrVehicleNotFound.Error()})
		return nil, false
	}
	return v, true
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, vehicle_models.ErrPlateRequired), errors.Is(err, vehicle_models.ErrInvalidVehicleType):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, vehicle_models.ErrVehicleNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, vehicle_models.ErrPlateTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("%s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

package lot_controller

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/parking/badwords"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/models/lot_models"
	"github.com/joy095/parking/models/review_models"
	"github.com/joy095/parking/utils"
)

// LotController serves parking lots, their spots and reviews.
type LotController struct {
	DB db.Querier
}

// NewLotController creates a new LotController
func NewLotController(pool db.Querier) *LotController {
	return &LotController{DB: pool}
}

// SearchFromQuery reads q, lat, lon, radius and available_at. Values that do
// not parse are ignored rather than rejected, and the radius filter only
// applies when all three of lat, lon and radius are usable.
func SearchFromQuery(c *gin.Context) lot_models.LotSearch {
	s := lot_models.LotSearch{Query: strings.TrimSpace(c.Query("q"))}

	if raw := c.Query("available_at"); raw != "" {
		if t, err := lot_models.ParseTimeOfDay(raw); err == nil {
			s.AvailableAt = &t
		} else {
			logger.WarnLogger.Warnf("Ignoring invalid available_at %q", raw)
		}
	}

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lon, lonErr := strconv.ParseFloat(c.Query("lon"), 64)
	radius, radErr := strconv.ParseFloat(c.Query("radius"), 64)
	if latErr == nil && lonErr == nil && radErr == nil && radius >= 0 {
		s.Near = &lot_models.GeoFilter{Latitude: lat, Longitude: lon, RadiusKm: radius}
	}
	return s
}

func (lc *LotController) ListLots(c *gin.Context) {
	lots, err := lot_models.ListParkingLots(c.Request.Context(), lc.DB, SearchFromQuery(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list parking lots"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"lots": lots})
}

func (lc *LotController) GetLot(c *gin.Context) {
	lotID, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	lot, err := lot_models.GetParkingLotByID(c.Request.Context(), lc.DB, lotID)
	if err != nil {
		respondError(c, err, "Failed to fetch parking lot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"lot": lot})
}

// CreateLot registers a lot owned by the calling operator.
func (lc *LotController) CreateLot(c *gin.Context) {
	operatorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var in lot_models.LotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lot, err := lot_models.NewParkingLot(operatorID, in)
	if err != nil {
		respondError(c, err, "Failed to create parking lot")
		return
	}
	if err := lot_models.CreateParkingLot(c.Request.Context(), lc.DB, lot); err != nil {
		respondError(c, err, "Failed to create parking lot")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Parking lot created", "lot": lot})
}

func (lc *LotController) UpdateLot(c *gin.Context) {
	lot, ok := lc.ownedLot(c)
	if !ok {
		return
	}

	var in lot_models.LotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := in.Apply(lot); err != nil {
		respondError(c, err, "Failed to update parking lot")
		return
	}
	if err := lot_models.UpdateParkingLot(c.Request.Context(), lc.DB, lot); err != nil {
		respondError(c, err, "Failed to update parking lot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parking lot updated", "lot": lot})
}

func (lc *LotController) DeleteLot(c *gin.Context) {
	lot, ok := lc.ownedLot(c)
	if !ok {
		return
	}
	if err := lot_models.DeleteParkingLot(c.Request.Context(), lc.DB, lot.ID); err != nil {
		respondError(c, err, "Failed to delete parking lot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parking lot deleted"})
}

// ListSpots returns the lot's available spots, or every spot with all=true.
func (lc *LotController) ListSpots(c *gin.Context) {
	lotID, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	spotType := c.Query("type")
	if spotType != "" && !lot_models.ValidSpotType(spotType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": lot_models.ErrInvalidSpotType.Error()})
		return
	}
	all, _ := strconv.ParseBool(c.Query("all"))

	spots, err := lot_models.ListSpotsByLot(c.Request.Context(), lc.DB, lotID, spotType, !all)
	if err != nil {
		respondError(c, err, "Failed to list parking spots")
		return
	}
	c.JSON(http.StatusOK, gin.H{"spots": spots})
}

func (lc *LotController) CreateSpot(c *gin.Context) {
	lot, ok := lc.ownedLot(c)
	if !ok {
		return
	}

	var in lot_models.SpotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	spot, err := lot_models.NewParkingSpot(lot.ID, in)
	if err != nil {
		respondError(c, err, "Failed to create parking spot")
		return
	}
	if err := lot_models.CreateParkingSpot(c.Request.Context(), lc.DB, spot); err != nil {
		respondError(c, err, "Failed to create parking spot")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Parking spot created", "spot": spot})
}

func (lc *LotController) UpdateSpot(c *gin.Context) {
	lot, ok := lc.ownedLot(c)
	if !ok {
		return
	}
	spotID, ok := parseID(c, "spot_id")
	if !ok {
		return
	}

	var u lot_models.SpotUpdate
	if err := c.ShouldBindJSON(&u); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	spot, err := lot_models.GetParkingSpotByID(ctx, lc.DB, spotID)
	if err != nil {
		respondError(c, err, "Failed to update parking spot")
		return
	}
	if spot.LotID != lot.ID {
		c.JSON(http.StatusNotFound, gin.H{"error": lot_models.ErrSpotNotFound.Error()})
		return
	}
	if err := u.Apply(spot); err != nil {
		respondError(c, err, "Failed to update parking spot")
		return
	}
	if err := lot_models.UpdateParkingSpot(ctx, lc.DB, spot); err != nil {
		respondError(c, err, "Failed to update parking spot")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Parking spot updated", "spot": spot})
}

func (lc *LotController) ListReviews(c *gin.Context) {
	lotID, ok := parseID(c, "lot_id")
	if !ok {
		return
	}
	reviews, err := review_models.ListReviewsByLot(c.Request.Context(), lc.DB, lotID)
	if err != nil {
		respondError(c, err, "Failed to list reviews")
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews})
}

// ownedLot loads :lot_id and checks that the caller operates it.
func (lc *LotController) ownedLot(c *gin.Context) (*lot_models.ParkingLot, bool) {
	operatorID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return nil, false
	}
	lotID, ok := parseID(c, "lot_id")
	if !ok {
		return nil, false
	}

	lot, err := lot_models.GetParkingLotByID(c.Request.Context(), lc.DB, lotID)
	if err != nil {
		respondError(c, err, "Failed to fetch parking lot")
		return nil, false
	}
	if lot.OperatorID != operatorID {
		logger.WarnLogger.Warnf("Operator %s tried to modify lot %s owned by %s", operatorID, lot.ID, lot.OperatorID)
		c.JSON(http.StatusForbidden, gin.H{"error": "You can only manage your own parking lots"})
		return nil, false
	}
	return lot, true
}

func parseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + strings.ReplaceAll(param, "_", " ") + " format"})
		return uuid.Nil, false
	}
	return id, true
}

func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, lot_models.ErrInvalidHours),
		errors.Is(err, lot_models.ErrInvalidTimeOfDay),
		errors.Is(err, lot_models.ErrInvalidTotalSpots),
		errors.Is(err, lot_models.ErrInvalidHourlyRate),
		errors.Is(err, lot_models.ErrInvalidSpotType),
		errors.Is(err, lot_models.ErrInvalidCoordinates),
		errors.Is(err, badwords.ErrContainsBadWords):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, lot_models.ErrLotNotFound), errors.Is(err, lot_models.ErrSpotNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, lot_models.ErrSpotNumberTaken):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("%s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

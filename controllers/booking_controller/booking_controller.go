package booking_controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/parking/badwords"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/middlewares/auth"
	"github.com/joy095/parking/models/booking_models"
	"github.com/joy095/parking/models/lot_models"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/models/review_models"
	"github.com/joy095/parking/models/vehicle_models"
	"github.com/joy095/parking/utils"
	"github.com/joy095/parking/utils/phone"
)

// BookingController exposes the booking workflows over HTTP.
type BookingController struct {
	Service *BookingService
}

// NewBookingController creates a new BookingController
func NewBookingController(service *BookingService) *BookingController {
	return &BookingController{Service: service}
}

type quickBookRequest struct {
	LicensePlate string    `json:"license_plate" binding:"required"`
	PhoneNumber  string    `json:"phone_number" binding:"required"`
	LotID        uuid.UUID `json:"parking_lot" binding:"required"`
	SpotID       uuid.UUID `json:"parking_spot" binding:"required"`
	StartTime    time.Time `json:"start_time" binding:"required"`
	EndTime      time.Time `json:"end_time" binding:"required"`
}

type createBookingRequest struct {
	SpotID    uuid.UUID `json:"parking_spot" binding:"required"`
	VehicleID uuid.UUID `json:"vehicle" binding:"required"`
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

type updateBookingRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	VehicleID *uuid.UUID `json:"vehicle"`
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment" binding:"max=1000"`
}

// QuickBook books a spot by license plate and confirms it immediately.
func (bc *BookingController) QuickBook(c *gin.Context) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req quickBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.QuickBook(c.Request.Context(), personID, QuickBookInput{
		LicensePlate: req.LicensePlate,
		ContactPhone: req.PhoneNumber,
		LotID:        req.LotID,
		SpotID:       req.SpotID,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
	})
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Booking confirmed", "booking": booking})
}

// CreateBooking books a spot for one of the caller's vehicles. The booking
// starts as pending.
func (bc *BookingController) CreateBooking(c *gin.Context) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.CreateBooking(c.Request.Context(), personID, CreateBookingInput{
		SpotID:    req.SpotID,
		VehicleID: req.VehicleID,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		respondError(c, err, "Failed to create booking")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Booking created", "booking": booking})
}

func (bc *BookingController) ListBookings(c *gin.Context) {
	person, ok := auth.CurrentPerson(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": utils.ErrUserIDNotFound.Error()})
		return
	}

	bookings, err := bc.Service.ListBookings(c.Request.Context(), person.ID, person.Role)
	if err != nil {
		respondError(c, err, "Failed to list bookings")
		return
	}
	c.JSON(http.StatusOK, gin.H{"bookings": bookings})
}

func (bc *BookingController) GetBooking(c *gin.Context) {
	personID, bookingID, ok := idsFromRequest(c)
	if !ok {
		return
	}

	booking, err := bc.Service.GetBooking(c.Request.Context(), personID, bookingID)
	if err != nil {
		respondError(c, err, "Failed to fetch booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"booking": booking})
}

func (bc *BookingController) UpdateBooking(c *gin.Context) {
	personID, bookingID, ok := idsFromRequest(c)
	if !ok {
		return
	}

	var req updateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking, err := bc.Service.UpdateBooking(c.Request.Context(), personID, bookingID, UpdateBookingInput{
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondError(c, err, "Failed to update booking")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Booking updated", "booking": booking})
}

// Confirm, Start, Complete and Cancel drive the booking status machine.
func (bc *BookingController) Confirm(c *gin.Context) {
	bc.transition(c, booking_models.StatusConfirmed, "Booking confirmed")
}

func (bc *BookingController) Start(c *gin.Context) {
	bc.transition(c, booking_models.StatusActive, "Booking started")
}

func (bc *BookingController) Complete(c *gin.Context) {
	bc.transition(c, booking_models.StatusCompleted, "Booking completed")
}

func (bc *BookingController) Cancel(c *gin.Context) {
	bc.transition(c, booking_models.StatusCancelled, "Booking cancelled")
}

func (bc *BookingController) transition(c *gin.Context, to booking_models.Status, message string) {
	personID, bookingID, ok := idsFromRequest(c)
	if !ok {
		return
	}

	booking, err := bc.Service.Transition(c.Request.Context(), personID, bookingID, to)
	if err != nil {
		respondError(c, err, "Failed to update booking status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "booking": booking})
}

func (bc *BookingController) AddReview(c *gin.Context) {
	personID, bookingID, ok := idsFromRequest(c)
	if !ok {
		return
	}

	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	review, err := bc.Service.AddReview(c.Request.Context(), personID, bookingID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, err, "Failed to save review")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"review": review})
}

func idsFromRequest(c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		return uuid.Nil, uuid.Nil, false
	}
	bookingID, err := uuid.Parse(c.Param("booking_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid booking ID format"})
		return uuid.Nil, uuid.Nil, false
	}
	return personID, bookingID, true
}

// respondError maps workflow errors onto HTTP statuses. Anything unknown is
// logged and reported as a generic 500.
func respondError(c *gin.Context, err error, fallback string) {
	switch {
	case errors.Is(err, booking_models.ErrInvalidTimeRange),
		errors.Is(err, ErrStartInPast),
		errors.Is(err, ErrDurationTooShort),
		errors.Is(err, ErrSpotNotInLot),
		errors.Is(err, ErrSpotUnavailable),
		errors.Is(err, vehicle_models.ErrPlateRequired),
		errors.Is(err, phone.ErrInvalidPhoneNumber),
		errors.Is(err, review_models.ErrInvalidRating),
		errors.Is(err, badwords.ErrContainsBadWords),
		errors.Is(err, ErrReviewNotAllowed):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, ErrVehicleNotOwned),
		errors.Is(err, ErrNotBookingParty):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, booking_models.ErrBookingNotFound),
		errors.Is(err, lot_models.ErrSpotNotFound),
		errors.Is(err, lot_models.ErrLotNotFound),
		errors.Is(err, vehicle_models.ErrVehicleNotFound),
		errors.Is(err, person_models.ErrPersonNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, booking_models.ErrAlreadyBooked),
		errors.Is(err, booking_models.ErrInvalidTransition),
		errors.Is(err, ErrBookingNotEditable),
		errors.Is(err, review_models.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logger.ErrorLogger.Errorf("%s: %v", fallback, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}

package booking_models

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrInvalidTimeRange  = errors.New("end time must be after start time")
	ErrAlreadyBooked     = errors.New("this parking spot is already booked for the selected time")
	ErrInvalidTransition = errors.New("booking cannot move to the requested status")
)

// allowed lists the statuses each status may move to.
var allowed = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusActive, StatusCompleted, StatusCancelled},
	StatusActive:    {StatusCompleted, StatusCancelled},
}

// CanTransition reports whether a booking in status from may move to to.
func CanTransition(from, to Status) bool {
	for _, s := range allowed[from] {
		if s == to {
			return true
		}
	}
	return false
}

// Blocking reports whether bookings in this status hold the spot.
func (s Status) Blocking() bool {
	return s == StatusConfirmed || s == StatusActive
}

// Booking is a reservation of a spot for a time window.
type Booking struct {
	ID           uuid.UUID `json:"id"`
	PersonID     uuid.UUID `json:"user"`
	SpotID       uuid.UUID `json:"parking_spot"`
	LotID        uuid.UUID `json:"parking_lot"`
	VehicleID    uuid.UUID `json:"vehicle"`
	OperatorID   uuid.UUID `json:"-"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	StartTime    time.Time `json:"start_time"`
	EndTime      time.Time `json:"end_time"`
	Cost         float64   `json:"cost"`
	Status       Status    `json:"status"`
	CreatedAt    time.Time `json:"booking_time"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Duration is the length of the booked window.
func (b *Booking) Duration() time.Duration {
	return b.EndTime.Sub(b.StartTime)
}

// CalculateCost charges every started hour at the hourly rate.
func CalculateCost(start, end time.Time, hourlyRate float64) (float64, error) {
	if !end.After(start) {
		return 0, ErrInvalidTimeRange
	}
	hours := math.Ceil(end.Sub(start).Seconds() / 3600)
	return hours * hourlyRate, nil
}

// CheckAvailability fails with ErrAlreadyBooked when a confirmed or active
// booking on the spot overlaps [start, end). Windows that only touch at an
// endpoint do not overlap. exclude skips one booking id; pass uuid.Nil for none.
func CheckAvailability(ctx context.Context, q db.Querier, spotID uuid.UUID, start, end time.Time, exclude uuid.UUID) error {
	var conflict bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE spot_id = $1
			  AND status IN ('confirmed', 'active')
			  AND start_time < $3
			  AND end_time > $2
			  AND id <> $4
		)`, spotID, start, end, exclude).Scan(&conflict)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check availability for spot %s: %v", spotID, err)
		return fmt.Errorf("failed to check availability: %w", err)
	}
	if conflict {
		logger.WarnLogger.Warnf("Spot %s already booked between %s and %s", spotID, start, end)
		return ErrAlreadyBooked
	}
	return nil
}

// SpotHeld reports whether any confirmed or active booking still holds the spot.
func SpotHeld(ctx context.Context, q db.Querier, spotID uuid.UUID) (bool, error) {
	var held bool
	err := q.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM bookings
			WHERE spot_id = $1 AND status IN ('confirmed', 'active')
		)`, spotID).Scan(&held)
	if err != nil {
		return false, fmt.Errorf("failed to check spot holds: %w", err)
	}
	return held, nil
}

// NewBooking creates an unsaved booking.
func NewBooking(personID, spotID, vehicleID uuid.UUID, start, end time.Time, cost float64, status Status) (*Booking, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for booking: %w", err)
	}
	now := time.Now()
	return &Booking{
		ID:        id,
		PersonID:  personID,
		SpotID:    spotID,
		VehicleID: vehicleID,
		StartTime: start,
		EndTime:   end,
		Cost:      cost,
		Status:    status,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CreateBooking inserts a booking record.
func CreateBooking(ctx context.Context, q db.Querier, b *Booking) error {
	logger.InfoLogger.Infof("Attempting to create booking record for spot ID: %s", b.SpotID)

	_, err := q.Exec(ctx, `
		INSERT INTO bookings (id, person_id, spot_id, vehicle_id, contact_phone, start_time, end_time,
			cost, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		b.ID, b.PersonID, b.SpotID, b.VehicleID, b.ContactPhone, b.StartTime, b.EndTime,
		b.Cost, string(b.Status), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if db.IsExclusionViolation(err) {
			return ErrAlreadyBooked
		}
		logger.ErrorLogger.Errorf("Failed to insert booking for spot %s: %v", b.SpotID, err)
		return fmt.Errorf("failed to create booking: %w", err)
	}

	logger.InfoLogger.Infof("Booking with ID %s created successfully for spot %s", b.ID, b.SpotID)
	return nil
}

const bookingSelect = `
	SELECT b.id, b.person_id, b.spot_id, s.lot_id, b.vehicle_id, l.operator_id, b.contact_phone,
		b.start_time, b.end_time, b.cost, b.status, b.created_at, b.updated_at
	FROM bookings b
	JOIN parking_spots s ON s.id = b.spot_id
	JOIN parking_lots l ON l.id = s.lot_id`

func scanBooking(row pgx.Row) (*Booking, error) {
	var (
		b      Booking
		status string
	)
	err := row.Scan(&b.ID, &b.PersonID, &b.SpotID, &b.LotID, &b.VehicleID, &b.OperatorID, &b.ContactPhone,
		&b.StartTime, &b.EndTime, &b.Cost, &status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

// GetBookingByID fetches a booking record by its ID.
func GetBookingByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(q.QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			logger.WarnLogger.Warnf("Booking with ID %s not found", id)
			return nil, ErrBookingNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch booking %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching booking: %w", err)
	}
	return b, nil
}

// GetBookingForUpdate fetches a booking and locks its row for the transaction.
func GetBookingForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*Booking, error) {
	b, err := scanBooking(tx.QueryRow(ctx, bookingSelect+` WHERE b.id = $1 FOR UPDATE OF b`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrBookingNotFound
		}
		return nil, fmt.Errorf("database error locking booking: %w", err)
	}
	return b, nil
}

func listBookings(ctx context.Context, q db.Querier, where string, arg any) ([]Booking, error) {
	rows, err := q.Query(ctx, bookingSelect+` WHERE `+where+` ORDER BY b.created_at DESC`, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	defer rows.Close()

	bookings := []Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan booking: %w", err)
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

// ListBookingsByPerson returns the motorist's bookings, newest first.
func ListBookingsByPerson(ctx context.Context, q db.Querier, personID uuid.UUID) ([]Booking, error) {
	return listBookings(ctx, q, `b.person_id = $1`, personID)
}

// ListBookingsByOperator returns bookings on any lot the operator owns, newest first.
func ListBookingsByOperator(ctx context.Context, q db.Querier, operatorID uuid.UUID) ([]Booking, error) {
	return listBookings(ctx, q, `l.operator_id = $1`, operatorID)
}

// UpdateBookingWindow stores a new time window and cost.
func UpdateBookingWindow(ctx context.Context, q db.Querier, b *Booking) error {
	b.UpdatedAt = time.Now()
	tag, err := q.Exec(ctx, `
		UPDATE bookings SET start_time = $2, end_time = $3, cost = $4, vehicle_id = $5, updated_at = $6
		WHERE id = $1`,
		b.ID, b.StartTime, b.EndTime, b.Cost, b.VehicleID, b.UpdatedAt)
	if err != nil {
		if db.IsExclusionViolation(err) {
			return ErrAlreadyBooked
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

// UpdateBookingStatus sets the booking's status.
func UpdateBookingStatus(ctx context.Context, q db.Querier, id uuid.UUID, status Status) error {
	tag, err := q.Exec(ctx, `UPDATE bookings SET status = $2, updated_at = NOW() WHERE id = $1`, id, string(status))
	if err != nil {
		if db.IsExclusionViolation(err) {
			return ErrAlreadyBooked
		}
		logger.ErrorLogger.Errorf("Failed to update status for booking %s: %v", id, err)
		return fmt.Errorf("failed to update booking status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrBookingNotFound
	}
	return nil
}

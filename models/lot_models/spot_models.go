package lot_models

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
)

// ParkingSpot is a single bookable space inside a lot.
type ParkingSpot struct {
	ID          uuid.UUID `json:"id"`
	LotID       uuid.UUID `json:"lot_id"`
	SpotNumber  string    `json:"spot_number"`
	SpotType    string    `json:"spot_type"`
	HourlyRate  float64   `json:"hourly_rate"`
	IsAvailable bool      `json:"is_available"`
}

// SpotInput is the payload for creating a spot.
type SpotInput struct {
	SpotNumber  string  `json:"spot_number" binding:"required,max=10"`
	SpotType    string  `json:"spot_type" binding:"required"`
	HourlyRate  float64 `json:"hourly_rate" binding:"required"`
	IsAvailable *bool   `json:"is_available"`
}

// SpotUpdate carries optional spot changes.
type SpotUpdate struct {
	SpotType    *string  `json:"spot_type"`
	HourlyRate  *float64 `json:"hourly_rate"`
	IsAvailable *bool    `json:"is_available"`
}

// NewParkingSpot validates the input and builds an unsaved spot.
func NewParkingSpot(lotID uuid.UUID, in SpotInput) (*ParkingSpot, error) {
	if !ValidSpotType(in.SpotType) {
		return nil, ErrInvalidSpotType
	}
	if in.HourlyRate <= 0 {
		return nil, ErrInvalidHourlyRate
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for spot: %w", err)
	}
	s := &ParkingSpot{
		ID:          id,
		LotID:       lotID,
		SpotNumber:  strings.TrimSpace(in.SpotNumber),
		SpotType:    in.SpotType,
		HourlyRate:  in.HourlyRate,
		IsAvailable: true,
	}
	if in.IsAvailable != nil {
		s.IsAvailable = *in.IsAvailable
	}
	return s, nil
}

// Apply validates the update and copies it onto the spot.
func (u SpotUpdate) Apply(s *ParkingSpot) error {
	if u.SpotType != nil {
		if !ValidSpotType(*u.SpotType) {
			return ErrInvalidSpotType
		}
		s.SpotType = *u.SpotType
	}
	if u.HourlyRate != nil {
		if *u.HourlyRate <= 0 {
			return ErrInvalidHourlyRate
		}
		s.HourlyRate = *u.HourlyRate
	}
	if u.IsAvailable != nil {
		s.IsAvailable = *u.IsAvailable
	}
	return nil
}

func CreateParkingSpot(ctx context.Context, q db.Querier, s *ParkingSpot) error {
	_, err := q.Exec(ctx, `
		INSERT INTO parking_spots (id, lot_id, spot_number, spot_type, hourly_rate, is_available)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		s.ID, s.LotID, s.SpotNumber, s.SpotType, s.HourlyRate, s.IsAvailable)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrSpotNumberTaken
		}
		logger.ErrorLogger.Errorf("Failed to insert spot %s in lot %s: %v", s.SpotNumber, s.LotID, err)
		return fmt.Errorf("failed to create parking spot: %w", err)
	}
	return nil
}

func UpdateParkingSpot(ctx context.Context, q db.Querier, s *ParkingSpot) error {
	tag, err := q.Exec(ctx, `
		UPDATE parking_spots SET spot_type = $2, hourly_rate = $3, is_available = $4
		WHERE id = $1`,
		s.ID, s.SpotType, s.HourlyRate, s.IsAvailable)
	if err != nil {
		return fmt.Errorf("failed to update parking spot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSpotNotFound
	}
	return nil
}

const spotColumns = `id, lot_id, spot_number, spot_type, hourly_rate, is_available`

func scanSpot(row pgx.Row) (*ParkingSpot, error) {
	var s ParkingSpot
	if err := row.Scan(&s.ID, &s.LotID, &s.SpotNumber, &s.SpotType, &s.HourlyRate, &s.IsAvailable); err != nil {
		return nil, err
	}
	return &s, nil
}

// GetParkingSpotByID fetches a spot without locking it.
func GetParkingSpotByID(ctx context.Context, q db.Querier, id uuid.UUID) (*ParkingSpot, error) {
	s, err := scanSpot(q.QueryRow(ctx, `SELECT `+spotColumns+` FROM parking_spots WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSpotNotFound
		}
		return nil, fmt.Errorf("database error fetching parking spot: %w", err)
	}
	return s, nil
}

// GetParkingSpotForUpdate fetches a spot and holds a row lock on it until the
// surrounding transaction ends. Concurrent bookings of the same spot queue here.
func GetParkingSpotForUpdate(ctx context.Context, tx pgx.Tx, id uuid.UUID) (*ParkingSpot, error) {
	s, err := scanSpot(tx.QueryRow(ctx, `SELECT `+spotColumns+` FROM parking_spots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrSpotNotFound
		}
		return nil, fmt.Errorf("database error locking parking spot: %w", err)
	}
	return s, nil
}

// ListSpotsByLot returns the lot's spots, optionally only available ones and
// only of one type.
func ListSpotsByLot(ctx context.Context, q db.Querier, lotID uuid.UUID, spotType string, onlyAvailable bool) ([]ParkingSpot, error) {
	sql := `SELECT ` + spotColumns + ` FROM parking_spots WHERE lot_id = $1`
	args := []any{lotID}
	if onlyAvailable {
		sql += ` AND is_available`
	}
	if spotType != "" {
		args = append(args, spotType)
		sql += fmt.Sprintf(` AND spot_type = $%d`, len(args))
	}
	sql += ` ORDER BY spot_number`

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list parking spots: %w", err)
	}
	defer rows.Close()

	spots := []ParkingSpot{}
	for rows.Next() {
		s, err := scanSpot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parking spot: %w", err)
		}
		spots = append(spots, *s)
	}
	return spots, rows.Err()
}

// SetSpotAvailability flips the spot's is_available flag.
func SetSpotAvailability(ctx context.Context, q db.Querier, id uuid.UUID, available bool) error {
	tag, err := q.Exec(ctx, `UPDATE parking_spots SET is_available = $2 WHERE id = $1`, id, available)
	if err != nil {
		return fmt.Errorf("failed to update spot availability: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrSpotNotFound
	}
	return nil
}

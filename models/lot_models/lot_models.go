package lot_models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/joy095/parking/badwords"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/utils/geo"
)

var (
	ErrLotNotFound        = errors.New("parking lot not found")
	ErrSpotNotFound       = errors.New("parking spot not found")
	ErrInvalidHours       = errors.New("opening hours must be before closing hours")
	ErrInvalidTimeOfDay   = errors.New("time of day must be HH:MM or HH:MM:SS")
	ErrInvalidTotalSpots  = errors.New("total spots must be at least 1")
	ErrInvalidHourlyRate  = errors.New("hourly rate must be greater than zero")
	ErrInvalidSpotType    = errors.New("invalid spot type")
	ErrSpotNumberTaken    = errors.New("spot number already exists in this lot")
	ErrInvalidCoordinates = errors.New("latitude must be within [-90,90] and longitude within [-180,180]")
)

var spotTypes = map[string]bool{
	"standard":   true,
	"compact":    true,
	"handicap":   true,
	"electric":   true,
	"motorcycle": true,
	"reserved":   true,
}

// ValidSpotType reports whether t is a known spot type.
func ValidSpotType(t string) bool { return spotTypes[t] }

// ParkingLot is an operator-managed site.
type ParkingLot struct {
	ID                  uuid.UUID   `json:"id"`
	OperatorID          uuid.UUID   `json:"operator_id"`
	OperatorName        string      `json:"operator_name"`
	Name                string      `json:"name"`
	Address             string      `json:"address"`
	Latitude            float64     `json:"latitude"`
	Longitude           float64     `json:"longitude"`
	TotalSpots          int         `json:"total_spots"`
	Description         string      `json:"description"`
	OpeningHours        pgtype.Time `json:"-"`
	ClosingHours        pgtype.Time `json:"-"`
	IsActive            bool        `json:"is_active"`
	AvailableSpotsCount int         `json:"available_spots_count"`
	CreatedAt           time.Time   `json:"created_at"`
}

// Coordinates lets lots be filtered with geo.FilterWithinRadius.
func (l ParkingLot) Coordinates() (float64, float64) {
	return l.Latitude, l.Longitude
}

var _ geo.Locatable = ParkingLot{}

func (l ParkingLot) MarshalJSON() ([]byte, error) {
	type alias ParkingLot
	return json.Marshal(struct {
		alias
		OpeningHours string `json:"opening_hours"`
		ClosingHours string `json:"closing_hours"`
	}{
		alias:        alias(l),
		OpeningHours: FormatTimeOfDay(l.OpeningHours),
		ClosingHours: FormatTimeOfDay(l.ClosingHours),
	})
}

// OpenAt reports whether t falls within the lot's opening hours, inclusive.
func (l ParkingLot) OpenAt(t pgtype.Time) bool {
	return l.OpeningHours.Microseconds <= t.Microseconds && t.Microseconds <= l.ClosingHours.Microseconds
}

// ParseTimeOfDay accepts "HH:MM" or "HH:MM:SS".
func ParseTimeOfDay(s string) (pgtype.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			d := time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute + time.Duration(t.Second())*time.Second
			return pgtype.Time{Microseconds: d.Microseconds(), Valid: true}, nil
		}
	}
	return pgtype.Time{}, ErrInvalidTimeOfDay
}

// FormatTimeOfDay renders t as HH:MM:SS, or "" when unset.
func FormatTimeOfDay(t pgtype.Time) string {
	if !t.Valid {
		return ""
	}
	d := time.Duration(t.Microseconds) * time.Microsecond
	h := int(d / time.Hour)
	m := int(d % time.Hour / time.Minute)
	s := int(d % time.Minute / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// LotInput is the writable part of a lot.
type LotInput struct {
	Name         string  `json:"name" binding:"required,max=50"`
	Address      string  `json:"address" binding:"required,max=100"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	TotalSpots   int     `json:"total_spots" binding:"required"`
	Description  string  `json:"description" binding:"max=500"`
	OpeningHours string  `json:"opening_hours" binding:"required"`
	ClosingHours string  `json:"closing_hours" binding:"required"`
	IsActive     *bool   `json:"is_active"`
}

// Apply validates the input and copies it onto the lot.
func (in LotInput) Apply(l *ParkingLot) error {
	if in.TotalSpots < 1 {
		return ErrInvalidTotalSpots
	}
	if in.Latitude < -90 || in.Latitude > 90 || in.Longitude < -180 || in.Longitude > 180 {
		return ErrInvalidCoordinates
	}
	opening, err := ParseTimeOfDay(in.OpeningHours)
	if err != nil {
		return err
	}
	closing, err := ParseTimeOfDay(in.ClosingHours)
	if err != nil {
		return err
	}
	if opening.Microseconds >= closing.Microseconds {
		return ErrInvalidHours
	}
	if err := badwords.Check(in.Name + " " + in.Description); err != nil {
		return err
	}

	l.Name = strings.TrimSpace(in.Name)
	l.Address = strings.TrimSpace(in.Address)
	l.Latitude = in.Latitude
	l.Longitude = in.Longitude
	l.TotalSpots = in.TotalSpots
	l.Description = in.Description
	l.OpeningHours = opening
	l.ClosingHours = closing
	if in.IsActive != nil {
		l.IsActive = *in.IsActive
	}
	return nil
}

// NewParkingLot builds an unsaved lot owned by the operator.
func NewParkingLot(operatorID uuid.UUID, in LotInput) (*ParkingLot, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for lot: %w", err)
	}
	l := &ParkingLot{ID: id, OperatorID: operatorID, IsActive: true, CreatedAt: time.Now()}
	if err := in.Apply(l); err != nil {
		return nil, err
	}
	return l, nil
}

// CreateParkingLot inserts a lot.
func CreateParkingLot(ctx context.Context, q db.Querier, l *ParkingLot) error {
	logger.InfoLogger.Infof("Creating parking lot %s for operator %s", l.ID, l.OperatorID)

	_, err := q.Exec(ctx, `
		INSERT INTO parking_lots (id, operator_id, name, address, latitude, longitude, total_spots,
			description, opening_hours, closing_hours, is_active, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		l.ID, l.OperatorID, l.Name, l.Address, l.Latitude, l.Longitude, l.TotalSpots,
		l.Description, l.OpeningHours, l.ClosingHours, l.IsActive, l.CreatedAt)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to insert parking lot %s: %v", l.ID, err)
		return fmt.Errorf("failed to create parking lot: %w", err)
	}
	return nil
}

// UpdateParkingLot overwrites the lot's writable columns.
func UpdateParkingLot(ctx context.Context, q db.Querier, l *ParkingLot) error {
	tag, err := q.Exec(ctx, `
		UPDATE parking_lots
		SET name = $2, address = $3, latitude = $4, longitude = $5, total_spots = $6,
			description = $7, opening_hours = $8, closing_hours = $9, is_active = $10
		WHERE id = $1`,
		l.ID, l.Name, l.Address, l.Latitude, l.Longitude, l.TotalSpots,
		l.Description, l.OpeningHours, l.ClosingHours, l.IsActive)
	if err != nil {
		return fmt.Errorf("failed to update parking lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

// DeleteParkingLot removes the lot and, by cascade, its spots.
func DeleteParkingLot(ctx context.Context, q db.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM parking_lots WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete parking lot: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLotNotFound
	}
	return nil
}

const lotSelect = `
	SELECT l.id, l.operator_id, COALESCE(o.company_name, ''), l.name, l.address,
		l.latitude, l.longitude, l.total_spots, l.description,
		l.opening_hours, l.closing_hours, l.is_active, l.created_at,
		(SELECT COUNT(*) FROM parking_spots s WHERE s.lot_id = l.id AND s.is_available)
	FROM parking_lots l
	LEFT JOIN operator_profiles o ON o.person_id = l.operator_id`

func scanLot(row pgx.Row) (*ParkingLot, error) {
	var l ParkingLot
	err := row.Scan(&l.ID, &l.OperatorID, &l.OperatorName, &l.Name, &l.Address,
		&l.Latitude, &l.Longitude, &l.TotalSpots, &l.Description,
		&l.OpeningHours, &l.ClosingHours, &l.IsActive, &l.CreatedAt,
		&l.AvailableSpotsCount)
	if err != nil {
		return nil, err
	}
	return &l, nil
}

// GetParkingLotByID returns a lot with its operator name and free spot count.
func GetParkingLotByID(ctx context.Context, q db.Querier, id uuid.UUID) (*ParkingLot, error) {
	l, err := scanLot(q.QueryRow(ctx, lotSelect+` WHERE l.id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrLotNotFound
		}
		logger.ErrorLogger.Errorf("Failed to fetch parking lot %s: %v", id, err)
		return nil, fmt.Errorf("database error fetching parking lot: %w", err)
	}
	return l, nil
}

// LotSearch narrows ListParkingLots. Zero values disable a filter.
type LotSearch struct {
	Query       string
	AvailableAt *pgtype.Time
	Near        *GeoFilter
}

// GeoFilter keeps lots within RadiusKm of a reference point.
type GeoFilter struct {
	Latitude  float64
	Longitude float64
	RadiusKm  float64
}

// ListParkingLots returns lots matching the text and time filters in SQL,
// then applies the radius filter in memory.
func ListParkingLots(ctx context.Context, q db.Querier, s LotSearch) ([]ParkingLot, error) {
	var (
		where []string
		args  []any
	)
	if s.Query != "" {
		args = append(args, "%"+s.Query+"%")
		where = append(where, fmt.Sprintf("(l.name ILIKE $%d OR l.address ILIKE $%d)", len(args), len(args)))
	}
	if s.AvailableAt != nil {
		args = append(args, *s.AvailableAt)
		where = append(where, fmt.Sprintf("l.opening_hours <= $%d AND l.closing_hours >= $%d", len(args), len(args)))
	}

	sql := lotSelect
	if len(where) > 0 {
		sql += " WHERE " + strings.Join(where, " AND ")
	}
	sql += " ORDER BY l.created_at DESC"

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to list parking lots: %v", err)
		return nil, fmt.Errorf("failed to list parking lots: %w", err)
	}
	defer rows.Close()

	lots := []ParkingLot{}
	for rows.Next() {
		l, err := scanLot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parking lot: %w", err)
		}
		lots = append(lots, *l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if s.Near != nil {
		lots = geo.FilterWithinRadius(lots, s.Near.Latitude, s.Near.Longitude, s.Near.RadiusKm)
	}
	return lots, nil
}

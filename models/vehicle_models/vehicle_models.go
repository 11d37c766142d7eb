package vehicle_models

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
)

const (
	DefaultVehicleType = "sedan"
	UnknownAttribute   = "Unknown"
)

var (
	ErrVehicleNotFound    = errors.New("vehicle not found")
	ErrPlateRequired      = errors.New("license plate is required")
	ErrPlateTaken         = errors.New("vehicle with this license plate already registered")
	ErrInvalidVehicleType = errors.New("invalid vehicle type")
)

var vehicleTypes = map[string]bool{
	"sedan": true, "suv": true, "truck": true, "motorcycle": true, "van": true, "other": true,
}

// Vehicle is a motorist's registered car, bike or truck.
type Vehicle struct {
	ID           uuid.UUID `json:"id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	LicensePlate string    `json:"license_plate"`
	VehicleType  string    `json:"vehicle_type"`
	Make         string    `json:"make"`
	Model        string    `json:"model"`
	Color        string    `json:"color"`
}

// VehicleInput is the create/update payload. Empty fields fall back to defaults on create.
type VehicleInput struct {
	LicensePlate string `json:"license_plate"`
	VehicleType  string `json:"vehicle_type"`
	Make         string `json:"make" binding:"max=30"`
	Model        string `json:"model" binding:"max=30"`
	Color        string `json:"color" binding:"max=30"`
}

// NormalizePlate trims and upper-cases a license plate.
func NormalizePlate(raw string) (string, error) {
	plate := strings.ToUpper(strings.TrimSpace(raw))
	if plate == "" {
		return "", ErrPlateRequired
	}
	return plate, nil
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// NewVehicle validates the input and builds an unsaved vehicle.
func NewVehicle(ownerID uuid.UUID, in VehicleInput) (*Vehicle, error) {
	plate, err := NormalizePlate(in.LicensePlate)
	if err != nil {
		return nil, err
	}
	vt := orDefault(strings.ToLower(in.VehicleType), DefaultVehicleType)
	if !vehicleTypes[vt] {
		return nil, ErrInvalidVehicleType
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate UUID for vehicle: %w", err)
	}
	return &Vehicle{
		ID:           id,
		OwnerID:      ownerID,
		LicensePlate: plate,
		VehicleType:  vt,
		Make:         orDefault(in.Make, UnknownAttribute),
		Model:        orDefault(in.Model, UnknownAttribute),
		Color:        orDefault(in.Color, UnknownAttribute),
	}, nil
}

// Apply copies the non-empty fields of in onto v.
func (in VehicleInput) Apply(v *Vehicle) error {
	if in.LicensePlate != "" {
		plate, err := NormalizePlate(in.LicensePlate)
		if err != nil {
			return err
		}
		v.LicensePlate = plate
	}
	if in.VehicleType != "" {
		vt := strings.ToLower(in.VehicleType)
		if !vehicleTypes[vt] {
			return ErrInvalidVehicleType
		}
		v.VehicleType = vt
	}
	v.Make = orDefault(in.Make, v.Make)
	v.Model = orDefault(in.Model, v.Model)
	v.Color = orDefault(in.Color, v.Color)
	return nil
}

func CreateVehicle(ctx context.Context, q db.Querier, v *Vehicle) error {
	_, err := q.Exec(ctx, `
		INSERT INTO vehicles (id, owner_id, license_plate, vehicle_type, make, model, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		v.ID, v.OwnerID, v.LicensePlate, v.VehicleType, v.Make, v.Model, v.Color)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPlateTaken
		}
		logger.ErrorLogger.Errorf("Failed to insert vehicle %s: %v", v.LicensePlate, err)
		return fmt.Errorf("failed to create vehicle: %w", err)
	}
	return nil
}

// GetOrCreateByPlate returns the id of the owner's vehicle with this plate,
// creating it with default attributes when missing.
func GetOrCreateByPlate(ctx context.Context, q db.Querier, ownerID uuid.UUID, rawPlate string) (uuid.UUID, error) {
	v, err := NewVehicle(ownerID, VehicleInput{LicensePlate: rawPlate})
	if err != nil {
		return uuid.Nil, err
	}

	// The no-op update makes RETURNING yield the existing row on conflict.
	var id uuid.UUID
	err = q.QueryRow(ctx, `
		INSERT INTO vehicles (id, owner_id, license_plate, vehicle_type, make, model, color)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (owner_id, license_plate) DO UPDATE SET license_plate = EXCLUDED.license_plate
		RETURNING id`,
		v.ID, v.OwnerID, v.LicensePlate, v.VehicleType, v.Make, v.Model, v.Color).Scan(&id)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to resolve vehicle %s for %s: %v", v.LicensePlate, ownerID, err)
		return uuid.Nil, fmt.Errorf("failed to resolve vehicle: %w", err)
	}
	return id, nil
}

const vehicleColumns = `id, owner_id, license_plate, vehicle_type, make, model, color`

func scanVehicle(row pgx.Row) (*Vehicle, error) {
	var v Vehicle
	if err := row.Scan(&v.ID, &v.OwnerID, &v.LicensePlate, &v.VehicleType, &v.Make, &v.Model, &v.Color); err != nil {
		return nil, err
	}
	return &v, nil
}

func GetVehicleByID(ctx context.Context, q db.Querier, id uuid.UUID) (*Vehicle, error) {
	v, err := scanVehicle(q.QueryRow(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = $1`, id))
	if err != nil {
		if db.IsNoRows(err) {
			return nil, ErrVehicleNotFound
		}
		return nil, fmt.Errorf("database error fetching vehicle: %w", err)
	}
	return v, nil
}

func ListVehiclesByOwner(ctx context.Context, q db.Querier, ownerID uuid.UUID) ([]Vehicle, error) {
	rows, err := q.Query(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE owner_id = $1 ORDER BY license_plate`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

func UpdateVehicle(ctx context.Context, q db.Querier, v *Vehicle) error {
	tag, err := q.Exec(ctx, `
		UPDATE vehicles SET license_plate = $2, vehicle_type = $3, make = $4, model = $5, color = $6
		WHERE id = $1`,
		v.ID, v.LicensePlate, v.VehicleType, v.Make, v.Model, v.Color)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrPlateTaken
		}
		return fmt.Errorf("failed to update vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

func DeleteVehicle(ctx context.Context, q db.Querier, id uuid.UUID) error {
	tag, err := q.Exec(ctx, `DELETE FROM vehicles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vehicle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrVehicleNotFound
	}
	return nil
}

package booking_controller

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/metrics"
	"github.com/joy095/parking/models/booking_models"
	"github.com/joy095/parking/models/lot_models"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/models/review_models"
	"github.com/joy095/parking/models/vehicle_models"
	"github.com/joy095/parking/utils/mail"
	"github.com/joy095/parking/utils/phone"
)

// MinimumQuickBookingDuration is the shortest window a quick booking may cover.
const MinimumQuickBookingDuration = 5 * time.Minute

var (
	ErrStartInPast        = errors.New("cannot book for past times")
	ErrDurationTooShort   = errors.New("minimum booking duration is 5 minutes")
	ErrSpotNotInLot       = errors.New("spot does not belong to the selected parking lot")
	ErrSpotUnavailable    = errors.New("this parking spot is not currently available")
	ErrVehicleNotOwned    = errors.New("you can only book with a vehicle registered to your account")
	ErrNotBookingParty    = errors.New("you are not allowed to access this booking")
	ErrBookingNotEditable = errors.New("only pending or confirmed bookings can be changed")
	ErrReviewNotAllowed   = errors.New("only active or completed bookings can be reviewed")
)

// BookingService runs the booking workflows. Each operation is a single
// database transaction.
type BookingService struct {
	DB       db.TxBeginner
	Notifier mail.Notifier
	Now      func() time.Time
}

func NewBookingService(pool db.TxBeginner, notifier mail.Notifier) *BookingService {
	return &BookingService{DB: pool, Notifier: notifier, Now: time.Now}
}

func (s *BookingService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

// QuickBookInput books a spot by license plate, creating the vehicle if needed.
type QuickBookInput struct {
	LicensePlate string
	ContactPhone string
	LotID        uuid.UUID
	SpotID       uuid.UUID
	StartTime    time.Time
	EndTime      time.Time
}

// QuickBook creates a confirmed booking and marks the spot unavailable.
func (s *BookingService) QuickBook(ctx context.Context, personID uuid.UUID, in QuickBookInput) (*booking_models.Booking, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, booking_models.ErrInvalidTimeRange
	}
	if in.StartTime.Before(s.now()) {
		return nil, ErrStartInPast
	}
	if in.EndTime.Sub(in.StartTime) < MinimumQuickBookingDuration {
		return nil, ErrDurationTooShort
	}
	plate, err := vehicle_models.NormalizePlate(in.LicensePlate)
	if err != nil {
		return nil, err
	}
	contact, err := phone.Normalize(in.ContactPhone)
	if err != nil {
		return nil, err
	}

	var booking *booking_models.Booking
	err = db.WithinTransaction(ctx, s.DB, func(tx pgx.Tx) error {
		vehicleID, err := vehicle_models.GetOrCreateByPlate(ctx, tx, personID, plate)
		if err != nil {
			return err
		}

		spot, err := lot_models.GetParkingSpotForUpdate(ctx, tx, in.SpotID)
		if err != nil {
			return err
		}
		if spot.LotID != in.LotID {
			return ErrSpotNotInLot
		}
		if !spot.IsAvailable {
			return ErrSpotUnavailable
		}

		if err := booking_models.CheckAvailability(ctx, tx, spot.ID, in.StartTime, in.EndTime, uuid.Nil); err != nil {
			return err
		}

		cost, err := booking_models.CalculateCost(in.StartTime, in.EndTime, spot.HourlyRate)
		if err != nil {
			return err
		}

		b, err := booking_models.NewBooking(personID, spot.ID, vehicleID, in.StartTime, in.EndTime, cost, booking_models.StatusConfirmed)
		if err != nil {
			return err
		}
		b.LotID = spot.LotID
		b.ContactPhone = contact
		if err := booking_models.CreateBooking(ctx, tx, b); err != nil {
			return err
		}

		if err := lot_models.SetSpotAvailability(ctx, tx, spot.ID, false); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	metrics.BookingsCreated.WithLabelValues("quick").Inc()
	logger.InfoLogger.Infof("Quick booking %s confirmed for spot %s", booking.ID, booking.SpotID)
	s.notifyOperator(booking.ID)
	return booking, nil
}

// CreateBookingInput books a spot with one of the caller's registered vehicles.
type CreateBookingInput struct {
	SpotID    uuid.UUID
	VehicleID uuid.UUID
	StartTime time.Time
	EndTime   time.Time
}

// CreateBooking creates a pending booking. The spot stays available until
// the booking is confirmed.
func (s *BookingService) CreateBooking(ctx context.Context, personID uuid.UUID, in CreateBookingInput) (*booking_models.Booking, error) {
	if !in.EndTime.After(in.StartTime) {
		return nil, booking_models.ErrInvalidTimeRange
	}

	var booking *booking_models.Booking
	err := db.WithinTransaction(ctx, s.DB, func(tx pgx.Tx) error {
		if err := checkVehicleOwner(ctx, tx, in.VehicleID, personID); err != nil {
			return err
		}

		spot, err := lot_models.GetParkingSpotForUpdate(ctx, tx, in.SpotID)
		if err != nil {
			return err
		}
		if !spot.IsAvailable {
			return ErrSpotUnavailable
		}
		if err := booking_models.CheckAvailability(ctx, tx, spot.ID, in.StartTime, in.EndTime, uuid.Nil); err != nil {
			return err
		}

		cost, err := booking_models.CalculateCost(in.StartTime, in.EndTime, spot.HourlyRate)
		if err != nil {
			return err
		}
		b, err := booking_models.NewBooking(personID, spot.ID, in.VehicleID, in.StartTime, in.EndTime, cost, booking_models.StatusPending)
		if err != nil {
			return err
		}
		b.LotID = spot.LotID
		if err := booking_models.CreateBooking(ctx, tx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	metrics.BookingsCreated.WithLabelValues("standard").Inc()
	return booking, nil
}

func checkVehicleOwner(ctx context.Context, q db.Querier, vehicleID, personID uuid.UUID) error {
	v, err := vehicle_models.GetVehicleByID(ctx, q, vehicleID)
	if err != nil {
		return err
	}
	if v.OwnerID != personID {
		return ErrVehicleNotOwned
	}
	return nil
}

// UpdateBookingInput carries optional changes to a booking.
type UpdateBookingInput struct {
	StartTime *time.Time
	EndTime   *time.Time
	VehicleID *uuid.UUID
}

// UpdateBooking moves a booking's window or vehicle, re-checking overlap
// against every other booking and recomputing the cost.
func (s *BookingService) UpdateBooking(ctx context.Context, personID, bookingID uuid.UUID, in UpdateBookingInput) (*booking_models.Booking, error) {
	var booking *booking_models.Booking
	err := db.WithinTransaction(ctx, s.DB, func(tx pgx.Tx) error {
		b, err := booking_models.GetBookingForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.PersonID != personID {
			return ErrNotBookingParty
		}
		if b.Status != booking_models.StatusPending && b.Status != booking_models.StatusConfirmed {
			return ErrBookingNotEditable
		}

		if in.StartTime != nil {
			b.StartTime = *in.StartTime
		}
		if in.EndTime != nil {
			b.EndTime = *in.EndTime
		}
		if in.VehicleID != nil && *in.VehicleID != b.VehicleID {
			if err := checkVehicleOwner(ctx, tx, *in.VehicleID, personID); err != nil {
				return err
			}
			b.VehicleID = *in.VehicleID
		}

		spot, err := lot_models.GetParkingSpotForUpdate(ctx, tx, b.SpotID)
		if err != nil {
			return err
		}
		cost, err := booking_models.CalculateCost(b.StartTime, b.EndTime, spot.HourlyRate)
		if err != nil {
			return err
		}
		if err := booking_models.CheckAvailability(ctx, tx, b.SpotID, b.StartTime, b.EndTime, b.ID); err != nil {
			return err
		}
		b.Cost = cost
		if err := booking_models.UpdateBookingWindow(ctx, tx, b); err != nil {
			return err
		}
		booking = b
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}
	return booking, nil
}

// Transition moves a booking to status to. The motorist who made the booking
// and the operator of its lot may both drive it.
func (s *BookingService) Transition(ctx context.Context, actorID, bookingID uuid.UUID, to booking_models.Status) (*booking_models.Booking, error) {
	var booking *booking_models.Booking
	err := db.WithinTransaction(ctx, s.DB, func(tx pgx.Tx) error {
		b, err := booking_models.GetBookingForUpdate(ctx, tx, bookingID)
		if err != nil {
			return err
		}
		if b.PersonID != actorID && b.OperatorID != actorID {
			return ErrNotBookingParty
		}
		if !booking_models.CanTransition(b.Status, to) {
			return booking_models.ErrInvalidTransition
		}

		switch to {
		case booking_models.StatusConfirmed:
			if _, err := lot_models.GetParkingSpotForUpdate(ctx, tx, b.SpotID); err != nil {
				return err
			}
			if err := booking_models.CheckAvailability(ctx, tx, b.SpotID, b.StartTime, b.EndTime, b.ID); err != nil {
				return err
			}
			if err := booking_models.UpdateBookingStatus(ctx, tx, b.ID, to); err != nil {
				return err
			}
			if err := lot_models.SetSpotAvailability(ctx, tx, b.SpotID, false); err != nil {
				return err
			}
		case booking_models.StatusCompleted, booking_models.StatusCancelled:
			if err := s.finish(ctx, tx, b, to); err != nil {
				return err
			}
		default:
			if err := booking_models.UpdateBookingStatus(ctx, tx, b.ID, to); err != nil {
				return err
			}
		}

		b.Status = to
		booking = b
		return nil
	})
	if err != nil {
		s.countConflict(err)
		return nil, err
	}

	metrics.BookingTransitions.WithLabelValues(string(to)).Inc()
	logger.InfoLogger.Infof("Booking %s moved to %s by %s", booking.ID, to, actorID)
	if to == booking_models.StatusConfirmed {
		s.notifyOperator(booking.ID)
	}
	return booking, nil
}

// finish closes a booking. A spot taken by a confirmed or active booking is
// given back only when no other such booking still holds it.
func (s *BookingService) finish(ctx context.Context, tx pgx.Tx, b *booking_models.Booking, to booking_models.Status) error {
	if !b.Status.Blocking() {
		return booking_models.UpdateBookingStatus(ctx, tx, b.ID, to)
	}
	if _, err := lot_models.GetParkingSpotForUpdate(ctx, tx, b.SpotID); err != nil {
		return err
	}
	if err := booking_models.UpdateBookingStatus(ctx, tx, b.ID, to); err != nil {
		return err
	}
	held, err := booking_models.SpotHeld(ctx, tx, b.SpotID)
	if err != nil {
		return err
	}
	if held {
		logger.InfoLogger.Infof("Spot %s stays taken after booking %s was %s", b.SpotID, b.ID, to)
		return nil
	}
	return lot_models.SetSpotAvailability(ctx, tx, b.SpotID, true)
}

// GetBooking returns a booking visible to the caller.
func (s *BookingService) GetBooking(ctx context.Context, actorID, bookingID uuid.UUID) (*booking_models.Booking, error) {
	b, err := booking_models.GetBookingByID(ctx, s.DB, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PersonID != actorID && b.OperatorID != actorID {
		return nil, ErrNotBookingParty
	}
	return b, nil
}

// ListBookings returns a motorist's own bookings or the bookings on an
// operator's lots.
func (s *BookingService) ListBookings(ctx context.Context, actorID uuid.UUID, role person_models.Role) ([]booking_models.Booking, error) {
	if role == person_models.RoleOperator {
		return booking_models.ListBookingsByOperator(ctx, s.DB, actorID)
	}
	return booking_models.ListBookingsByPerson(ctx, s.DB, actorID)
}

// AddReview rates one of the caller's own bookings.
func (s *BookingService) AddReview(ctx context.Context, personID, bookingID uuid.UUID, rating int, comment string) (*review_models.Review, error) {
	b, err := booking_models.GetBookingByID(ctx, s.DB, bookingID)
	if err != nil {
		return nil, err
	}
	if b.PersonID != personID {
		return nil, ErrNotBookingParty
	}
	if b.Status != booking_models.StatusActive && b.Status != booking_models.StatusCompleted {
		return nil, ErrReviewNotAllowed
	}

	r, err := review_models.NewReview(b.ID, personID, rating, comment)
	if err != nil {
		return nil, err
	}
	if err := review_models.CreateReview(ctx, s.DB, r); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *BookingService) countConflict(err error) {
	if errors.Is(err, booking_models.ErrAlreadyBooked) {
		metrics.BookingConflicts.Inc()
	}
}

// notifyOperator e-mails the lot operator in the background. Failures are
// only logged.
func (s *BookingService) notifyOperator(bookingID uuid.UUID) {
	if s.Notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		data, err := s.bookingEmail(ctx, bookingID)
		if err != nil {
			logger.WarnLogger.Warnf("Skipping notification for booking %s: %v", bookingID, err)
			return
		}
		if data.To == "" {
			return
		}
		if err := s.Notifier.SendBookingNotification(data); err != nil {
			logger.ErrorLogger.Errorf("Failed to notify operator about booking %s: %v", bookingID, err)
		}
	}()
}

func (s *BookingService) bookingEmail(ctx context.Context, bookingID uuid.UUID) (mail.BookingEmail, error) {
	b, err := booking_models.GetBookingByID(ctx, s.DB, bookingID)
	if err != nil {
		return mail.BookingEmail{}, err
	}
	operator, err := person_models.GetPersonByID(ctx, s.DB, b.OperatorID)
	if err != nil {
		return mail.BookingEmail{}, err
	}
	lot, err := lot_models.GetParkingLotByID(ctx, s.DB, b.LotID)
	if err != nil {
		return mail.BookingEmail{}, err
	}
	spot, err := lot_models.GetParkingSpotByID(ctx, s.DB, b.SpotID)
	if err != nil {
		return mail.BookingEmail{}, err
	}
	vehicle, err := vehicle_models.GetVehicleByID(ctx, s.DB, b.VehicleID)
	if err != nil {
		return mail.BookingEmail{}, err
	}

	data := mail.BookingEmail{
		LotName:      lot.Name,
		SpotNumber:   spot.SpotNumber,
		LicensePlate: vehicle.LicensePlate,
		Start:        b.StartTime.Format("2006-01-02 15:04"),
		End:          b.EndTime.Format("2006-01-02 15:04"),
		Cost:         b.Cost,
		ContactPhone: b.ContactPhone,
		BookingID:    b.ID.String(),
	}
	if operator.Operator != nil {
		data.To = operator.Operator.BusinessEmail
		data.CompanyName = operator.Operator.CompanyName
	}
	return data, nil
}

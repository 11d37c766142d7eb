package review_models

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/joy095/parking/badwords"
	"github.com/joy095/parking/config/db"
)

var (
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrAlreadyReviewed = errors.New("booking already reviewed")
)

// Review is a motorist's rating of a finished or ongoing booking.
type Review struct {
	ID        uuid.UUID `json:"id"`
	BookingID uuid.UUID `json:"booking"`
	PersonID  uuid.UUID `json:"user"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}

func NewReview(bookingID, personID uuid.UUID, rating int, comment string) (*Review, error) {
	if rating < 1 || rating > 5 {
		return nil, ErrInvalidRating
	}
	comment = strings.TrimSpace(comment)
	if err := badwords.Check(comment); err != nil {
		return nil, err
	}
	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	return &Review{
		ID:        id,
		BookingID: bookingID,
		PersonID:  personID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: time.Now(),
	}, nil
}

func CreateReview(ctx context.Context, q db.Querier, r *Review) error {
	_, err := q.Exec(ctx, `
		INSERT INTO reviews (id, booking_id, person_id, rating, comment, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		r.ID, r.BookingID, r.PersonID, r.Rating, r.Comment, r.CreatedAt)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrAlreadyReviewed
		}
		return fmt.Errorf("failed to create review: %w", err)
	}
	return nil
}

// ListReviewsByLot returns reviews of bookings on the lot's spots, newest first.
func ListReviewsByLot(ctx context.Context, q db.Querier, lotID uuid.UUID) ([]Review, error) {
	rows, err := q.Query(ctx, `
		SELECT r.id, r.booking_id, r.person_id, r.rating, r.comment, r.created_at
		FROM reviews r
		JOIN bookings b ON b.id = r.booking_id
		JOIN parking_spots s ON s.id = b.spot_id
		WHERE s.lot_id = $1
		ORDER BY r.created_at DESC`, lotID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	reviews := []Review{}
	for rows.Next() {
		var r Review
		if err := rows.Scan(&r.ID, &r.BookingID, &r.PersonID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, err
		}
		reviews = append(reviews, r)
	}
	return reviews, rows.Err()
}

package review_models

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/joy095/parking/badwords"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReviewRatingBounds(t *testing.T) {
	for _, r := range []int{0, 6, -1} {
		_, err := NewReview(uuid.New(), uuid.New(), r, "")
		assert.ErrorIs(t, err, ErrInvalidRating)
	}
	for r := 1; r <= 5; r++ {
		rv, err := NewReview(uuid.New(), uuid.New(), r, "  clean and safe ")
		require.NoError(t, err)
		assert.Equal(t, "clean and safe", rv.Comment)
	}
}

func TestCreateReviewDuplicate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	r, err := NewReview(uuid.New(), uuid.New(), 4, "")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO reviews").
		WithArgs(r.ID, r.BookingID, r.PersonID, 4, "", r.CreatedAt).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	assert.ErrorIs(t, CreateReview(context.Background(), mock, r), ErrAlreadyReviewed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNewReviewRejectsInappropriateComment(t *testing.T) {
	_, err := NewReview(uuid.New(), uuid.New(), 1, "total SCAM, avoid")
	assert.ErrorIs(t, err, badwords.ErrContainsBadWords)
}

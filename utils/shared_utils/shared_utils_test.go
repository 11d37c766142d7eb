package shared_utils

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisclient "github.com/joy095/parking/config/redis"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr := miniredis.RunT(t)
	redisclient.SetClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	return mr
}

func TestOTPLifecycle(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()
	key := REGISTRATION_OTP_PREFIX + "255712345678"

	require.NoError(t, StoreOTP(ctx, key, "123456"))

	stored, err := mr.Get(key)
	require.NoError(t, err)
	assert.NotEqual(t, "123456", stored, "otp must be stored hashed")
	assert.Equal(t, OTP_EXPIRATION_MINUTES*time.Minute, mr.TTL(key))

	assert.ErrorIs(t, VerifyOTP(ctx, key, "654321"), ErrOTPMismatch)
	require.NoError(t, VerifyOTP(ctx, key, "123456"))

	// consumed
	assert.ErrorIs(t, VerifyOTP(ctx, key, "123456"), ErrOTPNotFound)
}

func TestOTPExpires(t *testing.T) {
	mr := setupRedis(t)
	ctx := context.Background()
	key := REGISTRATION_OTP_PREFIX + "255700000000"

	require.NoError(t, StoreOTP(ctx, key, "111111"))
	mr.FastForward(OTP_EXPIRATION_MINUTES*time.Minute + time.Second)

	_, err := RetrieveOTP(ctx, key)
	assert.ErrorIs(t, err, ErrOTPNotFound)
}

func TestRefreshTokenRotation(t *testing.T) {
	setupRedis(t)
	ctx := context.Background()
	person := "0190f1b4-0000-7000-8000-000000000001"

	for i := 0; i < MAX_REFRESH_TOKENS_PER_USER+2; i++ {
		id, err := GenerateTinyID(12)
		require.NoError(t, err)
		require.NoError(t, StoreRefreshToken(ctx, person, id))
		if i == 0 {
			ok, err := HasRefreshToken(ctx, person, id)
			require.NoError(t, err)
			assert.True(t, ok)
		}
	}

	require.NoError(t, StoreRefreshToken(ctx, person, "latest"))
	ok, err := HasRefreshToken(ctx, person, "latest")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, RevokeRefreshToken(ctx, person, "latest"))
	ok, err = HasRefreshToken(ctx, person, "latest")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGenerateTinyID(t *testing.T) {
	id, err := GenerateTinyID(12)
	require.NoError(t, err)
	assert.Len(t, id, 12)

	_, err = GenerateTinyID(0)
	assert.Error(t, err)
}

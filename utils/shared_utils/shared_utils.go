package shared_utils

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"time"

	redisclient "github.com/joy095/parking/config/redis"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/utils"
	"github.com/redis/go-redis/v9"
)

const (
	OTP_EXPIRATION_MINUTES      = 15
	REFRESH_TOKEN_EXP_HOURS     = 30 * 24
	MAX_REFRESH_TOKENS_PER_USER = 5
)

const (
	REGISTRATION_OTP_PREFIX = "registration_otp:"
	REFRESH_TOKEN_PREFIX    = "refresh_token:"
)

var (
	// ErrOTPNotFound is returned when an OTP is not found or expired.
	ErrOTPNotFound = errors.New("otp not found or expired")
	ErrOTPMismatch = errors.New("invalid otp")
)

// StoreOTP keeps the argon2 hash of otp under key for OTP_EXPIRATION_MINUTES.
func StoreOTP(ctx context.Context, key string, otp string) error {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}

	if err := rdb.Set(ctx, key, utils.HashOTP(otp), OTP_EXPIRATION_MINUTES*time.Minute).Err(); err != nil {
		logger.ErrorLogger.Errorf("Failed to store OTP with key %s: %v", key, err)
		return fmt.Errorf("failed to store OTP: %w", err)
	}
	return nil
}

// RetrieveOTP returns the stored OTP hash.
func RetrieveOTP(ctx context.Context, key string) (string, error) {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to init redis client: %w", err)
	}

	storedHash, err := rdb.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrOTPNotFound
		}
		logger.ErrorLogger.Errorf("Failed to retrieve OTP for key %s: %v", key, err)
		return "", fmt.Errorf("failed to retrieve OTP: %w", err)
	}

	return storedHash, nil
}

// VerifyOTP compares otp with the stored hash and consumes it on success, so a
// code can only be used once.
func VerifyOTP(ctx context.Context, key string, otp string) error {
	storedHash, err := RetrieveOTP(ctx, key)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(storedHash), []byte(utils.HashOTP(otp))) != 1 {
		return ErrOTPMismatch
	}
	return ClearOTP(ctx, key)
}

// ClearOTP from Redis
func ClearOTP(ctx context.Context, key string) error {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}

	if delErr := rdb.Del(ctx, key).Err(); delErr != nil {
		logger.ErrorLogger.Errorf("Failed to clear OTP for key %s: %v", key, delErr)
		return fmt.Errorf("failed to clear OTP: %w", delErr)
	}

	return nil
}

// StoreRefreshToken records an issued refresh token id for the person and
// trims the set to MAX_REFRESH_TOKENS_PER_USER most recent entries.
func StoreRefreshToken(ctx context.Context, personID, jti string) error {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}

	key := REFRESH_TOKEN_PREFIX + personID
	now := float64(time.Now().UnixNano())

	pipe := rdb.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: now, Member: jti})
	pipe.ZRemRangeByRank(ctx, key, 0, -MAX_REFRESH_TOKENS_PER_USER-1)
	pipe.Expire(ctx, key, REFRESH_TOKEN_EXP_HOURS*time.Hour)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// HasRefreshToken reports whether jti is still an active refresh token.
func HasRefreshToken(ctx context.Context, personID, jti string) (bool, error) {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return false, fmt.Errorf("failed to init redis client: %w", err)
	}

	_, err = rdb.ZScore(ctx, REFRESH_TOKEN_PREFIX+personID, jti).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check refresh token: %w", err)
	}
	return true, nil
}

// RevokeRefreshToken removes one refresh token id.
func RevokeRefreshToken(ctx context.Context, personID, jti string) error {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}
	return rdb.ZRem(ctx, REFRESH_TOKEN_PREFIX+personID, jti).Err()
}

// RevokeAllRefreshTokens drops every refresh token of the person.
func RevokeAllRefreshTokens(ctx context.Context, personID string) error {
	rdb, err := redisclient.GetRedisClient(ctx)
	if err != nil {
		return fmt.Errorf("failed to init redis client: %w", err)
	}
	return rdb.Del(ctx, REFRESH_TOKEN_PREFIX+personID).Err()
}

const charset = "0123456789-abcdefghijklmnopqrstuvwxyz"

func GenerateTinyID(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	if length > 1000 {
		return "", fmt.Errorf("length too large")
	}
	result := make([]byte, length)
	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to generate random number: %v", err)
			return "", fmt.Errorf("failed to generate random number: %w", err)
		}
		result[i] = charset[num.Int64()]
	}
	return string(result), nil
}

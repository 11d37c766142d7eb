package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"os"

	"github.com/joy095/parking/logger"
	"golang.org/x/crypto/argon2"
)

func GetJWTSecret() []byte {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		logger.WarnLogger.Warn("JWT_SECRET environment variable not set.")
		return []byte("default-insecure-secret-only-for-development")
	}
	return []byte(secret)
}

func GetJWTRefreshSecret() []byte {
	secret := os.Getenv("JWT_SECRET_REFRESH")
	if secret == "" {
		logger.WarnLogger.Warn("JWT_SECRET_REFRESH environment variable not set.")
		return []byte("default-insecure--refresh-secret-only-for-development")
	}
	return []byte(secret)
}

// GenerateSecureOTP returns a random six digit code in [100000, 999999].
func GenerateSecureOTP() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+100000), nil
}

func HashOTP(otp string) string {
	salt := []byte(otpSalt())
	hashed := argon2.IDKey([]byte(otp), salt, 1, 64*1024, 4, 32)
	return fmt.Sprintf("%x", hashed)
}

func otpSalt() string {
	if s := os.Getenv("OTP_SALT"); s != "" {
		return s
	}
	return "some_random_salt"
}

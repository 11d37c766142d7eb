package shared_models

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/utils"
	"github.com/joy095/parking/utils/shared_utils"
)

const (
	REFRESH_TOKEN_EXPIRY = time.Hour * 24 * 30
	ACCESS_TOKEN_EXPIRY  = time.Hour * 1

	REFRESH_TOKEN_COOKIE = "refresh_token"
)

const (
	TokenTypeAccess  = "access"
	TokenTypeRefresh = "refresh"
)

var (
	ErrTokenRevoked = errors.New("token version mismatch: token has been revoked")
	ErrTokenType    = errors.New("invalid token: type mismatch")
)

// GenerateUUIDv7 generates a new time-ordered UUID.
func GenerateUUIDv7() (uuid.UUID, error) {
	return uuid.NewV7()
}

// Claims represents the JWT claims shared by access and refresh tokens.
type Claims struct {
	UserID       uuid.UUID `json:"sub"`
	Role         string    `json:"role"`
	Type         string    `json:"type"`
	TokenVersion int       `json:"token_version"`
	jwt.RegisteredClaims
}

func secretFor(tokenType string) ([]byte, error) {
	switch tokenType {
	case TokenTypeAccess:
		return utils.GetJWTSecret(), nil
	case TokenTypeRefresh:
		return utils.GetJWTRefreshSecret(), nil
	default:
		return nil, fmt.Errorf("unknown token type %q", tokenType)
	}
}

func generateToken(userID uuid.UUID, role, tokenType string, tokenVersion int, duration time.Duration) (string, string, error) {
	now := time.Now()

	jti, err := shared_utils.GenerateTinyID(12)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate jti: %w", err)
	}

	claims := Claims{
		UserID:       userID,
		Role:         role,
		Type:         tokenType,
		TokenVersion: tokenVersion,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(duration)),
		},
	}

	secret, err := secretFor(tokenType)
	if err != nil {
		return "", "", err
	}

	tokenString, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		logger.ErrorLogger.Errorf("failed to sign %s token: %v", tokenType, err)
		return "", "", fmt.Errorf("failed to sign %s token: %w", tokenType, err)
	}
	return tokenString, jti, nil
}

// GenerateAccessToken creates a short-lived access token.
func GenerateAccessToken(userID uuid.UUID, role string, tokenVersion int, duration time.Duration) (string, error) {
	token, _, err := generateToken(userID, role, TokenTypeAccess, tokenVersion, duration)
	return token, err
}

// GenerateRefreshTokenWithJTI creates a refresh token and returns its jti so
// the caller can record it.
func GenerateRefreshTokenWithJTI(userID uuid.UUID, role string, tokenVersion int, duration time.Duration) (string, string, error) {
	return generateToken(userID, role, TokenTypeRefresh, tokenVersion, duration)
}

// ParseToken validates tokenString as a token of expectedType and checks its
// version against the person's current one.
func ParseToken(tokenString, expectedType string, userTokenVersionFetcher func(userID uuid.UUID) (int, error)) (*Claims, error) {
	if userTokenVersionFetcher == nil {
		logger.ErrorLogger.Error("nil userTokenVersionFetcher provided to ParseToken")
		return nil, fmt.Errorf("token validation failed: misconfiguration")
	}

	secret, err := secretFor(expectedType)
	if err != nil {
		return nil, err
	}

	claims := &Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(30*time.Second),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return secret, nil
	})
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to parse and validate token: %v", err)
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	if claims.UserID == uuid.Nil {
		return nil, fmt.Errorf("invalid token: user ID missing")
	}
	if claims.Type != expectedType {
		logger.ErrorLogger.Errorf("Token type mismatch: expected %s, got %s", expectedType, claims.Type)
		return nil, ErrTokenType
	}

	currentVersion, err := userTokenVersionFetcher(claims.UserID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to fetch current token version for user %s: %v", claims.UserID, err)
		return nil, fmt.Errorf("token validation failed: cannot retrieve user token version")
	}
	if claims.TokenVersion != currentVersion {
		logger.WarnLogger.Warnf("Token for user %s with version %d is older than current version %d. Token revoked.", claims.UserID, claims.TokenVersion, currentVersion)
		return nil, ErrTokenRevoked
	}

	return claims, nil
}

// SetJWTCookie sets an HttpOnly cookie carrying a token.
func SetJWTCookie(c *gin.Context, name, value string, expiry time.Duration, path string) {
	useSecure := shouldUseSecureCookies()

	sameSite := http.SameSiteNoneMode
	if !useSecure {
		// Browsers reject SameSite=None cookies without Secure
		sameSite = http.SameSiteLaxMode
	}

	cookie := &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     path,
		Expires:  time.Now().Add(expiry),
		MaxAge:   int(expiry.Seconds()),
		HttpOnly: true,
		Secure:   useSecure,
		SameSite: sameSite,
	}
	if domain := getCookieDomain(); domain != "" {
		cookie.Domain = domain
	}

	http.SetCookie(c.Writer, cookie)
}

// RemoveJWTCookie expires a token cookie immediately.
func RemoveJWTCookie(c *gin.Context, name, path string) {
	SetJWTCookie(c, name, "", -time.Second, path)
}

func shouldUseSecureCookies() bool {
	if secure := os.Getenv("COOKIE_SECURE"); secure != "" {
		return strings.ToLower(secure) == "true"
	}
	env := strings.ToLower(os.Getenv("ENV"))
	return env == "production" || env == "prod" || env == "staging"
}

func getCookieDomain() string {
	return strings.TrimSpace(os.Getenv("COOKIE_DOMAIN"))
}

package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/models/shared_models"
)

const (
	ContextPersonKey = "person"
	ContextRoleKey   = "role"
)

// AuthMiddleware validates the bearer access token and its token version,
// requires a verified phone number and stores the person in the context.
func AuthMiddleware(q db.Querier) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if len(authHeader) <= 7 || !strings.EqualFold(authHeader[:7], "bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "NO_TOKEN", "error": "No authorization token provided."})
			return
		}
		rawToken := strings.TrimSpace(authHeader[7:])

		var person *person_models.Person
		claims, err := shared_models.ParseToken(rawToken, shared_models.TokenTypeAccess, func(id uuid.UUID) (int, error) {
			p, err := person_models.GetPersonByID(c.Request.Context(), q, id)
			if err != nil {
				return 0, err
			}
			person = p
			return p.TokenVersion, nil
		})
		if err != nil {
			if errors.Is(err, shared_models.ErrTokenRevoked) {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session expired. Please log in again."})
				return
			}
			logger.WarnLogger.Warnf("Rejected access token: %v", err)
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "INVALID_TOKEN", "error": "Invalid or expired token."})
			return
		}

		if !person.IsPhoneVerified {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "PHONE_NOT_VERIFIED", "error": "Phone number not verified."})
			return
		}

		c.Set("sub", claims.UserID.String())
		c.Set(ContextRoleKey, string(person.Role))
		c.Set(ContextPersonKey, person)
		c.Next()
	}
}

// RequireRole lets the request through only for the given roles. It must run
// after AuthMiddleware.
func RequireRole(roles ...person_models.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := person_models.Role(c.GetString(ContextRoleKey))
		for _, r := range roles {
			if role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "ACCESS_DENIED", "error": "You do not have permission to perform this action."})
	}
}

// CurrentPerson returns the person stored by AuthMiddleware.
func CurrentPerson(c *gin.Context) (*person_models.Person, bool) {
	v, ok := c.Get(ContextPersonKey)
	if !ok {
		return nil, false
	}
	p, ok := v.(*person_models.Person)
	return p, ok
}

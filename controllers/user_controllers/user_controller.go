package user_controllers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/logger"
	"github.com/joy095/parking/metrics"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/models/shared_models"
	"github.com/joy095/parking/utils"
	"github.com/joy095/parking/utils/phone"
	"github.com/joy095/parking/utils/shared_utils"
)

// UserController handles registration, login and profile requests for
// motorists and operators.
type UserController struct {
	DB  db.TxBeginner
	SMS clients.SMSSender
}

// NewUserController creates a new UserController
func NewUserController(pool db.TxBeginner, sms clients.SMSSender) *UserController {
	return &UserController{DB: pool, SMS: sms}
}

type registerRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	FirstName   string `json:"first_name" binding:"required,max=150"`
	LastName    string `json:"last_name" binding:"max=150"`
	Password    string `json:"password" binding:"required,min=8"`
}

type operatorRegisterRequest struct {
	registerRequest
	CompanyName       string `json:"company_name" binding:"required,max=30"`
	BusinessTelephone string `json:"business_telephone"`
	BusinessEmail     string `json:"business_email" binding:"omitempty,email,max=50"`
	Address           string `json:"address" binding:"max=50"`
	City              string `json:"city" binding:"max=50"`
}

// Register creates a motorist account and sends an OTP to verify the phone.
func (uc *UserController) Register(c *gin.Context) {
	logger.InfoLogger.Info("Register handler called")

	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorLogger.Error("Invalid register payload: " + err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person, err := person_models.NewMotorist(phoneNumber, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Password)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to build motorist: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	uc.register(c, person)
}

// OperatorRegister creates a parking operator account.
func (uc *UserController) OperatorRegister(c *gin.Context) {
	logger.InfoLogger.Info("OperatorRegister handler called")

	var req operatorRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.ErrorLogger.Error("Invalid operator register payload: " + err.Error())
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	businessPhone := req.BusinessTelephone
	if businessPhone != "" {
		if businessPhone, err = phone.Normalize(businessPhone); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_telephone: " + err.Error()})
			return
		}
	}

	person, err := person_models.NewOperator(phoneNumber, strings.TrimSpace(req.FirstName), strings.TrimSpace(req.LastName), req.Password,
		person_models.OperatorProfile{
			CompanyName:       strings.TrimSpace(req.CompanyName),
			BusinessTelephone: businessPhone,
			BusinessEmail:     req.BusinessEmail,
			Address:           req.Address,
			City:              req.City,
		})
	if err != nil {
		if errors.Is(err, person_models.ErrCompanyNameRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		logger.ErrorLogger.Errorf("Failed to build operator: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	uc.register(c, person)
}

func (uc *UserController) register(c *gin.Context, person *person_models.Person) {
	ctx := c.Request.Context()

	taken, err := person_models.IsPhoneRegistered(ctx, uc.DB, person.PhoneNumber)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check phone number: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}
	if taken {
		c.JSON(http.StatusConflict, gin.H{"error": "Phone number already registered"})
		return
	}

	err = db.WithinTransaction(ctx, uc.DB, func(tx pgx.Tx) error {
		return person_models.CreatePerson(ctx, tx, person)
	})
	if err != nil {
		if errors.Is(err, person_models.ErrPhoneTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Phone number already registered"})
			return
		}
		logger.ErrorLogger.Errorf("Failed to create %s: %v", person.Role, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to register"})
		return
	}

	if err := uc.sendOTP(ctx, person.PhoneNumber); err != nil {
		logger.ErrorLogger.Errorf("Failed to send OTP to new %s %s: %v", person.Role, person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP"})
		return
	}

	logger.InfoLogger.Infof("%s %s registered, OTP sent", person.Role, person.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful. An OTP has been sent to your phone number.",
		"user": gin.H{
			"id":           person.ID,
			"phone_number": person.PhoneNumber,
			"role":         person.Role,
		},
	})
}

func (uc *UserController) sendOTP(ctx context.Context, phoneNumber string) error {
	otp, err := utils.GenerateSecureOTP()
	if err != nil {
		return fmt.Errorf("failed to generate OTP: %w", err)
	}
	if err := shared_utils.StoreOTP(ctx, shared_utils.REGISTRATION_OTP_PREFIX+phoneNumber, otp); err != nil {
		return err
	}
	if err := uc.SMS.Send(ctx, phoneNumber, clients.OTPMessage(otp)); err != nil {
		metrics.OTPsSent.WithLabelValues("failed").Inc()
		return err
	}
	metrics.OTPsSent.WithLabelValues("sent").Inc()
	return nil
}

type phoneRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
}

// VerifyOTP marks the phone number as verified and logs the person in.
func (uc *UserController) VerifyOTP(c *gin.Context) {
	logger.InfoLogger.Info("VerifyOTP handler called")

	var req struct {
		phoneRequest
		OTP string `json:"otp" binding:"required,len=6"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	person, err := person_models.GetPersonByPhone(ctx, uc.DB, phoneNumber)
	if err != nil {
		if errors.Is(err, person_models.ErrPersonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	if err := shared_utils.VerifyOTP(ctx, shared_utils.REGISTRATION_OTP_PREFIX+phoneNumber, req.OTP); err != nil {
		switch {
		case errors.Is(err, shared_utils.ErrOTPNotFound):
			c.JSON(http.StatusBadRequest, gin.H{"error": "OTP expired or not found"})
		case errors.Is(err, shared_utils.ErrOTPMismatch):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid OTP"})
		default:
			logger.ErrorLogger.Errorf("Failed to verify OTP for %s: %v", person.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
		}
		return
	}

	if err := person_models.MarkPhoneVerified(ctx, uc.DB, person.ID); err != nil {
		logger.ErrorLogger.Errorf("Failed to mark phone verified for %s: %v", person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to verify OTP"})
		return
	}
	person.IsPhoneVerified = true

	uc.issueTokens(c, person, "Phone number verified successfully")
}

// ResendOTP sends a fresh OTP to an unverified phone number.
func (uc *UserController) ResendOTP(c *gin.Context) {
	var req phoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	person, err := person_models.GetPersonByPhone(ctx, uc.DB, phoneNumber)
	if err != nil {
		if errors.Is(err, person_models.ErrPersonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if person.IsPhoneVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Phone number already verified"})
		return
	}

	if err := uc.sendOTP(ctx, phoneNumber); err != nil {
		logger.ErrorLogger.Errorf("Failed to resend OTP to %s: %v", person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send OTP"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "A new OTP has been sent to your phone number."})
}

type loginRequest struct {
	PhoneNumber string `json:"phone_number" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// Login authenticates a motorist.
func (uc *UserController) Login(c *gin.Context) {
	uc.login(c, person_models.RoleMotorist)
}

// OperatorLogin authenticates a parking operator.
func (uc *UserController) OperatorLogin(c *gin.Context) {
	uc.login(c, person_models.RoleOperator)
}

func (uc *UserController) login(c *gin.Context, role person_models.Role) {
	logger.InfoLogger.Infof("Login handler called for %s", role)

	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	phoneNumber, err := phone.Normalize(req.PhoneNumber)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	person, err := person_models.Authenticate(c.Request.Context(), uc.DB, phoneNumber, req.Password, role)
	if err != nil {
		switch {
		case errors.Is(err, person_models.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid phone number or password"})
		case errors.Is(err, person_models.ErrWrongRole):
			c.JSON(http.StatusForbidden, gin.H{"error": fmt.Sprintf("This account is not registered as %s", role)})
		default:
			logger.ErrorLogger.Errorf("Login failed: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		}
		return
	}

	if !person.IsPhoneVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Phone number not verified"})
		return
	}

	uc.issueTokens(c, person, "Login successful")
}

func (uc *UserController) issueTokens(c *gin.Context, person *person_models.Person, message string) {
	role := string(person.Role)

	accessToken, err := shared_models.GenerateAccessToken(person.ID, role, person.TokenVersion, shared_models.ACCESS_TOKEN_EXPIRY)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	refreshToken, jti, err := shared_models.GenerateRefreshTokenWithJTI(person.ID, role, person.TokenVersion, shared_models.REFRESH_TOKEN_EXPIRY)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}
	if err := shared_utils.StoreRefreshToken(c.Request.Context(), person.ID.String(), jti); err != nil {
		logger.ErrorLogger.Errorf("Failed to store refresh token for %s: %v", person.ID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store refresh token"})
		return
	}

	shared_models.SetJWTCookie(c, shared_models.REFRESH_TOKEN_COOKIE, refreshToken, shared_models.REFRESH_TOKEN_EXPIRY, "/")

	logger.InfoLogger.Infof("Tokens issued for %s %s", role, person.ID)
	c.JSON(http.StatusOK, gin.H{
		"message":       message,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user":          profileJSON(person),
	})
}

// RefreshToken rotates a refresh token and returns a new access token.
func (uc *UserController) RefreshToken(c *gin.Context) {
	logger.InfoLogger.Info("RefreshToken function called")

	refreshToken, _ := c.Cookie(shared_models.REFRESH_TOKEN_COOKIE)
	if refreshToken == "" {
		var body struct {
			RefreshToken string `json:"refresh_token"`
		}
		_ = c.ShouldBindJSON(&body)
		refreshToken = body.RefreshToken
	}
	if refreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No refresh token provided"})
		return
	}

	ctx := c.Request.Context()
	claims, err := shared_models.ParseToken(refreshToken, shared_models.TokenTypeRefresh, func(id uuid.UUID) (int, error) {
		return person_models.GetTokenVersion(ctx, uc.DB, id)
	})
	if err != nil {
		if errors.Is(err, shared_models.ErrTokenRevoked) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Token revoked, please log in again"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired refresh token"})
		return
	}

	personID := claims.UserID.String()
	ok, err := shared_utils.HasRefreshToken(ctx, personID, claims.ID)
	if err != nil {
		logger.ErrorLogger.Errorf("Failed to check refresh token for %s: %v", personID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}
	if !ok {
		logger.WarnLogger.Warnf("Unknown or reused refresh token for %s", personID)
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}
	if err := shared_utils.RevokeRefreshToken(ctx, personID, claims.ID); err != nil {
		logger.WarnLogger.Warnf("Failed to revoke old refresh token for %s: %v", personID, err)
	}

	accessToken, err := shared_models.GenerateAccessToken(claims.UserID, claims.Role, claims.TokenVersion, shared_models.ACCESS_TOKEN_EXPIRY)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}
	newRefresh, jti, err := shared_models.GenerateRefreshTokenWithJTI(claims.UserID, claims.Role, claims.TokenVersion, shared_models.REFRESH_TOKEN_EXPIRY)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate refresh token"})
		return
	}
	if err := shared_utils.StoreRefreshToken(ctx, personID, jti); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store refresh token"})
		return
	}

	shared_models.SetJWTCookie(c, shared_models.REFRESH_TOKEN_COOKIE, newRefresh, shared_models.REFRESH_TOKEN_EXPIRY, "/")
	c.JSON(http.StatusOK, gin.H{
		"message":       "Tokens refreshed successfully",
		"access_token":  accessToken,
		"refresh_token": newRefresh,
	})
}

// Logout revokes every token issued to the caller.
func (uc *UserController) Logout(c *gin.Context) {
	logger.InfoLogger.Info("Logout controller called")

	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	ctx := c.Request.Context()
	if err := shared_utils.RevokeAllRefreshTokens(ctx, personID.String()); err != nil {
		logger.ErrorLogger.Errorf("Failed to revoke refresh tokens for %s: %v", personID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}
	if err := person_models.IncrementTokenVersion(ctx, uc.DB, personID); err != nil {
		logger.ErrorLogger.Errorf("Failed to bump token version for %s: %v", personID, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to logout"})
		return
	}

	shared_models.RemoveJWTCookie(c, shared_models.REFRESH_TOKEN_COOKIE, "/")

	logger.InfoLogger.Infof("Successfully logged out user: %s", personID)
	c.JSON(http.StatusOK, gin.H{"message": "Successfully logged out"})
}

func profileJSON(p *person_models.Person) gin.H {
	return gin.H{
		"id":                p.ID,
		"phone_number":      p.PhoneNumber,
		"first_name":        p.FirstName,
		"last_name":         p.LastName,
		"role":              p.Role,
		"is_phone_verified": p.IsPhoneVerified,
		"extra_data":        p.ExtraData(),
	}
}

// GetProfile returns the authenticated person's own profile.
func (uc *UserController) GetProfile(c *gin.Context) {
	person, ok := uc.currentPerson(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profileJSON(person)})
}

// UpdateProfile applies partial changes to the name and role profile.
func (uc *UserController) UpdateProfile(c *gin.Context) {
	logger.InfoLogger.Info("UpdateProfile function called")

	var req person_models.ProfileUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.BusinessTelephone != nil && *req.BusinessTelephone != "" {
		normalized, err := phone.Normalize(*req.BusinessTelephone)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "business_telephone: " + err.Error()})
			return
		}
		req.BusinessTelephone = &normalized
	}

	person, ok := uc.currentPerson(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	err := db.WithinTransaction(ctx, uc.DB, func(tx pgx.Tx) error {
		return person_models.UpdateProfile(ctx, tx, person, req)
	})
	if err != nil {
		switch {
		case errors.Is(err, person_models.ErrInvalidIDType), errors.Is(err, person_models.ErrCompanyNameRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, person_models.ErrIDNumberTaken):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			logger.ErrorLogger.Errorf("Failed to update profile for %s: %v", person.ID, err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update profile"})
		}
		return
	}

	logger.InfoLogger.Infof("User profile updated for ID: %s", person.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": profileJSON(person)})
}

func (uc *UserController) currentPerson(c *gin.Context) (*person_models.Person, bool) {
	personID, err := utils.GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return nil, false
	}
	person, err := person_models.GetPersonByID(c.Request.Context(), uc.DB, personID)
	if err != nil {
		if errors.Is(err, person_models.ErrPersonNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return nil, false
	}
	return person, true
}

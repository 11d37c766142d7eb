package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/controllers/user_controllers"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/auth"
)

func RegisterUserRoutes(router *gin.Engine, pool db.TxBeginner, sms clients.SMSSender) {
	userController := user_controllers.NewUserController(pool, sms)

	// Public routes
	router.POST("/register", middleware.CombinedRateLimiter("register", "10-2m", "30-60m"), userController.Register)
	router.POST("/operator-register", middleware.CombinedRateLimiter("operator-register", "10-2m", "30-60m"), userController.OperatorRegister)
	router.POST("/verify-otp", middleware.CombinedRateLimiter("verify-otp", "5-1m", "20-10m"), userController.VerifyOTP)
	router.POST("/resend-otp", middleware.CombinedRateLimiter("resend-otp", "5-1m", "20-10m"), userController.ResendOTP)
	router.POST("/login", middleware.CombinedRateLimiter("login", "10-2m", "30-30m"), userController.Login)
	router.POST("/operator-login", middleware.CombinedRateLimiter("operator-login", "10-2m", "30-30m"), userController.OperatorLogin)
	router.POST("/refresh-token", middleware.NewRateLimiter("10-60m", "refresh-token"), userController.RefreshToken)

	// Protected routes
	protected := router.Group("/")
	protected.Use(auth.AuthMiddleware(pool))
	{
		protected.POST("/logout", middleware.CombinedRateLimiter("logout", "5-1m", "20-10m"), userController.Logout)
		protected.GET("/profile", middleware.NewRateLimiter("15-30s", "profile"), userController.GetProfile)
		protected.PATCH("/profile", middleware.CombinedRateLimiter("update-profile", "5-1m", "10-5m"), userController.UpdateProfile)
	}
}

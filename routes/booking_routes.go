package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/controllers/booking_controller"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/auth"
	"github.com/joy095/parking/models/person_models"
	"github.com/joy095/parking/utils/mail"
)

func RegisterBookingRoutes(router *gin.Engine, pool db.TxBeginner, notifier mail.Notifier) {
	bookingController := booking_controller.NewBookingController(booking_controller.NewBookingService(pool, notifier))

	bookings := router.Group("/bookings")
	bookings.Use(auth.AuthMiddleware(pool))
	{
		bookings.GET("", middleware.NewRateLimiter("30-1m", "bookings"), bookingController.ListBookings)
		bookings.GET("/:booking_id", middleware.NewRateLimiter("30-1m", "booking"), bookingController.GetBooking)

		// Status changes are open to both the motorist and the lot operator.
		bookings.POST("/:booking_id/confirm", middleware.NewRateLimiter("10-1m", "booking-status"), bookingController.Confirm)
		bookings.POST("/:booking_id/start", middleware.NewRateLimiter("10-1m", "booking-status"), bookingController.Start)
		bookings.POST("/:booking_id/complete", middleware.NewRateLimiter("10-1m", "booking-status"), bookingController.Complete)
		bookings.POST("/:booking_id/cancel", middleware.NewRateLimiter("10-1m", "booking-status"), bookingController.Cancel)
	}

	motorist := router.Group("/bookings")
	motorist.Use(auth.AuthMiddleware(pool), auth.RequireRole(person_models.RoleMotorist))
	{
		motorist.POST("", middleware.CombinedRateLimiter("create-booking", "5-1m", "30-60m"), bookingController.CreateBooking)
		motorist.POST("/quick", middleware.CombinedRateLimiter("quick-booking", "5-1m", "30-60m"), bookingController.QuickBook)
		motorist.PATCH("/:booking_id", middleware.NewRateLimiter("10-1m", "update-booking"), bookingController.UpdateBooking)
		motorist.POST("/:booking_id/reviews", middleware.NewRateLimiter("5-1m", "review"), bookingController.AddReview)
	}
}

package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/clients"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/controllers/payment_controller"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/auth"
	"github.com/joy095/parking/models/person_models"
)

func RegisterPaymentRoutes(router *gin.Engine, pool db.Querier, gateway clients.MobileMoneyGateway) {
	paymentController := payment_controller.NewPaymentController(pool, gateway)

	payments := router.Group("/payments")
	payments.Use(auth.AuthMiddleware(pool), auth.RequireRole(person_models.RoleMotorist))
	{
		payments.POST("", middleware.CombinedRateLimiter("payments", "3-1m", "20-60m"), paymentController.CreatePayment)
		payments.GET("/:payment_id", middleware.NewRateLimiter("30-1m", "payment"), paymentController.GetPayment)
	}
}

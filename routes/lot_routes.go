package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/controllers/lot_controller"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/auth"
	"github.com/joy095/parking/models/person_models"
)

func RegisterLotRoutes(router *gin.Engine, pool db.Querier) {
	lotController := lot_controller.NewLotController(pool)

	lots := router.Group("/lots")
	{
		lots.GET("", middleware.NewRateLimiter("60-1m", "lots"), lotController.ListLots)
		lots.GET("/:lot_id", middleware.NewRateLimiter("60-1m", "lot"), lotController.GetLot)
		lots.GET("/:lot_id/spots", middleware.NewRateLimiter("60-1m", "lot-spots"), lotController.ListSpots)
		lots.GET("/:lot_id/reviews", middleware.NewRateLimiter("60-1m", "lot-reviews"), lotController.ListReviews)
	}

	operator := router.Group("/lots")
	operator.Use(auth.AuthMiddleware(pool), auth.RequireRole(person_models.RoleOperator))
	{
		operator.POST("", middleware.NewRateLimiter("20-1m", "create-lot"), lotController.CreateLot)
		operator.PUT("/:lot_id", middleware.NewRateLimiter("20-1m", "update-lot"), lotController.UpdateLot)
		operator.DELETE("/:lot_id", middleware.NewRateLimiter("10-1m", "delete-lot"), lotController.DeleteLot)
		operator.POST("/:lot_id/spots", middleware.NewRateLimiter("60-1m", "create-spot"), lotController.CreateSpot)
		operator.PATCH("/:lot_id/spots/:spot_id", middleware.NewRateLimiter("60-1m", "update-spot"), lotController.UpdateSpot)
	}
}

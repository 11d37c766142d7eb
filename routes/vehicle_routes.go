package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/joy095/parking/config/db"
	"github.com/joy095/parking/controllers/vehicle_controller"
	middleware "github.com/joy095/parking/middlewares"
	"github.com/joy095/parking/middlewares/auth"
	"github.com/joy095/parking/models/person_models"
)

func RegisterVehicleRoutes(router *gin.Engine, pool db.Querier) {
	vehicleController := vehicle_controller.NewVehicleController(pool)

	vehicles := router.Group("/vehicles")
	vehicles.Use(auth.AuthMiddleware(pool), auth.RequireRole(person_models.RoleMotorist))
	{
		vehicles.GET("", middleware.NewRateLimiter("30-1m", "vehicles"), vehicleController.ListVehicles)
		vehicles.POST("", middleware.NewRateLimiter("10-1m", "create-vehicle"), vehicleController.CreateVehicle)
		vehicles.GET("/:vehicle_id", middleware.NewRateLimiter("30-1m", "vehicle"), vehicleController.GetVehicle)
		vehicles.PATCH("/:vehicle_id", middleware.NewRateLimiter("10-1m", "update-vehicle"), vehicleController.UpdateVehicle)
		vehicles.DELETE("/:vehicle_id", middleware.NewRateLimiter("10-1m", "delete-vehicle"), vehicleController.DeleteVehicle)
	}
}

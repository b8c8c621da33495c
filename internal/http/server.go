// Package http is the API gateway; it registers routes and delegates to the
// module services.
package http

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"corrida/internal/modules/fare"
	"corrida/internal/modules/ride"
	"corrida/internal/modules/tracking"
)

type ServerDeps struct {
	Ride     *ride.Service
	Fares    *fare.Registry
	Tracking *tracking.Publisher
	Log      *zap.Logger
}

type Server struct {
	ride     *ride.Service
	fares    *fare.Registry
	tracking *tracking.Publisher
	log      *zap.Logger
}

func NewServer(deps ServerDeps) *Server {
	return &Server{
		ride:     deps.Ride,
		fares:    deps.Fares,
		tracking: deps.Tracking,
		log:      deps.Log,
	}
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestLogger(s.log), Recovery(s.log))

	api := r.Group("/api")

	api.POST("/rides", s.handleBookRide)
	api.GET("/rides/:id", s.handleGetRide)
	api.POST("/rides/:id/cancel", s.handleCancelRide)
	api.POST("/rides/:id/driver", s.handleAssignDriver)
	api.PUT("/rides/:id/dropoff", s.handleSetDropoff)
	api.PUT("/rides/:id/class", s.handleSetVehicleClass)

	api.POST("/rides/:id/payment/method", s.handleSelectPaymentMethod)
	api.POST("/rides/:id/payment/card", s.handleSubmitCard)
	api.POST("/rides/:id/payment/cash", s.handleSubmitCashAmount)
	api.POST("/rides/:id/payment/change", s.handleConfirmChangeDisposition)

	api.GET("/fares/classes", s.handleListClasses)

	api.PUT("/drivers/:id/position", s.handleUpdateDriverPosition)
	api.GET("/drivers/nearby", s.handleNearbyDrivers)

	r.GET("/health", func(c *gin.Context) {
		c.String(200, "OK")
	})
	return r
}

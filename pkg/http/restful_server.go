package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"liyu1981.xyz/greenhouse-telemetry/pkg/auth"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
)

type RestfulServer struct {
	Server      *gin.Engine
	Iot         *iot.IOT
	Auth        *auth.Service
	CorsOrigins []string
}

func (rs *RestfulServer) SetLimiter(deviceName string, deviceRate float64, deviceBurst int) bool {
	if rs.Iot.RateLimiterStore == nil {
		return false
	}
	rs.Iot.RateLimiterStore.SetLimiter(deviceName, rate.Limit(deviceRate), deviceBurst)
	return true
}

func (rs *RestfulServer) corsMiddleware() gin.HandlerFunc {
	config := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", RequestIDHeader},
		ExposeHeaders: []string{RequestIDHeader},
		MaxAge:        12 * time.Hour,
	}
	if len(rs.CorsOrigins) == 1 && rs.CorsOrigins[0] == "*" {
		config.AllowAllOrigins = true
	} else {
		config.AllowOrigins = rs.CorsOrigins
		config.AllowCredentials = true
	}
	return cors.New(config)
}

func (rs *RestfulServer) Setup() {
	rs.Server.Use(RequestIDMiddleware(), LoggingMiddleware())
	if len(rs.CorsOrigins) > 0 {
		rs.Server.Use(rs.corsMiddleware())
	}

	rs.Server.GET("/healthz", rs.HealthCheck)
	rs.Server.POST("/api/readings", rs.PostReadings)
	rs.Server.POST("/auth/login", rs.Login)
	rs.Server.GET("/ws/devices", rs.DeviceSocket)

	authed := rs.Server.Group("/", auth.Authenticate(rs.Auth.Issuer))

	devices := authed.Group("/devices")
	{
		devices.GET("", rs.ListDevices)
		devices.GET("/:id/readings", rs.GetReadings)
		devices.GET("/:id/chart", rs.GetChart)
		devices.GET("/:id/alerts", rs.GetAlerts)
		devices.GET("/:id/locations", rs.ListLocations)
		devices.POST("/:id/actuators/:actuator", rs.ToggleActuator)
	}

	admin := authed.Group("/admin", auth.RequireStaff())
	{
		admin.PUT("/plants/:id", rs.UpdatePlant)
		admin.GET("/devices/:id", rs.GetDevice)
		admin.PUT("/devices/:id", rs.UpdateDevice)
		admin.POST("/devices/:id/token", rs.RotateDeviceToken)
		admin.DELETE("/devices/:id", rs.DeleteDevice)
		admin.PUT("/locations/:id", rs.UpdateLocation)
		admin.POST("/groups", rs.CreateGroup)
		admin.POST("/limiters/:device_name", rs.PostLimiter)
	}
}

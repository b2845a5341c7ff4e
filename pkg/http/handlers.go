package http

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	z "github.com/Oudwins/zog"
	"github.com/Oudwins/zog/zhttp"
	"github.com/gin-gonic/gin"

	"liyu1981.xyz/greenhouse-telemetry/pkg/auth"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/iot"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

type ReadingsEnvelope struct {
	Encrypted string `json:"encrypted" zog:"encrypted"`
}

var envelopeSchema = z.Struct(z.Shape{
	"encrypted": z.String().Min(1).Required(),
})

// limitBody reads at most common.MaxEnvelopeBytes of the request body and
// answers 413 past that.
func limitBody(c *gin.Context) bool {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, common.MaxEnvelopeBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "payload too large"})
			return false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read body"})
		return false
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))
	return true
}

func (rs *RestfulServer) PostReadings(c *gin.Context) {
	if !limitBody(c) {
		return
	}

	var req ReadingsEnvelope
	if issues := envelopeSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing encrypted field"})
		return
	}

	ack, err := rs.Iot.HandleEnvelope(c.Request.Context(), req.Encrypted)
	if err != nil {
		writeIngestError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ReadingsEnvelope{Encrypted: ack})
}

type LoginRequest struct {
	Username string `json:"username" zog:"username"`
	Password string `json:"password" zog:"password"`
}

var loginRequestSchema = z.Struct(z.Shape{
	"username": z.String().Min(1).Required(),
	"password": z.String().Min(1).Required(),
})

func (rs *RestfulServer) Login(c *gin.Context) {
	var req LoginRequest
	if issues := loginRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	token, expiresAt, err := rs.Auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
			return
		}
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"token": token, "expires_at": expiresAt.UTC().Format(time.RFC3339)})
}

// deviceParam reads :id; anything that is not an id cannot name a device.
func deviceParam(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": iot.ErrDeviceNotFound.Error()})
		return 0, false
	}
	return uint(id), true
}

func caller(c *gin.Context) models.Caller {
	caller, _ := auth.CallerFrom(c)
	return caller
}

func (rs *RestfulServer) ListDevices(c *gin.Context) {
	views, err := rs.Iot.Device.ListStatuses(c.Request.Context(), caller(c))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (rs *RestfulServer) GetReadings(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	views, err := rs.Iot.Readings.GetReadings(c.Request.Context(), caller(c), deviceID, c.Query("hours"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

func (rs *RestfulServer) GetChart(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	chart, err := rs.Iot.Readings.GetChart(c.Request.Context(), caller(c), deviceID, c.Query("hours"))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, chart)
}

func (rs *RestfulServer) GetAlerts(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	alerts, err := rs.Iot.Alert.GetDeviceAlerts(c.Request.Context(), caller(c), deviceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, alerts)
}

func (rs *RestfulServer) ToggleActuator(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	device, err := rs.Iot.Device.ToggleActuator(c.Request.Context(), caller(c), deviceID, models.Actuator(c.Param("actuator")))
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, iot.NewAck(device).Device)
}

type PlantRequest struct {
	TemperatureMin  float64 `json:"temperature_min" zog:"temperature_min"`
	TemperatureMax  float64 `json:"temperature_max" zog:"temperature_max"`
	HumidityMin     float64 `json:"humidity_min" zog:"humidity_min"`
	HumidityMax     float64 `json:"humidity_max" zog:"humidity_max"`
	SoilMoistureMin float64 `json:"soil_moisture_min" zog:"soil_moisture_min"`
	SoilMoistureMax float64 `json:"soil_moisture_max" zog:"soil_moisture_max"`
}

// every threshold is required; a PUT replaces the whole set
var plantRequestSchema = z.Struct(z.Shape{
	"temperatureMin":  z.Float64().GTE(-50).Required(),
	"temperatureMax":  z.Float64().LTE(100).Required(),
	"humidityMin":     z.Float64().GTE(0).Required(),
	"humidityMax":     z.Float64().LTE(100).Required(),
	"soilMoistureMin": z.Float64().GTE(0).Required(),
	"soilMoistureMax": z.Float64().LTE(100).Required(),
})

func (rs *RestfulServer) UpdatePlant(c *gin.Context) {
	plantID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": iot.ErrPlantNotFound.Error()})
		return
	}

	var req PlantRequest
	if issues := plantRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	plant, err := rs.Iot.Device.UpdatePlantThresholds(c.Request.Context(), uint(plantID), models.PlantThresholds(req))
	if err != nil {
		writeServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":                plant.ID,
		"name":              plant.Name,
		"temperature_min":   plant.TemperatureMin,
		"temperature_max":   plant.TemperatureMax,
		"humidity_min":      plant.HumidityMin,
		"humidity_max":      plant.HumidityMax,
		"soil_moisture_min": plant.SoilMoistureMin,
		"soil_moisture_max": plant.SoilMoistureMax,
	})
}

type DeviceRequest struct {
	GroupID             *int    `json:"group_id" zog:"group_id"`
	ClearGroup          bool    `json:"clear_group" zog:"clear_group"`
	Active              *bool   `json:"active" zog:"active"`
	LocationDescription *string `json:"location_description" zog:"location_description"`
}

var deviceRequestSchema = z.Struct(z.Shape{
	"groupID":             z.Ptr(z.Int().GT(0)),
	"clearGroup":          z.Bool(),
	"active":              z.Ptr(z.Bool()),
	"locationDescription": z.Ptr(z.String().Max(255)),
})

func (rs *RestfulServer) UpdateDevice(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	var req DeviceRequest
	if issues := deviceRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	update := models.DeviceUpdate{
		ClearGroup:          req.ClearGroup,
		Active:              req.Active,
		LocationDescription: req.LocationDescription,
	}
	if req.GroupID != nil {
		groupID := uint(*req.GroupID)
		update.GroupID = &groupID
	}

	device, err := rs.Iot.Device.UpdateDevice(c.Request.Context(), deviceID, update)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdminDevice(device))
}

// AdminDevice is the staff view of a device. It is the only response that
// carries the api token.
type AdminDevice struct {
	iot.AckDevice
	Status              models.DeviceStatus `json:"status"`
	LocationDescription string              `json:"location_description"`
	APIToken            string              `json:"api_token"`
}

func newAdminDevice(device *models.Device) AdminDevice {
	return AdminDevice{
		AckDevice:           iot.NewAck(device).Device,
		Status:              device.Status,
		LocationDescription: device.LocationDescription,
		APIToken:            device.APIToken,
	}
}

func (rs *RestfulServer) GetDevice(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	device, err := rs.Iot.Device.GetDevice(c.Request.Context(), deviceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdminDevice(device))
}

func (rs *RestfulServer) RotateDeviceToken(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	device, err := rs.Iot.Device.RotateAPIToken(c.Request.Context(), deviceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAdminDevice(device))
}

func (rs *RestfulServer) ListLocations(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	views, err := rs.Iot.Device.ListLocations(c.Request.Context(), caller(c), deviceID)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, views)
}

type LocationRequest struct {
	PlantID   *int     `json:"plant_id" zog:"plant_id"`
	XPosition *float64 `json:"x_position" zog:"x_position"`
	YPosition *float64 `json:"y_position" zog:"y_position"`
}

var locationRequestSchema = z.Struct(z.Shape{
	"plantID":   z.Ptr(z.Int().GT(0)),
	"xPosition": z.Ptr(z.Float64()),
	"yPosition": z.Ptr(z.Float64()),
})

func (rs *RestfulServer) UpdateLocation(c *gin.Context) {
	locationID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || locationID == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": iot.ErrLocationNotFound.Error()})
		return
	}

	var req LocationRequest
	if issues := locationRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	update := models.LocationUpdate{XPosition: req.XPosition, YPosition: req.YPosition}
	if req.PlantID != nil {
		plantID := uint(*req.PlantID)
		update.PlantID = &plantID
	}

	view, err := rs.Iot.Device.UpdateLocation(c.Request.Context(), uint(locationID), update)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (rs *RestfulServer) DeleteDevice(c *gin.Context) {
	deviceID, ok := deviceParam(c)
	if !ok {
		return
	}

	if err := rs.Iot.Device.DeleteDevice(c.Request.Context(), deviceID); err != nil {
		writeServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type GroupRequest struct {
	Name        string `json:"name" zog:"name"`
	Description string `json:"description" zog:"description"`
}

var groupRequestSchema = z.Struct(z.Shape{
	"name":        z.String().Min(1).Max(100).Required(),
	"description": z.String(),
})

func (rs *RestfulServer) CreateGroup(c *gin.Context) {
	var req GroupRequest
	if issues := groupRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	group, err := rs.Iot.Device.CreateGroup(c.Request.Context(), req.Name, req.Description)
	if err != nil {
		writeServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": group.ID, "name": group.Name, "description": group.Description})
}

type LimiterRequest struct {
	Rate  float64 `json:"rate" zog:"rate"`
	Burst int     `json:"burst" zog:"burst"`
}

var limiterRequestSchema = z.Struct(z.Shape{
	"rate":  z.Float64().Required(),
	"burst": z.Int().Required(),
})

func (rs *RestfulServer) PostLimiter(c *gin.Context) {
	deviceName := c.Param("device_name")

	var req LimiterRequest
	if issues := limiterRequestSchema.Parse(zhttp.Request(c.Request), &req); issues != nil {
		writeSchemaError(c, issues)
		return
	}

	if !rs.SetLimiter(deviceName, req.Rate, req.Burst) {
		c.JSON(http.StatusConflict, gin.H{"error": "rate limiting is disabled"})
		return
	}

	c.Status(http.StatusOK)
}

func (rs *RestfulServer) HealthCheck(c *gin.Context) {
	if err := rs.Iot.Db.Health(c.Request.Context()); err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

package models

import "time"

// Caller is the authenticated identity the read path is scoped to.
type Caller struct {
	UserID   uint
	Username string
	Role     Role
}

func (c Caller) IsPrivileged() bool {
	return c.Role == RoleAdmin || c.Role == RoleStaff
}

type ReadingView struct {
	ID           uint      `json:"-"`
	Location     string    `json:"location"`
	Plant        *string   `json:"plant"`
	SoilMoisture *float64  `json:"soil_moisture"`
	Timestamp    time.Time `json:"timestamp"`
	Temperature  *float64  `json:"temperature"`
	AirHumidity  *float64  `json:"air_humidity"`
	WaterLevel   *float64  `json:"water_level"`
}

type Presence string

const (
	PresenceOnline  Presence = "online"
	PresenceOffline Presence = "offline"
)

type DeviceStatusView struct {
	ID                  uint         `json:"id"`
	DeviceID            string       `json:"device_id"`
	GroupName           string       `json:"group"`
	LocationDescription string       `json:"location"`
	Status              DeviceStatus `json:"status"`
	Presence            Presence     `json:"presence"`
	LastData            *time.Time   `json:"last_data"`
	PumpState           bool         `json:"pump_state"`
	FanState            bool         `json:"fan_state"`
}

type Gauge struct {
	ID    string  `json:"id"`
	Title string  `json:"title"`
	Value float64 `json:"value"`
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
}

type Series struct {
	TimeLabels []string   `json:"time_labels"`
	Values     []*float64 `json:"values"`
}

type SoilTrace struct {
	Name       string    `json:"name"`
	TimeLabels []string  `json:"time_labels"`
	Values     []float64 `json:"values"`
}

type ChartView struct {
	Hours       int         `json:"hours"`
	Points      int         `json:"points"`
	Temperature Series      `json:"temperature"`
	Humidity    Series      `json:"humidity"`
	Water       Series      `json:"water"`
	Soil        []SoilTrace `json:"soil"`
	Gauges      []Gauge     `json:"gauges"`
}

type Actuator string

const (
	ActuatorPump Actuator = "pump"
	ActuatorFan  Actuator = "fan"
)

// DeviceUpdate carries the admin-editable device fields; nil leaves a field as is.
type DeviceUpdate struct {
	GroupID             *uint
	ClearGroup          bool
	Active              *bool
	LocationDescription *string
}

type PlantThresholds struct {
	TemperatureMin  float64
	TemperatureMax  float64
	HumidityMin     float64
	HumidityMax     float64
	SoilMoistureMin float64
	SoilMoistureMax float64
}

type LocationPlantView struct {
	ID              uint    `json:"id"`
	Name            string  `json:"name"`
	TemperatureMin  float64 `json:"temperature_min"`
	TemperatureMax  float64 `json:"temperature_max"`
	HumidityMin     float64 `json:"humidity_min"`
	HumidityMax     float64 `json:"humidity_max"`
	SoilMoistureMin float64 `json:"soil_moisture_min"`
	SoilMoistureMax float64 `json:"soil_moisture_max"`
}

// LocationView is one entry of a device's greenhouse layout.
type LocationView struct {
	ID           uint               `json:"id"`
	Name         string             `json:"name"`
	SoilMoisture *float64           `json:"soil_moisture"`
	XPosition    *float64           `json:"x_position"`
	YPosition    *float64           `json:"y_position"`
	Plant        *LocationPlantView `json:"plant"`
}

// LocationUpdate carries the admin-editable location fields; nil leaves a
// field as is.
type LocationUpdate struct {
	PlantID   *uint
	XPosition *float64
	YPosition *float64
}

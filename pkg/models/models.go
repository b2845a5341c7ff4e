package models

import (
	"time"

	"gorm.io/datatypes"
)

type DeviceStatus string

const (
	DeviceStatusUnassigned DeviceStatus = "unassigned"
	DeviceStatusAssigned   DeviceStatus = "assigned"
	DeviceStatusOffline    DeviceStatus = "offline"
)

type ActionType string

const (
	ActionTypeVentilation ActionType = "ventilation"
	ActionTypeIrrigation  ActionType = "irrigation"
)

type ActionStatus string

const (
	ActionStatusSuccess ActionStatus = "success"
	ActionStatusFailed  ActionStatus = "failed"
	ActionStatusPending ActionStatus = "pending"
)

type AlertType string

const (
	AlertTypeTemperature  AlertType = "temperature"
	AlertTypeAirHumidity  AlertType = "air_humidity"
	AlertTypeSoilMoisture AlertType = "soil_moisture"
)

type Group struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"size:100;uniqueIndex;not null"`
	Description string
	IsDefault   bool
	CreatedAt   time.Time
}

// Plant thresholds are edited by administrators; readings already stored are
// never re-evaluated.
type Plant struct {
	ID              uint   `gorm:"primaryKey"`
	Name            string `gorm:"size:100;uniqueIndex;not null"`
	Description     string
	TemperatureMin  float64
	TemperatureMax  float64
	HumidityMin     float64
	HumidityMax     float64
	SoilMoistureMin float64
	SoilMoistureMax float64
}

type Device struct {
	ID                  uint   `gorm:"primaryKey"`
	DeviceID            string `gorm:"size:100;uniqueIndex;not null"`
	APIToken            string `gorm:"size:36;uniqueIndex;not null"`
	GroupID             *uint  `gorm:"index"`
	Group               *Group `gorm:"constraint:OnUpdate:CASCADE,OnDelete:SET NULL;"`
	LocationDescription string
	Active              bool
	Status              DeviceStatus `gorm:"size:20;not null"`
	PumpState           bool
	FanState            bool
	CreatedAt           time.Time
	UpdatedAt           time.Time

	SensorLocations []SensorLocation `gorm:"constraint:OnDelete:CASCADE;"`
	Actions         []Action         `gorm:"constraint:OnDelete:CASCADE;"`
	DataPayloads    []DataPayload    `gorm:"constraint:OnDelete:CASCADE;"`
}

// SensorLocation.SoilMoisture is the last ingested value (last write wins).
type SensorLocation struct {
	ID           uint   `gorm:"primaryKey"`
	DeviceID     uint   `gorm:"uniqueIndex:idx_device_location;not null"`
	LocationName string `gorm:"size:100;uniqueIndex:idx_device_location;not null"`
	PlantID      *uint  `gorm:"index"`
	Plant        *Plant `gorm:"constraint:OnDelete:CASCADE;"`
	SoilMoisture *float64
	XPosition    *float64
	YPosition    *float64

	SensorReadings []SensorReading `gorm:"constraint:OnDelete:CASCADE;"`
	Alerts         []Alert         `gorm:"constraint:OnDelete:CASCADE;"`
}

type SensorReading struct {
	ID               uint      `gorm:"primaryKey"`
	SensorLocationID uint      `gorm:"index;not null"`
	Timestamp        time.Time `gorm:"index;not null"`
	Temperature      *float64
	AirHumidity      *float64
	SoilMoisture     *float64
	WaterLevel       *float64
}

type Action struct {
	ID         uint         `gorm:"primaryKey"`
	DeviceID   uint         `gorm:"index;not null"`
	Timestamp  time.Time    `gorm:"autoCreateTime"`
	ActionType ActionType   `gorm:"size:50;not null"`
	Status     ActionStatus `gorm:"size:20;not null"`
}

// DataPayload archives the decrypted body of every accepted envelope.
type DataPayload struct {
	ID         uint           `gorm:"primaryKey"`
	DeviceID   uint           `gorm:"index;not null"`
	ReceivedAt time.Time      `gorm:"autoCreateTime"`
	Payload    datatypes.JSON `gorm:"not null"`
}

type Alert struct {
	ID               uint      `gorm:"primaryKey"`
	SensorLocationID uint      `gorm:"index;not null"`
	Timestamp        time.Time `gorm:"index"`
	Type             AlertType `gorm:"size:20"`
	Message          string
}

type Role string

const (
	RoleAdmin Role = "admin"
	RoleStaff Role = "staff"
	RoleUser  Role = "user"
)

type User struct {
	ID           uint   `gorm:"primaryKey"`
	Username     string `gorm:"size:150;uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	Role         Role   `gorm:"size:20;not null"`
	CreatedAt    time.Time

	UserGroups []UserGroup `gorm:"constraint:OnDelete:CASCADE;"`
}

type UserGroup struct {
	ID      uint  `gorm:"primaryKey"`
	UserID  uint  `gorm:"uniqueIndex:idx_user_group;not null"`
	GroupID uint  `gorm:"uniqueIndex:idx_user_group;not null"`
	Group   Group `gorm:"constraint:OnDelete:CASCADE;"`
}

// AllModels is the migration set, parents before children.
func AllModels() []any {
	return []any{
		&Group{},
		&Plant{},
		&Device{},
		&SensorLocation{},
		&SensorReading{},
		&Action{},
		&DataPayload{},
		&Alert{},
		&User{},
		&UserGroup{},
	}
}

package iot

import (
	"context"
	"time"

	"liyu1981.xyz/greenhouse-telemetry/pkg/channel"
	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

type IIngest interface {
	Ingest(ctx context.Context, reading *payload.Reading, plaintext []byte) (*models.Device, []models.SensorReading, error)
}

type IReadings interface {
	GetReadings(ctx context.Context, caller models.Caller, deviceID uint, hours string) ([]models.ReadingView, error)
	GetChart(ctx context.Context, caller models.Caller, deviceID uint, hours string) (*models.ChartView, error)
}

type IAlert interface {
	CheckAndStoreAlerts(ctx context.Context, readings []models.SensorReading) error
	GetDeviceAlerts(ctx context.Context, caller models.Caller, deviceID uint) ([]models.Alert, error)
}

type IDevice interface {
	ListStatuses(ctx context.Context, caller models.Caller) ([]models.DeviceStatusView, error)
	ToggleActuator(ctx context.Context, caller models.Caller, deviceID uint, actuator models.Actuator) (*models.Device, error)
	UpdateDevice(ctx context.Context, deviceID uint, update models.DeviceUpdate) (*models.Device, error)
	DeleteDevice(ctx context.Context, deviceID uint) error
	GetDevice(ctx context.Context, deviceID uint) (*models.Device, error)
	RotateAPIToken(ctx context.Context, deviceID uint) (*models.Device, error)
	ListLocations(ctx context.Context, caller models.Caller, deviceID uint) ([]models.LocationView, error)
	UpdateLocation(ctx context.Context, locationID uint, update models.LocationUpdate) (*models.LocationView, error)
	UpdatePlantThresholds(ctx context.Context, plantID uint, thresholds models.PlantThresholds) (*models.Plant, error)
	CreateGroup(ctx context.Context, name, description string) (*models.Group, error)
}

type IOT struct {
	Db               db.DB
	Cipher           *channel.Cipher
	RateLimiterStore *RateLimiterStore

	StoreTimeout   time.Duration
	LivenessWindow time.Duration
	ChartMaxPoints int
	// Now is the clock reading windows and presence are computed against.
	Now func() time.Time

	Ingest   IIngest
	Readings IReadings
	Alert    IAlert
	Device   IDevice
}

type ServiceOpts struct {
	Ingest   IIngest
	Readings IReadings
	Alert    IAlert
	Device   IDevice
}

func (i *IOT) WithServices(opts ServiceOpts) *IOT {
	if opts.Ingest != nil {
		i.Ingest = opts.Ingest
	}
	if opts.Readings != nil {
		i.Readings = opts.Readings
	}
	if opts.Alert != nil {
		i.Alert = opts.Alert
	}
	if opts.Device != nil {
		i.Device = opts.Device
	}
	return i
}

// WithDefaultServices wires the store-backed implementation of every service.
func (i *IOT) WithDefaultServices() *IOT {
	return i.WithServices(ServiceOpts{
		Ingest:   i.GetIIngest(),
		Readings: i.GetIReadings(),
		Alert:    i.GetIAlert(),
		Device:   i.GetIDevice(),
	})
}

func (i *IOT) now() time.Time {
	if i.Now != nil {
		return i.Now().UTC()
	}
	return time.Now().UTC()
}

func (i *IOT) storeTimeout() time.Duration {
	if i.StoreTimeout > 0 {
		return i.StoreTimeout
	}
	return common.DefaultStoreTimeout
}

func (i *IOT) livenessWindow() time.Duration {
	if i.LivenessWindow > 0 {
		return i.LivenessWindow
	}
	return common.DefaultLivenessWindow
}

func (i *IOT) chartMaxPoints() int {
	if i.ChartMaxPoints > 0 {
		return i.ChartMaxPoints
	}
	return common.DefaultChartMaxPoints
}

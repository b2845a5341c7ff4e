package iot

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

// DefaultPlantThresholds apply to a plant first seen through a payload.
var DefaultPlantThresholds = models.PlantThresholds{
	TemperatureMin:  10,
	TemperatureMax:  35,
	HumidityMin:     30,
	HumidityMax:     80,
	SoilMoistureMin: 20,
	SoilMoistureMax: 70,
}

// reconcile maps the payload's names onto persisted entities, creating what is
// missing. It must run inside the ingestion transaction. The returned
// locations line up index for index with reading.Locations.
func reconcile(tx *gorm.DB, reading *payload.Reading) (*models.Device, []models.SensorLocation, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReconcile)

	group, err := db.DefaultGroup(tx)
	if err != nil {
		return nil, nil, fmt.Errorf("default group: %w", err)
	}

	device, created, err := db.GetOrCreate(tx,
		func(tx *gorm.DB) *gorm.DB { return tx.Where("device_id = ?", reading.DeviceName) },
		func() *models.Device {
			return &models.Device{
				DeviceID: reading.DeviceName,
				APIToken: uuid.NewString(),
				GroupID:  &group.ID,
				Active:   true,
				Status:   models.DeviceStatusUnassigned,
			}
		},
	)
	if err != nil {
		return nil, nil, fmt.Errorf("device: %w", err)
	}
	if created {
		logger.Info("Created device", zap.String("device_id", device.DeviceID), zap.Uint("id", device.ID))
	}

	locations := make([]models.SensorLocation, 0, len(reading.Locations))
	for _, entry := range reading.Locations {
		location, err := reconcileLocation(tx, device, entry)
		if err != nil {
			return nil, nil, err
		}
		locations = append(locations, *location)
	}

	return device, locations, nil
}

func reconcileLocation(tx *gorm.DB, device *models.Device, entry payload.Location) (*models.SensorLocation, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReconcile, zap.String("device_id", device.DeviceID))

	plant, created, err := db.GetOrCreate(tx,
		func(tx *gorm.DB) *gorm.DB { return tx.Where("name = ?", entry.Name) },
		func() *models.Plant {
			t := DefaultPlantThresholds
			return &models.Plant{
				Name:            entry.Name,
				TemperatureMin:  t.TemperatureMin,
				TemperatureMax:  t.TemperatureMax,
				HumidityMin:     t.HumidityMin,
				HumidityMax:     t.HumidityMax,
				SoilMoistureMin: t.SoilMoistureMin,
				SoilMoistureMax: t.SoilMoistureMax,
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("plant %q: %w", entry.Name, err)
	}
	if created {
		logger.Info("Created plant", zap.String("plant", plant.Name))
	}

	// the plant is only attached when the location is created; later payloads
	// never reassign it
	location, created, err := db.GetOrCreate(tx,
		func(tx *gorm.DB) *gorm.DB {
			return tx.Where("device_id = ? AND location_name = ?", device.ID, entry.Name)
		},
		func() *models.SensorLocation {
			return &models.SensorLocation{
				DeviceID:     device.ID,
				LocationName: entry.Name,
				PlantID:      &plant.ID,
			}
		},
	)
	if err != nil {
		return nil, fmt.Errorf("location %q: %w", entry.Name, err)
	}
	if created {
		logger.Info("Created sensor location", zap.String("location", location.LocationName))
	}

	// last write wins, absent included
	if err := tx.Model(&models.SensorLocation{}).
		Where("id = ?", location.ID).
		Update("soil_moisture", entry.SoilMoisture).Error; err != nil {
		return nil, fmt.Errorf("location %q snapshot: %w", entry.Name, err)
	}
	location.SoilMoisture = entry.SoilMoisture

	return location, nil
}

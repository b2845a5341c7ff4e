package iot

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

// checkAndStoreAlerts compares each reading with its location's plant
// thresholds. It runs after the ingestion commit; readings at locations without
// a plant are skipped.
func (i *IOT) checkAndStoreAlerts(ctx context.Context, readings []models.SensorReading) error {
	if len(readings) == 0 {
		return nil
	}

	conn := i.Db.Conn.WithContext(ctx)
	logger := common.GetCategoryLogger(common.LoggerCategoryIOTAlert)

	locationIDs := common.Mapper(readings, func(r models.SensorReading) uint { return r.SensorLocationID })

	var locations []models.SensorLocation
	if err := conn.Preload("Plant").Where("id IN ?", locationIDs).Find(&locations).Error; err != nil {
		return err
	}
	byID := common.Reducer(locations, func(m map[uint]models.SensorLocation, l models.SensorLocation) map[uint]models.SensorLocation {
		m[l.ID] = l
		return m
	}, map[uint]models.SensorLocation{})

	for _, reading := range readings {
		location, ok := byID[reading.SensorLocationID]
		if !ok || location.Plant == nil {
			continue
		}

		for _, alert := range evaluate(reading, location) {
			logger.Info("Alert found", zap.Reflect("alert", alert))

			if err := conn.Create(&alert).Error; err != nil {
				return err
			}

			logger.Info("Alert saved", zap.Reflect("alert", alert))
		}
	}

	return nil
}

func evaluate(reading models.SensorReading, location models.SensorLocation) []models.Alert {
	plant := location.Plant
	checks := []struct {
		kind     models.AlertType
		label    string
		value    *float64
		min, max float64
	}{
		{models.AlertTypeTemperature, "Temperature", reading.Temperature, plant.TemperatureMin, plant.TemperatureMax},
		{models.AlertTypeAirHumidity, "Air humidity", reading.AirHumidity, plant.HumidityMin, plant.HumidityMax},
		{models.AlertTypeSoilMoisture, "Soil moisture", reading.SoilMoisture, plant.SoilMoistureMin, plant.SoilMoistureMax},
	}

	var alerts []models.Alert
	for _, c := range checks {
		if c.value == nil {
			continue
		}
		var message string
		switch {
		case *c.value > c.max:
			message = fmt.Sprintf("%s %.2f at %s exceeded maximum %.2f for %s", c.label, *c.value, location.LocationName, c.max, plant.Name)
		case *c.value < c.min:
			message = fmt.Sprintf("%s %.2f at %s below minimum %.2f for %s", c.label, *c.value, location.LocationName, c.min, plant.Name)
		default:
			continue
		}
		alerts = append(alerts, models.Alert{
			SensorLocationID: location.ID,
			Timestamp:        reading.Timestamp,
			Type:             c.kind,
			Message:          message,
		})
	}
	return alerts
}

func (i *IOT) getDeviceAlerts(ctx context.Context, caller models.Caller, deviceID uint) ([]models.Alert, error) {
	conn := i.Db.Conn.WithContext(ctx)

	device, err := authorizedDevice(conn, caller, deviceID)
	if err != nil {
		return nil, err
	}

	alerts := []models.Alert{}
	err = conn.
		Joins("JOIN sensor_locations ON sensor_locations.id = alerts.sensor_location_id").
		Where("sensor_locations.device_id = ?", device.ID).
		Order("alerts.timestamp desc, alerts.id desc").
		Find(&alerts).Error
	if err != nil {
		return nil, storeError(ctx, "alerts", err)
	}
	return alerts, nil
}

type IAlertImpl struct {
	iot *IOT
}

func (ia *IAlertImpl) GetDeviceAlerts(ctx context.Context, caller models.Caller, deviceID uint) ([]models.Alert, error) {
	return ia.iot.getDeviceAlerts(ctx, caller, deviceID)
}

func (ia *IAlertImpl) CheckAndStoreAlerts(ctx context.Context, readings []models.SensorReading) error {
	return ia.iot.checkAndStoreAlerts(ctx, readings)
}

func (i *IOT) GetIAlert() IAlert {
	return &IAlertImpl{iot: i}
}

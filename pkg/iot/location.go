package iot

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

func (i *IOT) listLocations(ctx context.Context, caller models.Caller, deviceID uint) ([]models.LocationView, error) {
	conn := i.Db.Conn.WithContext(ctx)

	device, err := authorizedDevice(conn, caller, deviceID)
	if err != nil {
		return nil, err
	}

	var locations []models.SensorLocation
	if err := conn.Preload("Plant").
		Where("device_id = ?", device.ID).
		Order("location_name ASC").
		Find(&locations).Error; err != nil {
		return nil, storeError(ctx, "locations", err)
	}

	return common.Mapper(locations, locationView), nil
}

func locationView(location models.SensorLocation) models.LocationView {
	view := models.LocationView{
		ID:           location.ID,
		Name:         location.LocationName,
		SoilMoisture: location.SoilMoisture,
		XPosition:    location.XPosition,
		YPosition:    location.YPosition,
	}
	if p := location.Plant; p != nil {
		view.Plant = &models.LocationPlantView{
			ID:              p.ID,
			Name:            p.Name,
			TemperatureMin:  p.TemperatureMin,
			TemperatureMax:  p.TemperatureMax,
			HumidityMin:     p.HumidityMin,
			HumidityMax:     p.HumidityMax,
			SoilMoistureMin: p.SoilMoistureMin,
			SoilMoistureMax: p.SoilMoistureMax,
		}
	}
	return view
}

// updateLocation is the only path that moves a location to another plant;
// ingestion keeps whatever plant is set here.
func (i *IOT) updateLocation(ctx context.Context, locationID uint, update models.LocationUpdate) (*models.LocationView, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)
	conn := i.Db.Conn.WithContext(ctx)

	location, err := loadLocation(conn, locationID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if update.PlantID != nil {
		var plant models.Plant
		if err := conn.First(&plant, *update.PlantID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrPlantNotFound
			}
			return nil, storeError(ctx, "update location", err)
		}
		changes["plant_id"] = plant.ID
	}
	if update.XPosition != nil {
		changes["x_position"] = *update.XPosition
	}
	if update.YPosition != nil {
		changes["y_position"] = *update.YPosition
	}

	if len(changes) > 0 {
		if err := conn.Model(&models.SensorLocation{}).Where("id = ?", location.ID).Updates(changes).Error; err != nil {
			return nil, storeError(ctx, "update location", err)
		}
		logger.Info("Updated sensor location",
			zap.Uint("id", location.ID),
			zap.String("location", location.LocationName),
			zap.Any("changes", changes))
	}

	location, err = loadLocation(conn, location.ID)
	if err != nil {
		return nil, err
	}
	view := locationView(*location)
	return &view, nil
}

func loadLocation(conn *gorm.DB, locationID uint) (*models.SensorLocation, error) {
	var location models.SensorLocation
	err := conn.Preload("Plant").First(&location, locationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrLocationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &location, nil
}

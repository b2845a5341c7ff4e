package iot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/db"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

var actuatorActions = map[models.Actuator]struct {
	column string
	action models.ActionType
}{
	models.ActuatorPump: {column: "pump_state", action: models.ActionTypeIrrigation},
	models.ActuatorFan:  {column: "fan_state", action: models.ActionTypeVentilation},
}

func (i *IOT) listStatuses(ctx context.Context, caller models.Caller) ([]models.DeviceStatusView, error) {
	conn := i.Db.Conn.WithContext(ctx)

	query := conn.Preload("Group").Where("active = ?", true).Order("device_id ASC")
	if !caller.IsPrivileged() {
		groups, err := callerGroups(conn, caller)
		if err != nil {
			return nil, storeError(ctx, "statuses", err)
		}
		if len(groups) == 0 {
			return []models.DeviceStatusView{}, nil
		}
		ids := make([]uint, 0, len(groups))
		for id := range groups {
			ids = append(ids, id)
		}
		query = query.Where("group_id IN ?", ids)
	}

	var devices []models.Device
	if err := query.Find(&devices).Error; err != nil {
		return nil, storeError(ctx, "statuses", err)
	}

	ids := common.Mapper(devices, func(d models.Device) uint { return d.ID })
	lastSeen, err := lastReadingsAt(conn, ids)
	if err != nil {
		return nil, storeError(ctx, "statuses", err)
	}

	now := i.now()
	views := make([]models.DeviceStatusView, 0, len(devices))
	for _, device := range devices {
		var last *time.Time
		if ts, ok := lastSeen[device.ID]; ok {
			last = &ts
		}

		groupName := common.DefaultGroupName
		if device.Group != nil {
			groupName = device.Group.Name
		}

		views = append(views, models.DeviceStatusView{
			ID:                  device.ID,
			DeviceID:            device.DeviceID,
			GroupName:           groupName,
			LocationDescription: device.LocationDescription,
			Status:              device.Status,
			Presence:            Presence(last, now, i.livenessWindow()),
			LastData:            last,
			PumpState:           device.PumpState,
			FanState:            device.FanState,
		})
	}
	return views, nil
}

// lastReadingsAt returns the newest reading time of each device that has one.
func lastReadingsAt(conn *gorm.DB, deviceIDs []uint) (map[uint]time.Time, error) {
	out := make(map[uint]time.Time, len(deviceIDs))
	if len(deviceIDs) == 0 {
		return out, nil
	}

	rows, err := conn.Table("sensor_readings").
		Select("sensor_locations.device_id, MAX(sensor_readings.timestamp)").
		Joins("JOIN sensor_locations ON sensor_locations.id = sensor_readings.sensor_location_id").
		Where("sensor_locations.device_id IN ?", deviceIDs).
		Group("sensor_locations.device_id").
		Rows()
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var deviceID uint
		var latest any
		if err := rows.Scan(&deviceID, &latest); err != nil {
			return nil, err
		}
		ts, err := db.ScanTime(latest)
		if err != nil {
			return nil, err
		}
		out[deviceID] = ts
	}
	return out, rows.Err()
}

// toggleActuator flips the stored state and records a pending action. The
// device learns the new state from its next ack.
func (i *IOT) toggleActuator(ctx context.Context, caller models.Caller, deviceID uint, actuator models.Actuator) (*models.Device, error) {
	target, ok := actuatorActions[actuator]
	if !ok {
		return nil, ErrInvalidActuator
	}

	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)
	conn := i.Db.Conn.WithContext(ctx)

	device, err := authorizedDevice(conn, caller, deviceID)
	if err != nil {
		return nil, err
	}

	err = conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Device{}).
			Where("id = ?", device.ID).
			Update(target.column, gorm.Expr("NOT "+target.column)).Error; err != nil {
			return err
		}
		return tx.Create(&models.Action{
			DeviceID:   device.ID,
			ActionType: target.action,
			Status:     models.ActionStatusPending,
		}).Error
	})
	if err != nil {
		return nil, storeError(ctx, "toggle actuator", err)
	}

	updated, err := loadDevice(conn, device.ID)
	if err != nil {
		return nil, err
	}

	logger.Info("Toggled actuator",
		zap.String("device_id", updated.DeviceID),
		zap.String("actuator", string(actuator)),
		zap.String("user", caller.Username),
		zap.Bool("pump_state", updated.PumpState),
		zap.Bool("fan_state", updated.FanState),
	)
	return updated, nil
}

func (i *IOT) updateDevice(ctx context.Context, deviceID uint, update models.DeviceUpdate) (*models.Device, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)
	conn := i.Db.Conn.WithContext(ctx)

	device, err := loadDevice(conn, deviceID)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	switch {
	case update.ClearGroup:
		changes["group_id"] = nil
		changes["status"] = models.DeviceStatusUnassigned
	case update.GroupID != nil:
		var group models.Group
		if err := conn.First(&group, *update.GroupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrGroupNotFound
			}
			return nil, storeError(ctx, "update device", err)
		}
		changes["group_id"] = group.ID
		changes["status"] = models.DeviceStatusAssigned
		if group.IsDefault {
			changes["status"] = models.DeviceStatusUnassigned
		}
	}
	if update.Active != nil {
		changes["active"] = *update.Active
	}
	if update.LocationDescription != nil {
		changes["location_description"] = strings.TrimSpace(*update.LocationDescription)
	}

	if len(changes) > 0 {
		if err := conn.Model(&models.Device{}).Where("id = ?", device.ID).Updates(changes).Error; err != nil {
			return nil, storeError(ctx, "update device", err)
		}
		logger.Info("Updated device", zap.String("device_id", device.DeviceID), zap.Any("changes", changes))
	}

	return loadDevice(conn, device.ID)
}

// deleteDevice removes the device with its locations, readings, actions,
// archived payloads and alerts.
func (i *IOT) deleteDevice(ctx context.Context, deviceID uint) error {
	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)

	res := i.Db.Conn.WithContext(ctx).Delete(&models.Device{}, deviceID)
	if res.Error != nil {
		return storeError(ctx, "delete device", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrDeviceNotFound
	}

	logger.Info("Deleted device", zap.Uint("id", deviceID))
	return nil
}

// getDevice is the administrative view of a device, api token included.
func (i *IOT) getDevice(ctx context.Context, deviceID uint) (*models.Device, error) {
	device, err := loadDevice(i.Db.Conn.WithContext(ctx), deviceID)
	if err != nil && !errors.Is(err, ErrDeviceNotFound) {
		return nil, storeError(ctx, "get device", err)
	}
	return device, err
}

// rotateAPIToken replaces the device's api token; the old one stops working
// at once.
func (i *IOT) rotateAPIToken(ctx context.Context, deviceID uint) (*models.Device, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)
	conn := i.Db.Conn.WithContext(ctx)

	res := conn.Model(&models.Device{}).Where("id = ?", deviceID).Update("api_token", uuid.NewString())
	if res.Error != nil {
		return nil, storeError(ctx, "rotate api token", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrDeviceNotFound
	}

	device, err := loadDevice(conn, deviceID)
	if err != nil {
		return nil, err
	}
	logger.Info("Rotated api token", zap.String("device_id", device.DeviceID))
	return device, nil
}

func validThresholds(t models.PlantThresholds) bool {
	return t.TemperatureMin <= t.TemperatureMax &&
		t.HumidityMin <= t.HumidityMax &&
		t.SoilMoistureMin <= t.SoilMoistureMax
}

// updatePlantThresholds applies to future alert checks only.
func (i *IOT) updatePlantThresholds(ctx context.Context, plantID uint, thresholds models.PlantThresholds) (*models.Plant, error) {
	if !validThresholds(thresholds) {
		return nil, ErrInvalidThresholds
	}

	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)
	conn := i.Db.Conn.WithContext(ctx)

	var plant models.Plant
	if err := conn.First(&plant, plantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPlantNotFound
		}
		return nil, storeError(ctx, "update plant", err)
	}

	if err := conn.Model(&plant).Updates(map[string]any{
		"temperature_min":   thresholds.TemperatureMin,
		"temperature_max":   thresholds.TemperatureMax,
		"humidity_min":      thresholds.HumidityMin,
		"humidity_max":      thresholds.HumidityMax,
		"soil_moisture_min": thresholds.SoilMoistureMin,
		"soil_moisture_max": thresholds.SoilMoistureMax,
	}).Error; err != nil {
		return nil, storeError(ctx, "update plant", err)
	}
	if err := conn.First(&plant, plantID).Error; err != nil {
		return nil, storeError(ctx, "update plant", err)
	}

	logger.Info("Updated plant thresholds", zap.String("plant", plant.Name), zap.Reflect("thresholds", thresholds))
	return &plant, nil
}

func (i *IOT) createGroup(ctx context.Context, name, description string) (*models.Group, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryDevice)

	group := models.Group{Name: strings.TrimSpace(name), Description: description}
	if err := i.Db.Conn.WithContext(ctx).Create(&group).Error; err != nil {
		if db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: %s", ErrGroupExists, group.Name)
		}
		return nil, storeError(ctx, "create group", err)
	}

	logger.Info("Created group", zap.String("group", group.Name))
	return &group, nil
}

type IDeviceImpl struct {
	iot *IOT
}

func (id *IDeviceImpl) ListStatuses(ctx context.Context, caller models.Caller) ([]models.DeviceStatusView, error) {
	return id.iot.listStatuses(ctx, caller)
}

func (id *IDeviceImpl) ToggleActuator(ctx context.Context, caller models.Caller, deviceID uint, actuator models.Actuator) (*models.Device, error) {
	return id.iot.toggleActuator(ctx, caller, deviceID, actuator)
}

func (id *IDeviceImpl) UpdateDevice(ctx context.Context, deviceID uint, update models.DeviceUpdate) (*models.Device, error) {
	return id.iot.updateDevice(ctx, deviceID, update)
}

func (id *IDeviceImpl) DeleteDevice(ctx context.Context, deviceID uint) error {
	return id.iot.deleteDevice(ctx, deviceID)
}

func (id *IDeviceImpl) UpdatePlantThresholds(ctx context.Context, plantID uint, thresholds models.PlantThresholds) (*models.Plant, error) {
	return id.iot.updatePlantThresholds(ctx, plantID, thresholds)
}

func (id *IDeviceImpl) GetDevice(ctx context.Context, deviceID uint) (*models.Device, error) {
	return id.iot.getDevice(ctx, deviceID)
}

func (id *IDeviceImpl) RotateAPIToken(ctx context.Context, deviceID uint) (*models.Device, error) {
	return id.iot.rotateAPIToken(ctx, deviceID)
}

func (id *IDeviceImpl) ListLocations(ctx context.Context, caller models.Caller, deviceID uint) ([]models.LocationView, error) {
	return id.iot.listLocations(ctx, caller, deviceID)
}

func (id *IDeviceImpl) UpdateLocation(ctx context.Context, locationID uint, update models.LocationUpdate) (*models.LocationView, error) {
	return id.iot.updateLocation(ctx, locationID, update)
}

func (id *IDeviceImpl) CreateGroup(ctx context.Context, name, description string) (*models.Group, error) {
	return id.iot.createGroup(ctx, name, description)
}

func (i *IOT) GetIDevice() IDevice {
	return &IDeviceImpl{iot: i}
}

package iot

import (
	"context"
	"crypto/subtle"
	"errors"

	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

func loadDevice(conn *gorm.DB, deviceID uint) (*models.Device, error) {
	var device models.Device
	err := conn.Preload("Group").First(&device, deviceID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, err
	}
	return &device, nil
}

// callerGroups is the set of group ids the caller is a member of.
func callerGroups(conn *gorm.DB, caller models.Caller) (map[uint]struct{}, error) {
	var groupIDs []uint
	if err := conn.Model(&models.UserGroup{}).
		Where("user_id = ?", caller.UserID).
		Pluck("group_id", &groupIDs).Error; err != nil {
		return nil, err
	}
	return common.SetOf(groupIDs), nil
}

// authorize lets staff and admins through; everyone else needs membership of
// the device's group. A device without a group is visible to privileged
// callers only.
func authorize(conn *gorm.DB, caller models.Caller, device *models.Device) error {
	if caller.IsPrivileged() {
		return nil
	}
	if device.GroupID == nil {
		return ErrForbidden
	}

	groups, err := callerGroups(conn, caller)
	if err != nil {
		return err
	}
	if _, ok := groups[*device.GroupID]; !ok {
		return ErrForbidden
	}
	return nil
}

// authorizedDevice runs the lookup before the access check, so an unknown id
// is ErrDeviceNotFound for every caller.
func authorizedDevice(conn *gorm.DB, caller models.Caller, deviceID uint) (*models.Device, error) {
	device, err := loadDevice(conn, deviceID)
	if err != nil {
		return nil, err
	}
	if err := authorize(conn, caller, device); err != nil {
		return nil, err
	}
	return device, nil
}

// AuthenticateDevice resolves a device by its identifier and api token. An
// unknown identifier and a wrong token fail the same way.
func (i *IOT) AuthenticateDevice(ctx context.Context, deviceID, apiToken string) (*models.Device, error) {
	if deviceID == "" || apiToken == "" {
		return nil, ErrDeviceUnauthorized
	}

	var device models.Device
	err := i.Db.Conn.WithContext(ctx).Preload("Group").Where("device_id = ?", deviceID).Take(&device).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeviceUnauthorized
	}
	if err != nil {
		return nil, storeError(ctx, "authenticate device", err)
	}

	if subtle.ConstantTimeCompare([]byte(device.APIToken), []byte(apiToken)) != 1 || !device.Active {
		return nil, ErrDeviceUnauthorized
	}
	return &device, nil
}

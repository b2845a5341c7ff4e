package iot

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

func TestListStatuses(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	iotObj.Now = func() time.Time { return scenarioTime }
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-fresh", scenarioTime.Add(-10*time.Minute), 20, 50).WithLocation("bedA", ptr(40)))
	ingestReport(t, iotObj, payload.NewReport("pi-fresh", scenarioTime.Add(-50*time.Minute), 20, 50).WithLocation("bedB", ptr(40)))
	ingestReport(t, iotObj, payload.NewReport("pi-stale", scenarioTime.Add(-3*time.Hour), 20, 50).WithLocation("bedA", ptr(40)))
	ingestReport(t, iotObj, payload.NewReport("pi-silent", scenarioTime, 20, 50))

	retired := deviceByName(t, iotObj, "pi-silent")
	inactive := false
	_, err := iotObj.Device.UpdateDevice(ctx, retired.ID, models.DeviceUpdate{Active: &inactive})
	require.NoError(t, err)
	ingestReport(t, iotObj, payload.NewReport("pi-quiet", scenarioTime, 20, 50))

	views, err := iotObj.Device.ListStatuses(ctx, staff)
	require.NoError(t, err)

	byName := map[string]models.DeviceStatusView{}
	for _, v := range views {
		byName[v.DeviceID] = v
	}
	require.Len(t, byName, 3)
	assert.NotContains(t, byName, "pi-silent")

	assert.Equal(t, models.PresenceOnline, byName["pi-fresh"].Presence)
	require.NotNil(t, byName["pi-fresh"].LastData)
	assert.True(t, scenarioTime.Add(-10*time.Minute).Equal(*byName["pi-fresh"].LastData))
	assert.Equal(t, common.DefaultGroupName, byName["pi-fresh"].GroupName)

	assert.Equal(t, models.PresenceOffline, byName["pi-stale"].Presence)
	assert.Equal(t, models.PresenceOffline, byName["pi-quiet"].Presence)
	assert.Nil(t, byName["pi-quiet"].LastData)

	// presence is derived, the stored status never changes
	assert.Equal(t, models.DeviceStatusUnassigned, byName["pi-stale"].Status)
}

func TestListStatusesScopedToGroups(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50))
	ingestReport(t, iotObj, payload.NewReport("pi-2", scenarioTime, 20, 50))

	north, err := iotObj.Device.CreateGroup(ctx, "north", "north bench")
	require.NoError(t, err)
	pi2 := deviceByName(t, iotObj, "pi-2")
	_, err = iotObj.Device.UpdateDevice(ctx, pi2.ID, models.DeviceUpdate{GroupID: &north.ID})
	require.NoError(t, err)

	member := createUser(t, iotObj, "member", models.RoleUser, north.ID)
	views, err := iotObj.Device.ListStatuses(ctx, member)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, "pi-2", views[0].DeviceID)
	assert.Equal(t, "north", views[0].GroupName)
	assert.Equal(t, models.DeviceStatusAssigned, views[0].Status)

	loner := createUser(t, iotObj, "loner", models.RoleUser)
	views, err = iotObj.Device.ListStatuses(ctx, loner)
	require.NoError(t, err)
	assert.NotNil(t, views)
	assert.Empty(t, views)
}

func TestToggleActuator(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50))
	device := deviceByName(t, iotObj, "pi-1")

	updated, err := iotObj.Device.ToggleActuator(ctx, staff, device.ID, models.ActuatorFan)
	require.NoError(t, err)
	assert.True(t, updated.FanState)
	assert.False(t, updated.PumpState)

	updated, err = iotObj.Device.ToggleActuator(ctx, staff, device.ID, models.ActuatorFan)
	require.NoError(t, err)
	assert.False(t, updated.FanState)

	updated, err = iotObj.Device.ToggleActuator(ctx, staff, device.ID, models.ActuatorPump)
	require.NoError(t, err)
	assert.True(t, updated.PumpState)

	var actions []models.Action
	require.NoError(t, iotObj.Db.Conn.Where("device_id = ?", device.ID).Order("id").Find(&actions).Error)
	require.Len(t, actions, 3)
	assert.Equal(t, models.ActionTypeVentilation, actions[0].ActionType)
	assert.Equal(t, models.ActionTypeIrrigation, actions[2].ActionType)
	for _, a := range actions {
		assert.Equal(t, models.ActionStatusPending, a.Status)
	}

	_, err = iotObj.Device.ToggleActuator(ctx, staff, device.ID, models.Actuator("heater"))
	assert.ErrorIs(t, err, ErrInvalidActuator)

	loner := createUser(t, iotObj, "loner", models.RoleUser)
	_, err = iotObj.Device.ToggleActuator(ctx, loner, device.ID, models.ActuatorPump)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = iotObj.Device.ToggleActuator(ctx, staff, 424242, models.ActuatorPump)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestUpdateDevice(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50))
	device := deviceByName(t, iotObj, "pi-1")

	north, err := iotObj.Device.CreateGroup(ctx, "north", "")
	require.NoError(t, err)

	where := "  north bench, row 3 "
	updated, err := iotObj.Device.UpdateDevice(ctx, device.ID, models.DeviceUpdate{GroupID: &north.ID, LocationDescription: &where})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusAssigned, updated.Status)
	require.NotNil(t, updated.Group)
	assert.Equal(t, "north", updated.Group.Name)
	assert.Equal(t, "north bench, row 3", updated.LocationDescription)

	updated, err = iotObj.Device.UpdateDevice(ctx, device.ID, models.DeviceUpdate{ClearGroup: true})
	require.NoError(t, err)
	assert.Equal(t, models.DeviceStatusUnassigned, updated.Status)
	assert.Nil(t, updated.GroupID)

	// a device without a group acks under the default group name
	ack := ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50))
	assert.Equal(t, common.DefaultGroupName, ack.Device.GroupName)

	missing := uint(424242)
	_, err = iotObj.Device.UpdateDevice(ctx, device.ID, models.DeviceUpdate{GroupID: &missing})
	assert.ErrorIs(t, err, ErrGroupNotFound)

	_, err = iotObj.Device.UpdateDevice(ctx, missing, models.DeviceUpdate{})
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestDeleteDeviceCascades(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 50, 50).WithLocation("bedA", ptr(90)))
	ingestReport(t, iotObj, payload.NewReport("pi-2", scenarioTime, 20, 50).WithLocation("bedA", ptr(40)))
	device := deviceByName(t, iotObj, "pi-1")
	_, err := iotObj.Device.ToggleActuator(ctx, staff, device.ID, models.ActuatorPump)
	require.NoError(t, err)
	require.NotZero(t, count(t, iotObj, &models.Alert{}))

	require.NoError(t, iotObj.Device.DeleteDevice(ctx, device.ID))

	assert.EqualValues(t, 1, count(t, iotObj, &models.Device{}))
	assert.EqualValues(t, 1, count(t, iotObj, &models.SensorLocation{}))
	assert.EqualValues(t, 1, count(t, iotObj, &models.SensorReading{}))
	assert.EqualValues(t, 1, count(t, iotObj, &models.DataPayload{}))
	assert.Zero(t, count(t, iotObj, &models.Action{}))
	assert.Zero(t, count(t, iotObj, &models.Alert{}))
	// groups and plants are shared and survive
	assert.EqualValues(t, 1, count(t, iotObj, &models.Group{}))
	assert.EqualValues(t, 1, count(t, iotObj, &models.Plant{}))

	assert.ErrorIs(t, iotObj.Device.DeleteDevice(ctx, device.ID), ErrDeviceNotFound)
}

func TestUpdatePlantThresholds(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50).WithLocation("orchid", ptr(40)))

	var plant models.Plant
	require.NoError(t, iotObj.Db.Conn.Where("name = ?", "orchid").First(&plant).Error)

	thresholds := models.PlantThresholds{
		TemperatureMin: 18, TemperatureMax: 28,
		HumidityMin: 50, HumidityMax: 90,
		SoilMoistureMin: 30, SoilMoistureMax: 60,
	}
	updated, err := iotObj.Device.UpdatePlantThresholds(ctx, plant.ID, thresholds)
	require.NoError(t, err)
	assert.Equal(t, 18.0, updated.TemperatureMin)
	assert.Equal(t, 90.0, updated.HumidityMax)

	// stored readings are not re-evaluated
	var reading models.SensorReading
	require.NoError(t, iotObj.Db.Conn.First(&reading).Error)
	assert.Equal(t, 20.0, *reading.Temperature)
	assert.Zero(t, count(t, iotObj, &models.Alert{}))

	bad := thresholds
	bad.SoilMoistureMin = 70
	_, err = iotObj.Device.UpdatePlantThresholds(ctx, plant.ID, bad)
	assert.ErrorIs(t, err, ErrInvalidThresholds)

	_, err = iotObj.Device.UpdatePlantThresholds(ctx, 424242, thresholds)
	assert.ErrorIs(t, err, ErrPlantNotFound)
}

func TestCreateGroup(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()

	group, err := iotObj.Device.CreateGroup(ctx, " south ", "south bench")
	require.NoError(t, err)
	assert.Equal(t, "south", group.Name)
	assert.False(t, group.IsDefault)

	_, err = iotObj.Device.CreateGroup(ctx, "south", "")
	assert.ErrorIs(t, err, ErrGroupExists)

	_, err = iotObj.Device.CreateGroup(ctx, common.DefaultGroupName, "")
	assert.ErrorIs(t, err, ErrGroupExists)
}

func TestListLocations(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()
	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50).
		WithLocation("bedB", ptr(30)).
		WithLocation("bedA", nil))
	device := deviceByName(t, iotObj, "pi-1")

	views, err := iotObj.Device.ListLocations(ctx, staff, device.ID)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "bedA", views[0].Name)
	assert.Nil(t, views[0].SoilMoisture)
	require.NotNil(t, views[1].SoilMoisture)
	assert.Equal(t, 30.0, *views[1].SoilMoisture)
	require.NotNil(t, views[1].Plant)
	assert.Equal(t, DefaultPlantThresholds.SoilMoistureMin, views[1].Plant.SoilMoistureMin)

	outsider := createUser(t, iotObj, "outsider", models.RoleUser)
	_, err = iotObj.Device.ListLocations(ctx, outsider, device.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = iotObj.Device.ListLocations(ctx, staff, 9999)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestUpdateLocation(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()
	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50).WithLocation("bedA", ptr(30)))

	var location models.SensorLocation
	require.NoError(t, iotObj.Db.Conn.Where("location_name = ?", "bedA").First(&location).Error)
	fern := models.Plant{Name: "fern", SoilMoistureMin: 50, SoilMoistureMax: 90}
	require.NoError(t, iotObj.Db.Conn.Create(&fern).Error)

	x, y := 2.0, 3.5
	view, err := iotObj.Device.UpdateLocation(ctx, location.ID, models.LocationUpdate{PlantID: &fern.ID, XPosition: &x, YPosition: &y})
	require.NoError(t, err)
	require.NotNil(t, view.Plant)
	assert.Equal(t, "fern", view.Plant.Name)
	assert.Equal(t, 2.0, *view.XPosition)
	assert.Equal(t, 3.5, *view.YPosition)

	// a partial edit leaves the rest alone
	x = 7
	view, err = iotObj.Device.UpdateLocation(ctx, location.ID, models.LocationUpdate{XPosition: &x})
	require.NoError(t, err)
	assert.Equal(t, "fern", view.Plant.Name)
	assert.Equal(t, 7.0, *view.XPosition)
	assert.Equal(t, 3.5, *view.YPosition)

	// readings arriving afterwards keep the assigned plant and alert against it
	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50).WithLocation("bedA", ptr(40)))
	views, err := iotObj.Device.ListLocations(ctx, staff, location.DeviceID)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, fern.ID, views[0].Plant.ID)

	var alerts []models.Alert
	require.NoError(t, iotObj.Db.Conn.Where("sensor_location_id = ? AND type = ?", location.ID, models.AlertTypeSoilMoisture).Find(&alerts).Error)
	assert.Len(t, alerts, 1)

	missing := uint(9999)
	_, err = iotObj.Device.UpdateLocation(ctx, location.ID, models.LocationUpdate{PlantID: &missing})
	assert.ErrorIs(t, err, ErrPlantNotFound)
	_, err = iotObj.Device.UpdateLocation(ctx, 9999, models.LocationUpdate{XPosition: &x})
	assert.ErrorIs(t, err, ErrLocationNotFound)
}

func TestRotateAPIToken(t *testing.T) {
	common.SetTestLoggerNop()

	iotObj := newTestIOT(t)
	ctx := context.Background()
	ingestReport(t, iotObj, payload.NewReport("pi-1", scenarioTime, 20, 50))
	before := deviceByName(t, iotObj, "pi-1")

	got, err := iotObj.Device.GetDevice(ctx, before.ID)
	require.NoError(t, err)
	assert.Equal(t, before.APIToken, got.APIToken)

	rotated, err := iotObj.Device.RotateAPIToken(ctx, before.ID)
	require.NoError(t, err)
	assert.NotEqual(t, before.APIToken, rotated.APIToken)

	_, err = iotObj.AuthenticateDevice(ctx, "pi-1", before.APIToken)
	assert.ErrorIs(t, err, ErrDeviceUnauthorized)
	_, err = iotObj.AuthenticateDevice(ctx, "pi-1", rotated.APIToken)
	assert.NoError(t, err)

	_, err = iotObj.Device.GetDevice(ctx, 9999)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
	_, err = iotObj.Device.RotateAPIToken(ctx, 9999)
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

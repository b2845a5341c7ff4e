package iot

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
	"liyu1981.xyz/greenhouse-telemetry/pkg/payload"
)

// ingest reconciles entities, archives the payload and appends one reading per
// location in a single transaction bounded by the store timeout. The device is
// re-read after commit so the ack reflects out-of-band actuator changes.
func (i *IOT) ingest(ctx context.Context, reading *payload.Reading, plaintext []byte) (*models.Device, []models.SensorReading, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryIngest, zap.String("device_id", reading.DeviceName))

	ctx, cancel := context.WithTimeout(ctx, i.storeTimeout())
	defer cancel()

	var (
		deviceID uint
		rows     []models.SensorReading
	)

	err := i.Db.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		device, locations, err := reconcile(tx, reading)
		if err != nil {
			return err
		}
		deviceID = device.ID

		archive := models.DataPayload{DeviceID: device.ID, Payload: datatypes.JSON(plaintext)}
		if err := tx.Create(&archive).Error; err != nil {
			return fmt.Errorf("archive payload: %w", err)
		}

		rows = buildReadings(reading, locations)
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("append readings: %w", err)
		}
		return nil
	})
	if err != nil {
		logger.Warn("Ingestion rolled back", zap.Error(err))
		return nil, nil, storeError(ctx, "ingest", err)
	}

	var device models.Device
	if err := i.Db.Conn.WithContext(ctx).Preload("Group").First(&device, deviceID).Error; err != nil {
		return nil, nil, storeError(ctx, "reload device", err)
	}

	logger.Info("Ingested payload", zap.Int("readings", len(rows)), zap.Time("timestamp", reading.Timestamp))

	return &device, rows, nil
}

// buildReadings shares the payload-level values across every location row.
func buildReadings(reading *payload.Reading, locations []models.SensorLocation) []models.SensorReading {
	rows := make([]models.SensorReading, 0, len(locations))
	for idx, location := range locations {
		temperature := reading.Temperature
		humidity := reading.AirHumidity
		rows = append(rows, models.SensorReading{
			SensorLocationID: location.ID,
			Timestamp:        reading.Timestamp,
			Temperature:      &temperature,
			AirHumidity:      &humidity,
			SoilMoisture:     reading.Locations[idx].SoilMoisture,
			WaterLevel:       reading.WaterLevel,
		})
	}
	return rows
}

type IIngestImpl struct {
	iot *IOT
}

func (ii *IIngestImpl) Ingest(ctx context.Context, reading *payload.Reading, plaintext []byte) (*models.Device, []models.SensorReading, error) {
	return ii.iot.ingest(ctx, reading, plaintext)
}

func (i *IOT) GetIIngest() IIngest {
	return &IIngestImpl{iot: i}
}

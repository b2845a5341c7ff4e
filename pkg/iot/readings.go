package iot

import (
	"context"
	"database/sql"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"liyu1981.xyz/greenhouse-telemetry/pkg/common"
	"liyu1981.xyz/greenhouse-telemetry/pkg/models"
)

// windows reaching further back than this start at the zero time
const maxHoursBack = math.MaxInt64 / int64(time.Hour)

const chartTimeLayout = "2006-01-02 15:04"

// ParseHours reads the look-back window. Empty means the default; anything
// other than plain decimal digits is ErrInvalidHours.
func ParseHours(raw string) (int, error) {
	if raw == "" {
		return common.DefaultHoursBack, nil
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return 0, ErrInvalidHours
		}
	}
	hours, err := strconv.Atoi(raw)
	if err != nil {
		return 0, ErrInvalidHours
	}
	return hours, nil
}

func windowStart(now time.Time, hours int) time.Time {
	if int64(hours) >= maxHoursBack {
		return time.Time{}
	}
	return now.Add(-time.Duration(hours) * time.Hour)
}

// Decimate keeps every Nth row with N = ceil(len/maxPoints), so the result
// never exceeds maxPoints and keeps its order.
func Decimate[T any](rows []T, maxPoints int) []T {
	if maxPoints <= 0 || len(rows) <= maxPoints {
		return rows
	}
	step := (len(rows) + maxPoints - 1) / maxPoints
	out := make([]T, 0, maxPoints)
	for idx := 0; idx < len(rows); idx += step {
		out = append(out, rows[idx])
	}
	return out
}

// Presence derives online/offline from the latest reading.
func Presence(last *time.Time, now time.Time, window time.Duration) models.Presence {
	if last != nil && !last.Before(now.Add(-window)) {
		return models.PresenceOnline
	}
	return models.PresenceOffline
}

func (i *IOT) scopedWindow(ctx context.Context, caller models.Caller, deviceID uint, hours string) (*gorm.DB, *models.Device, int, error) {
	conn := i.Db.Conn.WithContext(ctx)

	device, err := authorizedDevice(conn, caller, deviceID)
	if err != nil {
		return nil, nil, 0, err
	}

	parsed, err := ParseHours(hours)
	if err != nil {
		return nil, nil, 0, err
	}
	return conn, device, parsed, nil
}

func queryReadings(conn *gorm.DB, deviceID uint, since time.Time) ([]models.ReadingView, error) {
	views := []models.ReadingView{}
	err := conn.Table("sensor_readings").
		Select(`sensor_readings.id,
			sensor_locations.location_name AS location,
			plants.name AS plant,
			sensor_readings.soil_moisture,
			sensor_readings.timestamp,
			sensor_readings.temperature,
			sensor_readings.air_humidity,
			sensor_readings.water_level`).
		Joins("JOIN sensor_locations ON sensor_locations.id = sensor_readings.sensor_location_id").
		Joins("LEFT JOIN plants ON plants.id = sensor_locations.plant_id").
		Where("sensor_locations.device_id = ? AND sensor_readings.timestamp >= ?", deviceID, since).
		Order("sensor_readings.timestamp ASC, sensor_readings.id ASC").
		Scan(&views).Error
	return views, err
}

func (i *IOT) getReadings(ctx context.Context, caller models.Caller, deviceID uint, hours string) ([]models.ReadingView, error) {
	logger := common.GetCategoryLogger(common.LoggerCategoryReadings)

	conn, device, parsed, err := i.scopedWindow(ctx, caller, deviceID, hours)
	if err != nil {
		return nil, err
	}

	views, err := queryReadings(conn, device.ID, windowStart(i.now(), parsed))
	if err != nil {
		return nil, storeError(ctx, "readings", err)
	}

	logger.Debug("Served readings",
		zap.String("device_id", device.DeviceID),
		zap.Int("hours", parsed),
		zap.Int("rows", len(views)),
	)
	return views, nil
}

func (i *IOT) getChart(ctx context.Context, caller models.Caller, deviceID uint, hours string) (*models.ChartView, error) {
	conn, device, parsed, err := i.scopedWindow(ctx, caller, deviceID, hours)
	if err != nil {
		return nil, err
	}

	views, err := queryReadings(conn, device.ID, windowStart(i.now(), parsed))
	if err != nil {
		return nil, storeError(ctx, "chart", err)
	}

	var snapshots []sql.NullFloat64
	if err := conn.Model(&models.SensorLocation{}).
		Where("device_id = ?", device.ID).
		Pluck("soil_moisture", &snapshots).Error; err != nil {
		return nil, storeError(ctx, "chart", err)
	}

	points := Decimate(views, i.chartMaxPoints())
	chart := &models.ChartView{
		Hours:       parsed,
		Points:      len(points),
		Temperature: models.Series{TimeLabels: []string{}, Values: []*float64{}},
		Humidity:    models.Series{TimeLabels: []string{}, Values: []*float64{}},
		Water:       models.Series{TimeLabels: []string{}, Values: []*float64{}},
		Soil:        soilTraces(points),
		Gauges:      gauges(views, snapshots),
	}
	for _, p := range points {
		label := p.Timestamp.UTC().Format(chartTimeLayout)
		chart.Temperature.TimeLabels = append(chart.Temperature.TimeLabels, label)
		chart.Temperature.Values = append(chart.Temperature.Values, p.Temperature)
		chart.Humidity.TimeLabels = append(chart.Humidity.TimeLabels, label)
		chart.Humidity.Values = append(chart.Humidity.Values, p.AirHumidity)
		chart.Water.TimeLabels = append(chart.Water.TimeLabels, label)
		chart.Water.Values = append(chart.Water.Values, p.WaterLevel)
	}
	return chart, nil
}

// soilTraces groups soil moisture per location in first-seen order, skipping
// readings without a value.
func soilTraces(points []models.ReadingView) []models.SoilTrace {
	traces := []models.SoilTrace{}
	index := map[string]int{}
	for _, p := range points {
		if p.SoilMoisture == nil {
			continue
		}
		idx, ok := index[p.Location]
		if !ok {
			idx = len(traces)
			index[p.Location] = idx
			traces = append(traces, models.SoilTrace{Name: p.Location})
		}
		traces[idx].TimeLabels = append(traces[idx].TimeLabels, p.Timestamp.UTC().Format(chartTimeLayout))
		traces[idx].Values = append(traces[idx].Values, *p.SoilMoisture)
	}
	return traces
}

func gauges(views []models.ReadingView, snapshots []sql.NullFloat64) []models.Gauge {
	var temperature, humidity, water float64
	if len(views) > 0 {
		last := views[len(views)-1]
		temperature = valueOrZero(last.Temperature)
		humidity = valueOrZero(last.AirHumidity)
		water = valueOrZero(last.WaterLevel)
	}

	present := common.Reducer(snapshots, func(acc []float64, v sql.NullFloat64) []float64 {
		if v.Valid {
			acc = append(acc, v.Float64)
		}
		return acc
	}, []float64{})
	var soil float64
	if len(present) > 0 {
		soil = common.Reducer(present, func(acc float64, v float64) float64 { return acc + v }, 0) / float64(len(present))
	}

	return []models.Gauge{
		{ID: "temperature", Title: "Temperature (°C)", Value: temperature, Min: 0, Max: 50},
		{ID: "humidity", Title: "Air humidity (%)", Value: humidity, Min: 0, Max: 100},
		{ID: "soil_moisture", Title: "Soil moisture (%)", Value: soil, Min: 0, Max: 100},
		{ID: "water_level", Title: "Water level (%)", Value: water, Min: 0, Max: 100},
	}
}

func valueOrZero(v *float64) float64 {
	if v == nil {
		return 0
	}
	return *v
}

type IReadingsImpl struct {
	iot *IOT
}

func (ir *IReadingsImpl) GetReadings(ctx context.Context, caller models.Caller, deviceID uint, hours string) ([]models.ReadingView, error) {
	return ir.iot.getReadings(ctx, caller, deviceID, hours)
}

func (ir *IReadingsImpl) GetChart(ctx context.Context, caller models.Caller, deviceID uint, hours string) (*models.ChartView, error) {
	return ir.iot.getChart(ctx, caller, deviceID, hours)
}

func (i *IOT) GetIReadings() IReadings {
	return &IReadingsImpl{iot: i}
}

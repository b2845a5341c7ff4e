package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Version tags which firmware generation shaped a payload.
type Version int

const (
	VersionRaspberry Version = 1
	VersionDevice    Version = 2
)

const (
	FieldTimestamp   = "timestamp"
	FieldRaspberry   = "raspberry"
	FieldDevice      = "device"
	FieldLocations   = "locations"
	FieldTemperature = "temperature"
	FieldAirHumidity = "air_humidity"
	FieldWaterLevel  = "water_level"
)

// DayFirstLayout is the timestamp format of the oldest firmware, always UTC.
const DayFirstLayout = "02/01/2006 15:04:05"

// some firmware drops the zero padding or the colon in the offset
const (
	dayFirstUnpaddedLayout = "2/1/2006 15:04:05"
	numericOffsetLayout    = "2006-01-02T15:04:05.999999999-0700"
)

var timestampLayouts = []string{
	DayFirstLayout,
	dayFirstUnpaddedLayout,
	time.RFC3339Nano,
	time.RFC3339,
	numericOffsetLayout,
}

// Location is one sensor entry, with soil moisture reduced to a single scalar.
type Location struct {
	Name         string
	SoilMoisture *float64
}

// Reading is the canonical form every accepted payload version normalizes to.
type Reading struct {
	Version     Version
	DeviceName  string
	Timestamp   time.Time
	Locations   []Location
	Temperature float64
	AirHumidity float64
	WaterLevel  *float64
}

// Validate decodes a decrypted payload and normalizes it to a Reading. Unknown
// keys are ignored. Every rejection is a *ValidationError.
func Validate(plaintext []byte) (*Reading, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(plaintext, &raw); err != nil || raw == nil {
		return nil, &ValidationError{Fields: []FieldError{{Field: "$", Message: "must be a JSON object"}}}
	}

	verr := &ValidationError{}
	reading := &Reading{}

	decodeDevice(raw, reading, verr)

	if ts, ok := requiredString(raw, FieldTimestamp, verr); ok {
		parsed, err := ParseTimestamp(ts)
		if err != nil {
			verr.add(FieldTimestamp, "unrecognized timestamp format")
		} else {
			reading.Timestamp = parsed
		}
	}

	if v, ok := requiredNumber(raw, FieldTemperature, verr); ok {
		reading.Temperature = v
	}
	if v, ok := requiredNumber(raw, FieldAirHumidity, verr); ok {
		reading.AirHumidity = v
	}
	reading.WaterLevel = optionalNumber(raw, FieldWaterLevel, verr)

	decodeLocations(raw, reading, verr)

	validateNames(reading, verr)

	if !verr.empty() {
		return nil, verr
	}
	return reading, nil
}

// ParseTimestamp accepts the day-first legacy layout and RFC3339 with or
// without fractional seconds or an offset colon, returning UTC.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", value)
}

type raspberryInfo struct {
	DeviceName json.RawMessage `json:"device_name"`
}

type deviceInfo struct {
	Name json.RawMessage `json:"name"`
}

// the raspberry form wins when a payload carries both
func decodeDevice(raw map[string]json.RawMessage, reading *Reading, verr *ValidationError) {
	if msg, ok := present(raw, FieldRaspberry); ok {
		var info raspberryInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			verr.add(FieldRaspberry, "must be an object")
			return
		}
		reading.Version = VersionRaspberry
		reading.DeviceName = nameFrom(info.DeviceName, FieldRaspberry+".device_name", verr)
		return
	}

	if msg, ok := present(raw, FieldDevice); ok {
		var info deviceInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			verr.add(FieldDevice, "must be an object")
			return
		}
		reading.Version = VersionDevice
		reading.DeviceName = nameFrom(info.Name, FieldDevice+".name", verr)
		return
	}

	verr.add(FieldRaspberry, "is required")
}

func nameFrom(msg json.RawMessage, field string, verr *ValidationError) string {
	if isNull(msg) {
		// left empty for the schema to report
		return ""
	}
	var name string
	if err := json.Unmarshal(msg, &name); err != nil {
		verr.add(field, "must be a string")
		return ""
	}
	return strings.TrimSpace(name)
}

type wireLocation struct {
	LocationName json.RawMessage `json:"location_name"`
	SoilMoisture json.RawMessage `json:"soil_moisture"`
}

func decodeLocations(raw map[string]json.RawMessage, reading *Reading, verr *ValidationError) {
	msg, ok := present(raw, FieldLocations)
	if !ok {
		verr.add(FieldLocations, "is required")
		return
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(msg, &entries); err != nil {
		verr.add(FieldLocations, "must be an array")
		return
	}

	reading.Locations = make([]Location, 0, len(entries))
	for i, entry := range entries {
		prefix := fmt.Sprintf("%s[%d]", FieldLocations, i)

		var loc wireLocation
		if isNull(entry) || json.Unmarshal(entry, &loc) != nil {
			verr.add(prefix, "must be an object")
			continue
		}

		out := Location{}
		if isNull(loc.LocationName) {
			verr.add(prefix+".location_name", "is required")
		} else if err := json.Unmarshal(loc.LocationName, &out.Name); err != nil {
			verr.add(prefix+".location_name", "must be a string")
		}
		out.Name = strings.TrimSpace(out.Name)

		soil, err := soilMoisture(loc.SoilMoisture)
		if err != nil {
			verr.add(prefix+".soil_moisture", err.Error())
		}
		out.SoilMoisture = soil

		reading.Locations = append(reading.Locations, out)
	}
}

var errSoilMoistureType = errors.New("must be a number or an array of numbers")

// soilMoisture folds the per-sensor array some firmware sends into its mean.
// An empty array means no value.
func soilMoisture(msg json.RawMessage) (*float64, error) {
	if isNull(msg) {
		return nil, nil
	}

	var scalar float64
	if err := json.Unmarshal(msg, &scalar); err == nil {
		return &scalar, nil
	}

	var samples []*float64
	if err := json.Unmarshal(msg, &samples); err != nil {
		return nil, errSoilMoistureType
	}
	if len(samples) == 0 {
		return nil, nil
	}

	var sum float64
	for _, p := range samples {
		if p == nil {
			return nil, errSoilMoistureType
		}
		sum += *p
	}
	mean := sum / float64(len(samples))
	return &mean, nil
}

func requiredString(raw map[string]json.RawMessage, field string, verr *ValidationError) (string, bool) {
	msg, ok := present(raw, field)
	if !ok {
		verr.add(field, "is required")
		return "", false
	}
	var s string
	if err := json.Unmarshal(msg, &s); err != nil {
		verr.add(field, "must be a string")
		return "", false
	}
	return s, true
}

func requiredNumber(raw map[string]json.RawMessage, field string, verr *ValidationError) (float64, bool) {
	msg, ok := present(raw, field)
	if !ok {
		verr.add(field, "is required")
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		verr.add(field, "must be a number")
		return 0, false
	}
	return v, true
}

func optionalNumber(raw map[string]json.RawMessage, field string, verr *ValidationError) *float64 {
	msg, ok := present(raw, field)
	if !ok {
		return nil
	}
	var v float64
	if err := json.Unmarshal(msg, &v); err != nil {
		verr.add(field, "must be a number")
		return nil
	}
	return &v
}

// present treats an explicit null like a missing key.
func present(raw map[string]json.RawMessage, field string) (json.RawMessage, bool) {
	msg, ok := raw[field]
	if !ok || isNull(msg) {
		return nil, false
	}
	return msg, true
}

func isNull(msg json.RawMessage) bool {
	trimmed := bytes.TrimSpace(msg)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}

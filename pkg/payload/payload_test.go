package payload

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fieldsOf(t *testing.T, err error) map[string]string {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	out := map[string]string{}
	for _, f := range verr.Fields {
		out[f.Field] = f.Message
	}
	return out
}

func TestValidateCurrentFirmware(t *testing.T) {
	reading, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi-42"},"locations":[{"location_name":"bedA","soil_moisture":55.0}],"temperature":22.5,"air_humidity":60.0}`))
	require.NoError(t, err)

	assert.Equal(t, VersionRaspberry, reading.Version)
	assert.Equal(t, "pi-42", reading.DeviceName)
	assert.Equal(t, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC), reading.Timestamp)
	assert.Equal(t, 22.5, reading.Temperature)
	assert.Equal(t, 60.0, reading.AirHumidity)
	assert.Nil(t, reading.WaterLevel)
	require.Len(t, reading.Locations, 1)
	assert.Equal(t, "bedA", reading.Locations[0].Name)
	require.NotNil(t, reading.Locations[0].SoilMoisture)
	assert.Equal(t, 55.0, *reading.Locations[0].SoilMoisture)
}

func TestValidateDeviceForm(t *testing.T) {
	reading, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","device":{"name":" pi-7 "},"locations":[],"temperature":20,"air_humidity":50,"water_level":12.5}`))
	require.NoError(t, err)

	assert.Equal(t, VersionDevice, reading.Version)
	assert.Equal(t, "pi-7", reading.DeviceName)
	assert.Empty(t, reading.Locations)
	require.NotNil(t, reading.WaterLevel)
	assert.Equal(t, 12.5, *reading.WaterLevel)
}

func TestValidateRaspberryWinsOverDevice(t *testing.T) {
	reading, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi-a"},"device":{"name":"pi-b"},"locations":[],"temperature":20,"air_humidity":50}`))
	require.NoError(t, err)
	assert.Equal(t, "pi-a", reading.DeviceName)
	assert.Equal(t, VersionRaspberry, reading.Version)
}

func TestValidateSoilMoistureShapes(t *testing.T) {
	cases := []struct {
		name string
		soil string
		want *float64
	}{
		{"scalar", `41.5`, ptr(41.5)},
		{"null", `null`, nil},
		{"per-sensor array", `[40, 50, 60]`, ptr(50)},
		{"empty array", `[]`, nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			body := `{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi"},"locations":[{"location_name":"bed","soil_moisture":` + tc.soil + `}],"temperature":20,"air_humidity":50}`
			reading, err := Validate([]byte(body))
			require.NoError(t, err)
			require.Len(t, reading.Locations, 1)
			if tc.want == nil {
				assert.Nil(t, reading.Locations[0].SoilMoisture)
				return
			}
			require.NotNil(t, reading.Locations[0].SoilMoisture)
			assert.InDelta(t, *tc.want, *reading.Locations[0].SoilMoisture, 1e-9)
		})
	}

	reading, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi"},"locations":[{"location_name":"bed"}],"temperature":20,"air_humidity":50}`))
	require.NoError(t, err)
	assert.Nil(t, reading.Locations[0].SoilMoisture)

	for _, soil := range []string{`[40, null]`, `[null]`, `[40, "wet"]`, `[[40]]`} {
		body := `{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi"},"locations":[{"location_name":"bed","soil_moisture":` + soil + `}],"temperature":20,"air_humidity":50}`
		reading, err := Validate([]byte(body))
		assert.Nil(t, reading, soil)
		assert.Contains(t, fieldsOf(t, err), "locations[0].soil_moisture", soil)
	}
}

func TestValidateNameLength(t *testing.T) {
	longest := strings.Repeat("a", MaxNameLength)
	tooLong := longest + "a"

	body := func(device, location string) []byte {
		return []byte(`{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"` + device + `"},"locations":[{"location_name":"` + location + `"}],"temperature":20,"air_humidity":50}`)
	}

	reading, err := Validate(body(longest, longest))
	require.NoError(t, err)
	assert.Equal(t, longest, reading.DeviceName)

	_, err = Validate(body(tooLong, "bed"))
	fields := fieldsOf(t, err)
	assert.Contains(t, fields, "raspberry.device_name")
	assert.NotContains(t, fields, "locations[0].location_name")

	_, err = Validate(body("pi", strings.Repeat("b", 500)))
	assert.Contains(t, fieldsOf(t, err), "locations[0].location_name")

	_, err = Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","device":{"name":"` + tooLong + `"},"locations":[],"temperature":20,"air_humidity":50}`))
	assert.Contains(t, fieldsOf(t, err), "device.name")
}

func TestParseTimestamp(t *testing.T) {
	want := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)

	for _, value := range []string{
		"01/06/2024 10:00:00",
		"2024-06-01T10:00:00Z",
		"2024-06-01T10:00:00.000Z",
		"2024-06-01T12:00:00.000+02:00",
		"2024-06-01T12:00:00+02:00",
		"2024-06-01T10:00:00+0000",
		"2024-06-01T12:00:00.000+0200",
		"1/6/2024 10:00:00",
	} {
		got, err := ParseTimestamp(value)
		require.NoError(t, err, value)
		assert.True(t, want.Equal(got), value)
		assert.Equal(t, time.UTC, got.Location(), value)
	}

	for _, value := range []string{"", "yesterday", "2024-06-01", "2024/06/01 10:00:00", "32/01/2024 10:00:00"} {
		_, err := ParseTimestamp(value)
		assert.Error(t, err, value)
	}
}

func TestValidateRejections(t *testing.T) {
	valid := map[string]any{
		"timestamp":    "2024-06-01T10:00:00Z",
		"raspberry":    map[string]any{"device_name": "pi-42"},
		"locations":    []any{map[string]any{"location_name": "bedA", "soil_moisture": 55.0}},
		"temperature":  22.5,
		"air_humidity": 60.0,
	}

	with := func(key string, value any) []byte {
		body := map[string]any{}
		for k, v := range valid {
			body[k] = v
		}
		if value == nil {
			delete(body, key)
		} else {
			body[key] = value
		}
		out, _ := json.Marshal(body)
		return out
	}

	cases := []struct {
		name  string
		body  []byte
		field string
	}{
		{"missing timestamp", with("timestamp", nil), "timestamp"},
		{"unparsable timestamp", with("timestamp", "June 1st"), "timestamp"},
		{"timestamp wrong type", with("timestamp", 1717236000), "timestamp"},
		{"missing device", with("raspberry", nil), "raspberry"},
		{"blank device name", with("raspberry", map[string]any{"device_name": "   "}), "raspberry.device_name"},
		{"device name wrong type", with("raspberry", map[string]any{"device_name": 42}), "raspberry.device_name"},
		{"raspberry not an object", with("raspberry", "pi-42"), "raspberry"},
		{"missing temperature", with("temperature", nil), "temperature"},
		{"temperature as string", with("temperature", "22.5"), "temperature"},
		{"missing air humidity", with("air_humidity", nil), "air_humidity"},
		{"water level wrong type", with("water_level", "full"), "water_level"},
		{"missing locations", with("locations", nil), "locations"},
		{"locations not an array", with("locations", map[string]any{}), "locations"},
		{"empty location name", with("locations", []any{map[string]any{"location_name": ""}}), "locations[0].location_name"},
		{"missing location name", with("locations", []any{map[string]any{"soil_moisture": 1}}), "locations[0].location_name"},
		{"location not an object", with("locations", []any{"bedA"}), "locations[0]"},
		{"soil moisture wrong type", with("locations", []any{map[string]any{"location_name": "bedA", "soil_moisture": "wet"}}), "locations[0].soil_moisture"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			reading, err := Validate(tc.body)
			assert.Nil(t, reading)
			fields := fieldsOf(t, err)
			assert.Contains(t, fields, tc.field)
		})
	}
}

func TestValidateBlankDeviceFormName(t *testing.T) {
	_, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","device":{"name":""},"locations":[],"temperature":20,"air_humidity":50}`))
	assert.Contains(t, fieldsOf(t, err), "device.name")
}

func TestValidateNonObject(t *testing.T) {
	for _, body := range []string{`[]`, `"text"`, `null`, `42`, `{broken`, ``} {
		_, err := Validate([]byte(body))
		assert.Contains(t, fieldsOf(t, err), "$", body)
	}
}

func TestValidateReportsEveryField(t *testing.T) {
	_, err := Validate([]byte(`{"locations":[]}`))
	fields := fieldsOf(t, err)
	for _, f := range []string{"timestamp", "raspberry", "temperature", "air_humidity"} {
		assert.Contains(t, fields, f)
	}
	assert.Contains(t, err.Error(), "invalid payload")
}

func TestValidateIgnoresUnknownKeys(t *testing.T) {
	_, err := Validate([]byte(`{"timestamp":"2024-06-01T10:00:00Z","raspberry":{"device_name":"pi","firmware":"3.1"},"locations":[],"temperature":20,"air_humidity":50,"battery":88}`))
	assert.NoError(t, err)
}

func TestReportRoundTripsThroughValidate(t *testing.T) {
	ts := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	report := NewReport("pi-9", ts, 21, 55).WithLocation("bedA", ptr(30)).WithLocation("bedB", nil)

	body, err := json.Marshal(report)
	require.NoError(t, err)

	reading, err := Validate(body)
	require.NoError(t, err)
	assert.Equal(t, "pi-9", reading.DeviceName)
	assert.True(t, ts.Equal(reading.Timestamp))
	require.Len(t, reading.Locations, 2)
	assert.Nil(t, reading.Locations[1].SoilMoisture)
}

func ptr(v float64) *float64 { return &v }

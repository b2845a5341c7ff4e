package payload

import "time"

// Report is the wire shape devices send, for clients building payloads.
type Report struct {
	Timestamp   string           `json:"timestamp"`
	Raspberry   *RaspberryInfo   `json:"raspberry,omitempty"`
	Device      *DeviceInfo      `json:"device,omitempty"`
	Locations   []ReportLocation `json:"locations"`
	Temperature float64          `json:"temperature"`
	AirHumidity float64          `json:"air_humidity"`
	WaterLevel  *float64         `json:"water_level,omitempty"`
}

type RaspberryInfo struct {
	DeviceName string `json:"device_name"`
}

type DeviceInfo struct {
	Name string `json:"name"`
}

type ReportLocation struct {
	LocationName string   `json:"location_name"`
	SoilMoisture *float64 `json:"soil_moisture,omitempty"`
}

// NewReport starts a current-firmware report stamped at ts.
func NewReport(deviceName string, ts time.Time, temperature, airHumidity float64) *Report {
	return &Report{
		Timestamp:   ts.UTC().Format(time.RFC3339Nano),
		Raspberry:   &RaspberryInfo{DeviceName: deviceName},
		Locations:   []ReportLocation{},
		Temperature: temperature,
		AirHumidity: airHumidity,
	}
}

func (r *Report) WithLocation(name string, soilMoisture *float64) *Report {
	r.Locations = append(r.Locations, ReportLocation{LocationName: name, SoilMoisture: soilMoisture})
	return r
}

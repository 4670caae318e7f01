package inventory

import (
	"errors"
	"time"
)

const (
	SensorTypeTemperature = "temperature"
	SensorTypeHumidity    = "humidity"
	SensorTypePressure    = "pressure"
	SensorTypePower       = "power"
	SensorTypeFlow        = "flow"
)

// Sensor is a measurement source attached to an asset.
type Sensor struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	AssetID    string    `json:"asset_id"`
	Name       string    `json:"name"`
	SensorType string    `json:"sensor_type"`
	Unit       string    `json:"unit,omitempty"`
	Enabled    bool      `json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Validate checks sensor invariants.
func (s Sensor) Validate() error {
	if s.ID == "" {
		return errors.New("sensor: empty id")
	}
	if s.TenantID == "" {
		return errors.New("sensor: empty tenant id")
	}
	if s.AssetID == "" {
		return errors.New("sensor: empty asset id")
	}
	if s.Name == "" {
		return errors.New("sensor: empty name")
	}
	if !ValidSensorType(s.SensorType) {
		return errors.New("sensor: invalid sensor type")
	}
	return nil
}

// ValidSensorType returns true when the type is one of the supported set.
func ValidSensorType(sensorType string) bool {
	switch sensorType {
	case SensorTypeTemperature, SensorTypeHumidity, SensorTypePressure, SensorTypePower, SensorTypeFlow:
		return true
	default:
		return false
	}
}

// Reading is one measurement reported for a sensor.
type Reading struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenant_id"`
	SensorID   string    `json:"sensor_id"`
	AssetID    string    `json:"asset_id"`
	SensorType string    `json:"sensor_type"`
	Value      float64   `json:"value"`
	RecordedAt time.Time `json:"recorded_at"`
	CreatedAt  time.Time `json:"created_at"`
}

// Validate checks reading invariants.
func (r Reading) Validate() error {
	if r.TenantID == "" {
		return errors.New("reading: empty tenant id")
	}
	if r.SensorID == "" {
		return errors.New("reading: empty sensor id")
	}
	if r.AssetID == "" {
		return errors.New("reading: empty asset id")
	}
	if !ValidSensorType(r.SensorType) {
		return errors.New("reading: invalid sensor type")
	}
	if r.RecordedAt.IsZero() {
		return errors.New("reading: missing timestamp")
	}
	return nil
}

package domain

import (
	"errors"
	"time"
)

// Device validation errors.
var (
	ErrEmptyDeviceID   = errors.New("device ID cannot be empty")
	ErrEmptyDeviceType = errors.New("device type cannot be empty")
)

// DeviceStatus tracks whether a device is expected to report readings.
type DeviceStatus string

// Known device statuses.
const (
	DeviceActive   DeviceStatus = "active"
	DeviceInactive DeviceStatus = "inactive"
)

// Device is an IoT emission sensor registered for a company.
type Device struct {
	ID            string       `json:"device_id"`
	CompanySymbol string       `json:"company_symbol"`
	Type          string       `json:"device_type"`
	Location      string       `json:"location"`
	Status        DeviceStatus `json:"status"`
	RegisteredAt  time.Time    `json:"registered_at"`
	LastReading   *Reading     `json:"last_reading,omitempty"`
}

// NewDevice registers a device for a company's token.
func NewDevice(companySymbol, deviceID, deviceType, location string) (*Device, error) {
	d := &Device{
		ID:            deviceID,
		CompanySymbol: companySymbol,
		Type:          deviceType,
		Location:      location,
		Status:        DeviceActive,
		RegisteredAt:  time.Now().UTC(),
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}

	return d, nil
}

// Validate checks the device carries the required fields.
func (d *Device) Validate() error {
	if d.ID == "" {
		return ErrEmptyDeviceID
	}
	if d.CompanySymbol == "" {
		return ErrEmptyTokenSymbol
	}
	if d.Type == "" {
		return ErrEmptyDeviceType
	}
	return nil
}

// Key is the registry key combining company symbol and device ID.
func (d *Device) Key() string {
	return d.CompanySymbol + "_" + d.ID
}

// Reading is one emission measurement reported by a device.
type Reading struct {
	DeviceID      string  `json:"device_id"`
	CompanySymbol string  `json:"company_symbol"`
	Timestamp     int64   `json:"timestamp"`
	Emissions     float64 `json:"emission_value"`
	Validated     bool    `json:"validated"`
}

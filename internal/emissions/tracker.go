// Package emissions tracks IoT emission readings for verified companies.
//
// Readings arrive from registered CO2 sensors and are validated against the
// company's recent history before they are allowed to influence token
// emissions and price.
package emissions

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/carboncoin/carboncoin-api/internal/domain"
	"github.com/carboncoin/carboncoin-api/internal/store"
)

// Tracker errors.
var (
	// ErrUnknownDevice is returned when a reading arrives from a device that
	// was never registered.
	ErrUnknownDevice = errors.New("IoT device not registered")

	// ErrDeviceExists is returned when registering a device key twice.
	ErrDeviceExists = errors.New("IoT device already registered")
)

// Validation tuning. A reading may deviate from the rolling average by the
// threshold; the slack widens the band to tolerate noisy demo sensors.
const (
	defaultThreshold = 0.15
	defaultSlack     = 0.35

	// validationWindow is how many recent readings feed the rolling average.
	validationWindow = 10

	// currentWindow is how many recent readings feed CurrentEmissions.
	currentWindow = 5

	// historyCap bounds the per-company in-memory reading history.
	historyCap = 100
)

// Tracker is the device registry and reading validator. Accepted readings
// are optionally persisted through a ReadingStore for audit.
type Tracker struct {
	mu        sync.Mutex
	devices   map[string]*domain.Device
	readings  map[string][]domain.Reading
	threshold float64
	slack     float64
	store     store.ReadingStore
	logger    *slog.Logger
}

// NewTracker creates a tracker. The reading store may be nil, in which case
// accepted readings live only in memory.
func NewTracker(readingStore store.ReadingStore, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}

	return &Tracker{
		devices:   make(map[string]*domain.Device),
		readings:  make(map[string][]domain.Reading),
		threshold: defaultThreshold,
		slack:     defaultSlack,
		store:     readingStore,
		logger:    logger.With(slog.String("component", "emission_tracker")),
	}
}

// RegisterDevice adds an IoT device to the registry.
func (t *Tracker) RegisterDevice(device *domain.Device) error {
	if err := device.Validate(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	key := device.Key()
	if _, exists := t.devices[key]; exists {
		return ErrDeviceExists
	}

	t.devices[key] = device
	if _, ok := t.readings[device.CompanySymbol]; !ok {
		t.readings[device.CompanySymbol] = nil
	}

	t.logger.Info("IoT device registered",
		slog.String("device_id", device.ID),
		slog.String("company", device.CompanySymbol),
		slog.String("location", device.Location),
	)
	return nil
}

// Restore loads a company's persisted readings into the in-memory history.
// Called at startup so reading history and the validation rolling average
// survive restarts. A company whose history is already warm is left alone.
func (t *Tracker) Restore(ctx context.Context, companySymbol string) error {
	if t.store == nil {
		return nil
	}

	persisted, err := t.store.ListByCompany(ctx, companySymbol, historyCap)
	if err != nil {
		return err
	}
	if len(persisted) == 0 {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.readings[companySymbol]) > 0 {
		return nil
	}
	t.readings[companySymbol] = persisted

	t.logger.Info("emission history restored",
		slog.String("company", companySymbol),
		slog.Int("readings", len(persisted)),
	)
	return nil
}

// Ingest validates a reading from a registered device. The returned reading
// carries the validation verdict; rejected readings are reported to the
// caller but never stored.
func (t *Tracker) Ingest(
	ctx context.Context,
	companySymbol, deviceID string,
	value float64,
) (domain.Reading, error) {
	t.mu.Lock()

	key := companySymbol + "_" + deviceID
	device, ok := t.devices[key]
	if !ok {
		t.mu.Unlock()
		return domain.Reading{}, ErrUnknownDevice
	}

	reading := domain.Reading{
		DeviceID:      deviceID,
		CompanySymbol: companySymbol,
		Timestamp:     time.Now().Unix(),
		Emissions:     value,
		Validated:     t.validateLocked(companySymbol, value),
	}

	if reading.Validated {
		history := append(t.readings[companySymbol], reading)
		if len(history) > historyCap {
			history = history[len(history)-historyCap:]
		}
		t.readings[companySymbol] = history
		device.LastReading = &reading
	}
	t.mu.Unlock()

	if !reading.Validated {
		t.logger.Warn("emission reading rejected",
			slog.String("device_id", deviceID),
			slog.String("company", companySymbol),
			slog.Float64("value", value),
		)
		return reading, nil
	}

	if t.store != nil {
		if err := t.store.Create(ctx, &reading); err != nil {
			// Persistence is an audit concern; the reading already counts.
			t.logger.Error("failed to persist emission reading",
				slog.String("device_id", deviceID),
				slog.String("company", companySymbol),
				slog.String("error", err.Error()),
			)
		}
	}

	return reading, nil
}

// validateLocked compares a value against the rolling average of recent
// accepted readings. The first reading for a company always passes.
// Callers must hold the mutex.
func (t *Tracker) validateLocked(companySymbol string, value float64) bool {
	history := t.readings[companySymbol]
	if len(history) == 0 {
		return true
	}

	recent := history
	if len(recent) > validationWindow {
		recent = recent[len(recent)-validationWindow:]
	}

	var sum float64
	for _, r := range recent {
		sum += r.Emissions
	}
	avg := sum / float64(len(recent))

	if avg <= 0 {
		return true
	}

	variance := math.Abs(value-avg) / avg
	return variance <= t.threshold+t.slack
}

// CurrentEmissions averages the last few accepted readings for a company.
// Returns 0 when the company has no accepted readings.
func (t *Tracker) CurrentEmissions(companySymbol string) float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.readings[companySymbol]
	if len(history) == 0 {
		return 0
	}

	recent := history
	if len(recent) > currentWindow {
		recent = recent[len(recent)-currentWindow:]
	}

	var sum float64
	for _, r := range recent {
		sum += r.Emissions
	}
	return sum / float64(len(recent))
}

// History returns up to limit recent accepted readings for a company.
func (t *Tracker) History(companySymbol string, limit int) []domain.Reading {
	t.mu.Lock()
	defer t.mu.Unlock()

	history := t.readings[companySymbol]
	if limit > 0 && len(history) > limit {
		history = history[len(history)-limit:]
	}

	out := make([]domain.Reading, len(history))
	copy(out, history)
	return out
}

// Device looks up a registered device by company symbol and device ID.
func (t *Tracker) Device(companySymbol, deviceID string) (*domain.Device, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	device, ok := t.devices[companySymbol+"_"+deviceID]
	return device, ok
}

// RemoveCompany drops a company's devices and reading history, used when an
// admin deletes the company's token.
func (t *Tracker) RemoveCompany(companySymbol string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for key, device := range t.devices {
		if device.CompanySymbol == companySymbol {
			delete(t.devices, key)
		}
	}
	delete(t.readings, companySymbol)
}

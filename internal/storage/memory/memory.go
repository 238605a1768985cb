// internal/storage/memory/memory.go
package memory

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/sandk/offroad-dynamics/internal/config"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

// VehicleRecord groups a vehicle with all its time-series data
type VehicleRecord struct {
	ID      uint16
	Name    string
	Tuning  json.RawMessage
	Samples []core.VehicleSample
}

// Backend stores run telemetry in memory and exports to JSON
type Backend struct {
	cfg config.MemoryConfig
	run *core.Run

	vehicles  map[uint16]*VehicleRecord
	tickStats []core.TickStats

	runCounter     uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:      cfg,
		vehicles: make(map[uint16]*VehicleRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartRun begins recording a new run
func (b *Backend) StartRun(run *core.Run) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.runCounter++
	run.ID = b.runCounter
	b.run = run

	// Reset all collections
	b.vehicles = make(map[uint16]*VehicleRecord)
	b.tickStats = nil

	return nil
}

// EndRun finalizes and exports the run data
func (b *Backend) EndRun() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.run == nil {
		return fmt.Errorf("no run in progress")
	}
	return b.exportJSON()
}

// AddVehicle registers a new vehicle
func (b *Backend) AddVehicle(id uint16, name string, tuning []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.vehicles[id] = &VehicleRecord{
		ID:      id,
		Name:    name,
		Tuning:  json.RawMessage(tuning),
		Samples: make([]core.VehicleSample, 0),
	}
	return nil
}

// GetVehicle looks up a registered vehicle
func (b *Backend) GetVehicle(id uint16) (*VehicleRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	record, ok := b.vehicles[id]
	return record, ok
}

// RecordSample records a telemetry sample
func (b *Backend) RecordSample(s *core.VehicleSample) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if record, ok := b.vehicles[s.VehicleID]; ok {
		record.Samples = append(record.Samples, *s)
	}
	return nil // silently ignore if vehicle not registered
}

// RecordTickStats records per-tick performance data
func (b *Backend) RecordTickStats(t *core.TickStats) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.tickStats = append(b.tickStats, *t)
	return nil
}

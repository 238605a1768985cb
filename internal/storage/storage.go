// internal/storage/storage.go
package storage

import "github.com/sandk/offroad-dynamics/pkg/core"

// Backend is the interface all storage implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Run management
	StartRun(run *core.Run) error
	EndRun() error

	// Vehicle registration (tuning stored verbatim for replay)
	AddVehicle(id uint16, name string, tuning []byte) error

	// Telemetry recording
	RecordSample(s *core.VehicleSample) error
	RecordTickStats(t *core.TickStats) error
}

// Exportable is an optional interface for storage backends that produce a
// replay file on disk after a run ends.
type Exportable interface {
	ExportedFilePath() string
}

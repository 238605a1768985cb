// pkg/core/vehicle.go
package core

import "time"

// RayHit is the result of a ground probe against the collision service.
type RayHit struct {
	Point    Vec3
	Normal   Vec3
	Distance float64
	// Friction is the per-surface friction coefficient reported by the
	// collision service, 1.0 when the surface has no override.
	Friction float64
}

// WheelSnapshot is the read-only per-wheel state exposed to audio,
// particle and debug-overlay consumers after each tick.
type WheelSnapshot struct {
	Index           int     `json:"index"`
	AngularVelocity float64 `json:"angularVelocity"`
	SteeringAngle   float64 `json:"steeringAngle"`
	SlipRatio       float64 `json:"slipRatio"`
	SlipAngle       float64 `json:"slipAngle"`
	GroundContact   bool    `json:"groundContact"`
	SuspensionForce float64 `json:"suspensionForce"`
	SuspensionLen   float64 `json:"suspensionLength"`
}

// VehicleSnapshot is the replicated vehicle state after a tick.
type VehicleSnapshot struct {
	VehicleID uint16           `json:"vehicleId"`
	Tick      uint64           `json:"tick"`
	Position  Vec3             `json:"position"`
	Velocity  Vec3             `json:"velocity"`
	Omega     Vec3             `json:"omega"`
	EngineRPM float64          `json:"engineRpm"`
	Gear      int              `json:"gear"`
	Wheels    [4]WheelSnapshot `json:"wheels"`
}

// VehicleSample is one telemetry record for storage backends.
type VehicleSample struct {
	VehicleID uint16
	Tick      uint64
	Time      time.Time
	Position  Vec3
	Speed     float64
	EngineRPM float64
	Gear      int
	Wheels    [4]WheelSnapshot
}

// Run identifies one simulation session for telemetry recording.
type Run struct {
	ID        uint
	Name      string
	Terrain   string
	StartedAt time.Time
	TickRate  float64
}

// TickStats is per-tick worker performance data.
type TickStats struct {
	Tick     uint64
	Duration time.Duration
	Vehicles int
}

// UploadMetadata describes an exported replay for the upload endpoint.
type UploadMetadata struct {
	RunName  string
	Terrain  string
	Duration float64 // seconds
	Ticks    uint64
	TickRate float64
	Vehicles int
	Tag      string
}

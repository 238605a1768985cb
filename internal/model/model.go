package model

import (
	"database/sql"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent
// tables in the database schema
var DatabaseModels = []interface{}{
	&Terrain{},
	&Run{},
	&Vehicle{},
	&VehicleSample{},
	&TickStat{},
}

// Terrain is one registered ground definition, shared across runs.
type Terrain struct {
	gorm.Model
	Name     string  `json:"name" gorm:"size:127;uniqueIndex"`
	CellSize float64 `json:"cellSize"`
	Cols     int     `json:"cols"`
	Rows     int     `json:"rows"`
}

func (*Terrain) TableName() string {
	return "terrains"
}

// Run is one recorded simulation session.
type Run struct {
	gorm.Model
	Name      string       `json:"name" gorm:"size:255"`
	TerrainID uint         `json:"terrainId"`
	Terrain   Terrain      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:TerrainID;"`
	StartedAt time.Time    `json:"startedAt" gorm:"type:timestamptz"`
	EndedAt   sql.NullTime `json:"endedAt" gorm:"type:timestamptz"`
	TickRate  float64      `json:"tickRate"`
}

func (*Run) TableName() string {
	return "runs"
}

// Vehicle is one spawned vehicle within a run. SimID is the simulation's
// identifier; the tuning is stored verbatim for replay.
type Vehicle struct {
	gorm.Model
	RunID  uint           `json:"runId" gorm:"index:idx_vehicle_run_id"`
	SimID  uint16         `json:"simId"`
	Name   string         `json:"name" gorm:"size:127"`
	Tuning datatypes.JSON `json:"tuning"`
}

func (*Vehicle) TableName() string {
	return "vehicles"
}

// VehicleSample is one telemetry record, the high-volume table.
type VehicleSample struct {
	Time      time.Time      `json:"time" gorm:"type:timestamptz;index:idx_sample_time"`
	RunID     uint           `json:"runId" gorm:"index:idx_sample_run_id"`
	SimID     uint16         `json:"simId"`
	Tick      uint64         `json:"tick"`
	PosX      float64        `json:"posX"`
	PosY      float64        `json:"posY"`
	PosZ      float64        `json:"posZ"`
	Speed     float64        `json:"speed"`
	EngineRPM float64        `json:"engineRpm"`
	Gear      int            `json:"gear"`
	Wheels    datatypes.JSON `json:"wheels"`
}

func (*VehicleSample) TableName() string {
	return "vehicle_samples"
}

// TickStat is per-tick worker performance data.
type TickStat struct {
	Time       time.Time `json:"time" gorm:"type:timestamptz;index:idx_tickstat_time"`
	RunID      uint      `json:"runId" gorm:"index:idx_tickstat_run_id"`
	Tick       uint64    `json:"tick"`
	DurationMs float32   `json:"durationMs"`
	Vehicles   int       `json:"vehicles"`
}

func (*TickStat) TableName() string {
	return "tick_stats"
}

////////////////////////
// CONVERSION
////////////////////////

// SampleFromCore converts a telemetry record into its table row. The wheel
// array is stored as JSON; the per-wheel schema only matters to consumers.
func SampleFromCore(s core.VehicleSample) VehicleSample {
	wheels, _ := json.Marshal(s.Wheels)
	return VehicleSample{
		Time:      s.Time,
		SimID:     s.VehicleID,
		Tick:      s.Tick,
		PosX:      s.Position.X,
		PosY:      s.Position.Y,
		PosZ:      s.Position.Z,
		Speed:     s.Speed,
		EngineRPM: s.EngineRPM,
		Gear:      s.Gear,
		Wheels:    datatypes.JSON(wheels),
	}
}

// SampleToCore converts a table row back into a telemetry record.
func SampleToCore(r VehicleSample) (core.VehicleSample, error) {
	s := core.VehicleSample{
		VehicleID: r.SimID,
		Tick:      r.Tick,
		Time:      r.Time,
		Position:  core.Vec3{X: r.PosX, Y: r.PosY, Z: r.PosZ},
		Speed:     r.Speed,
		EngineRPM: r.EngineRPM,
		Gear:      r.Gear,
	}
	if len(r.Wheels) > 0 {
		if err := json.Unmarshal(r.Wheels, &s.Wheels); err != nil {
			return core.VehicleSample{}, err
		}
	}
	return s, nil
}

// RunFromCore converts a session descriptor into its table row.
func RunFromCore(r core.Run) Run {
	return Run{
		Name:      r.Name,
		StartedAt: r.StartedAt,
		TickRate:  r.TickRate,
	}
}

// TickStatFromCore converts per-tick stats into their table row.
func TickStatFromCore(ts core.TickStats, now time.Time) TickStat {
	return TickStat{
		Time:       now,
		Tick:       ts.Tick,
		DurationMs: float32(ts.Duration.Microseconds()) / 1000,
		Vehicles:   ts.Vehicles,
	}
}

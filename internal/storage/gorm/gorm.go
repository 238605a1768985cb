// Package gormstorage implements the storage.Backend interface on top of GORM
// with internal queues and a background DB writer goroutine. It is shared by
// the sqlite and postgres backends, which only differ in how the connection
// is opened.
package gormstorage

import (
	"database/sql"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/sandk/offroad-dynamics/internal/model"
	"github.com/sandk/offroad-dynamics/internal/queue"
	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB         *gorm.DB
	RunContext *run.Context
	Logger     zerolog.Logger
}

// queues holds all the write queues for batch DB insertion.
type queues struct {
	Vehicles  *queue.Queue[model.Vehicle]
	Samples   *queue.Queue[model.VehicleSample]
	TickStats *queue.Queue[model.TickStat]
}

func newQueues() *queues {
	return &queues{
		Vehicles:  queue.New[model.Vehicle](),
		Samples:   queue.New[model.VehicleSample](),
		TickStats: queue.New[model.TickStat](),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps     Dependencies
	queues   *queues
	runID    atomic.Uint64
	stopChan chan struct{}
	dbReady  bool
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	return &Backend{
		deps: deps,
	}
}

// Init creates internal queues, runs schema migration, and starts the DB
// writer goroutine.
func (b *Backend) Init() error {
	if b.deps.DB == nil {
		return fmt.Errorf("no database connection provided")
	}
	b.queues = newQueues()
	b.stopChan = make(chan struct{})

	if err := b.deps.DB.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	b.dbReady = true

	b.startDBWriters()
	return nil
}

// Close stops the DB writer goroutine.
func (b *Backend) Close() error {
	if b.stopChan != nil {
		close(b.stopChan)
	}
	return nil
}

// StartRun performs terrain get-or-insert and run create in the DB, then
// assigns the DB-generated ID back to the core run.
func (b *Backend) StartRun(coreRun *core.Run) error {
	db := b.deps.DB

	gormTerrain := model.Terrain{Name: coreRun.Terrain}
	if err := db.Where(model.Terrain{Name: coreRun.Terrain}).FirstOrCreate(&gormTerrain).Error; err != nil {
		return fmt.Errorf("failed to get or insert terrain: %w", err)
	}

	gormRun := model.RunFromCore(*coreRun)
	gormRun.TerrainID = gormTerrain.ID
	if err := db.Create(&gormRun).Error; err != nil {
		return fmt.Errorf("failed to insert new run: %w", err)
	}

	coreRun.ID = gormRun.ID
	b.runID.Store(uint64(gormRun.ID))

	if b.deps.RunContext != nil {
		b.deps.RunContext.Set(coreRun)
	}
	return nil
}

// EndRun drains the queues one last time and stamps the run's end time.
func (b *Backend) EndRun() error {
	b.flushQueues()

	runID := uint(b.runID.Load())
	if runID == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Run{}).Where("id = ?", runID).
		Update("ended_at", sql.NullTime{Time: time.Now(), Valid: true}).Error
	if err != nil {
		return fmt.Errorf("failed to stamp run end: %w", err)
	}

	if b.deps.RunContext != nil {
		b.deps.RunContext.Clear()
	}
	return nil
}

// SetRunID sets the current run ID for the DB writer (used by CLI tools).
func (b *Backend) SetRunID(id uint) {
	b.runID.Store(uint64(id))
}

// AddVehicle queues a vehicle registration row.
func (b *Backend) AddVehicle(id uint16, name string, tuning []byte) error {
	b.queues.Vehicles.Push(model.Vehicle{
		SimID:  id,
		Name:   name,
		Tuning: tuning,
	})
	return nil
}

// RecordSample converts a telemetry sample to its row and queues it.
func (b *Backend) RecordSample(s *core.VehicleSample) error {
	b.queues.Samples.Push(model.SampleFromCore(*s))
	return nil
}

// RecordTickStats converts per-tick stats to their row and queues them.
func (b *Backend) RecordTickStats(t *core.TickStats) error {
	b.queues.TickStats.Push(model.TickStatFromCore(*t, time.Now()))
	return nil
}

// writeQueue writes all items from a queue to the database in a transaction.
// On failure the items go back on the queue for the next cycle.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log zerolog.Logger, prepare func([]T)) {
	if q.Empty() {
		return
	}

	tx := db.Begin()
	items := q.GetAndEmpty()
	if prepare != nil {
		prepare(items)
	}
	if err := tx.Create(&items).Error; err != nil {
		log.Error().Err(err).Str("queue", name).Msg("DB writer failed to insert batch")
		tx.Rollback()
		q.Push(items...)
		return
	}

	tx.Commit()
}

// flushQueues drains all queues synchronously.
func (b *Backend) flushQueues() {
	if !b.dbReady {
		return
	}
	runID := uint(b.runID.Load())
	writeQueue(b.deps.DB, b.queues.Vehicles, "vehicles", b.deps.Logger, stampRunID[model.Vehicle](runID, setVehicleRun))
	writeQueue(b.deps.DB, b.queues.Samples, "vehicle samples", b.deps.Logger, stampRunID[model.VehicleSample](runID, setSampleRun))
	writeQueue(b.deps.DB, b.queues.TickStats, "tick stats", b.deps.Logger, stampRunID[model.TickStat](runID, setTickStatRun))
}

func stampRunID[T any](runID uint, set func(*T, uint)) func([]T) {
	return func(items []T) {
		for i := range items {
			set(&items[i], runID)
		}
	}
}

func setVehicleRun(v *model.Vehicle, id uint)      { v.RunID = id }
func setSampleRun(s *model.VehicleSample, id uint) { s.RunID = id }
func setTickStatRun(t *model.TickStat, id uint)    { t.RunID = id }

// startDBWriters starts the background goroutine that periodically drains
// queues into the DB.
func (b *Backend) startDBWriters() {
	go func() {
		for {
			select {
			case <-b.stopChan:
				return
			default:
			}

			if !b.dbReady {
				time.Sleep(1 * time.Second)
				continue
			}

			b.flushQueues()

			time.Sleep(2 * time.Second)
		}
	}()
}

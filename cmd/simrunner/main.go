// simrunner runs an off-road dynamics scenario headless: it builds the
// terrain and vehicles from a scenario file, steps the world at a fixed
// tick rate and records telemetry through the configured storage backend.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sandk/offroad-dynamics/internal/api"
	"github.com/sandk/offroad-dynamics/internal/cache"
	"github.com/sandk/offroad-dynamics/internal/config"
	"github.com/sandk/offroad-dynamics/internal/geo"
	"github.com/sandk/offroad-dynamics/internal/influx"
	"github.com/sandk/offroad-dynamics/internal/logging"
	"github.com/sandk/offroad-dynamics/internal/monitor"
	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/internal/sim"
	"github.com/sandk/offroad-dynamics/internal/storage"
	"github.com/sandk/offroad-dynamics/internal/telemetry"
	"github.com/sandk/offroad-dynamics/internal/terrain"
	"github.com/sandk/offroad-dynamics/internal/vehicle"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

const appName = "simrunner"

func main() {
	configDir := flag.String("config", ".", "directory containing "+appName+".cfg.json")
	scenarioPath := flag.String("scenario", "", "scenario file to run")
	runName := flag.String("name", "", "override the run name from the scenario")
	flag.Parse()

	if *scenarioPath == "" {
		fmt.Fprintln(os.Stderr, "no scenario provided, use -scenario <file>")
		os.Exit(2)
	}

	sessionStart := time.Now()
	cfgErr := config.Load(*configDir)

	logManager := logging.NewManager()
	if err := logManager.Setup(
		viper.GetString("logsDir"),
		appName,
		viper.GetString("logLevel"),
		sessionStart,
	); err != nil {
		fmt.Fprintf(os.Stderr, "failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	defer logManager.Close()
	logger := logManager.Logger

	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("Failed to load config, using defaults")
	} else {
		logger.Info().Msg("Loaded config")
	}

	if err := runScenario(*scenarioPath, *runName, sessionStart, logManager); err != nil {
		logger.Error().Err(err).Msg("Run failed")
		os.Exit(1)
	}
}

func runScenario(scenarioPath, runName string, sessionStart time.Time, logManager *logging.Manager) error {
	logger := logManager.Logger

	scenario, err := loadScenario(scenarioPath)
	if err != nil {
		return err
	}
	if runName == "" {
		runName = scenario.Name
	}

	ground, err := buildTerrain(scenario.Terrain)
	if err != nil {
		return err
	}

	tunings := cache.NewTuningCache()
	if path := viper.GetString("sim.tuningsFile"); path != "" {
		if err := tunings.LoadFile(path); err != nil {
			return fmt.Errorf("loading tunings: %w", err)
		}
		logger.Info().Strs("tunings", tunings.Names()).Msg("Loaded vehicle tunings")
	}

	tickRate := viper.GetFloat64("sim.tickRate")
	if tickRate <= 0 {
		tickRate = 60
	}
	world, err := sim.NewWorld(ground, sim.Options{
		Timestep: 1 / tickRate,
		Workers:  viper.GetInt("sim.workers"),
	})
	if err != nil {
		return fmt.Errorf("creating world: %w", err)
	}

	runCtx := run.NewContext()
	storageCfg, err := config.Storage()
	if err != nil {
		return fmt.Errorf("reading storage config: %w", err)
	}
	backend, err := storage.NewBackend(storageCfg, runCtx, logger)
	if err != nil {
		return fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return fmt.Errorf("initializing storage backend: %w", err)
	}
	defer backend.Close()
	logger.Info().Str("type", storageCfg.Type).Msg("Storage backend initialized")

	recorder, err := telemetry.New(backend, telemetry.Options{
		SampleEvery: viper.GetInt("sim.sampleEvery"),
	}, logger)
	if err != nil {
		return fmt.Errorf("creating telemetry recorder: %w", err)
	}

	mon := monitor.NewService(monitor.Dependencies{
		RunContext: runCtx,
		StatusDir:  viper.GetString("logsDir"),
		Logger:     logger,
	})
	if err := mon.Start(); err != nil {
		logger.Warn().Err(err).Msg("Failed to start status monitor")
	}
	defer mon.Stop()

	var flux *influx.Manager
	if viper.GetBool("influx.enabled") {
		flux = influx.NewManager(logger, filepath.Join(viper.GetString("logsDir"), "influx_backup.lp.gz"))
		if err := flux.Connect(); err != nil {
			logger.Warn().Err(err).Msg("InfluxDB unavailable, metrics disabled")
			flux = nil
		} else {
			defer flux.Close()
		}
	}

	coreRun := &core.Run{
		Name:      runName,
		Terrain:   scenario.Terrain.Name,
		StartedAt: sessionStart,
		TickRate:  tickRate,
	}
	if err := backend.StartRun(coreRun); err != nil {
		return fmt.Errorf("starting run: %w", err)
	}
	runCtx.Set(coreRun)
	logger.Info().Str("run", coreRun.Name).Str("terrain", coreRun.Terrain).
		Float64("tickRate", tickRate).Msg("Run started")

	drivers, err := spawnVehicles(world, ground, tunings, scenario.Vehicles, backend, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sampleEvery := uint64(viper.GetInt("sim.sampleEvery"))
	if sampleEvery < 1 {
		sampleEvery = 1
	}
	totalTicks := uint64(scenario.Duration * tickRate)
	tracks := make(map[uint16][]core.VehicleSample)

	logger.Info().Uint64("ticks", totalTicks).Int("vehicles", len(drivers)).Msg("Stepping simulation")

loop:
	for tick := uint64(1); tick <= totalTicks; tick++ {
		select {
		case <-ctx.Done():
			logger.Info().Uint64("tick", world.Tick()).Msg("Interrupted, ending run early")
			break loop
		default:
		}

		t := float64(tick) / tickRate
		snaps := snapshotByID(world.Snapshot())
		for _, d := range drivers {
			in := d.update(t, snaps[d.id])
			if err := world.SetInput(d.id, in); err != nil {
				logger.Warn().Err(err).Uint16("vehicle", d.id).Msg("Failed to apply input")
			}
		}

		stats := world.Step(ctx)
		now := time.Now()
		samples := world.Samples(now)

		recorder.RecordTick(stats, samples)
		mon.Observe(stats)

		if flux != nil {
			bucket, point := influx.TickStatsPoint(coreRun, stats, now)
			if err := flux.WritePoint(ctx, bucket, point); err != nil {
				logger.Warn().Err(err).Msg("Failed to write tick point")
			}
		}
		if tick%sampleEvery == 0 {
			for _, s := range samples {
				tracks[s.VehicleID] = append(tracks[s.VehicleID], s)
				if flux != nil {
					bucket, point := influx.SamplePoint(coreRun, s)
					if err := flux.WritePoint(ctx, bucket, point); err != nil {
						logger.Warn().Err(err).Msg("Failed to write sample point")
					}
				}
			}
		}
	}

	recorder.Close()
	if err := backend.EndRun(); err != nil {
		return fmt.Errorf("ending run: %w", err)
	}
	logger.Info().Uint64("ticks", world.Tick()).Msg("Run ended")

	if exp, ok := backend.(storage.Exportable); ok {
		exportedPath := exp.ExportedFilePath()
		logger.Info().Str("path", exportedPath).Msg("Replay exported")

		if serverURL := viper.GetString("api.serverUrl"); serverURL != "" && exportedPath != "" {
			client := api.New(serverURL, viper.GetString("api.apiKey"))
			meta := core.UploadMetadata{
				RunName:  coreRun.Name,
				Terrain:  coreRun.Terrain,
				Duration: float64(world.Tick()) / tickRate,
				Ticks:    world.Tick(),
				TickRate: tickRate,
				Vehicles: len(scenario.Vehicles),
			}
			if err := client.Upload(exportedPath, meta); err != nil {
				logger.Error().Err(err).Str("server", serverURL).Msg("Replay upload failed")
			} else {
				logger.Info().Str("server", serverURL).Msg("Replay uploaded")
			}
		}
	}

	if scenario.Terrain.Anchor != nil {
		exportTracks(*scenario.Terrain.Anchor, coreRun, tracks, storageCfg.Memory.OutputDir, logger)
	}

	return nil
}

func spawnVehicles(
	world *sim.World,
	ground *terrain.Terrain,
	tunings *cache.TuningCache,
	specs []VehicleSpec,
	backend storage.Backend,
	logger zerolog.Logger,
) ([]*driver, error) {
	drivers := make([]*driver, 0, len(specs))
	for _, spec := range specs {
		tuning := vehicle.DefaultTuning()
		if spec.Tuning != "" {
			var ok bool
			tuning, ok = tunings.Get(spec.Tuning)
			if !ok {
				return nil, fmt.Errorf("vehicle %d: unknown tuning %q", spec.ID, spec.Tuning)
			}
		}

		pos, err := geo.Vec3FromString(spec.Position)
		if err != nil {
			return nil, fmt.Errorf("vehicle %d position: %w", spec.ID, err)
		}
		// ground-plane positions drop in just above the surface
		if pos.Y == 0 {
			pos.Y = ground.Field().HeightAt(pos.X, pos.Z) + 1.0
		}

		orientation := core.QuatFromAxisAngle(core.Up, spec.HeadingDeg*math.Pi/180)
		if err := world.Spawn(spec.ID, tuning, pos, orientation); err != nil {
			return nil, fmt.Errorf("spawning vehicle %d: %w", spec.ID, err)
		}

		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("vehicle-%d", spec.ID)
		}
		tuningJSON, err := json.Marshal(tuning)
		if err != nil {
			return nil, fmt.Errorf("marshalling tuning for vehicle %d: %w", spec.ID, err)
		}
		if err := backend.AddVehicle(spec.ID, name, tuningJSON); err != nil {
			return nil, fmt.Errorf("registering vehicle %d: %w", spec.ID, err)
		}

		d, err := newDriver(spec)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)

		logger.Info().Uint16("id", spec.ID).Str("name", name).
			Str("tuning", tuning.Name).Msg("Vehicle spawned")
	}
	return drivers, nil
}

func snapshotByID(snaps []core.VehicleSnapshot) map[uint16]core.VehicleSnapshot {
	out := make(map[uint16]core.VehicleSnapshot, len(snaps))
	for _, s := range snaps {
		out[s.VehicleID] = s
	}
	return out
}

// exportTracks writes one GeoJSON track per vehicle next to the replay
// output. Failures are logged, not fatal, the telemetry is already stored.
func exportTracks(
	anchor geo.Anchor,
	coreRun *core.Run,
	tracks map[uint16][]core.VehicleSample,
	outputDir string,
	logger zerolog.Logger,
) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		logger.Error().Err(err).Msg("Failed to create track output dir")
		return
	}

	base := strings.NewReplacer(" ", "_", ":", "_").Replace(coreRun.Name)
	for id, samples := range tracks {
		raw, err := anchor.TrackGeoJSON(samples)
		if err != nil {
			logger.Warn().Err(err).Uint16("vehicle", id).Msg("Skipping track export")
			continue
		}
		path := filepath.Join(outputDir, fmt.Sprintf("%s_vehicle_%d_track.geojson", base, id))
		if err := os.WriteFile(path, raw, 0644); err != nil {
			logger.Error().Err(err).Str("path", path).Msg("Failed to write track file")
			continue
		}
		logger.Info().Str("path", path).Uint16("vehicle", id).Msg("Track exported")
	}
}

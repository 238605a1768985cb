// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ReplayExport is the root JSON structure consumed by the replay viewer.
type ReplayExport struct {
	RunName    string        `json:"runName"`
	Terrain    string        `json:"terrain"`
	StartedAt  string        `json:"startedAt"`
	TickRate   float64       `json:"tickRate"`
	EndTick    uint64        `json:"endTick"`
	Vehicles   []VehicleJSON `json:"vehicles"`
	TickTimeMs []float64     `json:"tickTimeMs"`
}

// VehicleJSON represents one vehicle's trace. Frames are kept as compact
// arrays: [tick, [x, y, z], speed, engineRpm, gear].
type VehicleJSON struct {
	ID     uint16          `json:"id"`
	Name   string          `json:"name"`
	Tuning json.RawMessage `json:"tuning,omitempty"`
	Frames [][]any         `json:"frames"`
}

// exportJSON writes the run data to a JSON file
func (b *Backend) exportJSON() error {
	export := b.buildExport()

	// Build filename
	runName := strings.ReplaceAll(b.run.Name, " ", "_")
	runName = strings.ReplaceAll(runName, ":", "_")
	timestamp := b.run.StartedAt.Format("20060102_150405")

	var filename string
	if b.cfg.CompressOutput {
		filename = fmt.Sprintf("%s_%s.json.gz", runName, timestamp)
	} else {
		filename = fmt.Sprintf("%s_%s.json", runName, timestamp)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)

	// Ensure output directory exists
	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	// Write file
	if b.cfg.CompressOutput {
		if err := b.writeGzipJSON(outputPath, export); err != nil {
			return err
		}
	} else {
		if err := b.writeJSON(outputPath, export); err != nil {
			return err
		}
	}

	b.lastExportPath = outputPath
	return nil
}

func (b *Backend) buildExport() ReplayExport {
	export := ReplayExport{
		RunName:    b.run.Name,
		Terrain:    b.run.Terrain,
		StartedAt:  b.run.StartedAt.UTC().Format("2006-01-02T15:04:05Z"),
		TickRate:   b.run.TickRate,
		Vehicles:   make([]VehicleJSON, 0, len(b.vehicles)),
		TickTimeMs: make([]float64, 0, len(b.tickStats)),
	}

	var maxTick uint64

	ids := make([]uint16, 0, len(b.vehicles))
	for id := range b.vehicles {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		record := b.vehicles[id]
		v := VehicleJSON{
			ID:     record.ID,
			Name:   record.Name,
			Tuning: record.Tuning,
			Frames: make([][]any, 0, len(record.Samples)),
		}

		for _, s := range record.Samples {
			frame := []any{
				s.Tick,
				[]float64{s.Position.X, s.Position.Y, s.Position.Z},
				s.Speed,
				s.EngineRPM,
				s.Gear,
			}
			v.Frames = append(v.Frames, frame)
			if s.Tick > maxTick {
				maxTick = s.Tick
			}
		}

		export.Vehicles = append(export.Vehicles, v)
	}

	for _, ts := range b.tickStats {
		export.TickTimeMs = append(export.TickTimeMs, float64(ts.Duration.Microseconds())/1000)
		if ts.Tick > maxTick {
			maxTick = ts.Tick
		}
	}

	export.EndTick = maxTick
	return export
}

func (b *Backend) writeJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	return encoder.Encode(data)
}

func (b *Backend) writeGzipJSON(path string, data ReplayExport) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	defer gzWriter.Close()

	encoder := json.NewEncoder(gzWriter)
	return encoder.Encode(data)
}

// ExportedFilePath returns the path of the last written replay file.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/sandk/offroad-dynamics/internal/vehicle"
)

// TuningCache caches named vehicle setups so spawns avoid re-reading tuning
// files. Latency here matters when scenarios spawn many vehicles at once.
type TuningCache struct {
	m       sync.Mutex
	Tunings map[string]vehicle.Tuning
}

func NewTuningCache() *TuningCache {
	return &TuningCache{
		m:       sync.Mutex{},
		Tunings: make(map[string]vehicle.Tuning),
	}
}

func (c *TuningCache) Reset() {
	c.m.Lock()
	defer c.m.Unlock()
	c.Tunings = make(map[string]vehicle.Tuning)
}

func (c *TuningCache) Lock() {
	c.m.Lock()
}

func (c *TuningCache) Unlock() {
	c.m.Unlock()
}

func (c *TuningCache) Get(name string) (vehicle.Tuning, bool) {
	c.m.Lock()
	defer c.m.Unlock()
	if t, ok := c.Tunings[name]; ok {
		return t, true
	}
	return vehicle.Tuning{}, false
}

func (c *TuningCache) Add(t vehicle.Tuning) {
	c.m.Lock()
	defer c.m.Unlock()
	c.Tunings[t.Name] = t
}

// Names returns all cached tuning names in sorted order.
func (c *TuningCache) Names() []string {
	c.m.Lock()
	defer c.m.Unlock()
	names := make([]string, 0, len(c.Tunings))
	for name := range c.Tunings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LoadFile reads a JSON array of tunings into the cache. Each entry is
// validated; one bad entry fails the whole load so a scenario never runs
// with a partial garage.
func (c *TuningCache) LoadFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read tuning file: %w", err)
	}

	var tunings []vehicle.Tuning
	if err := json.Unmarshal(raw, &tunings); err != nil {
		return fmt.Errorf("failed to parse tuning file %s: %w", path, err)
	}

	for i := range tunings {
		if err := tunings[i].Validate(); err != nil {
			return fmt.Errorf("tuning %q in %s: %w", tunings[i].Name, path, err)
		}
	}

	for _, t := range tunings {
		c.Add(t)
	}
	return nil
}

// SafeCounter is a thread-safe counter
type SafeCounter struct {
	mu sync.Mutex
	v  int
}

func (c *SafeCounter) Value() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.v
}

func (c *SafeCounter) Set(v int) {
	c.mu.Lock()
	c.v = v
	c.mu.Unlock()
}

func (c *SafeCounter) Inc() {
	c.mu.Lock()
	c.v++
	c.mu.Unlock()
}

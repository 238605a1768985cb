package monitor

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/sandk/offroad-dynamics/internal/run"
	"github.com/sandk/offroad-dynamics/pkg/core"
)

// statsWindow is how many recent ticks feed the timing aggregates.
const statsWindow = 120

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	RunContext *run.Context
	StatusDir  string
	Logger     zerolog.Logger
}

// Status is one snapshot of the running simulation, written to status.txt
// so operators can watch a headless run.
type Status struct {
	Time      time.Time `json:"time"`
	Run       string    `json:"run"`
	Tick      uint64    `json:"tick"`
	Vehicles  int       `json:"vehicles"`
	AvgTickMs float64   `json:"avgTickMs"`
	MaxTickMs float64   `json:"maxTickMs"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}

	window []core.TickStats
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Observe feeds one tick's stats into the timing window. Called from the
// simulation loop after every step.
func (s *Service) Observe(stats core.TickStats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.window = append(s.window, stats)
	if len(s.window) > statsWindow {
		s.window = s.window[len(s.window)-statsWindow:]
	}
}

// GetStatus returns the current simulation status.
func (s *Service) GetStatus() Status {
	currentRun := s.deps.RunContext.Get()

	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Time: time.Now(),
		Run:  currentRun.Name,
	}

	if len(s.window) == 0 {
		return status
	}

	last := s.window[len(s.window)-1]
	status.Tick = last.Tick
	status.Vehicles = last.Vehicles

	var total, max time.Duration
	for _, st := range s.window {
		total += st.Duration
		if st.Duration > max {
			max = st.Duration
		}
	}
	status.AvgTickMs = float64(total.Microseconds()) / float64(len(s.window)) / 1000
	status.MaxTickMs = float64(max.Microseconds()) / 1000

	return status
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	go func() {
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug().Msg("Starting status monitor goroutine")

		statusFile, err := os.Create(filepath.Join(s.deps.StatusDir, "status.txt"))
		if err != nil {
			s.deps.Logger.Error().Err(err).Msg("Error creating status file")
		}
		defer statusFile.Close()

		for {
			select {
			case <-s.stopChan:
				return
			default:
				time.Sleep(1000 * time.Millisecond)

				if !s.deps.RunContext.Active() {
					continue
				}

				status := s.GetStatus()
				raw, err := json.MarshalIndent(status, "", "  ")
				if err != nil {
					raw = []byte(fmt.Sprintf(`{"error": "%s"}`, err))
				}

				if statusFile != nil {
					statusFile.Truncate(0)
					statusFile.Seek(0, 0)
					statusFile.Write(append(raw, '\n'))
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		close(s.stopChan)
	}
}

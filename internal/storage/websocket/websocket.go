package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sandk/offroad-dynamics/pkg/core"
	"github.com/sandk/offroad-dynamics/pkg/streaming"
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL   string
	Token string
}

// Backend streams run telemetry over WebSocket to a live replay server.
// It implements storage.Backend but not storage.Exportable.
type Backend struct {
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, log zerolog.Logger) *Backend {
	return &Backend{
		conn: newConnection(log),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	return b.conn.dial(b.cfg.URL, b.cfg.Token)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

// StartRun sends the run descriptor and waits for server ack.
func (b *Backend) StartRun(run *core.Run) error {
	data, err := marshalEnvelope(streaming.TypeStartRun, streaming.StartRunPayload{Run: run})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedRunMsg = data
	b.conn.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeStartRun, ackTimeout)
}

// EndRun sends end_run and waits for server ack.
func (b *Backend) EndRun() error {
	err := b.sendEnvelopeAndWait(streaming.TypeEndRun, nil)

	// Clear cached state regardless of error.
	b.conn.mu.Lock()
	b.conn.cachedRunMsg = nil
	b.conn.mu.Unlock()

	return err
}

// AddVehicle sends a vehicle registration (fire-and-forget).
func (b *Backend) AddVehicle(id uint16, name string, tuning []byte) error {
	return b.sendEnvelope(streaming.TypeAddVehicle, streaming.AddVehiclePayload{
		VehicleID: id,
		Name:      name,
		Tuning:    json.RawMessage(tuning),
	})
}

// RecordSample streams a telemetry sample (fire-and-forget).
func (b *Backend) RecordSample(s *core.VehicleSample) error {
	return b.sendEnvelope(streaming.TypeSample, s)
}

// RecordTickStats streams per-tick stats (fire-and-forget).
func (b *Backend) RecordTickStats(t *core.TickStats) error {
	return b.sendEnvelope(streaming.TypeTickStats, t)
}

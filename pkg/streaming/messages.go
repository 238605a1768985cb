package streaming

import (
	"encoding/json"

	"github.com/sandk/offroad-dynamics/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartRun   = "start_run"
	TypeEndRun     = "end_run"
	TypeAddVehicle = "add_vehicle"
	TypeSample     = "vehicle_sample"
	TypeTickStats  = "tick_stats"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// StartRunPayload carries the run descriptor sent when recording begins.
type StartRunPayload struct {
	Run *core.Run `json:"run"`
}

// AddVehiclePayload registers a vehicle and its tuning for replay.
type AddVehiclePayload struct {
	VehicleID uint16          `json:"vehicleId"`
	Name      string          `json:"name"`
	Tuning    json.RawMessage `json:"tuning,omitempty"`
}

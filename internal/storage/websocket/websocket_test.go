package websocket_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandk/offroad-dynamics/internal/storage"
	"github.com/sandk/offroad-dynamics/internal/storage/websocket"
	"github.com/sandk/offroad-dynamics/pkg/core"
	"github.com/sandk/offroad-dynamics/pkg/streaming"
)

// Compile-time interface check.
var _ storage.Backend = (*websocket.Backend)(nil)

// testServer creates an httptest server that upgrades to WebSocket,
// records received messages, and sends acks for start_run/end_run.
func testServer(t *testing.T) (*httptest.Server, *messageLog) {
	t.Helper()
	ml := &messageLog{}

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Logf("upgrade error: %v", err)
			return
		}
		defer c.Close()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				return
			}

			var env streaming.Envelope
			if err := json.Unmarshal(msg, &env); err != nil {
				continue
			}
			ml.add(env)

			// Ack start_run and end_run.
			if env.Type == streaming.TypeStartRun || env.Type == streaming.TypeEndRun {
				ack := streaming.AckMessage{Type: "ack", For: env.Type}
				data, _ := json.Marshal(ack)
				if err := c.WriteMessage(ws.TextMessage, data); err != nil {
					return
				}
			}
		}
	}))

	return srv, ml
}

type messageLog struct {
	mu       sync.Mutex
	messages []streaming.Envelope
}

func (m *messageLog) add(env streaming.Envelope) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, env)
}

func (m *messageLog) all() []streaming.Envelope {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]streaming.Envelope, len(m.messages))
	copy(cp, m.messages)
	return cp
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestStartAndEndRun(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := websocket.New(websocket.Config{URL: wsURL(srv), Token: "test"}, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	run := &core.Run{Name: "test run", Terrain: "dunes", StartedAt: time.Now(), TickRate: 60}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.EndRun())

	msgs := ml.all()
	require.GreaterOrEqual(t, len(msgs), 2)
	assert.Equal(t, streaming.TypeStartRun, msgs[0].Type)
	assert.Equal(t, streaming.TypeEndRun, msgs[len(msgs)-1].Type)
}

func TestFireAndForgetMessages(t *testing.T) {
	srv, ml := testServer(t)
	defer srv.Close()

	b := websocket.New(websocket.Config{URL: wsURL(srv), Token: "s"}, zerolog.Nop())
	require.NoError(t, b.Init())
	defer b.Close()

	run := &core.Run{Name: "m", Terrain: "w"}
	require.NoError(t, b.StartRun(run))

	require.NoError(t, b.AddVehicle(1, "truck", []byte(`{"mass":1500}`)))
	require.NoError(t, b.RecordSample(&core.VehicleSample{VehicleID: 1, Tick: 1}))
	require.NoError(t, b.RecordSample(&core.VehicleSample{VehicleID: 1, Tick: 2}))
	require.NoError(t, b.RecordTickStats(&core.TickStats{Tick: 2, Vehicles: 1}))

	require.NoError(t, b.EndRun())

	// Give a moment for all messages to arrive at server.
	time.Sleep(50 * time.Millisecond)

	msgs := ml.all()

	types := make(map[string]int)
	for _, m := range msgs {
		types[m.Type]++
	}

	assert.Equal(t, 1, types[streaming.TypeStartRun])
	assert.Equal(t, 1, types[streaming.TypeEndRun])
	assert.Equal(t, 1, types[streaming.TypeAddVehicle])
	assert.Equal(t, 2, types[streaming.TypeSample])
	assert.Equal(t, 1, types[streaming.TypeTickStats])
}

func TestEnvelopeSerialization(t *testing.T) {
	payload := streaming.AddVehiclePayload{VehicleID: 9, Name: "buggy"}
	raw, err := json.Marshal(payload)
	require.NoError(t, err)

	env := streaming.Envelope{Type: streaming.TypeAddVehicle, Payload: raw}
	data, err := json.Marshal(env)
	require.NoError(t, err)

	var decoded streaming.Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, streaming.TypeAddVehicle, decoded.Type)

	var vp streaming.AddVehiclePayload
	require.NoError(t, json.Unmarshal(decoded.Payload, &vp))
	assert.Equal(t, uint16(9), vp.VehicleID)
	assert.Equal(t, "buggy", vp.Name)
}

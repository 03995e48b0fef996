// Package server streams blended poses to websocket clients. The hub
// runs the render cadence itself: a frame ticker measures real elapsed
// time, hands it to the stepper, and broadcasts the resulting blended
// poses. Clients are passive viewers; nothing flows back into the
// simulation.
package server

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/san-kum/stepsim/internal/scene"
	"github.com/san-kum/stepsim/internal/stepper"
)

const writeWait = 5 * time.Second

// PoseMessage is one broadcast frame.
type PoseMessage struct {
	Type       string     `json:"type"`
	Scene      string     `json:"scene"`
	ServerTime int64      `json:"server_time"`
	SimTime    float64    `json:"sim_time"`
	Steps      uint64     `json:"steps"`
	Alpha      float64    `json:"alpha"`
	Bodies     []PoseBody `json:"bodies"`
}

// PoseBody is one body's blended pose on the wire.
type PoseBody struct {
	ID          string     `json:"id"`
	Position    [3]float64 `json:"position"`
	Orientation [4]float64 `json:"orientation"` // w, x, y, z
}

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// Hub owns a stepper and fans its frames out to websocket subscribers.
type Hub struct {
	st  *stepper.Stepper
	sc  scene.Scene
	fps float64

	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
}

func NewHub(st *stepper.Stepper, sc scene.Scene, fps float64) *Hub {
	return &Hub{
		st:          st,
		sc:          sc,
		fps:         fps,
		subscribers: make(map[*subscriber]struct{}),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// HandleWS upgrades an HTTP request to a pose-stream subscription.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("websocket upgrade failed: %v", err)
		return
	}

	sub := &subscriber{conn: conn}
	h.mu.Lock()
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	// Drain and discard client messages so pings are answered and we
	// notice disconnects.
	go func() {
		defer h.drop(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (h *Hub) drop(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		sub.conn.Close()
	}
	h.mu.Unlock()
}

// Run drives the frame loop until the stop channel closes. Each tick
// feeds the real measured frame time to the stepper, so a stalled
// server process produces the same bounded catch-up behavior as a
// stalled renderer.
func (h *Hub) Run(stop <-chan struct{}) {
	ticker := time.NewTicker(time.Duration(float64(time.Second) / h.fps))
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			frameTime := now.Sub(last).Seconds()
			if frameTime < 0 {
				frameTime = 0
			}
			last = now

			h.st.Simulate(frameTime)
			h.broadcast(h.snapshot())
		}
	}
}

// snapshot builds the wire frame from the current blended poses.
func (h *Hub) snapshot() PoseMessage {
	bodies := h.st.Bodies()
	msg := PoseMessage{
		Type:       "poses",
		Scene:      h.sc.Name(),
		ServerTime: time.Now().UnixMilli(),
		SimTime:    h.st.SimulatedTime(),
		Steps:      h.st.StepsTaken(),
		Alpha:      h.st.Alpha(),
		Bodies:     make([]PoseBody, 0, len(bodies)),
	}
	for _, b := range bodies {
		pose := b.Rendered()
		msg.Bodies = append(msg.Bodies, PoseBody{
			ID: b.ID,
			Position: [3]float64{
				pose.Position.X(), pose.Position.Y(), pose.Position.Z(),
			},
			Orientation: [4]float64{
				pose.Orientation.W,
				pose.Orientation.V.X(), pose.Orientation.V.Y(), pose.Orientation.V.Z(),
			},
		})
	}
	return msg
}

func (h *Hub) broadcast(msg PoseMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("failed to marshal pose message: %v", err)
		return
	}

	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subscribers))
	for sub := range h.subscribers {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		err := sub.conn.WriteMessage(websocket.TextMessage, data)
		sub.mu.Unlock()
		if err != nil {
			h.drop(sub)
		}
	}
}

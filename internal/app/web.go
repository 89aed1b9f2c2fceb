package app

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"

	"github.com/relabs-tech/gyro_trainer/internal/config"
	"github.com/relabs-tech/gyro_trainer/internal/gesture"
	"github.com/relabs-tech/gyro_trainer/internal/store"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins for local development
	},
}

// trainerState is the latest-value snapshot served by /api/state.
type trainerState struct {
	LastMovement *gesture.Movement `json:"lastMovement,omitempty"`
	Lane         *laneState        `json:"lane,omitempty"`
	LastSession  *sessionSummary   `json:"lastSession,omitempty"`
}

// wsHub fans live movement events out to connected browsers.
type wsHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newWSHub() *wsHub {
	return &wsHub{conns: make(map[*websocket.Conn]struct{})}
}

func (h *wsHub) add(c *websocket.Conn) {
	h.mu.Lock()
	h.conns[c] = struct{}{}
	h.mu.Unlock()
}

func (h *wsHub) remove(c *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, c)
	h.mu.Unlock()
	c.Close()
}

// broadcast writes the payload to every client, dropping the ones that
// error out.
func (h *wsHub) broadcast(payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.conns {
		if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(h.conns, c)
			c.Close()
		}
	}
}

// RunWeb serves a live dashboard for the trainer: a latest-state JSON
// API, per-user session history read from the data directory, and a
// websocket stream of movement events. Static files under ./web are the
// UI itself.
func RunWeb() error {
	cfg := config.Get()

	var (
		mu    sync.RWMutex
		state trainerState
	)
	hub := newWSHub()

	st, err := store.New(cfg.DataDir)
	if err != nil {
		return err
	}

	// 1) Connect to the broker and mirror trainer traffic into state
	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDWeb)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(cfg.TopicMovement, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var mv gesture.Movement
		if err := json.Unmarshal(msg.Payload(), &mv); err != nil {
			log.Printf("web: movement unmarshal error: %v", err)
			return
		}
		mu.Lock()
		state.LastMovement = &mv
		mu.Unlock()
		hub.broadcast(msg.Payload())
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicMovement)

	token = client.Subscribe(cfg.TopicLane, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var l laneState
		if err := json.Unmarshal(msg.Payload(), &l); err != nil {
			log.Printf("web: lane unmarshal error: %v", err)
			return
		}
		mu.Lock()
		state.Lane = &l
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicLane)

	token = client.Subscribe(cfg.TopicSession, 0, func(_ mqtt.Client, msg mqtt.Message) {
		var s sessionSummary
		if err := json.Unmarshal(msg.Payload(), &s); err != nil {
			log.Printf("web: session unmarshal error: %v", err)
			return
		}
		mu.Lock()
		state.LastSession = &s
		mu.Unlock()
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("web: subscribed to %s", cfg.TopicSession)

	// 2) JSON API endpoint: latest state
	http.HandleFunc("/api/state", func(w http.ResponseWriter, r *http.Request) {
		mu.RLock()
		defer mu.RUnlock()

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(state); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 3) JSON API endpoint: a user's accumulated session history
	http.HandleFunc("/api/history", func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if user == "" {
			http.Error(w, "missing user parameter", http.StatusBadRequest)
			return
		}

		data, ok, err := st.LatestUserData(user)
		if err != nil {
			log.Printf("web: history load error: %v", err)
			http.Error(w, "history load failed", http.StatusInternalServerError)
			return
		}
		if !ok {
			http.Error(w, "no history for user", http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("web: json encode error: %v", err)
		}
	})

	// 4) Websocket stream of live movement events
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("web: websocket upgrade error: %v", err)
			return
		}
		hub.add(conn)
		// Read loop only to notice the peer going away.
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					hub.remove(conn)
					return
				}
			}
		}()
	})

	// 5) Static files from ./web as the root
	fs := http.FileServer(http.Dir("web"))
	http.Handle("/", fs)

	addr := fmt.Sprintf(":%d", cfg.WebServerPort)
	log.Printf("web server listening on %s", addr)
	return http.ListenAndServe(addr, nil)
}

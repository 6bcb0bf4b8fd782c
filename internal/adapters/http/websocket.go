package http

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	"github.com/samirrijal/halfway/internal/pkg/metrics"
)

// wsCommand is what clients send to manage their feed subscriptions, e.g.
// {"action":"subscribe","set":"team-a","channel":"matches"}. An empty set
// means all sets; the default channel is "matches".
type wsCommand struct {
	Action  string `json:"action"`  // "subscribe" | "unsubscribe"
	Set     string `json:"set"`     // point-set slug filter, "" = all
	Channel string `json:"channel"` // "matches" | "imports" | "updates"
}

// wsClient is one upgraded connection relaying NATS events. The mutex
// serializes writes from NATS callbacks and the keep-alive goroutine.
type wsClient struct {
	conn *websocket.Conn
	nc   *nats.Conn

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// WebSocketHandler upgrades the connection and streams match, import, and
// broadcast events from NATS until the client goes away.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		if nc == nil {
			_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"error":"event feed unavailable"}`))
			return
		}

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		cl := &wsClient{
			conn: conn,
			nc:   nc,
			subs: make(map[string]*nats.Subscription),
		}
		log := slog.Default().With("remote", conn.RemoteAddr().String())
		log.Info("ws client connected")

		// every client starts on the broadcast feed
		if err := cl.subscribe("halfway.updates.broadcast"); err != nil {
			log.Warn("ws broadcast subscribe failed", "error", err)
			return
		}

		done := make(chan struct{})
		go cl.keepAlive(done)

		cl.readLoop()

		close(done)
		cl.teardown()
		log.Info("ws client disconnected")
	}
}

func (cl *wsClient) readLoop() {
	for {
		_, raw, err := cl.conn.ReadMessage()
		if err != nil {
			return
		}

		var cmd wsCommand
		if err := json.Unmarshal(raw, &cmd); err != nil {
			cl.send(map[string]string{"error": "invalid JSON"})
			continue
		}

		subject, ok := subjectFor(cmd)
		if !ok {
			cl.send(map[string]string{"error": "unknown channel: " + cmd.Channel})
			continue
		}

		switch cmd.Action {
		case "subscribe":
			if _, dup := cl.subs[subject]; dup {
				cl.send(map[string]string{"status": "already subscribed", "subject": subject})
				continue
			}
			if err := cl.subscribe(subject); err != nil {
				cl.send(map[string]string{"error": "subscribe failed: " + err.Error()})
				continue
			}
			cl.send(map[string]string{"status": "subscribed", "subject": subject})

		case "unsubscribe":
			s, found := cl.subs[subject]
			if !found {
				cl.send(map[string]string{"error": "not subscribed to " + subject})
				continue
			}
			_ = s.Unsubscribe()
			delete(cl.subs, subject)
			cl.send(map[string]string{"status": "unsubscribed", "subject": subject})

		default:
			cl.send(map[string]string{"error": "unknown action: " + cmd.Action})
		}
	}
}

// subjectFor maps a client command to the NATS subject it should follow.
func subjectFor(cmd wsCommand) (string, bool) {
	channel := cmd.Channel
	if channel == "" {
		channel = "matches"
	}
	switch channel {
	case "matches":
		if cmd.Set != "" {
			return "halfway.matches." + cmd.Set + ".>", true
		}
		return "halfway.matches.>", true
	case "imports":
		return "halfway.imports.status.>", true
	case "updates":
		return "halfway.updates.broadcast", true
	}
	return "", false
}

func (cl *wsClient) subscribe(subject string) error {
	s, err := cl.nc.Subscribe(subject, func(msg *nats.Msg) {
		cl.send(json.RawMessage(msg.Data))
	})
	if err != nil {
		return err
	}
	cl.subs[subject] = s
	return nil
}

func (cl *wsClient) send(v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	cl.mu.Lock()
	defer cl.mu.Unlock()
	_ = cl.conn.WriteMessage(websocket.TextMessage, data)
}

func (cl *wsClient) keepAlive(done <-chan struct{}) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			cl.mu.Lock()
			err := cl.conn.WriteMessage(websocket.PingMessage, nil)
			cl.mu.Unlock()
			if err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func (cl *wsClient) teardown() {
	for _, s := range cl.subs {
		_ = s.Unsubscribe()
	}
}

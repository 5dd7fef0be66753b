package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/poigeo/internal/adapters/nats"
	"github.com/samirrijal/poigeo/internal/core/domain"
	"github.com/samirrijal/poigeo/internal/pkg/metrics"
)

// wsMessage is sent from client to narrow or widen the relayed events.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Table  string `json:"table"`  // table filter, "" = all tables
}

// wsSubject maps a table filter onto the schema event subject.
func wsSubject(table string) (string, bool) {
	if table == "" {
		return natsadapter.SchemaSubjectAll, true
	}
	ref, err := domain.ParseTableRef(table)
	if err != nil {
		return "", false
	}
	return natsadapter.SchemaSubject(ref.String()), true
}

// wsSubscriptions tracks the subjects one client receives. The all-tables
// wildcard and per-table subjects are exclusive so no event is relayed twice.
type wsSubscriptions struct {
	subscribe func(subject string) (unsubscribe func() error, err error)
	subs      map[string]func() error
}

func newWSSubscriptions(subscribe func(subject string) (func() error, error)) *wsSubscriptions {
	return &wsSubscriptions{subscribe: subscribe, subs: make(map[string]func() error)}
}

// add subscribes to subject. Narrowing to a table drops the wildcard and
// widening to the wildcard drops every table subject.
func (w *wsSubscriptions) add(subject string) (added bool, err error) {
	if _, ok := w.subs[subject]; ok {
		return false, nil
	}
	unsub, err := w.subscribe(subject)
	if err != nil {
		return false, err
	}
	for existing := range w.subs {
		if subject == natsadapter.SchemaSubjectAll || existing == natsadapter.SchemaSubjectAll {
			w.remove(existing)
		}
	}
	w.subs[subject] = unsub
	return true, nil
}

func (w *wsSubscriptions) remove(subject string) bool {
	unsub, ok := w.subs[subject]
	if !ok {
		return false
	}
	_ = unsub()
	delete(w.subs, subject)
	return true
}

func (w *wsSubscriptions) subjects() []string {
	out := make([]string, 0, len(w.subs))
	for s := range w.subs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (w *wsSubscriptions) close() {
	for s := range w.subs {
		w.remove(s)
	}
}

// WebSocketHandler returns a handler that relays schema events from NATS to
// connected clients. Every client starts with all tables; sending
// {"action":"subscribe","table":"poi"} narrows the relay to the tables named.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		if nc == nil {
			_ = c.WriteMessage(websocket.TextMessage, []byte(`{"error":"event relay not configured"}`))
			return
		}

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		var mu sync.Mutex

		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		subs := newWSSubscriptions(func(subject string) (func() error, error) {
			sub, err := nc.Subscribe(subject, relay)
			if err != nil {
				return nil, err
			}
			return sub.Unsubscribe, nil
		})
		defer subs.close()

		if _, err := subs.add(natsadapter.SchemaSubjectAll); err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, ok := wsSubject(m.Table)
			if !ok {
				_ = writeJSON(map[string]string{"error": "invalid table: " + m.Table})
				continue
			}

			switch m.Action {
			case "subscribe":
				added, err := subs.add(subject)
				if err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				status := "subscribed"
				if !added {
					status = "already subscribed"
				}
				_ = writeJSON(map[string]any{"status": status, "subject": subject, "subjects": subs.subjects()})

			case "unsubscribe":
				if subs.remove(subject) {
					_ = writeJSON(map[string]any{"status": "unsubscribed", "subject": subject, "subjects": subs.subjects()})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}

// Package gateway accepts client WebSocket connections, turns inbound
// frames into router events, and pushes deliveries back over live sockets.
// It owns the connection-id to socket map and is the router's push
// collaborator.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"chatrelay/pkg/keys"
	"chatrelay/pkg/logger"
	"chatrelay/pkg/models"
	"chatrelay/pkg/router"
)

// ErrConnGone reports a push to a connection id with no live socket, or one
// whose socket died mid-write. The router treats it as the offline case.
var ErrConnGone = errors.New("connection gone")

// Config holds gateway tunables; zero values fall back to defaults.
type Config struct {
	MaxMessageBytes int64
	WriteTimeout    time.Duration
	PingInterval    time.Duration
}

const (
	defaultMaxMessageBytes = 1 << 20
	defaultWriteTimeout    = 10 * time.Second
	defaultPingInterval    = 30 * time.Second
)

// socket wraps a websocket connection with a write lock; gorilla permits at
// most one concurrent writer per connection.
type socket struct {
	ws *websocket.Conn
	mu sync.Mutex
}

func (s *socket) write(deadline time.Duration, messageType int, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(deadline))
	return s.ws.WriteMessage(messageType, data)
}

// Gateway upgrades HTTP requests to WebSocket sessions and bridges them to
// the delivery router.
type Gateway struct {
	cfg      Config
	upgrader websocket.Upgrader

	mu    sync.Mutex
	conns map[string]*socket

	rt *router.Router
}

// New constructs a Gateway. Bind must be called with the router before the
// handler serves traffic.
func New(cfg Config) *Gateway {
	if cfg.MaxMessageBytes <= 0 {
		cfg.MaxMessageBytes = defaultMaxMessageBytes
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = defaultPingInterval
	}
	return &Gateway{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// origin policy is enforced by the surrounding middleware
			CheckOrigin: func(*http.Request) bool { return true },
		},
		conns: make(map[string]*socket),
	}
}

// Bind attaches the delivery router. Separate from New because the router
// itself is constructed with the gateway as its Pusher.
func (g *Gateway) Bind(rt *router.Router) { g.rt = rt }

// ConnCount returns the number of live sockets.
func (g *Gateway) ConnCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.conns)
}

// Push delivers a payload to the socket registered under connID. Missing or
// dead sockets yield ErrConnGone.
func (g *Gateway) Push(_ context.Context, connID string, payload []byte) error {
	g.mu.Lock()
	s, ok := g.conns[connID]
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrConnGone, connID)
	}
	if err := s.write(g.cfg.WriteTimeout, websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrConnGone, connID, err)
	}
	return nil
}

// Handler returns the /ws upgrade endpoint. Clients connect with
// ?user=<id>; the session is registered in the presence directory and torn
// down when the socket closes.
func (g *Gateway) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := r.URL.Query().Get("user")
		if err := keys.ValidateID(user); err != nil {
			http.Error(w, fmt.Sprintf(`{"error":"invalid user: %v"}`, err), http.StatusBadRequest)
			return
		}
		ws, err := g.upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Warn("ws_upgrade_failed", "remote", r.RemoteAddr, "error", err)
			return
		}
		connID := uuid.NewString()
		g.serve(r.Context(), ws, connID, user)
	})
}

// serve runs one session: register presence, pump frames into the router,
// tear down on close.
func (g *Gateway) serve(ctx context.Context, ws *websocket.Conn, connID, user string) {
	s := &socket{ws: ws}
	res := g.rt.HandleEvent(ctx, models.Event{Route: models.RouteConnect, ConnID: connID, User: user})
	if res.Status != 200 {
		logger.Error("ws_register_failed", "user", user, "conn", connID, "body", res.Body)
		_ = s.write(g.cfg.WriteTimeout, websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "registration failed"))
		_ = ws.Close()
		return
	}

	g.mu.Lock()
	g.conns[connID] = s
	g.mu.Unlock()
	liveConns.Inc()

	defer func() {
		g.mu.Lock()
		delete(g.conns, connID)
		g.mu.Unlock()
		liveConns.Dec()
		_ = ws.Close()
		// best-effort presence teardown; a duplicate disconnect is a no-op
		g.rt.HandleEvent(context.Background(), models.Event{Route: models.RouteDisconnect, ConnID: connID})
	}()

	ws.SetReadLimit(g.cfg.MaxMessageBytes)
	_ = ws.SetReadDeadline(time.Now().Add(2 * g.cfg.PingInterval))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(2 * g.cfg.PingInterval))
	})

	stop := make(chan struct{})
	defer close(stop)
	go g.pingLoop(s, stop)

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("ws_read_failed", "user", user, "conn", connID, "error", err)
			}
			return
		}
		var ev models.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			g.ack(s, router.Result{Status: 500, Body: fmt.Sprintf("invalid event json: %v", err)})
			continue
		}
		// the session already knows its connection and user; frames only
		// need to carry the route-specific fields
		ev.ConnID = connID
		if ev.User == "" {
			ev.User = user
		}
		if ev.From == "" {
			ev.From = user
		}
		eventsTotal.WithLabelValues(routeLabel(ev.Route)).Inc()
		g.ack(s, g.rt.HandleEvent(ctx, ev))
	}
}

// ack writes the handler result back to the sender.
func (g *Gateway) ack(s *socket, res router.Result) {
	body, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.write(g.cfg.WriteTimeout, websocket.TextMessage, body); err != nil {
		logger.Debug("ws_ack_failed", "error", err)
	}
}

func (g *Gateway) pingLoop(s *socket, stop <-chan struct{}) {
	t := time.NewTicker(g.cfg.PingInterval)
	defer t.Stop()
	for {
		select {
		case <-stop:
			return
		case <-t.C:
			if err := s.write(g.cfg.WriteTimeout, websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func routeLabel(r models.Route) string {
	switch r {
	case models.RouteConnect, models.RouteDisconnect, models.RouteGetMessages:
		return string(r)
	default:
		return string(models.RouteSend)
	}
}

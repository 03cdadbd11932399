// Package rendezvous talks to the Socket.IO signaling relay that pairs a
// browser with this agent.
package rendezvous

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
	"github.com/Diwakar-Gupta/pepper/pkg/utils/logger"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	eventJoin   = "join"
	eventJoined = "joined"
	eventSignal = "signal"

	// signalFrom tags every signal this agent emits.
	signalFrom = "judge"
)

// SignalHandler receives the payload of an inbound "signal" event. It must not block.
type SignalHandler func(ctx context.Context, payload json.RawMessage)

// Config configures the relay client.
type Config struct {
	URL              string
	SessionID        string
	HandshakeTimeout time.Duration
}

// Client is a minimal Socket.IO client over one WebSocket.
// Dial may be called again after the connection is lost.
type Client struct {
	cfg      Config
	endpoint string
	dialer   *websocket.Dialer
	onSignal SignalHandler

	writeMu sync.Mutex
	mu      sync.Mutex
	conn    *websocket.Conn
	open    openPacket
}

var _ Connector = (*Client)(nil)

// NewClient validates cfg and builds a client. onSignal may be nil.
func NewClient(cfg Config, onSignal SignalHandler) (*Client, error) {
	endpoint, err := socketURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.SessionID == "" {
		return nil, appErr.ValidationError("sessionId", "required")
	}
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 20 * time.Second
	}
	return &Client{
		cfg:      cfg,
		endpoint: endpoint,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.HandshakeTimeout,
		},
		onSignal: onSignal,
	}, nil
}

// SetSignalHandler replaces the inbound signal handler. Call before Serve.
func (c *Client) SetSignalHandler(h SignalHandler) {
	c.mu.Lock()
	c.onSignal = h
	c.mu.Unlock()
}

// Dial opens the WebSocket, completes the Socket.IO handshake and joins the
// session room.
func (c *Client) Dial(ctx context.Context) error {
	dialCtx, cancel := context.WithTimeout(ctx, c.cfg.HandshakeTimeout)
	defer cancel()

	conn, _, err := c.dialer.DialContext(dialCtx, c.endpoint, nil)
	if err != nil {
		return appErr.Wrapf(err, appErr.RendezvousHandshake, "dial %s failed", c.endpoint)
	}
	deadline := time.Now().Add(c.cfg.HandshakeTimeout)
	_ = conn.SetReadDeadline(deadline)

	open, err := c.handshake(conn)
	if err != nil {
		conn.Close()
		return err
	}
	_ = conn.SetReadDeadline(time.Time{})

	c.mu.Lock()
	old := c.conn
	c.conn = conn
	c.open = open
	c.mu.Unlock()
	if old != nil {
		old.Close()
	}

	logger.Info(ctx, "socket.io session opened", zap.String("sid", open.SID), zap.Duration("heartbeat", open.heartbeat()))
	if err := c.Emit(eventJoin, map[string]string{"sessionId": c.cfg.SessionID}); err != nil {
		return err
	}
	return nil
}

func (c *Client) handshake(conn *websocket.Conn) (openPacket, error) {
	_, frame, err := conn.ReadMessage()
	if err != nil {
		return openPacket{}, appErr.Wrapf(err, appErr.RendezvousHandshake, "read open packet failed")
	}
	open, err := parseOpen(frame)
	if err != nil {
		return openPacket{}, err
	}
	if err := conn.WriteMessage(websocket.TextMessage, []byte{eioMessage, sioConnect}); err != nil {
		return openPacket{}, appErr.Wrapf(err, appErr.RendezvousHandshake, "send connect failed")
	}
	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			return openPacket{}, appErr.Wrapf(err, appErr.RendezvousHandshake, "await connect ack failed")
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case eioPing:
			if err := conn.WriteMessage(websocket.TextMessage, []byte{eioPong}); err != nil {
				return openPacket{}, appErr.Wrapf(err, appErr.RendezvousHandshake, "send pong failed")
			}
			continue
		case eioMessage:
			if len(frame) < 2 {
				continue
			}
			switch frame[1] {
			case sioConnect:
				return open, nil
			case sioConnectError:
				return openPacket{}, appErr.Newf(appErr.RendezvousHandshake, "connect refused: %s", connectErrorMessage(frame[2:]))
			}
		case eioClose:
			return openPacket{}, appErr.New(appErr.RendezvousClosed)
		}
	}
}

// Serve is the blocking receive loop. It answers heartbeats and routes events
// until the connection fails, the server disconnects or ctx ends.
func (c *Client) Serve(ctx context.Context) error {
	c.mu.Lock()
	conn := c.conn
	heartbeat := c.open.heartbeat()
	c.mu.Unlock()
	if conn == nil {
		return appErr.New(appErr.RendezvousClosed).WithMessage("not connected")
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_ = conn.SetReadDeadline(time.Now().Add(heartbeat))
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return appErr.Wrapf(err, appErr.RendezvousClosed, "signaling connection lost")
		}
		if len(frame) == 0 {
			continue
		}
		switch frame[0] {
		case eioPing:
			if err := c.write(conn, []byte{eioPong}); err != nil {
				return err
			}
		case eioClose:
			return appErr.New(appErr.RendezvousClosed).WithMessage("server closed the connection")
		case eioNoop, eioPong:
		case eioMessage:
			if err := c.handleMessage(ctx, frame[1:]); err != nil {
				return err
			}
		default:
			logger.Debug(ctx, "ignoring engine.io packet", zap.String("packet", truncate(frame)))
		}
	}
}

func (c *Client) handleMessage(ctx context.Context, packet []byte) error {
	if len(packet) == 0 {
		return nil
	}
	switch packet[0] {
	case sioEvent:
		name, payload, err := decodeEvent(packet[1:])
		if err != nil {
			logger.Warn(ctx, "dropping malformed event", zap.Error(err))
			return nil
		}
		c.dispatch(ctx, name, payload)
	case sioDisconnect:
		return appErr.New(appErr.RendezvousClosed).WithMessage("server disconnected the namespace")
	case sioConnectError:
		return appErr.Newf(appErr.RendezvousClosed, "namespace error: %s", connectErrorMessage(packet[1:]))
	}
	return nil
}

func (c *Client) dispatch(ctx context.Context, name string, payload json.RawMessage) {
	switch name {
	case eventJoined:
		logger.Info(ctx, "joined signaling room", zap.ByteString("payload", payload))
	case eventSignal:
		c.mu.Lock()
		h := c.onSignal
		c.mu.Unlock()
		if h == nil {
			logger.Warn(ctx, "signal received without a handler")
			return
		}
		h(ctx, payload)
	default:
		logger.Debug(ctx, "ignoring event", zap.String("event", name))
	}
}

// Emit sends an event. Safe for concurrent use.
func (c *Client) Emit(event string, payload interface{}) error {
	frame, err := encodeEvent(event, payload)
	if err != nil {
		return err
	}
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return appErr.New(appErr.RendezvousClosed).WithMessage("not connected")
	}
	return c.write(conn, frame)
}

// EmitSignal relays signal to the browser side of the session.
func (c *Client) EmitSignal(signal interface{}) error {
	return c.Emit(eventSignal, map[string]interface{}{
		"sessionId": c.cfg.SessionID,
		"from":      signalFrom,
		"signal":    signal,
	})
}

func (c *Client) write(conn *websocket.Conn, frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		return appErr.Wrapf(err, appErr.RendezvousClosed, "write to signaling server failed")
	}
	return nil
}

// Close closes the current connection, sending an Engine.IO close first.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	if conn == nil {
		return nil
	}
	_ = c.write(conn, []byte{eioClose})
	_ = conn.Close()
	return nil
}

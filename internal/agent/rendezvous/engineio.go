package rendezvous

import (
	"encoding/json"
	"net/url"
	"strings"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"
)

// Engine.IO v4 packet types.
const (
	eioOpen    = '0'
	eioClose   = '1'
	eioPing    = '2'
	eioPong    = '3'
	eioMessage = '4'
	eioNoop    = '6'
)

// Socket.IO v5 packet types, carried inside an Engine.IO message.
const (
	sioConnect      = '0'
	sioDisconnect   = '1'
	sioEvent        = '2'
	sioConnectError = '4'
)

// openPacket is the payload of the Engine.IO open packet.
type openPacket struct {
	SID          string `json:"sid"`
	PingInterval int64  `json:"pingInterval"`
	PingTimeout  int64  `json:"pingTimeout"`
	MaxPayload   int64  `json:"maxPayload"`
}

// heartbeat is how long the server may stay silent before the link is dead.
func (o openPacket) heartbeat() time.Duration {
	d := time.Duration(o.PingInterval+o.PingTimeout) * time.Millisecond
	if d <= 0 {
		d = 45 * time.Second
	}
	return d
}

// socketURL turns the relay base URL into its Socket.IO WebSocket endpoint.
func socketURL(base string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(base))
	if err != nil || u.Host == "" {
		return "", appErr.ValidationError("signaling.url", "must be an absolute URL")
	}
	switch u.Scheme {
	case "https", "wss":
		u.Scheme = "wss"
	case "http", "ws":
		u.Scheme = "ws"
	default:
		return "", appErr.ValidationError("signaling.url", "unsupported scheme "+u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/") + "/socket.io/"
	q := url.Values{}
	q.Set("EIO", "4")
	q.Set("transport", "websocket")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func parseOpen(frame []byte) (openPacket, error) {
	var open openPacket
	if len(frame) == 0 || frame[0] != eioOpen {
		return open, appErr.Newf(appErr.RendezvousHandshake, "expected open packet, got %q", truncate(frame))
	}
	if err := json.Unmarshal(frame[1:], &open); err != nil {
		return open, appErr.Wrapf(err, appErr.RendezvousHandshake, "decode open packet failed")
	}
	return open, nil
}

func encodeEvent(event string, payload interface{}) ([]byte, error) {
	body, err := json.Marshal([]interface{}{event, payload})
	if err != nil {
		return nil, appErr.Wrapf(err, appErr.RendezvousProtocol, "encode %s event failed", event)
	}
	return append([]byte{eioMessage, sioEvent}, body...), nil
}

// decodeEvent parses the body of a "42" packet into its name and first argument.
func decodeEvent(body []byte) (string, json.RawMessage, error) {
	var args []json.RawMessage
	if err := json.Unmarshal(body, &args); err != nil || len(args) == 0 {
		return "", nil, appErr.Newf(appErr.RendezvousProtocol, "malformed event %q", truncate(body))
	}
	var name string
	if err := json.Unmarshal(args[0], &name); err != nil {
		return "", nil, appErr.Newf(appErr.RendezvousProtocol, "event name is not a string")
	}
	if len(args) < 2 {
		return name, nil, nil
	}
	return name, args[1], nil
}

// connectErrorMessage extracts the message of a "44" packet.
func connectErrorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	return string(body)
}

func truncate(b []byte) string {
	const max = 80
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

package rendezvous

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	appErr "github.com/Diwakar-Gupta/pepper/pkg/errors"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// fakeRelay speaks just enough Socket.IO to exercise the client.
type fakeRelay struct {
	t        *testing.T
	refuse   bool
	received chan string
	conns    chan *websocket.Conn
}

func newFakeRelay(t *testing.T) (*fakeRelay, *httptest.Server) {
	r := &fakeRelay{t: t, received: make(chan string, 16), conns: make(chan *websocket.Conn, 1)}
	srv := httptest.NewServer(http.HandlerFunc(r.serve))
	t.Cleanup(srv.Close)
	return r, srv
}

func (r *fakeRelay) serve(w http.ResponseWriter, req *http.Request) {
	if req.URL.Path != "/socket.io/" || req.URL.Query().Get("EIO") != "4" || req.URL.Query().Get("transport") != "websocket" {
		http.Error(w, "bad endpoint", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, req, nil)
	if err != nil {
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`0{"sid":"abc","upgrades":[],"pingInterval":25000,"pingTimeout":20000,"maxPayload":1000000}`))
	_, msg, err := conn.ReadMessage()
	if err != nil || string(msg) != "40" {
		conn.Close()
		return
	}
	// A ping during the handshake must be answered.
	_ = conn.WriteMessage(websocket.TextMessage, []byte("2"))
	if r.refuse {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`44{"message":"not allowed"}`))
		conn.Close()
		return
	}
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`40{"sid":"xyz"}`))
	r.conns <- conn
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		r.received <- string(msg)
	}
}

func (r *fakeRelay) next(t *testing.T) string {
	t.Helper()
	select {
	case m := <-r.received:
		return m
	case <-time.After(3 * time.Second):
		t.Fatalf("timed out waiting for client frame")
	}
	return ""
}

func TestSocketURL(t *testing.T) {
	got, err := socketURL("https://relay.example.com/")
	if err != nil {
		t.Fatal(err)
	}
	if got != "wss://relay.example.com/socket.io/?EIO=4&transport=websocket" {
		t.Fatalf("socketURL = %s", got)
	}
	if _, err := socketURL("ftp://x"); err == nil {
		t.Fatalf("expected scheme error")
	}
}

func TestDialJoinsAndRoutesSignals(t *testing.T) {
	relay, srv := newFakeRelay(t)
	signals := make(chan json.RawMessage, 1)
	client, err := NewClient(Config{URL: srv.URL, SessionID: "ABCD1234", HandshakeTimeout: 3 * time.Second},
		func(ctx context.Context, payload json.RawMessage) { signals <- payload })
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := client.Dial(ctx); err != nil {
		t.Fatalf("dial: %v", err)
	}
	if got := relay.next(t); got != "3" {
		t.Fatalf("expected pong during handshake, got %q", got)
	}
	if got := relay.next(t); got != `42["join",{"sessionId":"ABCD1234"}]` {
		t.Fatalf("join frame = %q", got)
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- client.Serve(ctx) }()

	conn := <-relay.conns
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`42["joined",{"sessionId":"ABCD1234"}]`))
	_ = conn.WriteMessage(websocket.TextMessage, []byte(`42["signal",{"from":"browser","signal":{"type":"offer"}}]`))
	select {
	case payload := <-signals:
		if !strings.Contains(string(payload), `"type":"offer"`) {
			t.Fatalf("signal payload = %s", payload)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("signal not routed")
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte("2"))
	if got := relay.next(t); got != "3" {
		t.Fatalf("expected pong, got %q", got)
	}

	if err := client.EmitSignal(map[string]string{"type": "answer"}); err != nil {
		t.Fatalf("emit: %v", err)
	}
	got := relay.next(t)
	if !strings.HasPrefix(got, `42["signal",`) || !strings.Contains(got, `"from":"judge"`) || !strings.Contains(got, `"sessionId":"ABCD1234"`) {
		t.Fatalf("signal frame = %q", got)
	}

	_ = conn.WriteMessage(websocket.TextMessage, []byte("1"))
	select {
	case err := <-serveErr:
		if !appErr.Is(err, appErr.RendezvousClosed) {
			t.Fatalf("expected closed error, got %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not return after close packet")
	}
}

func TestDialConnectError(t *testing.T) {
	relay, srv := newFakeRelay(t)
	relay.refuse = true
	client, err := NewClient(Config{URL: srv.URL, SessionID: "ABCD1234", HandshakeTimeout: 3 * time.Second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	err = client.Dial(context.Background())
	if !appErr.Is(err, appErr.RendezvousHandshake) || !strings.Contains(err.Error(), "not allowed") {
		t.Fatalf("expected handshake error, got %v", err)
	}
}

func TestServeStopsOnContextCancel(t *testing.T) {
	_, srv := newFakeRelay(t)
	client, err := NewClient(Config{URL: srv.URL, SessionID: "ABCD1234", HandshakeTimeout: 3 * time.Second}, nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	if err := client.Dial(ctx); err != nil {
		t.Fatalf("dial: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- client.Serve(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop")
	}
}

func TestEmitBeforeDial(t *testing.T) {
	client, err := NewClient(Config{URL: "http://127.0.0.1:1", SessionID: "ABCD1234"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := client.Emit("x", nil); !appErr.Is(err, appErr.RendezvousClosed) {
		t.Fatalf("expected not connected error, got %v", err)
	}
}

func TestDecodeEvent(t *testing.T) {
	name, payload, err := decodeEvent([]byte(`["signal",{"a":1}]`))
	if err != nil || name != "signal" || string(payload) != `{"a":1}` {
		t.Fatalf("decode = %q %s %v", name, payload, err)
	}
	if _, _, err := decodeEvent([]byte(`{}`)); err == nil {
		t.Fatalf("expected error for non-array event")
	}
}

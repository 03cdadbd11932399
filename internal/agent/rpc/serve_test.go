package rpc

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"
)

type fakeConn struct {
	ready  chan struct{}
	frames chan string
	done   chan struct{}

	mu   sync.Mutex
	sent []string
}

func newFakeConn() *fakeConn {
	return &fakeConn{ready: make(chan struct{}), frames: make(chan string, 8), done: make(chan struct{})}
}

func (c *fakeConn) Ready() <-chan struct{} { return c.ready }
func (c *fakeConn) Frames() <-chan string  { return c.frames }
func (c *fakeConn) Done() <-chan struct{}  { return c.done }
func (c *fakeConn) SendText(s string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, s)
	return nil
}

func (c *fakeConn) sentFrames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

func TestServePushesLanguagesThenAnswersInOrder(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	conn := newFakeConn()
	done := make(chan error, 1)
	go func() { done <- Serve(context.Background(), conn, d) }()

	time.Sleep(10 * time.Millisecond)
	if len(conn.sentFrames()) != 0 {
		t.Fatalf("sent before the channel was ready")
	}
	close(conn.ready)
	conn.frames <- `{"type":"submission_stats","_msgId":1}`
	conn.frames <- `{"type":"bogus","_msgId":2}`

	deadline := time.Now().Add(3 * time.Second)
	for len(conn.sentFrames()) < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	sent := conn.sentFrames()
	if len(sent) != 3 {
		t.Fatalf("sent = %v", sent)
	}
	var first map[string]interface{}
	_ = json.Unmarshal([]byte(sent[0]), &first)
	if _, ok := first["languages"]; !ok {
		t.Fatalf("first frame must be the languages push: %s", sent[0])
	}
	var second, third map[string]interface{}
	_ = json.Unmarshal([]byte(sent[1]), &second)
	_ = json.Unmarshal([]byte(sent[2]), &third)
	if second["_msgId"] != float64(1) || third["_msgId"] != float64(2) || third["error"] != "Unknown message type" {
		t.Fatalf("responses out of order: %v %v", second, third)
	}

	close(conn.done)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("serve did not stop when the channel closed")
	}
}

func TestServeChannelClosedBeforeOpen(t *testing.T) {
	d, _, _ := newTestDispatcher(t)
	conn := newFakeConn()
	close(conn.done)
	if err := Serve(context.Background(), conn, d); err == nil {
		t.Fatalf("expected error when the channel never opened")
	}
}

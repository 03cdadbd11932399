package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestHandlePostsFrame(t *testing.T) {
	var got string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/v1/rpc" {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		got = string(body)
		_, _ = w.Write([]byte(`{"_msgId":7,"stats":{}}`))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", time.Second)
	resp := c.Handle(context.Background(), []byte(`{"type":"submission_stats","_msgId":7}`))
	if string(resp) != `{"_msgId":7,"stats":{}}` {
		t.Fatalf("resp = %s", resp)
	}
	if got != `{"type":"submission_stats","_msgId":7}` {
		t.Fatalf("server got %s", got)
	}
}

func TestHandleFoldsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	c := New(srv.URL, time.Second)
	if resp := string(c.Handle(context.Background(), []byte(`{}`))); !strings.Contains(resp, "HTTP 502") {
		t.Fatalf("resp = %s", resp)
	}
	srv.Close()
	if resp := string(c.Handle(context.Background(), []byte(`{}`))); !strings.Contains(resp, `"error"`) {
		t.Fatalf("resp = %s", resp)
	}
}

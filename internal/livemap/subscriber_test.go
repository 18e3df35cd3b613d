package livemap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// pushServer sends msgs to each viewer, then either closes normally or
// holds the connection open until the viewer leaves.
func pushServer(t *testing.T, msgs []string, hold bool) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close() //nolint:errcheck // Test server

		for _, m := range msgs {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(m)); err != nil {
				return
			}
		}
		if hold {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					return
				}
			}
		}
		//nolint:errcheck // Test server
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		time.Sleep(50 * time.Millisecond)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribeFeedsRenderer(t *testing.T) {
	srv := pushServer(t, []string{
		`{"uniqueID":"u-1","room":"Room 1","floor":1,"status":"Available"}`,
		`garbage`,
		`{"uniqueID":"u-1","room":"Room 4","floor":1,"status":"Available"}`,
	}, false)

	r, canvas, _ := newTestRenderer(t)
	if err := Subscribe(context.Background(), wsURL(srv), r.Handle, nil); err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}

	e, ok := r.State().Get("u-1")
	if !ok || e.Label.Room != "Room 4" {
		t.Errorf("state = %+v, %v; want Room 4", e, ok)
	}
	if len(canvas.Markers()) != 1 {
		t.Errorf("markers = %+v", canvas.Markers())
	}
}

func TestSubscribeStopsOnCancel(t *testing.T) {
	srv := pushServer(t, []string{`{"room":"Room 2"}`}, true)

	ctx, cancel := context.WithCancel(context.Background())
	var (
		mu  sync.Mutex
		got int
	)
	handle := func([]byte) error {
		mu.Lock()
		got++
		mu.Unlock()
		cancel()
		return nil
	}

	done := make(chan error, 1)
	go func() { done <- Subscribe(ctx, wsURL(srv), handle, nil) }()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Subscribe() error = %v, want nil on cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Subscribe did not return after cancel")
	}
	mu.Lock()
	defer mu.Unlock()
	if got != 1 {
		t.Errorf("messages handled = %d, want 1", got)
	}
}

func TestSubscribeDialFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	err := Subscribe(context.Background(), wsURL(srv), func([]byte) error { return nil }, nil)
	if err == nil {
		t.Error("Subscribe() to a non-websocket endpoint should fail")
	}
}

func TestSubscribeConnectionDrop(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := (&websocket.Upgrader{}).Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.UnderlyingConn().Close() //nolint:errcheck // Simulated drop
	}))
	defer srv.Close()

	err := Subscribe(context.Background(), wsURL(srv), func([]byte) error { return nil }, nil)
	if err == nil {
		t.Error("Subscribe() should report an abrupt drop")
	}
}

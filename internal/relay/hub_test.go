package relay

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/beaconloc/presence/internal/infrastructure/config"
	"github.com/beaconloc/presence/internal/infrastructure/logging"
	"github.com/beaconloc/presence/internal/presence"
)

func mustDecode(t *testing.T, body string) presence.IngestPayload {
	t.Helper()
	p, err := presence.Decode([]byte(body))
	if err != nil {
		t.Fatalf("Decode(%s) error = %v", body, err)
	}
	return p
}

func dialViewer(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dialing %s: %v", url, err)
	}
	resp.Body.Close() //nolint:errcheck // Upgrade response has no body

	t.Cleanup(func() { conn.Close() }) //nolint:errcheck // Test cleanup
	return conn
}

func waitForViewers(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("viewers = %d, want %d", h.ClientCount(), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func readReport(t *testing.T, conn *websocket.Conn) presence.IngestPayload {
	t.Helper()
	//nolint:errcheck // Test deadline
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("reading push message: %v", err)
	}
	p, err := presence.Decode(data)
	if err != nil {
		t.Fatalf("push message %s did not decode: %v", data, err)
	}
	return p
}

func post(t *testing.T, srv *httptest.Server, body string) {
	t.Helper()
	resp, err := http.Post(srv.URL+"/submit-data", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close() //nolint:errcheck // Test cleanup
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST status = %d", resp.StatusCode)
	}
}

func TestViewersReceiveReportsInOrder(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.srv.Handler())
	defer srv.Close()

	a := dialViewer(t, srv)
	b := dialViewer(t, srv)
	waitForViewers(t, env.srv.Hub(), 2)

	post(t, srv, room1Body)
	post(t, srv, `{"uniqueID":"u1","userName":"Asha","room":"Room 4","floor":1,"status":"Available"}`)

	for _, conn := range []*websocket.Conn{a, b} {
		first := readReport(t, conn)
		second := readReport(t, conn)
		if first.Room != "Room 1" || second.Room != "Room 4" {
			t.Errorf("viewer saw %s then %s", first.Room, second.Room)
		}
		if first.UniqueID != "u1" || *first.Floor != 1 || first.Status != presence.StatusAvailable {
			t.Errorf("first message = %+v", first)
		}
	}
}

func TestViewerGetsNoReplay(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.srv.Handler())
	defer srv.Close()

	post(t, srv, room1Body)

	conn := dialViewer(t, srv)
	waitForViewers(t, env.srv.Hub(), 1)
	post(t, srv, `{"uniqueID":"u2","userName":"Ravi","room":"Room 2","floor":1,"status":"Available"}`)

	if got := readReport(t, conn); got.UniqueID != "u2" {
		t.Errorf("first message after connect = %+v, want u2", got)
	}
}

func TestViewerDisconnectUnregisters(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.srv.Handler())
	defer srv.Close()

	conn := dialViewer(t, srv)
	waitForViewers(t, env.srv.Hub(), 1)

	//nolint:errcheck // Test close handshake
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	waitForViewers(t, env.srv.Hub(), 0)

	// Broadcasting with nobody connected is harmless.
	post(t, srv, room1Body)
}

func TestBroadcastSkipsFullViewer(t *testing.T) {
	log := logging.New(config.LoggingConfig{Level: "error", Format: "text", Output: "stdout"}, "test", "test")
	h := NewHub(config.WebSocketConfig{}, log)

	slow := &Client{hub: h, send: make(chan []byte, 1)}
	fast := &Client{hub: h, send: make(chan []byte, 4)}
	h.Register(slow)
	h.Register(fast)

	h.Broadcast([]byte("one"))
	h.Broadcast([]byte("two"))

	if len(slow.send) != 1 || len(fast.send) != 2 {
		t.Errorf("buffered slow=%d fast=%d", len(slow.send), len(fast.send))
	}
	if h.sent.Load() != 3 || h.skipped.Load() != 1 {
		t.Errorf("sent=%d skipped=%d", h.sent.Load(), h.skipped.Load())
	}

	h.Unregister(slow)
	h.Unregister(slow)
	if _, open := <-slow.send; !open {
		t.Error("buffered message lost on unregister")
	}
	if _, open := <-slow.send; open {
		t.Error("send channel not closed")
	}
	if slow.trySend([]byte("late")) {
		t.Error("trySend on departed viewer reported success")
	}
}

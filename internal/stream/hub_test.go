package stream

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"p25recv/internal/duid"
	"p25recv/internal/framer"
)

func newTestHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	h := New(logger)
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestBroadcastPayloadReachesClient(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv)

	// Give the server a moment to register the new connection before
	// broadcasting.
	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 1 {
		t.Fatalf("ClientCount() = %d, want 1", h.ClientCount())
	}

	h.BroadcastPayload(framer.FramedPayload{NAC: 0x123, DUID: duid.HDU, ValidNID: true, BitCount: 678})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got envelope
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "payload" || got.Payload == nil {
		t.Fatalf("envelope = %+v, want type=payload with Payload set", got)
	}
	if got.Payload.NAC != 0x123 || got.Payload.DUID != duid.HDU {
		t.Fatalf("payload = %+v", got.Payload)
	}
}

func TestBroadcastSyncLossReachesClient(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv)

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	h.BroadcastSyncLoss(framer.SyncLoss{BitCount: 9600, Protocol: framer.ProtocolAPCO25})

	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("ReadMessage: %v", err)
	}

	var got envelope
	if err := json.Unmarshal(msg, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "sync_loss" || got.SyncLoss == nil {
		t.Fatalf("envelope = %+v, want type=sync_loss with SyncLoss set", got)
	}
	if got.SyncLoss.BitCount != 9600 {
		t.Fatalf("BitCount = %d, want 9600", got.SyncLoss.BitCount)
	}
}

func TestClientDisconnectRemovesFromHub(t *testing.T) {
	h, srv := newTestHub(t)
	conn := dial(t, srv)

	deadline := time.Now().Add(time.Second)
	for h.ClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	conn.Close()

	deadline = time.Now().Add(time.Second)
	for h.ClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if h.ClientCount() != 0 {
		t.Fatalf("ClientCount() = %d after client close, want 0", h.ClientCount())
	}
}

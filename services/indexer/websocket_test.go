package indexer

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vsc-eco/vsc-launchpad/launchpad"
)

func dialWS(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestHub_BroadcastsEvents(t *testing.T) {
	svc, ts := newTestService(t)
	conn := dialWS(t, ts)

	want := launchedEvent(t, "stonk")
	// the upgrade completes before Dial returns, but registration runs
	// in the handler goroutine; give it a beat
	require.Eventually(t, func() bool {
		svc.hub.mu.Lock()
		defer svc.hub.mu.Unlock()
		return len(svc.hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	svc.Apply(want)

	var got launchpad.Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, launchpad.EventMarketLaunched, got.Type)
	assert.Equal(t, "stonk", got.Market)
	assert.JSONEq(t, string(want.Args), string(got.Args))
}

func TestHub_MultipleSubscribers(t *testing.T) {
	svc, ts := newTestService(t)
	a := dialWS(t, ts)
	b := dialWS(t, ts)
	require.Eventually(t, func() bool {
		svc.hub.mu.Lock()
		defer svc.hub.mu.Unlock()
		return len(svc.hub.clients) == 2
	}, time.Second, 5*time.Millisecond)

	svc.Apply(tradeEvent(t, "stonk", "buy", "3000000"))

	for _, conn := range []*websocket.Conn{a, b} {
		var got launchpad.Event
		require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
		require.NoError(t, conn.ReadJSON(&got))
		assert.Equal(t, launchpad.EventTradeExecuted, got.Type)
	}
}

func TestHub_DroppedClientUnregisters(t *testing.T) {
	svc, ts := newTestService(t)
	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		svc.hub.mu.Lock()
		defer svc.hub.mu.Unlock()
		return len(svc.hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool {
		svc.hub.mu.Lock()
		defer svc.hub.mu.Unlock()
		return len(svc.hub.clients) == 0
	}, time.Second, 5*time.Millisecond)

	// broadcasting to nobody is fine
	svc.Apply(tradeEvent(t, "stonk", "buy", "1"))
}

func TestHub_CloseDisconnects(t *testing.T) {
	svc, ts := newTestService(t)
	conn := dialWS(t, ts)
	require.Eventually(t, func() bool {
		svc.hub.mu.Lock()
		defer svc.hub.mu.Unlock()
		return len(svc.hub.clients) == 1
	}, time.Second, 5*time.Millisecond)

	svc.hub.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
}

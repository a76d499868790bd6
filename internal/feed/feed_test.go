package feed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"finance-sim/internal/model"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uid, _ := strconv.ParseInt(r.URL.Query().Get("user"), 10, 64)
		hub.Serve(w, r, uid)
	}))
	t.Cleanup(srv.Close)
	return hub, srv
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	var env Envelope
	require.NoError(t, json.Unmarshal(msg, &env))
	return env
}

func waitClients(t *testing.T, hub *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return hub.ClientCount() == n }, 2*time.Second, 5*time.Millisecond)
}

func receipt(user int64, sym string) model.Receipt {
	return model.Receipt{UserID: user, Side: model.SideBuy, Symbol: sym, Shares: 1, Price: decimal.NewFromInt(10)}
}

func TestFeedDeliversOnlyToOwner(t *testing.T) {
	hub, srv := startHub(t)
	alice := dial(t, srv, "user=1")
	bob := dial(t, srv, "user=2")
	waitClients(t, hub, 2)

	hub.TradeSettled(context.Background(), receipt(1, "NFLX"))
	hub.TradeSettled(context.Background(), receipt(2, "AAPL"))

	env := readEnvelope(t, alice)
	assert.Equal(t, "trade", env.Type)
	assert.Equal(t, int64(1), env.Seq)
	assert.Equal(t, "NFLX", env.Receipt.Symbol)
	assert.False(t, env.Initial)

	env = readEnvelope(t, bob)
	assert.Equal(t, "AAPL", env.Receipt.Symbol)
	assert.Equal(t, int64(1), env.Seq)
}

func TestFeedReplaysMissed(t *testing.T) {
	hub, srv := startHub(t)
	ctx := context.Background()
	hub.TradeSettled(ctx, receipt(1, "A"))
	hub.TradeSettled(ctx, receipt(1, "B"))
	hub.TradeSettled(ctx, receipt(1, "C"))

	conn := dial(t, srv, "user=1&last_seq=1")
	first := readEnvelope(t, conn)
	second := readEnvelope(t, conn)
	assert.True(t, first.Initial)
	assert.Equal(t, []string{"B", "C"}, []string{first.Receipt.Symbol, second.Receipt.Symbol})
}

func TestFeedReplayAndLiveStayInOrder(t *testing.T) {
	hub, srv := startHub(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		hub.TradeSettled(ctx, receipt(1, "OLD"))
	}

	// Settle more while the client connects.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 5; i++ {
			hub.TradeSettled(ctx, receipt(1, "NEW"))
			time.Sleep(time.Millisecond)
		}
	}()
	conn := dial(t, srv, "user=1&last_seq=0")
	<-done

	for want := int64(1); want <= 10; want++ {
		env := readEnvelope(t, conn)
		require.Equal(t, want, env.Seq)
	}
}

func TestFeedClientRemovedOnClose(t *testing.T) {
	hub, srv := startHub(t)
	conn := dial(t, srv, "user=5")
	waitClients(t, hub, 1)

	conn.Close()
	waitClients(t, hub, 0)

	// Settling for a user with no clients must not block or panic.
	hub.TradeSettled(context.Background(), receipt(5, "X"))
}

func TestReplayBufferWraps(t *testing.T) {
	rb := newReplayBuffer(3)
	for i := int64(1); i <= 5; i++ {
		rb.push(i, []byte{byte('0' + i)})
	}
	got := rb.after(0)
	require.Len(t, got, 3)
	assert.Equal(t, []byte("3"), got[0])
	assert.Equal(t, []byte("5"), got[2])
	assert.Len(t, rb.after(4), 1)
	assert.Empty(t, newReplayBuffer(3).after(0))
}

package console

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/betbot/orderconsole/internal/domain"
	pushws "github.com/betbot/orderconsole/internal/infrastructure/websocket"
)

func TestWebSocketOpener_DeliversUpdates(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		var sub pushws.SubscribeMessage
		if err := conn.ReadJSON(&sub); err != nil {
			return
		}
		_ = conn.WriteJSON(map[string]string{"type": "subscribed", "order_id": sub.OrderID})
		_ = conn.WriteJSON(map[string]string{"type": "order_update", "order_id": sub.OrderID, "status": "FINISHED"})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	opener := NewWebSocketOpener(ctx, pushws.DefaultConfig("ws"+strings.TrimPrefix(srv.URL, "http")))

	updates := make(chan domain.OrderUpdate, 4)
	closed := make(chan error, 1)
	ch := opener.Open("order-1",
		func(u domain.OrderUpdate) { updates <- u },
		func(err error) { closed <- err },
	)

	select {
	case u := <-updates:
		assert.Equal(t, "order-1", u.OrderID)
		assert.Equal(t, domain.OrderStatusFinished, u.Status)
	case <-closed:
		t.Fatal("channel closed before delivering the update")
	case <-time.After(waitFor):
		t.Fatal("no update received")
	}
	assert.Equal(t, pushws.StateOpen, ch.State())

	ch.Close()
	err := <-closed
	require.NoError(t, err)
	assert.Equal(t, pushws.StateClosed, ch.State())
}

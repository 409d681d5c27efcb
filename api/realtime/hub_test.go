package realtime

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thejonthinator/frysen/internal/engine"
	"github.com/thejonthinator/frysen/internal/inventory"
	"github.com/thejonthinator/frysen/internal/localstore"
	"github.com/thejonthinator/frysen/pkg/logger"
)

func newHub(t *testing.T) (*engine.Engine, *Hub, string) {
	t.Helper()
	e, err := engine.New(engine.Params{Store: localstore.NewMemoryStore(), Logger: logger.Nop()})
	require.NoError(t, err)
	require.NoError(t, e.Initialize(context.Background()))

	hub := NewHub(e, logger.Nop())
	hub.Start()
	srv := httptest.NewServer(hub)
	t.Cleanup(func() {
		hub.Close()
		srv.Close()
		_ = e.Dispose(context.Background())
	})
	return e, hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

func TestHubSendsHelloWithState(t *testing.T) {
	e, _, url := newHub(t)
	_, err := e.AddItem(context.Background(), inventory.DefaultDrawerID, "Blåbär")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, url)

	var hello Message
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	assert.Equal(t, TypeHello, hello.Type)
	assert.Equal(t, e.Revision(), hello.Revision)
	require.NotNil(t, hello.State)
	assert.Equal(t, "Blåbär", hello.State.DefaultDrawer.Items[0].Name)
}

func TestHubRelaysChanges(t *testing.T) {
	e, hub, url := newHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, url)

	var hello Message
	require.NoError(t, wsjson.Read(ctx, conn, &hello))
	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)

	_, err := e.AddShoppingItem(ctx, "Smör")
	require.NoError(t, err)

	var change Message
	require.NoError(t, wsjson.Read(ctx, conn, &change))
	assert.Equal(t, TypeChange, change.Type)
	assert.Equal(t, engine.SourceLocal, change.Source)
	require.NotNil(t, change.State)
	require.Len(t, change.State.ShoppingList, 1)
	assert.Equal(t, "Smör", change.State.ShoppingList[0].Name)

	_, err = e.ToggleDateDisplay(ctx)
	require.NoError(t, err)
	require.NoError(t, wsjson.Read(ctx, conn, &change))
	assert.Equal(t, engine.SourceDisplay, change.Source)
	assert.Equal(t, engine.DisplayDuration, change.DisplayMode)
}

func TestHubCloseDisconnectsClients(t *testing.T) {
	_, hub, url := newHub(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := dial(t, ctx, url)

	var hello Message
	require.NoError(t, wsjson.Read(ctx, conn, &hello))

	hub.Close()
	_, _, err := conn.Read(ctx)
	require.Error(t, err)
	assert.Equal(t, 0, hub.ClientCount())
}

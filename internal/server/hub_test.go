package server

import (
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-deploy-wizard/internal/wizard"
)

func TestHub_InitialSnapshotTakenAfterRegistration(t *testing.T) {
	h := newHub(DefaultWSConfig(), log.New(io.Discard, "", 0))

	var registered atomic.Bool
	var current atomic.Uint64
	current.Store(3)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.serve(w, r, func() wizard.Snapshot {
			// Called with h.mu held.
			registered.Store(len(h.clients) == 1)
			return wizard.Snapshot{SessionID: "s", Version: current.Load()}
		})
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var first wizard.Snapshot
	require.NoError(t, conn.ReadJSON(&first))
	assert.True(t, registered.Load(), "client must be registered before the initial snapshot is taken")
	assert.Equal(t, uint64(3), first.Version)

	// Versions already covered by the initial snapshot are not resent.
	h.broadcast(wizard.Snapshot{SessionID: "s", Version: 2})
	h.broadcast(wizard.Snapshot{SessionID: "s", Version: 3})
	h.broadcast(wizard.Snapshot{SessionID: "s", Version: 4})

	var next wizard.Snapshot
	require.NoError(t, conn.ReadJSON(&next))
	assert.Equal(t, uint64(4), next.Version)
}

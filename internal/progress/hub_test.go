package progress

import (
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inventory-sweep-lab/internal/domain"
	"inventory-sweep-lab/internal/sweep"
)

func dial(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()

	srv := httptest.NewServer(hub)
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	require.Eventually(t, func() bool { return hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func TestHub_BroadcastsEvents(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	conn, cleanup := dial(t, hub)
	defer cleanup()

	hub.Publish(Event{Type: EventRunStarted, RunID: "run-1", Total: 81})

	var got Event
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, EventRunStarted, got.Type)
	assert.Equal(t, "run-1", got.RunID)
	assert.Equal(t, 81, got.Total)
}

func TestHub_RowObserver(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	conn, cleanup := dial(t, hub)
	defer cleanup()

	observe := RowObserver(hub, "run-1", domain.PhaseOutOfSample)
	observe(sweep.RowEvent{
		Index: 2,
		Total: 5,
		Row: &domain.SummaryRow{
			Params:            domain.ParameterSet{K: 1, HTh: 50, HSz: 20},
			MeanInvVol:        2,
			MeanControlledPnL: 3,
			TStat:             4.5,
			TStatDefined:      true,
		},
	})
	observe(sweep.RowEvent{
		Index:   3,
		Total:   5,
		Failure: &domain.TrialFailure{Params: domain.ParameterSet{K: 2}, Seed: 9, Reason: "diverged"},
	})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))

	var row Event
	require.NoError(t, conn.ReadJSON(&row))
	assert.Equal(t, EventRow, row.Type)
	assert.Equal(t, domain.PhaseOutOfSample, row.Phase)
	assert.Equal(t, 2, row.Index)
	require.NotNil(t, row.TStat)
	assert.Equal(t, 4.5, *row.TStat)
	require.NotNil(t, row.Params)
	assert.Equal(t, 50.0, row.Params.HTh)

	var failed Event
	require.NoError(t, conn.ReadJSON(&failed))
	assert.Equal(t, "diverged", failed.Failure)
	assert.Nil(t, failed.TStat)
}

func TestHub_ClientDisconnect(t *testing.T) {
	hub := NewHub(nil, nil)
	defer hub.Close()

	conn, cleanup := dial(t, hub)
	defer cleanup()

	conn.Close()
	assert.Eventually(t, func() bool { return hub.Clients() == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_CloseIsIdempotent(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Close()
	hub.Close()
	hub.Publish(Event{Type: EventRow})
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_RegisterAfterCloseIsRefused(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Close()

	assert.False(t, hub.register(&client{send: make(chan []byte, 1)}))
	assert.Equal(t, 0, hub.Clients())
}

func TestHub_CloseRacingRegisterLeavesNoClient(t *testing.T) {
	for i := 0; i < 50; i++ {
		hub := NewHub(nil, nil)
		clients := make([]*client, 20)
		accepted := make([]bool, len(clients))

		var wg sync.WaitGroup
		for j := range clients {
			clients[j] = &client{send: make(chan []byte, 1)}
			wg.Add(1)
			go func(j int) {
				defer wg.Done()
				accepted[j] = hub.register(clients[j])
			}(j)
		}
		hub.Close()
		wg.Wait()

		require.Equal(t, 0, hub.Clients())
		for j, c := range clients {
			if !accepted[j] {
				continue
			}
			select {
			case _, ok := <-c.send:
				assert.False(t, ok, "registered client %d left open", j)
			default:
				t.Fatalf("registered client %d left open after Close", j)
			}
		}
	}
}

func TestHub_ServeAfterCloseRejected(t *testing.T) {
	hub := NewHub(nil, nil)
	hub.Close()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, 503, resp.StatusCode)
	assert.Equal(t, 0, hub.Clients())
}

func TestRowObserver_NilPublisher(t *testing.T) {
	assert.Nil(t, RowObserver(nil, "run-1", domain.PhaseInSample))
}

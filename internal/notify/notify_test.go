package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	events []bracket.Event
}

func (r *recorder) Dispatch(_ context.Context, events ...bracket.Event) {
	r.events = append(r.events, events...)
}

func testEvent(tournamentID uuid.UUID) bracket.Event {
	matchID := uuid.New()
	return bracket.Event{
		Type:         bracket.EventMatchResultConfirmed,
		TournamentID: tournamentID,
		MatchID:      &matchID,
		ActorID:      uuid.New(),
		OccurredAt:   time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC),
	}
}

func TestLogDispatcher(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	ev := testEvent(uuid.New())
	NewLogDispatcher(logger).Dispatch(context.Background(), ev)

	out := buf.String()
	assert.Contains(t, out, `"msg":"bracket event"`)
	assert.Contains(t, out, string(bracket.EventMatchResultConfirmed))
	assert.Contains(t, out, ev.MatchID.String())
}

func TestMulti(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	m := Multi{a, Nop{}, b}

	m.Dispatch(context.Background())
	assert.Empty(t, a.events)

	ev := testEvent(uuid.New())
	m.Dispatch(context.Background(), ev, ev)
	assert.Len(t, a.events, 2)
	assert.Len(t, b.events, 2)
}

func TestHubBroadcastsToTournamentRoom(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	go hub.Run(ctx)

	tournamentID := uuid.New()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, tournamentID)
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.RoomSize(tournamentID) == 1 }, time.Second, 10*time.Millisecond)

	// events of other tournaments are not delivered
	hub.Dispatch(ctx, testEvent(uuid.New()))
	ev := testEvent(tournamentID)
	hub.Dispatch(ctx, ev)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, bracket.EventMatchResultConfirmed, msg.Type)
	assert.Equal(t, tournamentID, msg.RoomID)
	assert.Equal(t, *ev.MatchID, *msg.Payload.MatchID)

	conn.Close()
	assert.Eventually(t, func() bool { return hub.RoomSize(tournamentID) == 0 }, time.Second, 10*time.Millisecond)
}

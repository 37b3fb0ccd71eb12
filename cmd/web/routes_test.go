package main

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/AdamBeresnev/cue-bracket/internal/bracket"
	"github.com/AdamBeresnev/cue-bracket/internal/db"
	"github.com/AdamBeresnev/cue-bracket/internal/metrics"
	"github.com/AdamBeresnev/cue-bracket/internal/notify"
	"github.com/AdamBeresnev/cue-bracket/internal/service"
	"github.com/AdamBeresnev/cue-bracket/internal/store"
	users "github.com/AdamBeresnev/cue-bracket/internal/user"
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	db     *sqlx.DB
	users  *store.UserStore
	hub    *notify.Hub
	cancel context.CancelFunc
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	return newTestServerWith(t, true)
}

func newTestServerWith(t *testing.T, allowGuestAdmin bool) *testServer {
	t.Helper()

	database, err := sqlx.Connect("sqlite3", "file::memory:")
	require.NoError(t, err)
	database.SetMaxOpenConns(1)
	_, err = database.Exec("PRAGMA foreign_keys = ON;")
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(database.DB, "../../migrations"))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx, cancel := context.WithCancel(context.Background())
	hub := notify.NewHub(logger)
	go hub.Run(ctx)

	sessionManager := scs.New()
	sessionManager.Store = sqlite3store.NewWithCleanupInterval(database.DB, 0)

	deps := service.Deps{
		Tournaments: store.NewTournamentStore(database),
		Matches:     store.NewMatchStore(database),
		Users:       store.NewUserStore(database),
		Dispatcher:  hub,
		Metrics:     metrics.New(prometheus.NewRegistry()),
		Clock:       bracket.NewFixedClock(time.Date(2026, 4, 3, 18, 0, 0, 0, time.UTC)),
		Logger:      logger,
	}
	brackets := service.NewDefaultBracketService(deps)
	srv := &server{
		sessions:  sessionManager,
		userStore: deps.Users,
		tournaments: service.NewTournamentService(database, deps, brackets, service.TournamentDefaults{
			RaceTo:            3,
			ConfirmationHours: 24,
			MatchExpiryHours:  72,
		}),
		matches: service.NewMatchService(database, deps, brackets),
		users:   service.NewUserService(database, deps),
		hub:     hub,

		allowGuestAdmin: allowGuestAdmin,
	}

	ts := &testServer{Server: httptest.NewServer(newRouter(srv)), db: database, users: deps.Users, hub: hub, cancel: cancel}
	t.Cleanup(func() {
		ts.Close()
		cancel()
		database.Close()
	})
	return ts
}

// client returns a client with its own session that does not follow
// redirects.
func (ts *testServer) client(t *testing.T) *http.Client {
	t.Helper()
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func (ts *testServer) post(t *testing.T, c *http.Client, path string, form url.Values) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (ts *testServer) get(t *testing.T, c *http.Client, path string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	require.NoError(t, err)
	req.Header.Set("Accept", "application/json")
	resp, err := c.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func (ts *testServer) player(t *testing.T, name string, rating int) (*users.User, *http.Client) {
	t.Helper()
	c := ts.client(t)
	resp := ts.post(t, c, "/auth/player", url.Values{"email": {name + "@example.com"}, "username": {name}})
	require.Equal(t, http.StatusFound, resp.StatusCode)

	u, err := ts.users.GetUserByEmail(context.Background(), name+"@example.com")
	require.NoError(t, err)
	require.NoError(t, ts.users.UpdateUserRating(context.Background(), u.ID, rating))
	return u, c
}

func TestRequireAuth(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/", nil)
	require.NoError(t, err)
	resp, err := c.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))

	resp = ts.get(t, c, "/api/tournaments/"+uuid.NewString()+"/bracket")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestGuestAdminLogin(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		ts := newTestServerWith(t, false)
		c := ts.client(t)

		resp := ts.post(t, c, "/auth/guest", nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)

		resp = ts.get(t, c, "/api/tournaments/"+uuid.NewString()+"/bracket")
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "no session was created")

		resp = ts.get(t, c, "/login")
		require.Equal(t, http.StatusOK, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.NotContains(t, string(body), "/auth/guest")
		assert.Contains(t, string(body), "/auth/player")
	})

	t.Run("enabled", func(t *testing.T) {
		ts := newTestServerWith(t, true)
		c := ts.client(t)

		resp := ts.post(t, c, "/auth/guest", nil)
		require.Equal(t, http.StatusFound, resp.StatusCode)

		resp = ts.get(t, c, "/login")
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "/auth/guest")
	})
}

func TestTournamentFlow(t *testing.T) {
	ts := newTestServer(t)
	organizer := ts.client(t)
	resp := ts.post(t, organizer, "/auth/guest", nil)
	require.Equal(t, http.StatusFound, resp.StatusCode)

	resp = ts.post(t, organizer, "/tournaments", url.Values{"name": {"Thursday 10-ball"}, "race_to": {"2"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	tournament := decode[bracket.Tournament](t, resp)
	assert.Equal(t, 2, tournament.RaceTo)
	assert.Equal(t, "/tournaments/"+tournament.ID.String(), resp.Header.Get("HX-Redirect"))

	base := "/tournaments/" + tournament.ID.String()
	require.Equal(t, http.StatusOK, ts.post(t, organizer, base+"/open", nil).StatusCode)

	alice, aliceClient := ts.player(t, "alice", 1900)
	bob, bobClient := ts.player(t, "bob", 1600)
	require.Equal(t, http.StatusCreated, ts.post(t, aliceClient, base+"/register", nil).StatusCode)
	require.Equal(t, http.StatusCreated, ts.post(t, organizer, base+"/register", url.Values{"player_id": {bob.ID.String()}}).StatusCode)

	resp = ts.post(t, bobClient, base+"/start", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp = ts.post(t, organizer, base+"/start", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	result := decode[bracket.BracketResult](t, resp)
	assert.Equal(t, 2, result.ParticipantCount)

	resp = ts.post(t, organizer, base+"/start", nil)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp = ts.get(t, organizer, "/api/tournaments/"+tournament.ID.String()+"/bracket")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	data := decode[service.TournamentData](t, resp)
	require.Len(t, data.Matches, 1)
	final := data.Matches[0]
	matchPath := "/matches/" + final.ID.String()

	// Listen for bracket events the way the page does
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/tournaments/" + tournament.ID.String()
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return ts.hub.RoomSize(tournament.ID) == 1 }, 2*time.Second, 10*time.Millisecond)

	resp = ts.post(t, organizer, matchPath+"/submit", url.Values{"my_score": {"2"}, "opponent_score": {"0"}})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "the organizer is not playing")
	resp = ts.post(t, aliceClient, matchPath+"/submit", url.Values{"my_score": {"two"}, "opponent_score": {"0"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.post(t, aliceClient, matchPath+"/submit", url.Values{"my_score": {"2"}, "opponent_score": {"1"}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, bracket.MatchPendingConfirmation, decode[bracket.Match](t, resp).Status)

	resp = ts.post(t, aliceClient, matchPath+"/confirm", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode, "submitters cannot confirm")

	resp = ts.post(t, bobClient, matchPath+"/dispute", url.Values{"reason": {"short"}})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = ts.post(t, bobClient, matchPath+"/confirm", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	confirmed := decode[bracket.Match](t, resp)
	assert.Equal(t, bracket.MatchCompleted, confirmed.Status)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg notify.Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, bracket.EventMatchResultSubmitted, msg.Type)
	assert.Equal(t, alice.ID, *msg.Payload.Player1UserID)

	resp = ts.get(t, organizer, "/api/tournaments/"+tournament.ID.String()+"/bracket")
	data = decode[service.TournamentData](t, resp)
	assert.Equal(t, bracket.TournamentCompleted, data.Tournament.Status)

	resp = ts.post(t, bobClient, matchPath+"/advance", nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp = ts.post(t, organizer, matchPath+"/advance", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[map[string]bool](t, resp)["changed"])
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t)
	c := ts.client(t)
	require.Equal(t, http.StatusFound, ts.post(t, c, "/auth/guest", nil).StatusCode)

	assert.Equal(t, http.StatusNotFound, ts.get(t, c, "/api/tournaments/"+uuid.NewString()+"/bracket").StatusCode)
	assert.Equal(t, http.StatusNotFound, ts.get(t, c, "/matches/"+uuid.NewString()).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.get(t, c, "/matches/not-a-uuid").StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.post(t, c, "/tournaments", url.Values{"name": {"x"}, "winners_count": {"7"}}).StatusCode)
	assert.Equal(t, http.StatusBadRequest, ts.post(t, c, "/tournaments", url.Values{"name": {"x"}, "race_to": {"abc"}}).StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t)
	resp := ts.get(t, ts.client(t), "/metrics")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

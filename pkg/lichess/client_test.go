package lichess

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"laptudirm.com/x/overseer/pkg/roster"
)

// fakeServer imitates the three endpoints of the game server used by the
// client and records what it was sent.
type fakeServer struct {
	*httptest.Server

	mu        sync.Mutex
	challenge http.Header
	form      map[string]string
	opponent  string
	chats     []map[string]string
	chatAuth  string
	chatGame  string

	challengeStatus int
	challengeBody   string
	chatStatus      int
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	server := &fakeServer{
		challengeStatus: http.StatusOK,
		challengeBody:   `{"challenge":{"id":"AbCd1234","url":"https://lichess.org/AbCd1234","status":"created"}}`,
		chatStatus:      http.StatusOK,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/account", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer bot_b" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"slot-b-bot","username":"Slot-B-Bot","title":"BOT"}`))
	})

	mux.HandleFunc("POST /api/challenge/{username}", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		server.mu.Lock()
		server.challenge = r.Header.Clone()
		server.opponent = r.PathValue("username")
		server.form = map[string]string{}
		for key := range r.PostForm {
			server.form[key] = r.PostForm.Get(key)
		}
		status, body := server.challengeStatus, server.challengeBody
		server.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	})

	mux.HandleFunc("POST /api/bot/game/{gameId}/chat", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())

		server.mu.Lock()
		server.chatAuth = r.Header.Get("Authorization")
		server.chatGame = r.PathValue("gameId")
		server.chats = append(server.chats, map[string]string{
			"room": r.PostForm.Get("room"),
			"text": r.PostForm.Get("text"),
		})
		status := server.chatStatus
		server.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})

	server.Server = httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newClient(t *testing.T, server *fakeServer) (*Client, *[]string) {
	t.Helper()

	client := NewClient(server.URL,
		roster.Credentials{"bot_a", "bot_b"},
		roster.Credentials{"challenge_a", "challenge_b"},
	)
	t.Cleanup(func() { _ = client.Close() })

	var opened []string
	client.Open = func(url string) error {
		opened = append(opened, url)
		return nil
	}

	return client, &opened
}

func TestAnnouncement(t *testing.T) {
	assert.Equal(t, "White: Alpha, Black: Beta", Announcement("Alpha", "Beta"))
}

func TestCreateMatch(t *testing.T) {
	server := newFakeServer(t)
	client, opened := newClient(t, server)

	game, err := client.CreateMatch(context.Background(), "Alpha", "Beta")
	require.NoError(t, err)

	assert.Equal(t, Game{ID: "AbCd1234", URL: "https://lichess.org/AbCd1234", Announced: true}, game)
	assert.Equal(t, []string{"https://lichess.org/AbCd1234"}, *opened)

	server.mu.Lock()
	defer server.mu.Unlock()

	assert.Equal(t, "Slot-B-Bot", server.opponent)
	assert.Equal(t, "Bearer challenge_a", server.challenge.Get("Authorization"))
	assert.Equal(t, map[string]string{
		"clock.limit":     "180",
		"clock.increment": "0",
		"color":           "white",
		"acceptByToken":   "challenge_b",
	}, server.form)

	assert.Equal(t, "Bearer bot_a", server.chatAuth)
	assert.Equal(t, "AbCd1234", server.chatGame)
	assert.Equal(t, []map[string]string{{"room": "spectator", "text": "White: Alpha, Black: Beta"}}, server.chats)
}

func TestCreateMatchAcceptedGame(t *testing.T) {
	server := newFakeServer(t)
	server.challengeBody = `{"game":{"id":"GaMe0001"}}`

	client, opened := newClient(t, server)
	client.Opponent = "configured-bot"

	game, err := client.CreateMatch(context.Background(), "Alpha", "Gamma")
	require.NoError(t, err)

	assert.Equal(t, "GaMe0001", game.ID)
	assert.Equal(t, server.URL+"/GaMe0001", game.URL)
	assert.Equal(t, []string{server.URL + "/GaMe0001"}, *opened)

	server.mu.Lock()
	defer server.mu.Unlock()
	assert.Equal(t, "configured-bot", server.opponent)
}

func TestCreateMatchFailure(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{name: "server error", status: http.StatusInternalServerError, body: `{"error":"oops"}`},
		{name: "rejected", status: http.StatusBadRequest, body: `{"error":"bad color"}`},
		{name: "malformed body", status: http.StatusOK, body: `{"challenge":`},
		{name: "no game id", status: http.StatusOK, body: `{"challenge":{}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newFakeServer(t)
			server.challengeStatus = tt.status
			server.challengeBody = tt.body

			client, opened := newClient(t, server)

			_, err := client.CreateMatch(context.Background(), "Alpha", "Beta")

			var creation *ChallengeCreationError
			require.ErrorAs(t, err, &creation)
			assert.Empty(t, *opened)

			server.mu.Lock()
			defer server.mu.Unlock()
			assert.Empty(t, server.chats, "announcement posted for a failed challenge")
		})
	}
}

func TestCreateMatchUnreachable(t *testing.T) {
	server := newFakeServer(t)
	client, _ := newClient(t, server)
	server.Close()

	_, err := client.CreateMatch(context.Background(), "Alpha", "Beta")

	var creation *ChallengeCreationError
	require.ErrorAs(t, err, &creation)
	assert.Equal(t, "account lookup", creation.Op)
}

func TestCreateMatchAnnouncementFailure(t *testing.T) {
	server := newFakeServer(t)
	server.chatStatus = http.StatusForbidden

	client, _ := newClient(t, server)
	client.Open = func(string) error { return errors.New("no browser") }

	game, err := client.CreateMatch(context.Background(), "Alpha", "Beta")
	require.NoError(t, err, "a failed announcement must not fail the round")

	assert.Equal(t, "AbCd1234", game.ID)
	assert.False(t, game.Announced)

	var failure *ChatAnnouncementFailure
	require.ErrorAs(t, client.Announce(context.Background(), game.ID, "hello"), &failure)
	assert.Equal(t, "AbCd1234", failure.GameID)
}

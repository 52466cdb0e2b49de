// Copyright © 2026 Rak Laptudirm <rak@laptudirm.com>
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package lichess creates and announces the games of a tournament round on
// a lichess compatible game server.
package lichess

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/pkg/browser"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"resty.dev/v3"

	"laptudirm.com/x/overseer/pkg/roster"
)

// Client talks to the game server on behalf of the two fixed identities.
// Slot A's identity always challenges, and plays white; slot B's identity
// always accepts.
type Client struct {
	http *resty.Client

	Server    string
	Bot       roster.Credentials
	Challenge roster.Credentials

	// Time control of the created games, in seconds.
	ClockLimit     int
	ClockIncrement int

	// Opponent is the username of slot B's bot account. It is looked up
	// with slot B's bot token on first use if left empty.
	Opponent string

	// Open shows the spectator URL of a new game to the operator.
	Open func(url string) error
}

// NewClient creates a client for the given server with the default time
// control of 3+0.
func NewClient(server string, bot, challenge roster.Credentials) *Client {
	server = strings.TrimSuffix(server, "/")

	return &Client{
		http: resty.New().
			SetBaseURL(server).
			SetRetryCount(0).
			SetLogger(logrus.StandardLogger()),

		Server:    server,
		Bot:       bot,
		Challenge: challenge,

		ClockLimit:     180,
		ClockIncrement: 0,

		Open: browser.OpenURL,
	}
}

// Close releases the client's connections.
func (client *Client) Close() error {
	return client.http.Close()
}

// Game is a game created by CreateMatch.
type Game struct {
	ID  string
	URL string

	// Announced is false if the announcement could not be posted.
	Announced bool
}

// Announcement is the chat message which names the teams playing a game.
func Announcement(white, black string) string {
	return fmt.Sprintf("White: %s, Black: %s", white, black)
}

// ChallengeCreationError is returned when the game of a round could not be
// created. The round is aborted and can be attempted again.
type ChallengeCreationError struct {
	Op  string
	Err error
}

func (err *ChallengeCreationError) Error() string {
	return fmt.Sprintf("challenge creation failed: %s: %v", err.Op, err.Err)
}

func (err *ChallengeCreationError) Unwrap() error {
	return err.Err
}

// ChatAnnouncementFailure is a failure to post the announcement of a game.
// The game is playable regardless, so it is only ever logged.
type ChatAnnouncementFailure struct {
	GameID string
	Err    error
}

func (err *ChatAnnouncementFailure) Error() string {
	return fmt.Sprintf("announcement in game %s failed: %v", err.GameID, err.Err)
}

func (err *ChatAnnouncementFailure) Unwrap() error {
	return err.Err
}

type gameRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// The server answers with the challenge, or with the game itself when it
// was accepted by token right away.
type challengeResponse struct {
	gameRef
	Challenge *gameRef `json:"challenge"`
	Game      *gameRef `json:"game"`
}

func (res *challengeResponse) ref() gameRef {
	for _, ref := range []*gameRef{res.Game, res.Challenge, &res.gameRef} {
		if ref != nil && ref.ID != "" {
			return *ref
		}
	}

	return gameRef{}
}

// CreateMatch creates a game between the two fixed identities, opens it for
// spectating, and announces the given team labels in its spectator chat.
// Only the creation of the game can fail; a failed announcement is logged
// and reported through Game.Announced.
func (client *Client) CreateMatch(ctx context.Context, white, black string) (Game, error) {
	opponent, err := client.opponent(ctx)
	if err != nil {
		return Game{}, &ChallengeCreationError{Op: "account lookup", Err: err}
	}

	var response challengeResponse
	res, err := client.http.R().
		SetContext(ctx).
		SetAuthToken(client.Challenge[0]).
		SetPathParam("username", opponent).
		SetFormData(map[string]string{
			"clock.limit":     strconv.Itoa(client.ClockLimit),
			"clock.increment": strconv.Itoa(client.ClockIncrement),
			"color":           "white",
			"acceptByToken":   client.Challenge[1],
		}).
		SetResult(&response).
		Post("/api/challenge/{username}")
	if err != nil {
		return Game{}, &ChallengeCreationError{Op: "challenge", Err: errors.Wrapf(err, "challenging %s", opponent)}
	}

	if res.IsError() {
		return Game{}, &ChallengeCreationError{Op: "challenge", Err: errors.Errorf("%s: %s", res.Status(), strings.TrimSpace(res.String()))}
	}

	ref := response.ref()
	if ref.ID == "" {
		return Game{}, &ChallengeCreationError{Op: "challenge", Err: errors.New("response has no game id")}
	}

	game := Game{ID: ref.ID, URL: ref.URL}
	if game.URL == "" {
		game.URL = client.Server + "/" + game.ID
	}

	logrus.WithFields(logrus.Fields{
		"game":  game.ID,
		"white": white,
		"black": black,
	}).Info("Created game " + color.GreenString(game.URL))

	if client.Open != nil {
		if err := client.Open(game.URL); err != nil {
			logrus.WithField("url", game.URL).Warn("Unable to open the game: ", err)
		}
	}

	if err := client.Announce(ctx, game.ID, Announcement(white, black)); err != nil {
		logrus.Warn(err)
	} else {
		game.Announced = true
	}

	return game, nil
}

// Announce posts text into the spectator chat of the given game as slot
// A's bot.
func (client *Client) Announce(ctx context.Context, gameID, text string) error {
	res, err := client.http.R().
		SetContext(ctx).
		SetAuthToken(client.Bot[0]).
		SetPathParam("gameId", gameID).
		SetFormData(map[string]string{
			"room": "spectator",
			"text": text,
		}).
		Post("/api/bot/game/{gameId}/chat")
	if err != nil {
		return &ChatAnnouncementFailure{GameID: gameID, Err: err}
	}

	if res.IsError() {
		return &ChatAnnouncementFailure{GameID: gameID, Err: errors.New(res.Status())}
	}

	return nil
}

// opponent resolves the username of slot B's bot account.
func (client *Client) opponent(ctx context.Context) (string, error) {
	if client.Opponent != "" {
		return client.Opponent, nil
	}

	var account struct {
		Username string `json:"username"`
	}

	res, err := client.http.R().
		SetContext(ctx).
		SetAuthToken(client.Bot[1]).
		SetResult(&account).
		Get("/api/account")
	if err != nil {
		return "", errors.Wrap(err, "fetching account")
	}

	if res.IsError() || account.Username == "" {
		return "", errors.Errorf("fetching account: %s", res.Status())
	}

	logrus.WithField("username", account.Username).Debug("Resolved opponent account")

	client.Opponent = account.Username
	return client.Opponent, nil
}

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

// Package roster loads the line-delimited team and credential lists which
// an overseer session is configured with.
package roster

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// Team is a single competitor of the tournament.
type Team struct {
	Index int    // Position in the roster, used in prompts
	Name  string // Display name, also the name of the engine artifact
}

// Credentials are the API tokens of the two fixed server identities, slot
// A's identity at index 0 and slot B's at index 1.
type Credentials [2]string

// Roster is the immutable configuration shared by every round.
type Roster struct {
	Teams []Team

	Bot       Credentials // bot:play tokens, used by the runners and for chat
	Challenge Credentials // challenge tokens, used to create and accept games
}

// Team returns the team with the given index, if it exists.
func (roster *Roster) Team(index int) (Team, bool) {
	if index < 0 || index >= len(roster.Teams) {
		return Team{}, false
	}

	return roster.Teams[index], true
}

// MissingResourceError is returned when a roster file is absent or
// unreadable. Nothing can be done without a roster, so it is fatal.
type MissingResourceError struct {
	Path string
	Err  error
}

func (err *MissingResourceError) Error() string {
	return fmt.Sprintf("missing resource %s: %v", err.Path, err.Err)
}

func (err *MissingResourceError) Unwrap() error {
	return err.Err
}

// Load reads the team list and both credential pairs.
func Load(teams, botTokens, challengeTokens string) (*Roster, error) {
	var roster Roster
	var err error

	if roster.Teams, err = LoadTeams(teams); err != nil {
		return nil, err
	}

	if roster.Bot, err = LoadCredentials(botTokens); err != nil {
		return nil, err
	}

	if roster.Challenge, err = LoadCredentials(challengeTokens); err != nil {
		return nil, err
	}

	logrus.WithField("teams", len(roster.Teams)).Debug("Loaded roster")
	return &roster, nil
}

// LoadTeams reads one team name per line. Blank lines are skipped and do
// not take up an index.
func LoadTeams(path string) ([]Team, error) {
	lines, err := readLines(path)
	if err != nil {
		return nil, err
	}

	teams := make([]Team, 0, len(lines))
	for _, name := range lines {
		teams = append(teams, Team{
			Index: len(teams),
			Name:  name,
		})
	}

	return teams, nil
}

// LoadCredentials reads the first two tokens of the given file.
func LoadCredentials(path string) (Credentials, error) {
	var credentials Credentials

	lines, err := readLines(path)
	if err != nil {
		return credentials, err
	}

	if len(lines) < len(credentials) {
		return credentials, &MissingResourceError{
			Path: path,
			Err:  fmt.Errorf("expected %d tokens, found %d", len(credentials), len(lines)),
		}
	}

	copy(credentials[:], lines)
	return credentials, nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, &MissingResourceError{Path: path, Err: err}
	}
	defer file.Close()

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, &MissingResourceError{Path: path, Err: err}
	}

	return lines, nil
}

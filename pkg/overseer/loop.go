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

// Package overseer implements the operator driven loop which plays the
// rounds of a tournament one after the other.
package overseer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/overseer/pkg/lichess"
	"laptudirm.com/x/overseer/pkg/roster"
	"laptudirm.com/x/overseer/pkg/runner"
	"laptudirm.com/x/overseer/pkg/stage"
)

// Stager places the engines of two teams into the runners' slots.
type Stager interface {
	Stage(white, black int) error
}

// Challenger creates the game of a round.
type Challenger interface {
	CreateMatch(ctx context.Context, white, black string) (lichess.Game, error)
}

// Supervisor runs the runner processes until the round is interrupted.
type Supervisor interface {
	RunBoth(ctx context.Context) ([]runner.Outcome, error)
}

// ErrQuit is returned by the prompts when the operator asks to leave.
var ErrQuit = errors.New("overseer: quit")

// Loop plays rounds until the operator quits or the input ends. A round
// is only started once the previous round's runners are gone.
type Loop struct {
	Roster *roster.Roster

	Stager     Stager
	Challenger Challenger
	Supervisor Supervisor

	In  io.Reader
	Out io.Writer

	scanner *bufio.Scanner
}

// Run is the loop's only state: show the roster, ask for a pairing, and
// play it. Failed rounds are reported and the loop carries on.
func (loop *Loop) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		loop.Display()

		white, black, err := loop.Pairing()
		if errors.Is(err, ErrQuit) {
			return nil
		} else if err != nil {
			return err
		}

		if err := loop.Round(ctx, white, black); err != nil {
			report(err)
		}
	}
}

// Round stages, creates and plays a single round. It returns once the
// round's runners have been terminated.
func (loop *Loop) Round(ctx context.Context, white, black int) error {
	whiteTeam, okWhite := loop.Roster.Team(white)
	blackTeam, okBlack := loop.Roster.Team(black)
	if !okWhite || !okBlack {
		return fmt.Errorf("pairing %d vs %d is not in the roster", white, black)
	}

	if err := loop.Stager.Stage(white, black); err != nil {
		return err
	}

	logger := logrus.WithFields(logrus.Fields{
		"white": whiteTeam.Name,
		"black": blackTeam.Name,
	})
	logger.Debug("Engines staged")

	game, err := loop.Challenger.CreateMatch(ctx, whiteTeam.Name, blackTeam.Name)
	if err != nil {
		return err
	}

	logger = logger.WithField("game", game.ID)
	logger.Info(color.YellowString("Starting") + " round")

	outcomes, err := loop.Supervisor.RunBoth(ctx)
	for _, outcome := range outcomes {
		if outcome.Exited {
			logger.WithFields(logrus.Fields{
				"runner": outcome.Runner,
				"status": outcome.State,
			}).Warn("Runner had exited on its own")
		}
	}

	if err != nil {
		return err
	}

	logger.Info(color.GreenString("Finished") + " round")
	return nil
}

// Display prints the roster with the indices the prompts expect.
func (loop *Loop) Display() {
	fmt.Fprintln(loop.Out)
	color.New(color.FgGreen).Fprintln(loop.Out, "Teams:")
	for _, team := range loop.Roster.Teams {
		fmt.Fprintf(loop.Out, "  %s %s\n", color.BlueString("%2d.", team.Index), team.Name)
	}
	fmt.Fprintln(loop.Out)
}

// Pairing asks for the white and the black team and waits for the
// operator's go-ahead, which gives them time to coordinate with the teams
// before the runners come online.
func (loop *Loop) Pairing() (white, black int, err error) {
	if white, err = loop.index("White"); err != nil {
		return
	}

	if black, err = loop.index("Black"); err != nil {
		return
	}

	prompt := fmt.Sprintf("%s vs %s, press enter to start (q to quit): ",
		color.New(color.Bold).Sprint(loop.Roster.Teams[white].Name),
		color.New(color.Bold).Sprint(loop.Roster.Teams[black].Name),
	)

	_, err = loop.ask(prompt)
	return
}

func (loop *Loop) index(side string) (int, error) {
	for {
		answer, err := loop.ask(side + " team index: ")
		if err != nil {
			return 0, err
		}

		index, err := strconv.Atoi(answer)
		if err == nil {
			if _, ok := loop.Roster.Team(index); ok {
				return index, nil
			}
		}

		fmt.Fprintf(loop.Out, "%s is not a team index\n", color.RedString("%q", answer))
	}
}

// ask prints prompt and reads an answer. End of input and "q" both end
// the loop.
func (loop *Loop) ask(prompt string) (string, error) {
	if loop.scanner == nil {
		loop.scanner = bufio.NewScanner(loop.In)
	}

	fmt.Fprint(loop.Out, prompt)

	if !loop.scanner.Scan() {
		fmt.Fprintln(loop.Out)
		if err := loop.scanner.Err(); err != nil {
			return "", err
		}

		return "", ErrQuit
	}

	answer := strings.TrimSpace(loop.scanner.Text())
	if strings.EqualFold(answer, "q") {
		return "", ErrQuit
	}

	return answer, nil
}

// report logs a failed round. All of them can be retried by the operator.
func report(err error) {
	var (
		notFound *stage.EngineNotFoundError
		creation *lichess.ChallengeCreationError
		start    *runner.StartError
	)

	switch {
	case errors.As(err, &notFound):
		logrus.Error(err, "; pick another pairing")
	case errors.As(err, &creation):
		logrus.Error(err, "; the round was aborted")
	case errors.As(err, &start):
		logrus.Error(err, "; check the runner configuration")
	default:
		logrus.Error(err)
	}
}

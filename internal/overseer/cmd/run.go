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

package cmd

import (
	"context"
	"os"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"laptudirm.com/x/overseer/pkg/lichess"
	"laptudirm.com/x/overseer/pkg/overseer"
	"laptudirm.com/x/overseer/pkg/runner"
)

// overseer run
func Run() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Supervise the rounds of a tournament",
		Args:  cobra.NoArgs,
		Long: heredoc.Doc(`run shows the roster and asks for the indices of the
			white and the black team of the next round. Once confirmed,
			their engines are staged into the two runner slots, the game
			is created on the server and announced in its spectator chat,
			and both runners are started.

			Interrupt (Ctrl+C) ends the round: both runners are killed and
			the roster is shown again for the next one. Enter q at any
			prompt to leave.

			The two server accounts are the same for every round, the
			teams only decide which engines they play with.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			cfg := s.config

			// The runners are configured once; every round only replaces
			// the engines in their slots.
			var runners []runner.Runner
			for i, slot := range s.stager.Slots {
				if err := runner.WriteConfig(slot.Dir, cfg.RunnerTemplate, runner.Settings{
					Token:          s.roster.Bot[i],
					Server:         cfg.Server,
					EngineDir:      slot.EngineDir(),
					EngineName:     slot.Engine,
					EngineProtocol: cfg.EngineProtocol,
				}); err != nil {
					return err
				}

				runners = append(runners, runner.Runner{
					Name: slot.Name,
					Cmd:  cfg.RunnerCmd,
					Args: cfg.RunnerArgs,
					Dir:  slot.Dir,
				})
			}

			client := lichess.NewClient(cfg.Server, s.roster.Bot, s.roster.Challenge)
			defer client.Close()

			client.ClockLimit = cfg.ClockLimit
			client.ClockIncrement = cfg.ClockIncrement
			client.Opponent = cfg.Opponent
			if cfg.NoBrowser {
				client.Open = nil
			}

			loop := overseer.Loop{
				Roster:     s.roster,
				Stager:     s.stager,
				Challenger: spinning{client},
				Supervisor: &runner.Supervisor{Runners: runners},

				In:  cmd.InOrStdin(),
				Out: cmd.OutOrStdout(),
			}

			return loop.Run(cmd.Context())
		},
	}
}

// spinning shows a spinner while a game is being created.
type spinning struct {
	overseer.Challenger
}

func (s spinning) CreateMatch(ctx context.Context, white, black string) (lichess.Game, error) {
	spin := spinner.New(spinner.CharSets[SPIN], 100*time.Millisecond, spinner.WithWriter(os.Stderr))
	spin.Suffix = " Creating game..."

	spin.Start()
	game, err := s.Challenger.CreateMatch(ctx, white, black)
	spin.Stop()

	return game, err
}

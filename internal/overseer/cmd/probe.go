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
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"laptudirm.com/x/overseer/pkg/engine"
	"laptudirm.com/x/overseer/pkg/roster"
	"laptudirm.com/x/overseer/pkg/stage"
)

// overseer probe
func Probe() *cobra.Command {
	return &cobra.Command{
		Use:   "probe { team-index team-name }",
		Short: "Check that a team's engine answers as white and black",
		Args:  cobra.ExactArgs(1),
		Long: heredoc.Doc(`probe starts the given team's engine artifact on its own
			and plays the opening handshake of a game with it, once as
			white and once as black, without involving the runner or the
			game server.

			As white the engine is expected to answer the colour with its
			first move, and as black to answer 1. e2e4. Both answers must
			be moves in UCI notation.`),

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			team, found := findTeam(s.roster, args[0])
			if !found {
				return fmt.Errorf("team %s not found in the roster", args[0])
			}

			path := s.stager.Artifact(team)
			if _, err := os.Stat(path); err != nil {
				return &stage.EngineNotFoundError{Team: team.Name, Path: path}
			}

			out := cmd.OutOrStdout()

			logrus.WithField("engine", path).Debug("Probing engine")
			fmt.Fprintf(out, "%s %s\n\n", color.HiGreenString("Probing Engine:"), team.Name)

			spin := spinner.New(spinner.CharSets[SPIN], 100*time.Millisecond)
			spin.Start()
			white, black, err := engine.Probe(team.Name, path, s.config.ProbeTimeout)
			spin.Stop()

			if err != nil {
				return fmt.Errorf("engine %s failed the probe: %w", color.RedString(team.Name), err)
			}

			fmt.Fprintf(out, "as white: %s\n", color.YellowString(white))
			fmt.Fprintf(out, "as black: %s\n", color.YellowString(black))
			fmt.Fprintf(out, "\nEngine %s is ready.\n", color.HiGreenString(team.Name))
			return nil
		},
	}
}

// findTeam looks a team up by its index, and failing that by its name.
func findTeam(r *roster.Roster, arg string) (roster.Team, bool) {
	if index, err := strconv.Atoi(arg); err == nil {
		return r.Team(index)
	}

	for _, team := range r.Teams {
		if team.Name == arg {
			return team, true
		}
	}

	return roster.Team{}, false
}

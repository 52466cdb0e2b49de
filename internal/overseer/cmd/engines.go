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

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"laptudirm.com/x/overseer/internal/util"
)

func Engines() *cobra.Command {
	return &cobra.Command{
		Use:   "engines",
		Short: "Lists the teams and the engine artifacts found for them",
		Args:  cobra.ExactArgs(0),

		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSession(cmd)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			named := map[string]bool{}

			fmt.Fprintln(out, color.GreenString("Teams")+":")
			fmt.Fprintln(out)
			for _, team := range s.stager.Teams {
				named[team.Name] = true

				status := color.GreenString("ready")
				if info, err := os.Stat(s.stager.Artifact(team)); err != nil || info.IsDir() {
					status = color.RedString("missing engine")
				}

				fmt.Fprintf(out, "%2d. %-20s %s\n", team.Index, team.Name, status)
			}

			entries, err := os.ReadDir(s.config.EnginesDir)
			if err != nil {
				return err
			}

			var unused []string
			for _, entry := range entries {
				if !entry.IsDir() && !named[entry.Name()] {
					unused = append(unused, entry.Name())
				}
			}

			if len(unused) == 0 {
				return nil
			}

			util.AlphanumSort(unused)

			fmt.Fprintln(out)
			fmt.Fprintln(out, color.YellowString("Engines without a team")+":")
			fmt.Fprintln(out)
			for _, name := range unused {
				fmt.Fprintf(out, "- %s\n", color.BlueString(name))
			}

			return nil
		},
	}
}

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

	"github.com/spf13/cobra"

	"laptudirm.com/x/overseer/pkg/config"
	"laptudirm.com/x/overseer/pkg/roster"
	"laptudirm.com/x/overseer/pkg/stage"
)

// session is the read-only state every command starts from.
type session struct {
	config *config.Config
	roster *roster.Roster
	stager *stage.Stager
}

func loadSession(cmd *cobra.Command) (*session, error) {
	envFile, _ := cmd.Flags().GetString("env")
	dir, _ := cmd.Flags().GetString("dir")

	cfg, err := config.Load(envFile, dir)
	if err != nil {
		return nil, err
	}

	if len(cfg.SlotDirs) != 2 {
		return nil, fmt.Errorf("expected 2 slot directories, got %d", len(cfg.SlotDirs))
	}

	r, err := roster.Load(cfg.TeamsFile, cfg.BotTokensFile, cfg.ChallengeTokensFile)
	if err != nil {
		return nil, err
	}

	return &session{
		config: cfg,
		roster: r,
		stager: &stage.Stager{
			EnginesDir: cfg.EnginesDir,
			Slots:      stage.NewSlots(cfg.SlotDirs[0], cfg.SlotDirs[1], cfg.EngineName),
			Teams:      r.Teams,
		},
	}, nil
}

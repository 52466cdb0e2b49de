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

package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"laptudirm.com/x/overseer/pkg/common"
)

// Prefix is prepended to the name of every environment variable read by
// Load, e.g. OVERSEER_SERVER.
const Prefix = "OVERSEER_"

// Config holds the read-only configuration of an overseer session.
type Config struct {
	// Base directory for every relative path below.
	Directory string `env:"DIR"`

	// Game server.
	Server string `env:"SERVER" envDefault:"https://lichess.org"`

	// Roster files.
	TeamsFile           string `env:"TEAMS_FILE" envDefault:"teams.txt"`
	BotTokensFile       string `env:"BOT_TOKENS_FILE" envDefault:"bot_tokens.txt"`
	ChallengeTokensFile string `env:"CHALLENGE_TOKENS_FILE" envDefault:"challenge_tokens.txt"`

	// Engine artifacts and the two deployment slots.
	EnginesDir     string   `env:"ENGINES_DIR" envDefault:"engines"`
	SlotDirs       []string `env:"SLOT_DIRS" envSeparator:"," envDefault:"slot-a,slot-b"`
	EngineName     string   `env:"ENGINE_NAME" envDefault:"engine"`
	EngineProtocol string   `env:"ENGINE_PROTOCOL" envDefault:"homemade"`

	// Runner process.
	RunnerCmd      string   `env:"RUNNER_CMD" envDefault:"python3"`
	RunnerArgs     []string `env:"RUNNER_ARGS" envSeparator:" " envDefault:"lichess-bot.py"`
	RunnerTemplate string   `env:"RUNNER_TEMPLATE"`

	// Challenge parameters.
	ClockLimit     int    `env:"CLOCK_LIMIT" envDefault:"180"`
	ClockIncrement int    `env:"CLOCK_INCREMENT" envDefault:"0"`
	Opponent       string `env:"OPPONENT"`
	NoBrowser      bool   `env:"NO_BROWSER" envDefault:"false"`

	ProbeTimeout time.Duration `env:"PROBE_TIMEOUT" envDefault:"10s"`
}

// Load reads the optional dotenv file at envFile into the environment and
// then parses the OVERSEER_* variables into a Config. A non-empty dir
// overrides OVERSEER_DIR. Relative paths in the returned Config are already
// resolved against its Directory.
func Load(envFile, dir string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	var config Config
	if err := env.ParseWithOptions(&config, env.Options{Prefix: Prefix}); err != nil {
		return nil, err
	}

	switch {
	case dir != "":
		config.Directory = dir
	case config.Directory == "":
		config.Directory = common.Directory
	}

	config.resolve()

	logrus.WithFields(logrus.Fields{
		"directory": config.Directory,
		"server":    config.Server,
	}).Debug("Loaded configuration")

	return &config, nil
}

// resolve makes every configured path absolute relative to Directory.
func (config *Config) resolve() {
	config.TeamsFile = common.Resolve(config.Directory, config.TeamsFile)
	config.BotTokensFile = common.Resolve(config.Directory, config.BotTokensFile)
	config.ChallengeTokensFile = common.Resolve(config.Directory, config.ChallengeTokensFile)
	config.EnginesDir = common.Resolve(config.Directory, config.EnginesDir)
	config.RunnerTemplate = common.Resolve(config.Directory, config.RunnerTemplate)

	for i, dir := range config.SlotDirs {
		config.SlotDirs[i] = common.Resolve(config.Directory, dir)
	}
}

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

package runner

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"laptudirm.com/x/overseer/pkg/common"
)

// ConfigFile is the name of the configuration file written into each
// runner's directory.
const ConfigFile = "config.yml"

// Settings are the per-slot values a runner's configuration has to carry.
type Settings struct {
	Token  string // Bot account token the runner plays with
	Server string // Base URL of the game server

	EngineDir      string // Directory containing the staged engine
	EngineName     string // File name of the staged engine
	EngineProtocol string // Protocol the runner speaks to the engine
}

// WriteConfig writes the runner configuration for a slot into dir. If
// template is not empty, it is read as a base configuration and only the
// slot specific keys are replaced in it.
func WriteConfig(dir, template string, settings Settings) error {
	config := map[string]any{}

	if template != "" {
		data, err := os.ReadFile(template)
		if err != nil {
			return err
		}

		if err := yaml.Unmarshal(data, &config); err != nil {
			return err
		}
	}

	config["token"] = settings.Token
	config["url"] = strings.TrimSuffix(settings.Server, "/") + "/"

	engine, _ := config["engine"].(map[string]any)
	if engine == nil {
		engine = map[string]any{}
	}

	engine["dir"] = settings.EngineDir
	engine["name"] = settings.EngineName
	if settings.EngineProtocol != "" {
		engine["protocol"] = settings.EngineProtocol
	}

	config["engine"] = engine

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	if err := common.TryMkdir(dir); err != nil {
		return err
	}

	path := filepath.Join(dir, ConfigFile)
	logrus.WithField("path", path).Debug("Writing runner configuration")

	// The file holds an API token.
	return os.WriteFile(path, data, 0600)
}

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

// Package stage copies team engine artifacts into the two fixed deployment
// slots which the runner processes are configured to play from.
package stage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"laptudirm.com/x/overseer/pkg/common"
	"laptudirm.com/x/overseer/pkg/roster"
)

// Slot is one of the two deployment locations an engine is staged into.
type Slot struct {
	Name   string // Human-readable name, e.g. "A"
	Dir    string // Runner directory of the slot
	Engine string // File name of the staged engine inside Dir/engines
}

// EngineDir is the directory which holds the slot's staged engine.
func (slot Slot) EngineDir() string {
	return filepath.Join(slot.Dir, "engines")
}

// Path is the path of the slot's staged engine.
func (slot Slot) Path() string {
	return filepath.Join(slot.EngineDir(), slot.Engine)
}

// NewSlots creates the A and B slots in the given runner directories.
func NewSlots(dirA, dirB, engine string) [2]Slot {
	return [2]Slot{
		{Name: "A", Dir: dirA, Engine: engine},
		{Name: "B", Dir: dirB, Engine: engine},
	}
}

// EngineNotFoundError is returned when a team has no engine artifact. It is
// recoverable, the operator can pick another pair of teams.
type EngineNotFoundError struct {
	Team string
	Path string
}

func (err *EngineNotFoundError) Error() string {
	if err.Team == "" {
		return fmt.Sprintf("no team with engine at %s", err.Path)
	}

	return fmt.Sprintf("engine for team %s not found at %s", err.Team, err.Path)
}

// Stager owns the two slots. Stage must not be called while runners are
// playing from them.
type Stager struct {
	EnginesDir string
	Slots      [2]Slot
	Teams      []roster.Team
}

// Artifact returns the path of the given team's engine artifact.
func (stager *Stager) Artifact(team roster.Team) string {
	return filepath.Join(stager.EnginesDir, team.Name)
}

// Stage places the engine of team a into slot A and the engine of team b
// into slot B, replacing whatever was staged there before. Both artifacts
// are resolved before either slot is touched.
func (stager *Stager) Stage(a, b int) error {
	var artifacts [2]string
	for i, index := range [2]int{a, b} {
		if index < 0 || index >= len(stager.Teams) {
			return &EngineNotFoundError{Path: fmt.Sprintf("team index %d", index)}
		}

		team := stager.Teams[index]
		artifacts[i] = stager.Artifact(team)

		info, err := os.Stat(artifacts[i])
		if err != nil || info.IsDir() {
			return &EngineNotFoundError{Team: team.Name, Path: artifacts[i]}
		}
	}

	for i, slot := range stager.Slots {
		if err := install(artifacts[i], slot); err != nil {
			return err
		}

		logrus.WithFields(logrus.Fields{
			"slot":   slot.Name,
			"engine": artifacts[i],
		}).Debug("Staged engine")
	}

	return nil
}

// install copies src next to the slot's path and renames it over the
// slot, so a slot never holds a partially written engine.
func install(src string, slot Slot) error {
	if err := common.TryMkdir(slot.EngineDir()); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	tmp, err := os.CreateTemp(slot.EngineDir(), "."+slot.Engine+"-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, in); err != nil {
		tmp.Close()
		return err
	}

	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmp.Name(), common.FilePermissions); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), slot.Path())
}

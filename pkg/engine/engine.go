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

// Package engine drives team engines directly over their line protocol,
// which lets the operator check an artifact before a round uses it.
//
// The protocol is the one spoken by the runner's homemade engine bridge:
// the engine is first told its colour, "white" or "black", after which it
// receives the opponent's moves and answers with its own, one UCI move per
// line. White answers the colour line with its first move.
package engine

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// MovePattern matches a move in UCI notation.
var MovePattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

var ErrReadTimeout = errors.New("engine: read i/o timeout")

// Engine is a running engine process.
type Engine struct {
	name string

	*exec.Cmd

	writer *bufio.Writer
	reader *bufio.Reader

	lines chan string
	done  chan struct{}
	err   error
}

// Start starts the engine executable at path.
func Start(name, path string) (*Engine, error) {
	var engine Engine
	engine.name = name

	process := exec.Command(path)

	stdin, err := process.StdinPipe()
	if err != nil {
		return nil, err
	}

	stdout, err := process.StdoutPipe()
	if err != nil {
		return nil, err
	}

	engine.writer = bufio.NewWriter(stdin)
	engine.reader = bufio.NewReader(stdout)
	engine.lines = make(chan string)
	engine.done = make(chan struct{})

	engine.Cmd = process

	if err := process.Start(); err != nil {
		return nil, err
	}

	go func() {
		for {
			line, err := engine.reader.ReadString('\n')
			if err != nil {
				engine.err = err
				close(engine.lines)
				return
			}

			line = strings.Trim(line, " \n\t\r")

			logrus.Debugf("info: ("+engine.name+")> %s\n", line)

			select {
			case engine.lines <- line:
			case <-engine.done:
				return
			}
		}
	}()

	return &engine, nil
}

// Await waits for a line matching regex for at most timeout. Lines which
// don't match are skipped.
func (engine *Engine) Await(regex *regexp.Regexp, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-timer.C:
			return "", ErrReadTimeout

		case line, ok := <-engine.lines:
			if !ok {
				if engine.err == io.EOF {
					return "", errors.New("engine: exited without answering")
				}

				return "", engine.err
			}

			if regex.MatchString(line) {
				return line, nil
			}
		}
	}
}

func (engine *Engine) Write(format string, a ...any) error {
	logrus.Debugf("info: ("+engine.name+")< "+format+"\n", a...)

	if _, err := fmt.Fprintf(engine.writer, format+"\n", a...); err != nil {
		return err
	}

	return engine.writer.Flush()
}

// Kill kills the engine and reaps its process.
func (engine *Engine) Kill() error {
	close(engine.done)
	err := engine.Process.Kill()
	_ = engine.Wait()
	return err
}

// Probe plays the opening handshake of both colours against the engine at
// path, in a fresh process each, and returns the two moves it answered
// with.
func Probe(name, path string, timeout time.Duration) (white, black string, err error) {
	if white, err = probe(name, path, timeout, "white"); err != nil {
		return "", "", fmt.Errorf("as white: %w", err)
	}

	if black, err = probe(name, path, timeout, "black", "e2e4"); err != nil {
		return white, "", fmt.Errorf("as black: %w", err)
	}

	return white, black, nil
}

func probe(name, path string, timeout time.Duration, lines ...string) (string, error) {
	engine, err := Start(name, path)
	if err != nil {
		return "", err
	}
	defer engine.Kill()

	for _, line := range lines {
		if err := engine.Write(line); err != nil {
			return "", err
		}
	}

	return engine.Await(MovePattern, timeout)
}

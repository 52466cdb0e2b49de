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

// Package runner supervises the bot-runner processes which connect the
// staged engines to the game server.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Runner describes how to start one bot-runner process.
type Runner struct {
	Name string
	Cmd  string
	Args []string
	Dir  string
}

// StartError is returned when a runner process could not be spawned.
type StartError struct {
	Runner string
	Err    error
}

func (err *StartError) Error() string {
	return fmt.Sprintf("starting runner %s: %v", err.Runner, err.Err)
}

func (err *StartError) Unwrap() error {
	return err.Err
}

// Outcome is what is known about a runner process after the round ended.
type Outcome struct {
	Runner string
	Pid    int

	// State is the state of the reaped process, nil if it never started.
	State *os.ProcessState

	// Exited reports whether the process ended on its own, before it was
	// terminated by the supervisor.
	Exited bool

	Err error
}

// Supervisor runs a set of runner processes for the length of a round.
type Supervisor struct {
	Runners []Runner

	// Signals which end the round. Defaults to os.Interrupt.
	Signals []os.Signal

	// Output receives the runners' stdout and stderr. If it is nil, the
	// output is shown at trace level and discarded otherwise.
	Output io.Writer
}

// RunBoth starts every runner concurrently and blocks until one of the
// Signals arrives or ctx is done. All the processes are then killed, and
// RunBoth returns only once every one of them has been reaped. A runner
// exiting on its own does not end the round.
func (supervisor *Supervisor) RunBoth(ctx context.Context) ([]Outcome, error) {
	signals := supervisor.Signals
	if len(signals) == 0 {
		signals = []os.Signal{os.Interrupt}
	}

	ctx, stop := signal.NotifyContext(ctx, signals...)
	defer stop()

	processes := make([]*process, len(supervisor.Runners))

	var group errgroup.Group
	for i, runner := range supervisor.Runners {
		group.Go(func() error {
			p, err := supervisor.start(runner)
			processes[i] = p
			return err
		})
	}

	if err := group.Wait(); err != nil {
		terminate(processes)
		return outcomes(processes), err
	}

	logrus.Info("Runners started, " + color.YellowString("interrupt") + " to end the round")

	<-ctx.Done()

	logrus.Info("Terminating runners...")
	terminate(processes)

	return outcomes(processes), nil
}

type process struct {
	runner Runner
	cmd    *exec.Cmd

	done   chan struct{}
	err    error
	killed atomic.Bool
}

func (supervisor *Supervisor) start(runner Runner) (*process, error) {
	logrus.Debugf("%s %s\n", color.BlueString(runner.Cmd), strings.Join(runner.Args, " "))

	cmd := exec.Command(runner.Cmd, runner.Args...)
	cmd.Dir = runner.Dir

	switch {
	case supervisor.Output != nil:
		cmd.Stdout = supervisor.Output
		cmd.Stderr = supervisor.Output
		// Don't hang on pipes inherited by the runner's own children.
		cmd.WaitDelay = time.Second

	case logrus.IsLevelEnabled(logrus.TraceLevel):
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, &StartError{Runner: runner.Name, Err: err}
	}

	p := &process{
		runner: runner,
		cmd:    cmd,
		done:   make(chan struct{}),
	}

	logger := logrus.WithFields(logrus.Fields{
		"runner": runner.Name,
		"pid":    cmd.Process.Pid,
	})
	logger.Debug("Runner started")

	go func() {
		p.err = cmd.Wait()
		close(p.done)

		if !p.killed.Load() {
			logger.WithField("status", cmd.ProcessState).Warn("Runner exited before the round ended")
		}
	}()

	return p, nil
}

// terminate kills every started process, tolerating ones which have
// already exited, and waits until all of them are reaped.
func terminate(processes []*process) {
	for _, p := range processes {
		if p == nil {
			continue
		}

		select {
		case <-p.done:
			continue
		default:
		}

		p.killed.Store(true)
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
			logrus.WithField("runner", p.runner.Name).Error(err)
		}
	}

	for _, p := range processes {
		if p != nil {
			<-p.done
		}
	}
}

func outcomes(processes []*process) []Outcome {
	var results []Outcome
	for _, p := range processes {
		if p == nil {
			continue
		}

		results = append(results, Outcome{
			Runner: p.runner.Name,
			Pid:    p.cmd.Process.Pid,
			State:  p.cmd.ProcessState,
			Exited: !p.killed.Load(),
			Err:    p.err,
		})
	}

	return results
}

package runner

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type result struct {
	outcomes []Outcome
	err      error
}

func runAsync(ctx context.Context, supervisor *Supervisor) <-chan result {
	ch := make(chan result, 1)
	go func() {
		outcomes, err := supervisor.RunBoth(ctx)
		ch <- result{outcomes, err}
	}()
	return ch
}

func requireBlocked(t *testing.T, ch <-chan result, within time.Duration) {
	t.Helper()
	select {
	case r := <-ch:
		t.Fatalf("RunBoth returned before cancellation: %+v", r)
	case <-time.After(within):
	}
}

func requireReturned(t *testing.T, ch <-chan result, within time.Duration) result {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(within):
		t.Fatalf("RunBoth did not return after cancellation")
		return result{}
	}
}

func requireDead(t *testing.T, outcomes []Outcome) {
	t.Helper()
	require.Len(t, outcomes, 2)
	for _, outcome := range outcomes {
		assert.NotNil(t, outcome.State, "runner %s was not reaped", outcome.Runner)
		// A reaped pid no longer exists.
		assert.ErrorIs(t, syscall.Kill(outcome.Pid, 0), syscall.ESRCH, "runner %s is alive", outcome.Runner)
	}
}

func sleeper(name string) Runner {
	return Runner{Name: name, Cmd: "sleep", Args: []string{"30"}}
}

func quitter(name string) Runner {
	return Runner{Name: name, Cmd: "true"}
}

func TestRunBothCancellation(t *testing.T) {
	tests := []struct {
		name    string
		runners []Runner
		exited  []bool
	}{
		{name: "both alive", runners: []Runner{sleeper("A"), sleeper("B")}, exited: []bool{false, false}},
		{name: "one dead", runners: []Runner{quitter("A"), sleeper("B")}, exited: []bool{true, false}},
		{name: "both dead", runners: []Runner{quitter("A"), quitter("B")}, exited: []bool{true, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			ch := runAsync(ctx, &Supervisor{Runners: tt.runners})

			// Runners which exit by themselves must not end the round.
			requireBlocked(t, ch, 300*time.Millisecond)

			cancel()
			r := requireReturned(t, ch, 5*time.Second)
			require.NoError(t, r.err)
			requireDead(t, r.outcomes)

			for i, outcome := range r.outcomes {
				assert.Equal(t, tt.runners[i].Name, outcome.Runner)
				assert.Equal(t, tt.exited[i], outcome.Exited, "runner %s", outcome.Runner)
			}
		})
	}
}

func TestRunBothSignal(t *testing.T) {
	ch := runAsync(context.Background(), &Supervisor{
		Runners: []Runner{sleeper("A"), sleeper("B")},
		Signals: []os.Signal{syscall.SIGUSR1},
	})

	requireBlocked(t, ch, 300*time.Millisecond)

	require.NoError(t, syscall.Kill(os.Getpid(), syscall.SIGUSR1))

	r := requireReturned(t, ch, 5*time.Second)
	require.NoError(t, r.err)
	requireDead(t, r.outcomes)
}

func TestRunBothStartsConcurrently(t *testing.T) {
	dir := t.TempDir()

	// Each runner records that it is up, then waits for the other one.
	script := func(self, other string) Runner {
		return Runner{
			Name: self,
			Cmd:  "sh",
			Args: []string{"-c", "touch " + self + "; while [ ! -e " + other + " ]; do sleep 0.05; done; echo " + self + " saw " + other + "; exec sleep 30"},
			Dir:  dir,
		}
	}

	var output syncBuffer
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := runAsync(ctx, &Supervisor{
		Runners: []Runner{script("a", "b"), script("b", "a")},
		Output:  &output,
	})

	assert.Eventually(t, func() bool {
		out := output.String()
		return bytes.Contains([]byte(out), []byte("a saw b")) && bytes.Contains([]byte(out), []byte("b saw a"))
	}, 5*time.Second, 50*time.Millisecond)

	cancel()
	r := requireReturned(t, ch, 5*time.Second)
	require.NoError(t, r.err)
	requireDead(t, r.outcomes)
}

func TestRunBothStartFailure(t *testing.T) {
	r := requireReturned(t, runAsync(context.Background(), &Supervisor{
		Runners: []Runner{sleeper("A"), {Name: "B", Cmd: filepath.Join(t.TempDir(), "missing")}},
	}), 5*time.Second)

	var startErr *StartError
	require.ErrorAs(t, r.err, &startErr)
	assert.Equal(t, "B", startErr.Runner)

	// The runner which did start is not left behind.
	require.Len(t, r.outcomes, 1)
	assert.NotNil(t, r.outcomes[0].State)
	assert.True(t, errors.Is(syscall.Kill(r.outcomes[0].Pid, 0), syscall.ESRCH))
}

func TestWriteConfig(t *testing.T) {
	dir := t.TempDir()

	template := filepath.Join(dir, "template.yml")
	require.NoError(t, os.WriteFile(template, []byte(
		"token: placeholder\nengine:\n  protocol: uci\n  silence_stderr: true\nchallenge:\n  concurrency: 1\n",
	), 0644))

	slot := filepath.Join(dir, "slot-a")
	require.NoError(t, WriteConfig(slot, template, Settings{
		Token:      "lip_slot_a",
		Server:     "https://lichess.org",
		EngineDir:  filepath.Join(slot, "engines"),
		EngineName: "engine",
	}))

	data, err := os.ReadFile(filepath.Join(slot, ConfigFile))
	require.NoError(t, err)

	var config struct {
		Token  string `yaml:"token"`
		URL    string `yaml:"url"`
		Engine struct {
			Dir           string `yaml:"dir"`
			Name          string `yaml:"name"`
			Protocol      string `yaml:"protocol"`
			SilenceStderr bool   `yaml:"silence_stderr"`
		} `yaml:"engine"`
		Challenge map[string]int `yaml:"challenge"`
	}
	require.NoError(t, yaml.Unmarshal(data, &config))

	assert.Equal(t, "lip_slot_a", config.Token)
	assert.Equal(t, "https://lichess.org/", config.URL)
	assert.Equal(t, filepath.Join(slot, "engines"), config.Engine.Dir)
	assert.Equal(t, "engine", config.Engine.Name)
	assert.Equal(t, "uci", config.Engine.Protocol, "template protocol kept when none is given")
	assert.True(t, config.Engine.SilenceStderr)
	assert.Equal(t, 1, config.Challenge["concurrency"])
}

func TestWriteConfigWithoutTemplate(t *testing.T) {
	slot := t.TempDir()
	require.NoError(t, WriteConfig(slot, "", Settings{
		Token:          "lip_slot_b",
		Server:         "http://localhost:9663/",
		EngineDir:      "engines",
		EngineName:     "engine",
		EngineProtocol: "homemade",
	}))

	data, err := os.ReadFile(filepath.Join(slot, ConfigFile))
	require.NoError(t, err)

	var config map[string]any
	require.NoError(t, yaml.Unmarshal(data, &config))
	assert.Equal(t, "http://localhost:9663/", config["url"])
	assert.Equal(t, map[string]any{"dir": "engines", "name": "engine", "protocol": "homemade"}, config["engine"])
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type call struct {
	plugin string
	req    Request
}

type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	started chan struct{}
	release chan struct{}
	err     error
}

func (f *fakeRunner) Execute(ctx context.Context, plugin *Plugin, req *Request) (*Response, error) {
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.release != nil {
		<-f.release
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call{plugin: plugin.Manifest.Name, req: *req})
	if f.err != nil {
		return nil, f.err
	}
	return &Response{Success: true}, nil
}

func (f *fakeRunner) Calls() []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]call(nil), f.calls...)
}

func newTestManager(t *testing.T, manifests ...Manifest) *Manager {
	t.Helper()
	dir := t.TempDir()
	for _, m := range manifests {
		writeManifest(t, dir, m.Name, m)
	}
	mgr := NewManager(dir, zerolog.Nop())
	require.NoError(t, mgr.Discover())
	return mgr
}

func TestDispatcher_RunsEnabledPluginsInOrder(t *testing.T) {
	mgr := newTestManager(t,
		Manifest{Name: "speech", Executable: "speech", Actions: []string{ActionWord}},
		Manifest{Name: "keyboard", Executable: "keyboard"},
		Manifest{Name: "unused", Executable: "unused"},
	)
	runner := &fakeRunner{}
	d := NewDispatcher(mgr, runner, DispatcherConfig{
		Enabled:   []string{"keyboard", "speech"},
		QueueSize: 4,
		Configs:   map[string]json.RawMessage{"speech": json.RawMessage(`{"voice":"Alex"}`)},
		Logger:    zerolog.Nop(),
	})
	d.Start(context.Background())

	assert.True(t, d.Submit("HA", "HA"))
	assert.True(t, d.Submit("I", "HA I"))
	d.Close()

	calls := runner.Calls()
	require.Len(t, calls, 4)
	assert.Equal(t, []string{"keyboard", "speech", "keyboard", "speech"},
		[]string{calls[0].plugin, calls[1].plugin, calls[2].plugin, calls[3].plugin})

	assert.Equal(t, Request{Action: ActionWord, Word: "HA", Sentence: "HA"}, calls[0].req)
	assert.Equal(t, "I", calls[3].req.Word)
	assert.Equal(t, "HA I", calls[3].req.Sentence)
	assert.JSONEq(t, `{"voice":"Alex"}`, string(calls[3].req.Config))
	assert.Nil(t, calls[2].req.Config)
}

func TestDispatcher_DropsWhenQueueFull(t *testing.T) {
	mgr := newTestManager(t, Manifest{Name: "speech", Executable: "speech"})
	runner := &fakeRunner{
		started: make(chan struct{}, 8),
		release: make(chan struct{}),
	}
	d := NewDispatcher(mgr, runner, DispatcherConfig{
		Enabled:   []string{"speech"},
		QueueSize: 1,
		Logger:    zerolog.Nop(),
	})
	d.Start(context.Background())

	require.True(t, d.Submit("ONE", "ONE"))
	select {
	case <-runner.started:
	case <-time.After(2 * time.Second):
		t.Fatal("worker never picked up the first word")
	}

	// Worker is busy with ONE; the queue holds one more.
	assert.True(t, d.Submit("TWO", "ONE TWO"))
	assert.False(t, d.Submit("THREE", "ONE TWO THREE"))

	close(runner.release)
	d.Close()

	calls := runner.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "ONE", calls[0].req.Word)
	assert.Equal(t, "TWO", calls[1].req.Word)
}

func TestDispatcher_ContainsPluginFailures(t *testing.T) {
	mgr := newTestManager(t, Manifest{Name: "speech", Executable: "speech"})
	runner := &fakeRunner{err: errors.New("exec format error")}
	d := NewDispatcher(mgr, runner, DispatcherConfig{
		Enabled: []string{"missing", "speech"},
		Logger:  zerolog.Nop(),
	})
	d.Start(context.Background())

	assert.True(t, d.Submit("A", "A"))
	assert.True(t, d.Submit("B", "A B"))
	d.Close()

	assert.Len(t, runner.Calls(), 2)
}

func TestDispatcher_SkipsUnsupportedAction(t *testing.T) {
	mgr := newTestManager(t, Manifest{Name: "volume", Executable: "volume", Actions: []string{"volume-up"}})
	runner := &fakeRunner{}
	d := NewDispatcher(mgr, runner, DispatcherConfig{Enabled: []string{"volume"}, Logger: zerolog.Nop()})
	d.Start(context.Background())

	d.Submit("A", "A")
	d.Close()

	assert.Empty(t, runner.Calls())
}

func TestDispatcher_SubmitAfterClose(t *testing.T) {
	mgr := newTestManager(t, Manifest{Name: "speech", Executable: "speech"})
	d := NewDispatcher(mgr, &fakeRunner{}, DispatcherConfig{Enabled: []string{"speech"}, Logger: zerolog.Nop()})
	d.Start(context.Background())

	d.Close()
	d.Close()

	assert.False(t, d.Submit("A", "A"))
}

func TestDispatcher_NothingEnabled(t *testing.T) {
	d := NewDispatcher(newTestManager(t), &fakeRunner{}, DispatcherConfig{Logger: zerolog.Nop()})
	defer d.Close()

	assert.False(t, d.Submit("A", "A"))
}

func TestDispatcher_WithScriptPlugin(t *testing.T) {
	plugin := scriptPlugin(t, "logger", `cat >> received.jsonl
echo >> received.jsonl
echo '{"success":true}'
`)
	mgr := NewManager(t.TempDir(), zerolog.Nop())
	mgr.plugins["logger"] = plugin

	d := NewDispatcher(mgr, NewExecutor(5*time.Second), DispatcherConfig{
		Enabled: []string{"logger"},
		Logger:  zerolog.Nop(),
	})
	d.Start(context.Background())
	require.True(t, d.Submit("HELLO", "HELLO"))
	d.Close()

	data, err := os.ReadFile(filepath.Join(plugin.Path, "received.jsonl"))
	require.NoError(t, err)

	var got Request
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, "HELLO", got.Word)
	assert.Equal(t, ActionWord, got.Action)
}

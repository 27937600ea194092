package plugin

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func writeManifest(t *testing.T, root, dir string, manifest Manifest) string {
	t.Helper()

	pluginDir := filepath.Join(root, dir)
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	data, err := json.Marshal(manifest)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), data, 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
	return pluginDir
}

func TestManager_Discover(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := writeManifest(t, tmpDir, "speech", Manifest{
		Name:        "speech",
		Version:     "1.0.0",
		Description: "Speaks committed words",
		Executable:  "speech",
		Actions:     []string{ActionWord},
	})

	manager := NewManager(tmpDir, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	if len(plugins) != 1 {
		t.Fatalf("expected 1 plugin, got %d", len(plugins))
	}

	plugin := plugins[0]
	if plugin.Manifest.Name != "speech" {
		t.Errorf("expected plugin name 'speech', got %q", plugin.Manifest.Name)
	}
	if plugin.Manifest.Description != "Speaks committed words" {
		t.Errorf("unexpected description %q", plugin.Manifest.Description)
	}
	if plugin.Path != pluginDir {
		t.Errorf("expected path %q, got %q", pluginDir, plugin.Path)
	}
	if plugin.Executable != filepath.Join(pluginDir, "speech") {
		t.Errorf("unexpected executable %q", plugin.Executable)
	}
}

func TestManager_Discover_MultiplePluginsSorted(t *testing.T) {
	tmpDir := t.TempDir()
	for _, name := range []string{"speech", "keyboard", "logger"} {
		writeManifest(t, tmpDir, name, Manifest{Name: name, Executable: name})
	}
	// Stray files and directories without a manifest are ignored.
	if err := os.WriteFile(filepath.Join(tmpDir, "README"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "empty"), 0755); err != nil {
		t.Fatal(err)
	}

	manager := NewManager(tmpDir, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	plugins := manager.List()
	want := []string{"keyboard", "logger", "speech"}
	if len(plugins) != len(want) {
		t.Fatalf("expected %d plugins, got %d", len(want), len(plugins))
	}
	for i, name := range want {
		if plugins[i].Manifest.Name != name {
			t.Errorf("plugin %d = %q, want %q", i, plugins[i].Manifest.Name, name)
		}
	}
}

func TestManager_Discover_NameDefaultsToDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeManifest(t, tmpDir, "unnamed", Manifest{Executable: "run"})

	manager := NewManager(tmpDir, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}
	if _, err := manager.Get("unnamed"); err != nil {
		t.Errorf("expected plugin named after its directory, got %v", err)
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	tmpDir := t.TempDir()
	dir := writeManifest(t, tmpDir, "speech", Manifest{Name: "speech"})

	manager := NewManager(tmpDir, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(dir); err != nil {
		t.Fatal(err)
	}
	if err := manager.Discover(); err != nil {
		t.Fatal(err)
	}
	if len(manager.List()) != 0 {
		t.Errorf("expected removed plugin to disappear after rediscovery")
	}
}

func TestManager_Get_NotFound(t *testing.T) {
	manager := NewManager(t.TempDir(), zerolog.Nop())

	if _, err := manager.Get("nonexistent-plugin"); !errors.Is(err, ErrPluginNotFound) {
		t.Errorf("expected ErrPluginNotFound, got %v", err)
	}
}

func TestManager_PluginDir(t *testing.T) {
	manager := NewManager("/path/to/plugins", zerolog.Nop())

	if manager.PluginDir() != "/path/to/plugins" {
		t.Errorf("expected plugin dir %q, got %q", "/path/to/plugins", manager.PluginDir())
	}
}

func TestManager_Discover_InvalidJSON(t *testing.T) {
	tmpDir := t.TempDir()
	pluginDir := filepath.Join(tmpDir, "bad-plugin")
	if err := os.MkdirAll(pluginDir, 0755); err != nil {
		t.Fatalf("failed to create plugin dir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(pluginDir, "plugin.json"), []byte("not valid json"), 0644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}

	manager := NewManager(tmpDir, zerolog.Nop())
	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed unexpectedly: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected invalid manifest to be skipped, got %d plugins", len(plugins))
	}
}

func TestManager_Discover_NonExistentDir(t *testing.T) {
	manager := NewManager("/path/that/does/not/exist", zerolog.Nop())

	if err := manager.Discover(); err != nil {
		t.Fatalf("Discover() failed on non-existent dir: %v", err)
	}
	if plugins := manager.List(); len(plugins) != 0 {
		t.Fatalf("expected 0 plugins, got %d", len(plugins))
	}
}

func TestManifest_Supports(t *testing.T) {
	if !(Manifest{}).Supports(ActionWord) {
		t.Error("manifest without actions should accept every action")
	}
	m := Manifest{Actions: []string{"other"}}
	if m.Supports(ActionWord) {
		t.Error("manifest should reject unlisted action")
	}
	m.Actions = append(m.Actions, ActionWord)
	if !m.Supports(ActionWord) {
		t.Error("manifest should accept listed action")
	}
}

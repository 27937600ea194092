// Package testdata holds recorded landmark sessions used by end-to-end and
// CLI tests.
package testdata

import (
	"bytes"
	"embed"
	"fmt"
	"io"
	"sort"
	"strings"
)

//go:embed recordings/*.jsonl
var recordingsFS embed.FS

// Recording describes an embedded recording and the word it spells with the
// default thresholds and cooldown.
type Recording struct {
	Name string
	Word string
}

// Recordings lists the embedded recordings.
var Recordings = []Recording{
	// D, pause, A, pause, D at 10 fps.
	{Name: "dad", Word: "DAD"},
	// D held for 3.2s; the cooldown lets it repeat twice.
	{Name: "held", Word: "DDD"},
}

// Open returns the JSON lines of the named recording.
func Open(name string) (io.Reader, error) {
	data, err := recordingsFS.ReadFile("recordings/" + name + ".jsonl")
	if err != nil {
		return nil, fmt.Errorf("load recording %s: %w", name, err)
	}
	return bytes.NewReader(data), nil
}

// Names returns the names of all embedded recordings, sorted.
func Names() ([]string, error) {
	entries, err := recordingsFS.ReadDir("recordings")
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".jsonl"))
	}
	sort.Strings(names)
	return names, nil
}

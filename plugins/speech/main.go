// Package main provides a speech plugin that reads committed words aloud
// with say on macOS or espeak elsewhere.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// Request represents the input from the plugin executor.
type Request struct {
	Action   string          `json:"action"`
	Word     string          `json:"word"`
	Sentence string          `json:"sentence"`
	Config   json.RawMessage `json:"config"`
}

// Response represents the output to the plugin executor.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Config is the plugin's settings block.
type Config struct {
	Voice  string `json:"voice"`
	Rate   int    `json:"rate"`    // words per minute, 0 keeps the engine default
	Speak  string `json:"speak"`   // "word" (default) or "sentence"
	DryRun bool   `json:"dry_run"` // report the command instead of running it
}

func main() {
	var req Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		writeErrorResponse(fmt.Sprintf("failed to decode request: %v", err))
		return
	}

	if req.Action != "word" {
		writeErrorResponse(fmt.Sprintf("unknown action: %s", req.Action))
		return
	}

	cfg, err := parseConfig(req.Config)
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}

	text := req.Word
	if cfg.Speak == "sentence" {
		text = req.Sentence
	}
	if strings.TrimSpace(text) == "" {
		writeErrorResponse("nothing to speak")
		return
	}

	args := buildCommand(runtime.GOOS, cfg, text)
	if cfg.DryRun {
		data, _ := json.Marshal(map[string][]string{"command": args})
		writeSuccessResponse(data)
		return
	}

	if output, err := exec.Command(args[0], args[1:]...).CombinedOutput(); err != nil {
		writeErrorResponse(fmt.Sprintf("%s failed: %v: %s", args[0], err, output))
		return
	}
	writeSuccessResponse(nil)
}

func parseConfig(raw json.RawMessage) (Config, error) {
	var cfg Config
	if len(raw) == 0 || string(raw) == "null" {
		return cfg, nil
	}
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// buildCommand returns the argv that speaks text on goos.
func buildCommand(goos string, cfg Config, text string) []string {
	if goos == "darwin" {
		args := []string{"say"}
		if cfg.Voice != "" {
			args = append(args, "-v", cfg.Voice)
		}
		if cfg.Rate > 0 {
			args = append(args, "-r", strconv.Itoa(cfg.Rate))
		}
		return append(args, text)
	}

	args := []string{"espeak"}
	if cfg.Voice != "" {
		args = append(args, "-v", cfg.Voice)
	}
	if cfg.Rate > 0 {
		args = append(args, "-s", strconv.Itoa(cfg.Rate))
	}
	return append(args, text)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

// Package main provides a keyboard plugin that types committed words into the
// focused application, via AppleScript on macOS and xdotool on Linux.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"runtime"
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
	Lowercase     bool  `json:"lowercase"`
	TrailingSpace *bool `json:"trailing_space"` // defaults to true
	DryRun        bool  `json:"dry_run"`
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

	var cfg Config
	if len(req.Config) > 0 && string(req.Config) != "null" {
		if err := json.Unmarshal(req.Config, &cfg); err != nil {
			writeErrorResponse(fmt.Sprintf("failed to parse config: %v", err))
			return
		}
	}

	if req.Word == "" {
		writeErrorResponse("word is required")
		return
	}

	args, err := buildCommand(runtime.GOOS, typedText(req.Word, cfg))
	if err != nil {
		writeErrorResponse(err.Error())
		return
	}
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

// typedText applies the case and spacing settings to word.
func typedText(word string, cfg Config) string {
	if cfg.Lowercase {
		word = strings.ToLower(word)
	}
	if cfg.TrailingSpace == nil || *cfg.TrailingSpace {
		word += " "
	}
	return word
}

// buildCommand returns the argv that types text on goos.
func buildCommand(goos, text string) ([]string, error) {
	switch goos {
	case "darwin":
		return []string{"osascript", "-e", buildKeystrokeScript(text)}, nil
	case "linux":
		return []string{"xdotool", "type", "--", text}, nil
	default:
		return nil, fmt.Errorf("typing is not supported on %s", goos)
	}
}

// buildKeystrokeScript generates an AppleScript that types text.
func buildKeystrokeScript(text string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
	return fmt.Sprintf(`tell application "System Events" to keystroke "%s"`, escaped)
}

func writeErrorResponse(errMsg string) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: false, Error: errMsg})
}

func writeSuccessResponse(data json.RawMessage) {
	json.NewEncoder(os.Stdout).Encode(Response{Success: true, Data: data})
}

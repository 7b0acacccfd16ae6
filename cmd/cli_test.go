// SPDX-License-Identifier: MIT
package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"audiolink/internal/config"
)

// inTempDir keeps LoadConfig from picking up a config file in the package
// directory.
func inTempDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	return dir
}

func TestParseArgs(t *testing.T) {
	inTempDir(t)

	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T, cfg *config.Config)
	}{
		{
			name:    "defaults",
			args:    nil,
			command: CommandRun,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Link.Address != config.DefaultLinkAddress || cfg.Tuning.FrameSize != config.DefaultFrameSize {
					t.Errorf("config = %+v", cfg)
				}
				if !cfg.Link.Connect || cfg.Server.Enabled || cfg.UDP.Enabled {
					t.Errorf("startup flags = connect %v server %v udp %v", cfg.Link.Connect, cfg.Server.Enabled, cfg.UDP.Enabled)
				}
			},
		},
		{
			name:    "link and tuning flags",
			args:    []string{"-a", "10.0.0.7:7070", "-n", "512", "--mode", "spectrogram", "--min-hz", "100", "-t"},
			command: CommandRun,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Link.Address != "10.0.0.7:7070" || cfg.Tuning.FrameSize != 512 {
					t.Errorf("link = %+v tuning = %+v", cfg.Link, cfg.Tuning)
				}
				if cfg.Tuning.Mode != "spectrogram" || cfg.Tuning.MinHz != 100 || !cfg.Tuning.Start {
					t.Errorf("tuning = %+v", cfg.Tuning)
				}
			},
		},
		{
			name:    "replay link",
			args:    []string{"--link", "file", "--replay", "capture.raw", "--replay-interval", "10ms", "--loop", "--playback", "discard"},
			command: CommandRun,
			check: func(t *testing.T, cfg *config.Config) {
				if cfg.Link.Kind != config.LinkFile || cfg.Link.Path != "capture.raw" || !cfg.Link.Loop {
					t.Errorf("link = %+v", cfg.Link)
				}
				if cfg.Link.ReplayInterval != 10*time.Millisecond || cfg.Playback.Backend != config.PlaybackDiscard {
					t.Errorf("interval = %s backend = %s", cfg.Link.ReplayInterval, cfg.Playback.Backend)
				}
			},
		},
		{
			name:    "outputs",
			args:    []string{"--listen", ":9000", "--udp-target", "127.0.0.1:9999", "-r", "-o", "takes", "-m"},
			command: CommandRun,
			check: func(t *testing.T, cfg *config.Config) {
				if !cfg.Server.Enabled || cfg.Server.Listen != ":9000" {
					t.Errorf("server = %+v", cfg.Server)
				}
				if !cfg.UDP.Enabled || cfg.UDP.Target != "127.0.0.1:9999" {
					t.Errorf("udp = %+v", cfg.UDP)
				}
				if !cfg.Recording.Start || cfg.Recording.OutputDir != "takes" {
					t.Errorf("recording = %+v", cfg.Recording)
				}
				if !cfg.Monitor.Enabled || cfg.Monitor.Refresh != config.DefaultMonitorRefresh {
					t.Errorf("monitor = %+v", cfg.Monitor)
				}
			},
		},
		{
			name:    "list",
			args:    []string{"list"},
			command: CommandList,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			inv, err := ParseArgs(tt.args, &out)
			if err != nil {
				t.Fatalf("ParseArgs(%v) error: %v", tt.args, err)
			}
			if inv == nil || inv.Command != tt.command {
				t.Fatalf("ParseArgs(%v) = %+v, want command %q", tt.args, inv, tt.command)
			}
			if inv.Config == nil {
				t.Fatal("Config is nil")
			}
			if tt.check != nil {
				tt.check(t, inv.Config)
			}
		})
	}
}

func TestParseArgsInspect(t *testing.T) {
	inTempDir(t)

	inv, err := ParseArgs([]string{"inspect", "take.wav"}, &bytes.Buffer{})
	if err != nil {
		t.Fatal(err)
	}
	if inv.Command != CommandInspect || len(inv.Args) != 1 || inv.Args[0] != "take.wav" {
		t.Errorf("inv = %+v", inv)
	}

	if _, err := ParseArgs([]string{"inspect"}, &bytes.Buffer{}); err == nil {
		t.Error("inspect without a file succeeded")
	}
}

func TestParseArgsErrors(t *testing.T) {
	inTempDir(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"frame size", []string{"-n", "1000"}, "power of two"},
		{"mode", []string{"--mode", "waterfall"}, "mode"},
		{"unknown flag", []string{"--bogus"}, "unknown flag"},
		{"stray argument", []string{"extra"}, "unknown command"},
		{"missing config", []string{"--config", "nope.yaml"}, "failed to read config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseArgs(tt.args, &bytes.Buffer{})
			if err == nil {
				t.Fatalf("ParseArgs(%v) succeeded", tt.args)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not contain %q", err, tt.want)
			}
		})
	}
}

func TestParseArgsHelpAndVersion(t *testing.T) {
	inTempDir(t)

	for _, args := range [][]string{{"--help"}, {"--version"}} {
		var out bytes.Buffer
		inv, err := ParseArgs(args, &out)
		if err != nil {
			t.Fatalf("ParseArgs(%v) error: %v", args, err)
		}
		if inv != nil {
			t.Errorf("ParseArgs(%v) = %+v, want nil", args, inv)
		}
		if out.Len() == 0 {
			t.Errorf("ParseArgs(%v) printed nothing", args)
		}
	}
}

func TestParseArgsPrecedence(t *testing.T) {
	dir := inTempDir(t)
	path := filepath.Join(dir, "link.yaml")
	yaml := "link:\n  address: 192.168.1.20:7070\n  sample_rate: 8000\ntuning:\n  mode: spectrogram\n"
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	t.Run("file over defaults", func(t *testing.T) {
		inv, err := ParseArgs([]string{"--config", path}, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if inv.Config.Link.Address != "192.168.1.20:7070" || inv.Config.Link.SampleRate != 8000 {
			t.Errorf("link = %+v", inv.Config.Link)
		}
	})

	t.Run("env over file", func(t *testing.T) {
		t.Setenv("AUDIOLINK_SAMPLE_RATE", "16000")
		inv, err := ParseArgs([]string{"--config", path}, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if inv.Config.Link.SampleRate != 16000 || inv.Config.Link.Address != "192.168.1.20:7070" {
			t.Errorf("link = %+v", inv.Config.Link)
		}
	})

	t.Run("flag over env", func(t *testing.T) {
		t.Setenv("AUDIOLINK_MODE", "spectrogram")
		inv, err := ParseArgs([]string{"--config", path, "--mode", "peak"}, &bytes.Buffer{})
		if err != nil {
			t.Fatal(err)
		}
		if inv.Config.Tuning.Mode != "peak" {
			t.Errorf("mode = %q", inv.Config.Tuning.Mode)
		}
	})
}

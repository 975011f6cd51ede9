package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/tinytelemetry/flashdeck/internal/model"
)

func TestLoadCLIConfig(t *testing.T) {
	tests := []struct {
		name       string
		configYAML string
		env        map[string]string
		wantSocket string
		wantDays   int
		wantErr    string
	}{
		{
			name:       "file values",
			configYAML: "socket-path: /tmp/fd.sock\nstats-days: 30",
			wantSocket: "/tmp/fd.sock",
			wantDays:   30,
		},
		{
			name:       "env wins over file",
			configYAML: "socket-path: /tmp/fd.sock",
			env:        map[string]string{"FLASHDECK_SOCKET_PATH": "/tmp/env.sock"},
			wantSocket: "/tmp/env.sock",
			wantDays:   model.DefaultStatsDays,
		},
		{
			name:       "stats window out of range",
			configYAML: "stats-days: 0",
			wantErr:    "invalid stats-days",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("FLASHDECK_SOCKET_PATH", "")
			os.Unsetenv("FLASHDECK_SOCKET_PATH")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			path := filepath.Join(t.TempDir(), "config.yml")
			if err := os.WriteFile(path, []byte(tt.configYAML+"\n"), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}

			cfg, err := loadCLIConfig(path)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want substring %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("loadCLIConfig: %v", err)
			}
			if cfg.SocketPath != tt.wantSocket {
				t.Fatalf("SocketPath = %q, want %q", cfg.SocketPath, tt.wantSocket)
			}
			if cfg.StatsDays != tt.wantDays {
				t.Fatalf("StatsDays = %d, want %d", cfg.StatsDays, tt.wantDays)
			}
		})
	}
}

func TestLoadCLIConfig_MissingFile(t *testing.T) {
	t.Setenv("FLASHDECK_STATS_DAYS", "")
	os.Unsetenv("FLASHDECK_STATS_DAYS")

	cfg, err := loadCLIConfig(filepath.Join(t.TempDir(), "absent.yml"))
	if err != nil {
		t.Fatalf("loadCLIConfig: %v", err)
	}
	if cfg.StatsDays != model.DefaultStatsDays || cfg.SocketPath == "" {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	contents := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q
output_base = %q

[encoder]
base_url = "http://127.0.0.1:9"
api_key = "test"

[logging]
format = "json"
`, filepath.Join(base, "data"), filepath.Join(base, "logs"), filepath.Join(base, "output"))
	if err := os.WriteFile(configPath, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	output, err := runCommand(t, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(output, target) {
		t.Fatalf("expected output to mention %s, got %q", target, output)
	}
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected sample config at %s: %v", target, err)
	}

	// Refuses to clobber without --overwrite.
	if _, err := runCommand(t, "config", "init", "--path", target); err == nil {
		t.Fatal("expected error for existing config")
	}
	if _, err := runCommand(t, "config", "init", "--path", target, "--overwrite"); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestIngestListAndStatus(t *testing.T) {
	configPath := writeTestConfig(t)

	output, err := runCommand(t,
		"--config", configPath, "--project", "p-1",
		"ingest", "/uploads/run.avi", "--format", "avi", "--codec", "mpeg2",
		"--width", "720", "--height", "576",
	)
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !strings.Contains(output, "Ingested asset") {
		t.Fatalf("unexpected ingest output %q", output)
	}
	if !strings.Contains(output, "transcoded on the next processing pass") {
		t.Fatalf("expected transcode notice, got %q", output)
	}

	output, err = runCommand(t, "--config", configPath, "assets", "list")
	if err != nil {
		t.Fatalf("assets list: %v", err)
	}
	if !strings.Contains(output, "p-1") || !strings.Contains(output, "ready") {
		t.Fatalf("unexpected list output %q", output)
	}

	output, err = runCommand(t, "--config", configPath, "assets", "list", "--status", "error")
	if err != nil {
		t.Fatalf("assets list filtered: %v", err)
	}
	if !strings.Contains(output, "No assets found") {
		t.Fatalf("expected empty filtered list, got %q", output)
	}

	if _, err := runCommand(t, "--config", configPath, "assets", "list", "--status", "bogus"); err == nil {
		t.Fatal("expected error for unknown status")
	}

	output, err = runCommand(t, "--config", configPath, "status")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(output, "Awaiting transcode") {
		t.Fatalf("unexpected status output %q", output)
	}
}

func TestIngestRequiresProject(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t, "--config", configPath, "ingest", "/uploads/run.avi"); err == nil {
		t.Fatal("expected error without --project")
	}
}

func TestRetryCommand(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t,
		"--config", configPath, "--project", "p-1",
		"ingest", "/uploads/broken.avi", "--format", "avi", "--codec", "mpeg2",
	); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	output, err := runCommand(t, "--config", configPath, "retry")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !strings.Contains(output, "Reset 0 asset(s)") {
		t.Fatalf("expected no errored assets, got %q", output)
	}
}

func TestForceFailRejectsReadyAsset(t *testing.T) {
	configPath := writeTestConfig(t)

	if _, err := runCommand(t,
		"--config", configPath, "--project", "p-1",
		"ingest", "/uploads/idle.avi", "--format", "avi", "--codec", "mpeg2",
	); err != nil {
		t.Fatalf("ingest: %v", err)
	}

	if _, err := runCommand(t, "--config", configPath, "force-fail", "1"); err == nil {
		t.Fatal("expected force-fail to reject a ready asset")
	}
}

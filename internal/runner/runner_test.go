package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gtmodkit/gtmulti/internal/launcher"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(path, []byte(script), 0755); err != nil {
		t.Fatalf("writing script: %v", err)
	}
	return path
}

func testRunner(t *testing.T, toolsDir string) *Runner {
	t.Helper()
	return New(NewResolver(toolsDir, nil, testLogger()), testLogger())
}

func TestLaunchCaptured(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2ModelTool", `echo "converted $1"`)

	r := testRunner(t, dir)
	reg := launcher.Registration{
		ID:         "GT2ModelTool",
		Executable: "GT2ModelTool",
		Operations: []launcher.Operation{{Name: "ConvertToEditable", Args: []string{"-oe"}}},
	}

	res, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{
		Operation: "ConvertToEditable",
		Captured:  true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "converted -oe") {
		t.Errorf("expected operation args in output, got: %q", res.Stdout)
	}
	if res.RunID == "" {
		t.Error("expected a run id")
	}
	if res.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", res.ExitCode)
	}
}

func TestLaunchNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2TextureTool", `echo "bad input" >&2; exit 3`)

	r := testRunner(t, dir)
	reg := launcher.Registration{ID: "GT2TextureTool", Executable: "GT2TextureTool"}

	res, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Captured: true})
	if err == nil {
		t.Fatal("expected error for nonzero exit")
	}
	if ClassifyError(err) != ReasonExit {
		t.Errorf("expected ReasonExit, got %s", ClassifyError(err))
	}
	if res.ExitCode != 3 {
		t.Errorf("expected exit code 3, got %d", res.ExitCode)
	}
	if !strings.Contains(res.Stderr, "bad input") {
		t.Errorf("expected stderr captured, got: %q", res.Stderr)
	}
}

func TestLaunchTimeout(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2ModelTool", `sleep 5`)

	r := testRunner(t, dir)
	r.SetTimeoutFunc(func(string) time.Duration { return 50 * time.Millisecond })
	reg := launcher.Registration{ID: "GT2ModelTool", Executable: "GT2ModelTool"}

	_, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Captured: true})
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if ClassifyError(err) != ReasonTimeout {
		t.Errorf("expected ReasonTimeout, got %s", ClassifyError(err))
	}
}

func TestLaunchMissingTool(t *testing.T) {
	r := testRunner(t, t.TempDir())
	reg := launcher.Registration{ID: "GT2BillboardEditor", Executable: "gtmulti-test-no-such-exe"}

	_, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{})
	if !errors.Is(err, ErrToolNotFound) {
		t.Fatalf("expected ErrToolNotFound, got %v", err)
	}
	// Missing executables never trip the breaker.
	if r.Health().Failures("GT2BillboardEditor") != 0 {
		t.Error("not-found should not count as a launch failure")
	}
}

func TestLaunchUnknownOperation(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2ModelTool", `echo ok`)

	r := testRunner(t, dir)
	reg := launcher.Registration{ID: "GT2ModelTool", Executable: "GT2ModelTool"}

	_, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Operation: "Repaint", Captured: true})
	if err == nil || !strings.Contains(err.Error(), "no operation") {
		t.Errorf("expected unknown operation error, got %v", err)
	}
}

func TestCircuitBreakerDisablesTool(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2TextureTool", `exit 1`)

	r := testRunner(t, dir)
	reg := launcher.Registration{ID: "GT2TextureTool", Executable: "GT2TextureTool"}

	for i := 0; i < maxConsecutiveFailures; i++ {
		r.Launch(context.Background(), reg, launcher.LaunchRequest{Captured: true})
	}
	if !r.Health().Disabled("GT2TextureTool") {
		t.Fatal("expected breaker to trip after repeated failures")
	}

	_, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Captured: true})
	if !errors.Is(err, ErrToolDisabled) {
		t.Errorf("expected ErrToolDisabled, got %v", err)
	}
	if ClassifyError(err) != ReasonDisabled {
		t.Errorf("expected ReasonDisabled, got %s", ClassifyError(err))
	}

	// A reset (executable replaced on disk) re-enables the tool.
	r.Health().Reset("GT2TextureTool")
	writeScript(t, dir, "GT2TextureTool", `exit 0`)
	if _, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Captured: true}); err != nil {
		t.Errorf("expected launch to succeed after reset: %v", err)
	}
}

func TestExtraArgsAppended(t *testing.T) {
	dir := t.TempDir()
	writeScript(t, dir, "GT2ModelTool", `echo "$@"`)

	r := testRunner(t, dir)
	r.SetExtraArgs(map[string][]string{"GT2ModelTool": {"--verbose"}})
	reg := launcher.Registration{ID: "GT2ModelTool", Executable: "GT2ModelTool"}

	res, err := r.Launch(context.Background(), reg, launcher.LaunchRequest{Input: "car.cdo", Captured: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(res.Stdout, "car.cdo --verbose") {
		t.Errorf("expected input then extra args, got: %q", res.Stdout)
	}
}

func TestTruncateCapturedOutput(t *testing.T) {
	long := strings.Repeat("x", maxCapturedOutput+100)
	got := truncate(long)
	if len(got) >= len(long) {
		t.Error("expected output to be truncated")
	}
	if !strings.Contains(got, "truncated") {
		t.Error("expected truncation marker")
	}
}

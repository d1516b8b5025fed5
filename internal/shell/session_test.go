package shell

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

	"github.com/gtmodkit/gtmulti/internal/bus"
	"github.com/gtmodkit/gtmulti/internal/launcher"
	"github.com/gtmodkit/gtmulti/internal/runner"
	"github.com/gtmodkit/gtmulti/internal/state"
)

var toolIDs = []string{"GT2ModelTool", "GT2TextureTool", "GT2BillboardEditor"}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeStub(t *testing.T, dir, name, body string) {
	t.Helper()
	script := "#!/bin/sh\n" + body + "\n"
	if err := os.WriteFile(filepath.Join(dir, name), []byte(script), 0755); err != nil {
		t.Fatalf("writing stub: %v", err)
	}
}

// newTestSession builds a session over three stub registrations whose
// activations just record the call.
func newTestSession(t *testing.T) (*Session, chan bus.Notice, *[]string) {
	t.Helper()

	b := bus.New(16)
	notices := b.Subscribe()

	dir := t.TempDir()
	registry := launcher.NewRegistry()
	calls := &[]string{}

	for _, id := range toolIDs {
		id := id
		writeStub(t, dir, id, "echo ok")
		err := registry.Register(launcher.Registration{
			ID:         id,
			Name:       id,
			Executable: id,
			Operations: []launcher.Operation{{Name: "ConvertToEditable", Args: []string{"-oe"}}},
			Activate: func(_ context.Context, _ launcher.LaunchRequest) (launcher.RunResult, error) {
				*calls = append(*calls, id)
				return launcher.RunResult{RunID: "run-" + id, Duration: time.Second}, nil
			},
		})
		if err != nil {
			t.Fatalf("register %s: %v", id, err)
		}
	}

	r := runner.New(runner.NewResolver(dir, nil, testLogger()), testLogger())
	s := NewSession(b, registry, r, testLogger())
	return s, notices, calls
}

func drainNotices(ch chan bus.Notice) []string {
	var out []string
	for {
		select {
		case n := <-ch:
			out = append(out, n.Content)
		default:
			return out
		}
	}
}

func noticesContain(notices []string, substr string) bool {
	for _, n := range notices {
		if strings.Contains(n, substr) {
			return true
		}
	}
	return false
}

func TestMenuListsThreeToolsInOrder(t *testing.T) {
	s, notices, _ := newTestSession(t)

	s.handle(context.Background(), bus.Command{Line: "list"})
	out := drainNotices(notices)
	if len(out) == 0 {
		t.Fatal("expected a menu notice")
	}

	menu := out[0]
	posModel := strings.Index(menu, "GT2ModelTool")
	posTexture := strings.Index(menu, "GT2TextureTool")
	posBillboard := strings.Index(menu, "GT2BillboardEditor")
	if posModel < 0 || posTexture < 0 || posBillboard < 0 {
		t.Fatalf("menu missing tools:\n%s", menu)
	}
	if !(posModel < posTexture && posTexture < posBillboard) {
		t.Errorf("tools out of order:\n%s", menu)
	}
}

func TestSelectActivatesExactlyOneTool(t *testing.T) {
	s, notices, calls := newTestSession(t)

	quit := s.handle(context.Background(), bus.Command{Line: "GT2TextureTool"})
	if quit {
		t.Fatal("selection must not end the session")
	}
	if len(*calls) != 1 || (*calls)[0] != "GT2TextureTool" {
		t.Fatalf("expected one activation of GT2TextureTool, got %v", *calls)
	}

	// After the tool exits, the menu is shown again.
	out := drainNotices(notices)
	if !noticesContain(out, "finished") {
		t.Errorf("expected finish notice, got %v", out)
	}
	if !noticesContain(out, "Tools:") {
		t.Errorf("expected menu after tool exit, got %v", out)
	}
}

func TestSelectByAliasAndNumber(t *testing.T) {
	s, _, calls := newTestSession(t)

	s.handle(context.Background(), bus.Command{Line: "texture"})
	s.handle(context.Background(), bus.Command{Line: "1"})
	s.handle(context.Background(), bus.Command{Line: "gt2billboardeditor"})

	want := []string{"GT2TextureTool", "GT2ModelTool", "GT2BillboardEditor"}
	if len(*calls) != 3 {
		t.Fatalf("expected 3 activations, got %v", *calls)
	}
	for i, id := range want {
		if (*calls)[i] != id {
			t.Errorf("activation %d: expected %s, got %s", i, id, (*calls)[i])
		}
	}
}

func TestSelectUnknownToolStaysSelectable(t *testing.T) {
	s, notices, calls := newTestSession(t)

	quit := s.handle(context.Background(), bus.Command{Line: "GT2PaintShop"})
	if quit {
		t.Fatal("unknown tool must not end the session")
	}
	if len(*calls) != 0 {
		t.Fatalf("no tool should have been activated, got %v", *calls)
	}

	out := drainNotices(notices)
	if !noticesContain(out, "Unknown tool") {
		t.Errorf("expected unknown tool notice, got %v", out)
	}
	if !noticesContain(out, "GT2ModelTool") {
		t.Errorf("expected available tools listed, got %v", out)
	}
}

func TestToolFailureReturnsToMenu(t *testing.T) {
	b := bus.New(16)
	notices := b.Subscribe()

	dir := t.TempDir()
	registry := launcher.NewRegistry()
	writeStub(t, dir, "GT2ModelTool", "echo ok")
	registry.Register(launcher.Registration{
		ID:         "GT2ModelTool",
		Name:       "GT2ModelTool",
		Executable: "GT2ModelTool",
		Activate: func(_ context.Context, _ launcher.LaunchRequest) (launcher.RunResult, error) {
			return launcher.RunResult{ExitCode: 1}, errors.New("launching GT2ModelTool: exit status 1")
		},
	})

	r := runner.New(runner.NewResolver(dir, nil, testLogger()), testLogger())
	s := NewSession(b, registry, r, testLogger())

	quit := s.handle(context.Background(), bus.Command{Line: "GT2ModelTool"})
	if quit {
		t.Fatal("a failed tool must not end the session")
	}

	out := drainNotices(notices)
	if !noticesContain(out, "failed") {
		t.Errorf("expected failure notice, got %v", out)
	}
	if !noticesContain(out, "Tools:") {
		t.Errorf("expected menu after failure, got %v", out)
	}
}

func TestQuitEndsSession(t *testing.T) {
	s, _, _ := newTestSession(t)
	if !s.handle(context.Background(), bus.Command{Line: "quit"}) {
		t.Error("expected quit to end the session")
	}
}

func TestRunWithOperationCapturesOutput(t *testing.T) {
	b := bus.New(16)
	notices := b.Subscribe()

	dir := t.TempDir()
	writeStub(t, dir, "GT2ModelTool", `echo "converted $2"`)

	r := runner.New(runner.NewResolver(dir, nil, testLogger()), testLogger())
	registry := launcher.NewRegistry()
	reg := launcher.Registration{
		ID:         "GT2ModelTool",
		Name:       "GT2ModelTool",
		Executable: "GT2ModelTool",
		Operations: []launcher.Operation{{Name: "ConvertToEditable", Args: []string{"-oe"}}},
	}
	reg.Activate = r.Activation(reg)
	registry.Register(reg)

	s := NewSession(b, registry, r, testLogger())
	s.handle(context.Background(), bus.Command{Line: "run GT2ModelTool ConvertToEditable car001.cdo"})

	out := drainNotices(notices)
	if !noticesContain(out, "converted car001.cdo") {
		t.Errorf("expected captured tool output, got %v", out)
	}
}

func TestBatchCommand(t *testing.T) {
	b := bus.New(16)
	notices := b.Subscribe()

	dir := t.TempDir()
	writeStub(t, dir, "GT2ModelTool", `echo ok`)

	r := runner.New(runner.NewResolver(dir, nil, testLogger()), testLogger())
	registry := launcher.NewRegistry()
	reg := launcher.Registration{
		ID:         "GT2ModelTool",
		Name:       "GT2ModelTool",
		Executable: "GT2ModelTool",
		Operations: []launcher.Operation{{Name: "ConvertToEditable", Args: []string{"-oe"}}},
	}
	reg.Activate = r.Activation(reg)
	registry.Register(reg)

	s := NewSession(b, registry, r, testLogger())
	s.handle(context.Background(), bus.Command{Line: "batch GT2ModelTool ConvertToEditable a.cdo b.cdo"})

	out := drainNotices(notices)
	if !noticesContain(out, "2 ok, 0 failed") {
		t.Errorf("expected batch summary, got %v", out)
	}
}

func TestBatchRejectsUnknownOperation(t *testing.T) {
	s, notices, _ := newTestSession(t)

	s.handle(context.Background(), bus.Command{Line: "batch GT2ModelTool Repaint a.cdo"})
	out := drainNotices(notices)
	if !noticesContain(out, "no operation") {
		t.Errorf("expected operation rejection, got %v", out)
	}
}

func TestProjectRoundTripThroughCommands(t *testing.T) {
	s, notices, _ := newTestSession(t)
	ctx := context.Background()
	dir := t.TempDir()
	path := filepath.Join(dir, "demio")

	// Run a tool with an input so the project has state to save.
	s.handle(ctx, bus.Command{Line: "run GT2ModelTool ConvertToEditable /cars/car001.cdo"})
	s.handle(ctx, bus.Command{Line: "project save " + path})
	drainNotices(notices)

	s.handle(ctx, bus.Command{Line: "project new"})
	if s.proj.State("GT2ModelTool").Input != "" {
		t.Fatal("project new should clear state")
	}

	s.handle(ctx, bus.Command{Line: "project open " + path + ".gtmulti"})
	if s.proj.State("GT2ModelTool").Input != "/cars/car001.cdo" {
		t.Errorf("project state not restored: %+v", s.proj.State("GT2ModelTool"))
	}
}

func TestRememberedInputFromProject(t *testing.T) {
	s, _, _ := newTestSession(t)
	ctx := context.Background()

	s.handle(ctx, bus.Command{Line: "run GT2ModelTool ConvertToEditable /cars/carobj"})
	// Second run without an input reuses the remembered one.
	if got := s.rememberedInput(ctx, "GT2ModelTool"); got != "/cars/carobj" {
		t.Errorf("expected remembered input, got %q", got)
	}
}

func TestHistoryWithStore(t *testing.T) {
	s, notices, _ := newTestSession(t)
	ctx := context.Background()

	st, err := state.NewStore(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer st.Close()
	s.SetStore(st)

	s.handle(ctx, bus.Command{Line: "GT2TextureTool"})
	drainNotices(notices)

	s.handle(ctx, bus.Command{Line: "history"})
	out := drainNotices(notices)
	if !noticesContain(out, "GT2TextureTool") {
		t.Errorf("expected run in history, got %v", out)
	}

	last, _ := st.LastTool(ctx)
	if last != "GT2TextureTool" {
		t.Errorf("expected last tool persisted, got %q", last)
	}
}

func TestStatusShowsStatsAndAvailability(t *testing.T) {
	s, notices, _ := newTestSession(t)
	ctx := context.Background()

	s.handle(ctx, bus.Command{Line: "GT2ModelTool"})
	drainNotices(notices)

	s.handle(ctx, bus.Command{Line: "status"})
	out := drainNotices(notices)
	if !noticesContain(out, "1 runs") {
		t.Errorf("expected run count in status, got %v", out)
	}
	if !noticesContain(out, "GT2BillboardEditor") {
		t.Errorf("expected availability lines, got %v", out)
	}
}

func TestExpandInputsDirectory(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "car002.cdo"), []byte("x"), 0644)
	os.WriteFile(filepath.Join(dir, "car001.cdo"), []byte("x"), 0644)
	os.MkdirAll(filepath.Join(dir, "nested"), 0755)

	files, err := expandInputs([]string{dir})
	if err != nil {
		t.Fatalf("expand: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %v", files)
	}
	if filepath.Base(files[0]) != "car001.cdo" {
		t.Errorf("expected sorted files, got %v", files)
	}
}

func TestSessionRunLoop(t *testing.T) {
	s, notices, calls := newTestSession(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	s.bus.Publish(bus.Command{Line: "GT2ModelTool", Timestamp: time.Now()})
	s.bus.Publish(bus.Command{Line: "quit", Timestamp: time.Now()})

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("session did not quit")
	}
	if len(*calls) != 1 {
		t.Errorf("expected one activation, got %v", *calls)
	}
	if !noticesContain(drainNotices(notices), "Bye.") {
		t.Error("expected goodbye notice")
	}
}

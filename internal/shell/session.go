// Package shell is the selection surface: it shows the registered
// tools, accepts a selection, hands control to the chosen tool, and
// returns to the selection state when the tool exits.
package shell

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/gtmodkit/gtmulti/internal/bus"
	"github.com/gtmodkit/gtmulti/internal/carnames"
	"github.com/gtmodkit/gtmulti/internal/launcher"
	"github.com/gtmodkit/gtmulti/internal/project"
	"github.com/gtmodkit/gtmulti/internal/runner"
	"github.com/gtmodkit/gtmulti/internal/state"
)

const defaultHistoryRows = 10

// aliases map shorthand selections to tool IDs.
var aliases = map[string]string{
	"model":     "GT2ModelTool",
	"texture":   "GT2TextureTool",
	"billboard": "GT2BillboardEditor",
}

type Session struct {
	bus         *bus.ShellBus
	registry    *launcher.Registry
	runner      *runner.Runner
	store       *state.Store // optional
	cars        *carnames.DB
	proj        *project.Project
	projPath    string
	stats       *Stats
	logger      *slog.Logger
	maxFailures int // batch auto-pause threshold
	historyCap  int // rows kept in the state db
}

func NewSession(b *bus.ShellBus, registry *launcher.Registry, r *runner.Runner, logger *slog.Logger) *Session {
	return &Session{
		bus:         b,
		registry:    registry,
		runner:      r,
		cars:        carnames.Empty(),
		proj:        project.New(),
		stats:       NewStats(),
		logger:      logger,
		maxFailures: 3,
		historyCap:  500,
	}
}

func (s *Session) SetStore(st *state.Store) {
	s.store = st
}

func (s *Session) SetCarNames(db *carnames.DB) {
	if db != nil {
		s.cars = db
	}
}

func (s *Session) SetBatchMaxFailures(n int) {
	if n > 0 {
		s.maxFailures = n
	}
}

func (s *Session) SetHistoryCap(n int) {
	if n > 0 {
		s.historyCap = n
	}
}

// Run consumes commands until the user quits, the bus closes, or the
// context is cancelled. Tool activation happens inline, so the session
// is never accepting selections while a tool holds the terminal.
func (s *Session) Run(ctx context.Context) {
	s.logger.Info("shell session started", "tools", s.registry.Count())
	s.showMenu()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("shell session stopped")
			return
		case <-s.bus.Done():
			return
		case cmd := <-s.bus.Inbound():
			if quit := s.handle(ctx, cmd); quit {
				return
			}
		}
	}
}

func (s *Session) say(format string, args ...any) {
	s.bus.Send(bus.Notice{Content: fmt.Sprintf(format, args...)})
}

func (s *Session) showMenu() {
	s.say("%s", renderMenu(s.registry.List(), s.runner.Available))
}

// handle processes one command; returns true when the session should end.
func (s *Session) handle(ctx context.Context, cmd bus.Command) bool {
	fields := strings.Fields(cmd.Line)
	if len(fields) == 0 {
		s.showMenu()
		return false
	}

	switch fields[0] {
	case "quit", "exit":
		s.say("Bye.")
		return true
	case "help":
		s.say("%s", usageText)
	case "list", "menu":
		s.showMenu()
	case "ops":
		s.showOps(fields[1:])
	case "run":
		s.runTool(ctx, fields[1:])
	case "batch":
		s.runBatch(ctx, fields[1:])
	case "cars":
		s.searchCars(strings.Join(fields[1:], " "))
	case "project":
		s.handleProject(fields[1:])
	case "history":
		s.showHistory(ctx, fields[1:])
	case "status":
		s.showStatus()
	default:
		// A bare token is a tool selection.
		s.runTool(ctx, fields)
	}
	return false
}

// resolveToolID maps user input (ID, display name, alias, or menu
// number) to a registered tool ID.
func (s *Session) resolveToolID(arg string) (string, error) {
	if _, ok := s.registry.Get(arg); ok {
		return arg, nil
	}
	if id, ok := aliases[strings.ToLower(arg)]; ok {
		return id, nil
	}

	list := s.registry.List()
	if n, err := strconv.Atoi(arg); err == nil && n >= 1 && n <= len(list) {
		return list[n-1].ID, nil
	}
	for _, reg := range list {
		if strings.EqualFold(reg.ID, arg) || strings.EqualFold(reg.Name, arg) {
			return reg.ID, nil
		}
	}

	return "", fmt.Errorf("%w: %s", launcher.ErrUnknownTool, arg)
}

func (s *Session) knownIDs() string {
	var ids []string
	for _, reg := range s.registry.List() {
		ids = append(ids, reg.ID)
	}
	return strings.Join(ids, ", ")
}

func (s *Session) showOps(args []string) {
	if len(args) == 0 {
		s.say("Usage: ops <tool>")
		return
	}
	id, err := s.resolveToolID(args[0])
	if err != nil {
		s.say("Unknown tool %q. Available: %s", args[0], s.knownIDs())
		return
	}
	reg, _ := s.registry.Get(id)
	s.say("%s", renderOps(reg))
}

// runTool activates one tool and blocks until it exits. Failures are
// reported and the session stays selectable; nothing retries.
func (s *Session) runTool(ctx context.Context, args []string) {
	if len(args) == 0 {
		s.say("Usage: run <tool> [operation] [input]")
		return
	}

	id, err := s.resolveToolID(args[0])
	if err != nil {
		s.say("Unknown tool %q. Available: %s", args[0], s.knownIDs())
		return
	}

	var operation, input string
	if len(args) > 1 {
		operation = args[1]
	}
	if len(args) > 2 {
		input = args[2]
	}
	if input == "" {
		input = s.rememberedInput(ctx, id)
	}

	reg, _ := s.registry.Get(id)
	s.say("Launching %s...", reg.Name)

	req := launcher.LaunchRequest{
		Operation: operation,
		Input:     input,
		// Operation presets are non-interactive converters; capture
		// their output. A plain launch hands over the terminal.
		Captured: operation != "",
	}

	res, runErr := s.registry.Select(ctx, id, req)
	s.record(ctx, id, operation, input, res, runErr)

	if runErr != nil {
		s.say("%s failed: %v", reg.Name, launchFailureMessage(runErr))
		s.showMenu()
		return
	}

	if req.Captured && res.Stdout != "" {
		s.say("%s", strings.TrimRight(res.Stdout, "\n"))
	}
	s.say("%s finished (%s).", reg.Name, res.Duration.Round(time.Millisecond))
	s.showMenu()
}

func (s *Session) runBatch(ctx context.Context, args []string) {
	if len(args) < 3 {
		s.say("Usage: batch <tool> <operation> <dir|files...>")
		return
	}

	id, err := s.resolveToolID(args[0])
	if err != nil {
		s.say("Unknown tool %q. Available: %s", args[0], s.knownIDs())
		return
	}
	reg, _ := s.registry.Get(id)
	operation := args[1]
	if _, ok := reg.Operation(operation); !ok {
		s.say("%s has no operation %q. See 'ops %s'.", reg.Name, operation, id)
		return
	}

	inputs, err := expandInputs(args[2:])
	if err != nil {
		s.say("Bad batch inputs: %v", err)
		return
	}
	if len(inputs) == 0 {
		s.say("Nothing to do: no input files.")
		return
	}

	s.say("Running %s %s over %d files...", reg.Name, operation, len(inputs))
	report := s.runner.RunBatch(ctx, reg, operation, inputs, s.maxFailures)
	s.say("%s", renderBatchReport(report, s.cars.Label))

	for _, item := range report.Items {
		s.record(ctx, id, operation, item.Input, item.Result, item.Err)
	}
	s.showMenu()
}

func (s *Session) searchCars(query string) {
	if strings.TrimSpace(query) == "" {
		s.say("Usage: cars <query>")
		return
	}
	if s.cars.Count() == 0 {
		s.say("Car name database is not loaded.")
		return
	}
	s.say("%s", renderCars(s.cars.Search(query)))
}

func (s *Session) handleProject(args []string) {
	if len(args) == 0 {
		s.say("Usage: project new|open <file>|save <file>")
		return
	}

	switch args[0] {
	case "new":
		s.proj = project.New()
		s.projPath = ""
		s.say("New project started.")
	case "open":
		if len(args) < 2 {
			s.say("Usage: project open <file>")
			return
		}
		p, err := project.Load(args[1])
		if err != nil {
			s.say("Failed to open project: %v", err)
			return
		}
		s.proj = p
		s.projPath = args[1]
		s.say("Project loaded from %s.", args[1])
	case "save":
		path := s.projPath
		if len(args) > 1 {
			path = args[1]
		}
		if path == "" {
			s.say("Usage: project save <file>")
			return
		}
		saved, err := project.Save(s.proj, path)
		if err != nil {
			s.say("Failed to save project: %v", err)
			return
		}
		s.projPath = saved
		s.say("Project saved to %s.", saved)
	default:
		s.say("Usage: project new|open <file>|save <file>")
	}
}

func (s *Session) showHistory(ctx context.Context, args []string) {
	if s.store == nil {
		s.say("Run history is unavailable (no state store).")
		return
	}

	limit := defaultHistoryRows
	if len(args) > 0 {
		if n, err := strconv.Atoi(args[0]); err == nil && n > 0 {
			limit = n
		}
	}

	runs, err := s.store.RecentRuns(ctx, limit)
	if err != nil {
		s.say("Failed to read history: %v", err)
		return
	}
	s.say("%s", renderHistory(runs))
}

func (s *Session) showStatus() {
	var b strings.Builder
	b.WriteString(s.stats.Summary())
	b.WriteString("\nTools:")

	for _, reg := range s.registry.List() {
		status := "ready"
		if s.runner.Health().Disabled(reg.ID) {
			status = fmt.Sprintf("disabled (%d consecutive failures)", s.runner.Health().Failures(reg.ID))
		} else if !s.runner.Available(reg) {
			status = "missing"
		}
		b.WriteString(fmt.Sprintf("\n  %-20s %s", reg.ID, status))
	}
	if s.projPath != "" {
		b.WriteString("\nProject: " + s.projPath)
	}

	s.say("%s", b.String())
}

// record updates stats, the state store, and the open project after a
// launch attempt. Store failures are logged, never surfaced: persistence
// must not break the selection loop.
func (s *Session) record(ctx context.Context, id, operation, input string, res launcher.RunResult, runErr error) {
	s.stats.Record(id, res.Duration, runErr != nil)

	if s.proj != nil && input != "" {
		s.proj.SetState(id, project.ToolState{Input: input})
	}

	if s.store == nil {
		return
	}
	run := state.Run{
		RunID:     res.RunID,
		ToolID:    id,
		Operation: operation,
		Input:     input,
		Duration:  res.Duration,
		ExitCode:  res.ExitCode,
	}
	if runErr != nil {
		run.Error = runErr.Error()
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		s.logger.Warn("recording run failed", "error", err)
	}
	if err := s.store.SetLastTool(ctx, id); err != nil {
		s.logger.Warn("saving last tool failed", "error", err)
	}
	if input != "" {
		if err := s.store.SetLastInput(ctx, id, input); err != nil {
			s.logger.Warn("saving last input failed", "error", err)
		}
	}
	if _, err := s.store.Prune(ctx, s.historyCap); err != nil {
		s.logger.Warn("pruning history failed", "error", err)
	}
}

// rememberedInput recalls the input path for a tool: the open project
// first, then the state store.
func (s *Session) rememberedInput(ctx context.Context, id string) string {
	if s.proj != nil {
		if st := s.proj.State(id); st.Input != "" {
			return st.Input
		}
	}
	if s.store != nil {
		if input, err := s.store.LastInput(ctx, id); err == nil && input != "" {
			return input
		}
	}
	return ""
}

// expandInputs turns batch arguments into a file list. A single
// directory argument expands to its files, sorted.
func expandInputs(args []string) ([]string, error) {
	if len(args) == 1 {
		info, err := os.Stat(args[0])
		if err == nil && info.IsDir() {
			entries, err := os.ReadDir(args[0])
			if err != nil {
				return nil, err
			}
			var files []string
			for _, e := range entries {
				if !e.IsDir() {
					files = append(files, filepath.Join(args[0], e.Name()))
				}
			}
			sort.Strings(files)
			return files, nil
		}
	}
	return args, nil
}

// launchFailureMessage keeps child process plumbing out of what the
// user sees.
func launchFailureMessage(err error) string {
	switch runner.ClassifyError(err) {
	case runner.ReasonNotFound:
		return err.Error() + "\nPlace the executable in the tools folder or set its path in the config."
	case runner.ReasonTimeout:
		return "the tool did not finish in time and was stopped"
	case runner.ReasonDisabled:
		return err.Error()
	default:
		return err.Error()
	}
}

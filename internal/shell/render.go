package shell

import (
	"fmt"
	"strings"
	"time"

	"github.com/gtmodkit/gtmulti/internal/carnames"
	"github.com/gtmodkit/gtmulti/internal/launcher"
	"github.com/gtmodkit/gtmulti/internal/runner"
	"github.com/gtmodkit/gtmulti/internal/state"
)

func renderMenu(regs []launcher.Registration, available func(launcher.Registration) bool) string {
	var b strings.Builder
	b.WriteString("Tools:\n")
	for i, reg := range regs {
		marker := "ready"
		if !available(reg) {
			marker = "missing"
		}
		b.WriteString(fmt.Sprintf("  %d. %-20s [%s]", i+1, reg.Name, marker))
		if reg.Summary != "" {
			b.WriteString("  " + reg.Summary)
		}
		b.WriteString("\n")
	}
	b.WriteString("Type a tool name or number to launch it, 'help' for commands.")
	return b.String()
}

func renderOps(reg launcher.Registration) string {
	if len(reg.Operations) == 0 {
		return reg.Name + " takes no operation presets; it is launched directly."
	}

	var b strings.Builder
	b.WriteString(reg.Name + " operations:\n")
	for _, op := range reg.Operations {
		b.WriteString(fmt.Sprintf("  %-28s %s", op.Name, strings.Join(op.Args, " ")))
		if op.Summary != "" {
			b.WriteString("  - " + op.Summary)
		}
		b.WriteString("\n")
	}
	b.WriteString(fmt.Sprintf("Usage: run %s <operation> [input]", reg.ID))
	return b.String()
}

func renderHistory(runs []state.Run) string {
	if len(runs) == 0 {
		return "No runs recorded yet."
	}

	var b strings.Builder
	b.WriteString("Recent runs:\n")
	for _, r := range runs {
		status := "ok"
		if r.Error != "" {
			status = "failed: " + r.Error
		} else if r.ExitCode != 0 {
			status = fmt.Sprintf("exit %d", r.ExitCode)
		}
		line := fmt.Sprintf("  %s  %-20s %-24s %s (%s)",
			r.StartedAt.Format("2006-01-02 15:04"),
			r.ToolID,
			r.Operation,
			status,
			r.Duration.Round(time.Millisecond),
		)
		b.WriteString(strings.TrimRight(line, " ") + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderCars(cars []carnames.Car) string {
	if len(cars) == 0 {
		return "No matching cars."
	}

	var b strings.Builder
	for _, c := range cars {
		b.WriteString(fmt.Sprintf("  %-8s %s\n", c.ID, c.Name))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderBatchReport(report runner.BatchReport, label func(string) string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Batch: %d ok, %d failed", report.Succeeded, report.Failed))
	if report.Paused {
		b.WriteString(" (paused after repeated failures)")
	}
	b.WriteString("\n")
	for _, item := range report.Items {
		name := item.Input
		if label != nil {
			name = label(item.Input)
		}
		if item.Err != nil {
			b.WriteString(fmt.Sprintf("  %-32s failed: %v\n", name, item.Err))
		} else {
			b.WriteString(fmt.Sprintf("  %-32s ok (%s)\n", name, item.Result.Duration.Round(time.Millisecond)))
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

const usageText = `Commands:
  <tool>|<n>                    launch a tool (modal, returns here on exit)
  run <tool> [operation] [input]  launch with an operation preset (output captured)
  ops <tool>                    show a tool's operation presets
  batch <tool> <operation> <dir|files...>  run an operation over many inputs
  cars <query>                  search the car name database
  project new|open <file>|save <file>  manage .gtmulti projects
  history [n]                   show recent runs
  status                        session stats and tool availability
  list                          show the tool menu
  quit                          leave the shell`

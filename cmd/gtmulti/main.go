package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/gtmodkit/gtmulti/internal/bootstrap"
	"github.com/gtmodkit/gtmulti/internal/bus"
	"github.com/gtmodkit/gtmulti/internal/carnames"
	"github.com/gtmodkit/gtmulti/internal/config"
	"github.com/gtmodkit/gtmulti/internal/launcher"
	"github.com/gtmodkit/gtmulti/internal/runner"
	"github.com/gtmodkit/gtmulti/internal/shell"
	"github.com/gtmodkit/gtmulti/internal/state"
)

var version = "0.12.0"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "init":
			runInit()
			return
		case "version", "--version", "-v":
			fmt.Printf("gtmulti v%s\n", version)
			return
		case "help", "--help", "-h":
			printUsage()
			return
		case "run":
			runOnce(os.Args[2:])
			return
		default:
			// fall through to interactive mode
		}
	}

	runInteractive()
}

func runInit() {
	fmt.Printf("\nGT Multi Tool Shell v%s — First-Time Setup\n", version)
	fmt.Println(strings.Repeat("=", 44))

	cfg := loadConfigOrDefault()
	logger := newLogger(cfg)

	fmt.Println("\n[1/3] Checking install...")
	info := bootstrap.Detect(cfg, logger)
	fmt.Printf("  OS: %s (%s)\n", info.OS, info.Arch)
	fmt.Printf("  Install root: %s\n", info.InstallRoot)
	for _, reg := range launcher.Builtin() {
		if path, ok := info.Found[reg.ID]; ok {
			fmt.Printf("  + %s at %s\n", reg.ID, path)
		} else {
			fmt.Printf("  - %s not found (place it in %s)\n", reg.ID, info.ToolsDir)
		}
	}
	if info.HasCarNames {
		fmt.Println("  + CarNames.json found")
	} else {
		fmt.Println("  - CarNames.json missing (car search will be disabled)")
	}

	fmt.Println("\n[2/3] Setting up workspace...")
	if err := bootstrap.EnsureWorkspace(); err != nil {
		fmt.Fprintf(os.Stderr, "  Error: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("  Workspace created at", config.Home())

	fmt.Println("\n[3/3] Writing config...")
	cfgPath := config.DefaultConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		content, err := bootstrap.GenerateDefaultConfig(info)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  Error generating config: %v\n", err)
			os.Exit(1)
		}
		if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
			fmt.Fprintf(os.Stderr, "  Error writing config: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("  Config written to", cfgPath)
	} else {
		fmt.Println("  Config already exists at", cfgPath)
	}

	fmt.Println("\nSetup complete. Run 'gtmulti' to start the shell.")
}

func runInteractive() {
	cfg := loadConfigOrDefault()
	logger := newLogger(cfg)

	registry, run := buildRegistry(cfg, logger)

	fmt.Printf("\nGT Multi Tool Shell v%s\n", version)
	fmt.Printf("   Tools: %d registered\n", registry.Count())
	fmt.Printf("   Install: %s\n", cfg.Install.Root)
	fmt.Printf("   Home: %s\n\n", config.Home())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nShutting down...")
		cancel()
	}()

	shellBus := bus.New(16)

	session := shell.NewSession(shellBus, registry, run, logger)
	session.SetBatchMaxFailures(cfg.Batch.MaxFailures)
	session.SetHistoryCap(cfg.History.MaxRows)

	store, err := state.NewStore(config.DefaultStatePath())
	if err != nil {
		logger.Warn("state store unavailable, continuing without history", "error", err)
	} else {
		session.SetStore(store)
		defer store.Close()
	}

	carsPath := filepath.Join(cfg.Install.DataDir, "CarNames.json")
	if cars, err := carnames.Load(carsPath); err != nil {
		logger.Warn("car names unavailable", "error", err)
	} else {
		session.SetCarNames(cars)
		logger.Info("car names loaded", "count", cars.Count())
	}

	// Re-probe availability when executables appear in the tools dir.
	watchIDs := make(map[string]string)
	for _, reg := range registry.List() {
		watchIDs[runner.ToolKey(reg.Executable)] = reg.ID
	}
	watcher, err := runner.WatchTools(cfg.Install.ToolsDir, watchIDs, run.Health(), logger, nil)
	if err != nil {
		logger.Warn("tools dir watcher unavailable", "error", err)
	} else {
		defer watcher.Close()
	}

	console := shell.NewConsole()
	if err := console.Start(ctx, shellBus); err != nil {
		fmt.Fprintf(os.Stderr, "Error starting console: %v\n", err)
		os.Exit(1)
	}

	session.Run(ctx)

	console.Stop()
	shellBus.Close()
}

// runOnce launches one tool non-interactively: gtmulti run <tool> [op] [input].
func runOnce(args []string) {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: gtmulti run <tool> [operation] [input]")
		os.Exit(2)
	}

	cfg := loadConfigOrDefault()
	logger := newLogger(cfg)
	registry, _ := buildRegistry(cfg, logger)

	req := launcher.LaunchRequest{}
	if len(args) > 1 {
		req.Operation = args[1]
	}
	if len(args) > 2 {
		req.Input = args[2]
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res, err := registry.Select(ctx, args[0], req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if res.ExitCode != 0 {
			os.Exit(res.ExitCode)
		}
		os.Exit(1)
	}
	fmt.Printf("%s finished in %s\n", args[0], res.Duration.Round(time.Millisecond))
}

func loadConfigOrDefault() *config.Config {
	cfgPath := config.DefaultConfigPath()
	if _, err := os.Stat(cfgPath); os.IsNotExist(err) {
		return config.Default()
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func newLogger(cfg *config.Config) *slog.Logger {
	var level slog.Level
	switch cfg.Log.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	out := os.Stderr
	if cfg.Log.File != "" {
		if f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644); err == nil {
			out = f
		}
	}

	return slog.New(slog.NewTextHandler(out, &slog.HandlerOptions{Level: level}))
}

// buildRegistry wires the builtin registrations to a runner, applying
// any tool manifests found in the tools directory.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*launcher.Registry, *runner.Runner) {
	resolver := runner.NewResolver(cfg.Install.ToolsDir, bootstrap.ToolOverrides(cfg), logger)
	run := runner.New(resolver, logger)
	run.SetExtraArgs(bootstrap.ExtraArgs(cfg))

	manifests := make(map[string]*runner.Manifest)
	registry := launcher.NewRegistry()
	for _, reg := range launcher.Builtin() {
		m, err := runner.LoadManifest(cfg.Install.ToolsDir, reg.ID)
		if err != nil {
			logger.Warn("ignoring invalid tool manifest", "tool", reg.ID, "error", err)
		} else if m != nil {
			manifests[reg.ID] = m
			logger.Info("tool manifest applied", "tool", reg.ID)
		}
		reg = m.Apply(reg)
		reg.Activate = run.Activation(reg)
		if err := registry.Register(reg); err != nil {
			fmt.Fprintf(os.Stderr, "Error registering %s: %v\n", reg.ID, err)
			os.Exit(1)
		}
	}

	// Timeout precedence: config override, then manifest, then default.
	run.SetTimeoutFunc(func(id string) time.Duration {
		if tc, ok := cfg.Tools[id]; ok && tc.Timeout != "" {
			return cfg.ToolTimeout(id)
		}
		if d := manifests[id].TimeoutDuration(); d > 0 {
			return d
		}
		return cfg.ToolTimeout(id)
	})

	return registry, run
}

func printUsage() {
	fmt.Printf("gtmulti v%s — launcher shell for the GT2 modding tools\n\n", version)
	fmt.Println("Usage:")
	fmt.Println("  gtmulti                         Start the interactive shell")
	fmt.Println("  gtmulti run <tool> [op] [input] Launch one tool and exit")
	fmt.Println("  gtmulti init                    First-time setup")
	fmt.Println("  gtmulti version                 Show version")
	fmt.Println("  gtmulti help                    Show this help")
}

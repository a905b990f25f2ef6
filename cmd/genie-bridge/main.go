// Command genie-bridge is the editor-side endpoint of the agent connection.
//
// It connects to the agent server over a persistent websocket, serves the
// editor command set (scene context, code execution, script and asset
// management) and keeps a rolling log of everything it did.
//
// Usage:
//
//	genie-bridge [flags]
//
// Flags:
//
//	-config string        Configuration file path (YAML)
//	-host string          Agent server host (overrides config)
//	-port int             Agent server port (overrides config)
//	-discover             Discover the agent server via mDNS
//	-asset-root string    Project directory served by the file store
//	-log-level string     Log level: debug, info, warn, error (default "info")
//	-protocol-log string  Write a wire-level CBOR trace to this file
//	-interactive          Enable interactive command mode
//	-auto-reconnect       Reconnect automatically after connection loss
//	-state-dir string     Directory for persistent state
//	-reset                Clear persisted state before starting
//
// Examples:
//
//	# Connect to a local agent server with interactive mode
//	genie-bridge -interactive
//
//	# Discover the agent server and reconnect on loss
//	genie-bridge -discover -auto-reconnect
//
//	# Capture a wire trace for debugging
//	genie-bridge -protocol-log /tmp/genie.cborlog -log-level debug
//
// Interactive Commands:
//
//	status              - Show connection status
//	connect             - Connect to the agent server
//	disconnect          - Disconnect from the agent server
//	call <command>      - Send a command to the agent server
//	validate <code>     - Run code through the safety gate
//	approve <code>      - Approve gated code for execution
//	exec <code>         - Execute code in the sandbox
//	log [n]             - Show recent log lines
//	quit                - Exit the bridge
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/game-genie/genie-go/cmd/genie-bridge/interactive"
	"github.com/game-genie/genie-go/pkg/bridge"
	"github.com/game-genie/genie-go/pkg/config"
	"github.com/game-genie/genie-go/pkg/discovery"
	"github.com/game-genie/genie-go/pkg/editor"
	"github.com/game-genie/genie-go/pkg/log"
	"github.com/game-genie/genie-go/pkg/logring"
	"github.com/game-genie/genie-go/pkg/persistence"
	"github.com/game-genie/genie-go/pkg/safety"
	"github.com/game-genie/genie-go/pkg/sandbox"
	"github.com/game-genie/genie-go/pkg/transport"
)

type flags struct {
	ConfigFile    string
	Host          string
	Port          int
	Discover      bool
	AssetRoot     string
	LogLevel      string
	ProtocolLog   string
	Interactive   bool
	AutoReconnect bool
	StateDir      string
	Reset         bool
}

var args flags

func init() {
	flag.StringVar(&args.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&args.Host, "host", "", "Agent server host (overrides config)")
	flag.IntVar(&args.Port, "port", 0, "Agent server port (overrides config)")
	flag.BoolVar(&args.Discover, "discover", false, "Discover the agent server via mDNS")
	flag.StringVar(&args.AssetRoot, "asset-root", "", "Project directory served by the file store")
	flag.StringVar(&args.LogLevel, "log-level", "info", "Log level: debug, info, warn, error")
	flag.StringVar(&args.ProtocolLog, "protocol-log", "", "Write a wire-level CBOR trace to this file")
	flag.BoolVar(&args.Interactive, "interactive", false, "Enable interactive command mode")
	flag.BoolVar(&args.AutoReconnect, "auto-reconnect", false, "Reconnect automatically after connection loss")
	flag.StringVar(&args.StateDir, "state-dir", "", "Directory for persistent state")
	flag.BoolVar(&args.Reset, "reset", false, "Clear persisted state before starting")
}

func main() {
	flag.Parse()

	logger := newLogger(os.Stderr, args.LogLevel)
	slog.SetDefault(logger)

	cfg, err := loadConfig()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Rolling activity log, mirrored to disk.
	activity := logring.NewBuffer(logring.DefaultCapacity)
	if cfg.LogFile != "" {
		if err := activity.MirrorToFile(cfg.LogFile); err != nil {
			logger.Warn("log mirror disabled", "path", cfg.LogFile, "error", err)
		}
		defer activity.CloseMirror()
	}

	// Safety gate with any configured extra patterns.
	gate := safety.NewGate()
	for _, p := range cfg.SafetyPatterns {
		if err := gate.AddPattern(p.Pattern, p.Reason); err != nil {
			logger.Error("invalid safety pattern", "pattern", p.Pattern, "error", err)
			os.Exit(1)
		}
	}
	overrides := safety.NewOverrideLog(logger)

	// Persisted state restores gate overrides across restarts.
	var stateStore *persistence.StateStore
	if args.StateDir != "" {
		stateStore = persistence.NewStateStore(filepath.Join(args.StateDir, "state.json"))
		if args.Reset {
			logger.Info("resetting persisted state")
			if err := stateStore.Clear(); err != nil {
				logger.Warn("failed to clear state", "error", err)
			}
		}
		state, err := stateStore.Load()
		if err != nil {
			logger.Warn("failed to load state", "error", err)
		} else if state != nil {
			overrides.Restore(state.Overrides)
			logger.Info("restored persisted state",
				"overrides", len(state.Overrides), "saved_at", state.SavedAt)
		}
	}

	executor := sandbox.NewExecutor(sandbox.DefaultRegistry(), sandbox.Config{
		Timeout:   cfg.SandboxTimeout,
		Gate:      gate,
		Overrides: overrides,
		LogBuffer: activity,
	})

	scene := editor.NewStubSceneGraph()
	handlers := &editor.Handlers{
		Scene:    scene,
		Files:    editor.NewDiskFileStore(cfg.AssetRoot),
		Executor: executor,
		Log:      activity,
	}

	var protocolLogger log.Logger
	if args.ProtocolLog != "" {
		fl, err := log.NewFileLogger(args.ProtocolLog)
		if err != nil {
			logger.Error("failed to open protocol log", "path", args.ProtocolLog, "error", err)
			os.Exit(1)
		}
		defer fl.Close()
		protocolLogger = fl
	}

	endpoint, err := resolveEndpoint(cfg)
	if err != nil {
		logger.Error("failed to resolve agent server", "error", err)
		os.Exit(1)
	}
	logger.Info("agent server endpoint", "address", endpoint)

	b := bridge.New(bridge.Config{
		Endpoint: endpoint,
		Transport: transport.Config{
			ClientName:     cfg.ClientName,
			ClientVersion:  cfg.ClientVersion,
			ConnectTimeout: cfg.ConnectTimeout,
			HealthCheck: transport.HealthCheckConfig{
				ProbeInterval:   cfg.HealthCheckInterval,
				ProbeTimeout:    transport.DefaultProbeTimeout,
				MaxMissedProbes: transport.DefaultMaxMissedProbes,
			},
		},
		AutoReconnect:  cfg.AutoReconnect,
		Logger:         logger,
		ProtocolLogger: protocolLogger,
	})

	if err := handlers.Register(b.Dispatcher()); err != nil {
		logger.Error("handler registration failed", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Connect(ctx); err != nil {
		logger.Warn("initial connect failed", "error", err)
		if !args.Interactive && !cfg.AutoReconnect {
			os.Exit(1)
		}
		// Interactive mode keeps running; 'connect' retries.
	}

	if args.Interactive {
		ic, err := interactive.New(b, interactive.Collaborators{
			Gate:      gate,
			Overrides: overrides,
			Executor:  executor,
			Activity:  activity,
			Scene:     scene,
			Endpoint:  endpoint,
		})
		if err != nil {
			logger.Error("failed to create interactive console", "error", err)
			os.Exit(1)
		}
		// Route log output through readline so it does not clobber the prompt.
		slog.SetDefault(newLogger(ic.Stdout(), args.LogLevel))
		go ic.Run(ctx, cancel)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", "signal", sig.String())
	case <-ctx.Done():
	}

	logger.Info("shutting down")

	if stateStore != nil {
		if err := stateStore.Save(&persistence.BridgeState{
			LastEndpoint: endpoint,
			Overrides:    overrides.Overrides(),
		}); err != nil {
			logger.Warn("failed to save state", "error", err)
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := b.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown incomplete", "error", err)
	}
}

// loadConfig reads the config file (when given) and applies flag overrides.
func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if args.ConfigFile != "" {
		loaded, err := config.Load(args.ConfigFile)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	if args.Host != "" {
		cfg.Host = args.Host
	}
	if args.Port != 0 {
		cfg.Port = args.Port
	}
	if args.Discover {
		cfg.Discover = true
	}
	if args.AssetRoot != "" {
		cfg.AssetRoot = args.AssetRoot
	}
	if args.AutoReconnect {
		cfg.AutoReconnect = true
	}

	return cfg, cfg.Validate()
}

// resolveEndpoint returns the agent server address, browsing mDNS when
// discovery is enabled.
func resolveEndpoint(cfg config.Config) (string, error) {
	if !cfg.Discover {
		return cfg.Address(), nil
	}

	slog.Info("discovering agent server", "service", discovery.ServiceType)
	browser := discovery.NewBrowser(discovery.BrowserConfig{})
	ctx, cancel := context.WithTimeout(context.Background(), discovery.DefaultBrowseTimeout)
	defer cancel()

	svc, err := browser.Find(ctx)
	if err != nil {
		return "", fmt.Errorf("mDNS discovery: %w", err)
	}
	slog.Info("discovered agent server", "instance", svc.InstanceName, "endpoint", svc.Endpoint())
	return svc.Endpoint(), nil
}

// newLogger builds a text slog logger at the given level.
func newLogger(w io.Writer, level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}))
}

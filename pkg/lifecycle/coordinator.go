// Package lifecycle orchestrates process bootstrap and shutdown.
//
// The Coordinator drives a linear state machine from Idle through argument
// parsing, settings loading, configuration, and subsystem startup into
// Running, then through ShuttingDown to Stopped. Shutdown may be requested
// from any goroutine at any time; a Guard ensures the teardown sequence
// runs exactly once and a Signal broadcasts the cancellation to everything
// that waits on it.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"gridhost/internal/logger"
	"gridhost/pkg/flags"
	"gridhost/pkg/settings"
)

// DefaultShutdownTimeout bounds the graceful stop of the service layer.
const DefaultShutdownTimeout = 30 * time.Second

// State is a phase of the process lifecycle. Transitions are strictly
// forward; a fatal startup error jumps directly to StateStopped.
type State int32

const (
	StateIdle State = iota
	StateParsingArgs
	StateLoadingSettings
	StateApplyingConfig
	StateStartingSubsystems
	StateRunning
	StateShuttingDown
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateParsingArgs:
		return "parsing_args"
	case StateLoadingSettings:
		return "loading_settings"
	case StateApplyingConfig:
		return "applying_config"
	case StateStartingSubsystems:
		return "starting_subsystems"
	case StateRunning:
		return "running"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Subsystem is a long-lived component started during bootstrap and stopped
// during shutdown. Stop must be safe to call even if Start failed part-way.
type Subsystem interface {
	Name() string
	Start(ctx context.Context, set *settings.Settings) error
	Stop() error
}

// Server is the service layer endpoint. Start blocks the calling goroutine
// until the server exits; Stop drains it within the context deadline.
type Server interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Port() int
}

// ServerFactory builds the service layer after configuration is applied.
// The coordinator is passed in so handlers can request shutdown.
type ServerFactory func(set *settings.Settings, co *Coordinator) (Server, error)

// Config assembles a Coordinator.
type Config struct {
	// Args is the raw argument list, excluding the program name.
	Args []string

	// SettingsPath overrides the settings document location. When empty,
	// the --settings_file flag or the compiled-in default path is used.
	SettingsPath string

	// Subsystems are started in order during bootstrap and stopped in the
	// same order during shutdown.
	Subsystems []Subsystem

	// NewServer builds the service layer. Optional.
	NewServer ServerFactory

	// ShutdownTimeout bounds the graceful stop of the service layer.
	ShutdownTimeout time.Duration
}

// Coordinator drives the process through its lifecycle states.
type Coordinator struct {
	cfg   Config
	sig   *Signal
	done  *Signal
	guard Guard
	state atomic.Int32

	runOnce sync.Once

	mu       sync.Mutex
	started  []Subsystem
	stopNext int
	store    *settings.Store
	set      *settings.Settings
}

// New creates a Coordinator in StateIdle.
func New(cfg Config) *Coordinator {
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = DefaultShutdownTimeout
	}
	return &Coordinator{cfg: cfg, sig: NewSignal(), done: NewSignal()}
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// Signal returns the cancellation signal fired when shutdown begins.
func (c *Coordinator) Signal() *Signal {
	return c.sig
}

// Settings returns the resolved settings, or nil before configuration is
// applied.
func (c *Coordinator) Settings() *settings.Settings {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.set
}

// Store returns the settings store, or nil before settings are loaded.
func (c *Coordinator) Store() *settings.Store {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.store
}

func (c *Coordinator) setState(s State) {
	c.state.Store(int32(s))
	logger.Debug("Lifecycle state changed", logger.KeyState, s.String())
}

// Run executes the full lifecycle and blocks until the process is stopped.
// It runs at most once; further calls return nil immediately.
func (c *Coordinator) Run(ctx context.Context) error {
	var err error
	c.runOnce.Do(func() {
		err = c.run(ctx)
	})
	return err
}

func (c *Coordinator) run(ctx context.Context) error {
	c.setState(StateParsingArgs)
	tbl, err := flags.Parse(c.cfg.Args)
	if err != nil {
		return c.fail(fmt.Errorf("argument parsing failed: %w", err))
	}

	c.setState(StateLoadingSettings)
	path := tbl.Get(settings.KeySettingsFile, settings.DefaultPath)
	if c.cfg.SettingsPath != "" {
		path = c.cfg.SettingsPath
	}
	store := settings.NewStore(path)
	set := store.Load()

	c.setState(StateApplyingConfig)
	if err := settings.Resolve(tbl, set); err != nil {
		return c.fail(fmt.Errorf("configuration failed: %w", err))
	}
	store.SetLocked(set.Locked)
	if err := store.Save(set); err != nil {
		// Persistence failures are not fatal; the in-memory settings stand.
		logger.Warn("Failed to persist settings", logger.KeyPath, store.Path(), logger.KeyError, err)
	}
	if err := logger.Init(logger.Config{
		Level:  set.Logging.Level,
		Format: set.Logging.Format,
		Output: set.Logging.Output,
	}); err != nil {
		logger.Warn("Failed to apply log settings", logger.KeyError, err)
	}
	set.Export()

	c.mu.Lock()
	c.store = store
	c.set = set
	c.mu.Unlock()

	if c.guard.Requested() {
		logger.Info("Shutdown requested before startup completed")
		c.finishShutdown()
		c.setState(StateStopped)
		return nil
	}

	c.setState(StateStartingSubsystems)
	for _, sub := range c.cfg.Subsystems {
		// A shutdown request may land between subsystem starts; nothing
		// further is brought up once it has.
		if c.guard.Requested() {
			break
		}
		logger.Info("Starting subsystem", "subsystem", sub.Name())
		if err := sub.Start(ctx, set); err != nil {
			startErr := fmt.Errorf("failed to start %s: %w", sub.Name(), err)
			logger.Error("Subsystem failed to start", "subsystem", sub.Name(), logger.KeyError, err)
			c.finishShutdown()
			c.setState(StateStopped)
			return startErr
		}
		c.mu.Lock()
		c.started = append(c.started, sub)
		c.mu.Unlock()
	}

	if c.guard.Requested() {
		logger.Info("Shutdown requested during startup")
		c.finishShutdown()
		c.setState(StateStopped)
		return nil
	}

	var server Server
	if c.cfg.NewServer != nil {
		server, err = c.cfg.NewServer(set, c)
		if err != nil {
			startErr := fmt.Errorf("failed to build service layer: %w", err)
			logger.Error("Service layer failed to start", logger.KeyError, err)
			c.finishShutdown()
			c.setState(StateStopped)
			return startErr
		}
	}

	// Flags nothing consumed during resolution are reported only now, so a
	// typo never blocks startup.
	for _, key := range tbl.Unread() {
		logger.Warn("Ignoring unrecognized flag", logger.KeyFlag, key, logger.KeyValue, tbl.Get(key, ""))
	}

	c.setState(StateRunning)
	logger.Info("Startup complete",
		"environment", set.Server.Environment,
		"bind_address", set.BindAddress())

	serverErr := make(chan error, 1)
	if server != nil {
		go func() {
			if err := server.Start(ctx); err != nil {
				serverErr <- err
			}
		}()
	}

	var runErr error
	select {
	case <-c.sig.Done():
	case <-ctx.Done():
		logger.Info("Context canceled, shutting down")
	case err := <-serverErr:
		logger.Error("Service layer error", logger.KeyError, err)
		runErr = err
	}

	c.finishShutdown()

	if server != nil {
		sctx, cancel := context.WithTimeout(context.Background(), c.cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Stop(sctx); err != nil {
			logger.Error("Service layer shutdown error", logger.KeyError, err)
		}
	}

	c.setState(StateStopped)
	logger.Info("Shutdown complete")
	return runErr
}

// RequestShutdown begins the shutdown sequence. Exactly one caller wins:
// it fires the cancellation signal and stops the started subsystems in
// start order, returning true once they have all stopped. Every later
// caller returns false immediately without blocking, regardless of how
// far the winner has progressed.
func (c *Coordinator) RequestShutdown() bool {
	if !c.guard.TryAcquire() {
		return false
	}

	logger.Info("Shutdown requested")
	if c.State() != StateStopped {
		c.setState(StateShuttingDown)
	}
	c.sig.Fire()
	c.stopStarted()
	c.done.Fire()
	return true
}

// finishShutdown joins the run loop with the shutdown winner: it claims
// the guard if nobody has, waits for the winner's stop sequence to
// complete, and then stops any subsystem that finished starting after the
// winner's pass. Run must not return before this does.
func (c *Coordinator) finishShutdown() {
	c.RequestShutdown()
	<-c.done.Done()
	c.stopStarted()
}

// stopStarted stops started subsystems in start order. The cursor is
// shared, so concurrent callers never stop a subsystem twice and late
// additions are picked up by whoever runs last.
func (c *Coordinator) stopStarted() {
	for {
		c.mu.Lock()
		if c.stopNext >= len(c.started) {
			c.mu.Unlock()
			return
		}
		sub := c.started[c.stopNext]
		c.stopNext++
		c.mu.Unlock()

		logger.Debug("Stopping subsystem", "subsystem", sub.Name())
		if err := sub.Stop(); err != nil {
			logger.Warn("Error stopping subsystem", "subsystem", sub.Name(), logger.KeyError, err)
		}
	}
}

func (c *Coordinator) fail(err error) error {
	logger.Error("Startup aborted", logger.KeyError, err)
	c.setState(StateStopped)
	return err
}

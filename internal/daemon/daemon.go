// Package daemon implements the acquisition orchestrator: the state machine
// that drives periodic acquisition cycles across all enabled sources, routes
// every fetched question through the similarity engine and into the
// configured sinks, and services out-of-band targeted harvests.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/lorekeep/lorekeep/internal/common"
	"github.com/lorekeep/lorekeep/internal/service"
	"github.com/lorekeep/lorekeep/internal/sink"
)

// State is the daemon lifecycle state.
type State string

// Daemon states. The daemon is created stopped, runs until paused or
// stopped, and stop is terminal until the next start.
const (
	StateStopped State = "stopped"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// Config holds configuration options for the acquisition daemon.
type Config struct {
	// BatchSize is how many questions each source is asked for per cycle.
	BatchSize int
	// SampleLimit bounds the existing-question sample pulled for matching.
	SampleLimit int
	// CycleInterval is the pause between full acquisition cycles.
	CycleInterval time.Duration
	// SourceDelay is the wait between sources within a cycle.
	SourceDelay time.Duration
	// DryRun counts questions as added without persisting anything.
	DryRun bool
	// StatsPath, when set, receives a JSON stats snapshot after each cycle
	// and on stop, for external discovery.
	StatsPath string
}

// DefaultConfig returns the default daemon configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:     10,
		SampleLimit:   200,
		CycleInterval: 5 * time.Minute,
		SourceDelay:   2 * time.Second,
	}
}

// sleepSlice bounds how long a pause or stop can go unnoticed during the
// inter-cycle wait.
const sleepSlice = time.Second

// registeredSource tracks one adapter and its enable flag.
type registeredSource struct {
	source  service.Source
	enabled bool
}

// Daemon is the acquisition orchestrator. All state transitions and source
// registry changes are serialized behind one mutex; counters live in stats
// with their own lock so harvest tasks and the cycle loop never contend on
// the state lock while processing.
type Daemon struct {
	cfg       Config
	storage   service.Storage
	matcher   service.Matcher
	file      *sink.FileWriter
	generator service.Generator
	stats     *stats

	mu         sync.Mutex
	state      State
	generation uint64
	sources    []*registeredSource
	wg         sync.WaitGroup
}

// Option configures a Daemon.
type Option func(*Daemon)

// WithStorage wires the structured store and the similarity engine used to
// gate inserts into it.
func WithStorage(storage service.Storage, matcher service.Matcher) Option {
	return func(d *Daemon) {
		d.storage = storage
		d.matcher = matcher
	}
}

// WithFileOutput wires the flat-file sink.
func WithFileOutput(w *sink.FileWriter) Option {
	return func(d *Daemon) {
		d.file = w
	}
}

// WithGenerator wires the generation-capable source used by targeted
// harvests. The generator is not part of the cycle rotation unless it is
// also registered with RegisterSource.
func WithGenerator(g service.Generator) Option {
	return func(d *Daemon) {
		d.generator = g
	}
}

// New creates a daemon in the stopped state.
func New(cfg Config, opts ...Option) *Daemon {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.SampleLimit <= 0 {
		cfg.SampleLimit = DefaultConfig().SampleLimit
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = DefaultConfig().CycleInterval
	}

	d := &Daemon{
		cfg:   cfg,
		state: StateStopped,
		stats: newStats(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RegisterSource adds a source to the cycle rotation, enabled. Sources are
// iterated in registration order.
func (d *Daemon) RegisterSource(src service.Source) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sources = append(d.sources, &registeredSource{source: src, enabled: true})
}

// EnableSource re-enables a registered source for future cycles.
func (d *Daemon) EnableSource(name string) error {
	return d.setSourceEnabled(name, true)
}

// DisableSource removes a source from future cycles. In-flight work against
// it is not interrupted.
func (d *Daemon) DisableSource(name string) error {
	return d.setSourceEnabled(name, false)
}

func (d *Daemon) setSourceEnabled(name string, enabled bool) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, rs := range d.sources {
		if rs.source.Name() == name {
			rs.enabled = enabled
			slog.Info("source toggled", "source", name, "enabled", enabled)
			return nil
		}
	}
	return fmt.Errorf("%w: source %q", common.ErrNotFound, name)
}

// State returns the current lifecycle state.
func (d *Daemon) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Start begins the acquisition loop. It is only effective from the stopped
// state; starting a running or paused daemon is a logged no-op.
func (d *Daemon) Start(ctx context.Context) {
	d.mu.Lock()
	if d.state != StateStopped {
		state := d.state
		d.mu.Unlock()
		slog.Warn("start ignored, daemon already active", "state", state)
		return
	}
	d.state = StateRunning
	d.generation++
	gen := d.generation
	d.wg.Add(1)
	d.mu.Unlock()

	d.stats.markStarted(time.Now())
	slog.Info("daemon started",
		"cycle_interval", d.cfg.CycleInterval,
		"batch_size", d.cfg.BatchSize,
		"dry_run", d.cfg.DryRun)

	go d.run(ctx, gen)
}

// Pause suspends the cycle loop at its next check point. Only effective
// while running.
func (d *Daemon) Pause() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.state != StateRunning {
		slog.Warn("pause ignored", "state", d.state)
		return
	}
	d.state = StatePaused
	slog.Info("daemon paused")
}

// Resume relaunches the cycle loop. Only effective while paused; the caller
// does not block waiting for the loop. Resuming bumps the loop generation, so
// a previous loop still suspended in a fetch when the pause landed retires at
// its next check point instead of running alongside the new one.
func (d *Daemon) Resume(ctx context.Context) {
	d.mu.Lock()
	if d.state != StatePaused {
		state := d.state
		d.mu.Unlock()
		slog.Warn("resume ignored", "state", state)
		return
	}
	d.state = StateRunning
	d.generation++
	gen := d.generation
	d.wg.Add(1)
	d.mu.Unlock()

	slog.Info("daemon resumed")
	go d.run(ctx, gen)
}

// Stop transitions to stopped from any state, flushes pending flat-file
// output, persists final statistics and logs a summary. The cycle loop
// observes the state change and exits at its next check point; no question
// is interrupted mid-processing.
func (d *Daemon) Stop() {
	d.mu.Lock()
	if d.state == StateStopped {
		d.mu.Unlock()
		slog.Warn("stop ignored, daemon not running")
		return
	}
	d.state = StateStopped
	d.mu.Unlock()

	d.flushFile()
	d.persistStats()

	snap := d.Stats()
	slog.Info("daemon stopped",
		"fetched", snap.TotalFetched,
		"added", snap.TotalAdded,
		"duplicates", snap.TotalDuplicate,
		"errors", snap.TotalErrors)
}

// Wait blocks until the cycle loop has exited. Intended for orderly process
// shutdown after Stop.
func (d *Daemon) Wait() {
	d.wg.Wait()
}

// Flush writes out pending flat-file output and the current stats snapshot.
// Used after out-of-band work on a daemon whose cycle loop is not running.
func (d *Daemon) Flush() {
	d.flushFile()
	d.persistStats()
}

// Stats returns a snapshot of the daemon's counters and per-source status.
func (d *Daemon) Stats() service.StatsSnapshot {
	startedAt, fetched, added, dupes, rateLimits, errCount, perSource := d.stats.read()

	d.mu.Lock()
	state := d.state
	type sourceStatus struct {
		name    string
		enabled bool
	}
	statuses := make([]sourceStatus, 0, len(d.sources))
	for _, rs := range d.sources {
		statuses = append(statuses, sourceStatus{name: rs.source.Name(), enabled: rs.enabled})
	}
	d.mu.Unlock()

	snap := service.StatsSnapshot{
		State:          string(state),
		StartedAt:      startedAt,
		TotalFetched:   fetched,
		TotalAdded:     added,
		TotalDuplicate: dupes,
		RateLimitHits:  rateLimits,
		TotalErrors:    errCount,
	}

	seen := make(map[string]bool, len(statuses))
	for _, st := range statuses {
		c := perSource[st.name]
		snap.Sources = append(snap.Sources, service.SourceStats{
			Name:       st.name,
			Enabled:    st.enabled,
			Fetched:    c.fetched,
			Added:      c.added,
			Duplicates: c.duplicates,
			Errors:     c.errors,
		})
		seen[st.name] = true
	}

	// Harvest-only sources have counters but no registry entry.
	var extras []string
	for name := range perSource {
		if !seen[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		c := perSource[name]
		snap.Sources = append(snap.Sources, service.SourceStats{
			Name:       name,
			Enabled:    true,
			Fetched:    c.fetched,
			Added:      c.added,
			Duplicates: c.duplicates,
			Errors:     c.errors,
		})
	}

	return snap
}

// active reports whether the loop launched at generation gen should keep
// going. A loop is retired either by leaving the running state or by a newer
// loop taking over its generation.
func (d *Daemon) active(ctx context.Context, gen uint64) bool {
	if ctx.Err() != nil {
		return false
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateRunning && d.generation == gen
}

// run is the cycle loop. It exits when the daemon leaves the running state,
// when a newer loop supersedes it, or when the context is canceled. Whatever
// the last partial cycle buffered is flushed on the way out.
func (d *Daemon) run(ctx context.Context, gen uint64) {
	defer d.wg.Done()
	defer func() {
		d.flushFile()
		d.persistStats()
	}()

	for {
		if !d.active(ctx, gen) {
			slog.Info("acquisition loop exiting", "state", d.State())
			return
		}

		d.runCycle(ctx, gen)

		if !d.sleepInSlices(ctx, gen, d.cfg.CycleInterval) {
			slog.Info("acquisition loop exiting", "state", d.State())
			return
		}
	}
}

// runCycle executes one pass over all enabled sources, then flushes the
// flat-file buffer and persists statistics.
func (d *Daemon) runCycle(ctx context.Context, gen uint64) {
	slog.Debug("starting acquisition cycle")

	for _, src := range d.enabledSources() {
		if !d.active(ctx, gen) {
			return
		}

		d.acquireFromSource(ctx, gen, src)

		if d.cfg.SourceDelay > 0 {
			// Back-pressure against upstream rate limits.
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.cfg.SourceDelay):
			}
		}
	}

	d.flushFile()
	d.persistStats()
}

// enabledSources snapshots the registry in fixed registration order.
func (d *Daemon) enabledSources() []service.Source {
	d.mu.Lock()
	defer d.mu.Unlock()

	sources := make([]service.Source, 0, len(d.sources))
	for _, rs := range d.sources {
		if rs.enabled {
			sources = append(sources, rs.source)
		}
	}
	return sources
}

// acquireFromSource fetches one batch from a source and processes it. All
// failures are isolated to this source; the cycle always continues.
func (d *Daemon) acquireFromSource(ctx context.Context, gen uint64, src service.Source) {
	name := src.Name()

	questions, err := src.Fetch(ctx, d.cfg.BatchSize)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrRateLimit):
			d.stats.recordRateLimit()
			slog.Warn("source rate limited, will retry next cycle", "source", name)
		case errors.Is(err, common.ErrMissingCredential):
			// Expected until the source is configured; not an error.
			slog.Debug("source not configured, skipping", "source", name)
		default:
			d.stats.recordError(name)
			slog.Error("source fetch failed", "source", name, "error", err)
		}
		return
	}

	if len(questions) == 0 {
		slog.Info("source returned no questions", "source", name)
		return
	}

	d.stats.recordFetched(name, len(questions))
	slog.Info("fetched questions", "source", name, "count", len(questions))

	for _, q := range questions {
		if !d.active(ctx, gen) {
			return
		}
		if _, err := d.processQuestion(ctx, q, name, src.Kind()); err != nil {
			d.stats.recordError(name)
			slog.Error("failed to process question",
				"source", name,
				"question", q.Text,
				"error", err)
		}
	}
}

// sleepInSlices waits for the full duration in short slices, re-checking the
// running state between slices. It returns false if the daemon should stop
// looping.
func (d *Daemon) sleepInSlices(ctx context.Context, gen uint64, total time.Duration) bool {
	deadline := time.Now().Add(total)
	for time.Now().Before(deadline) {
		if !d.active(ctx, gen) {
			return false
		}

		slice := sleepSlice
		if remaining := time.Until(deadline); remaining < slice {
			slice = remaining
		}
		select {
		case <-ctx.Done():
			return false
		case <-time.After(slice):
		}
	}
	return d.active(ctx, gen)
}

// flushFile flushes the flat-file buffer if a file sink is configured.
func (d *Daemon) flushFile() {
	if d.file == nil {
		return
	}
	if err := d.file.Flush(); err != nil {
		slog.Error("failed to flush output file", "path", d.file.Path(), "error", err)
	}
}

// persistStats writes the stats snapshot to the configured path.
func (d *Daemon) persistStats() {
	if d.cfg.StatsPath == "" {
		return
	}

	snap := d.Stats()
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		slog.Error("failed to encode stats", "error", err)
		return
	}
	if err := os.WriteFile(d.cfg.StatsPath, data, 0600); err != nil {
		slog.Error("failed to persist stats", "path", d.cfg.StatsPath, "error", err)
	}
}

package monitor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"datagate/internal/source"
)

// ── Source monitor ──────────────────────────────────────────
// Watches the files behind file-backed data sources. fsnotify reports
// writes and removals as they happen, and a cron sweep re-runs the
// registration-time existence check so stale sources surface even when
// no event was delivered. The registry itself is append-only, so the
// monitor only reports; it never unregisters anything.

const debounceWindow = 500 * time.Millisecond

// Event describes one observed change to a watched source file.
type Event struct {
	Source  string
	Path    string
	Removed bool
}

type Monitor struct {
	registry *source.Registry

	// OnEvent, when set, receives debounced change notifications in
	// addition to the log line. Set it before Start.
	OnEvent func(Event)

	mu          sync.Mutex
	watcher     *fsnotify.Watcher
	watchCancel context.CancelFunc
	cronSched   *cron.Cron
}

func New(reg *source.Registry) *Monitor {
	return &Monitor{registry: reg}
}

// Start arms the watchers and schedules the revalidation sweep. Each
// sweep re-arms the watchers, so sources registered after startup are
// picked up on the next tick.
func (m *Monitor) Start(cronExpr string) error {
	m.Rearm()

	c := cron.New()
	if _, err := c.AddFunc(cronExpr, func() {
		m.Sweep()
		m.Rearm()
	}); err != nil {
		return fmt.Errorf("schedule revalidation: %w", err)
	}
	c.Start()

	m.mu.Lock()
	m.cronSched = c
	m.mu.Unlock()

	log.Info().Str("schedule", cronExpr).Msg("source monitor started")
	return nil
}

// Sweep re-checks every file-backed descriptor and reports the stale
// ones. Returns how many files were missing.
func (m *Monitor) Sweep() int {
	stale := 0
	for _, d := range m.registry.List() {
		if !d.Kind.FileBacked() {
			continue
		}
		if _, err := os.Stat(d.Path()); err != nil {
			stale++
			log.Warn().
				Str("source", d.Name).
				Str("path", d.Path()).
				Msg("source file missing, reads will fail until it returns")
		}
	}
	return stale
}

// Rearm rebuilds the fsnotify watcher from the registry's current
// file-backed descriptors. Watching the parent directories rather than
// the files themselves keeps events flowing across editors that
// replace files instead of writing in place.
func (m *Monitor) Rearm() {
	m.stopWatcher()

	pathToSource := make(map[string]string)
	for _, d := range m.registry.List() {
		if !d.Kind.FileBacked() {
			continue
		}
		abs, err := filepath.Abs(d.Path())
		if err != nil {
			continue
		}
		pathToSource[abs] = d.Name
	}
	if len(pathToSource) == 0 {
		return
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("file watcher unavailable")
		return
	}

	watchedDirs := make(map[string]bool)
	for p := range pathToSource {
		dir := filepath.Dir(p)
		if watchedDirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("cannot watch directory")
			continue
		}
		watchedDirs[dir] = true
	}

	ctx, cancel := context.WithCancel(context.Background())

	m.mu.Lock()
	m.watcher = watcher
	m.watchCancel = cancel
	m.mu.Unlock()

	go m.watch(ctx, watcher, pathToSource)
	log.Info().Int("files", len(pathToSource)).Int("dirs", len(watchedDirs)).Msg("watching source files")
}

func (m *Monitor) watch(ctx context.Context, watcher *fsnotify.Watcher, pathToSource map[string]string) {
	// Debounce per source: editors fire bursts of events for one save.
	timers := make(map[string]*time.Timer)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			name, watched := pathToSource[abs]
			if !watched {
				continue
			}
			if t, exists := timers[name]; exists {
				t.Stop()
			}
			ev := Event{
				Source:  name,
				Path:    abs,
				Removed: event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename),
			}
			timers[name] = time.AfterFunc(debounceWindow, func() {
				m.report(ev)
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("file watcher error")
		}
	}
}

func (m *Monitor) report(ev Event) {
	if ev.Removed {
		log.Warn().Str("source", ev.Source).Str("path", ev.Path).Msg("source file removed")
	} else {
		log.Info().Str("source", ev.Source).Str("path", ev.Path).Msg("source file changed")
	}
	if m.OnEvent != nil {
		m.OnEvent(ev)
	}
}

func (m *Monitor) stopWatcher() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.watchCancel != nil {
		m.watchCancel()
		m.watchCancel = nil
	}
	if m.watcher != nil {
		m.watcher.Close()
		m.watcher = nil
	}
}

// Stop tears down the watcher and the cron schedule.
func (m *Monitor) Stop() {
	m.stopWatcher()

	m.mu.Lock()
	if m.cronSched != nil {
		m.cronSched.Stop()
		m.cronSched = nil
	}
	m.mu.Unlock()

	log.Info().Msg("source monitor stopped")
}

package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metals"
	"github.com/NamanSrivas/precious-metals-app/internal/metrics"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/refresh"
)

// ListScreen shows every metal and recomputes all prices once per tick.
type ListScreen struct {
	id      string
	catalog *metals.Catalog
	gen     oracle.Generator
	clock   clock.Clock
	every   time.Duration
	sched   *refresh.Scheduler
	log     *logrus.Entry
	subs    listeners

	mu    sync.RWMutex
	state model.ScreenState
	alive bool
}

// NewListScreen creates an unmounted list screen.
func NewListScreen(cat *metals.Catalog, gen oracle.Generator, opts Options) *ListScreen {
	opts = opts.withDefaults()
	id := uuid.NewString()
	l := &ListScreen{
		id:      id,
		catalog: cat,
		gen:     gen,
		clock:   opts.Clock,
		every:   opts.Interval,
		log:     logger.For("screen").WithFields(logrus.Fields{"screen": id, "kind": model.ScreenList}),
	}
	l.sched = refresh.New(opts.Interval, opts.Clock, l.tick)
	return l
}

// ID returns the instance id.
func (l *ListScreen) ID() string { return l.id }

// Mount creates a fresh state at tick 0 and starts the refresh timer.
func (l *ListScreen) Mount(ctx context.Context) error {
	l.mu.Lock()
	if l.alive {
		l.mu.Unlock()
		return ErrAlreadyMounted
	}
	l.alive = true
	l.state = l.build(0, "")
	st := l.state.Clone()
	l.mu.Unlock()

	if err := l.sched.Start(ctx); err != nil {
		l.mu.Lock()
		l.alive = false
		l.mu.Unlock()
		return fmt.Errorf("start list refresh: %w", err)
	}
	metrics.MountedScreens.WithLabelValues(string(model.ScreenList)).Inc()
	l.log.WithField("generator", l.gen.Name()).Info("list screen mounted")
	l.subs.emit(st)
	return nil
}

// Unmount stops the timer. No update is applied afterwards.
func (l *ListScreen) Unmount() {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()
		return
	}
	l.alive = false
	l.mu.Unlock()

	l.sched.Stop()
	metrics.MountedScreens.WithLabelValues(string(model.ScreenList)).Dec()
	l.log.Info("list screen unmounted")
}

// Mounted reports whether the screen is active.
func (l *ListScreen) Mounted() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.alive
}

// State returns a copy of the current state.
func (l *ListScreen) State() model.ScreenState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Clone()
}

// OnChange registers fn for state updates and returns its unsubscribe func.
func (l *ListScreen) OnChange(fn Listener) func() {
	return l.subs.add(fn)
}

// Select captures the snapshot currently displayed for code.
func (l *ListScreen) Select(code string) (model.Selection, error) {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()
		return model.Selection{}, ErrNotMounted
	}
	metal, ok := l.catalog.Lookup(code)
	if !ok {
		l.mu.Unlock()
		return model.Selection{}, fmt.Errorf("select %s: %w", code, oracle.ErrUnknownMetal)
	}
	snap := l.state.Snapshots[code]
	next := l.state.Clone()
	next.Selected = code
	l.state = next
	st := next.Clone()
	l.mu.Unlock()

	l.log.WithFields(logrus.Fields{"metal": code, "price": snap.Price}).Info("metal selected")
	l.subs.emit(st)
	return model.Selection{Metal: metal, Data: snap}, nil
}

// ClearSelection drops the selected code after the detail screen is popped.
func (l *ListScreen) ClearSelection() {
	l.mu.Lock()
	if !l.alive || l.state.Selected == "" {
		l.mu.Unlock()
		return
	}
	next := l.state.Clone()
	next.Selected = ""
	l.state = next
	st := next.Clone()
	l.mu.Unlock()

	l.subs.emit(st)
}

func (l *ListScreen) tick(context.Context) {
	l.mu.Lock()
	if !l.alive {
		l.mu.Unlock()
		return
	}
	l.state = l.build(l.state.TickCount+1, l.state.Selected)
	st := l.state.Clone()
	l.mu.Unlock()

	metrics.ScreenTicks.WithLabelValues(string(model.ScreenList)).Inc()
	l.log.WithField("tick", st.TickCount).Debug("list updated")
	l.subs.emit(st)
}

func (l *ListScreen) build(tick int, selected string) model.ScreenState {
	now := l.clock.Now()
	snaps := make(map[string]model.PriceSnapshot)
	for _, m := range l.catalog.All() {
		snap := l.gen.Generate(m, tick)
		snap.GeneratedAt = now
		snaps[m.Code] = snap
	}
	return model.ScreenState{
		ScreenID:    l.id,
		Kind:        model.ScreenList,
		TickCount:   tick,
		Snapshots:   snaps,
		Selected:    selected,
		LastUpdated: now,
		Interval:    l.every,
	}
}

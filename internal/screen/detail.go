package screen

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/alert"
	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/metrics"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/oracle"
	"github.com/NamanSrivas/precious-metals-app/internal/refresh"
)

// DetailScreen shows one metal. It starts from the snapshot captured on the
// list screen and then runs its own refresh cycle against the oracle.
type DetailScreen struct {
	id           string
	metal        model.Metal
	oracle       *oracle.Oracle
	alerter      alert.Alerter
	alertTimeout time.Duration
	clock        clock.Clock
	sched        *refresh.Scheduler
	log          *logrus.Entry
	subs         listeners

	mu    sync.RWMutex
	state model.ScreenState
	alive bool
}

// NewDetailScreen creates an unmounted detail screen seeded with sel.
func NewDetailScreen(sel model.Selection, o *oracle.Oracle, a alert.Alerter, opts Options) *DetailScreen {
	opts = opts.withDefaults()
	id := uuid.NewString()
	d := &DetailScreen{
		id:           id,
		metal:        sel.Metal,
		oracle:       o,
		alerter:      a,
		alertTimeout: opts.AlertTimeout,
		clock:        opts.Clock,
		log: logger.For("screen").WithFields(logrus.Fields{
			"screen": id, "kind": model.ScreenDetail, "metal": sel.Metal.Code,
		}),
		state: model.ScreenState{
			ScreenID:    id,
			Kind:        model.ScreenDetail,
			Snapshots:   map[string]model.PriceSnapshot{sel.Metal.Code: sel.Data},
			Selected:    sel.Metal.Code,
			LastUpdated: opts.Clock.Now(),
			Interval:    opts.Interval,
		},
	}
	d.sched = refresh.New(opts.Interval, opts.Clock, d.autoRefresh)
	return d
}

// ID returns the instance id.
func (d *DetailScreen) ID() string { return d.id }

// Metal returns the metal this screen shows.
func (d *DetailScreen) Metal() model.Metal { return d.metal }

// Mount starts the screen's own refresh timer.
func (d *DetailScreen) Mount(ctx context.Context) error {
	d.mu.Lock()
	if d.alive {
		d.mu.Unlock()
		return ErrAlreadyMounted
	}
	d.alive = true
	d.mu.Unlock()

	if err := d.sched.Start(ctx); err != nil {
		d.mu.Lock()
		d.alive = false
		d.mu.Unlock()
		return fmt.Errorf("start detail refresh: %w", err)
	}
	metrics.MountedScreens.WithLabelValues(string(model.ScreenDetail)).Inc()
	d.log.Info("detail screen mounted")
	return nil
}

// Unmount stops the timer. Results that arrive later are discarded.
func (d *DetailScreen) Unmount() {
	d.mu.Lock()
	if !d.alive {
		d.mu.Unlock()
		return
	}
	d.alive = false
	d.mu.Unlock()

	d.sched.Stop()
	metrics.MountedScreens.WithLabelValues(string(model.ScreenDetail)).Dec()
	d.log.Info("detail screen unmounted")
}

// Mounted reports whether the screen is active.
func (d *DetailScreen) Mounted() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.alive
}

// State returns a copy of the current state.
func (d *DetailScreen) State() model.ScreenState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Clone()
}

// Snapshot returns the snapshot currently displayed.
func (d *DetailScreen) Snapshot() model.PriceSnapshot {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state.Snapshots[d.metal.Code]
}

// OnChange registers fn for state updates and returns its unsubscribe func.
func (d *DetailScreen) OnChange(fn Listener) func() {
	return d.subs.add(fn)
}

// Refresh performs a manual, out-of-band price fetch. On failure the prior
// snapshot stays displayed, LastError is set and the user is alerted once.
func (d *DetailScreen) Refresh(ctx context.Context) error {
	st, err := d.update(func(s *model.ScreenState) error {
		if s.Loading {
			return ErrRefreshInProgress
		}
		s.Loading = true
		return nil
	})
	if err != nil {
		return err
	}
	d.subs.emit(st)

	snap, fetchErr := d.oracle.Try(ctx, d.metal.Code)

	st, err = d.update(func(s *model.ScreenState) error {
		s.Loading = false
		if fetchErr != nil {
			s.LastError = fetchErr.Error()
			return nil
		}
		s.Snapshots[d.metal.Code] = snap
		s.LastError = ""
		s.LastUpdated = d.clock.Now()
		return nil
	})
	if err != nil {
		d.log.Debug("manual refresh result discarded after unmount")
		return err
	}
	d.subs.emit(st)

	if fetchErr != nil {
		metrics.ManualRefreshFailures.Inc()
		d.log.WithError(fetchErr).Warn("manual refresh failed")
		go d.alert("Error", "Failed to refresh data")
		return fmt.Errorf("refresh %s: %w", d.metal.Code, fetchErr)
	}
	return nil
}

// alert delivers one alert off the caller's path within alertTimeout.
func (d *DetailScreen) alert(title, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.alertTimeout)
	defer cancel()
	if err := d.alerter.Alert(ctx, title, message); err != nil {
		d.log.WithError(err).Error("deliver alert")
	}
}

func (d *DetailScreen) autoRefresh(ctx context.Context) {
	snap := d.oracle.Fetch(ctx, d.metal.Code)

	st, err := d.update(func(s *model.ScreenState) error {
		s.Snapshots[d.metal.Code] = snap
		s.TickCount++
		s.LastError = ""
		s.LastUpdated = d.clock.Now()
		return nil
	})
	if err != nil {
		d.log.Debug("auto refresh result discarded after unmount")
		return
	}
	metrics.ScreenTicks.WithLabelValues(string(model.ScreenDetail)).Inc()
	d.subs.emit(st)
}

// update applies fn to a copy of the state and swaps it in whole.
func (d *DetailScreen) update(fn func(s *model.ScreenState) error) (model.ScreenState, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.alive {
		return model.ScreenState{}, ErrNotMounted
	}
	next := d.state.Clone()
	if err := fn(&next); err != nil {
		return model.ScreenState{}, err
	}
	d.state = next
	return next.Clone(), nil
}

package screen

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/NamanSrivas/precious-metals-app/internal/model"
	"github.com/NamanSrivas/precious-metals-app/internal/refresh"
)

var (
	ErrNotMounted        = errors.New("screen: not mounted")
	ErrAlreadyMounted    = errors.New("screen: already mounted")
	ErrRefreshInProgress = errors.New("screen: refresh already in progress")
)

// DefaultAlertTimeout bounds delivery of one manual refresh alert.
const DefaultAlertTimeout = 10 * time.Second

// Options configure the refresh cadence and clock of a screen.
type Options struct {
	Interval     time.Duration
	Clock        clock.Clock
	AlertTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Interval <= 0 {
		o.Interval = refresh.DefaultInterval
	}
	if o.AlertTimeout <= 0 {
		o.AlertTimeout = DefaultAlertTimeout
	}
	if o.Clock == nil {
		o.Clock = clock.New()
	}
	return o
}

// Listener receives a copy of the state after every update.
type Listener func(model.ScreenState)

type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]Listener
}

func (l *listeners) add(fn Listener) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = make(map[int]Listener)
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) emit(state model.ScreenState) {
	l.mu.Lock()
	fns := make([]Listener, 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	for _, fn := range fns {
		fn(state.Clone())
	}
}

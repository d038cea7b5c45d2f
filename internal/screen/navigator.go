package screen

import (
	"context"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
	"github.com/NamanSrivas/precious-metals-app/internal/model"
)

// DetailFactory builds the detail screen pushed for a selection.
type DetailFactory func(sel model.Selection) *DetailScreen

// Navigator is a two-level stack: the list screen stays mounted underneath a
// pushed detail screen, so list state survives a push/pop round trip.
type Navigator struct {
	list      *ListScreen
	newDetail DetailFactory
	log       *logrus.Entry
	subs      listeners

	mu          sync.Mutex
	ctx         context.Context
	detail      *DetailScreen
	unsubDetail func()
	unsubList   func()
}

// NewNavigator creates a navigator over list.
func NewNavigator(list *ListScreen, factory DetailFactory) *Navigator {
	return &Navigator{
		list:      list,
		newDetail: factory,
		log:       logger.For("navigator"),
	}
}

// Start mounts the list screen.
func (n *Navigator) Start(ctx context.Context) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ctx = ctx
	if n.unsubList == nil {
		n.unsubList = n.list.OnChange(n.subs.emit)
	}
	return n.list.Mount(ctx)
}

// Stop unmounts every screen.
func (n *Navigator) Stop() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.popLocked()
	n.list.Unmount()
	if n.unsubList != nil {
		n.unsubList()
		n.unsubList = nil
	}
}

// List returns the list screen.
func (n *Navigator) List() *ListScreen { return n.list }

// Detail returns the pushed detail screen, or nil.
func (n *Navigator) Detail() *DetailScreen {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.detail
}

// Current reports which screen is on top.
func (n *Navigator) Current() model.ScreenKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.detail != nil {
		return model.ScreenDetail
	}
	return model.ScreenList
}

// OnChange registers fn for updates from whichever screens are mounted.
func (n *Navigator) OnChange(fn Listener) func() {
	return n.subs.add(fn)
}

// Select captures code's current snapshot and pushes a detail screen for it.
// A previously pushed detail screen is unmounted first.
func (n *Navigator) Select(code string) (*DetailScreen, error) {
	n.mu.Lock()
	defer n.mu.Unlock()

	sel, err := n.list.Select(code)
	if err != nil {
		return nil, err
	}
	n.popLocked()

	d := n.newDetail(sel)
	unsub := d.OnChange(n.subs.emit)
	if err := d.Mount(n.ctx); err != nil {
		unsub()
		return nil, err
	}
	n.detail = d
	n.unsubDetail = unsub
	n.log.WithFields(logrus.Fields{"metal": code, "detail": d.ID()}).Info("pushed detail screen")
	n.subs.emit(d.State())
	return d, nil
}

// Back pops the detail screen. It reports false when only the list is shown.
func (n *Navigator) Back() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.detail == nil {
		return false
	}
	n.popLocked()
	n.list.ClearSelection()
	return true
}

func (n *Navigator) popLocked() {
	if n.detail == nil {
		return
	}
	n.detail.Unmount()
	if n.unsubDetail != nil {
		n.unsubDetail()
	}
	n.log.WithField("detail", n.detail.ID()).Info("popped detail screen")
	n.detail = nil
	n.unsubDetail = nil
}

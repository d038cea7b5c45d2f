package alert

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"

	"github.com/NamanSrivas/precious-metals-app/internal/logger"
)

// Alerter shows a one-time, non-fatal message to the user.
type Alerter interface {
	Alert(ctx context.Context, title, message string) error
}

// Alert is one delivered message.
type Alert struct {
	Title   string    `json:"title"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// LogAlerter writes alerts to the log and remembers the most recent one.
type LogAlerter struct {
	log *logrus.Entry

	mu   sync.Mutex
	last *Alert
	sent int
}

func NewLogAlerter() *LogAlerter {
	return &LogAlerter{log: logger.For("alert")}
}

func (a *LogAlerter) Alert(_ context.Context, title, message string) error {
	a.mu.Lock()
	a.last = &Alert{Title: title, Message: message, At: time.Now()}
	a.sent++
	a.mu.Unlock()

	a.log.WithField("title", title).Warn(message)
	return nil
}

// Last returns the most recent alert, if any.
func (a *LogAlerter) Last() (Alert, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.last == nil {
		return Alert{}, false
	}
	return *a.last, true
}

// Count returns how many alerts were delivered.
func (a *LogAlerter) Count() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sent
}

// Multi fans an alert out to several alerters. Every alerter is tried and
// their errors are combined.
type Multi []Alerter

func (m Multi) Alert(ctx context.Context, title, message string) error {
	var err error
	for _, a := range m {
		err = multierr.Append(err, a.Alert(ctx, title, message))
	}
	return err
}

package logger

import (
	"os"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
)

var (
	log  *logrus.Logger
	once sync.Once
)

// Init initializes the logger only once. Level falls back to info.
func Init(level string) {
	once.Do(func() {
		l := logrus.New()
		l.SetOutput(os.Stdout)

		if isatty.IsTerminal(os.Stdout.Fd()) {
			l.SetFormatter(&logrus.TextFormatter{
				FullTimestamp:   true,
				TimestampFormat: "15:04:05",
			})
		} else {
			l.SetFormatter(&logrus.JSONFormatter{
				TimestampFormat: "2006-01-02 15:04:05",
			})
		}

		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			lvl = logrus.InfoLevel
		}
		l.SetLevel(lvl)

		log = l
	})
}

// Get returns the singleton logger.
func Get() *logrus.Logger {
	if log == nil {
		Init(os.Getenv("LOG_LEVEL"))
	}
	return log
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return Get().WithField("component", component)
}

package poller

import (
	"sync"

	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the poller package's logger. It is a no-op logger unless
// SetLogger was called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the poller package's logger. Call it before any
// poller is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

func fdField(fd int) zap.Field {
	return zap.Int("fd", fd)
}

func errField(err error) zap.Field {
	return zap.Error(err)
}

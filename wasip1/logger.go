package wasip1

import (
	"sync"

	"github.com/foxxorcat/wazero-wasip1/wasip1/abi"
	"go.uber.org/zap"
)

var (
	logger     *zap.Logger
	loggerOnce sync.Once
)

// Logger returns the wasip1 package's logger. It is a no-op logger unless
// SetLogger was called.
func Logger() *zap.Logger {
	loggerOnce.Do(func() {
		if logger == nil {
			logger = zap.NewNop()
		}
	})
	return logger
}

// SetLogger configures the wasip1 package's logger. Call it before any
// Environ is created.
func SetLogger(l *zap.Logger) {
	logger = l
}

func fdField(fd abi.Fd) zap.Field {
	return zap.Uint32("fd", uint32(fd))
}

//go:build linux || darwin

package main

import (
	"testing"

	"github.com/foxxorcat/wazero-wasip1/config"
	"github.com/foxxorcat/wazero-wasip1/wasip1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogPreopens(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	wasip1.SetLogger(zap.New(core))
	t.Cleanup(func() { wasip1.SetLogger(zap.NewNop()) })

	host := t.TempDir()
	cfg := config.Default()
	cfg.Dirs = []string{"/data:" + host, "/data/ro:" + host + ":readonly"}
	require.NoError(t, cfg.Validate())

	env := wasip1.NewEnviron(cfg.EnvironOptions()...)
	t.Cleanup(func() { env.Close() })
	require.NoError(t, env.Init(cfg.Dirs, []string{"prog"}, nil))
	require.NoError(t, logPreopens(env, cfg))

	entries := logs.FilterMessage("preopen").AllUntimed()
	require.Len(t, entries, 2)
	fields := entries[0].ContextMap()
	assert.Equal(t, uint32(3), fields["fd"])
	assert.Equal(t, "/data", fields["guest"])
	assert.Equal(t, false, fields["readonly"])

	fields = entries[1].ContextMap()
	assert.Equal(t, uint32(4), fields["fd"])
	assert.Equal(t, "/data/ro", fields["guest"])
	assert.Equal(t, true, fields["readonly"])
}

func TestNewLogger(t *testing.T) {
	l, err := newLogger("debug")
	require.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = newLogger("warn")
	require.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.InfoLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

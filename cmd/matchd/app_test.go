package main

import (
	"context"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jonathan/resume-matcher/internal/config"
	"github.com/jonathan/resume-matcher/internal/dispatch"
	"github.com/jonathan/resume-matcher/internal/server"
)

func testConfig(t *testing.T, overrides map[string]any) *config.Config {
	t.Helper()
	cv := viper.New()
	for k, val := range overrides {
		cv.Set(k, val)
	}
	cfg, err := config.Load(cv, "")
	require.NoError(t, err)
	return cfg
}

func TestNewApp_MemoryBackends(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"queue.backend": config.BackendMemory,
		"cache.backend": config.BackendMemory,
	})

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.True(t, a.Caps.QueueAvailable)
	assert.True(t, a.Caps.CacheAvailable)
	assert.False(t, a.Caps.StoreAvailable)
	assert.Equal(t, dispatch.ModeQueued, a.Dispatcher.Mode())
	assert.Contains(t, a.Checks, server.HealthQueue)
	assert.NotContains(t, a.Checks, server.HealthStore)
	assert.ElementsMatch(t,
		[]string{"analytics", "document-processing", "match-generation", "notification"},
		a.Manager.Types())
}

func TestNewApp_NoBackendsRunsInline(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"queue.backend": config.BackendNone,
		"cache.backend": config.BackendNone,
	})

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Caps.QueueAvailable)
	assert.False(t, a.Caps.CacheAvailable)
	assert.Equal(t, dispatch.ModeInline, a.Dispatcher.Mode())
	assert.Empty(t, a.Checks)
}

func TestNewApp_RedisWithoutURLDegrades(t *testing.T) {
	cfg := testConfig(t, nil)
	require.Equal(t, config.BackendRedis, cfg.Queue.Backend)
	require.Empty(t, cfg.RedisURL)

	a, err := newApp(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	defer a.Close()

	assert.False(t, a.Caps.QueueAvailable)
	assert.False(t, a.Caps.CacheAvailable)
	assert.Equal(t, dispatch.ModeInline, a.Dispatcher.Mode())
}

func TestApp_Scheduler(t *testing.T) {
	tests := []struct {
		name      string
		overrides map[string]any
		want      []string
	}{
		{
			name:      "memory cache enables sweep",
			overrides: map[string]any{"queue.backend": config.BackendMemory, "cache.backend": config.BackendMemory},
			want:      []string{"purge", "sweep"},
		},
		{
			name: "analytics schedule",
			overrides: map[string]any{
				"queue.backend":            config.BackendMemory,
				"cache.backend":            config.BackendNone,
				"scheduler.analytics_spec": "@daily",
			},
			want: []string{"purge", "analytics"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := newApp(context.Background(), testConfig(t, tt.overrides), zap.NewNop())
			require.NoError(t, err)
			defer a.Close()

			s := a.Scheduler()
			require.NoError(t, s.Start(context.Background()))
			defer s.Stop()
			assert.Equal(t, tt.want, s.Jobs())
		})
	}
}

func TestApp_CloseIsIdempotent(t *testing.T) {
	calls := 0
	a := &App{closers: []func() error{func() error { calls++; return nil }}}
	assert.NoError(t, a.Close())
	assert.NoError(t, a.Close())
	assert.Equal(t, 1, calls)
}

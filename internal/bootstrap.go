package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/starford/haven/internal/metrics"
	"github.com/starford/haven/internal/safety"
	"github.com/starford/haven/internal/snapshot"
	"github.com/starford/haven/internal/storage"
)

var errConfigRequired = errors.New("config is required")

// runtime holds everything both entry points share.
type runtime struct {
	backend storage.Backend
	metrics *metrics.Collector
	svc     *safety.Service
}

func (a *application) newLogger(fallback io.Writer) *slog.Logger {
	out := a.logOutput
	if out == nil {
		out = fallback
	}
	return slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: a.config.App.LogLevel,
	}))
}

// bootstrap opens storage and loads both collections.
func (a *application) bootstrap(ctx context.Context, logger *slog.Logger, events safety.Events) (*runtime, error) {
	cfg := a.config

	m := metrics.New("haven")

	backend, err := storage.Open(ctx, cfg.Storage.Options(), logger)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	logger.Info("Storage opened", slog.String("driver", string(backend.Driver())))

	svc := safety.New(snapshot.NewAdapter(backend, logger, m), safety.Options{
		Logger:   logger,
		Metrics:  m,
		Events:   events,
		Notifier: a.notifier,
		Alerts:   cfg.Alerts.Dispatcher(),
	})
	svc.Initialize(ctx)

	return &runtime{backend: backend, metrics: m, svc: svc}, nil
}

// watchSlots follows external edits of the fs slot directory until ctx ends.
// It returns immediately when watching is disabled.
func (rt *runtime) watchSlots(ctx context.Context, enabled bool, logger *slog.Logger) error {
	if !enabled {
		return nil
	}
	fs, ok := rt.backend.(*storage.FS)
	if !ok {
		logger.Warn("slot watcher needs the fs driver, not starting",
			slog.String("driver", string(rt.backend.Driver())))
		return nil
	}
	return fs.Watch(ctx, logger, func(kind, key string) {
		logger.Info("Slot changed externally, reloading",
			slog.String("key", key),
			slog.String("kind", kind))
		rt.svc.Reload(ctx, key)
	})
}

func (rt *runtime) Close() error {
	return rt.backend.Close()
}

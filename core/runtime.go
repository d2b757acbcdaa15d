package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/emberlink/ember/impl"
	"github.com/emberlink/ember/perf"
	"github.com/emberlink/ember/protocol"
	"github.com/emberlink/ember/state"
	"github.com/encodeous/tint"
	slogmulti "github.com/samber/slog-multi"
)

func buildLogger(cfg state.NodeCfg, level slog.Level) (*slog.Logger, func(), error) {
	term := tint.NewHandler(os.Stderr, &tint.Options{
		Level:        level,
		AddSource:    false,
		TimeFormat:   "15:04:05",
		CustomPrefix: fmt.Sprintf("node-%d", cfg.NodeID),
	})
	if cfg.LogPath == "" {
		return slog.New(term), func() {}, nil
	}
	f, err := os.OpenFile(cfg.LogPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	handler := slogmulti.Fanout(term, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	return slog.New(handler), func() { _ = f.Close() }, nil
}

func buildStore(cfg state.NodeCfg) (state.Store, func(), error) {
	switch cfg.StoreDriver {
	case "sqlite":
		s, err := impl.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { _ = s.Close() }, nil
	default:
		s, err := impl.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	}
}

// Start runs the transport on this host until the context is cancelled or a
// shutdown signal arrives.
func Start(cfg state.NodeCfg, level slog.Level) error {
	log, closeLog, err := buildLogger(cfg, level)
	if err != nil {
		return err
	}
	defer closeLog()

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	radio, err := impl.NewUDPRadio(cfg.Listen, cfg.Peers, log)
	if err != nil {
		return err
	}

	var signer protocol.Signer
	if len(cfg.SigningKey) != 0 {
		signer, err = protocol.NewKeyedSigner(cfg.SigningKey)
		if err != nil {
			return err
		}
	}

	ctx, cancel := context.WithCancelCause(context.Background())
	defer cancel(context.Canceled)

	env := &state.Env{
		Context: ctx,
		Cancel:  cancel,
		Cfg:     cfg,
		Log:     log,
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(c)
	go func() {
		for range c {
			env.Cancel(errors.New("received shutdown signal"))
		}
	}()

	t := NewTransport(env.Cfg, radio, store, state.SystemClock{}, signer, env.Log)
	t.OnReceive(func(m protocol.Message) {
		env.Log.Info("message received", "msg", m.String())
	})
	t.Initialize()
	env.Log.Info("transport initialized, send SIGINT or Ctrl+C to exit")

	return mainLoop(env.Context, t, env.Log)
}

func mainLoop(ctx context.Context, t *Transport, log *slog.Logger) error {
	ticker := time.NewTicker(state.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			start := time.Now()
			t.Process()
			elapsed := time.Since(start)
			perf.TickLatency.Add(float64(elapsed.Microseconds()))
			if elapsed > 3*time.Second {
				log.Warn("process tick took a long time", "elapsed", elapsed)
			}
		case <-ctx.Done():
			log.Info("stopped main loop", "reason", context.Cause(ctx).Error())
			t.radio.PowerDown()
			return nil
		}
	}
}

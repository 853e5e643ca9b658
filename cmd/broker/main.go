// Command broker runs the session-register MQTT broker described in the
// project's specification: it loads a protocol config file (spec §6)
// plus an optional operational YAML file, wires up the selected session
// store, and serves connections until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/redis/go-redis/v9"

	"github.com/axgrid/broker/alog"
	"github.com/axgrid/broker/broker"
	"github.com/axgrid/broker/config"
	"github.com/axgrid/broker/hook"
	"github.com/axgrid/broker/metrics"
	"github.com/axgrid/broker/pkg/logger"
	"github.com/axgrid/broker/session"
)

func main() {
	configPath := flag.String("config", "broker.conf", "path to the broker protocol config file")
	operationalPath := flag.String("operational", "broker.yaml", "path to the optional operational config file")
	flag.Parse()

	if err := run(*configPath, *operationalPath); err != nil {
		fmt.Fprintln(os.Stderr, "broker:", err)
		os.Exit(1)
	}
}

func run(configPath, operationalPath string) error {
	cfg, err := config.LoadBrokerFile(configPath)
	if err != nil {
		return err
	}
	op, err := config.LoadOperationalFile(operationalPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(slog.LevelInfo, os.Stdout)

	if op.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: op.SentryDSN}); err != nil {
			log.Warn("sentry init failed", "err", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	store, err := openStore(cfg, op)
	if err != nil {
		return err
	}

	sink, err := alog.Open(cfg.LogPath, logMirror(cfg, log))
	if err != nil {
		return err
	}
	defer sink.Close()

	hooks := hook.NewManager()
	if op.SentryDSN != "" {
		_ = hooks.Add(hook.NewSentryHook())
	}

	reg := metrics.New()
	if op.MetricsAddr != "" {
		go func() {
			_ = http.ListenAndServe(op.MetricsAddr, reg.Handler())
		}()
	}

	b, err := broker.New(broker.Config{
		Address:  fmt.Sprintf("%s:%d", cfg.IP, cfg.Port),
		Sessions: store,
		Logger:   log,
		Metrics:  reg,
		Hooks:    hooks,
		Actions:  sink,
	})
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	log.Info("broker starting", "address", cfg.IP, "port", cfg.Port)
	return b.Run(ctx)
}

func openStore(cfg config.Broker, op config.Operational) (session.SnapshotStore, error) {
	switch op.StoreBackend {
	case "pebble":
		dir := op.PebbleDir
		if dir == "" {
			dir = cfg.DBPath
		}
		return session.NewPebbleStore(dir)
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: op.RedisAddr})
		return session.NewRedisStore(client), nil
	case "memory":
		return session.NewMemoryStore(), nil
	default:
		path := cfg.DBPath
		if path == "" {
			path = "session.snapshot"
		}
		return session.NewFileStore(path, op.SnapshotCompress), nil
	}
}

func logMirror(cfg config.Broker, log logger.Logger) logger.Logger {
	if cfg.LogInTerminal {
		return log
	}
	return nil
}

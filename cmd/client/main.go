// Command client is a small interactive-ish driver for the client
// runtime: it connects, subscribes to any filters given on the command
// line, and prints every delivered message until interrupted.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/axgrid/broker/alog"
	"github.com/axgrid/broker/client"
	"github.com/axgrid/broker/config"
	"github.com/axgrid/broker/pkg/logger"
)

func main() {
	configPath := flag.String("config", "client.conf", "path to the client protocol config file")
	address := flag.String("addr", "127.0.0.1:1883", "broker address")
	logPath := flag.String("log", "client.actions.csv", "action log path")
	subscribe := flag.String("subscribe", "", "comma-separated topic filters to subscribe on connect")
	flag.Parse()

	if err := run(*configPath, *address, *logPath, *subscribe); err != nil {
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
}

func run(configPath, address, logPath, subscribe string) error {
	cfg, err := config.LoadClientFile(configPath)
	if err != nil {
		return err
	}

	log := logger.NewSlogLogger(slog.LevelInfo, os.Stdout)
	var mirror logger.Logger
	if cfg.LogInTerminal {
		mirror = log
	}
	sink, err := alog.Open(logPath, mirror)
	if err != nil {
		return err
	}
	defer sink.Close()

	c, err := client.Dial(address, client.Config{
		ClientID:   cfg.ID,
		CleanStart: cfg.FlagCleanStart,
		KeepAlive:  cfg.KeepAlive,
		Logger:     log,
		Actions:    sink,
	})
	if err != nil {
		return err
	}
	defer c.Close()

	if subscribe != "" {
		filters := strings.Split(subscribe, ",")
		if err := c.Subscribe(filters); err != nil {
			return err
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return c.Disconnect(0)
		case msg, ok := <-c.Messages():
			if !ok {
				return nil
			}
			fmt.Printf("%s: %s\n", msg.Topic, msg.Payload)
		}
	}
}

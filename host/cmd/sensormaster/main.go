// Command sensormaster drives a sensorslave from a Linux I2C bus and serves
// the readings over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/host/v3"

	"sensorslave/host/api"
	"sensorslave/host/master"
)

func main() {
	var (
		busName  = flag.String("bus", "1", "I2C bus name or number")
		addr     = flag.Uint("addr", master.DefaultAddress, "Slave 7-bit address")
		settle   = flag.Duration("settle", master.DefaultSettle, "Delay between selection and read")
		rate     = flag.Int("rate", 500, "Maximum bus transactions per second")
		listen   = flag.String("listen", ":8080", "HTTP listen address")
		once     = flag.String("query", "", "Read one sensor as bundle/sensor and exit")
		logLevel = flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	)
	flag.Parse()

	level := slog.LevelInfo
	switch *logLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if *addr > 0x7F {
		slog.Error("address must be 7-bit", "addr", *addr)
		os.Exit(2)
	}

	if _, err := host.Init(); err != nil {
		slog.Error("periph init failed", "err", err)
		os.Exit(1)
	}
	bus, err := i2creg.Open(*busName)
	if err != nil {
		slog.Error("open i2c bus failed", "bus", *busName, "err", err)
		os.Exit(1)
	}
	defer bus.Close()
	if err := bus.SetSpeed(400 * physic.KiloHertz); err != nil {
		slog.Warn("set bus speed failed", "err", err)
	}

	dev := master.New(bus)
	dev.Configure(master.Config{Address: uint8(*addr), Settle: *settle, OpsPerSec: *rate})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once != "" {
		var bundle, sensor uint8
		if _, err := fmt.Sscanf(*once, "%d/%d", &bundle, &sensor); err != nil {
			slog.Error("query must be bundle/sensor", "query", *once)
			os.Exit(2)
		}
		v, err := dev.Query(ctx, bundle, sensor)
		if err != nil {
			slog.Error("query failed", "err", err)
			os.Exit(1)
		}
		fmt.Printf("%d/%d = 0x%02x\n", bundle, sensor, v)
		return
	}

	srv := &http.Server{
		Addr:              *listen,
		Handler:           api.NewRouter(dev, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("serving", "listen", *listen, "bus", bus.String(), "addr", fmt.Sprintf("0x%02x", *addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("http server failed", "err", err)
		os.Exit(1)
	}
}

// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// iaqd measures indoor air quality with an SGP30 and keeps its calibration
// baseline across restarts.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GermanBionicSystems/iaq/baseline"
	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/GermanBionicSystems/iaq/config"
	"github.com/GermanBionicSystems/iaq/monitor"
	"github.com/GermanBionicSystems/iaq/report"
	"github.com/GermanBionicSystems/iaq/sgp30"
	"github.com/GermanBionicSystems/iaq/sht4x"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "KEY=VALUE configuration file")
	busName    = flag.String("bus", "", "I²C bus to use, overrides I2C_BUS")
	verbose    = flag.Bool("v", false, "verbose mode")
	selfTest   = flag.Bool("selftest", false, "run the on-chip self test while probing")
)

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.Load(*configPath); err != nil {
			return nil, err
		}
	}
	if *busName != "" {
		cfg.Bus = *busName
	}
	if *verbose {
		cfg.LogLevel = log.DebugLevel
	}
	return cfg, nil
}

func reporters(cfg *config.Config, mux *http.ServeMux) (report.Multi, func(), error) {
	reps := report.Multi{report.NewLog(log.StandardLogger())}
	cleanup := func() {}

	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewBuildInfoCollector())
	metrics, err := report.NewMetrics(reg)
	if err != nil {
		return nil, cleanup, err
	}
	reps = append(reps, metrics)
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{EnableOpenMetrics: true}))

	hub := report.NewHub(log.StandardLogger())
	reps = append(reps, hub)
	mux.Handle("/ws", hub)

	if cfg.MQTTBroker != "" {
		m, client, err := report.DialMQTT(&report.MQTTOpts{
			Broker:   cfg.MQTTBroker,
			ClientID: cfg.MQTTClientID,
			Topic:    cfg.MQTTTopic,
			Retain:   true,
		})
		if err != nil {
			return nil, cleanup, err
		}
		reps = append(reps, m)
		cleanup = func() { client.Disconnect(250) }
		log.WithField("broker", cfg.MQTTBroker).Info("mqtt connected")
	}
	if cfg.ConsoleGauge {
		reps = append(reps, report.NewGauge(nil))
	}
	if cfg.PanelFile != "" {
		p, err := report.NewPanel(report.NewPNGFile(cfg.PanelFile, 250, 122), log.StandardLogger())
		if err != nil {
			return nil, cleanup, err
		}
		reps = append(reps, p)
	}
	return reps, func() {
		cleanup()
		_ = hub.Close()
	}, nil
}

func mainImpl() error {
	flag.Parse()
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)
	log.WithField("version", sgp30.Version).Info("sgp30 driver")

	t := bus.Open(&bus.Opts{Name: cfg.Bus, Speed: cfg.Speed})
	if err := t.Init(); err != nil {
		return err
	}
	defer t.Close()

	dev, err := sgp30.New(t, cfg.SGP30Addr, &sgp30.Opts{SelfTest: *selfTest})
	if err != nil {
		return err
	}

	opts := monitor.Opts{
		Period:           cfg.Period,
		ProbeBackoff:     cfg.ProbeBackoff,
		MaxProbeAttempts: cfg.MaxProbeAttempts,
		PersistEvery:     cfg.PersistEvery,
		MaxBaselineAge:   cfg.BaselineMaxAge,
		Log:              log.StandardLogger(),
	}
	if cfg.HumiditySensor == config.HumiditySHT4x {
		h, err := sht4x.New(t, cfg.SHT4xAddr)
		if err != nil {
			return err
		}
		opts.Humidity = h
		log.WithField("sensor", h).Info("humidity compensation enabled")
	}

	var store monitor.BaselineStore = baseline.NewMemory()
	if cfg.BaselineFile != "" {
		store = baseline.NewFile(cfg.BaselineFile)
	}

	mux := http.NewServeMux()
	reps, cleanup, err := reporters(cfg, mux)
	if err != nil {
		return err
	}
	defer cleanup()

	if cfg.HTTPListen != "" {
		srv := &http.Server{Addr: cfg.HTTPListen, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.WithError(err).Error("http server failed")
			}
		}()
		defer srv.Close()
		log.WithField("listen", cfg.HTTPListen).Info("serving /metrics and /ws")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	err = monitor.New(dev, store, reps, &opts).Run(ctx)
	if errors.Is(err, context.Canceled) {
		log.Info("stopped")
		return nil
	}
	return err
}

func main() {
	if err := mainImpl(); err != nil {
		log.WithError(err).Fatal("iaqd")
	}
}

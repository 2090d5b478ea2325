// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

// Package config loads the iaqd configuration from a KEY=VALUE file.
//
// Blank lines and lines starting with # are ignored. Unknown keys are an
// error. Keys that are not present keep the value from Default.
package config

import (
	"bufio"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/GermanBionicSystems/iaq/bus"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"
)

// Humidity sensor choices for HUMIDITY_SENSOR.
const (
	HumidityNone  = "none"
	HumiditySHT4x = "sht4x"
)

// Config holds all iaqd configuration values.
type Config struct {
	// I2C
	Bus   string
	Speed physic.Frequency

	// SGP30
	SGP30Addr        bus.Addr
	Period           time.Duration
	ProbeBackoff     time.Duration
	MaxProbeAttempts int
	PersistEvery     uint64
	BaselineMaxAge   time.Duration
	// BaselineFile is empty to keep the baseline in memory only.
	BaselineFile string

	// Humidity compensation
	HumiditySensor string
	SHT4xAddr      bus.Addr

	// MQTT is disabled when MQTTBroker is empty.
	MQTTBroker   string
	MQTTClientID string
	MQTTTopic    string

	// HTTPListen serves /metrics and /ws. Empty disables the server.
	HTTPListen   string
	ConsoleGauge bool
	// PanelFile is a PNG rendering of the last reading. Empty disables it.
	PanelFile string
	LogLevel  logrus.Level
}

// Default returns the configuration used for absent keys.
func Default() *Config {
	return &Config{
		SGP30Addr:      0x58,
		Period:         time.Second,
		ProbeBackoff:   time.Second,
		PersistEvery:   3600,
		BaselineMaxAge: 7 * 24 * time.Hour,
		HumiditySensor: HumidityNone,
		SHT4xAddr:      0x44,
		MQTTClientID:   "iaqd",
		MQTTTopic:      "iaq/sgp30",
		HTTPListen:     ":9130",
		LogLevel:       logrus.InfoLevel,
	}
}

// Load reads the configuration file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer f.Close()
	cfg, err := Parse(f)
	return cfg, errors.Wrap(err, path)
}

// Parse reads a configuration from r.
func Parse(r io.Reader) (*Config, error) {
	cfg := Default()
	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, errors.Errorf("invalid config line %d: %q", lineNum, line)
		}
		if err := cfg.Set(strings.TrimSpace(key), strings.TrimSpace(value)); err != nil {
			return nil, errors.Wrapf(err, "config line %d", lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "error reading config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Set sets the value of one key.
func (c *Config) Set(key, value string) error {
	var err error
	switch key {
	case "I2C_BUS":
		c.Bus = value
	case "I2C_SPEED_HZ":
		var hz uint64
		if hz, err = strconv.ParseUint(value, 10, 32); err == nil {
			c.Speed = physic.Frequency(hz) * physic.Hertz
		}
	case "SGP30_ADDR":
		c.SGP30Addr, err = parseAddr(value)
	case "PERIOD":
		c.Period, err = time.ParseDuration(value)
	case "PROBE_BACKOFF":
		c.ProbeBackoff, err = time.ParseDuration(value)
	case "MAX_PROBE_ATTEMPTS":
		c.MaxProbeAttempts, err = strconv.Atoi(value)
	case "PERSIST_EVERY":
		c.PersistEvery, err = strconv.ParseUint(value, 10, 64)
	case "BASELINE_MAX_AGE":
		c.BaselineMaxAge, err = time.ParseDuration(value)
	case "BASELINE_FILE":
		c.BaselineFile = value
	case "HUMIDITY_SENSOR":
		c.HumiditySensor = strings.ToLower(value)
	case "SHT4X_ADDR":
		c.SHT4xAddr, err = parseAddr(value)
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_TOPIC":
		c.MQTTTopic = strings.TrimSuffix(value, "/")
	case "HTTP_LISTEN":
		c.HTTPListen = value
	case "CONSOLE_GAUGE":
		c.ConsoleGauge, err = strconv.ParseBool(value)
	case "PANEL_FILE":
		c.PanelFile = value
	case "LOG_LEVEL":
		c.LogLevel, err = logrus.ParseLevel(value)
	default:
		return errors.Errorf("unknown key %q", key)
	}
	return errors.Wrapf(err, "invalid %s %q", key, value)
}

func parseAddr(s string) (bus.Addr, error) {
	v, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, err
	}
	a := bus.Addr(v)
	if !a.Valid() {
		return 0, errors.Errorf("address %s out of range", a)
	}
	return a, nil
}

// Validate checks the consistency of the configuration.
func (c *Config) Validate() error {
	if c.Period <= 0 {
		return errors.New("PERIOD must be positive")
	}
	if c.ProbeBackoff <= 0 {
		return errors.New("PROBE_BACKOFF must be positive")
	}
	if c.MaxProbeAttempts < 0 {
		return errors.New("MAX_PROBE_ATTEMPTS must not be negative")
	}
	if c.PersistEvery == 0 {
		return errors.New("PERSIST_EVERY must be at least 1")
	}
	if c.BaselineMaxAge <= 0 {
		return errors.New("BASELINE_MAX_AGE must be positive")
	}
	switch c.HumiditySensor {
	case HumidityNone, HumiditySHT4x:
	default:
		return errors.Errorf("HUMIDITY_SENSOR must be %s or %s, got %q", HumidityNone, HumiditySHT4x, c.HumiditySensor)
	}
	if c.HumiditySensor == HumiditySHT4x && c.SHT4xAddr == c.SGP30Addr {
		return errors.Errorf("SHT4X_ADDR and SGP30_ADDR are both %s", c.SGP30Addr)
	}
	if c.MQTTBroker != "" && c.MQTTTopic == "" {
		return errors.New("MQTT_TOPIC is required with MQTT_BROKER")
	}
	return nil
}

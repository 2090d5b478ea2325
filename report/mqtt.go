// Copyright 2026 The Periph Authors. All rights reserved.
// Use of this source code is governed under the Apache License, Version 2.0
// that can be found in the LICENSE file.

package report

import (
	"time"

	"github.com/GermanBionicSystems/iaq/monitor"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// MQTTOpts holds the configuration options of the MQTT reporter.
type MQTTOpts struct {
	// Broker is the broker URL, e.g. "tcp://localhost:1883".
	Broker   string
	ClientID string
	// Topic is the prefix of the "/iaq", "/raw" and "/error" topics.
	Topic string
	QoS   byte
	// Retain keeps the last reading on the broker. Errors are never
	// retained.
	Retain bool
	// Timeout bounds the wait for a publish acknowledgement. Default is 5s.
	Timeout time.Duration
	Log     logrus.FieldLogger
}

// DefaultMQTTOpts is the default MQTT configuration.
var DefaultMQTTOpts = MQTTOpts{
	Broker:   "tcp://localhost:1883",
	ClientID: "iaqd",
	Topic:    "iaq/sgp30",
	Retain:   true,
	Timeout:  5 * time.Second,
}

// Publisher is the subset of mqtt.Client used by MQTT.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// MQTT publishes every reading and error as a JSON Message.
type MQTT struct {
	c    Publisher
	opts MQTTOpts
	now  func() time.Time
}

// NewMQTT returns a reporter publishing through c.
func NewMQTT(c Publisher, opts *MQTTOpts) *MQTT {
	if opts == nil {
		opts = &DefaultMQTTOpts
	}
	o := *opts
	if o.Topic == "" {
		o.Topic = DefaultMQTTOpts.Topic
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultMQTTOpts.Timeout
	}
	if o.Log == nil {
		o.Log = logrus.StandardLogger()
	}
	return &MQTT{c: c, opts: o, now: time.Now}
}

// DialMQTT connects to the broker and returns the reporter together with the
// client, which the caller disconnects.
func DialMQTT(opts *MQTTOpts) (*MQTT, mqtt.Client, error) {
	if opts == nil {
		opts = &DefaultMQTTOpts
	}
	co := mqtt.NewClientOptions().
		AddBroker(opts.Broker).
		SetClientID(opts.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)
	client := mqtt.NewClient(co)
	if token := client.Connect(); token.WaitTimeout(30*time.Second) && token.Error() != nil {
		return nil, nil, errors.Wrapf(token.Error(), "mqtt connect %s", opts.Broker)
	}
	return NewMQTT(client, opts), client, nil
}

// ReportReading implements monitor.Reporter.
func (m *MQTT) ReportReading(r monitor.Reading) {
	m.publish(m.opts.Topic+"/"+r.Mode.String(), m.opts.Retain, NewReadingMessage(r))
}

// ReportError implements monitor.Reporter.
func (m *MQTT) ReportError(e monitor.ErrorEvent) {
	m.publish(m.opts.Topic+"/error", false, NewErrorMessage(e, m.now()))
}

// publish does not wait for the broker. Delivery failures are logged.
func (m *MQTT) publish(topic string, retain bool, msg Message) {
	t := m.c.Publish(topic, m.opts.QoS, retain, msg.marshal())
	go func() {
		if !t.WaitTimeout(m.opts.Timeout) {
			m.opts.Log.WithField("topic", topic).Warn("mqtt publish timed out")
			return
		}
		if err := t.Error(); err != nil {
			m.opts.Log.WithField("topic", topic).WithError(err).Warn("mqtt publish failed")
		}
	}()
}

var _ monitor.Reporter = &MQTT{}

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/gofrs/uuid/v5"
	"github.com/machbase/neo-fusion/mods/logging"
	gometrics "github.com/rcrowley/go-metrics"
)

// Client is the part of paho.Client used by the Publisher.
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload any) paho.Token
	Disconnect(quiesce uint)
	IsConnected() bool
}

// Publisher sends records to an MQTT broker.
// It is not safe for concurrent use.
type Publisher struct {
	log     logging.Log
	conf    Config
	client  Client
	encoder Encoder

	published gometrics.Counter
	failed    gometrics.Counter
	sentBytes gometrics.Counter
}

type Option func(*Publisher)

// WithClient replaces the paho client built from the configuration.
func WithClient(c Client) Option {
	return func(p *Publisher) { p.client = c }
}

func NewPublisher(conf Config, opts ...Option) (*Publisher, error) {
	if err := conf.normalize(); err != nil {
		return nil, err
	}
	enc, err := NewEncoder(conf.Format, conf.Measurement)
	if err != nil {
		return nil, err
	}
	if conf.ClientID == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return nil, fmt.Errorf("telemetry: client id, %w", err)
		}
		conf.ClientID = "fusion-" + id.String()
	}
	p := &Publisher{
		log:       logging.GetLog("fusion-telemetry"),
		conf:      conf,
		encoder:   enc,
		published: gometrics.NewCounter(),
		failed:    gometrics.NewCounter(),
		sentBytes: gometrics.NewCounter(),
	}
	for _, o := range opts {
		o(p)
	}
	if p.client == nil {
		cfg := paho.NewClientOptions()
		cfg.SetCleanSession(true)
		cfg.SetProtocolVersion(4)
		cfg.SetConnectRetry(false)
		cfg.SetAutoReconnect(true)
		cfg.SetKeepAlive(30 * time.Second)
		cfg.AddBroker(conf.Broker)
		cfg.SetClientID(conf.ClientID)
		if len(conf.Username) > 0 {
			cfg.SetUsername(conf.Username)
		}
		if len(conf.Password) > 0 {
			cfg.SetPassword(conf.Password)
		}
		p.client = paho.NewClient(cfg)
	}
	return p, nil
}

func (p *Publisher) Config() Config { return p.conf }

// Connect waits for the broker, at most Timeout.
func (p *Publisher) Connect(ctx context.Context) error {
	if p.client.IsConnected() {
		return nil
	}
	if err := p.wait(ctx, p.client.Connect()); err != nil {
		return fmt.Errorf("telemetry: connect %s, %w", p.conf.Broker, err)
	}
	p.log.Infof("connected %s as %s", p.conf.Broker, p.conf.ClientID)
	return nil
}

// Publish encodes r and sends it to the configured topic.
func (p *Publisher) Publish(ctx context.Context, r *Record) error {
	payload, err := p.encoder.Encode(r)
	if err != nil {
		p.failed.Inc(1)
		return fmt.Errorf("telemetry: encode, %w", err)
	}
	if err := p.wait(ctx, p.client.Publish(p.conf.Topic, p.conf.QoS, false, payload)); err != nil {
		p.failed.Inc(1)
		p.log.Warnf("publish %s, %s", p.conf.Topic, err.Error())
		return fmt.Errorf("telemetry: publish %s, %w", p.conf.Topic, err)
	}
	p.published.Inc(1)
	p.sentBytes.Inc(int64(len(payload)))
	if p.log.TraceEnabled() {
		p.log.Tracef("published %s %d bytes t=%g", p.conf.Topic, len(payload), r.Time)
	}
	return nil
}

func (p *Publisher) Close() {
	if p.client.IsConnected() {
		p.client.Disconnect(250)
	}
	p.log.Debugf("closed, published:%d failed:%d bytes:%d",
		p.published.Count(), p.failed.Count(), p.sentBytes.Count())
}

type Stats struct {
	Published int64 `json:"published"`
	Failed    int64 `json:"failed"`
	Bytes     int64 `json:"bytes"`
}

func (p *Publisher) Stats() Stats {
	return Stats{
		Published: p.published.Count(),
		Failed:    p.failed.Count(),
		Bytes:     p.sentBytes.Count(),
	}
}

var ErrTimeout = errors.New("timed out")

func (p *Publisher) wait(ctx context.Context, tok paho.Token) error {
	timer := time.NewTimer(p.conf.Timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-timer.C:
		return ErrTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

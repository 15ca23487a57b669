// Package kafka builds broker connections for the event producers.
//
// SASL/PLAIN over TLS is used when an API key and secret are configured
// (managed clusters); plain TCP otherwise (local development).
package kafka

import (
	"context"
	"crypto/tls"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/segmentio/kafka-go/sasl/plain"
	"go.uber.org/zap"

	"github.com/siriusuniversity/report-backend/internal/config"
)

const (
	dialTimeout  = 10 * time.Second
	pingAttempts = 3
	pingDelay    = 2 * time.Second
)

// ErrNoBrokers is returned when the configuration lists no broker
var ErrNoBrokers = errors.New("no kafka brokers configured")

func secured(cfg config.KafkaConfig) bool {
	return cfg.APIKey != "" && cfg.APISecret != ""
}

// NewDialer returns a dialer honoring the credentials in cfg
func NewDialer(cfg config.KafkaConfig) *kafka.Dialer {
	d := &kafka.Dialer{
		Timeout:   dialTimeout,
		DualStack: true,
	}
	if secured(cfg) {
		d.SASLMechanism = plain.Mechanism{Username: cfg.APIKey, Password: cfg.APISecret}
		d.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return d
}

// NewTransport returns the writer transport matching NewDialer
func NewTransport(cfg config.KafkaConfig) *kafka.Transport {
	t := &kafka.Transport{
		DialTimeout: dialTimeout,
	}
	if secured(cfg) {
		t.SASL = plain.Mechanism{Username: cfg.APIKey, Password: cfg.APISecret}
		t.TLS = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	return t
}

// Ping dials the first broker, retrying a few times
func Ping(ctx context.Context, cfg config.KafkaConfig, log *zap.Logger) error {
	if len(cfg.Brokers) == 0 {
		return ErrNoBrokers
	}
	dialer := NewDialer(cfg)

	var err error
	for i := 1; i <= pingAttempts; i++ {
		var conn *kafka.Conn
		conn, err = dialer.DialContext(ctx, "tcp", cfg.Brokers[0])
		if err == nil {
			return conn.Close()
		}
		log.Warn("kafka connection attempt failed",
			zap.Int("attempt", i), zap.String("broker", cfg.Brokers[0]), zap.Error(err))
		if i < pingAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(pingDelay):
			}
		}
	}
	return err
}

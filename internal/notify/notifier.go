// Package notify delivers qualifying alerts to external channels. Delivery
// is best effort: per-channel failures are logged and never propagate back
// into alert state.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/smtp"
	"sync"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/stayflow/opsdash/internal/model"
)

// NATSNotifier publishes alerts to JetStream subjects alert.<category>, so
// downstream consumers (chat bridges, webhooks) can subscribe per category.
type NATSNotifier struct {
	logger *zap.Logger
	js     nats.JetStreamContext
}

// NewNATSNotifier ensures the ALERTS stream exists and returns a publisher.
func NewNATSNotifier(logger *zap.Logger, js nats.JetStreamContext) (*NATSNotifier, error) {
	_, err := js.StreamInfo("ALERTS")
	if err != nil {
		if err != nats.ErrStreamNotFound {
			return nil, fmt.Errorf("failed to get stream info: %w", err)
		}
		_, err = js.AddStream(&nats.StreamConfig{
			Name:     "ALERTS",
			Subjects: []string{"alert.*"},
			Storage:  nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create stream: %w", err)
		}
	}
	return &NATSNotifier{
		logger: logger.Named("nats-notifier"),
		js:     js,
	}, nil
}

// Send publishes one alert.
func (n *NATSNotifier) Send(_ context.Context, a model.Alert) error {
	data, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("failed to marshal alert: %w", err)
	}

	if _, err := n.js.Publish("alert."+string(a.Category), data); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	n.logger.Info("Alert published",
		zap.String("id", a.ID),
		zap.String("category", string(a.Category)),
		zap.String("severity", string(a.Severity)))
	return nil
}

// EmailConfig holds SMTP settings for the email channel
type EmailConfig struct {
	Host       string   `mapstructure:"host"`
	Port       int      `mapstructure:"port"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	From       string   `mapstructure:"from"`
	Recipients []string `mapstructure:"recipients"`
}

// EmailNotifier sends alerts to the on-call mailbox.
type EmailNotifier struct {
	logger *zap.Logger
	config EmailConfig

	// sendMail is injectable for testing
	sendMail func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmailNotifier creates an SMTP-backed notifier.
func NewEmailNotifier(logger *zap.Logger, config EmailConfig) *EmailNotifier {
	return &EmailNotifier{
		logger:   logger.Named("email-notifier"),
		config:   config,
		sendMail: smtp.SendMail,
	}
}

// Send delivers one alert by email.
func (n *EmailNotifier) Send(_ context.Context, a model.Alert) error {
	if len(n.config.Recipients) == 0 {
		return fmt.Errorf("no email recipients configured")
	}

	auth := smtp.PlainAuth("",
		n.config.Username,
		n.config.Password,
		n.config.Host)

	msg := fmt.Sprintf("From: %s\r\n"+
		"To: %s\r\n"+
		"Subject: [%s] %s\r\n"+
		"Content-Type: text/plain; charset=UTF-8\r\n"+
		"\r\n"+
		"%s\r\n",
		n.config.From,
		n.config.Recipients[0],
		a.Severity,
		a.Title,
		a.Message)

	addr := fmt.Sprintf("%s:%d", n.config.Host, n.config.Port)
	if err := n.sendMail(addr, auth, n.config.From, n.config.Recipients, []byte(msg)); err != nil {
		return fmt.Errorf("failed to send alert email: %w", err)
	}
	return nil
}

// Channel is one delivery mechanism behind the fan-out notifier.
type Channel interface {
	Send(ctx context.Context, a model.Alert) error
}

// Multi fans an alert out to every channel concurrently. It always returns
// nil; per-channel failures are logged here and go no further.
type Multi struct {
	logger   *zap.Logger
	channels []namedChannel
}

type namedChannel struct {
	name string
	ch   Channel
}

// NewMulti builds a fan-out notifier over named channels.
func NewMulti(logger *zap.Logger) *Multi {
	return &Multi{logger: logger.Named("notifier")}
}

// Add registers a channel.
func (m *Multi) Add(name string, ch Channel) {
	m.channels = append(m.channels, namedChannel{name: name, ch: ch})
}

// Send implements the notifier contract over all channels.
func (m *Multi) Send(ctx context.Context, a model.Alert) error {
	var wg sync.WaitGroup
	for _, ch := range m.channels {
		wg.Add(1)
		go func(ch namedChannel) {
			defer wg.Done()
			if err := ch.ch.Send(ctx, a); err != nil {
				m.logger.Error("Channel delivery failed",
					zap.String("channel", ch.name),
					zap.String("alert_id", a.ID),
					zap.Error(err))
			}
		}(ch)
	}
	wg.Wait()
	return nil
}

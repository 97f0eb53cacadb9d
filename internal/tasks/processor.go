package tasks

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/mitchellh/mapstructure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"campusbus/identity/internal/service"
)

var ErrMissingToken = errors.New("notification carries no token")

type ResetNotification struct {
	ID        string `mapstructure:"id"`
	Type      string `mapstructure:"type"`
	UserID    string `mapstructure:"userId"`
	Email     string `mapstructure:"email"`
	Name      string `mapstructure:"name"`
	Token     string `mapstructure:"token"`
	ExpiresAt string `mapstructure:"expiresAt"`
}

type ResetLink struct {
	To        string
	Name      string
	URL       string
	ExpiresAt string
}

// Deliverer sends a reset link to its recipient.
type Deliverer interface {
	Deliver(ctx context.Context, link ResetLink) error
}

// LogDeliverer writes links to the log instead of sending mail.
type LogDeliverer struct {
	Logger zerolog.Logger
}

func (d LogDeliverer) Deliver(_ context.Context, link ResetLink) error {
	d.Logger.Info().
		Str("to", link.To).
		Str("name", link.Name).
		Str("reset_url", link.URL).
		Str("expires_at", link.ExpiresAt).
		Msg("password reset link")
	return nil
}

type Processor struct {
	resetURL  string
	deliverer Deliverer
	logger    zerolog.Logger
}

func NewProcessor(resetURL string, deliverer Deliverer, logger zerolog.Logger) *Processor {
	return &Processor{
		resetURL:  resetURL,
		deliverer: deliverer,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload ResetNotification
	if err := mapstructure.Decode(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case service.EventPasswordResetRequested:
		return p.handleResetRequested(ctx, payload)
	default:
		p.logger.Warn().Str("type", payload.Type).Str("message_id", msg.ID).Msg("unknown notification type")
		return nil
	}
}

func (p *Processor) handleResetRequested(ctx context.Context, payload ResetNotification) error {
	if payload.Token == "" {
		return ErrMissingToken
	}

	link, err := p.ResetLink(payload.Token)
	if err != nil {
		return err
	}

	return p.deliverer.Deliver(ctx, ResetLink{
		To:        payload.Email,
		Name:      payload.Name,
		URL:       link,
		ExpiresAt: payload.ExpiresAt,
	})
}

// ResetLink appends token to the configured reset page URL.
func (p *Processor) ResetLink(token string) (string, error) {
	u, err := url.Parse(p.resetURL)
	if err != nil {
		return "", fmt.Errorf("parse reset url: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

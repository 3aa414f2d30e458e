package dispatch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"emergency-service/internal/config"
	"emergency-service/internal/emergency"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
	"emergency-service/internal/providers"
)

// Channel names.
const (
	ChannelEmail    = "email"
	ChannelTelegram = "telegram"
)

// ReasonTransportUnavailable marks a dispatch degraded by transport failure.
const ReasonTransportUnavailable = "transport_unavailable"

// Provider sends one composed alert over a single channel.
type Provider func(ctx context.Context, recipients []string, subject, body string) error

// OutboxStore persists degraded deliveries for retry.
type OutboxStore interface {
	EnqueueOutbox(ctx context.Context, m models.OutboxMessage) error
	DueOutbox(ctx context.Context, limit int) ([]models.OutboxMessage, error)
	MarkOutboxSent(ctx context.Context, id string) error
	MarkOutboxRetry(ctx context.Context, id string, nextAttempt time.Time, lastErr string) error
	MarkOutboxFailed(ctx context.Context, id, lastErr string) error
}

// Dispatcher sends emergency alerts over the configured channels. Transport
// errors never propagate: the emergency record is the durable source of
// truth and notification is an enhancement, so a failed send is absorbed,
// reported in the result, and queued in the outbox for retry.
type Dispatcher struct {
	providerFuncs map[string]Provider
	outbox        OutboxStore
	logger        *logging.Logger
	cfg           config.Config
}

// New constructs a Dispatcher. The telegram channel is enabled only when a
// bot token is configured; email is always attempted.
func New(cfg config.Config, logger *logging.Logger, outbox OutboxStore) *Dispatcher {
	d := &Dispatcher{
		outbox: outbox,
		logger: logger,
		cfg:    cfg,
	}
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			return providers.SendEmail(ctx, d.cfg, recipients, subject, body)
		},
	}
	if cfg.Telegram.BotToken != "" {
		d.providerFuncs[ChannelTelegram] = func(ctx context.Context, recipients []string, subject, body string) error {
			return providers.SendTelegram(ctx, d.cfg, logger, subject, body)
		}
	}
	return d
}

// Dispatch composes and sends the alert for e to recipients on every
// configured channel. Channels that fail are queued in the outbox; the
// result reports degraded delivery instead of an error.
func (d *Dispatcher) Dispatch(ctx context.Context, e models.Emergency, recipients []string) emergency.DispatchResult {
	subject, body := Compose(e, time.Now())

	degraded := false
	for channel, send := range d.providerFuncs {
		if err := send(ctx, recipients, subject, body); err != nil {
			degraded = true
			d.logger.Errorf("Dispatch via %s failed for emergency %s: %v", channel, e.ID, err)
			d.enqueueRetry(ctx, e.ID, channel, recipients, subject, body, err)
			continue
		}
		d.logger.Infof("Dispatched %s alert for emergency %s to %d recipients", channel, e.ID, len(recipients))
	}

	if degraded {
		return emergency.DispatchResult{Delivered: false, Reason: ReasonTransportUnavailable}
	}
	return emergency.DispatchResult{Delivered: true}
}

// enqueueRetry writes a pending outbox row so the workers can retry the
// failed channel. An enqueue failure only costs the retry, not the trigger.
func (d *Dispatcher) enqueueRetry(ctx context.Context, emergencyID, channel string, recipients []string, subject, body string, cause error) {
	if d.outbox == nil {
		return
	}
	now := time.Now().UTC()
	m := models.OutboxMessage{
		ID:            uuid.NewString(),
		EmergencyID:   emergencyID,
		Channel:       channel,
		Recipients:    recipients,
		Subject:       subject,
		Body:          body,
		Status:        models.OutboxPending,
		NextAttemptAt: now.Add(d.cfg.Outbox.RetryDelay),
		LastError:     cause.Error(),
		CreatedAt:     now,
	}
	if err := d.outbox.EnqueueOutbox(ctx, m); err != nil {
		d.logger.Errorf("Outbox enqueue failed for emergency %s via %s: %v", emergencyID, channel, err)
	}
}

// Compose builds the alert subject and body for an emergency.
func Compose(e models.Emergency, now time.Time) (subject, body string) {
	subject = fmt.Sprintf("EMERGENCY SOS ALERT - %s", now.Format("3:04:05 PM"))
	body = fmt.Sprintf(
		"IMMEDIATE RESPONSE REQUIRED\n\n"+
			"Type: %s\n"+
			"Location: %s\n"+
			"Patient Status: %s\n"+
			"Device ID: %s\n"+
			"Time: %s\n\n"+
			"Respond immediately to coordinate emergency assistance.",
		e.Type,
		e.Location,
		e.PatientStatus,
		e.DeviceID,
		now.Format("Jan 2, 2006 3:04:05 PM"),
	)
	return subject, body
}

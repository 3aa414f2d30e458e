package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"emergency-service/internal/config"
	"emergency-service/internal/logging"
	"emergency-service/internal/models"
	"emergency-service/internal/store/memory"
)

func testConfig() config.Config {
	var cfg config.Config
	cfg.Outbox.QueueSize = 16
	cfg.Outbox.MaxWorkers = 1
	cfg.Outbox.MaxAttempts = 3
	cfg.Outbox.RetryDelay = time.Second
	cfg.Outbox.PollInterval = time.Second
	return cfg
}

func testEmergency() models.Emergency {
	return models.Emergency{
		ID:            "em-1",
		DeviceID:      "dev-1",
		Type:          models.DefaultEmergencyType,
		Location:      "Main St",
		PatientStatus: models.DefaultPatientStatus,
	}
}

func TestCompose(t *testing.T) {
	now := time.Date(2025, time.March, 9, 14, 30, 5, 0, time.UTC)
	subject, body := Compose(testEmergency(), now)

	assert.Equal(t, "EMERGENCY SOS ALERT - 2:30:05 PM", subject)
	assert.Contains(t, body, "IMMEDIATE RESPONSE REQUIRED")
	assert.Contains(t, body, "Type: CPR Required")
	assert.Contains(t, body, "Location: Main St")
	assert.Contains(t, body, "Patient Status: Critical")
	assert.Contains(t, body, "Device ID: dev-1")
	assert.Contains(t, body, "Mar 9, 2025 2:30:05 PM")
}

func TestDispatchDelivered(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	var got []string
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			got = recipients
			return nil
		},
	}

	res := d.Dispatch(context.Background(), testEmergency(), []string{"r1@x", "r2@x"})
	assert.True(t, res.Delivered)
	assert.Empty(t, res.Reason)
	assert.Equal(t, []string{"r1@x", "r2@x"}, got)
	assert.Empty(t, store.Outbox())
}

func TestDispatchDegradedEnqueuesOutbox(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			return errors.New("smtp down")
		},
	}

	res := d.Dispatch(context.Background(), testEmergency(), []string{"r1@x"})
	assert.False(t, res.Delivered)
	assert.Equal(t, ReasonTransportUnavailable, res.Reason)

	queued := store.Outbox()
	require.Len(t, queued, 1)
	assert.Equal(t, "em-1", queued[0].EmergencyID)
	assert.Equal(t, ChannelEmail, queued[0].Channel)
	assert.Equal(t, []string{"r1@x"}, queued[0].Recipients)
	assert.Equal(t, models.OutboxPending, queued[0].Status)
	assert.Equal(t, "smtp down", queued[0].LastError)
}

// The email provider degrades, not errors out, when SMTP is unconfigured:
// the trigger path must keep working in offline mode.
func TestDispatchUnconfiguredTransportDegrades(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)

	res := d.Dispatch(context.Background(), testEmergency(), []string{"r1@x"})
	assert.False(t, res.Delivered)
	assert.Equal(t, ReasonTransportUnavailable, res.Reason)
	assert.Len(t, store.Outbox(), 1)
}

func TestOutboxDeliverSuccess(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			return nil
		},
	}
	w := NewOutboxWorker(d, store)

	m := models.OutboxMessage{
		ID:          "ob-1",
		EmergencyID: "em-1",
		Channel:     ChannelEmail,
		Recipients:  []string{"r1@x"},
		Status:      models.OutboxPending,
		Attempts:    1,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.EnqueueOutbox(context.Background(), m))
	w.deliver(m)

	queued := store.Outbox()
	require.Len(t, queued, 1)
	assert.Equal(t, models.OutboxSent, queued[0].Status)
}

func TestOutboxDeliverReschedulesUnderCap(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			return errors.New("still down")
		},
	}
	w := NewOutboxWorker(d, store)

	m := models.OutboxMessage{
		ID:          "ob-1",
		EmergencyID: "em-1",
		Channel:     ChannelEmail,
		Recipients:  []string{"r1@x"},
		Status:      models.OutboxPending,
		Attempts:    1,
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.EnqueueOutbox(context.Background(), m))
	w.deliver(m)

	queued := store.Outbox()
	require.Len(t, queued, 1)
	assert.Equal(t, models.OutboxPending, queued[0].Status)
	assert.Equal(t, "still down", queued[0].LastError)
	assert.True(t, queued[0].NextAttemptAt.After(time.Now().UTC()))
}

func TestOutboxDeliverFailsAtCap(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	d.providerFuncs = map[string]Provider{
		ChannelEmail: func(ctx context.Context, recipients []string, subject, body string) error {
			return errors.New("still down")
		},
	}
	w := NewOutboxWorker(d, store)

	m := models.OutboxMessage{
		ID:          "ob-1",
		EmergencyID: "em-1",
		Channel:     ChannelEmail,
		Recipients:  []string{"r1@x"},
		Status:      models.OutboxPending,
		Attempts:    3, // at MaxAttempts
		CreatedAt:   time.Now().UTC(),
	}
	require.NoError(t, store.EnqueueOutbox(context.Background(), m))
	w.deliver(m)

	queued := store.Outbox()
	require.Len(t, queued, 1)
	assert.Equal(t, models.OutboxFailed, queued[0].Status)
}

func TestClaimDueFeedsWorkers(t *testing.T) {
	store := memory.New()
	d := New(testConfig(), logging.Discard(), store)
	w := NewOutboxWorker(d, store)

	due := models.OutboxMessage{
		ID:            "ob-due",
		EmergencyID:   "em-1",
		Channel:       ChannelEmail,
		Recipients:    []string{"r1@x"},
		Status:        models.OutboxPending,
		NextAttemptAt: time.Now().UTC().Add(-time.Minute),
		CreatedAt:     time.Now().UTC(),
	}
	future := due
	future.ID = "ob-future"
	future.NextAttemptAt = time.Now().UTC().Add(time.Hour)

	require.NoError(t, store.EnqueueOutbox(context.Background(), due))
	require.NoError(t, store.EnqueueOutbox(context.Background(), future))

	w.claimDue()

	select {
	case m := <-w.tasks:
		assert.Equal(t, "ob-due", m.ID)
		assert.Equal(t, 1, m.Attempts)
	default:
		t.Fatal("expected a claimed message on the task channel")
	}
	select {
	case m := <-w.tasks:
		t.Fatalf("unexpected second claim: %s", m.ID)
	default:
	}
}

package dispatch

import (
	"context"
	"sync"
	"time"

	"emergency-service/internal/models"
	"emergency-service/internal/utils"
)

// OutboxWorker drains due outbox messages through the dispatcher's
// providers with exponential backoff, up to the configured attempt cap.
type OutboxWorker struct {
	dispatcher *Dispatcher
	store      OutboxStore
	tasks      chan models.OutboxMessage
	ctx        context.Context
	cancel     context.CancelFunc
	wg         *sync.WaitGroup
}

// NewOutboxWorker constructs an OutboxWorker over the dispatcher's channels.
func NewOutboxWorker(d *Dispatcher, store OutboxStore) *OutboxWorker {
	ctx, cancel := context.WithCancel(context.Background())
	return &OutboxWorker{
		dispatcher: d,
		store:      store,
		tasks:      make(chan models.OutboxMessage, d.cfg.Outbox.QueueSize),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start launches the poller and the delivery worker pool.
func (w *OutboxWorker) Start(wg *sync.WaitGroup) {
	w.wg = wg
	for i := 0; i < w.dispatcher.cfg.Outbox.MaxWorkers; i++ {
		w.wg.Add(1)
		go w.worker(i)
	}
	w.wg.Add(1)
	go w.poll()
}

// Stop cancels the poller and workers.
func (w *OutboxWorker) Stop() {
	w.cancel()
}

// poll periodically claims due messages and feeds them to the workers.
func (w *OutboxWorker) poll() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.dispatcher.cfg.Outbox.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			w.dispatcher.logger.Infof("Outbox poller stopped")
			return
		case <-ticker.C:
			w.claimDue()
		}
	}
}

// claimDue fetches one batch of due messages.
func (w *OutboxWorker) claimDue() {
	due, err := w.store.DueOutbox(w.ctx, w.dispatcher.cfg.Outbox.QueueSize)
	if err != nil {
		w.dispatcher.logger.Errorf("Outbox claim failed: %v", err)
		return
	}
	for _, m := range due {
		select {
		case w.tasks <- m:
		case <-w.ctx.Done():
			return
		}
	}
}

// worker delivers claimed messages until cancelled.
func (w *OutboxWorker) worker(id int) {
	defer w.wg.Done()
	for {
		select {
		case <-w.ctx.Done():
			w.dispatcher.logger.Infof("Outbox worker %d stopped", id)
			return
		case m := <-w.tasks:
			w.deliver(m)
		}
	}
}

// deliver retries one message on its channel and records the outcome.
// DueOutbox already counted this attempt.
func (w *OutboxWorker) deliver(m models.OutboxMessage) {
	send, ok := w.dispatcher.providerFuncs[m.Channel]
	if !ok {
		w.dispatcher.logger.Errorf("Outbox message %s has unknown channel %s", m.ID, m.Channel)
		_ = w.store.MarkOutboxFailed(w.ctx, m.ID, "unknown channel "+m.Channel)
		return
	}

	err := send(w.ctx, m.Recipients, m.Subject, m.Body)
	if err == nil {
		if err := w.store.MarkOutboxSent(w.ctx, m.ID); err != nil {
			w.dispatcher.logger.Errorf("Outbox mark sent failed for %s: %v", m.ID, err)
		}
		w.dispatcher.logger.Infof("Outbox message %s delivered via %s (attempt %d)", m.ID, m.Channel, m.Attempts)
		return
	}

	if m.Attempts >= w.dispatcher.cfg.Outbox.MaxAttempts {
		w.dispatcher.logger.Errorf("Outbox message %s failed permanently after %d attempts: %v", m.ID, m.Attempts, err)
		_ = w.store.MarkOutboxFailed(w.ctx, m.ID, err.Error())
		return
	}

	next := time.Now().UTC().Add(utils.Backoff(w.dispatcher.cfg.Outbox.RetryDelay, m.Attempts))
	w.dispatcher.logger.Warnf("Outbox message %s attempt %d failed, retrying at %s: %v", m.ID, m.Attempts, next.Format(time.RFC3339), err)
	if err := w.store.MarkOutboxRetry(w.ctx, m.ID, next, err.Error()); err != nil {
		w.dispatcher.logger.Errorf("Outbox reschedule failed for %s: %v", m.ID, err)
	}
}

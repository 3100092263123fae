// Package mailer renders and delivers the transactional emails of the auth flow.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/easystock/app/observability/metrics"
)

var ErrOutboxClosed = errors.New("mail outbox is closed")

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	Subject string
	HTML    string
	Text    string
}

// Sender delivers a single message synchronously.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

const defaultQueueSize = 256

// Outbox delivers messages in the background with a bounded number of workers.
// Enqueue never waits for delivery; failures are logged and counted.
type Outbox struct {
	sender  Sender
	logger  *slog.Logger
	timeout time.Duration
	queue   chan queued
	g       errgroup.Group

	mu     sync.RWMutex
	closed bool
}

type queued struct {
	ctx context.Context
	msg Message
}

func NewOutbox(sender Sender, logger *slog.Logger, workers int, timeout time.Duration) *Outbox {
	if workers < 1 {
		workers = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	o := &Outbox{
		sender:  sender,
		logger:  logger,
		timeout: timeout,
		queue:   make(chan queued, defaultQueueSize),
	}
	for i := 0; i < workers; i++ {
		o.g.Go(o.work)
	}
	return o
}

// Enqueue schedules msg for delivery. The request context's values are kept
// but its cancellation is not, so delivery outlives the HTTP response.
func (o *Outbox) Enqueue(ctx context.Context, msg Message) error {
	o.mu.RLock()
	defer o.mu.RUnlock()
	if o.closed {
		return ErrOutboxClosed
	}

	item := queued{ctx: context.WithoutCancel(ctx), msg: msg}
	select {
	case o.queue <- item:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("enqueue mail: %w", ctx.Err())
	}
}

func (o *Outbox) work() error {
	for item := range o.queue {
		o.deliver(item)
	}
	return nil
}

func (o *Outbox) deliver(item queued) {
	ctx, cancel := context.WithTimeout(item.ctx, o.timeout)
	defer cancel()

	start := time.Now()
	err := o.sender.Send(ctx, item.msg)
	m := metrics.Get()
	m.MailDeliverySeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		m.MailDeliveriesTotal.Add(ctx, 1, metrics.Outcome("failure"))
		o.logger.ErrorContext(ctx, "Failed to deliver email",
			slog.String("subject", item.msg.Subject),
			slog.Any("error", err),
		)
		return
	}
	m.MailDeliveriesTotal.Add(ctx, 1, metrics.Outcome("success"))
	o.logger.InfoContext(ctx, "Email delivered", slog.String("subject", item.msg.Subject))
}

// Close stops accepting messages and waits for queued ones to be delivered.
func (o *Outbox) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	close(o.queue)
	o.mu.Unlock()
	return o.g.Wait()
}

// Mailer composes the auth emails and hands them to an Outbox.
type Mailer struct {
	outbox *Outbox
}

func New(outbox *Outbox) *Mailer {
	return &Mailer{outbox: outbox}
}

func (m *Mailer) SendVerificationEmail(ctx context.Context, to, name, link string) error {
	msg, err := Compose(KindVerifyEmail, to, name, link)
	if err != nil {
		return err
	}
	return m.outbox.Enqueue(ctx, msg)
}

func (m *Mailer) SendPasswordResetEmail(ctx context.Context, to, name, link string) error {
	msg, err := Compose(KindResetPassword, to, name, link)
	if err != nil {
		return err
	}
	return m.outbox.Enqueue(ctx, msg)
}

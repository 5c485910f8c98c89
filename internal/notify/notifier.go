// Package notify implements the durable notification queue. Every
// notification is persisted as a pending log row before it is handed to the
// in-memory dispatch queue, so a crash, a full queue, or a transport outage
// never loses a request: the recovery pass requeues whatever is still
// pending. Delivery is at-least-once; a row requeued while its first copy
// is still in flight may be sent twice.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mwhitlock/tasktrack-api/internal/domain"
	"github.com/mwhitlock/tasktrack-api/internal/platform/mailer"
	"github.com/mwhitlock/tasktrack-api/internal/store"
)

// Config holds configuration for the notifier.
type Config struct {
	// QueueSize is the buffer size of the in-memory dispatch queue.
	QueueSize int

	// RecoveryInterval is how often the recovery pass scans for pending
	// rows. If zero, defaults to 5 minutes.
	RecoveryInterval time.Duration

	// RecoveryMinAge is the minimum age a pending row must reach before
	// the periodic pass requeues it. Young rows are usually already in
	// the queue; the age gate keeps the pass from double-sending them.
	RecoveryMinAge time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize:        256,
		RecoveryInterval: 5 * time.Minute,
		RecoveryMinAge:   10 * time.Minute,
	}
}

// Notifier owns the notification log and its delivery worker.
type Notifier struct {
	logs       store.NotificationLogStore
	transport  mailer.Transport
	queue      chan *domain.NotificationLog
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
	config     Config
	logger     *slog.Logger
}

// New creates a Notifier. If logger is nil, a default logger will be used.
func New(logs store.NotificationLogStore, transport mailer.Transport, config Config, logger *slog.Logger) *Notifier {
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultConfig().QueueSize
	}
	if config.RecoveryInterval == 0 {
		config.RecoveryInterval = DefaultConfig().RecoveryInterval
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Notifier{
		logs:       logs,
		transport:  transport,
		queue:      make(chan *domain.NotificationLog, config.QueueSize),
		ctx:        ctx,
		cancelFunc: cancel,
		config:     config,
		logger:     logger.With(slog.String("component", "notifier")),
	}
}

// Enqueue persists a pending notification and hands it to the dispatch
// queue. It never blocks: when the queue is full the row simply stays
// pending and the recovery pass picks it up later. The returned log row
// carries the generated id.
func (n *Notifier) Enqueue(ctx context.Context, subject, body string, toEmail *string) (*domain.NotificationLog, error) {
	entry, err := domain.NewNotificationLog(subject, body, toEmail)
	if err != nil {
		return nil, err
	}

	// Durable record first. Only after the row exists may the in-memory
	// queue see it, otherwise a crash between the two steps would lose
	// the notification.
	if err := n.logs.Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to persist notification: %w", err)
	}

	select {
	case n.queue <- entry:
	default:
		n.logger.Warn("dispatch queue full, leaving notification pending",
			slog.Int64("notification_id", entry.ID),
			slog.String("subject", entry.Subject))
	}

	return entry, nil
}

// Start recovers pending rows from previous runs and launches the delivery
// worker and the periodic recovery pass.
func (n *Notifier) Start() error {
	if err := n.recover(); err != nil {
		return fmt.Errorf("failed to recover pending notifications: %w", err)
	}

	n.wg.Add(1)
	go n.worker()

	n.wg.Add(1)
	go n.recoveryMonitor()

	return nil
}

// Stop shuts down the notifier and waits for in-flight deliveries.
// Undelivered rows stay pending and are recovered on the next start.
func (n *Notifier) Stop() {
	n.cancelFunc()
	n.wg.Wait()
}

// recover requeues every pending row regardless of age. Runs once at
// startup before the worker begins, so nothing is in flight yet.
func (n *Notifier) recover() error {
	pending, err := n.logs.FindPending(n.ctx, 0)
	if err != nil {
		return err
	}

	n.logger.Info("recovering pending notifications", slog.Int("count", len(pending)))

	n.requeue(pending)
	return nil
}

// recoveryMonitor periodically requeues pending rows that are old enough to
// have fallen out of the dispatch queue.
func (n *Notifier) recoveryMonitor() {
	defer n.wg.Done()

	ticker := time.NewTicker(n.config.RecoveryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.ctx.Done():
			return
		case <-ticker.C:
			pending, err := n.logs.FindPending(n.ctx, n.config.RecoveryMinAge)
			if err != nil {
				n.logger.Error("recovery scan failed", slog.String("error", err.Error()))
				continue
			}
			if len(pending) > 0 {
				n.logger.Info("requeueing stale pending notifications",
					slog.Int("count", len(pending)))
				n.requeue(pending)
			}
		}
	}
}

func (n *Notifier) requeue(entries []*domain.NotificationLog) {
	for _, entry := range entries {
		select {
		case n.queue <- entry:
		default:
			n.logger.Warn("dispatch queue full during requeue",
				slog.Int64("notification_id", entry.ID))
			return
		}
	}
}

// worker drains the dispatch queue. A failed delivery marks the row failed
// and moves on; the worker itself never exits on delivery errors.
func (n *Notifier) worker() {
	defer n.wg.Done()

	n.logger.Debug("starting delivery worker")

	for {
		select {
		case <-n.ctx.Done():
			n.logger.Debug("stopping delivery worker")
			return
		case entry := <-n.queue:
			n.deliver(entry)
		}
	}
}

func (n *Notifier) deliver(entry *domain.NotificationLog) {
	ctx := context.Background()
	log := n.logger.With(slog.Int64("notification_id", entry.ID))

	// A row requeued after another worker pass already delivered it shows
	// up here non-pending; skip instead of double-sending.
	current, err := n.logs.GetByID(ctx, entry.ID)
	if err != nil {
		log.Error("failed to load notification before delivery", slog.String("error", err.Error()))
		return
	}
	if current.Status != domain.NotificationStatusPending {
		log.Debug("skipping already settled notification",
			slog.String("status", string(current.Status)))
		return
	}

	err = n.transport.Send(ctx, mailer.Message{
		To:      entry.ToEmail,
		Subject: entry.Subject,
		Body:    entry.Body,
	})
	if err != nil {
		log.Warn("notification delivery failed", slog.String("error", err.Error()))
		if markErr := n.logs.MarkFailed(ctx, entry.ID, err.Error()); markErr != nil {
			log.Error("failed to mark notification failed", slog.String("error", markErr.Error()))
		}
		return
	}

	if err := n.logs.MarkSent(ctx, entry.ID, time.Now().UTC()); err != nil {
		log.Error("failed to mark notification sent", slog.String("error", err.Error()))
		return
	}

	log.Info("notification delivered", slog.String("subject", entry.Subject))
}

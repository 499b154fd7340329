package worker

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spec-kit/ticket-router/internal/classifier"
	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/domain"
	apperrors "github.com/spec-kit/ticket-router/pkg/util/errorutil"
)

// ClassificationSink receives classifier results.
type ClassificationSink interface {
	OnClassificationUpdate(ctx context.Context, ticketID string, result domain.Classification) error
}

// Job is one ticket waiting for classification.
type Job struct {
	TicketID    string
	Subject     string
	Description string
	Metadata    map[string]any
}

// ClassificationWorker classifies tickets in the background and reports each
// result to the sink. Results are delivered through the sink's own per-ticket
// locking, so workers never write ticket or agent state directly.
type ClassificationWorker struct {
	classifier classifier.Classifier
	sink       ClassificationSink
	jobs       chan Job
	workers    int
	timeout    time.Duration
	logger     *zap.Logger
}

// NewClassificationWorker builds a worker pool. A nil classifier uses classifier.Fallback.
func NewClassificationWorker(c classifier.Classifier, sink ClassificationSink, cfg config.ClassificationConfig, logger *zap.Logger) *ClassificationWorker {
	if c == nil {
		c = classifier.Fallback{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = 1
	}
	size := cfg.QueueSize
	if size <= 0 {
		size = 1
	}
	return &ClassificationWorker{
		classifier: c,
		sink:       sink,
		jobs:       make(chan Job, size),
		workers:    workers,
		timeout:    cfg.Timeout(),
		logger:     logger,
	}
}

// Submit enqueues a ticket without blocking. It returns false when the queue is full;
// the ticket keeps its current classification and routing.
func (w *ClassificationWorker) Submit(ticket *domain.Ticket) bool {
	job := Job{
		TicketID:    ticket.ID,
		Subject:     ticket.Subject,
		Description: ticket.Description,
		Metadata: map[string]any{
			"customer_id": ticket.CustomerID,
			"source":      ticket.Source,
		},
	}
	if ticket.OrderID != nil {
		job.Metadata["order_id"] = *ticket.OrderID
	}
	select {
	case w.jobs <- job:
		return true
	default:
		w.logger.Warn("classification queue full", zap.String("ticket_id", ticket.ID))
		return false
	}
}

// Run processes jobs until ctx is cancelled.
func (w *ClassificationWorker) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < w.workers; i++ {
		g.Go(func() error {
			for {
				select {
				case <-ctx.Done():
					return nil
				case job := <-w.jobs:
					w.process(ctx, job)
				}
			}
		})
	}
	return g.Wait()
}

func (w *ClassificationWorker) process(ctx context.Context, job Job) {
	result := w.classify(ctx, job)
	err := w.sink.OnClassificationUpdate(ctx, job.TicketID, *result)
	switch {
	case err == nil:
	case errors.Is(err, apperrors.ErrNotFound):
		w.logger.Warn("classified ticket no longer exists", zap.String("ticket_id", job.TicketID))
	default:
		w.logger.Error("apply classification", zap.String("ticket_id", job.TicketID), zap.Error(err))
	}
}

func (w *ClassificationWorker) classify(ctx context.Context, job Job) *domain.Classification {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	result, err := w.classifier.Classify(ctx, job.Subject, job.Description, job.Metadata)
	if err != nil {
		w.logger.Warn("classifier failed; using fallback", zap.String("ticket_id", job.TicketID), zap.Error(err))
		return classifier.FallbackResult()
	}
	return classifier.Normalize(result)
}

package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-router/internal/classifier"
	"github.com/spec-kit/ticket-router/internal/config"
	"github.com/spec-kit/ticket-router/internal/domain"
)

type recordingSink struct {
	mu      sync.Mutex
	results map[string]domain.Classification
	done    chan string
}

func newRecordingSink() *recordingSink {
	return &recordingSink{results: map[string]domain.Classification{}, done: make(chan string, 16)}
}

func (s *recordingSink) OnClassificationUpdate(_ context.Context, ticketID string, result domain.Classification) error {
	s.mu.Lock()
	s.results[ticketID] = result
	s.mu.Unlock()
	s.done <- ticketID
	return nil
}

func (s *recordingSink) wait(t *testing.T, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-s.done:
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for result %d of %d", i+1, n)
		}
	}
}

func (s *recordingSink) result(id string) domain.Classification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.results[id]
}

func startWorker(t *testing.T, w *ClassificationWorker) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})
}

func TestWorkerNormalizesClassifierResult(t *testing.T) {
	sink := newRecordingSink()
	var gotMetadata map[string]any
	c := classifier.Func(func(_ context.Context, subject, _ string, metadata map[string]any) (*domain.Classification, error) {
		gotMetadata = metadata
		return &domain.Classification{Category: "billing", Priority: "URGENT", Confidence: 1.4, Sentiment: "ANGRY"}, nil
	})
	w := NewClassificationWorker(c, sink, config.ClassificationConfig{Workers: 1, QueueSize: 4}, zap.NewNop())
	startWorker(t, w)

	orderID := "ORD-1"
	if !w.Submit(&domain.Ticket{ID: "T1", Subject: "charge", Description: "double charged", CustomerID: "CUST-00001", OrderID: &orderID}) {
		t.Fatal("Submit rejected")
	}
	sink.wait(t, 1)

	got := sink.result("T1")
	if got.Category != "BILLING" || got.Priority != domain.TicketPriorityMedium || got.Confidence != 1 || got.Sentiment != classifier.SentimentNeutral {
		t.Errorf("result = %+v", got)
	}
	if gotMetadata["order_id"] != "ORD-1" || gotMetadata["customer_id"] != "CUST-00001" {
		t.Errorf("metadata = %v", gotMetadata)
	}
}

func TestWorkerFallsBackOnClassifierError(t *testing.T) {
	sink := newRecordingSink()
	c := classifier.Func(func(context.Context, string, string, map[string]any) (*domain.Classification, error) {
		return nil, errors.New("model unavailable")
	})
	w := NewClassificationWorker(c, sink, config.ClassificationConfig{Workers: 2, QueueSize: 4}, zap.NewNop())
	startWorker(t, w)

	w.Submit(&domain.Ticket{ID: "T1"})
	w.Submit(&domain.Ticket{ID: "T2"})
	sink.wait(t, 2)

	for _, id := range []string{"T1", "T2"} {
		got := sink.result(id)
		if got.Category != domain.CategoryGeneral || got.Confidence != 0 {
			t.Errorf("%s result = %+v", id, got)
		}
	}
}

func TestWorkerTimesOutSlowClassifier(t *testing.T) {
	sink := newRecordingSink()
	c := classifier.Func(func(ctx context.Context, _, _ string, _ map[string]any) (*domain.Classification, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	w := NewClassificationWorker(c, sink, config.ClassificationConfig{Workers: 1, QueueSize: 1}, zap.NewNop())
	w.timeout = 20 * time.Millisecond
	startWorker(t, w)

	w.Submit(&domain.Ticket{ID: "slow"})
	sink.wait(t, 1)
	if got := sink.result("slow"); got.Category != domain.CategoryGeneral {
		t.Errorf("result = %+v", got)
	}
}

func TestSubmitDropsWhenQueueFull(t *testing.T) {
	w := NewClassificationWorker(classifier.Fallback{}, newRecordingSink(), config.ClassificationConfig{Workers: 1, QueueSize: 1}, zap.NewNop())

	// not running, so nothing drains the queue
	if !w.Submit(&domain.Ticket{ID: "T1"}) {
		t.Fatal("first submit rejected")
	}
	if w.Submit(&domain.Ticket{ID: "T2"}) {
		t.Error("second submit accepted past capacity")
	}
}

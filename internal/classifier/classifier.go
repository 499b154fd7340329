package classifier

import (
	"context"
	"strings"

	"github.com/spec-kit/ticket-router/internal/domain"
)

// Sentiment labels.
const (
	SentimentPositive = "positive"
	SentimentNeutral  = "neutral"
	SentimentNegative = "negative"
)

// Classifier proposes a category, priority and confidence for a ticket.
// Implementations may call remote models and must honor ctx cancellation.
type Classifier interface {
	Classify(ctx context.Context, subject, description string, metadata map[string]any) (*domain.Classification, error)
}

// Func adapts a function to Classifier.
type Func func(ctx context.Context, subject, description string, metadata map[string]any) (*domain.Classification, error)

// Classify calls f.
func (f Func) Classify(ctx context.Context, subject, description string, metadata map[string]any) (*domain.Classification, error) {
	return f(ctx, subject, description, metadata)
}

// Fallback is used when no model is configured or a model call fails.
// Its zero confidence never passes the routing threshold.
type Fallback struct{}

// Classify returns GENERAL / MEDIUM with zero confidence.
func (Fallback) Classify(context.Context, string, string, map[string]any) (*domain.Classification, error) {
	return FallbackResult(), nil
}

// FallbackResult is the default classification.
func FallbackResult() *domain.Classification {
	return &domain.Classification{
		Category:        domain.CategoryGeneral,
		Priority:        domain.TicketPriorityMedium,
		Confidence:      0,
		Sentiment:       SentimentNeutral,
		UrgencyKeywords: []string{},
		ExtractedInfo:   map[string]any{},
	}
}

// Normalize coerces a raw model result into the accepted value ranges:
// upper-case known category (GENERAL otherwise), valid priority (MEDIUM
// otherwise), confidence clamped to [0,1] and a known sentiment label.
func Normalize(c *domain.Classification) *domain.Classification {
	if c == nil {
		return FallbackResult()
	}
	out := c.Clone()
	out.Category = domain.NormalizeCategory(out.Category)
	if !domain.KnownCategory(out.Category) {
		out.Category = domain.CategoryGeneral
	}
	if priority, ok := domain.ParseTicketPriority(string(out.Priority)); ok {
		out.Priority = priority
	} else {
		out.Priority = domain.TicketPriorityMedium
	}
	switch {
	case out.Confidence < 0:
		out.Confidence = 0
	case out.Confidence > 1:
		out.Confidence = 1
	}
	switch s := strings.ToLower(strings.TrimSpace(out.Sentiment)); s {
	case SentimentPositive, SentimentNegative:
		out.Sentiment = s
	default:
		out.Sentiment = SentimentNeutral
	}
	if out.UrgencyKeywords == nil {
		out.UrgencyKeywords = []string{}
	}
	if out.ExtractedInfo == nil {
		out.ExtractedInfo = map[string]any{}
	}
	return out
}

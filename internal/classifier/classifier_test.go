package classifier

import (
	"context"
	"testing"

	"github.com/spec-kit/ticket-router/internal/domain"
)

func TestFallbackNeverPassesThreshold(t *testing.T) {
	got, err := Fallback{}.Classify(context.Background(), "subject", "body", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Category != domain.CategoryGeneral || got.Priority != domain.TicketPriorityMedium {
		t.Errorf("got %s/%s", got.Category, got.Priority)
	}
	if got.Confidence != 0 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if got.Sentiment != SentimentNeutral {
		t.Errorf("sentiment = %q", got.Sentiment)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   *domain.Classification
		want domain.Classification
	}{
		{
			name: "nil becomes fallback",
			in:   nil,
			want: domain.Classification{Category: "GENERAL", Priority: "MEDIUM", Sentiment: "neutral"},
		},
		{
			name: "lower-case values are accepted",
			in:   &domain.Classification{Category: " shipping ", Priority: "high", Confidence: 0.9, Sentiment: "NEGATIVE"},
			want: domain.Classification{Category: "SHIPPING", Priority: "HIGH", Confidence: 0.9, Sentiment: "negative"},
		},
		{
			name: "unknown values fall back",
			in:   &domain.Classification{Category: "weather", Priority: "urgent", Confidence: 1.7, Sentiment: "angry"},
			want: domain.Classification{Category: "GENERAL", Priority: "MEDIUM", Confidence: 1, Sentiment: "neutral"},
		},
		{
			name: "negative confidence clamps to zero",
			in:   &domain.Classification{Category: "BILLING", Priority: "LOW", Confidence: -0.2},
			want: domain.Classification{Category: "BILLING", Priority: "LOW", Confidence: 0, Sentiment: "neutral"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got.Category != tt.want.Category || got.Priority != tt.want.Priority ||
				got.Confidence != tt.want.Confidence || got.Sentiment != tt.want.Sentiment {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
			if got.UrgencyKeywords == nil || got.ExtractedInfo == nil {
				t.Error("collections should be non-nil")
			}
		})
	}
}

func TestNormalizeDoesNotMutateInput(t *testing.T) {
	in := &domain.Classification{Category: "billing", Priority: "low", UrgencyKeywords: []string{"asap"}}
	_ = Normalize(in)
	if in.Category != "billing" {
		t.Errorf("input mutated: %q", in.Category)
	}
}

func TestFuncAdapter(t *testing.T) {
	var c Classifier = Func(func(_ context.Context, subject, _ string, _ map[string]any) (*domain.Classification, error) {
		return &domain.Classification{Category: subject, Confidence: 0.8}, nil
	})
	got, err := c.Classify(context.Background(), "REFUND", "", nil)
	if err != nil {
		t.Fatalf("Classify: %v", err)
	}
	if got.Category != "REFUND" {
		t.Errorf("category = %q", got.Category)
	}
}

package domain

import "time"

// Classification is the latest result reported by the external classifier.
// It is kept for inspection whether or not it was applied to the ticket.
type Classification struct {
	Category        string
	Priority        TicketPriority
	Confidence      float64
	Sentiment       string
	UrgencyKeywords []string
	ExtractedInfo   map[string]any
	Applied         bool
	ClassifiedAt    time.Time
}

// Clone returns a deep copy.
func (c *Classification) Clone() *Classification {
	if c == nil {
		return nil
	}
	cp := *c
	cp.UrgencyKeywords = cloneStrings(c.UrgencyKeywords)
	if c.ExtractedInfo != nil {
		cp.ExtractedInfo = make(map[string]any, len(c.ExtractedInfo))
		for k, v := range c.ExtractedInfo {
			cp.ExtractedInfo[k] = v
		}
	}
	return &cp
}

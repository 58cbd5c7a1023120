package aiprovider

import (
	"context"
	"time"

	"gracechat-server/internal/domain/guidance"
)

// MockProvider serves a canned example answer after an artificial delay. It
// is selected when no upstream credential is configured, so development
// against the full request path works without a live key. The response shape
// is identical to the live path; the client never special-cases it.
type MockProvider struct {
	delay time.Duration
}

// NewMockProvider builds the mock with the configured delay.
func NewMockProvider(delay time.Duration) *MockProvider {
	return &MockProvider{delay: delay}
}

// Guidance returns the canned response, honoring context cancellation during
// the simulated latency.
func (p *MockProvider) Guidance(ctx context.Context, question string) (*guidance.Response, error) {
	if p.delay > 0 {
		timer := time.NewTimer(p.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	return &guidance.Response{
		Interpretations: []guidance.Interpretation{
			{
				View: "This is a sample reflection served without a live model credential. " +
					"Scripture often meets questions like yours with reassurance of God's care and presence.",
				Scriptures: []guidance.Scripture{
					{
						Reference:   "Philippians 4:6",
						Text:        "Do not be anxious about anything, but in every situation, by prayer and petition, with thanksgiving, present your requests to God.",
						Translation: "NIV",
					},
				},
			},
		},
	}, nil
}

// Ensure interface compliance.
var _ guidance.Provider = (*MockProvider)(nil)

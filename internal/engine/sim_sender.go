package engine

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// SimSender is a simulated send capability for local runs and tests. It
// sleeps a short pseudo-latency and reports failures at a configured rate.
type SimSender struct {
	successRate float64
	mu          sync.Mutex
	rand        *rand.Rand
}

// NewSimSender creates a simulated sender.
// successRate: probability of a successful send (0.0 to 1.0).
func NewSimSender(successRate float64) *SimSender {
	if successRate < 0.0 {
		successRate = 0.0
	}
	if successRate > 1.0 {
		successRate = 1.0
	}

	return &SimSender{
		successRate: successRate,
		rand:        rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Send simulates one delivery attempt
func (s *SimSender) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	s.mu.Lock()
	latency := time.Duration(50+s.rand.Intn(150)) * time.Millisecond
	roll := s.rand.Float64()
	s.mu.Unlock()

	select {
	case <-time.After(latency):
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if roll < s.successRate {
		return &SendResult{Success: true}, nil
	}

	failures := []string{
		"invalid phone number",
		"recipient opted out",
		"provider rejected message",
		"insufficient balance",
	}

	s.mu.Lock()
	reason := failures[s.rand.Intn(len(failures))]
	s.mu.Unlock()

	return &SendResult{
		Success: false,
		Error:   fmt.Sprintf("failed to send to %s: %s", req.Phone, reason),
	}, nil
}

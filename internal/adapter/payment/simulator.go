// Package payment provides the storefront's simulated payment processor.
package payment

import (
	"context"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rl1809/shopzone/internal/core/domain"
)

const (
	DefaultSuccessRate = 0.9
	DefaultDelay       = 2 * time.Second
)

// Simulator approves a payment with a fixed probability after a delay.
type Simulator struct {
	successRate float64
	delay       time.Duration

	mu   sync.Mutex
	rand *rand.Rand
}

// NewSimulator builds a simulator. A nil source seeds from the runtime.
func NewSimulator(successRate float64, delay time.Duration, src rand.Source) *Simulator {
	var r *rand.Rand
	if src != nil {
		r = rand.New(src)
	} else {
		r = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Simulator{successRate: successRate, delay: delay, rand: r}
}

func (s *Simulator) Process(ctx context.Context, req domain.PaymentRequest) (domain.PaymentResult, error) {
	if s.delay > 0 {
		timer := time.NewTimer(s.delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return domain.PaymentResult{}, ctx.Err()
		case <-timer.C:
		}
	}

	s.mu.Lock()
	roll := s.rand.Float64()
	s.mu.Unlock()

	if roll >= s.successRate {
		return domain.PaymentResult{Approved: false, Reason: "payment processing failed"}, nil
	}
	return domain.PaymentResult{Approved: true, Reference: "sim_" + uuid.NewString()}, nil
}

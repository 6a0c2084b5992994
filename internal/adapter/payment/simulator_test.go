package payment

import (
	"context"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/shopzone/internal/core/domain"
)

var req = domain.PaymentRequest{OrderID: "o1", SessionID: "s1", Amount: decimal.NewFromInt(10)}

func TestSimulator_AlwaysApproves(t *testing.T) {
	sim := NewSimulator(1, 0, rand.NewPCG(1, 1))

	for i := 0; i < 50; i++ {
		res, err := sim.Process(context.Background(), req)
		require.NoError(t, err)
		assert.True(t, res.Approved)
		assert.True(t, strings.HasPrefix(res.Reference, "sim_"))
	}
}

func TestSimulator_AlwaysDeclines(t *testing.T) {
	sim := NewSimulator(0, 0, rand.NewPCG(1, 1))

	res, err := sim.Process(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, res.Approved)
	assert.NotEmpty(t, res.Reason)
}

func TestSimulator_SuccessRate(t *testing.T) {
	sim := NewSimulator(DefaultSuccessRate, 0, rand.NewPCG(42, 7))

	approved := 0
	for i := 0; i < 2000; i++ {
		res, err := sim.Process(context.Background(), req)
		require.NoError(t, err)
		if res.Approved {
			approved++
		}
	}

	assert.InDelta(t, 1800, approved, 100)
}

func TestSimulator_CancelledDuringDelay(t *testing.T) {
	sim := NewSimulator(1, time.Minute, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := sim.Process(ctx, req)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

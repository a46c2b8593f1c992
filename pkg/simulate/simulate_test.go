package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harveywai/thermopanel/pkg/security"
)

// fixedSimulator returns a simulator drawing values from seq and recording sleeps.
func fixedSimulator(seq ...float64) (*Simulator, *[]time.Duration) {
	var slept []time.Duration
	i := 0
	return &Simulator{
		Float: func() float64 {
			v := seq[i%len(seq)]
			i++
			return v
		},
		Sleep: func(_ context.Context, d time.Duration) error {
			slept = append(slept, d)
			return nil
		},
	}, &slept
}

func TestParseIntensity(t *testing.T) {
	for in, want := range map[string]Intensity{"": Low, "low": Low, "Medium": Medium, " high ": High} {
		got, err := ParseIntensity(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseIntensity("extreme")
	assert.ErrorIs(t, err, ErrInvalidIntensity)
}

func TestDoS_BlockedWhenProtected(t *testing.T) {
	sim, slept := fixedSimulator(0.5)

	res, err := sim.DoS(context.Background(), security.Defaults(), "high")
	require.NoError(t, err)

	assert.Equal(t, DoSResult{Message: MsgDosBlocked}, res)
	assert.Empty(t, *slept)
}

func TestDoS_Success(t *testing.T) {
	// delay draw, loss draw, packet draw
	sim, slept := fixedSimulator(0.5, 0.5, 0.99)

	res, err := sim.DoS(context.Background(), security.Settings{}, "medium")
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.InDelta(t, 0.5, res.ResponseTime, 1e-9)
	assert.Equal(t, "DoS Attack Success: 80% of packets got through!", res.Message)
	require.Len(t, *slept, 1)
	assert.Equal(t, 500*time.Millisecond, (*slept)[0])
}

func TestDoS_Dropped(t *testing.T) {
	sim, _ := fixedSimulator(0, 1, 0)

	res, err := sim.DoS(context.Background(), security.Settings{}, "high")
	require.NoError(t, err)

	assert.False(t, res.Success)
	assert.Equal(t, MsgDosDropped, res.Message)
	assert.InDelta(t, 0.7, res.ResponseTime, 1e-9)
}

func TestDoS_InvalidIntensity(t *testing.T) {
	sim, slept := fixedSimulator(0.5)

	res, err := sim.DoS(context.Background(), security.Settings{}, "extreme")
	require.NoError(t, err)

	assert.Equal(t, DoSResult{Message: MsgInvalidIntensity}, res)
	assert.Empty(t, *slept)
}

func TestDoS_ContextCancelled(t *testing.T) {
	sim := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := sim.DoS(ctx, security.Settings{}, "high")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUnauthorized(t *testing.T) {
	sim := New()

	assert.Equal(t, Result{Message: MsgUnauthorizedBlocked}, sim.Unauthorized(security.Defaults()))

	open := Result{Success: true, Message: MsgUnauthorizedSuccess}
	assert.Equal(t, open, sim.Unauthorized(security.Settings{ACL: true}))
	assert.Equal(t, open, sim.Unauthorized(security.Settings{LoginValidation: true}))
}

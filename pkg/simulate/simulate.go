// Package simulate produces the outcomes of the synthetic attacks offered by
// the panel. Nothing here touches the network; the outcome depends only on the
// current security settings and chance.
package simulate

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/harveywai/thermopanel/pkg/security"
)

// Intensity is the strength of a simulated DoS attack.
type Intensity string

const (
	Low    Intensity = "low"
	Medium Intensity = "medium"
	High   Intensity = "high"
)

// ErrInvalidIntensity is returned for intensities other than low, medium and high.
var ErrInvalidIntensity = errors.New("invalid intensity: expected low, medium or high")

// Outcome messages.
const (
	MsgDosBlocked          = "DoS Attack Blocked: Protection is enabled."
	MsgDosDropped          = "DoS Attack Dropped: Packet lost during attack."
	MsgInvalidIntensity    = "Invalid intensity choice"
	MsgUnauthorizedBlocked = "Unauthorized Access Failed: Security measures are active."
	MsgUnauthorizedSuccess = "Unauthorized Access Success: Security measures are disabled."
)

// ParseIntensity validates s. The empty string means Low.
func ParseIntensity(s string) (Intensity, error) {
	switch in := Intensity(strings.ToLower(strings.TrimSpace(s))); in {
	case "":
		return Low, nil
	case Low, Medium, High:
		return in, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidIntensity, s)
	}
}

type profile struct {
	minDelay, maxDelay float64 // seconds
	minLoss, maxLoss   float64 // fraction of packets lost
}

var profiles = map[Intensity]profile{
	Low:    {0.1, 0.3, 0, 0.1},
	Medium: {0.3, 0.7, 0.1, 0.3},
	High:   {0.7, 1.5, 0.3, 0.7},
}

// DoSResult is the outcome of a DoS simulation.
type DoSResult struct {
	Success      bool    `json:"success"`
	Message      string  `json:"message"`
	ResponseTime float64 `json:"response_time"` // seconds
}

// Result is the outcome of an unauthorized access simulation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// Simulator runs attack simulations. The zero value is not usable; call New.
type Simulator struct {
	// Float returns a uniform value in [0, 1).
	Float func() float64
	// Sleep waits for d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
}

// New returns a Simulator backed by math/rand and a real timer.
func New() *Simulator {
	return &Simulator{
		Float: rand.Float64,
		Sleep: sleep,
	}
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + (hi-lo)*s.Float()
}

// DoS simulates a denial-of-service attack of the given intensity. The only
// error is the context's, if it ends while the simulated delay elapses.
func (s *Simulator) DoS(ctx context.Context, settings security.Settings, intensity string) (DoSResult, error) {
	if settings.DosProtection {
		return DoSResult{Message: MsgDosBlocked}, nil
	}

	p, ok := profiles[Intensity(intensity)]
	if !ok {
		return DoSResult{Message: MsgInvalidIntensity}, nil
	}

	delay := s.uniform(p.minDelay, p.maxDelay)
	loss := s.uniform(p.minLoss, p.maxLoss)

	if err := s.Sleep(ctx, time.Duration(delay*float64(time.Second))); err != nil {
		return DoSResult{}, err
	}

	if s.Float() < loss {
		return DoSResult{Message: MsgDosDropped, ResponseTime: delay}, nil
	}

	return DoSResult{
		Success:      true,
		Message:      fmt.Sprintf("DoS Attack Success: %d%% of packets got through!", int((1-loss)*100)),
		ResponseTime: delay,
	}, nil
}

// Unauthorized simulates an unauthorized access attempt. It is blocked only
// while both login validation and the ACL are enabled.
func (s *Simulator) Unauthorized(settings security.Settings) Result {
	if settings.LoginValidation && settings.ACL {
		return Result{Message: MsgUnauthorizedBlocked}
	}
	return Result{Success: true, Message: MsgUnauthorizedSuccess}
}

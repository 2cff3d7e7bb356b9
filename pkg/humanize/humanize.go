// Package humanize generates the timing and motion patterns used to pace
// simulated browser interaction: randomized delays, pointer paths along
// perturbed Bézier curves, keystroke cadences with corrective typos, and
// small scroll movements. Generators are pure apart from their random
// source and carry no session state.
package humanize

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Engine produces randomized interaction primitives. All methods are safe
// for concurrent use; the underlying random source is guarded by a mutex.
type Engine struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New creates an Engine seeded from the current time.
func New() *Engine {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource creates an Engine with an explicit random source.
// Tests use a fixed seed to make generated sequences reproducible.
func NewWithSource(src rand.Source) *Engine {
	return &Engine{rng: rand.New(src)}
}

// float64n returns a uniform value in [0, 1).
func (e *Engine) float64n() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Float64()
}

// intn returns a uniform value in [0, n).
func (e *Engine) intn(n int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rng.Intn(n)
}

// Between returns a uniformly sampled duration in [min, max].
// If max <= min the result is min.
func (e *Engine) Between(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	span := int64(max - min)
	e.mu.Lock()
	n := e.rng.Int63n(span + 1)
	e.mu.Unlock()
	return min + time.Duration(n)
}

// Delay suspends for a uniformly sampled duration in [min, max].
// It returns early with the context error if ctx is cancelled.
func (e *Engine) Delay(ctx context.Context, min, max time.Duration) error {
	d := e.Between(min, max)
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Scroll is a single small scroll displacement in a random direction.
type Scroll struct {
	DeltaX int
	DeltaY int
}

// ScrollJitter returns one randomized small scroll displacement. Vertical
// movement dominates, the way idle readers drift a page; the sign of each
// axis is random.
func (e *Engine) ScrollJitter() Scroll {
	dy := 40 + e.intn(180)
	if e.float64n() < 0.35 {
		dy = -dy
	}
	dx := 0
	if e.float64n() < 0.15 {
		dx = e.intn(24) - 12
	}
	return Scroll{DeltaX: dx, DeltaY: dy}
}

// ScrollFunc applies one scroll displacement to a page.
type ScrollFunc func(Scroll) error

// SimulateReading alternates scroll jitter and randomized pauses until the
// requested duration has elapsed. The scroll callback attaches the engine to
// whatever page abstraction the caller is driving; a nil callback skips the
// scrolls and only burns time.
func (e *Engine) SimulateReading(ctx context.Context, total time.Duration, scroll ScrollFunc) error {
	deadline := time.Now().Add(total)
	for time.Now().Before(deadline) {
		if scroll != nil {
			if err := scroll(e.ScrollJitter()); err != nil {
				return err
			}
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return ctx.Err()
		}
		pause := e.Between(800*time.Millisecond, 2600*time.Millisecond)
		if pause > remaining {
			pause = remaining
		}

		timer := time.NewTimer(pause)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return nil
}

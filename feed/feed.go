// Package feed supplies the engine with opaque periodic mid prices:
// a seeded random walk for live simulation and a CSV replay source
// for deterministic runs.
package feed

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"
)

// Tick is one price observation.
type Tick struct {
	Mid  decimal.Decimal
	Time time.Time
}

// Source produces price ticks until exhausted.
type Source interface {
	Next() (Tick, bool)
}

// RandomWalk is a deterministic seeded walk: each tick moves the mid
// by a normally distributed step of StepBps basis points.
type RandomWalk struct {
	mid      float64
	stepBps  float64
	now      time.Time
	interval time.Duration
	rng      *rand.Rand
}

func NewRandomWalk(startPrice, stepBps float64, start time.Time, interval time.Duration, seed int64) *RandomWalk {
	return &RandomWalk{
		mid:      startPrice,
		stepBps:  stepBps,
		now:      start,
		interval: interval,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func (w *RandomWalk) Next() (Tick, bool) {
	move := w.rng.NormFloat64() * w.stepBps / 10000
	w.mid = w.mid * math.Exp(move)
	w.now = w.now.Add(w.interval)

	return Tick{
		Mid:  decimal.NewFromFloat(w.mid).Round(0),
		Time: w.now,
	}, true
}

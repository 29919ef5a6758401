// Package ramp provides caller-driven integer ramps for smooth PWM level
// transitions. The caller supplies the timing, so the same ramp works from
// a goroutine with real sleeps or from a test with a scripted clock.
package ramp

import (
	"time"

	"pwmcode-go/x/mathx"
)

// Step applies a new level in [0..top].
type Step func(level uint16)

// Tick waits for d and reports whether to continue (false => cancelled).
type Tick func(d time.Duration) bool

// Linear ramps from cur to to in evenly spaced steps over duration.
// steps==0 or duration<=0 snaps straight to the target. The error between
// the ideal and the integer step size is carried in an accumulator, so the
// ramp lands exactly on the target regardless of rounding.
func Linear(cur, to, top uint16, duration time.Duration, steps uint16, tick Tick, set Step) {
	to = mathx.Clamp(to, 0, top)
	if steps == 0 || duration <= 0 {
		set(to)
		return
	}
	stepDur := duration / time.Duration(steps)
	if stepDur <= 0 {
		stepDur = time.Millisecond
	}

	d := int32(to) - int32(cur)
	st := int32(steps)
	acc := int32(0)
	cur32 := int32(cur)

	for i := uint16(1); i < steps; i++ {
		if !tick(stepDur) {
			return
		}
		acc += d
		inc := acc / st
		if inc != 0 {
			acc -= inc * st
			cur32 = mathx.Clamp(cur32+inc, 0, int32(top))
			set(uint16(cur32))
		}
	}
	if !tick(stepDur) {
		return
	}
	set(to)
}

package stepper

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/stepsim/internal/body"
)

// ErrNonPositiveDt is returned when a fixed step size of zero or less
// is configured.
var ErrNonPositiveDt = errors.New("dt must be positive")

// MaxFrameTime caps the scaled frame-time contribution accepted per
// Simulate call. A stalled host frame then costs at most
// MaxFrameTime/dt steps instead of compounding into ever more work.
const MaxFrameTime = 0.1

// DefaultDt is the fixed step size used when none is configured.
const DefaultDt = 1.0 / 20.0

// ForceApplier applies scene forces and constraints for one fixed step.
// It runs before the bodies advance and has no notion of interpolation.
// dt carries the sign of the step when time runs in reverse.
type ForceApplier interface {
	ApplyForces(dt float64, bodies []*body.Body)
}

// ForceFunc adapts a plain function to ForceApplier.
type ForceFunc func(dt float64, bodies []*body.Body)

func (f ForceFunc) ApplyForces(dt float64, bodies []*body.Body) { f(dt, bodies) }

// Observer is notified after every committed fixed step.
type Observer interface {
	OnStep(simTime float64, step uint64, dt float64)
}

// Stepper owns simulated time, the accumulator, and the body list.
// Simulated time only ever moves in whole multiples of dt.
type Stepper struct {
	dt            float64
	timeScale     float64
	accumulator   float64
	simulatedTime float64
	alpha         float64
	stepsTaken    uint64
	workers       int

	bodies []*body.Body
	forces ForceApplier

	observers []Observer

	// Adds and removes requested mid-drain are buffered and applied
	// between iterations so the slice being stepped is never mutated
	// in place.
	draining      bool
	pendingAdd    []*body.Body
	pendingRemove []*body.Body
}

// New creates a stepper with the given fixed step size. A non-positive
// dt is a configuration error and is rejected immediately: it would turn
// the drain loop into an infinite or backwards-progress loop.
func New(dt float64, forces ForceApplier) (*Stepper, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("stepper: %w, got %f", ErrNonPositiveDt, dt)
	}
	return &Stepper{
		dt:        dt,
		timeScale: 1.0,
		forces:    forces,
	}, nil
}

// AddObserver registers a per-step hook.
func (s *Stepper) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetForces replaces the per-step callback. Scenes need the stepper as
// their spawn/cull handle, so they are usually bound after construction.
// Must not be called mid-drain.
func (s *Stepper) SetForces(f ForceApplier) { s.forces = f }

// SetWorkers sets the goroutine fan-out for per-body advance and blend.
// Values below 2 keep stepping single-threaded. Bodies are independent
// within a step, so fan-out does not change results.
func (s *Stepper) SetWorkers(n int) { s.workers = n }

// AddBody appends a body to the stepped list. During a drain loop the
// add is buffered and takes effect for the next iteration.
func (s *Stepper) AddBody(b *body.Body) {
	if s.draining {
		s.pendingAdd = append(s.pendingAdd, b)
		return
	}
	s.bodies = append(s.bodies, b)
}

// RemoveBody removes a body from the stepped list, buffered mid-drain
// like AddBody.
func (s *Stepper) RemoveBody(b *body.Body) {
	if s.draining {
		s.pendingRemove = append(s.pendingRemove, b)
		return
	}
	s.remove(b)
}

func (s *Stepper) remove(b *body.Body) {
	for i, existing := range s.bodies {
		if existing == b {
			s.bodies = append(s.bodies[:i], s.bodies[i+1:]...)
			return
		}
	}
}

func (s *Stepper) applyPending() {
	for _, b := range s.pendingRemove {
		s.remove(b)
	}
	s.pendingRemove = s.pendingRemove[:0]
	if len(s.pendingAdd) > 0 {
		s.bodies = append(s.bodies, s.pendingAdd...)
		s.pendingAdd = s.pendingAdd[:0]
	}
}

// Bodies returns the stepped list in iteration order. The slice is owned
// by the stepper; callers must not mutate it during Simulate.
func (s *Stepper) Bodies() []*body.Body { return s.bodies }

// Dt returns the fixed step size.
func (s *Stepper) Dt() float64 { return s.dt }

// SetDt changes the fixed step size between frames. Non-positive values
// are rejected for the same reason as in New.
func (s *Stepper) SetDt(dt float64) error {
	if dt <= 0 {
		return fmt.Errorf("stepper: %w, got %f", ErrNonPositiveDt, dt)
	}
	s.dt = dt
	return nil
}

// TimeScale returns the frame-time multiplier.
func (s *Stepper) TimeScale() float64 { return s.timeScale }

// SetTimeScale sets the frame-time multiplier. Negative values run the
// simulation in reverse; zero freezes it.
func (s *Stepper) SetTimeScale(scale float64) { s.timeScale = scale }

// SimulatedTime returns the time reached by committed steps. It moves
// only in whole multiples of dt.
func (s *Stepper) SimulatedTime() float64 { return s.simulatedTime }

// StepsTaken returns the number of fixed steps committed since creation.
func (s *Stepper) StepsTaken() uint64 { return s.stepsTaken }

// Alpha returns the interpolation factor computed by the last Simulate
// call: the leftover fraction of a step, negative when running reversed.
func (s *Stepper) Alpha() float64 { return s.alpha }

// Simulate consumes one render frame's wall-clock duration and commits
// zero or more fixed steps. frameTime of zero, a huge stall, or a value
// driven negative through the time scale are all valid inputs.
//
// After every call |accumulator| < dt, and each body's render pose has
// been blended with the resulting alpha.
func (s *Stepper) Simulate(frameTime float64) {
	scaled := frameTime * s.timeScale
	// Upper clamp only: large negative contributions stay unclamped so
	// reverse time can rewind as fast as the host asks.
	if scaled > MaxFrameTime {
		scaled = MaxFrameTime
	}
	s.accumulator += scaled

	s.draining = true
	for math.Abs(s.accumulator) >= s.dt {
		h := s.dt
		if s.accumulator < 0 {
			h = -s.dt
		}

		if s.forces != nil {
			s.forces.ApplyForces(h, s.bodies)
		}
		s.advanceBodies(h)

		s.simulatedTime += h
		s.accumulator -= h
		s.stepsTaken++

		for _, o := range s.observers {
			o.OnStep(s.simulatedTime, s.stepsTaken, h)
		}

		s.applyPending()
	}
	s.draining = false

	s.alpha = s.accumulator / s.dt
	s.blendBodies(s.alpha)
}

func (s *Stepper) advanceBodies(dt float64) {
	if s.workers > 1 {
		forEachBody(s.bodies, s.workers, func(b *body.Body) { b.Advance(dt) })
		return
	}
	for _, b := range s.bodies {
		b.Advance(dt)
	}
}

func (s *Stepper) blendBodies(alpha float64) {
	if s.workers > 1 {
		forEachBody(s.bodies, s.workers, func(b *body.Body) { b.Blend(alpha) })
		return
	}
	for _, b := range s.bodies {
		b.Blend(alpha)
	}
}

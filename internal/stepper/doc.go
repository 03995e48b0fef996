// Package stepper advances bodies at a fixed timestep while being driven
// by a render loop running at an arbitrary, jittery frame rate.
//
// The [Stepper] owns simulated time and a wall-clock accumulator. Each
// render frame the host calls [Stepper.Simulate] with the elapsed frame
// time; the stepper runs zero or more fixed steps to drain the
// accumulator, then blends every body by the leftover fraction so the
// renderer can draw a smooth pose between two discrete states.
//
// Force and constraint logic is injected per step through [ForceApplier];
// the stepper decides when and how often state updates occur, never what
// forces apply.
package stepper

// Package body provides the rigid-body state primitive for the stepping
// engine.
//
// A [Body] keeps the two most recent discrete poses produced by fixed
// stepping plus the velocities that drive the next step:
//
//   - [Pose]: position and orientation in world space
//   - [Body.Advance]: commit one fixed step by explicit Euler integration
//   - [Body.Blend]: derive a render pose between the two stored states
//
// Bodies carry no rendering state. A renderer associates meshes or
// materials with a body through its opaque ID.
//
// # Thread Safety
//
// A Body is not safe for concurrent mutation, but distinct bodies share
// no state: Advance and Blend may be fanned out across bodies within a
// single step.
package body

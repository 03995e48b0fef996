package body

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Pose is a position and orientation in world space.
type Pose struct {
	Position    mgl64.Vec3
	Orientation mgl64.Quat
}

// NewPose creates a pose at the given position with identity orientation.
func NewPose(position mgl64.Vec3) Pose {
	return Pose{
		Position:    position,
		Orientation: mgl64.QuatIdent(),
	}
}

// Spin is an angular velocity as a rotation axis and a speed in rad/s.
// The axis need not be unit length; it is normalized when applied.
type Spin struct {
	Axis  mgl64.Vec3
	Speed float64
}

// Body is a dynamic rigid body advanced at a fixed timestep.
//
// Previous and Current are the two most recent committed states. Until
// the first Advance both equal the initial pose. Velocity and Spin are
// mutated by scene force logic between steps; Advance never touches them.
type Body struct {
	// ID is an opaque handle for the renderer or host. The stepping
	// core never interprets it.
	ID string

	Previous Pose
	Current  Pose

	Velocity mgl64.Vec3
	Spin     Spin

	rendered Pose
}

// New creates a body at rest in the given pose. Both stored states start
// equal to it, so blending before the first step returns the initial pose.
func New(id string, pose Pose) *Body {
	return &Body{
		ID:       id,
		Previous: pose,
		Current:  pose,
		rendered: pose,
	}
}

// Advance commits one fixed step: the current pose becomes the previous
// one, then position and orientation integrate forward by dt using
// explicit Euler. dt may be negative when stepping in reverse.
func (b *Body) Advance(dt float64) {
	b.Previous = b.Current

	b.Current.Position = b.Current.Position.Add(b.Velocity.Mul(dt))

	angle := b.Spin.Speed * dt
	if angle != 0 && b.Spin.Axis.Len() > 0 {
		rot := mgl64.QuatRotate(angle, b.Spin.Axis.Normalize())
		b.Current.Orientation = rot.Mul(b.Current.Orientation).Normalize()
	}
}

// Blend derives a render pose from the stored state pair. alpha is the
// leftover fraction of a step past the most recently committed state, so
// the position extrapolates as current + alpha*(current-previous) and the
// orientation rotates past the current one by the same fraction of the
// last step's rotation delta.
//
// Blend never mutates the stored states; calling it repeatedly with the
// same alpha yields the same pose. alpha is typically in [0,1) but any
// value is accepted.
func (b *Body) Blend(alpha float64) Pose {
	p := Pose{
		Position:    b.Current.Position.Add(b.Current.Position.Sub(b.Previous.Position).Mul(alpha)),
		Orientation: scaleDelta(b.Previous.Orientation, b.Current.Orientation, alpha),
	}
	b.rendered = p
	return p
}

// Rendered returns the pose produced by the most recent Blend call.
func (b *Body) Rendered() Pose {
	return b.rendered
}

// scaleDelta applies alpha times the prev->cur rotation on top of cur.
func scaleDelta(prev, cur mgl64.Quat, alpha float64) mgl64.Quat {
	delta := cur.Mul(prev.Inverse()).Normalize()
	// Shortest arc: q and -q encode the same rotation.
	if delta.W < 0 {
		delta = delta.Scale(-1)
	}

	w := delta.W
	if w > 1 {
		w = 1
	}
	angle := 2 * math.Acos(w)
	if angle < 1e-12 {
		return cur
	}

	axis := delta.V.Normalize()
	return mgl64.QuatRotate(angle*alpha, axis).Mul(cur).Normalize()
}

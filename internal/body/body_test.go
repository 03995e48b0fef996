package body

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const tol = 1e-9

func vec3Near(a, b mgl64.Vec3, eps float64) bool {
	return a.Sub(b).Len() < eps
}

func TestNew_StatePairEqualsInitialPose(t *testing.T) {
	pose := NewPose(mgl64.Vec3{1, 2, 3})
	b := New("ball-0", pose)

	if !vec3Near(b.Previous.Position, pose.Position, tol) {
		t.Errorf("previous position = %v, want %v", b.Previous.Position, pose.Position)
	}
	if !vec3Near(b.Current.Position, pose.Position, tol) {
		t.Errorf("current position = %v, want %v", b.Current.Position, pose.Position)
	}
	if got := b.Blend(0.5).Position; !vec3Near(got, pose.Position, tol) {
		t.Errorf("blend before first advance = %v, want initial pose %v", got, pose.Position)
	}
}

func TestAdvance_EulerPosition(t *testing.T) {
	tests := []struct {
		name     string
		start    mgl64.Vec3
		velocity mgl64.Vec3
		dt       float64
		want     mgl64.Vec3
	}{
		{"at rest", mgl64.Vec3{1, 1, 1}, mgl64.Vec3{}, 0.05, mgl64.Vec3{1, 1, 1}},
		{"constant velocity", mgl64.Vec3{0, 0, 0}, mgl64.Vec3{2, 0, -4}, 0.5, mgl64.Vec3{1, 0, -2}},
		{"negative dt reverses", mgl64.Vec3{1, 0, 0}, mgl64.Vec3{2, 0, 0}, -0.5, mgl64.Vec3{0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("b", NewPose(tt.start))
			b.Velocity = tt.velocity
			b.Advance(tt.dt)

			if !vec3Near(b.Current.Position, tt.want, tol) {
				t.Errorf("current = %v, want %v", b.Current.Position, tt.want)
			}
			if !vec3Near(b.Previous.Position, tt.start, tol) {
				t.Errorf("previous = %v, want start %v", b.Previous.Position, tt.start)
			}
		})
	}
}

func TestAdvance_DoesNotTouchVelocities(t *testing.T) {
	b := New("b", NewPose(mgl64.Vec3{}))
	b.Velocity = mgl64.Vec3{1, 2, 3}
	b.Spin = Spin{Axis: mgl64.Vec3{0, 1, 0}, Speed: 2.0}

	b.Advance(0.05)

	if !vec3Near(b.Velocity, mgl64.Vec3{1, 2, 3}, tol) {
		t.Errorf("velocity mutated: %v", b.Velocity)
	}
	if b.Spin.Speed != 2.0 {
		t.Errorf("spin speed mutated: %f", b.Spin.Speed)
	}
}

func TestAdvance_OrientationAxisAngle(t *testing.T) {
	b := New("b", NewPose(mgl64.Vec3{}))
	// Quarter turn per second about +Z, one full second in one step.
	b.Spin = Spin{Axis: mgl64.Vec3{0, 0, 1}, Speed: math.Pi / 2}
	b.Advance(1.0)

	// +X should now point along +Y.
	got := b.Current.Orientation.Rotate(mgl64.Vec3{1, 0, 0})
	if !vec3Near(got, mgl64.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("rotated x-axis = %v, want (0,1,0)", got)
	}
}

func TestBlend_ExtrapolatesPosition(t *testing.T) {
	b := New("b", NewPose(mgl64.Vec3{}))
	b.Previous.Position = mgl64.Vec3{0, 0, 0}
	b.Current.Position = mgl64.Vec3{1, 0, 0}

	tests := []struct {
		alpha float64
		want  mgl64.Vec3
	}{
		{0.0, mgl64.Vec3{1, 0, 0}},
		{0.5, mgl64.Vec3{1.5, 0, 0}},
		{1.0, mgl64.Vec3{2, 0, 0}},
		{-0.25, mgl64.Vec3{0.75, 0, 0}},
	}

	for _, tt := range tests {
		if got := b.Blend(tt.alpha).Position; !vec3Near(got, tt.want, tol) {
			t.Errorf("Blend(%v) = %v, want %v", tt.alpha, got, tt.want)
		}
	}
}

func TestBlend_Idempotent(t *testing.T) {
	b := New("b", NewPose(mgl64.Vec3{3, 2, 1}))
	b.Velocity = mgl64.Vec3{1, -1, 0.5}
	b.Spin = Spin{Axis: mgl64.Vec3{1, 1, 0}, Speed: 3.0}
	b.Advance(0.05)

	first := b.Blend(0.37)
	second := b.Blend(0.37)

	if !vec3Near(first.Position, second.Position, tol) {
		t.Errorf("positions differ: %v vs %v", first.Position, second.Position)
	}
	if math.Abs(first.Orientation.Dot(second.Orientation)) < 1-tol {
		t.Errorf("orientations differ: %v vs %v", first.Orientation, second.Orientation)
	}
	if !vec3Near(b.Previous.Position, mgl64.Vec3{3, 2, 1}, tol) {
		t.Error("blend mutated previous pose")
	}
}

func TestBlend_OrientationFraction(t *testing.T) {
	b := New("b", NewPose(mgl64.Vec3{}))
	b.Spin = Spin{Axis: mgl64.Vec3{0, 0, 1}, Speed: math.Pi / 2}
	b.Advance(1.0) // quarter turn committed

	// Half a step past the quarter turn: 3/8 of a full turn in total.
	got := b.Blend(0.5).Orientation.Rotate(mgl64.Vec3{1, 0, 0})
	want := mgl64.Vec3{math.Cos(3 * math.Pi / 4), math.Sin(3 * math.Pi / 4), 0}
	if !vec3Near(got, want, 1e-6) {
		t.Errorf("rotated x-axis = %v, want %v", got, want)
	}

	// alpha 0 is exactly the committed state.
	got = b.Blend(0).Orientation.Rotate(mgl64.Vec3{1, 0, 0})
	if !vec3Near(got, mgl64.Vec3{0, 1, 0}, 1e-6) {
		t.Errorf("Blend(0) rotated x-axis = %v, want (0,1,0)", got)
	}
}

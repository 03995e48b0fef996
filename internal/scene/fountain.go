package scene

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
)

// Fountain continuously emits bodies in an upward cone and culls them
// once they fall out of bounds. It deliberately adds and removes bodies
// from inside the per-step callback to exercise the stepper's deferred
// mutation path.
type Fountain struct {
	Gravity    float64
	SpawnEvery int // steps between emissions
	MaxBodies  int
	Speed      float64
	CullY      float64

	rng     *rand.Rand
	stepNum int
	serial  int
}

func NewFountain() *Fountain {
	return &Fountain{
		Gravity:    9.81,
		SpawnEvery: 3,
		MaxBodies:  64,
		Speed:      9,
		CullY:      -2,
	}
}

func (s *Fountain) Name() string { return "fountain" }

func (s *Fountain) Spawn(rng *rand.Rand) []*body.Body {
	s.rng = rng
	s.stepNum = 0
	s.serial = 0
	return []*body.Body{s.emit()}
}

func (s *Fountain) emit() *body.Body {
	b := body.New(fmt.Sprintf("drop-%d", s.serial), body.NewPose(mgl64.Vec3{}))
	s.serial++
	b.Velocity = mgl64.Vec3{
		(s.rng.Float64()*2 - 1) * 2,
		s.Speed * (0.8 + 0.4*s.rng.Float64()),
		(s.rng.Float64()*2 - 1) * 2,
	}
	b.Spin = body.Spin{Axis: randomUnit(s.rng), Speed: s.rng.Float64() * 6}
	return b
}

func (s *Fountain) Step(dt float64, bodies []*body.Body, w World) {
	s.stepNum++
	if s.stepNum%s.SpawnEvery == 0 && len(bodies) < s.MaxBodies {
		w.AddBody(s.emit())
	}

	for _, b := range bodies {
		b.Velocity = b.Velocity.Add(mgl64.Vec3{0, -s.Gravity * dt, 0})
		if b.Current.Position.Y() < s.CullY {
			w.RemoveBody(b)
		}
	}
}

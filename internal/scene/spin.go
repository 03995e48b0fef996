package scene

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
)

// Spin is a force-free scene: bodies tumble in place at fixed angular
// speed. It exists to exercise orientation stepping and blending without
// any translation in the way.
type Spin struct {
	Count   int
	Spacing float64
}

func NewSpin() *Spin {
	return &Spin{Count: 5, Spacing: 2.5}
}

func (s *Spin) Name() string { return "spin" }

func (s *Spin) Spawn(rng *rand.Rand) []*body.Body {
	bodies := make([]*body.Body, 0, s.Count)
	offset := -s.Spacing * float64(s.Count-1) / 2
	for i := 0; i < s.Count; i++ {
		pos := mgl64.Vec3{offset + s.Spacing*float64(i), 0, 0}
		b := body.New(fmt.Sprintf("top-%d", i), body.NewPose(pos))
		b.Spin = body.Spin{
			Axis:  randomUnit(rng),
			Speed: 1 + rng.Float64()*5,
		}
		bodies = append(bodies, b)
	}
	return bodies
}

func (s *Spin) Step(dt float64, bodies []*body.Body, _ World) {}

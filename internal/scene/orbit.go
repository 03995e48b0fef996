package scene

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
)

// Orbit places bodies on near-circular paths around a central attractor
// at the origin. Acceleration is mu/r^2 toward the center.
type Orbit struct {
	Count  int
	Mu     float64
	Radius float64
}

func NewOrbit() *Orbit {
	return &Orbit{Count: 6, Mu: 20, Radius: 4}
}

func (s *Orbit) Name() string { return "orbit" }

func (s *Orbit) Spawn(rng *rand.Rand) []*body.Body {
	bodies := make([]*body.Body, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		angle := 2 * math.Pi * float64(i) / float64(s.Count)
		r := s.Radius * (0.7 + 0.6*rng.Float64())
		pos := mgl64.Vec3{r * math.Cos(angle), r * math.Sin(angle), 0}

		// Circular orbit speed at this radius, tangential direction.
		speed := math.Sqrt(s.Mu / r)
		vel := mgl64.Vec3{-math.Sin(angle), math.Cos(angle), 0}.Mul(speed)

		b := body.New(fmt.Sprintf("sat-%d", i), body.NewPose(pos))
		b.Velocity = vel
		bodies = append(bodies, b)
	}
	return bodies
}

func (s *Orbit) Step(dt float64, bodies []*body.Body, _ World) {
	for _, b := range bodies {
		r := b.Current.Position.Len()
		if r < 1e-6 {
			continue
		}
		accel := b.Current.Position.Mul(-s.Mu / (r * r * r))
		b.Velocity = b.Velocity.Add(accel.Mul(dt))
	}
}

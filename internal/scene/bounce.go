package scene

import (
	"fmt"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
)

// Bounce drops spinning bodies onto a floor plane. Bodies reflect their
// vertical velocity with restitution at the floor and are culled once
// they have nearly settled there.
type Bounce struct {
	Count       int
	Gravity     float64 // magnitude, applied along -Y
	Restitution float64
	FloorY      float64
	SpawnHeight float64
	Spread      float64
	CullSpeed   float64 // settled-body threshold
	CullHeight  float64 // how close to the floor "settled" must be
}

func NewBounce() *Bounce {
	return &Bounce{
		Count:       8,
		Gravity:     9.81,
		Restitution: 0.7,
		FloorY:      0,
		SpawnHeight: 6,
		Spread:      3,
		CullSpeed:   0.2,
		CullHeight:  0.05,
	}
}

func (s *Bounce) Name() string { return "bounce" }

func (s *Bounce) Spawn(rng *rand.Rand) []*body.Body {
	bodies := make([]*body.Body, 0, s.Count)
	for i := 0; i < s.Count; i++ {
		pos := mgl64.Vec3{
			(rng.Float64()*2 - 1) * s.Spread,
			s.SpawnHeight + rng.Float64()*2,
			(rng.Float64()*2 - 1) * s.Spread,
		}
		b := body.New(fmt.Sprintf("ball-%d", i), body.NewPose(pos))
		b.Velocity = mgl64.Vec3{
			(rng.Float64()*2 - 1) * 2,
			0,
			(rng.Float64()*2 - 1) * 2,
		}
		b.Spin = body.Spin{Axis: randomUnit(rng), Speed: rng.Float64() * 4}
		bodies = append(bodies, b)
	}
	return bodies
}

func (s *Bounce) Step(dt float64, bodies []*body.Body, w World) {
	for _, b := range bodies {
		b.Velocity = b.Velocity.Add(mgl64.Vec3{0, -s.Gravity * dt, 0})

		// Floor: reflect downward motion, bleed energy by restitution.
		if b.Current.Position.Y() <= s.FloorY && b.Velocity.Y() < 0 {
			b.Velocity = mgl64.Vec3{
				b.Velocity.X(),
				-b.Velocity.Y() * s.Restitution,
				b.Velocity.Z(),
			}
		}

		settled := b.Velocity.Len() < s.CullSpeed &&
			b.Current.Position.Y() <= s.FloorY+s.CullHeight
		if settled {
			w.RemoveBody(b)
		}
	}
}

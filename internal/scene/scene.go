// Package scene holds the content side of the engine: force rules,
// spawn logic, and culling policy. Scenes are external collaborators of
// the stepping core; thresholds like restitution or cull speed live here
// and never leak into the stepper or body contracts.
package scene

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
)

// World is the mutation capability a scene gets over the body list.
// Adds and removes requested during a step take effect for the next
// drain iteration.
type World interface {
	AddBody(*body.Body)
	RemoveBody(*body.Body)
}

// Scene produces an initial body population and applies per-step rules.
type Scene interface {
	// Name identifies the scene in configs and run metadata.
	Name() string

	// Spawn creates the initial bodies. rng is seeded by the host so
	// runs are reproducible.
	Spawn(rng *rand.Rand) []*body.Body

	// Step applies forces, constraints, spawning, and culling for one
	// fixed step. dt carries the sign of the step in reverse time.
	Step(dt float64, bodies []*body.Body, w World)
}

// Bind adapts a scene to the stepper's per-step callback, closing over
// the world handle used for spawn and cull requests.
func Bind(sc Scene, w World) func(dt float64, bodies []*body.Body) {
	return func(dt float64, bodies []*body.Body) {
		sc.Step(dt, bodies, w)
	}
}

func randomUnit(rng *rand.Rand) mgl64.Vec3 {
	for {
		v := mgl64.Vec3{
			rng.Float64()*2 - 1,
			rng.Float64()*2 - 1,
			rng.Float64()*2 - 1,
		}
		if l := v.Len(); l > 1e-6 && l <= 1 {
			return v.Mul(1 / l)
		}
	}
}

package stepper_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/stepsim/internal/body"
	"github.com/san-kum/stepsim/internal/stepper"
)

type stepRecorder struct {
	times []float64
	steps []uint64
	dts   []float64
}

func (r *stepRecorder) OnStep(simTime float64, step uint64, dt float64) {
	r.times = append(r.times, simTime)
	r.steps = append(r.steps, step)
	r.dts = append(r.dts, dt)
}

func newStepper(dt float64, forces stepper.ForceApplier) *stepper.Stepper {
	s, err := stepper.New(dt, forces)
	Expect(err).NotTo(HaveOccurred())
	return s
}

var _ = Describe("New", func() {
	It("rejects a non-positive dt", func() {
		_, err := stepper.New(0, nil)
		Expect(err).To(MatchError(ContainSubstring("dt must be positive")))

		_, err = stepper.New(-0.01, nil)
		Expect(err).To(HaveOccurred())
	})

	It("starts with time scale 1 and nothing simulated", func() {
		s := newStepper(0.05, nil)
		Expect(s.TimeScale()).To(Equal(1.0))
		Expect(s.SimulatedTime()).To(BeZero())
		Expect(s.StepsTaken()).To(BeZero())
	})
})

var _ = Describe("SetDt", func() {
	It("rejects non-positive values and keeps the old dt", func() {
		s := newStepper(0.05, nil)
		Expect(s.SetDt(-1)).To(HaveOccurred())
		Expect(s.Dt()).To(Equal(0.05))
		Expect(s.SetDt(0.02)).To(Succeed())
		Expect(s.Dt()).To(Equal(0.02))
	})
})

var _ = Describe("Simulate", func() {
	It("drains the accumulator below dt on every call", func() {
		s := newStepper(0.05, nil)
		for _, ft := range []float64{0.016, 0.07, 0.0, 0.13, 0.049, 1000} {
			s.Simulate(ft)
			Expect(math.Abs(s.Alpha())).To(BeNumerically("<", 1.0),
				"alpha is accumulator/dt, so |alpha| < 1 iff |accumulator| < dt")
		}
	})

	It("takes exactly two steps for Simulate(0.12) with dt 0.05", func() {
		s := newStepper(0.05, nil)
		s.Simulate(0.12)
		// The clamp caps the contribution at 0.1, which two steps drain
		// completely.
		Expect(s.StepsTaken()).To(Equal(uint64(2)))
		Expect(s.Alpha()).To(BeNumerically("~", 0.0, 1e-12))
		Expect(s.SimulatedTime()).To(BeNumerically("~", 0.1, 1e-12))
	})

	It("contains a stalled frame the same as a 0.1s frame", func() {
		stalled := newStepper(0.05, nil)
		stalled.Simulate(1000)

		capped := newStepper(0.05, nil)
		capped.Simulate(0.1)

		Expect(stalled.StepsTaken()).To(Equal(capped.StepsTaken()))
		Expect(stalled.StepsTaken()).To(Equal(uint64(2)))
	})

	It("takes zero steps for a small frame and that is not an error", func() {
		s := newStepper(0.05, nil)
		s.Simulate(0.016)
		Expect(s.StepsTaken()).To(BeZero())
		Expect(s.Alpha()).To(BeNumerically("~", 0.32, 1e-9))
	})

	It("converges to floor(S/dt) steps for unclamped frame sequences", func() {
		s := newStepper(0.05, nil)
		for i := 0; i < 600; i++ {
			s.Simulate(1.0 / 60.0)
		}
		// S = 10s of frames, dt = 0.05 -> 200 steps up to rounding.
		Expect(s.StepsTaken()).To(BeNumerically("~", 200, 1))
	})

	It("is exactly reproducible for a fixed input sequence", func() {
		run := func() (float64, uint64, mgl64.Vec3) {
			b := body.New("b", body.NewPose(mgl64.Vec3{}))
			b.Velocity = mgl64.Vec3{1, 0, 0}
			s := newStepper(0.05, nil)
			s.AddBody(b)
			for _, ft := range []float64{0.016, 0.033, 0.07, 0.011, 0.2, 0.016} {
				s.Simulate(ft)
			}
			return s.SimulatedTime(), s.StepsTaken(), b.Current.Position
		}

		t1, n1, p1 := run()
		t2, n2, p2 := run()
		Expect(t1).To(Equal(t2))
		Expect(n1).To(Equal(n2))
		Expect(p1).To(Equal(p2))
	})

	It("advances simulated time only in multiples of dt", func() {
		s := newStepper(0.05, nil)
		rec := &stepRecorder{}
		s.AddObserver(rec)
		for i := 0; i < 50; i++ {
			s.Simulate(0.017)
		}
		for _, tm := range rec.times {
			steps := tm / 0.05
			Expect(steps).To(BeNumerically("~", math.Round(steps), 1e-9))
		}
	})

	It("increments the step counter exactly once per drain iteration", func() {
		s := newStepper(0.05, nil)
		rec := &stepRecorder{}
		s.AddObserver(rec)
		for i := 0; i < 30; i++ {
			s.Simulate(0.04)
		}
		for i, step := range rec.steps {
			Expect(step).To(Equal(uint64(i + 1)))
		}
		Expect(s.StepsTaken()).To(Equal(uint64(len(rec.steps))))
	})

	It("handles an empty body list silently", func() {
		s := newStepper(0.05, nil)
		Expect(func() { s.Simulate(0.3) }).NotTo(Panic())
		Expect(s.StepsTaken()).To(Equal(uint64(2)))
	})
})

var _ = Describe("reverse time", func() {
	It("decreases simulated time with a negative time scale", func() {
		s := newStepper(0.05, nil)
		s.SetTimeScale(-1)
		s.Simulate(0.05)
		Expect(s.SimulatedTime()).To(BeNumerically("~", -0.05, 1e-12))
		Expect(s.StepsTaken()).To(Equal(uint64(1)))
	})

	It("does not clamp large negative contributions", func() {
		s := newStepper(0.05, nil)
		s.SetTimeScale(-1)
		s.Simulate(0.3)
		Expect(s.StepsTaken()).To(Equal(uint64(6)))
		Expect(s.SimulatedTime()).To(BeNumerically("~", -0.3, 1e-9))
	})

	It("treats negative frame time like a negated time scale", func() {
		viaScale := newStepper(0.05, nil)
		viaScale.SetTimeScale(-1)
		viaScale.Simulate(0.08)

		viaFrame := newStepper(0.05, nil)
		viaFrame.Simulate(-0.08)

		Expect(viaFrame.SimulatedTime()).To(Equal(viaScale.SimulatedTime()))
		Expect(viaFrame.StepsTaken()).To(Equal(viaScale.StepsTaken()))
		Expect(viaFrame.Alpha()).To(Equal(viaScale.Alpha()))
	})

	It("steps bodies backwards so positions retrace", func() {
		b := body.New("b", body.NewPose(mgl64.Vec3{}))
		b.Velocity = mgl64.Vec3{1, 0, 0}
		s := newStepper(0.05, nil)
		s.AddBody(b)

		s.Simulate(0.1)
		Expect(b.Current.Position.X()).To(BeNumerically("~", 0.1, 1e-9))

		s.SetTimeScale(-1)
		s.Simulate(0.1)
		Expect(b.Current.Position.X()).To(BeNumerically("~", 0.0, 1e-9))
		Expect(s.SimulatedTime()).To(BeNumerically("~", 0.0, 1e-9))
	})
})

var _ = Describe("per-step forces", func() {
	It("runs the callback once per step before bodies advance", func() {
		b := body.New("b", body.NewPose(mgl64.Vec3{}))
		s := newStepper(0.05, stepper.ForceFunc(func(dt float64, bodies []*body.Body) {
			// Gravity applied here must show up in the very same step.
			bodies[0].Velocity = bodies[0].Velocity.Add(mgl64.Vec3{0, -9.81 * dt, 0})
		}))
		s.AddBody(b)

		s.Simulate(0.05)
		Expect(b.Velocity.Y()).To(BeNumerically("~", -9.81*0.05, 1e-9))
		Expect(b.Current.Position.Y()).To(BeNumerically("~", -9.81*0.05*0.05, 1e-9))
	})

	It("receives the signed step when running reversed", func() {
		var seen []float64
		s := newStepper(0.05, stepper.ForceFunc(func(dt float64, _ []*body.Body) {
			seen = append(seen, dt)
		}))
		s.SetTimeScale(-1)
		s.Simulate(0.1)
		Expect(seen).To(Equal([]float64{-0.05, -0.05}))
	})
})

var _ = Describe("body list mutation during a drain loop", func() {
	It("defers adds and removes to the next iteration", func() {
		first := body.New("first", body.NewPose(mgl64.Vec3{}))
		spawned := body.New("spawned", body.NewPose(mgl64.Vec3{}))

		var s *stepper.Stepper
		var perStep []int
		calls := 0
		s = newStepper(0.05, stepper.ForceFunc(func(dt float64, bodies []*body.Body) {
			calls++
			perStep = append(perStep, len(bodies))
			if calls == 1 {
				s.AddBody(spawned)
				s.RemoveBody(first)
			}
		}))
		s.AddBody(first)

		s.Simulate(0.1) // two steps

		// Step 1 still sees the original list; step 2 sees the swap.
		Expect(perStep).To(Equal([]int{1, 1}))
		Expect(s.Bodies()).To(ConsistOf(spawned))
	})

	It("blends bodies added on the final iteration", func() {
		spawned := body.New("spawned", body.NewPose(mgl64.Vec3{7, 0, 0}))
		var s *stepper.Stepper
		s = newStepper(0.05, stepper.ForceFunc(func(dt float64, _ []*body.Body) {
			if s.StepsTaken() == 0 {
				s.AddBody(spawned)
			}
		}))
		s.Simulate(0.07)
		Expect(spawned.Rendered().Position.X()).To(BeNumerically("~", 7.0, 1e-12))
	})
})

var _ = Describe("worker fan-out", func() {
	It("produces the same result as single-threaded stepping", func() {
		run := func(workers int) []mgl64.Vec3 {
			s := newStepper(0.05, stepper.ForceFunc(func(dt float64, bodies []*body.Body) {
				for _, b := range bodies {
					b.Velocity = b.Velocity.Add(mgl64.Vec3{0, -9.81 * dt, 0})
				}
			}))
			s.SetWorkers(workers)
			for i := 0; i < 200; i++ {
				b := body.New("b", body.NewPose(mgl64.Vec3{float64(i), 10, 0}))
				b.Velocity = mgl64.Vec3{float64(i % 7), 0, 0}
				s.AddBody(b)
			}
			for i := 0; i < 40; i++ {
				s.Simulate(0.03)
			}
			out := make([]mgl64.Vec3, 0, len(s.Bodies()))
			for _, b := range s.Bodies() {
				out = append(out, b.Current.Position)
			}
			return out
		}

		Expect(run(4)).To(Equal(run(1)))
	})
})

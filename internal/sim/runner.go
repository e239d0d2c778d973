package sim

import (
	"context"

	"github.com/san-kum/quadfc/internal/flight"
	"github.com/san-kum/quadfc/internal/metrics"
)

// Result collects per-step telemetry from a bench flight.
type Result struct {
	Altitude  []float64 // true plant altitude per step
	Estimated []float64 // filter's altitude estimate per step
	Final     flight.Status
	Steps     int
	Metrics   map[string]float64
}

// Runner steps a flight loop and a plant in lockstep, one tick per plant
// step, without a wall-clock ticker. The plant must be registered as both
// the loop's measurement source and its actuator.
type Runner struct {
	Loop  *flight.Loop
	Plant *Plant
	Dt    float64

	last    flight.Status
	metrics []metrics.Metric
}

func NewRunner(loop *flight.Loop, plant *Plant, dt float64) *Runner {
	r := &Runner{Loop: loop, Plant: plant, Dt: dt}
	loop.AddObserver(r)
	return r
}

func (r *Runner) AddMetric(m metrics.Metric) { r.metrics = append(r.metrics, m) }

func (r *Runner) OnTick(s flight.Status) {
	r.last = s
	for _, m := range r.metrics {
		m.OnTick(s)
	}
}

func (r *Runner) Run(ctx context.Context, steps int) (*Result, error) {
	res := &Result{
		Altitude:  make([]float64, 0, steps),
		Estimated: make([]float64, 0, steps),
		Metrics:   make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		r.Loop.Tick(ctx)
		r.Plant.Step(r.Dt)

		res.Altitude = append(res.Altitude, r.Plant.Altitude())
		res.Estimated = append(res.Estimated, r.last.State[1])
		res.Steps++
	}

	res.Final = r.last
	for _, m := range r.metrics {
		res.Metrics[m.Name()] = m.Value()
	}
	return res, nil
}

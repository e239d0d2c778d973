// Package metrics aggregates per-tick flight statistics. Metrics are
// Observers on the flight loop and are read out after a run; the sim
// runner uses them to score bench flights.
package metrics

import (
	"math"

	"github.com/san-kum/quadfc/internal/flight"
)

type Metric interface {
	Name() string
	OnTick(s flight.Status)
	Value() float64
	Reset()
}

// ControlEffort averages the absolute altitude correction, a proxy for how
// hard the hold controller is working.
type ControlEffort struct {
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort { return &ControlEffort{} }

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) OnTick(s flight.Status) {
	c.sum += math.Abs(float64(s.Correction))
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// TrackingError is the RMS distance between the altitude estimate and the
// setpoint over ticks where altitude hold was engaged.
type TrackingError struct {
	sumSq   float64
	samples int
}

func NewTrackingError() *TrackingError { return &TrackingError{} }

func (e *TrackingError) Name() string { return "tracking_error" }

func (e *TrackingError) OnTick(s flight.Status) {
	if !s.AltitudeHold {
		return
	}
	d := s.Setpoint - s.State[1]
	e.sumSq += d * d
	e.samples++
}

func (e *TrackingError) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return math.Sqrt(e.sumSq / float64(e.samples))
}

func (e *TrackingError) Reset() {
	e.sumSq = 0
	e.samples = 0
}

// MeasurementDropRate is the fraction of altitude-hold ticks that flew
// predict-only because no usable measurement arrived.
type MeasurementDropRate struct {
	dropped int
	samples int
}

func NewMeasurementDropRate() *MeasurementDropRate { return &MeasurementDropRate{} }

func (m *MeasurementDropRate) Name() string { return "measurement_drop_rate" }

func (m *MeasurementDropRate) OnTick(s flight.Status) {
	if !s.AltitudeHold {
		return
	}
	m.samples++
	if !s.MeasurementOK {
		m.dropped++
	}
}

func (m *MeasurementDropRate) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return float64(m.dropped) / float64(m.samples)
}

func (m *MeasurementDropRate) Reset() {
	m.dropped = 0
	m.samples = 0
}

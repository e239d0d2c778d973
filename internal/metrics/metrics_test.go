package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/quadfc/internal/flight"
)

func TestControlEffort(t *testing.T) {
	m := NewControlEffort()

	m.OnTick(flight.Status{Correction: 10})
	m.OnTick(flight.Status{Correction: -30})

	if m.Value() != 20 {
		t.Errorf("effort = %f, want 20", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Errorf("effort after reset = %f, want 0", m.Value())
	}
}

func TestTrackingError(t *testing.T) {
	m := NewTrackingError()

	// Hold disengaged: ignored.
	m.OnTick(flight.Status{Setpoint: 5, State: [4]float64{0, 0, 0, 0}})
	if m.Value() != 0 {
		t.Errorf("disengaged ticks counted: %f", m.Value())
	}

	m.OnTick(flight.Status{AltitudeHold: true, Setpoint: 5, State: [4]float64{0, 2, 0, 0}})
	m.OnTick(flight.Status{AltitudeHold: true, Setpoint: 5, State: [4]float64{0, 4, 0, 0}})

	want := math.Sqrt((9.0 + 1.0) / 2.0)
	if math.Abs(m.Value()-want) > 1e-12 {
		t.Errorf("rms = %f, want %f", m.Value(), want)
	}
}

func TestMeasurementDropRate(t *testing.T) {
	m := NewMeasurementDropRate()

	m.OnTick(flight.Status{AltitudeHold: true, MeasurementOK: true})
	m.OnTick(flight.Status{AltitudeHold: true, MeasurementOK: false})
	m.OnTick(flight.Status{AltitudeHold: false, MeasurementOK: false})

	if m.Value() != 0.5 {
		t.Errorf("drop rate = %f, want 0.5", m.Value())
	}
}

package control

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput indicates a non-finite setpoint or measurement.
var ErrInvalidInput = errors.New("control: non-finite input")

// PID is a discrete-time controller with the legacy sampling semantics of
// the reference airframe: the integral accumulates raw error per call and
// the derivative is a plain difference of consecutive errors, with no dt
// normalization and no anti-windup. The output is only meaningful when
// Compute is called at a fixed, known rate; the flight loop's ticker is the
// sole caller. Not safe for concurrent use.
type PID struct {
	Kp       float64
	Ki       float64
	Kd       float64
	integral float64
	prevErr  float64
}

func NewPID(kp, ki, kd float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd}
}

// Compute returns the correction for the current sample.
func (p *PID) Compute(setpoint, measured float64) (float64, error) {
	if !isFinite(setpoint) || !isFinite(measured) {
		return 0, fmt.Errorf("%w: setpoint=%v measured=%v", ErrInvalidInput, setpoint, measured)
	}

	err := setpoint - measured
	p.integral += err
	derivative := err - p.prevErr
	p.prevErr = err

	return p.Kp*err + p.Ki*p.integral + p.Kd*derivative, nil
}

// Reset clears integral and derivative state. Called when altitude hold is
// re-engaged so stale history from a previous engagement cannot kick the
// motors.
func (p *PID) Reset() {
	p.integral = 0
	p.prevErr = 0
}

// GetParams returns tunable parameters for live adjustment
func (p *PID) GetParams() map[string]float64 {
	return map[string]float64{
		"Kp": p.Kp,
		"Ki": p.Ki,
		"Kd": p.Kd,
	}
}

// SetParam adjusts a PID parameter
func (p *PID) SetParam(name string, value float64) {
	switch name {
	case "Kp":
		p.Kp = value
	case "Ki":
		p.Ki = value
	case "Kd":
		p.Kd = value
	}
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

package flight

import (
	"context"
	"fmt"

	"github.com/san-kum/quadfc/internal/mixer"
)

// Reading is one raw inertial sample: 3-axis acceleration in m/s² and
// 3-axis angular rate in rad/s.
type Reading struct {
	Accel [3]float64
	Gyro  [3]float64
}

// MeasurementSource supplies raw inertial readings. Read may block; the
// loop bounds it with a per-tick timeout and treats failure as a missing
// measurement.
type MeasurementSource interface {
	Read(ctx context.Context) (Reading, error)
}

// MotorActuator drives the four ESCs. Init must succeed before the loop
// starts; a failure there is fatal. Motor indices follow the fixed
// index-to-pin mapping of the implementation.
type MotorActuator interface {
	Init() error
	Write(motor int, pulseWidthUs int) error
}

// Observer receives a status snapshot after every tick. Implementations
// must not block; the loop calls them inline.
type Observer interface {
	OnTick(s Status)
}

// Mode is the current flight mode. EmergencyStop is a mode like any other:
// it persists until the operator explicitly commands something else.
type Mode int

const (
	Idle Mode = iota
	Hover
	Forward
	Backward
	Left
	Right
	ManualControl
	EmergencyStop
)

func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Hover:
		return "hover"
	case Forward:
		return "forward"
	case Backward:
		return "backward"
	case Left:
		return "left"
	case Right:
		return "right"
	case ManualControl:
		return "manual"
	case EmergencyStop:
		return "emergency_stop"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

// Status is the per-tick snapshot handed to observers.
type Status struct {
	Tick          uint64             `json:"tick"`
	Mode          string             `json:"mode"`
	State         [4]float64         `json:"state"`
	Setpoint      float64            `json:"setpoint"`
	AltitudeHold  bool               `json:"altitude_hold"`
	Correction    int                `json:"correction"`
	Motors        mixer.MotorCommand `json:"motors"`
	MeasurementOK bool               `json:"measurement_ok"`
}

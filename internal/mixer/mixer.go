package mixer

import "fmt"

// Throttle limits in pulse-width microseconds. A value of exactly 0 is the
// ESC-disarmed sentinel and is never treated as a throttle.
const (
	MinThrottle   = 900
	MaxThrottle   = 2200
	HoverThrottle = (MinThrottle + MaxThrottle) / 2

	// Differential applied to opposing motor pairs for horizontal maneuvers.
	maneuverOffset = 50

	NumMotors = 4
)

// MotorCommand is the pulse width for each of the four motors, indexed by
// the fixed motor-to-pin mapping of the actuator.
type MotorCommand [NumMotors]int

// Maneuver is an operator intent.
type Maneuver int

const (
	Hover Maneuver = iota
	Forward
	Backward
	Left
	Right
	EmergencyStop
	ManualSet
)

func (m Maneuver) String() string {
	switch m {
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
	case EmergencyStop:
		return "emergency_stop"
	case ManualSet:
		return "manual_set"
	}
	return fmt.Sprintf("maneuver(%d)", int(m))
}

// Command is a single operator action. Motor and PulseWidth are only
// meaningful for ManualSet.
type Command struct {
	Maneuver   Maneuver
	Motor      int
	PulseWidth int
}

// Mixer translates maneuvers into per-motor pulse widths. It remembers the
// last full command so ManualSet can address a single motor while the
// others keep their previous values; the memory is seeded to MinThrottle on
// all motors. EmergencyStop bypasses the memory entirely: the output is all
// zero and the remembered command is left untouched.
type Mixer struct {
	last MotorCommand
}

func New() *Mixer {
	m := &Mixer{}
	for i := range m.last {
		m.last[i] = MinThrottle
	}
	return m
}

// Mix maps a command plus the altitude-hold correction into clamped motor
// pulse widths. The correction is added symmetrically to all four motors
// before clamping: altitude hold only shifts vertical thrust, so the
// differential pattern of a horizontal maneuver is unaffected by the
// correction's sign. Pass 0 when altitude hold is disengaged.
func (m *Mixer) Mix(cmd Command, correction int) MotorCommand {
	switch cmd.Maneuver {
	case EmergencyStop:
		return MotorCommand{}
	case Hover:
		m.last = MotorCommand{HoverThrottle, HoverThrottle, HoverThrottle, HoverThrottle}
	case Forward:
		m.last = MotorCommand{
			MinThrottle + maneuverOffset, MinThrottle + maneuverOffset,
			MaxThrottle - maneuverOffset, MaxThrottle - maneuverOffset,
		}
	case Backward:
		m.last = MotorCommand{
			MaxThrottle - maneuverOffset, MaxThrottle - maneuverOffset,
			MinThrottle + maneuverOffset, MinThrottle + maneuverOffset,
		}
	case Left:
		m.last = MotorCommand{
			MinThrottle + maneuverOffset, MaxThrottle - maneuverOffset,
			MinThrottle + maneuverOffset, MaxThrottle - maneuverOffset,
		}
	case Right:
		m.last = MotorCommand{
			MaxThrottle - maneuverOffset, MinThrottle + maneuverOffset,
			MaxThrottle - maneuverOffset, MinThrottle + maneuverOffset,
		}
	case ManualSet:
		// Out-of-range slider values are clamped rather than rejected so
		// the manual control path never stalls on operator input.
		if cmd.Motor >= 0 && cmd.Motor < NumMotors {
			m.last[cmd.Motor] = clampValue(cmd.PulseWidth)
		}
	}

	return m.Hold(correction)
}

// Hold re-emits the remembered command, shifted by the altitude correction
// and clamped. This is the per-tick output path when no new maneuver has
// arrived.
func (m *Mixer) Hold(correction int) MotorCommand {
	out := m.last
	for i := range out {
		out[i] = clampValue(out[i] + correction)
	}
	return out
}

// Last returns the remembered command without correction or clamping.
func (m *Mixer) Last() MotorCommand { return m.last }

// Clamp maps every motor value into [MinThrottle, MaxThrottle]. A value of
// exactly 0 passes through: it means "ESC disarmed", not a low throttle.
func Clamp(cmd MotorCommand) MotorCommand {
	for i, v := range cmd {
		if v != 0 {
			cmd[i] = clampValue(v)
		}
	}
	return cmd
}

func clampValue(v int) int {
	if v < MinThrottle {
		return MinThrottle
	}
	if v > MaxThrottle {
		return MaxThrottle
	}
	return v
}

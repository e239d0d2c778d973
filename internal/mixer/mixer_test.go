package mixer

import "testing"

func TestManeuverTable(t *testing.T) {
	tests := []struct {
		maneuver Maneuver
		want     MotorCommand
	}{
		{Hover, MotorCommand{1550, 1550, 1550, 1550}},
		{Forward, MotorCommand{950, 950, 2150, 2150}},
		{Backward, MotorCommand{2150, 2150, 950, 950}},
		{Left, MotorCommand{950, 2150, 950, 2150}},
		{Right, MotorCommand{2150, 950, 2150, 950}},
	}

	for _, tt := range tests {
		m := New()
		got := m.Mix(Command{Maneuver: tt.maneuver}, 0)
		if got != tt.want {
			t.Errorf("mix(%s) = %v, want %v", tt.maneuver, got, tt.want)
		}
	}
}

func TestHoverConstant(t *testing.T) {
	if HoverThrottle != 1550 {
		t.Errorf("hover throttle = %d, want 1550", HoverThrottle)
	}
}

func TestEmergencyStopBypassesMemory(t *testing.T) {
	for _, prev := range []Maneuver{Hover, Forward, Backward, Left, Right} {
		m := New()
		m.Mix(Command{Maneuver: prev}, 0)

		got := m.Mix(Command{Maneuver: EmergencyStop}, 0)
		if got != (MotorCommand{}) {
			t.Errorf("after %s: mix(emergency_stop) = %v, want all zero", prev, got)
		}

		// The remembered command must survive the stop so a later manual
		// set still edits the pre-stop values.
		if m.Last() == (MotorCommand{}) {
			t.Errorf("after %s: emergency stop overwrote mixer memory", prev)
		}
	}
}

func TestManualSetTouchesSingleMotor(t *testing.T) {
	m := New()
	m.Mix(Command{Maneuver: Forward}, 0)

	got := m.Mix(Command{Maneuver: ManualSet, Motor: 2, PulseWidth: 1000}, 0)
	want := MotorCommand{950, 950, 1000, 2150}
	if got != want {
		t.Errorf("manual set motor 2: got %v, want %v", got, want)
	}
}

func TestManualSetClampsOutOfRange(t *testing.T) {
	m := New()

	got := m.Mix(Command{Maneuver: ManualSet, Motor: 0, PulseWidth: 99999}, 0)
	if got[0] != MaxThrottle {
		t.Errorf("over-range slider: got %d, want %d", got[0], MaxThrottle)
	}

	got = m.Mix(Command{Maneuver: ManualSet, Motor: 1, PulseWidth: 10}, 0)
	if got[1] != MinThrottle {
		t.Errorf("under-range slider: got %d, want %d", got[1], MinThrottle)
	}
}

func TestManualSetIgnoresBadIndex(t *testing.T) {
	m := New()
	before := m.Last()
	m.Mix(Command{Maneuver: ManualSet, Motor: 7, PulseWidth: 1500}, 0)
	m.Mix(Command{Maneuver: ManualSet, Motor: -1, PulseWidth: 1500}, 0)
	if m.Last() != before {
		t.Error("out-of-range motor index mutated mixer state")
	}
}

func TestAltitudeCorrectionIsSymmetric(t *testing.T) {
	m := New()
	base := m.Mix(Command{Maneuver: Hover}, 0)

	up := m.Hold(100)
	for i := range up {
		if up[i] != base[i]+100 {
			t.Errorf("motor %d: correction not applied symmetrically: %d", i, up[i])
		}
	}

	// A large correction saturates at the clamp bounds rather than leaking
	// past them.
	sat := m.Hold(10000)
	for i := range sat {
		if sat[i] != MaxThrottle {
			t.Errorf("motor %d: saturated correction = %d, want %d", i, sat[i], MaxThrottle)
		}
	}
}

func TestCorrectionPreservesManeuverDifferential(t *testing.T) {
	m := New()
	m.Mix(Command{Maneuver: Forward}, 0)

	out := m.Hold(-20)
	if d := out[2] - out[0]; d != 2150-950 {
		t.Errorf("differential after correction = %d, want %d", d, 2150-950)
	}
}

func TestHoldReemitsLast(t *testing.T) {
	m := New()
	m.Mix(Command{Maneuver: Left}, 0)
	if m.Hold(0) != (MotorCommand{950, 2150, 950, 2150}) {
		t.Errorf("hold: got %v", m.Hold(0))
	}
}

func TestClamp(t *testing.T) {
	tests := []struct {
		in, want MotorCommand
	}{
		{MotorCommand{0, 0, 0, 0}, MotorCommand{0, 0, 0, 0}},
		{MotorCommand{100, 1500, 5000, 0}, MotorCommand{900, 1500, 2200, 0}},
		{MotorCommand{900, 2200, 2201, 899}, MotorCommand{900, 2200, 2200, 900}},
	}
	for _, tt := range tests {
		if got := Clamp(tt.in); got != tt.want {
			t.Errorf("clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestSeededToMinThrottle(t *testing.T) {
	m := New()
	if m.Last() != (MotorCommand{900, 900, 900, 900}) {
		t.Errorf("fresh mixer memory = %v, want all MinThrottle", m.Last())
	}
}

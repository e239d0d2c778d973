package flight

import (
	"context"
	"errors"
	"testing"

	"github.com/san-kum/quadfc/internal/config"
	"github.com/san-kum/quadfc/internal/mixer"
)

type fakeSource struct {
	reading Reading
	err     error
}

func (f *fakeSource) Read(ctx context.Context) (Reading, error) {
	return f.reading, f.err
}

type fakeActuator struct {
	initErr error
	last    mixer.MotorCommand
	writes  int
}

func (f *fakeActuator) Init() error { return f.initErr }

func (f *fakeActuator) Write(motor, pulseWidthUs int) error {
	f.last[motor] = pulseWidthUs
	f.writes++
	return nil
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.AltitudeHold = false
	return cfg
}

func TestActuatorInitFailureIsFatal(t *testing.T) {
	initErr := errors.New("no pwm channel")
	act := &fakeActuator{initErr: initErr}
	l := New(testConfig(), &fakeSource{}, act)

	err := l.Run(context.Background())
	if !errors.Is(err, initErr) {
		t.Fatalf("expected init error, got %v", err)
	}
	if act.writes != 0 {
		t.Error("motors were written despite failed actuator init")
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	l := New(testConfig(), &fakeSource{}, &fakeActuator{})
	if err := l.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestManeuverDrivesMotors(t *testing.T) {
	act := &fakeActuator{}
	l := New(testConfig(), &fakeSource{}, act)

	l.Apply(mixer.Command{Maneuver: mixer.Forward})
	l.Tick(context.Background())

	if act.last != (mixer.MotorCommand{950, 950, 2150, 2150}) {
		t.Errorf("forward: motors = %v", act.last)
	}
	if l.Mode() != Forward {
		t.Errorf("mode = %s, want forward", l.Mode())
	}
}

func TestIdleHoldsSeededThrottle(t *testing.T) {
	act := &fakeActuator{}
	l := New(testConfig(), &fakeSource{}, act)

	l.Tick(context.Background())

	if act.last != (mixer.MotorCommand{900, 900, 900, 900}) {
		t.Errorf("idle: motors = %v", act.last)
	}
	if l.Mode() != Idle {
		t.Errorf("mode = %s, want idle", l.Mode())
	}
}

func TestEmergencyStopPersistsAcrossTicks(t *testing.T) {
	act := &fakeActuator{}
	l := New(testConfig(), &fakeSource{}, act)

	l.Apply(mixer.Command{Maneuver: mixer.Hover})
	l.Tick(context.Background())

	l.Apply(mixer.Command{Maneuver: mixer.EmergencyStop})
	l.Tick(context.Background())
	if act.last != (mixer.MotorCommand{}) {
		t.Fatalf("stop: motors = %v, want all zero", act.last)
	}

	// No new command: zeros keep flowing.
	for i := 0; i < 3; i++ {
		l.Tick(context.Background())
		if act.last != (mixer.MotorCommand{}) {
			t.Fatalf("tick %d after stop: motors = %v, want all zero", i, act.last)
		}
	}

	// Only an explicit new maneuver restores output.
	l.Apply(mixer.Command{Maneuver: mixer.Hover})
	l.Tick(context.Background())
	if act.last != (mixer.MotorCommand{1550, 1550, 1550, 1550}) {
		t.Errorf("hover after stop: motors = %v", act.last)
	}
	if l.Mode() != Hover {
		t.Errorf("mode = %s, want hover", l.Mode())
	}
}

func TestManualSetEditsSingleMotor(t *testing.T) {
	act := &fakeActuator{}
	l := New(testConfig(), &fakeSource{}, act)

	l.Apply(mixer.Command{Maneuver: mixer.Forward})
	l.Tick(context.Background())

	l.Apply(mixer.Command{Maneuver: mixer.ManualSet, Motor: 2, PulseWidth: 1000})
	l.Tick(context.Background())

	if act.last != (mixer.MotorCommand{950, 950, 1000, 2150}) {
		t.Errorf("manual set: motors = %v", act.last)
	}
	if l.Mode() != ManualControl {
		t.Errorf("mode = %s, want manual", l.Mode())
	}

	// Subsequent ticks without new commands keep the manual values.
	l.Tick(context.Background())
	if act.last != (mixer.MotorCommand{950, 950, 1000, 2150}) {
		t.Errorf("manual hold: motors = %v", act.last)
	}
}

func TestAltitudeHoldAppliesCorrection(t *testing.T) {
	cfg := testConfig()
	cfg.AltitudeHold = true
	cfg.Setpoint = 10
	cfg.PID = config.PIDConfig{Kp: 1, Ki: 0, Kd: 0}

	act := &fakeActuator{}
	// Failing source: predict-only, estimate stays at the origin, so the
	// altitude error is exactly the setpoint.
	l := New(cfg, &fakeSource{err: errors.New("i2c timeout")}, act)

	l.Apply(mixer.Command{Maneuver: mixer.Hover})
	l.Tick(context.Background())

	want := mixer.MotorCommand{1560, 1560, 1560, 1560}
	if act.last != want {
		t.Errorf("hover with correction: motors = %v, want %v", act.last, want)
	}
}

func TestMeasurementFailureIsNotFatal(t *testing.T) {
	cfg := testConfig()
	cfg.AltitudeHold = true

	act := &fakeActuator{}
	l := New(cfg, &fakeSource{err: errors.New("bus gone")}, act)

	var got Status
	l.AddObserver(observerFunc(func(s Status) { got = s }))

	l.Tick(context.Background())
	if got.MeasurementOK {
		t.Error("status should report the missing measurement")
	}
	if act.writes != 4 {
		t.Errorf("expected 4 motor writes, got %d", act.writes)
	}
}

func TestMeasurementFeedsEstimator(t *testing.T) {
	cfg := testConfig()
	cfg.AltitudeHold = true

	src := &fakeSource{reading: Reading{Accel: [3]float64{0, 0, gravity + 2.0}}}
	l := New(cfg, src, &fakeActuator{})

	var got Status
	l.AddObserver(observerFunc(func(s Status) { got = s }))

	for i := 0; i < 50; i++ {
		l.Tick(context.Background())
	}
	if !got.MeasurementOK {
		t.Fatal("updates should have succeeded")
	}
	// Sustained upward acceleration must pull the altitude estimate up.
	if got.State[1] <= 0 {
		t.Errorf("altitude estimate = %v, want > 0", got.State[1])
	}
}

func TestObserverSeesTicks(t *testing.T) {
	l := New(testConfig(), &fakeSource{}, &fakeActuator{})

	var ticks []uint64
	l.AddObserver(observerFunc(func(s Status) { ticks = append(ticks, s.Tick) }))

	for i := 0; i < 3; i++ {
		l.Tick(context.Background())
	}
	if len(ticks) != 3 || ticks[2] != 3 {
		t.Errorf("observed ticks = %v", ticks)
	}
}

type observerFunc func(Status)

func (f observerFunc) OnTick(s Status) { f(s) }

package flight

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/san-kum/quadfc/internal/config"
	"github.com/san-kum/quadfc/internal/control"
	"github.com/san-kum/quadfc/internal/estimator"
	"github.com/san-kum/quadfc/internal/mixer"
)

// gravity is subtracted from the vertical accelerometer axis when
// assembling measurements.
const gravity = 9.81

// Loop owns the estimator, controller and mixer, and sequences them once
// per tick: predict, conditional update, altitude correction, mix, clamp,
// actuator write. Operator commands arrive asynchronously through Apply,
// SetSetpoint and SetAltitudeHold and take effect on the next tick; the
// loop goroutine is the sole reader and mutator of the pipeline state.
type Loop struct {
	cfg      *config.Config
	source   MeasurementSource
	actuator MotorActuator

	ekf *estimator.EKF
	pid *control.PID
	mix *mixer.Mixer

	// Shared slot between the command path and the tick loop. estop is
	// separate from the mutex so a stop is visible even while a tick
	// holds the lock.
	mu       sync.Mutex
	pending  []mixer.Command
	setpoint float64
	hold     bool
	estop    atomic.Bool

	mode       Mode
	holdActive bool
	tickCount  uint64
	observers  []Observer
}

// New wires the pipeline from injected collaborators. Nothing is read from
// ambient globals: the sensor and actuator handles are exactly the ones
// passed in.
func New(cfg *config.Config, source MeasurementSource, actuator MotorActuator) *Loop {
	return &Loop{
		cfg:      cfg,
		source:   source,
		actuator: actuator,
		ekf: estimator.New(estimator.Noise{
			Process:     cfg.Noise.Process,
			Measurement: cfg.Noise.Measurement,
			InitialCov:  cfg.Noise.InitialCov,
		}),
		pid:      control.NewPID(cfg.PID.Kp, cfg.PID.Ki, cfg.PID.Kd),
		mix:      mixer.New(),
		setpoint: cfg.Setpoint,
		hold:     cfg.AltitudeHold,
		mode:     Idle,
	}
}

func (l *Loop) AddObserver(o Observer) { l.observers = append(l.observers, o) }

// Apply injects an operator command. EmergencyStop is delivered through an
// atomic flag so it is never queued behind normal command processing; any
// other command clears the flag and is picked up on the next tick.
func (l *Loop) Apply(cmd mixer.Command) {
	if cmd.Maneuver == mixer.EmergencyStop {
		l.estop.Store(true)
		return
	}
	l.estop.Store(false)
	l.mu.Lock()
	l.pending = append(l.pending, cmd)
	l.mu.Unlock()
}

// SetSetpoint replaces the altitude-hold target, effective next tick.
func (l *Loop) SetSetpoint(v float64) {
	l.mu.Lock()
	l.setpoint = v
	l.mu.Unlock()
}

// SetAltitudeHold engages or disengages the altitude controller.
func (l *Loop) SetAltitudeHold(on bool) {
	l.mu.Lock()
	l.hold = on
	l.mu.Unlock()
}

// Run initializes the actuator and drives the loop at the configured rate
// until the context is canceled. An actuator initialization failure aborts
// before any motor command is issued.
func (l *Loop) Run(ctx context.Context) error {
	if err := l.actuator.Init(); err != nil {
		return fmt.Errorf("flight: actuator init: %w", err)
	}

	period := time.Duration(float64(time.Second) / float64(l.cfg.TickRateHz))
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			l.Tick(ctx)
		}
	}
}

// Tick runs one full pipeline pass. Exported so the sim harness and tests
// can step the loop without a wall-clock ticker.
func (l *Loop) Tick(ctx context.Context) {
	l.mu.Lock()
	cmds := l.pending
	l.pending = nil
	setpoint := l.setpoint
	hold := l.hold
	l.mu.Unlock()

	for _, cmd := range cmds {
		l.transition(cmd)
	}
	if l.estop.Load() {
		l.mode = EmergencyStop
	}

	// Re-engaging hold must not replay integral history from a previous
	// engagement.
	if hold && !l.holdActive {
		l.pid.Reset()
	}
	l.holdActive = hold

	correction := 0
	measured := false
	if hold {
		correction, measured = l.estimate(ctx, setpoint)
	}

	var out mixer.MotorCommand
	switch l.mode {
	case EmergencyStop:
		out = l.mix.Mix(mixer.Command{Maneuver: mixer.EmergencyStop}, 0)
	case Idle, ManualControl:
		out = l.mix.Hold(correction)
	default:
		out = l.mix.Mix(mixer.Command{Maneuver: maneuverFor(l.mode)}, correction)
	}
	out = mixer.Clamp(out)

	for i, pw := range out {
		if err := l.actuator.Write(i, pw); err != nil {
			log.Printf("flight: motor %d write: %v", i, err)
		}
	}

	l.tickCount++
	status := Status{
		Tick:          l.tickCount,
		Mode:          l.mode.String(),
		State:         l.ekf.State(),
		Setpoint:      setpoint,
		AltitudeHold:  hold,
		Correction:    correction,
		Motors:        out,
		MeasurementOK: measured,
	}
	for _, o := range l.observers {
		o.OnTick(status)
	}
}

// estimate runs predict, a conditional measurement update and the altitude
// controller, returning the rounded correction. A failed or timed-out read
// degrades to predict-only; a numerical failure in the update keeps the
// stale estimate.
func (l *Loop) estimate(ctx context.Context, setpoint float64) (int, bool) {
	dt := l.cfg.Dt()
	if err := l.ekf.Predict(dt); err != nil {
		log.Printf("flight: predict: %v", err)
	}

	measured := false
	readCtx, cancel := context.WithTimeout(ctx, time.Duration(l.cfg.ReadTimeoutMs)*time.Millisecond)
	reading, err := l.source.Read(readCtx)
	cancel()
	switch {
	case err != nil:
		// Missing measurement: fly on the prediction this tick.
	default:
		z := l.assemble(reading, dt)
		if err := l.ekf.Update(z); err != nil {
			if errors.Is(err, estimator.ErrNumerical) {
				log.Printf("flight: update skipped, estimate stale: %v", err)
			} else {
				log.Printf("flight: update: %v", err)
			}
		} else {
			measured = true
		}
	}

	out, err := l.pid.Compute(setpoint, l.ekf.Altitude())
	if err != nil {
		log.Printf("flight: pid: %v", err)
		return 0, measured
	}
	return int(math.Round(out)), measured
}

// assemble dead-reckons a full-state measurement from one raw sample:
// planar acceleration is integrated once for velocity and again for
// position on top of the previous estimate. The x axis maps to Accel[0];
// the altitude axis maps to Accel[2] with gravity removed. Angular rates
// are not observed by the planar model.
func (l *Loop) assemble(r Reading, dt float64) estimator.Measurement {
	prev := l.ekf.State()
	ax := r.Accel[0]
	ay := r.Accel[2] - gravity

	vx := prev[estimator.VX] + ax*dt
	vy := prev[estimator.VY] + ay*dt
	x := prev[estimator.X] + vx*dt
	y := prev[estimator.Y] + vy*dt

	return estimator.Measurement{x, y, vx, vy}
}

func (l *Loop) transition(cmd mixer.Command) {
	switch cmd.Maneuver {
	case mixer.Hover:
		l.mode = Hover
	case mixer.Forward:
		l.mode = Forward
	case mixer.Backward:
		l.mode = Backward
	case mixer.Left:
		l.mode = Left
	case mixer.Right:
		l.mode = Right
	case mixer.ManualSet:
		l.mode = ManualControl
		l.mix.Mix(cmd, 0)
	}
}

func maneuverFor(m Mode) mixer.Maneuver {
	switch m {
	case Hover:
		return mixer.Hover
	case Forward:
		return mixer.Forward
	case Backward:
		return mixer.Backward
	case Left:
		return mixer.Left
	case Right:
		return mixer.Right
	}
	return mixer.Hover
}

// Mode returns the mode as of the last completed tick. Safe only from the
// loop goroutine; concurrent readers should use an Observer.
func (l *Loop) Mode() Mode { return l.mode }

// PID exposes the altitude controller for live tuning.
func (l *Loop) PID() *control.PID { return l.pid }

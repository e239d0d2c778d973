// Package sim provides a software plant for bench-flying the control
// pipeline: it implements the flight loop's measurement-source and
// motor-actuator collaborators against a planar quadrotor model, so the
// whole estimator/controller/mixer chain can run without hardware.
package sim

import (
	"context"
	"math/rand"

	"github.com/san-kum/quadfc/internal/flight"
	"github.com/san-kum/quadfc/internal/mixer"
)

const (
	DefaultMass    = 1.2
	DefaultGravity = 9.81
	DefaultDrag    = 0.15

	// Horizontal acceleration at full front/rear thrust differential.
	tiltGain = 3.0
)

// Plant is a planar quadrotor: state [x, y, vx, vy] with y as altitude.
// Motor pulse widths map linearly onto thrust, scaled so that all four
// motors at HoverThrottle exactly balance gravity. It is stepped explicitly
// by the sim runner; all methods are called from the loop goroutine.
type Plant struct {
	Mass    float64
	Gravity float64
	Drag    float64

	// Accelerometer noise sigma in m/s²; gyro noise sigma in rad/s.
	AccelNoise float64
	GyroNoise  float64

	motors mixer.MotorCommand
	state  [4]float64
	accel  [2]float64 // last computed [ax, ay], gravity excluded
	rng    *rand.Rand
}

func NewPlant(seed int64) *Plant {
	return &Plant{
		Mass:       DefaultMass,
		Gravity:    DefaultGravity,
		Drag:       DefaultDrag,
		AccelNoise: 0.05,
		GyroNoise:  0.01,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

// Init implements flight.MotorActuator. The software plant never fails to
// attach.
func (p *Plant) Init() error { return nil }

// Write implements flight.MotorActuator.
func (p *Plant) Write(motor, pulseWidthUs int) error {
	if motor >= 0 && motor < mixer.NumMotors {
		p.motors[motor] = pulseWidthUs
	}
	return nil
}

// Read implements flight.MeasurementSource, returning the plant's current
// acceleration as a noisy 6-axis inertial sample. The vertical axis carries
// gravity the way a real accelerometer does.
func (p *Plant) Read(ctx context.Context) (flight.Reading, error) {
	if err := ctx.Err(); err != nil {
		return flight.Reading{}, err
	}
	return flight.Reading{
		Accel: [3]float64{
			p.accel[0] + p.rng.NormFloat64()*p.AccelNoise,
			p.rng.NormFloat64() * p.AccelNoise,
			p.accel[1] + p.Gravity + p.rng.NormFloat64()*p.AccelNoise,
		},
		Gyro: [3]float64{
			p.rng.NormFloat64() * p.GyroNoise,
			p.rng.NormFloat64() * p.GyroNoise,
			p.rng.NormFloat64() * p.GyroNoise,
		},
	}, nil
}

// Step advances the plant by dt seconds with a classic RK4 pass over the
// current motor commands.
func (p *Plant) Step(dt float64) {
	x := p.state

	k1 := p.derive(x)
	k2 := p.derive(shift(x, k1, dt*0.5))
	k3 := p.derive(shift(x, k2, dt*0.5))
	k4 := p.derive(shift(x, k3, dt))

	dt6 := dt / 6.0
	for i := range x {
		x[i] += dt6 * (k1[i] + 2*k2[i] + 2*k3[i] + k4[i])
	}

	// Ground plane: the airframe cannot fall through the floor.
	if x[1] < 0 {
		x[1] = 0
		if x[3] < 0 {
			x[3] = 0
		}
	}

	p.state = x
	d := p.derive(x)
	p.accel = [2]float64{d[2], d[3]}
}

// derive returns d/dt of [x, y, vx, vy].
func (p *Plant) derive(x [4]float64) [4]float64 {
	front := p.thrust(p.motors[0]) + p.thrust(p.motors[1])
	rear := p.thrust(p.motors[2]) + p.thrust(p.motors[3])
	total := front + rear

	ax := tiltGain*(rear-front)/p.maxThrust() - p.Drag*x[2]
	ay := total/p.Mass - p.Gravity - p.Drag*x[3]

	return [4]float64{x[2], x[3], ax, ay}
}

// thrust maps a pulse width onto Newtons. Scaled so four motors at
// HoverThrottle produce exactly Mass*Gravity; a zero pulse width is a
// disarmed ESC and produces nothing.
func (p *Plant) thrust(pw int) float64 {
	if pw <= 0 {
		return 0
	}
	frac := float64(pw-mixer.MinThrottle) / float64(mixer.MaxThrottle-mixer.MinThrottle)
	if frac < 0 {
		frac = 0
	}
	return frac * p.Mass * p.Gravity / 2
}

func (p *Plant) maxThrust() float64 {
	return 2 * p.Mass * p.Gravity
}

// State returns the true plant state [x, y, vx, vy].
func (p *Plant) State() [4]float64 { return p.state }

// Altitude returns the true height above ground.
func (p *Plant) Altitude() float64 { return p.state[1] }

func shift(x, k [4]float64, h float64) [4]float64 {
	for i := range x {
		x[i] += h * k[i]
	}
	return x
}

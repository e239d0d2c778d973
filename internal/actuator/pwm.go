// Package actuator drives the four ESCs through the Pi's hardware PWM
// channels. It is collaborator glue: bounds, stop semantics and clamping
// all live upstream in the mixer and flight loop.
package actuator

import (
	"fmt"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/san-kum/quadfc/internal/config"
	"github.com/san-kum/quadfc/internal/mixer"
)

// cycleLen subdivides one PWM period; pulse widths are expressed as a duty
// count out of this many slots.
const cycleLen = 20000

// PWM maps motor indices onto fixed BCM pins.
type PWM struct {
	pins   [mixer.NumMotors]rpio.Pin
	freqHz int
	opened bool
}

func New(cfg config.MotorsConfig) *PWM {
	a := &PWM{freqHz: cfg.FrequencyHz}
	for i, pin := range cfg.Pins {
		a.pins[i] = rpio.Pin(pin)
	}
	return a
}

// Init claims the GPIO device and configures every motor pin for PWM. Any
// failure here must abort startup: a motor must never spin without a
// confirmed channel.
func (a *PWM) Init() error {
	if err := rpio.Open(); err != nil {
		return fmt.Errorf("actuator: open gpio: %w", err)
	}
	a.opened = true
	for _, pin := range a.pins {
		pin.Mode(rpio.Pwm)
		pin.Freq(a.freqHz * cycleLen)
		pin.DutyCycle(0, cycleLen)
	}
	return nil
}

// Write implements flight.MotorActuator. A pulse width of 0 drops the duty
// cycle to nothing, which ESCs read as disarmed.
func (a *PWM) Write(motor, pulseWidthUs int) error {
	if motor < 0 || motor >= mixer.NumMotors {
		return fmt.Errorf("actuator: motor index %d out of range", motor)
	}
	if pulseWidthUs < 0 {
		return fmt.Errorf("actuator: negative pulse width %d", pulseWidthUs)
	}

	usPerCycle := 1000 * 1000 / a.freqHz
	duty := uint32(pulseWidthUs * cycleLen / usPerCycle)
	a.pins[motor].DutyCycle(duty, cycleLen)
	return nil
}

// Close disarms all motors and releases the GPIO device.
func (a *PWM) Close() error {
	if !a.opened {
		return nil
	}
	for _, pin := range a.pins {
		pin.DutyCycle(0, cycleLen)
	}
	a.opened = false
	return rpio.Close()
}

// Package imu reads raw inertial samples from an MPU-6050-class sensor
// over I2C. It is collaborator glue for the flight loop's measurement
// source; all fusion happens in the estimator.
package imu

import (
	"context"
	"fmt"
	"math"

	"github.com/kidoman/embd"
	_ "github.com/kidoman/embd/host/all"
	_ "github.com/kidoman/embd/host/rpi"

	"github.com/san-kum/quadfc/internal/flight"
)

const (
	regPwrMgmt1  = 0x6B
	regAccelXOut = 0x3B

	// Full-scale defaults: ±2 g accelerometer, ±250 °/s gyro.
	accelLSBPerG   = 16384.0
	gyroLSBPerDegS = 131.0

	g = 9.80665
)

// MPU6050 is a 6-axis inertial sensor on an I2C bus.
type MPU6050 struct {
	bus  embd.I2CBus
	addr byte
}

// New opens the bus and wakes the sensor out of sleep mode.
func New(busNo, addr byte) (*MPU6050, error) {
	bus := embd.NewI2CBus(busNo)
	if err := bus.WriteByteToReg(addr, regPwrMgmt1, 0x00); err != nil {
		return nil, fmt.Errorf("imu: wake sensor at 0x%02x: %w", addr, err)
	}
	return &MPU6050{bus: bus, addr: addr}, nil
}

// Read implements flight.MeasurementSource. The burst read covers the
// accelerometer, temperature and gyro registers in one transaction; the
// temperature words are discarded.
func (m *MPU6050) Read(ctx context.Context) (flight.Reading, error) {
	if err := ctx.Err(); err != nil {
		return flight.Reading{}, err
	}

	buf := make([]byte, 14)
	if err := m.bus.ReadFromReg(m.addr, regAccelXOut, buf); err != nil {
		return flight.Reading{}, fmt.Errorf("imu: burst read: %w", err)
	}

	word := func(i int) float64 {
		return float64(int16(uint16(buf[i])<<8 | uint16(buf[i+1])))
	}

	return flight.Reading{
		Accel: [3]float64{
			word(0) / accelLSBPerG * g,
			word(2) / accelLSBPerG * g,
			word(4) / accelLSBPerG * g,
		},
		Gyro: [3]float64{
			word(8) / gyroLSBPerDegS * math.Pi / 180,
			word(10) / gyroLSBPerDegS * math.Pi / 180,
			word(12) / gyroLSBPerDegS * math.Pi / 180,
		},
	}, nil
}

func (m *MPU6050) Close() error {
	return m.bus.Close()
}

package config

var Presets = map[string]*Config{
	// Low ceiling, soft gains, conservative hold altitude.
	"indoor": {
		TickRateHz:    100,
		ReadTimeoutMs: DefaultReadTimeout,
		AltitudeHold:  true,
		Setpoint:      1.0,
		PID:           PIDConfig{Kp: 8.0, Ki: 0.2, Kd: 4.0},
		Noise: NoiseConfig{
			Process:     [4]float64{0.01, 0.01, 0.05, 0.05},
			Measurement: [4]float64{0.3, 0.3, 0.8, 0.8},
			InitialCov:  [4]float64{1, 1, 100, 100},
		},
		IMU:       IMUConfig{Bus: 1, Address: 0x68},
		Motors:    MotorsConfig{Pins: [4]int{12, 13, 18, 19}, FrequencyHz: 50},
		Telemetry: Telemetry{Broker: "localhost", Port: "1883", TopicPrefix: "quadfc", ListenAddr: ":8000"},
	},
	// Gustier measurements, stiffer gains.
	"outdoor": {
		TickRateHz:    100,
		ReadTimeoutMs: DefaultReadTimeout,
		AltitudeHold:  true,
		Setpoint:      5.0,
		PID:           PIDConfig{Kp: 15.0, Ki: 0.6, Kd: 8.0},
		Noise: NoiseConfig{
			Process:     [4]float64{0.05, 0.05, 0.2, 0.2},
			Measurement: [4]float64{1.0, 1.0, 2.0, 2.0},
			InitialCov:  [4]float64{1, 1, 100, 100},
		},
		IMU:       IMUConfig{Bus: 1, Address: 0x68},
		Motors:    MotorsConfig{Pins: [4]int{12, 13, 18, 19}, FrequencyHz: 50},
		Telemetry: Telemetry{Broker: "localhost", Port: "1883", TopicPrefix: "quadfc", ListenAddr: ":8000"},
	},
	// Props off, slow tick for debugging against the software plant.
	"bench": {
		TickRateHz:    20,
		ReadTimeoutMs: 50,
		AltitudeHold:  false,
		Setpoint:      DefaultSetpoint,
		PID:           PIDConfig{Kp: DefaultKp, Ki: DefaultKi, Kd: DefaultKd},
		Noise: NoiseConfig{
			Process:     [4]float64{0.01, 0.01, 0.05, 0.05},
			Measurement: [4]float64{0.5, 0.5, 1.0, 1.0},
			InitialCov:  [4]float64{1, 1, 100, 100},
		},
		IMU:       IMUConfig{Bus: 1, Address: 0x68},
		Motors:    MotorsConfig{Pins: [4]int{12, 13, 18, 19}, FrequencyHz: 50},
		Telemetry: Telemetry{Broker: "localhost", Port: "1883", TopicPrefix: "quadfc", ListenAddr: ":8000"},
	},
}

func GetPreset(name string) *Config {
	return Presets[name]
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	return names
}

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/quadfc/internal/actuator"
	"github.com/san-kum/quadfc/internal/config"
	"github.com/san-kum/quadfc/internal/console"
	"github.com/san-kum/quadfc/internal/flight"
	"github.com/san-kum/quadfc/internal/imu"
	"github.com/san-kum/quadfc/internal/metrics"
	"github.com/san-kum/quadfc/internal/sim"
	"github.com/san-kum/quadfc/internal/telemetry"
)

var (
	configFile string
	preset     string
	hold       bool
	setpoint   float64
	kp         float64
	ki         float64
	kd         float64
	tickRate   int
	headless   bool
	noTelem    bool
	// sim only
	duration float64
	seed     int64
	maneuver string
)

// main registers the quadfc commands: fly drives real hardware, sim bench-
// flies the pipeline against a software plant, preset inspects the bundled
// configurations.
func main() {
	rootCmd := &cobra.Command{
		Use:   "quadfc",
		Short: "quadrotor estimation-and-control core",
	}

	flyCmd := &cobra.Command{
		Use:   "fly",
		Short: "run the control loop on real hardware",
		RunE:  runFly,
	}
	addCommonFlags(flyCmd)
	flyCmd.Flags().BoolVar(&headless, "headless", false, "run without the operator console")
	flyCmd.Flags().BoolVar(&noTelem, "no-telemetry", false, "disable MQTT/websocket telemetry")

	simCmd := &cobra.Command{
		Use:   "sim",
		Short: "bench-fly the pipeline against a software plant",
		RunE:  runSim,
	}
	addCommonFlags(simCmd)
	simCmd.Flags().Float64Var(&duration, "time", 10.0, "flight duration in seconds")
	simCmd.Flags().Int64Var(&seed, "seed", time.Now().UnixNano(), "plant noise seed")
	simCmd.Flags().StringVar(&maneuver, "maneuver", "hover", "initial maneuver")

	presetCmd := &cobra.Command{
		Use:   "preset [name]",
		Short: "list or show bundled configurations",
		RunE:  runPreset,
	}

	rootCmd.AddCommand(flyCmd, simCmd, presetCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().BoolVar(&hold, "hold", false, "engage altitude hold at startup")
	cmd.Flags().Float64Var(&setpoint, "setpoint", config.DefaultSetpoint, "altitude setpoint in meters")
	cmd.Flags().Float64Var(&kp, "kp", config.DefaultKp, "pid kp")
	cmd.Flags().Float64Var(&ki, "ki", config.DefaultKi, "pid ki")
	cmd.Flags().Float64Var(&kd, "kd", config.DefaultKd, "pid kd")
	cmd.Flags().IntVar(&tickRate, "rate", config.DefaultTickRate, "control loop rate in Hz")
}

// buildConfig resolves preset < config file < explicit flags, the same
// precedence the reference tooling used.
func buildConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		cfg = p
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	if cmd.Flags().Changed("hold") {
		cfg.AltitudeHold = hold
	}
	if cmd.Flags().Changed("setpoint") {
		cfg.Setpoint = setpoint
	}
	if cmd.Flags().Changed("kp") {
		cfg.PID.Kp = kp
	}
	if cmd.Flags().Changed("ki") {
		cfg.PID.Ki = ki
	}
	if cmd.Flags().Changed("kd") {
		cfg.PID.Kd = kd
	}
	if cmd.Flags().Changed("rate") {
		cfg.TickRateHz = tickRate
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runFly(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	source, err := imu.New(cfg.IMU.Bus, cfg.IMU.Address)
	if err != nil {
		return err
	}
	defer source.Close()

	motors := actuator.New(cfg.Motors)
	defer motors.Close()

	loop := flight.New(cfg, source, motors)

	var client mqtt.Client
	if !noTelem {
		client, err = telemetry.Connect(cfg.Telemetry, "quadfc")
		if err != nil {
			log.Printf("telemetry disabled: %v", err)
		} else {
			defer client.Disconnect(250)
			pub := telemetry.NewPublisher(client, cfg.Telemetry.TopicPrefix)
			defer pub.Close()
			loop.AddObserver(pub)
			if err := telemetry.SubscribeCommands(client, cfg.Telemetry.TopicPrefix, loop); err != nil {
				log.Print(err)
			}

			hub := telemetry.NewHub()
			defer hub.Close()
			loop.AddObserver(hub)
			http.HandleFunc("/ws", hub.ServeWS)
			go func() {
				if err := http.ListenAndServe(cfg.Telemetry.ListenAddr, nil); err != nil {
					log.Printf("websocket listener: %v", err)
				}
			}()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	var cons *console.Console
	if !headless {
		cons = console.New(loop)
		loop.AddObserver(cons)
	}

	go func() { errCh <- loop.Run(ctx) }()

	// A bad actuator channel fails inside Run before the first tick; give
	// it a moment to surface before taking over the terminal.
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
	}

	if headless {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		select {
		case err := <-errCh:
			return err
		case <-sig:
			cancel()
			<-errCh
			return nil
		}
	}

	if err := cons.Run(); err != nil {
		cancel()
		<-errCh
		return err
	}
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func runSim(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	plant := sim.NewPlant(seed)
	loop := flight.New(cfg, plant, plant)
	runner := sim.NewRunner(loop, plant, cfg.Dt())
	runner.AddMetric(metrics.NewControlEffort())
	runner.AddMetric(metrics.NewTrackingError())
	runner.AddMetric(metrics.NewMeasurementDropRate())

	telemetry.Dispatch(loop, telemetry.CommandMessage{Maneuver: maneuver})

	steps := int(duration / cfg.Dt())
	res, err := runner.Run(context.Background(), steps)
	if err != nil {
		return err
	}

	fmt.Println(asciigraph.Plot(res.Altitude,
		asciigraph.Height(12),
		asciigraph.Width(70),
		asciigraph.Caption("true altitude (m)")))
	fmt.Println()
	fmt.Println(asciigraph.Plot(res.Estimated,
		asciigraph.Height(12),
		asciigraph.Width(70),
		asciigraph.Caption("estimated altitude (m)")))
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "steps\t%d\n", res.Steps)
	fmt.Fprintf(w, "mode\t%s\n", res.Final.Mode)
	fmt.Fprintf(w, "motors\t%v\n", res.Final.Motors)
	fmt.Fprintf(w, "estimate\t%+.3f\n", res.Final.State)
	fmt.Fprintf(w, "true altitude\t%.3f\n", plant.Altitude())
	fmt.Fprintf(w, "setpoint\t%.3f (hold %v)\n", res.Final.Setpoint, res.Final.AltitudeHold)
	for name, value := range res.Metrics {
		fmt.Fprintf(w, "%s\t%.4f\n", name, value)
	}
	return w.Flush()
}

func runPreset(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		for _, name := range config.ListPresets() {
			fmt.Println(name)
		}
		return nil
	}

	cfg := config.GetPreset(args[0])
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", args[0], config.ListPresets())
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	fmt.Print(string(out))
	return nil
}

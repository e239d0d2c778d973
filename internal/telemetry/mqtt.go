// Package telemetry publishes per-tick flight status over MQTT and
// websocket, and feeds operator commands from MQTT back into the flight
// loop. Nothing here is flight-critical: observers never block the loop
// and a dead broker only costs visibility.
package telemetry

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/san-kum/quadfc/internal/config"
	"github.com/san-kum/quadfc/internal/flight"
	"github.com/san-kum/quadfc/internal/mixer"
)

// Connect dials the broker once and keeps reconnecting in the background
// afterwards.
func Connect(cfg config.Telemetry, clientID string) (mqtt.Client, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%s", cfg.Broker, cfg.Port))
	opts.SetClientID(clientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.OnConnect = func(mqtt.Client) {
		log.Println("telemetry: connected to MQTT broker")
	}
	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		log.Printf("telemetry: connection lost: %v", err)
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("telemetry: connect: %w", token.Error())
	}
	return client, nil
}

// Publisher forwards status snapshots to the broker. OnTick never blocks:
// when the publish goroutine falls behind, stale snapshots are dropped.
type Publisher struct {
	client mqtt.Client
	topic  string
	ch     chan flight.Status
	done   chan struct{}
}

func NewPublisher(client mqtt.Client, topicPrefix string) *Publisher {
	p := &Publisher{
		client: client,
		topic:  topicPrefix + "/status",
		ch:     make(chan flight.Status, 64),
		done:   make(chan struct{}),
	}
	go p.run()
	return p
}

func (p *Publisher) OnTick(s flight.Status) {
	select {
	case p.ch <- s:
	default:
	}
}

func (p *Publisher) run() {
	for {
		select {
		case <-p.done:
			return
		case s := <-p.ch:
			payload, err := json.Marshal(s)
			if err != nil {
				log.Printf("telemetry: marshal status: %v", err)
				continue
			}
			p.client.Publish(p.topic, 0, false, payload)
		}
	}
}

func (p *Publisher) Close() { close(p.done) }

// CommandMessage is the JSON shape accepted on the command topic. Maneuver
// is one of hover, forward, backward, left, right, emergency_stop or
// manual_set; setpoint and altitude_hold ride along optionally.
type CommandMessage struct {
	Maneuver     string   `json:"maneuver,omitempty"`
	Motor        int      `json:"motor,omitempty"`
	PulseWidth   int      `json:"pulse_width,omitempty"`
	Setpoint     *float64 `json:"setpoint,omitempty"`
	AltitudeHold *bool    `json:"altitude_hold,omitempty"`
}

// SubscribeCommands routes command messages into the flight loop.
func SubscribeCommands(client mqtt.Client, topicPrefix string, loop *flight.Loop) error {
	topic := topicPrefix + "/cmd"
	handler := func(_ mqtt.Client, msg mqtt.Message) {
		var cm CommandMessage
		if err := json.Unmarshal(msg.Payload(), &cm); err != nil {
			log.Printf("telemetry: bad command payload: %v", err)
			return
		}
		Dispatch(loop, cm)
	}

	if token := client.Subscribe(topic, 0, handler); token.Wait() && token.Error() != nil {
		return fmt.Errorf("telemetry: subscribe %s: %w", topic, token.Error())
	}
	log.Printf("telemetry: subscribed to %s", topic)
	return nil
}

// Dispatch applies a decoded command message to the loop. Unknown maneuver
// names are logged and dropped; the setpoint and hold fields apply even
// when no maneuver is present.
func Dispatch(loop *flight.Loop, cm CommandMessage) {
	if cm.Setpoint != nil {
		loop.SetSetpoint(*cm.Setpoint)
	}
	if cm.AltitudeHold != nil {
		loop.SetAltitudeHold(*cm.AltitudeHold)
	}
	if cm.Maneuver == "" {
		return
	}

	cmd, ok := parseManeuver(cm)
	if !ok {
		log.Printf("telemetry: unknown maneuver %q", cm.Maneuver)
		return
	}
	loop.Apply(cmd)
}

func parseManeuver(cm CommandMessage) (mixer.Command, bool) {
	switch cm.Maneuver {
	case "hover":
		return mixer.Command{Maneuver: mixer.Hover}, true
	case "forward":
		return mixer.Command{Maneuver: mixer.Forward}, true
	case "backward":
		return mixer.Command{Maneuver: mixer.Backward}, true
	case "left":
		return mixer.Command{Maneuver: mixer.Left}, true
	case "right":
		return mixer.Command{Maneuver: mixer.Right}, true
	case "emergency_stop":
		return mixer.Command{Maneuver: mixer.EmergencyStop}, true
	case "manual_set":
		return mixer.Command{Maneuver: mixer.ManualSet, Motor: cm.Motor, PulseWidth: cm.PulseWidth}, true
	}
	return mixer.Command{}, false
}

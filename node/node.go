// Package node assembles the sensor node from its peripherals and runs the
// main loop: interrupt-fed receiver, dispatcher, sensor, transmitter.
package node

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mklimuk/lightnode/command"
	"github.com/mklimuk/lightnode/config"
	"github.com/mklimuk/lightnode/environment"
	"github.com/mklimuk/lightnode/hal"
	"github.com/mklimuk/lightnode/i2c"
	"github.com/mklimuk/lightnode/serial"
)

// Peripherals are the register blocks the node drives. They must be clocked,
// pin-routed and enabled before New is called.
type Peripherals struct {
	I2C   hal.RegisterBlock
	USART hal.RegisterBlock
}

type Node struct {
	bus          *i2c.Controller
	sensor       *environment.BH1750
	rx           *serial.Receiver
	tx           *serial.Transmitter
	dispatcher   *command.Dispatcher
	pollInterval time.Duration
}

func New(p Peripherals, cfg config.Config) (*Node, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := environment.ParseMode(cfg.Sensor.Mode)
	if err != nil {
		return nil, fmt.Errorf("sensor.mode: %w", err)
	}
	bus := i2c.NewController(p.I2C, i2c.WithTimeouts(i2c.Timeouts{
		Busy:    cfg.Bus.Busy.Poller(),
		Start:   cfg.Bus.Start.Poller(),
		Address: cfg.Bus.Address.Poller(),
		Byte:    cfg.Bus.Byte.Poller(),
		Stop:    cfg.Bus.Stop.Poller(),
	}))
	sensor := environment.NewBH1750(bus, cfg.Sensor.Address, environment.WithMode(mode))
	rx := serial.NewReceiver(p.USART,
		serial.WithCapacity(cfg.Serial.RxCapacity),
		serial.WithMaxCommand(cfg.Serial.MaxCommand),
	)
	tx := serial.NewTransmitter(p.USART, cfg.Serial.Tx.Poller())
	return &Node{
		bus:          bus,
		sensor:       sensor,
		rx:           rx,
		tx:           tx,
		dispatcher:   command.NewDispatcher(rx, tx, sensor),
		pollInterval: time.Duration(cfg.Loop.PollInterval),
	}, nil
}

// HandleInterrupt is the USART receive interrupt handler to install on the vector table.
func (n *Node) HandleInterrupt() {
	n.rx.HandleInterrupt()
}

// Console is the output the node uses for human-readable text.
func (n *Node) Console() *serial.Transmitter {
	return n.tx
}

// Shutdown powers the sensor down and releases the bus if a transaction was left open.
func (n *Node) Shutdown(ctx context.Context) error {
	err := n.sensor.PowerDown(ctx)
	if err != nil {
		return fmt.Errorf("could not power down light sensor: %w", err)
	}
	return n.bus.Release(ctx)
}

func (n *Node) Stats() serial.Stats {
	return n.rx.Stats()
}

// Start configures the sensor. The node stays usable after a failure: commands
// are still answered and light reads report a sensor error.
func (n *Node) Start(ctx context.Context) error {
	err := n.sensor.Init(ctx)
	if err != nil {
		slog.Error("light sensor init failed", "error", err)
		return fmt.Errorf("could not init light sensor: %w", err)
	}
	slog.Info("light sensor ready")
	return nil
}

// Poll runs one iteration of the main loop.
func (n *Node) Poll(ctx context.Context) (bool, error) {
	return n.dispatcher.Poll(ctx)
}

// Run polls the dispatcher until ctx is done.
func (n *Node) Run(ctx context.Context) error {
	var ticker *time.Ticker
	if n.pollInterval > 0 {
		ticker = time.NewTicker(n.pollInterval)
		defer ticker.Stop()
	}
	for {
		handled, err := n.dispatcher.Poll(ctx)
		if err != nil {
			slog.Error("command dispatch failed", "error", err)
		}
		if handled {
			continue
		}
		if ticker == nil {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			continue
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

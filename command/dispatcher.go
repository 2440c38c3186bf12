// Package command matches received lines against the node's command set and
// sends exactly one reply per line.
package command

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mklimuk/lightnode"
)

// Recognized command lines, matched verbatim including the terminator.
const (
	LightRead = "light read\r\n"
	Status    = "status\r\n"
	Help      = "help\r\n"
)

const (
	ReplyStatus      = "System Status: OK\r\n"
	ReplyHelp        = "1. light read\r\n2. status\r\n3. help\r\n"
	ReplyUnknown     = "Unknown Command\r\n"
	ReplySensorError = "Sensor Error\r\n"
	lightValueFormat = "Light Value: %d\r\n"
)

// LineSource is the receive side the dispatcher drains.
type LineSource interface {
	LineReady() bool
	TakeLine() []byte
}

// Sender is the blocking output side.
type Sender interface {
	Send(ctx context.Context, p []byte) error
}

type State int

const (
	Idle State = iota
	Dispatching
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Dispatching:
		return "dispatching"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

type action func(ctx context.Context) string

type entry struct {
	text   string
	action action
}

// Dispatcher runs on the main context only.
type Dispatcher struct {
	rx      LineSource
	tx      Sender
	sensor  lightnode.LightSensor
	state   State
	table   []entry
	handled uint64
}

func NewDispatcher(rx LineSource, tx Sender, sensor lightnode.LightSensor) *Dispatcher {
	d := &Dispatcher{
		rx:     rx,
		tx:     tx,
		sensor: sensor,
		state:  Idle,
	}
	d.table = []entry{
		{text: LightRead, action: d.lightRead},
		{text: Status, action: fixed(ReplyStatus)},
		{text: Help, action: fixed(ReplyHelp)},
	}
	return d
}

func (d *Dispatcher) State() State {
	return d.state
}

// Handled returns the number of lines dispatched so far.
func (d *Dispatcher) Handled() uint64 {
	return d.handled
}

// Poll dispatches one line if the receiver has signalled one. It reports whether
// a line was handled.
func (d *Dispatcher) Poll(ctx context.Context) (bool, error) {
	if d.state != Idle || !d.rx.LineReady() {
		return false, nil
	}
	d.state = Dispatching
	defer func() {
		d.state = Idle
	}()
	line := d.rx.TakeLine()
	if len(line) == 0 {
		// the flag was raised again by a terminator the previous drain already took
		return false, nil
	}
	return true, d.Dispatch(ctx, line)
}

// Dispatch replies to one command line.
func (d *Dispatcher) Dispatch(ctx context.Context, line []byte) error {
	d.handled++
	reply := d.reply(ctx, string(line))
	err := d.tx.Send(ctx, []byte(reply))
	if err != nil {
		return fmt.Errorf("could not send reply to %q: %w", line, err)
	}
	return nil
}

func (d *Dispatcher) reply(ctx context.Context, line string) string {
	for _, e := range d.table {
		if e.text == line {
			slog.Debug("dispatching command", "command", fmt.Sprintf("%q", line))
			return e.action(ctx)
		}
	}
	slog.Debug("unknown command", "line", fmt.Sprintf("%q", line))
	return ReplyUnknown
}

func (d *Dispatcher) lightRead(ctx context.Context) string {
	raw, err := d.sensor.Read(ctx)
	if err != nil {
		slog.Error("light sensor read failed", "error", err)
		return ReplySensorError
	}
	return fmt.Sprintf(lightValueFormat, raw)
}

func fixed(reply string) action {
	return func(context.Context) string {
		return reply
	}
}

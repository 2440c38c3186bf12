// Package i2c implements two-wire bus masters: Controller drives the on-chip
// peripheral register by register, GenericBus and GobotBus wrap host buses.
package i2c

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"tinygo.org/x/drivers"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/hal"
)

type Direction byte

const (
	DirWrite Direction = 0
	DirRead  Direction = 1
)

func (d Direction) String() string {
	if d == DirRead {
		return "read"
	}
	return "write"
}

// Timeouts holds the poll budget of every status wait the controller performs.
type Timeouts struct {
	Busy    hal.Poller
	Start   hal.Poller
	Address hal.Poller
	Byte    hal.Poller
	Stop    hal.Poller
}

// DefaultTimeouts is sized for a 100kHz bus polled by a fast core: a byte takes
// ~90us on the wire, far below the default attempt budget.
func DefaultTimeouts() Timeouts {
	p := hal.Poller{Attempts: hal.DefaultPollAttempts}
	return Timeouts{Busy: p, Start: p, Address: p, Byte: p, Stop: p}
}

type ControllerOpt func(*Controller)

func WithTimeouts(t Timeouts) ControllerOpt {
	return func(c *Controller) {
		c.timeouts = t
	}
}

var _ lightnode.I2CBus = &Controller{}
var _ drivers.I2C = &Controller{}

// Controller is the register-level bus master. The primitives (Start, Select,
// SendByte, RecvByte, Stop) leave sequencing to the caller; the composites
// (Write, WriteToAddr, ReadFromAddr, Tx) hold the controller for a whole
// transaction.
type Controller struct {
	mx       sync.Mutex
	regs     hal.RegisterBlock
	timeouts Timeouts
}

func NewController(regs hal.RegisterBlock, opts ...ControllerOpt) *Controller {
	c := &Controller{
		regs:     regs,
		timeouts: DefaultTimeouts(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Controller) IsBusy() bool {
	return hal.I2CBusy.IsSet(c.regs)
}

func (c *Controller) Start(ctx context.Context) error {
	hal.I2CStart.Set(c.regs)
	return c.wait(ctx, c.timeouts.Start, "start", hal.I2CStartSent)
}

// Select sends the address byte and clears ADDR by reading SR1 then SR2.
// A NACKed address releases the bus and returns ErrNoAck.
func (c *Controller) Select(ctx context.Context, address byte, dir Direction) error {
	if address > 0x7F {
		return fmt.Errorf("%#x: %w", address, lightnode.ErrInvalidAddress)
	}
	_ = hal.I2CData.Write(c.regs, uint32(address<<1|byte(dir)))
	nack := false
	err := c.timeouts.Address.Until(ctx, func() bool {
		sr1 := c.regs.Load(hal.I2CSR1)
		nack = hal.I2CAckFailure.In(sr1)
		return nack || hal.I2CAddrSent.In(sr1)
	})
	if err != nil {
		return c.waitErr("select", hal.I2CAddrSent, err)
	}
	if nack {
		hal.I2CAckFailure.Clear(c.regs)
		_ = c.Stop(ctx)
		return fmt.Errorf("select %#x (%s): %w", address, dir, lightnode.ErrNoAck)
	}
	_ = c.regs.Load(hal.I2CSR1)
	_ = c.regs.Load(hal.I2CSR2)
	return nil
}

func (c *Controller) SendByte(ctx context.Context, b byte) error {
	_ = hal.I2CData.Write(c.regs, uint32(b))
	nack := false
	err := c.timeouts.Byte.Until(ctx, func() bool {
		sr1 := c.regs.Load(hal.I2CSR1)
		nack = hal.I2CAckFailure.In(sr1)
		return nack || hal.I2CByteDone.In(sr1)
	})
	if err != nil {
		return c.waitErr("send byte", hal.I2CByteDone, err)
	}
	if nack {
		hal.I2CAckFailure.Clear(c.regs)
		return fmt.Errorf("send byte %#02x: %w", b, lightnode.ErrNoAck)
	}
	return nil
}

// SetAck switches the hardware acknowledge of received bytes on or off.
func (c *Controller) SetAck(on bool) {
	if on {
		hal.I2CAck.Set(c.regs)
		return
	}
	hal.I2CAck.Clear(c.regs)
}

// RecvByte receives one byte. With ack set the controller acknowledges it and
// the target goes on sending; without it the byte is the last one.
func (c *Controller) RecvByte(ctx context.Context, ack bool) (byte, error) {
	c.SetAck(ack)
	err := c.wait(ctx, c.timeouts.Byte, "receive byte", hal.I2CRxNotEmpty)
	if err != nil {
		return 0, err
	}
	return byte(hal.I2CData.Get(c.regs)), nil
}

// Stop generates a stop condition and waits for the bus to be released.
func (c *Controller) Stop(ctx context.Context) error {
	hal.I2CStop.Set(c.regs)
	err := c.timeouts.Stop.Until(ctx, func() bool {
		return !c.IsBusy()
	})
	if err != nil {
		return c.waitErr("stop", hal.I2CBusy, err)
	}
	return nil
}

// Write is the single byte write used for sensor configuration.
func (c *Controller) Write(ctx context.Context, address byte, data byte) error {
	return c.WriteToAddr(ctx, address, []byte{data})
}

func (c *Controller) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.tx(ctx, address, buffer, nil)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (c *Controller) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	err := c.tx(ctx, address, nil, buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

// Tx writes w then reads into r using a repeated start, so TinyGo drivers can use the controller.
func (c *Controller) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return fmt.Errorf("%#x: %w", addr, lightnode.ErrInvalidAddress)
	}
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.tx(context.Background(), byte(addr), w, r)
}

// Release generates a stop if the controller still owns the bus.
func (c *Controller) Release(ctx context.Context) error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if !hal.I2CMaster.IsSet(c.regs) {
		return nil
	}
	return c.Stop(ctx)
}

func (c *Controller) tx(ctx context.Context, address byte, w, r []byte) error {
	if address > 0x7F {
		return fmt.Errorf("%#x: %w", address, lightnode.ErrInvalidAddress)
	}
	err := c.timeouts.Busy.Until(ctx, func() bool {
		return !c.IsBusy()
	})
	if err != nil {
		if errors.Is(err, hal.ErrTimeout) {
			return fmt.Errorf("%w: %w", lightnode.ErrBusBusy, lightnode.ErrBusTimeout)
		}
		return err
	}
	if len(w) > 0 || len(r) == 0 {
		if err := c.begin(ctx, address, DirWrite); err != nil {
			return err
		}
		for _, b := range w {
			if err := c.SendByte(ctx, b); err != nil {
				c.abort(ctx, err)
				return err
			}
		}
	}
	if len(r) > 0 {
		if err := c.begin(ctx, address, DirRead); err != nil {
			return err
		}
		for i := range r {
			b, err := c.RecvByte(ctx, i < len(r)-1)
			if err != nil {
				c.abort(ctx, err)
				return err
			}
			r[i] = b
		}
	}
	return c.Stop(ctx)
}

func (c *Controller) begin(ctx context.Context, address byte, dir Direction) error {
	if err := c.Start(ctx); err != nil {
		c.abort(ctx, err)
		return err
	}
	if err := c.Select(ctx, address, dir); err != nil {
		if !errors.Is(err, lightnode.ErrNoAck) {
			// NACK path already released the bus
			c.abort(ctx, err)
		}
		return err
	}
	return nil
}

func (c *Controller) abort(ctx context.Context, cause error) {
	slog.Debug("aborting i2c transaction", "cause", cause)
	if err := c.Stop(ctx); err != nil {
		slog.Debug("stop after failed transaction", "error", err)
	}
}

func (c *Controller) wait(ctx context.Context, p hal.Poller, op string, flag hal.Field) error {
	err := p.Until(ctx, func() bool {
		return flag.IsSet(c.regs)
	})
	if err != nil {
		return c.waitErr(op, flag, err)
	}
	return nil
}

func (c *Controller) waitErr(op string, flag hal.Field, err error) error {
	if errors.Is(err, hal.ErrTimeout) {
		return fmt.Errorf("%s: waiting for %s: %w", op, flag, lightnode.ErrBusTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}

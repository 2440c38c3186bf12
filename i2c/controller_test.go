package i2c

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tinygo.org/x/drivers"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/hal"
	"github.com/mklimuk/lightnode/hal/sim"
)

const sensorAddr = 0x23

func newTestController(t *testing.T, raw uint16) (*Controller, *sim.I2C, *sim.BH1750) {
	t.Helper()
	bus := sim.NewI2C()
	dev := sim.NewBH1750(sensorAddr, raw)
	bus.Attach(dev)
	p := hal.Poller{Attempts: 50}
	c := NewController(bus, WithTimeouts(Timeouts{Busy: p, Start: p, Address: p, Byte: p, Stop: p}))
	return c, bus, dev
}

func TestController_Write(t *testing.T) {
	c, bus, dev := newTestController(t, 0)

	err := c.Write(context.Background(), sensorAddr, 0x01)
	require.NoError(t, err)

	assert.Equal(t, []sim.Event{
		{Kind: sim.EventStart},
		{Kind: sim.EventAddress, Addr: sensorAddr, Ack: true},
		{Kind: sim.EventWrite, Data: 0x01, Ack: true},
		{Kind: sim.EventStop},
	}, bus.Events())
	assert.Equal(t, []byte{0x01}, dev.Written())
	assert.False(t, c.IsBusy())
}

func TestController_ReadAckSequence(t *testing.T) {
	c, bus, _ := newTestController(t, 0x012C)

	buf := make([]byte, 2)
	err := c.ReadFromAddr(context.Background(), sensorAddr, buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x2C}, buf)

	assert.Equal(t, []sim.Event{
		{Kind: sim.EventStart},
		{Kind: sim.EventAddress, Addr: sensorAddr, Read: true, Ack: true},
		{Kind: sim.EventRead, Data: 0x01, Ack: true},
		{Kind: sim.EventRead, Data: 0x2C, Ack: false},
		{Kind: sim.EventStop},
	}, bus.Events())
	assert.False(t, c.IsBusy())
}

func TestController_Primitives(t *testing.T) {
	c, bus, _ := newTestController(t, 0xABCD)
	ctx := context.Background()

	require.False(t, c.IsBusy())
	require.NoError(t, c.Start(ctx))
	assert.True(t, c.IsBusy())
	require.NoError(t, c.Select(ctx, sensorAddr, DirRead))
	hi, err := c.RecvByte(ctx, true)
	require.NoError(t, err)
	lo, err := c.RecvByte(ctx, false)
	require.NoError(t, err)
	require.NoError(t, c.Stop(ctx))

	assert.Equal(t, byte(0xAB), hi)
	assert.Equal(t, byte(0xCD), lo)
	assert.False(t, c.IsBusy())
	assert.Len(t, bus.Events(), 5)
}

func TestController_SelectWithoutStatusReadsHangs(t *testing.T) {
	bus := sim.NewI2C()
	bus.Attach(sim.NewBH1750(sensorAddr, 0x1234))
	ctx := context.Background()
	c := NewController(bus, WithTimeouts(Timeouts{Byte: hal.Poller{Attempts: 20}}))

	require.NoError(t, c.Start(ctx))
	// address phase done by hand, ADDR left pending
	require.NoError(t, hal.I2CData.Write(bus, sensorAddr<<1|1))
	require.True(t, hal.I2CAddrSent.IsSet(bus))

	_, err := c.RecvByte(ctx, true)
	assert.ErrorIs(t, err, lightnode.ErrBusTimeout)
}

func TestController_NoAck(t *testing.T) {
	c, bus, _ := newTestController(t, 0)

	err := c.Write(context.Background(), 0x42, 0x01)
	assert.ErrorIs(t, err, lightnode.ErrNoAck)
	assert.False(t, c.IsBusy(), "bus must be released after a NACK")

	events := bus.Events()
	require.Len(t, events, 3)
	assert.Equal(t, sim.Event{Kind: sim.EventAddress, Addr: 0x42, Ack: false}, events[1])
	assert.Equal(t, sim.EventStop, events[2].Kind)
	assert.False(t, hal.I2CAckFailure.IsSet(bus), "AF must be cleared")

	// next transaction works
	err = c.Write(context.Background(), sensorAddr, 0x10)
	assert.NoError(t, err)
}

func TestController_BusyGuard(t *testing.T) {
	c, bus, dev := newTestController(t, 0)
	bus.HoldBus(true)

	err := c.Write(context.Background(), sensorAddr, 0x01)
	assert.ErrorIs(t, err, lightnode.ErrBusBusy)
	assert.ErrorIs(t, err, lightnode.ErrBusTimeout)
	assert.Empty(t, bus.Events(), "no start may be generated on a busy bus")
	assert.Empty(t, dev.Written())

	bus.HoldBus(false)
	assert.NoError(t, c.Write(context.Background(), sensorAddr, 0x01))
}

func TestController_StalledPeripheral(t *testing.T) {
	c, bus, _ := newTestController(t, 0)
	bus.Stall(true)

	err := c.Write(context.Background(), sensorAddr, 0x01)
	assert.ErrorIs(t, err, lightnode.ErrBusTimeout)
	assert.Contains(t, err.Error(), "SB")
}

func TestController_ContextCancelled(t *testing.T) {
	c, bus, _ := newTestController(t, 0)
	bus.Stall(true)
	c.timeouts.Start = hal.Poller{Attempts: 1000, Interval: time.Second}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := c.Write(ctx, sensorAddr, 0x01)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestController_InvalidAddress(t *testing.T) {
	c, bus, _ := newTestController(t, 0)

	err := c.Write(context.Background(), 0x80, 0x01)
	assert.ErrorIs(t, err, lightnode.ErrInvalidAddress)
	assert.ErrorIs(t, c.Tx(0x100, []byte{0x01}, nil), lightnode.ErrInvalidAddress)
	assert.Empty(t, bus.Events())
}

func TestController_TxRepeatedStart(t *testing.T) {
	c, bus, dev := newTestController(t, 0x0102)
	var bus2 drivers.I2C = c

	r := make([]byte, 2)
	err := bus2.Tx(sensorAddr, []byte{0x10}, r)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x02}, r)
	assert.Equal(t, []byte{0x10}, dev.Written())

	kinds := make([]sim.EventKind, 0)
	for _, e := range bus.Events() {
		kinds = append(kinds, e.Kind)
	}
	assert.Equal(t, []sim.EventKind{
		sim.EventStart, sim.EventAddress, sim.EventWrite,
		sim.EventStart, sim.EventAddress, sim.EventRead, sim.EventRead,
		sim.EventStop,
	}, kinds)
}

func TestController_Release(t *testing.T) {
	c, bus, _ := newTestController(t, 0)
	ctx := context.Background()

	assert.NoError(t, c.Release(ctx))
	assert.Empty(t, bus.Events())

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Release(ctx))
	assert.False(t, c.IsBusy())
}

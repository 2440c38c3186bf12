package environment

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/hal"
	"github.com/mklimuk/lightnode/hal/sim"
	"github.com/mklimuk/lightnode/i2c"
)

// MockI2CBus is a mock implementation of lightnode.I2CBus using testify/mock
type MockI2CBus struct {
	mock.Mock
}

func (m *MockI2CBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	return args.Error(0)
}

func (m *MockI2CBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	args := m.Called(ctx, address, buffer)
	if data, ok := args.Get(0).([]byte); ok && len(data) <= len(buffer) {
		copy(buffer, data)
	}
	return args.Error(1)
}

func (m *MockI2CBus) Release(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestBH1750_Init(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow)
	ctx := context.Background()

	first := bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x01}).Return(nil).Once()
	bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x10}).Return(nil).Once().NotBefore(first)

	require.NoError(t, sensor.Init(ctx))
	bus.AssertExpectations(t)
}

func TestBH1750_InitError(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow)

	bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x01}).Return(lightnode.ErrNoAck).Once()

	err := sensor.Init(context.Background())
	assert.ErrorIs(t, err, lightnode.ErrNoAck)
	bus.AssertNumberOfCalls(t, "WriteToAddr", 1)
}

func TestBH1750_Read(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		raw  uint16
		lux  int
	}{
		{name: "300", data: []byte{0x01, 0x2C}, raw: 300, lux: 250},
		{name: "dark", data: []byte{0x00, 0x00}, raw: 0, lux: 0},
		{name: "saturated", data: []byte{0xFF, 0xFF}, raw: 65535, lux: 54612},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := new(MockI2CBus)
			sensor := NewBH1750(bus, BH1750AddrHigh)
			bus.On("ReadFromAddr", mock.Anything, byte(BH1750AddrHigh), mock.Anything).Return(tt.data, nil)

			raw, err := sensor.Read(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.raw, raw)

			lux, err := sensor.GetLux(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tt.lux, lux)
		})
	}
}

func TestBH1750_ReadError(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow)
	bus.On("ReadFromAddr", mock.Anything, byte(BH1750AddrLow), mock.Anything).Return(nil, errors.New("bus fault"))

	_, err := sensor.Read(context.Background())
	assert.ErrorContains(t, err, "bus fault")
}

func TestBH1750_OneTimeMode(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow, WithMode(ModeOneTimeLowRes))
	ctx := context.Background()

	write := bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x23}).Return(nil).Once()
	bus.On("ReadFromAddr", mock.Anything, byte(BH1750AddrLow), mock.Anything).Return([]byte{0x00, 0x78}, nil).Once().NotBefore(write)

	start := time.Now()
	raw, err := sensor.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(120), raw)
	assert.GreaterOrEqual(t, time.Since(start), ModeOneTimeLowRes.ConversionTime())
	bus.AssertExpectations(t)
}

func TestBH1750_OneTimeModeCancelled(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow, WithMode(ModeOneTimeHighRes))
	bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x20}).Return(nil).Once()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := sensor.Read(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	bus.AssertNotCalled(t, "ReadFromAddr", mock.Anything, mock.Anything, mock.Anything)
}

func TestBH1750_SimulatedBusRoundTrip(t *testing.T) {
	board := sim.NewBoard(BH1750AddrLow, 0x012C)
	sensor := NewBH1750(i2c.NewController(board.I2C), BH1750AddrLow)
	ctx := context.Background()

	require.NoError(t, sensor.Init(ctx))
	assert.True(t, board.Sensor.Powered())
	assert.Equal(t, byte(ModeContinuousHighRes), board.Sensor.Mode())

	raw, err := sensor.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint16(300), raw)
}

func TestBH1750_InitIsIdempotent(t *testing.T) {
	board := sim.NewBoard(BH1750AddrLow, 0)
	sensor := NewBH1750(i2c.NewController(board.I2C), BH1750AddrLow)
	ctx := context.Background()

	require.NoError(t, sensor.Init(ctx))
	first := board.I2C.Events()
	board.I2C.ResetEvents()
	require.NoError(t, sensor.Init(ctx))
	second := board.I2C.Events()

	assert.Equal(t, first, second)
	assert.Equal(t, []byte{0x01, 0x10, 0x01, 0x10}, board.Sensor.Written())
}

func TestBH1750_PowerDownAndReset(t *testing.T) {
	board := sim.NewBoard(BH1750AddrLow, 0)
	sensor := NewBH1750(i2c.NewController(board.I2C), BH1750AddrLow)
	ctx := context.Background()

	require.NoError(t, sensor.Init(ctx))
	require.NoError(t, sensor.Reset(ctx))
	assert.True(t, board.Sensor.Powered())
	assert.Equal(t, byte(ModeContinuousHighRes), board.Sensor.Mode(), "reset keeps the mode")

	require.NoError(t, sensor.PowerDown(ctx))
	assert.False(t, board.Sensor.Powered())
	assert.Equal(t, []byte{0x01, 0x10, 0x07, 0x00}, board.Sensor.Written())
}

func TestBH1750_PowerDownAndResetErrors(t *testing.T) {
	bus := new(MockI2CBus)
	sensor := NewBH1750(bus, BH1750AddrLow)
	bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x00}).Return(lightnode.ErrNoAck).Once()
	bus.On("WriteToAddr", mock.Anything, byte(BH1750AddrLow), []byte{0x07}).Return(lightnode.ErrBusBusy).Once()

	err := sensor.PowerDown(context.Background())
	assert.ErrorIs(t, err, lightnode.ErrNoAck)
	assert.ErrorContains(t, err, "could not power down")
	err = sensor.Reset(context.Background())
	assert.ErrorIs(t, err, lightnode.ErrBusBusy)
	assert.ErrorContains(t, err, "could not reset")
	bus.AssertExpectations(t)
}

func TestBH1750_StuckBus(t *testing.T) {
	board := sim.NewBoard(BH1750AddrLow, 0)
	board.I2C.HoldBus(true)
	p := hal.Poller{Attempts: 10}
	bus := i2c.NewController(board.I2C, i2c.WithTimeouts(i2c.Timeouts{Busy: p, Start: p, Address: p, Byte: p, Stop: p}))
	sensor := NewBH1750(bus, BH1750AddrLow)

	_, err := sensor.Read(context.Background())
	assert.ErrorIs(t, err, lightnode.ErrBusTimeout)
	assert.ErrorIs(t, err, lightnode.ErrBusBusy)
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode("continuous_high_res")
	require.NoError(t, err)
	assert.Equal(t, ModeContinuousHighRes, m)

	m, err = ParseMode("ONE_TIME_LOW_RES")
	require.NoError(t, err)
	assert.Equal(t, ModeOneTimeLowRes, m)
	assert.True(t, m.OneTime())
	assert.Equal(t, 24*time.Millisecond, m.ConversionTime())

	_, err = ParseMode("turbo")
	assert.Error(t, err)
	assert.Equal(t, "mode(0x42)", Mode(0x42).String())
}

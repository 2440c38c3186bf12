package environment

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/mklimuk/lightnode"
)

const BH1750AddrHigh = 0b1011100
const BH1750AddrLow = 0b0100011

const (
	opCodePowerDown = 0b00000000
	opCodePowerOn   = 0b00000001
	opCodeReset     = 0b00000111
)

// Mode is the BH1750 measurement mode opcode.
type Mode byte

const (
	ModeContinuousHighRes  Mode = 0b00010000
	ModeContinuousHighRes2 Mode = 0b00010001
	ModeContinuousLowRes   Mode = 0b00010011
	ModeOneTimeHighRes     Mode = 0b00100000
	ModeOneTimeHighRes2    Mode = 0b00100001
	ModeOneTimeLowRes      Mode = 0b00100011
)

var modeNames = map[Mode]string{
	ModeContinuousHighRes:  "continuous_high_res",
	ModeContinuousHighRes2: "continuous_high_res2",
	ModeContinuousLowRes:   "continuous_low_res",
	ModeOneTimeHighRes:     "one_time_high_res",
	ModeOneTimeHighRes2:    "one_time_high_res2",
	ModeOneTimeLowRes:      "one_time_low_res",
}

func (m Mode) String() string {
	if name, ok := modeNames[m]; ok {
		return name
	}
	return fmt.Sprintf("mode(%#02x)", byte(m))
}

// OneTime reports whether the sensor powers down after each measurement in this mode.
func (m Mode) OneTime() bool {
	return m&0xF0 == 0b00100000
}

// ConversionTime is the datasheet maximum measurement time for the mode.
func (m Mode) ConversionTime() time.Duration {
	if m&0x0F == 0b0011 {
		return 24 * time.Millisecond
	}
	return 180 * time.Millisecond
}

func ParseMode(name string) (Mode, error) {
	for m, n := range modeNames {
		if strings.EqualFold(n, name) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown bh1750 mode %q", name)
}

type BH1750Opts struct {
	Mode Mode
}

type BH1750Opt func(*BH1750Opts)

func WithMode(mode Mode) BH1750Opt {
	return func(o *BH1750Opts) {
		o.Mode = mode
	}
}

var _ lightnode.LightSensor = &BH1750{}

// BH1750 represents the ROHM BH1750FVI ambient light sensor.
// Typical usage:
//
//	s := NewBH1750(bus, BH1750AddrLow)
//	err := s.Init(ctx)
//	raw, err := s.Read(ctx)
//
// Init and Read do not keep any state between calls: repeating Init produces
// the same bus traffic every time.
type BH1750 struct {
	mx        sync.Mutex
	config    BH1750Opts
	transport lightnode.I2CBus
	addr      byte
	buf       []byte
}

func NewBH1750(transport lightnode.I2CBus, addr byte, opts ...BH1750Opt) *BH1750 {
	config := BH1750Opts{
		Mode: ModeContinuousHighRes,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &BH1750{
		config:    config,
		addr:      addr,
		transport: transport,
		buf:       make([]byte, 2),
	}
}

// Init powers the sensor on and selects the measurement mode. There is no read-back.
func (sensor *BH1750) Init(ctx context.Context) error {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	err := sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{opCodePowerOn})
	if err != nil {
		return fmt.Errorf("could not power on: %w", err)
	}
	err = sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{byte(sensor.config.Mode)})
	if err != nil {
		return fmt.Errorf("could not set mode %s: %w", sensor.config.Mode, err)
	}
	return nil
}

// PowerDown puts the sensor into its low power state.
func (sensor *BH1750) PowerDown(ctx context.Context) error {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	err := sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{opCodePowerDown})
	if err != nil {
		return fmt.Errorf("could not power down: %w", err)
	}
	return nil
}

// Reset clears the data register. The sensor must be powered on.
func (sensor *BH1750) Reset(ctx context.Context) error {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	err := sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{opCodeReset})
	if err != nil {
		return fmt.Errorf("could not reset: %w", err)
	}
	return nil
}

// Read returns the raw 16-bit measurement (high byte first on the wire).
// In one-time modes a measurement is triggered first and awaited.
func (sensor *BH1750) Read(ctx context.Context) (uint16, error) {
	sensor.mx.Lock()
	defer sensor.mx.Unlock()
	if sensor.config.Mode.OneTime() {
		err := sensor.transport.WriteToAddr(ctx, sensor.addr, []byte{byte(sensor.config.Mode)})
		if err != nil {
			return 0, fmt.Errorf("could not write command: %w", err)
		}
		timer := time.NewTimer(sensor.config.Mode.ConversionTime())
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-timer.C:
		}
	}
	err := sensor.transport.ReadFromAddr(ctx, sensor.addr, sensor.buf)
	if err != nil {
		return 0, fmt.Errorf("could not read data: %w", err)
	}
	return binary.BigEndian.Uint16(sensor.buf), nil
}

// GetLux converts the raw measurement using the datasheet 1.2 counts/lx factor.
func (sensor *BH1750) GetLux(ctx context.Context) (int, error) {
	raw, err := sensor.Read(ctx)
	if err != nil {
		return 0, err
	}
	return rawToLux(raw), nil
}

// integer math keeps exact multiples of 1.2 exact
func rawToLux(raw uint16) int {
	return int(raw) * 10 / 12
}

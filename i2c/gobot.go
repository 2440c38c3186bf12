package i2c

import (
	"context"
	"fmt"
	"sync"

	gobot "gobot.io/x/gobot/v2/drivers/i2c"

	"github.com/mklimuk/lightnode"
)

var _ lightnode.I2CBus = &GobotBus{}

// GobotBus reaches a sensor through a gobot adaptor (e.g. a NanoPi NEO).
// A generic driver is started per address on first use.
type GobotBus struct {
	mx      sync.Mutex
	adaptor gobot.Connector
	bus     int
	drivers map[byte]*gobot.GenericDriver
}

func NewGobotBus(adaptor gobot.Connector, bus int) *GobotBus {
	return &GobotBus{
		adaptor: adaptor,
		bus:     bus,
		drivers: make(map[byte]*gobot.GenericDriver),
	}
}

func (b *GobotBus) WriteToAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	err = d.Write(buffer)
	if err != nil {
		return fmt.Errorf("could not write to i2c bus %x: %w", address, err)
	}
	return nil
}

func (b *GobotBus) ReadFromAddr(ctx context.Context, address byte, buffer []byte) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	d, err := b.driver(address)
	if err != nil {
		return err
	}
	err = d.Read(buffer)
	if err != nil {
		return fmt.Errorf("could not read from i2c bus %x: %w", address, err)
	}
	return nil
}

// Release halts every driver started by the bus.
func (b *GobotBus) Release(ctx context.Context) error {
	b.mx.Lock()
	defer b.mx.Unlock()
	var first error
	for addr, d := range b.drivers {
		if err := d.Halt(); err != nil && first == nil {
			first = fmt.Errorf("halt driver %x: %w", addr, err)
		}
		delete(b.drivers, addr)
	}
	return first
}

func (b *GobotBus) driver(address byte) (*gobot.GenericDriver, error) {
	if d, ok := b.drivers[address]; ok {
		return d, nil
	}
	d := gobot.NewGenericDriver(b.adaptor, fmt.Sprintf("dev-%x", address), int(address), func(c gobot.Config) {
		c.SetBus(b.bus)
	})
	err := d.Start()
	if err != nil {
		return nil, fmt.Errorf("start driver %x: %w", address, err)
	}
	b.drivers[address] = d
	return d, nil
}

package lightnode

import (
	"context"
	"errors"
)

var ErrBusBusy = errors.New("I2C bus is busy (held by a peer or an unfinished transaction)")

// ErrBusTimeout is returned when a status flag never reached the expected state
// within the poll budget of a call site.
var ErrBusTimeout = errors.New("bus timeout")

// ErrNoAck is returned when the addressed device (or a data byte) was not acknowledged.
var ErrNoAck = errors.New("no acknowledge from device")

var ErrInvalidAddress = errors.New("invalid 7-bit address")

type AddressableReader interface {
	ReadFromAddr(ctx context.Context, address byte, buffer []byte) error
}

type AddressableWriter interface {
	WriteToAddr(ctx context.Context, address byte, buffer []byte) error
	Release(ctx context.Context) error
}

type I2CBus interface {
	AddressableReader
	AddressableWriter
}

// LightSensor is anything able to produce a raw 16-bit light measurement.
type LightSensor interface {
	Read(ctx context.Context) (uint16, error)
}

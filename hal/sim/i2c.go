// Package sim provides register-accurate stand-ins for the node's peripherals:
// an I2C controller with attached targets, a BH1750 target and a USART with an
// interrupt line. Flags change synchronously with the register access that
// triggers them, so a correct driver never has to spin.
package sim

import (
	"fmt"
	"sync"

	"github.com/mklimuk/lightnode/hal"
)

// Target is a device attached to the simulated I2C bus.
type Target interface {
	Address() byte
	// Begin is called when the target is addressed; returning false NACKs the address.
	Begin(read bool) bool
	// Receive takes one byte from the controller; returning false NACKs it.
	Receive(b byte) bool
	// Transmit supplies the next byte to the controller.
	Transmit() byte
	End()
}

type EventKind int

const (
	EventStart EventKind = iota
	EventAddress
	EventWrite
	EventRead
	EventStop
)

func (k EventKind) String() string {
	switch k {
	case EventStart:
		return "START"
	case EventAddress:
		return "ADDR"
	case EventWrite:
		return "WRITE"
	case EventRead:
		return "READ"
	case EventStop:
		return "STOP"
	default:
		return "UNKNOWN"
	}
}

// Event is one step of bus traffic as seen on the wire.
type Event struct {
	Kind EventKind
	Addr byte
	Read bool
	Data byte
	// Ack is the acknowledge bit following the byte: set by the target for
	// addresses and writes, by the controller for reads.
	Ack bool
}

func (e Event) String() string {
	switch e.Kind {
	case EventAddress:
		return fmt.Sprintf("%s %#02x r=%t ack=%t", e.Kind, e.Addr, e.Read, e.Ack)
	case EventWrite, EventRead:
		return fmt.Sprintf("%s %#02x ack=%t", e.Kind, e.Data, e.Ack)
	default:
		return e.Kind.String()
	}
}

// I2C simulates the controller side of an STM32F4 I2C peripheral in master mode.
type I2C struct {
	mx          sync.Mutex
	regs        [hal.I2CRegisterCount]uint32
	targets     map[byte]Target
	active      Target
	reading     bool
	addrPending bool
	peerHold    bool
	stalled     bool
	events      []Event
}

var _ hal.RegisterBlock = &I2C{}

// NewI2C returns an enabled, idle controller.
func NewI2C() *I2C {
	s := &I2C{targets: make(map[byte]Target)}
	s.regs[hal.I2CCR1] = hal.I2CEnable.Mask()
	return s
}

func (s *I2C) Attach(t Target) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.targets[t.Address()] = t
}

// HoldBus simulates a peer keeping the bus busy.
func (s *I2C) HoldBus(hold bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.peerHold = hold
	if hold {
		s.regs[hal.I2CSR2] |= hal.I2CBusy.Mask()
	} else if !hal.I2CMaster.In(s.regs[hal.I2CSR2]) {
		s.regs[hal.I2CSR2] &^= hal.I2CBusy.Mask()
	}
}

// Stall freezes the peripheral: requests are latched but no status flag ever changes.
func (s *I2C) Stall(stalled bool) {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.stalled = stalled
}

func (s *I2C) Events() []Event {
	s.mx.Lock()
	defer s.mx.Unlock()
	return append([]Event(nil), s.events...)
}

func (s *I2C) ResetEvents() {
	s.mx.Lock()
	defer s.mx.Unlock()
	s.events = nil
}

func (s *I2C) Load(reg hal.Register) uint32 {
	s.mx.Lock()
	defer s.mx.Unlock()
	value := s.regs[reg]
	switch reg {
	case hal.I2CSR1:
		// first half of the ADDR clear sequence
		s.addrPending = hal.I2CAddrSent.In(value)
	case hal.I2CSR2:
		if s.addrPending && hal.I2CAddrSent.In(s.regs[hal.I2CSR1]) {
			s.regs[hal.I2CSR1] &^= hal.I2CAddrSent.Mask()
			s.addrPending = false
			if s.reading {
				s.fetch()
			} else {
				s.regs[hal.I2CSR1] |= hal.I2CTxEmpty.Mask()
			}
		}
	case hal.I2CDR:
		s.addrPending = false
		if s.reading && hal.I2CRxNotEmpty.In(s.regs[hal.I2CSR1]) {
			s.regs[hal.I2CSR1] &^= hal.I2CRxNotEmpty.Mask()
			ack := hal.I2CAck.In(s.regs[hal.I2CCR1])
			s.events = append(s.events, Event{Kind: EventRead, Data: byte(value), Ack: ack})
			if ack {
				s.fetch()
			}
		}
	}
	return value
}

func (s *I2C) fetch() {
	if s.active == nil || s.stalled {
		return
	}
	s.regs[hal.I2CDR] = uint32(s.active.Transmit())
	s.regs[hal.I2CSR1] |= hal.I2CRxNotEmpty.Mask()
}

func (s *I2C) Store(reg hal.Register, value uint32) {
	s.mx.Lock()
	defer s.mx.Unlock()
	switch reg {
	case hal.I2CCR1:
		s.regs[hal.I2CCR1] = value
		if s.stalled {
			return
		}
		if hal.I2CStart.In(value) {
			s.start()
		}
		if hal.I2CStop.In(value) {
			s.stop()
		}
	case hal.I2CSR1:
		s.regs[hal.I2CSR1] &^= hal.I2CSR1ClearOnWriteZero &^ value
	case hal.I2CSR2:
		// read only
	case hal.I2CDR:
		s.regs[hal.I2CDR] = value & 0xFF
		if s.stalled {
			return
		}
		s.data(byte(value))
	default:
		s.regs[reg] = value
	}
}

func (s *I2C) start() {
	if s.peerHold {
		// start stays pending until the bus is free
		return
	}
	if s.active != nil {
		s.active.End()
		s.active = nil
	}
	s.regs[hal.I2CCR1] &^= hal.I2CStart.Mask()
	s.regs[hal.I2CSR1] &^= hal.I2CByteDone.Mask() | hal.I2CTxEmpty.Mask() | hal.I2CRxNotEmpty.Mask()
	s.regs[hal.I2CSR1] |= hal.I2CStartSent.Mask()
	s.regs[hal.I2CSR2] |= hal.I2CBusy.Mask() | hal.I2CMaster.Mask()
	s.events = append(s.events, Event{Kind: EventStart})
}

func (s *I2C) stop() {
	if s.active != nil {
		s.active.End()
		s.active = nil
	}
	s.reading = false
	s.regs[hal.I2CCR1] &^= hal.I2CStop.Mask()
	s.regs[hal.I2CSR1] &^= hal.I2CByteDone.Mask() | hal.I2CTxEmpty.Mask() | hal.I2CRxNotEmpty.Mask() |
		hal.I2CStartSent.Mask() | hal.I2CAddrSent.Mask()
	s.regs[hal.I2CSR2] &^= hal.I2CMaster.Mask() | hal.I2CTransmitter.Mask()
	if !s.peerHold {
		s.regs[hal.I2CSR2] &^= hal.I2CBusy.Mask()
	}
	s.events = append(s.events, Event{Kind: EventStop})
}

func (s *I2C) data(b byte) {
	sr1 := s.regs[hal.I2CSR1]
	if hal.I2CStartSent.In(sr1) {
		s.regs[hal.I2CSR1] &^= hal.I2CStartSent.Mask()
		addr, read := b>>1, b&1 == 1
		t, ok := s.targets[addr]
		ack := ok && t.Begin(read)
		s.events = append(s.events, Event{Kind: EventAddress, Addr: addr, Read: read, Ack: ack})
		if !ack {
			s.regs[hal.I2CSR1] |= hal.I2CAckFailure.Mask()
			return
		}
		s.active = t
		s.reading = read
		s.regs[hal.I2CSR1] |= hal.I2CAddrSent.Mask()
		if !read {
			s.regs[hal.I2CSR2] |= hal.I2CTransmitter.Mask()
		}
		return
	}
	if s.active == nil || s.reading || hal.I2CAddrSent.In(sr1) {
		// byte written outside of a transmit data phase goes nowhere
		return
	}
	s.regs[hal.I2CSR1] &^= hal.I2CByteDone.Mask()
	ack := s.active.Receive(b)
	s.events = append(s.events, Event{Kind: EventWrite, Data: b, Ack: ack})
	s.regs[hal.I2CSR1] |= hal.I2CTxEmpty.Mask() | hal.I2CByteDone.Mask()
	if !ack {
		s.regs[hal.I2CSR1] |= hal.I2CAckFailure.Mask()
	}
}

package sim

import (
	"bytes"
	"sync"

	"github.com/mklimuk/lightnode/hal"
)

// USART simulates a transmitter that drains instantly and a receiver that
// raises its interrupt line for every byte placed on the wire.
type USART struct {
	mx      sync.Mutex
	irqMx   sync.Mutex
	regs    [hal.USARTRegisterCount]uint32
	handler func()
	sent    bytes.Buffer
	stalled bool
}

var _ hal.RegisterBlock = &USART{}

// NewUSART returns an enabled USART with receive interrupts on and an empty transmitter.
func NewUSART() *USART {
	u := &USART{}
	u.regs[hal.USARTSR] = hal.USARTTxEmpty.Mask() | hal.USARTTxComplete.Mask()
	u.regs[hal.USARTCR1] = hal.USARTEnable.Mask() | hal.USARTTxEnable.Mask() |
		hal.USARTRxEnable.Mask() | hal.USARTRxInterrupt.Mask()
	return u
}

// OnInterrupt connects the receive interrupt line to a handler.
func (u *USART) OnInterrupt(handler func()) {
	u.mx.Lock()
	defer u.mx.Unlock()
	u.handler = handler
}

// StallTx simulates a transmitter that never finishes shifting out.
func (u *USART) StallTx(stalled bool) {
	u.mx.Lock()
	defer u.mx.Unlock()
	u.stalled = stalled
	if !stalled {
		u.regs[hal.USARTSR] |= hal.USARTTxEmpty.Mask() | hal.USARTTxComplete.Mask()
	}
}

// Receive puts one byte on the receive line. The handler runs before Receive
// returns and never runs concurrently with itself.
func (u *USART) Receive(b byte) {
	u.irqMx.Lock()
	defer u.irqMx.Unlock()
	u.mx.Lock()
	if hal.USARTRxNotEmpty.In(u.regs[hal.USARTSR]) {
		// previous byte was never read, the new one is lost
		u.regs[hal.USARTSR] |= hal.USARTOverrun.Mask()
		u.mx.Unlock()
	} else {
		u.regs[hal.USARTDR] = uint32(b)
		u.regs[hal.USARTSR] |= hal.USARTRxNotEmpty.Mask()
		u.mx.Unlock()
	}
	u.mx.Lock()
	handler := u.handler
	enabled := hal.USARTRxInterrupt.In(u.regs[hal.USARTCR1])
	u.mx.Unlock()
	if handler != nil && enabled {
		handler()
	}
}

// Type receives every byte of s in order.
func (u *USART) Type(s string) {
	for i := 0; i < len(s); i++ {
		u.Receive(s[i])
	}
}

// Sent returns and clears everything transmitted so far.
func (u *USART) Sent() []byte {
	u.mx.Lock()
	defer u.mx.Unlock()
	out := append([]byte(nil), u.sent.Bytes()...)
	u.sent.Reset()
	return out
}

func (u *USART) Load(reg hal.Register) uint32 {
	u.mx.Lock()
	defer u.mx.Unlock()
	value := u.regs[reg]
	if reg == hal.USARTDR {
		u.regs[hal.USARTSR] &^= hal.USARTRxNotEmpty.Mask() | hal.USARTOverrun.Mask()
	}
	return value
}

func (u *USART) Store(reg hal.Register, value uint32) {
	u.mx.Lock()
	defer u.mx.Unlock()
	switch reg {
	case hal.USARTSR:
		u.regs[hal.USARTSR] &^= hal.USARTSRClearOnWriteZero &^ value
	case hal.USARTDR:
		if u.stalled {
			u.regs[hal.USARTSR] &^= hal.USARTTxEmpty.Mask() | hal.USARTTxComplete.Mask()
			return
		}
		u.sent.WriteByte(byte(value))
		u.regs[hal.USARTSR] |= hal.USARTTxEmpty.Mask() | hal.USARTTxComplete.Mask()
	default:
		u.regs[reg] = value
	}
}

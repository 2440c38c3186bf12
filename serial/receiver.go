// Package serial implements the node's asynchronous serial link: an
// interrupt-fed receive ring that frames command lines, a blocking
// transmitter, and the host-side client that talks to a node over a port.
package serial

import (
	"log/slog"
	"sync/atomic"

	"github.com/mklimuk/lightnode/hal"
)

const (
	DefaultCapacity   = 64
	DefaultMaxCommand = 29
	Terminator        = '\n'
)

type ReceiverOpts struct {
	Capacity   int
	MaxCommand int
}

type ReceiverOpt func(*ReceiverOpts)

// WithCapacity sets the ring size; the ring holds at most capacity-1 bytes.
func WithCapacity(capacity int) ReceiverOpt {
	return func(o *ReceiverOpts) {
		o.Capacity = capacity
	}
}

// WithMaxCommand bounds the length of a drained line.
func WithMaxCommand(n int) ReceiverOpt {
	return func(o *ReceiverOpts) {
		o.MaxCommand = n
	}
}

type Stats struct {
	// Dropped counts bytes lost because the ring was full.
	Dropped uint64 `yaml:"dropped"`
	// Truncated counts drains that hit the command length limit.
	Truncated uint64 `yaml:"truncated"`
}

// Receiver is a single-producer/single-consumer byte ring fed by the receive
// interrupt. head is written only by HandleInterrupt, tail only by TakeLine.
// The ring never blocks the producer: when full, incoming bytes are dropped.
type Receiver struct {
	regs    hal.RegisterBlock
	buf     []byte
	size    uint32
	maxLine int

	head      atomic.Uint32
	tail      atomic.Uint32
	lineReady atomic.Bool

	dropped   atomic.Uint64
	truncated atomic.Uint64
}

func NewReceiver(regs hal.RegisterBlock, opts ...ReceiverOpt) *Receiver {
	config := ReceiverOpts{
		Capacity:   DefaultCapacity,
		MaxCommand: DefaultMaxCommand,
	}
	for _, opt := range opts {
		opt(&config)
	}
	if config.Capacity < 2 {
		config.Capacity = 2
	}
	if config.MaxCommand < 1 {
		config.MaxCommand = 1
	}
	return &Receiver{
		regs:    regs,
		buf:     make([]byte, config.Capacity),
		size:    uint32(config.Capacity),
		maxLine: config.MaxCommand,
	}
}

// HandleInterrupt is the receive interrupt handler. The data register is read
// unconditionally: that read is what acknowledges the interrupt.
func (r *Receiver) HandleInterrupt() {
	if !hal.USARTRxNotEmpty.IsSet(r.regs) {
		return
	}
	b := byte(hal.USARTData.Get(r.regs))
	head := r.head.Load()
	next := (head + 1) % r.size
	if next == r.tail.Load() {
		r.dropped.Add(1)
		return
	}
	r.buf[head] = b
	// publishes buf[head]
	r.head.Store(next)
	if b == Terminator {
		r.lineReady.Store(true)
	}
}

// LineReady reports whether a terminator arrived since the last drain.
func (r *Receiver) LineReady() bool {
	return r.lineReady.Load()
}

// TakeLine drains everything buffered (possibly several lines) into a command of
// at most MaxCommand bytes. Bytes past the limit are discarded.
func (r *Receiver) TakeLine() []byte {
	// cleared before the head snapshot so a terminator arriving meanwhile raises it again
	r.lineReady.Store(false)
	head := r.head.Load()
	tail := r.tail.Load()
	line := make([]byte, 0, r.maxLine)
	for tail != head {
		if len(line) == r.maxLine {
			r.truncated.Add(1)
			slog.Debug("command truncated", "limit", r.maxLine)
			break
		}
		line = append(line, r.buf[tail])
		tail = (tail + 1) % r.size
	}
	r.tail.Store(head)
	return line
}

// Buffered returns the number of bytes waiting in the ring.
func (r *Receiver) Buffered() int {
	head, tail := r.head.Load(), r.tail.Load()
	return int((head + r.size - tail) % r.size)
}

func (r *Receiver) Stats() Stats {
	return Stats{
		Dropped:   r.dropped.Load(),
		Truncated: r.truncated.Load(),
	}
}

// Package hal models memory-mapped peripheral registers as typed, named fields.
//
// A RegisterBlock is one peripheral's register file. On a board it is backed by
// volatile MMIO words; in tests and on a host it is backed by the simulated
// peripherals in hal/sim. Reads and writes go through the block one word at a
// time so that read side effects (clearing status flags, popping a data
// register) happen exactly where the driver performs them.
package hal

import (
	"errors"
	"fmt"
	"sync/atomic"
)

var ErrFieldRange = errors.New("value out of field range")

// Register is a word index inside a RegisterBlock.
type Register uint8

type RegisterBlock interface {
	Load(reg Register) uint32
	Store(reg Register, value uint32)
}

// Field is a contiguous group of bits inside one register.
type Field struct {
	Name  string
	Reg   Register
	Shift uint8
	Width uint8
}

// Bit declares a single-bit field.
func Bit(name string, reg Register, pos uint8) Field {
	return Field{Name: name, Reg: reg, Shift: pos, Width: 1}
}

func (f Field) Max() uint32 {
	if f.Width >= 32 {
		return ^uint32(0)
	}
	return (uint32(1) << f.Width) - 1
}

func (f Field) Mask() uint32 {
	return f.Max() << f.Shift
}

// Extract returns the field value held in an already loaded register word.
func (f Field) Extract(word uint32) uint32 {
	return (word & f.Mask()) >> f.Shift
}

// In reports whether the field is non-zero in an already loaded register word.
func (f Field) In(word uint32) bool {
	return word&f.Mask() != 0
}

// Get loads the register and returns the field value.
func (f Field) Get(b RegisterBlock) uint32 {
	return f.Extract(b.Load(f.Reg))
}

func (f Field) IsSet(b RegisterBlock) bool {
	return f.In(b.Load(f.Reg))
}

// Put performs a read-modify-write of the field, leaving the other bits untouched.
func (f Field) Put(b RegisterBlock, value uint32) error {
	if value > f.Max() {
		return fmt.Errorf("%s: %d > %d: %w", f.Name, value, f.Max(), ErrFieldRange)
	}
	word := b.Load(f.Reg)
	word = (word &^ f.Mask()) | (value << f.Shift)
	b.Store(f.Reg, word)
	return nil
}

// Write stores the field into an otherwise zero word, without reading the
// register first. Used for data registers where a read has side effects.
func (f Field) Write(b RegisterBlock, value uint32) error {
	if value > f.Max() {
		return fmt.Errorf("%s: %d > %d: %w", f.Name, value, f.Max(), ErrFieldRange)
	}
	b.Store(f.Reg, value<<f.Shift)
	return nil
}

// Set puts all ones into the field.
func (f Field) Set(b RegisterBlock) {
	_ = f.Put(b, f.Max())
}

func (f Field) Clear(b RegisterBlock) {
	_ = f.Put(b, 0)
}

func (f Field) String() string {
	return f.Name
}

// MemoryBlock is a side-effect free RegisterBlock. Every word is accessed atomically.
type MemoryBlock struct {
	words []atomic.Uint32
}

func NewMemoryBlock(size int) *MemoryBlock {
	return &MemoryBlock{words: make([]atomic.Uint32, size)}
}

func (m *MemoryBlock) Load(reg Register) uint32 {
	return m.words[reg].Load()
}

func (m *MemoryBlock) Store(reg Register, value uint32) {
	m.words[reg].Store(value)
}

package sim

import "sync"

// BH1750 opcodes understood by the simulated sensor.
const (
	bh1750PowerDown byte = 0x00
	bh1750PowerOn   byte = 0x01
	bh1750Reset     byte = 0x07
)

// BH1750 simulates an ambient light sensor target. Reads return the configured
// raw measurement big-endian, regardless of the selected mode.
type BH1750 struct {
	mx      sync.Mutex
	addr    byte
	value   uint16
	powered bool
	mode    byte
	written []byte
	pending []byte
}

var _ Target = &BH1750{}

func NewBH1750(addr byte, value uint16) *BH1750 {
	return &BH1750{addr: addr, value: value}
}

func (d *BH1750) Address() byte {
	return d.addr
}

func (d *BH1750) SetValue(value uint16) {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.value = value
}

// Written returns every byte the sensor received so far.
func (d *BH1750) Written() []byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return append([]byte(nil), d.written...)
}

func (d *BH1750) Powered() bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.powered
}

func (d *BH1750) Mode() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	return d.mode
}

func (d *BH1750) Begin(read bool) bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	if read {
		d.pending = []byte{byte(d.value >> 8), byte(d.value)}
	}
	return true
}

func (d *BH1750) Receive(b byte) bool {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.written = append(d.written, b)
	switch b {
	case bh1750PowerDown:
		d.powered = false
	case bh1750PowerOn:
		d.powered = true
	case bh1750Reset:
	default:
		d.mode = b
	}
	return true
}

func (d *BH1750) Transmit() byte {
	d.mx.Lock()
	defer d.mx.Unlock()
	if len(d.pending) == 0 {
		// released SDA reads as ones
		return 0xFF
	}
	b := d.pending[0]
	d.pending = d.pending[1:]
	return b
}

func (d *BH1750) End() {
	d.mx.Lock()
	defer d.mx.Unlock()
	d.pending = nil
}

package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

var _ Target = &BH1750{}

func TestBH1750_ReceiveAndTransmit(t *testing.T) {
	dev := NewBH1750(0x23, 0x012C)

	assert.True(t, dev.Receive(0x01))
	assert.True(t, dev.Powered())
	assert.True(t, dev.Receive(0x10))
	assert.Equal(t, byte(0x10), dev.Mode())
	assert.True(t, dev.Receive(0x00))
	assert.False(t, dev.Powered())
	assert.Equal(t, []byte{0x01, 0x10, 0x00}, dev.Written())

	assert.True(t, dev.Begin(true))
	assert.Equal(t, byte(0x01), dev.Transmit())
	assert.Equal(t, byte(0x2C), dev.Transmit())
	assert.Equal(t, byte(0xFF), dev.Transmit())
	dev.End()
	assert.Equal(t, byte(0xFF), dev.Transmit())
}

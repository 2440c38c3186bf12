package serial

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/hal"
	"github.com/mklimuk/lightnode/hal/sim"
)

func TestTransmitter_Send(t *testing.T) {
	usart := sim.NewUSART()
	tx := NewTransmitter(usart, hal.Poller{Attempts: 10})

	require.NoError(t, tx.Send(context.Background(), []byte("System Status: OK\r\n")))
	assert.Equal(t, "System Status: OK\r\n", string(usart.Sent()))

	require.NoError(t, tx.Send(context.Background(), nil))
	assert.Empty(t, usart.Sent())
}

func TestTransmitter_Writer(t *testing.T) {
	usart := sim.NewUSART()
	tx := NewTransmitter(usart, hal.Poller{Attempts: 10})

	n, err := fmt.Fprintf(tx, "Light Value: %d\r\n", 300)
	require.NoError(t, err)
	assert.Equal(t, 18, n)
	assert.Equal(t, "Light Value: 300\r\n", string(usart.Sent()))
}

func TestTransmitter_Stalled(t *testing.T) {
	usart := sim.NewUSART()
	tx := NewTransmitter(usart, hal.Poller{Attempts: 10})
	usart.StallTx(true)

	err := tx.Send(context.Background(), []byte("abc"))
	assert.ErrorIs(t, err, lightnode.ErrBusTimeout)
	// first byte went into the data register and never left
	assert.Contains(t, err.Error(), "byte 1 of 3")

	n, err := tx.Write([]byte("x"))
	assert.Error(t, err)
	assert.Zero(t, n)

	usart.StallTx(false)
	assert.NoError(t, tx.Send(context.Background(), []byte("ok")))
	assert.Equal(t, "ok", string(usart.Sent()))
}

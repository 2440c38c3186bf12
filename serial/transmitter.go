package serial

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/hal"
)

var _ io.Writer = &Transmitter{}

// Transmitter is the blocking serial output: every byte waits for an empty data register.
type Transmitter struct {
	regs hal.RegisterBlock
	poll hal.Poller
}

func NewTransmitter(regs hal.RegisterBlock, poll hal.Poller) *Transmitter {
	return &Transmitter{
		regs: regs,
		poll: poll,
	}
}

// Send returns once the whole payload left the shift register.
func (t *Transmitter) Send(ctx context.Context, p []byte) error {
	for i, b := range p {
		err := t.poll.Until(ctx, func() bool {
			return hal.USARTTxEmpty.IsSet(t.regs)
		})
		if err != nil {
			return t.waitErr(fmt.Sprintf("byte %d of %d", i, len(p)), hal.USARTTxEmpty, err)
		}
		_ = hal.USARTData.Write(t.regs, uint32(b))
	}
	if len(p) == 0 {
		return nil
	}
	err := t.poll.Until(ctx, func() bool {
		return hal.USARTTxComplete.IsSet(t.regs)
	})
	if err != nil {
		return t.waitErr("completion", hal.USARTTxComplete, err)
	}
	return nil
}

// Write lets the transmitter back a console or logger.
func (t *Transmitter) Write(p []byte) (int, error) {
	if err := t.Send(context.Background(), p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (t *Transmitter) waitErr(what string, flag hal.Field, err error) error {
	if errors.Is(err, hal.ErrTimeout) {
		return fmt.Errorf("transmit %s: waiting for %s: %w", what, flag, lightnode.ErrBusTimeout)
	}
	return fmt.Errorf("transmit %s: %w", what, err)
}

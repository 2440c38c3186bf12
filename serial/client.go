package serial

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"
)

var ErrNoResponse = errors.New("no response received")

type ClientOpts struct {
	// Idle is how long the client waits between empty reads.
	Idle time.Duration
	// Settle is how long the client keeps reading after a complete line, to
	// collect multi-line replies.
	Settle time.Duration
}

type ClientOpt func(*ClientOpts)

func WithIdle(d time.Duration) ClientOpt {
	return func(o *ClientOpts) {
		o.Idle = d
	}
}

func WithSettle(d time.Duration) ClientOpt {
	return func(o *ClientOpts) {
		o.Settle = d
	}
}

// Client sends commands to a node and collects the replies.
type Client struct {
	rw     io.ReadWriter
	config ClientOpts
	buf    []byte
}

func NewClient(rw io.ReadWriter, opts ...ClientOpt) *Client {
	config := ClientOpts{
		Idle:   100 * time.Millisecond,
		Settle: 200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(&config)
	}
	return &Client{
		rw:     rw,
		config: config,
		buf:    make([]byte, 64),
	}
}

// Exec sends cmd terminated by CRLF and returns the reply once at least one full
// line arrived and the link went quiet for the settle period.
func (c *Client) Exec(ctx context.Context, cmd string) (string, error) {
	_, err := c.rw.Write([]byte(cmd + "\r\n"))
	if err != nil {
		return "", fmt.Errorf("could not write command: %w", err)
	}
	var response bytes.Buffer
	var quietSince time.Time
	for {
		n, err := c.rw.Read(c.buf)
		if n > 0 {
			response.Write(c.buf[:n])
			quietSince = time.Time{}
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return response.String(), fmt.Errorf("could not read response: %w", err)
		}
		complete := bytes.HasSuffix(response.Bytes(), []byte{Terminator})
		if complete {
			if quietSince.IsZero() {
				quietSince = time.Now()
			} else if time.Since(quietSince) >= c.config.Settle {
				slog.Debug("response received", "command", cmd, "bytes", response.Len())
				return response.String(), nil
			}
		}
		select {
		case <-ctx.Done():
			if response.Len() > 0 {
				return response.String(), fmt.Errorf("incomplete response: %w", ctx.Err())
			}
			return "", fmt.Errorf("%w: %w", ErrNoResponse, ctx.Err())
		case <-time.After(c.config.Idle):
		}
	}
}

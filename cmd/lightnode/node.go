package main

import (
	"context"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightnode/cmd/lightnode/console"
	"github.com/mklimuk/lightnode/config"
	"github.com/mklimuk/lightnode/hal/sim"
	"github.com/mklimuk/lightnode/node"
)

var nodeCmd = cli.Command{
	Name:  "node",
	Usage: "run the sensor node firmware",
	Subcommands: []*cli.Command{
		&nodeSimCmd,
	},
}

var nodeSimCmd = cli.Command{
	Name:  "sim",
	Usage: "run the node against simulated peripherals and type commands into its serial line",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
		},
		&cli.UintFlag{
			Name:  "raw",
			Value: 300,
			Usage: "raw 16-bit reading reported by the simulated sensor",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		raw := c.Uint("raw")
		if raw > 0xFFFF {
			return console.Exit(1, "raw reading %d does not fit 16 bits", raw)
		}
		board := sim.NewBoard(cfg.Sensor.Address, uint16(raw))
		n, err := node.New(node.Peripherals{I2C: board.I2C, USART: board.USART}, cfg)
		if err != nil {
			return console.Exit(1, "node setup error: %s", console.Red(err))
		}
		board.USART.OnInterrupt(n.HandleInterrupt)
		ctx := console.SetVerbose(c.Context, c.Bool("verbose"))
		if err := n.Start(ctx); err != nil {
			console.Warnf("sensor not ready: %s", err)
		}
		console.PInfof(console.PictoBulb, "simulated node up; sensor at %#02x reporting %d", cfg.Sensor.Address, raw)
		err = console.Session(ctx, "node> ", func(ctx context.Context, line string) error {
			board.USART.Type(line + "\r\n")
			if _, err := n.Poll(ctx); err != nil {
				return err
			}
			for _, l := range splitReplies(board.USART.Sent()) {
				console.Reply(l)
			}
			return nil
		})
		if err := n.Shutdown(ctx); err != nil {
			console.Warnf("%s", err)
		}
		stats := n.Stats()
		if stats.Dropped > 0 || stats.Truncated > 0 {
			console.Warnf("receiver dropped %d bytes and truncated %d commands", stats.Dropped, stats.Truncated)
		}
		return err
	},
}

// splitReplies cuts transmitted bytes into CRLF-terminated lines, keeping the
// terminators.
func splitReplies(out []byte) []string {
	var lines []string
	start := 0
	for i, b := range out {
		if b == '\n' {
			lines = append(lines, string(out[start:i+1]))
			start = i + 1
		}
	}
	if start < len(out) {
		lines = append(lines, string(out[start:]))
	}
	return lines
}

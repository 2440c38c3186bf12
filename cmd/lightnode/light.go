package main

import (
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v2"
	"gobot.io/x/gobot/v2/platforms/friendlyelec/nanopi"

	"github.com/mklimuk/lightnode"
	"github.com/mklimuk/lightnode/adapter"
	"github.com/mklimuk/lightnode/cmd/lightnode/console"
	"github.com/mklimuk/lightnode/environment"
	"github.com/mklimuk/lightnode/i2c"
)

var lightCmd = cli.Command{
	Name:  "light",
	Usage: "read a BH1750 attached to this host",
	Subcommands: []*cli.Command{
		&lightReadCmd,
	},
}

var lightReadCmd = cli.Command{
	Name:    "read",
	Aliases: []string{"rd"},
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "adapter",
			Aliases: []string{"a"},
			Value:   "mcp2221",
			Usage:   "mcp2221, periph or nanopi",
		},
		&cli.StringFlag{
			Name:  "dev",
			Usage: "periph I2C bus name; empty picks the first one",
		},
		&cli.IntFlag{
			Name:  "bus",
			Value: 0,
			Usage: "nanopi I2C bus number",
		},
		&cli.StringFlag{
			Name:  "addr",
			Value: "l",
			Usage: "l for ADDR low (0x23), h for ADDR high (0x5C)",
		},
		&cli.StringFlag{
			Name:  "mode",
			Value: environment.ModeContinuousHighRes.String(),
		},
		&cli.BoolFlag{
			Name:  "reset",
			Usage: "clear the sensor data register before measuring",
		},
		&cli.BoolFlag{
			Name:  "raw",
			Usage: "print the raw 16-bit reading instead of lux",
		},
	},
	Action: func(c *cli.Context) error {
		ctx := console.SetVerbose(c.Context, c.Bool("verbose"))
		mode, err := environment.ParseMode(c.String("mode"))
		if err != nil {
			return console.Exit(1, "%s", console.Red(err))
		}
		var addr byte
		switch c.String("addr") {
		case "h":
			addr = environment.BH1750AddrHigh
		default:
			addr = environment.BH1750AddrLow
		}
		bus, closer, err := openBus(c)
		if err != nil {
			return console.Exit(1, "adapter initialization error: %s", console.Red(err))
		}
		defer closer()
		s := environment.NewBH1750(bus, addr, environment.WithMode(mode))
		if err := s.Init(ctx); err != nil {
			return console.Exit(1, "sensor initialization error: %s", console.Red(err))
		}
		if c.Bool("reset") {
			if err := s.Reset(ctx); err != nil {
				return console.Exit(1, "sensor reset error: %s", console.Red(err))
			}
		}
		if mode.OneTime() {
			slog.Debug("one-time mode, each read triggers a measurement", "mode", mode)
		} else {
			// first continuous conversion must complete before the data register is valid
			if err := sleep(ctx, mode.ConversionTime()); err != nil {
				return err
			}
		}
		if c.Bool("raw") {
			raw, err := s.Read(ctx)
			if err != nil {
				return console.Exit(1, "error getting light sensor read: %s", console.Red(err))
			}
			console.Printf("%s\n", console.White(raw))
			return nil
		}
		lux, err := s.GetLux(ctx)
		if err != nil {
			return console.Exit(1, "error getting light sensor read: %s", console.Red(err))
		}
		console.Printf("%s lux\n", console.White(lux))
		return nil
	},
}

func openBus(c *cli.Context) (lightnode.I2CBus, func(), error) {
	switch c.String("adapter") {
	case "mcp2221":
		return adapter.NewMCP2221(), func() {}, nil
	case "periph":
		bus, err := i2c.NewGenericBus(c.String("dev"))
		if err != nil {
			return nil, nil, err
		}
		return bus, func() { _ = bus.Close() }, nil
	case "nanopi":
		npi := nanopi.NewNeoAdaptor()
		err := npi.I2cBusAdaptor.Connect()
		if err != nil {
			return nil, nil, fmt.Errorf("adaptor connect error: %w", err)
		}
		bus := i2c.NewGobotBus(npi, c.Int("bus"))
		return bus, func() {
			_ = bus.Release(c.Context)
			_ = npi.I2cBusAdaptor.Finalize()
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown adapter %q", c.String("adapter"))
	}
}

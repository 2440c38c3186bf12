package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/mklimuk/lightnode/cmd/lightnode/console"
	"github.com/mklimuk/lightnode/config"
	"github.com/mklimuk/lightnode/serial"
)

var clientCmd = cli.Command{
	Name:      "client",
	Usage:     "send commands to a node over a serial port",
	ArgsUsage: "[command...]",
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "path to a YAML config file",
		},
		&cli.StringFlag{
			Name:    "port",
			Aliases: []string{"p"},
			Usage:   "serial device, overrides the config",
		},
		&cli.IntFlag{
			Name:    "baud",
			Aliases: []string{"b"},
			Usage:   "baud rate, overrides the config",
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := config.Load(c.String("config"))
		if err != nil {
			return console.Exit(1, "configuration error: %s", console.Red(err))
		}
		pc := serial.PortConfig{
			Name:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: time.Duration(cfg.Serial.ReadTimeout),
		}
		if c.IsSet("port") {
			pc.Name = c.String("port")
		}
		if c.IsSet("baud") {
			pc.Baud = c.Int("baud")
		}
		if pc.Name == "" {
			return console.Exit(1, "no serial port given")
		}
		port, err := serial.OpenPort(pc)
		if err != nil {
			return console.Exit(1, "could not open %s: %s", pc.Name, console.Red(err))
		}
		defer func() { _ = port.Close() }()
		client := serial.NewClient(port)
		ctx := c.Context
		if c.Args().Present() {
			return exec(ctx, client, strings.Join(c.Args().Slice(), " "))
		}
		console.PInfof(console.PictoPlug, "connected to %s at %d baud; type 'quit' to exit", pc.Name, pc.Baud)
		return console.Session(ctx, "> ", func(ctx context.Context, line string) error {
			return exec(ctx, client, line)
		})
	},
}

func exec(ctx context.Context, client *serial.Client, cmd string) error {
	reply, err := client.Exec(ctx, cmd)
	if err != nil {
		return fmt.Errorf("%s: %w", cmd, err)
	}
	console.Reply(reply)
	return nil
}

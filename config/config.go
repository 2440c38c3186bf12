// Package config holds the node configuration, read from YAML.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mklimuk/lightnode/hal"
)

// Set at build time.
var (
	Version = "dev"
	Commit  string
	Date    string
)

// Duration is a time.Duration written as a Go duration string ("10ms").
type Duration time.Duration

func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*d = Duration(parsed)
	return nil
}

// Poll is the budget of one status wait.
type Poll struct {
	Attempts int      `yaml:"attempts"`
	Interval Duration `yaml:"interval"`
}

func (p Poll) Poller() hal.Poller {
	return hal.Poller{Attempts: p.Attempts, Interval: time.Duration(p.Interval)}
}

type Sensor struct {
	Address uint8  `yaml:"address"`
	Mode    string `yaml:"mode"`
}

type Bus struct {
	Busy    Poll `yaml:"busy"`
	Start   Poll `yaml:"start"`
	Address Poll `yaml:"address"`
	Byte    Poll `yaml:"byte"`
	Stop    Poll `yaml:"stop"`
}

type Serial struct {
	RxCapacity  int      `yaml:"rx_capacity"`
	MaxCommand  int      `yaml:"max_command"`
	Tx          Poll     `yaml:"tx"`
	Port        string   `yaml:"port"`
	Baud        int      `yaml:"baud"`
	ReadTimeout Duration `yaml:"read_timeout"`
}

type Loop struct {
	PollInterval Duration `yaml:"poll_interval"`
}

type Config struct {
	Sensor Sensor `yaml:"sensor"`
	Bus    Bus    `yaml:"bus"`
	Serial Serial `yaml:"serial"`
	Loop   Loop   `yaml:"loop"`
}

func Default() Config {
	p := Poll{Attempts: hal.DefaultPollAttempts}
	return Config{
		Sensor: Sensor{
			Address: 0x23,
			Mode:    "continuous_high_res",
		},
		Bus: Bus{Busy: p, Start: p, Address: p, Byte: p, Stop: p},
		Serial: Serial{
			RxCapacity:  64,
			MaxCommand:  29,
			Tx:          p,
			Baud:        9600,
			ReadTimeout: Duration(100 * time.Millisecond),
		},
		Loop: Loop{
			PollInterval: Duration(time.Millisecond),
		},
	}
}

// Load reads a YAML file over the defaults. An empty path returns the defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("could not read config: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (Config, error) {
	cfg := Default()
	err := yaml.Unmarshal(data, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("could not decode config: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Sensor.Address > 0x7F {
		errs = append(errs, fmt.Errorf("sensor.address %#x is not a 7-bit address", c.Sensor.Address))
	}
	if c.Serial.RxCapacity < 2 {
		errs = append(errs, fmt.Errorf("serial.rx_capacity must be at least 2, got %d", c.Serial.RxCapacity))
	}
	if c.Serial.MaxCommand < 1 {
		errs = append(errs, fmt.Errorf("serial.max_command must be positive, got %d", c.Serial.MaxCommand))
	}
	if c.Serial.Baud < 0 {
		errs = append(errs, fmt.Errorf("serial.baud must not be negative, got %d", c.Serial.Baud))
	}
	polls := map[string]Poll{
		"bus.busy":    c.Bus.Busy,
		"bus.start":   c.Bus.Start,
		"bus.address": c.Bus.Address,
		"bus.byte":    c.Bus.Byte,
		"bus.stop":    c.Bus.Stop,
		"serial.tx":   c.Serial.Tx,
	}
	for name, p := range polls {
		if p.Attempts < 0 || p.Interval < 0 {
			errs = append(errs, fmt.Errorf("%s: attempts and interval must not be negative", name))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

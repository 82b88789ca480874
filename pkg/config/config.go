// Package config holds the receiver configuration. Values come from, in
// increasing precedence: built-in defaults, SBUS_* environment variables,
// a YAML file given by -config, and command line flags.
package config

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"gopkg.in/yaml.v2"

	"github.com/robotalks/sbus.go/pkg/sbus"
	"github.com/robotalks/sbus.go/pkg/serial"
)

// Config defines the receiver configuration.
type Config struct {
	Serial serial.Config `yaml:"serial"`
	// Replay reads frames from a capture file instead of Serial.
	Replay   string `yaml:"replay"`
	Realtime bool   `yaml:"realtime"`

	Scale sbus.LinearScale `yaml:"scale"`

	// ID identifies the receiver on MQTT.
	ID string `yaml:"id"`
	// MQTTBrokerURL e.g. mqtt://host:port/topic-prefix/
	MQTTBrokerURL   string        `yaml:"mqtt"`
	PublishInterval time.Duration `yaml:"publish_interval"`
	StatsInterval   time.Duration `yaml:"stats_interval"`

	WebAddr string `yaml:"web"`
	Record  string `yaml:"record"`
	// WatchChannels lists channel indices logged on each frame, e.g. 5,6,12.
	WatchChannels string `yaml:"watch"`
}

var (
	defaultConfig = Config{
		Serial:          *serial.DefaultConfig(""),
		Scale:           sbus.DefaultScale,
		PublishInterval: 50 * time.Millisecond,
		StatsInterval:   10 * time.Second,
	}

	configFile string
	baseConfig Config
	flagFields = make(map[string]func(dst, src *Config))
)

func init() {
	if val := os.Getenv("SBUS_DEVICE"); val != "" {
		defaultConfig.Serial.Device = val
	}
	if val := os.Getenv("SBUS_MQTT_URL"); val != "" {
		defaultConfig.MQTTBrokerURL = val
	}
	if val := os.Getenv("SBUS_ID"); val != "" {
		defaultConfig.ID = val
	} else {
		defaultConfig.ID = MachineID()
	}
}

// MachineID returns a stable ID of this machine, or the hostname if the
// machine ID is unavailable.
func MachineID() string {
	if id, err := machineid.ProtectedID("sbus"); err == nil {
		return id[:12]
	}
	if name, err := os.Hostname(); err == nil {
		return name
	}
	return "sbus"
}

type flagBinder struct {
	fs     *flag.FlagSet
	target *Config
	fields map[string]func(dst, src *Config)
}

func bind[T any](b *flagBinder, name string, field func(*Config) *T, register func(*T, string, T, string), usage string) {
	p := field(b.target)
	register(p, name, *p, usage)
	b.fields[name] = func(dst, src *Config) { *field(dst) = *field(src) }
}

func (b *flagBinder) serial() {
	fs := b.fs
	bind(b, "device", func(c *Config) *string { return &c.Serial.Device }, fs.StringVar, "Serial device or tcp://host:port")
	bind(b, "baud", func(c *Config) *int { return &c.Serial.Baud }, fs.IntVar, "Serial baud rate")
	bind(b, "parity", func(c *Config) *string { return &c.Serial.Parity }, fs.StringVar, "Serial parity [none|odd|even|mark|space]")
	bind(b, "stop-bits", func(c *Config) *string { return &c.Serial.StopBits }, fs.StringVar, "Serial stop bits [1|1.5|2]")
	bind(b, "read-timeout", func(c *Config) *time.Duration { return &c.Serial.ReadTimeout }, fs.DurationVar, "Serial read timeout, 0 blocks")
}

func (b *flagBinder) all() {
	fs := b.fs
	b.serial()
	bind(b, "replay", func(c *Config) *string { return &c.Replay }, fs.StringVar, "Replay frames from a capture file")
	bind(b, "realtime", func(c *Config) *bool { return &c.Realtime }, fs.BoolVar, "Replay with recorded timing")
	bind(b, "scale-offset", func(c *Config) *int { return &c.Scale.Offset }, fs.IntVar, "Raw value at the pulse center")
	bind(b, "scale-mul", func(c *Config) *int { return &c.Scale.Mul }, fs.IntVar, "Pulse scale multiplier")
	bind(b, "scale-shift", func(c *Config) *uint { return &c.Scale.Shift }, fs.UintVar, "Pulse scale right shift")
	bind(b, "scale-center", func(c *Config) *int { return &c.Scale.Center }, fs.IntVar, "Pulse center in microseconds")
	bind(b, "id", func(c *Config) *string { return &c.ID }, fs.StringVar, "Receiver ID")
	bind(b, "mqtt", func(c *Config) *string { return &c.MQTTBrokerURL }, fs.StringVar, "MQTT broker URL")
	bind(b, "publish-interval", func(c *Config) *time.Duration { return &c.PublishInterval }, fs.DurationVar, "Minimum interval between channel publishes")
	bind(b, "stats-interval", func(c *Config) *time.Duration { return &c.StatsInterval }, fs.DurationVar, "Stats report interval, 0 disables")
	bind(b, "web", func(c *Config) *string { return &c.WebAddr }, fs.StringVar, "Web monitor listen address")
	bind(b, "record", func(c *Config) *string { return &c.Record }, fs.StringVar, "Record frames to file")
	bind(b, "watch", func(c *Config) *string { return &c.WatchChannels }, fs.StringVar, "Channels to log, e.g. 5,6,12")
}

func newBinder(fs *flag.FlagSet, target *Config) *flagBinder {
	return &flagBinder{fs: fs, target: target, fields: flagFields}
}

// SetupFlags sets command line flags.
func SetupFlags() {
	baseConfig = defaultConfig
	flag.StringVar(&configFile, "config", configFile, "YAML config file")
	newBinder(flag.CommandLine, &defaultConfig).all()
}

// SetupSerialFlags sets only the serial port flags.
func SetupSerialFlags() {
	baseConfig = defaultConfig
	newBinder(flag.CommandLine, &defaultConfig).serial()
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a copy of the default config.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

// Load returns the effective config after flag.Parse.
func Load() (*Config, error) {
	return load(flag.CommandLine, &baseConfig, NewConfig(), configFile)
}

// MustLoad is Load which fails on error.
func MustLoad() *Config {
	conf, err := Load()
	if err != nil {
		log.Fatalln(err)
	}
	return conf
}

// load applies file on top of base and then copies the flags explicitly
// set in fs from parsed.
func load(fs *flag.FlagSet, base, parsed *Config, file string) (*Config, error) {
	if file == "" {
		return parsed, nil
	}
	conf := *base
	if err := conf.LoadFile(file); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) {
		if cp := flagFields[f.Name]; cp != nil {
			cp(&conf, parsed)
		}
	})
	return &conf, nil
}

// LoadFile overlays a YAML file.
func (c *Config) LoadFile(path string) error {
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

// Validate checks the config is usable by the receiver.
func (c *Config) Validate() error {
	if c.Serial.Device == "" && c.Replay == "" {
		return fmt.Errorf("either serial device or replay file must be specified")
	}
	if err := c.Scale.Validate(); err != nil {
		return err
	}
	_, err := c.Watch()
	return err
}

// Watch parses WatchChannels.
func (c *Config) Watch() ([]int, error) {
	var channels []int
	for _, s := range strings.Split(c.WatchChannels, ",") {
		if s = strings.TrimSpace(s); s == "" {
			continue
		}
		ch, err := strconv.Atoi(s)
		if err != nil {
			return nil, fmt.Errorf("invalid watch channel %q", s)
		}
		if ch < 0 || ch >= sbus.NumChannels {
			return nil, &sbus.ChannelRangeError{Index: ch}
		}
		channels = append(channels, ch)
	}
	return channels, nil
}

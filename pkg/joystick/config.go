package joystick

import (
	"flag"
	"time"
)

// Config defines the configurations for the joystick transmitter.
type Config struct {
	DeviceIndex int           `yaml:"device"`
	Verbose     bool          `yaml:"verbose"`
	Period      time.Duration `yaml:"period"`
	Mapping     Mapping       `yaml:"mapping"`
}

var defaultConfig = Config{
	DeviceIndex: -1,
	Period:      DefaultPeriod,
	Mapping:     DefaultMapping(),
}

// SetupFlags sets command line flags.
func SetupFlags() {
	flag.IntVar(&defaultConfig.DeviceIndex, "joystick", defaultConfig.DeviceIndex, "Joystick index, -1 for auto detection.")
	flag.BoolVar(&defaultConfig.Verbose, "verbose", defaultConfig.Verbose, "Print Joystick events.")
	flag.DurationVar(&defaultConfig.Period, "period", defaultConfig.Period, "Frame period.")
}

// Default gets default config.
func Default() *Config {
	return &defaultConfig
}

// NewConfig creates a config with defaults.
func NewConfig() *Config {
	conf := defaultConfig
	return &conf
}

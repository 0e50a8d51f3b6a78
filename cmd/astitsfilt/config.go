package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the configuration
// Command line flags override the configuration file
type Config struct {
	Input   string        `toml:"input"`
	Metrics MetricsConfig `toml:"metrics"`
	Output  string        `toml:"output"`
	Verbose bool          `toml:"verbose"`
}

// MetricsConfig represents the metrics server configuration
// Server is disabled when the address is empty
type MetricsConfig struct {
	Address string `toml:"address"`
	Path    string `toml:"path"`
}

// newConfig returns the default configuration overridden by the config file, if any
func newConfig(path string) (c Config, err error) {
	// Set defaults
	c = Config{
		Input:   "-",
		Metrics: MetricsConfig{Path: "/metrics"},
		Output:  "-",
	}

	// No config file
	if path == "" {
		return
	}

	// Open file
	var f *os.File
	if f, err = os.Open(path); err != nil {
		err = fmt.Errorf("main: opening %s failed: %w", path, err)
		return
	}
	defer f.Close()

	// Decode
	if err = toml.NewDecoder(f).DisallowUnknownFields().Decode(&c); err != nil {
		err = fmt.Errorf("main: decoding %s failed: %w", path, err)
		return
	}
	return
}

// applyFlags overrides the configuration with the flags that have been set and the positional arguments
// Positional arguments are the input and the output
func (c *Config) applyFlags(fs *flag.FlagSet, args []string) {
	if len(args) > 0 {
		c.Input = args[0]
	}
	if len(args) > 1 {
		c.Output = args[1]
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "i":
			c.Input = f.Value.String()
		case "metrics":
			c.Metrics.Address = f.Value.String()
		case "o":
			c.Output = f.Value.String()
		case "v":
			c.Verbose = f.Value.String() == "true"
		}
	})
}

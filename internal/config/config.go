// Package config loads an nbplinkd node's YAML configuration file and
// overlays command-line flag overrides on top of it, the same
// file-then-flags layering the teacher performs in cmd/direwolf/main.go
// (pflag over a parsed direwolf.conf), using gopkg.in/yaml.v3 the same
// way the teacher's deviceid.go loads tocalls.yaml.
package config

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// Transport selects which byte-carrier the daemon attaches the node to.
type Transport struct {
	Kind string `yaml:"kind"` // "serial", "tcp-dial", "tcp-listen" or "pty"; cmd/nbplinkd rejects any other kind, including "loopback"

	// serial
	Device string `yaml:"device,omitempty"`
	Baud   int    `yaml:"baud,omitempty"`

	// tcp-dial / tcp-listen
	Addr string `yaml:"addr,omitempty"`
}

// QueueOverrides lets an operator tune txqueue's constants without
// recompiling; zero values mean "use the package default".
type QueueOverrides struct {
	RetryDelayMs    int `yaml:"retry_delay_ms,omitempty"`
	RetryCount      int `yaml:"retry_count,omitempty"`
	BlockSizeBytes  int `yaml:"block_size_bytes,omitempty"`
	CongestControlB int `yaml:"congest_control_bytes,omitempty"`
}

// PTT configures a GPIO line to key a radio's push-to-talk around every
// transmit.
type PTT struct {
	Enabled bool   `yaml:"enabled"`
	Chip    string `yaml:"chip,omitempty"` // e.g. "gpiochip0"
	Line    int    `yaml:"line,omitempty"`
}

// Rig configures a hamlib-controlled radio to tune before the node
// starts running.
type Rig struct {
	Enabled  bool   `yaml:"enabled"`
	Model    int    `yaml:"model,omitempty"` // hamlib rig model number
	Device   string `yaml:"device,omitempty"`
	FreqHz   int64  `yaml:"freq_hz,omitempty"`
	ModeName string `yaml:"mode,omitempty"`
}

// MDNS configures Bonjour/mDNS advertisement of a tcp-listen transport.
type MDNS struct {
	Enabled bool   `yaml:"enabled"`
	Name    string `yaml:"name,omitempty"`
}

// Config is one node's full runtime configuration.
type Config struct {
	Callsign  string         `yaml:"callsign"`
	TickMs    int            `yaml:"tick_ms"`
	Transport Transport      `yaml:"transport"`
	Queue     QueueOverrides `yaml:"queue,omitempty"`
	PTT       PTT            `yaml:"ptt,omitempty"`
	Rig       Rig            `yaml:"rig,omitempty"`
	MDNS      MDNS           `yaml:"mdns,omitempty"`
	LogDir    string         `yaml:"log_dir,omitempty"`
}

// DefaultTickMs is used when a config file doesn't specify one, matching
// the roughly-30Hz host loop rate spec.md §5 suggests.
const DefaultTickMs = 33

// Load reads and parses a YAML config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if cfg.TickMs == 0 {
		cfg.TickMs = DefaultTickMs
	}

	return &cfg, nil
}

// Flags are the CLI overrides cmd/nbplinkd accepts on top of a loaded
// Config, mirroring the teacher's pflag-based flag set in
// cmd/direwolf/main.go.
type Flags struct {
	ConfigFile *string
	Callsign   *string
	Device     *string
	DialAddr   *string
	ListenAddr *string
	TickMs     *int
}

// RegisterFlags defines the daemon's flag set on fs (typically
// pflag.CommandLine) and returns handles to read back after fs.Parse.
func RegisterFlags(fs *pflag.FlagSet) *Flags {
	return &Flags{
		ConfigFile: fs.StringP("config-file", "c", "nbplinkd.yaml", "Node configuration file."),
		Callsign:   fs.StringP("callsign", "s", "", "Override the station callsign from the config file."),
		Device:     fs.StringP("device", "d", "", "Override the serial device path."),
		DialAddr:   fs.StringP("dial", "D", "", "Dial a KISS-over-TCP peer at host:port instead of using the config transport."),
		ListenAddr: fs.StringP("listen", "L", "", "Listen for a KISS-over-TCP peer at host:port instead of using the config transport."),
		TickMs:     fs.IntP("tick-ms", "t", 0, "Override the node tick rate in milliseconds."),
	}
}

// Overlay applies any flags the user actually set on top of cfg.
func (f *Flags) Overlay(cfg *Config) {
	if f.Callsign != nil && *f.Callsign != "" {
		cfg.Callsign = *f.Callsign
	}
	if f.Device != nil && *f.Device != "" {
		cfg.Transport.Kind = "serial"
		cfg.Transport.Device = *f.Device
	}
	if f.DialAddr != nil && *f.DialAddr != "" {
		cfg.Transport.Kind = "tcp-dial"
		cfg.Transport.Addr = *f.DialAddr
	}
	if f.ListenAddr != nil && *f.ListenAddr != "" {
		cfg.Transport.Kind = "tcp-listen"
		cfg.Transport.Addr = *f.ListenAddr
	}
	if f.TickMs != nil && *f.TickMs != 0 {
		cfg.TickMs = *f.TickMs
	}
}

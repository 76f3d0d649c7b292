package server

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/shiftd-io/shiftd/server/channel"
)

const (
	// DefaultNamespace is the default NATS subject prefix to use if one is
	// not specified.
	DefaultNamespace = "shiftd"

	// DefaultPort is the port to bind to if one is not specified.
	DefaultPort = 9393

	// DefaultEmbeddedNATSPort is the port the embedded NATS server binds to.
	DefaultEmbeddedNATSPort = 4222
)

const (
	defaultListenAddress       = "0.0.0.0"
	defaultConnectionAddress   = "localhost"
	defaultReleasedSessionSize = 1024
)

// NATSConfig contains settings for the optional NATS surface.
type NATSConfig struct {
	Enabled      bool
	Embedded     bool
	EmbeddedPort int
	Logging      bool
	nats.Options
}

// AuthzConfig contains settings for channel authorization.
type AuthzConfig struct {
	Enabled bool
	Policy  string
}

// Config contains all settings for a shiftd Server.
type Config struct {
	Listen              HostPort
	Host                string
	Port                int
	LogLevel            uint32
	LogSilent           bool
	DataDir             string
	ServerID            string
	Namespace           string
	Shift               int
	ReleasedSessionSize int
	TLSKey              string
	TLSCert             string
	TLSClientAuth       bool
	TLSClientAuthCA     string
	NATS                NATSConfig
	Authz               AuthzConfig
}

// new Viper to parse configuration file
func newViper() *viper.Viper {
	v := viper.New()
	return v
}

// NewDefaultConfig creates a new Config with default settings.
func NewDefaultConfig() *Config {
	config := &Config{
		Port:      DefaultPort,
		Namespace: DefaultNamespace,
		Shift:     channel.DefaultShift,
	}
	config.LogLevel = uint32(log.InfoLevel)
	config.ServerID = nuid.Next()
	config.ReleasedSessionSize = defaultReleasedSessionSize
	config.NATS.Options = nats.GetDefaultOptions()
	config.NATS.EmbeddedPort = DefaultEmbeddedNATSPort
	return config
}

// CipherString returns a human-readable summary of the channel settings.
func (c Config) CipherString() string {
	return fmt.Sprintf("[Shift: %+d/%+d, Buffer: %s]",
		c.Shift, -c.Shift, humanize.Bytes(uint64(channel.Capacity)))
}

// GetListenAddress returns the address and port to listen to.
func (c Config) GetListenAddress() HostPort {
	if len(c.Listen.Host) > 0 {
		return c.Listen
	}

	if len(c.Host) > 0 {
		return HostPort{
			Host: c.Host,
			Port: c.listenPort(),
		}
	}

	return HostPort{
		Host: defaultListenAddress,
		Port: c.listenPort(),
	}
}

// listenPort returns the port of a port-only listen setting, or port.
func (c Config) listenPort() int {
	if c.Listen.Host == "" && c.Listen.Port != 0 {
		return c.Listen.Port
	}
	return c.Port
}

// GetConnectionAddress returns the host if specified and listen otherwise.
func (c Config) GetConnectionAddress() HostPort {
	if len(c.Host) > 0 {
		return HostPort{
			Host: c.Host,
			Port: c.listenPort(),
		}
	}

	if len(c.Listen.Host) > 0 {
		return c.Listen
	}

	return HostPort{
		Host: defaultConnectionAddress,
		Port: c.listenPort(),
	}
}

// GetLogLevel converts the level string to its corresponding int value. It
// returns an error if the level is invalid.
func GetLogLevel(level string) (uint32, error) {
	var l uint32
	switch strings.ToLower(level) {
	case "debug":
		l = uint32(log.DebugLevel)
	case "info":
		l = uint32(log.InfoLevel)
	case "warn":
		l = uint32(log.WarnLevel)
	case "error":
		l = uint32(log.ErrorLevel)
	default:
		return 0, fmt.Errorf("Invalid logging.level setting %q", level)
	}
	return l, nil
}

var knownSettings = map[string]struct{}{
	"listen":                       {},
	"host":                         {},
	"port":                         {},
	"logging.level":                {},
	"logging.silent":               {},
	"data.dir":                     {},
	"server.id":                    {},
	"namespace":                    {},
	"cipher.shift":                 {},
	"sessions.released.cache.size": {},
	"tls.key":                      {},
	"tls.cert":                     {},
	"tls.client.auth.enabled":      {},
	"tls.client.auth.ca":           {},
	"nats.enabled":                 {},
	"nats.servers":                 {},
	"nats.user":                    {},
	"nats.password":                {},
	"nats.embedded.enabled":        {},
	"nats.embedded.port":           {},
	"nats.logging":                 {},
	"authz.enabled":                {},
	"authz.policy":                 {},
}

// NewConfig creates a new Config with default settings and applies any
// settings from the given configuration file.
func NewConfig(configFile string) (*Config, error) { // nolint: gocyclo
	config := NewDefaultConfig()
	if configFile == "" {
		return config, nil
	}

	v := newViper()
	v.SetConfigFile(configFile)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	for _, key := range v.AllKeys() {
		if _, ok := knownSettings[key]; !ok {
			return nil, fmt.Errorf("Unknown configuration setting %q", key)
		}
	}

	if v.IsSet("listen") {
		hp, err := parseListen(v)
		if err != nil {
			return nil, err
		}
		config.Listen = *hp
	}

	if v.IsSet("port") {
		config.Port = v.GetInt("port")
	}

	if v.IsSet("host") {
		config.Host = v.GetString("host")
	}

	if v.IsSet("logging.level") {
		level, err := GetLogLevel(v.GetString("logging.level"))
		if err != nil {
			return nil, err
		}
		config.LogLevel = level
	}

	if v.IsSet("logging.silent") {
		config.LogSilent = v.GetBool("logging.silent")
	}

	if v.IsSet("data.dir") {
		config.DataDir = v.GetString("data.dir")
	}

	if v.IsSet("server.id") {
		config.ServerID = v.GetString("server.id")
	}

	if v.IsSet("namespace") {
		config.Namespace = v.GetString("namespace")
	}

	if v.IsSet("cipher.shift") {
		config.Shift = v.GetInt("cipher.shift")
	}

	if v.IsSet("sessions.released.cache.size") {
		config.ReleasedSessionSize = v.GetInt("sessions.released.cache.size")
	}

	if v.IsSet("tls.key") {
		config.TLSKey = v.GetString("tls.key")
	}

	if v.IsSet("tls.cert") {
		config.TLSCert = v.GetString("tls.cert")
	}

	if v.IsSet("tls.client.auth.enabled") {
		config.TLSClientAuth = v.GetBool("tls.client.auth.enabled")
	}

	if v.IsSet("tls.client.auth.ca") {
		config.TLSClientAuthCA = v.GetString("tls.client.auth.ca")
	}

	if err := parseNATSConfig(&config.NATS, v); err != nil {
		return nil, err
	}

	if v.IsSet("authz.enabled") {
		config.Authz.Enabled = v.GetBool("authz.enabled")
	}

	if v.IsSet("authz.policy") {
		config.Authz.Policy = v.GetString("authz.policy")
	}

	return config, config.validate()
}

// validate checks settings that cannot be checked while parsing.
func (c *Config) validate() error {
	if c.ReleasedSessionSize <= 0 {
		return fmt.Errorf("sessions.released.cache.size must be positive, got %d", c.ReleasedSessionSize)
	}
	if c.Authz.Enabled && c.Authz.Policy == "" {
		return fmt.Errorf("authz.policy must be set when authz is enabled")
	}
	if (c.TLSKey == "") != (c.TLSCert == "") {
		return fmt.Errorf("tls.key and tls.cert must be set together")
	}
	return nil
}

// parseNATSConfig parses the `nats` section of a config file and populates the
// given NATSConfig.
func parseNATSConfig(config *NATSConfig, v *viper.Viper) error {
	if v.IsSet("nats.enabled") {
		config.Enabled = v.GetBool("nats.enabled")
	}

	if v.IsSet("nats.servers") {
		config.Servers = v.GetStringSlice("nats.servers")
	}

	if v.IsSet("nats.user") {
		config.User = v.GetString("nats.user")
	}

	if v.IsSet("nats.password") {
		config.Password = v.GetString("nats.password")
	}

	if v.IsSet("nats.embedded.enabled") {
		config.Embedded = v.GetBool("nats.embedded.enabled")
	}

	if v.IsSet("nats.embedded.port") {
		config.EmbeddedPort = v.GetInt("nats.embedded.port")
	}

	if v.IsSet("nats.logging") {
		config.Logging = v.GetBool("nats.logging")
	}

	if config.Embedded {
		config.Enabled = true
	}
	return nil
}

// HostPort is simple struct to hold parsed listen/addr strings.
type HostPort struct {
	Host string
	Port int
}

func (h HostPort) String() string {
	return net.JoinHostPort(h.Host, strconv.Itoa(h.Port))
}

// parseListen will parse the `listen` option containing the host and port.
func parseListen(v *viper.Viper) (*HostPort, error) {
	hp := &HostPort{}
	listenConf := v.Get("listen")
	switch listenConf := listenConf.(type) {
	// Only a port
	case int:
		hp.Port = listenConf
	case int64:
		hp.Port = int(listenConf)
	case string:
		host, port, err := net.SplitHostPort(listenConf)
		if err != nil {
			return nil, fmt.Errorf("Could not parse address string %q", listenConf)
		}
		hp.Port, err = strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("Could not parse port %q", port)
		}
		hp.Host = host
	default:
		return nil, fmt.Errorf("Could not parse listen setting %v", listenConf)
	}
	return hp, nil
}

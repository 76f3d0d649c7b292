package server

import (
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/shiftd-io/shiftd/server/channel"
)

// Ensure NewConfig properly parses config files.
func TestNewConfigFromFile(t *testing.T) {
	config, err := NewConfig("configs/full.yaml")
	require.NoError(t, err)

	require.Equal(t, "localhost", config.Listen.Host)
	require.Equal(t, 9394, config.Listen.Port)
	require.Equal(t, "0.0.0.0", config.Host)
	require.Equal(t, 5050, config.Port)
	require.Equal(t, uint32(log.DebugLevel), config.LogLevel)
	require.True(t, config.LogSilent)
	require.Equal(t, "/foo", config.DataDir)
	require.Equal(t, "foo", config.ServerID)
	require.Equal(t, "bar", config.Namespace)
	require.Equal(t, 7, config.Shift)
	require.Equal(t, 16, config.ReleasedSessionSize)

	require.Equal(t, "./configs/certs/server.key", config.TLSKey)
	require.Equal(t, "./configs/certs/server.crt", config.TLSCert)
	require.True(t, config.TLSClientAuth)
	require.Equal(t, "./configs/certs/ca.crt", config.TLSClientAuthCA)

	require.True(t, config.NATS.Enabled)
	require.False(t, config.NATS.Embedded)
	require.Equal(t, 4333, config.NATS.EmbeddedPort)
	require.True(t, config.NATS.Logging)
	require.Equal(t, []string{"nats://localhost:4222"}, config.NATS.Servers)
	require.Equal(t, "user", config.NATS.User)
	require.Equal(t, "pass", config.NATS.Password)

	require.True(t, config.Authz.Enabled)
	require.Equal(t, "./configs/policy.csv", config.Authz.Policy)
}

// Ensure that default config is loaded.
func TestNewConfigDefault(t *testing.T) {
	config, err := NewConfig("")
	require.NoError(t, err)
	require.Equal(t, channel.DefaultShift, config.Shift)
	require.Equal(t, DefaultNamespace, config.Namespace)
	require.Equal(t, DefaultPort, config.Port)
	require.Equal(t, uint32(log.InfoLevel), config.LogLevel)
	require.NotEmpty(t, config.ServerID)
	require.False(t, config.NATS.Enabled)
	require.False(t, config.Authz.Enabled)
}

// Ensure that both config file and default configs are loaded.
func TestNewConfigDefaultAndFile(t *testing.T) {
	config, err := NewConfig("configs/simple.yaml")
	require.NoError(t, err)
	require.Equal(t, -4, config.Shift)
	require.Equal(t, uint32(log.WarnLevel), config.LogLevel)

	require.Equal(t, DefaultPort, config.Port)
	require.Equal(t, DefaultNamespace, config.Namespace)
	require.Equal(t, defaultReleasedSessionSize, config.ReleasedSessionSize)
}

// Ensure parsing host and listen.
func TestNewConfigListen(t *testing.T) {
	config, err := NewConfig("configs/listen-host.yaml")
	require.NoError(t, err)
	require.Equal(t, "192.168.0.1", config.Listen.Host)
	require.Equal(t, 4222, config.Listen.Port)
	require.Equal(t, "my-host", config.Host)
	require.Equal(t, 4333, config.Port)
	require.Equal(t, "192.168.0.1:4222", config.GetListenAddress().String())
	require.Equal(t, "my-host:4333", config.GetConnectionAddress().String())
}

func TestNewConfigListenPortOnly(t *testing.T) {
	config, err := NewConfig("configs/listen-port.yaml")
	require.NoError(t, err)
	require.Equal(t, "", config.Listen.Host)
	require.Equal(t, 7777, config.Listen.Port)

	require.Equal(t, HostPort{Host: defaultListenAddress, Port: 7777}, config.GetListenAddress())
	require.Equal(t, HostPort{Host: defaultConnectionAddress, Port: 7777}, config.GetConnectionAddress())

	config.Host = "my-host"
	require.Equal(t, HostPort{Host: "my-host", Port: 7777}, config.GetListenAddress())
}

// Ensure an embedded NATS server turns the NATS surface on.
func TestNewConfigEmbeddedNATS(t *testing.T) {
	config, err := NewConfig("configs/embedded-nats.yaml")
	require.NoError(t, err)
	require.True(t, config.NATS.Embedded)
	require.True(t, config.NATS.Enabled)
	require.Equal(t, -1, config.NATS.EmbeddedPort)
}

func TestGetListenAddressDefaults(t *testing.T) {
	config := NewDefaultConfig()
	require.Equal(t, HostPort{Host: "0.0.0.0", Port: DefaultPort}, config.GetListenAddress())
	require.Equal(t, HostPort{Host: "localhost", Port: DefaultPort}, config.GetConnectionAddress())
}

func TestCipherString(t *testing.T) {
	config := NewDefaultConfig()
	require.Equal(t, "[Shift: +3/-3, Buffer: 40 B]", config.CipherString())
}

func TestGetLogLevel(t *testing.T) {
	level, err := GetLogLevel("DEBUG")
	require.NoError(t, err)
	require.Equal(t, uint32(log.DebugLevel), level)

	_, err = GetLogLevel("verbose")
	require.Error(t, err)
}

// Ensure error is raised when given config file not found.
func TestNewConfigFileNotFound(t *testing.T) {
	_, err := NewConfig("somefile.yaml")
	require.Error(t, err)
}

// Ensure an error is returned when there is invalid configuration in listen.
func TestNewConfigInvalidListen(t *testing.T) {
	_, err := NewConfig("configs/invalid-listen.yaml")
	require.Error(t, err)
}

func TestNewConfigInvalidLevel(t *testing.T) {
	_, err := NewConfig("configs/invalid-level.yaml")
	require.Error(t, err)
}

// Ensure an error is returned when there is an unknown setting in the file.
func TestNewConfigUnknownSetting(t *testing.T) {
	_, err := NewConfig("configs/unknown-setting.yaml")
	require.Error(t, err)
}

func TestNewConfigAuthzWithoutPolicy(t *testing.T) {
	_, err := NewConfig("configs/authz-no-policy.yaml")
	require.Error(t, err)
}

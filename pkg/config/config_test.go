package config

import (
	"errors"
	"flag"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/sbus.go/pkg/sbus"
)

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "sbus.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	conf := NewConfig()
	require.Equal(t, 100000, conf.Serial.Baud)
	require.Equal(t, "even", conf.Serial.Parity)
	require.Equal(t, "2", conf.Serial.StopBits)
	require.Equal(t, sbus.DefaultScale, conf.Scale)
	require.NotEmpty(t, conf.ID)
	conf.Serial.Baud = 1
	require.Equal(t, 100000, Default().Serial.Baud)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
serial:
  device: /dev/ttyS1
  read_timeout: 20ms
scale:
  offset: 992
  mul: 5
  shift: 3
  center: 1500
mqtt: mqtt://broker/sbus/
publish_interval: 100ms
watch: 5,6,12
`)
	conf := NewConfig()
	require.NoError(t, conf.LoadFile(path))
	require.Equal(t, "/dev/ttyS1", conf.Serial.Device)
	require.Equal(t, 20*time.Millisecond, conf.Serial.ReadTimeout)
	require.Equal(t, 100000, conf.Serial.Baud)
	require.Equal(t, sbus.LinearScale{Offset: 992, Mul: 5, Shift: 3, Center: 1500}, conf.Scale)
	require.Equal(t, "mqtt://broker/sbus/", conf.MQTTBrokerURL)
	require.Equal(t, 100*time.Millisecond, conf.PublishInterval)
	require.NoError(t, conf.Validate())
	watch, err := conf.Watch()
	require.NoError(t, err)
	require.Equal(t, []int{5, 6, 12}, watch)

	require.Error(t, conf.LoadFile(writeFile(t, "unknown_key: 1\n")))
	require.Error(t, conf.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
}

func TestLoadPrecedence(t *testing.T) {
	base := defaultConfig
	base.Serial.Device = "/dev/default"
	parsed := base
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	newBinder(fs, &parsed).all()
	require.NoError(t, fs.Parse([]string{"-device", "/dev/flag", "-web", ":8080"}))
	require.Equal(t, "/dev/flag", parsed.Serial.Device)

	path := writeFile(t, "serial:\n  device: /dev/file\nrecord: capture.cbor\nweb: :9090\n")
	conf, err := load(fs, &base, &parsed, path)
	require.NoError(t, err)
	require.Equal(t, "/dev/flag", conf.Serial.Device)
	require.Equal(t, ":8080", conf.WebAddr)
	require.Equal(t, "capture.cbor", conf.Record)

	conf, err = load(fs, &base, &parsed, "")
	require.NoError(t, err)
	require.Equal(t, &parsed, conf)
}

func TestWatch(t *testing.T) {
	conf := &Config{WatchChannels: " 0, 15 ,"}
	watch, err := conf.Watch()
	require.NoError(t, err)
	require.Equal(t, []int{0, 15}, watch)

	conf.WatchChannels = "16"
	_, err = conf.Watch()
	require.True(t, errors.Is(err, sbus.ErrChannelRange))

	conf.WatchChannels = "x"
	_, err = conf.Watch()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	conf := NewConfig()
	conf.Serial.Device = ""
	conf.Replay = ""
	require.Error(t, conf.Validate())
	conf.Replay = "capture.cbor"
	require.NoError(t, conf.Validate())
	conf.Scale.Mul = 0
	require.Error(t, conf.Validate())
}

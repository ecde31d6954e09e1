package main

import (
	"bytes"
	"context"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/knadh/koanf/providers/structs"

	"github.com/siyka-au/go-optris/optris"
)

func TestEnvOverridesKnownKeys(t *testing.T) {
	require.NoError(t, k.Load(structs.Provider(defaults(), "koanf"), nil))
	assert.Equal(t, "Connection.Mode", envKey("OPTRIS_CONNECTION_MODE"))
	assert.Equal(t, "Acquisition.FPS", envKey("OPTRIS_ACQUISITION_FPS"))
	assert.Equal(t, "Bootup.Palette", envKey("OPTRIS_BOOTUP_PALETTE"))
	assert.Equal(t, "not.a.key", envKey("OPTRIS_NOT_A_KEY"))
}

func TestDefaultsRoundTrip(t *testing.T) {
	require.NoError(t, k.Load(structs.Provider(defaults(), "koanf"), nil))
	c := config{}
	require.NoError(t, k.Unmarshal("", &c))
	assert.Equal(t, defaults(), c)
}

func TestMockConnection(t *testing.T) {
	c := defaults().Connection
	c.Mode = "mock"
	s, err := newSession(c)
	require.NoError(t, err)
	require.NoError(t, connect(context.Background(), s, c))
	defer s.Terminate()
	assert.Equal(t, optris.ModeUSB, s.Mode())
	sz, err := s.ThermalImageSize()
	require.NoError(t, err)
	assert.Equal(t, mockSize, sz)
}

func TestUnknownMode(t *testing.T) {
	_, err := newSession(connection{Mode: "serial"})
	assert.Error(t, err)
}

func TestReconnectLogsTerminateError(t *testing.T) {
	cfg := defaults()
	cfg.Connection.Mode = "mock"
	cfg.Acquisition.Reconnect = true
	cfg.Recorder.Acquisition = false
	m := optris.NewMock(mockSize, mockSize)
	s := optris.New(m)
	require.NoError(t, connect(context.Background(), s, cfg.Connection))
	defer s.Terminate()

	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	p := newPoller(s, cfg, nil)
	require.NotNil(t, p.Reconnect)
	m.Script(optris.FnTerminate, -1)
	require.NoError(t, p.Reconnect(context.Background()))
	assert.Contains(t, buf.String(), "terminating before reconnect")
	assert.Contains(t, buf.String(), optris.FnTerminate)
	assert.True(t, s.IsOpen())
	assert.Equal(t, 2, m.Calls(optris.FnUSBInit))
}

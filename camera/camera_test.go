package camera_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siyka-au/go-optris/camera"
	"github.com/siyka-au/go-optris/optris"
)

var (
	_ camera.Imager           = (*optris.Session)(nil)
	_ camera.FrameReader      = (*optris.Session)(nil)
	_ camera.Configurator     = (*optris.Session)(nil)
	_ camera.Focuser          = (*optris.Session)(nil)
	_ camera.DaemonController = (*optris.Session)(nil)
	_ camera.Connection       = (*optris.Session)(nil)
)

func open(t *testing.T) (*optris.Session, *optris.Mock) {
	m := optris.NewMock(optris.Size{Width: 8, Height: 6}, optris.Size{Width: 8, Height: 6})
	s := optris.New(m)
	require.NoError(t, s.InitUSB("generic.xml"))
	t.Cleanup(func() { s.Terminate() })
	return s, m
}

func TestConfigure(t *testing.T) {
	s, m := open(t)
	err := camera.Configure(s, camera.Bootup{
		Palette:        "rainbow",
		Scaling:        "sigma1",
		ShutterMode:    "auto",
		TempMin:        -20,
		TempMax:        100,
		Emissivity:     0.9,
		Transmissivity: 1,
		Ambient:        optris.UseDeviceAmbient,
	})
	require.NoError(t, err)
	st := m.State()
	assert.Equal(t, int(optris.PaletteRainbow), st.Palette)
	assert.Equal(t, int(optris.ScalingSigma1), st.Scale)
	assert.Equal(t, int(optris.ShutterAuto), st.ShutterMode)
	assert.Equal(t, 100, st.TempMax)
	assert.InDelta(t, 0.9, st.Emissivity, 1e-6)
	require.NotNil(t, s.Settings().Radiation)
}

func TestConfigureEmptyIsNoop(t *testing.T) {
	s, m := open(t)
	require.NoError(t, camera.Configure(s, camera.Bootup{}))
	for _, fn := range []string{optris.FnSetPalette, optris.FnSetPaletteScale, optris.FnSetShutterMode,
		optris.FnSetTemperatureRange, optris.FnSetRadiationParameter} {
		assert.Zero(t, m.Calls(fn), fn)
	}
}

func TestConfigureStopsAtFirstError(t *testing.T) {
	s, m := open(t)
	err := camera.Configure(s, camera.Bootup{Palette: "plaid", TempMin: 0, TempMax: 10})
	assert.ErrorIs(t, err, optris.ErrInvalidParameter)
	assert.Zero(t, m.Calls(optris.FnSetTemperatureRange))

	m.Script(optris.FnSetPaletteScale, -1)
	err = camera.Configure(s, camera.Bootup{Scaling: "minmax"})
	assert.ErrorIs(t, err, optris.ErrOperationFailed)
}

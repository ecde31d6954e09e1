package optris

import (
	"math"
	"sync"
)

// MockState is a snapshot of what a Mock camera has been told
type MockState struct {
	Open    bool
	Daemon  bool
	XML     string
	Formats string
	LogFile string
	Host    string
	Port    int

	Palette        int
	Scale          int
	ShutterMode    int
	ShutterFlags   int
	TempMin        int
	TempMax        int
	Emissivity     float32
	Transmissivity float32
	Ambient        float32
	Focus          float32

	// Frames is the number of frames produced
	Frames int
}

// Mock is an in-memory Native which behaves like a camera.
// It produces a synthetic scene: a horizontal temperature gradient with a
// hot spot that moves one pixel per frame.
//
// Result codes can be scripted per entry point with Script; once a script is
// exhausted the mock falls back to its own behavior.
type Mock struct {
	sync.Mutex

	// Thermal and PaletteSz are the image sizes reported
	Thermal   Size
	PaletteSz Size

	// RequireDaemon makes TCPInit fail with -1 while the daemon is not running
	RequireDaemon bool

	// HasFocusMotor gives the camera a focus motor
	HasFocusMotor bool

	// Static stops the hot spot moving, so consecutive frames are identical
	Static bool

	state   MockState
	scripts map[string][]int
	calls   map[string]int
}

// NewMock returns a mock camera with the given thermal and palette sizes
func NewMock(thermal, palette Size) *Mock {
	return &Mock{
		Thermal:   thermal,
		PaletteSz: palette,
		state: MockState{
			Palette: int(PaletteIron),
			Scale:   int(ScalingMinMax),
			TempMin: -20,
			TempMax: 100,
			Focus:   -1,
		},
		scripts: map[string][]int{},
		calls:   map[string]int{},
	}
}

// Script queues result codes for the next calls to the entry point fn,
// e.g. m.Script(FnPaletteImage, -1, -1) makes the next two palette reads fail
func (m *Mock) Script(fn string, codes ...int) {
	m.Lock()
	defer m.Unlock()
	m.scripts[fn] = append(m.scripts[fn], codes...)
}

// Calls returns how many times the entry point fn was called
func (m *Mock) Calls(fn string) int {
	m.Lock()
	defer m.Unlock()
	return m.calls[fn]
}

// State returns a snapshot of the mock's state
func (m *Mock) State() MockState {
	m.Lock()
	defer m.Unlock()
	return m.state
}

// SetDaemonRunning sets the state of the simulated daemon
func (m *Mock) SetDaemonRunning(b bool) {
	m.Lock()
	defer m.Unlock()
	m.state.Daemon = b
}

// enter counts a call and pops a scripted code.
// ok is false when nothing was scripted.  m must be locked.
func (m *Mock) enter(fn string) (code int, ok bool) {
	m.calls[fn]++
	q := m.scripts[fn]
	if len(q) == 0 {
		return 0, false
	}
	m.scripts[fn] = q[1:]
	return q[0], true
}

// result returns the scripted code if any, otherwise -1 if the camera is
// closed and 0 if it is open.  m must be locked.
func (m *Mock) result(fn string) int {
	if code, ok := m.enter(fn); ok {
		return code
	}
	if !m.state.Open {
		return -1
	}
	return 0
}

func (m *Mock) USBInit(xmlConfig, formatsDef, logFile string) int {
	m.Lock()
	defer m.Unlock()
	if code, ok := m.enter(FnUSBInit); ok {
		return code
	}
	m.state.XML, m.state.Formats, m.state.LogFile = xmlConfig, formatsDef, logFile
	m.state.Open = true
	return 0
}

func (m *Mock) TCPInit(host string, port int) int {
	m.Lock()
	defer m.Unlock()
	if code, ok := m.enter(FnTCPInit); ok {
		return code
	}
	if m.RequireDaemon && !m.state.Daemon {
		return -1
	}
	m.state.Host, m.state.Port = host, port
	m.state.Open = true
	return 0
}

func (m *Mock) Terminate() int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnTerminate)
	m.state.Open = false
	return code
}

func (m *Mock) ThermalImageSize() (int, int, int) {
	m.Lock()
	defer m.Unlock()
	return m.Thermal.Width, m.Thermal.Height, m.result(FnThermalImageSize)
}

func (m *Mock) PaletteImageSize() (int, int, int) {
	m.Lock()
	defer m.Unlock()
	return m.PaletteSz.Width, m.PaletteSz.Height, m.result(FnPaletteImageSize)
}

func (m *Mock) ThermalImage(w, h int, dst []uint16) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnThermalImage)
	if code == 0 {
		m.scene(w, h, dst)
		m.state.Frames++
	}
	return code
}

func (m *Mock) PaletteImage(w, h int, dst []byte) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnPaletteImage)
	if code == 0 {
		m.colorize(w, h, dst)
		m.state.Frames++
	}
	return code
}

func (m *Mock) ThermalPaletteImage(wt, ht int, thermal []uint16, wp, hp int, palette []byte) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnThermalPaletteImage)
	if code == 0 {
		m.scene(wt, ht, thermal)
		m.colorize(wp, hp, palette)
		m.state.Frames++
	}
	return code
}

func (m *Mock) SetPalette(id int) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetPalette)
	if code == 0 {
		m.state.Palette = id
	}
	return code
}

func (m *Mock) SetPaletteScale(scale int) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetPaletteScale)
	if code == 0 {
		m.state.Scale = scale
	}
	return code
}

func (m *Mock) SetShutterMode(mode int) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetShutterMode)
	if code == 0 {
		m.state.ShutterMode = mode
	}
	return code
}

func (m *Mock) TriggerShutterFlag() int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnTriggerShutterFlag)
	if code == 0 {
		m.state.ShutterFlags++
	}
	return code
}

func (m *Mock) SetTemperatureRange(min, max int) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetTemperatureRange)
	if code == 0 {
		m.state.TempMin, m.state.TempMax = min, max
	}
	return code
}

func (m *Mock) SetRadiationParameters(emissivity, transmissivity, ambient float32) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetRadiationParameter)
	if code == 0 {
		m.state.Emissivity, m.state.Transmissivity, m.state.Ambient = emissivity, transmissivity, ambient
	}
	return code
}

func (m *Mock) SetFocusMotorPos(pos float32) int {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnSetFocusMotorPos)
	if code != 0 {
		return code
	}
	if !m.HasFocusMotor {
		return -1
	}
	m.state.Focus = pos
	return 0
}

func (m *Mock) GetFocusMotorPos() (float32, int) {
	m.Lock()
	defer m.Unlock()
	code := m.result(FnGetFocusMotorPos)
	if !m.HasFocusMotor {
		return -1, code
	}
	if m.state.Focus < 0 {
		m.state.Focus = 50
	}
	return m.state.Focus, code
}

func (m *Mock) DaemonLaunch() int {
	m.Lock()
	defer m.Unlock()
	if code, ok := m.enter(FnDaemonLaunch); ok {
		return code
	}
	m.state.Daemon = true
	return 0
}

func (m *Mock) DaemonIsRunning() int {
	m.Lock()
	defer m.Unlock()
	if code, ok := m.enter(FnDaemonIsRunning); ok {
		return code
	}
	if m.state.Daemon {
		return 0
	}
	return -1
}

func (m *Mock) DaemonKill() int {
	m.Lock()
	defer m.Unlock()
	if code, ok := m.enter(FnDaemonKill); ok {
		return code
	}
	m.state.Daemon = false
	return 0
}

// sceneCelsius is the temperature of the synthetic scene at (x, y)
func (m *Mock) sceneCelsius(x, y, w, h int) float64 {
	// 20 C on the left edge to 40 C on the right
	t := 20 + 20*float64(x)/math.Max(1, float64(w-1))
	frame := m.state.Frames
	if m.Static {
		frame = 0
	}
	hx, hy := frame%w, h/2
	if dx, dy := x-hx, y-hy; dx*dx+dy*dy <= 4 {
		t = 80
	}
	return t
}

func (m *Mock) scene(w, h int, dst []uint16) {
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			dst[y*w+x] = CelsiusToRaw(m.sceneCelsius(x, y, w, h))
		}
	}
}

func (m *Mock) colorize(w, h int, dst []byte) {
	lo, hi := float64(m.state.TempMin), float64(m.state.TempMax)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := (m.sceneCelsius(x, y, w, h) - lo) / (hi - lo)
			t = math.Max(0, math.Min(1, t))
			r, g, b := ramp(Palette(m.state.Palette), t)
			i := 3 * (y*w + x)
			dst[i], dst[i+1], dst[i+2] = r, g, b
		}
	}
}

// ramp is a crude stand-in for the SDK's palettes
func ramp(p Palette, t float64) (byte, byte, byte) {
	v := byte(math.Round(t * 255))
	switch p {
	case PaletteGrayBW:
		return v, v, v
	case PaletteGrayWB:
		return 255 - v, 255 - v, 255 - v
	case PaletteRainbow, PaletteRainbowHi:
		return v, byte(math.Round(255 * math.Sin(math.Pi*t))), 255 - v
	}
	// iron-like: black, purple, orange, white
	r := math.Min(1, 2*t)
	g := math.Max(0, 2*t-1)
	b := math.Max(0, math.Sin(2*math.Pi*t))
	if t > 0.85 {
		b = (t - 0.85) / 0.15
	}
	return byte(math.Round(255 * r)), byte(math.Round(255 * g)), byte(math.Round(255 * b))
}

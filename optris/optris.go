/*Package optris exposes control of Optris thermal imagers in Go via their Direct-SDK

The Direct-SDK (libirdirectsdk on Linux, libirimager.dll on Windows) is a
closed-source library reached either over USB or through a daemon process over
TCP.  This package mirrors its C API one entry point at a time, with a few
additions the C API does not have:

	- the SDK's process-wide state is modelled as a Session; calls into the
	  library are serialized behind one lock and made only while a session is open
	- result codes are translated to errors; see ErrOperationFailed and
	  ErrFatalConnection
	- frame buffers are allocated by this package and returned to the caller,
	  the SDK never keeps a reference to them
	- palettes, scaling methods and shutter modes are typed and validated before
	  they reach the SDK
	- polling for palette frames is bounded by a RetryPolicy and a context

A basic session looks like this:

	lib, err := optris.Library() // requires -tags irdirectsdk
	s := optris.New(lib)
	err = s.InitTCP("localhost", optris.DefaultPort)
	defer s.Terminate()
	sz, err := s.ThermalImageSize()
	frame, err := s.ThermalFrame(sz.Width, sz.Height)
	fmt.Println(frame.Stats().Max)

Tests and software-only setups can use NewMock in place of Library.
*/
package optris

import (
	"context"
	"fmt"
	"sync"

	"github.com/cenkalti/backoff"
)

// DefaultPort is the default TCP port of the daemon
const DefaultPort = 1337

// registry tracks which sessions own which native library, so that two
// sessions over one library share a lock and cannot both be open.
// Libraries are keyed by their Native value; see keyOf.
var registry = struct {
	sync.Mutex
	locks  map[interface{}]*sync.Mutex
	owners map[interface{}]*Session
}{
	locks:  map[interface{}]*sync.Mutex{},
	owners: map[interface{}]*Session{},
}

// keyOf returns the registry key of n.  A Native which cannot be a map key,
// such as a struct value holding a slice, gets a key of its own, so sessions
// over copies of it do not share a lock.  Use a pointer to share one.
func keyOf(n Native) (key interface{}) {
	defer func() {
		if recover() != nil {
			key = new(byte)
		}
	}()
	_ = map[interface{}]struct{}{n: {}}
	return n
}

func lockFor(key interface{}) *sync.Mutex {
	registry.Lock()
	defer registry.Unlock()
	mu, ok := registry.locks[key]
	if !ok {
		mu = &sync.Mutex{}
		registry.locks[key] = mu
	}
	return mu
}

// claim marks s as the open session of its library
func claim(s *Session) bool {
	registry.Lock()
	defer registry.Unlock()
	if owner, ok := registry.owners[s.key]; ok && owner != s {
		return false
	}
	registry.owners[s.key] = s
	return true
}

func release(s *Session) {
	registry.Lock()
	defer registry.Unlock()
	if registry.owners[s.key] == s {
		delete(registry.owners, s.key)
	}
}

// Settings holds the configuration last applied through a Session.
// Nil fields have not been set.
type Settings struct {
	Palette          *Palette             `json:"palette,omitempty"`
	Scaling          *Scaling             `json:"scaling,omitempty"`
	ShutterMode      *ShutterMode         `json:"shutterMode,omitempty"`
	TemperatureRange *TemperatureRange    `json:"temperatureRange,omitempty"`
	Radiation        *RadiationParameters `json:"radiation,omitempty"`
}

// Session is a connection to a camera, over USB or through the daemon
type Session struct {
	// mu is shared by every session over the same Native
	mu     *sync.Mutex
	native Native
	key    interface{}
	mode   Mode

	settings Settings

	// Retry bounds PaletteFrame.  It may be changed between calls.
	Retry RetryPolicy
}

// New returns a closed session over a native library
func New(n Native) *Session {
	key := keyOf(n)
	return &Session{mu: lockFor(key), native: n, key: key, Retry: DefaultRetryPolicy}
}

// Mode returns the connection mode, ModeClosed if no session is open
func (s *Session) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// IsOpen returns true if InitUSB or InitTCP succeeded and Terminate has not been called since
func (s *Session) IsOpen() bool {
	return s.Mode() != ModeClosed
}

/* this block contains functions which deal with the session lifecycle

 */

type usbOptions struct {
	formatsDef string
	logFile    string
}

// USBOption configures InitUSB
type USBOption func(*usbOptions)

// WithFormatsDef sets the path to the Formats.def file.
// The SDK's standard value is used when absent.
func WithFormatsDef(path string) USBOption {
	return func(o *usbOptions) { o.formatsDef = path }
}

// WithLogFile sets the path of the SDK's log file.
// The SDK's standard value is used when absent.
func WithLogFile(path string) USBOption {
	return func(o *usbOptions) { o.logFile = path }
}

// InitUSB initializes a camera attached to this computer via USB.
// xmlConfig is the path to the camera's XML configuration file.
func (s *Session) InitUSB(xmlConfig string, opts ...USBOption) error {
	if xmlConfig == "" {
		return fmt.Errorf("%w: xml configuration path is required", ErrInvalidParameter)
	}
	o := usbOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	return s.open(ModeUSB, func() int {
		return s.native.USBInit(xmlConfig, o.formatsDef, o.logFile)
	})
}

// InitTCP connects to the daemon process at host:port.
// host may be a name such as "localhost".  An error matching ErrHostNotFound
// means the daemon was not reachable and the call may be retried.
func (s *Session) InitTCP(host string, port int) error {
	if host == "" || port <= 0 || port > 65535 {
		return fmt.Errorf("%w: bad daemon address %s:%d", ErrInvalidParameter, host, port)
	}
	return s.open(ModeTCP, func() int {
		return s.native.TCPInit(host, port)
	})
}

func (s *Session) open(mode Mode, init func() int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != ModeClosed || !claim(s) {
		return ErrSessionAlreadyOpen
	}
	if code := init(); code != 0 {
		release(s)
		return &InitError{Mode: mode, Code: code}
	}
	s.mode = mode
	s.settings = Settings{}
	return nil
}

// Terminate disconnects the camera.  It is a no-op if no session is open.
// The session is closed even if the SDK reports an error.
func (s *Session) Terminate() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeClosed {
		return nil
	}
	mode := s.mode
	code := s.native.Terminate()
	s.mode = ModeClosed
	release(s)
	return translate(FnTerminate, code, mode)
}

// call runs fn under the lock if a session is open
func (s *Session) call(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == ModeClosed {
		return ErrNoActiveSession
	}
	return fn()
}

/* the above deals with the session lifecycle, the below deals with image geometry and frames.

 */

// ThermalImageSize gets the width and height of thermal frames.
// Query it right before ThermalFrame; the resolution may change between calls.
func (s *Session) ThermalImageSize() (Size, error) {
	var sz Size
	err := s.call(func() error {
		w, h, code := s.native.ThermalImageSize()
		sz = Size{Width: w, Height: h}
		return translate(FnThermalImageSize, code, s.mode)
	})
	return sz, err
}

// PaletteImageSize gets the width and height of palette frames, which can
// differ from the thermal frame size due to striding
func (s *Session) PaletteImageSize() (Size, error) {
	var sz Size
	err := s.call(func() error {
		w, h, code := s.native.PaletteImageSize()
		sz = Size{Width: w, Height: h}
		return translate(FnPaletteImageSize, code, s.mode)
	})
	return sz, err
}

// ThermalFrame gets a thermal frame of w*h samples.  It is not retried; an
// error matching ErrOperationFailed may be retried by the caller.
func (s *Session) ThermalFrame(w, h int) (ThermalFrame, error) {
	f := ThermalFrame{}
	err := s.readThermal(&f, w, h)
	return f, err
}

// ReadThermalFrame queries the thermal image size and fills f, reusing
// f.Data when its capacity is sufficient
func (s *Session) ReadThermalFrame(f *ThermalFrame) error {
	sz, err := s.ThermalImageSize()
	if err != nil {
		return err
	}
	return s.readThermal(f, sz.Width, sz.Height)
}

func (s *Session) readThermal(f *ThermalFrame, w, h int) error {
	if w <= 0 || h <= 0 {
		return ErrInvalidDimensions
	}
	return s.call(func() error {
		f.Width, f.Height = w, h
		f.Data = grow16(f.Data, w*h)
		code := s.native.ThermalImage(w, h, f.Data)
		return translate(FnThermalImage, code, s.mode)
	})
}

// PaletteFrame gets a false color frame of 3*w*h bytes.
//
// The SDK reports transient errors under normal operation, for example
// before the daemon has produced its first frame, so the call is repeated
// until it succeeds, bounded by s.Retry and ctx.  A fatal error stops the
// loop immediately.
func (s *Session) PaletteFrame(ctx context.Context, w, h int) (PaletteFrame, error) {
	f := PaletteFrame{}
	_, err := s.readPalette(ctx, &f, w, h)
	return f, err
}

// ReadPaletteFrame queries the palette image size and fills f, reusing
// f.Pix when its capacity is sufficient.  It retries like PaletteFrame.
func (s *Session) ReadPaletteFrame(ctx context.Context, f *PaletteFrame) error {
	sz, err := s.PaletteImageSize()
	if err != nil {
		return err
	}
	_, err = s.readPalette(ctx, f, sz.Width, sz.Height)
	return err
}

// readPalette returns the number of native calls made
func (s *Session) readPalette(ctx context.Context, f *PaletteFrame, w, h int) (int, error) {
	if w <= 0 || h <= 0 {
		return 0, ErrInvalidDimensions
	}
	f.Width, f.Height = w, h
	f.Pix = grow8(f.Pix, 3*w*h)
	// the lock is taken per attempt so Terminate is not starved by a long poll
	n, err := s.Retry.retry(ctx, func() error {
		err := s.call(func() error {
			code := s.native.PaletteImage(w, h, f.Pix)
			return translate(FnPaletteImage, code, s.mode)
		})
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	})
	if err != nil && IsRetryable(err) {
		return n, fmt.Errorf("palette frame not ready after %d attempts: %w", n, err)
	}
	return n, err
}

// ThermalAndPaletteFrame gets a thermal and a palette frame from a single
// native round trip.  Like ThermalFrame, it is not retried.
func (s *Session) ThermalAndPaletteFrame(thermal, palette Size) (ThermalFrame, PaletteFrame, error) {
	tf := ThermalFrame{}
	pf := PaletteFrame{}
	if !thermal.valid() || !palette.valid() {
		return tf, pf, ErrInvalidDimensions
	}
	err := s.call(func() error {
		tf = ThermalFrame{Width: thermal.Width, Height: thermal.Height, Data: make([]uint16, thermal.Pixels())}
		pf = PaletteFrame{Width: palette.Width, Height: palette.Height, Pix: make([]byte, 3*palette.Pixels())}
		code := s.native.ThermalPaletteImage(tf.Width, tf.Height, tf.Data, pf.Width, pf.Height, pf.Pix)
		return translate(FnThermalPaletteImage, code, s.mode)
	})
	return tf, pf, err
}

// grow16 returns a zeroed slice of length n, reusing buf if it is large enough
func grow16(buf []uint16, n int) []uint16 {
	if cap(buf) < n {
		return make([]uint16, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

func grow8(buf []byte, n int) []byte {
	if cap(buf) < n {
		return make([]byte, n)
	}
	buf = buf[:n]
	for i := range buf {
		buf[i] = 0
	}
	return buf
}

/* the above deals with frames, the below deals with camera configuration.

 */

// SetPalette sets the false color palette of palette frames
func (s *Session) SetPalette(p Palette) error {
	if !p.Valid() {
		return fmt.Errorf("%w: palette %d", ErrInvalidParameter, int(p))
	}
	return s.call(func() error {
		err := translate(FnSetPalette, s.native.SetPalette(int(p)), s.mode)
		if err == nil {
			s.settings.Palette = &p
		}
		return err
	})
}

// SetPaletteScaling sets the palette scaling method
func (s *Session) SetPaletteScaling(m Scaling) error {
	if !m.Valid() {
		return fmt.Errorf("%w: scaling %d", ErrInvalidParameter, int(m))
	}
	return s.call(func() error {
		err := translate(FnSetPaletteScale, s.native.SetPaletteScale(int(m)), s.mode)
		if err == nil {
			s.settings.Scaling = &m
		}
		return err
	})
}

// SetShutterMode sets manual or automatic shutter flagging
func (s *Session) SetShutterMode(m ShutterMode) error {
	if !m.Valid() {
		return fmt.Errorf("%w: shutter mode %d", ErrInvalidParameter, int(m))
	}
	return s.call(func() error {
		err := translate(FnSetShutterMode, s.native.SetShutterMode(int(m)), s.mode)
		if err == nil {
			s.settings.ShutterMode = &m
		}
		return err
	})
}

// TriggerShutterFlag forces a shutter flag cycle
func (s *Session) TriggerShutterFlag() error {
	return s.call(func() error {
		return translate(FnTriggerShutterFlag, s.native.TriggerShutterFlag(), s.mode)
	})
}

// SetTemperatureRange sets the measurement range of the camera in Celsius.
// The range can also be configured in the XML config.
func (s *Session) SetTemperatureRange(min, max int) error {
	if min >= max {
		return fmt.Errorf("%w: [%d, %d]", ErrInvalidRange, min, max)
	}
	return s.call(func() error {
		err := translate(FnSetTemperatureRange, s.native.SetTemperatureRange(min, max), s.mode)
		if err == nil {
			s.settings.TemperatureRange = &TemperatureRange{Min: min, Max: max}
		}
		return err
	})
}

// SetRadiationParameters sets emissivity, transmissivity and ambient
// temperature.  Pass UseDeviceAmbient, or anything below AbsoluteZero, to let
// the camera measure ambient temperature itself.  The SDK documents this as
// supported over USB only.
func (s *Session) SetRadiationParameters(p RadiationParameters) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: emissivity %g and transmissivity %g must be within [0,1]", err, p.Emissivity, p.Transmissivity)
	}
	return s.call(func() error {
		code := s.native.SetRadiationParameters(float32(p.Emissivity), float32(p.Transmissivity), float32(p.Ambient))
		err := translate(FnSetRadiationParameter, code, s.mode)
		if err == nil {
			s.settings.Radiation = &p
		}
		return err
	})
}

// SetFocusMotorPosition moves the focus motor to pos percent.
// The SDK does not distinguish a failure from a missing motor here.
func (s *Session) SetFocusMotorPosition(pos float64) error {
	return s.call(func() error {
		return translate(FnSetFocusMotorPos, s.native.SetFocusMotorPos(float32(pos)), s.mode)
	})
}

// FocusMotorPosition gets the focus motor position in percent.
// present is false, with a nil error, if the camera has no focus motor.
func (s *Session) FocusMotorPosition() (pos float64, present bool, err error) {
	err = s.call(func() error {
		p, code := s.native.GetFocusMotorPos()
		pos = float64(p)
		return translate(FnGetFocusMotorPos, code, s.mode)
	})
	if err != nil {
		return 0, false, err
	}
	if pos < 0 {
		return 0, false, nil
	}
	return pos, true, nil
}

// Settings returns the configuration applied through this session since it was opened
func (s *Session) Settings() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.settings
}

// Palette returns the last palette set, or ErrParameterNotSet
func (s *Session) Palette() (Palette, error) {
	st := s.Settings()
	if st.Palette == nil {
		return 0, ErrParameterNotSet
	}
	return *st.Palette, nil
}

// PaletteScaling returns the last scaling method set, or ErrParameterNotSet
func (s *Session) PaletteScaling() (Scaling, error) {
	st := s.Settings()
	if st.Scaling == nil {
		return 0, ErrParameterNotSet
	}
	return *st.Scaling, nil
}

// ShutterMode returns the last shutter mode set, or ErrParameterNotSet
func (s *Session) ShutterMode() (ShutterMode, error) {
	st := s.Settings()
	if st.ShutterMode == nil {
		return 0, ErrParameterNotSet
	}
	return *st.ShutterMode, nil
}

// TemperatureRange returns the last range set, or ErrParameterNotSet
func (s *Session) TemperatureRange() (TemperatureRange, error) {
	st := s.Settings()
	if st.TemperatureRange == nil {
		return TemperatureRange{}, ErrParameterNotSet
	}
	return *st.TemperatureRange, nil
}

// RadiationParameters returns the last radiation parameters set, or ErrParameterNotSet
func (s *Session) RadiationParameters() (RadiationParameters, error) {
	st := s.Settings()
	if st.Radiation == nil {
		return RadiationParameters{}, ErrParameterNotSet
	}
	return *st.Radiation, nil
}

/* the above deals with camera configuration, the below deals with the daemon process.

 */

// LaunchDaemon starts the daemon process.  No session needs to be open.
func (s *Session) LaunchDaemon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return translate(FnDaemonLaunch, s.native.DaemonLaunch(), ModeTCP)
}

// DaemonRunning returns true if the daemon process is running
func (s *Session) DaemonRunning() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch code := s.native.DaemonIsRunning(); code {
	case 0:
		return true, nil
	case -1:
		return false, nil
	default:
		return false, &OpError{Op: FnDaemonIsRunning, Code: code, Err: ErrOperationFailed}
	}
}

// KillDaemon stops the daemon process
func (s *Session) KillDaemon() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return translate(FnDaemonKill, s.native.DaemonKill(), ModeTCP)
}

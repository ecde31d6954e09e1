package optris

// names of the SDK entry points, used in errors and by Mock to script results
const (
	FnUSBInit               = "evo_irimager_usb_init"
	FnTCPInit               = "evo_irimager_tcp_init"
	FnTerminate             = "evo_irimager_terminate"
	FnThermalImageSize      = "evo_irimager_get_thermal_image_size"
	FnPaletteImageSize      = "evo_irimager_get_palette_image_size"
	FnThermalImage          = "evo_irimager_get_thermal_image"
	FnPaletteImage          = "evo_irimager_get_palette_image"
	FnThermalPaletteImage   = "evo_irimager_get_thermal_palette_image"
	FnSetPalette            = "evo_irimager_set_palette"
	FnSetPaletteScale       = "evo_irimager_set_palette_scale"
	FnSetShutterMode        = "evo_irimager_set_shutter_mode"
	FnTriggerShutterFlag    = "evo_irimager_trigger_shutter_flag"
	FnSetTemperatureRange   = "evo_irimager_set_temperature_range"
	FnSetRadiationParameter = "evo_irimager_set_radiation_parameters"
	FnSetFocusMotorPos      = "evo_irimager_set_focusmotor_pos"
	FnGetFocusMotorPos      = "evo_irimager_get_focusmotor_pos"
	FnDaemonLaunch          = "evo_irimager_daemon_launch"
	FnDaemonIsRunning       = "evo_irimager_daemon_is_running"
	FnDaemonKill            = "evo_irimager_daemon_kill"
)

// Native is the C ABI of the Direct-SDK, one method per entry point.
// Every method returns the raw result code of the SDK.  Implementations
// need not be safe for concurrent use; Session serializes all calls.
//
// Buffers passed to ThermalImage, PaletteImage and ThermalPaletteImage are
// owned by the caller.  Implementations must not retain them after returning.
type Native interface {
	// USBInit opens a camera attached over USB.  Empty formatsDef or
	// logFile are passed to the SDK as NULL.
	USBInit(xmlConfig, formatsDef, logFile string) int

	// TCPInit connects to the daemon process
	TCPInit(host string, port int) int

	// Terminate disconnects the camera
	Terminate() int

	ThermalImageSize() (w, h, code int)
	PaletteImageSize() (w, h, code int)

	// ThermalImage fills dst, len(dst) == w*h
	ThermalImage(w, h int, dst []uint16) int

	// PaletteImage fills dst, len(dst) == 3*w*h
	PaletteImage(w, h int, dst []byte) int

	// ThermalPaletteImage fills both buffers in one round trip
	ThermalPaletteImage(wt, ht int, thermal []uint16, wp, hp int, palette []byte) int

	SetPalette(id int) int
	SetPaletteScale(scale int) int
	SetShutterMode(mode int) int
	TriggerShutterFlag() int
	SetTemperatureRange(min, max int) int
	SetRadiationParameters(emissivity, transmissivity, ambient float32) int
	SetFocusMotorPos(pos float32) int

	// GetFocusMotorPos returns a negative position if there is no focus motor
	GetFocusMotorPos() (pos float32, code int)

	DaemonLaunch() int

	// DaemonIsRunning returns 0 if the daemon is running and -1 if not
	DaemonIsRunning() int

	DaemonKill() int
}

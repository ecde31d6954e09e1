//go:build cgo && irdirectsdk

package optris

/*
#cgo linux CFLAGS: -I/usr/include/libirimager -I/usr/local/include
#cgo linux LDFLAGS: -L/usr/lib -L/usr/local/lib -lirdirectsdk
#cgo windows CFLAGS: -IC:/lib/irDirectSDK/sdk
#cgo windows,amd64 LDFLAGS: -LC:/lib/irDirectSDK/sdk/x64 -llibirimager
#cgo windows,386 LDFLAGS: -LC:/lib/irDirectSDK/sdk/Win32 -llibirimager
#include <stdlib.h>
#include <direct_binding.h>
*/
import "C"
import (
	"sync"
	"unsafe"
)

// sdk is the Direct-SDK loaded into this process.  The library holds
// process-wide state, so there is exactly one.
type sdk struct {
	// mu guards every C call, whichever session makes it
	mu sync.Mutex
}

var theSDK = &sdk{}

// Library returns the Direct-SDK linked into this binary
func Library() (Native, error) {
	return theSDK, nil
}

// cstr converts s to a C string, nil for ""
func cstr(s string) *C.char {
	if s == "" {
		return nil
	}
	return C.CString(s)
}

func (l *sdk) USBInit(xmlConfig, formatsDef, logFile string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cx, cf, cl := cstr(xmlConfig), cstr(formatsDef), cstr(logFile)
	defer C.free(unsafe.Pointer(cx))
	defer C.free(unsafe.Pointer(cf))
	defer C.free(unsafe.Pointer(cl))
	return int(C.evo_irimager_usb_init(cx, cf, cl))
}

func (l *sdk) TCPInit(host string, port int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch := C.CString(host)
	defer C.free(unsafe.Pointer(ch))
	return int(C.evo_irimager_tcp_init(ch, C.int(port)))
}

func (l *sdk) Terminate() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_terminate())
}

func (l *sdk) ThermalImageSize() (int, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var w, h C.int
	code := C.evo_irimager_get_thermal_image_size(&w, &h)
	return int(w), int(h), int(code)
}

func (l *sdk) PaletteImageSize() (int, int, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var w, h C.int
	code := C.evo_irimager_get_palette_image_size(&w, &h)
	return int(w), int(h), int(code)
}

// the buffers below are Go memory without Go pointers inside, which cgo
// allows to be passed for the duration of the call

func (l *sdk) ThermalImage(w, h int, dst []uint16) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cw, ch := C.int(w), C.int(h)
	return int(C.evo_irimager_get_thermal_image(&cw, &ch, (*C.ushort)(unsafe.Pointer(&dst[0]))))
}

func (l *sdk) PaletteImage(w, h int, dst []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	cw, ch := C.int(w), C.int(h)
	return int(C.evo_irimager_get_palette_image(&cw, &ch, (*C.uchar)(unsafe.Pointer(&dst[0]))))
}

func (l *sdk) ThermalPaletteImage(wt, ht int, thermal []uint16, wp, hp int, palette []byte) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_get_thermal_palette_image(
		C.int(wt), C.int(ht), (*C.ushort)(unsafe.Pointer(&thermal[0])),
		C.int(wp), C.int(hp), (*C.uchar)(unsafe.Pointer(&palette[0]))))
}

func (l *sdk) SetPalette(id int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_palette(C.int(id)))
}

func (l *sdk) SetPaletteScale(scale int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_palette_scale(C.int(scale)))
}

func (l *sdk) SetShutterMode(mode int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_shutter_mode(C.int(mode)))
}

func (l *sdk) TriggerShutterFlag() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_trigger_shutter_flag())
}

func (l *sdk) SetTemperatureRange(min, max int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_temperature_range(C.int(min), C.int(max)))
}

func (l *sdk) SetRadiationParameters(emissivity, transmissivity, ambient float32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_radiation_parameters(C.float(emissivity), C.float(transmissivity), C.float(ambient)))
}

func (l *sdk) SetFocusMotorPos(pos float32) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_set_focusmotor_pos(C.float(pos)))
}

func (l *sdk) GetFocusMotorPos() (float32, int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var pos C.float
	code := C.evo_irimager_get_focusmotor_pos(&pos)
	return float32(pos), int(code)
}

func (l *sdk) DaemonLaunch() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_daemon_launch())
}

func (l *sdk) DaemonIsRunning() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_daemon_is_running())
}

func (l *sdk) DaemonKill() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return int(C.evo_irimager_daemon_kill())
}

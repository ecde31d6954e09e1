package optris

import (
	"errors"
	"fmt"
)

var (
	// ErrNoActiveSession is generated when an operation that needs a camera
	// is called before InitUSB or InitTCP, or after Terminate
	ErrNoActiveSession = errors.New("optris: no active session, call InitUSB or InitTCP first")

	// ErrSessionAlreadyOpen is generated when InitUSB or InitTCP is called
	// while a session is open on the same native library
	ErrSessionAlreadyOpen = errors.New("optris: session already open, call Terminate first")

	// ErrNativeInit is matched by every *InitError
	ErrNativeInit = errors.New("optris: native initialization failed")

	// ErrHostNotFound is matched by an *InitError from InitTCP when the daemon
	// could not be reached (wrong host, daemon not running)
	ErrHostNotFound = errors.New("optris: host not found or daemon not running")

	// ErrInvalidDimensions is generated when a frame is requested with a
	// non-positive width or height
	ErrInvalidDimensions = errors.New("optris: image dimensions must be positive")

	// ErrInvalidRange is generated when a temperature range has min >= max
	ErrInvalidRange = errors.New("optris: temperature range minimum must be below maximum")

	// ErrInvalidParameter is generated when an argument is rejected before
	// reaching the SDK, e.g. an unknown palette or an emissivity outside [0,1]
	ErrInvalidParameter = errors.New("optris: invalid parameter")

	// ErrOperationFailed is the non-fatal SDK error, the call may be retried
	ErrOperationFailed = errors.New("optris: operation failed")

	// ErrFatalConnection is the fatal SDK error of network sessions.
	// It is never retried by this package; Terminate and reconnect.
	ErrFatalConnection = errors.New("optris: fatal connection error, terminate and reconnect")

	// ErrNoFocusMotor is returned by wrappers that need to report the absence
	// of a focus motor as an error, e.g. over HTTP.  Session.FocusMotorPosition
	// reports it as present == false instead.
	ErrNoFocusMotor = errors.New("optris: no focus motor available")

	// ErrParameterNotSet is generated when a setting is read before it was set.
	// The SDK has no getters, so settings are only known once applied.
	ErrParameterNotSet = errors.New("optris: parameter not set and not queryable from SDK, set to learn in wrapper")

	// ErrNotBuilt is generated by Library when the package was built without
	// the native SDK (cgo disabled or the irdirectsdk build tag absent)
	ErrNotBuilt = errors.New("optris: built without the Direct-SDK, rebuild with cgo and -tags irdirectsdk")
)

// OpError wraps a translated native result code with the name of the
// native function that produced it
type OpError struct {
	// Op is the name of the native function, e.g. evo_irimager_set_palette
	Op string

	// Code is the raw result code, kept for diagnostics only
	Code int

	// Err is one of the sentinel errors of this package
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %v (code %d)", e.Op, e.Err, e.Code)
}

// Unwrap returns the sentinel error
func (e *OpError) Unwrap() error {
	return e.Err
}

// InitError is generated when evo_irimager_usb_init or evo_irimager_tcp_init
// returns a non-zero code.  It matches ErrNativeInit, and for network sessions
// ErrHostNotFound (code -1) or ErrFatalConnection (code -2).
type InitError struct {
	// Mode is the connection being opened
	Mode Mode

	// Code is the raw result code
	Code int
}

func (e *InitError) Error() string {
	switch {
	case e.Mode == ModeTCP && e.Code == -1:
		return fmt.Sprintf("%v: %v (code %d)", ErrNativeInit, ErrHostNotFound, e.Code)
	case e.Mode == ModeTCP && e.Code == -2:
		return fmt.Sprintf("%v: %v (code %d)", ErrNativeInit, ErrFatalConnection, e.Code)
	}
	return fmt.Sprintf("%v over %s (code %d)", ErrNativeInit, e.Mode, e.Code)
}

// Is allows errors.Is to distinguish retryable from fatal init failures
func (e *InitError) Is(target error) bool {
	switch target {
	case ErrNativeInit:
		return true
	case ErrHostNotFound:
		return e.Mode == ModeTCP && e.Code == -1
	case ErrFatalConnection:
		return e.Mode == ModeTCP && e.Code == -2
	}
	return false
}

// translate maps a native result code to an error.
// 0 is success, -1 the non-fatal error and -2 the fatal error of network
// sessions.  -2 over USB and any other code are undocumented and reported
// as failures with the code attached.
func translate(op string, code int, mode Mode) error {
	switch code {
	case 0:
		return nil
	case -1:
		return &OpError{Op: op, Code: code, Err: ErrOperationFailed}
	case -2:
		if mode == ModeTCP {
			return &OpError{Op: op, Code: code, Err: ErrFatalConnection}
		}
	}
	return &OpError{Op: op, Code: code, Err: ErrOperationFailed}
}

// IsRetryable returns true if err is a non-fatal SDK failure
func IsRetryable(err error) bool {
	return errors.Is(err, ErrOperationFailed) && !errors.Is(err, ErrFatalConnection)
}

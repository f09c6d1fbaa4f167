package capture

// DeviceInitError reports a failure to bootstrap the device/context pair at
// pipeline construction. Fatal; construction is not retried.
type DeviceInitError struct {
	Err error
}

func (e *DeviceInitError) Error() string { return "device init: " + e.Err.Error() }
func (e *DeviceInitError) Unwrap() error { return e.Err }

// SessionCreateError reports a failure to create the frame pool or capture
// session at pipeline construction. Fatal; construction is not retried.
type SessionCreateError struct {
	Err error
}

func (e *SessionCreateError) Error() string { return "session create: " + e.Err.Error() }
func (e *SessionCreateError) Unwrap() error { return e.Err }

// CaptureError reports a mid-stream failure during frame retrieval, resize
// handling, or the staging copy. The pipeline stays started; the caller may
// retry Grab.
type CaptureError struct {
	Op  string
	Err error
}

func (e *CaptureError) Error() string { return "capture " + e.Op + ": " + e.Err.Error() }
func (e *CaptureError) Unwrap() error { return e.Err }

// SessionError reports a failure while starting or closing the capture
// session.
type SessionError struct {
	Op  string
	Err error
}

func (e *SessionError) Error() string { return "session " + e.Op + ": " + e.Err.Error() }
func (e *SessionError) Unwrap() error { return e.Err }

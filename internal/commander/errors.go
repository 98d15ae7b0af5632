package commander

import (
	"errors"
	"fmt"
)

// ErrOperationInProgress indicates a single-flight guard rejected a concurrent call.
var ErrOperationInProgress = errors.New("operation already in progress")

// DeviceError is a failure reported by the device itself.
type DeviceError struct {
	Op      string
	Message string
}

// Error returns the device message verbatim.
func (e *DeviceError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s failed on device", e.Op)
	}
	return e.Message
}

// IsDeviceError reports whether err carries a device-reported failure.
func IsDeviceError(err error) bool {
	var deviceErr *DeviceError
	return errors.As(err, &deviceErr)
}

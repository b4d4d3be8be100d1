package engine

import "fmt"

// modelNotFoundError signals a handle or model id with no backing entry.
type modelNotFoundError struct{ id string }

func (e modelNotFoundError) Error() string { return "model not found: " + e.id }

// ErrModelNotFound constructs a model-not-found error for 404 mapping.
func ErrModelNotFound(id string) error { return modelNotFoundError{id: id} }

// IsModelNotFound reports whether err indicates a missing model or handle.
func IsModelNotFound(err error) bool {
	_, ok := err.(modelNotFoundError)
	return ok
}

// modelLoadFailedError preserves the backend's status and body for
// diagnostics. Status 0 means the backend was never reached.
type modelLoadFailedError struct {
	status int
	body   string
	cause  error
}

func (e modelLoadFailedError) Error() string {
	if e.status == 0 {
		return fmt.Sprintf("model load failed: %v", e.cause)
	}
	return fmt.Sprintf("model load failed: status %d: %s", e.status, e.body)
}

func (e modelLoadFailedError) Unwrap() error { return e.cause }

// ErrModelLoadFailed wraps a backend load failure.
func ErrModelLoadFailed(status int, body string, cause error) error {
	return modelLoadFailedError{status: status, body: body, cause: cause}
}

// IsModelLoadFailed reports whether err is a load failure.
func IsModelLoadFailed(err error) bool {
	_, ok := err.(modelLoadFailedError)
	return ok
}

// inferenceFailedError preserves the backend's status and body. Status 0
// means a transport failure before any HTTP response.
type inferenceFailedError struct {
	status int
	body   string
	cause  error
}

func (e inferenceFailedError) Error() string {
	if e.status == 0 {
		return fmt.Sprintf("inference failed: %v", e.cause)
	}
	return fmt.Sprintf("inference failed: status %d: %s", e.status, e.body)
}

func (e inferenceFailedError) Unwrap() error { return e.cause }

// ErrInferenceFailed wraps a backend generation failure.
func ErrInferenceFailed(status int, body string, cause error) error {
	return inferenceFailedError{status: status, body: body, cause: cause}
}

// IsInferenceFailed reports whether err is a generation failure.
func IsInferenceFailed(err error) bool {
	_, ok := err.(inferenceFailedError)
	return ok
}

// IsBackendUnreachable reports whether err is a load or inference failure
// that never got an HTTP response from the backend (503 mapping).
func IsBackendUnreachable(err error) bool {
	if e, ok := err.(modelLoadFailedError); ok {
		return e.status == 0
	}
	if e, ok := err.(inferenceFailedError); ok {
		return e.status == 0
	}
	return false
}

// invalidRequestError signals a request the gateway refuses to forward.
type invalidRequestError struct{ msg string }

func (e invalidRequestError) Error() string { return "invalid request: " + e.msg }

// ErrInvalidRequest constructs an invalid-request error for 400 mapping.
func ErrInvalidRequest(msg string) error { return invalidRequestError{msg: msg} }

// IsInvalidRequest reports whether err indicates a malformed request.
func IsInvalidRequest(err error) bool {
	_, ok := err.(invalidRequestError)
	return ok
}

// engineNotAvailableError signals that no engine can serve requests.
type engineNotAvailableError struct{ msg string }

func (e engineNotAvailableError) Error() string { return "engine not available: " + e.msg }

// ErrEngineNotAvailable constructs an engine-unavailable error for 503 mapping.
func ErrEngineNotAvailable(msg string) error { return engineNotAvailableError{msg: msg} }

// IsEngineNotAvailable reports whether err indicates a missing engine.
func IsEngineNotAvailable(err error) bool {
	_, ok := err.(engineNotAvailableError)
	return ok
}

// hardwareUnsupportedError signals an engine/hardware mismatch.
type hardwareUnsupportedError struct{ msg string }

func (e hardwareUnsupportedError) Error() string { return "hardware unsupported: " + e.msg }

// ErrHardwareUnsupported constructs a hardware-mismatch error.
func ErrHardwareUnsupported(msg string) error { return hardwareUnsupportedError{msg: msg} }

// IsHardwareUnsupported reports whether err indicates a hardware mismatch.
func IsHardwareUnsupported(err error) bool {
	_, ok := err.(hardwareUnsupportedError)
	return ok
}

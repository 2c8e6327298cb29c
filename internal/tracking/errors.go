package tracking

import "errors"

type ErrorKind string

const (
	KindCapabilityUnavailable ErrorKind = "capability_unavailable"
	KindPermissionDenied      ErrorKind = "permission_denied"
	KindPositionUnavailable   ErrorKind = "position_unavailable"
	KindTimeout               ErrorKind = "timeout"
	KindOther                 ErrorKind = "other"
)

const (
	msgUnavailable      = "Location is not available on this device or browser."
	msgProbeDenied      = "Location permission denied. Enable location in the browser to use check-in."
	msgPermissionDenied = "Location permission denied. Enable location to use check-in."
	msgPositionUnknown  = "Could not determine your location (weak signal). Try again."
	msgTimeout          = "Location took too long to respond. Try again."
	msgLocationFailed   = "Failed to obtain location."
)

// Error is a platform-level failure that moved the tracker into StateError.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// IsKind reports whether err is a tracker *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var te *Error
	return errors.As(err, &te) && te.Kind == kind
}

type PositionErrorCode int

// Codes follow the platform geolocation API numbering.
const (
	CodePermissionDenied    PositionErrorCode = 1
	CodePositionUnavailable PositionErrorCode = 2
	CodeTimeout             PositionErrorCode = 3
)

// PositionError is what a Provider reports when its stream fails.
type PositionError struct {
	Code    PositionErrorCode
	Message string
}

func (e *PositionError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return msgLocationFailed
}

func translate(err error) *Error {
	var pe *PositionError
	if !errors.As(err, &pe) {
		if err == nil || err.Error() == "" {
			return &Error{Kind: KindOther, Message: msgLocationFailed}
		}
		return &Error{Kind: KindOther, Message: err.Error()}
	}
	switch pe.Code {
	case CodePermissionDenied:
		return &Error{Kind: KindPermissionDenied, Message: msgPermissionDenied}
	case CodePositionUnavailable:
		return &Error{Kind: KindPositionUnavailable, Message: msgPositionUnknown}
	case CodeTimeout:
		return &Error{Kind: KindTimeout, Message: msgTimeout}
	default:
		return &Error{Kind: KindOther, Message: pe.Error()}
	}
}

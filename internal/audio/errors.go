// SPDX-License-Identifier: MIT
package audio

import (
	"fmt"
)

// Code classifies pipeline failures. The values double as the code field
// of message events.
type Code string

const (
	CodeTransportUnavailable Code = "TRANSPORT_UNAVAILABLE" // No link to connect with.
	CodeDeviceNotFound       Code = "DEVICE_NOT_FOUND"      // Link available, peer missing.
	CodeConnectFailed        Code = "CONNECT_FAILED"        // Handshake failed.
	CodeStreamInterrupted    Code = "STREAM_INTERRUPTED"    // A read failed mid-session.
	CodeSaveFailed           Code = "SAVE_FAILED"           // Writing a recording failed.
	CodeInvalidFrameLength   Code = "INVALID_FRAME_LENGTH"  // Transform rejected a tuning frame.
)

// StreamError is returned by pipeline operations and surfaced as a
// message event. Two StreamErrors match under errors.Is when their codes
// are equal.
type StreamError struct {
	Code    Code
	Message string
	Cause   error
}

func (e *StreamError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *StreamError) Unwrap() error { return e.Cause }

func (e *StreamError) Is(target error) bool {
	t, ok := target.(*StreamError)
	return ok && t.Code == e.Code
}

// Sentinels for errors.Is.
var (
	ErrTransportUnavailable = &StreamError{Code: CodeTransportUnavailable, Message: "no link available"}
	ErrDeviceNotFound       = &StreamError{Code: CodeDeviceNotFound, Message: "device not found"}
	ErrConnectFailed        = &StreamError{Code: CodeConnectFailed, Message: "could not connect to device"}
	ErrStreamInterrupted    = &StreamError{Code: CodeStreamInterrupted, Message: "stream interrupted"}
	ErrSaveFailed           = &StreamError{Code: CodeSaveFailed, Message: "could not save recording"}
	ErrInvalidFrameLength   = &StreamError{Code: CodeInvalidFrameLength, Message: "tuning frame rejected"}
)

func newStreamError(sentinel *StreamError, cause error) *StreamError {
	return &StreamError{Code: sentinel.Code, Message: sentinel.Message, Cause: cause}
}

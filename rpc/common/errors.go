package common

import (
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error wraps an error code and a message.
// Two errors match with errors.Is when their codes are equal, so callers can
// compare against the exported sentinels regardless of the message.
type Error struct {
	Code ErrCode // The error code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Msg == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// NewError creates a new Error with the given code and formatted message.
func NewError(code ErrCode, format string, args ...interface{}) *Error {
	return &Error{
		Code: code,
		Msg:  fmt.Sprintf(format, args...),
	}
}

// --------------------------------------------------------------------------
// Error Codes
// --------------------------------------------------------------------------

type ErrCode uint8

const (
	ErrCParse           ErrCode = iota + 1 // 1: Malformed datagram
	ErrCSerialization                      // 2: Snapshot could not be written
	ErrCDeserialization                    // 3: Snapshot could not be read
	ErrCSomethingWrong                     // 4: State only reachable by an implementation defect
)

func (c ErrCode) String() string {
	switch c {
	case ErrCParse:
		return "failed parsing"
	case ErrCSerialization:
		return "failed serialization"
	case ErrCDeserialization:
		return "failed deserialization"
	case ErrCSomethingWrong:
		return "something wrong"
	default:
		return "unknown error"
	}
}

// Sentinels for errors.Is
var (
	ErrParse           = &Error{Code: ErrCParse}
	ErrSerialization   = &Error{Code: ErrCSerialization}
	ErrDeserialization = &Error{Code: ErrCDeserialization}
	ErrSomethingWrong  = &Error{Code: ErrCSomethingWrong}
)

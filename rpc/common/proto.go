package common

import (
	"encoding/hex"
	"fmt"
	"math"
	"net"
)

// --------------------------------------------------------------------------
// Protocol Constants
// --------------------------------------------------------------------------

const (
	// TokenLen is the size of the correlation token carried by every datagram
	TokenLen = 16

	// MaxDatagramSize is the receive buffer size, the practical payload ceiling of one datagram
	MaxDatagramSize = 64 * 1024

	// MaxKeyLen is the largest key that fits into the 2-byte length prefix
	MaxKeyLen = math.MaxUint16
)

// --------------------------------------------------------------------------
// Correlation Token
// --------------------------------------------------------------------------

// Token is the client supplied correlation token. The server never interprets it,
// it is only echoed back so a client can match replies to requests.
type Token [TokenLen]byte

// String returns the hex representation of the token
func (t Token) String() string {
	return hex.EncodeToString(t[:])
}

// --------------------------------------------------------------------------
// Command Definition
// --------------------------------------------------------------------------

// Command is the first byte of every request datagram.
type Command uint8

const (
	CmdPing  Command = 0x01 // Liveness check, no payload
	CmdGet   Command = 0x02 // Read the value for a key
	CmdSet   Command = 0x03 // Insert or overwrite a key
	CmdUnset Command = 0x04 // Remove a key (no-op if absent)
)

// String returns the string representation of a Command.
func (c Command) String() string {
	switch c {
	case CmdPing:
		return "ping"
	case CmdGet:
		return "get"
	case CmdSet:
		return "set"
	case CmdUnset:
		return "unset"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(c))
	}
}

// --------------------------------------------------------------------------
// Response Status Definition
// --------------------------------------------------------------------------

// Status is the first byte of every response datagram.
type Status uint8

const (
	StatusOK       Status = 0x01 // Every successful outcome
	StatusNotFound Status = 0x02 // Exclusively a get miss
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not found"
	default:
		return fmt.Sprintf("unknown(0x%02x)", uint8(s))
	}
}

// --------------------------------------------------------------------------
// Message Structures
// --------------------------------------------------------------------------

// Request is a decoded command. Which fields are used depends on Cmd:
// Key is used by get, set and unset, Value only by set.
type Request struct {
	Cmd   Command
	Key   []byte
	Value []byte
}

// Instruction is a request bound to the token and the address it arrived from.
// It is produced once per datagram and consumed exactly once by a dispatch worker.
type Instruction struct {
	Req    Request
	Token  Token
	Source net.Addr
}

// Response is the outcome of executing a request against the store.
// Value is only set for a get hit.
type Response struct {
	Status Status
	Value  []byte
}

// RawPacket is a received datagram before decoding.
// Body holds a private copy of the Amt valid bytes, it never aliases the receive buffer.
type RawPacket struct {
	Source net.Addr
	Body   []byte
	Amt    int
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewPingRequest creates a new Ping request
func NewPingRequest() Request {
	return Request{Cmd: CmdPing}
}

// NewGetRequest creates a new Get request
func NewGetRequest(key []byte) Request {
	return Request{Cmd: CmdGet, Key: key}
}

// NewSetRequest creates a new Set request
func NewSetRequest(key, value []byte) Request {
	return Request{Cmd: CmdSet, Key: key, Value: value}
}

// NewUnsetRequest creates a new Unset request
func NewUnsetRequest(key []byte) Request {
	return Request{Cmd: CmdUnset, Key: key}
}

// NewOKResponse creates a success response, value is only non-nil for a get hit
func NewOKResponse(value []byte) Response {
	return Response{Status: StatusOK, Value: value}
}

// NewNotFoundResponse creates the response for a get miss
func NewNotFoundResponse() Response {
	return Response{Status: StatusNotFound}
}

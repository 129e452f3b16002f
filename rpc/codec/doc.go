// Package codec converts between datagrams and the types of package common.
//
// A request datagram is laid out as
//
//	command (1) | token (16) | key length (2, big endian) | key | value
//
// where a ping consists of command and token only and the value of a set is
// everything after the key. A response is
//
//	status (1) | token (16) | value
//
// with a value only on a successful get. Decoding works on the first amt bytes of
// the receive buffer and copies key and value out of it, so the buffer can be
// reused for the next datagram right away.
package codec

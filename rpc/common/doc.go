// Package common provides core data structures and utilities shared across
// twinkle. It defines the protocol types, configuration structures and the
// logging used by the other packages.
//
// Key Components:
//
//   - Request, Response and Instruction: The decoded form of a datagram. An
//     Instruction binds a request to the token and the source address its reply
//     goes to. Includes factory methods for every request and response kind.
//
//   - Command and Status: The one byte opcodes of the wire format.
//
//   - Error: Typed errors with a code (parse, serialization, deserialization,
//     internal) that work with errors.Is.
//
//   - ServerConfig and ClientConfig: Configuration for the server and the
//     client, with validation and a printable form.
//
//   - LogSink: Asynchronous log output implementing Dragonboat's logger.ILogger.
//     Records are handed over without blocking and dropped when the buffer is full.
//     RateLimitedLogger keeps per packet warnings from flooding the log.
package common

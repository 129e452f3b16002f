// Package base provides the socket independent part of the datagram transports.
// Protocol specific connectors (udp, unixgram) only create the sockets.
//
// Server side, one bound packet socket is served by a fixed pipeline:
//
//	ReadFrom -> ingress -> queue.Bounded -> N dispatch workers -> handler -> WriteTo
//
//   - Ingress owns a single receive buffer of common.MaxDatagramSize bytes. For every
//     datagram it copies exactly the received bytes into a RawPacket and pushes it onto
//     the bounded queue without blocking. When the queue is full the datagram is dropped
//     and counted, the socket is never left unread because of slow workers.
//
//   - Dispatch workers range over the queue, call the registered handler and send the
//     returned reply to the packet source. A failing packet never stops a worker.
//
//   - Shutdown: cancelling the context closes the socket, which ends ingress. Ingress
//     closes the queue, the workers drain it and return.
//
// Client side, every endpoint gets one connected datagram socket with a reader goroutine.
// Requests register a reply channel under their 16 byte token in an xsync.MapOf before
// writing, the reader hands each reply to the channel registered for its token. Lost
// datagrams surface as timeouts and are retried with exponential backoff and jitter.
//
// Thread Safety:
//
//	All public methods are thread-safe.
package base

// Package client implements the RPC client for the twinkle datagram key-value store.
//
// Every request gets a random 16 byte token (a UUIDv4). The transport matches the reply
// by that token, retries lost datagrams and reports a timeout if no reply arrives.
// Set and unset are idempotent, so a retried request is harmless even when the first
// datagram did reach the server.
//
// Usage Example:
//
//	config := common.ClientConfig{
//		Endpoints:          []string{"localhost:3000"},
//		TimeoutMillisecond: 500,
//		RetryCount:         3,
//	}
//
//	c, _ := client.NewRPCClient(config, udp.NewUDPClientTransport(sink.Logger("client")))
//	defer c.Close()
//
//	_ = c.Set(ctx, []byte("mykey"), []byte("myvalue"))
//	value, found, _ := c.Get(ctx, []byte("mykey"))
//
// Thread Safety:
//
//	The client is thread-safe and can be used concurrently from multiple goroutines.
package client

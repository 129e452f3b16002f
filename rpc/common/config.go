package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// --------------------------------------------------------------------------
// Defaults
// --------------------------------------------------------------------------

const (
	DefaultEndpoint                = "0.0.0.0:3000"
	DefaultSnapshotPath            = "twinkle.snapshot"
	DefaultSnapshotIntervalSeconds = 5
	DefaultQueueSize               = 1024
	DefaultWorkers                 = 1
	DefaultLogLevel                = "info"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters for the server.
// The values are read once at startup.
type ServerConfig struct {
	// Endpoint is the bind address (host:port for udp, a socket path for unixgram)
	Endpoint string

	// Snapshot settings
	SnapshotPath            string
	SnapshotIntervalSeconds int // 0 disables periodic snapshots
	SnapshotCompress        bool

	// Pipeline settings
	QueueSize      int // capacity of the ingress queue, datagrams are dropped when full
	Workers        int // number of dispatch workers sharing the queue
	ReadBufferSize int // socket receive buffer in bytes (0 = OS default)

	// MetricsEndpoint exposes /metrics over http if not empty
	MetricsEndpoint string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Endpoint:                DefaultEndpoint,
		SnapshotPath:            DefaultSnapshotPath,
		SnapshotIntervalSeconds: DefaultSnapshotIntervalSeconds,
		QueueSize:               DefaultQueueSize,
		Workers:                 DefaultWorkers,
		LogLevel:                DefaultLogLevel,
	}
}

// SnapshotInterval returns the snapshot interval as a duration
func (c *ServerConfig) SnapshotInterval() time.Duration {
	return time.Duration(c.SnapshotIntervalSeconds) * time.Second
}

// SnapshotEnabled reports whether periodic snapshots are configured
func (c *ServerConfig) SnapshotEnabled() bool {
	return c.SnapshotPath != "" && c.SnapshotIntervalSeconds > 0
}

// Validate checks the configuration for values the server cannot run with
func (c *ServerConfig) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("queue size must be at least 1, got %d", c.QueueSize)
	}
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.SnapshotIntervalSeconds < 0 {
		return fmt.Errorf("snapshot interval must not be negative, got %d", c.SnapshotIntervalSeconds)
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Server")
	addField("Endpoint", c.Endpoint)
	addField("Queue Size", strconv.Itoa(c.QueueSize))
	addField("Workers", strconv.Itoa(c.Workers))
	if c.ReadBufferSize > 0 {
		addField("Read Buffer", fmt.Sprintf("%d KB", c.ReadBufferSize/1024))
	} else {
		addField("Read Buffer", "os default")
	}

	addSection("Snapshot")
	if c.SnapshotEnabled() {
		addField("Path", c.SnapshotPath)
		addField("Interval", fmt.Sprintf("%d sec", c.SnapshotIntervalSeconds))
		addField("Compression", fmt.Sprintf("%t", c.SnapshotCompress))
	} else {
		addField("Path", "disabled")
	}

	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics", c.MetricsEndpoint)
	} else {
		addField("Metrics", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Endpoints          []string
	TimeoutMillisecond int // per attempt
	RetryCount         int // total attempts, at least one is always made
}

// Timeout returns the per attempt timeout as a duration
func (c *ClientConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutMillisecond) * time.Millisecond
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d ms", c.TimeoutMillisecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}

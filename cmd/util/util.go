package util

import (
	"fmt"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/transport"
	"github.com/ValentinKolb/twinkle/rpc/transport/udp"
	"github.com/ValentinKolb/twinkle/rpc/transport/unixgram"
	"github.com/VictoriaMetrics/metrics"
	"github.com/joho/godotenv"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"strings"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is prepended to every environment variable read by viper
	EnvPrefix = "twinkle"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads .env files and makes viper read TWINKLE_<FLAG> environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Client
// --------------------------------------------------------------------------

// SetupRPCClientFlags adds common RPC connection flags to a command
func SetupRPCClientFlags(cmd *cobra.Command) {
	key := "endpoints"
	cmd.PersistentFlags().String(key, "127.0.0.1:3000", WrapString("The address of the twinkle server. Multiple endpoints can be given as a comma-separated list, requests are spread round robin"))

	key = "timeout"
	cmd.PersistentFlags().Int(key, 500, WrapString("How long to wait for a reply before a datagram is resent (in milliseconds)"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many datagrams to send at most per request"))

	key = "log-level"
	cmd.PersistentFlags().String(key, "warn", WrapString("Level of the client log output on stderr (debug, info, warn, error)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() common.ClientConfig {
	endpoints := make([]string, 0)
	for _, e := range strings.Split(viper.GetString("endpoints"), ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, e)
		}
	}

	return common.ClientConfig{
		Endpoints:          endpoints,
		TimeoutMillisecond: viper.GetInt("timeout"),
		RetryCount:         viper.GetInt("retries"),
	}
}

// GetClientTransport creates the client transport selected by the transport flag
func GetClientTransport(log logger.ILogger) (transport.IRPCClientTransport, error) {
	switch viper.GetString("transport") {
	case "udp":
		return udp.NewUDPClientTransport(log), nil
	case "unixgram":
		return unixgram.NewUnixgramClientTransport(log), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected udp or unixgram)", viper.GetString("transport"))
	}
}

// --------------------------------------------------------------------------
// Server
// --------------------------------------------------------------------------

// GetServerTransport creates the server transport selected by the transport flag
func GetServerTransport(log logger.ILogger, set *metrics.Set) (transport.IRPCServerTransport, error) {
	switch viper.GetString("transport") {
	case "udp":
		return udp.NewUDPServerTransport(log, set), nil
	case "unixgram":
		return unixgram.NewUnixgramServerTransport(log, set), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected udp or unixgram)", viper.GetString("transport"))
	}
}

package kv

import (
	"github.com/ValentinKolb/twinkle/cmd/util"
	"github.com/ValentinKolb/twinkle/rpc/client"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
)

var (
	rpcClient *client.RPCClient
	logSink   *common.LogSink

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value store operations",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add common RPC flags to the KV command
	util.SetupRPCClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(pingCmd)
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(unsetCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the RPC client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	logSink, err = common.NewLogSink(os.Stderr, viper.GetString("log-level"))
	if err != nil {
		return err
	}

	t, err := util.GetClientTransport(logSink.Logger("transport"))
	if err != nil {
		return err
	}

	rpcClient, err = client.NewRPCClient(util.GetClientConfig(), t)
	return err
}

// closeKVClient releases the socket and flushes pending log lines
func closeKVClient(_ *cobra.Command, _ []string) error {
	var err error
	if rpcClient != nil {
		err = rpcClient.Close()
	}
	if logSink != nil {
		logSink.Close()
	}
	return err
}

package cmd

import (
	"fmt"
	"github.com/ValentinKolb/twinkle/cmd/kv"
	"github.com/ValentinKolb/twinkle/cmd/serve"
	"github.com/ValentinKolb/twinkle/cmd/snapshot"
	"github.com/ValentinKolb/twinkle/cmd/util"
	"github.com/spf13/cobra"
	"os"
)

const (
	Version = "0.1.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "twinkle",
		Short: "datagram key-value store",
		Long: fmt.Sprintf(`twinkle (v%s)

An in-memory key-value store served over UDP datagrams.
Requests are correlated by a client chosen token, the store
is persisted by periodic snapshots.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of twinkle",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("twinkle v%s\n", Version)
		},
	}
)

func init() {
	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(snapshot.SnapshotCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "udp", util.WrapString("transport to use (udp, unixgram)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

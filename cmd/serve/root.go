package serve

import (
	"context"
	cmdUtil "github.com/ValentinKolb/twinkle/cmd/util"
	"github.com/ValentinKolb/twinkle/rpc/common"
	"github.com/ValentinKolb/twinkle/rpc/server"
	"github.com/VictoriaMetrics/metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"os/signal"
	"syscall"
)

var (
	serveCmdConfig = common.DefaultServerConfig()
	ServeCmd       = &cobra.Command{
		Use:     "serve",
		Short:   "Start the twinkle server",
		Long:    `Start the twinkle server with the specified configuration. The configuration can be set via command line flags or environment variables. The format of the environment variables is TWINKLE_<flag> (e.g. TWINKLE_SNAPSHOT_INTERVAL=10)`,
		PreRunE: processConfig,
		RunE:    run,
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(cmdUtil.InitConfig)

	// add flags
	key := "endpoint"
	ServeCmd.PersistentFlags().String(key, common.DefaultEndpoint, cmdUtil.WrapString("The address on which the server will listen (e.g. 0.0.0.0:3000 for udp, /tmp/twinkle.sock for unixgram)"))

	key = "snapshot-path"
	ServeCmd.PersistentFlags().String(key, common.DefaultSnapshotPath, cmdUtil.WrapString("File the store is restored from on startup and persisted to. An empty path disables persistence"))

	key = "snapshot-interval"
	ServeCmd.PersistentFlags().Int(key, common.DefaultSnapshotIntervalSeconds, cmdUtil.WrapString("Seconds between two snapshots. 0 disables periodic snapshots, an existing snapshot is still restored"))

	key = "snapshot-compress"
	ServeCmd.PersistentFlags().Bool(key, false, cmdUtil.WrapString("Whether snapshots are zstd compressed. Must match the setting the snapshot was written with"))

	key = "queue-size"
	ServeCmd.PersistentFlags().Int(key, common.DefaultQueueSize, cmdUtil.WrapString("How many received datagrams may wait for a worker. Datagrams arriving at a full queue are dropped"))

	key = "workers"
	ServeCmd.PersistentFlags().Int(key, common.DefaultWorkers, cmdUtil.WrapString("Number of workers executing requests from the queue"))

	key = "read-buffer"
	ServeCmd.PersistentFlags().Int(key, 0, cmdUtil.WrapString("The size of the socket receive buffer (in KB, 0 keeps the OS default)"))

	key = "metrics-endpoint"
	ServeCmd.PersistentFlags().String(key, "", cmdUtil.WrapString("Address for the Prometheus /metrics endpoint (e.g. 127.0.0.1:9100). Empty disables it"))

	key = "log-level"
	ServeCmd.PersistentFlags().String(key, common.DefaultLogLevel, cmdUtil.WrapString("LogLevel is the level at which logs will be output (debug, info, warn, error)"))
}

// processConfig reads the configuration from the command line flags and environment variables and converts them to the server configuration
func processConfig(cmd *cobra.Command, _ []string) error {
	// bind the flags to viper
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	serveCmdConfig.Endpoint = viper.GetString("endpoint")
	serveCmdConfig.SnapshotPath = viper.GetString("snapshot-path")
	serveCmdConfig.SnapshotIntervalSeconds = viper.GetInt("snapshot-interval")
	serveCmdConfig.SnapshotCompress = viper.GetBool("snapshot-compress")
	serveCmdConfig.QueueSize = viper.GetInt("queue-size")
	serveCmdConfig.Workers = viper.GetInt("workers")
	serveCmdConfig.ReadBufferSize = viper.GetInt("read-buffer") * 1024
	serveCmdConfig.MetricsEndpoint = viper.GetString("metrics-endpoint")
	serveCmdConfig.LogLevel = viper.GetString("log-level")

	return serveCmdConfig.Validate()
}

// run starts the twinkle server and blocks until SIGINT or SIGTERM
func run(_ *cobra.Command, _ []string) error {
	sink, err := common.NewLogSink(os.Stderr, serveCmdConfig.LogLevel)
	if err != nil {
		return err
	}
	defer sink.Close()

	set := metrics.NewSet()

	t, err := cmdUtil.GetServerTransport(sink.Logger("transport"), set)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serv := server.NewRPCServer(
		serveCmdConfig,
		t,
		sink,
		set,
	)

	return serv.Serve(ctx)
}

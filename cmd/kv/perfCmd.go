package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"github.com/ValentinKolb/twinkle/cmd/util"
	"github.com/ValentinKolb/twinkle/rpc/common"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"log"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for twinkle servers",
		Long:    "",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix      = "__test"
	perfValueSize      = 64
	perfNumThreads     = 10
	perfKeySpread      = 100
	perfOpsPerThread   = 1000
	perfSkip           = make([]string, 0)
	perfRegistry       = gometrics.NewRegistry()
	perfPercentiles    = []float64{0.5, 0.9, 0.99, 0.999}
	perfPercentileName = []string{"p50", "p90", "p99", "p99.9"}
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of concurrent clients sending requests"))
	key = "ops"
	perfTestCmd.Flags().Int(key, 1000, util.WrapString("Number of requests each thread sends per benchmark"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 64, util.WrapString("How large the value for the set tests should be (in bytes)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfValueSize = viper.GetInt("value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfOpsPerThread = max(viper.GetInt("ops"), 1)
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfValueSize+len(perfKeyPrefix)+32 > common.MaxDatagramSize {
		return fmt.Errorf("value size %d does not fit into one datagram", perfValueSize)
	}
	return nil
}

// benchmark describes one perf test. prepare runs before the timer starts, op is called
// perfOpsPerThread times per thread with a per thread counter.
type benchmark struct {
	name    string
	prepare func(ctx context.Context, keys []string) error
	op      func(ctx context.Context, keys []string, i int) error
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for twinkle servers")

	// Print configuration
	config := util.GetClientConfig()
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(config.String())
	fmt.Printf("Threads: %d, Ops per thread: %d\n", perfNumThreads, perfOpsPerThread)
	fmt.Println()

	fmt.Println("starting tests...")

	value := make([]byte, perfValueSize)
	setKeys := func(ctx context.Context, keys []string) error {
		for _, k := range keys {
			if err := rpcClient.Set(ctx, []byte(k), value); err != nil {
				return err
			}
		}
		return nil
	}

	benchmarks := []benchmark{
		{
			name: "ping",
			op: func(ctx context.Context, _ []string, _ int) error {
				return rpcClient.Ping(ctx)
			},
		},
		{
			name: "set",
			op: func(ctx context.Context, keys []string, i int) error {
				return rpcClient.Set(ctx, []byte(keys[i%len(keys)]), value)
			},
		},
		{
			name:    "get",
			prepare: setKeys,
			op: func(ctx context.Context, keys []string, i int) error {
				_, _, err := rpcClient.Get(ctx, []byte(keys[i%len(keys)]))
				return err
			},
		},
		{
			name: "get-miss",
			op: func(ctx context.Context, keys []string, i int) error {
				_, _, err := rpcClient.Get(ctx, []byte(keys[i%len(keys)]))
				return err
			},
		},
		{
			name:    "unset",
			prepare: setKeys,
			op: func(ctx context.Context, keys []string, i int) error {
				return rpcClient.Unset(ctx, []byte(keys[i%len(keys)]))
			},
		},
		{
			name:    "mixed",
			prepare: setKeys,
			op: func(ctx context.Context, keys []string, i int) error {
				key := []byte(keys[i%len(keys)])
				var err error
				switch i % 4 {
				case 0:
					err = rpcClient.Set(ctx, key, value)
				case 1:
					_, _, err = rpcClient.Get(ctx, key)
				case 2:
					err = rpcClient.Unset(ctx, key)
				case 3:
					err = rpcClient.Ping(ctx)
				}
				return err
			},
		},
	}

	for _, b := range benchmarks {
		if slices.Contains(perfSkip, b.name) {
			printSkipped(b.name)
			continue
		}
		if err := runBenchmark(ctx, b); err != nil {
			return err
		}
		printResult(b.name)
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, benchmarks, config); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// runBenchmark runs b on perfNumThreads goroutines and records every request in the
// timer "<name>" of perfRegistry. Failed requests are counted in "<name>.errors".
func runBenchmark(ctx context.Context, b benchmark) error {
	keys := getKeys(b.name)
	defer cleanupKeys(ctx, b.name, keys)

	if b.prepare != nil {
		if err := b.prepare(ctx, keys); err != nil {
			return fmt.Errorf("(%s) - prepare failed: %w", b.name, err)
		}
	}

	timer := gometrics.GetOrRegisterTimer(b.name, perfRegistry)
	errCount := gometrics.GetOrRegisterCounter(b.name+".errors", perfRegistry)
	elapsed := gometrics.GetOrRegisterGauge(b.name+".elapsed", perfRegistry)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for thread := 0; thread < perfNumThreads; thread++ {
		g.Go(func() error {
			for i := 0; i < perfOpsPerThread; i++ {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				opStart := time.Now()
				if err := b.op(gctx, keys, thread*perfOpsPerThread+i); err != nil {
					errCount.Inc(1)
					log.Printf("(%s) - request failed: %v\n", b.name, err)
					continue
				}
				timer.UpdateSince(opStart)
			}
			return nil
		})
	}
	err := g.Wait()
	elapsed.Update(int64(time.Since(start)))
	return err
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// getKeys creates the test keys for one benchmark
func getKeys(prefix string) []string {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}
	return keys
}

// cleanupKeys removes the test keys of a benchmark from the server
func cleanupKeys(ctx context.Context, name string, keys []string) {
	for _, k := range keys {
		if err := rpcClient.Unset(ctx, []byte(k)); err != nil {
			log.Printf("(%s) - error removing key: %v\n", name, err)
		}
	}
}

// throughput returns the completed requests per second of a benchmark
func throughput(name string) float64 {
	timer := gometrics.GetOrRegisterTimer(name, perfRegistry).Snapshot()
	elapsed := time.Duration(gometrics.GetOrRegisterGauge(name+".elapsed", perfRegistry).Snapshot().Value())
	if elapsed <= 0 {
		return 0
	}
	return float64(timer.Count()) / elapsed.Seconds()
}

func printSkipped(test string) {
	fmt.Printf("%-12sskipped\n", test)
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string) {
	timer := gometrics.GetOrRegisterTimer(test, perfRegistry).Snapshot()
	errCount := gometrics.GetOrRegisterCounter(test+".errors", perfRegistry).Snapshot().Count()
	ps := timer.Percentiles(perfPercentiles)

	var sb strings.Builder
	for i, p := range ps {
		sb.WriteString(fmt.Sprintf("  %s=%s", perfPercentileName[i], time.Duration(p)))
	}

	fmt.Printf("%-12s%8.0f ops/sec  mean=%s%s  errors=%d\n",
		test, throughput(test), time.Duration(timer.Mean()), sb.String(), errCount)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, benchmarks []benchmark, config common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "Requests", "Errors", "OpsPerSec", "MeanNs", "P50Ns", "P90Ns", "P99Ns", "P999Ns", "Skipped",
		"Endpoints", "TimeoutMs", "RetryCount", "Transport",
		"Threads", "OpsPerThread", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, b := range benchmarks {
		timer := gometrics.GetOrRegisterTimer(b.name, perfRegistry).Snapshot()
		errCount := gometrics.GetOrRegisterCounter(b.name+".errors", perfRegistry).Snapshot().Count()
		ps := timer.Percentiles(perfPercentiles)

		row := []string{
			b.name,
			strconv.FormatInt(timer.Count(), 10),
			strconv.FormatInt(errCount, 10),
			fmt.Sprintf("%.0f", throughput(b.name)),
			fmt.Sprintf("%.0f", timer.Mean()),
			fmt.Sprintf("%.0f", ps[0]),
			fmt.Sprintf("%.0f", ps[1]),
			fmt.Sprintf("%.0f", ps[2]),
			fmt.Sprintf("%.0f", ps[3]),
			strconv.FormatBool(slices.Contains(perfSkip, b.name)),
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutMillisecond),
			strconv.Itoa(config.RetryCount),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfOpsPerThread),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", b.name, err)
		}
	}

	return nil
}

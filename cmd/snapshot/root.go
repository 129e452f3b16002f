package snapshot

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"github.com/ValentinKolb/twinkle/cmd/util"
	"github.com/ValentinKolb/twinkle/lib/snapshot"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"os"
	"sort"
	"strconv"
	"unicode/utf8"
)

var (
	// SnapshotCommands inspects snapshot files without a running server
	SnapshotCommands = &cobra.Command{
		Use:               "snapshot",
		Short:             "Inspect snapshot files",
		PersistentPreRunE: bindFlags,
	}

	dumpCmd = &cobra.Command{
		Use:   "dump [path]",
		Short: "Prints every key value pair of a snapshot in key order",
		Args:  cobra.ExactArgs(1),
		RunE:  runDump,
	}

	statsCmd = &cobra.Command{
		Use:   "stats [path]",
		Short: "Prints size statistics and the digest of a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE:  runStats,
	}
)

func init() {
	cobra.OnInitialize(util.InitConfig)

	key := "snapshot-compress"
	SnapshotCommands.PersistentFlags().Bool(key, false, util.WrapString("Whether the snapshot is zstd compressed"))

	key = "json"
	statsCmd.Flags().Bool(key, false, util.WrapString("Print the statistics as JSON"))

	SnapshotCommands.AddCommand(dumpCmd)
	SnapshotCommands.AddCommand(statsCmd)
}

func bindFlags(cmd *cobra.Command, _ []string) error {
	return util.BindCommandFlags(cmd)
}

func runDump(_ *cobra.Command, args []string) error {
	m, err := snapshot.ReadFile(args[0], viper.GetBool("snapshot-compress"))
	if err != nil {
		return err
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		fmt.Printf("%s = %s\n", printable(k), printable(string(m[k])))
	}
	return nil
}

func runStats(_ *cobra.Command, args []string) error {
	path := args[0]
	m, err := snapshot.ReadFile(path, viper.GetBool("snapshot-compress"))
	if err != nil {
		return err
	}
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	summary, err := snapshot.Summarize(m)
	if err != nil {
		return err
	}

	if viper.GetBool("json") {
		out, err := json.MarshalIndent(struct {
			snapshot.Summary
			Path     string `json:"path"`
			FileSize int64  `json:"file_size"`
			Digest   string `json:"digest"`
		}{summary, path, info.Size(), hex.EncodeToString(summary.Digest[:])}, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("path:      %s\n", path)
	fmt.Printf("file size: %d bytes\n", info.Size())
	fmt.Printf("entries:   %d\n", summary.Entries)
	fmt.Printf("digest:    %s\n", hex.EncodeToString(summary.Digest[:]))
	fmt.Printf("keys:      total=%d min=%d max=%d mean=%.1f stddev=%.1f\n",
		summary.Keys.Total, summary.Keys.Min, summary.Keys.Max, summary.Keys.Mean, summary.Keys.StdDeviation)
	fmt.Printf("values:    total=%d min=%d max=%d mean=%.1f stddev=%.1f\n",
		summary.Values.Total, summary.Values.Min, summary.Values.Max, summary.Values.Mean, summary.Values.StdDeviation)

	fmt.Println("value sizes:")
	for i, boundary := range summary.Sizes.Boundaries {
		fmt.Printf("  <= %-6d %d\n", boundary, summary.Sizes.Buckets[i])
	}
	return nil
}

// printable quotes s unless it is valid utf8 without control characters
func printable(s string) string {
	if !utf8.ValidString(s) {
		return strconv.Quote(s)
	}
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			return strconv.Quote(s)
		}
	}
	return s
}

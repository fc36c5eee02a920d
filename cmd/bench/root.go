package bench

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dFeed/cmd/util"
	"github.com/ValentinKolb/dFeed/lib/activity"
	"github.com/ValentinKolb/dFeed/lib/aggregator"
	"github.com/ValentinKolb/dFeed/lib/fanout"
	"github.com/ValentinKolb/dFeed/lib/feed"
	"github.com/ValentinKolb/dFeed/lib/metrics"
	"github.com/ValentinKolb/dFeed/lib/serializer"
	"github.com/ValentinKolb/dFeed/lib/storage"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd benchmarks the fanout pipeline against the configured
	// storage backend.
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmarking tool for the dFeed fanout pipeline",
		Long:    "",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchAuthorID  = int64(1)
	benchFollowers = 100
	benchChunkSize = 100
	benchSkip      = make([]string, 0)
)

func init() {
	// add flags
	key := "followers"
	BenchCmd.PersistentFlags().Int(key, 100, util.WrapString("Number of follower feeds to fan out to"))
	key = "chunk-size"
	BenchCmd.PersistentFlags().Int(key, 100, util.WrapString("Number of follower feeds per fanout job"))
	key = "skip"
	BenchCmd.PersistentFlags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. publish,read)"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))

	util.SetupStorageFlags(BenchCmd)
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchFollowers = viper.GetInt("followers")
	benchChunkSize = viper.GetInt("chunk-size")
	benchSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmarking tool for the dFeed fanout pipeline")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Backend:    %s\n", viper.GetString("backend"))
	fmt.Printf("Followers:  %d\n", benchFollowers)
	fmt.Printf("Chunk size: %d\n", benchChunkSize)
	fmt.Println()

	stores, err := util.GetStorages()
	if err != nil {
		return err
	}
	manager, feedCfg, err := newManager(stores)
	if err != nil {
		return err
	}

	fmt.Println("starting benchmarks...")

	// Create results map
	results := make(map[string]testing.BenchmarkResult)
	publishTimer := gometrics.NewTimer()

	publishResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("publish") {
			return
		}

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			act := benchActivity(counter)
			publishTimer.Time(func() {
				if err := manager.AddUserActivity(benchAuthorID, act); err != nil {
					fmt.Printf("(publish) - error publishing activity: %v\n", err)
				}
			})
			counter++
		}
	})

	results["publish"] = publishResult
	printResult("publish", publishResult)

	readResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("read") {
			return
		}

		// ensure there is something to read
		followerFeed, err := feed.NewFeed(feedCfg, 2)
		if err != nil {
			fmt.Printf("(read) - error opening feed: %v\n", err)
			return
		}

		b.ResetTimer()

		for i := 0; i < b.N; i++ {
			if _, err := followerFeed.Slice(0, 25); err != nil {
				fmt.Printf("(read) - error reading feed: %v\n", err)
			}
		}
	})

	results["read"] = readResult
	printResult("read", readResult)

	aggregatedResult := testing.Benchmark(func(b *testing.B) {
		if shouldSkip("aggregated") {
			return
		}

		registry := activity.DefaultRegistry()
		aggFeed, err := feed.NewAggregatedFeed(
			feedCfg,
			3,
			aggregator.NewRecentVerbAggregator(),
			serializer.NewAggregatedSerializer(serializer.NewCSVSerializer(registry)),
		)
		if err != nil {
			fmt.Printf("(aggregated) - error opening feed: %v\n", err)
			return
		}

		b.ResetTimer()

		counter := 0
		for i := 0; i < b.N; i++ {
			if err := aggFeed.AddMany([]activity.Activity{benchActivity(counter)}, true); err != nil {
				fmt.Printf("(aggregated) - error adding activity: %v\n", err)
			}
			counter++
		}
	})

	results["aggregated"] = aggregatedResult
	printResult("aggregated", aggregatedResult)

	// Print publish latency percentiles from the go-metrics timer
	if publishTimer.Count() > 0 {
		fmt.Println()
		fmt.Println("publish latency:")
		for _, p := range []float64{0.5, 0.9, 0.99} {
			fmt.Printf("  p%-4.0f%s\n", p*100, time.Duration(publishTimer.Percentile(p)))
		}
	}

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// newManager wires a fanout manager over the configured backends with
// inline job execution and the VictoriaMetrics sink.
func newManager(stores *util.Storages) (*fanout.Manager, feed.Config, error) {
	sink := metrics.NewVictoriaMetrics("dfeed")
	feedCfg := feed.Config{
		Timelines:  stores.Timelines,
		Activities: stores.Activities,
		Metrics:    sink,
	}
	userCfg := feedCfg
	userCfg.KeyFormat = "user:%d"

	followerIDs := make([]int64, benchFollowers)
	for i := range followerIDs {
		followerIDs[i] = int64(i + 2)
	}

	manager, err := fanout.NewManager(fanout.ManagerConfig{
		UserFeed: func(userID int64) (*feed.Feed, error) {
			return feed.NewFeed(userCfg, userID)
		},
		Feeds: map[string]fanout.FeedFactory{
			"flat": func(userID int64, batch storage.Batch) (fanout.Target, error) {
				f, err := feed.NewFeed(feedCfg, userID)
				if err != nil {
					return nil, err
				}
				return f.WithBatch(batch), nil
			},
		},
		Followers: func(int64) (map[fanout.Priority][]int64, error) {
			return map[fanout.Priority][]int64{fanout.PriorityNormal: followerIDs}, nil
		},
		Activities: stores.Activities,
		Timelines:  stores.Timelines,
		Metrics:    sink,
		ChunkSize:  benchChunkSize,
	})
	return manager, feedCfg, err
}

func benchActivity(i int) activity.Activity {
	return activity.Activity{
		ActorID:  benchAuthorID,
		Verb:     activity.VerbAdd,
		ObjectID: int64(i%1_000_000 + 1),
		Time:     time.Now().UTC(),
	}
}

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range benchSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Backend", "Followers", "ChunkSize",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			viper.GetString("backend"),
			strconv.Itoa(benchFollowers),
			strconv.Itoa(benchChunkSize),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/ValentinKolb/kvRelay/relay/client"
	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for kvRelay servers",
		Long: `Runs parallel benchmarks (set, get, incr, mixed, search) against a relay.
Every thread uses its own connection, the relay serializes nothing per key.`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 32
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)

	// perfClients holds one client per thread, picked round robin
	perfClients []*client.RelayClient
	perfNext    atomic.Uint64
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set,search)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads (and connections) to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 32, util.WrapString("How large the value for the set-large test should be (in KB, must fit the max message size of the relay)"))
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
	perfLargeValueSizeKB = viper.GetInt("large-value-size")
	perfKeySpread = max(viper.GetInt("keys"), 1)
	perfNumThreads = max(viper.GetInt("threads"), 1)
	perfSkip = make([]string, 0)
	for _, s := range strings.Split(viper.GetString("skip"), ",") {
		if s = strings.TrimSpace(s); s != "" {
			perfSkip = append(perfSkip, s)
		}
	}

	// one connection per thread, the shared client of the kv command is the first one
	perfClients = []*client.RelayClient{relayClient}
	for i := 1; i < perfNumThreads; i++ {
		t, err := util.GetClientTransport()
		if err != nil {
			return err
		}
		c, err := client.NewRelayClient(*util.GetClientConfig(), t, serializer.NewJSONSerializer())
		if err != nil {
			return fmt.Errorf("failed to open connection %d: %w", i+1, err)
		}
		perfClients = append(perfClients, c)
	}
	return nil
}

func run(_ *cobra.Command, _ []string) error {
	// the first client is closed by the kv command
	defer func() {
		for _, c := range perfClients[1:] {
			_ = c.Close()
		}
	}()

	fmt.Println("Performance testing tool for kvRelay servers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Transport: %s\n", viper.GetString("transport"))
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	ctx := context.Background()
	results := make(map[string]testing.BenchmarkResult)

	bench := func(name string, prepare func(iter func(func(string))), op func(c *client.RelayClient, key string, counter int) error) {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(name) {
				return
			}

			// prepare keys
			getKey, iter := getKeys(name)
			if prepare != nil {
				prepare(iter)
			}

			// cleanup
			b.Cleanup(func() {
				iter(func(k string) {
					if err := relayClient.Delete(ctx, k); err != nil {
						log.Printf("(%s) - error deleting key: %v\n", name, err)
					}
				})
			})

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				c := nextClient()
				counter := 0
				for pb.Next() {
					if err := op(c, getKey(counter), counter); err != nil {
						log.Printf("(%s) - error: %v\n", name, err)
					}
					counter++
				}
			})
		})

		results[name] = result
		printResult(name, result)
	}

	setAll := func(value string) func(iter func(func(string))) {
		return func(iter func(func(string))) {
			iter(func(k string) {
				if _, err := relayClient.Set(ctx, k, value); err != nil {
					log.Printf("error setting key: %v\n", err)
				}
			})
		}
	}

	bench("set", nil, func(c *client.RelayClient, key string, _ int) error {
		_, err := c.Set(ctx, key, "test")
		return err
	})

	largeValue := strings.Repeat("x", perfLargeValueSizeKB*1024)
	bench("set-large", nil, func(c *client.RelayClient, key string, _ int) error {
		_, err := c.Set(ctx, key, largeValue)
		return err
	})

	bench("get", setAll("test"), func(c *client.RelayClient, key string, _ int) error {
		_, _, err := c.Get(ctx, key)
		return err
	})

	bench("get-not", nil, func(c *client.RelayClient, key string, _ int) error {
		_, _, err := c.Get(ctx, key)
		return err
	})

	bench("incr", nil, func(c *client.RelayClient, key string, _ int) error {
		_, err := c.Increment(ctx, key, 1)
		return err
	})

	bench("mixed", setAll("0"), func(c *client.RelayClient, key string, counter int) error {
		var err error
		switch counter % 4 {
		case 0: // set
			_, err = c.Set(ctx, key, "0")
		case 1: // get
			_, _, err = c.Get(ctx, key)
		case 2: // incr
			_, err = c.Increment(ctx, key, 1)
		case 3: // delete
			err = c.Delete(ctx, key)
		}
		return err
	})

	// search enumerates the whole keyspace, it is measured with the prefix pattern of the test keys
	bench("search", setAll("test"), func(c *client.RelayClient, _ string, _ int) error {
		_, err := c.Search(ctx, nil, perfKeyPrefix+"-search-*")
		return err
	})

	// Write results to csv is specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// nextClient returns the clients round robin
func nextClient() *client.RelayClient {
	return perfClients[perfNext.Add(1)%uint64(len(perfClients))]
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
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
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult, config *common.ClientConfig) error {
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
		"Endpoint", "TimeoutSec", "RetryCount", "Transport",
		"Threads", "LargeValueSizeKB", "Keys Count",
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
			config.Endpoint,
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}

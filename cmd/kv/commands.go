package kv

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/ValentinKolb/kvRelay/lib/store"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// getResult is the json/yaml shape of get
type getResult struct {
	Key   string  `json:"key" yaml:"key"`
	Value *string `json:"value" yaml:"value"`
	Found bool    `json:"found" yaml:"found"`
}

// deleteResult is the json/yaml shape of del
type deleteResult struct {
	Key     string `json:"key" yaml:"key"`
	Deleted bool   `json:"deleted" yaml:"deleted"`
}

// incrResult is the json/yaml shape of incr
type incrResult struct {
	Key   string `json:"key" yaml:"key"`
	Value int64  `json:"value" yaml:"value"`
}

var (
	setCmd = &cobra.Command{
		Use:   "set [key] [value]",
		Short: "Sets the value for a key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			stored, err := relayClient.Set(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			return printer.Print(store.KeyValue{Key: args[0], Value: stored}, func(p *util.Printer) {
				p.Pair(args[0], stored)
			})
		},
	}
	getCmd = &cobra.Command{
		Use:   "get [key]",
		Short: "Reads the value for a key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			value, found, err := relayClient.Get(ctx, args[0])
			if err != nil {
				return err
			}
			result := getResult{Key: args[0], Found: found}
			if found {
				result.Value = &value
			}
			return printer.Print(result, func(p *util.Printer) {
				if found {
					p.Pair(args[0], value)
				} else {
					p.Faint("%s not found", args[0])
				}
			})
		},
	}
	delCmd = &cobra.Command{
		Use:   "del [key]",
		Short: "Deletes a key value pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := commandContext()
			defer cancel()

			if err := relayClient.Delete(ctx, args[0]); err != nil {
				return err
			}
			return printer.Print(deleteResult{Key: args[0], Deleted: true}, func(p *util.Printer) {
				p.Line("deleted %s", args[0])
			})
		},
	}
	incrCmd = &cobra.Command{
		Use:   "incr [key] [delta]",
		Short: "Adds delta (default 1) to the integer value of a key",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			delta := int64(1)
			if len(args) == 2 {
				var err error
				if delta, err = strconv.ParseInt(args[1], 10, 64); err != nil {
					return fmt.Errorf("delta must be an integer: %w", err)
				}
			}

			ctx, cancel := commandContext()
			defer cancel()

			value, err := relayClient.Increment(ctx, args[0], delta)
			if err != nil {
				return err
			}
			return printer.Print(incrResult{Key: args[0], Value: value}, func(p *util.Printer) {
				p.Pair(args[0], strconv.FormatInt(value, 10))
			})
		},
	}
	searchCmd = &cobra.Command{
		Use:   "search",
		Short: "Lists key value pairs, optionally filtered by key pattern and value",
		Long: `Lists key value pairs. --pattern restricts the keys with a glob (e.g. "user:*"),
--query keeps only pairs whose value equals the query. Searching enumerates the
whole keyspace of the store and is not meant for large datasets.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var query *string
			if cmd.Flags().Changed("query") {
				q := viper.GetString("query")
				query = &q
			}

			ctx, cancel := commandContext()
			defer cancel()

			results, err := relayClient.Search(ctx, query, viper.GetString("pattern"))
			if err != nil {
				return err
			}
			return printer.Print(results, func(p *util.Printer) {
				for _, kv := range results {
					p.Pair(kv.Key, kv.Value)
				}
				p.Faint("%d result(s)", len(results))
			})
		},
	}
)

func init() {
	searchCmd.Flags().String("query", "", util.WrapString("Only return pairs whose value equals the query"))
	searchCmd.Flags().String("pattern", "", util.WrapString("Glob the keys must match (default: every key)"))
}

// commandContext returns the context of a single client command
func commandContext() (context.Context, context.CancelFunc) {
	timeout := time.Duration(viper.GetInt("timeout")) * time.Second
	if timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), timeout)
}

package cmd

import (
	"fmt"
	"os"

	"github.com/ValentinKolb/kvRelay/cmd/kv"
	"github.com/ValentinKolb/kvRelay/cmd/serve"
	"github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/spf13/cobra"
)

const (
	Version = "1.0.0"
)

var (

	// RootCmd represents the base command when called without any subcommands
	RootCmd = &cobra.Command{
		Use:   "kvrelay",
		Short: "key-value relay for websocket clients",
		Long: fmt.Sprintf(`kvRelay (v%s)

A key-value relay written in Go. It lets many concurrent clients (e.g. browsers)
read and write a shared Redis store through a small JSON protocol over
WebSocket or TCP, without holding credentials to the store.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kvRelay",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kvRelay v%s\n", Version)
		},
	}
)

func init() {
	// initialize viper
	cobra.OnInitialize(util.InitConfig)

	// Add Commands
	RootCmd.AddCommand(serve.ServeCmd)
	RootCmd.AddCommand(kv.KeyValueCommands)
	RootCmd.AddCommand(versionCmd)

	// Add Flags
	key := "transport"
	RootCmd.PersistentFlags().String(key, "ws", util.WrapString("transport to use (ws, tcp)"))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

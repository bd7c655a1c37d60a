package kv

import (
	"os"

	"github.com/ValentinKolb/kvRelay/cmd/util"
	"github.com/ValentinKolb/kvRelay/relay/client"
	"github.com/ValentinKolb/kvRelay/relay/serializer"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	relayClient *client.RelayClient
	printer     *util.Printer

	// KeyValueCommands represents the KV command group
	KeyValueCommands = &cobra.Command{
		Use:                "kv",
		Short:              "Perform key-value operations through a relay",
		PersistentPreRunE:  setupKVClient,
		PersistentPostRunE: closeKVClient,
	}
)

func init() {
	// Add common client flags to the KV command
	util.SetupClientFlags(KeyValueCommands)

	// Add subcommands
	KeyValueCommands.AddCommand(setCmd)
	KeyValueCommands.AddCommand(getCmd)
	KeyValueCommands.AddCommand(delCmd)
	KeyValueCommands.AddCommand(incrCmd)
	KeyValueCommands.AddCommand(searchCmd)
	KeyValueCommands.AddCommand(perfTestCmd)
}

// setupKVClient initializes the relay client
func setupKVClient(cmd *cobra.Command, _ []string) error {
	// Bind command flags to viper
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	var err error
	printer, err = util.NewPrinter(viper.GetString("output"), os.Stdout)
	if err != nil {
		return err
	}

	t, err := util.GetClientTransport()
	if err != nil {
		return err
	}

	// Create the relay client
	relayClient, err = client.NewRelayClient(
		*util.GetClientConfig(),
		t,
		serializer.NewJSONSerializer(),
	)
	return err
}

// closeKVClient closes the relay client
func closeKVClient(_ *cobra.Command, _ []string) error {
	if relayClient == nil {
		return nil
	}
	return relayClient.Close()
}

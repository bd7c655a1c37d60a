package util

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/kvRelay/relay/common"
	"github.com/ValentinKolb/kvRelay/relay/transport"
	"github.com/ValentinKolb/kvRelay/relay/transport/tcp"
	"github.com/ValentinKolb/kvRelay/relay/transport/ws"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// EnvPrefix is the prefix of all environment variables (KVRELAY_<FLAG>)
	EnvPrefix = "kvrelay"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// InitConfig loads the env files and configures viper to read KVRELAY_* environment variables
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix(EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// SetupClientFlags adds the relay connection flags to a command
func SetupClientFlags(cmd *cobra.Command) {
	key := "timeout"
	cmd.PersistentFlags().Int(key, 10, WrapString("The timeout in seconds of the client"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, "ws://localhost:8080/", WrapString("The address of the relay: a ws:// URL for the ws transport, host:port for tcp"))

	key = "retries"
	cmd.PersistentFlags().Int(key, 3, WrapString("How many times to try a request that could not be sent"))

	key = "output"
	cmd.PersistentFlags().StringP(key, "o", "text", WrapString("Output format (text, json, yaml)"))
}

// GetClientConfig reads client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt("timeout"),
		RetryCount:    viper.GetInt("retries"),
	}
}

// GetClientTransport creates the client transport based on configuration
func GetClientTransport() (transport.IRelayClientTransport, error) {
	switch common.TransportType(viper.GetString("transport")) {
	case common.TransportWebSocket:
		return ws.NewWSClientTransport(), nil
	case common.TransportTCP:
		return tcp.NewTCPClientTransport(), nil
	default:
		return nil, fmt.Errorf("invalid transport %s (expected one of: ws, tcp)", viper.GetString("transport"))
	}
}

// GetServerTransport creates the server transport for the given type
func GetServerTransport(t common.TransportType) (transport.IRelayServerTransport, error) {
	switch t {
	case common.TransportWebSocket:
		return ws.NewWSServerTransport(), nil
	case common.TransportTCP:
		return tcp.NewTCPServerTransport(), nil
	default:
		return nil, fmt.Errorf("%w: invalid transport %q (expected one of: ws, tcp)", common.ErrStartupConfig, t)
	}
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}
